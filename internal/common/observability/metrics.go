package observability

import (
	"context"
	"log"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
)

type Observability struct {
	meterProvider    *metric.MeterProvider
	meter            otelmetric.Meter
	stepCounter      otelmetric.Int64Counter
	deliveryDuration otelmetric.Float64Histogram
}

func New(serviceName string) *Observability {
	exporter, err := prometheus.New()
	if err != nil {
		log.Printf("Failed to create Prometheus exporter: %v", err)
		return &Observability{}
	}

	provider := metric.NewMeterProvider(metric.WithReader(exporter))
	otel.SetMeterProvider(provider)

	meter := provider.Meter(serviceName)

	stepCounter, _ := meter.Int64Counter(
		"funnel.steps.processed",
		otelmetric.WithDescription("Number of capture step submits processed"),
	)

	deliveryDuration, _ := meter.Float64Histogram(
		"funnel.delivery.duration",
		otelmetric.WithDescription("Lead webhook delivery duration"),
		otelmetric.WithUnit("ms"),
	)

	return &Observability{
		meterProvider:    provider,
		meter:            meter,
		stepCounter:      stepCounter,
		deliveryDuration: deliveryDuration,
	}
}

func (o *Observability) RecordStepProcessed(ctx context.Context, step, status string) {
	if o.stepCounter != nil {
		o.stepCounter.Add(ctx, 1, otelmetric.WithAttributes(
			attribute.String("step", step),
			attribute.String("status", status),
		))
	}
}

func (o *Observability) RecordDeliveryDuration(ctx context.Context, duration time.Duration, status string) {
	if o.deliveryDuration != nil {
		o.deliveryDuration.Record(ctx, float64(duration.Milliseconds()), otelmetric.WithAttributes(
			attribute.String("status", status),
		))
	}
}

func (o *Observability) Shutdown() {
	if o.meterProvider != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		o.meterProvider.Shutdown(ctx)
	}
}
