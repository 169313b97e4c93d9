// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	FunnelStepsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "funnel_steps_completed_total",
			Help: "Total number of capture steps completed",
		},
		[]string{"step"},
	)

	FunnelValidationFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "funnel_validation_failures_total",
			Help: "Total number of step validation failures by field",
		},
		[]string{"field"},
	)

	FunnelStepDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "funnel_step_duration_seconds",
			Help: "Duration of step submit handling in seconds",
		},
		[]string{"step"},
	)

	ABAssignments = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ab_assignments_total",
			Help: "Total number of headline variant assignments",
		},
		[]string{"variant"},
	)

	ABConversions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ab_conversions_total",
			Help: "Total number of headline variant conversions",
		},
		[]string{"variant", "event"},
	)

	LeadDeliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lead_deliveries_total",
			Help: "Total number of lead webhook deliveries by status",
		},
		[]string{"status"},
	)
)
