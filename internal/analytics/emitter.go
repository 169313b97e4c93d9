// internal/analytics/emitter.go
package analytics

import (
	"context"
	"time"

	"lead-funnel/internal/common/logger"
)

// Sink is an append-only destination for analytics events. Implementations
// may fail; the Emitter absorbs those failures.
type Sink interface {
	Append(ctx context.Context, event Event) error
}

// Emitter pushes events at a sink, fire-and-forget. A nil sink makes every
// Emit a silent no-op, the counterpart of running outside a browser context.
type Emitter struct {
	sink   Sink
	logger logger.Logger
	now    func() time.Time
}

func NewEmitter(sink Sink, log logger.Logger) *Emitter {
	return &Emitter{
		sink:   sink,
		logger: log,
		now:    time.Now,
	}
}

// NewEmitterWithClock is used by tests that need deterministic timestamps.
func NewEmitterWithClock(sink Sink, log logger.Logger, now func() time.Time) *Emitter {
	return &Emitter{sink: sink, logger: log, now: now}
}

// Emit appends an event. It attaches the timestamp when the caller left it
// empty and never returns or propagates an error: instrumentation must not
// break the funnel.
func (e *Emitter) Emit(ctx context.Context, name string, fields map[string]interface{}) {
	if e == nil || e.sink == nil {
		return
	}

	event := Event{
		Event:     name,
		Timestamp: e.now().UTC().Format(time.RFC3339),
		Fields:    fields,
	}

	if err := e.sink.Append(ctx, event); err != nil {
		if e.logger != nil {
			e.logger.Warn("analytics append failed", map[string]interface{}{
				"event": name,
				"error": err.Error(),
			})
		}
	}
}
