// internal/analytics/memory_sink.go
package analytics

import (
	"context"
	"sync"
)

// MemorySink is the process-wide event queue an external collector drains,
// the service-side counterpart of window.dataLayer. Append-only from the
// funnel's point of view; Snapshot copies, it never removes.
type MemorySink struct {
	mu     sync.Mutex
	events []Event
	limit  int
}

// NewMemorySink creates a sink that keeps at most limit events, discarding
// the oldest once full. limit <= 0 means unbounded.
func NewMemorySink(limit int) *MemorySink {
	return &MemorySink{limit: limit}
}

func (s *MemorySink) Append(_ context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.events = append(s.events, event)
	if s.limit > 0 && len(s.events) > s.limit {
		s.events = s.events[len(s.events)-s.limit:]
	}
	return nil
}

// Snapshot returns a copy of the queued events in append order.
func (s *MemorySink) Snapshot() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Event, len(s.events))
	copy(out, s.events)
	return out
}

// Len returns the number of queued events.
func (s *MemorySink) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

// MultiSink fans an event out to several sinks. Each append stays
// best-effort: the first error is returned but remaining sinks still run.
type MultiSink struct {
	sinks []Sink
}

func NewMultiSink(sinks ...Sink) *MultiSink {
	return &MultiSink{sinks: sinks}
}

func (m *MultiSink) Append(ctx context.Context, event Event) error {
	var firstErr error
	for _, s := range m.sinks {
		if err := s.Append(ctx, event); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
