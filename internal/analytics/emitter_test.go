// internal/analytics/emitter_test.go
package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lead-funnel/internal/common/logger"
)

type failingSink struct {
	err error
}

func (s failingSink) Append(context.Context, Event) error { return s.err }

func TestEmitter_NilSinkIsNoOp(t *testing.T) {
	emitter := NewEmitter(nil, logger.NewNoOpLogger())

	// Must not panic or error.
	emitter.Emit(context.Background(), EventStepCompleted, map[string]interface{}{"step": "email"})
}

func TestEmitter_AttachesTimestamp(t *testing.T) {
	sink := NewMemorySink(0)
	fixed := time.Date(2026, 8, 14, 12, 0, 0, 0, time.UTC)
	emitter := NewEmitterWithClock(sink, logger.NewNoOpLogger(), func() time.Time { return fixed })

	emitter.Emit(context.Background(), EventABAssignment, map[string]interface{}{
		"test_name":  "headline_variants",
		"variant_id": "original",
	})

	events := sink.Snapshot()
	require.Len(t, events, 1)
	assert.Equal(t, EventABAssignment, events[0].Event)
	assert.Equal(t, "2026-08-14T12:00:00Z", events[0].Timestamp)
	assert.Equal(t, "original", events[0].Fields["variant_id"])
}

func TestEmitter_SinkFailureIsAbsorbed(t *testing.T) {
	emitter := NewEmitter(failingSink{err: errors.New("down")}, logger.NewTestLogger(t))

	// Failure is logged, never propagated.
	emitter.Emit(context.Background(), EventWebhookSent, nil)
}

func TestMemorySink_Limit(t *testing.T) {
	sink := NewMemorySink(3)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, sink.Append(ctx, Event{Event: EventStepCompleted, Fields: map[string]interface{}{"n": i}}))
	}

	events := sink.Snapshot()
	require.Len(t, events, 3)
	assert.Equal(t, 2, events[0].Fields["n"])
	assert.Equal(t, 4, events[2].Fields["n"])
	assert.Equal(t, 3, sink.Len())
}

func TestMultiSink_FanOutContinuesPastFailure(t *testing.T) {
	good := NewMemorySink(0)
	multi := NewMultiSink(failingSink{err: errors.New("down")}, good)

	err := multi.Append(context.Background(), Event{Event: EventStepCompleted})
	assert.Error(t, err)
	assert.Equal(t, 1, good.Len())
}

func TestEvent_JSONFlattening(t *testing.T) {
	event := Event{
		Event:     EventStepCompleted,
		Timestamp: "2026-08-14T12:00:00Z",
		Fields: map[string]interface{}{
			"step":         "phone",
			"phone_provided": true,
		},
	}

	data, err := json.Marshal(event)
	require.NoError(t, err)

	var flat map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &flat))
	assert.Equal(t, EventStepCompleted, flat["event"])
	assert.Equal(t, "phone", flat["step"])
	assert.Equal(t, true, flat["phone_provided"])

	var back Event
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, event.Event, back.Event)
	assert.Equal(t, event.Timestamp, back.Timestamp)
	assert.Equal(t, "phone", back.Fields["step"])
}
