// internal/analytics/event.go
package analytics

import (
	"encoding/json"
	"sort"
)

// Well-known event names pushed into the analytics layer.
const (
	EventABAssignment = "ab_test_assignment"
	EventABConversion = "ab_test_conversion"

	// Step events keep the lead_capture_ prefix the collectors filter on.
	EventStepCompleted = "lead_capture_completed"
	EventWebhookSent   = "lead_capture_n8n_sent"
	EventWebhookError  = "lead_capture_n8n_error"
)

// Event is a single append-only analytics record. Event and Timestamp are
// fixed; everything else rides in Fields and is flattened on the wire so the
// JSON shape stays {"event": ..., "timestamp": ..., "<field>": ...}.
type Event struct {
	Event     string
	Timestamp string
	Fields    map[string]interface{}
}

// MarshalJSON flattens Fields next to the fixed keys.
func (e Event) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{}, len(e.Fields)+2)
	for k, v := range e.Fields {
		out[k] = v
	}
	out["event"] = e.Event
	out["timestamp"] = e.Timestamp
	return json.Marshal(out)
}

// UnmarshalJSON reverses MarshalJSON.
func (e *Event) UnmarshalJSON(data []byte) error {
	raw := map[string]interface{}{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if v, ok := raw["event"].(string); ok {
		e.Event = v
	}
	if v, ok := raw["timestamp"].(string); ok {
		e.Timestamp = v
	}
	delete(raw, "event")
	delete(raw, "timestamp")
	if len(raw) > 0 {
		e.Fields = raw
	}
	return nil
}

// FieldKeys returns the sorted field names, mainly for tests and debugging.
func (e Event) FieldKeys() []string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
