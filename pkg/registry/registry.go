// pkg/registry/registry.go
package registry

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/xeipuuv/gojsonschema"
)

// LeadPayloadName is the payload entry the webhook client validates against.
const LeadPayloadName = "lead_webhook"

func LoadRegistry(path string) (*EventRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var reg EventRegistry
	err = json.Unmarshal(data, &reg)
	return &reg, err
}

// Event finds an event entry by name.
func (r *EventRegistry) Event(name string) (EventEntry, bool) {
	for _, e := range r.Events {
		if e.Name == name {
			return e, true
		}
	}
	return EventEntry{}, false
}

// Payload finds a payload entry by name.
func (r *EventRegistry) Payload(name string) (PayloadEntry, bool) {
	for _, p := range r.Payloads {
		if p.Name == name {
			return p, true
		}
	}
	return PayloadEntry{}, false
}

// ValidateEvent checks an event's fields against its registered schema. An
// unregistered event passes; an empty schema passes.
func (r *EventRegistry) ValidateEvent(name string, fields map[string]interface{}) error {
	entry, ok := r.Event(name)
	if !ok || len(entry.Schema) == 0 {
		return nil
	}
	return validate(entry.Schema, gojsonschema.NewGoLoader(fields))
}

// ValidateLeadPayload checks a serialized webhook payload against the
// registered lead payload schema.
func (r *EventRegistry) ValidateLeadPayload(data []byte) error {
	entry, ok := r.Payload(LeadPayloadName)
	if !ok || len(entry.Schema) == 0 {
		return nil
	}
	return validate(entry.Schema, gojsonschema.NewBytesLoader(data))
}

func validate(schemaMap map[string]interface{}, documentLoader gojsonschema.JSONLoader) error {
	schemaLoader := gojsonschema.NewGoLoader(schemaMap)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return fmt.Errorf("validation error: %w", err)
	}

	if !result.Valid() {
		errs := make([]string, len(result.Errors()))
		for i, desc := range result.Errors() {
			errs[i] = desc.String()
		}
		return fmt.Errorf("payload validation failed: %v", errs)
	}

	return nil
}
