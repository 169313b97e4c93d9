// pkg/registry/schema.go
package registry

// EventRegistry is the versioned catalog of event and payload schemas the
// funnel emits. Schemas are advisory: a mismatch is logged, never blocks.
type EventRegistry struct {
	Version     string       `json:"version"`
	LastUpdated string       `json:"lastUpdated"`
	Events      []EventEntry `json:"events"`
	Payloads    []PayloadEntry `json:"payloads"`
}

// EventEntry documents one analytics event.
type EventEntry struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Category    string                 `json:"category"`
	Schema      map[string]interface{} `json:"schema"`
	Tags        []string               `json:"tags"`
}

// PayloadEntry documents one outbound payload shape.
type PayloadEntry struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Schema      map[string]interface{} `json:"schema"`
}
