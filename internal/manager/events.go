package manager

// Event represents a session lifecycle event.
// Minimal and stable: name + session ID and optional fields via key/values.
type Event struct {
	Name      string
	SessionID string
	Fields    map[string]any
}

// Event names.
const (
	EventSessionOpen     = "session_open"
	EventSessionClose    = "session_close"
	EventModelLoadStart  = "model_load_start"
	EventModelLoadReady  = "model_load_ready"
	EventModelLoadFailed = "model_load_failed"
	EventGenerationDone  = "generation_done"
	EventSessionSaved    = "session_saved"
	EventSessionLoaded   = "session_loaded"
	EventSessionDeleted  = "session_deleted"
)

// EventPublisher receives events from the manager. Implementations should be
// lightweight and non-blocking; Publish must not panic.
type EventPublisher interface {
	Publish(Event)
}

// noopPublisher is the default; it drops events.
type noopPublisher struct{}

func (noopPublisher) Publish(Event) {}
