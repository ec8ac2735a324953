package manager

// State is the lifecycle state of a session.
type State string

const (
	StateUninitialized State = "uninitialized"
	StateModelLoading  State = "model-loading"
	StateReady         State = "ready"
	StateIngesting     State = "ingesting"
	StateGenerating    State = "generating"
	StateBusy          State = "busy"
	StateClosed        State = "closed"
)

// Transport delivers outbound records to the client. Send is only called
// from the session's dispatcher goroutine.
type Transport interface {
	Send(v any) error
}

// TransportFunc adapts a function to Transport.
type TransportFunc func(v any) error

func (f TransportFunc) Send(v any) error { return f(v) }

// Snapshot is a read-only projection of a session.
type Snapshot struct {
	ID         string
	State      State
	ModelPath  string
	Messages   int
	ActiveSave string
	Pending    int
}
