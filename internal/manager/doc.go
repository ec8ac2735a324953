// Package manager runs client sessions against the native engine. It is
// structured into small files by concern:
//
//   - manager.go: Manager, the registry of open sessions, and shutdown.
//   - config.go: ManagerConfig and package defaults; NewWithConfig applies defaults.
//   - types.go: State, Transport and Snapshot.
//   - session.go: Session, inbound dispatch, delivery and Close.
//   - admission.go: the single engine slot and worker goroutines.
//   - handlers.go: init, init-model and user-message.
//   - callbacks.go: engine log, progress and token hooks.
//   - commands.go: invoke-command, including stop.
//   - persistence.go: session save, load, delete and list.
//   - files.go: workspace browsing and live directory refresh.
//   - errors.go: error types and helpers (IsTooBusy, IsUnsupportedVersion).
//   - events.go, eventpub_memory.go: lifecycle events.
//   - status_report.go, metrics.go: /status and Prometheus metrics.
//
// Every engine call runs on a worker goroutine holding the session's engine
// slot; the connection goroutine only validates and admits. Engine hooks
// never send directly: they queue records on the session dispatcher, which
// is the only goroutine that writes to the transport.
package manager
