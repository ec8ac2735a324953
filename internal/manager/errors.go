package manager

import (
	"errors"

	"fastllamad/internal/native"
)

// Client-facing failure texts.
const (
	msgModelBusy        = "Model is busy"
	msgModelNotLoaded   = "Model is not loaded"
	msgSessionClosed    = "Session is closed"
	msgSessionNotFound  = "Session not found"
	msgSessionInvalid   = "Session is not valid"
	msgSessionMismatch  = "Model session is not compatible with current model"
	msgSaveFailed       = "Failed to save session"
	msgLoadFailed       = "Failed to load session"
	msgAlreadyLoaded    = "Model is already initialized"
	msgNothingToStop    = "Nothing to stop"
	msgUnsupportedProto = "Unsupported version: "
)

// tooBusyError signals that the session limit is reached.
type tooBusyError struct{ limit int }

func (e tooBusyError) Error() string { return "too many sessions" }

// ErrTooBusy constructs the error returned when limit sessions are open.
func ErrTooBusy(limit int) error { return tooBusyError{limit: limit} }

// IsTooBusy reports whether err indicates the session limit (return 429).
func IsTooBusy(err error) bool {
	var tb tooBusyError
	return errors.As(err, &tb)
}

// drainingError is returned by Open during shutdown.
type drainingError struct{}

func (drainingError) Error() string { return "server is shutting down" }

// ErrDraining constructs the error returned by Open during shutdown.
func ErrDraining() error { return drainingError{} }

// IsDraining reports whether err was caused by shutdown.
func IsDraining(err error) bool {
	var de drainingError
	return errors.As(err, &de)
}

// unsupportedVersionError ends a connection whose init carried an unknown
// protocol version.
type unsupportedVersionError struct{ version string }

func (e unsupportedVersionError) Error() string { return msgUnsupportedProto + e.version }

// IsUnsupportedVersion reports whether err should close the connection.
func IsUnsupportedVersion(err error) bool {
	var uv unsupportedVersionError
	return errors.As(err, &uv)
}

// ErrDependencyUnavailable constructs an error for a missing runtime
// dependency such as the llama backend.
func ErrDependencyUnavailable(msg string) error { return native.ErrDependencyUnavailable(msg) }

// IsDependencyUnavailable reports whether err indicates a missing/failed runtime dependency.
func IsDependencyUnavailable(err error) bool { return native.IsDependencyUnavailable(err) }
