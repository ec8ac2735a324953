package native

import "errors"

// ErrContextClosed is returned by every Context method after Close.
var ErrContextClosed = errors.New("engine context closed")

// operationError reports that the engine returned failure for op.
type operationError struct{ op string }

func (e operationError) Error() string { return "engine " + e.op + " failed" }

// IsOperationFailed reports whether err is an engine-reported failure.
func IsOperationFailed(err error) bool {
	var oe operationError
	return errors.As(err, &oe)
}

// invalidTextError is returned when text cannot cross the boundary.
type invalidTextError struct{ reason string }

func (e invalidTextError) Error() string { return "invalid text: " + e.reason }

// IsInvalidText reports whether err came from text validation.
func IsInvalidText(err error) bool {
	var te invalidTextError
	return errors.As(err, &te)
}

// dependencyUnavailableError signals that no usable engine was compiled in.
type dependencyUnavailableError struct{ msg string }

func (e dependencyUnavailableError) Error() string { return e.msg }

// ErrDependencyUnavailable constructs a dependencyUnavailableError.
func ErrDependencyUnavailable(msg string) error { return dependencyUnavailableError{msg: msg} }

// IsDependencyUnavailable reports whether err indicates a missing engine.
func IsDependencyUnavailable(err error) bool {
	var de dependencyUnavailableError
	return errors.As(err, &de)
}
