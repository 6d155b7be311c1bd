package intent

import (
	"fmt"
)

// ValidationError reports a malformed or undecryptable intent. The caller
// rejects the deep link; nothing else is affected.
type ValidationError struct {
	Msg string
	Err error
}

func (e *ValidationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *ValidationError) Unwrap() error { return e.Err }

func validationErrorf(format string, args ...any) *ValidationError {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// NetworkError reports a failed HTTP exchange with an object storage or action URL.
type NetworkError struct {
	Msg        string
	URL        string
	StatusCode int
	Status     string
	Err        error
}

func (e *NetworkError) Error() string {
	switch {
	case e.StatusCode != 0:
		return fmt.Sprintf("%s: %s", e.Msg, e.Status)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	default:
		return e.Msg
	}
}

func (e *NetworkError) Unwrap() error { return e.Err }
