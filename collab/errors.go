package collab

import (
	"errors"
	"fmt"
)

// ErrEmptyResponse is returned when the model produced no usable content.
var ErrEmptyResponse = errors.New("no response from model")

// ShapeError reports a structurally invalid model response: a required
// field is missing or has the wrong type. It always wraps the whole call
// into a failure; there are no partial successes at the shape level.
type ShapeError struct {
	Call  string // which contract was being served
	Field string // the offending field
	Cause error
}

func (e *ShapeError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: malformed %q in model response: %v", e.Call, e.Field, e.Cause)
	}
	return fmt.Sprintf("%s: missing %q in model response", e.Call, e.Field)
}

func (e *ShapeError) Unwrap() error { return e.Cause }
