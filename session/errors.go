package session

import (
	"fmt"
)

// ValidationError reports a precondition failure: the operation was rejected
// before any collaborator call and the only state change is the error slot.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func validationf(format string, v ...any) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, v...)}
}

// BudgetExceededError is the validation failure for a structural mutation
// attempted after the session's budget is spent.
type BudgetExceededError struct {
	Limit int
}

func (e *BudgetExceededError) Error() string {
	return fmt.Sprintf("mutation budget of %d exhausted; start a new search to reset it", e.Limit)
}

// CollaboratorError reports a failed or structurally invalid response from
// the external AI collaborator. The affected node's loading flag has been
// cleared and its previously cached content is untouched.
type CollaboratorError struct {
	Op  string
	Err error
}

func (e *CollaboratorError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *CollaboratorError) Unwrap() error { return e.Err }
