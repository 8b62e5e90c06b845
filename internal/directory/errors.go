package directory

import (
	"errors"
	"fmt"
)

// Operation-level outcomes the reconciler classifies with errors.Is.
var (
	// ErrDuplicateMember: add rejected because the principal is already
	// present. Idempotent no-op for the caller.
	ErrDuplicateMember = errors.New("member already exists")

	// ErrNotFound: remove (or update) of a principal that is already
	// absent. Idempotent no-op for the caller.
	ErrNotFound = errors.New("member not found")

	// ErrUnresolvable: the email has no identity in the backend. The
	// principal is dropped from the desired set for this run.
	ErrUnresolvable = errors.New("identity not resolvable")
)

// UnavailableError means listing or paging failed entirely and the
// entity's reconciliation cannot proceed this run.
type UnavailableError struct {
	Kind string
	Err  error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("%s directory unavailable: %v", e.Kind, e.Err)
}

func (e *UnavailableError) Unwrap() error { return e.Err }
