package alder

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidName is returned when a name or alias is empty.
	ErrInvalidName = errors.New("invalid name")

	// ErrNotFound is returned when an operation references a name or alias
	// that is not registered.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyRegistered is returned when an object is registered under a
	// name that already holds a finished object.
	ErrAlreadyRegistered = errors.New("already registered")

	// ErrConflictingAlias is returned when alias overriding is disabled and
	// an alias is re-registered for a different target.
	ErrConflictingAlias = errors.New("conflicting alias")

	// ErrCircularAlias is returned when registering an alias would make an
	// alias chain loop back on itself.
	ErrCircularAlias = errors.New("circular alias")

	// ErrCurrentlyInCreation is returned when a factory re-enters creation
	// for its own name outside the early-reference path.
	ErrCurrentlyInCreation = errors.New("currently in creation")

	// ErrDestructionInProgress is returned when creation is attempted while
	// DestroyAll is tearing the registry down. Do not request objects from
	// inside a dispose function.
	ErrDestructionInProgress = errors.New("registry is being destroyed")
)

// CreationError reports a failed factory invocation. Suppressed holds the
// errors of sibling creations that failed during the same creation burst, so
// a single report explains a whole cascade of related failures.
type CreationError struct {
	// Name is the object the failed factory was building.
	Name string

	// Cause is the error the factory returned.
	Cause error

	// Suppressed lists related failures collected while this creation
	// attempt was in flight, oldest first.
	Suppressed []error
}

func (e *CreationError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "creating %q: %v", e.Name, e.Cause)
	for _, s := range e.Suppressed {
		fmt.Fprintf(&b, "; suppressed: %v", s)
	}
	return b.String()
}

// Unwrap exposes the cause and all suppressed errors to errors.Is/As.
func (e *CreationError) Unwrap() []error {
	errs := make([]error, 0, len(e.Suppressed)+1)
	errs = append(errs, e.Cause)
	errs = append(errs, e.Suppressed...)
	return errs
}
