package ontology

import (
	"errors"
	"fmt"
)

// Sentinel errors, following the teacher's pkg/config/errors.go pattern of
// package-level errors.New values wrapped with %w and detail structs
// providing Unwrap.
var (
	ErrDuplicateName     = errors.New("duplicate name")
	ErrRegistryFrozen    = errors.New("registry is frozen")
	ErrUnknownEntity     = errors.New("unknown entity")
	ErrUnknownRelation   = errors.New("unknown relationship")
	ErrUnknownAction     = errors.New("unknown action")
	ErrUnknownModel      = errors.New("unknown model binding")
	ErrInvalidStateMachine = errors.New("invalid state machine")
)

// NameError wraps a duplicate/unknown-name failure with the offending name
// and the registry operation that raised it.
type NameError struct {
	Op   string // e.g. "register_entity", "get_entity"
	Name string
	Err  error
}

func (e *NameError) Error() string {
	return fmt.Sprintf("ontology.%s(%q): %v", e.Op, e.Name, e.Err)
}

func (e *NameError) Unwrap() error { return e.Err }

func newNameError(op, name string, err error) *NameError {
	return &NameError{Op: op, Name: name, Err: err}
}
