// Package execerr defines the seven-kind execution error taxonomy shared by
// the Action Dispatcher and the Reflexion Loop (spec.md §7).
package execerr

import (
	"fmt"
	"strings"
)

// Kind is one of the seven classified execution-error kinds.
type Kind string

const (
	KindValidation       Kind = "VALIDATION_ERROR"
	KindValue            Kind = "VALUE_ERROR"
	KindNotFound         Kind = "NOT_FOUND"
	KindStateError       Kind = "STATE_ERROR"
	KindBusinessError    Kind = "BUSINESS_ERROR"
	KindPermissionDenied Kind = "PERMISSION_DENIED"
	KindUnknown          Kind = "UNKNOWN"
)

// Terminal reports whether an error of this kind must stop the Reflexion
// loop immediately rather than drive a retry (spec.md §7: only
// PERMISSION_DENIED).
func (k Kind) Terminal() bool { return k == KindPermissionDenied }

// Lowercase is the error-code string the HTTP shell surfaces to clients
// (spec.md §7: "error code (one of the above in lowercase)").
func (k Kind) Lowercase() string {
	switch k {
	case KindValidation:
		return "validation_error"
	case KindValue:
		return "value_error"
	case KindNotFound:
		return "not_found"
	case KindStateError:
		return "state_error"
	case KindBusinessError:
		return "business_error"
	case KindPermissionDenied:
		return "permission_denied"
	default:
		return "unknown"
	}
}

// FieldIssue is one field-level validation complaint, carried in
// ExecutionError.Details for VALIDATION_ERROR.
type FieldIssue struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// StateContext carries the extra context a STATE_ERROR needs for the
// Reflexion loop's state-hint correction rule (spec.md §4.E).
type StateContext struct {
	CurrentState      string   `json:"current_state,omitempty"`
	ValidAlternatives []string `json:"valid_alternatives,omitempty"`
}

// ExecutionError is the uniform error value every dispatch-path failure is
// carried as (spec.md §7).
type ExecutionError struct {
	Kind      Kind
	Message   string
	Fields    []FieldIssue  // populated for VALIDATION_ERROR
	State     *StateContext // populated for STATE_ERROR when known
	Cause     error         // the underlying handler error, if any
}

func (e *ExecutionError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.Cause)
	}
	return string(e.Kind)
}

func (e *ExecutionError) Unwrap() error { return e.Cause }

// New constructs a plain ExecutionError of the given kind.
func New(kind Kind, message string) *ExecutionError {
	return &ExecutionError{Kind: kind, Message: message}
}

// Wrap constructs an ExecutionError of the given kind from an underlying
// error, used by the classification mapper when translating a handler's
// raw error into the taxonomy.
func Wrap(kind Kind, cause error) *ExecutionError {
	return &ExecutionError{Kind: kind, Message: cause.Error(), Cause: cause}
}

// Validation constructs a VALIDATION_ERROR carrying per-field issues.
func Validation(fields []FieldIssue) *ExecutionError {
	return &ExecutionError{Kind: KindValidation, Message: "parameter validation failed", Fields: fields}
}

// PermissionDenied constructs the terminal PERMISSION_DENIED error raised
// when a user's role is not in an action's allowed-roles set.
func PermissionDenied(action, role string) *ExecutionError {
	return &ExecutionError{
		Kind:    KindPermissionDenied,
		Message: fmt.Sprintf("role %q is not permitted to invoke %q", role, action),
	}
}

// UnknownAction constructs the error raised when dispatch is asked to
// invoke an action name that was never registered.
func UnknownAction(name string) *ExecutionError {
	return &ExecutionError{Kind: KindUnknown, Message: fmt.Sprintf("unknown action %q", name)}
}

// StateError constructs a STATE_ERROR carrying the current-state /
// valid-alternatives hint the Reflexion loop's state_hint rule consumes.
func StateError(message string, ctx StateContext) *ExecutionError {
	return &ExecutionError{Kind: KindStateError, Message: message, State: &ctx}
}

// messageKindHints maps lowercase substrings to the kind a generic error's
// message implies, checked in order when the error's Go type alone doesn't
// identify its kind (spec.md §7's "mapper inspects the exception type and
// message").
var messageKindHints = []struct {
	substr string
	kind   Kind
}{
	{"validation failed", KindValidation},
	{"required field", KindValidation},
	{"not found", KindNotFound},
	{"does not exist", KindNotFound},
	{"permission", KindPermissionDenied},
	{"not permitted", KindPermissionDenied},
	{"not in an eligible status", KindStateError},
	{"invalid state", KindStateError},
}

// Classify maps an arbitrary handler error into the execution-error
// taxonomy. A handler that already returns an *ExecutionError is passed
// through unchanged; any other error is classified by type first, then by
// a message-pattern fallback, then finally UNKNOWN.
func Classify(err error) *ExecutionError {
	if err == nil {
		return nil
	}
	if ee, ok := err.(*ExecutionError); ok {
		return ee
	}

	switch typed := err.(type) {
	case *ValueError:
		return Wrap(KindValue, typed)
	case *NotFoundError:
		return Wrap(KindNotFound, typed)
	case *BusinessRuleError:
		return Wrap(KindBusinessError, typed)
	case *PermissionError:
		return Wrap(KindPermissionDenied, typed)
	}

	msg := strings.ToLower(err.Error())
	for _, hint := range messageKindHints {
		if strings.Contains(msg, hint.substr) {
			return Wrap(hint.kind, err)
		}
	}
	return Wrap(KindUnknown, err)
}

// ValueError signals a domain value out of range (spec.md §7 VALUE_ERROR).
type ValueError struct{ Message string }

func (e *ValueError) Error() string { return e.Message }

// NotFoundError signals a referenced row is not in the store.
type NotFoundError struct{ Message string }

func (e *NotFoundError) Error() string { return e.Message }

// BusinessRuleError signals a handler-level business-rule rejection.
type BusinessRuleError struct{ Message string }

func (e *BusinessRuleError) Error() string { return e.Message }

// PermissionError signals a role-check failure raised from inside a
// handler itself (as opposed to the dispatcher's own pre-check).
type PermissionError struct{ Message string }

func (e *PermissionError) Error() string { return e.Message }
