// Package paramschema defines the tagged-union parameter schema shared by the
// action registry (validation, coercion, JSON-Schema export) and the ontology
// registry (ActionDefinition.Parameters).
package paramschema

import (
	"fmt"
)

// Kind is the scalar type a parameter value is validated/coerced against.
type Kind string

const (
	KindString  Kind = "string"
	KindInt     Kind = "int"
	KindDecimal Kind = "decimal"
	KindDate    Kind = "date" // ISO-8601 date, YYYY-MM-DD
	KindEnum    Kind = "enum"
	KindBool    Kind = "bool"
)

// Constraints bounds additional validation applied after coercion.
type Constraints struct {
	MinLength  *int     // string length lower bound
	MaxLength  *int     // string length upper bound
	Min        *float64 // numeric lower bound (int/decimal)
	Max        *float64 // numeric upper bound (int/decimal)
	FormatRE   string   // optional regex the coerced string must match
	EnumValues []string // valid values when Kind == KindEnum
}

// Def declares one parameter: its name, kind, required-ness, default and constraints.
type Def struct {
	Name        string
	Kind        Kind
	Required    bool
	Default     any
	Description string
	Constraints Constraints
}

// Schema is an ordered list of parameter definitions for one action.
type Schema []Def

// Get returns the Def for name, or false if not declared.
func (s Schema) Get(name string) (Def, bool) {
	for _, d := range s {
		if d.Name == name {
			return d, true
		}
	}
	return Def{}, false
}

// FieldError is a single path-level validation failure.
type FieldError struct {
	Field  string
	Reason string
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// ValidationErrors collects every field-level failure found while validating
// one parameter map.
type ValidationErrors []FieldError

func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return "validation failed"
	}
	msg := ve[0].Error()
	for _, e := range ve[1:] {
		msg += "; " + e.Error()
	}
	return msg
}
