// Package ontology implements the Ontology Registry: the process-wide,
// freeze-after-init catalogue of entities, properties, relationships, state
// machines, constraints, and actions that every other core component reads
// from.
package ontology

import "github.com/Sam-at-git/aipms-sub001/pkg/paramschema"

// SemanticType is the declared type of a PropertyMetadata.
type SemanticType string

const (
	TypeString   SemanticType = "string"
	TypeInteger  SemanticType = "integer"
	TypeNumber   SemanticType = "number"
	TypeBoolean  SemanticType = "boolean"
	TypeDate     SemanticType = "date"
	TypeDateTime SemanticType = "datetime"
	TypeEnum     SemanticType = "enum"
	TypeText     SemanticType = "text"
)

// SecurityLevel classifies how sensitive a property's value is.
type SecurityLevel string

const (
	SecurityPublic       SecurityLevel = "PUBLIC"
	SecurityInternal     SecurityLevel = "INTERNAL"
	SecurityConfidential SecurityLevel = "CONFIDENTIAL"
	SecurityRestricted   SecurityLevel = "RESTRICTED"
)

// Validator is an update-time validation hook attached to a property.
// Implementations must be pure/side-effect-free.
type Validator func(value any) error

// PropertyMetadata describes one property (column) on an entity.
type PropertyMetadata struct {
	Name              string
	Type              SemanticType
	PythonType        string // optional hint for code generation in other stacks
	IsPrimaryKey      bool
	IsForeignKey      bool
	ForeignKeyTarget  string
	IsRequired        bool
	IsUnique          bool
	IsNullable        bool
	EnumValues        []string
	DisplayName       string
	SecurityLevel     SecurityLevel
	PII               bool
	FormatRegex       string
	UpdateValidators  []Validator
}

// EntityMetadata is the authoritative description of one domain entity.
type EntityMetadata struct {
	Name          string // unique, case-sensitive at registration
	Description   string
	DisplayName   string
	Properties    []PropertyMetadata // ordered
	Category      string
	AggregateRoot bool
	Extensions    map[string]any
}

// PropertyNames returns the properties of e in declaration order.
func (e EntityMetadata) PropertyNames() []string {
	names := make([]string, len(e.Properties))
	for i, p := range e.Properties {
		names[i] = p.Name
	}
	return names
}

// Property looks up a property by name (case-sensitive, as stored).
func (e EntityMetadata) Property(name string) (PropertyMetadata, bool) {
	for _, p := range e.Properties {
		if p.Name == name {
			return p, true
		}
	}
	return PropertyMetadata{}, false
}

// Cardinality is the multiplicity of a relationship.
type Cardinality string

const (
	OneToOne   Cardinality = "one_to_one"
	OneToMany  Cardinality = "one_to_many"
	ManyToOne  Cardinality = "many_to_one"
	ManyToMany Cardinality = "many_to_many"
)

// IsCollection reports whether traversing this relationship from its source
// yields zero-or-more related rows (existential quantification) rather than
// at most one (subsumed membership).
func (c Cardinality) IsCollection() bool {
	return c == OneToMany || c == ManyToMany
}

// RelationshipMetadata describes one directed relationship between entities.
type RelationshipMetadata struct {
	Source          string
	Target          string
	Cardinality     Cardinality
	RelationAttr    string // attribute name on Source used to traverse to Target
	ForeignKeyCol   string
	Description     string
}

// StateTransition is one edge of an entity's state machine.
type StateTransition struct {
	From        string
	To          string
	Trigger     string
	Condition   string // optional predicate name/expression, evaluated externally
	SideEffects []string
}

// StateMachine is the full set of states and legal transitions for an entity.
type StateMachine struct {
	Entity       string
	States       []string
	InitialState string
	Transitions  []StateTransition
}

// Severity classifies a Constraint's failure mode.
type Severity string

const (
	SeverityError   Severity = "ERROR"
	SeverityWarning Severity = "WARNING"
)

// Constraint is a named, severity-tagged invariant bound to an
// (entity, action) or (entity, property) pair.
type Constraint struct {
	ID              string
	Name            string
	Severity        Severity
	Entity          string
	Action          string // set for (entity, action) bindings
	Property        string // set for (entity, property) bindings
	Predicate       func(ctx ConstraintContext) error
	MessageTemplate string
}

// ConstraintContext carries whatever a Constraint's predicate needs to
// evaluate — deliberately opaque to the registry.
type ConstraintContext struct {
	Entity string
	Action string
	Params map[string]any
	Row    any
}

// AppliesToAction reports whether c binds the given (entity, action) pair.
func (c Constraint) AppliesToAction(entity, action string) bool {
	return c.Entity == entity && c.Action == action
}

// AppliesToProperty reports whether c binds the given (entity, property) pair.
func (c Constraint) AppliesToProperty(entity, property string) bool {
	return c.Entity == entity && c.Property == property
}

// ActionCategory classifies an ActionDefinition.
type ActionCategory string

const (
	CategoryQuery    ActionCategory = "query"
	CategoryMutation ActionCategory = "mutation"
	CategoryWorkflow ActionCategory = "workflow"
)

// ActionDefinition is the metadata the Action Registry (pkg/actions) mirrors
// for one dispatchable action. The registry stores it as a queryable
// catalogue entry; pkg/actions owns the live handler binding.
type ActionDefinition struct {
	Name                 string
	Entity               string
	Description          string
	Category             ActionCategory
	Parameters           paramschema.Schema
	AllowedRoles         map[string]struct{}
	RequiresConfirmation bool
	Undoable             bool
	SideEffects          []string
	SearchKeywords       []string
}

// HasRole reports whether role is permitted to invoke this action. An empty
// AllowedRoles set means the action is unrestricted.
func (a ActionDefinition) HasRole(role string) bool {
	if len(a.AllowedRoles) == 0 {
		return true
	}
	_, ok := a.AllowedRoles[role]
	return ok
}
