package ontology

import (
	"fmt"
	"strings"
	"sync"
)

// Registry is the process-wide ontology catalogue. It is safe to register
// into from multiple goroutines during startup, then must be Frozen before
// any downstream component reads from it in the hot path. Every read takes
// the read lock, so reads after Freeze never wait on a writer; this mirrors
// the teacher's AgentRegistry/ChainRegistry split between a mutable
// registration window and read-only serving.
//
// The ontology is an inherently cyclic digraph (Guest<->StayRecord<->Room).
// The registry stores nodes (entities) in one map and edges
// (relationships) in per-source-entity lists; nothing here holds a
// reference that implies ownership between entity metadata objects, and the
// only cycle-breaking discipline lives in the path resolver's per-walk
// visited set (pkg/query).
type Registry struct {
	mu     sync.RWMutex
	frozen bool

	entities     map[string]*EntityMetadata // keyed by original-case name
	entityLookup map[string]string          // lowercase name -> original-case name

	relationships map[string][]RelationshipMetadata // keyed by source entity (original case)

	stateMachines map[string]*StateMachine // keyed by entity (original case)

	constraints []Constraint

	actions     map[string]*ActionDefinition
	actionLookup map[string]string

	models map[string]any // entity name -> row-store model handle (opaque to the registry)
}

// NewRegistry returns an empty, unfrozen registry.
func NewRegistry() *Registry {
	return &Registry{
		entities:      make(map[string]*EntityMetadata),
		entityLookup:  make(map[string]string),
		relationships: make(map[string][]RelationshipMetadata),
		stateMachines: make(map[string]*StateMachine),
		actions:       make(map[string]*ActionDefinition),
		actionLookup:  make(map[string]string),
		models:        make(map[string]any),
	}
}

func (r *Registry) checkWritable(op string) error {
	if r.frozen {
		return fmt.Errorf("%s: %w", op, ErrRegistryFrozen)
	}
	return nil
}

// RegisterEntity adds a new entity to the catalogue. Fails with
// ErrDuplicateName if the name (case-sensitive) already exists, or
// ErrRegistryFrozen after Freeze.
func (r *Registry) RegisterEntity(e EntityMetadata) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.checkWritable("register_entity"); err != nil {
		return err
	}
	if _, exists := r.entities[e.Name]; exists {
		return newNameError("register_entity", e.Name, ErrDuplicateName)
	}

	copied := e
	copied.Properties = append([]PropertyMetadata(nil), e.Properties...)
	r.entities[e.Name] = &copied
	r.entityLookup[strings.ToLower(e.Name)] = e.Name
	return nil
}

// RegisterRelationship appends a relationship originating at source.
func (r *Registry) RegisterRelationship(source string, rel RelationshipMetadata) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.checkWritable("register_relationship"); err != nil {
		return err
	}
	rel.Source = source
	r.relationships[source] = append(r.relationships[source], rel)
	return nil
}

// RegisterStateMachine binds a StateMachine to an entity. Validates the
// invariants from spec.md §3: every transition's From/To must be a
// declared state, exactly one initial state, and no trigger may produce
// two transitions from the same From state without a disambiguating
// Condition.
func (r *Registry) RegisterStateMachine(sm StateMachine) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.checkWritable("register_state_machine"); err != nil {
		return err
	}
	if err := validateStateMachine(sm); err != nil {
		return fmt.Errorf("register_state_machine(%q): %w", sm.Entity, err)
	}
	r.stateMachines[sm.Entity] = &sm
	return nil
}

func validateStateMachine(sm StateMachine) error {
	if sm.InitialState == "" {
		return fmt.Errorf("%w: no initial state", ErrInvalidStateMachine)
	}
	states := make(map[string]struct{}, len(sm.States))
	for _, s := range sm.States {
		states[s] = struct{}{}
	}
	if _, ok := states[sm.InitialState]; !ok {
		return fmt.Errorf("%w: initial state %q not in state set", ErrInvalidStateMachine, sm.InitialState)
	}

	seen := make(map[[2]string]bool) // (from, trigger) -> has unconditional transition
	for _, t := range sm.Transitions {
		if _, ok := states[t.From]; !ok {
			return fmt.Errorf("%w: transition references undeclared state %q", ErrInvalidStateMachine, t.From)
		}
		if _, ok := states[t.To]; !ok {
			return fmt.Errorf("%w: transition references undeclared state %q", ErrInvalidStateMachine, t.To)
		}
		key := [2]string{t.From, t.Trigger}
		if t.Condition == "" {
			if seen[key] {
				return fmt.Errorf("%w: trigger %q from state %q has multiple unconditional transitions", ErrInvalidStateMachine, t.Trigger, t.From)
			}
			seen[key] = true
		}
	}
	return nil
}

// RegisterConstraint appends a constraint to the catalogue.
func (r *Registry) RegisterConstraint(c Constraint) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.checkWritable("register_constraint"); err != nil {
		return err
	}
	r.constraints = append(r.constraints, c)
	return nil
}

// RegisterAction mirrors an ActionDefinition under entity into the registry.
// pkg/actions.Registry calls this alongside its own handler binding so the
// registry remains the single source of truth for action metadata.
func (r *Registry) RegisterAction(entity string, a ActionDefinition) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.checkWritable("register_action"); err != nil {
		return err
	}
	if _, exists := r.actions[a.Name]; exists {
		return newNameError("register_action", a.Name, ErrDuplicateName)
	}
	a.Entity = entity
	copied := a
	r.actions[a.Name] = &copied
	r.actionLookup[strings.ToLower(a.Name)] = a.Name
	return nil
}

// RegisterModel binds an entity name to a row-store model handle. The
// registry stores the handle opaquely — it is the Query Executor
// (pkg/query) that knows how to use it.
func (r *Registry) RegisterModel(entity string, model any) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.checkWritable("register_model"); err != nil {
		return err
	}
	r.models[entity] = model
	return nil
}

// Freeze closes the registration window. All register_* calls made after
// Freeze return ErrRegistryFrozen.
func (r *Registry) Freeze() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frozen = true
}

// Frozen reports whether Freeze has been called.
func (r *Registry) Frozen() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.frozen
}

// ────────────────────────────────────────────────────────────
// Pure queries
// ────────────────────────────────────────────────────────────

// GetEntity resolves name case-insensitively and returns the stored,
// original-case metadata.
func (r *Registry) GetEntity(name string) (*EntityMetadata, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	original, ok := r.entityLookup[strings.ToLower(name)]
	if !ok {
		return nil, newNameError("get_entity", name, ErrUnknownEntity)
	}
	return r.entities[original], nil
}

// HasEntity reports whether name (case-insensitive) is registered.
func (r *Registry) HasEntity(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.entityLookup[strings.ToLower(name)]
	return ok
}

// EntityNames returns every registered entity's original-case name.
func (r *Registry) EntityNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.entities))
	for name := range r.entities {
		names = append(names, name)
	}
	return names
}

// GetRelationships returns the relationships declared with source as their
// origin entity, resolved case-insensitively.
func (r *Registry) GetRelationships(source string) ([]RelationshipMetadata, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	original, ok := r.entityLookup[strings.ToLower(source)]
	if !ok {
		return nil, newNameError("get_relationships", source, ErrUnknownEntity)
	}
	rels := r.relationships[original]
	out := make([]RelationshipMetadata, len(rels))
	copy(out, rels)
	return out, nil
}

// GetRelationship finds the relationship from source to target by
// relationship attribute name, if any.
func (r *Registry) GetRelationship(source, relationAttr string) (RelationshipMetadata, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	original, ok := r.entityLookup[strings.ToLower(source)]
	if !ok {
		return RelationshipMetadata{}, false
	}
	for _, rel := range r.relationships[original] {
		if rel.RelationAttr == relationAttr {
			return rel, true
		}
	}
	return RelationshipMetadata{}, false
}

// GetStateMachine returns the state machine registered for entity, if any.
func (r *Registry) GetStateMachine(entity string) (*StateMachine, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	original, ok := r.entityLookup[strings.ToLower(entity)]
	if !ok {
		return nil, newNameError("get_state_machine", entity, ErrUnknownEntity)
	}
	sm, ok := r.stateMachines[original]
	if !ok {
		return nil, nil
	}
	return sm, nil
}

// GetModel returns the row-store model handle bound to name.
func (r *Registry) GetModel(name string) (any, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	original, ok := r.entityLookup[strings.ToLower(name)]
	if !ok {
		return nil, newNameError("get_model", name, ErrUnknownEntity)
	}
	model, ok := r.models[original]
	if !ok {
		return nil, newNameError("get_model", name, ErrUnknownModel)
	}
	return model, nil
}

// GetConstraintsFor returns the constraints bound to (entity, action) or
// (entity, property) — callers pass whichever pairing they are checking.
func (r *Registry) GetConstraintsFor(entity, actionOrProperty string, byAction bool) []Constraint {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Constraint
	for _, c := range r.constraints {
		if byAction {
			if c.AppliesToAction(entity, actionOrProperty) {
				out = append(out, c)
			}
		} else if c.AppliesToProperty(entity, actionOrProperty) {
			out = append(out, c)
		}
	}
	return out
}

// GetAction resolves an action name case-insensitively.
func (r *Registry) GetAction(name string) (*ActionDefinition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	original, ok := r.actionLookup[strings.ToLower(name)]
	if !ok {
		return nil, newNameError("get_action", name, ErrUnknownAction)
	}
	return r.actions[original], nil
}

// ActionNames returns every registered action's original-case name.
func (r *Registry) ActionNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.actions))
	for name := range r.actions {
		names = append(names, name)
	}
	return names
}

// SchemaExport is the opaque, JSON-friendly projection produced by
// ExportSchema — a snapshot handed to the LLM as retrieval context.
type SchemaExport struct {
	Entities      []EntityMetadata
	Relationships map[string][]RelationshipMetadata
	Actions       []ActionDefinition
}

// ExportSchema produces a point-in-time snapshot of the catalogue.
func (r *Registry) ExportSchema() SchemaExport {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entities := make([]EntityMetadata, 0, len(r.entities))
	for _, e := range r.entities {
		entities = append(entities, *e)
	}
	rels := make(map[string][]RelationshipMetadata, len(r.relationships))
	for k, v := range r.relationships {
		rels[k] = append([]RelationshipMetadata(nil), v...)
	}
	actions := make([]ActionDefinition, 0, len(r.actions))
	for _, a := range r.actions {
		actions = append(actions, *a)
	}
	return SchemaExport{Entities: entities, Relationships: rels, Actions: actions}
}
