// Package actions implements the Action Registry & Dispatcher (spec.md
// §4.D): parameter-schema validation, role-based access control, and
// handler dispatch.
package actions

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Sam-at-git/aipms-sub001/pkg/execerr"
	"github.com/Sam-at-git/aipms-sub001/pkg/ontology"
	"github.com/Sam-at-git/aipms-sub001/pkg/paramschema"
)

// Context is the dispatch-time context passed to every handler.
type Context struct {
	User     User
	Deadline time.Time // zero value means no deadline (spec.md §5)
	Extra    map[string]any
}

// User describes the caller dispatching an action.
type User struct {
	ID   string
	Role string
}

// Handler is the function an action's registration binds to. It receives
// the already-validated, coerced parameter map.
type Handler func(ctx context.Context, params map[string]any, dctx Context) (any, error)

// Registration is everything register() captures about one action besides
// its handler — mirrored into the ontology registry so the catalogue
// remains the single source of truth for metadata.
type Registration struct {
	Name                 string
	Entity               string
	Description          string
	Category             ontology.ActionCategory
	Parameters           paramschema.Schema
	RequiresConfirmation bool
	AllowedRoles         map[string]struct{}
	Undoable             bool
	SideEffects          []string
	SearchKeywords       []string
}

type registeredAction struct {
	Registration
	handler Handler
}

// Registry holds the live handler bindings. The ontology.Registry remains
// the metadata catalogue; this type is the dispatch-time counterpart,
// mirroring every registration into it so both stay consistent — following
// the teacher's split between a config-level AgentRegistry (declarative)
// and the live execution components that consume it.
type Registry struct {
	mu       sync.RWMutex
	ontology *ontology.Registry
	actions  map[string]*registeredAction
	lookup   map[string]string // lowercase -> original case
}

// NewRegistry binds a dispatcher to the shared ontology registry.
func NewRegistry(ont *ontology.Registry) *Registry {
	return &Registry{
		ontology: ont,
		actions:  make(map[string]*registeredAction),
		lookup:   make(map[string]string),
	}
}

// Register binds a handler to a Registration, mirroring the metadata into
// the ontology registry (spec.md §4.D).
func (r *Registry) Register(reg Registration, handler Handler) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.actions[reg.Name]; exists {
		return ontology.ErrDuplicateName
	}

	if err := r.ontology.RegisterAction(reg.Entity, ontology.ActionDefinition{
		Name:                 reg.Name,
		Entity:               reg.Entity,
		Description:          reg.Description,
		Category:             reg.Category,
		Parameters:           reg.Parameters,
		AllowedRoles:         reg.AllowedRoles,
		RequiresConfirmation: reg.RequiresConfirmation,
		Undoable:             reg.Undoable,
		SideEffects:          reg.SideEffects,
		SearchKeywords:       reg.SearchKeywords,
	}); err != nil {
		return err
	}

	r.actions[reg.Name] = &registeredAction{Registration: reg, handler: handler}
	r.lookup[strings.ToLower(reg.Name)] = reg.Name
	return nil
}

// Dispatch validates params against the action's schema, enforces the role
// check, then invokes the handler (spec.md §4.D dispatch contract). Every
// failure is returned as an *execerr.ExecutionError.
func (r *Registry) Dispatch(ctx context.Context, name string, rawParams map[string]any, dctx Context) (any, error) {
	r.mu.RLock()
	original, ok := r.lookup[strings.ToLower(name)]
	var action *registeredAction
	if ok {
		action = r.actions[original]
	}
	r.mu.RUnlock()

	if action == nil {
		return nil, execerr.UnknownAction(name)
	}

	validated, verrs := action.Parameters.Validate(rawParams)
	if len(verrs) > 0 {
		issues := make([]execerr.FieldIssue, len(verrs))
		for i, v := range verrs {
			issues[i] = execerr.FieldIssue{Field: v.Field, Reason: v.Reason}
		}
		return nil, execerr.Validation(issues)
	}

	if len(action.AllowedRoles) > 0 {
		if _, allowed := action.AllowedRoles[dctx.User.Role]; !allowed {
			return nil, execerr.PermissionDenied(action.Name, dctx.User.Role)
		}
	}

	result, err := action.handler(ctx, validated, dctx)
	if err != nil {
		return nil, execerr.Classify(err)
	}
	return result, nil
}

// Get returns the registration for name, resolved case-insensitively.
func (r *Registry) Get(name string) (Registration, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	original, ok := r.lookup[strings.ToLower(name)]
	if !ok {
		return Registration{}, false
	}
	return r.actions[original].Registration, true
}

// ToolDescriptor is one JSON-schema function descriptor for LLM
// function-calling (spec.md §4.D export_all_tools).
type ToolDescriptor struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// vectorFilterThreshold is the registry-size cutoff above which
// export_all_tools defers to an external top-k filter instead of returning
// every tool (spec.md §4.D).
const vectorFilterThreshold = 20

// ToolFilter narrows a large tool set to the top-k relevant to query. The
// registry is agnostic about the embedding strategy (spec.md §4.D); pass
// nil to always return every tool regardless of registry size.
type ToolFilter func(query string, all []ToolDescriptor) []ToolDescriptor

// ExportAllTools returns every action's JSON-schema descriptor. When the
// registry holds more than vectorFilterThreshold actions and a non-nil
// filter and query are supplied, the filter narrows the result; otherwise
// every tool is returned.
func (r *Registry) ExportAllTools(query string, filter ToolFilter) []ToolDescriptor {
	r.mu.RLock()
	names := make([]string, 0, len(r.actions))
	for name := range r.actions {
		names = append(names, name)
	}
	sort.Strings(names)
	tools := make([]ToolDescriptor, 0, len(names))
	for _, name := range names {
		a := r.actions[name]
		tools = append(tools, ToolDescriptor{
			Name:        a.Name,
			Description: a.Description,
			Parameters:  paramschema.ExportJSONSchema(a.Parameters),
		})
	}
	r.mu.RUnlock()

	if len(tools) > vectorFilterThreshold && filter != nil {
		return filter(query, tools)
	}
	return tools
}
