package query

import (
	"strings"

	"github.com/Sam-at-git/aipms-sub001/pkg/ontology"
)

// ExtractedQuery is the loose, LLM-authored query intent handed to the
// compiler before it is resolved against the registry (spec.md §4.B).
type ExtractedQuery struct {
	TargetEntityHint string
	TargetFieldsHint []string
	Conditions       []ExtractedCondition
	TimeContext      string // optional free-text hint, e.g. "today", "this week"
}

// ExtractedCondition is one unresolved filter condition from the LLM.
type ExtractedCondition struct {
	FieldHint string
	Operator  FilterOperator
	Value     any
}

// RuleApplicator rewrites a raw field/value alias into its canonical form,
// e.g. "净房" -> "vacant_clean". Domain adapters supply their own table;
// the compiler falls back to the identity function when alias is unknown.
type RuleApplicator interface {
	Apply(entity, fieldOrValue string) (string, bool)
}

// NoAliases is a RuleApplicator that never rewrites anything, used when a
// domain adapter registers no alias table.
type NoAliases struct{}

func (NoAliases) Apply(string, string) (string, bool) { return "", false }

// CompiledIntent is the result of resolving an ExtractedQuery: the
// best-effort SemanticQuery plus a confidence score describing how much of
// the hint set resolved cleanly (spec.md §4.B).
type CompiledIntent struct {
	Query      SemanticQuery
	Confidence float64
}

// OntologyQueryCompiler turns LLM-authored ExtractedQuery values into
// SemanticQuery values the Resolver can compile, grounded entirely against
// registry metadata (entity/display names, property names) rather than any
// hardcoded domain vocabulary.
type OntologyQueryCompiler struct {
	registry *ontology.Registry
	aliases  RuleApplicator
}

// NewOntologyQueryCompiler binds a compiler to a registry and an optional
// alias table; pass NoAliases{} if the domain adapter has none.
func NewOntologyQueryCompiler(registry *ontology.Registry, aliases RuleApplicator) *OntologyQueryCompiler {
	if aliases == nil {
		aliases = NoAliases{}
	}
	return &OntologyQueryCompiler{registry: registry, aliases: aliases}
}

// Compile resolves eq into a best-effort SemanticQuery with a confidence
// score: 0.9 when every hint resolved, 0.7 when some fields did not resolve,
// 0.5 when the entity resolved but no fields did, 0.0 when the entity itself
// could not be resolved (callers must treat this as "no query, ask the
// LLM to retry or fall back to a canned response").
func (c *OntologyQueryCompiler) Compile(eq ExtractedQuery) CompiledIntent {
	entity, ok := c.resolveEntity(eq.TargetEntityHint)
	if !ok {
		return CompiledIntent{Confidence: 0.0}
	}

	var fields []string
	unresolvedFields := 0
	for _, hint := range eq.TargetFieldsHint {
		if resolved, ok := c.resolveFieldPath(entity, hint); ok {
			fields = append(fields, resolved)
		} else {
			unresolvedFields++
		}
	}

	var filters []SemanticFilter
	for _, cond := range eq.Conditions {
		path, finalEntity, ok := c.resolveFieldPathWithEntity(entity, cond.FieldHint)
		if !ok {
			continue
		}
		val := cond.Value
		if s, ok := val.(string); ok {
			if rewritten, applied := c.aliases.Apply(finalEntity, s); applied {
				val = rewritten
			}
		}
		filters = append(filters, SemanticFilter{Path: path, Operator: cond.Operator, Value: val})
	}

	q := SemanticQuery{RootEntity: entity, Fields: fields, Filters: filters}

	switch {
	case len(eq.TargetFieldsHint) == 0:
		return CompiledIntent{Query: q, Confidence: 0.9}
	case len(fields) == 0:
		return CompiledIntent{Query: q, Confidence: 0.5}
	case unresolvedFields > 0:
		return CompiledIntent{Query: q, Confidence: 0.7}
	default:
		return CompiledIntent{Query: q, Confidence: 0.9}
	}
}

// resolveEntity matches hint against entity name or display name,
// case-insensitively.
func (c *OntologyQueryCompiler) resolveEntity(hint string) (string, bool) {
	if hint == "" {
		return "", false
	}
	if meta, err := c.registry.GetEntity(hint); err == nil {
		return meta.Name, true
	}
	lower := strings.ToLower(hint)
	for _, name := range c.registry.EntityNames() {
		meta, err := c.registry.GetEntity(name)
		if err != nil {
			continue
		}
		if strings.ToLower(meta.DisplayName) == lower || strings.ToLower(meta.Description) == lower {
			return meta.Name, true
		}
	}
	return "", false
}

// resolveFieldPath resolves a dot-path against property name or display
// name at each hop — allowing the LLM to reference relationships and
// properties by their presentation labels interchangeably with their
// registry names.
func (c *OntologyQueryCompiler) resolveFieldPath(rootEntity, hint string) (string, bool) {
	path, _, ok := c.resolveFieldPathWithEntity(rootEntity, hint)
	return path, ok
}

// resolveFieldPathWithEntity is resolveFieldPath plus the entity the path
// terminates on, needed to scope alias-table lookups on filter values to
// the entity that actually owns the property (e.g. a "vacant_clean" alias
// for StayRecord.status, not for the query's root entity).
func (c *OntologyQueryCompiler) resolveFieldPathWithEntity(rootEntity, hint string) (string, string, bool) {
	if hint == "" {
		return "", "", false
	}
	tokens := strings.Split(hint, ".")
	current := rootEntity
	resolvedTokens := make([]string, 0, len(tokens))

	for i, tok := range tokens {
		isLast := i == len(tokens)-1

		if rel, ok := matchRelation(c.registry, current, tok); ok {
			resolvedTokens = append(resolvedTokens, rel.RelationAttr)
			current = rel.Target
			continue
		}

		meta, err := c.registry.GetEntity(current)
		if err != nil {
			return "", "", false
		}
		if prop, ok := matchProperty(meta, tok); ok {
			resolvedTokens = append(resolvedTokens, prop.Name)
			if isLast {
				return strings.Join(resolvedTokens, "."), current, true
			}
			return "", "", false // property segment cannot have a continuation
		}
		return "", "", false
	}
	return strings.Join(resolvedTokens, "."), current, true
}

func matchRelation(registry *ontology.Registry, entity, token string) (ontology.RelationshipMetadata, bool) {
	if rel, ok := registry.GetRelationship(entity, token); ok {
		return rel, true
	}
	rels, err := registry.GetRelationships(entity)
	if err != nil {
		return ontology.RelationshipMetadata{}, false
	}
	lower := strings.ToLower(token)
	for _, rel := range rels {
		if strings.ToLower(rel.RelationAttr) == lower {
			return rel, true
		}
	}
	return ontology.RelationshipMetadata{}, false
}

func matchProperty(meta *ontology.EntityMetadata, token string) (ontology.PropertyMetadata, bool) {
	if prop, ok := meta.Property(token); ok {
		return prop, true
	}
	lower := strings.ToLower(token)
	for _, prop := range meta.Properties {
		if strings.ToLower(prop.Name) == lower || strings.ToLower(prop.DisplayName) == lower {
			return prop, true
		}
	}
	return ontology.PropertyMetadata{}, false
}
