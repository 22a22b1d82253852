package query

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Sam-at-git/aipms-sub001/pkg/ontology"
)

// Resolver is the Semantic Path Resolver + Query Compiler (spec.md §4.B).
// It is stateless and deterministic: given an identical input and registry
// snapshot it produces byte-identical output (spec.md testable property 3).
type Resolver struct {
	registry *ontology.Registry
}

// NewResolver builds a Resolver bound to a frozen ontology registry.
func NewResolver(registry *ontology.Registry) *Resolver {
	return &Resolver{registry: registry}
}

// Compile translates a SemanticQuery into a StructuredQuery.
func (r *Resolver) Compile(q SemanticQuery) (*StructuredQuery, error) {
	if _, err := r.registry.GetEntity(q.RootEntity); err != nil {
		return nil, &UnknownRootEntityError{
			Entity:      q.RootEntity,
			Suggestions: closeEntityMatches(q.RootEntity, r.registry.EntityNames()),
		}
	}
	root, _ := r.registry.GetEntity(q.RootEntity)

	paths := collectPaths(q)

	resolved := make(map[string]*ResolvedPath, len(paths))
	for _, p := range paths {
		rp, err := r.ResolvePath(root.Name, p)
		if err != nil {
			return nil, err
		}
		resolved[p] = rp
	}

	joins := mergeJoins(paths, resolved)

	filters := make([]SemanticFilter, 0, len(q.Filters))
	for _, f := range q.Filters {
		if !IsValidOperator(f.Operator) {
			return nil, fmt.Errorf("%w: %q", ErrUnknownOperator, f.Operator)
		}
		filters = append(filters, f)
	}

	return &StructuredQuery{
		RootEntity: root.Name,
		Fields:     append([]string(nil), q.Fields...),
		Joins:      joins,
		Filters:    filters,
		OrderBy:    append([]OrderByClause(nil), q.OrderBy...),
		Limit:      q.Limit,
		Offset:     q.Offset,
		Distinct:   q.Distinct,
		Aggregate:  q.Aggregate,
	}, nil
}

// collectPaths de-duplicates every dot-path referenced by fields, filters,
// and order_by, preserving first-seen order.
func collectPaths(q SemanticQuery) []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(p string) {
		if _, ok := seen[p]; ok {
			return
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	for _, f := range q.Fields {
		add(f)
	}
	for _, f := range q.Filters {
		add(f.Path)
	}
	for _, o := range q.OrderBy {
		add(o.Path)
	}
	if q.Aggregate != nil {
		if q.Aggregate.Field != "" {
			add(q.Aggregate.Field)
		}
		for _, g := range q.Aggregate.GroupBy {
			add(g)
		}
	}
	return out
}

// ResolvePath walks one dot-path left to right from root, advancing through
// relationships and terminating on a property.
func (r *Resolver) ResolvePath(root, path string) (*ResolvedPath, error) {
	segments := strings.Split(path, ".")
	for _, s := range segments {
		if s == "" {
			return nil, &InvalidPathError{Path: path, Reason: fmt.Errorf("empty segment")}
		}
	}

	visited := map[string]struct{}{root: {}}
	currentEntity := root
	var pathSegments []PathSegment
	var joins []JoinClause
	var pathPrefix []string

	for i, token := range segments {
		isLast := i == len(segments)-1

		if rel, ok := r.registry.GetRelationship(currentEntity, token); ok {
			if !isLast {
				if len(joins) >= MaxHopDepth {
					return nil, fmt.Errorf("%w: path %q exceeds %d hops", ErrMaxHopDepthExceeded, path, MaxHopDepth)
				}
				if _, seen := visited[rel.Target]; seen {
					return nil, fmt.Errorf("%w: path %q revisits entity %q", ErrCycleDetected, path, rel.Target)
				}
			}

			pathPrefix = append(pathPrefix, token)
			joins = append(joins, JoinClause{
				SourceEntity:  currentEntity,
				TargetEntity:  rel.Target,
				RelationAttr:  token,
				ForeignKeyCol: rel.ForeignKeyCol,
				Collection:    rel.Cardinality.IsCollection(),
				JoinType:      JoinInner,
				PathPrefix:    append([]string(nil), pathPrefix...),
			})
			pathSegments = append(pathSegments, PathSegment{
				Token: token, IsRelation: true, SourceEntity: currentEntity, TargetEntity: rel.Target,
			})
			visited[rel.Target] = struct{}{}
			currentEntity = rel.Target

			if isLast {
				// A relationship segment may be the final token only if the
				// caller wants the related object itself (presentation
				// layer renders it via str(object)); there is no further
				// property to resolve.
				return &ResolvedPath{
					Original: path, Segments: pathSegments, Joins: joins,
					FinalEntity: currentEntity, FinalField: "",
				}, nil
			}
			continue
		}

		entityMeta, err := r.registry.GetEntity(currentEntity)
		if err != nil {
			return nil, err
		}
		if prop, ok := entityMeta.Property(token); ok {
			if !isLast {
				return nil, &InvalidPathError{
					Path:   path,
					Reason: fmt.Errorf("%w: %q is a property, not a relationship", ErrPropertyIsNotRelationship, token),
				}
			}
			pathSegments = append(pathSegments, PathSegment{
				Token: token, IsRelation: false, SourceEntity: currentEntity, TargetEntity: currentEntity,
			})
			return &ResolvedPath{
				Original: path, Segments: pathSegments, Joins: joins,
				FinalEntity: currentEntity, FinalField: prop.Name,
			}, nil
		}

		return nil, &PathResolutionError{
			Token:         token,
			CurrentEntity: currentEntity,
			Position:      i,
			Suggestions:   r.suggestFor(currentEntity, token),
		}
	}

	// Unreachable: segments is non-empty (InvalidPath catches the empty case).
	return nil, &InvalidPathError{Path: path, Reason: fmt.Errorf("empty path")}
}

func (r *Resolver) suggestFor(entity, token string) []string {
	var candidates []string
	if rels, err := r.registry.GetRelationships(entity); err == nil {
		for _, rel := range rels {
			candidates = append(candidates, rel.RelationAttr)
		}
	}
	if meta, err := r.registry.GetEntity(entity); err == nil {
		candidates = append(candidates, meta.PropertyNames()...)
	}
	return closeMatches(token, candidates)
}

// mergeJoins merges every path's join list into one, de-duplicated by
// (target-entity, path-prefix) and sorted by ascending depth.
func mergeJoins(paths []string, resolved map[string]*ResolvedPath) []JoinClause {
	seen := make(map[string]struct{})
	var merged []JoinClause
	for _, p := range paths {
		for _, j := range resolved[p].Joins {
			key := j.Key()
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			merged = append(merged, j)
		}
	}
	sort.SliceStable(merged, func(i, j int) bool {
		return len(merged[i].PathPrefix) < len(merged[j].PathPrefix)
	})
	return merged
}
