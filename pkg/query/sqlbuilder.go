package query

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"

	"github.com/Sam-at-git/aipms-sub001/pkg/ontology"
)

// planJoin pairs a resolved JoinClause with the SQL alias assigned to its
// target table and the alias of the table it joins from.
type planJoin struct {
	clause      JoinClause
	sourceAlias string
	targetAlias string
	binding     TableBinding
}

// queryPlan is everything needed to both build the SQL and decode its rows
// back into dotted-path keys.
type queryPlan struct {
	rootAlias    string
	rootBinding  TableBinding
	joins        []planJoin
	pathToAlias  map[string]string // path-prefix joined by "." -> table alias ("" = root)
	fieldToCol   map[string]string // dotted field path -> select-list column alias
}

func buildQueryPlan(registry *ontology.Registry, sq *StructuredQuery) (*queryPlan, error) {
	rootModel, err := registry.GetModel(sq.RootEntity)
	if err != nil {
		return nil, fmt.Errorf("query executor: %w", err)
	}
	rootBinding, ok := rootModel.(TableBinding)
	if !ok {
		return nil, fmt.Errorf("query executor: model for %q is not a TableBinding", sq.RootEntity)
	}

	plan := &queryPlan{
		rootAlias:   "t0",
		rootBinding: rootBinding,
		pathToAlias: map[string]string{"": "t0"},
		fieldToCol:  map[string]string{},
	}

	for i, j := range sq.Joins {
		targetModel, err := registry.GetModel(j.TargetEntity)
		if err != nil {
			// Degrade gracefully: skip a join whose model is unregistered,
			// per spec.md §4.C ("errors resolving a join are logged and the
			// join is skipped but the rest of the query proceeds").
			slog.Warn("query executor: skipping join", "target", j.TargetEntity, "error", err)
			continue
		}
		binding, ok := targetModel.(TableBinding)
		if !ok {
			slog.Warn("query executor: skipping join, model is not a TableBinding", "target", j.TargetEntity)
			continue
		}
		sourcePrefix := strings.Join(j.PathPrefix[:len(j.PathPrefix)-1], ".")
		sourceAlias, ok := plan.pathToAlias[sourcePrefix]
		if !ok {
			// The join this one hangs off was skipped, so skip it too.
			slog.Warn("query executor: skipping join below a skipped join", "target", j.TargetEntity)
			continue
		}
		targetAlias := fmt.Sprintf("t%d", i+1)
		plan.pathToAlias[strings.Join(j.PathPrefix, ".")] = targetAlias
		plan.joins = append(plan.joins, planJoin{
			clause: j, sourceAlias: sourceAlias, targetAlias: targetAlias, binding: binding,
		})
	}

	return plan, nil
}

// aliasAndColumn splits "a.b.c" into the join path prefix "a.b" and the
// final property "c" (or "" and the whole string for a root-level field),
// then resolves the table alias and binding for that prefix.
func (p *queryPlan) aliasAndColumn(path string) (alias string, binding TableBinding, property string, ok bool) {
	idx := strings.LastIndex(path, ".")
	if idx < 0 {
		return p.rootAlias, p.rootBinding, path, true
	}
	prefix, prop := path[:idx], path[idx+1:]
	a, exists := p.pathToAlias[prefix]
	if !exists {
		return "", TableBinding{}, "", false
	}
	if a == p.rootAlias {
		return a, p.rootBinding, prop, true
	}
	for _, j := range p.joins {
		if j.targetAlias == a {
			return a, j.binding, prop, true
		}
	}
	return "", TableBinding{}, "", false
}

// buildSelect translates a StructuredQuery plus its resolved plan into a SQL
// statement via entgo.io/ent's non-generated dialect/sql builder, returning
// the statement, its bind args, and the select-list alias assigned to each
// requested field (used to decode result rows back to dotted paths).
func buildSelect(sq *StructuredQuery, plan *queryPlan, fields []string) (string, []any, map[string]string, error) {
	fieldAlias := make(map[string]string, len(fields))
	columns := make([]string, 0, len(fields))
	for i, f := range fields {
		alias, binding, prop, ok := plan.aliasAndColumn(f)
		if !ok {
			return "", nil, nil, &InvalidPathError{Path: f, Reason: fmt.Errorf("field references a join skipped during planning")}
		}
		colAlias := "f" + strconv.Itoa(i)
		fieldAlias[f] = colAlias
		columns = append(columns, fmt.Sprintf("%s.%s AS %s", alias, binding.Column(prop), colAlias))
	}

	root := entsql.Table(plan.rootBinding.Table).As(plan.rootAlias)
	sel := entsql.Dialect(dialect.Postgres).Select(columns...).From(root)

	for _, j := range plan.joins {
		target := entsql.Table(j.binding.Table).As(j.targetAlias)
		onSource := fmt.Sprintf("%s.%s", j.sourceAlias, j.clause.ForeignKeyCol)
		onTarget := fmt.Sprintf("%s.%s", j.targetAlias, j.binding.PrimaryKey)
		if j.clause.Collection {
			// One-to-many: the FK lives on the target row.
			onSource = fmt.Sprintf("%s.%s", j.sourceAlias, j.binding.PrimaryKey)
			onTarget = fmt.Sprintf("%s.%s", j.targetAlias, j.clause.ForeignKeyCol)
		}
		if j.clause.JoinType == JoinLeft {
			sel = sel.LeftJoin(target).On(onSource, onTarget)
		} else {
			sel = sel.Join(target).On(onSource, onTarget)
		}
	}

	preds := make([]*entsql.Predicate, 0, len(sq.Filters))
	for _, f := range sq.Filters {
		alias, binding, prop, ok := plan.aliasAndColumn(f.Path)
		if !ok {
			continue // join for this filter was skipped; degrade rather than fail the whole query
		}
		col := fmt.Sprintf("%s.%s", alias, binding.Column(prop))
		p, err := buildPredicate(col, f)
		if err != nil {
			return "", nil, nil, err
		}
		preds = append(preds, p)
	}
	if len(preds) == 1 {
		sel = sel.Where(preds[0])
	} else if len(preds) > 1 {
		sel = sel.Where(entsql.And(preds...))
	}

	if sq.Distinct {
		sel = sel.Distinct()
	}
	for _, o := range sq.OrderBy {
		alias, binding, prop, ok := plan.aliasAndColumn(o.Path)
		if !ok {
			continue
		}
		col := fmt.Sprintf("%s.%s", alias, binding.Column(prop))
		if o.Direction == SortDesc {
			sel = sel.OrderBy(entsql.Desc(col))
		} else {
			sel = sel.OrderBy(entsql.Asc(col))
		}
	}
	if sq.Limit > 0 {
		sel = sel.Limit(sq.Limit)
	}
	if sq.Offset > 0 {
		sel = sel.Offset(sq.Offset)
	}

	query, args := sel.Query()
	return query, args, fieldAlias, nil
}

func buildPredicate(col string, f SemanticFilter) (*entsql.Predicate, error) {
	switch f.Operator {
	case OpEq:
		return entsql.EQ(col, f.Value), nil
	case OpNe:
		return entsql.NEQ(col, f.Value), nil
	case OpGt:
		return entsql.GT(col, f.Value), nil
	case OpGte:
		return entsql.GTE(col, f.Value), nil
	case OpLt:
		return entsql.LT(col, f.Value), nil
	case OpLte:
		return entsql.LTE(col, f.Value), nil
	case OpIn:
		vals, err := toArgSlice(f.Value)
		if err != nil {
			return nil, err
		}
		return entsql.In(col, vals...), nil
	case OpNotIn:
		vals, err := toArgSlice(f.Value)
		if err != nil {
			return nil, err
		}
		return entsql.NotIn(col, vals...), nil
	case OpLike:
		return entsql.Like(col, fmt.Sprintf("%v", f.Value)), nil
	case OpNotLike:
		return entsql.Not(entsql.Like(col, fmt.Sprintf("%v", f.Value))), nil
	case OpBetween:
		vals, err := toArgSlice(f.Value)
		if err != nil || len(vals) != 2 {
			return nil, fmt.Errorf("%w: between requires exactly two values", ErrInvalidPath)
		}
		return entsql.And(entsql.GTE(col, vals[0]), entsql.LTE(col, vals[1])), nil
	case OpIsNull:
		return entsql.IsNull(col), nil
	case OpIsNotNull:
		return entsql.NotNull(col), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownOperator, f.Operator)
	}
}

func toArgSlice(v any) ([]any, error) {
	vals, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: expected a list value", ErrInvalidPath)
	}
	return vals, nil
}
