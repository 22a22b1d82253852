package query

import (
	"context"
	"fmt"
	"strconv"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"

	"github.com/Sam-at-git/aipms-sub001/pkg/ontology"
)

// ExecuteAggregate runs sq's Aggregate spec and returns a grouped
// QueryResult. Per spec.md §9 (open question, resolved per the documented
// source behavior): any failure building or running the aggregate query
// degrades to an empty, text-typed result carrying the error message,
// rather than propagating the error to the caller.
func (ex *Executor) ExecuteAggregate(ctx context.Context, sq *StructuredQuery) *QueryResult {
	result, err := ex.executeAggregate(ctx, sq)
	if err != nil {
		return &QueryResult{
			DisplayType: "text",
			Columns:     nil,
			ColumnKeys:  nil,
			Rows:        nil,
			Summary:     fmt.Sprintf("aggregate query failed: %v", err),
		}
	}
	return result
}

func (ex *Executor) executeAggregate(ctx context.Context, sq *StructuredQuery) (*QueryResult, error) {
	agg := sq.Aggregate
	if agg == nil {
		return nil, fmt.Errorf("%w: no aggregate spec", ErrInvalidPath)
	}

	plan, err := buildQueryPlan(ex.registry, sq)
	if err != nil {
		return nil, err
	}

	groupCols := make([]string, 0, len(agg.GroupBy))
	groupAliases := make(map[string]string, len(agg.GroupBy))
	for i, g := range agg.GroupBy {
		alias, binding, prop, ok := plan.aliasAndColumn(g)
		if !ok {
			return nil, fmt.Errorf("%w: group-by field %q references a skipped join", ErrInvalidPath, g)
		}
		col := fmt.Sprintf("%s.%s", alias, binding.Column(prop))
		groupCols = append(groupCols, col)
		groupAliases[g] = "g" + strconv.Itoa(i)
	}

	var aggExpr string
	if agg.Function == AggCount && agg.Field == "" {
		aggExpr = "COUNT(*)"
	} else {
		alias, binding, prop, ok := plan.aliasAndColumn(agg.Field)
		if !ok {
			return nil, fmt.Errorf("%w: aggregate field %q references a skipped join", ErrInvalidPath, agg.Field)
		}
		col := fmt.Sprintf("%s.%s", alias, binding.Column(prop))
		aggExpr = fmt.Sprintf("%s(%s)", sqlAggFunc(agg.Function), col)
	}
	aggAlias := agg.Alias
	if aggAlias == "" {
		aggAlias = string(agg.Function)
	}

	columns := make([]string, 0, len(groupCols)+1)
	for i, g := range agg.GroupBy {
		columns = append(columns, fmt.Sprintf("%s AS %s", groupCols[i], groupAliases[g]))
	}
	columns = append(columns, fmt.Sprintf("%s AS %s", aggExpr, aggAlias))

	root := entsql.Table(plan.rootBinding.Table).As(plan.rootAlias)
	sel := entsql.Dialect(dialect.Postgres).Select(columns...).From(root)
	for _, j := range plan.joins {
		target := entsql.Table(j.binding.Table).As(j.targetAlias)
		onSource := fmt.Sprintf("%s.%s", j.sourceAlias, j.clause.ForeignKeyCol)
		onTarget := fmt.Sprintf("%s.%s", j.targetAlias, j.binding.PrimaryKey)
		if j.clause.Collection {
			onSource = fmt.Sprintf("%s.%s", j.sourceAlias, j.binding.PrimaryKey)
			onTarget = fmt.Sprintf("%s.%s", j.targetAlias, j.clause.ForeignKeyCol)
		}
		sel = sel.Join(target).On(onSource, onTarget)
	}
	if len(groupCols) > 0 {
		sel = sel.GroupBy(groupCols...)
	}

	sqlStr, args := sel.Query()
	rawRows, err := ex.store.Query(ctx, sqlStr, args)
	if err != nil {
		return nil, fmt.Errorf("aggregate query executor: %w", err)
	}

	columnKeys := append([]string(nil), agg.GroupBy...)
	columnKeys = append(columnKeys, aggAlias)
	displayCols := append([]string(nil), columnKeys...)

	rows := make([]map[string]any, 0, len(rawRows))
	for _, raw := range rawRows {
		row := make(map[string]any, len(columnKeys))
		for _, g := range agg.GroupBy {
			row[g] = formatValue(raw[groupAliases[g]], ontology.TypeString)
		}
		row[aggAlias] = raw[aggAlias]
		rows = append(rows, row)
	}

	return &QueryResult{
		DisplayType: "table",
		Columns:     displayCols,
		ColumnKeys:  columnKeys,
		Rows:        rows,
		Summary:     fmt.Sprintf("共 %d 条记录", len(rows)),
	}, nil
}

func sqlAggFunc(f AggregateFunc) string {
	switch f {
	case AggCount:
		return "COUNT"
	case AggSum:
		return "SUM"
	case AggAvg:
		return "AVG"
	case AggMax:
		return "MAX"
	case AggMin:
		return "MIN"
	default:
		return "COUNT"
	}
}
