package query

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/Sam-at-git/aipms-sub001/pkg/ontology"
)

// autoSelectLimit bounds the number of properties chosen when a query
// requests no fields (spec.md §4.C).
const autoSelectLimit = 8

// QueryResult is the presentation-ready shape the Query Executor produces.
type QueryResult struct {
	DisplayType string           `json:"display_type"`
	Columns     []string         `json:"columns"`
	ColumnKeys  []string         `json:"column_keys"`
	Rows        []map[string]any `json:"rows"`
	Summary     string           `json:"summary"`
}

// Executor consumes a StructuredQuery against a registered row-store model
// and shapes the result into a QueryResult (spec.md §4.C).
type Executor struct {
	registry *ontology.Registry
	store    RowStore
}

// NewExecutor binds an Executor to a registry and its backing row-store.
func NewExecutor(registry *ontology.Registry, store RowStore) *Executor {
	return &Executor{registry: registry, store: store}
}

// Execute runs sq and returns a formatted QueryResult. A registered join
// that fails to resolve (e.g. the target's model is unregistered) is
// skipped rather than failing the whole query, per spec.md §4.C. Filters
// and order-by terms on a skipped join are dropped; a requested field that
// reads from a skipped join makes Execute return an InvalidPathError.
func (ex *Executor) Execute(ctx context.Context, sq *StructuredQuery) (*QueryResult, error) {
	plan, err := buildQueryPlan(ex.registry, sq)
	if err != nil {
		return nil, err
	}

	fields := sq.Fields
	if len(fields) == 0 {
		fields, err = ex.autoSelectFields(sq.RootEntity)
		if err != nil {
			return nil, err
		}
	}

	sqlStr, args, fieldAlias, err := buildSelect(sq, plan, fields)
	if err != nil {
		return nil, err
	}

	rawRows, err := ex.store.Query(ctx, sqlStr, args)
	if err != nil {
		return nil, fmt.Errorf("query executor: %w", err)
	}

	rootMeta, err := ex.registry.GetEntity(sq.RootEntity)
	if err != nil {
		return nil, err
	}

	columns := make([]string, len(fields))
	columnKeys := append([]string(nil), fields...)
	fieldTypes := make([]ontology.SemanticType, len(fields))
	for i, f := range fields {
		columns[i] = ex.displayNameFor(rootMeta, plan, f)
		fieldTypes[i] = ex.propertyTypeFor(rootMeta, plan, f)
	}

	rows := make([]map[string]any, 0, len(rawRows))
	for _, raw := range rawRows {
		row := make(map[string]any, len(fields))
		for i, f := range fields {
			alias := fieldAlias[f]
			row[f] = formatValue(raw[alias], fieldTypes[i])
		}
		rows = append(rows, row)
	}

	return &QueryResult{
		DisplayType: "table",
		Columns:     columns,
		ColumnKeys:  columnKeys,
		Rows:        rows,
		Summary:     fmt.Sprintf("共 %d 条记录", len(rows)),
	}, nil
}

// autoSelectFields picks up to autoSelectLimit non-PK, non-FK, scalar
// properties off the root entity in declaration order.
func (ex *Executor) autoSelectFields(rootEntity string) ([]string, error) {
	meta, err := ex.registry.GetEntity(rootEntity)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, p := range meta.Properties {
		if p.IsPrimaryKey || p.IsForeignKey {
			continue
		}
		if !isScalar(p.Type) {
			continue
		}
		out = append(out, p.Name)
		if len(out) >= autoSelectLimit {
			break
		}
	}
	return out, nil
}

func isScalar(t ontology.SemanticType) bool {
	switch t {
	case ontology.TypeString, ontology.TypeInteger, ontology.TypeNumber,
		ontology.TypeBoolean, ontology.TypeDate, ontology.TypeDateTime,
		ontology.TypeEnum, ontology.TypeText:
		return true
	default:
		return false
	}
}

// displayNameFor resolves a dotted field's column header: the final
// segment's PropertyMetadata.DisplayName, falling back to its raw name.
func (ex *Executor) displayNameFor(rootMeta *ontology.EntityMetadata, plan *queryPlan, path string) string {
	idx := strings.LastIndex(path, ".")
	if idx < 0 {
		if prop, ok := rootMeta.Property(path); ok && prop.DisplayName != "" {
			return prop.DisplayName
		}
		return path
	}
	_, binding, prop, ok := plan.aliasAndColumn(path)
	if !ok {
		return path
	}
	// Look up the owning entity's metadata through the binding's table to
	// get the display name; fall back to the raw property token.
	for _, j := range plan.joins {
		if j.binding.Table == binding.Table {
			if meta, err := ex.registry.GetEntity(j.clause.TargetEntity); err == nil {
				if pm, ok := meta.Property(prop); ok && pm.DisplayName != "" {
					return pm.DisplayName
				}
			}
		}
	}
	return prop
}

// propertyTypeFor resolves the declared SemanticType of a dotted field's
// final property, used to pick a date/datetime/enum formatting rule.
func (ex *Executor) propertyTypeFor(rootMeta *ontology.EntityMetadata, plan *queryPlan, path string) ontology.SemanticType {
	idx := strings.LastIndex(path, ".")
	if idx < 0 {
		if prop, ok := rootMeta.Property(path); ok {
			return prop.Type
		}
		return ontology.TypeString
	}
	_, binding, prop, ok := plan.aliasAndColumn(path)
	if !ok {
		return ontology.TypeString
	}
	for _, j := range plan.joins {
		if j.binding.Table == binding.Table {
			if meta, err := ex.registry.GetEntity(j.clause.TargetEntity); err == nil {
				if pm, ok := meta.Property(prop); ok {
					return pm.Type
				}
			}
		}
	}
	return ontology.TypeString
}

// formatValue renders a raw decoded column value per spec.md §4.C: dates as
// YYYY-MM-DD, datetimes as YYYY-MM-DD HH:MM, nil as "".
func formatValue(v any, fieldType ontology.SemanticType) string {
	if v == nil {
		return ""
	}
	switch t := v.(type) {
	case time.Time:
		if fieldType == ontology.TypeDateTime {
			return t.Format("2006-01-02 15:04")
		}
		return t.Format("2006-01-02")
	case string:
		return t
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprintf("%v", t)
	}
}

// sortedKeys returns the keys of m in ascending order.
func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
