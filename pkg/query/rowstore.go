package query

import "context"

// TableBinding is the concrete row-store model handle a domain adapter
// registers via ontology.Registry.RegisterModel for each entity. The Query
// Executor type-asserts the registry's GetModel result to this shape;
// adapters that back a different relational store may register their own
// handle type as long as they also provide a RowStore that understands it.
type TableBinding struct {
	Table      string
	PrimaryKey string
	Columns    map[string]string // property name -> column name
}

// Column resolves a property name to its column, defaulting to the
// property name itself when no explicit mapping is registered.
func (b TableBinding) Column(property string) string {
	if c, ok := b.Columns[property]; ok {
		return c
	}
	return property
}

// RowStore is the minimal capability the Query Executor needs from a
// relational backend: execute a built SQL statement and decode rows as
// column-name -> value maps. The SQL is built in this package with
// entgo.io/ent's non-generated dialect/sql query builder;
// pkg/rowstore/postgres implements RowStore by executing it on a pgx-backed
// database/sql connection pool.
type RowStore interface {
	Query(ctx context.Context, sqlStr string, args []any) ([]map[string]any, error)
}
