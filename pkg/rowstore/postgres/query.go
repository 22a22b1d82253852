package postgres

import (
	"context"
	"fmt"
)

// Query executes a pre-built SQL statement (produced by
// entgo.io/ent/dialect/sql's non-codegen builder, Postgres-dialected
// placeholders) and decodes each row into a column-name -> value map,
// satisfying pkg/query.RowStore.
func (s *Store) Query(ctx context.Context, sqlStr string, args []any) ([]map[string]any, error) {
	rows, err := s.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("rowstore: query: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("rowstore: columns: %w", err)
	}

	var out []map[string]any
	for rows.Next() {
		values := make([]any, len(columns))
		pointers := make([]any, len(columns))
		for i := range values {
			pointers[i] = &values[i]
		}
		if err := rows.Scan(pointers...); err != nil {
			return nil, fmt.Errorf("rowstore: scan row: %w", err)
		}

		row := make(map[string]any, len(columns))
		for i, col := range columns {
			row[col] = values[i]
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
