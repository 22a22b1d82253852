package query

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sam-at-git/aipms-sub001/pkg/ontology"
)

// fakeRowStore is an in-memory stand-in for pkg/rowstore/postgres.Store: it
// ignores the actual SQL text (generation is exercised, not re-verified
// here) and serves canned rows keyed by the select-list aliases the
// executor assigned, so tests stay independent of exact SQL formatting.
type fakeRowStore struct {
	rows      []map[string]any
	lastQuery string
	lastArgs  []any
	calls     int
}

func (f *fakeRowStore) Query(_ context.Context, sqlStr string, args []any) ([]map[string]any, error) {
	f.calls++
	f.lastQuery = sqlStr
	f.lastArgs = args
	return f.rows, nil
}

func registryWithModels(t *testing.T) (*ontology.Registry, *fakeRowStore) {
	t.Helper()
	r := ontology.NewRegistry()

	require.NoError(t, r.RegisterEntity(ontology.EntityMetadata{
		Name: "Guest",
		Properties: []ontology.PropertyMetadata{
			{Name: "id", Type: ontology.TypeInteger, IsPrimaryKey: true},
			{Name: "name", Type: ontology.TypeString, DisplayName: "Name"},
		},
	}))
	require.NoError(t, r.RegisterEntity(ontology.EntityMetadata{
		Name: "StayRecord",
		Properties: []ontology.PropertyMetadata{
			{Name: "id", Type: ontology.TypeInteger, IsPrimaryKey: true},
			{Name: "guest_id", Type: ontology.TypeInteger, IsForeignKey: true},
			{Name: "room_number", Type: ontology.TypeString, DisplayName: "Room Number"},
			{Name: "status", Type: ontology.TypeEnum, DisplayName: "Status"},
		},
	}))
	require.NoError(t, r.RegisterRelationship("Guest", ontology.RelationshipMetadata{
		Target: "StayRecord", Cardinality: ontology.OneToMany, RelationAttr: "stays", ForeignKeyCol: "guest_id",
	}))

	require.NoError(t, r.RegisterModel("Guest", TableBinding{
		Table: "guests", PrimaryKey: "id", Columns: map[string]string{"id": "id", "name": "name"},
	}))
	require.NoError(t, r.RegisterModel("StayRecord", TableBinding{
		Table: "stay_records", PrimaryKey: "id",
		Columns: map[string]string{"id": "id", "guest_id": "guest_id", "room_number": "room_number", "status": "status"},
	}))

	r.Freeze()

	store := &fakeRowStore{
		rows: []map[string]any{
			{"f0": "张三", "f1": "201"},
		},
	}
	return r, store
}

func TestExecute_SingleHopQueryShapesResult(t *testing.T) {
	r, store := registryWithModels(t)
	resolver := NewResolver(r)
	executor := NewExecutor(r, store)

	sq, err := resolver.Compile(SemanticQuery{
		RootEntity: "Guest",
		Fields:     []string{"name", "stays.room_number"},
		Filters:    []SemanticFilter{{Path: "stays.status", Operator: OpEq, Value: "active"}},
	})
	require.NoError(t, err)

	result, err := executor.Execute(context.Background(), sq)
	require.NoError(t, err)

	assert.Equal(t, "table", result.DisplayType)
	assert.Equal(t, []string{"name", "stays.room_number"}, result.ColumnKeys)
	require.Len(t, result.Rows, 1)
	assert.Equal(t, "张三", result.Rows[0]["name"])
	assert.Equal(t, "201", result.Rows[0]["stays.room_number"])
	assert.Equal(t, "共 1 条记录", result.Summary)
	assert.Equal(t, 1, store.calls)
}

func TestExecute_NilBecomesEmptyString(t *testing.T) {
	r, store := registryWithModels(t)
	store.rows = []map[string]any{{"f0": nil}}
	resolver := NewResolver(r)
	executor := NewExecutor(r, store)

	sq, err := resolver.Compile(SemanticQuery{RootEntity: "Guest", Fields: []string{"name"}})
	require.NoError(t, err)

	result, err := executor.Execute(context.Background(), sq)
	require.NoError(t, err)
	assert.Equal(t, "", result.Rows[0]["name"])
}

func TestExecute_EmptyFieldsAutoSelectsUpToEight(t *testing.T) {
	r, store := registryWithModels(t)
	store.rows = nil
	resolver := NewResolver(r)
	executor := NewExecutor(r, store)

	sq, err := resolver.Compile(SemanticQuery{RootEntity: "Guest"})
	require.NoError(t, err)

	result, err := executor.Execute(context.Background(), sq)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(result.ColumnKeys), 8)
	assert.NotEmpty(t, result.ColumnKeys)
}

func TestExecuteAggregate_DegradesToTextOnFailure(t *testing.T) {
	r, store := registryWithModels(t)
	executor := NewExecutor(r, store)

	sq := &StructuredQuery{
		RootEntity: "Guest",
		Aggregate:  &AggregateSpec{Function: AggCount, GroupBy: []string{"does.not.exist"}},
	}

	result := executor.ExecuteAggregate(context.Background(), sq)
	assert.Equal(t, "text", result.DisplayType)
	assert.Empty(t, result.Rows)
	assert.Contains(t, result.Summary, "aggregate query failed")
}

func TestExecuteAggregate_CountByGroup(t *testing.T) {
	r, store := registryWithModels(t)
	store.rows = []map[string]any{
		{"g0": "active", "cnt": int64(3)},
		{"g0": "closed", "cnt": int64(1)},
	}
	executor := NewExecutor(r, store)

	sq := &StructuredQuery{
		RootEntity: "Guest",
		Joins: []JoinClause{
			{SourceEntity: "Guest", TargetEntity: "StayRecord", RelationAttr: "stays", ForeignKeyCol: "guest_id", Collection: true, JoinType: JoinInner, PathPrefix: []string{"stays"}},
		},
		Aggregate: &AggregateSpec{Function: AggCount, Alias: "cnt", GroupBy: []string{"stays.status"}},
	}

	result := executor.ExecuteAggregate(context.Background(), sq)
	require.Equal(t, "table", result.DisplayType)
	require.Len(t, result.Rows, 2)
	assert.Equal(t, "active", result.Rows[0]["stays.status"])
	assert.EqualValues(t, 3, result.Rows[0]["cnt"])
}
