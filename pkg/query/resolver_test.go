package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sam-at-git/aipms-sub001/pkg/ontology"
)

// buildHotelRegistry wires a small illustrative slice of the hotel graph:
// Guest -(stays)-> StayRecord -(room)-> Room -(room_type)-> RoomType.
func buildHotelRegistry(t *testing.T) *ontology.Registry {
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
			{Name: "room_number", Type: ontology.TypeString, DisplayName: "Room Number"},
			{Name: "status", Type: ontology.TypeEnum, EnumValues: []string{"active", "closed"}},
		},
	}))
	require.NoError(t, r.RegisterEntity(ontology.EntityMetadata{
		Name: "Room",
		Properties: []ontology.PropertyMetadata{
			{Name: "id", Type: ontology.TypeInteger, IsPrimaryKey: true},
			{Name: "number", Type: ontology.TypeString, DisplayName: "Number"},
		},
	}))
	require.NoError(t, r.RegisterEntity(ontology.EntityMetadata{
		Name: "RoomType",
		Properties: []ontology.PropertyMetadata{
			{Name: "id", Type: ontology.TypeInteger, IsPrimaryKey: true},
			{Name: "name", Type: ontology.TypeString, DisplayName: "Room Type"},
		},
	}))

	require.NoError(t, r.RegisterRelationship("Guest", ontology.RelationshipMetadata{
		Target: "StayRecord", Cardinality: ontology.OneToMany, RelationAttr: "stays", ForeignKeyCol: "guest_id",
	}))
	require.NoError(t, r.RegisterRelationship("StayRecord", ontology.RelationshipMetadata{
		Target: "Room", Cardinality: ontology.ManyToOne, RelationAttr: "room", ForeignKeyCol: "room_id",
	}))
	require.NoError(t, r.RegisterRelationship("Room", ontology.RelationshipMetadata{
		Target: "RoomType", Cardinality: ontology.ManyToOne, RelationAttr: "room_type", ForeignKeyCol: "room_type_id",
	}))

	r.Freeze()
	return r
}

func TestCompile_SingleHopFieldsAndFilter(t *testing.T) {
	r := buildHotelRegistry(t)
	resolver := NewResolver(r)

	q := SemanticQuery{
		RootEntity: "Guest",
		Fields:     []string{"name", "stays.room_number"},
		Filters: []SemanticFilter{
			{Path: "stays.status", Operator: OpEq, Value: "ACTIVE"},
		},
	}

	sq, err := resolver.Compile(q)
	require.NoError(t, err)
	assert.Equal(t, []string{"name", "stays.room_number"}, sq.Fields)
	require.Len(t, sq.Joins, 1)
	assert.Equal(t, "StayRecord", sq.Joins[0].TargetEntity)
}

func TestCompile_MultiHopJoinOrderAndUniqueness(t *testing.T) {
	r := buildHotelRegistry(t)
	resolver := NewResolver(r)

	q := SemanticQuery{
		RootEntity: "Guest",
		Fields:     []string{"stays.room.room_type.name"},
	}

	sq, err := resolver.Compile(q)
	require.NoError(t, err)
	require.Len(t, sq.Joins, 3)
	assert.Equal(t, "StayRecord", sq.Joins[0].TargetEntity)
	assert.Equal(t, "Room", sq.Joins[1].TargetEntity)
	assert.Equal(t, "RoomType", sq.Joins[2].TargetEntity)
}

func TestCompile_PathResolutionErrorReportsTokenAndPosition(t *testing.T) {
	r := buildHotelRegistry(t)
	resolver := NewResolver(r)

	q := SemanticQuery{RootEntity: "Guest", Fields: []string{"invalid.field"}}

	_, err := resolver.Compile(q)
	require.Error(t, err)

	var pErr *PathResolutionError
	require.ErrorAs(t, err, &pErr)
	assert.Equal(t, "invalid", pErr.Token)
	assert.Equal(t, "Guest", pErr.CurrentEntity)
	assert.Equal(t, 0, pErr.Position)
	assert.NotNil(t, pErr.Suggestions) // may be empty, must not be nil-typed panic source
}

func TestCompile_UnknownRootEntitySuggestsClosest(t *testing.T) {
	r := buildHotelRegistry(t)
	resolver := NewResolver(r)

	_, err := resolver.Compile(SemanticQuery{RootEntity: "Gust"})
	require.Error(t, err)

	var uErr *UnknownRootEntityError
	require.ErrorAs(t, err, &uErr)
	assert.Contains(t, uErr.Suggestions, "Guest")
}

func TestCompile_PropertyIsNotRelationship(t *testing.T) {
	r := buildHotelRegistry(t)
	resolver := NewResolver(r)

	_, err := resolver.Compile(SemanticQuery{RootEntity: "Guest", Fields: []string{"name.extra"}})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPropertyIsNotRelationship)
}

func TestCompile_UnknownOperatorRejected(t *testing.T) {
	r := buildHotelRegistry(t)
	resolver := NewResolver(r)

	_, err := resolver.Compile(SemanticQuery{
		RootEntity: "Guest",
		Fields:     []string{"name"},
		Filters:    []SemanticFilter{{Path: "name", Operator: "contains_fuzzy", Value: "x"}},
	})
	assert.ErrorIs(t, err, ErrUnknownOperator)
}

func TestCompile_FieldOrderPreserved(t *testing.T) {
	r := buildHotelRegistry(t)
	resolver := NewResolver(r)

	fields := []string{"stays.room_number", "name", "stays.status"}
	sq, err := resolver.Compile(SemanticQuery{RootEntity: "Guest", Fields: fields})
	require.NoError(t, err)
	assert.Equal(t, fields, sq.Fields)
}

func TestCompile_IsDeterministic(t *testing.T) {
	r := buildHotelRegistry(t)
	resolver := NewResolver(r)
	q := SemanticQuery{RootEntity: "Guest", Fields: []string{"stays.room.room_type.name", "name"}}

	a, err := resolver.Compile(q)
	require.NoError(t, err)
	b, err := resolver.Compile(q)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestCompile_CycleDetected(t *testing.T) {
	r := ontology.NewRegistry()
	require.NoError(t, r.RegisterEntity(ontology.EntityMetadata{Name: "A"}))
	require.NoError(t, r.RegisterEntity(ontology.EntityMetadata{Name: "B"}))
	require.NoError(t, r.RegisterRelationship("A", ontology.RelationshipMetadata{Target: "B", RelationAttr: "to_b", Cardinality: ontology.ManyToOne}))
	require.NoError(t, r.RegisterRelationship("B", ontology.RelationshipMetadata{Target: "A", RelationAttr: "to_a", Cardinality: ontology.ManyToOne}))
	r.Freeze()

	resolver := NewResolver(r)
	_, err := resolver.Compile(SemanticQuery{RootEntity: "A", Fields: []string{"to_b.to_a.to_b.id"}})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCycleDetected)
}
