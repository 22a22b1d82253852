package ontology

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func guestEntity() EntityMetadata {
	return EntityMetadata{
		Name: "Guest",
		Properties: []PropertyMetadata{
			{Name: "id", Type: TypeInteger, IsPrimaryKey: true},
			{Name: "name", Type: TypeString, DisplayName: "Name"},
			{Name: "phone", Type: TypeString, DisplayName: "Phone", SecurityLevel: SecurityConfidential, PII: true},
		},
	}
}

func TestRegisterEntity_DuplicateName(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.RegisterEntity(guestEntity()))

	err := r.RegisterEntity(guestEntity())
	assert.ErrorIs(t, err, ErrDuplicateName)
}

func TestRegisterEntity_CaseInsensitiveLookupStoresOriginalCase(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.RegisterEntity(guestEntity()))

	e, err := r.GetEntity("guest")
	require.NoError(t, err)
	assert.Equal(t, "Guest", e.Name)

	e2, err := r.GetEntity("GUEST")
	require.NoError(t, err)
	assert.Same(t, e, e2)
}

func TestGetEntity_Unknown(t *testing.T) {
	r := NewRegistry()
	_, err := r.GetEntity("Nope")
	assert.ErrorIs(t, err, ErrUnknownEntity)
}

func TestFreeze_BlocksFurtherRegistration(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.RegisterEntity(guestEntity()))
	r.Freeze()

	err := r.RegisterEntity(EntityMetadata{Name: "Room"})
	assert.ErrorIs(t, err, ErrRegistryFrozen)

	// Reads still work after freezing.
	e, err := r.GetEntity("Guest")
	require.NoError(t, err)
	assert.Equal(t, "Guest", e.Name)
}

func TestRegisterRelationship_ResolvedBySource(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.RegisterEntity(guestEntity()))
	require.NoError(t, r.RegisterEntity(EntityMetadata{Name: "StayRecord"}))

	err := r.RegisterRelationship("Guest", RelationshipMetadata{
		Target:        "StayRecord",
		Cardinality:   OneToMany,
		RelationAttr:  "stays",
		ForeignKeyCol: "guest_id",
	})
	require.NoError(t, err)

	rels, err := r.GetRelationships("guest")
	require.NoError(t, err)
	require.Len(t, rels, 1)
	assert.Equal(t, "StayRecord", rels[0].Target)
	assert.True(t, rels[0].Cardinality.IsCollection())
}

func TestRegisterStateMachine_RejectsUndeclaredState(t *testing.T) {
	r := NewRegistry()
	err := r.RegisterStateMachine(StateMachine{
		Entity:       "Room",
		States:       []string{"vacant_clean", "occupied"},
		InitialState: "vacant_clean",
		Transitions: []StateTransition{
			{From: "vacant_clean", To: "dirty", Trigger: "checkout"},
		},
	})
	assert.ErrorIs(t, err, ErrInvalidStateMachine)
}

func TestRegisterStateMachine_RejectsAmbiguousTrigger(t *testing.T) {
	r := NewRegistry()
	err := r.RegisterStateMachine(StateMachine{
		Entity:       "Room",
		States:       []string{"vacant_clean", "occupied", "dirty"},
		InitialState: "vacant_clean",
		Transitions: []StateTransition{
			{From: "vacant_clean", To: "occupied", Trigger: "checkin"},
			{From: "vacant_clean", To: "dirty", Trigger: "checkin"},
		},
	})
	assert.ErrorIs(t, err, ErrInvalidStateMachine)
}

func TestRegisterStateMachine_AllowsDisambiguatedTrigger(t *testing.T) {
	r := NewRegistry()
	err := r.RegisterStateMachine(StateMachine{
		Entity:       "Room",
		States:       []string{"vacant_clean", "occupied", "dirty"},
		InitialState: "vacant_clean",
		Transitions: []StateTransition{
			{From: "vacant_clean", To: "occupied", Trigger: "checkin", Condition: "guest_present"},
			{From: "vacant_clean", To: "dirty", Trigger: "checkin", Condition: "no_guest"},
		},
	})
	assert.NoError(t, err)
}

func TestActionRegistrationAndRoleCheck(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.RegisterAction("Room", ActionDefinition{
		Name:         "walkin_checkin",
		Category:     CategoryMutation,
		AllowedRoles: map[string]struct{}{"front_desk": {}},
	}))

	a, err := r.GetAction("WALKIN_CHECKIN")
	require.NoError(t, err)
	assert.True(t, a.HasRole("front_desk"))
	assert.False(t, a.HasRole("housekeeping"))

	_, err = r.GetAction("checkin_unknown")
	assert.ErrorIs(t, err, ErrUnknownAction)
}

func TestExportSchema_IsASnapshot(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.RegisterEntity(guestEntity()))

	snap := r.ExportSchema()
	require.Len(t, snap.Entities, 1)

	require.NoError(t, r.RegisterEntity(EntityMetadata{Name: "Room"}))
	assert.Len(t, snap.Entities, 1, "prior snapshot must not observe later registrations")
}
