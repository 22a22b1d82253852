package reflexion

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sam-at-git/aipms-sub001/pkg/actions"
	"github.com/Sam-at-git/aipms-sub001/pkg/execerr"
	"github.com/Sam-at-git/aipms-sub001/pkg/ontology"
	"github.com/Sam-at-git/aipms-sub001/pkg/paramschema"
)

func roomStatusRegistry(t *testing.T) *ontology.Registry {
	t.Helper()
	ont := ontology.NewRegistry()
	require.NoError(t, ont.RegisterAction("Room", ontology.ActionDefinition{
		Name: "set_room_status",
		Parameters: paramschema.Schema{
			{Name: "room_status", Kind: paramschema.KindEnum, Constraints: paramschema.Constraints{EnumValues: []string{"vacant_clean", "vacant_dirty"}}},
		},
	}))
	return ont
}

func TestAutoCorrect_NormalizesEnumWhitespaceAndCase(t *testing.T) {
	ont := roomStatusRegistry(t)
	loop := NewLoop(&spyDispatcher{}, ont)

	corrected := loop.autoCorrect("set_room_status", map[string]any{"room_status": "Vacant Clean"})
	require.NotNil(t, corrected)
	assert.Equal(t, "vacant_clean", corrected["room_status"])
}

func TestAutoCorrect_ReturnsNilForUnknownAction(t *testing.T) {
	ont := roomStatusRegistry(t)
	loop := NewLoop(&spyDispatcher{}, ont)

	assert.Nil(t, loop.autoCorrect("does_not_exist", map[string]any{"room_status": "dirty"}))
}

func TestAutoCorrect_DoesNotMutateInputMap(t *testing.T) {
	ont := roomStatusRegistry(t)
	loop := NewLoop(&spyDispatcher{}, ont)

	original := map[string]any{"room_status": "Vacant Clean"}
	loop.autoCorrect("set_room_status", original)
	assert.Equal(t, "Vacant Clean", original["room_status"], "autoCorrect must not mutate the caller's map")
}

func TestStateHint_NilWhenNotStateError(t *testing.T) {
	assert.Nil(t, stateHint(map[string]any{}, execerr.New(execerr.KindValue, "bad value")))
}

func TestStateHint_NilWhenStateContextEmpty(t *testing.T) {
	e := execerr.StateError("stuck", execerr.StateContext{})
	assert.Nil(t, stateHint(map[string]any{}, e))
}

func TestStateHint_AugmentsParams(t *testing.T) {
	e := execerr.StateError("not vacant", execerr.StateContext{
		CurrentState:      "occupied",
		ValidAlternatives: []string{"vacant_clean"},
	})
	augmented := stateHint(map[string]any{"room_id": 301}, e)
	require.NotNil(t, augmented)
	assert.Equal(t, 301, augmented["room_id"])
	assert.Equal(t, "occupied", augmented["_entity_current_state"])
	assert.Equal(t, []string{"vacant_clean"}, augmented["_valid_state_alternatives"])
}

func TestCorrect_SkipsLLMWhenDisabled(t *testing.T) {
	ont := roomStatusRegistry(t)
	loop := NewLoop(&spyDispatcher{}, ont) // default llm.NullLLM{}

	corrected := loop.correct("set_room_status", map[string]any{}, execerr.New(execerr.KindBusinessError, "needs review"), actions.Context{}, context.Background())
	assert.Nil(t, corrected)
}
