package execerr

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTerminal_OnlyPermissionDenied(t *testing.T) {
	assert.True(t, KindPermissionDenied.Terminal())
	for _, k := range []Kind{KindValidation, KindValue, KindNotFound, KindStateError, KindBusinessError, KindUnknown} {
		assert.False(t, k.Terminal(), "%s should not be terminal", k)
	}
}

func TestClassify_PassesThroughExecutionError(t *testing.T) {
	orig := New(KindBusinessError, "already checked in")
	assert.Same(t, orig, Classify(orig))
}

func TestClassify_MapsKnownErrorTypes(t *testing.T) {
	assert.Equal(t, KindValue, Classify(&ValueError{Message: "bad date"}).Kind)
	assert.Equal(t, KindNotFound, Classify(&NotFoundError{Message: "no such room"}).Kind)
	assert.Equal(t, KindBusinessError, Classify(&BusinessRuleError{Message: "room occupied"}).Kind)
	assert.Equal(t, KindPermissionDenied, Classify(&PermissionError{Message: "role denied"}).Kind)
}

func TestClassify_FallsBackToUnknown(t *testing.T) {
	err := Classify(assertErr("boom"))
	assert.Equal(t, KindUnknown, err.Kind)
}

func TestClassify_MessagePatternFallback(t *testing.T) {
	assert.Equal(t, KindNotFound, Classify(assertErr("guest not found")).Kind)
	assert.Equal(t, KindPermissionDenied, Classify(assertErr("caller is not permitted to do this")).Kind)
	assert.Equal(t, KindStateError, Classify(assertErr("room is not in an eligible status for this action")).Kind)
	assert.Equal(t, KindValidation, Classify(assertErr("required field missing: room_id")).Kind)
}

type assertErr string

func (e assertErr) Error() string { return string(e) }

func TestLowercase_MatchesSpecCodes(t *testing.T) {
	assert.Equal(t, "permission_denied", KindPermissionDenied.Lowercase())
	assert.Equal(t, "not_found", KindNotFound.Lowercase())
	assert.Equal(t, "unknown", KindUnknown.Lowercase())
}
