package debugstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompareSessions_ExactReplayProducesNoAttemptDiffs(t *testing.T) {
	store := newTestStore(t)
	id := seedReplaySession(t, store)

	d := &recordingDispatcher{result: map[string]any{"ok": true}}
	replay, err := store.Replay(context.Background(), id, ReplayOverrides{}, d)
	require.NoError(t, err)

	diff, err := store.CompareSessions(context.Background(), id, replay)
	require.NoError(t, err)
	assert.False(t, diff.SessionComparison.StatusChanged)
	require.Len(t, diff.AttemptComparison, 1)
	assert.False(t, diff.AttemptComparison[0].SuccessChanged)
	assert.Equal(t, "replay reproduced the original session exactly", diff.Summary)
}

func TestCompareSessions_DivergedOutcomeFlagsStatusChanged(t *testing.T) {
	store := newTestStore(t)
	id := seedReplaySession(t, store)

	d := &recordingDispatcher{err: assertError{"room no longer vacant"}}
	replay, err := store.Replay(context.Background(), id, ReplayOverrides{}, d)
	require.NoError(t, err)

	diff, err := store.CompareSessions(context.Background(), id, replay)
	require.NoError(t, err)
	assert.True(t, diff.SessionComparison.StatusChanged)
	require.Len(t, diff.AttemptComparison, 1)
	assert.True(t, diff.AttemptComparison[0].SuccessChanged)
	assert.True(t, diff.AttemptComparison[0].ErrorChanged)
	assert.Equal(t, "replay outcome diverged from the original session", diff.Summary)
}

func TestCompareSessions_ChangedParamsOnlyFlagsAttemptDivergedSummary(t *testing.T) {
	store := newTestStore(t)
	id := seedReplaySession(t, store)

	d := &recordingDispatcher{result: map[string]any{"ok": true}}
	replay, err := store.Replay(context.Background(), id, ReplayOverrides{
		ActionParamsOverride: map[string]map[string]any{"walkin_checkin": {"room_id": float64(999)}},
	}, d)
	require.NoError(t, err)

	diff, err := store.CompareSessions(context.Background(), id, replay)
	require.NoError(t, err)
	assert.False(t, diff.SessionComparison.StatusChanged)
	require.Len(t, diff.AttemptComparison, 1)
	assert.True(t, diff.AttemptComparison[0].ParamsChanged)
	assert.Contains(t, diff.Summary, "1 attempt(s) diverged")
}

// TestDebugCleanupScenario exercises three sessions, one backdated 40 days,
// asserting cleanup_old_sessions(30) removes exactly that one and
// list_sessions returns the remaining two newest-first.
func TestDebugCleanupScenario(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	oldID, err := store.CreateSession(ctx, "stale session", nil)
	require.NoError(t, err)
	midID, err := store.CreateSession(ctx, "middle session", nil)
	require.NoError(t, err)
	newID, err := store.CreateSession(ctx, "fresh session", nil)
	require.NoError(t, err)

	backdated := time.Now().Add(-40 * 24 * time.Hour)
	_, err = store.db.Exec(`UPDATE debug_sessions SET timestamp = ? WHERE id = ?`, backdated, oldID)
	require.NoError(t, err)

	deleted, err := store.CleanupOldSessions(ctx, 30)
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)

	sessions, err := store.ListSessions(ctx, ListSessionsOptions{})
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, newID, sessions[0].ID)
	assert.Equal(t, midID, sessions[1].ID)

	_, err = store.GetSession(ctx, oldID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}
