package debugstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sam-at-git/aipms-sub001/pkg/actions"
)

type recordingDispatcher struct {
	calls  []map[string]any
	result any
	err    error
}

func (d *recordingDispatcher) Dispatch(_ context.Context, _ string, params map[string]any, _ actions.Context) (any, error) {
	d.calls = append(d.calls, params)
	return d.result, d.err
}

func seedReplaySession(t *testing.T, store *Store) string {
	t.Helper()
	ctx := context.Background()
	id, err := store.CreateSession(ctx, "check in room 301", nil)
	require.NoError(t, err)
	require.NoError(t, store.UpdateSessionLLM(ctx, id, "prompt", "response", 40, "claude-3-5-sonnet"))
	_, err = store.LogAttempt(ctx, id, "walkin_checkin", `{"room_id":301,"room_status":"vacant_clean"}`, true, `{"ok":true}`, "")
	require.NoError(t, err)
	require.NoError(t, store.CompleteSession(ctx, id, CompleteSessionInput{
		Result:          map[string]any{"ok": true},
		Status:          StatusCompleted,
		ExecutionTimeMs: 100,
		ActionsExecuted: []string{"walkin_checkin"},
	}))
	return id
}

func TestReplay_DryRunReturnsSkeletonWithoutDispatching(t *testing.T) {
	store := newTestStore(t)
	id := seedReplaySession(t, store)
	d := &recordingDispatcher{result: "should not be used"}

	result, err := store.Replay(context.Background(), id, ReplayOverrides{DryRun: true}, d)
	require.NoError(t, err)
	assert.True(t, result.DryRun)
	assert.Empty(t, d.calls)
	assert.Nil(t, result.Attempts)
}

func TestReplay_ReExecutesRecordedAttemptsWithOverrides(t *testing.T) {
	store := newTestStore(t)
	id := seedReplaySession(t, store)
	d := &recordingDispatcher{result: map[string]any{"ok": true}}

	result, err := store.Replay(context.Background(), id, ReplayOverrides{
		LLMModel: "claude-3-opus",
		ActionParamsOverride: map[string]map[string]any{
			"walkin_checkin": {"room_id": float64(412)},
		},
	}, d)
	require.NoError(t, err)

	require.Len(t, d.calls, 1)
	assert.Equal(t, float64(412), d.calls[0]["room_id"])
	assert.Equal(t, "vacant_clean", d.calls[0]["room_status"])
	assert.True(t, result.Success)
	assert.Equal(t, "claude-3-opus", result.Model)
	require.Len(t, result.Attempts, 1)
	assert.True(t, result.Attempts[0].Success)
}

func TestReplay_FallsBackToOriginalModelWhenNoOverride(t *testing.T) {
	store := newTestStore(t)
	id := seedReplaySession(t, store)
	d := &recordingDispatcher{result: "ok"}

	result, err := store.Replay(context.Background(), id, ReplayOverrides{}, d)
	require.NoError(t, err)
	assert.Equal(t, "claude-3-5-sonnet", result.Model)
}

func TestReplay_DispatchErrorMarksAttemptAndResultFailed(t *testing.T) {
	store := newTestStore(t)
	id := seedReplaySession(t, store)
	d := &recordingDispatcher{err: assertError{"room no longer vacant"}}

	result, err := store.Replay(context.Background(), id, ReplayOverrides{}, d)
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, "room no longer vacant", result.Error)
	require.Len(t, result.Attempts, 1)
	assert.False(t, result.Attempts[0].Success)
	assert.Equal(t, "room no longer vacant", result.Attempts[0].Error)
}

func TestReplay_SaveReplayPersistsRecord(t *testing.T) {
	store := newTestStore(t)
	id := seedReplaySession(t, store)
	d := &recordingDispatcher{result: "ok"}

	_, err := store.Replay(context.Background(), id, ReplayOverrides{SaveReplay: true}, d)
	require.NoError(t, err)

	var count int
	require.NoError(t, store.db.QueryRow(`SELECT COUNT(*) FROM replay_records WHERE original_session_id = ?`, id).Scan(&count))
	assert.Equal(t, 1, count)
}

type assertError struct{ msg string }

func (e assertError) Error() string { return e.msg }
