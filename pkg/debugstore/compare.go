package debugstore

import (
	"context"
	"fmt"
)

// AttemptDiff compares one original attempt against its replayed
// counterpart at the same attempt_number.
type AttemptDiff struct {
	AttemptNumber  int
	SuccessChanged bool
	ParamsChanged  bool
	ErrorChanged   bool
}

// SessionComparison summarizes whether the replay's terminal outcome
// diverged from the original session's.
type SessionComparison struct {
	StatusChanged bool
	ResultChanged bool
}

// PerformanceDiff compares replay timing/token cost against the original.
type PerformanceDiff struct {
	TimeDeltaMs   int
	TimeDeltaPct  float64
	TokenDelta    int
	TokenDeltaPct float64
}

// ReplayDiff is compare_sessions' return value (spec.md §4.F step 7).
type ReplayDiff struct {
	SessionComparison SessionComparison
	AttemptComparison []AttemptDiff
	PerformanceDiff   PerformanceDiff
	Summary           string
}

// CompareSessions diffs originalID's recorded session/attempts against a
// replay result already produced by Replay.
func (s *Store) CompareSessions(ctx context.Context, originalID string, replay *ReplayResult) (*ReplayDiff, error) {
	original, err := s.GetSession(ctx, originalID)
	if err != nil {
		return nil, err
	}
	originalAttempts, err := s.GetAttempts(ctx, originalID)
	if err != nil {
		return nil, err
	}

	diff := &ReplayDiff{
		SessionComparison: SessionComparison{
			StatusChanged: (original.Status == StatusCompleted) != replay.Success,
			ResultChanged: original.FinalResult != marshaledOrRaw(replay.Result),
		},
	}

	byNumber := make(map[int]AttemptLog, len(originalAttempts))
	for _, a := range originalAttempts {
		byNumber[a.AttemptNumber] = a
	}
	for _, replayed := range replay.Attempts {
		orig, ok := byNumber[replayed.AttemptNumber]
		if !ok {
			diff.AttemptComparison = append(diff.AttemptComparison, AttemptDiff{
				AttemptNumber:  replayed.AttemptNumber,
				SuccessChanged: true,
				ParamsChanged:  true,
				ErrorChanged:   true,
			})
			continue
		}
		diff.AttemptComparison = append(diff.AttemptComparison, AttemptDiff{
			AttemptNumber:  replayed.AttemptNumber,
			SuccessChanged: orig.Success != replayed.Success,
			ParamsChanged:  orig.Params != replayed.Params,
			ErrorChanged:   orig.Error != replayed.Error,
		})
	}

	timeDelta := replay.ExecutionTimeMs - original.ExecutionTimeMs
	diff.PerformanceDiff = PerformanceDiff{
		TimeDeltaMs:   timeDelta,
		TimeDeltaPct:  percentDelta(original.ExecutionTimeMs, replay.ExecutionTimeMs),
		TokenDelta:    replay.Tokens - original.LLMTokensUsed,
		TokenDeltaPct: percentDelta(original.LLMTokensUsed, replay.Tokens),
	}

	diff.Summary = summarize(diff)
	return diff, nil
}

func percentDelta(original, replayed int) float64 {
	if original == 0 {
		if replayed == 0 {
			return 0
		}
		return 100
	}
	return float64(replayed-original) / float64(original) * 100
}

func marshaledOrRaw(v any) string {
	s, err := marshalOrEmpty(v)
	if err != nil {
		return ""
	}
	return s
}

func summarize(diff *ReplayDiff) string {
	changedAttempts := 0
	for _, a := range diff.AttemptComparison {
		if a.SuccessChanged || a.ParamsChanged || a.ErrorChanged {
			changedAttempts++
		}
	}
	switch {
	case diff.SessionComparison.StatusChanged:
		return "replay outcome diverged from the original session"
	case changedAttempts > 0:
		return fmt.Sprintf("replay matched the original outcome but %d attempt(s) diverged", changedAttempts)
	default:
		return "replay reproduced the original session exactly"
	}
}
