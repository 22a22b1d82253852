package debugstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Sam-at-git/aipms-sub001/pkg/actions"
)

// Dispatcher is the narrow capability the replay engine needs to
// re-execute an attempt. actions.Registry satisfies it directly; a
// reflexion loop's Run is adapted to it through WrapReflexion (spec.md §4.F step 4: "no reflexion wrapper by default; wrap if the
// caller passed a ReflexionLoop").
type Dispatcher interface {
	Dispatch(ctx context.Context, name string, params map[string]any, dctx actions.Context) (any, error)
}

// dispatcherFunc adapts reflexion.Loop.Run (which returns a *reflexion.Result,
// not the handler's raw result) to the Dispatcher shape the replay engine
// consumes, without pkg/debugstore importing pkg/reflexion directly.
type dispatcherFunc func(ctx context.Context, name string, params map[string]any, dctx actions.Context) (any, error)

func (f dispatcherFunc) Dispatch(ctx context.Context, name string, params map[string]any, dctx actions.Context) (any, error) {
	return f(ctx, name, params, dctx)
}

// WrapReflexion adapts a reflexion loop's Run method (or any compatible
// func) into a Dispatcher. Callers pass a closure that unwraps the loop's
// own result type into the any the replay engine records.
func WrapReflexion(run func(ctx context.Context, name string, params map[string]any, dctx actions.Context) (any, error)) Dispatcher {
	return dispatcherFunc(run)
}

// ReplayOverrides are the knobs a caller may supply to replay (spec.md
// §4.F step 2).
type ReplayOverrides struct {
	LLMModel             string
	Temperature          *float64
	MaxTokens            *int
	BaseURL              string
	SchemaOverride       string
	ToolsOverride        string
	ActionParamsOverride map[string]map[string]any // keyed by action name
	DryRun               bool
	SaveReplay           bool
}

// ReplayConfig resolves each replay knob: overrides first, original
// session second.
type ReplayConfig struct {
	Model       string
	Temperature float64
	MaxTokens   int
	BaseURL     string
	Schema      string
	Tools       string
}

func resolveReplayConfig(original DebugSession, overrides ReplayOverrides) ReplayConfig {
	cfg := ReplayConfig{
		Model:  original.LLMModel,
		Schema: original.RetrievedSchema,
		Tools:  original.RetrievedTools,
	}
	if overrides.LLMModel != "" {
		cfg.Model = overrides.LLMModel
	}
	if overrides.Temperature != nil {
		cfg.Temperature = *overrides.Temperature
	}
	if overrides.MaxTokens != nil {
		cfg.MaxTokens = *overrides.MaxTokens
	}
	if overrides.BaseURL != "" {
		cfg.BaseURL = overrides.BaseURL
	}
	if overrides.SchemaOverride != "" {
		cfg.Schema = overrides.SchemaOverride
	}
	if overrides.ToolsOverride != "" {
		cfg.Tools = overrides.ToolsOverride
	}
	return cfg
}

// ReplayResult is the outcome of one Replay call (spec.md §4.F step 5).
type ReplayResult struct {
	Success         bool
	Result          any
	Attempts        []AttemptLog
	ExecutionTimeMs int
	Model           string
	Tokens          int
	Error           string
	Timestamp       time.Time
	DryRun          bool
}

// Replay re-executes sessionID's recorded attempts against dispatcher,
// applying overrides, per spec.md §4.F's replay algorithm.
func (s *Store) Replay(ctx context.Context, sessionID string, overrides ReplayOverrides, dispatcher Dispatcher) (*ReplayResult, error) {
	original, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	originalAttempts, err := s.GetAttempts(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	cfg := resolveReplayConfig(*original, overrides)

	if overrides.DryRun {
		result := &ReplayResult{
			Success:   true,
			Attempts:  nil,
			Model:     cfg.Model,
			Timestamp: nowFunc(),
			DryRun:    true,
		}
		if overrides.SaveReplay {
			if err := s.saveReplayRecord(ctx, sessionID, result); err != nil {
				return nil, err
			}
		}
		return result, nil
	}

	start := nowFunc()
	var replayedAttempts []AttemptLog
	var lastResult any
	var lastErr string
	success := true

	for _, attempt := range originalAttempts {
		params, err := mergeAttemptParams(attempt.Params, overrides.ActionParamsOverride[attempt.ActionName])
		if err != nil {
			return nil, fmt.Errorf("debugstore: merge replay params for attempt %d: %w", attempt.AttemptNumber, err)
		}

		result, dispatchErr := dispatcher.Dispatch(ctx, attempt.ActionName, params, actions.Context{})

		replayed := AttemptLog{
			AttemptID:     uuid.New().String(),
			SessionID:     sessionID,
			AttemptNumber: attempt.AttemptNumber,
			ActionName:    attempt.ActionName,
			Timestamp:     nowFunc(),
		}
		if paramsJSON, err := json.Marshal(params); err == nil {
			replayed.Params = string(paramsJSON)
		}

		if dispatchErr != nil {
			replayed.Success = false
			replayed.Error = dispatchErr.Error()
			success = false
			lastErr = dispatchErr.Error()
		} else {
			replayed.Success = true
			if resultJSON, err := json.Marshal(result); err == nil {
				replayed.Result = string(resultJSON)
			}
			lastResult = result
		}
		replayedAttempts = append(replayedAttempts, replayed)
	}

	replayResult := &ReplayResult{
		Success:         success,
		Result:          lastResult,
		Attempts:        replayedAttempts,
		ExecutionTimeMs: int(nowFunc().Sub(start).Milliseconds()),
		Model:           cfg.Model,
		Error:           lastErr,
		Timestamp:       nowFunc(),
		DryRun:          false,
	}

	if overrides.SaveReplay {
		if err := s.saveReplayRecord(ctx, sessionID, replayResult); err != nil {
			return nil, err
		}
	}
	return replayResult, nil
}

func (s *Store) saveReplayRecord(ctx context.Context, originalSessionID string, result *ReplayResult) error {
	attemptsJSON, err := json.Marshal(result.Attempts)
	if err != nil {
		return fmt.Errorf("debugstore: marshal replay attempts: %w", err)
	}
	resultJSON, err := marshalOrEmpty(result.Result)
	if err != nil {
		return fmt.Errorf("debugstore: marshal replay result: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO replay_records (replay_id, original_session_id, success, result, attempts, execution_time_ms, llm_model, llm_tokens_used, error, timestamp, dry_run)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		uuid.New().String(), originalSessionID, result.Success, resultJSON, string(attemptsJSON),
		result.ExecutionTimeMs, result.Model, result.Tokens, nullIfEmpty(result.Error), result.Timestamp, result.DryRun,
	)
	if err != nil {
		return fmt.Errorf("debugstore: save replay record: %w", err)
	}
	return nil
}

// mergeAttemptParams deep-merges override on top of the JSON-encoded
// recorded params (spec.md §4.F step 4).
func mergeAttemptParams(recordedParamsJSON string, override map[string]any) (map[string]any, error) {
	params := map[string]any{}
	if recordedParamsJSON != "" {
		if err := json.Unmarshal([]byte(recordedParamsJSON), &params); err != nil {
			return nil, err
		}
	}
	for k, v := range override {
		params[k] = v
	}
	return params, nil
}

// nowFunc is a seam for tests to control elapsed-time measurement.
var nowFunc = time.Now
