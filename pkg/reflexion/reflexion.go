// Package reflexion implements the bounded retry-with-correction loop that
// wraps action dispatch (spec.md §4.E). Its state lives entirely in the
// per-call AttemptRecord history; it holds no mutable shared state beyond
// the injected dependencies, so it is safe to call concurrently from
// multiple request-handling goroutines.
package reflexion

import (
	"context"
	"time"

	"github.com/Sam-at-git/aipms-sub001/pkg/actions"
	"github.com/Sam-at-git/aipms-sub001/pkg/execerr"
	"github.com/Sam-at-git/aipms-sub001/pkg/llm"
	"github.com/Sam-at-git/aipms-sub001/pkg/ontology"
)

// DefaultMaxRetries mirrors spec.md §4.E's documented default.
const DefaultMaxRetries = 2

// AttemptRecord is one entry of a Reflexion Loop's attempt history.
type AttemptRecord struct {
	Attempt int
	Params  map[string]any
	Success bool
	Error   *execerr.ExecutionError
}

// Result is what a successful (or exhausted) Reflexion Loop call returns.
type Result struct {
	Result        any
	Attempts      []AttemptRecord
	ReflexionUsed bool
	FinalAttempt  int
}

// Dispatcher is the narrow capability the loop needs from the action
// dispatcher (spec.md §4.D), kept as an interface so tests can substitute a
// spy without constructing a full actions.Registry.
type Dispatcher interface {
	Dispatch(ctx context.Context, name string, params map[string]any, dctx actions.Context) (any, error)
}

// Loop wraps Dispatcher.Dispatch with bounded retry, rule-based
// auto-correction, state-error hinting, and LLM-assisted reflection
// (spec.md §4.E).
type Loop struct {
	dispatcher Dispatcher
	ontology   *ontology.Registry
	llm        llm.Client
	maxRetries int
}

// Option configures a Loop.
type Option func(*Loop)

// WithMaxRetries overrides DefaultMaxRetries.
func WithMaxRetries(n int) Option {
	return func(l *Loop) { l.maxRetries = n }
}

// WithLLM injects an LLM capability for the llm_reflect correction step.
// Pass llm.NullLLM{} (the default when omitted) to run rule-only.
func WithLLM(c llm.Client) Option {
	return func(l *Loop) { l.llm = c }
}

// NewLoop builds a Loop bound to a dispatcher and the ontology registry
// (needed to look up an action's parameter schema for auto-correction).
func NewLoop(dispatcher Dispatcher, ont *ontology.Registry, opts ...Option) *Loop {
	l := &Loop{dispatcher: dispatcher, ontology: ont, maxRetries: DefaultMaxRetries, llm: llm.NullLLM{}}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Run executes name through the wrapped dispatcher, retrying up to
// maxRetries times with rule-based or LLM-assisted correction between
// attempts (spec.md §4.E's pseudocode).
func (l *Loop) Run(ctx context.Context, name string, params map[string]any, dctx actions.Context) (*Result, error) {
	var history []AttemptRecord

	for attempt := 0; attempt <= l.maxRetries; attempt++ {
		if deadlineExceeded(ctx) {
			ee := execerr.New(execerr.KindUnknown, "deadline exceeded before attempt")
			history = append(history, AttemptRecord{Attempt: attempt, Params: params, Success: false, Error: ee})
			return nil, l.terminal(history, true)
		}

		record := AttemptRecord{Attempt: attempt, Params: params}
		result, err := l.dispatcher.Dispatch(ctx, name, params, dctx)
		if err == nil {
			record.Success = true
			history = append(history, record)
			return &Result{Result: result, Attempts: history, ReflexionUsed: attempt > 0, FinalAttempt: attempt}, nil
		}

		classified := execerr.Classify(err)
		record.Error = classified
		history = append(history, record)

		if classified.Kind.Terminal() {
			return nil, l.terminalWith(history, classified, false)
		}

		if attempt == l.maxRetries {
			return nil, l.terminal(history, true)
		}

		corrected := l.correct(name, params, classified, dctx, ctx)
		if corrected == nil {
			return nil, l.terminal(history, false)
		}
		params = corrected
	}

	// Unreachable: the loop above always returns by attempt == maxRetries.
	return nil, l.terminal(history, true)
}

// terminal builds the final ExecutionError carrying the full attempt
// history, reusing the last attempt's classified error as the reported
// kind (the loop does not invent a new failure kind at exhaustion).
func (l *Loop) terminal(history []AttemptRecord, retriesExhausted bool) error {
	last := history[len(history)-1].Error
	return l.terminalWith(history, last, retriesExhausted)
}

func (l *Loop) terminalWith(history []AttemptRecord, base *execerr.ExecutionError, retriesExhausted bool) error {
	return &LoopError{
		ExecutionError:   base,
		Attempts:         history,
		RetriesExhausted: retriesExhausted,
	}
}

// LoopError is the error a Loop returns on a non-success outcome: the
// classified failure plus the attempt history and whether retries were
// exhausted (as opposed to terminating early on PERMISSION_DENIED or no
// correction being available).
type LoopError struct {
	*execerr.ExecutionError
	Attempts         []AttemptRecord
	RetriesExhausted bool
}

// Unwrap exposes the classified ExecutionError itself (not its own Cause)
// so errors.As(err, &executionErr) finds it directly, rather than skipping
// past it to ExecutionError's own Cause via method promotion.
func (e *LoopError) Unwrap() error { return e.ExecutionError }

func deadlineExceeded(ctx context.Context) bool {
	deadline, ok := ctx.Deadline()
	return ok && time.Now().After(deadline)
}
