// Package debugstore implements the Debug Logger & Replay Engine
// (spec.md §4.F): a local embedded relational store recording every
// session's retrieval, LLM calls, and dispatch attempts, plus a replay
// engine that re-executes a recorded session against the current
// registry with optional overrides.
package debugstore

import "time"

// DebugSession is one end-to-end handling of a user utterance.
type DebugSession struct {
	ID              string
	Timestamp       time.Time
	UserID          int
	UserRole        string
	InputMessage    string
	RetrievedSchema string
	RetrievedTools  string
	LLMPrompt       string
	LLMResponse     string
	LLMTokensUsed   int
	LLMModel        string
	ActionsExecuted string // JSON-encoded []string
	ExecutionTimeMs int
	FinalResult     string // JSON-encoded
	Errors          string // JSON-encoded
	Status          string
	Metadata        string // JSON-encoded
}

// Session statuses.
const (
	StatusPending   = "pending"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// AttemptLog is one handler invocation within a session, numbered from 0.
type AttemptLog struct {
	AttemptID     string
	SessionID     string
	AttemptNumber int
	ActionName    string
	Params        string // JSON-encoded
	Success       bool
	Error         string
	Result        string // JSON-encoded
	Timestamp     time.Time
}

// LLMInteraction is one LLM call made during a session, ordered by Seq.
type LLMInteraction struct {
	SessionID string
	Seq       int
	Phase     string
	CallType  string
	TStart    time.Time
	TEnd      time.Time
	LatencyMs int
	Model     string
	Tokens    int
}

// ReplayRecord is a persisted outcome of replaying a session.
type ReplayRecord struct {
	ReplayID          string
	OriginalSessionID string
	Success           bool
	Result            string // JSON-encoded
	Attempts          string // JSON-encoded []AttemptLog
	ExecutionTimeMs   int
	LLMModel          string
	LLMTokensUsed     int
	Error             string
	Timestamp         time.Time
	DryRun            bool
}

// Statistics is get_statistics()'s result (spec.md §4.F).
type Statistics struct {
	Total           int
	StatusBreakdown map[string]int
	Last24h         int
}

// ExportedSession is export_session(session_id)'s result.
type ExportedSession struct {
	Session  DebugSession
	Attempts []AttemptLog
}
