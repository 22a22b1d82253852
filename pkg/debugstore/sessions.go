package debugstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrSessionNotFound is returned by GetSession when the id does not exist.
var ErrSessionNotFound = errors.New("debugstore: session not found")

// SessionUser identifies the caller a session is attributed to.
type SessionUser struct {
	ID   int
	Role string
}

// CreateSession starts a new session and returns its id (spec.md §4.F
// create_session).
func (s *Store) CreateSession(ctx context.Context, inputMessage string, user *SessionUser) (string, error) {
	id := uuid.New().String()
	var userID sql.NullInt64
	var userRole sql.NullString
	if user != nil {
		userID = sql.NullInt64{Int64: int64(user.ID), Valid: true}
		userRole = sql.NullString{String: user.Role, Valid: true}
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO debug_sessions (id, timestamp, user_id, user_role, input_message, status)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		id, time.Now(), userID, userRole, inputMessage, StatusPending,
	)
	if err != nil {
		return "", fmt.Errorf("debugstore: create session: %w", err)
	}
	return id, nil
}

// UpdateSessionRetrieval records the schema/tools the semantic path
// resolver retrieved for this session.
func (s *Store) UpdateSessionRetrieval(ctx context.Context, sessionID string, schema, tools string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE debug_sessions SET retrieved_schema = ?, retrieved_tools = ? WHERE id = ?`,
		schema, tools, sessionID,
	)
	if err != nil {
		return fmt.Errorf("debugstore: update session retrieval: %w", err)
	}
	return nil
}

// UpdateSessionLLM records the prompt/response of the session's top-level
// LLM call.
func (s *Store) UpdateSessionLLM(ctx context.Context, sessionID, prompt, response string, tokens int, model string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE debug_sessions SET llm_prompt = ?, llm_response = ?, llm_tokens_used = ?, llm_model = ? WHERE id = ?`,
		prompt, response, tokens, model, sessionID,
	)
	if err != nil {
		return fmt.Errorf("debugstore: update session llm: %w", err)
	}
	return nil
}

// CompleteSessionInput is complete_session's optional payload.
type CompleteSessionInput struct {
	Result          any
	Status          string
	ExecutionTimeMs int
	ActionsExecuted []string
	Errors          []string
}

// CompleteSession finalizes a session with its terminal status and
// outcome (spec.md §4.F complete_session; invariant 5).
func (s *Store) CompleteSession(ctx context.Context, sessionID string, in CompleteSessionInput) error {
	resultJSON, err := marshalOrEmpty(in.Result)
	if err != nil {
		return fmt.Errorf("debugstore: marshal final_result: %w", err)
	}
	actionsJSON, err := marshalOrEmpty(in.ActionsExecuted)
	if err != nil {
		return fmt.Errorf("debugstore: marshal actions_executed: %w", err)
	}
	errorsJSON, err := marshalOrEmpty(in.Errors)
	if err != nil {
		return fmt.Errorf("debugstore: marshal errors: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`UPDATE debug_sessions
		 SET status = ?, final_result = ?, execution_time_ms = ?, actions_executed = ?, errors = ?
		 WHERE id = ?`,
		in.Status, resultJSON, in.ExecutionTimeMs, actionsJSON, errorsJSON, sessionID,
	)
	if err != nil {
		return fmt.Errorf("debugstore: complete session: %w", err)
	}
	return nil
}

// GetSession fetches one session by id.
func (s *Store) GetSession(ctx context.Context, sessionID string) (*DebugSession, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, timestamp, user_id, user_role, input_message, retrieved_schema, retrieved_tools,
		       llm_prompt, llm_response, llm_tokens_used, llm_model, actions_executed,
		       execution_time_ms, final_result, errors, status, metadata
		FROM debug_sessions WHERE id = ?`, sessionID)

	sess, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("debugstore: get session: %w", err)
	}
	return sess, nil
}

// ListSessionsOptions filters list_sessions (spec.md §4.F).
type ListSessionsOptions struct {
	UserID *int
	Status string
	Limit  int
	Offset int
}

// ListSessions returns sessions newest-first, optionally filtered by user
// or status.
func (s *Store) ListSessions(ctx context.Context, opts ListSessionsOptions) ([]DebugSession, error) {
	query := `
		SELECT id, timestamp, user_id, user_role, input_message, retrieved_schema, retrieved_tools,
		       llm_prompt, llm_response, llm_tokens_used, llm_model, actions_executed,
		       execution_time_ms, final_result, errors, status, metadata
		FROM debug_sessions WHERE 1=1`
	var args []any
	if opts.UserID != nil {
		query += " AND user_id = ?"
		args = append(args, *opts.UserID)
	}
	if opts.Status != "" {
		query += " AND status = ?"
		args = append(args, opts.Status)
	}
	query += " ORDER BY timestamp DESC"
	if opts.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, opts.Limit)
		if opts.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, opts.Offset)
		}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("debugstore: list sessions: %w", err)
	}
	defer rows.Close()

	var out []DebugSession
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("debugstore: scan session: %w", err)
		}
		out = append(out, *sess)
	}
	return out, rows.Err()
}

// CleanupOldSessions deletes sessions older than days (attempt logs cascade
// via the foreign key) and returns the count deleted (spec.md §4.F
// cleanup_old_sessions; invariant 6).
func (s *Store) CleanupOldSessions(ctx context.Context, days int) (int, error) {
	now := nowFunc()
	startOfToday := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	cutoff := startOfToday.Add(-time.Duration(days) * 24 * time.Hour)
	result, err := s.db.ExecContext(ctx, `DELETE FROM debug_sessions WHERE timestamp < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("debugstore: cleanup old sessions: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("debugstore: cleanup rows affected: %w", err)
	}
	return int(affected), nil
}

// GetStatistics returns aggregate session counts (spec.md §4.F
// get_statistics).
func (s *Store) GetStatistics(ctx context.Context) (Statistics, error) {
	stats := Statistics{StatusBreakdown: make(map[string]int)}

	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM debug_sessions`).Scan(&stats.Total); err != nil {
		return stats, fmt.Errorf("debugstore: count sessions: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM debug_sessions GROUP BY status`)
	if err != nil {
		return stats, fmt.Errorf("debugstore: status breakdown: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return stats, fmt.Errorf("debugstore: scan status breakdown: %w", err)
		}
		stats.StatusBreakdown[status] = count
	}
	if err := rows.Err(); err != nil {
		return stats, err
	}

	cutoff := time.Now().Add(-24 * time.Hour)
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM debug_sessions WHERE timestamp >= ?`, cutoff).Scan(&stats.Last24h); err != nil {
		return stats, fmt.Errorf("debugstore: last-24h count: %w", err)
	}
	return stats, nil
}

// ExportSession returns a session and its full attempt history (spec.md
// §4.F export_session).
func (s *Store) ExportSession(ctx context.Context, sessionID string) (*ExportedSession, error) {
	sess, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	attempts, err := s.GetAttempts(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return &ExportedSession{Session: *sess, Attempts: attempts}, nil
}

// rowScanner abstracts *sql.Row and *sql.Rows for scanSession.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*DebugSession, error) {
	var sess DebugSession
	var userID sql.NullInt64
	var userRole, retrievedSchema, retrievedTools, llmPrompt, llmResponse, llmModel sql.NullString
	var llmTokens sql.NullInt64
	var actionsExecuted, finalResult, errs, metadata sql.NullString
	var executionTimeMs sql.NullInt64

	err := row.Scan(
		&sess.ID, &sess.Timestamp, &userID, &userRole, &sess.InputMessage,
		&retrievedSchema, &retrievedTools, &llmPrompt, &llmResponse, &llmTokens, &llmModel,
		&actionsExecuted, &executionTimeMs, &finalResult, &errs, &sess.Status, &metadata,
	)
	if err != nil {
		return nil, err
	}

	sess.UserID = int(userID.Int64)
	sess.UserRole = userRole.String
	sess.RetrievedSchema = retrievedSchema.String
	sess.RetrievedTools = retrievedTools.String
	sess.LLMPrompt = llmPrompt.String
	sess.LLMResponse = llmResponse.String
	sess.LLMTokensUsed = int(llmTokens.Int64)
	sess.LLMModel = llmModel.String
	sess.ActionsExecuted = actionsExecuted.String
	sess.ExecutionTimeMs = int(executionTimeMs.Int64)
	sess.FinalResult = finalResult.String
	sess.Errors = errs.String
	sess.Metadata = metadata.String
	return &sess, nil
}

// marshalOrEmpty JSON-encodes v, returning an empty string for a nil or
// zero-length value instead of the literal "null" (debug_sessions' JSON
// columns are read back as "" when absent).
func marshalOrEmpty(v any) (string, error) {
	if v == nil {
		return "", nil
	}
	encoded, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	if string(encoded) == "null" {
		return "", nil
	}
	return string(encoded), nil
}
