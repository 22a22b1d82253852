package debugstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// LogAttempt records one handler invocation, auto-incrementing
// attempt_number within the session (spec.md §4.F log_attempt; invariant
// 4 — attempt numbers are monotonically increasing from 0).
func (s *Store) LogAttempt(ctx context.Context, sessionID, actionName, params string, success bool, result, errMsg string) (string, error) {
	var nextAttempt int
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(attempt_number), -1) + 1 FROM attempt_logs WHERE session_id = ?`, sessionID,
	).Scan(&nextAttempt)
	if err != nil {
		return "", fmt.Errorf("debugstore: next attempt number: %w", err)
	}

	attemptID := uuid.New().String()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO attempt_logs (attempt_id, session_id, attempt_number, action_name, params, success, error, result, timestamp)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		attemptID, sessionID, nextAttempt, actionName, params, success, nullIfEmpty(errMsg), nullIfEmpty(result), time.Now(),
	)
	if err != nil {
		return "", fmt.Errorf("debugstore: log attempt: %w", err)
	}
	return attemptID, nil
}

// GetAttempts returns every attempt for sessionID ordered by
// attempt_number ascending (spec.md §5: "get_attempts returns them in
// that order").
func (s *Store) GetAttempts(ctx context.Context, sessionID string) ([]AttemptLog, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT attempt_id, session_id, attempt_number, action_name, params, success, error, result, timestamp
		FROM attempt_logs WHERE session_id = ? ORDER BY attempt_number ASC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("debugstore: get attempts: %w", err)
	}
	defer rows.Close()

	var out []AttemptLog
	for rows.Next() {
		var a AttemptLog
		var errMsg, result sql.NullString
		if err := rows.Scan(&a.AttemptID, &a.SessionID, &a.AttemptNumber, &a.ActionName, &a.Params, &a.Success, &errMsg, &result, &a.Timestamp); err != nil {
			return nil, fmt.Errorf("debugstore: scan attempt: %w", err)
		}
		a.Error = errMsg.String
		a.Result = result.String
		out = append(out, a)
	}
	return out, rows.Err()
}

func nullIfEmpty(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
