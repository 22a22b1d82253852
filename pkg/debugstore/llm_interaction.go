package debugstore

import (
	"context"
	"fmt"
	"time"
)

// LogLLMInteraction records one LLM call made during a session. seq is the
// caller-supplied sort key (spec.md §5: "log_llm_interaction preserves the
// caller-supplied seq as the sort key").
func (s *Store) LogLLMInteraction(ctx context.Context, sessionID string, seq int, phase, callType string, tStart, tEnd time.Time, latencyMs int, model string, tokens int) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO llm_interactions (session_id, seq, phase, call_type, t_start, t_end, latency_ms, model, tokens)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sessionID, seq, phase, callType, tStart, tEnd, latencyMs, model, tokens,
	)
	if err != nil {
		return fmt.Errorf("debugstore: log llm interaction: %w", err)
	}
	return nil
}

// ListLLMInteractions returns every LLM interaction for sessionID ordered
// by seq ascending.
func (s *Store) ListLLMInteractions(ctx context.Context, sessionID string) ([]LLMInteraction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT session_id, seq, phase, call_type, t_start, t_end, latency_ms, model, tokens
		FROM llm_interactions WHERE session_id = ? ORDER BY seq ASC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("debugstore: list llm interactions: %w", err)
	}
	defer rows.Close()

	var out []LLMInteraction
	for rows.Next() {
		var li LLMInteraction
		if err := rows.Scan(&li.SessionID, &li.Seq, &li.Phase, &li.CallType, &li.TStart, &li.TEnd, &li.LatencyMs, &li.Model, &li.Tokens); err != nil {
			return nil, fmt.Errorf("debugstore: scan llm interaction: %w", err)
		}
		out = append(out, li)
	}
	return out, rows.Err()
}
