package store

import (
	"context"
	"database/sql"
	"fmt"
)

// LLMRequestEvent captures the data for a single collaborator API call.
type LLMRequestEvent struct {
	Model        string
	Purpose      string
	InputTokens  int
	OutputTokens int
	LatencyMs    int64
	Success      bool
	ErrorMessage string
}

// AnswerEvent records one answered question within a session.
type AnswerEvent struct {
	SessionID     string
	QuestionID    string
	Concept       string
	QuestionType  string
	RawAnswer     string
	Correct       bool
	VerdictSource string
}

// SessionEvent records a finished session.
type SessionEvent struct {
	SessionID       string
	DurationSeconds int
	QuestionsSeen   int
	Correct         int
	Exhausted       bool
}

// LLMStats aggregates the llm_request_events table.
type LLMStats struct {
	Requests     int
	Failures     int
	InputTokens  int
	OutputTokens int
}

// AnswerStats aggregates the answer_events table.
type AnswerStats struct {
	Total    int
	Correct  int
	BySource map[string]int
}

// SessionStats aggregates the session_events table.
type SessionStats struct {
	Sessions      int
	QuestionsSeen int
	Correct       int
}

// EventRepo provides append and aggregate access to domain events.
type EventRepo interface {
	// AppendLLMRequest records a collaborator API call event.
	AppendLLMRequest(ctx context.Context, ev LLMRequestEvent) error

	// AppendAnswer records an answered question.
	AppendAnswer(ctx context.Context, ev AnswerEvent) error

	// AppendSessionEnd records a finished session.
	AppendSessionEnd(ctx context.Context, ev SessionEvent) error

	// LLMStats aggregates all recorded collaborator calls.
	LLMStats(ctx context.Context) (LLMStats, error)

	// AnswerStats aggregates all recorded answers.
	AnswerStats(ctx context.Context) (AnswerStats, error)

	// SessionStats aggregates all recorded sessions.
	SessionStats(ctx context.Context) (SessionStats, error)
}

// eventRepo implements EventRepo with raw SQL over the store's handle.
type eventRepo struct {
	db *sql.DB
}

func (r *eventRepo) AppendLLMRequest(ctx context.Context, ev LLMRequestEvent) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO llm_request_events
			(model, purpose, input_tokens, output_tokens, latency_ms, success, error_message)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		ev.Model, ev.Purpose, ev.InputTokens, ev.OutputTokens,
		ev.LatencyMs, ev.Success, ev.ErrorMessage,
	)
	if err != nil {
		return fmt.Errorf("append llm request event: %w", err)
	}
	return nil
}

func (r *eventRepo) AppendAnswer(ctx context.Context, ev AnswerEvent) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO answer_events
			(session_id, question_id, concept, question_type, raw_answer, correct, verdict_source)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		ev.SessionID, ev.QuestionID, ev.Concept, ev.QuestionType,
		ev.RawAnswer, ev.Correct, ev.VerdictSource,
	)
	if err != nil {
		return fmt.Errorf("append answer event: %w", err)
	}
	return nil
}

func (r *eventRepo) AppendSessionEnd(ctx context.Context, ev SessionEvent) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO session_events
			(session_id, duration_seconds, questions_seen, correct, exhausted)
		VALUES (?, ?, ?, ?, ?)`,
		ev.SessionID, ev.DurationSeconds, ev.QuestionsSeen, ev.Correct, ev.Exhausted,
	)
	if err != nil {
		return fmt.Errorf("append session event: %w", err)
	}
	return nil
}

func (r *eventRepo) LLMStats(ctx context.Context) (LLMStats, error) {
	var s LLMStats
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*),
			COALESCE(SUM(CASE WHEN success = 0 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(input_tokens), 0),
			COALESCE(SUM(output_tokens), 0)
		FROM llm_request_events`,
	).Scan(&s.Requests, &s.Failures, &s.InputTokens, &s.OutputTokens)
	if err != nil {
		return LLMStats{}, fmt.Errorf("llm stats: %w", err)
	}
	return s, nil
}

func (r *eventRepo) AnswerStats(ctx context.Context) (AnswerStats, error) {
	s := AnswerStats{BySource: make(map[string]int)}

	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*),
			COALESCE(SUM(CASE WHEN correct = 1 THEN 1 ELSE 0 END), 0)
		FROM answer_events`,
	).Scan(&s.Total, &s.Correct)
	if err != nil {
		return AnswerStats{}, fmt.Errorf("answer stats: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT verdict_source, COUNT(*) FROM answer_events GROUP BY verdict_source`,
	)
	if err != nil {
		return AnswerStats{}, fmt.Errorf("answer stats by source: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var source string
		var count int
		if err := rows.Scan(&source, &count); err != nil {
			return AnswerStats{}, fmt.Errorf("scan answer stats row: %w", err)
		}
		s.BySource[source] = count
	}
	if err := rows.Err(); err != nil {
		return AnswerStats{}, fmt.Errorf("answer stats rows: %w", err)
	}

	return s, nil
}

func (r *eventRepo) SessionStats(ctx context.Context) (SessionStats, error) {
	var s SessionStats
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*),
			COALESCE(SUM(questions_seen), 0),
			COALESCE(SUM(correct), 0)
		FROM session_events`,
	).Scan(&s.Sessions, &s.QuestionsSeen, &s.Correct)
	if err != nil {
		return SessionStats{}, fmt.Errorf("session stats: %w", err)
	}
	return s, nil
}
