package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	questiondomain "maya-assessment/backend/internal/question/domain"
	"maya-assessment/backend/internal/session/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a session repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// InsertTx creates the session row inside the caller's transaction. The
// primary key on id makes creation conditional: a colliding session_id fails
// the statement and aborts the reservation transaction. Collisions are a
// hard error, never retried silently.
func InsertTx(ctx context.Context, tx *sql.Tx, s *domain.Session) error {
	questionIDs, err := json.Marshal(s.QuestionIDs)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO assessment_sessions
			(id, user_id, assessment_type, status, question_ids, conversation_history, conversation_data_cleaned, created_at, last_activity_at)
		VALUES ($1, $2, $3, $4, $5, '[]'::jsonb, FALSE, $6, $7)`,
		s.ID, s.UserID, string(s.AssessmentType), string(s.Status), questionIDs, s.CreatedAt, s.LastActivityAt,
	)
	return err
}

// GetByID returns the session for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, assessment_type, status, question_ids, conversation_history, transcript_data,
		       conversation_data_cleaned, created_at, last_activity_at, completed_at
		FROM assessment_sessions WHERE id = $1`, id)
	s, err := scanSession(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return s, nil
}

// ListByUser returns the user's sessions, newest first.
func (r *PostgresRepository) ListByUser(ctx context.Context, userID string) ([]*domain.Session, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, assessment_type, status, question_ids, conversation_history, transcript_data,
		       conversation_data_cleaned, created_at, last_activity_at, completed_at
		FROM assessment_sessions WHERE user_id = $1
		ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// AppendTurn appends one turn to conversation_history and bumps last_activity_at.
func (r *PostgresRepository) AppendTurn(ctx context.Context, id string, turn domain.Turn) error {
	payload, err := json.Marshal(turn)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		UPDATE assessment_sessions
		SET conversation_history = coalesce(conversation_history, '[]'::jsonb) || $2::jsonb,
		    last_activity_at = $3
		WHERE id = $1`,
		id, payload, turn.Timestamp)
	return err
}

// MarkCompleted transitions the session to COMPLETED and stamps completed_at.
// Conditional on ACTIVE: if the sweep expired the session in the meantime the
// update matches nothing and ErrSessionNotActive is returned, so the caller
// never scores or scrubs a session that is no longer ACTIVE.
func (r *PostgresRepository) MarkCompleted(ctx context.Context, id string, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE assessment_sessions
		SET status = $2, completed_at = $3, last_activity_at = $3
		WHERE id = $1 AND status = $4`,
		id, string(domain.StatusCompleted), at, string(domain.StatusActive))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrSessionNotActive
	}
	return nil
}

// MarkExpiredBefore transitions stale ACTIVE sessions to EXPIRED and returns their IDs.
func (r *PostgresRepository) MarkExpiredBefore(ctx context.Context, cutoff time.Time) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		UPDATE assessment_sessions
		SET status = $1
		WHERE status = $2 AND last_activity_at < $3
		RETURNING id`,
		string(domain.StatusExpired), string(domain.StatusActive), cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// StripConversationData removes the transient conversational payload, keeping
// only structural and status fields.
func (r *PostgresRepository) StripConversationData(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE assessment_sessions
		SET conversation_history = NULL, transcript_data = NULL, conversation_data_cleaned = TRUE
		WHERE id = $1`, id)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*domain.Session, error) {
	var s domain.Session
	var at, status string
	var questionIDs []byte
	var history, transcript sql.Null[[]byte]
	var completedAt sql.NullTime
	if err := row.Scan(&s.ID, &s.UserID, &at, &status, &questionIDs, &history, &transcript,
		&s.ConversationDataCleaned, &s.CreatedAt, &s.LastActivityAt, &completedAt); err != nil {
		return nil, err
	}
	s.AssessmentType = questiondomain.AssessmentType(at)
	s.Status = domain.Status(status)
	if err := json.Unmarshal(questionIDs, &s.QuestionIDs); err != nil {
		return nil, err
	}
	if history.Valid && len(history.V) > 0 {
		if err := json.Unmarshal(history.V, &s.ConversationHistory); err != nil {
			return nil, err
		}
	}
	if transcript.Valid && len(transcript.V) > 0 {
		if err := json.Unmarshal(transcript.V, &s.TranscriptData); err != nil {
			return nil, err
		}
	}
	if completedAt.Valid {
		s.CompletedAt = &completedAt.Time
	}
	return &s, nil
}
