package repository

import (
	"context"
	"database/sql"

	questiondomain "maya-assessment/backend/internal/question/domain"
	"maya-assessment/backend/internal/usage/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a usage ledger repository backed by the given db.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// ListQuestionIDs returns the consumed question IDs for (user, assessment_type) as a set.
func (r *PostgresRepository) ListQuestionIDs(ctx context.Context, userID string, at questiondomain.AssessmentType) (map[string]struct{}, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT question_id FROM usage_records
		WHERE user_id = $1 AND assessment_type = $2`,
		userID, string(at))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out[id] = struct{}{}
	}
	return out, rows.Err()
}

// ListByUser returns all ledger rows for (user, assessment_type).
func (r *PostgresRepository) ListByUser(ctx context.Context, userID string, at questiondomain.AssessmentType) ([]*domain.UsageRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT user_id, assessment_type, question_id, session_id, first_used_at, last_used_at
		FROM usage_records
		WHERE user_id = $1 AND assessment_type = $2`,
		userID, string(at))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.UsageRecord
	for rows.Next() {
		var rec domain.UsageRecord
		var at string
		if err := rows.Scan(&rec.UserID, &at, &rec.QuestionID, &rec.SessionID, &rec.FirstUsedAt, &rec.LastUsedAt); err != nil {
			return nil, err
		}
		rec.AssessmentType = questiondomain.AssessmentType(at)
		out = append(out, &rec)
	}
	return out, rows.Err()
}
