package repository

import (
	"context"
	"database/sql"

	questiondomain "maya-assessment/backend/internal/question/domain"
	"maya-assessment/backend/internal/usage/domain"
)

// Repository defines read access to the usage ledger. Writes happen only
// inside the allocator's reservation transaction via InsertTx.
type Repository interface {
	// ListQuestionIDs returns the set of question IDs already consumed by the
	// user for the assessment type. This is the allocator's exclusion set.
	ListQuestionIDs(ctx context.Context, userID string, at questiondomain.AssessmentType) (map[string]struct{}, error)
	// ListByUser returns all ledger rows for the user and assessment type.
	ListByUser(ctx context.Context, userID string, at questiondomain.AssessmentType) ([]*domain.UsageRecord, error)
}

// InsertTx inserts one usage record inside the caller's transaction. The
// primary key (user_id, assessment_type, question_id) makes the insert a
// conditional write: a duplicate key fails the statement, which aborts the
// whole reservation transaction.
func InsertTx(ctx context.Context, tx *sql.Tx, rec *domain.UsageRecord) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO usage_records (user_id, assessment_type, question_id, session_id, first_used_at, last_used_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		rec.UserID, string(rec.AssessmentType), rec.QuestionID, rec.SessionID, rec.FirstUsedAt, rec.LastUsedAt,
	)
	return err
}
