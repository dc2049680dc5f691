package repository

import (
	"context"
	"database/sql"
	"errors"

	"maya-assessment/backend/internal/question/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a question repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create persists the question. The question must have ID and partition fields set.
func (r *PostgresRepository) Create(ctx context.Context, q *domain.Question) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO questions (id, assessment_type, category, shard, content_text, media_ref, repeat_policy, active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		q.ID, string(q.AssessmentType), string(q.Category), q.Shard, q.Text,
		nullString(q.MediaRef), string(q.RepeatPolicy), q.Active, q.CreatedAt,
	)
	return err
}

// GetByID returns the question for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Question, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, assessment_type, category, shard, content_text, media_ref, repeat_policy, active, created_at
		FROM questions WHERE id = $1`, id)
	q, err := scanQuestion(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return q, nil
}

// ListShard returns every question in the given pool shard.
func (r *PostgresRepository) ListShard(ctx context.Context, at domain.AssessmentType, cat domain.Category, shard int) ([]*domain.Question, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, assessment_type, category, shard, content_text, media_ref, repeat_policy, active, created_at
		FROM questions
		WHERE assessment_type = $1 AND category = $2 AND shard = $3`,
		string(at), string(cat), shard)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Question
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

// SetActive flips the active flag for id. Returns an error if the update fails.
func (r *PostgresRepository) SetActive(ctx context.Context, id string, active bool) error {
	_, err := r.db.ExecContext(ctx, `UPDATE questions SET active = $2 WHERE id = $1`, id, active)
	return err
}

// CountActiveByPool returns the number of active questions across all shards of a pool.
func (r *PostgresRepository) CountActiveByPool(ctx context.Context, at domain.AssessmentType, cat domain.Category) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `
		SELECT count(*) FROM questions
		WHERE assessment_type = $1 AND category = $2 AND active`,
		string(at), string(cat)).Scan(&n)
	return n, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanQuestion(row rowScanner) (*domain.Question, error) {
	var q domain.Question
	var at, cat, policy string
	var mediaRef sql.NullString
	if err := row.Scan(&q.ID, &at, &cat, &q.Shard, &q.Text, &mediaRef, &policy, &q.Active, &q.CreatedAt); err != nil {
		return nil, err
	}
	q.AssessmentType = domain.AssessmentType(at)
	q.Category = domain.Category(cat)
	q.RepeatPolicy = domain.RepeatPolicy(policy)
	if mediaRef.Valid {
		q.MediaRef = mediaRef.String
	}
	return &q, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
