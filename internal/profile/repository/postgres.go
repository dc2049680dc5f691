package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"maya-assessment/backend/internal/profile/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a profile repository backed by the given db.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Get returns the profile for userID, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) Get(ctx context.Context, userID string) (*domain.Profile, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT user_id, plan, assessment_credits, assessment_history, created_at, updated_at
		FROM profiles WHERE user_id = $1`, userID)
	var p domain.Profile
	var history []byte
	if err := row.Scan(&p.UserID, &p.Plan, &p.AssessmentCredits, &history, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if len(history) > 0 {
		if err := json.Unmarshal(history, &p.AssessmentHistory); err != nil {
			return nil, err
		}
	}
	return &p, nil
}

// Put upserts the profile.
func (r *PostgresRepository) Put(ctx context.Context, p *domain.Profile) error {
	history, err := json.Marshal(p.AssessmentHistory)
	if err != nil {
		return err
	}
	if p.AssessmentHistory == nil {
		history = []byte("[]")
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO profiles (user_id, plan, assessment_credits, assessment_history, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id) DO UPDATE
		SET plan = EXCLUDED.plan,
		    assessment_credits = EXCLUDED.assessment_credits,
		    assessment_history = EXCLUDED.assessment_history,
		    updated_at = EXCLUDED.updated_at`,
		p.UserID, p.Plan, p.AssessmentCredits, history, p.CreatedAt, p.UpdatedAt)
	return err
}

// AppendAssessment appends one preserved record to the user's history without
// rewriting the rest of the profile.
func (r *PostgresRepository) AppendAssessment(ctx context.Context, userID string, rec domain.PreservedAssessmentRecord) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE profiles
		SET assessment_history = assessment_history || $2::jsonb, updated_at = $3
		WHERE user_id = $1`,
		userID, payload, time.Now().UTC())
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return errors.New("profile not found")
	}
	return nil
}

// DebitCredit decrements assessment credits by one, not below zero.
func (r *PostgresRepository) DebitCredit(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE profiles
		SET assessment_credits = greatest(assessment_credits - 1, 0), updated_at = $2
		WHERE user_id = $1`,
		userID, time.Now().UTC())
	return err
}

// PruneExpired removes expired history records across all profiles and
// returns how many records it actually deleted. Filtering happens in Go so
// unparseable expiry dates are retained, matching the conservative retention
// contract.
//
// The write-back is guarded by the history each row had when it was read. If
// AppendAssessment commits for the same user between the read and the write,
// the guard misses, the profile is left untouched, and the next sweep prunes
// it; a plain overwrite here would delete the just-preserved record.
func (r *PostgresRepository) PruneExpired(ctx context.Context, now time.Time) (int, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT user_id, assessment_history FROM profiles
		WHERE jsonb_array_length(assessment_history) > 0`)
	if err != nil {
		return 0, err
	}
	type pending struct {
		userID   string
		original []byte
		history  []domain.PreservedAssessmentRecord
		expired  int
	}
	var updates []pending
	for rows.Next() {
		var userID string
		var raw []byte
		if err := rows.Scan(&userID, &raw); err != nil {
			rows.Close()
			return 0, err
		}
		var history []domain.PreservedAssessmentRecord
		if err := json.Unmarshal(raw, &history); err != nil {
			// Malformed history is retained, not deleted.
			continue
		}
		expired := 0
		kept := history[:0]
		for _, rec := range history {
			if rec.Expired(now) {
				expired++
				continue
			}
			kept = append(kept, rec)
		}
		if expired > 0 {
			updates = append(updates, pending{userID: userID, original: raw, history: kept, expired: expired})
		}
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return 0, err
	}
	rows.Close()

	removed := 0
	for _, u := range updates {
		payload, err := json.Marshal(u.history)
		if err != nil {
			return removed, err
		}
		if len(u.history) == 0 {
			payload = []byte("[]")
		}
		res, err := r.db.ExecContext(ctx, `
			UPDATE profiles SET assessment_history = $2, updated_at = $3
			WHERE user_id = $1 AND assessment_history = $4::jsonb`,
			u.userID, payload, now, u.original)
		if err != nil {
			return removed, err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return removed, err
		}
		if n == 0 {
			// History changed since the read; retry on the next sweep.
			continue
		}
		removed += u.expired
	}
	return removed, nil
}
