package repository

import (
	"context"
	"database/sql"
	"fmt"

	"maya-assessment/backend/internal/db/pgerr"
	sessiondomain "maya-assessment/backend/internal/session/domain"
	sessionrepo "maya-assessment/backend/internal/session/repository"
	usagedomain "maya-assessment/backend/internal/usage/domain"
	usagerepo "maya-assessment/backend/internal/usage/repository"
)

type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore returns a reservation store backed by the given db.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Reserve inserts the session and its usage records in one transaction.
// A duplicate session id aborts with ErrSessionIDCollision; a duplicate usage
// key (a concurrent session claimed the same question for the same user)
// aborts with ErrConflict. Either way the transaction rolls back and no
// partial reservation is observable.
func (s *PostgresStore) Reserve(ctx context.Context, sess *sessiondomain.Session, usage []*usagedomain.UsageRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := sessionrepo.InsertTx(ctx, tx, sess); err != nil {
		if pgerr.IsUniqueViolation(err) {
			return fmt.Errorf("%w: %s", ErrSessionIDCollision, sess.ID)
		}
		return err
	}
	for _, rec := range usage {
		if err := usagerepo.InsertTx(ctx, tx, rec); err != nil {
			if pgerr.IsUniqueViolation(err) {
				return fmt.Errorf("%w: question %s", ErrConflict, rec.QuestionID)
			}
			return err
		}
	}
	return tx.Commit()
}
