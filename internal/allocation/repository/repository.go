package repository

import (
	"context"
	"errors"

	sessiondomain "maya-assessment/backend/internal/session/domain"
	usagedomain "maya-assessment/backend/internal/usage/domain"
)

// ErrConflict is returned when a usage-record conditional write loses to a
// concurrent reservation. The whole transaction has been rolled back; callers
// may safely retry allocation from scratch.
var ErrConflict = errors.New("usage record already exists")

// ErrSessionIDCollision is returned when the generated session id already
// exists. This indicates an id-generation fault and is a hard error, never
// retried silently.
var ErrSessionIDCollision = errors.New("session id already exists")

// ReservationStore commits a question reservation: the session row plus one
// usage row per UNIQUE-policy question, all in a single all-or-nothing
// transaction. On any error nothing is persisted.
type ReservationStore interface {
	Reserve(ctx context.Context, s *sessiondomain.Session, usage []*usagedomain.UsageRecord) error
}
