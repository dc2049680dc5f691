package repository

import (
	"context"
	"time"

	"maya-assessment/backend/internal/session/domain"
)

// Repository defines persistence for assessment sessions. Sessions are
// created only inside the allocator's reservation transaction (InsertTx in
// postgres.go); afterwards they are status-transitioned, never deleted.
type Repository interface {
	// GetByID returns the session for id, or nil if not found.
	GetByID(ctx context.Context, id string) (*domain.Session, error)
	// ListByUser returns the user's sessions, newest first.
	ListByUser(ctx context.Context, userID string) ([]*domain.Session, error)
	// AppendTurn appends one turn to the session's conversation history and
	// bumps last_activity_at.
	AppendTurn(ctx context.Context, id string, turn domain.Turn) error
	// MarkCompleted transitions the session to COMPLETED and stamps completed_at.
	MarkCompleted(ctx context.Context, id string, at time.Time) error
	// MarkExpiredBefore transitions ACTIVE sessions with no activity since
	// cutoff to EXPIRED and returns their IDs so callers can drop any
	// in-memory conversation state.
	MarkExpiredBefore(ctx context.Context, cutoff time.Time) ([]string, error)
	// StripConversationData removes conversation_history and transcript_data
	// and sets conversation_data_cleaned. Irreversible.
	StripConversationData(ctx context.Context, id string) error
}
