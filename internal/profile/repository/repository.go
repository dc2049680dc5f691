package repository

import (
	"context"
	"time"

	"maya-assessment/backend/internal/profile/domain"
)

// Repository defines persistence for user profiles.
type Repository interface {
	// Get returns the profile for userID, or nil if not found.
	Get(ctx context.Context, userID string) (*domain.Profile, error)
	// Put upserts the profile.
	Put(ctx context.Context, p *domain.Profile) error
	// AppendAssessment appends one preserved record to the user's history.
	AppendAssessment(ctx context.Context, userID string, rec domain.PreservedAssessmentRecord) error
	// DebitCredit decrements the user's assessment credits by one, not below zero.
	DebitCredit(ctx context.Context, userID string) error
	// PruneExpired removes history records whose expiry has passed across all
	// profiles and returns how many were removed. Records with unparseable
	// expiry dates are retained.
	PruneExpired(ctx context.Context, now time.Time) (int, error)
}
