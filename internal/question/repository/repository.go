package repository

import (
	"context"

	"maya-assessment/backend/internal/question/domain"
)

// Repository defines persistence for the sharded question bank.
type Repository interface {
	// Create appends a question to its (assessment_type, category, shard) partition.
	Create(ctx context.Context, q *domain.Question) error
	// GetByID returns the question for id, or nil if not found.
	GetByID(ctx context.Context, id string) (*domain.Question, error)
	// ListShard returns all questions in one pool shard, active or not.
	// The allocator filters inactive and already-used questions itself.
	ListShard(ctx context.Context, at domain.AssessmentType, cat domain.Category, shard int) ([]*domain.Question, error)
	// SetActive flips the only mutable question field.
	SetActive(ctx context.Context, id string, active bool) error
	// CountActiveByPool returns the number of active questions across all shards of a pool.
	CountActiveByPool(ctx context.Context, at domain.AssessmentType, cat domain.Category) (int, error)
}
