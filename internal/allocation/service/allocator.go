// Package service implements question allocation: sampling sharded pools,
// filtering against the usage ledger, and reserving the selection in one
// all-or-nothing transaction.
package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"

	allocationrepo "maya-assessment/backend/internal/allocation/repository"
	questiondomain "maya-assessment/backend/internal/question/domain"
	sessiondomain "maya-assessment/backend/internal/session/domain"
	usagedomain "maya-assessment/backend/internal/usage/domain"
)

// Sentinel errors for allocation; the handler maps them to HTTP status codes.
var (
	// ErrInsufficientQuestions means the pool cannot satisfy a category
	// requirement for this user. No session is created. Safe to retry later
	// as the pool grows; usage records never age out.
	ErrInsufficientQuestions = errors.New("insufficient questions")
	// ErrReservationConflict means a concurrent reservation claimed one of the
	// drawn questions for the same user. Always safe to retry from scratch.
	ErrReservationConflict = errors.New("reservation conflict")
)

// InsufficientQuestionsError carries the category that could not be filled.
type InsufficientQuestionsError struct {
	Category questiondomain.Category
	Needed   int
	Found    int
}

func (e *InsufficientQuestionsError) Error() string {
	return fmt.Sprintf("insufficient questions for category %s: need %d, found %d", e.Category, e.Needed, e.Found)
}

func (e *InsufficientQuestionsError) Unwrap() error { return ErrInsufficientQuestions }

// QuestionSource is the minimal question repository needed by the allocator.
type QuestionSource interface {
	ListShard(ctx context.Context, at questiondomain.AssessmentType, cat questiondomain.Category, shard int) ([]*questiondomain.Question, error)
}

// UsageReader is the minimal usage ledger access needed by the allocator.
type UsageReader interface {
	ListQuestionIDs(ctx context.Context, userID string, at questiondomain.AssessmentType) (map[string]struct{}, error)
}

// StartResult is the outcome of a successful StartSession.
type StartResult struct {
	Session   *sessiondomain.Session
	Questions map[questiondomain.Category][]*questiondomain.Question
}

// Service selects and reserves questions for new assessment sessions.
type Service struct {
	questions        QuestionSource
	usage            UsageReader
	store            allocationrepo.ReservationStore
	shardCount       int
	maxShardAttempts int
	nowF             func() time.Time
	shardPerm        func(n int) []int // random shard visit order; injectable for tests
}

// NewService returns an allocator over the given stores. shardCount and
// maxShardAttempts come from config (defaults 128 and 20).
func NewService(questions QuestionSource, usage UsageReader, store allocationrepo.ReservationStore, shardCount, maxShardAttempts int) *Service {
	return &Service{
		questions:        questions,
		usage:            usage,
		store:            store,
		shardCount:       shardCount,
		maxShardAttempts: maxShardAttempts,
		nowF:             func() time.Time { return time.Now().UTC() },
		shardPerm:        rand.Perm,
	}
}

// StartSession reserves a full question set for one new assessment attempt.
//
// For each required (category, count) pair it samples random shards without
// replacement, skipping inactive questions and UNIQUE-policy questions the
// user has already consumed, until the count is met or the shard-attempt cap
// is exhausted. If any category comes up short the whole operation fails with
// ErrInsufficientQuestions and nothing is written.
//
// The reservation itself (session row + one usage row per UNIQUE question) is
// a single transaction; a concurrent claim of the same question surfaces as
// ErrReservationConflict, which callers retry from scratch.
//
// Entitlement is the caller's concern: the user must already be authorized
// for this assessment type.
func (s *Service) StartSession(ctx context.Context, userID string, at questiondomain.AssessmentType) (*StartResult, error) {
	if userID == "" {
		return nil, errors.New("user id is required")
	}
	if _, err := questiondomain.ParseAssessmentType(string(at)); err != nil {
		return nil, err
	}
	reqs := Requirements(at)
	if len(reqs) == 0 {
		return nil, fmt.Errorf("%w: no requirements declared", questiondomain.ErrInvalidAssessmentType)
	}

	excluded, err := s.usage.ListQuestionIDs(ctx, userID, at)
	if err != nil {
		return nil, fmt.Errorf("load usage ledger: %w", err)
	}

	selected := make(map[questiondomain.Category][]*questiondomain.Question, len(reqs))
	for _, req := range reqs {
		picked, err := s.fillCategory(ctx, at, req, excluded)
		if err != nil {
			return nil, err
		}
		selected[req.Category] = picked
	}

	now := s.nowF()
	sessionID, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generate session id: %w", err)
	}

	questionIDs := make(map[questiondomain.Category][]string, len(selected))
	var usage []*usagedomain.UsageRecord
	for cat, qs := range selected {
		ids := make([]string, len(qs))
		for i, q := range qs {
			ids[i] = q.ID
			if q.RepeatPolicy == questiondomain.RepeatPolicyUnique {
				usage = append(usage, &usagedomain.UsageRecord{
					UserID:         userID,
					AssessmentType: at,
					QuestionID:     q.ID,
					SessionID:      sessionID.String(),
					FirstUsedAt:    now,
					LastUsedAt:     now,
				})
			}
		}
		questionIDs[cat] = ids
	}

	sess := &sessiondomain.Session{
		ID:             sessionID.String(),
		UserID:         userID,
		AssessmentType: at,
		Status:         sessiondomain.StatusActive,
		QuestionIDs:    questionIDs,
		CreatedAt:      now,
		LastActivityAt: now,
	}

	if err := s.store.Reserve(ctx, sess, usage); err != nil {
		if errors.Is(err, allocationrepo.ErrConflict) {
			return nil, fmt.Errorf("%w: %v", ErrReservationConflict, err)
		}
		return nil, err
	}

	return &StartResult{Session: sess, Questions: selected}, nil
}

// fillCategory accumulates candidates from randomly ordered shards until the
// requirement is met or the attempt cap runs out.
func (s *Service) fillCategory(ctx context.Context, at questiondomain.AssessmentType, req Requirement, excluded map[string]struct{}) ([]*questiondomain.Question, error) {
	var picked []*questiondomain.Question
	seen := make(map[string]struct{})

	order := s.shardPerm(s.shardCount)
	attempts := 0
	for _, shard := range order {
		if len(picked) >= req.Count || attempts >= s.maxShardAttempts {
			break
		}
		attempts++
		qs, err := s.questions.ListShard(ctx, at, req.Category, shard)
		if err != nil {
			return nil, fmt.Errorf("sample shard %d of %s/%s: %w", shard, at, req.Category, err)
		}
		for _, q := range qs {
			if len(picked) >= req.Count {
				break
			}
			if !q.Active {
				continue
			}
			if _, dup := seen[q.ID]; dup {
				continue
			}
			if q.RepeatPolicy == questiondomain.RepeatPolicyUnique {
				if _, used := excluded[q.ID]; used {
					continue
				}
			}
			seen[q.ID] = struct{}{}
			picked = append(picked, q)
		}
	}

	if len(picked) < req.Count {
		return nil, &InsufficientQuestionsError{Category: req.Category, Needed: req.Count, Found: len(picked)}
	}
	return picked, nil
}
