// Package service implements the retention policy: preserve the scored
// extract first, then scrub conversational data. The ordering is the whole
// point — a failure during preservation must leave the conversation intact so
// the cleanup can be retried.
package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	profiledomain "maya-assessment/backend/internal/profile/domain"
	"maya-assessment/backend/internal/scoring"
	"maya-assessment/backend/internal/telemetry"
)

// ErrRetentionPartial means the preserved record could not be written; no
// conversational data was removed and the cleanup should be retried.
var ErrRetentionPartial = errors.New("retention incomplete: preserved record not written")

// HistoryWriter appends preserved records to user profiles.
type HistoryWriter interface {
	AppendAssessment(ctx context.Context, userID string, rec profiledomain.PreservedAssessmentRecord) error
	PruneExpired(ctx context.Context, now time.Time) (int, error)
}

// SessionScrubber removes conversational data from persisted sessions and
// expires idle ones.
type SessionScrubber interface {
	StripConversationData(ctx context.Context, id string) error
	MarkExpiredBefore(ctx context.Context, cutoff time.Time) ([]string, error)
}

// EngineDropper releases in-memory conversation state.
type EngineDropper interface {
	Drop(sessionID string)
	DropAll(sessionIDs []string) int
}

// Service applies the retention policy for completed and expired sessions.
type Service struct {
	profiles HistoryWriter
	sessions SessionScrubber
	engines  EngineDropper
	emitter  telemetry.EventEmitter

	recordTTL time.Duration
	nowF      func() time.Time
}

// NewService wires the retention service. recordTTL is how long preserved
// records live before the sweep removes them.
func NewService(profiles HistoryWriter, sessions SessionScrubber, engines EngineDropper, emitter telemetry.EventEmitter, recordTTL time.Duration) *Service {
	return &Service{
		profiles:  profiles,
		sessions:  sessions,
		engines:   engines,
		emitter:   emitter,
		recordTTL: recordTTL,
		nowF:      func() time.Time { return time.Now().UTC() },
	}
}

// OnSessionCompleted runs the preserve-then-scrub sequence for a scored
// session:
//
//  1. append the preserved record to the user's profile — on failure, abort
//     with ErrRetentionPartial and touch nothing else;
//  2. drop the in-memory engine;
//  3. strip the session's conversational data.
//
// Steps 2 and 3 are best-effort: their failures are logged, not returned,
// because the preserved record already exists and a sweep can finish the job.
func (s *Service) OnSessionCompleted(ctx context.Context, sessionID, userID, assessmentType string, scored *scoring.ScoredAssessment) error {
	now := s.nowF()
	rec := profiledomain.PreservedAssessmentRecord{
		SessionID:          sessionID,
		AssessmentType:     assessmentType,
		AssessmentDate:     now,
		OverallBandScore:   scored.OverallBandScore,
		CriterionScores:    scored.CriterionScores,
		StructuredFeedback: scored.StructuredFeedback,
		ExpiryDate:         now.Add(s.recordTTL).Format(time.RFC3339),
	}
	if err := s.profiles.AppendAssessment(ctx, userID, rec); err != nil {
		return fmt.Errorf("%w: %v", ErrRetentionPartial, err)
	}

	s.engines.Drop(sessionID)

	if err := s.sessions.StripConversationData(ctx, sessionID); err != nil {
		log.Printf("retention: strip conversation data for session %s: %v", sessionID, err)
	}

	telemetry.EmitAsync(s.emitter, ctx, telemetry.NewEvent(
		telemetry.EventRetentionCleaned, "retention", userID, sessionID, nil))
	return nil
}

// SweepPreservedRecords removes preserved records past their expiry date.
func (s *Service) SweepPreservedRecords(ctx context.Context) (int, error) {
	return s.profiles.PruneExpired(ctx, s.nowF())
}

// SweepIdleSessions expires ACTIVE sessions with no activity since the idle
// TTL and drops their in-memory engines. Returns how many sessions expired.
func (s *Service) SweepIdleSessions(ctx context.Context, idleTTL time.Duration) (int, error) {
	cutoff := s.nowF().Add(-idleTTL)
	ids, err := s.sessions.MarkExpiredBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	s.engines.DropAll(ids)
	for _, id := range ids {
		telemetry.EmitAsync(s.emitter, ctx, telemetry.NewEvent(
			telemetry.EventSessionExpired, "retention", "", id, nil))
	}
	return len(ids), nil
}
