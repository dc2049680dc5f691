// Package service orchestrates assessment conversations: it owns the engine
// lifecycle around persistence, hands completed sessions to the scorer, and
// triggers retention. Handlers talk to this package, never to the engine
// directly.
package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"maya-assessment/backend/internal/conversation"
	questiondomain "maya-assessment/backend/internal/question/domain"
	"maya-assessment/backend/internal/scoring"
	sessiondomain "maya-assessment/backend/internal/session/domain"
	"maya-assessment/backend/internal/telemetry"
)

// ErrSessionNotFound is returned when no session exists for the given id.
var ErrSessionNotFound = errors.New("session not found")

// ErrNotScorable is returned by RetryScoring when the session is not in a
// state where scoring applies (not COMPLETED, or already preserved).
var ErrNotScorable = errors.New("session is not awaiting scoring")

// SessionStore is the session persistence needed by the orchestrator.
type SessionStore interface {
	GetByID(ctx context.Context, id string) (*sessiondomain.Session, error)
	AppendTurn(ctx context.Context, id string, turn sessiondomain.Turn) error
	MarkCompleted(ctx context.Context, id string, at time.Time) error
}

// QuestionSource resolves reserved question ids when an engine has to be
// rebuilt after a restart.
type QuestionSource interface {
	GetByID(ctx context.Context, id string) (*questiondomain.Question, error)
}

// RetentionManager runs the preserve-then-scrub sequence after scoring.
type RetentionManager interface {
	OnSessionCompleted(ctx context.Context, sessionID, userID, assessmentType string, scored *scoring.ScoredAssessment) error
}

// TurnOutcome is what a processed turn produces for the API layer.
type TurnOutcome struct {
	Prompt             conversation.Prompt
	Notes              []conversation.Note
	AssessmentComplete bool
	Scored             *scoring.ScoredAssessment
	ScoringPending     bool
}

// Service orchestrates one conversation turn end to end.
type Service struct {
	sessions  SessionStore
	questions QuestionSource
	registry  *conversation.Registry
	evaluator conversation.Evaluator
	engineCfg conversation.Config
	scorer    scoring.Scorer
	retention RetentionManager
	emitter   telemetry.EventEmitter

	scorerTimeout time.Duration
	nowF          func() time.Time
}

// NewService wires the conversation orchestrator.
func NewService(
	sessions SessionStore,
	questions QuestionSource,
	registry *conversation.Registry,
	evaluator conversation.Evaluator,
	engineCfg conversation.Config,
	scorer scoring.Scorer,
	retention RetentionManager,
	emitter telemetry.EventEmitter,
	scorerTimeout time.Duration,
) *Service {
	return &Service{
		sessions:      sessions,
		questions:     questions,
		registry:      registry,
		evaluator:     evaluator,
		engineCfg:     engineCfg,
		scorer:        scorer,
		retention:     retention,
		emitter:       emitter,
		scorerTimeout: scorerTimeout,
		nowF:          func() time.Time { return time.Now().UTC() },
	}
}

// Begin registers a fresh engine for a just-created session and returns the
// opening prompt. Called by the allocation handler after a successful
// reservation.
func (s *Service) Begin(sess *sessiondomain.Session, questions map[questiondomain.Category][]*questiondomain.Question) conversation.Prompt {
	engine := conversation.NewEngine(sess, questions, s.evaluator, s.engineCfg)
	s.registry.Put(engine)
	return engine.Initialize()
}

// ProcessTurn records one user turn against the session, advances the
// dialogue, and, when the conversation closes, completes the session and runs
// scoring plus retention. A scorer failure leaves the session COMPLETED and
// reports scoring pending; it is never an error for the candidate.
func (s *Service) ProcessTurn(ctx context.Context, sessionID, text string, audioSeconds float64) (*TurnOutcome, error) {
	engine := s.registry.Get(sessionID)
	if engine == nil {
		var err error
		engine, err = s.rebuildEngine(ctx, sessionID)
		if err != nil {
			return nil, err
		}
	}

	result, err := engine.ProcessTurn(text, audioSeconds)
	if err != nil {
		if errors.Is(err, conversation.ErrConversationClosed) {
			return nil, sessiondomain.ErrSessionNotActive
		}
		return nil, err
	}

	turn := sessiondomain.Turn{
		Stage:     result.Recorded.Stage.String(),
		Text:      result.Recorded.Text,
		Duration:  result.Recorded.Duration,
		Timestamp: result.Recorded.Timestamp,
	}
	if err := s.sessions.AppendTurn(ctx, sessionID, turn); err != nil {
		// Best-effort: the live engine stays authoritative. A turn missing
		// from the persisted history only matters to a rebuild after a
		// restart, which then resumes from an earlier stage and re-asks.
		log.Printf("conversation: append turn for session %s: %v", sessionID, err)
	}

	outcome := &TurnOutcome{
		Prompt:             result.Prompt,
		Notes:              result.Notes,
		AssessmentComplete: result.AssessmentComplete,
	}
	if !result.AssessmentComplete {
		telemetry.EmitAsync(s.emitter, ctx, telemetry.NewEvent(
			telemetry.EventTurnProcessed, "conversation", "", sessionID, nil))
		return outcome, nil
	}

	sess, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, ErrSessionNotFound
	}
	if err := s.sessions.MarkCompleted(ctx, sessionID, s.nowF()); err != nil {
		return nil, fmt.Errorf("mark session completed: %w", err)
	}
	telemetry.EmitAsync(s.emitter, ctx, telemetry.NewEvent(
		telemetry.EventAssessmentCompleted, "conversation", sess.UserID, sessionID, nil))

	scored, err := s.scoreAndRetain(ctx, sess, engine.Summary())
	if err != nil {
		outcome.ScoringPending = true
		return outcome, nil
	}
	outcome.Scored = scored
	return outcome, nil
}

// RetryScoring re-runs scoring and retention for a COMPLETED session whose
// first scoring attempt failed. The summary comes from the live engine when
// one survives, otherwise it is rebuilt from the persisted turn history.
func (s *Service) RetryScoring(ctx context.Context, sessionID string) (*scoring.ScoredAssessment, error) {
	sess, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, ErrSessionNotFound
	}
	if sess.Status != sessiondomain.StatusCompleted || sess.ConversationDataCleaned {
		return nil, ErrNotScorable
	}

	var summary *scoring.Summary
	if engine := s.registry.Get(sessionID); engine != nil {
		summary = engine.Summary()
	} else {
		summary = summaryFromHistory(sess)
	}

	scored, err := s.scoreAndRetain(ctx, sess, summary)
	if err != nil {
		return nil, err
	}
	return scored, nil
}

// scoreAndRetain calls the scorer under its timeout and, on success, runs the
// retention sequence. Retention partial failure is logged, not surfaced: the
// candidate has a score, and the sweep finishes the cleanup.
func (s *Service) scoreAndRetain(ctx context.Context, sess *sessiondomain.Session, summary *scoring.Summary) (*scoring.ScoredAssessment, error) {
	scoreCtx, cancel := context.WithTimeout(ctx, s.scorerTimeout)
	defer cancel()
	scored, err := s.scorer.Score(scoreCtx, summary)
	if err != nil {
		log.Printf("conversation: scoring session %s: %v", sess.ID, err)
		telemetry.EmitAsync(s.emitter, ctx, telemetry.NewEvent(
			telemetry.EventScoringFailed, "scoring", sess.UserID, sess.ID, nil))
		return nil, err
	}
	telemetry.EmitAsync(s.emitter, ctx, telemetry.NewEvent(
		telemetry.EventScoringCompleted, "scoring", sess.UserID, sess.ID, nil))

	if err := s.retention.OnSessionCompleted(ctx, sess.ID, sess.UserID, string(sess.AssessmentType), scored); err != nil {
		log.Printf("conversation: retention for session %s: %v", sess.ID, err)
	}
	return scored, nil
}

// rebuildEngine reconstructs the engine for an ACTIVE session after a process
// restart: resolve the reserved questions, then replay the persisted turns so
// the state machine lands back on the stage the candidate last saw.
func (s *Service) rebuildEngine(ctx context.Context, sessionID string) (*conversation.Engine, error) {
	sess, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, ErrSessionNotFound
	}
	if sess.Status != sessiondomain.StatusActive {
		return nil, sessiondomain.ErrSessionNotActive
	}

	questions := make(map[questiondomain.Category][]*questiondomain.Question, len(sess.QuestionIDs))
	for category, ids := range sess.QuestionIDs {
		list := make([]*questiondomain.Question, 0, len(ids))
		for _, id := range ids {
			q, err := s.questions.GetByID(ctx, id)
			if err != nil {
				return nil, fmt.Errorf("resolve question %s: %w", id, err)
			}
			if q == nil {
				return nil, fmt.Errorf("resolve question %s: not found", id)
			}
			list = append(list, q)
		}
		questions[category] = list
	}

	engine := conversation.NewEngine(sess, questions, s.evaluator, s.engineCfg)
	for _, turn := range sess.ConversationHistory {
		if _, err := engine.ProcessTurn(turn.Text, turn.Duration); err != nil {
			break
		}
	}
	s.registry.Put(engine)
	return engine, nil
}

// summaryFromHistory builds a scorer summary straight from the persisted turn
// history. Evaluation notes are lost with the engine; the scorer copes.
func summaryFromHistory(sess *sessiondomain.Session) *scoring.Summary {
	counts := make(map[string]int)
	responses := make([]scoring.SummaryResponse, 0, len(sess.ConversationHistory))
	for _, turn := range sess.ConversationHistory {
		counts[partForStageName(turn.Stage)]++
		responses = append(responses, scoring.SummaryResponse{
			Text:            turn.Text,
			DurationSeconds: turn.Duration,
			Stage:           turn.Stage,
			Timestamp:       turn.Timestamp,
		})
	}
	return &scoring.Summary{
		SessionID:            sess.ID,
		AssessmentType:       string(sess.AssessmentType),
		ResponseCountsByPart: counts,
		Responses:            responses,
		CompletionStatus:     "completed",
	}
}

func partForStageName(name string) string {
	for stage := conversation.StageGreeting; stage <= conversation.StageClosing; stage++ {
		if stage.String() == name {
			return stage.Part()
		}
	}
	return "closing"
}
