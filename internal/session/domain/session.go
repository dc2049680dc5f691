// Package domain defines the assessment session record and its status lifecycle.
package domain

import (
	"errors"
	"time"

	questiondomain "maya-assessment/backend/internal/question/domain"
)

// Status is the session lifecycle state. ACTIVE transitions to exactly one of
// the terminal states; sessions are never deleted, only status-transitioned.
type Status string

const (
	StatusActive    Status = "ACTIVE"
	StatusCompleted Status = "COMPLETED"
	StatusAbandoned Status = "ABANDONED"
	StatusExpired   Status = "EXPIRED"
)

// ErrSessionNotActive is returned when a turn is submitted against a session
// in a terminal state. Caller error; not retried.
var ErrSessionNotActive = errors.New("session is not active")

// Turn is one user response recorded in the session's transient conversation
// history. Retention strips these from the durable record after scoring.
type Turn struct {
	Stage     string    `json:"stage"`
	Text      string    `json:"text"`
	Duration  float64   `json:"duration_seconds"`
	Timestamp time.Time `json:"timestamp"`
}

// Session represents one assessment attempt.
//
// QuestionIDs is write-once: fixed at creation by the allocator, never
// mutated afterwards. ConversationHistory and TranscriptData are transient
// payloads that retention removes once the scored result is preserved.
type Session struct {
	ID                      string
	UserID                  string
	AssessmentType          questiondomain.AssessmentType
	Status                  Status
	QuestionIDs             map[questiondomain.Category][]string
	ConversationHistory     []Turn
	TranscriptData          map[string]string
	ConversationDataCleaned bool
	CreatedAt               time.Time
	LastActivityAt          time.Time
	CompletedAt             *time.Time // nil until the session reaches COMPLETED
}

// Terminal reports whether the session status is one of the terminal states.
func (s *Session) Terminal() bool {
	return s.Status == StatusCompleted || s.Status == StatusAbandoned || s.Status == StatusExpired
}
