// Package telemetry defines the assessment platform's telemetry events and
// the emitter interface used to ship them. Events are best-effort everywhere:
// no request fails because telemetry could not be written.
package telemetry

import (
	"encoding/json"
	"time"
)

// Event types emitted by the assessment services.
const (
	EventAssessmentStarted   = "assessment_started"
	EventTurnProcessed       = "turn_processed"
	EventAssessmentCompleted = "assessment_completed"
	EventScoringCompleted    = "scoring_completed"
	EventScoringFailed       = "scoring_failed"
	EventRetentionCleaned    = "retention_cleaned"
	EventSessionExpired      = "session_expired"
	EventQuestionCreated     = "question_created"
)

// Event is one telemetry event. JSON field names are part of the pipeline
// contract: the Loki pump parses eventType/source/createdAt out of the Kafka
// message value for stream labels.
type Event struct {
	UserID    string          `json:"userId,omitempty"`
	SessionID string          `json:"sessionId,omitempty"`
	EventType string          `json:"eventType"`
	Source    string          `json:"source"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
}

// NewEvent builds an event stamped with the current time. metadata may be nil.
func NewEvent(eventType, source, userID, sessionID string, metadata json.RawMessage) *Event {
	return &Event{
		UserID:    userID,
		SessionID: sessionID,
		EventType: eventType,
		Source:    source,
		Metadata:  metadata,
		CreatedAt: time.Now().UTC(),
	}
}
