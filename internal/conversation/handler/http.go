// Package handler exposes the assessment conversation over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"maya-assessment/backend/internal/conversation"
	conversationservice "maya-assessment/backend/internal/conversation/service"
	"maya-assessment/backend/internal/scoring"
	"maya-assessment/backend/internal/server/middleware"
	"maya-assessment/backend/internal/server/respond"
	sessiondomain "maya-assessment/backend/internal/session/domain"
)

// SessionReader loads sessions for ownership checks and the status endpoint.
type SessionReader interface {
	GetByID(ctx context.Context, id string) (*sessiondomain.Session, error)
}

// Turner processes turns and retries scoring.
type Turner interface {
	ProcessTurn(ctx context.Context, sessionID, text string, audioSeconds float64) (*conversationservice.TurnOutcome, error)
	RetryScoring(ctx context.Context, sessionID string) (*scoring.ScoredAssessment, error)
}

// Handler serves the conversation routes.
type Handler struct {
	service  Turner
	sessions SessionReader
}

// NewHandler returns the conversation handler.
func NewHandler(service Turner, sessions SessionReader) *Handler {
	return &Handler{service: service, sessions: sessions}
}

// RegisterRoutes mounts the conversation routes. Expects auth middleware already applied.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/v1/assessments/{sessionID}/turns", h.ProcessTurn)
	r.Post("/v1/assessments/{sessionID}/score", h.RetryScoring)
	r.Get("/v1/assessments/{sessionID}", h.GetSession)
}

type turnRequest struct {
	Text         string  `json:"text"`
	AudioSeconds float64 `json:"audio_seconds"`
}

type turnResponse struct {
	Prompt             conversation.Prompt       `json:"prompt"`
	AssessmentComplete bool                      `json:"assessment_complete"`
	ScoringPending     bool                      `json:"scoring_pending,omitempty"`
	Scored             *scoring.ScoredAssessment `json:"scored,omitempty"`
}

// ProcessTurn records one user turn and returns the examiner's next prompt.
// On the closing turn the response carries the scored result, or
// scoring_pending when the scorer was unavailable.
func (h *Handler) ProcessTurn(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess, ok := h.ownedSession(w, r)
	if !ok {
		return
	}
	// Status check here, not just in the engine: the expiry sweep runs in the
	// worker process and cannot drop this server's in-memory engines.
	if sess.Status != sessiondomain.StatusActive {
		respond.Error(w, http.StatusConflict, "session is not active")
		return
	}

	var req turnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	outcome, err := h.service.ProcessTurn(ctx, sess.ID, req.Text, req.AudioSeconds)
	if err != nil {
		switch {
		case errors.Is(err, sessiondomain.ErrSessionNotActive):
			respond.Error(w, http.StatusConflict, "session is not active")
		case errors.Is(err, conversationservice.ErrSessionNotFound):
			respond.Error(w, http.StatusNotFound, "session not found")
		default:
			respond.Error(w, http.StatusInternalServerError, "turn processing failed")
		}
		return
	}

	respond.JSON(w, http.StatusOK, turnResponse{
		Prompt:             outcome.Prompt,
		AssessmentComplete: outcome.AssessmentComplete,
		ScoringPending:     outcome.ScoringPending,
		Scored:             outcome.Scored,
	})
}

// RetryScoring re-runs scoring and retention for a COMPLETED session whose
// first scoring attempt failed.
func (h *Handler) RetryScoring(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess, ok := h.ownedSession(w, r)
	if !ok {
		return
	}

	scored, err := h.service.RetryScoring(ctx, sess.ID)
	if err != nil {
		switch {
		case errors.Is(err, conversationservice.ErrSessionNotFound):
			respond.Error(w, http.StatusNotFound, "session not found")
		case errors.Is(err, conversationservice.ErrNotScorable):
			respond.Error(w, http.StatusConflict, "session is not awaiting scoring")
		case errors.Is(err, scoring.ErrScoringUnavailable):
			respond.Error(w, http.StatusBadGateway, "scoring service unavailable")
		default:
			respond.Error(w, http.StatusInternalServerError, "scoring failed")
		}
		return
	}
	respond.JSON(w, http.StatusOK, scored)
}

type sessionResponse struct {
	SessionID               string  `json:"session_id"`
	AssessmentType          string  `json:"assessment_type"`
	Status                  string  `json:"status"`
	ConversationDataCleaned bool    `json:"conversation_data_cleaned"`
	CreatedAt               string  `json:"created_at"`
	CompletedAt             *string `json:"completed_at,omitempty"`
}

// GetSession returns the session's status view. Conversation content is never
// exposed here.
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.ownedSession(w, r)
	if !ok {
		return
	}

	resp := sessionResponse{
		SessionID:               sess.ID,
		AssessmentType:          string(sess.AssessmentType),
		Status:                  string(sess.Status),
		ConversationDataCleaned: sess.ConversationDataCleaned,
		CreatedAt:               sess.CreatedAt.Format(time.RFC3339),
	}
	if sess.CompletedAt != nil {
		s := sess.CompletedAt.Format(time.RFC3339)
		resp.CompletedAt = &s
	}
	respond.JSON(w, http.StatusOK, resp)
}

// ownedSession loads the session from the URL and verifies the caller owns
// it. Writes the error response and returns ok=false on any failure.
func (h *Handler) ownedSession(w http.ResponseWriter, r *http.Request) (*sessiondomain.Session, bool) {
	ctx := r.Context()
	userID, ok := middleware.GetUserID(ctx)
	if !ok || userID == "" {
		respond.Error(w, http.StatusUnauthorized, "missing identity")
		return nil, false
	}
	sessionID := chi.URLParam(r, "sessionID")
	if sessionID == "" {
		respond.Error(w, http.StatusBadRequest, "missing session id")
		return nil, false
	}
	sess, err := h.sessions.GetByID(ctx, sessionID)
	if err != nil {
		respond.Error(w, http.StatusInternalServerError, "session lookup failed")
		return nil, false
	}
	if sess == nil || sess.UserID != userID {
		respond.Error(w, http.StatusNotFound, "session not found")
		return nil, false
	}
	return sess, true
}
