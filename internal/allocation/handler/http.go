// Package handler exposes assessment allocation over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	allocationservice "maya-assessment/backend/internal/allocation/service"
	"maya-assessment/backend/internal/conversation"
	conversationservice "maya-assessment/backend/internal/conversation/service"
	"maya-assessment/backend/internal/entitlement"
	profiledomain "maya-assessment/backend/internal/profile/domain"
	questiondomain "maya-assessment/backend/internal/question/domain"
	"maya-assessment/backend/internal/server/middleware"
	"maya-assessment/backend/internal/server/respond"
	"maya-assessment/backend/internal/telemetry"
)

// reservationRetries is how many times a conflicting reservation is retried
// before giving up. Conflicts are rare; one retry usually lands.
const reservationRetries = 2

// ProfileStore is the profile access the handler needs for entitlement and
// credit debits.
type ProfileStore interface {
	Get(ctx context.Context, userID string) (*profiledomain.Profile, error)
	DebitCredit(ctx context.Context, userID string) error
}

// Allocator reserves a question set and creates the session.
type Allocator interface {
	StartSession(ctx context.Context, userID string, at questiondomain.AssessmentType) (*allocationservice.StartResult, error)
}

// Handler serves POST /v1/assessments.
type Handler struct {
	allocator    Allocator
	conversation *conversationservice.Service
	profiles     ProfileStore
	checker      entitlement.Checker
	emitter      telemetry.EventEmitter
}

// NewHandler returns the allocation handler.
func NewHandler(allocator Allocator, convo *conversationservice.Service, profiles ProfileStore, checker entitlement.Checker, emitter telemetry.EventEmitter) *Handler {
	return &Handler{
		allocator:    allocator,
		conversation: convo,
		profiles:     profiles,
		checker:      checker,
		emitter:      emitter,
	}
}

// RegisterRoutes mounts the allocation routes. Expects auth middleware already applied.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/v1/assessments", h.StartAssessment)
}

type startRequest struct {
	AssessmentType string `json:"assessment_type"`
}

type startResponse struct {
	SessionID      string              `json:"session_id"`
	AssessmentType string              `json:"assessment_type"`
	Prompt         conversation.Prompt `json:"prompt"`
}

// StartAssessment checks entitlement, reserves a question set, debits a
// credit, and opens the conversation.
func (h *Handler) StartAssessment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := middleware.GetUserID(ctx)
	if !ok || userID == "" {
		respond.Error(w, http.StatusUnauthorized, "missing identity")
		return
	}

	var req startRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	at, err := questiondomain.ParseAssessmentType(req.AssessmentType)
	if err != nil {
		respond.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	profile, err := h.profiles.Get(ctx, userID)
	if err != nil {
		respond.Error(w, http.StatusInternalServerError, "profile lookup failed")
		return
	}
	decision, err := h.checker.Check(ctx, profile, string(at))
	if err != nil {
		respond.Error(w, http.StatusInternalServerError, "entitlement check failed")
		return
	}
	if !decision.Allowed {
		respond.Error(w, http.StatusForbidden, decision.Reason)
		return
	}

	var result *allocationservice.StartResult
	for attempt := 0; ; attempt++ {
		result, err = h.allocator.StartSession(ctx, userID, at)
		if err == nil || !errors.Is(err, allocationservice.ErrReservationConflict) || attempt >= reservationRetries {
			break
		}
	}
	if err != nil {
		var insufficient *allocationservice.InsufficientQuestionsError
		switch {
		case errors.As(err, &insufficient):
			respond.Error(w, http.StatusConflict, insufficient.Error())
		case errors.Is(err, allocationservice.ErrReservationConflict):
			respond.Error(w, http.StatusConflict, "reservation conflict, retry")
		default:
			respond.Error(w, http.StatusInternalServerError, "allocation failed")
		}
		return
	}

	if profile != nil && profile.Plan != "unlimited" {
		if err := h.profiles.DebitCredit(ctx, userID); err != nil {
			log.Printf("allocation: debit credit for user %s: %v", userID, err)
		}
	}

	prompt := h.conversation.Begin(result.Session, result.Questions)

	telemetry.EmitAsync(h.emitter, ctx, telemetry.NewEvent(
		telemetry.EventAssessmentStarted, "allocation", userID, result.Session.ID, nil))

	respond.JSON(w, http.StatusCreated, startResponse{
		SessionID:      result.Session.ID,
		AssessmentType: string(at),
		Prompt:         prompt,
	})
}
