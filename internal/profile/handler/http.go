// Package handler exposes the user profile over HTTP.
package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"maya-assessment/backend/internal/profile/domain"
	"maya-assessment/backend/internal/server/middleware"
	"maya-assessment/backend/internal/server/respond"
)

// Store is the profile read access the handler needs.
type Store interface {
	Get(ctx context.Context, userID string) (*domain.Profile, error)
}

// Handler serves GET /v1/profile.
type Handler struct {
	store Store
}

// NewHandler returns the profile handler.
func NewHandler(store Store) *Handler {
	return &Handler{store: store}
}

// RegisterRoutes mounts the profile routes. Expects auth middleware already applied.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/v1/profile", h.GetProfile)
}

type profileResponse struct {
	UserID            string                             `json:"user_id"`
	Plan              string                             `json:"plan"`
	AssessmentCredits int                                `json:"assessment_credits"`
	AssessmentHistory []domain.PreservedAssessmentRecord `json:"assessment_history"`
}

// GetProfile returns the caller's profile including preserved assessment
// history. Missing profile is 404; profiles are provisioned by billing, not
// created here.
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := middleware.GetUserID(ctx)
	if !ok || userID == "" {
		respond.Error(w, http.StatusUnauthorized, "missing identity")
		return
	}

	profile, err := h.store.Get(ctx, userID)
	if err != nil {
		respond.Error(w, http.StatusInternalServerError, "profile lookup failed")
		return
	}
	if profile == nil {
		respond.Error(w, http.StatusNotFound, "profile not found")
		return
	}

	history := profile.AssessmentHistory
	if history == nil {
		history = []domain.PreservedAssessmentRecord{}
	}
	respond.JSON(w, http.StatusOK, profileResponse{
		UserID:            profile.UserID,
		Plan:              profile.Plan,
		AssessmentCredits: profile.AssessmentCredits,
		AssessmentHistory: history,
	})
}
