// Package handler exposes question bank management over HTTP. Admin only.
package handler

import (
	"context"
	"encoding/json"
	"hash/fnv"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"maya-assessment/backend/internal/question/domain"
	"maya-assessment/backend/internal/server/middleware"
	"maya-assessment/backend/internal/server/respond"
	"maya-assessment/backend/internal/telemetry"
)

// Store is the question persistence the handler needs.
type Store interface {
	Create(ctx context.Context, q *domain.Question) error
	GetByID(ctx context.Context, id string) (*domain.Question, error)
	SetActive(ctx context.Context, id string, active bool) error
}

// Handler serves the question bank admin routes.
type Handler struct {
	store      Store
	emitter    telemetry.EventEmitter
	shardCount int
}

// NewHandler returns the question admin handler.
func NewHandler(store Store, emitter telemetry.EventEmitter, shardCount int) *Handler {
	return &Handler{store: store, emitter: emitter, shardCount: shardCount}
}

// RegisterRoutes mounts the question routes. Expects auth plus admin-role
// middleware already applied.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/v1/questions", h.CreateQuestion)
	r.Post("/v1/questions/{id}/deactivate", h.DeactivateQuestion)
}

type createRequest struct {
	AssessmentType string `json:"assessment_type"`
	Category       string `json:"category"`
	Text           string `json:"text"`
	MediaRef       string `json:"media_ref,omitempty"`
	RepeatPolicy   string `json:"repeat_policy"`
}

type createResponse struct {
	ID    string `json:"id"`
	Shard int    `json:"shard"`
}

// CreateQuestion adds one bank entry. The id is generated server-side and the
// shard is derived from it, so content authors never pick shards.
func (h *Handler) CreateQuestion(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	id := uuid.NewString()
	q := &domain.Question{
		ID:             id,
		AssessmentType: domain.AssessmentType(req.AssessmentType),
		Category:       domain.Category(req.Category),
		Shard:          shardFor(id, h.shardCount),
		Text:           req.Text,
		MediaRef:       req.MediaRef,
		RepeatPolicy:   domain.RepeatPolicy(req.RepeatPolicy),
		Active:         true,
		CreatedAt:      time.Now().UTC(),
	}
	if err := q.Validate(h.shardCount); err != nil {
		respond.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.store.Create(ctx, q); err != nil {
		respond.Error(w, http.StatusInternalServerError, "question create failed")
		return
	}

	adminID, _ := middleware.GetUserID(ctx)
	telemetry.EmitAsync(h.emitter, ctx, telemetry.NewEvent(
		telemetry.EventQuestionCreated, "question_admin", adminID, "", nil))

	respond.JSON(w, http.StatusCreated, createResponse{ID: q.ID, Shard: q.Shard})
}

// DeactivateQuestion retires a bank entry from future allocation. Existing
// sessions holding the question keep it.
func (h *Handler) DeactivateQuestion(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")
	if id == "" {
		respond.Error(w, http.StatusBadRequest, "missing question id")
		return
	}

	q, err := h.store.GetByID(ctx, id)
	if err != nil {
		respond.Error(w, http.StatusInternalServerError, "question lookup failed")
		return
	}
	if q == nil {
		respond.Error(w, http.StatusNotFound, "question not found")
		return
	}
	if err := h.store.SetActive(ctx, id, false); err != nil {
		respond.Error(w, http.StatusInternalServerError, "question deactivate failed")
		return
	}
	respond.JSON(w, http.StatusOK, map[string]string{"id": id, "status": "deactivated"})
}

// shardFor derives a stable shard from the question id.
func shardFor(id string, shardCount int) int {
	if shardCount <= 0 {
		return 0
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(id))
	return int(h.Sum32() % uint32(shardCount))
}
