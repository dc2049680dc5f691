// Package handler implements the health endpoint for Kubernetes, load
// balancers, and CI.
package handler

import (
	"context"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"maya-assessment/backend/internal/server/respond"
)

// Pinger checks database connectivity (e.g. *sql.DB).
type Pinger interface {
	PingContext(ctx context.Context) error
}

// PolicyChecker verifies the entitlement policy engine compiles and evaluates
// (e.g. the OPA checker).
type PolicyChecker interface {
	HealthCheck(ctx context.Context) error
}

// Handler serves GET /healthz. Nil dependencies skip their check.
type Handler struct {
	pinger Pinger
	policy PolicyChecker
}

// NewHandler returns the health handler.
func NewHandler(pinger Pinger, policy PolicyChecker) *Handler {
	return &Handler{pinger: pinger, policy: policy}
}

// RegisterRoutes mounts the health route.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/healthz", h.Check)
}

type healthResponse struct {
	Status string `json:"status"`
}

// Check reports SERVING when every configured check passes, NOT_SERVING (503)
// otherwise. Check failures are logged, never returned as 5xx handler errors.
func (h *Handler) Check(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	healthy := true
	if h.pinger != nil {
		if err := h.pinger.PingContext(ctx); err != nil {
			log.Printf("health: db ping failed: %v", err)
			healthy = false
		}
	}
	if h.policy != nil {
		if err := h.policy.HealthCheck(ctx); err != nil {
			log.Printf("health: policy check failed: %v", err)
			healthy = false
		}
	}
	if !healthy {
		respond.JSON(w, http.StatusServiceUnavailable, healthResponse{Status: "NOT_SERVING"})
		return
	}
	respond.JSON(w, http.StatusOK, healthResponse{Status: "SERVING"})
}
