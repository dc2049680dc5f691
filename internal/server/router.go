// Package server assembles the HTTP router from the per-domain handlers.
package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	allocationhandler "maya-assessment/backend/internal/allocation/handler"
	conversationhandler "maya-assessment/backend/internal/conversation/handler"
	healthhandler "maya-assessment/backend/internal/health/handler"
	profilehandler "maya-assessment/backend/internal/profile/handler"
	questionhandler "maya-assessment/backend/internal/question/handler"
	"maya-assessment/backend/internal/server/middleware"
	"maya-assessment/backend/internal/telemetry/producer"
)

// Deps holds the handler dependencies for the HTTP router.
//
// Route → handler mapping:
//   - POST /v1/assessments                        → internal/allocation/handler
//   - POST /v1/assessments/{sessionID}/turns      → internal/conversation/handler
//   - POST /v1/assessments/{sessionID}/score      → internal/conversation/handler
//   - GET  /v1/assessments/{sessionID}            → internal/conversation/handler
//   - GET  /v1/profile                            → internal/profile/handler
//   - POST /v1/questions, …/deactivate (admin)    → internal/question/handler
//   - GET  /healthz (public)                      → internal/health/handler
type Deps struct {
	// Tokens validates access tokens for all /v1 routes.
	Tokens middleware.Verifier
	// Producer emits per-request telemetry events. May be nil.
	Producer producer.Producer

	Allocation   *allocationhandler.Handler
	Conversation *conversationhandler.Handler
	Profile      *profilehandler.Handler
	Question     *questionhandler.Handler
	Health       *healthhandler.Handler
}

// NewRouter builds the chi router with the standard middleware stack:
// request id, real ip, logging, panic recovery, then telemetry; /v1 routes
// additionally require a valid Bearer token.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.Telemetry(deps.Producer, map[string]bool{"/healthz": true}))

	if deps.Health != nil {
		deps.Health.RegisterRoutes(r)
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(deps.Tokens))

		if deps.Allocation != nil {
			deps.Allocation.RegisterRoutes(r)
		}
		if deps.Conversation != nil {
			deps.Conversation.RegisterRoutes(r)
		}
		if deps.Profile != nil {
			deps.Profile.RegisterRoutes(r)
		}

		if deps.Question != nil {
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAdmin)
				deps.Question.RegisterRoutes(r)
			})
		}
	})

	return r
}
