package middleware

import (
	"encoding/json"
	"net/http"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"maya-assessment/backend/internal/telemetry"
	"maya-assessment/backend/internal/telemetry/producer"
)

// httpRequestMetadata is the JSON shape stored in Event.Metadata for http_request events.
type httpRequestMetadata struct {
	Method     string `json:"method"`
	Path       string `json:"path"`
	StatusCode int    `json:"status_code"`
	DurationMs int64  `json:"duration_ms"`
	ClientIP   string `json:"client_ip"`
}

// Telemetry returns middleware that emits a telemetry event after each
// request. Best-effort: failures are logged and do not fail the request. If
// producer is nil, the middleware no-ops. skipPaths is the set of paths to not
// emit (e.g. /healthz).
func Telemetry(p producer.Producer, skipPaths map[string]bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if p == nil || skipPaths[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}
			start := time.Now()
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			meta := httpRequestMetadata{
				Method:     r.Method,
				Path:       r.URL.Path,
				StatusCode: ww.Status(),
				DurationMs: time.Since(start).Milliseconds(),
				ClientIP:   r.RemoteAddr,
			}
			metaJSON, _ := json.Marshal(meta)
			userID, _ := GetUserID(r.Context())
			event := telemetry.NewEvent("http_request", "http_middleware", userID, "", metaJSON)
			telemetry.EmitAsync(p, r.Context(), event)
		})
	}
}
