// Package httptransport serves the grievance tools, health and metrics over
// HTTP.
package httptransport

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"pmkisan/internal/platform/metrics"
	"pmkisan/internal/platform/middleware"
)

// Deps wires the router. Validator is optional; when nil the tool routes are
// served without authentication.
type Deps struct {
	Tools     ToolCaller
	Logger    *slog.Logger
	Metrics   *metrics.Metrics
	Gatherer  prometheus.Gatherer
	Validator middleware.JWTValidator
}

// NewRouter wires all public endpoints.
func NewRouter(d Deps) http.Handler {
	if d.Gatherer == nil {
		d.Gatherer = prometheus.DefaultGatherer
	}

	r := chi.NewRouter()
	r.Use(middleware.Recovery(d.Logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(d.Logger))
	r.Use(middleware.Latency(d.Metrics))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))

	r.Group(func(r chi.Router) {
		r.Use(middleware.ContentTypeJSON)
		if d.Validator != nil {
			r.Use(middleware.RequireAuth(d.Validator, d.Logger))
		}
		NewToolHandler(d.Tools, d.Logger).Register(r)
	})

	return r
}
