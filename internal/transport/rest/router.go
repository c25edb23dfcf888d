// Package rest is the ops HTTP surface: probes, metrics and admin reads.
package rest

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/heartmarshall/chatbot-backend/internal/transport/middleware"
)

// NewRouter mounts every endpoint behind the shared middleware stack.
func NewRouter(log *slog.Logger, health *HealthHandler, commands *CommandsHandler, metrics http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.RequestID(),
		middleware.Logger(log),
		middleware.Recovery(log),
	)

	r.Get("/live", health.Live)
	r.Get("/ready", health.Ready)
	r.Get("/health", health.Health)
	if metrics != nil {
		r.Method(http.MethodGet, "/metrics", metrics)
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/commands", commands.List)
	})

	return r
}
