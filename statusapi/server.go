/*
Package statusapi exposes the operator-facing HTTP surface: pass status
per entity, a tail of recent log lines, Prometheus metrics, and a manual
trigger endpoint. Routing uses a chi router with the standard middleware
stack and a cors.Handler with an explicit allow-list, scaled down to the
handful of read-mostly routes an operator dashboard needs instead of a
full CRUD API.
*/
package statusapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/warp/replica-sync/metrics"
)

// NewRouter wires every operator-facing route onto h.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/status", h.Status)
	r.Get("/logs", h.Logs)
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))
	r.Post("/sync/{entity}/trigger", h.Trigger)

	return r
}
