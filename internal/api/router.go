// Cinefacet - Faceted Movie Similarity Recommender
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinefacet

// Package api exposes the recommender over HTTP using the chi router.
//
// Routes:
//
//	GET  /health
//	GET  /metrics
//	GET  /api/v1/facets
//	GET  /api/v1/recommendations?title=&facet=&view=&k=
//	GET  /api/v1/titles?prefix=&limit=
//	GET  /api/v1/titles/resolve?title=
//	GET  /api/v1/items/{id}
//	GET  /api/v1/status
//	POST /api/v1/rebuild?force=
//
// Every JSON response uses the models.APIResponse envelope.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/cinefacet/internal/models"
)

// RouterConfig tunes the router.
type RouterConfig struct {
	// Timeout bounds handler execution. Zero disables it.
	Timeout time.Duration

	// RebuildRateLimit caps rebuild requests per minute per IP.
	RebuildRateLimit int
}

// NewRouter builds the chi router for h.
func NewRouter(h *Handler, mw *Middleware, cfg RouterConfig) http.Handler {
	if mw == nil {
		mw = NewMiddleware(nil)
	}

	r := chi.NewRouter()

	r.Use(RequestIDWithLogging())
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(APIMetrics())
	r.Use(mw.CORS())

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, r, http.StatusNotFound, models.ErrCodeNotFound, "route not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, r, http.StatusMethodNotAllowed, models.ErrCodeValidation, "method not allowed", nil)
	})

	r.Get("/health", h.Health)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(SecurityHeaders())
		r.Use(mw.RateLimit())

		r.Group(func(r chi.Router) {
			if cfg.Timeout > 0 {
				r.Use(chimiddleware.Timeout(cfg.Timeout))
			}
			r.Get("/facets", h.Facets)
			r.Get("/recommendations", h.Recommendations)
			r.Get("/titles", h.Titles)
			r.Get("/titles/resolve", h.ResolveTitle)
			r.Get("/items/{id}", h.Item)
			r.Get("/status", h.Status)
		})

		// Builds outlive the read timeout.
		if h.rebuilder != nil {
			limit := cfg.RebuildRateLimit
			if limit <= 0 {
				limit = 2
			}
			r.With(mw.limitPerMinute(limit)).Post("/rebuild", h.Rebuild)
		}
	})

	return r
}
