// Cinefacet - Faceted Movie Similarity Recommender
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinefacet

package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/cinefacet/internal/corpus"
	"github.com/tomtom215/cinefacet/internal/facet"
	"github.com/tomtom215/cinefacet/internal/models"
	"github.com/tomtom215/cinefacet/internal/pipeline"
	"github.com/tomtom215/cinefacet/internal/recommend"
)

const (
	defaultTitleLimit = 50
	maxTitleLimit     = 1000
)

// Rebuilder runs the build pipeline on demand.
type Rebuilder interface {
	Run(ctx context.Context, force bool) (*pipeline.RunResult, error)
}

// Handler serves the HTTP API over a recommendation engine.
type Handler struct {
	engine    *recommend.Engine
	rebuilder Rebuilder
	startTime time.Time
}

// NewHandler creates a Handler. rebuilder may be nil, in which case the
// rebuild endpoint is not routed.
func NewHandler(engine *recommend.Engine, rebuilder Rebuilder) *Handler {
	return &Handler{
		engine:    engine,
		rebuilder: rebuilder,
		startTime: time.Now(),
	}
}

type recommendationsQuery struct {
	Title string `query:"title" validate:"required,max=500"`
	Facet string `query:"facet" validate:"omitempty,facet"`
	View  string `query:"view" validate:"omitempty,view"`
	K     int    `query:"k" validate:"gte=0"` // capped by recommend.max_k in the engine
}

// aggregateRecommendations is the payload when no facet is requested.
type aggregateRecommendations struct {
	Title  string                `json:"title"`
	Found  bool                  `json:"found"`
	Facets []*recommend.Response `json:"facets"`
}

// Recommendations handles GET /api/v1/recommendations.
//
// An unresolved title is not an error: the response has found=false and an
// empty item list.
func (h *Handler) Recommendations(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	q := r.URL.Query()

	k, ok := intParam(r, "k", 0)
	if !ok {
		respondError(w, r, http.StatusBadRequest, models.ErrCodeValidation, "k must be an integer", nil)
		return
	}
	req := recommendationsQuery{
		Title: q.Get("title"),
		Facet: q.Get("facet"),
		View:  q.Get("view"),
		K:     k,
	}
	if !validateRequest(w, r, &req) {
		return
	}

	view, err := recommend.ParseView(req.View)
	if err != nil {
		respondError(w, r, http.StatusBadRequest, models.ErrCodeValidation, err.Error(), nil)
		return
	}
	rreq := recommend.Request{Title: req.Title, View: view, K: req.K}

	if req.Facet == "" {
		resps, err := h.engine.RecommendAll(r.Context(), rreq)
		if err != nil {
			h.respondEngineError(w, r, err)
			return
		}
		data := aggregateRecommendations{Title: req.Title, Facets: resps}
		meta := models.Metadata{QueryTimeMS: time.Since(start).Milliseconds()}
		if len(resps) > 0 {
			data.Found = resps[0].Found
			meta.Version = resps[0].Metadata.Version
		}
		respondSuccess(w, r, data, meta)
		return
	}

	f, err := facet.Parse(req.Facet)
	if err != nil {
		respondError(w, r, http.StatusBadRequest, models.ErrCodeValidation, err.Error(), nil)
		return
	}
	rreq.Facet = f
	resp, err := h.engine.Recommend(r.Context(), rreq)
	if err != nil {
		h.respondEngineError(w, r, err)
		return
	}
	respondSuccess(w, r, resp, models.Metadata{
		QueryTimeMS: time.Since(start).Milliseconds(),
		Cached:      resp.Metadata.CacheHit,
		Version:     resp.Metadata.Version,
	})
}

type resolveQuery struct {
	Title string `query:"title" validate:"required,max=500"`
}

// ResolveTitle handles GET /api/v1/titles/resolve.
func (h *Handler) ResolveTitle(w http.ResponseWriter, r *http.Request) {
	req := resolveQuery{Title: r.URL.Query().Get("title")}
	if !validateRequest(w, r, &req) {
		return
	}

	snap := h.engine.Snapshot()
	if snap == nil {
		h.respondEngineError(w, r, recommend.ErrNotReady)
		return
	}

	res := models.TitleResolution{Title: req.Title, Row: -1}
	if row, err := snap.Corpus.Resolve(req.Title); err == nil {
		res.Found = true
		res.Row = row
		res.ID = snap.Corpus.Item(row).ID
	}
	respondSuccess(w, r, res, models.Metadata{Version: snap.Version})
}

type titlesQuery struct {
	Prefix string `query:"prefix" validate:"max=200"`
	Limit  int    `query:"limit" validate:"gte=1,lte=1000"`
}

// Titles handles GET /api/v1/titles.
func (h *Handler) Titles(w http.ResponseWriter, r *http.Request) {
	limit, ok := intParam(r, "limit", defaultTitleLimit)
	if !ok {
		respondError(w, r, http.StatusBadRequest, models.ErrCodeValidation, "limit must be an integer", nil)
		return
	}
	req := titlesQuery{Prefix: r.URL.Query().Get("prefix"), Limit: limit}
	if !validateRequest(w, r, &req) {
		return
	}

	titles, err := h.engine.Titles(req.Prefix, min(req.Limit, maxTitleLimit))
	if err != nil {
		h.respondEngineError(w, r, err)
		return
	}
	if titles == nil {
		titles = []string{}
	}
	respondSuccess(w, r, models.TitleList{
		Prefix: req.Prefix,
		Titles: titles,
		Total:  len(titles),
	}, models.Metadata{Version: h.engine.Status().Version})
}

// Item handles GET /api/v1/items/{id}.
func (h *Handler) Item(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, r, http.StatusBadRequest, models.ErrCodeValidation, "id must be an integer", nil)
		return
	}

	details, err := h.engine.Details(id)
	if err != nil {
		h.respondEngineError(w, r, err)
		return
	}
	respondSuccess(w, r, details, models.Metadata{Version: h.engine.Status().Version})
}

// Facets handles GET /api/v1/facets.
func (h *Handler) Facets(w http.ResponseWriter, r *http.Request) {
	respondSuccess(w, r, h.engine.Facets(), models.Metadata{Version: h.engine.Status().Version})
}

// Status handles GET /api/v1/status.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	st := h.engine.Status()
	respondSuccess(w, r, st, models.Metadata{Version: st.Version})
}

// Health handles GET /health. It reports 503 until artifacts are loaded.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	st := h.engine.Status()
	health := models.HealthResponse{
		Status:  "healthy",
		Ready:   st.Ready,
		Version: st.Version,
		Items:   st.Items,
		Uptime:  time.Since(h.startTime).Round(time.Second).String(),
	}
	status := http.StatusOK
	if !st.Ready {
		health.Status = "starting"
		status = http.StatusServiceUnavailable
	}
	respondJSON(w, r, status, &models.APIResponse{
		Status:   models.StatusSuccess,
		Data:     health,
		Metadata: models.Metadata{Version: st.Version},
	})
}

// Rebuild handles POST /api/v1/rebuild. The build runs synchronously on the
// request context; ?force=false allows the skip-if-present check.
func (h *Handler) Rebuild(w http.ResponseWriter, r *http.Request) {
	if h.rebuilder == nil {
		respondError(w, r, http.StatusNotFound, models.ErrCodeNotFound, "rebuild is not enabled", nil)
		return
	}
	force := !strings.EqualFold(r.URL.Query().Get("force"), "false")

	start := time.Now()
	res, err := h.rebuilder.Run(r.Context(), force)
	if err != nil {
		if errors.Is(err, pipeline.ErrRunInProgress) {
			respondError(w, r, http.StatusConflict, models.ErrCodeBuildRunning, "a build is already running", nil)
			return
		}
		respondError(w, r, http.StatusInternalServerError, models.ErrCodeInternal, "rebuild failed", err)
		return
	}
	respondSuccess(w, r, models.RebuildResponse{
		BuildID: res.BuildID,
		Version: res.Manifest.Version,
		Skipped: res.Skipped,
		Items:   res.Manifest.Items,
	}, models.Metadata{
		QueryTimeMS: time.Since(start).Milliseconds(),
		Version:     res.Manifest.Version,
	})
}

// respondEngineError maps engine errors to HTTP statuses.
func (h *Handler) respondEngineError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, recommend.ErrNotReady):
		respondError(w, r, http.StatusServiceUnavailable, models.ErrCodeNotReady, "artifacts are not loaded yet", nil)
	case errors.Is(err, recommend.ErrFacetUnavailable):
		respondError(w, r, http.StatusNotFound, models.ErrCodeUnavailable, err.Error(), nil)
	case errors.Is(err, facet.ErrUnknown), errors.Is(err, recommend.ErrInvalidView):
		respondError(w, r, http.StatusBadRequest, models.ErrCodeValidation, err.Error(), nil)
	case errors.Is(err, corpus.ErrNotFound):
		respondError(w, r, http.StatusNotFound, models.ErrCodeNotFound, "item not found", nil)
	default:
		respondError(w, r, http.StatusInternalServerError, models.ErrCodeInternal, "internal error", err)
	}
}
