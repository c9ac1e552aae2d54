// Cinefacet - Faceted Movie Similarity Recommender
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinefacet

package recommend

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/cinefacet/internal/cache"
	"github.com/tomtom215/cinefacet/internal/corpus"
	"github.com/tomtom215/cinefacet/internal/document"
	"github.com/tomtom215/cinefacet/internal/facet"
	"github.com/tomtom215/cinefacet/internal/logging"
	"github.com/tomtom215/cinefacet/internal/metrics"
)

// Engine serves recommendations from the current Snapshot.
// It is safe for concurrent use.
type Engine struct {
	config *Config
	logger zerolog.Logger

	snapshot atomic.Pointer[Snapshot]
	loadedAt atomic.Int64

	requestCount atomic.Int64
	cacheHits    atomic.Int64
	cacheMisses  atomic.Int64
	notFound     atomic.Int64

	cache *cache.LRU[*Response]
}

// NewEngine creates an engine with no snapshot. Recommend returns
// ErrNotReady until Swap is called.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewEngine(cfg *Config, logger zerolog.Logger) (*Engine, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &Engine{
		config: cfg,
		logger: logger.With().Str("component", "recommend").Logger(),
		cache:  cache.NewLRU[*Response](cfg.Cache.MaxEntries, cfg.Cache.TTL),
	}, nil
}

// Swap installs s and returns the previous snapshot. Cached responses of
// older versions are dropped.
func (e *Engine) Swap(s *Snapshot) *Snapshot {
	prev := e.snapshot.Swap(s)
	e.loadedAt.Store(time.Now().UnixNano())
	e.clearCache()

	facets := make([]string, 0, len(s.Matrices))
	for _, f := range s.Facets() {
		facets = append(facets, f.String())
	}
	e.logger.Info().
		Int64("version", s.Version).
		Int("items", s.Corpus.Len()).
		Strs("facets", facets).
		Msg("snapshot installed")
	metrics.SetServing(s.Version, s.Corpus.Len())

	return prev
}

// Snapshot returns the current snapshot or nil.
func (e *Engine) Snapshot() *Snapshot {
	return e.snapshot.Load()
}

// Ready reports whether a snapshot is installed.
func (e *Engine) Ready() bool {
	return e.snapshot.Load() != nil
}

// Recommend returns items similar to req.Title along req.Facet. An
// unresolved title yields a response with Found false and no items.
//
//nolint:gocritic // hugeParam: req passed by value for immutability
func (e *Engine) Recommend(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()
	e.requestCount.Add(1)

	snap := e.snapshot.Load()
	if snap == nil {
		metrics.RecordRecommendation(req.Facet.String(), metrics.OutcomeNotReady, time.Since(start))
		return nil, ErrNotReady
	}
	if !req.Facet.Valid() {
		metrics.RecordRecommendation("unknown", metrics.OutcomeBadRequest, time.Since(start))
		return nil, fmt.Errorf("%w: %d", facet.ErrUnknown, req.Facet)
	}
	m := snap.Matrix(req.Facet)
	if m == nil {
		metrics.RecordRecommendation(req.Facet.String(), metrics.OutcomeBadRequest, time.Since(start))
		return nil, fmt.Errorf("%w: %s", ErrFacetUnavailable, req.Facet)
	}

	req = e.prepareRequest(ctx, req)
	logger := e.logger.With().
		Str("request_id", req.RequestID).
		Str("facet", req.Facet.String()).
		Logger()

	key := cacheKey(snap.Version, req)
	if resp := e.tryGetCachedResponse(key, req, start); resp != nil {
		logger.Debug().Msg("cache hit")
		metrics.RecordRecommendation(req.Facet.String(), metrics.OutcomeOK, time.Since(start))
		return resp, nil
	}

	items := Recommend(snap.Corpus, m, req.Title, req.K)
	_, err := snap.Corpus.Resolve(req.Title)
	found := err == nil

	resp := &Response{
		Title:    req.Title,
		Facet:    req.Facet,
		Caption:  req.Facet.Caption(req.Title),
		Found:    found,
		Items:    items,
		Metadata: e.buildMetadata(snap, req, start, false),
	}

	outcome := metrics.OutcomeOK
	if !found {
		e.notFound.Add(1)
		outcome = metrics.OutcomeNotFound
		logger.Debug().Str("title", req.Title).Msg("title not found")
	}
	e.cacheResponse(key, resp)
	metrics.RecordRecommendation(req.Facet.String(), outcome, time.Since(start))

	logger.Debug().
		Int("returned", len(items)).
		Int64("latency_us", resp.Metadata.LatencyUS).
		Msg("recommendation complete")

	return resp, nil
}

// RecommendAll answers req for every available facet, in canonical order.
//
//nolint:gocritic // hugeParam: req passed by value for immutability
func (e *Engine) RecommendAll(ctx context.Context, req Request) ([]*Response, error) {
	snap := e.snapshot.Load()
	if snap == nil {
		return nil, ErrNotReady
	}
	if req.RequestID == "" {
		req.RequestID = requestID(ctx)
	}

	facets := snap.Facets()
	out := make([]*Response, 0, len(facets))
	for _, f := range facets {
		r := req
		r.Facet = f
		resp, err := e.Recommend(ctx, r)
		if err != nil {
			return nil, err
		}
		out = append(out, resp)
	}
	return out, nil
}

//nolint:gocritic // hugeParam: req passed by value for immutability
func (e *Engine) prepareRequest(ctx context.Context, req Request) Request {
	if req.RequestID == "" {
		req.RequestID = requestID(ctx)
	}
	if req.K <= 0 {
		req.K = e.config.DefaultK(req.View)
	}
	if req.K > e.config.Limits.MaxK {
		req.K = e.config.Limits.MaxK
	}
	return req
}

func requestID(ctx context.Context) string {
	if id := logging.RequestIDFromContext(ctx); id != "" {
		return id
	}
	return logging.NewRequestID()
}

//nolint:gocritic // hugeParam: req passed by value for immutability
func (e *Engine) tryGetCachedResponse(key string, req Request, start time.Time) *Response {
	if !e.config.Cache.Enabled {
		return nil
	}

	resp := e.checkCache(key)
	if resp == nil {
		e.cacheMisses.Add(1)
		metrics.RecordCache(false)
		return nil
	}

	e.cacheHits.Add(1)
	metrics.RecordCache(true)
	resp.Metadata.RequestID = req.RequestID
	resp.Metadata.CacheHit = true
	resp.Metadata.LatencyUS = time.Since(start).Microseconds()
	resp.Metadata.Timestamp = time.Now()
	return resp
}

//nolint:gocritic // hugeParam: req passed by value for immutability
func (e *Engine) buildMetadata(snap *Snapshot, req Request, start time.Time, cacheHit bool) ResponseMetadata {
	return ResponseMetadata{
		RequestID: req.RequestID,
		View:      req.View.String(),
		K:         req.K,
		Version:   snap.Version,
		LatencyUS: time.Since(start).Microseconds(),
		CacheHit:  cacheHit,
		Timestamp: time.Now(),
	}
}

// ResolveTitle returns the row of the first item titled title.
func (e *Engine) ResolveTitle(title string) (int, error) {
	snap := e.snapshot.Load()
	if snap == nil {
		return -1, ErrNotReady
	}
	return snap.Corpus.Resolve(title)
}

// Details returns the details of the item with the given id.
func (e *Engine) Details(id int64) (document.Details, error) {
	snap := e.snapshot.Load()
	if snap == nil {
		return document.Details{}, ErrNotReady
	}
	it, err := snap.Corpus.ByID(id)
	if err != nil {
		return document.Details{}, err
	}
	return it.Details, nil
}

// Titles returns up to limit titles starting with prefix.
func (e *Engine) Titles(prefix string, limit int) ([]string, error) {
	snap := e.snapshot.Load()
	if snap == nil {
		return nil, ErrNotReady
	}
	return snap.Corpus.Search(prefix, limit), nil
}

// Facets lists every facet and whether the current snapshot serves it.
func (e *Engine) Facets() []FacetInfo {
	snap := e.snapshot.Load()
	out := make([]FacetInfo, len(facet.All))
	for i, f := range facet.All {
		out[i] = FacetInfo{
			Name:      f.String(),
			Label:     f.Label(),
			Available: snap != nil && snap.Matrix(f) != nil,
		}
	}
	return out
}

// Status returns the engine state and counters.
func (e *Engine) Status() Status {
	st := Status{
		Requests:    e.requestCount.Load(),
		CacheHits:   e.cacheHits.Load(),
		CacheMisses: e.cacheMisses.Load(),
		NotFound:    e.notFound.Load(),
		Facets:      []string{},
	}

	snap := e.snapshot.Load()
	if snap == nil {
		return st
	}
	st.Ready = true
	st.Version = snap.Version
	st.BuiltAt = snap.BuiltAt
	st.LoadedAt = time.Unix(0, e.loadedAt.Load())
	st.Items = snap.Corpus.Len()
	for _, f := range snap.Facets() {
		st.Facets = append(st.Facets, f.String())
	}
	return st
}

// Corpus returns the current corpus, or nil.
func (e *Engine) Corpus() *corpus.Corpus {
	if snap := e.snapshot.Load(); snap != nil {
		return snap.Corpus
	}
	return nil
}

//nolint:gocritic // hugeParam: req passed by value for simplicity
func cacheKey(version int64, req Request) string {
	return fmt.Sprintf("rec:%d:%s:%s:%d:%s", version, req.Facet, req.View, req.K, req.Title)
}

// checkCache returns a copy of a live entry, or nil.
func (e *Engine) checkCache(key string) *Response {
	cached, ok := e.cache.Get(key)
	if !ok {
		return nil
	}

	resp := *cached
	resp.Items = make([]Recommendation, len(cached.Items))
	copy(resp.Items, cached.Items)
	return &resp
}

func (e *Engine) cacheResponse(key string, resp *Response) {
	if !e.config.Cache.Enabled {
		return
	}

	stored := *resp
	stored.Items = make([]Recommendation, len(resp.Items))
	copy(stored.Items, resp.Items)
	e.cache.Add(key, &stored)
}

func (e *Engine) clearCache() {
	e.cache.Clear()
}
