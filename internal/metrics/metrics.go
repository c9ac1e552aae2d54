// Cinefacet - Faceted Movie Similarity Recommender
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinefacet

// Package metrics declares the Prometheus collectors for the build pipeline,
// the recommender and the HTTP API. Collectors register with the default
// registry on import and are scraped from /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Facet build outcomes.
const (
	OutcomeBuilt   = "built"
	OutcomeSkipped = "skipped"
)

// Recommendation request outcomes.
const (
	OutcomeOK         = "ok"
	OutcomeNotFound   = "not_found"
	OutcomeBadRequest = "bad_request"
	OutcomeNotReady   = "not_ready"
)

var (
	// Pipeline
	BuildStageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cinefacet_build_stage_duration_seconds",
			Help:    "Duration of pipeline build stages in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 120, 300},
		},
		[]string{"stage"}, // ingest, assemble, facet, publish
	)

	FacetBuilds = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cinefacet_facet_builds_total",
			Help: "Facet matrix builds by outcome",
		},
		[]string{"facet", "outcome"},
	)

	ParseErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cinefacet_parse_errors_total",
			Help: "Structured field parse failures recovered as empty lists",
		},
		[]string{"field"},
	)

	RecordsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cinefacet_records_dropped_total",
			Help: "Input records dropped for missing mandatory fields",
		},
	)

	CorpusSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cinefacet_corpus_items",
			Help: "Number of items in the serving corpus",
		},
	)

	ArtifactVersion = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cinefacet_artifact_version",
			Help: "Version of the artifact set currently served",
		},
	)

	// Recommender
	RecommendRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cinefacet_recommend_requests_total",
			Help: "Recommendation requests by facet and outcome",
		},
		[]string{"facet", "outcome"},
	)

	RecommendDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cinefacet_recommend_duration_seconds",
			Help:    "Recommendation latency in seconds",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
		},
		[]string{"facet"},
	)

	RecommendCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cinefacet_recommend_cache_hits_total",
			Help: "Recommendation responses served from cache",
		},
	)

	RecommendCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cinefacet_recommend_cache_misses_total",
			Help: "Recommendation responses computed",
		},
	)

	// API
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cinefacet_api_requests_total",
			Help: "HTTP requests by method, route and status",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cinefacet_api_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cinefacet_api_active_requests",
			Help: "HTTP requests currently being served",
		},
	)
)

// RecordStage observes the duration of a pipeline stage.
func RecordStage(stage string, d time.Duration) {
	BuildStageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// RecordFacetBuild counts a facet outcome.
func RecordFacetBuild(facet string, skipped bool) {
	outcome := OutcomeBuilt
	if skipped {
		outcome = OutcomeSkipped
	}
	FacetBuilds.WithLabelValues(facet, outcome).Inc()
}

// RecordParseError counts one recovered parse failure for field.
func RecordParseError(field string) {
	ParseErrors.WithLabelValues(field).Inc()
}

// SetServing updates the gauges describing the served artifact set.
func SetServing(version int64, items int) {
	ArtifactVersion.Set(float64(version))
	CorpusSize.Set(float64(items))
}

// RecordRecommendation counts one recommendation request.
func RecordRecommendation(facet, outcome string, d time.Duration) {
	RecommendRequests.WithLabelValues(facet, outcome).Inc()
	RecommendDuration.WithLabelValues(facet).Observe(d.Seconds())
}

// RecordCache counts a response cache lookup.
func RecordCache(hit bool) {
	if hit {
		RecommendCacheHits.Inc()
		return
	}
	RecommendCacheMisses.Inc()
}

// RecordAPIRequest records an API request metric.
func RecordAPIRequest(method, endpoint string, status int, d time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(status)).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(d.Seconds())
}

// TrackActiveRequest increments or decrements the in-flight gauge.
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}
