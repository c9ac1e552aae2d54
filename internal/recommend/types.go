// Cinefacet - Faceted Movie Similarity Recommender
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinefacet

package recommend

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tomtom215/cinefacet/internal/facet"
)

var (
	// ErrNotReady is returned before the first snapshot is installed.
	ErrNotReady = errors.New("no artifacts loaded")

	// ErrFacetUnavailable is returned for a facet whose matrix was skipped
	// at build time.
	ErrFacetUnavailable = errors.New("facet not available")

	// ErrInvalidView is returned by ParseView.
	ErrInvalidView = errors.New("invalid view")
)

// View selects a presentation and its default list length.
type View uint8

const (
	// ViewAggregate is the all-facets page.
	ViewAggregate View = iota
	// ViewCompact is a single-facet panel.
	ViewCompact
)

func (v View) String() string {
	if v == ViewCompact {
		return "compact"
	}
	return "aggregate"
}

// ParseView parses "aggregate" or "compact". The empty string is aggregate.
func ParseView(s string) (View, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "aggregate", "full":
		return ViewAggregate, nil
	case "compact":
		return ViewCompact, nil
	default:
		return ViewAggregate, fmt.Errorf("%w: %q", ErrInvalidView, s)
	}
}

// Scored is a row index with its similarity to the query.
type Scored struct {
	Row   int
	Score float32
}

// Recommendation is one similar item.
type Recommendation struct {
	Row   int     `json:"row"`
	ID    int64   `json:"id"`
	Title string  `json:"title"`
	Score float32 `json:"score"`
}

// Request is a recommendation query.
type Request struct {
	Title string
	Facet facet.Facet
	View  View

	// K overrides the view's default length when positive.
	K int

	RequestID string
}

// Response is the result of Engine.Recommend.
type Response struct {
	Title   string           `json:"title"`
	Facet   facet.Facet      `json:"facet"`
	Caption string           `json:"caption"`
	Found   bool             `json:"found"`
	Items   []Recommendation `json:"items"`

	Metadata ResponseMetadata `json:"metadata"`
}

// ResponseMetadata describes how a response was produced.
type ResponseMetadata struct {
	RequestID string    `json:"request_id"`
	View      string    `json:"view"`
	K         int       `json:"k"`
	Version   int64     `json:"version"`
	LatencyUS int64     `json:"latency_us"`
	CacheHit  bool      `json:"cache_hit"`
	Timestamp time.Time `json:"timestamp"`
}

// FacetInfo describes one facet for listings.
type FacetInfo struct {
	Name      string `json:"name"`
	Label     string `json:"label"`
	Available bool   `json:"available"`
}

// Status summarizes the engine state.
type Status struct {
	Ready       bool      `json:"ready"`
	Version     int64     `json:"version"`
	BuiltAt     time.Time `json:"built_at,omitempty"`
	LoadedAt    time.Time `json:"loaded_at,omitempty"`
	Items       int       `json:"items"`
	Facets      []string  `json:"facets"`
	Requests    int64     `json:"requests"`
	CacheHits   int64     `json:"cache_hits"`
	CacheMisses int64     `json:"cache_misses"`
	NotFound    int64     `json:"not_found"`
}
