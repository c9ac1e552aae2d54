// Cinefacet - Faceted Movie Similarity Recommender
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinefacet

package recommend

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/cinefacet/internal/artifact"
	"github.com/tomtom215/cinefacet/internal/corpus"
	"github.com/tomtom215/cinefacet/internal/document"
	"github.com/tomtom215/cinefacet/internal/facet"
	"github.com/tomtom215/cinefacet/internal/logging"
	"github.com/tomtom215/cinefacet/internal/similarity"
)

// testSnapshot has n items "Movie 0".."Movie n-1" where item i's genre score
// against j is 1/(1+|i-j|). The cast facet is absent.
func testSnapshot(t *testing.T, version int64, n int) *Snapshot {
	t.Helper()

	items := make([]corpus.Item, n)
	for i := range items {
		items[i] = corpus.Item{
			ID:      int64(100 + i),
			Title:   fmt.Sprintf("Movie %d", i),
			Details: document.Details{ID: int64(100 + i), Title: fmt.Sprintf("Movie %d", i)},
		}
	}

	data := make([]float32, n*n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			d := i - j
			if d < 0 {
				d = -d
			}
			data[i*n+j] = 1 / float32(1+d)
		}
	}
	m, err := similarity.NewMatrix(n, data)
	if err != nil {
		t.Fatalf("NewMatrix() error = %v", err)
	}

	snap, err := NewSnapshot(version, time.Now(), corpus.New(items), map[facet.Facet]*similarity.Matrix{
		facet.Genres: m,
		facet.Tags:   m,
	})
	if err != nil {
		t.Fatalf("NewSnapshot() error = %v", err)
	}
	return snap
}

func newTestEngine(t *testing.T, cfg *Config) *Engine {
	t.Helper()
	e, err := NewEngine(cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	return e
}

func TestNewEngine_InvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Views.CompactK = 0
	if _, err := NewEngine(cfg, zerolog.Nop()); err == nil {
		t.Error("NewEngine() should reject an invalid config")
	}
}

func TestEngine_NotReady(t *testing.T) {
	e := newTestEngine(t, nil)

	if e.Ready() {
		t.Error("Ready() should be false before Swap")
	}
	if _, err := e.Recommend(context.Background(), Request{Title: "x"}); !errors.Is(err, ErrNotReady) {
		t.Errorf("Recommend() error = %v, want ErrNotReady", err)
	}
	if _, err := e.ResolveTitle("x"); !errors.Is(err, ErrNotReady) {
		t.Errorf("ResolveTitle() error = %v, want ErrNotReady", err)
	}
	if st := e.Status(); st.Ready {
		t.Error("Status().Ready should be false")
	}
	for _, f := range e.Facets() {
		if f.Available {
			t.Errorf("facet %s should be unavailable", f.Name)
		}
	}
}

func TestEngine_RecommendViews(t *testing.T) {
	e := newTestEngine(t, nil)
	e.Swap(testSnapshot(t, 1, 40))

	tests := []struct {
		name string
		req  Request
		want int
	}{
		{"aggregate default", Request{Title: "Movie 10", Facet: facet.Genres, View: ViewAggregate}, 25},
		{"compact default", Request{Title: "Movie 10", Facet: facet.Genres, View: ViewCompact}, 5},
		{"explicit k", Request{Title: "Movie 10", Facet: facet.Genres, K: 3}, 3},
		{"k capped by corpus", Request{Title: "Movie 10", Facet: facet.Genres, K: 100}, 39},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := e.Recommend(context.Background(), tt.req)
			if err != nil {
				t.Fatalf("Recommend() error = %v", err)
			}
			if !resp.Found {
				t.Fatal("Found should be true")
			}
			if len(resp.Items) != tt.want {
				t.Errorf("len(Items) = %d, want %d", len(resp.Items), tt.want)
			}
			for _, it := range resp.Items {
				if it.Title == tt.req.Title {
					t.Error("results include the query item")
				}
			}
		})
	}
}

func TestEngine_RecommendOrdering(t *testing.T) {
	e := newTestEngine(t, nil)
	e.Swap(testSnapshot(t, 1, 10))

	resp, err := e.Recommend(context.Background(), Request{Title: "Movie 5", Facet: facet.Genres, K: 4})
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}

	// Neighbours at distance 1 first (row 4 before 6), then distance 2.
	want := []string{"Movie 4", "Movie 6", "Movie 3", "Movie 7"}
	for i, w := range want {
		if resp.Items[i].Title != w {
			t.Errorf("Items[%d] = %s, want %s", i, resp.Items[i].Title, w)
		}
	}
	if resp.Caption != "Movies similar to Movie 5 on the basis of genres are" {
		t.Errorf("Caption = %q", resp.Caption)
	}
	if resp.Metadata.Version != 1 || resp.Metadata.K != 4 {
		t.Errorf("Metadata = %+v", resp.Metadata)
	}
}

func TestEngine_UnknownTitleIsEmptyNotError(t *testing.T) {
	e := newTestEngine(t, nil)
	e.Swap(testSnapshot(t, 1, 5))

	resp, err := e.Recommend(context.Background(), Request{Title: "Nope", Facet: facet.Tags})
	if err != nil {
		t.Fatalf("Recommend() error = %v, want nil", err)
	}
	if resp.Found || len(resp.Items) != 0 {
		t.Errorf("resp = %+v, want not found and empty", resp)
	}
	if e.Status().NotFound != 1 {
		t.Errorf("NotFound = %d, want 1", e.Status().NotFound)
	}
}

func TestEngine_FacetErrors(t *testing.T) {
	e := newTestEngine(t, nil)
	e.Swap(testSnapshot(t, 1, 5))

	_, err := e.Recommend(context.Background(), Request{Title: "Movie 1", Facet: facet.Cast})
	if !errors.Is(err, ErrFacetUnavailable) {
		t.Errorf("skipped facet error = %v, want ErrFacetUnavailable", err)
	}

	_, err = e.Recommend(context.Background(), Request{Title: "Movie 1", Facet: facet.Facet(99)})
	if !errors.Is(err, facet.ErrUnknown) {
		t.Errorf("invalid facet error = %v, want facet.ErrUnknown", err)
	}
}

func TestEngine_Cache(t *testing.T) {
	e := newTestEngine(t, nil)
	e.Swap(testSnapshot(t, 1, 10))
	ctx := context.Background()
	req := Request{Title: "Movie 2", Facet: facet.Genres, K: 3}

	first, err := e.Recommend(ctx, req)
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	if first.Metadata.CacheHit {
		t.Error("first response should not be a cache hit")
	}

	second, err := e.Recommend(ctx, req)
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	if !second.Metadata.CacheHit {
		t.Error("second response should be a cache hit")
	}

	// Mutating a returned response must not leak into the cache.
	second.Items[0].Title = "mutated"
	third, _ := e.Recommend(ctx, req)
	if third.Items[0].Title == "mutated" {
		t.Error("cached response was mutated through a returned copy")
	}

	st := e.Status()
	if st.CacheHits != 2 || st.CacheMisses != 1 {
		t.Errorf("hits=%d misses=%d, want 2 and 1", st.CacheHits, st.CacheMisses)
	}
}

func TestEngine_CacheDisabled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Cache.Enabled = false
	e := newTestEngine(t, cfg)
	e.Swap(testSnapshot(t, 1, 4))

	req := Request{Title: "Movie 0", Facet: facet.Tags}
	_, _ = e.Recommend(context.Background(), req)
	resp, _ := e.Recommend(context.Background(), req)
	if resp.Metadata.CacheHit {
		t.Error("cache disabled but response was cached")
	}
}

func TestEngine_CacheExpiry(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Cache.TTL = time.Millisecond
	e := newTestEngine(t, cfg)
	e.Swap(testSnapshot(t, 1, 4))

	req := Request{Title: "Movie 0", Facet: facet.Tags}
	_, _ = e.Recommend(context.Background(), req)
	time.Sleep(5 * time.Millisecond)
	resp, _ := e.Recommend(context.Background(), req)
	if resp.Metadata.CacheHit {
		t.Error("expired entry should not be served")
	}
}

func TestEngine_SwapInvalidatesCache(t *testing.T) {
	e := newTestEngine(t, nil)
	e.Swap(testSnapshot(t, 1, 6))
	req := Request{Title: "Movie 1", Facet: facet.Genres}

	_, _ = e.Recommend(context.Background(), req)
	prev := e.Swap(testSnapshot(t, 2, 6))
	if prev == nil || prev.Version != 1 {
		t.Fatalf("Swap() returned %+v, want version 1", prev)
	}

	resp, err := e.Recommend(context.Background(), req)
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	if resp.Metadata.CacheHit || resp.Metadata.Version != 2 {
		t.Errorf("metadata = %+v, want fresh response from version 2", resp.Metadata)
	}
}

func TestEngine_RequestIDFromContext(t *testing.T) {
	e := newTestEngine(t, nil)
	e.Swap(testSnapshot(t, 1, 4))

	ctx := logging.ContextWithRequestID(context.Background(), "req-abc")
	resp, err := e.Recommend(ctx, Request{Title: "Movie 0", Facet: facet.Tags})
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	if resp.Metadata.RequestID != "req-abc" {
		t.Errorf("RequestID = %q, want req-abc", resp.Metadata.RequestID)
	}
}

func TestEngine_RecommendAll(t *testing.T) {
	e := newTestEngine(t, nil)
	e.Swap(testSnapshot(t, 1, 8))

	all, err := e.RecommendAll(context.Background(), Request{Title: "Movie 3", View: ViewCompact})
	if err != nil {
		t.Fatalf("RecommendAll() error = %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("len = %d, want 2 available facets", len(all))
	}
	if all[0].Facet != facet.Tags || all[1].Facet != facet.Genres {
		t.Errorf("facet order = %v, %v", all[0].Facet, all[1].Facet)
	}
	if all[0].Metadata.RequestID != all[1].Metadata.RequestID {
		t.Error("facet responses should share one request ID")
	}
}

func TestEngine_LookupsAndStatus(t *testing.T) {
	e := newTestEngine(t, nil)
	e.Swap(testSnapshot(t, 7, 12))

	row, err := e.ResolveTitle("Movie 11")
	if err != nil || row != 11 {
		t.Errorf("ResolveTitle() = %d, %v", row, err)
	}

	d, err := e.Details(104)
	if err != nil || d.Title != "Movie 4" {
		t.Errorf("Details(104) = %+v, %v", d, err)
	}
	if _, err := e.Details(1); !errors.Is(err, corpus.ErrNotFound) {
		t.Errorf("Details(1) error = %v, want ErrNotFound", err)
	}

	titles, err := e.Titles("movie 1", 0)
	if err != nil {
		t.Fatalf("Titles() error = %v", err)
	}
	if len(titles) != 3 { // Movie 1, Movie 10, Movie 11
		t.Errorf("Titles() = %v", titles)
	}

	var available []string
	for _, f := range e.Facets() {
		if f.Available {
			available = append(available, f.Name)
		}
	}
	if len(available) != 2 {
		t.Errorf("available facets = %v", available)
	}

	st := e.Status()
	if !st.Ready || st.Version != 7 || st.Items != 12 || len(st.Facets) != 2 {
		t.Errorf("Status() = %+v", st)
	}
	if e.Corpus().Len() != 12 {
		t.Errorf("Corpus().Len() = %d", e.Corpus().Len())
	}
}

func TestEngine_ConcurrentSwapAndRecommend(t *testing.T) {
	e := newTestEngine(t, nil)
	e.Swap(testSnapshot(t, 1, 20))
	snaps := []*Snapshot{testSnapshot(t, 2, 20), testSnapshot(t, 3, 20)}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				resp, err := e.Recommend(context.Background(), Request{
					Title: fmt.Sprintf("Movie %d", (i+j)%20),
					Facet: facet.Genres,
					View:  ViewCompact,
				})
				if err != nil || len(resp.Items) != 5 {
					t.Errorf("Recommend() = %v, %v", resp, err)
					return
				}
			}
		}(i)
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		for _, s := range snaps {
			e.Swap(s)
		}
	}()
	wg.Wait()
}

func TestNewSnapshot_Misaligned(t *testing.T) {
	m, _ := similarity.NewMatrix(2, []float32{1, 0, 0, 1})
	c := corpus.New([]corpus.Item{{ID: 1, Title: "A"}, {ID: 2, Title: "B"}, {ID: 3, Title: "C"}})

	_, err := NewSnapshot(1, time.Now(), c, map[facet.Facet]*similarity.Matrix{facet.Cast: m})
	if !errors.Is(err, similarity.ErrIndexMisalignment) {
		t.Errorf("NewSnapshot() error = %v, want ErrIndexMisalignment", err)
	}

	if _, err := NewSnapshot(1, time.Now(), nil, nil); err == nil {
		t.Error("NewSnapshot(nil corpus) should fail")
	}
}

func TestSnapshotFromBundle(t *testing.T) {
	m, _ := similarity.NewMatrix(2, []float32{1, 0.5, 0.5, 1})
	builtAt := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	b := &artifact.Bundle{
		Manifest: artifact.Manifest{Version: 9, BuiltAt: builtAt},
		Items:    []corpus.Item{{ID: 1, Title: "A"}, {ID: 2, Title: "B"}},
		Matrices: map[facet.Facet]*similarity.Matrix{facet.Keywords: m},
	}

	snap, err := SnapshotFromBundle(b)
	if err != nil {
		t.Fatalf("SnapshotFromBundle() error = %v", err)
	}
	if snap.Version != 9 || !snap.BuiltAt.Equal(builtAt) {
		t.Errorf("snapshot version=%d builtAt=%v", snap.Version, snap.BuiltAt)
	}
	if row, err := snap.Corpus.Resolve("B"); err != nil || row != 1 {
		t.Errorf("Resolve(B) = %d, %v", row, err)
	}
	if got := snap.Facets(); len(got) != 1 || got[0] != facet.Keywords {
		t.Errorf("Facets() = %v, want [keywords]", got)
	}

	if _, err := SnapshotFromBundle(nil); err == nil {
		t.Error("SnapshotFromBundle(nil) should fail")
	}
}

func TestEngine_CacheEvictsLeastRecentlyUsed(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Cache.MaxEntries = 1
	e := newTestEngine(t, cfg)
	e.Swap(testSnapshot(t, 1, 4))
	ctx := context.Background()

	a := Request{Title: "Movie 0", Facet: facet.Tags}
	b := Request{Title: "Movie 1", Facet: facet.Tags}
	_, _ = e.Recommend(ctx, a)
	_, _ = e.Recommend(ctx, b)

	resp, err := e.Recommend(ctx, a)
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	if resp.Metadata.CacheHit {
		t.Error("entry should have been evicted by a newer one")
	}
	resp, _ = e.Recommend(ctx, a)
	if !resp.Metadata.CacheHit {
		t.Error("re-added entry should be cached")
	}
}

func TestEngine_CacheKeyIncludesView(t *testing.T) {
	e := newTestEngine(t, nil)
	e.Swap(testSnapshot(t, 1, 10))
	ctx := context.Background()

	compact := Request{Title: "Movie 2", Facet: facet.Genres, K: 5, View: ViewCompact}
	aggregate := Request{Title: "Movie 2", Facet: facet.Genres, K: 5, View: ViewAggregate}

	if _, err := e.Recommend(ctx, compact); err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	resp, err := e.Recommend(ctx, aggregate)
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	if resp.Metadata.CacheHit {
		t.Error("aggregate request was served the cached compact response")
	}
	if resp.Metadata.View != ViewAggregate.String() {
		t.Errorf("view = %q, want %q", resp.Metadata.View, ViewAggregate.String())
	}
}
