// Cinefacet - Faceted Movie Similarity Recommender
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinefacet

package artifact

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/tomtom215/cinefacet/internal/corpus"
	"github.com/tomtom215/cinefacet/internal/document"
	"github.com/tomtom215/cinefacet/internal/facet"
	"github.com/tomtom215/cinefacet/internal/similarity"
)

// testBundle builds n items with Tags and Genres matrices; Cast is skipped.
func testBundle(t *testing.T, n int) *Bundle {
	t.Helper()

	items := make([]corpus.Item, n)
	for i := range items {
		title := fmt.Sprintf("Movie %d", i)
		items[i] = corpus.Item{
			Row:   i,
			ID:    int64(100 + i),
			Title: title,
			Docs: map[facet.Facet]string{
				facet.Tags:   "space alien",
				facet.Genres: "science fiction",
			},
			Details: document.Details{ID: int64(100 + i), Title: title, Genres: []string{"Science Fiction"}},
		}
	}

	mk := func(seed float32) *similarity.Matrix {
		data := make([]float32, n*n)
		for i := 0; i < n; i++ {
			for j := 0; j < n; j++ {
				if i == j {
					data[i*n+j] = 1
					continue
				}
				data[i*n+j] = seed / float32(1+abs(i-j))
			}
		}
		m, err := similarity.NewMatrix(n, data)
		if err != nil {
			t.Fatalf("NewMatrix() error = %v", err)
		}
		return m
	}

	return &Bundle{
		BuildID: "abc12345",
		BuiltAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Items:   items,
		Matrices: map[facet.Facet]*similarity.Matrix{
			facet.Tags:   mk(0.9),
			facet.Genres: mk(0.5),
		},
		Skipped: []facet.Facet{facet.Cast},
	}
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// testStore runs the behavior every backend must share.
func testStore(t *testing.T, open func(t *testing.T) Store) {
	ctx := context.Background()

	t.Run("empty store", func(t *testing.T) {
		s := open(t)
		ok, err := s.Exists(ctx)
		if err != nil || ok {
			t.Fatalf("Exists() = %v, %v; want false, nil", ok, err)
		}
		if _, err := s.Latest(ctx); !errors.Is(err, ErrNoArtifacts) {
			t.Errorf("Latest() error = %v, want ErrNoArtifacts", err)
		}
		if _, err := s.Current(ctx); !errors.Is(err, ErrNoArtifacts) {
			t.Errorf("Current() error = %v, want ErrNoArtifacts", err)
		}
	})

	t.Run("round trip", func(t *testing.T) {
		s := open(t)
		want := testBundle(t, 5)

		m, err := s.Publish(ctx, want)
		if err != nil {
			t.Fatalf("Publish() error = %v", err)
		}
		if m.Version != 1 || m.Items != 5 {
			t.Errorf("manifest = v%d items=%d, want v1 items=5", m.Version, m.Items)
		}
		if len(m.Facets) != 2 || m.Facets[0] != facet.Tags || m.Facets[1] != facet.Genres {
			t.Errorf("manifest facets = %v, want [tags genres]", m.Facets)
		}
		if len(m.Checksums) != 3 {
			t.Errorf("manifest has %d checksums, want 3", len(m.Checksums))
		}

		ok, err := s.Exists(ctx)
		if err != nil || !ok {
			t.Fatalf("Exists() = %v, %v; want true, nil", ok, err)
		}

		got, err := s.Latest(ctx)
		if err != nil {
			t.Fatalf("Latest() error = %v", err)
		}
		if got.Manifest.Version != 1 || got.BuildID != "abc12345" {
			t.Errorf("loaded version=%d build=%q", got.Manifest.Version, got.BuildID)
		}
		if !got.BuiltAt.Equal(want.BuiltAt) {
			t.Errorf("BuiltAt = %v, want %v", got.BuiltAt, want.BuiltAt)
		}
		if len(got.Items) != 5 || got.Items[3].Title != "Movie 3" || got.Items[3].ID != 103 {
			t.Fatalf("items not restored: %+v", got.Items)
		}
		if got.Items[2].Doc(facet.Genres) != "science fiction" {
			t.Errorf("item docs not restored: %v", got.Items[2].Docs)
		}
		if got.Items[1].Details.Genres[0] != "Science Fiction" {
			t.Errorf("item details not restored: %+v", got.Items[1].Details)
		}
		for f, m := range want.Matrices {
			if !got.Matrices[f].Equal(m) {
				t.Errorf("matrix %s differs after round trip", f)
			}
		}
		if _, ok := got.Matrices[facet.Cast]; ok {
			t.Error("skipped facet should have no matrix")
		}
		if len(got.Skipped) != 1 || got.Skipped[0] != facet.Cast {
			t.Errorf("Skipped = %v, want [cast]", got.Skipped)
		}
	})

	t.Run("versions increment", func(t *testing.T) {
		s := open(t)
		for want := int64(1); want <= 3; want++ {
			m, err := s.Publish(ctx, testBundle(t, 3))
			if err != nil {
				t.Fatalf("Publish() error = %v", err)
			}
			if m.Version != want {
				t.Errorf("Publish() version = %d, want %d", m.Version, want)
			}
		}
		cur, err := s.Current(ctx)
		if err != nil {
			t.Fatalf("Current() error = %v", err)
		}
		if cur.Version != 3 {
			t.Errorf("Current() version = %d, want 3", cur.Version)
		}
	})

	t.Run("prune keeps newest", func(t *testing.T) {
		s := open(t)
		for i := 0; i < 4; i++ {
			if _, err := s.Publish(ctx, testBundle(t, 3)); err != nil {
				t.Fatalf("Publish() error = %v", err)
			}
		}
		if err := s.Prune(ctx, 2); err != nil {
			t.Fatalf("Prune() error = %v", err)
		}
		b, err := s.Latest(ctx)
		if err != nil {
			t.Fatalf("Latest() after prune error = %v", err)
		}
		if b.Manifest.Version != 4 {
			t.Errorf("Latest() version = %d, want 4", b.Manifest.Version)
		}
		m, err := s.Publish(ctx, testBundle(t, 3))
		if err != nil {
			t.Fatalf("Publish() after prune error = %v", err)
		}
		if m.Version != 5 {
			t.Errorf("version after prune = %d, want 5", m.Version)
		}
	})

	t.Run("invalid bundles", func(t *testing.T) {
		s := open(t)

		empty := testBundle(t, 2)
		empty.Items = nil
		if _, err := s.Publish(ctx, empty); err == nil {
			t.Error("Publish() of empty bundle should fail")
		}

		misaligned := testBundle(t, 4)
		misaligned.Items = misaligned.Items[:3]
		if _, err := s.Publish(ctx, misaligned); !errors.Is(err, similarity.ErrIndexMisalignment) {
			t.Errorf("Publish() error = %v, want ErrIndexMisalignment", err)
		}

		if ok, _ := s.Exists(ctx); ok {
			t.Error("rejected bundles must not publish anything")
		}
	})

	t.Run("canceled context", func(t *testing.T) {
		s := open(t)
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		if _, err := s.Publish(cctx, testBundle(t, 3)); !errors.Is(err, context.Canceled) {
			t.Errorf("Publish() error = %v, want context.Canceled", err)
		}
	})
}
