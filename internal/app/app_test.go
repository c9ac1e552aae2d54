// Cinefacet - Faceted Movie Similarity Recommender
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinefacet

package app

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomtom215/cinefacet/internal/config"
	"github.com/tomtom215/cinefacet/internal/facet"
	"github.com/tomtom215/cinefacet/internal/recommend"
)

func writeCSV(t *testing.T, path string, rows [][]string) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	w := csv.NewWriter(f)
	require.NoError(t, w.WriteAll(rows))
	require.NoError(t, f.Close())
}

func movie(id, title, genres, keywords, company string) []string {
	return []string{
		id, title, "A story about " + title, genres, keywords, company,
		"2009-12-10", "1000", "2000", "120", "12.5", "7.5", "100", `[{"iso_639_1": "en", "name": "English"}]`, "Released",
	}
}

func testConfig(t *testing.T, backend string) *config.Config {
	t.Helper()
	dir := t.TempDir()
	movies := filepath.Join(dir, "movies.csv")
	credits := filepath.Join(dir, "credits.csv")

	space := `[{"id": 878, "name": "Science Fiction"}, {"id": 28, "name": "Action"}]`
	writeCSV(t, movies, [][]string{
		{"id", "title", "overview", "genres", "keywords", "production_companies",
			"release_date", "budget", "revenue", "runtime", "popularity", "vote_average", "vote_count", "spoken_languages", "status"},
		movie("1", "Avatar", space, `[{"id": 1, "name": "alien planet"}]`, `[{"id": 9, "name": "Lightstorm"}]`),
		movie("2", "Avatar Returns", space, `[{"id": 1, "name": "alien planet"}]`, `[{"id": 9, "name": "Lightstorm"}]`),
		movie("3", "Quiet Meadow", `[{"id": 18, "name": "Drama"}]`, `[{"id": 2, "name": "farm life"}]`, `[{"id": 7, "name": "Field Films"}]`),
	})
	writeCSV(t, credits, [][]string{
		{"movie_id", "title", "cast", "crew"},
		{"1", "Avatar", `[{"id": 1, "name": "Sam Worthington"}]`, `[{"job": "Director", "name": "James Cameron"}]`},
		{"2", "Avatar Returns", `[{"id": 1, "name": "Sam Worthington"}]`, `[{"job": "Director", "name": "James Cameron"}]`},
		{"3", "Quiet Meadow", `[{"id": 2, "name": "Ann Field"}]`, `[{"job": "Director", "name": "Ron Hill"}]`},
	})

	return &config.Config{
		Data:      config.DataConfig{MoviesPath: movies, CreditsPath: credits},
		Pipeline:  config.PipelineConfig{MaxFeatures: 5000, CastLimit: 10, Workers: 2},
		Artifacts: config.ArtifactsConfig{Backend: backend, Path: filepath.Join(dir, "artifacts"), KeepVersions: 2},
		Recommend: config.RecommendConfig{AggregateK: 25, CompactK: 5, MaxK: 100, CacheEnabled: true, CacheTTL: time.Minute, CacheMaxEntries: 100},
	}
}

func TestEndToEnd(t *testing.T) {
	for _, backend := range []string{"file", "badger"} {
		t.Run(backend, func(t *testing.T) {
			cfg := testConfig(t, backend)
			ctx := context.Background()

			store, err := OpenStore(&cfg.Artifacts, zerolog.Nop())
			require.NoError(t, err)
			defer store.Close() //nolint:errcheck // test cleanup

			runner := NewRunner(cfg, store, nil, zerolog.Nop())
			res, err := runner.Run(ctx, false)
			require.NoError(t, err)
			assert.False(t, res.Skipped)
			assert.Equal(t, int64(1), res.Manifest.Version)
			assert.Equal(t, 3, res.Manifest.Items)

			again, err := runner.Run(ctx, false)
			require.NoError(t, err)
			assert.True(t, again.Skipped, "existing artifacts are reused without force")

			bundle, err := store.Latest(ctx)
			require.NoError(t, err)
			snap, err := recommend.SnapshotFromBundle(bundle)
			require.NoError(t, err)

			engine, err := recommend.NewEngine(EngineConfig(&cfg.Recommend), zerolog.Nop())
			require.NoError(t, err)
			engine.Swap(snap)

			for _, f := range []facet.Facet{facet.Genres, facet.Director, facet.Cast} {
				resp, err := engine.Recommend(ctx, recommend.Request{Title: "Avatar", Facet: f})
				require.NoError(t, err, f.String())
				require.True(t, resp.Found)
				require.Len(t, resp.Items, 2)
				assert.Equal(t, "Avatar Returns", resp.Items[0].Title, f.String())
				assert.InDelta(t, 1.0, resp.Items[0].Score, 1e-5, f.String())
				assert.InDelta(t, 0.0, resp.Items[1].Score, 1e-5, f.String())
			}
		})
	}
}

func TestOpenStore_UnknownBackend(t *testing.T) {
	_, err := OpenStore(&config.ArtifactsConfig{Backend: "s3", Path: t.TempDir()}, zerolog.Nop())
	assert.Error(t, err)
}

func TestEngineConfig(t *testing.T) {
	ec := EngineConfig(&config.RecommendConfig{AggregateK: 10, CompactK: 3, MaxK: 50, CacheEnabled: false})
	assert.Equal(t, 10, ec.Views.AggregateK)
	assert.Equal(t, 3, ec.Views.CompactK)
	assert.Equal(t, 50, ec.Limits.MaxK)
	assert.False(t, ec.Cache.Enabled)
	assert.Equal(t, 5*time.Minute, ec.Cache.TTL, "zero TTL keeps the engine default")
	require.NoError(t, ec.Validate())
}
