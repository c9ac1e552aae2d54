// Cinefacet - Faceted Movie Similarity Recommender
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinefacet

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomtom215/cinefacet/internal/document"
	"github.com/tomtom215/cinefacet/internal/facet"
	"github.com/tomtom215/cinefacet/internal/logging"
	"github.com/tomtom215/cinefacet/internal/similarity"
)

func named(names ...string) string {
	parts := make([]string, len(names))
	for i, n := range names {
		parts[i] = fmt.Sprintf(`{"id": %d, "name": %q}`, i+1, n)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func crew(director string) string {
	return fmt.Sprintf(`[{"job": "Producer", "name": "Someone Else"}, {"job": "Director", "name": %q}]`, director)
}

func record(id int64, title, overview string, genres, keywords, cast []string, director, company string) document.Record {
	return document.Record{
		ID:                  id,
		Title:               title,
		Overview:            overview,
		Genres:              named(genres...),
		Keywords:            named(keywords...),
		Cast:                named(cast...),
		Crew:                crew(director),
		ProductionCompanies: named(company),
		SpokenLanguages:     named("English"),
		Budget:              "1000000",
	}
}

func sampleRecords() []document.Record {
	return []document.Record{
		record(1, "Alien Space", "A crew of miners fights an alien aboard a space ship",
			[]string{"Science Fiction", "Horror"}, []string{"alien", "space"}, []string{"Sigourney Weaver"}, "Ridley Scott", "Brandywine"),
		record(2, "Aliens Again", "Marines fight aliens on a distant space colony",
			[]string{"Science Fiction", "Action"}, []string{"alien", "space marine"}, []string{"Sigourney Weaver", "Michael Biehn"}, "James Cameron", "Brandywine"),
		record(3, "Quiet Garden", "An old gardener tends roses in a quiet village",
			[]string{"Drama"}, []string{"garden", "village"}, []string{"Judi Dench"}, "Richard Eyre", "Village Films"),
		{ID: 4, Title: "No Overview", Genres: named("Drama")},
		record(5, "Harbor Lights", "Fishermen rescue sailors during a storm at the harbor",
			[]string{"Drama", "Adventure"}, []string{"sea", "storm"}, []string{"Judi Dench", "Tom Hardy"}, "Ridley Scott", "Village Films"),
	}
}

func TestBuilder_Build(t *testing.T) {
	b := NewBuilder(DefaultConfig(), zerolog.Nop())
	res, err := b.Build(context.Background(), sampleRecords())
	require.NoError(t, err)

	assert.Equal(t, 5, res.Stats.Records)
	assert.Equal(t, 1, res.Stats.Dropped)
	assert.Equal(t, 4, res.Stats.Items)
	assert.NotEmpty(t, res.BuildID)
	require.Equal(t, 4, res.Corpus.Len())

	// Rows follow input order after filtering.
	assert.Equal(t, "Alien Space", res.Corpus.Item(0).Title)
	assert.Equal(t, "Quiet Garden", res.Corpus.Item(2).Title)
	assert.Equal(t, "Harbor Lights", res.Corpus.Item(3).Title)
	assert.Equal(t, 3, res.Corpus.Item(3).Row)

	assert.Empty(t, res.Skipped)
	require.Len(t, res.Matrices, len(facet.All))
	for f, m := range res.Matrices {
		assert.NoError(t, similarity.CheckAlignment(m, 4), f.String())
		assert.True(t, m.Symmetric(1e-6), "%s not symmetric", f)
		for i := 0; i < m.Dim(); i++ {
			assert.Equal(t, float32(1), m.At(i, i), "%s diagonal %d", f, i)
		}
	}

	// Same director, same row pair.
	dir := res.Matrices[facet.Director]
	assert.Equal(t, float32(1), dir.At(0, 3))
	assert.Equal(t, float32(0), dir.At(0, 1))

	assert.Greater(t, res.Matrices[facet.Tags].At(0, 1), res.Matrices[facet.Tags].At(0, 2))
	assert.Positive(t, res.Stats.Vocabulary["genres"])
}

func TestBuilder_Deterministic(t *testing.T) {
	b := NewBuilder(Config{Workers: 3}, zerolog.Nop())
	first, err := b.Build(context.Background(), sampleRecords())
	require.NoError(t, err)
	second, err := NewBuilder(Config{Workers: 1}, zerolog.Nop()).Build(context.Background(), sampleRecords())
	require.NoError(t, err)

	for _, f := range facet.All {
		assert.True(t, first.Matrices[f].Equal(second.Matrices[f]), "facet %s differs between builds", f)
	}
}

func TestNewBuilder_Workers(t *testing.T) {
	assert.Equal(t, min(DefaultWorkers, runtime.GOMAXPROCS(0)), NewBuilder(Config{}, zerolog.Nop()).cfg.Workers,
		"zero workers must not fan out to every CPU")
	assert.Equal(t, 5, NewBuilder(Config{Workers: 5}, zerolog.Nop()).cfg.Workers)
}

func TestBuilder_SkipsDegenerateFacet(t *testing.T) {
	recs := sampleRecords()
	for i := range recs {
		// A company named "The" leaves only a stopword.
		recs[i].ProductionCompanies = named("The")
	}

	res, err := NewBuilder(DefaultConfig(), zerolog.Nop()).Build(context.Background(), recs)
	require.NoError(t, err)

	assert.Equal(t, []facet.Facet{facet.ProductionCompanies}, res.Skipped)
	assert.NotContains(t, res.Matrices, facet.ProductionCompanies)
	assert.Len(t, res.Matrices, len(facet.All)-1)
}

func TestBuilder_MalformedFieldContinues(t *testing.T) {
	recs := sampleRecords()
	recs[0].Genres = "Science Fiction|Horror"

	res, err := NewBuilder(DefaultConfig(), zerolog.Nop()).Build(context.Background(), recs)
	require.NoError(t, err)

	assert.Equal(t, 4, res.Corpus.Len())
	assert.Equal(t, 1, res.Stats.ParseErrors["genres"])
	first := res.Corpus.Item(0)
	assert.Empty(t, first.Doc(facet.Genres))
	assert.Equal(t, float32(0), res.Matrices[facet.Genres].At(0, 1))
}

func TestBuilder_NoItems(t *testing.T) {
	_, err := NewBuilder(DefaultConfig(), zerolog.Nop()).Build(context.Background(), []document.Record{{ID: 1, Title: "Only"}})
	assert.True(t, errors.Is(err, ErrNoItems), "got %v", err)
}

func TestBuilder_UsesContextBuildID(t *testing.T) {
	ctx := logging.ContextWithBuildID(context.Background(), "fixed01")
	res, err := NewBuilder(DefaultConfig(), zerolog.Nop()).Build(ctx, sampleRecords())
	require.NoError(t, err)
	assert.Equal(t, "fixed01", res.BuildID)
}

func TestBuilder_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewBuilder(DefaultConfig(), zerolog.Nop()).Build(ctx, sampleRecords())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestResult_Bundle(t *testing.T) {
	res, err := NewBuilder(DefaultConfig(), zerolog.Nop()).Build(context.Background(), sampleRecords())
	require.NoError(t, err)

	b := res.Bundle()
	assert.Equal(t, res.BuildID, b.BuildID)
	assert.Len(t, b.Items, 4)
	assert.Equal(t, "Aliens Again", b.Items[1].Title)
	assert.Equal(t, int64(1000000), b.Items[1].Details.Budget)
}
