// Cinefacet - Faceted Movie Similarity Recommender
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinefacet

// Package pipeline turns source records into a complete artifact set.
//
// A build filters incomplete records once, assigns every surviving record its
// row, assembles the facet documents and then builds the six facet matrices
// concurrently. Facets whose documents produce an empty vocabulary are
// skipped; every other error aborts the build so that nothing partial is
// ever published.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/tomtom215/cinefacet/internal/artifact"
	"github.com/tomtom215/cinefacet/internal/corpus"
	"github.com/tomtom215/cinefacet/internal/document"
	"github.com/tomtom215/cinefacet/internal/facet"
	"github.com/tomtom215/cinefacet/internal/logging"
	"github.com/tomtom215/cinefacet/internal/metrics"
	"github.com/tomtom215/cinefacet/internal/similarity"
	"github.com/tomtom215/cinefacet/internal/text"
	"github.com/tomtom215/cinefacet/internal/vectorize"
)

// ErrNoItems is returned when every record was dropped.
var ErrNoItems = errors.New("no complete records to build from")

// Config controls a build.
type Config struct {
	// MaxFeatures caps each facet vocabulary.
	MaxFeatures int

	// CastLimit is the number of billed cast members kept per item.
	CastLimit int

	// Workers bounds concurrent facet builds. Zero means DefaultWorkers,
	// capped at GOMAXPROCS. Each running facet holds an N×MaxFeatures float64
	// count matrix and two N×N matrices, about 450 MB at N=4800, so this
	// bounds peak memory.
	Workers int
}

// DefaultWorkers is the facet build concurrency when none is configured.
const DefaultWorkers = 2

// DefaultConfig returns the standard build settings.
func DefaultConfig() Config {
	return Config{
		MaxFeatures: vectorize.DefaultMaxFeatures,
		CastLimit:   document.DefaultCastLimit,
		Workers:     0,
	}
}

// Stats summarizes one build.
type Stats struct {
	Records     int            `json:"records"`
	Dropped     int            `json:"dropped"`
	Items       int            `json:"items"`
	ParseErrors map[string]int `json:"parse_errors"`
	Vocabulary  map[string]int `json:"vocabulary"`
	Duration    time.Duration  `json:"duration"`
}

// Result is a complete, aligned artifact set.
type Result struct {
	BuildID  string
	BuiltAt  time.Time
	Corpus   *corpus.Corpus
	Matrices map[facet.Facet]*similarity.Matrix
	Skipped  []facet.Facet
	Stats    Stats
}

// Bundle converts the result for publishing.
func (r *Result) Bundle() *artifact.Bundle {
	return &artifact.Bundle{
		BuildID:  r.BuildID,
		BuiltAt:  r.BuiltAt,
		Items:    r.Corpus.Items(),
		Matrices: r.Matrices,
		Skipped:  r.Skipped,
	}
}

// Builder runs builds. It holds no per-build state and is safe for
// concurrent use.
type Builder struct {
	cfg       Config
	assembler *document.Assembler
	logger    zerolog.Logger
}

// NewBuilder creates a Builder. The normalizer is constructed once here and
// shared by every build.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewBuilder(cfg Config, logger zerolog.Logger) *Builder {
	if cfg.MaxFeatures <= 0 {
		cfg.MaxFeatures = vectorize.DefaultMaxFeatures
	}
	if cfg.Workers <= 0 {
		cfg.Workers = min(DefaultWorkers, runtime.GOMAXPROCS(0))
	}
	norm := text.NewNormalizer(text.DefaultConfig())
	return &Builder{
		cfg:       cfg,
		assembler: document.NewAssembler(norm, document.WithCastLimit(cfg.CastLimit)),
		logger:    logger.With().Str("component", "pipeline").Logger(),
	}
}

// facetResult is the outcome of one facet build.
type facetResult struct {
	matrix     *similarity.Matrix
	vocabulary int
	skipped    bool
}

// Build produces the corpus and every facet matrix from records.
func (b *Builder) Build(ctx context.Context, records []document.Record) (*Result, error) {
	start := time.Now()
	buildID := logging.BuildIDFromContext(ctx)
	if buildID == "" {
		buildID = logging.NewBuildID()
		ctx = logging.ContextWithBuildID(ctx, buildID)
	}
	ctx = logging.ContextWithLogger(ctx, b.logger)
	log := logging.Ctx(ctx)

	stats := Stats{
		Records:     len(records),
		ParseErrors: make(map[string]int),
		Vocabulary:  make(map[string]int),
	}

	stageStart := time.Now()
	items := b.assemble(ctx, records, &stats)
	metrics.RecordStage("assemble", time.Since(stageStart))
	if len(items) == 0 {
		return nil, ErrNoItems
	}
	c := corpus.New(items)

	log.Info().
		Int("records", stats.Records).
		Int("dropped", stats.Dropped).
		Int("items", stats.Items).
		Msg("corpus assembled")

	results := make([]facetResult, len(facet.All))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.cfg.Workers)
	for i, f := range facet.All {
		g.Go(func() error {
			res, err := b.buildFacet(gctx, c, f)
			if err != nil {
				return fmt.Errorf("facet %s: %w", f, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	matrices := make(map[facet.Facet]*similarity.Matrix, len(facet.All))
	var skipped []facet.Facet
	for i, f := range facet.All {
		res := results[i]
		metrics.RecordFacetBuild(f.String(), res.skipped)
		if res.skipped {
			skipped = append(skipped, f)
			continue
		}
		matrices[f] = res.matrix
		stats.Vocabulary[f.String()] = res.vocabulary
	}

	// Alignment is rechecked over the final set before anything leaves the
	// builder.
	for f, m := range matrices {
		if err := similarity.CheckAlignment(m, c.Len()); err != nil {
			return nil, fmt.Errorf("facet %s: %w", f, err)
		}
	}

	stats.Duration = time.Since(start)
	log.Info().
		Int("facets", len(matrices)).
		Int("skipped", len(skipped)).
		Dur("duration", stats.Duration).
		Msg("build complete")

	return &Result{
		BuildID:  buildID,
		BuiltAt:  time.Now().UTC(),
		Corpus:   c,
		Matrices: matrices,
		Skipped:  skipped,
		Stats:    stats,
	}, nil
}

// assemble drops incomplete records and builds documents for the rest, in
// input order.
func (b *Builder) assemble(ctx context.Context, records []document.Record, stats *Stats) []corpus.Item {
	log := logging.Ctx(ctx)
	items := make([]corpus.Item, 0, len(records))
	for i := range records {
		rec := &records[i]
		if missing := rec.Missing(); len(missing) > 0 {
			stats.Dropped++
			log.Debug().Int64("id", rec.ID).Strs("missing", missing).Msg("dropping incomplete record")
			continue
		}

		asm := b.assembler.Assemble(*rec)
		for _, perr := range asm.Failures {
			stats.ParseErrors[perr.Field]++
			metrics.RecordParseError(perr.Field)
			log.Debug().Int64("id", rec.ID).Err(perr).Msg("structured field recovered as empty")
		}
		items = append(items, corpus.Item{
			ID:      rec.ID,
			Title:   rec.Title,
			Docs:    asm.Documents,
			Details: asm.Details,
		})
	}
	stats.Items = len(items)
	if stats.Dropped > 0 {
		metrics.RecordsDropped.Add(float64(stats.Dropped))
	}
	return items
}

// buildFacet vectorizes one facet and computes its similarity matrix.
func (b *Builder) buildFacet(ctx context.Context, c *corpus.Corpus, f facet.Facet) (facetResult, error) {
	if err := ctx.Err(); err != nil {
		return facetResult{}, err
	}
	start := time.Now()
	log := logging.Ctx(ctx)

	tf, err := vectorize.New(vectorize.WithMaxFeatures(b.cfg.MaxFeatures)).FitTransform(c.Documents(f))
	if errors.Is(err, vectorize.ErrEmptyVocabulary) {
		log.Warn().Str("facet", f.String()).Msg("skipping facet with empty vocabulary")
		return facetResult{skipped: true}, nil
	}
	if err != nil {
		return facetResult{}, err
	}

	m := similarity.Cosine(tf)
	if err := similarity.CheckAlignment(m, c.Len()); err != nil {
		return facetResult{}, err
	}

	_, terms := tf.Dims()
	d := time.Since(start)
	metrics.RecordStage("facet", d)
	log.Debug().Str("facet", f.String()).Int("terms", terms).Dur("duration", d).Msg("facet built")
	return facetResult{matrix: m, vocabulary: terms}, nil
}
