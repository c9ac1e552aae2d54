// Cinefacet - Faceted Movie Similarity Recommender
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinefacet

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/cinefacet/internal/artifact"
	"github.com/tomtom215/cinefacet/internal/document"
	"github.com/tomtom215/cinefacet/internal/logging"
	"github.com/tomtom215/cinefacet/internal/metrics"
)

// Source supplies the joined input records in their canonical order.
type Source interface {
	Records(ctx context.Context) ([]document.Record, error)
}

// Publisher announces a newly published artifact set.
type Publisher interface {
	Publish(ctx context.Context, m artifact.Manifest) error
}

// RunResult describes one Run.
type RunResult struct {
	BuildID  string
	Manifest artifact.Manifest
	Skipped  bool
	Stats    Stats
}

// ErrRunInProgress is returned when Run is called while another run is
// active on the same Runner.
var ErrRunInProgress = errors.New("build already in progress")

// Runner performs ingest, build and publish as one unit.
type Runner struct {
	source    Source
	builder   *Builder
	store     artifact.Store
	publisher Publisher
	keep      int
	logger    zerolog.Logger

	mu      sync.Mutex
	running bool
	last    *RunResult
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithPublisher announces each published version.
func WithPublisher(p Publisher) RunnerOption {
	return func(r *Runner) { r.publisher = p }
}

// WithKeepVersions prunes all but the newest n versions after a publish.
// Zero disables pruning.
func WithKeepVersions(n int) RunnerOption {
	return func(r *Runner) { r.keep = n }
}

// NewRunner creates a Runner.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewRunner(source Source, builder *Builder, store artifact.Store, logger zerolog.Logger, opts ...RunnerOption) *Runner {
	r := &Runner{
		source:  source,
		builder: builder,
		store:   store,
		logger:  logger.With().Str("component", "runner").Logger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run builds and publishes a new artifact set. Unless force is set, it
// returns without building when the store already holds a version.
func (r *Runner) Run(ctx context.Context, force bool) (*RunResult, error) {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return nil, ErrRunInProgress
	}
	r.running = true
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		r.running = false
		r.mu.Unlock()
	}()

	ctx = logging.ContextWithLogger(logging.ContextWithNewBuildID(ctx), r.logger)
	log := logging.Ctx(ctx)
	buildID := logging.BuildIDFromContext(ctx)

	if !force {
		exists, err := r.store.Exists(ctx)
		if err != nil {
			return nil, fmt.Errorf("check existing artifacts: %w", err)
		}
		if exists {
			m, err := r.store.Current(ctx)
			if err != nil {
				return nil, fmt.Errorf("read current manifest: %w", err)
			}
			log.Info().Int64("version", m.Version).Msg("artifacts present, skipping build")
			res := &RunResult{BuildID: buildID, Manifest: m, Skipped: true}
			r.remember(res)
			return res, nil
		}
	}

	start := time.Now()
	records, err := r.source.Records(ctx)
	if err != nil {
		return nil, fmt.Errorf("ingest: %w", err)
	}
	metrics.RecordStage("ingest", time.Since(start))
	log.Info().Int("records", len(records)).Msg("records loaded")

	result, err := r.builder.Build(ctx, records)
	if err != nil {
		return nil, fmt.Errorf("build: %w", err)
	}

	start = time.Now()
	m, err := r.store.Publish(ctx, result.Bundle())
	if err != nil {
		return nil, fmt.Errorf("publish: %w", err)
	}
	metrics.RecordStage("publish", time.Since(start))

	if r.keep > 0 {
		if err := r.store.Prune(ctx, r.keep); err != nil {
			log.Warn().Err(err).Msg("failed to prune old artifact versions")
		}
	}

	if r.publisher != nil {
		if err := r.publisher.Publish(ctx, m); err != nil {
			// The version is already current; readers that missed the event
			// pick it up on their next load.
			log.Warn().Err(err).Int64("version", m.Version).Msg("failed to announce artifacts")
		}
	}

	res := &RunResult{BuildID: buildID, Manifest: m, Stats: result.Stats}
	r.remember(res)
	return res, nil
}

// Last returns the result of the most recent successful Run, or nil.
func (r *Runner) Last() *RunResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last
}

func (r *Runner) remember(res *RunResult) {
	r.mu.Lock()
	r.last = res
	r.mu.Unlock()
}
