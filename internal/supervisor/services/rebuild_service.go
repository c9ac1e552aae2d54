// Cinefacet - Faceted Movie Similarity Recommender
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinefacet

// Package services adapts cinefacet components to suture.Service.
package services

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/cinefacet/internal/pipeline"
)

// Rebuilder runs the build pipeline. *pipeline.Runner satisfies it.
type Rebuilder interface {
	Run(ctx context.Context, force bool) (*pipeline.RunResult, error)
}

// RebuildServiceConfig controls when builds run.
type RebuildServiceConfig struct {
	// OnStartup builds when the store holds no artifacts yet.
	OnStartup bool

	// ForceOnStartup makes the startup build ignore existing artifacts.
	ForceOnStartup bool

	// Interval forces a rebuild on this period. Zero disables periodic
	// rebuilds.
	Interval time.Duration

	// Timeout bounds a single build. Zero means 30 minutes.
	Timeout time.Duration
}

// RebuildService owns the build schedule.
type RebuildService struct {
	rebuilder Rebuilder
	config    RebuildServiceConfig
	logger    zerolog.Logger
	name      string
}

// NewRebuildService creates a RebuildService.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewRebuildService(rebuilder Rebuilder, cfg RebuildServiceConfig, logger zerolog.Logger) *RebuildService {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Minute
	}
	return &RebuildService{
		rebuilder: rebuilder,
		config:    cfg,
		logger:    logger.With().Str("service", "rebuild").Logger(),
		name:      "rebuild-service",
	}
}

// Serve implements suture.Service. Build failures are logged and retried on
// the next tick; they do not restart the service.
func (s *RebuildService) Serve(ctx context.Context) error {
	s.logger.Info().
		Bool("on_startup", s.config.OnStartup).
		Dur("interval", s.config.Interval).
		Msg("rebuild service starting")

	if s.config.OnStartup {
		s.build(ctx, s.config.ForceOnStartup)
	}

	if s.config.Interval <= 0 {
		<-ctx.Done()
		return ctx.Err()
	}

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("rebuild service shutting down")
			return ctx.Err()
		case <-ticker.C:
			s.build(ctx, true)
		}
	}
}

func (s *RebuildService) build(ctx context.Context, force bool) {
	buildCtx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	start := time.Now()
	res, err := s.rebuilder.Run(buildCtx, force)
	switch {
	case errors.Is(err, pipeline.ErrRunInProgress):
		s.logger.Info().Msg("build already running, skipping")
	case err != nil:
		if ctx.Err() != nil {
			return
		}
		s.logger.Error().Err(err).Bool("force", force).Msg("build failed")
	case res.Skipped:
		s.logger.Info().Int64("version", res.Manifest.Version).Msg("artifacts already present")
	default:
		s.logger.Info().
			Str("build_id", res.BuildID).
			Int64("version", res.Manifest.Version).
			Int("items", res.Manifest.Items).
			Dur("duration", time.Since(start)).
			Msg("build published")
	}
}

func (s *RebuildService) String() string {
	return s.name
}
