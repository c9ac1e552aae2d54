// Cinefacet - Faceted Movie Similarity Recommender
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinefacet

// Package app turns a loaded configuration into the components shared by
// the builder and server binaries.
package app

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/tomtom215/cinefacet/internal/artifact"
	"github.com/tomtom215/cinefacet/internal/config"
	"github.com/tomtom215/cinefacet/internal/ingest"
	"github.com/tomtom215/cinefacet/internal/logging"
	"github.com/tomtom215/cinefacet/internal/pipeline"
	"github.com/tomtom215/cinefacet/internal/recommend"
)

// InitLogging configures the global logger from cfg.
func InitLogging(cfg *config.Config) {
	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
	})
}

// OpenStore opens the configured artifact backend.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func OpenStore(cfg *config.ArtifactsConfig, logger zerolog.Logger) (artifact.Store, error) {
	switch cfg.Backend {
	case "badger":
		s, err := artifact.OpenBadgerStore(cfg.Path, logger)
		if err != nil {
			return nil, fmt.Errorf("open badger artifact store: %w", err)
		}
		return s, nil
	case "file", "":
		s, err := artifact.OpenFileStore(cfg.Path, logger)
		if err != nil {
			return nil, fmt.Errorf("open file artifact store: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown artifact backend %q", cfg.Backend)
	}
}

// NewRunner builds the ingest, build and publish pipeline. publisher may be
// nil.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewRunner(cfg *config.Config, store artifact.Store, publisher pipeline.Publisher, logger zerolog.Logger) *pipeline.Runner {
	source := ingest.NewDuckDBSource(ingest.Config{
		MoviesPath:   cfg.Data.MoviesPath,
		CreditsPath:  cfg.Data.CreditsPath,
		DatabasePath: cfg.Data.DuckDBPath,
	}, logger)

	builder := pipeline.NewBuilder(pipeline.Config{
		MaxFeatures: cfg.Pipeline.MaxFeatures,
		CastLimit:   cfg.Pipeline.CastLimit,
		Workers:     cfg.Pipeline.Workers,
	}, logger)

	opts := []pipeline.RunnerOption{pipeline.WithKeepVersions(cfg.Artifacts.KeepVersions)}
	if publisher != nil {
		opts = append(opts, pipeline.WithPublisher(publisher))
	}
	return pipeline.NewRunner(source, builder, store, logger, opts...)
}

// EngineConfig maps the recommend section onto the engine's settings.
func EngineConfig(cfg *config.RecommendConfig) *recommend.Config {
	ec := recommend.DefaultConfig()
	ec.Views.AggregateK = cfg.AggregateK
	ec.Views.CompactK = cfg.CompactK
	ec.Limits.MaxK = cfg.MaxK
	ec.Cache.Enabled = cfg.CacheEnabled
	if cfg.CacheTTL > 0 {
		ec.Cache.TTL = cfg.CacheTTL
	}
	if cfg.CacheMaxEntries > 0 {
		ec.Cache.MaxEntries = cfg.CacheMaxEntries
	}
	return ec
}
