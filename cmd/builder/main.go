// Cinefacet - Faceted Movie Similarity Recommender
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinefacet

/*
Command builder ingests the movie and credits CSV files, builds one
similarity matrix per facet and publishes them as a new artifact version.

If the store already holds a version the build is skipped, unless -force is
given or FORCE_REBUILD=true.

Usage:

	builder [-config path] [-force]
*/
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/tomtom215/cinefacet/internal/app"
	"github.com/tomtom215/cinefacet/internal/config"
	"github.com/tomtom215/cinefacet/internal/logging"
)

func main() {
	configPath := flag.String("config", "", "YAML config file (overrides CONFIG_PATH)")
	force := flag.Bool("force", false, "rebuild even if artifacts already exist")
	flag.Parse()

	var (
		cfg *config.Config
		err error
	)
	if *configPath != "" {
		cfg, err = config.LoadFile(*configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}
	app.InitLogging(cfg)
	logger := logging.Logger()

	store, err := app.OpenStore(&cfg.Artifacts, logger)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open artifact store")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	runner := app.NewRunner(cfg, store, nil, logger)
	res, err := runner.Run(ctx, *force || cfg.Pipeline.ForceRebuild)
	cancel()
	if closeErr := store.Close(); closeErr != nil {
		logging.Error().Err(closeErr).Msg("Error closing artifact store")
	}
	if err != nil {
		logging.Fatal().Err(err).Msg("Build failed")
	}

	if res.Skipped {
		logging.Info().
			Int64("version", res.Manifest.Version).
			Msg("Artifacts already present; use -force to rebuild")
		return
	}

	skipped := make([]string, len(res.Manifest.Skipped))
	for i, f := range res.Manifest.Skipped {
		skipped[i] = f.String()
	}
	logging.Info().
		Str("build_id", res.BuildID).
		Int64("version", res.Manifest.Version).
		Int("records", res.Stats.Records).
		Int("dropped", res.Stats.Dropped).
		Int("items", res.Manifest.Items).
		Strs("skipped_facets", skipped).
		Dur("duration", res.Stats.Duration).
		Msg("Artifacts published")
}
