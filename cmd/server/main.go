// Cinefacet - Faceted Movie Similarity Recommender
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinefacet

/*
Command server serves faceted movie recommendations over HTTP.

On start it loads the newest published artifact set into the recommendation
engine, optionally builds one first, and then keeps the engine current as
new versions are published by its own rebuild schedule, by POST
/api/v1/rebuild, or by a separate builder process writing to the same
store.

	RootSupervisor ("cinefacet")
	├── data-layer:      RebuildService
	├── messaging-layer: ReloadService
	└── api-layer:       HTTPServerService

Configuration comes from defaults, an optional YAML file (CONFIG_PATH) and
environment variables such as MOVIES_PATH, CREDITS_PATH, ARTIFACTS_PATH,
HTTP_PORT and LOG_LEVEL.
*/
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomtom215/cinefacet/internal/api"
	"github.com/tomtom215/cinefacet/internal/app"
	"github.com/tomtom215/cinefacet/internal/config"
	"github.com/tomtom215/cinefacet/internal/events"
	"github.com/tomtom215/cinefacet/internal/logging"
	"github.com/tomtom215/cinefacet/internal/recommend"
	"github.com/tomtom215/cinefacet/internal/supervisor"
	"github.com/tomtom215/cinefacet/internal/supervisor/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}
	app.InitLogging(cfg)

	logger := logging.Logger()
	logging.Info().
		Str("artifacts_backend", cfg.Artifacts.Backend).
		Str("artifacts_path", cfg.Artifacts.Path).
		Str("addr", cfg.Server.Addr()).
		Msg("Starting cinefacet server")

	if cfg.HasWildcardCORS() {
		logging.Warn().Msg("CORS allows any origin (CORS_ORIGINS=*)")
	}
	if cfg.Server.RateLimitDisabled {
		logging.Warn().Msg("Rate limiting is DISABLED")
	}

	store, err := app.OpenStore(&cfg.Artifacts, logger)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open artifact store")
	}
	defer func() {
		if err := store.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing artifact store")
		}
	}()

	bus := events.NewBus(logger)
	defer func() {
		if err := bus.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing event bus")
		}
	}()

	engine, err := recommend.NewEngine(app.EngineConfig(&cfg.Recommend), logger)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create recommendation engine")
	}

	runner := app.NewRunner(cfg, store, bus, logger)
	reload := services.NewReloadService(store, bus, engine, services.ReloadServiceConfig{
		PollInterval: time.Minute,
	}, logger)

	// Serve whatever is already published before accepting traffic.
	if err := reload.Reload(context.Background()); err != nil {
		logging.Warn().Err(err).Msg("No artifacts loaded at startup")
	}

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger("supervisor"), supervisor.TreeConfig{
		FailureThreshold: 5,
		FailureBackoff:   15 * time.Second,
		ShutdownTimeout:  10 * time.Second,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}

	tree.AddDataService(services.NewRebuildService(runner, services.RebuildServiceConfig{
		OnStartup:      cfg.Rebuild.OnStartup,
		ForceOnStartup: cfg.Pipeline.ForceRebuild,
		Interval:       cfg.Rebuild.Interval,
	}, logger))
	tree.AddMessagingService(reload)

	mw := api.NewMiddlewareFromServerConfig(
		cfg.Server.CORSOrigins,
		cfg.Server.RateLimitReqs,
		cfg.Server.RateLimitWindow,
		cfg.Server.RateLimitDisabled,
	)
	router := api.NewRouter(api.NewHandler(engine, runner), mw, api.RouterConfig{
		Timeout: cfg.Server.Timeout,
	})

	server := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logging.Info().Str("addr", server.Addr).Msg("Supervisor tree starting")
	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logging.Error().Err(err).Msg("Supervisor tree stopped with error")
	}

	if report, err := tree.UnstoppedServiceReport(); err == nil && len(report) > 0 {
		for _, svc := range report {
			logging.Warn().Str("service", svc.Name).Msg("Service did not stop in time")
		}
	}
	logging.Info().Msg("Server stopped")
}
