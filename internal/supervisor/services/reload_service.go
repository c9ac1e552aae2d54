// Cinefacet - Faceted Movie Similarity Recommender
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinefacet

package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/thejerf/suture/v4"

	"github.com/tomtom215/cinefacet/internal/artifact"
	"github.com/tomtom215/cinefacet/internal/events"
	"github.com/tomtom215/cinefacet/internal/metrics"
	"github.com/tomtom215/cinefacet/internal/recommend"
)

// ArtifactLoader reads the current artifact set. artifact.Store satisfies it.
type ArtifactLoader interface {
	Latest(ctx context.Context) (*artifact.Bundle, error)
	Current(ctx context.Context) (artifact.Manifest, error)
}

// ManifestSubscriber delivers publish announcements. *events.Bus satisfies
// it.
type ManifestSubscriber interface {
	Subscribe(ctx context.Context) (<-chan artifact.Manifest, error)
}

// SnapshotSwapper installs snapshots. *recommend.Engine satisfies it.
type SnapshotSwapper interface {
	Swap(s *recommend.Snapshot) *recommend.Snapshot
	Snapshot() *recommend.Snapshot
}

// ReloadServiceConfig controls how new artifacts are discovered.
type ReloadServiceConfig struct {
	// PollInterval checks the store for versions published by another
	// process. Zero disables polling; events still apply.
	PollInterval time.Duration
}

// ReloadService keeps the engine on the newest published artifact set.
// Snapshots only move forward: an announcement for a version at or below the
// served one is ignored.
type ReloadService struct {
	loader     ArtifactLoader
	subscriber ManifestSubscriber
	engine     SnapshotSwapper
	config     ReloadServiceConfig
	logger     zerolog.Logger
	name       string
}

// NewReloadService creates a ReloadService. subscriber may be nil, in which
// case only the initial load and polling apply.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewReloadService(loader ArtifactLoader, subscriber ManifestSubscriber, engine SnapshotSwapper, cfg ReloadServiceConfig, logger zerolog.Logger) *ReloadService {
	return &ReloadService{
		loader:     loader,
		subscriber: subscriber,
		engine:     engine,
		config:     cfg,
		logger:     logger.With().Str("service", "reload").Logger(),
		name:       "reload-service",
	}
}

// Serve implements suture.Service. It subscribes before the initial load so
// that a publish racing with startup is not missed.
func (s *ReloadService) Serve(ctx context.Context) error {
	var manifests <-chan artifact.Manifest
	if s.subscriber != nil {
		ch, err := s.subscriber.Subscribe(ctx)
		if errors.Is(err, events.ErrClosed) {
			return fmt.Errorf("%w: %w", suture.ErrDoNotRestart, err)
		}
		if err != nil {
			return fmt.Errorf("subscribe to artifact events: %w", err)
		}
		manifests = ch
	}

	if err := s.Reload(ctx); err != nil && !errors.Is(err, artifact.ErrNoArtifacts) {
		s.logger.Error().Err(err).Msg("initial artifact load failed")
	}

	var poll <-chan time.Time
	if s.config.PollInterval > 0 {
		ticker := time.NewTicker(s.config.PollInterval)
		defer ticker.Stop()
		poll = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case m, ok := <-manifests:
			if !ok {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				return errors.New("artifact event subscription closed")
			}
			if m.Version <= s.servedVersion() {
				s.logger.Debug().Int64("version", m.Version).Msg("ignoring stale announcement")
				continue
			}
			if err := s.Reload(ctx); err != nil {
				s.logger.Error().Err(err).Int64("version", m.Version).Msg("artifact reload failed")
			}

		case <-poll:
			m, err := s.loader.Current(ctx)
			if err != nil {
				if !errors.Is(err, artifact.ErrNoArtifacts) {
					s.logger.Warn().Err(err).Msg("artifact poll failed")
				}
				continue
			}
			if m.Version > s.servedVersion() {
				if err := s.Reload(ctx); err != nil {
					s.logger.Error().Err(err).Int64("version", m.Version).Msg("artifact reload failed")
				}
			}
		}
	}
}

// Reload loads the current artifact set and swaps it in when it is newer
// than the served snapshot. On failure the served snapshot is kept.
func (s *ReloadService) Reload(ctx context.Context) error {
	start := time.Now()
	bundle, err := s.loader.Latest(ctx)
	if err != nil {
		return fmt.Errorf("load artifacts: %w", err)
	}
	if bundle.Manifest.Version <= s.servedVersion() {
		return nil
	}

	snap, err := recommend.SnapshotFromBundle(bundle)
	if err != nil {
		return fmt.Errorf("build snapshot: %w", err)
	}
	prev := s.engine.Swap(snap)
	metrics.RecordStage("load", time.Since(start))

	event := s.logger.Info().
		Int64("version", snap.Version).
		Int("items", snap.Corpus.Len()).
		Int("facets", len(snap.Matrices)).
		Dur("duration", time.Since(start))
	if prev != nil {
		event = event.Int64("previous_version", prev.Version)
	}
	event.Msg("artifacts loaded")
	return nil
}

func (s *ReloadService) servedVersion() int64 {
	if snap := s.engine.Snapshot(); snap != nil {
		return snap.Version
	}
	return 0
}

func (s *ReloadService) String() string {
	return s.name
}
