// Cinefacet - Faceted Movie Similarity Recommender
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinefacet

// Package config loads application configuration.
//
// Loading order (Koanf v2), later layers override earlier ones:
//  1. Defaults: built-in values from defaultConfig
//  2. Config file: optional YAML (CONFIG_PATH, config.yaml, config.yml,
//     /etc/cinefacet/config.yaml)
//  3. Environment variables: an explicit allow-list mapped to config paths
//
// Configuration categories:
//
//   - Data: the movie and credit CSV files and the DuckDB database used to
//     join them
//   - Pipeline: vocabulary size, cast limit and build concurrency
//   - Artifacts: storage backend, location and retention
//   - Recommend: result sizes per view and the response cache
//   - Rebuild: startup and periodic rebuilds inside the server
//   - Server: HTTP listener, CORS and rate limiting
//   - Logging: level, format and caller info
package config

import (
	"fmt"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Data      DataConfig      `koanf:"data"`
	Pipeline  PipelineConfig  `koanf:"pipeline"`
	Artifacts ArtifactsConfig `koanf:"artifacts"`
	Recommend RecommendConfig `koanf:"recommend"`
	Rebuild   RebuildConfig   `koanf:"rebuild"`
	Server    ServerConfig    `koanf:"server"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// DataConfig locates the source files.
type DataConfig struct {
	MoviesPath  string `koanf:"movies_path" validate:"required"`
	CreditsPath string `koanf:"credits_path" validate:"required"`

	// DuckDBPath is the database used for the join. Empty uses an
	// in-memory database.
	DuckDBPath string `koanf:"duckdb_path"`
}

// PipelineConfig controls matrix builds.
type PipelineConfig struct {
	MaxFeatures int `koanf:"max_features" validate:"min=1,max=1000000"`
	CastLimit   int `koanf:"cast_limit" validate:"min=1,max=100"`

	// Workers bounds concurrent facet builds and so peak build memory
	// (roughly 450 MB per worker for a 4800-movie corpus). 0 = 2.
	Workers int `koanf:"workers" validate:"min=0,max=64"`

	// ForceRebuild builds even when artifacts already exist.
	ForceRebuild bool `koanf:"force_rebuild"`
}

// ArtifactsConfig selects where built artifacts are stored.
type ArtifactsConfig struct {
	// Backend is "file" or "badger".
	Backend string `koanf:"backend" validate:"oneof=file badger"`

	// Path is the artifact directory (file) or database directory (badger).
	Path string `koanf:"path" validate:"required"`

	// KeepVersions is the number of versions kept after a publish.
	// 0 disables pruning.
	KeepVersions int `koanf:"keep_versions" validate:"min=0,max=1000"`
}

// RecommendConfig controls the serving engine.
type RecommendConfig struct {
	AggregateK      int           `koanf:"aggregate_k" validate:"min=1"`
	CompactK        int           `koanf:"compact_k" validate:"min=1"`
	MaxK            int           `koanf:"max_k" validate:"min=1,max=10000"`
	CacheEnabled    bool          `koanf:"cache_enabled"`
	CacheTTL        time.Duration `koanf:"cache_ttl"`
	CacheMaxEntries int           `koanf:"cache_max_entries" validate:"min=0"`
}

// RebuildConfig controls builds performed by the server process.
type RebuildConfig struct {
	// OnStartup runs a build when the server starts. Existing artifacts
	// are reused unless pipeline.force_rebuild is set.
	OnStartup bool `koanf:"on_startup"`

	// Interval triggers forced rebuilds periodically. 0 disables them.
	Interval time.Duration `koanf:"interval"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port    int           `koanf:"port" validate:"min=1,max=65535"`
	Host    string        `koanf:"host"`
	Timeout time.Duration `koanf:"timeout"`

	CORSOrigins []string `koanf:"cors_origins"`

	RateLimitReqs     int           `koanf:"rate_limit_requests"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
}

// Addr returns the listen address.
func (s *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: trace, debug, info, warn, error.
	Level string `koanf:"level" validate:"oneof=trace debug info warn warning error fatal panic disabled off"`

	// Format is json or console.
	Format string `koanf:"format" validate:"oneof=json console"`

	// Caller adds file:line to every entry.
	Caller bool `koanf:"caller"`
}
