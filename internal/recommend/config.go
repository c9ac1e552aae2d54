// Cinefacet - Faceted Movie Similarity Recommender
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinefacet

package recommend

import (
	"fmt"
	"time"
)

// Config contains engine configuration.
type Config struct {
	Views  ViewsConfig  `json:"views"`
	Limits LimitsConfig `json:"limits"`
	Cache  CacheConfig  `json:"cache"`
}

// ViewsConfig sets the default list length of each view.
type ViewsConfig struct {
	// AggregateK is used for the all-facets page. Default: 25.
	AggregateK int `json:"aggregate_k"`

	// CompactK is used for single-facet panels. Default: 5.
	CompactK int `json:"compact_k"`
}

// LimitsConfig contains operational limits.
type LimitsConfig struct {
	// MaxK caps any requested K. Default: 100.
	MaxK int `json:"max_k"`
}

// CacheConfig contains response cache parameters.
type CacheConfig struct {
	Enabled bool `json:"enabled"`

	// TTL is the cache entry lifetime. Default: 5m.
	TTL time.Duration `json:"ttl"`

	// MaxEntries bounds the cache; the least recently used entry is evicted.
	// Default: 10000.
	MaxEntries int `json:"max_entries"`
}

// DefaultConfig returns the production defaults.
func DefaultConfig() *Config {
	return &Config{
		Views: ViewsConfig{
			AggregateK: 25,
			CompactK:   5,
		},
		Limits: LimitsConfig{
			MaxK: 100,
		},
		Cache: CacheConfig{
			Enabled:    true,
			TTL:        5 * time.Minute,
			MaxEntries: 10000,
		},
	}
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if c.Views.AggregateK < 1 {
		return fmt.Errorf("views.aggregate_k must be positive, got %d", c.Views.AggregateK)
	}
	if c.Views.CompactK < 1 {
		return fmt.Errorf("views.compact_k must be positive, got %d", c.Views.CompactK)
	}
	if c.Limits.MaxK < c.Views.AggregateK || c.Limits.MaxK < c.Views.CompactK {
		return fmt.Errorf("limits.max_k must be >= both view sizes, got %d", c.Limits.MaxK)
	}
	if c.Cache.Enabled {
		if c.Cache.TTL <= 0 {
			return fmt.Errorf("cache.ttl must be positive, got %v", c.Cache.TTL)
		}
		if c.Cache.MaxEntries < 1 {
			return fmt.Errorf("cache.max_entries must be positive, got %d", c.Cache.MaxEntries)
		}
	}
	return nil
}

// Clone returns a copy of the configuration.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}

// DefaultK returns the list length for view.
func (c *Config) DefaultK(view View) int {
	if view == ViewCompact {
		return c.Views.CompactK
	}
	return c.Views.AggregateK
}
