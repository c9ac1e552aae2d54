// Cinefacet - Faceted Movie Similarity Recommender
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinefacet

package config

import (
	"fmt"
	"time"

	"github.com/tomtom215/cinefacet/internal/validation"
)

// Validate checks struct-tag constraints first, then the rules that span
// several fields.
func (c *Config) Validate() error {
	if err := validation.ValidateStruct(c); err != nil {
		return err
	}

	if err := c.validateRecommend(); err != nil {
		return err
	}

	if err := c.validateRebuild(); err != nil {
		return err
	}

	return c.validateServer()
}

// validateRecommend checks that both view sizes fit under the request cap.
func (c *Config) validateRecommend() error {
	r := &c.Recommend
	if r.AggregateK > r.MaxK {
		return fmt.Errorf("RECOMMEND_AGGREGATE_K (%d) must not exceed RECOMMEND_MAX_K (%d)", r.AggregateK, r.MaxK)
	}
	if r.CompactK > r.MaxK {
		return fmt.Errorf("RECOMMEND_COMPACT_K (%d) must not exceed RECOMMEND_MAX_K (%d)", r.CompactK, r.MaxK)
	}
	if r.CacheEnabled && r.CacheTTL <= 0 {
		return fmt.Errorf("RECOMMEND_CACHE_TTL must be positive when the cache is enabled")
	}
	return nil
}

const minRebuildInterval = time.Minute

func (c *Config) validateRebuild() error {
	if c.Rebuild.Interval < 0 {
		return fmt.Errorf("REBUILD_INTERVAL must not be negative")
	}
	if c.Rebuild.Interval > 0 && c.Rebuild.Interval < minRebuildInterval {
		return fmt.Errorf("REBUILD_INTERVAL must be at least %v", minRebuildInterval)
	}
	return nil
}

// Rate limit bounds
const (
	minRateLimitRequests = 1
	maxRateLimitRequests = 100000
	minRateLimitWindow   = time.Second
	maxRateLimitWindow   = time.Hour
)

func (c *Config) validateServer() error {
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("HTTP_TIMEOUT must be positive")
	}
	if c.Server.RateLimitDisabled {
		return nil
	}
	if c.Server.RateLimitReqs < minRateLimitRequests || c.Server.RateLimitReqs > maxRateLimitRequests {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must be between %d and %d", minRateLimitRequests, maxRateLimitRequests)
	}
	if c.Server.RateLimitWindow < minRateLimitWindow || c.Server.RateLimitWindow > maxRateLimitWindow {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be between %v and %v", minRateLimitWindow, maxRateLimitWindow)
	}
	return nil
}

// HasWildcardCORS reports whether any origin is allowed.
func (c *Config) HasWildcardCORS() bool {
	for _, origin := range c.Server.CORSOrigins {
		if origin == "*" {
			return true
		}
	}
	return false
}
