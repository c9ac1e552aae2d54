// Cinefacet - Faceted Movie Similarity Recommender
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinefacet

package recommend

import (
	"errors"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("DefaultConfig().Validate() error = %v", err)
	}
	if cfg.DefaultK(ViewAggregate) != 25 || cfg.DefaultK(ViewCompact) != 5 {
		t.Errorf("view sizes = %d/%d, want 25/5", cfg.DefaultK(ViewAggregate), cfg.DefaultK(ViewCompact))
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero aggregate k", func(c *Config) { c.Views.AggregateK = 0 }},
		{"zero compact k", func(c *Config) { c.Views.CompactK = 0 }},
		{"max k below view", func(c *Config) { c.Limits.MaxK = 10 }},
		{"zero ttl", func(c *Config) { c.Cache.TTL = 0 }},
		{"zero max entries", func(c *Config) { c.Cache.MaxEntries = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate() should fail")
			}
		})
	}

	cfg := DefaultConfig()
	cfg.Cache.Enabled = false
	cfg.Cache.TTL = 0
	if err := cfg.Validate(); err != nil {
		t.Errorf("disabled cache should skip cache checks, got %v", err)
	}
}

func TestConfig_Clone(t *testing.T) {
	cfg := DefaultConfig()
	clone := cfg.Clone()
	clone.Views.AggregateK = 1
	if cfg.Views.AggregateK != 25 {
		t.Error("Clone() should not share state")
	}
}

func TestParseView(t *testing.T) {
	tests := []struct {
		in      string
		want    View
		wantErr bool
	}{
		{"", ViewAggregate, false},
		{"aggregate", ViewAggregate, false},
		{"Compact", ViewCompact, false},
		{"grid", ViewAggregate, true},
	}
	for _, tt := range tests {
		got, err := ParseView(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseView(%q) error = %v", tt.in, err)
			continue
		}
		if tt.wantErr && !errors.Is(err, ErrInvalidView) {
			t.Errorf("ParseView(%q) error should wrap ErrInvalidView", tt.in)
		}
		if got != tt.want {
			t.Errorf("ParseView(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
	if ViewCompact.String() != "compact" || ViewAggregate.String() != "aggregate" {
		t.Error("View.String() mismatch")
	}
}
