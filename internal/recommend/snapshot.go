// Cinefacet - Faceted Movie Similarity Recommender
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinefacet

package recommend

import (
	"fmt"
	"time"

	"github.com/tomtom215/cinefacet/internal/artifact"
	"github.com/tomtom215/cinefacet/internal/corpus"
	"github.com/tomtom215/cinefacet/internal/facet"
	"github.com/tomtom215/cinefacet/internal/similarity"
)

// Snapshot is one consistent artifact set. It is never modified after
// NewSnapshot returns.
type Snapshot struct {
	Version  int64
	BuiltAt  time.Time
	Corpus   *corpus.Corpus
	Matrices map[facet.Facet]*similarity.Matrix
}

// NewSnapshot checks that every matrix is aligned with c.
func NewSnapshot(version int64, builtAt time.Time, c *corpus.Corpus, matrices map[facet.Facet]*similarity.Matrix) (*Snapshot, error) {
	if c == nil {
		return nil, fmt.Errorf("snapshot %d: nil corpus", version)
	}
	for f, m := range matrices {
		if err := similarity.CheckAlignment(m, c.Len()); err != nil {
			return nil, fmt.Errorf("snapshot %d facet %s: %w", version, f, err)
		}
	}
	return &Snapshot{
		Version:  version,
		BuiltAt:  builtAt,
		Corpus:   c,
		Matrices: matrices,
	}, nil
}

// SnapshotFromBundle builds a snapshot from a loaded artifact set.
func SnapshotFromBundle(b *artifact.Bundle) (*Snapshot, error) {
	if b == nil {
		return nil, fmt.Errorf("snapshot: nil bundle")
	}
	builtAt := b.BuiltAt
	if builtAt.IsZero() {
		builtAt = b.Manifest.BuiltAt
	}
	return NewSnapshot(b.Manifest.Version, builtAt, corpus.New(b.Items), b.Matrices)
}

// Matrix returns the matrix for f, or nil if the facet was skipped.
func (s *Snapshot) Matrix(f facet.Facet) *similarity.Matrix {
	return s.Matrices[f]
}

// Facets lists available facets in canonical order.
func (s *Snapshot) Facets() []facet.Facet {
	out := make([]facet.Facet, 0, len(s.Matrices))
	for _, f := range facet.All {
		if s.Matrices[f] != nil {
			out = append(out, f)
		}
	}
	return out
}
