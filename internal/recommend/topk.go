// Cinefacet - Faceted Movie Similarity Recommender
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinefacet

package recommend

import (
	"sort"

	"github.com/tomtom215/cinefacet/internal/corpus"
	"github.com/tomtom215/cinefacet/internal/similarity"
)

// TopK returns the k highest-scoring entries of row, excluding index q.
// Ties are broken by ascending index. The result never exceeds
// min(k, len(row)-1) entries.
func TopK(row []float32, q, k int) []Scored {
	if k <= 0 || len(row) == 0 {
		return []Scored{}
	}

	scored := make([]Scored, 0, len(row))
	for i, s := range row {
		if i == q {
			continue
		}
		scored = append(scored, Scored{Row: i, Score: s})
	}

	sort.Slice(scored, func(a, b int) bool {
		if scored[a].Score != scored[b].Score {
			return scored[a].Score > scored[b].Score
		}
		return scored[a].Row < scored[b].Row
	})

	if len(scored) > k {
		scored = scored[:k]
	}
	return scored
}

// Recommend returns up to k items most similar to title under m. An
// unresolvable title returns an empty list.
func Recommend(c *corpus.Corpus, m *similarity.Matrix, title string, k int) []Recommendation {
	q, err := c.Resolve(title)
	if err != nil || m == nil || q >= m.Dim() {
		return []Recommendation{}
	}

	top := TopK(m.Row(q), q, k)
	out := make([]Recommendation, len(top))
	for i, s := range top {
		it := c.Item(s.Row)
		out[i] = Recommendation{
			Row:   s.Row,
			ID:    it.ID,
			Title: it.Title,
			Score: s.Score,
		}
	}
	return out
}
