// Cinefacet - Faceted Movie Similarity Recommender
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinefacet

// Package recommend answers "movies similar to X along facet F" from
// precomputed similarity matrices.
//
// # Retrieval
//
// TopK ranks every item except the query by descending score, breaking ties
// by ascending row index, and keeps the first k. Recommend wraps it with
// title resolution; an unknown title yields an empty list, never an error.
//
// # Engine
//
// The Engine serves an immutable Snapshot (corpus, one matrix per available
// facet, artifact version). A rebuilt artifact set is installed with Swap;
// in-flight requests keep the snapshot they started with. Responses are
// cached per snapshot version for a configurable TTL.
//
//	engine, _ := recommend.NewEngine(recommend.DefaultConfig(), logger)
//	engine.Swap(snapshot)
//	resp, err := engine.Recommend(ctx, recommend.Request{
//	    Title: "Inception",
//	    Facet: facet.Director,
//	    View:  recommend.ViewCompact,
//	})
//
// # Thread Safety
//
// All Engine methods are safe for concurrent use.
package recommend
