// Cinefacet - Faceted Movie Similarity Recommender
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinefacet

// Package document turns source records into per-facet documents.
//
// Structured fields (genres, keywords, cast, crew, production companies)
// arrive as JSON-like text. Parse returns a ParseResult that is either
// Parsed or ParseFailure; the extractors consume it with an exhaustive type
// switch and fall back to an empty list, so one bad field never aborts a
// build.
//
// Multi-word names are collapsed ("Steven Spielberg" becomes
// "stevenspielberg") so that two people sharing a first name do not match at
// the token level.
package document

import (
	"strings"

	"github.com/tomtom215/cinefacet/internal/facet"
	"github.com/tomtom215/cinefacet/internal/text"
)

// Assembly is the output of assembling one record.
type Assembly struct {
	// Documents holds one document per facet.
	Documents map[facet.Facet]string

	// Details is the descriptive summary of the record.
	Details Details

	// Failures lists the structured fields that could not be parsed. Each
	// failed field contributed an empty list.
	Failures []*ParseError
}

// Assembler builds facet documents. It is safe for concurrent use.
type Assembler struct {
	norm      *text.Normalizer
	castLimit int
}

// Option configures an Assembler.
type Option func(*Assembler)

// WithCastLimit overrides the number of billed cast members kept.
func WithCastLimit(n int) Option {
	return func(a *Assembler) {
		if n > 0 {
			a.castLimit = n
		}
	}
}

// NewAssembler creates an Assembler that normalizes tag and keyword
// documents with norm.
func NewAssembler(norm *text.Normalizer, opts ...Option) *Assembler {
	a := &Assembler{
		norm:      norm,
		castLimit: DefaultCastLimit,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Assemble builds the composite tag document and the five facet documents.
//
// Tags are the overview words followed by genres, keywords, cast and
// director, stemmed and stopword-filtered. Keywords are normalized the same
// way. Genres, cast, director and companies are only lowercased.
//
//nolint:gocritic // Record is read-only here
func (a *Assembler) Assemble(rec Record) Assembly {
	var failures []*ParseError
	note := func(field string, perr *ParseError) {
		if perr == nil {
			return
		}
		if perr.Field == "" {
			perr.Field = field
		}
		failures = append(failures, perr)
	}

	genreNames, perr := names(Parse(FieldGenres, rec.Genres))
	note(FieldGenres, perr)
	keywordNames, perr := names(Parse(FieldKeywords, rec.Keywords))
	note(FieldKeywords, perr)
	companyNames, perr := names(Parse(FieldProductionCompanies, rec.ProductionCompanies))
	note(FieldProductionCompanies, perr)

	castResult := Parse(FieldCast, rec.Cast)
	castNames, perr := topCast(castResult, a.castLimit)
	note(FieldCast, perr)

	crewResult := Parse(FieldCrew, rec.Crew)
	directorNames, perr := director(crewResult)
	note(FieldCrew, perr)

	genres := collapseAll(genreNames)
	keywords := collapseAll(keywordNames)
	cast := collapseAll(castNames)
	directors := collapseAll(directorNames)
	companies := collapseAll(companyNames)

	overview := strings.Fields(rec.Overview)
	tags := make([]string, 0, len(overview)+len(genres)+len(keywords)+len(cast)+len(directors))
	tags = append(tags, overview...)
	tags = append(tags, genres...)
	tags = append(tags, keywords...)
	tags = append(tags, cast...)
	tags = append(tags, directors...)

	docs := map[facet.Facet]string{
		facet.Tags:                a.norm.Normalize(tags),
		facet.Genres:              lowerJoin(genres),
		facet.Cast:                lowerJoin(cast),
		facet.ProductionCompanies: lowerJoin(companies),
		facet.Keywords:            a.norm.Normalize(keywords),
		facet.Director:            lowerJoin(directors),
	}

	return Assembly{
		Documents: docs,
		Details:   buildDetails(&rec, genreNames, directorNames, castResult),
		Failures:  failures,
	}
}

func lowerJoin(tokens []string) string {
	return strings.ToLower(strings.Join(tokens, " "))
}

func buildDetails(rec *Record, genres, directors []string, cast ParseResult) Details {
	d := Details{
		ID:          rec.ID,
		Title:       rec.Title,
		Overview:    rec.Overview,
		ReleaseDate: strings.TrimSpace(rec.ReleaseDate),
		Budget:      parseInt(rec.Budget),
		Revenue:     parseInt(rec.Revenue),
		Runtime:     parseFloat(rec.Runtime),
		Popularity:  parseFloat(rec.Popularity),
		VoteAverage: parseFloat(rec.VoteAverage),
		VoteCount:   parseInt(rec.VoteCount),
		Status:      strings.TrimSpace(rec.Status),
		Genres:      genres,
		Languages:   Names(Parse(FieldSpokenLanguages, rec.SpokenLanguages)),
		CastIDs:     IDs(cast),
	}
	if len(directors) > 0 {
		d.Director = directors[0]
	}
	return d
}
