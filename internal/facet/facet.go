// Cinefacet - Faceted Movie Similarity Recommender
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinefacet

// Package facet enumerates the independent similarity dimensions.
package facet

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknown is returned for names and values that are not facets.
var ErrUnknown = errors.New("unknown facet")

// Facet is one similarity dimension. Each facet has its own document per
// item and its own similarity matrix.
type Facet uint8

const (
	Tags Facet = iota
	Genres
	Cast
	ProductionCompanies
	Keywords
	Director
)

// All lists every facet in build order.
var All = []Facet{Tags, Genres, Cast, ProductionCompanies, Keywords, Director}

var names = [...]string{
	Tags:                "tags",
	Genres:              "genres",
	Cast:                "cast",
	ProductionCompanies: "production_companies",
	Keywords:            "keywords",
	Director:            "director",
}

var labels = [...]string{
	Tags:                "General",
	Genres:              "Genre",
	Cast:                "Cast",
	ProductionCompanies: "Production Company",
	Keywords:            "Keywords",
	Director:            "Director",
}

// captions complete the sentence "Movies similar to <title> ...".
var captions = [...]string{
	Tags:                "are",
	Genres:              "on the basis of genres are",
	Cast:                "on the basis of cast are",
	ProductionCompanies: "from the same production company are",
	Keywords:            "on the basis of keywords are",
	Director:            "directed by the same person are",
}

// String returns the wire name, e.g. "production_companies".
func (f Facet) String() string {
	if !f.Valid() {
		return fmt.Sprintf("facet(%d)", uint8(f))
	}
	return names[f]
}

// Valid reports whether f is a known facet.
func (f Facet) Valid() bool {
	return int(f) < len(names)
}

// Label returns the short human-facing name.
func (f Facet) Label() string {
	if !f.Valid() {
		return ""
	}
	return labels[f]
}

// Caption returns the listing header for a query title.
func (f Facet) Caption(title string) string {
	if !f.Valid() {
		return ""
	}
	return fmt.Sprintf("Movies similar to %s %s", title, captions[f])
}

// Parse resolves a wire name or label, case-insensitively. "general" and
// "production_company" are accepted aliases.
func Parse(s string) (Facet, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	key = strings.ReplaceAll(key, " ", "_")
	switch key {
	case "general", "tag":
		return Tags, nil
	case "genre":
		return Genres, nil
	case "production_company", "company", "companies":
		return ProductionCompanies, nil
	case "keyword":
		return Keywords, nil
	case "directors":
		return Director, nil
	}
	for i, n := range names {
		if n == key {
			return Facet(i), nil
		}
	}
	return 0, fmt.Errorf("%w %q", ErrUnknown, s)
}

// MarshalText implements encoding.TextMarshaler.
func (f Facet) MarshalText() ([]byte, error) {
	if !f.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknown, uint8(f))
	}
	return []byte(names[f]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (f *Facet) UnmarshalText(b []byte) error {
	parsed, err := Parse(string(b))
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}
