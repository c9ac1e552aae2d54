// Cinefacet - Faceted Movie Similarity Recommender
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinefacet

package document

import (
	"strconv"
	"strings"
)

// Record is one joined source row. Structured fields hold their raw text; an
// empty string means the value is missing.
type Record struct {
	ID                  int64
	Title               string
	Overview            string
	Genres              string
	Keywords            string
	Cast                string
	Crew                string
	ProductionCompanies string

	// Descriptive columns used for item details only.
	ReleaseDate     string
	Budget          string
	Revenue         string
	Runtime         string
	Popularity      string
	VoteAverage     string
	VoteCount       string
	SpokenLanguages string
	Status          string
}

// Mandatory field names, in the order Missing reports them.
const (
	FieldTitle               = "title"
	FieldOverview            = "overview"
	FieldGenres              = "genres"
	FieldKeywords            = "keywords"
	FieldCast                = "cast"
	FieldCrew                = "crew"
	FieldProductionCompanies = "production_companies"
	FieldSpokenLanguages     = "spoken_languages"
)

// Missing returns the mandatory fields that have no value. A record with any
// missing field is excluded from the corpus.
func (r *Record) Missing() []string {
	var missing []string
	check := func(name, value string) {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, name)
		}
	}
	check(FieldTitle, r.Title)
	check(FieldOverview, r.Overview)
	check(FieldGenres, r.Genres)
	check(FieldKeywords, r.Keywords)
	check(FieldCast, r.Cast)
	check(FieldCrew, r.Crew)
	check(FieldProductionCompanies, r.ProductionCompanies)
	return missing
}

// Complete reports whether every mandatory field is present.
func (r *Record) Complete() bool {
	return len(r.Missing()) == 0
}

// Details is the descriptive summary of one item.
type Details struct {
	ID          int64    `json:"id"`
	Title       string   `json:"title"`
	Overview    string   `json:"overview"`
	ReleaseDate string   `json:"release_date,omitempty"`
	Budget      int64    `json:"budget"`
	Revenue     int64    `json:"revenue"`
	Runtime     float64  `json:"runtime"`
	Popularity  float64  `json:"popularity"`
	VoteAverage float64  `json:"vote_average"`
	VoteCount   int64    `json:"vote_count"`
	Status      string   `json:"status,omitempty"`
	Genres      []string `json:"genres"`
	Languages   []string `json:"spoken_languages"`
	Director    string   `json:"director,omitempty"`
	CastIDs     []int64  `json:"cast_ids"`
}

func parseInt(s string) int64 {
	s = strings.TrimSpace(s)
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return int64(f)
	}
	return 0
}

func parseFloat(s string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return f
}
