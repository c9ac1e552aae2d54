// Cinefacet - Faceted Movie Similarity Recommender
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinefacet

package document

import (
	"strings"
	"unicode"
)

// DefaultCastLimit is the number of billed cast members kept per item.
const DefaultCastLimit = 10

// Names returns the name of every object. A failed parse, or any object
// without a string name, yields an empty list.
func Names(r ParseResult) []string {
	names, _ := names(r)
	return names
}

func names(r ParseResult) ([]string, *ParseError) {
	switch v := r.(type) {
	case Parsed:
		out := make([]string, 0, len(v.Objects))
		for _, o := range v.Objects {
			name, err := o.String("name")
			if err != nil {
				return []string{}, &ParseError{Err: err}
			}
			out = append(out, name)
		}
		return out, nil
	case ParseFailure:
		return []string{}, v.Err
	default:
		return []string{}, nil
	}
}

// TopCast returns the first limit names in billing order.
func TopCast(r ParseResult, limit int) []string {
	cast, _ := topCast(r, limit)
	return cast
}

func topCast(r ParseResult, limit int) ([]string, *ParseError) {
	switch v := r.(type) {
	case Parsed:
		n := min(limit, len(v.Objects))
		out := make([]string, 0, n)
		for _, o := range v.Objects[:n] {
			name, err := o.String("name")
			if err != nil {
				return []string{}, &ParseError{Err: err}
			}
			out = append(out, name)
		}
		return out, nil
	case ParseFailure:
		return []string{}, v.Err
	default:
		return []string{}, nil
	}
}

// Director returns the first crew member whose job is "Director". The result
// has at most one element.
func Director(r ParseResult) []string {
	d, _ := director(r)
	return d
}

func director(r ParseResult) ([]string, *ParseError) {
	switch v := r.(type) {
	case Parsed:
		for _, o := range v.Objects {
			job, err := o.String("job")
			if err != nil {
				return []string{}, &ParseError{Err: err}
			}
			if job != "Director" {
				continue
			}
			name, err := o.String("name")
			if err != nil {
				return []string{}, &ParseError{Err: err}
			}
			return []string{name}, nil
		}
		return []string{}, nil
	case ParseFailure:
		return []string{}, v.Err
	default:
		return []string{}, nil
	}
}

// IDs returns the integer id of every object, skipping objects without one.
func IDs(r ParseResult) []int64 {
	v, ok := r.(Parsed)
	if !ok {
		return []int64{}
	}
	out := make([]int64, 0, len(v.Objects))
	for _, o := range v.Objects {
		if id, err := o.Int("id"); err == nil {
			out = append(out, id)
		}
	}
	return out
}

// CollapseWhitespace removes every whitespace character inside name, so
// "Steven Spielberg" becomes "StevenSpielberg".
func CollapseWhitespace(name string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, name)
}

func collapseAll(names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = CollapseWhitespace(n)
	}
	return out
}
