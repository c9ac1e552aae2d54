// Cinefacet - Faceted Movie Similarity Recommender
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinefacet

// Package vectorize encodes a facet's documents as raw term counts over a
// bounded vocabulary.
//
// The vocabulary holds the MaxFeatures most frequent tokens across the
// corpus (ties broken by term order) after removing English stopwords.
// Columns are ordered alphabetically. Tokens outside the vocabulary are
// ignored.
package vectorize

import (
	"errors"
	"regexp"
	"sort"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// DefaultMaxFeatures caps the vocabulary size.
const DefaultMaxFeatures = 5000

// ErrEmptyVocabulary is returned when every document is empty after
// tokenization and stopword removal. Callers skip the facet.
var ErrEmptyVocabulary = errors.New("empty vocabulary: documents contain only stop words or are empty")

// tokenPattern matches runs of two or more word characters.
var tokenPattern = regexp.MustCompile(`[\p{L}\p{N}\p{M}_]{2,}`)

// CountVectorizer builds term-count matrices. The zero value is not usable;
// construct with New.
type CountVectorizer struct {
	maxFeatures int
	stopWords   map[string]struct{}
}

// Option configures a CountVectorizer.
type Option func(*CountVectorizer)

// WithMaxFeatures caps the vocabulary size. Values <= 0 mean unbounded.
func WithMaxFeatures(n int) Option {
	return func(v *CountVectorizer) {
		v.maxFeatures = n
	}
}

// WithStopWords replaces the stopword set. A nil set disables filtering.
func WithStopWords(words []string) Option {
	return func(v *CountVectorizer) {
		if words == nil {
			v.stopWords = nil
			return
		}
		v.stopWords = make(map[string]struct{}, len(words))
		for _, w := range words {
			v.stopWords[strings.ToLower(w)] = struct{}{}
		}
	}
}

// New creates a CountVectorizer with the English stopword list and a
// vocabulary cap of DefaultMaxFeatures.
func New(opts ...Option) *CountVectorizer {
	v := &CountVectorizer{
		maxFeatures: DefaultMaxFeatures,
		stopWords:   EnglishStopWords(),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Analyze lowercases doc, splits it into tokens and drops stopwords.
func (v *CountVectorizer) Analyze(doc string) []string {
	tokens := tokenPattern.FindAllString(strings.ToLower(doc), -1)
	if v.stopWords == nil {
		return tokens
	}
	out := tokens[:0]
	for _, tok := range tokens {
		if _, stop := v.stopWords[tok]; !stop {
			out = append(out, tok)
		}
	}
	return out
}

// TermMatrix is an N x V matrix of raw term counts. Row i belongs to
// document i; column j counts Vocabulary[j].
type TermMatrix struct {
	Vocabulary []string
	Counts     *mat.Dense
}

// Dims returns the number of documents and vocabulary terms.
func (m *TermMatrix) Dims() (docs, terms int) {
	return m.Counts.Dims()
}

// Column returns the column index of term, or -1.
func (m *TermMatrix) Column(term string) int {
	i := sort.SearchStrings(m.Vocabulary, term)
	if i < len(m.Vocabulary) && m.Vocabulary[i] == term {
		return i
	}
	return -1
}

// FitTransform learns the vocabulary from docs and returns their counts.
func (v *CountVectorizer) FitTransform(docs []string) (*TermMatrix, error) {
	analyzed := make([][]string, len(docs))
	totals := make(map[string]int)
	for i, doc := range docs {
		analyzed[i] = v.Analyze(doc)
		for _, tok := range analyzed[i] {
			totals[tok]++
		}
	}
	if len(totals) == 0 {
		return nil, ErrEmptyVocabulary
	}

	vocab := v.selectVocabulary(totals)
	column := make(map[string]int, len(vocab))
	for j, term := range vocab {
		column[term] = j
	}

	counts := mat.NewDense(len(docs), len(vocab), nil)
	for i, tokens := range analyzed {
		for _, tok := range tokens {
			if j, ok := column[tok]; ok {
				counts.Set(i, j, counts.At(i, j)+1)
			}
		}
	}

	return &TermMatrix{Vocabulary: vocab, Counts: counts}, nil
}

// selectVocabulary keeps the most frequent terms and returns them sorted.
func (v *CountVectorizer) selectVocabulary(totals map[string]int) []string {
	terms := make([]string, 0, len(totals))
	for term := range totals {
		terms = append(terms, term)
	}

	if v.maxFeatures > 0 && len(terms) > v.maxFeatures {
		sort.Slice(terms, func(i, j int) bool {
			ci, cj := totals[terms[i]], totals[terms[j]]
			if ci != cj {
				return ci > cj
			}
			return terms[i] < terms[j]
		})
		terms = terms[:v.maxFeatures]
	}

	sort.Strings(terms)
	return terms
}
