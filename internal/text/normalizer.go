// Cinefacet - Faceted Movie Similarity Recommender
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinefacet

// Package text reduces raw tokens to the canonical form used by the tag and
// keyword facets: stemmed, lowercased, stopword-free and punctuation-free.
//
// A Normalizer is built once from an immutable Config and passed to the
// components that need it:
//
//	n := text.NewNormalizer(text.DefaultConfig())
//	doc := n.Normalize(strings.Fields(overview))
package text

import (
	"strings"
	"unicode/utf8"

	snowballeng "github.com/kljensen/snowball/english"
)

// Punctuation is the ASCII punctuation set stripped from normalized output.
const Punctuation = "!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~"

// Config holds the static inputs of normalization.
type Config struct {
	// StopWords are removed after stemming and lowercasing.
	StopWords StopWords

	// MinLength is the minimum length a stemmed token needs to be kept.
	// Tokens of length <= MinLength-1 are dropped. Default: 3
	MinLength int

	// Punctuation lists the characters stripped from the final string.
	Punctuation string
}

// DefaultConfig returns the English configuration.
func DefaultConfig() Config {
	return Config{
		StopWords:   EnglishStopWords(),
		MinLength:   3,
		Punctuation: Punctuation,
	}
}

// Normalizer applies a Config. It holds no mutable state and is safe for
// concurrent use.
type Normalizer struct {
	cfg   Config
	strip *strings.Replacer
}

// NewNormalizer creates a Normalizer from cfg. Zero values fall back to the
// defaults.
//
//nolint:gocritic // Config is passed by value to keep it immutable
func NewNormalizer(cfg Config) *Normalizer {
	if cfg.StopWords.set == nil {
		cfg.StopWords = EnglishStopWords()
	}
	if cfg.MinLength <= 0 {
		cfg.MinLength = 3
	}
	if cfg.Punctuation == "" {
		cfg.Punctuation = Punctuation
	}

	pairs := make([]string, 0, 2*len(cfg.Punctuation))
	for _, r := range cfg.Punctuation {
		pairs = append(pairs, string(r), "")
	}

	return &Normalizer{
		cfg:   cfg,
		strip: strings.NewReplacer(pairs...),
	}
}

// Config returns the configuration the normalizer was built with.
func (n *Normalizer) Config() Config {
	return n.cfg
}

// Stem reduces one token to its lowercase root form.
func (n *Normalizer) Stem(token string) string {
	return strings.ToLower(snowballeng.Stem(strings.ToLower(token), false))
}

// Tokens returns the surviving stemmed tokens in input order, before
// punctuation stripping. The stopword check also applies to the stem
// without punctuation, so "(the)" is dropped like "the". The length check
// sees the stem as is.
func (n *Normalizer) Tokens(tokens []string) []string {
	out := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		stem := n.Stem(tok)
		bare := n.strip.Replace(stem)
		if n.cfg.StopWords.Contains(stem) || n.cfg.StopWords.Contains(bare) {
			continue
		}
		if utf8.RuneCountInString(stem) < n.cfg.MinLength {
			continue
		}
		out = append(out, stem)
	}
	return out
}

// Normalize joins the surviving tokens with single spaces and strips
// punctuation from the result.
func (n *Normalizer) Normalize(tokens []string) string {
	return n.strip.Replace(strings.Join(n.Tokens(tokens), " "))
}
