// Cinefacet - Faceted Movie Similarity Recommender
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinefacet

// Package artifact persists built artifact sets: the corpus together with
// one similarity matrix per available facet.
//
// # Versioning
//
// Every Publish writes a new, monotonically numbered version. The corpus and
// all matrices of a version are written first, then the manifest, and only
// then is the current-version pointer switched. Readers follow the pointer
// exclusively, so they see either the previous complete set or the new
// complete set and never a mix.
//
// # Integrity
//
// Each artifact carries a SHA-256 checksum of its uncompressed encoding,
// recorded in the manifest and verified on load.
//
// # Backends
//
//   - FileStore: gzip-compressed gob files in v%08d directories on any
//     hackpadfs filesystem (the OS filesystem in production, mem in tests).
//   - BadgerStore: chunked values under a version key prefix in BadgerDB.
package artifact

import (
	"bytes"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/tomtom215/cinefacet/internal/corpus"
	"github.com/tomtom215/cinefacet/internal/facet"
	"github.com/tomtom215/cinefacet/internal/similarity"
)

var (
	// ErrNoArtifacts is returned when no version has been published.
	ErrNoArtifacts = errors.New("no published artifacts")

	// ErrChecksumMismatch is returned when stored data fails verification.
	ErrChecksumMismatch = errors.New("artifact checksum mismatch")
)

// Artifact names used as checksum keys.
const (
	corpusArtifact = "corpus"
	matrixPrefix   = "matrix/"
)

func matrixArtifact(f facet.Facet) string {
	return matrixPrefix + f.String()
}

// Manifest describes one published version.
type Manifest struct {
	Version     int64             `json:"version"`
	BuildID     string            `json:"build_id,omitempty"`
	BuiltAt     time.Time         `json:"built_at"`
	PublishedAt time.Time         `json:"published_at"`
	Items       int               `json:"items"`
	Facets      []facet.Facet     `json:"facets"`
	Skipped     []facet.Facet     `json:"skipped"`
	Checksums   map[string]string `json:"checksums"`
	SizeBytes   int64             `json:"size_bytes"`
}

// Bundle is a complete artifact set. Publish ignores Manifest; Latest fills
// it.
type Bundle struct {
	Manifest Manifest

	BuildID  string
	BuiltAt  time.Time
	Items    []corpus.Item
	Matrices map[facet.Facet]*similarity.Matrix
	Skipped  []facet.Facet
}

// validate checks the bundle before anything is written.
func (b *Bundle) validate() error {
	if len(b.Items) == 0 {
		return errors.New("bundle has no items")
	}
	for f, m := range b.Matrices {
		if !f.Valid() {
			return fmt.Errorf("bundle: %w: %d", facet.ErrUnknown, f)
		}
		if err := similarity.CheckAlignment(m, len(b.Items)); err != nil {
			return fmt.Errorf("bundle facet %s: %w", f, err)
		}
	}
	return nil
}

// facets returns the bundle's facets in canonical order.
func (b *Bundle) facets() []facet.Facet {
	out := make([]facet.Facet, 0, len(b.Matrices))
	for _, f := range facet.All {
		if _, ok := b.Matrices[f]; ok {
			out = append(out, f)
		}
	}
	return out
}

// newManifest fills the fields shared by every backend.
func (b *Bundle) newManifest(version int64) Manifest {
	skipped := b.Skipped
	if skipped == nil {
		skipped = []facet.Facet{}
	}
	return Manifest{
		Version:     version,
		BuildID:     b.BuildID,
		BuiltAt:     b.BuiltAt,
		PublishedAt: time.Now().UTC(),
		Items:       len(b.Items),
		Facets:      b.facets(),
		Skipped:     skipped,
		Checksums:   make(map[string]string, len(b.Matrices)+1),
	}
}

// Store persists artifact sets.
type Store interface {
	// Publish writes b as a new version and makes it current.
	Publish(ctx context.Context, b *Bundle) (Manifest, error)

	// Latest loads the current version.
	Latest(ctx context.Context) (*Bundle, error)

	// Current returns the manifest of the current version.
	Current(ctx context.Context) (Manifest, error)

	// Exists reports whether any version has been published.
	Exists(ctx context.Context) (bool, error)

	// Prune deletes all but the newest keep versions. The current version
	// is never deleted.
	Prune(ctx context.Context, keep int) error

	Close() error
}

// storedFile is the encoded form of one artifact.
type storedFile struct {
	Name           string
	Checksum       string
	CompressedData []byte
}

// encode gob-encodes v, checksums the raw encoding and gzips it.
func encode(name string, v any) (*storedFile, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, fmt.Errorf("encode %s: %w", name, err)
	}
	raw := buf.Bytes()
	sum := sha256.Sum256(raw)

	var compressed bytes.Buffer
	gzw := gzip.NewWriter(&compressed)
	if _, err := gzw.Write(raw); err != nil {
		return nil, fmt.Errorf("compress %s: %w", name, err)
	}
	if err := gzw.Close(); err != nil {
		return nil, fmt.Errorf("finalize compression of %s: %w", name, err)
	}

	return &storedFile{
		Name:           name,
		Checksum:       hex.EncodeToString(sum[:]),
		CompressedData: compressed.Bytes(),
	}, nil
}

// decode reverses encode, verifying the checksum against want (or the
// stored checksum when want is empty).
func decode(sf *storedFile, want string, target any) error {
	if want == "" {
		want = sf.Checksum
	}

	gzr, err := gzip.NewReader(bytes.NewReader(sf.CompressedData))
	if err != nil {
		return fmt.Errorf("decompress %s: %w", sf.Name, err)
	}
	defer func() { _ = gzr.Close() }() //nolint:errcheck // read-only

	raw, err := io.ReadAll(gzr)
	if err != nil {
		return fmt.Errorf("read decompressed %s: %w", sf.Name, err)
	}

	sum := sha256.Sum256(raw)
	if got := hex.EncodeToString(sum[:]); got != want {
		return fmt.Errorf("%w: %s expected %s, got %s", ErrChecksumMismatch, sf.Name, want, got)
	}

	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(target); err != nil {
		return fmt.Errorf("decode %s: %w", sf.Name, err)
	}
	return nil
}

// marshalFile gob-encodes a storedFile for writing.
func marshalFile(sf *storedFile) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(sf); err != nil {
		return nil, fmt.Errorf("write %s: %w", sf.Name, err)
	}
	return buf.Bytes(), nil
}

func unmarshalFile(name string, data []byte) (*storedFile, error) {
	var sf storedFile
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&sf); err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return &sf, nil
}

func checkContext(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("artifact store: %w", err)
	}
	return nil
}
