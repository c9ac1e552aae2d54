// Cinefacet - Faceted Movie Similarity Recommender
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinefacet

package artifact

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tomtom215/cinefacet/internal/facet"
	"github.com/tomtom215/cinefacet/internal/similarity"
)

// Key layout:
//
//	current                          8-byte big-endian version
//	v/00000003/manifest              manifest JSON
//	v/00000003/corpus/000000         encoded corpus, chunk 0
//	v/00000003/matrix/tags/000000    matrix bytes, chunk 0
const (
	currentKey = "current"

	// DefaultChunkSize bounds a single value. It stays below the 1 MiB
	// value limit badger enforces in in-memory mode.
	DefaultChunkSize = 512 << 10
)

// BadgerStore keeps artifact versions in BadgerDB.
type BadgerStore struct {
	db        *badger.DB
	ownsDB    bool
	chunkSize int
	logger    zerolog.Logger
	mu        sync.Mutex
}

// OpenBadgerStore opens (or creates) a database at dir. An empty dir opens
// an in-memory database.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func OpenBadgerStore(dir string, logger zerolog.Logger) (*BadgerStore, error) {
	opts := badger.DefaultOptions(dir)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open BadgerDB: %w", err)
	}
	s := NewBadgerStore(db, logger)
	s.ownsDB = true
	return s, nil
}

// NewBadgerStore wraps an open database. Close does not close db.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewBadgerStore(db *badger.DB, logger zerolog.Logger) *BadgerStore {
	return &BadgerStore{
		db:        db,
		chunkSize: DefaultChunkSize,
		logger:    logger.With().Str("component", "artifact").Str("backend", "badger").Logger(),
	}
}

func versionPrefix(version int64) string {
	return fmt.Sprintf("v/%08d/", version)
}

func chunkKey(prefix, name string, i int) []byte {
	return []byte(fmt.Sprintf("%s%s/%06d", prefix, name, i))
}

// Publish writes all artifacts of the new version with a WriteBatch, then
// switches the current key in a single transaction.
func (s *BadgerStore) Publish(ctx context.Context, b *Bundle) (Manifest, error) {
	if err := b.validate(); err != nil {
		return Manifest{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	latest, err := s.latestVersion()
	if err != nil {
		return Manifest{}, err
	}
	version := latest + 1
	prefix := versionPrefix(version)
	m := b.newManifest(version)

	wb := s.db.NewWriteBatch()
	defer wb.Cancel()

	sf, err := encode(corpusArtifact, b.Items)
	if err != nil {
		return Manifest{}, err
	}
	data, err := marshalFile(sf)
	if err != nil {
		return Manifest{}, err
	}
	if err := s.writeChunks(wb, prefix, corpusArtifact, data); err != nil {
		return Manifest{}, err
	}
	m.Checksums[corpusArtifact] = sf.Checksum
	m.SizeBytes += int64(len(data))

	for _, f := range m.Facets {
		if err := checkContext(ctx); err != nil {
			return Manifest{}, err
		}
		raw, err := b.Matrices[f].MarshalBinary()
		if err != nil {
			return Manifest{}, fmt.Errorf("encode %s matrix: %w", f, err)
		}
		name := matrixArtifact(f)
		sum := sha256.Sum256(raw)
		m.Checksums[name] = hex.EncodeToString(sum[:])
		m.SizeBytes += int64(len(raw))

		if err := s.writeChunks(wb, prefix, name, raw); err != nil {
			return Manifest{}, err
		}
	}

	manifest, err := json.Marshal(m)
	if err != nil {
		return Manifest{}, fmt.Errorf("encode manifest: %w", err)
	}
	if err := wb.Set([]byte(prefix+manifestFile), manifest); err != nil {
		return Manifest{}, fmt.Errorf("write manifest: %w", err)
	}
	if err := wb.Flush(); err != nil {
		return Manifest{}, fmt.Errorf("flush version %d: %w", version, err)
	}

	var ptr [8]byte
	binary.BigEndian.PutUint64(ptr[:], uint64(version))
	if err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(currentKey), ptr[:])
	}); err != nil {
		return Manifest{}, fmt.Errorf("switch current version: %w", err)
	}

	s.logger.Info().
		Int64("version", version).
		Int("items", m.Items).
		Int("facets", len(m.Facets)).
		Msg("artifacts published")
	return m, nil
}

// Latest loads the current version in one read transaction.
func (s *BadgerStore) Latest(ctx context.Context) (*Bundle, error) {
	var b *Bundle
	err := s.db.View(func(txn *badger.Txn) error {
		version, err := currentVersion(txn)
		if err != nil {
			return err
		}
		prefix := versionPrefix(version)

		m, err := readManifest(txn, prefix)
		if err != nil {
			return err
		}

		b = &Bundle{
			Manifest: m,
			BuildID:  m.BuildID,
			BuiltAt:  m.BuiltAt,
			Skipped:  m.Skipped,
			Matrices: make(map[facet.Facet]*similarity.Matrix, len(m.Facets)),
		}

		data, err := readChunks(txn, prefix, corpusArtifact)
		if err != nil {
			return err
		}
		sf, err := unmarshalFile(corpusArtifact, data)
		if err != nil {
			return err
		}
		if err := decode(sf, m.Checksums[corpusArtifact], &b.Items); err != nil {
			return err
		}

		for _, f := range m.Facets {
			if err := checkContext(ctx); err != nil {
				return err
			}
			mat, err := readMatrix(txn, prefix, matrixArtifact(f), m.Checksums[matrixArtifact(f)])
			if err != nil {
				return err
			}
			b.Matrices[f] = mat
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if err := b.validate(); err != nil {
		return nil, err
	}
	return b, nil
}

// writeChunks splits data into values of at most chunkSize bytes.
func (s *BadgerStore) writeChunks(wb *badger.WriteBatch, prefix, name string, data []byte) error {
	for i, off := 0, 0; off < len(data) || i == 0; i, off = i+1, off+s.chunkSize {
		end := off + s.chunkSize
		if end > len(data) {
			end = len(data)
		}
		if err := wb.Set(chunkKey(prefix, name, i), data[off:end]); err != nil {
			return fmt.Errorf("write %s chunk %d: %w", name, i, err)
		}
	}
	return nil
}

// readChunks concatenates the chunks of one artifact.
func readChunks(txn *badger.Txn, prefix, name string) ([]byte, error) {
	var raw bytes.Buffer
	chunkPrefix := []byte(prefix + name + "/")

	opts := badger.DefaultIteratorOptions
	opts.Prefix = chunkPrefix
	it := txn.NewIterator(opts)
	defer it.Close()

	// Chunk keys are zero padded, so key order is chunk order.
	chunks := 0
	for it.Seek(chunkPrefix); it.ValidForPrefix(chunkPrefix); it.Next() {
		if err := it.Item().Value(func(val []byte) error {
			raw.Write(val)
			return nil
		}); err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		chunks++
	}
	if chunks == 0 {
		return nil, fmt.Errorf("read %s: %w", name, badger.ErrKeyNotFound)
	}
	return raw.Bytes(), nil
}

func readMatrix(txn *badger.Txn, prefix, name, want string) (*similarity.Matrix, error) {
	raw, err := readChunks(txn, prefix, name)
	if err != nil {
		return nil, err
	}

	sum := sha256.Sum256(raw)
	if got := hex.EncodeToString(sum[:]); got != want {
		return nil, fmt.Errorf("%w: %s expected %s, got %s", ErrChecksumMismatch, name, want, got)
	}

	var m similarity.Matrix
	if err := m.UnmarshalBinary(raw); err != nil {
		return nil, fmt.Errorf("decode %s: %w", name, err)
	}
	return &m, nil
}

// Current returns the manifest of the current version.
func (s *BadgerStore) Current(_ context.Context) (Manifest, error) {
	var m Manifest
	err := s.db.View(func(txn *badger.Txn) error {
		version, err := currentVersion(txn)
		if err != nil {
			return err
		}
		m, err = readManifest(txn, versionPrefix(version))
		return err
	})
	return m, err
}

// Exists reports whether the current key is set.
func (s *BadgerStore) Exists(_ context.Context) (bool, error) {
	err := s.db.View(func(txn *badger.Txn) error {
		_, err := currentVersion(txn)
		return err
	})
	if errors.Is(err, ErrNoArtifacts) {
		return false, nil
	}
	return err == nil, err
}

// Prune drops the key prefixes of old versions.
func (s *BadgerStore) Prune(_ context.Context, keep int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if keep < 1 {
		keep = 1
	}

	var current int64
	var versions []int64
	err := s.db.View(func(txn *badger.Txn) error {
		v, err := currentVersion(txn)
		if err != nil && !errors.Is(err, ErrNoArtifacts) {
			return err
		}
		current = v
		versions, err = listVersions(txn)
		return err
	})
	if err != nil {
		return err
	}

	var drop [][]byte
	for i := 0; i < len(versions)-keep; i++ {
		if versions[i] != current {
			drop = append(drop, []byte(versionPrefix(versions[i])))
		}
	}
	if len(drop) == 0 {
		return nil
	}
	if err := s.db.DropPrefix(drop...); err != nil {
		return fmt.Errorf("drop old versions: %w", err)
	}
	s.logger.Info().Int("removed", len(drop)).Msg("pruned artifact versions")
	return nil
}

// Close closes the database if this store opened it.
func (s *BadgerStore) Close() error {
	if !s.ownsDB {
		return nil
	}
	return s.db.Close()
}

// latestVersion returns the highest stored version, or 0.
func (s *BadgerStore) latestVersion() (int64, error) {
	var latest int64
	err := s.db.View(func(txn *badger.Txn) error {
		versions, err := listVersions(txn)
		if err != nil {
			return err
		}
		if len(versions) > 0 {
			latest = versions[len(versions)-1]
		}
		return nil
	})
	return latest, err
}

func currentVersion(txn *badger.Txn) (int64, error) {
	item, err := txn.Get([]byte(currentKey))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return 0, ErrNoArtifacts
	}
	if err != nil {
		return 0, fmt.Errorf("read current version: %w", err)
	}
	var version int64
	err = item.Value(func(val []byte) error {
		if len(val) != 8 {
			return fmt.Errorf("current version has %d bytes", len(val))
		}
		version = int64(binary.BigEndian.Uint64(val))
		return nil
	})
	return version, err
}

func readManifest(txn *badger.Txn, prefix string) (Manifest, error) {
	var m Manifest
	item, err := txn.Get([]byte(prefix + manifestFile))
	if err != nil {
		return m, fmt.Errorf("read manifest: %w", err)
	}
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &m)
	})
	if err != nil {
		return m, fmt.Errorf("decode manifest: %w", err)
	}
	return m, nil
}

// listVersions returns versions that have a manifest, ascending.
func listVersions(txn *badger.Txn) ([]int64, error) {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	opts.Prefix = []byte("v/")
	it := txn.NewIterator(opts)
	defer it.Close()

	var versions []int64
	suffix := []byte("/" + manifestFile)
	for it.Seek(opts.Prefix); it.ValidForPrefix(opts.Prefix); it.Next() {
		key := it.Item().Key()
		if !bytes.HasSuffix(key, suffix) {
			continue
		}
		var v int64
		if _, err := fmt.Sscanf(string(key), "v/%08d/", &v); err != nil {
			continue
		}
		versions = append(versions, v)
	}
	return versions, nil
}
