// Cinefacet - Faceted Movie Similarity Recommender
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinefacet

package artifact

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/goccy/go-json"
	"github.com/hack-pad/hackpadfs"
	osfs "github.com/hack-pad/hackpadfs/os"
	"github.com/rs/zerolog"

	"github.com/tomtom215/cinefacet/internal/facet"
	"github.com/tomtom215/cinefacet/internal/similarity"
)

const (
	currentFile  = "CURRENT"
	manifestFile = "manifest.json"
	fileSuffix   = ".gob.gz"
	dirPerm      = 0o750
	filePerm     = 0o640
)

// FileStore keeps each version in its own directory:
//
//	<root>/CURRENT            name of the current version directory
//	<root>/v00000003/manifest.json
//	<root>/v00000003/corpus.gob.gz
//	<root>/v00000003/matrix_tags.gob.gz
type FileStore struct {
	fs     hackpadfs.FS
	root   string
	logger zerolog.Logger
	mu     sync.RWMutex
}

// NewFileStore creates a store under root on fsys. root is a slash
// separated path valid for fsys.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewFileStore(fsys hackpadfs.FS, root string, logger zerolog.Logger) (*FileStore, error) {
	root = path.Clean(root)
	if err := hackpadfs.MkdirAll(fsys, root, dirPerm); err != nil {
		return nil, fmt.Errorf("create artifact directory: %w", err)
	}
	return &FileStore{
		fs:     fsys,
		root:   root,
		logger: logger.With().Str("component", "artifact").Str("backend", "file").Logger(),
	}, nil
}

// OpenFileStore opens a store at an OS directory.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func OpenFileStore(dir string, logger zerolog.Logger) (*FileStore, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve artifact directory: %w", err)
	}
	root := strings.TrimPrefix(filepath.ToSlash(abs), "/")
	return NewFileStore(osfs.NewFS(), root, logger)
}

// Publish writes b as a new version directory and then switches CURRENT.
func (s *FileStore) Publish(ctx context.Context, b *Bundle) (Manifest, error) {
	if err := b.validate(); err != nil {
		return Manifest{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	versions, err := s.scanVersions()
	if err != nil {
		return Manifest{}, err
	}
	var version int64 = 1
	if len(versions) > 0 {
		version = versions[len(versions)-1] + 1
	}

	dir := s.versionDir(version)
	if err := hackpadfs.MkdirAll(s.fs, dir, dirPerm); err != nil {
		return Manifest{}, fmt.Errorf("create version directory: %w", err)
	}

	m, err := s.writeVersion(ctx, dir, version, b)
	if err != nil {
		if rmErr := hackpadfs.RemoveAll(s.fs, dir); rmErr != nil {
			s.logger.Warn().Err(rmErr).Str("dir", dir).Msg("failed to remove partial version")
		}
		return Manifest{}, err
	}

	s.logger.Info().
		Int64("version", m.Version).
		Int("items", m.Items).
		Int("facets", len(m.Facets)).
		Int64("size_bytes", m.SizeBytes).
		Msg("artifacts published")
	return m, nil
}

func (s *FileStore) writeVersion(ctx context.Context, dir string, version int64, b *Bundle) (Manifest, error) {
	m := b.newManifest(version)

	write := func(name string, v any) error {
		if err := checkContext(ctx); err != nil {
			return err
		}
		sf, err := encode(name, v)
		if err != nil {
			return err
		}
		data, err := marshalFile(sf)
		if err != nil {
			return err
		}
		if err := hackpadfs.WriteFullFile(s.fs, path.Join(dir, fileName(name)), data, filePerm); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
		m.Checksums[name] = sf.Checksum
		m.SizeBytes += int64(len(data))
		return nil
	}

	if err := write(corpusArtifact, b.Items); err != nil {
		return Manifest{}, err
	}
	for _, f := range m.Facets {
		if err := write(matrixArtifact(f), b.Matrices[f]); err != nil {
			return Manifest{}, err
		}
	}

	manifest, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return Manifest{}, fmt.Errorf("encode manifest: %w", err)
	}
	if err := hackpadfs.WriteFullFile(s.fs, path.Join(dir, manifestFile), manifest, filePerm); err != nil {
		return Manifest{}, fmt.Errorf("write manifest: %w", err)
	}

	// Switch the pointer last.
	tmp := path.Join(s.root, currentFile+".tmp")
	if err := hackpadfs.WriteFullFile(s.fs, tmp, []byte(path.Base(dir)+"\n"), filePerm); err != nil {
		return Manifest{}, fmt.Errorf("write current pointer: %w", err)
	}
	if err := hackpadfs.Rename(s.fs, tmp, path.Join(s.root, currentFile)); err != nil {
		return Manifest{}, fmt.Errorf("switch current pointer: %w", err)
	}
	return m, nil
}

// Latest loads the version named by CURRENT.
func (s *FileStore) Latest(ctx context.Context) (*Bundle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	dir, m, err := s.current()
	if err != nil {
		return nil, err
	}

	read := func(name string, target any) error {
		if err := checkContext(ctx); err != nil {
			return err
		}
		want, ok := m.Checksums[name]
		if !ok {
			return fmt.Errorf("manifest v%d has no checksum for %s", m.Version, name)
		}
		data, err := hackpadfs.ReadFile(s.fs, path.Join(dir, fileName(name)))
		if err != nil {
			return fmt.Errorf("read %s: %w", name, err)
		}
		sf, err := unmarshalFile(name, data)
		if err != nil {
			return err
		}
		return decode(sf, want, target)
	}

	b := &Bundle{
		Manifest: m,
		BuildID:  m.BuildID,
		BuiltAt:  m.BuiltAt,
		Skipped:  m.Skipped,
		Matrices: make(map[facet.Facet]*similarity.Matrix, len(m.Facets)),
	}
	if err := read(corpusArtifact, &b.Items); err != nil {
		return nil, err
	}
	for _, f := range m.Facets {
		var mat similarity.Matrix
		if err := read(matrixArtifact(f), &mat); err != nil {
			return nil, err
		}
		b.Matrices[f] = &mat
	}
	if err := b.validate(); err != nil {
		return nil, err
	}
	return b, nil
}

// Current returns the manifest named by CURRENT.
func (s *FileStore) Current(_ context.Context) (Manifest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, m, err := s.current()
	return m, err
}

// current must be called with mu held.
func (s *FileStore) current() (string, Manifest, error) {
	ptr, err := hackpadfs.ReadFile(s.fs, path.Join(s.root, currentFile))
	if errors.Is(err, fs.ErrNotExist) {
		return "", Manifest{}, ErrNoArtifacts
	}
	if err != nil {
		return "", Manifest{}, fmt.Errorf("read current pointer: %w", err)
	}

	name := strings.TrimSpace(string(ptr))
	if _, ok := parseVersionDir(name); !ok {
		return "", Manifest{}, fmt.Errorf("current pointer names invalid version %q", name)
	}
	dir := path.Join(s.root, name)

	data, err := hackpadfs.ReadFile(s.fs, path.Join(dir, manifestFile))
	if err != nil {
		return "", Manifest{}, fmt.Errorf("read manifest: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return "", Manifest{}, fmt.Errorf("decode manifest: %w", err)
	}
	return dir, m, nil
}

// Exists reports whether CURRENT is present.
func (s *FileStore) Exists(_ context.Context) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, err := hackpadfs.Stat(s.fs, path.Join(s.root, currentFile))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("stat current pointer: %w", err)
	}
	return true, nil
}

// Prune removes old version directories, keeping the newest keep and the
// current one.
func (s *FileStore) Prune(_ context.Context, keep int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if keep < 1 {
		keep = 1
	}

	versions, err := s.scanVersions()
	if err != nil {
		return err
	}

	var current int64 = -1
	if dir, _, err := s.current(); err == nil {
		current, _ = parseVersionDir(path.Base(dir))
	}

	removed := 0
	for i := 0; i < len(versions)-keep; i++ {
		if versions[i] == current {
			continue
		}
		dir := s.versionDir(versions[i])
		if err := hackpadfs.RemoveAll(s.fs, dir); err != nil {
			return fmt.Errorf("remove %s: %w", dir, err)
		}
		removed++
	}

	if removed > 0 {
		s.logger.Info().Int("removed", removed).Int("kept", len(versions)-removed).Msg("pruned artifact versions")
	}
	return nil
}

// Close is a no-op; files are closed after every operation.
func (s *FileStore) Close() error { return nil }

// scanVersions returns existing version numbers in ascending order.
func (s *FileStore) scanVersions() ([]int64, error) {
	entries, err := hackpadfs.ReadDir(s.fs, s.root)
	if err != nil {
		return nil, fmt.Errorf("read artifact directory: %w", err)
	}

	var versions []int64
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if v, ok := parseVersionDir(e.Name()); ok {
			versions = append(versions, v)
		}
	}
	sort.Slice(versions, func(i, j int) bool { return versions[i] < versions[j] })
	return versions, nil
}

func (s *FileStore) versionDir(version int64) string {
	return path.Join(s.root, fmt.Sprintf("v%08d", version))
}

// parseVersionDir parses names like "v00000012".
func parseVersionDir(name string) (int64, bool) {
	if len(name) < 2 || name[0] != 'v' {
		return 0, false
	}
	var v int64
	for _, c := range name[1:] {
		if c < '0' || c > '9' {
			return 0, false
		}
		v = v*10 + int64(c-'0')
	}
	return v, v > 0
}

// fileName maps "matrix/tags" to "matrix_tags.gob.gz".
func fileName(artifact string) string {
	return strings.ReplaceAll(artifact, "/", "_") + fileSuffix
}
