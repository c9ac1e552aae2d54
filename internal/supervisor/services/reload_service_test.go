// Cinefacet - Faceted Movie Similarity Recommender
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinefacet

package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/thejerf/suture/v4"

	"github.com/tomtom215/cinefacet/internal/artifact"
	"github.com/tomtom215/cinefacet/internal/corpus"
	"github.com/tomtom215/cinefacet/internal/events"
	"github.com/tomtom215/cinefacet/internal/facet"
	"github.com/tomtom215/cinefacet/internal/recommend"
	"github.com/tomtom215/cinefacet/internal/similarity"
)

// memLoader serves bundles by version; current selects the one Latest
// returns.
type memLoader struct {
	mu      sync.Mutex
	bundles map[int64]*artifact.Bundle
	current int64
	failOn  int64
}

func newMemLoader() *memLoader {
	return &memLoader{bundles: make(map[int64]*artifact.Bundle)}
}

func (l *memLoader) publish(t *testing.T, version int64, n int) {
	t.Helper()
	items := make([]corpus.Item, n)
	for i := range items {
		items[i] = corpus.Item{ID: int64(i + 1), Title: fmt.Sprintf("v%d movie %d", version, i)}
	}
	data := make([]float32, n*n)
	for i := 0; i < n; i++ {
		data[i*n+i] = 1
	}
	m, err := similarity.NewMatrix(n, data)
	if err != nil {
		t.Fatal(err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.bundles[version] = &artifact.Bundle{
		Manifest: artifact.Manifest{Version: version, Items: n},
		Items:    items,
		Matrices: map[facet.Facet]*similarity.Matrix{facet.Genres: m},
	}
	l.current = version
}

func (l *memLoader) Latest(context.Context) (*artifact.Bundle, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.current == 0 {
		return nil, artifact.ErrNoArtifacts
	}
	if l.current == l.failOn {
		return nil, fmt.Errorf("read corpus: %w", artifact.ErrChecksumMismatch)
	}
	return l.bundles[l.current], nil
}

func (l *memLoader) Current(context.Context) (artifact.Manifest, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.current == 0 {
		return artifact.Manifest{}, artifact.ErrNoArtifacts
	}
	return l.bundles[l.current].Manifest, nil
}

func newEngine(t *testing.T) *recommend.Engine {
	t.Helper()
	e, err := recommend.NewEngine(recommend.DefaultConfig(), zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	return e
}

func waitVersion(t *testing.T, e *recommend.Engine, want int64) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if snap := e.Snapshot(); snap != nil && snap.Version == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	got := int64(0)
	if snap := e.Snapshot(); snap != nil {
		got = snap.Version
	}
	t.Fatalf("served version = %d, want %d", got, want)
}

func TestReloadService_InitialLoad(t *testing.T) {
	loader := newMemLoader()
	loader.publish(t, 3, 4)
	engine := newEngine(t)

	svc := NewReloadService(loader, nil, engine, ReloadServiceConfig{}, zerolog.Nop())
	if err := svc.Reload(context.Background()); err != nil {
		t.Fatalf("Reload() error = %v", err)
	}
	if snap := engine.Snapshot(); snap == nil || snap.Version != 3 || snap.Corpus.Len() != 4 {
		t.Fatalf("snapshot = %+v", snap)
	}
}

func TestReloadService_NoArtifacts(t *testing.T) {
	svc := NewReloadService(newMemLoader(), nil, newEngine(t), ReloadServiceConfig{}, zerolog.Nop())
	if err := svc.Reload(context.Background()); !errors.Is(err, artifact.ErrNoArtifacts) {
		t.Errorf("Reload() = %v, want ErrNoArtifacts", err)
	}
}

func TestReloadService_EventsSwapSnapshot(t *testing.T) {
	loader := newMemLoader()
	engine := newEngine(t)
	bus := events.NewBus(zerolog.Nop())
	defer bus.Close() //nolint:errcheck // test cleanup

	svc := NewReloadService(loader, bus, engine, ReloadServiceConfig{}, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	// Publish until the subscription is live; events before it are lost.
	loader.publish(t, 1, 3)
	deadline := time.Now().Add(2 * time.Second)
	for engine.Snapshot() == nil && time.Now().Before(deadline) {
		if err := bus.Publish(ctx, artifact.Manifest{Version: 1}); err != nil {
			t.Fatalf("Publish() error = %v", err)
		}
		time.Sleep(10 * time.Millisecond)
	}
	waitVersion(t, engine, 1)

	loader.publish(t, 2, 5)
	if err := bus.Publish(ctx, artifact.Manifest{Version: 2}); err != nil {
		t.Fatal(err)
	}
	waitVersion(t, engine, 2)
	if engine.Snapshot().Corpus.Len() != 5 {
		t.Errorf("corpus len = %d, want 5", engine.Snapshot().Corpus.Len())
	}

	// A stale announcement does not roll back.
	if err := bus.Publish(ctx, artifact.Manifest{Version: 1}); err != nil {
		t.Fatal(err)
	}
	time.Sleep(50 * time.Millisecond)
	waitVersion(t, engine, 2)

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Serve() = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return")
	}
}

func TestReloadService_FailedLoadKeepsSnapshot(t *testing.T) {
	loader := newMemLoader()
	loader.publish(t, 1, 3)
	engine := newEngine(t)
	svc := NewReloadService(loader, nil, engine, ReloadServiceConfig{}, zerolog.Nop())
	if err := svc.Reload(context.Background()); err != nil {
		t.Fatal(err)
	}

	loader.publish(t, 2, 3)
	loader.failOn = 2
	if err := svc.Reload(context.Background()); !errors.Is(err, artifact.ErrChecksumMismatch) {
		t.Errorf("Reload() = %v, want ErrChecksumMismatch", err)
	}
	if engine.Snapshot().Version != 1 {
		t.Errorf("version = %d, want 1 after failed load", engine.Snapshot().Version)
	}
}

func TestReloadService_Polling(t *testing.T) {
	loader := newMemLoader()
	engine := newEngine(t)
	svc := NewReloadService(loader, nil, engine, ReloadServiceConfig{PollInterval: 10 * time.Millisecond}, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = svc.Serve(ctx) }() //nolint:errcheck // canceled below

	loader.publish(t, 4, 2)
	waitVersion(t, engine, 4)
}

func TestReloadService_ClosedBusDoesNotRestart(t *testing.T) {
	bus := events.NewBus(zerolog.Nop())
	if err := bus.Close(); err != nil {
		t.Fatal(err)
	}
	svc := NewReloadService(newMemLoader(), bus, newEngine(t), ReloadServiceConfig{}, zerolog.Nop())

	err := svc.Serve(context.Background())
	if !errors.Is(err, suture.ErrDoNotRestart) || !errors.Is(err, events.ErrClosed) {
		t.Errorf("Serve() = %v, want ErrDoNotRestart wrapping ErrClosed", err)
	}
}
