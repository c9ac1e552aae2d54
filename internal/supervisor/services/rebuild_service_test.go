// Cinefacet - Faceted Movie Similarity Recommender
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinefacet

package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/cinefacet/internal/artifact"
	"github.com/tomtom215/cinefacet/internal/pipeline"
)

type fakeRebuilder struct {
	mu    sync.Mutex
	calls []bool
	err   error
	ran   chan bool
}

func newFakeRebuilder() *fakeRebuilder {
	return &fakeRebuilder{ran: make(chan bool, 16)}
}

func (f *fakeRebuilder) Run(_ context.Context, force bool) (*pipeline.RunResult, error) {
	f.mu.Lock()
	f.calls = append(f.calls, force)
	err := f.err
	f.mu.Unlock()

	select {
	case f.ran <- force:
	default:
	}
	if err != nil {
		return nil, err
	}
	return &pipeline.RunResult{BuildID: "b", Manifest: artifact.Manifest{Version: 1, Items: 3}}, nil
}

func (f *fakeRebuilder) forced() []bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]bool(nil), f.calls...)
}

func waitRun(t *testing.T, f *fakeRebuilder) bool {
	t.Helper()
	select {
	case force := <-f.ran:
		return force
	case <-time.After(2 * time.Second):
		t.Fatal("rebuilder was not called")
		return false
	}
}

func TestRebuildService_StartupBuildIsNotForced(t *testing.T) {
	rb := newFakeRebuilder()
	svc := NewRebuildService(rb, RebuildServiceConfig{OnStartup: true}, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	if force := waitRun(t, rb); force {
		t.Error("startup build should respect existing artifacts")
	}
	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("Serve() = %v", err)
	}
	if got := len(rb.forced()); got != 1 {
		t.Errorf("runs = %d, want 1 without an interval", got)
	}
}

func TestRebuildService_PeriodicBuildsAreForced(t *testing.T) {
	rb := newFakeRebuilder()
	svc := NewRebuildService(rb, RebuildServiceConfig{Interval: 10 * time.Millisecond}, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = svc.Serve(ctx) }() //nolint:errcheck // canceled below

	if force := waitRun(t, rb); !force {
		t.Error("periodic build should force")
	}
	waitRun(t, rb)
}

func TestRebuildService_FailureDoesNotStopService(t *testing.T) {
	rb := newFakeRebuilder()
	rb.err = errors.New("ingest: movies file missing")
	svc := NewRebuildService(rb, RebuildServiceConfig{OnStartup: true, Interval: 10 * time.Millisecond}, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	waitRun(t, rb)
	waitRun(t, rb)
	cancel()

	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("Serve() = %v, want context.Canceled", err)
	}
}

func TestRebuildService_Defaults(t *testing.T) {
	svc := NewRebuildService(newFakeRebuilder(), RebuildServiceConfig{}, zerolog.Nop())
	if svc.config.Timeout != 30*time.Minute {
		t.Errorf("Timeout = %v", svc.config.Timeout)
	}
	if svc.String() != "rebuild-service" {
		t.Errorf("String() = %q", svc.String())
	}
}
