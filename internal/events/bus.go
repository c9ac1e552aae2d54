// Cinefacet - Faceted Movie Similarity Recommender
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinefacet

// Package events carries in-process notifications between the builder and
// the serving side.
//
// The only event is "artifacts.published", whose payload is the manifest
// JSON of the version that just became current. Delivery is at most once
// per subscriber; a subscriber that misses an event still finds the version
// on its next store load.
package events

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tomtom215/cinefacet/internal/artifact"
	"github.com/tomtom215/cinefacet/internal/logging"
)

// TopicArtifactsPublished announces a newly current artifact version.
const TopicArtifactsPublished = "artifacts.published"

// ErrClosed is returned by operations on a closed Bus.
var ErrClosed = errors.New("event bus closed")

// Bus is an in-process publish/subscribe bus for artifact events.
type Bus struct {
	pubsub *gochannel.GoChannel
	logger zerolog.Logger

	mu     sync.RWMutex
	closed bool
}

// NewBus creates a Bus.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewBus(logger zerolog.Logger) *Bus {
	logger = logger.With().Str("component", "events").Logger()
	return &Bus{
		pubsub: gochannel.NewGoChannel(gochannel.Config{
			OutputChannelBuffer: 16,
		}, NewWatermillLogger(logger)),
		logger: logger,
	}
}

// Publish announces m on TopicArtifactsPublished.
func (b *Bus) Publish(ctx context.Context, m artifact.Manifest) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrClosed
	}

	payload, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set("version", strconv.FormatInt(m.Version, 10))
	if m.BuildID != "" {
		msg.Metadata.Set("build_id", m.BuildID)
	}
	if id := logging.RequestIDFromContext(ctx); id != "" {
		msg.Metadata.Set("request_id", id)
	}
	msg.SetContext(ctx)

	if err := b.pubsub.Publish(TopicArtifactsPublished, msg); err != nil {
		return fmt.Errorf("publish %s: %w", TopicArtifactsPublished, err)
	}
	b.logger.Debug().Int64("version", m.Version).Str("message_id", msg.UUID).Msg("artifacts announced")
	return nil
}

// Subscribe returns manifests published after the call. The channel is
// closed when ctx is done or the bus is closed.
func (b *Bus) Subscribe(ctx context.Context) (<-chan artifact.Manifest, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return nil, ErrClosed
	}

	messages, err := b.pubsub.Subscribe(ctx, TopicArtifactsPublished)
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", TopicArtifactsPublished, err)
	}

	out := make(chan artifact.Manifest, 1)
	go b.forward(ctx, messages, out)
	return out, nil
}

func (b *Bus) forward(ctx context.Context, messages <-chan *message.Message, out chan<- artifact.Manifest) {
	defer close(out)
	for msg := range messages {
		var m artifact.Manifest
		if err := json.Unmarshal(msg.Payload, &m); err != nil {
			// Redelivery would fail the same way.
			b.logger.Warn().Err(err).Str("message_id", msg.UUID).Msg("dropping malformed event")
			msg.Ack()
			continue
		}
		select {
		case out <- m:
			msg.Ack()
		case <-ctx.Done():
			msg.Nack()
			return
		}
	}
}

// Close stops the bus and closes every subscription channel.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	return b.pubsub.Close()
}
