// Bucketlist - Personal Goal Tracking
// Copyright 2026 M. Kaschke (mkaschke)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mkaschke/bucketlist

package events

import (
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/rs/zerolog"

	"github.com/mkaschke/bucketlist/internal/config"
	"github.com/mkaschke/bucketlist/internal/logging"
)

// defaultBufferSize is used when the configured buffer size is zero or
// negative. It must be large enough to absorb request bursts without
// blocking publishers.
const defaultBufferSize = 256

// Bus is the in-process event transport. Publisher and subscriber share
// one gochannel instance so messages never leave the process.
type Bus struct {
	channel *gochannel.GoChannel
}

// NewBus creates the shared pub/sub channel. Publishing to a topic with
// no subscriber is a no-op rather than an error, so the recorder can be
// disabled without touching the request path.
func NewBus(cfg *config.EventsConfig) *Bus {
	buffer := defaultBufferSize
	if cfg != nil && cfg.BufferSize > 0 {
		buffer = cfg.BufferSize
	}

	channel := gochannel.NewGoChannel(
		gochannel.Config{
			OutputChannelBuffer: int64(buffer),
		},
		newWatermillLogger(logging.WithComponent("events")),
	)

	return &Bus{channel: channel}
}

// Publisher returns the bus as a watermill publisher.
func (b *Bus) Publisher() *gochannel.GoChannel { return b.channel }

// Subscriber returns the bus as a watermill subscriber.
func (b *Bus) Subscriber() *gochannel.GoChannel { return b.channel }

// Close shuts the channel down. In-flight messages are dropped.
func (b *Bus) Close() error {
	if err := b.channel.Close(); err != nil {
		return fmt.Errorf("close event bus: %w", err)
	}
	return nil
}

// watermillLogger adapts zerolog to watermill's LoggerAdapter interface.
type watermillLogger struct {
	logger zerolog.Logger
}

func newWatermillLogger(logger zerolog.Logger) watermill.LoggerAdapter {
	return &watermillLogger{logger: logger}
}

func (l *watermillLogger) Error(msg string, err error, fields watermill.LogFields) {
	l.event(l.logger.Error().Err(err), fields).Msg(msg)
}

func (l *watermillLogger) Info(msg string, fields watermill.LogFields) {
	l.event(l.logger.Info(), fields).Msg(msg)
}

func (l *watermillLogger) Debug(msg string, fields watermill.LogFields) {
	l.event(l.logger.Debug(), fields).Msg(msg)
}

func (l *watermillLogger) Trace(msg string, fields watermill.LogFields) {
	l.event(l.logger.Trace(), fields).Msg(msg)
}

func (l *watermillLogger) With(fields watermill.LogFields) watermill.LoggerAdapter {
	ctx := l.logger.With()
	for k, v := range fields {
		ctx = ctx.Interface(k, v)
	}
	return &watermillLogger{logger: ctx.Logger()}
}

func (l *watermillLogger) event(e *zerolog.Event, fields watermill.LogFields) *zerolog.Event {
	for k, v := range fields {
		e = e.Interface(k, v)
	}
	return e
}
