// Bucketlist - Personal Goal Tracking
// Copyright 2026 M. Kaschke (mkaschke)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mkaschke/bucketlist

package events

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"github.com/mkaschke/bucketlist/internal/config"
	"github.com/mkaschke/bucketlist/internal/database"
	"github.com/mkaschke/bucketlist/internal/logging"
	"github.com/mkaschke/bucketlist/internal/metrics"
	"github.com/mkaschke/bucketlist/internal/models"
)

const (
	defaultRatePerSecond = 50
	defaultBurst         = 100
)

// Recorder consumes item events and writes them to the activity feed.
// Database writes are rate capped so a burst of mutations cannot starve
// query traffic on the shared DuckDB connection.
type Recorder struct {
	subscriber message.Subscriber
	db         *database.DB
	limiter    *rate.Limiter
	ready      chan struct{}
	readyOnce  sync.Once
}

// NewRecorder builds a recorder reading from the bus.
func NewRecorder(bus *Bus, db *database.DB, cfg *config.EventsConfig) *Recorder {
	perSecond := float64(defaultRatePerSecond)
	burst := defaultBurst
	if cfg != nil && cfg.RatePerSecond > 0 {
		perSecond = cfg.RatePerSecond
	}
	if cfg != nil && cfg.Burst > 0 {
		burst = cfg.Burst
	}

	return &Recorder{
		subscriber: bus.Subscriber(),
		db:         db,
		limiter:    rate.NewLimiter(rate.Limit(perSecond), burst),
		ready:      make(chan struct{}),
	}
}

// Ready is closed once the recorder's subscription is live. Events
// published before that point are dropped by the channel, so callers
// that must not lose events wait on it during startup.
func (r *Recorder) Ready() <-chan struct{} { return r.ready }

// Serve consumes events until the context is canceled. It satisfies the
// suture service contract: returning the context error signals a clean
// shutdown rather than a crash.
func (r *Recorder) Serve(ctx context.Context) error {
	messages, err := r.subscriber.Subscribe(ctx, TopicItems)
	if err != nil {
		return fmt.Errorf("subscribe to %s: %w", TopicItems, err)
	}
	r.readyOnce.Do(func() { close(r.ready) })

	logger := logging.WithComponent("events")
	logger.Info().
		Str("topic", TopicItems).
		Msg("Activity recorder started")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-messages:
			if !ok {
				return errors.New("event subscription closed")
			}
			r.handle(ctx, msg)
		}
	}
}

// String names the service in supervisor logs.
func (r *Recorder) String() string { return "activity-recorder" }

// handle processes one message. Messages are always acked: a row the
// recorder cannot parse or store will not parse or store on redelivery
// either, so retrying would only wedge the channel.
func (r *Recorder) handle(ctx context.Context, msg *message.Message) {
	defer msg.Ack()

	start := time.Now()

	var event ItemEvent
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		metrics.EventsDropped.WithLabelValues("parse_error").Inc()
		logger := logging.WithComponent("events")
		logger.Error().Err(err).
			Str("message_id", msg.UUID).
			Msg("Failed to parse item event")
		return
	}

	if err := r.limiter.Wait(ctx); err != nil {
		metrics.EventsDropped.WithLabelValues("shutdown").Inc()
		return
	}

	if err := r.record(ctx, event); err != nil {
		metrics.EventsDropped.WithLabelValues("store_error").Inc()
		logger := logging.WithComponent("events")
		logger.Error().Err(err).
			Str("event_id", event.EventID).
			Str("action", event.Action).
			Msg("Failed to record activity")
		return
	}

	metrics.EventsConsumed.Inc()
	metrics.EventProcessingDuration.Observe(time.Since(start).Seconds())
}

func (r *Recorder) record(ctx context.Context, event ItemEvent) error {
	if event.UserID == "" {
		return errors.New("event missing user")
	}
	if !ValidAction(event.Action) {
		return fmt.Errorf("unknown action %q", event.Action)
	}
	return r.db.InsertActivity(ctx, event.Activity())
}

// validActions guards against unknown payloads reaching the feed.
var validActions = map[string]bool{
	models.ActionCreated:   true,
	models.ActionUpdated:   true,
	models.ActionCompleted: true,
	models.ActionDeleted:   true,
}

// ValidAction reports whether the action is one the feed understands.
func ValidAction(action string) bool { return validActions[action] }
