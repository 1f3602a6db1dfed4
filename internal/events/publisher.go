// Bucketlist - Personal Goal Tracking
// Copyright 2026 M. Kaschke (mkaschke)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mkaschke/bucketlist

package events

import (
	"context"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"

	"github.com/mkaschke/bucketlist/internal/logging"
	"github.com/mkaschke/bucketlist/internal/metrics"
	"github.com/mkaschke/bucketlist/internal/models"
)

// Publisher emits item mutation events onto the bus. A nil *Publisher
// is valid and publishes nothing, which keeps handlers free of nil
// checks when the pipeline is disabled in tests.
type Publisher struct {
	publisher message.Publisher
}

// NewPublisher wraps the bus's publish side.
func NewPublisher(bus *Bus) *Publisher {
	return &Publisher{publisher: bus.Publisher()}
}

// ItemCreated publishes a created event for the item.
func (p *Publisher) ItemCreated(ctx context.Context, item *models.Item) {
	p.publish(ctx, NewItemEvent(models.ActionCreated, item))
}

// ItemUpdated publishes an updated event, or a completed event when the
// update transitioned the item into the completed status.
func (p *Publisher) ItemUpdated(ctx context.Context, item *models.Item, nowCompleted bool) {
	action := models.ActionUpdated
	if nowCompleted {
		action = models.ActionCompleted
	}
	p.publish(ctx, NewItemEvent(action, item))
}

// ItemDeleted publishes a deleted event for the item.
func (p *Publisher) ItemDeleted(ctx context.Context, item *models.Item) {
	p.publish(ctx, NewItemEvent(models.ActionDeleted, item))
}

// publish is fire-and-forget. Failures are logged and counted but never
// returned: the activity feed is best-effort and must not fail writes.
func (p *Publisher) publish(ctx context.Context, event ItemEvent) {
	if p == nil || p.publisher == nil {
		return
	}

	payload, err := json.Marshal(event)
	if err != nil {
		metrics.EventsDropped.WithLabelValues("marshal_error").Inc()
		logging.Ctx(ctx).Error().Err(err).
			Str("action", event.Action).
			Str("item_id", event.ItemID).
			Msg("Failed to marshal item event")
		return
	}

	msg := message.NewMessage(event.EventID, payload)
	if err := p.publisher.Publish(TopicItems, msg); err != nil {
		metrics.EventsDropped.WithLabelValues("publish_error").Inc()
		logging.Ctx(ctx).Error().Err(err).
			Str("action", event.Action).
			Str("item_id", event.ItemID).
			Msg("Failed to publish item event")
		return
	}

	metrics.EventsPublished.WithLabelValues(event.Action).Inc()
}
