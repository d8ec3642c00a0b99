// Package worker consumes comment events from JetStream.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/example/content-platform/internal/platform/events"
	"github.com/example/content-platform/services/comments/internal/cache"
)

const (
	StreamName     = "COMMENT_EVENTS"
	SubjectPattern = "comments.events.>"
)

// InvalidationConsumer drops this instance's cached thread pages whenever
// any instance writes to the thread.
type InvalidationConsumer struct {
	JS        nats.JetStreamContext
	Cache     cache.ThreadCache
	Log       *zap.Logger
	Durable   string
	BatchSize int
	MaxWait   time.Duration
}

// Run pulls batches until ctx is cancelled.
func (c *InvalidationConsumer) Run(ctx context.Context) error {
	if c.BatchSize <= 0 {
		c.BatchSize = 100
	}
	if c.MaxWait <= 0 {
		c.MaxWait = 2 * time.Second
	}

	sub, err := c.JS.PullSubscribe(SubjectPattern, c.Durable)
	if err != nil {
		return err
	}
	defer func() { _ = sub.Unsubscribe() }()
	c.Log.Info("invalidation consumer started", zap.String("durable", c.Durable))

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		msgs, err := sub.Fetch(c.BatchSize, nats.MaxWait(c.MaxWait))
		if err != nil {
			if errors.Is(err, nats.ErrTimeout) || errors.Is(err, context.DeadlineExceeded) {
				continue
			}
			c.Log.Warn("invalidation fetch", zap.Error(err))
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(time.Second):
			}
			continue
		}

		for _, m := range msgs {
			if c.process(ctx, m.Data) {
				if err := m.Ack(); err != nil {
					c.Log.Warn("invalidation ack", zap.Error(err))
				}
			} else if err := m.Nak(); err != nil {
				c.Log.Warn("invalidation nak", zap.Error(err))
			}
		}
	}
}

// process invalidates the event's entity and reports whether the message
// should be acked. Malformed payloads are acked so they are not redelivered.
func (c *InvalidationConsumer) process(ctx context.Context, data []byte) bool {
	var ev events.Event
	if err := json.Unmarshal(data, &ev); err != nil || ev.EntityID <= 0 {
		c.Log.Warn("invalidation: dropping malformed event", zap.ByteString("payload", data), zap.Error(err))
		return true
	}
	if err := c.Cache.Invalidate(ctx, ev.EntityID); err != nil {
		c.Log.Warn("invalidation: cache", zap.Int64("entity_id", ev.EntityID), zap.Error(err))
		return false
	}
	c.Log.Debug("invalidated thread cache",
		zap.Int64("entity_id", ev.EntityID),
		zap.String("event", ev.EventName),
		zap.String("event_id", ev.EventID))
	return true
}
