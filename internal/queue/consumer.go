package queue

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/AdrianLinares/petcare-app-sub000/internal/notify"
)

type MessageHandler interface {
	Handle(ctx context.Context, msg notify.Message) error
}

// DefaultMaxDeliveries bounds how often a failing entry is handed out before
// it is dropped.
const DefaultMaxDeliveries = 5

// StreamConsumer reads mail messages from a redis stream consumer group and
// reclaims entries left pending by a crashed worker.
type StreamConsumer struct {
	client        redis.Cmdable
	stream        string
	group         string
	consumer      string
	claimInterval time.Duration
	maxDeliveries int64
	block         time.Duration
	logger        zerolog.Logger
	handler       MessageHandler
}

func NewStreamConsumer(client redis.Cmdable, stream, group, consumer string, claimInterval time.Duration, logger zerolog.Logger, handler MessageHandler) *StreamConsumer {
	if claimInterval <= 0 {
		claimInterval = time.Minute
	}
	return &StreamConsumer{
		client:        client,
		stream:        stream,
		group:         group,
		consumer:      consumer,
		claimInterval: claimInterval,
		maxDeliveries: DefaultMaxDeliveries,
		block:         5 * time.Second,
		logger:        logger.With().Str("component", "stream_consumer").Logger(),
		handler:       handler,
	}
}

func (c *StreamConsumer) Start(ctx context.Context) error {
	ticker := time.NewTicker(c.claimInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			if err := c.read(ctx); err != nil && ctx.Err() == nil {
				c.logger.Error().Err(err).Msg("stream read error")
				sleep(ctx, 2*time.Second)
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := c.claimStalled(ctx); err != nil {
				c.logger.Error().Err(err).Msg("claim stalled entries failed")
			}
		default:
		}
	}
}

func (c *StreamConsumer) read(ctx context.Context) error {
	result, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    c.group,
		Consumer: c.consumer,
		Streams:  []string{c.stream, ">"},
		Count:    10,
		Block:    c.block,
	}).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return err
	}

	for _, stream := range result {
		for _, msg := range stream.Messages {
			c.process(ctx, msg)
		}
	}
	return nil
}

// process acks the entry unless the handler failed transiently. Entries that
// cannot be decoded are acked and dropped since retrying cannot fix them.
func (c *StreamConsumer) process(ctx context.Context, entry redis.XMessage) {
	msg, err := notify.DecodeValues(entry.Values)
	if err != nil {
		c.logger.Error().Err(err).Str("entry_id", entry.ID).Msg("dropping malformed mail entry")
		c.ack(ctx, entry.ID)
		return
	}

	if err := c.handler.Handle(ctx, msg); err != nil {
		c.logger.Error().
			Err(err).
			Str("entry_id", entry.ID).
			Str("message_id", msg.ID).
			Msg("handle message failed")
		return
	}
	c.ack(ctx, entry.ID)
}

func (c *StreamConsumer) ack(ctx context.Context, id string) {
	if err := c.client.XAck(ctx, c.stream, c.group, id).Err(); err != nil {
		c.logger.Error().Err(err).Str("entry_id", id).Msg("ack failed")
	}
}

func (c *StreamConsumer) claimStalled(ctx context.Context) error {
	pending, err := c.client.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: c.stream,
		Group:  c.group,
		Idle:   c.claimInterval,
		Start:  "-",
		End:    "+",
		Count:  10,
	}).Result()
	if err != nil {
		return err
	}

	for _, entry := range pending {
		if c.maxDeliveries > 0 && entry.RetryCount >= c.maxDeliveries {
			c.logger.Error().
				Str("entry_id", entry.ID).
				Int64("deliveries", entry.RetryCount).
				Msg("dropping mail entry after repeated failures")
			c.ack(ctx, entry.ID)
			continue
		}

		msgs, err := c.client.XClaim(ctx, &redis.XClaimArgs{
			Stream:   c.stream,
			Group:    c.group,
			Consumer: c.consumer,
			MinIdle:  c.claimInterval,
			Messages: []string{entry.ID},
		}).Result()
		if err != nil {
			c.logger.Error().Err(err).Str("entry_id", entry.ID).Msg("claim error")
			continue
		}
		for _, msg := range msgs {
			c.process(ctx, msg)
		}
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
