package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"github.com/AdrianLinares/petcare-app-sub000/internal/notify"
)

// AMQPConsumer reads mail messages from a durable RabbitMQ queue, reconnecting
// with backoff when the broker goes away.
type AMQPConsumer struct {
	url      string
	queue    string
	prefetch int
	logger   zerolog.Logger
	handler  MessageHandler
}

func NewAMQPConsumer(url, queue string, logger zerolog.Logger, handler MessageHandler) *AMQPConsumer {
	return &AMQPConsumer{
		url:      url,
		queue:    queue,
		prefetch: 20,
		logger:   logger.With().Str("component", "amqp_consumer").Logger(),
		handler:  handler,
	}
}

func (c *AMQPConsumer) Start(ctx context.Context) error {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(c.url)
		if err != nil {
			c.logger.Error().Err(err).Dur("retry_in", backoff).Msg("dial broker failed")
			sleep(ctx, backoff)
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = c.consume(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.logger.Warn().Err(err).Msg("consume loop ended, reconnecting")
		sleep(ctx, 2*time.Second)
	}
}

func (c *AMQPConsumer) consume(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(c.prefetch, 0, false); err != nil {
		c.logger.Warn().Err(err).Msg("set qos failed")
	}
	if err := notify.DeclareQueue(ch, c.queue); err != nil {
		return err
	}

	deliveries, err := ch.Consume(c.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			c.dispatch(ctx, d)
		}
	}
}

type acknowledger interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
}

func (c *AMQPConsumer) dispatch(ctx context.Context, d amqp.Delivery) {
	c.handle(ctx, d.Body, d.Redelivered, d)
}

// handle acks on success. A malformed body is rejected outright; a handler
// failure is requeued once and dropped if it fails again on redelivery.
func (c *AMQPConsumer) handle(ctx context.Context, body []byte, redelivered bool, ack acknowledger) {
	msg, err := notify.Decode(body)
	if err != nil {
		c.logger.Error().Err(err).Msg("rejecting malformed mail message")
		_ = ack.Nack(false, false)
		return
	}

	if err := c.handler.Handle(ctx, msg); err != nil {
		c.logger.Error().Err(err).Str("message_id", msg.ID).Bool("redelivered", redelivered).Msg("handle message failed")
		_ = ack.Nack(false, !redelivered)
		return
	}
	_ = ack.Ack(false)
}
