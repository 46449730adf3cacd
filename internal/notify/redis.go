package notify

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// StreamPublisher appends messages to a redis stream read by the mail worker.
type StreamPublisher struct {
	client redis.Cmdable
	stream string
}

func NewStreamPublisher(client redis.Cmdable, stream string) *StreamPublisher {
	return &StreamPublisher{client: client, stream: stream}
}

func (p *StreamPublisher) Publish(ctx context.Context, msg Message) error {
	return p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		Values: msg.Values(),
	}).Err()
}
