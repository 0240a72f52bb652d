package events

import (
	"context"

	"github.com/redis/go-redis/v9"

	apperrors "github.com/lightlink-network/plugin-lightlink/internal/errors"
)

// DefaultRedisList receives transaction events when no list is configured.
const DefaultRedisList = "lightlink:transactions"

// RedisPublisher pushes JSON events onto a Redis list, newest first. The
// list is trimmed to MaxLen entries.
type RedisPublisher struct {
	client redis.UniversalClient
	list   string
	maxLen int64
}

// NewRedisPublisher publishes through client. An empty list selects
// DefaultRedisList and a non-positive maxLen keeps 1000 events.
func NewRedisPublisher(client redis.UniversalClient, list string, maxLen int64) *RedisPublisher {
	if list == "" {
		list = DefaultRedisList
	}
	if maxLen <= 0 {
		maxLen = 1000
	}
	return &RedisPublisher{client: client, list: list, maxLen: maxLen}
}

// Publish implements Publisher.
func (p *RedisPublisher) Publish(ctx context.Context, event Event) error {
	body, err := encode(event)
	if err != nil {
		return err
	}
	pipe := p.client.TxPipeline()
	pipe.LPush(ctx, p.list, body)
	pipe.LTrim(ctx, p.list, 0, p.maxLen-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return apperrors.Wrap(apperrors.CodePublishFailure, err, "publish to redis")
	}
	return nil
}

// Close is a no-op; the client belongs to the caller.
func (p *RedisPublisher) Close() error { return nil }
