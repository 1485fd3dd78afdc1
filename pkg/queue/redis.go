package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const defaultMaxLen = 10_000

// RedisPublisher appends messages to capped Redis lists, one list per type.
// It backs log shipping when Kafka is not configured.
type RedisPublisher struct {
	client    redis.UniversalClient
	keyPrefix string
	maxLen    int64
	now       func() time.Time
}

type RedisPublisherOption func(*RedisPublisher)

func WithKeyPrefix(prefix string) RedisPublisherOption {
	return func(r *RedisPublisher) { r.keyPrefix = prefix }
}

// WithMaxLen caps each list; older entries are trimmed on push.
func WithMaxLen(n int64) RedisPublisherOption {
	return func(r *RedisPublisher) {
		if n > 0 {
			r.maxLen = n
		}
	}
}

func NewRedisPublisher(client redis.UniversalClient, opts ...RedisPublisherOption) *RedisPublisher {
	r := &RedisPublisher{
		client:    client,
		keyPrefix: "veritas:queue",
		maxLen:    defaultMaxLen,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// PublishMessage pushes payload as a JSON envelope onto the msgType list.
func (r *RedisPublisher) PublishMessage(ctx context.Context, msgType string, payload interface{}) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", msgType, err)
	}
	b, err := json.Marshal(Message{
		ID:        uuid.NewString(),
		Type:      msgType,
		Payload:   raw,
		Timestamp: r.now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	key := r.key(msgType)
	pipe := r.client.TxPipeline()
	pipe.LPush(ctx, key, b)
	pipe.LTrim(ctx, key, 0, r.maxLen-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis push %s: %w", key, err)
	}
	return nil
}

// Pop removes and returns the oldest message of msgType, or false when empty.
func (r *RedisPublisher) Pop(ctx context.Context, msgType string) (Message, bool, error) {
	b, err := r.client.RPop(ctx, r.key(msgType)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Message{}, false, nil
	}
	if err != nil {
		return Message{}, false, fmt.Errorf("redis pop: %w", err)
	}
	var m Message
	if err := json.Unmarshal(b, &m); err != nil {
		return Message{}, false, fmt.Errorf("decode message: %w", err)
	}
	return m, true, nil
}

func (r *RedisPublisher) Len(ctx context.Context, msgType string) (int64, error) {
	return r.client.LLen(ctx, r.key(msgType)).Result()
}

func (r *RedisPublisher) key(msgType string) string {
	return r.keyPrefix + ":" + msgType
}
