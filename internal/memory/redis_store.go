package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// RedisStore implements Store with one Redis list per session
type RedisStore struct {
	client      *redis.Client
	ttl         time.Duration // Session TTL (time to live)
	maxMessages int64
}

// NewRedisStore creates a new Redis-backed store. maxMessages caps the
// list length per session; zero keeps everything.
func NewRedisStore(redisURL string, ttl time.Duration, maxMessages int) (*RedisStore, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse Redis URL")
	}

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "failed to connect to Redis")
	}

	return &RedisStore{
		client:      client,
		ttl:         ttl,
		maxMessages: int64(maxMessages),
	}, nil
}

// sessionKey generates Redis key for a session
func (r *RedisStore) sessionKey(sessionID string) string {
	return fmt.Sprintf("intake:session:%s:messages", sessionID)
}

// LoadSession loads a session from Redis
func (r *RedisStore) LoadSession(ctx context.Context, sessionID string) (*SessionData, error) {
	items, err := r.client.LRange(ctx, r.sessionKey(sessionID), 0, -1).Result()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load session from Redis")
	}

	msgs := make([]Message, 0, len(items))
	for _, item := range items {
		var msg Message
		if err := json.Unmarshal([]byte(item), &msg); err != nil {
			return nil, errors.Wrap(err, "failed to parse session message")
		}
		msgs = append(msgs, msg)
	}

	return newSessionData(sessionID, msgs), nil
}

// AppendMessages pushes messages, trims the list and refreshes the TTL in
// one pipeline.
func (r *RedisStore) AppendMessages(ctx context.Context, sessionID string, msgs ...Message) error {
	if len(msgs) == 0 {
		return nil
	}

	values := make([]any, 0, len(msgs))
	for _, msg := range msgs {
		data, err := json.Marshal(msg)
		if err != nil {
			return errors.Wrap(err, "failed to marshal message")
		}
		values = append(values, data)
	}

	key := r.sessionKey(sessionID)
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, key, values...)
		if r.maxMessages > 0 {
			pipe.LTrim(ctx, key, -r.maxMessages, -1)
		}
		if r.ttl > 0 {
			pipe.Expire(ctx, key, r.ttl)
		}
		return nil
	})
	if err != nil {
		return errors.Wrap(err, "failed to save messages to Redis")
	}
	return nil
}

// ClearSession removes a session from Redis
func (r *RedisStore) ClearSession(ctx context.Context, sessionID string) error {
	if err := r.client.Del(ctx, r.sessionKey(sessionID)).Err(); err != nil {
		return errors.Wrap(err, "failed to clear session")
	}
	return nil
}

// SessionExists checks if a session exists in Redis
func (r *RedisStore) SessionExists(ctx context.Context, sessionID string) (bool, error) {
	exists, err := r.client.Exists(ctx, r.sessionKey(sessionID)).Result()
	if err != nil {
		return false, errors.Wrap(err, "failed to check session existence")
	}
	return exists > 0, nil
}

// Close closes the Redis connection
func (r *RedisStore) Close() error {
	return r.client.Close()
}

// Ping verifies the Redis connection is alive
func (r *RedisStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
