package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/zhouzirui/contact-desk/backend/internal/model/contact"
)

// RedisStore keeps every message as a field of one hash keyed by table name.
type RedisStore struct {
	client *redis.Client
	key    string
}

// NewRedisStore connects to redisURL and verifies the connection.
func NewRedisStore(ctx context.Context, redisURL, table string) (*RedisStore, error) {
	if redisURL == "" {
		return nil, errors.New("redis store requires REDIS_URL")
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return NewRedisStoreFromClient(client, table), nil
}

// NewRedisStoreFromClient wraps an existing client.
func NewRedisStoreFromClient(client *redis.Client, table string) *RedisStore {
	return &RedisStore{client: client, key: messagesKey(table)}
}

func messagesKey(table string) string {
	return fmt.Sprintf("contact:%s:messages", table)
}

// Put writes msg with HSETNX so an existing id is never replaced.
func (s *RedisStore) Put(ctx context.Context, msg contact.Message) error {
	defer observe("redis", "put", time.Now())

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}

	created, err := s.client.HSetNX(ctx, s.key, msg.ID, data).Result()
	if err != nil {
		return fmt.Errorf("hsetnx %s: %w", s.key, err)
	}
	if !created {
		return ErrDuplicateID
	}
	return nil
}

// ScanAll returns every message in the hash.
func (s *RedisStore) ScanAll(ctx context.Context) ([]contact.Message, error) {
	defer observe("redis", "scan", time.Now())

	values, err := s.client.HVals(ctx, s.key).Result()
	if err != nil {
		return nil, fmt.Errorf("hvals %s: %w", s.key, err)
	}

	messages := make([]contact.Message, 0, len(values))
	for _, raw := range values {
		var msg contact.Message
		if err := json.Unmarshal([]byte(raw), &msg); err != nil {
			return nil, fmt.Errorf("decode message: %w", err)
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

// Ping checks the Redis connection.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
