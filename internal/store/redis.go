package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Lllllllleong/documentqa/internal/models"
	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "docqa:document:"

// RedisClient is the subset of *redis.Client the store uses.
type RedisClient interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Close() error
}

// NewRedisClient connects to addr and verifies the connection with a ping.
func NewRedisClient(addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}
	return client, nil
}

// RedisStore keeps each document as a JSON value whose key expires with the
// document, so Redis reclaims expired records itself.
type RedisStore struct {
	client RedisClient
	opts   Options
	logger *slog.Logger
}

// NewRedisStore creates a RedisStore on top of client.
func NewRedisStore(client RedisClient, opts Options, logger *slog.Logger) *RedisStore {
	return &RedisStore{client: client, opts: opts.withDefaults(), logger: logger}
}

func redisKey(id string) string {
	return redisKeyPrefix + id
}

func (s *RedisStore) Put(ctx context.Context, text, filename string) (string, error) {
	return putNew(ctx, s.opts, text, filename, func(ctx context.Context, doc models.StoredDocument) error {
		payload, err := json.Marshal(doc)
		if err != nil {
			return fmt.Errorf("failed to encode document: %w", err)
		}
		ok, err := s.client.SetNX(ctx, redisKey(doc.ID), payload, s.opts.TTL).Result()
		if err != nil {
			return fmt.Errorf("failed to store document: %w", err)
		}
		if !ok {
			return errIDTaken
		}
		return nil
	})
}

func (s *RedisStore) Get(ctx context.Context, id string) (*models.StoredDocument, error) {
	if !validID(id) {
		return nil, ErrNotFound
	}
	raw, err := s.client.Get(ctx, redisKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read document %s: %w", id, err)
	}

	var doc models.StoredDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode document %s: %w", id, err)
	}
	doc.ID = id
	if doc.Expired(s.opts.Now()) {
		return nil, ErrNotFound
	}
	return &doc, nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	if !validID(id) {
		return nil
	}
	if err := s.client.Del(ctx, redisKey(id)).Err(); err != nil {
		return fmt.Errorf("failed to delete document %s: %w", id, err)
	}
	return nil
}

// Sweep is a no-op: keys carry the document TTL and expire in Redis.
func (s *RedisStore) Sweep(ctx context.Context, now time.Time) (int, error) {
	return 0, nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
