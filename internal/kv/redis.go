package kv

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"portfolio-api/internal/config"
)

// RedisStore keeps values as plain strings and lists as native Redis lists.
type RedisStore struct {
	client *redis.Client
	tracer trace.Tracer
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{
		client: client,
		tracer: otel.Tracer("kv.redis"),
	}
}

// OpenRedis dials Redis from configuration and verifies the connection.
func OpenRedis(ctx context.Context, cfg config.RedisConfig) (*RedisStore, error) {
	if cfg.URL == "" {
		return nil, errors.New("redis URL is not configured")
	}

	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}

	if cfg.PoolSize > 0 {
		opts.PoolSize = cfg.PoolSize
	}
	if cfg.MinIdleConns > 0 {
		opts.MinIdleConns = cfg.MinIdleConns
	}
	if cfg.DialTimeout.Duration > 0 {
		opts.DialTimeout = cfg.DialTimeout.Duration
	}
	if cfg.ReadTimeout.Duration > 0 {
		opts.ReadTimeout = cfg.ReadTimeout.Duration
	}
	if cfg.WriteTimeout.Duration > 0 {
		opts.WriteTimeout = cfg.WriteTimeout.Duration
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return NewRedisStore(client), nil
}

func (s *RedisStore) Backend() string { return BackendRedis }

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	ctx, span := startSpan(ctx, s.tracer, BackendRedis, "get", "kv.read", key)
	defer span.End()

	value, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		span.SetAttributes(attribute.Bool("found", false))
		return nil, ErrNotFound
	}
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}

	span.SetAttributes(attribute.Bool("found", true))
	return value, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, value []byte) error {
	ctx, span := startSpan(ctx, s.tracer, BackendRedis, "set", "kv.write", key)
	defer span.End()

	if err := s.client.Set(ctx, key, value, 0).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	ctx, span := startSpan(ctx, s.tracer, BackendRedis, "delete", "kv.write", key)
	defer span.End()

	if err := s.client.Del(ctx, key).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("redis del %s: %w", key, err)
	}
	return nil
}

func (s *RedisStore) ListAppend(ctx context.Context, key, member string) error {
	ctx, span := startSpan(ctx, s.tracer, BackendRedis, "list_append", "kv.write", key)
	defer span.End()

	if err := s.client.RPush(ctx, key, member).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("redis rpush %s: %w", key, err)
	}
	return nil
}

func (s *RedisStore) ListRange(ctx context.Context, key string) ([]string, error) {
	ctx, span := startSpan(ctx, s.tracer, BackendRedis, "list_range", "kv.read", key)
	defer span.End()

	members, err := s.client.LRange(ctx, key, 0, -1).Result()
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("redis lrange %s: %w", key, err)
	}

	span.SetAttributes(attribute.Int("list.length", len(members)))
	return members, nil
}

func (s *RedisStore) ListRemove(ctx context.Context, key, member string) error {
	ctx, span := startSpan(ctx, s.tracer, BackendRedis, "list_remove", "kv.write", key)
	defer span.End()

	removed, err := s.client.LRem(ctx, key, 0, member).Result()
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("redis lrem %s: %w", key, err)
	}

	span.SetAttributes(attribute.Bool("removed", removed > 0))
	return nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
