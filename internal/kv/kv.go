// Package kv is the key-value storage boundary. Every backend stores opaque
// byte values under string keys plus ordered string lists.
package kv

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var ErrNotFound = errors.New("kv: key not found")

const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendDapr   = "dapr"
)

type Store interface {
	// Backend names the storage type, reported to admin clients as storageType.
	Backend() string
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	ListAppend(ctx context.Context, key, member string) error
	ListRange(ctx context.Context, key string) ([]string, error)
	ListRemove(ctx context.Context, key, member string) error
	Ping(ctx context.Context) error
	Close() error
}

func startSpan(ctx context.Context, tracer trace.Tracer, backend, op, operation, key string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "kv."+op,
		trace.WithAttributes(
			attribute.String("kv.key", key),
			attribute.String("kv.backend", backend),
			attribute.String("operation", operation),
		))
}

func removeMember(members []string, member string) ([]string, bool) {
	out := members[:0]
	removed := false
	for _, m := range members {
		if m == member {
			removed = true
			continue
		}
		out = append(out, m)
	}
	return out, removed
}
