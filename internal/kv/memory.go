package kv

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type MemoryStore struct {
	mu     sync.RWMutex
	values map[string][]byte
	lists  map[string][]string
	tracer trace.Tracer
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		values: make(map[string][]byte),
		lists:  make(map[string][]string),
		tracer: otel.Tracer("kv.memory"),
	}
}

func (s *MemoryStore) Backend() string { return BackendMemory }

func (s *MemoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	_, span := startSpan(ctx, s.tracer, BackendMemory, "get", "kv.read", key)
	defer span.End()

	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.values[key]
	span.SetAttributes(attribute.Bool("found", ok))
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]byte, len(value))
	copy(out, value)
	return out, nil
}

func (s *MemoryStore) Set(ctx context.Context, key string, value []byte) error {
	_, span := startSpan(ctx, s.tracer, BackendMemory, "set", "kv.write", key)
	defer span.End()

	stored := make([]byte, len(value))
	copy(stored, value)

	s.mu.Lock()
	s.values[key] = stored
	s.mu.Unlock()

	span.SetAttributes(attribute.Bool("success", true))
	return nil
}

// Delete removes both a plain value and a list stored under key.
func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	_, span := startSpan(ctx, s.tracer, BackendMemory, "delete", "kv.write", key)
	defer span.End()

	s.mu.Lock()
	_, existed := s.values[key]
	delete(s.values, key)
	delete(s.lists, key)
	s.mu.Unlock()

	span.SetAttributes(attribute.Bool("key.existed", existed))
	return nil
}

func (s *MemoryStore) ListAppend(ctx context.Context, key, member string) error {
	_, span := startSpan(ctx, s.tracer, BackendMemory, "list_append", "kv.write", key)
	defer span.End()

	s.mu.Lock()
	s.lists[key] = append(s.lists[key], member)
	s.mu.Unlock()

	return nil
}

func (s *MemoryStore) ListRange(ctx context.Context, key string) ([]string, error) {
	_, span := startSpan(ctx, s.tracer, BackendMemory, "list_range", "kv.read", key)
	defer span.End()

	s.mu.RLock()
	defer s.mu.RUnlock()

	members := make([]string, len(s.lists[key]))
	copy(members, s.lists[key])
	span.SetAttributes(attribute.Int("list.length", len(members)))
	return members, nil
}

func (s *MemoryStore) ListRemove(ctx context.Context, key, member string) error {
	_, span := startSpan(ctx, s.tracer, BackendMemory, "list_remove", "kv.write", key)
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	members, removed := removeMember(s.lists[key], member)
	if len(members) == 0 {
		delete(s.lists, key)
	} else {
		s.lists[key] = members
	}
	span.SetAttributes(attribute.Bool("removed", removed))
	return nil
}

func (s *MemoryStore) Ping(context.Context) error { return nil }

func (s *MemoryStore) Close() error { return nil }
