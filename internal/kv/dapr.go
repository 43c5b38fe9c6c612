package kv

import (
	"context"
	"encoding/json"
	"fmt"

	dapr "github.com/dapr/go-sdk/client"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// StateClient is the subset of the Dapr client the store relies on.
type StateClient interface {
	GetState(ctx context.Context, storeName, key string, meta map[string]string) (*dapr.StateItem, error)
	SaveState(ctx context.Context, storeName, key string, data []byte, meta map[string]string, so ...dapr.StateOption) error
	SaveStateWithETag(ctx context.Context, storeName, key string, data []byte, etag string, meta map[string]string, so ...dapr.StateOption) error
	DeleteState(ctx context.Context, storeName, key string, meta map[string]string) error
	Close()
}

// DaprStore persists through a Dapr state store component. Dapr has no list
// type, so lists are JSON arrays rewritten with the ETag read alongside them.
type DaprStore struct {
	client    StateClient
	tracer    trace.Tracer
	storeName string
}

func NewDaprStore(client StateClient, storeName string) *DaprStore {
	return &DaprStore{
		client:    client,
		tracer:    otel.Tracer("kv.dapr"),
		storeName: storeName,
	}
}

// OpenDapr connects to the sidecar at address, or the default gRPC port when empty.
func OpenDapr(address, storeName string) (*DaprStore, error) {
	var (
		client dapr.Client
		err    error
	)
	if address != "" {
		client, err = dapr.NewClientWithAddress(address)
	} else {
		client, err = dapr.NewClient()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create dapr client: %w", err)
	}
	return NewDaprStore(client, storeName), nil
}

func (s *DaprStore) Backend() string { return BackendDapr }

func (s *DaprStore) span(ctx context.Context, op, operation, key string) (context.Context, trace.Span) {
	ctx, span := startSpan(ctx, s.tracer, BackendDapr, op, operation, key)
	span.SetAttributes(attribute.String("dapr.store", s.storeName))
	return ctx, span
}

func (s *DaprStore) Get(ctx context.Context, key string) ([]byte, error) {
	ctx, span := s.span(ctx, "get", "kv.read", key)
	defer span.End()

	item, err := s.client.GetState(ctx, s.storeName, key, nil)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get %s from dapr state store: %w", key, err)
	}
	if item == nil || len(item.Value) == 0 {
		span.SetAttributes(attribute.Bool("found", false))
		return nil, ErrNotFound
	}

	span.SetAttributes(attribute.Bool("found", true))
	return item.Value, nil
}

func (s *DaprStore) Set(ctx context.Context, key string, value []byte) error {
	ctx, span := s.span(ctx, "set", "kv.write", key)
	defer span.End()

	if err := s.client.SaveState(ctx, s.storeName, key, value, nil); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to save %s to dapr state store: %w", key, err)
	}
	return nil
}

func (s *DaprStore) Delete(ctx context.Context, key string) error {
	ctx, span := s.span(ctx, "delete", "kv.write", key)
	defer span.End()

	if err := s.client.DeleteState(ctx, s.storeName, key, nil); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to delete %s from dapr state store: %w", key, err)
	}
	return nil
}

func (s *DaprStore) readList(ctx context.Context, key string) ([]string, string, error) {
	item, err := s.client.GetState(ctx, s.storeName, key, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to get list %s from dapr state store: %w", key, err)
	}
	if item == nil || len(item.Value) == 0 {
		return []string{}, "", nil
	}

	var members []string
	if err := json.Unmarshal(item.Value, &members); err != nil {
		return nil, "", fmt.Errorf("failed to unmarshal list %s: %w", key, err)
	}
	return members, item.Etag, nil
}

func (s *DaprStore) writeList(ctx context.Context, key string, members []string, etag string) error {
	data, err := json.Marshal(members)
	if err != nil {
		return fmt.Errorf("failed to marshal list %s: %w", key, err)
	}
	if err := s.client.SaveStateWithETag(ctx, s.storeName, key, data, etag, nil); err != nil {
		return fmt.Errorf("failed to save list %s to dapr state store: %w", key, err)
	}
	return nil
}

func (s *DaprStore) ListAppend(ctx context.Context, key, member string) error {
	ctx, span := s.span(ctx, "list_append", "kv.write", key)
	defer span.End()

	members, etag, err := s.readList(ctx, key)
	if err != nil {
		span.RecordError(err)
		return err
	}
	if err := s.writeList(ctx, key, append(members, member), etag); err != nil {
		span.RecordError(err)
		return err
	}
	return nil
}

func (s *DaprStore) ListRange(ctx context.Context, key string) ([]string, error) {
	ctx, span := s.span(ctx, "list_range", "kv.read", key)
	defer span.End()

	members, _, err := s.readList(ctx, key)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(attribute.Int("list.length", len(members)))
	return members, nil
}

func (s *DaprStore) ListRemove(ctx context.Context, key, member string) error {
	ctx, span := s.span(ctx, "list_remove", "kv.write", key)
	defer span.End()

	members, etag, err := s.readList(ctx, key)
	if err != nil {
		span.RecordError(err)
		return err
	}
	members, removed := removeMember(members, member)
	span.SetAttributes(attribute.Bool("removed", removed))
	if !removed {
		return nil
	}
	if err := s.writeList(ctx, key, members, etag); err != nil {
		span.RecordError(err)
		return err
	}
	return nil
}

// Ping reads a key that never exists; any transport failure surfaces here.
func (s *DaprStore) Ping(ctx context.Context) error {
	if _, err := s.client.GetState(ctx, s.storeName, "healthz", nil); err != nil {
		return fmt.Errorf("dapr state store unreachable: %w", err)
	}
	return nil
}

func (s *DaprStore) Close() error {
	s.client.Close()
	return nil
}
