package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"portfolio-api/internal/apperrors"
	"portfolio-api/internal/kv"
	"portfolio-api/internal/models"
)

const (
	linkListKey   = "links"
	linkKeyPrefix = "link:"
)

func linkKey(slug string) string { return linkKeyPrefix + slug }

type LinkRepository interface {
	Create(ctx context.Context, link *models.Link) error
	Get(ctx context.Context, slug string) (*models.Link, error)
	Save(ctx context.Context, link *models.Link) error
	GetAll(ctx context.Context) ([]*models.Link, error)
	Delete(ctx context.Context, slug string) error
}

type KVLinkRepository struct {
	store  kv.Store
	tracer trace.Tracer
}

func NewKVLinkRepository(store kv.Store) *KVLinkRepository {
	return &KVLinkRepository{
		store:  store,
		tracer: otel.Tracer("link-repository"),
	}
}

func (r *KVLinkRepository) startSpan(ctx context.Context, name, operation, slug string) (context.Context, trace.Span) {
	return r.tracer.Start(ctx, name,
		trace.WithAttributes(
			attribute.String("link.slug", slug),
			attribute.String("operation", operation),
			attribute.String("storage.type", r.store.Backend()),
		))
}

// Create fails with models.ErrLinkExists when the slug is taken. The check and
// the write are separate calls, so two concurrent creates can both succeed.
func (r *KVLinkRepository) Create(ctx context.Context, link *models.Link) error {
	ctx, span := r.startSpan(ctx, "link.repository.create", "database.write", link.Slug)
	defer span.End()

	if _, err := r.store.Get(ctx, linkKey(link.Slug)); err == nil {
		span.SetAttributes(attribute.Bool("exists", true))
		return models.ErrLinkExists
	} else if !errors.Is(err, kv.ErrNotFound) {
		span.RecordError(err)
		return apperrors.Storage("read link", err)
	}

	if err := r.write(ctx, link); err != nil {
		span.RecordError(err)
		return err
	}
	if err := r.store.ListAppend(ctx, linkListKey, link.Slug); err != nil {
		span.RecordError(err)
		return apperrors.Storage("append link slug", err)
	}

	span.SetAttributes(attribute.Bool("success", true))
	return nil
}

func (r *KVLinkRepository) write(ctx context.Context, link *models.Link) error {
	data, err := json.Marshal(link)
	if err != nil {
		return fmt.Errorf("failed to marshal link: %w", err)
	}
	if err := r.store.Set(ctx, linkKey(link.Slug), data); err != nil {
		return apperrors.Storage("write link", err)
	}
	return nil
}

func (r *KVLinkRepository) Get(ctx context.Context, slug string) (*models.Link, error) {
	ctx, span := r.startSpan(ctx, "link.repository.get", "database.read", slug)
	defer span.End()

	link, err := r.load(ctx, slug)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return link, nil
}

func (r *KVLinkRepository) load(ctx context.Context, slug string) (*models.Link, error) {
	data, err := r.store.Get(ctx, linkKey(slug))
	if errors.Is(err, kv.ErrNotFound) {
		return nil, models.ErrLinkNotFound
	}
	if err != nil {
		return nil, apperrors.Storage("read link", err)
	}

	var link models.Link
	if err := json.Unmarshal(data, &link); err != nil {
		return nil, fmt.Errorf("failed to unmarshal link %s: %w", slug, err)
	}
	return &link, nil
}

// Save overwrites an existing link.
func (r *KVLinkRepository) Save(ctx context.Context, link *models.Link) error {
	ctx, span := r.startSpan(ctx, "link.repository.save", "database.write", link.Slug)
	defer span.End()

	if err := r.write(ctx, link); err != nil {
		span.RecordError(err)
		return err
	}
	return nil
}

func (r *KVLinkRepository) GetAll(ctx context.Context) ([]*models.Link, error) {
	ctx, span := r.startSpan(ctx, "link.repository.get_all", "database.read", "")
	defer span.End()

	slugs, err := r.store.ListRange(ctx, linkListKey)
	if err != nil {
		span.RecordError(err)
		return nil, apperrors.Storage("list link slugs", err)
	}

	links := make([]*models.Link, 0, len(slugs))
	for _, slug := range slugs {
		link, err := r.load(ctx, slug)
		if errors.Is(err, models.ErrLinkNotFound) {
			continue
		}
		if err != nil {
			span.RecordError(err)
			return nil, err
		}
		links = append(links, link)
	}

	span.SetAttributes(attribute.Int("link.count", len(links)))
	return links, nil
}

func (r *KVLinkRepository) Delete(ctx context.Context, slug string) error {
	ctx, span := r.startSpan(ctx, "link.repository.delete", "database.write", slug)
	defer span.End()

	if _, err := r.load(ctx, slug); err != nil {
		span.RecordError(err)
		return err
	}
	if err := r.store.Delete(ctx, linkKey(slug)); err != nil {
		span.RecordError(err)
		return apperrors.Storage("delete link", err)
	}
	if err := r.store.ListRemove(ctx, linkListKey, slug); err != nil {
		span.RecordError(err)
		return apperrors.Storage("remove link slug", err)
	}
	return nil
}
