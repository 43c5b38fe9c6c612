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
	"portfolio-api/internal/identity"
	"portfolio-api/internal/kv"
	"portfolio-api/internal/models"
)

const (
	subscriberListKey   = "subscribers"
	subscriberKeyPrefix = "subscriber:"
	phoneIndexKeyPrefix = "subscriber:phone:"
	emailIndexKeyPrefix = "subscriber:email:"
)

func subscriberKey(id string) string    { return subscriberKeyPrefix + id }
func phoneIndexKey(phone string) string { return phoneIndexKeyPrefix + phone }
func emailIndexKey(email string) string { return emailIndexKeyPrefix + email }

type SubscriberRepository interface {
	Upsert(ctx context.Context, res identity.Resolution) error
	GetByID(ctx context.Context, id string) (*models.Subscriber, error)
	// FindByPhone and FindByEmail return nil, nil when nothing is indexed.
	FindByPhone(ctx context.Context, phone string) (*models.Subscriber, error)
	FindByEmail(ctx context.Context, email string) (*models.Subscriber, error)
	GetAll(ctx context.Context) ([]*models.Subscriber, error)
	Delete(ctx context.Context, id string) (*models.Subscriber, error)
	StorageType() string
}

// KVSubscriberRepository stores each subscriber as JSON under subscriber:<id>,
// with phone and email indexes pointing at the id and a master list of ids.
// Writes are independent KV calls; a failure part-way leaves earlier writes in place.
type KVSubscriberRepository struct {
	store  kv.Store
	tracer trace.Tracer
}

func NewKVSubscriberRepository(store kv.Store) *KVSubscriberRepository {
	return &KVSubscriberRepository{
		store:  store,
		tracer: otel.Tracer("subscriber-repository"),
	}
}

func (r *KVSubscriberRepository) StorageType() string {
	return r.store.Backend()
}

func (r *KVSubscriberRepository) Upsert(ctx context.Context, res identity.Resolution) error {
	subscriber := res.Record
	ctx, span := r.tracer.Start(ctx, "subscriber.repository.upsert",
		trace.WithAttributes(
			attribute.String("subscriber.id", subscriber.ID),
			attribute.String("subscriber.outcome", string(res.Outcome)),
			attribute.String("operation", "database.write"),
			attribute.String("storage.type", r.store.Backend()),
		))
	defer span.End()

	if err := r.upsert(ctx, res); err != nil {
		span.RecordError(err)
		return err
	}

	span.SetAttributes(attribute.Bool("success", true))
	return nil
}

func (r *KVSubscriberRepository) upsert(ctx context.Context, res identity.Resolution) error {
	subscriber := res.Record

	data, err := json.Marshal(subscriber)
	if err != nil {
		return fmt.Errorf("failed to marshal subscriber: %w", err)
	}
	if err := r.store.Set(ctx, subscriberKey(subscriber.ID), data); err != nil {
		return apperrors.Storage("write subscriber", err)
	}

	if subscriber.PhoneNumber != "" {
		if err := r.store.Set(ctx, phoneIndexKey(subscriber.PhoneNumber), []byte(subscriber.ID)); err != nil {
			return apperrors.Storage("write phone index", err)
		}
	}
	if subscriber.Email != "" {
		if err := r.store.Set(ctx, emailIndexKey(subscriber.Email), []byte(subscriber.ID)); err != nil {
			return apperrors.Storage("write email index", err)
		}
	}

	if res.IsNew() {
		if err := r.store.ListAppend(ctx, subscriberListKey, subscriber.ID); err != nil {
			return apperrors.Storage("append subscriber id", err)
		}
	}

	if res.ReleasedPhone != "" {
		if err := r.deleteIndexIfOwned(ctx, phoneIndexKey(res.ReleasedPhone), subscriber.ID); err != nil {
			return err
		}
	}
	if res.ReleasedEmail != "" {
		if err := r.deleteIndexIfOwned(ctx, emailIndexKey(res.ReleasedEmail), subscriber.ID); err != nil {
			return err
		}
	}

	if merged := res.MergedAway; merged != nil && merged.ID != subscriber.ID {
		if err := r.store.Delete(ctx, subscriberKey(merged.ID)); err != nil {
			return apperrors.Storage("delete merged subscriber", err)
		}
		if err := r.store.ListRemove(ctx, subscriberListKey, merged.ID); err != nil {
			return apperrors.Storage("remove merged subscriber id", err)
		}
		if err := r.deleteIndexes(ctx, merged); err != nil {
			return err
		}
	}

	return nil
}

// deleteIndexIfOwned removes an index entry only while it still points at id,
// so an entry already taken over by another record survives.
func (r *KVSubscriberRepository) deleteIndexIfOwned(ctx context.Context, key, id string) error {
	owner, err := r.store.Get(ctx, key)
	if errors.Is(err, kv.ErrNotFound) {
		return nil
	}
	if err != nil {
		return apperrors.Storage("read index", err)
	}
	if string(owner) != id {
		return nil
	}
	if err := r.store.Delete(ctx, key); err != nil {
		return apperrors.Storage("delete index", err)
	}
	return nil
}

func (r *KVSubscriberRepository) deleteIndexes(ctx context.Context, subscriber *models.Subscriber) error {
	if subscriber.PhoneNumber != "" {
		if err := r.deleteIndexIfOwned(ctx, phoneIndexKey(subscriber.PhoneNumber), subscriber.ID); err != nil {
			return err
		}
	}
	if subscriber.Email != "" {
		if err := r.deleteIndexIfOwned(ctx, emailIndexKey(subscriber.Email), subscriber.ID); err != nil {
			return err
		}
	}
	return nil
}

func (r *KVSubscriberRepository) GetByID(ctx context.Context, id string) (*models.Subscriber, error) {
	ctx, span := r.tracer.Start(ctx, "subscriber.repository.get_by_id",
		trace.WithAttributes(
			attribute.String("subscriber.id", id),
			attribute.String("operation", "database.read"),
			attribute.String("storage.type", r.store.Backend()),
		))
	defer span.End()

	subscriber, err := r.load(ctx, id)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	span.SetAttributes(attribute.Bool("found", true))
	return subscriber, nil
}

func (r *KVSubscriberRepository) load(ctx context.Context, id string) (*models.Subscriber, error) {
	data, err := r.store.Get(ctx, subscriberKey(id))
	if errors.Is(err, kv.ErrNotFound) {
		return nil, models.ErrSubscriberNotFound
	}
	if err != nil {
		return nil, apperrors.Storage("read subscriber", err)
	}

	var subscriber models.Subscriber
	if err := json.Unmarshal(data, &subscriber); err != nil {
		return nil, fmt.Errorf("failed to unmarshal subscriber %s: %w", id, err)
	}
	return &subscriber, nil
}

func (r *KVSubscriberRepository) FindByPhone(ctx context.Context, phone string) (*models.Subscriber, error) {
	return r.findByIndex(ctx, "subscriber.repository.find_by_phone", phoneIndexKey(phone))
}

func (r *KVSubscriberRepository) FindByEmail(ctx context.Context, email string) (*models.Subscriber, error) {
	return r.findByIndex(ctx, "subscriber.repository.find_by_email", emailIndexKey(email))
}

func (r *KVSubscriberRepository) findByIndex(ctx context.Context, spanName, key string) (*models.Subscriber, error) {
	ctx, span := r.tracer.Start(ctx, spanName,
		trace.WithAttributes(
			attribute.String("operation", "database.read"),
			attribute.String("storage.type", r.store.Backend()),
		))
	defer span.End()

	id, err := r.store.Get(ctx, key)
	if errors.Is(err, kv.ErrNotFound) {
		span.SetAttributes(attribute.Bool("found", false))
		return nil, nil
	}
	if err != nil {
		span.RecordError(err)
		return nil, apperrors.Storage("read index", err)
	}

	subscriber, err := r.load(ctx, string(id))
	if errors.Is(err, models.ErrSubscriberNotFound) {
		// Dangling index left behind by an interrupted write.
		span.SetAttributes(attribute.Bool("found", false), attribute.Bool("index.dangling", true))
		return nil, nil
	}
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	span.SetAttributes(
		attribute.Bool("found", true),
		attribute.String("subscriber.id", subscriber.ID),
	)
	return subscriber, nil
}

func (r *KVSubscriberRepository) GetAll(ctx context.Context) ([]*models.Subscriber, error) {
	ctx, span := r.tracer.Start(ctx, "subscriber.repository.get_all",
		trace.WithAttributes(
			attribute.String("operation", "database.read"),
			attribute.String("storage.type", r.store.Backend()),
		))
	defer span.End()

	ids, err := r.store.ListRange(ctx, subscriberListKey)
	if err != nil {
		span.RecordError(err)
		return nil, apperrors.Storage("list subscriber ids", err)
	}

	subscribers := make([]*models.Subscriber, 0, len(ids))
	skipped := 0
	for _, id := range ids {
		subscriber, err := r.load(ctx, id)
		if errors.Is(err, models.ErrSubscriberNotFound) {
			skipped++
			continue
		}
		if err != nil {
			span.RecordError(err)
			return nil, err
		}
		subscribers = append(subscribers, subscriber)
	}

	span.SetAttributes(
		attribute.Int("subscriber.count", len(subscribers)),
		attribute.Int("subscriber.skipped", skipped),
		attribute.Bool("success", true),
	)
	return subscribers, nil
}

// Delete removes the record, its index entries and its list membership and
// returns the record as it was stored.
func (r *KVSubscriberRepository) Delete(ctx context.Context, id string) (*models.Subscriber, error) {
	ctx, span := r.tracer.Start(ctx, "subscriber.repository.delete",
		trace.WithAttributes(
			attribute.String("subscriber.id", id),
			attribute.String("operation", "database.write"),
			attribute.String("storage.type", r.store.Backend()),
		))
	defer span.End()

	subscriber, err := r.load(ctx, id)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	if err := r.store.Delete(ctx, subscriberKey(id)); err != nil {
		span.RecordError(err)
		return nil, apperrors.Storage("delete subscriber", err)
	}
	if err := r.deleteIndexes(ctx, subscriber); err != nil {
		span.RecordError(err)
		return nil, err
	}
	if err := r.store.ListRemove(ctx, subscriberListKey, id); err != nil {
		span.RecordError(err)
		return nil, apperrors.Storage("remove subscriber id", err)
	}

	span.SetAttributes(attribute.Bool("success", true))
	return subscriber, nil
}
