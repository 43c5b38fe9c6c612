package service

import (
	"context"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portfolio-api/internal/apperrors"
	"portfolio-api/internal/identity"
	"portfolio-api/internal/kv"
	"portfolio-api/internal/logging"
	"portfolio-api/internal/metrics"
	"portfolio-api/internal/models"
	"portfolio-api/internal/repository"
)

var fixedNow = time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("sub-%d", n)
	}
}

type subscriberFixture struct {
	svc     *SubscriberService
	repo    *repository.KVSubscriberRepository
	metrics *metrics.Metrics
}

func newSubscriberFixture() *subscriberFixture {
	repo := repository.NewKVSubscriberRepository(kv.NewMemoryStore())
	m := metrics.New()
	svc := NewSubscriberService(repo, m, logging.NewLoggerWithOutput(io.Discard, "debug"),
		WithClock(func() time.Time { return fixedNow }),
		WithIDGenerator(sequentialIDs()),
	)
	return &subscriberFixture{svc: svc, repo: repo, metrics: m}
}

func (f *subscriberFixture) subscribe(t *testing.T, name, phone, email string) *SubscribeResult {
	t.Helper()
	res, err := f.svc.Subscribe(context.Background(), &models.CreateSubscriberRequest{
		FullName:    name,
		PhoneNumber: phone,
		Email:       email,
	})
	require.NoError(t, err)
	return res
}

func TestSubscribeNewPhoneOnly(t *testing.T) {
	f := newSubscriberFixture()

	res := f.subscribe(t, "  Asha  ", "+91 98123-45670", "")
	assert.True(t, res.IsNew())
	assert.Equal(t, MsgSubscribed, res.Message())
	assert.Equal(t, "sub-1", res.Subscriber.ID)
	assert.Equal(t, "Asha", res.Subscriber.FullName)
	assert.Equal(t, "9812345670", res.Subscriber.PhoneNumber)
	assert.Empty(t, res.Subscriber.Email)
	assert.Equal(t, fixedNow, res.Subscriber.DateJoined)
	assert.Nil(t, res.Subscriber.LastUpdated)

	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Subscriptions.WithLabelValues("created")))
}

func TestSubscribeAddsEmailToPhoneRecord(t *testing.T) {
	f := newSubscriberFixture()

	f.subscribe(t, "Asha", "9812345670", "")
	res := f.subscribe(t, "Asha K", "9812345670", "Asha@Example.com")

	assert.False(t, res.IsNew())
	assert.Equal(t, MsgUpdated, res.Message())
	assert.Equal(t, "sub-1", res.Subscriber.ID)
	assert.Equal(t, "asha@example.com", res.Subscriber.Email)
	assert.Equal(t, "Asha K", res.Subscriber.FullName)
	require.NotNil(t, res.Subscriber.LastUpdated)

	byEmail, err := f.repo.FindByEmail(context.Background(), "asha@example.com")
	require.NoError(t, err)
	require.NotNil(t, byEmail)
	assert.Equal(t, "sub-1", byEmail.ID)
}

func TestSubscribeMergesTwoRecords(t *testing.T) {
	f := newSubscriberFixture()
	ctx := context.Background()

	f.subscribe(t, "Asha", "9812345670", "")
	f.subscribe(t, "Asha", "", "asha@example.com")

	res := f.subscribe(t, "Asha", "9812345670", "asha@example.com")
	assert.Equal(t, identity.OutcomeMerged, res.Outcome)
	assert.False(t, res.IsNew())
	assert.Equal(t, "sub-1", res.Subscriber.ID)

	all, err := f.svc.GetAllSubscribers(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "sub-1", all[0].ID)
	assert.Equal(t, "9812345670", all[0].PhoneNumber)
	assert.Equal(t, "asha@example.com", all[0].Email)

	_, err = f.repo.GetByID(ctx, "sub-2")
	assert.ErrorIs(t, err, models.ErrSubscriberNotFound)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Subscriptions.WithLabelValues("merged")))
}

func TestSubscribeIsIdempotent(t *testing.T) {
	f := newSubscriberFixture()

	first := f.subscribe(t, "Asha", "9812345670", "asha@example.com")
	for i := 0; i < 3; i++ {
		again := f.subscribe(t, "Asha", "9812345670", "asha@example.com")
		assert.False(t, again.IsNew())
		assert.Equal(t, first.Subscriber.ID, again.Subscriber.ID)
	}

	all, err := f.svc.GetAllSubscribers(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestSubscribeKeepsStoredChannelWhenOmitted(t *testing.T) {
	f := newSubscriberFixture()

	f.subscribe(t, "Asha", "9812345670", "asha@example.com")
	res := f.subscribe(t, "Asha", "9812345670", "")

	assert.Equal(t, "asha@example.com", res.Subscriber.Email)
}

func TestSubscribeValidation(t *testing.T) {
	tests := []struct {
		name  string
		req   models.CreateSubscriberRequest
		want  string
		field string
	}{
		{"missing name", models.CreateSubscriberRequest{FullName: "  ", PhoneNumber: "9812345670"}, MsgNameRequired, "fullName"},
		{"no contact", models.CreateSubscriberRequest{FullName: "Asha"}, MsgContactRequired, "contact"},
		{"sequential phone", models.CreateSubscriberRequest{FullName: "Asha", PhoneNumber: "0123456789"}, "Invalid phone number pattern", "phoneNumber"},
		{"short phone", models.CreateSubscriberRequest{FullName: "Asha", PhoneNumber: "98123"}, "Phone number must be exactly 10 digits", "phoneNumber"},
		{"disposable email", models.CreateSubscriberRequest{FullName: "Asha", Email: "a@mailinator.com"}, "Disposable email addresses are not allowed", "email"},
		{"bad email", models.CreateSubscriberRequest{FullName: "Asha", Email: "not-an-email"}, "Please enter a valid email address", "email"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newSubscriberFixture()
			req := tt.req

			res, err := f.svc.Subscribe(context.Background(), &req)
			require.Error(t, err)
			assert.Nil(t, res)

			var validationErr *apperrors.ValidationError
			require.ErrorAs(t, err, &validationErr)
			assert.Equal(t, tt.want, validationErr.Message)
			assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.ValidationFailures.WithLabelValues(tt.field)))

			all, err := f.svc.GetAllSubscribers(context.Background())
			require.NoError(t, err)
			assert.Empty(t, all)
		})
	}
}

func TestDeleteSubscriberByEachKey(t *testing.T) {
	tests := []struct {
		name  string
		query DeleteQuery
	}{
		{"by id", DeleteQuery{ID: "sub-1"}},
		{"by formatted phone", DeleteQuery{Phone: "+91 98123 45670"}},
		{"by email in any case", DeleteQuery{Email: " ASHA@example.com "}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newSubscriberFixture()
			ctx := context.Background()
			f.subscribe(t, "Asha", "9812345670", "asha@example.com")

			deleted, err := f.svc.DeleteSubscriber(ctx, tt.query)
			require.NoError(t, err)
			assert.Equal(t, "sub-1", deleted.ID)

			all, err := f.svc.GetAllSubscribers(ctx)
			require.NoError(t, err)
			assert.Empty(t, all)

			byPhone, err := f.repo.FindByPhone(ctx, "9812345670")
			require.NoError(t, err)
			assert.Nil(t, byPhone)
			assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.SubscribersDeleted))
		})
	}
}

func TestDeleteSubscriberErrors(t *testing.T) {
	f := newSubscriberFixture()
	ctx := context.Background()

	_, err := f.svc.DeleteSubscriber(ctx, DeleteQuery{})
	assert.Equal(t, 400, apperrors.StatusCode(err))

	_, err = f.svc.DeleteSubscriber(ctx, DeleteQuery{ID: "missing"})
	assert.Equal(t, 404, apperrors.StatusCode(err))
	assert.ErrorIs(t, err, models.ErrSubscriberNotFound)

	_, err = f.svc.DeleteSubscriber(ctx, DeleteQuery{Email: "nobody@example.com"})
	assert.Equal(t, 404, apperrors.StatusCode(err))
}

func TestStorageTypeReportsBackend(t *testing.T) {
	f := newSubscriberFixture()
	assert.Equal(t, kv.BackendMemory, f.svc.StorageType())
}
