package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"portfolio-api/internal/apperrors"
	"portfolio-api/internal/identity"
	"portfolio-api/internal/logging"
	"portfolio-api/internal/metrics"
	"portfolio-api/internal/models"
	"portfolio-api/internal/repository"
	"portfolio-api/internal/validation"
)

const (
	MsgNameRequired    = "Full name is required"
	MsgContactRequired = "Please provide either a phone number or email address"
	MsgSubscribed      = "Successfully subscribed to the newsletter!"
	MsgUpdated         = "Subscription details updated successfully"
	MsgDeleted         = "Subscriber deleted successfully"
	MsgIdentifierReq   = "Provide one of id, phone or email"
)

type SubscribeResult struct {
	Subscriber *models.Subscriber
	Outcome    identity.Outcome
}

func (r *SubscribeResult) IsNew() bool { return r.Outcome == identity.OutcomeCreated }

func (r *SubscribeResult) Message() string {
	if r.IsNew() {
		return MsgSubscribed
	}
	return MsgUpdated
}

// DeleteQuery identifies a subscriber by any one of its keys.
type DeleteQuery struct {
	ID    string
	Phone string
	Email string
}

type SubscriberService struct {
	repo    repository.SubscriberRepository
	metrics *metrics.Metrics
	logger  *logging.ContextLogger
	tracer  trace.Tracer
	now     func() time.Time
	newID   func() string
}

type Option func(*SubscriberService)

func WithClock(now func() time.Time) Option {
	return func(s *SubscriberService) { s.now = now }
}

func WithIDGenerator(newID func() string) Option {
	return func(s *SubscriberService) { s.newID = newID }
}

func NewSubscriberService(repo repository.SubscriberRepository, m *metrics.Metrics, logger *logging.ContextLogger, opts ...Option) *SubscriberService {
	s := &SubscriberService{
		repo:    repo,
		metrics: m,
		logger:  logger,
		tracer:  otel.Tracer("subscriber-service"),
		now:     func() time.Time { return time.Now().UTC() },
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *SubscriberService) validate(ctx context.Context, req *models.CreateSubscriberRequest) (identity.Submission, error) {
	sub := identity.Submission{FullName: strings.TrimSpace(req.FullName)}

	if sub.FullName == "" {
		s.metrics.IncValidationFailure("fullName")
		return sub, apperrors.Validation(MsgNameRequired)
	}
	if strings.TrimSpace(req.PhoneNumber) == "" && strings.TrimSpace(req.Email) == "" {
		s.metrics.IncValidationFailure("contact")
		return sub, apperrors.Validation(MsgContactRequired)
	}

	phone := validation.ValidatePhoneNumber(req.PhoneNumber)
	if !phone.Valid {
		s.metrics.IncValidationFailure("phoneNumber")
		return sub, apperrors.Validation("%s", phone.Message)
	}
	email := validation.ValidateEmail(req.Email)
	if !email.Valid {
		s.metrics.IncValidationFailure("email")
		return sub, apperrors.Validation("%s", email.Message)
	}

	sub.PhoneNumber = phone.Normalized
	sub.Email = email.Normalized
	return sub, nil
}

func (s *SubscriberService) Subscribe(ctx context.Context, req *models.CreateSubscriberRequest) (*SubscribeResult, error) {
	ctx, span := s.tracer.Start(ctx, "subscriber.service.subscribe")
	defer span.End()

	sub, err := s.validate(ctx, req)
	if err != nil {
		s.logger.WarnWithTracing(ctx, "Rejected subscription request", logrus.Fields{
			"reason": err.Error(),
		})
		span.RecordError(err)
		return nil, err
	}

	s.logger.InfoWithTracing(ctx, "Processing subscription", logrus.Fields{
		"phone": logging.MaskPhone(sub.PhoneNumber),
		"email": logging.MaskEmail(sub.Email),
	})

	var byPhone, byEmail *models.Subscriber
	if sub.PhoneNumber != "" {
		if byPhone, err = s.repo.FindByPhone(ctx, sub.PhoneNumber); err != nil {
			s.logger.ErrorWithTracing(ctx, "Failed to look up subscriber by phone", err, nil)
			span.RecordError(err)
			return nil, err
		}
	}
	if sub.Email != "" {
		if byEmail, err = s.repo.FindByEmail(ctx, sub.Email); err != nil {
			s.logger.ErrorWithTracing(ctx, "Failed to look up subscriber by email", err, nil)
			span.RecordError(err)
			return nil, err
		}
	}

	res := identity.Resolve(sub, byPhone, byEmail, s.now(), s.newID)

	if err := s.repo.Upsert(ctx, res); err != nil {
		s.logger.ErrorWithTracing(ctx, "Failed to store subscriber", err, logrus.Fields{
			"subscriber_id": res.Record.ID,
			"outcome":       res.Outcome,
		})
		span.RecordError(err)
		return nil, err
	}

	s.metrics.IncSubscription(string(res.Outcome))

	fields := logrus.Fields{
		"subscriber_id": res.Record.ID,
		"outcome":       res.Outcome,
	}
	if res.MergedAway != nil {
		fields["merged_subscriber_id"] = res.MergedAway.ID
	}
	s.logger.InfoWithTracing(ctx, "Subscription stored", fields)

	span.SetAttributes(
		attribute.String("subscriber.id", res.Record.ID),
		attribute.String("subscriber.outcome", string(res.Outcome)),
		attribute.Bool("success", true),
	)

	return &SubscribeResult{Subscriber: res.Record, Outcome: res.Outcome}, nil
}

func (s *SubscriberService) GetAllSubscribers(ctx context.Context) ([]*models.Subscriber, error) {
	ctx, span := s.tracer.Start(ctx, "subscriber.service.get_all")
	defer span.End()

	subscribers, err := s.repo.GetAll(ctx)
	if err != nil {
		s.logger.ErrorWithTracing(ctx, "Failed to retrieve subscribers", err, nil)
		span.RecordError(err)
		return nil, err
	}

	s.logger.InfoWithTracing(ctx, "Retrieved all subscribers", logrus.Fields{
		"count": len(subscribers),
	})

	span.SetAttributes(
		attribute.Int("subscriber.count", len(subscribers)),
		attribute.Bool("success", true),
	)
	return subscribers, nil
}

func (s *SubscriberService) StorageType() string {
	return s.repo.StorageType()
}

// DeleteSubscriber locates the subscriber by id, else phone, else email, and
// removes it together with its index entries.
func (s *SubscriberService) DeleteSubscriber(ctx context.Context, q DeleteQuery) (*models.Subscriber, error) {
	ctx, span := s.tracer.Start(ctx, "subscriber.service.delete")
	defer span.End()

	id, err := s.resolveID(ctx, q)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(attribute.String("subscriber.id", id))

	deleted, err := s.repo.Delete(ctx, id)
	if errors.Is(err, models.ErrSubscriberNotFound) {
		err = &apperrors.NotFoundError{Resource: "subscriber", Err: err}
	}
	if err != nil {
		s.logger.ErrorWithTracing(ctx, "Failed to delete subscriber", err, logrus.Fields{
			"subscriber_id": id,
		})
		span.RecordError(err)
		return nil, err
	}

	s.metrics.IncSubscriberDeleted()
	s.logger.InfoWithTracing(ctx, "Deleted subscriber", logrus.Fields{
		"subscriber_id": id,
	})

	span.SetAttributes(attribute.Bool("success", true))
	return deleted, nil
}

func (s *SubscriberService) resolveID(ctx context.Context, q DeleteQuery) (string, error) {
	id := strings.TrimSpace(q.ID)
	phone := validation.NormalizePhoneNumber(q.Phone)
	email := validation.NormalizeEmail(q.Email)

	var (
		found *models.Subscriber
		err   error
	)
	switch {
	case id != "":
		return id, nil
	case phone != "":
		found, err = s.repo.FindByPhone(ctx, phone)
	case email != "":
		found, err = s.repo.FindByEmail(ctx, email)
	default:
		return "", apperrors.Validation(MsgIdentifierReq)
	}
	if err != nil {
		return "", err
	}
	if found == nil {
		return "", &apperrors.NotFoundError{Resource: "subscriber", Err: models.ErrSubscriberNotFound}
	}
	return found.ID, nil
}
