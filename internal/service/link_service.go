package service

import (
	"context"
	"errors"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"portfolio-api/internal/apperrors"
	"portfolio-api/internal/cache"
	"portfolio-api/internal/logging"
	"portfolio-api/internal/metrics"
	"portfolio-api/internal/models"
	"portfolio-api/internal/repository"
)

const generatedSlugLength = 8

var slugPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{3,64}$`)

type LinkService struct {
	repo     repository.LinkRepository
	cache    cache.Cache
	cacheTTL time.Duration
	metrics  *metrics.Metrics
	logger   *logging.ContextLogger
	tracer   trace.Tracer
	now      func() time.Time
	newSlug  func() string
}

func NewLinkService(repo repository.LinkRepository, linkCache cache.Cache, cacheTTL time.Duration, m *metrics.Metrics, logger *logging.ContextLogger) *LinkService {
	return &LinkService{
		repo:     repo,
		cache:    linkCache,
		cacheTTL: cacheTTL,
		metrics:  m,
		logger:   logger,
		tracer:   otel.Tracer("link-service"),
		now:      func() time.Time { return time.Now().UTC() },
		newSlug:  generateSlug,
	}
}

func generateSlug() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:generatedSlugLength]
}

func (s *LinkService) Create(ctx context.Context, req *models.CreateLinkRequest) (*models.Link, error) {
	ctx, span := s.tracer.Start(ctx, "link.service.create")
	defer span.End()

	now := s.now()
	slug := strings.TrimSpace(req.Slug)
	if slug == "" {
		slug = s.newSlug()
	}
	if !slugPattern.MatchString(slug) {
		return nil, apperrors.Validation("Slug must be 3-64 letters, digits, '-' or '_'")
	}

	target := strings.TrimSpace(req.TargetURL)
	parsed, err := url.Parse(target)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return nil, apperrors.Validation("Target URL must be an absolute http or https URL")
	}
	if req.ExpiresAt != nil && !req.ExpiresAt.After(now) {
		return nil, apperrors.Validation("Expiry must be in the future")
	}

	link := &models.Link{
		Slug:      slug,
		TargetURL: target,
		CreatedAt: now,
	}
	if req.ExpiresAt != nil {
		expires := req.ExpiresAt.UTC()
		link.ExpiresAt = &expires
	}

	if err := s.repo.Create(ctx, link); err != nil {
		if errors.Is(err, models.ErrLinkExists) {
			err = &apperrors.ConflictError{Message: "Slug is already in use", Err: err}
		}
		s.logger.ErrorWithTracing(ctx, "Failed to create link", err, logrus.Fields{"slug": slug})
		span.RecordError(err)
		return nil, err
	}

	s.logger.InfoWithTracing(ctx, "Created link", logrus.Fields{
		"slug":   slug,
		"target": target,
	})
	span.SetAttributes(
		attribute.String("link.slug", slug),
		attribute.Bool("success", true),
	)
	return link, nil
}

// Resolve returns the link behind slug and counts the visit. Revoked and
// expired links are reported with models.ErrLinkRevoked and models.ErrLinkExpired.
func (s *LinkService) Resolve(ctx context.Context, slug string) (*models.Link, error) {
	ctx, span := s.tracer.Start(ctx, "link.service.resolve",
		trace.WithAttributes(attribute.String("link.slug", slug)))
	defer span.End()

	key := cache.GenerateCacheKey(slug)
	link, err := s.cache.Get(ctx, key)
	if err != nil {
		link, err = s.repo.Get(ctx, slug)
		if errors.Is(err, models.ErrLinkNotFound) {
			s.metrics.IncLinkResolution("not_found")
			return nil, &apperrors.NotFoundError{Resource: "link", Err: err}
		}
		if err != nil {
			s.logger.ErrorWithTracing(ctx, "Failed to load link", err, logrus.Fields{"slug": slug})
			span.RecordError(err)
			return nil, err
		}
		span.SetAttributes(attribute.Bool("cache.hit", false))
	} else {
		span.SetAttributes(attribute.Bool("cache.hit", true))
	}

	switch link.StatusAt(s.now()) {
	case models.LinkRevoked:
		s.metrics.IncLinkResolution("revoked")
		return nil, models.ErrLinkRevoked
	case models.LinkExpired:
		s.metrics.IncLinkResolution("expired")
		return nil, models.ErrLinkExpired
	}

	link.Clicks++
	if err := s.repo.Save(ctx, link); err != nil {
		s.logger.ErrorWithTracing(ctx, "Failed to record link click", err, logrus.Fields{"slug": slug})
		span.RecordError(err)
		return nil, err
	}
	if err := s.cache.Set(ctx, key, link, s.cacheTTL); err != nil {
		s.logger.WarnWithTracing(ctx, "Failed to cache link", logrus.Fields{
			"slug":  slug,
			"error": err.Error(),
		})
	}

	s.metrics.IncLinkResolution("redirected")
	s.logger.DebugWithTracing(ctx, "Resolved link", logrus.Fields{
		"slug":   slug,
		"clicks": link.Clicks,
	})
	span.SetAttributes(attribute.Int64("link.clicks", link.Clicks))
	return link, nil
}

// Revoke stamps the revocation time once; revoking again keeps the first stamp.
func (s *LinkService) Revoke(ctx context.Context, slug string) (*models.Link, error) {
	ctx, span := s.tracer.Start(ctx, "link.service.revoke",
		trace.WithAttributes(attribute.String("link.slug", slug)))
	defer span.End()

	link, err := s.repo.Get(ctx, slug)
	if errors.Is(err, models.ErrLinkNotFound) {
		return nil, &apperrors.NotFoundError{Resource: "link", Err: err}
	}
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	if link.RevokedAt == nil {
		now := s.now()
		link.RevokedAt = &now
		if err := s.repo.Save(ctx, link); err != nil {
			s.logger.ErrorWithTracing(ctx, "Failed to revoke link", err, logrus.Fields{"slug": slug})
			span.RecordError(err)
			return nil, err
		}
		s.logger.InfoWithTracing(ctx, "Revoked link", logrus.Fields{"slug": slug})
	}

	if err := s.cache.Delete(ctx, cache.GenerateCacheKey(slug)); err != nil && !errors.Is(err, cache.ErrCacheMiss) {
		s.logger.WarnWithTracing(ctx, "Failed to evict link from cache", logrus.Fields{"slug": slug})
	}
	return link, nil
}

func (s *LinkService) List(ctx context.Context) ([]models.LinkView, error) {
	ctx, span := s.tracer.Start(ctx, "link.service.list")
	defer span.End()

	links, err := s.repo.GetAll(ctx)
	if err != nil {
		s.logger.ErrorWithTracing(ctx, "Failed to list links", err, nil)
		span.RecordError(err)
		return nil, err
	}

	now := s.now()
	views := make([]models.LinkView, 0, len(links))
	for _, link := range links {
		views = append(views, models.LinkView{Link: link, Status: link.StatusAt(now)})
	}
	span.SetAttributes(attribute.Int("link.count", len(views)))
	return views, nil
}

func (s *LinkService) Delete(ctx context.Context, slug string) error {
	ctx, span := s.tracer.Start(ctx, "link.service.delete",
		trace.WithAttributes(attribute.String("link.slug", slug)))
	defer span.End()

	if err := s.repo.Delete(ctx, slug); err != nil {
		if errors.Is(err, models.ErrLinkNotFound) {
			return &apperrors.NotFoundError{Resource: "link", Err: err}
		}
		s.logger.ErrorWithTracing(ctx, "Failed to delete link", err, logrus.Fields{"slug": slug})
		span.RecordError(err)
		return err
	}
	if err := s.cache.Delete(ctx, cache.GenerateCacheKey(slug)); err != nil && !errors.Is(err, cache.ErrCacheMiss) {
		s.logger.WarnWithTracing(ctx, "Failed to evict link from cache", logrus.Fields{"slug": slug})
	}

	s.logger.InfoWithTracing(ctx, "Deleted link", logrus.Fields{"slug": slug})
	return nil
}
