package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"portfolio-api/internal/logging"
	"portfolio-api/internal/models"
	"portfolio-api/internal/service"
)

type LinkHandler struct {
	service *service.LinkService
	logger  *logging.ContextLogger
	tracer  trace.Tracer
}

func NewLinkHandler(service *service.LinkService, logger *logging.ContextLogger) *LinkHandler {
	return &LinkHandler{
		service: service,
		logger:  logger,
		tracer:  otel.Tracer("link-handler"),
	}
}

func (h *LinkHandler) CreateLink(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "link.handler.create")
	defer span.End()

	var req models.CreateLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		span.RecordError(err)
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": msgInvalidBody})
		return
	}

	link, err := h.service.Create(ctx, &req)
	if err != nil {
		span.RecordError(err)
		failure(c, err, "Failed to create link")
		return
	}

	span.SetAttributes(attribute.String("link.slug", link.Slug))
	c.JSON(http.StatusCreated, link)
}

func (h *LinkHandler) ListLinks(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "link.handler.list")
	defer span.End()

	links, err := h.service.List(ctx)
	if err != nil {
		span.RecordError(err)
		failure(c, err, "Failed to retrieve links")
		return
	}

	c.JSON(http.StatusOK, gin.H{"links": links})
}

func (h *LinkHandler) RevokeLink(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "link.handler.revoke")
	defer span.End()

	link, err := h.service.Revoke(ctx, c.Param("slug"))
	if err != nil {
		span.RecordError(err)
		failure(c, err, "Failed to revoke link")
		return
	}

	c.JSON(http.StatusOK, link)
}

func (h *LinkHandler) DeleteLink(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "link.handler.delete")
	defer span.End()

	slug := c.Param("slug")
	if err := h.service.Delete(ctx, slug); err != nil {
		span.RecordError(err)
		failure(c, err, "Failed to delete link")
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "slug": slug})
}

// Redirect is the public short link endpoint.
func (h *LinkHandler) Redirect(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "link.handler.redirect")
	defer span.End()

	slug := c.Param("slug")
	link, err := h.service.Resolve(ctx, slug)
	switch {
	case errors.Is(err, models.ErrLinkRevoked), errors.Is(err, models.ErrLinkExpired):
		h.logger.InfoWithTracing(ctx, "Refused inactive link", logrus.Fields{
			"slug":   slug,
			"reason": err.Error(),
		})
		c.JSON(http.StatusGone, gin.H{"error": err.Error()})
		return
	case err != nil:
		span.RecordError(err)
		failure(c, err, "Failed to resolve link")
		return
	}

	span.SetAttributes(attribute.String("link.target", link.TargetURL))
	c.Redirect(http.StatusFound, link.TargetURL)
}
