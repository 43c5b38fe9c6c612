package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"portfolio-api/internal/apperrors"
	"portfolio-api/internal/logging"
	"portfolio-api/internal/models"
	"portfolio-api/internal/service"
)

const (
	msgInvalidBody     = "Invalid request body"
	msgSubscribeFailed = "Failed to process subscription. Please try again later."
	msgDeleteFailed    = "Failed to delete subscriber"
)

type SubscriberHandler struct {
	service *service.SubscriberService
	logger  *logging.ContextLogger
	tracer  trace.Tracer
}

func NewSubscriberHandler(service *service.SubscriberService, logger *logging.ContextLogger) *SubscriberHandler {
	return &SubscriberHandler{
		service: service,
		logger:  logger,
		tracer:  otel.Tracer("subscriber-handler"),
	}
}

func failure(c *gin.Context, err error, fallback string) {
	c.JSON(apperrors.StatusCode(err), gin.H{
		"success": false,
		"message": apperrors.PublicMessage(err, fallback),
	})
}

func (h *SubscriberHandler) CreateSubscriber(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "subscriber.handler.create")
	defer span.End()

	var req models.CreateSubscriberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.WarnWithTracing(ctx, "Invalid request payload", logrus.Fields{
			"error":    err.Error(),
			"endpoint": "POST /api/subscribers",
		})
		span.RecordError(err)
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": msgInvalidBody})
		return
	}

	result, err := h.service.Subscribe(ctx, &req)
	if err != nil {
		span.RecordError(err)
		span.SetAttributes(attribute.Int("http.status", apperrors.StatusCode(err)))
		failure(c, err, msgSubscribeFailed)
		return
	}

	status := http.StatusOK
	if result.IsNew() {
		status = http.StatusCreated
	}

	span.SetAttributes(
		attribute.String("subscriber.id", result.Subscriber.ID),
		attribute.Bool("subscriber.new", result.IsNew()),
		attribute.Bool("success", true),
	)

	c.JSON(status, models.SubscribeResponse{
		Message:           result.Message(),
		Success:           true,
		IsNewSubscription: result.IsNew(),
	})
}

func (h *SubscriberHandler) GetAllSubscribers(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "subscriber.handler.get_all")
	defer span.End()

	subscribers, err := h.service.GetAllSubscribers(ctx)
	if err != nil {
		span.RecordError(err)
		failure(c, err, "Failed to retrieve subscribers")
		return
	}

	byID := make(map[string]*models.Subscriber, len(subscribers))
	for _, s := range subscribers {
		byID[s.ID] = s
	}

	h.logger.InfoWithTracing(ctx, "Listed subscribers", logrus.Fields{
		"count":    len(byID),
		"endpoint": "GET /api/subscribers",
	})
	span.SetAttributes(
		attribute.Int("subscriber.count", len(byID)),
		attribute.Bool("success", true),
	)

	c.JSON(http.StatusOK, models.ListSubscribersResponse{
		Subscribers: byID,
		StorageType: h.service.StorageType(),
	})
}

func (h *SubscriberHandler) DeleteSubscriber(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "subscriber.handler.delete")
	defer span.End()

	query := service.DeleteQuery{
		ID:    c.Query("id"),
		Phone: c.Query("phone"),
		Email: c.Query("email"),
	}

	deleted, err := h.service.DeleteSubscriber(ctx, query)
	if err != nil {
		span.RecordError(err)
		failure(c, err, msgDeleteFailed)
		return
	}

	span.SetAttributes(
		attribute.String("subscriber.id", deleted.ID),
		attribute.Bool("success", true),
	)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": service.MsgDeleted,
		"id":      deleted.ID,
	})
}
