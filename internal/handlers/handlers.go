package handlers

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/quickbite-kitchen/quickbite-orders-service/internal/apperrors"
	"github.com/quickbite-kitchen/quickbite-orders-service/internal/config"
	"github.com/quickbite-kitchen/quickbite-orders-service/internal/repository"
	"github.com/quickbite-kitchen/quickbite-orders-service/internal/service"
)

// Handlers holds all HTTP handlers for the orders service.
type Handlers struct {
	orderService   *service.OrderService
	pickupService  *service.PickupService
	webhookService *service.WebhookService
	loyaltyService *service.LoyaltyService
	productRepo    repository.ProductRepository
	auditRepo      repository.AuditLogRepository
	db             *sql.DB
	config         *config.Config
	logger         *logrus.Entry
}

// NewHandlers creates a new handlers instance.
func NewHandlers(
	orderService *service.OrderService,
	pickupService *service.PickupService,
	webhookService *service.WebhookService,
	loyaltyService *service.LoyaltyService,
	productRepo repository.ProductRepository,
	auditRepo repository.AuditLogRepository,
	db *sql.DB,
	cfg *config.Config,
	logger *logrus.Logger,
) *Handlers {
	return &Handlers{
		orderService:   orderService,
		pickupService:  pickupService,
		webhookService: webhookService,
		loyaltyService: loyaltyService,
		productRepo:    productRepo,
		auditRepo:      auditRepo,
		db:             db,
		config:         cfg,
		logger:         logger.WithField("component", "handlers"),
	}
}

// handleError translates service errors to HTTP responses. Malformed and
// bad-signature pickup payloads map to one indistinct "invalid code" body;
// internal logs keep them apart.
func handleError(c *gin.Context, err error) {
	var validationErr *apperrors.ValidationError
	if errors.As(err, &validationErr) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": validationErr.Message,
			"field": validationErr.Field,
		})
		return
	}

	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, apperrors.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
	case errors.Is(err, apperrors.ErrMalformedPayload),
		errors.Is(err, apperrors.ErrInvalidSignature):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid code"})
	case errors.Is(err, apperrors.ErrAlreadyCompleted):
		c.JSON(http.StatusConflict, gin.H{"error": "order already picked up"})
	case errors.Is(err, apperrors.ErrOrderCancelled):
		c.JSON(http.StatusConflict, gin.H{"error": "order is cancelled"})
	case errors.Is(err, apperrors.ErrPaymentNotConfirmed):
		c.JSON(http.StatusConflict, gin.H{"error": "payment not confirmed"})
	case errors.Is(err, apperrors.ErrInvalidTransition):
		c.JSON(http.StatusConflict, gin.H{"error": "invalid status transition"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
