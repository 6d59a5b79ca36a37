package service

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/quickbite-kitchen/quickbite-orders-service/internal/apperrors"
	"github.com/quickbite-kitchen/quickbite-orders-service/internal/config"
	"github.com/quickbite-kitchen/quickbite-orders-service/internal/metrics"
	"github.com/quickbite-kitchen/quickbite-orders-service/internal/models"
	"github.com/quickbite-kitchen/quickbite-orders-service/internal/repository"
	"github.com/quickbite-kitchen/quickbite-orders-service/internal/token"
)

// PickupService validates scanned pickup payloads and authorizes the
// terminal completed transition. Caller authorization happens in middleware
// before this service does any cryptographic or database work.
type PickupService struct {
	orderRepo  repository.OrderRepository
	auditRepo  repository.AuditLogRepository
	orderCache repository.OrderCache
	publisher  EventPublisher
	signer     *token.Signer
	config     *config.Config
	logger     *logrus.Entry
}

// NewPickupService creates a new pickup service.
func NewPickupService(
	orderRepo repository.OrderRepository,
	auditRepo repository.AuditLogRepository,
	orderCache repository.OrderCache,
	publisher EventPublisher,
	signer *token.Signer,
	cfg *config.Config,
	logger *logrus.Logger,
) *PickupService {
	return &PickupService{
		orderRepo:  orderRepo,
		auditRepo:  auditRepo,
		orderCache: orderCache,
		publisher:  publisher,
		signer:     signer,
		config:     cfg,
		logger:     logger.WithField("component", "pickup-service"),
	}
}

// HandleScan processes a scanned payload: parse, verify the signature in
// constant time, then authorize and apply the completed transition through a
// single conditional update.
func (s *PickupService) HandleScan(ctx context.Context, payload, actor string) (*models.PickupResult, error) {
	result, err := s.handleScan(ctx, payload, actor)
	metrics.PickupScans.WithLabelValues(scanOutcome(err)).Inc()
	return result, err
}

func (s *PickupService) handleScan(ctx context.Context, payload, actor string) (*models.PickupResult, error) {
	orderID, secret, signature, err := token.Parse(payload)
	if err != nil {
		s.logger.Warn("Rejected malformed pickup payload")
		return nil, err
	}

	if err := s.signer.Verify(orderID, secret, signature); err != nil {
		s.logger.WithField("order_id", orderID).Warn("Rejected pickup payload with bad signature")
		return nil, err
	}

	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if err := pickupGuard(order); err != nil {
		return nil, err
	}

	applied, err := s.orderRepo.CompletePickup(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !applied {
		// Concurrent scan or webhook won; re-read and report the real state.
		current, err := s.orderRepo.GetByID(ctx, orderID)
		if err != nil {
			return nil, err
		}
		if err := pickupGuard(current); err != nil {
			return nil, err
		}
		return nil, apperrors.ErrInvalidTransition
	}

	completed, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if s.config.Features.EnableOrderCaching {
		if err := s.orderCache.Delete(ctx, orderID); err != nil {
			s.logger.WithError(err).WithField("order_id", orderID).Warn("Failed to invalidate cache")
		}
	}

	if err := s.auditRepo.Append(ctx, &models.AuditLog{
		Actor:    actor,
		Action:   "order.picked_up",
		TargetID: orderID,
	}); err != nil {
		s.logger.WithError(err).WithField("order_id", orderID).Warn("Failed to append audit log")
	}

	if s.config.Features.EnableOrderEvents {
		if err := s.publisher.PublishOrderCompleted(ctx, completed); err != nil {
			s.logger.WithError(err).WithField("order_id", orderID).Error("Failed to publish completion event")
		}
	}

	s.logger.WithFields(logrus.Fields{
		"order_id":     orderID,
		"order_number": completed.Number,
		"actor":        actor,
	}).Info("Order picked up")

	return &models.PickupResult{
		OrderID:     completed.ID,
		OrderNumber: completed.Number,
		CompletedAt: *completed.CompletedAt,
	}, nil
}

// pickupGuard maps the order's state to the distinct staff-facing guard
// failures. Each requires a different staff action, so they stay separate.
func pickupGuard(order *models.Order) error {
	switch {
	case order.Status == models.OrderStatusCompleted:
		return apperrors.ErrAlreadyCompleted
	case order.Status == models.OrderStatusCancelled:
		return apperrors.ErrOrderCancelled
	case order.PaymentStatus != models.PaymentStatusSucceeded:
		return apperrors.ErrPaymentNotConfirmed
	default:
		return nil
	}
}

func scanOutcome(err error) string {
	switch {
	case err == nil:
		return "completed"
	case errors.Is(err, apperrors.ErrMalformedPayload):
		return "malformed"
	case errors.Is(err, apperrors.ErrInvalidSignature):
		return "bad_signature"
	case errors.Is(err, apperrors.ErrAlreadyCompleted):
		return "already_completed"
	case errors.Is(err, apperrors.ErrOrderCancelled):
		return "cancelled"
	case errors.Is(err, apperrors.ErrPaymentNotConfirmed):
		return "payment_not_confirmed"
	case errors.Is(err, apperrors.ErrNotFound):
		return "not_found"
	default:
		return "error"
	}
}
