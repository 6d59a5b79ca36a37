package service

import (
	"context"
	"encoding/json"

	"github.com/sirupsen/logrus"

	"github.com/quickbite-kitchen/quickbite-orders-service/internal/apperrors"
	"github.com/quickbite-kitchen/quickbite-orders-service/internal/config"
	"github.com/quickbite-kitchen/quickbite-orders-service/internal/metrics"
	"github.com/quickbite-kitchen/quickbite-orders-service/internal/models"
	"github.com/quickbite-kitchen/quickbite-orders-service/internal/repository"
)

// Gateway event types delivered on payment lifecycle changes.
const (
	EventCheckoutCompleted = "checkout.session.completed"
	EventPaymentSucceeded  = "payment.succeeded"
	EventPaymentFailed     = "payment.failed"
	EventChargeRefunded    = "charge.refunded"
)

// GatewayEvent is the payment gateway's event envelope. The order id travels
// in session metadata and may be absent for events we did not originate.
type GatewayEvent struct {
	ID   string           `json:"id"`
	Type string           `json:"type"`
	Data GatewayEventData `json:"data"`
}

type GatewayEventData struct {
	OrderID    string `json:"order_id"`
	SessionID  string `json:"session_id,omitempty"`
	PaymentRef string `json:"payment_ref,omitempty"`
}

// WebhookVerifier checks the gateway's signature over a raw webhook body.
type WebhookVerifier interface {
	VerifyWebhookSignature(payload []byte, signature string) bool
}

// WebhookService is the boundary between the payment gateway and the order
// state machine. Every update is gated on the stored status, so repeated or
// reordered deliveries are no-ops, not errors.
type WebhookService struct {
	orderRepo  repository.OrderRepository
	orderCache repository.OrderCache
	verifier   WebhookVerifier
	publisher  EventPublisher
	config     *config.Config
	logger     *logrus.Entry
}

// NewWebhookService creates a new webhook service.
func NewWebhookService(
	orderRepo repository.OrderRepository,
	orderCache repository.OrderCache,
	verifier WebhookVerifier,
	publisher EventPublisher,
	cfg *config.Config,
	logger *logrus.Logger,
) *WebhookService {
	return &WebhookService{
		orderRepo:  orderRepo,
		orderCache: orderCache,
		verifier:   verifier,
		publisher:  publisher,
		config:     cfg,
		logger:     logger.WithField("component", "webhook-service"),
	}
}

// ProcessWebhook verifies the delivery signature before parsing the body,
// then applies the event. Signature failures perform no state change.
func (s *WebhookService) ProcessWebhook(ctx context.Context, payload []byte, signature string) error {
	if !s.verifier.VerifyWebhookSignature(payload, signature) {
		metrics.WebhookEvents.WithLabelValues("unknown", "rejected").Inc()
		s.logger.Warn("Rejected webhook with invalid signature")
		return apperrors.ErrInvalidSignature
	}

	var event GatewayEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		metrics.WebhookEvents.WithLabelValues("unknown", "rejected").Inc()
		return apperrors.NewValidationError("body", "unparsable webhook body")
	}

	return s.ApplyGatewayEvent(ctx, &event)
}

// ApplyGatewayEvent maps a gateway event onto the order state machine. It is
// shared by the HTTP webhook and the Kafka bridge consumer. Events without an
// order id and unknown event types are logged and ignored, never failed, so
// the gateway does not retry them forever.
func (s *WebhookService) ApplyGatewayEvent(ctx context.Context, event *GatewayEvent) error {
	log := s.logger.WithFields(logrus.Fields{
		"event_id":   event.ID,
		"event_type": event.Type,
	})

	if event.Data.OrderID == "" {
		metrics.WebhookEvents.WithLabelValues(event.Type, "ignored").Inc()
		log.Warn("Gateway event without order id, ignoring")
		return nil
	}

	orderID := event.Data.OrderID

	switch event.Type {
	case EventCheckoutCompleted, EventPaymentSucceeded:
		applied, err := s.orderRepo.MarkPaid(ctx, orderID, event.Data.PaymentRef)
		if err != nil {
			metrics.WebhookEvents.WithLabelValues(event.Type, "error").Inc()
			return err
		}
		if !applied {
			metrics.WebhookEvents.WithLabelValues(event.Type, "noop").Inc()
			log.WithField("order_id", orderID).Debug("Payment confirmation was a no-op")
			return nil
		}
		metrics.WebhookEvents.WithLabelValues(event.Type, "applied").Inc()
		s.invalidate(ctx, orderID)
		log.WithField("order_id", orderID).Info("Order marked paid")

		if s.config.Features.EnableOrderEvents {
			if order, err := s.orderRepo.GetByID(ctx, orderID); err == nil {
				if err := s.publisher.PublishOrderPaid(ctx, order); err != nil {
					log.WithError(err).Error("Failed to publish order paid event")
				}
			}
		}
		return nil

	case EventPaymentFailed:
		applied, err := s.orderRepo.MarkPaymentFailed(ctx, orderID)
		if err != nil {
			metrics.WebhookEvents.WithLabelValues(event.Type, "error").Inc()
			return err
		}
		metrics.WebhookEvents.WithLabelValues(event.Type, outcome(applied)).Inc()
		if applied {
			s.invalidate(ctx, orderID)
			log.WithField("order_id", orderID).Info("Payment marked failed")
		}
		return nil

	case EventChargeRefunded:
		applied, err := s.orderRepo.Cancel(ctx, orderID, models.PaymentStatusRefunded, "charge refunded")
		if err != nil {
			metrics.WebhookEvents.WithLabelValues(event.Type, "error").Inc()
			return err
		}
		metrics.WebhookEvents.WithLabelValues(event.Type, outcome(applied)).Inc()
		if !applied {
			return nil
		}
		s.invalidate(ctx, orderID)
		log.WithField("order_id", orderID).Info("Order cancelled after refund")

		if s.config.Features.EnableOrderEvents {
			if order, err := s.orderRepo.GetByID(ctx, orderID); err == nil {
				if err := s.publisher.PublishOrderCancelled(ctx, order, "charge refunded"); err != nil {
					log.WithError(err).Error("Failed to publish cancellation event")
				}
			}
		}
		return nil

	default:
		metrics.WebhookEvents.WithLabelValues(event.Type, "ignored").Inc()
		log.Debug("Ignoring unhandled gateway event type")
		return nil
	}
}

func (s *WebhookService) invalidate(ctx context.Context, orderID string) {
	if !s.config.Features.EnableOrderCaching {
		return
	}
	if err := s.orderCache.Delete(ctx, orderID); err != nil {
		s.logger.WithError(err).WithField("order_id", orderID).Warn("Failed to invalidate cache")
	}
}

func outcome(applied bool) string {
	if applied {
		return "applied"
	}
	return "noop"
}
