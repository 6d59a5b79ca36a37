package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/quickbite-kitchen/quickbite-orders-service/internal/apperrors"
	"github.com/quickbite-kitchen/quickbite-orders-service/internal/clients"
	"github.com/quickbite-kitchen/quickbite-orders-service/internal/config"
	"github.com/quickbite-kitchen/quickbite-orders-service/internal/metrics"
	"github.com/quickbite-kitchen/quickbite-orders-service/internal/models"
	"github.com/quickbite-kitchen/quickbite-orders-service/internal/repository"
	"github.com/quickbite-kitchen/quickbite-orders-service/internal/token"
)

// EventPublisher publishes order lifecycle events.
type EventPublisher interface {
	PublishOrderCreated(ctx context.Context, order *models.Order) error
	PublishOrderPaid(ctx context.Context, order *models.Order) error
	PublishOrderStatusChanged(ctx context.Context, order *models.Order, previous models.OrderStatus) error
	PublishOrderCancelled(ctx context.Context, order *models.Order, reason string) error
	PublishOrderCompleted(ctx context.Context, order *models.Order) error
}

// CheckoutCreator creates hosted payment sessions.
type CheckoutCreator interface {
	CreateCheckoutSession(ctx context.Context, order *models.Order) (*clients.CheckoutSession, error)
}

// CreateOrderResponse is returned to the customer after checkout submission.
// CheckoutURL is empty when the payment session could not be created; the
// order still exists and payment can be retried.
type CreateOrderResponse struct {
	Order         *models.Order `json:"order"`
	CheckoutURL   string        `json:"checkout_url,omitempty"`
	PickupPayload string        `json:"pickup_payload"`
}

// OrderService handles order business logic.
type OrderService struct {
	orderRepo   repository.OrderRepository
	productRepo repository.ProductRepository
	auditRepo   repository.AuditLogRepository
	orderCache  repository.OrderCache
	checkout    CheckoutCreator
	notifier    clients.NotificationSender
	publisher   EventPublisher
	signer      *token.Signer
	config      *config.Config
	logger      *logrus.Entry
}

// NewOrderService creates a new order service.
func NewOrderService(
	orderRepo repository.OrderRepository,
	productRepo repository.ProductRepository,
	auditRepo repository.AuditLogRepository,
	orderCache repository.OrderCache,
	checkout CheckoutCreator,
	notifier clients.NotificationSender,
	publisher EventPublisher,
	signer *token.Signer,
	cfg *config.Config,
	logger *logrus.Logger,
) *OrderService {
	return &OrderService{
		orderRepo:   orderRepo,
		productRepo: productRepo,
		auditRepo:   auditRepo,
		orderCache:  orderCache,
		checkout:    checkout,
		notifier:    notifier,
		publisher:   publisher,
		signer:      signer,
		config:      cfg,
		logger:      logger.WithField("component", "order-service"),
	}
}

// CreateOrder creates a new order from a cart. Line items snapshot the
// catalog name and unit price at creation time; the total is the sum of line
// totals and is never recalculated afterwards.
func (s *OrderService) CreateOrder(ctx context.Context, req *models.CreateOrderRequest) (*CreateOrderResponse, error) {
	if err := ValidateCreateOrderRequest(req); err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(req.Items))
	for _, item := range req.Items {
		ids = append(ids, item.ProductID)
	}

	products, err := s.productRepo.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	items := make([]models.OrderItem, 0, len(req.Items))
	var total models.Money
	for _, reqItem := range req.Items {
		product, ok := products[reqItem.ProductID]
		if !ok {
			return nil, apperrors.NewValidationError("items", "unknown product: "+reqItem.ProductID)
		}
		if !product.Available {
			return nil, apperrors.NewValidationError("items", "product unavailable: "+product.Name)
		}

		item := models.OrderItem{
			ID:          uuid.NewString(),
			ProductID:   product.ID,
			ProductName: product.Name,
			UnitPrice:   product.Price,
			Quantity:    reqItem.Quantity,
			Total:       product.Price.Mul(reqItem.Quantity),
			Note:        SanitizeNotes(reqItem.Note),
		}
		items = append(items, item)

		if total.Currency == "" {
			total.Currency = item.Total.Currency
		}
		total = total.Add(item.Total)
	}

	secret, err := token.GenerateSecret()
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	order := &models.Order{
		ID:            uuid.NewString(),
		ProfileID:     req.ProfileID,
		Status:        models.OrderStatusPending,
		PaymentStatus: models.PaymentStatusPending,
		Items:         items,
		Total:         total,
		PickupSecret:  secret,
		CustomerName:  req.CustomerName,
		CustomerPhone: req.CustomerPhone,
		CustomerEmail: req.CustomerEmail,
		Notes:         SanitizeNotes(req.Notes),
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.orderRepo.Create(ctx, order); err != nil {
		s.logger.WithError(err).Error("Failed to create order")
		return nil, err
	}
	metrics.OrdersCreated.Inc()

	resp := &CreateOrderResponse{
		Order:         order,
		PickupPayload: s.signer.BuildPayload(order.ID, secret),
	}

	session, err := s.checkout.CreateCheckoutSession(ctx, order)
	if err != nil {
		// The order stands; the customer retries payment from the order page.
		s.logger.WithError(err).WithField("order_id", order.ID).Error("Failed to create checkout session")
	} else {
		resp.CheckoutURL = session.URL
		if err := s.orderRepo.SetGatewayRef(ctx, order.ID, session.ID); err != nil {
			s.logger.WithError(err).WithField("order_id", order.ID).Error("Failed to store gateway ref")
		} else {
			order.GatewayRef = session.ID
		}
	}

	if s.config.Features.EnableOrderCaching {
		if err := s.orderCache.Set(ctx, order); err != nil {
			s.logger.WithError(err).WithField("order_id", order.ID).Warn("Failed to cache order")
		}
	}

	if s.config.Features.EnableOrderEvents {
		if err := s.publisher.PublishOrderCreated(ctx, order); err != nil {
			s.logger.WithError(err).WithField("order_id", order.ID).Error("Failed to publish order created event")
		}
	}

	if s.config.Features.EnableNotifications {
		go func(o models.Order) {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := s.notifier.SendOrderConfirmation(ctx, &o); err != nil {
				s.logger.WithError(err).WithField("order_id", o.ID).Warn("Failed to send order confirmation")
			}
		}(*order)
	}

	s.logger.WithFields(logrus.Fields{
		"order_id":     order.ID,
		"order_number": order.Number,
		"total":        order.Total.Amount,
	}).Info("Order created")

	return resp, nil
}

// GetOrder retrieves an order by ID, consulting the cache first.
func (s *OrderService) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	if s.config.Features.EnableOrderCaching {
		if order, err := s.orderCache.Get(ctx, id); err == nil && order != nil {
			return order, nil
		}
	}

	order, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if s.config.Features.EnableOrderCaching {
		if err := s.orderCache.Set(ctx, order); err != nil {
			s.logger.WithError(err).WithField("order_id", id).Warn("Failed to cache order")
		}
	}

	return order, nil
}

// GetOrderByNumber retrieves an order by its display number.
func (s *OrderService) GetOrderByNumber(ctx context.Context, number int64) (*models.Order, error) {
	return s.orderRepo.GetByNumber(ctx, number)
}

// BuildPickupPayload rebuilds the signed pickup payload for an order, for the
// confirmation page to re-render the QR code. Knowledge of the opaque order
// id is the capability here.
func (s *OrderService) BuildPickupPayload(ctx context.Context, id string) (string, error) {
	order, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	if order.Status == models.OrderStatusCancelled {
		return "", apperrors.ErrOrderCancelled
	}
	return s.signer.BuildPayload(order.ID, order.PickupSecret), nil
}

// ListOrders retrieves orders for the staff dashboard.
func (s *OrderService) ListOrders(ctx context.Context, filter *models.OrderListFilter) ([]*models.Order, int, error) {
	if filter.Limit <= 0 {
		filter.Limit = 20
	}
	if filter.Limit > 100 {
		filter.Limit = 100
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	return s.orderRepo.List(ctx, filter)
}

// AdvanceStatus applies a staff workflow transition (paid → preparing,
// preparing → ready). An illegal transition is rejected as a guard failure,
// never silently accepted.
func (s *OrderService) AdvanceStatus(ctx context.Context, id string, to models.OrderStatus, actor string) (*models.Order, error) {
	if err := ValidateAdvanceStatus(to); err != nil {
		return nil, err
	}

	order, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if !models.CanTransition(order.Status, to) {
		return nil, s.transitionError(order.Status)
	}

	previous := order.Status
	applied, err := s.orderRepo.AdvanceStatus(ctx, id, previous, to)
	if err != nil {
		return nil, err
	}
	if !applied {
		// Lost a race; re-read and report the real prior state.
		current, err := s.orderRepo.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		return nil, s.transitionError(current.Status)
	}

	order.Status = to
	s.afterStaffMutation(ctx, order, actor, "order.status_advanced", string(previous)+" -> "+string(to))

	if s.config.Features.EnableOrderEvents {
		if err := s.publisher.PublishOrderStatusChanged(ctx, order, previous); err != nil {
			s.logger.WithError(err).WithField("order_id", id).Error("Failed to publish status change event")
		}
	}

	if to == models.OrderStatusReady && s.config.Features.EnableNotifications {
		go func(o models.Order) {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := s.notifier.SendOrderReady(ctx, &o); err != nil {
				s.logger.WithError(err).WithField("order_id", o.ID).Warn("Failed to send ready notification")
			}
		}(*order)
	}

	return order, nil
}

// CancelOrder cancels a non-terminal order on staff request. The payment
// status is left as-is; refunds arrive through the gateway's charge-refunded
// event.
func (s *OrderService) CancelOrder(ctx context.Context, id, reason, actor string) (*models.Order, error) {
	if reason == "" {
		return nil, apperrors.NewValidationError("reason", "cancellation reason is required")
	}

	order, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !order.CanCancel() {
		return nil, s.transitionError(order.Status)
	}

	applied, err := s.orderRepo.Cancel(ctx, id, order.PaymentStatus, "cancelled: "+reason)
	if err != nil {
		return nil, err
	}
	if !applied {
		current, err := s.orderRepo.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		return nil, s.transitionError(current.Status)
	}

	previous := order.Status
	order.Status = models.OrderStatusCancelled
	s.afterStaffMutation(ctx, order, actor, "order.cancelled", reason)

	if s.config.Features.EnableOrderEvents {
		if err := s.publisher.PublishOrderCancelled(ctx, order, reason); err != nil {
			s.logger.WithError(err).WithField("order_id", id).Error("Failed to publish cancellation event")
		}
	}

	s.logger.WithFields(logrus.Fields{
		"order_id": id,
		"previous": previous,
		"reason":   reason,
	}).Info("Order cancelled")

	return order, nil
}

func (s *OrderService) transitionError(current models.OrderStatus) error {
	switch current {
	case models.OrderStatusCompleted:
		return apperrors.ErrAlreadyCompleted
	case models.OrderStatusCancelled:
		return apperrors.ErrOrderCancelled
	default:
		return apperrors.ErrInvalidTransition
	}
}

func (s *OrderService) afterStaffMutation(ctx context.Context, order *models.Order, actor, action, detail string) {
	if s.config.Features.EnableOrderCaching {
		if err := s.orderCache.Delete(ctx, order.ID); err != nil {
			s.logger.WithError(err).WithField("order_id", order.ID).Warn("Failed to invalidate cache")
		}
	}

	if err := s.auditRepo.Append(ctx, &models.AuditLog{
		Actor:    actor,
		Action:   action,
		TargetID: order.ID,
		Detail:   detail,
	}); err != nil {
		s.logger.WithError(err).WithField("order_id", order.ID).Warn("Failed to append audit log")
	}
}
