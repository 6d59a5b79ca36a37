package repository

import (
	"context"

	"github.com/quickbite-kitchen/quickbite-orders-service/internal/models"
)

// OrderRepository persists orders and enforces the guarded-update contract:
// every status write is conditional on the expected prior state, never a
// blind overwrite. Guarded methods report whether the write applied; a false
// result with a nil error means the guard did not match.
type OrderRepository interface {
	// Create inserts the order and its line items in one transaction and
	// fills in the assigned display number. All-or-nothing.
	Create(ctx context.Context, order *models.Order) error

	GetByID(ctx context.Context, id string) (*models.Order, error)
	GetByNumber(ctx context.Context, number int64) (*models.Order, error)
	List(ctx context.Context, filter *models.OrderListFilter) ([]*models.Order, int, error)

	// SetGatewayRef records the gateway checkout session reference.
	SetGatewayRef(ctx context.Context, id, ref string) error

	// MarkPaid moves pending → paid and payment_status → succeeded, only if
	// the order is still pending.
	MarkPaid(ctx context.Context, id, gatewayRef string) (bool, error)

	// MarkPaymentFailed sets payment_status=failed without touching status,
	// only while payment is still pending.
	MarkPaymentFailed(ctx context.Context, id string) (bool, error)

	// AdvanceStatus applies a single from → to transition.
	AdvanceStatus(ctx context.Context, id string, from, to models.OrderStatus) (bool, error)

	// Cancel moves any non-terminal order to cancelled, recording the reason
	// and the resulting payment status.
	Cancel(ctx context.Context, id string, paymentStatus models.PaymentStatus, reason string) (bool, error)

	// CompletePickup applies the terminal pickup transition: status must not
	// be terminal and payment must be confirmed.
	CompletePickup(ctx context.Context, id string) (bool, error)

	// CompletedTotalByPhone sums completed-order totals for a customer phone,
	// in minor units, for the loyalty summary.
	CompletedTotalByPhone(ctx context.Context, phone string) (totalCents int64, orders int, err error)
}

// ProductRepository reads and mutates the menu catalog.
type ProductRepository interface {
	ListMenu(ctx context.Context, category string) ([]*models.Product, error)
	GetByID(ctx context.Context, id string) (*models.Product, error)
	GetByIDs(ctx context.Context, ids []string) (map[string]*models.Product, error)
	Update(ctx context.Context, id string, req *models.UpdateProductRequest) (*models.Product, error)
}

// AuditLogRepository appends to the staff action trail.
type AuditLogRepository interface {
	Append(ctx context.Context, entry *models.AuditLog) error
	ListRecent(ctx context.Context, limit int) ([]*models.AuditLog, error)
}

// OrderCache defines caching operations for orders.
type OrderCache interface {
	Get(ctx context.Context, id string) (*models.Order, error)
	Set(ctx context.Context, order *models.Order) error
	Delete(ctx context.Context, id string) error
}
