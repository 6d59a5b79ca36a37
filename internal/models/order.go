package models

import "time"

// OrderStatus tracks the kitchen/fulfillment workflow of an order. It is a
// separate axis from PaymentStatus, which tracks money.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusPaid      OrderStatus = "paid"
	OrderStatusPreparing OrderStatus = "preparing"
	OrderStatusReady     OrderStatus = "ready"
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// PaymentStatus tracks the gateway-side payment lifecycle.
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusSucceeded PaymentStatus = "succeeded"
	PaymentStatusFailed    PaymentStatus = "failed"
	PaymentStatusRefunded  PaymentStatus = "refunded"
)

// Order represents one customer purchase. ID is an opaque UUID; Number is the
// human-facing sequential display number.
type Order struct {
	ID            string        `json:"id"`
	Number        int64         `json:"number"`
	ProfileID     *string       `json:"profile_id,omitempty"`
	Status        OrderStatus   `json:"status"`
	PaymentStatus PaymentStatus `json:"payment_status"`
	Items         []OrderItem   `json:"items"`
	Total         Money         `json:"total"`
	GatewayRef    string        `json:"gateway_ref,omitempty"`
	PickupSecret  string        `json:"-"`
	CustomerName  string        `json:"customer_name"`
	CustomerPhone string        `json:"customer_phone"`
	CustomerEmail string        `json:"customer_email"`
	Notes         string        `json:"notes,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
	CompletedAt   *time.Time    `json:"completed_at,omitempty"`
}

// OrderItem is one product line within an order. Name and unit price are
// captured as of order time and never recalculated against the catalog.
type OrderItem struct {
	ID          string `json:"id"`
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name"`
	UnitPrice   Money  `json:"unit_price"`
	Quantity    int    `json:"quantity"`
	Total       Money  `json:"total"`
	Note        string `json:"note,omitempty"`
}

// IsTerminal reports whether no further status transition is permitted.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusCompleted || s == OrderStatusCancelled
}

// nextStatus holds the single forward transition on the happy path. Cancelled
// is reachable from any non-terminal state and is handled separately.
var nextStatus = map[OrderStatus]OrderStatus{
	OrderStatusPending:   OrderStatusPaid,
	OrderStatusPaid:      OrderStatusPreparing,
	OrderStatusPreparing: OrderStatusReady,
	OrderStatusReady:     OrderStatusCompleted,
}

// CanTransition reports whether the status change from one state to another
// is legal under the transition table.
func CanTransition(from, to OrderStatus) bool {
	if from.IsTerminal() {
		return false
	}
	if to == OrderStatusCancelled {
		return true
	}
	return nextStatus[from] == to
}

// CanCancel reports whether the order may still be cancelled.
func (o *Order) CanCancel() bool {
	return !o.Status.IsTerminal()
}

// CreateOrderRequest is the guest-checkout order submission.
type CreateOrderRequest struct {
	ProfileID     *string           `json:"profile_id,omitempty"`
	Items         []CreateOrderItem `json:"items"`
	CustomerName  string            `json:"customer_name"`
	CustomerPhone string            `json:"customer_phone"`
	CustomerEmail string            `json:"customer_email"`
	Notes         string            `json:"notes,omitempty"`
}

// CreateOrderItem references a catalog product; the service resolves the name
// and unit price from the catalog at creation time.
type CreateOrderItem struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
	Note      string `json:"note,omitempty"`
}

// OrderListFilter constrains staff order listings.
type OrderListFilter struct {
	Status *OrderStatus
	Phone  string
	Limit  int
	Offset int
}

// PickupResult is the success record returned to staff after a valid scan.
type PickupResult struct {
	OrderID     string    `json:"order_id"`
	OrderNumber int64     `json:"order_number"`
	CompletedAt time.Time `json:"completed_at"`
}
