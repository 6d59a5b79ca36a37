package repository

import (
	"context"
	"database/sql"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/quickbite-kitchen/quickbite-orders-service/internal/apperrors"
	"github.com/quickbite-kitchen/quickbite-orders-service/internal/models"
)

// Ensure PostgresOrderRepository implements OrderRepository.
var _ OrderRepository = (*PostgresOrderRepository)(nil)

// PostgresOrderRepository implements OrderRepository using PostgreSQL.
type PostgresOrderRepository struct {
	db     *sql.DB
	logger *logrus.Entry
}

// NewPostgresOrderRepository creates a new PostgreSQL order repository.
func NewPostgresOrderRepository(db *sql.DB, logger *logrus.Logger) *PostgresOrderRepository {
	return &PostgresOrderRepository{
		db:     db,
		logger: logger.WithField("component", "order-repository"),
	}
}

const orderColumns = `
	id, order_number, profile_id, status, payment_status,
	total_amount, total_currency, gateway_ref, pickup_secret,
	customer_name, customer_phone, customer_email, notes,
	created_at, updated_at, completed_at
`

// Create inserts the order and its line items in a single transaction. If any
// item insert fails the whole order is rolled back.
func (r *PostgresOrderRepository) Create(ctx context.Context, order *models.Order) error {
	r.logger.WithFields(logrus.Fields{
		"order_id":   order.ID,
		"item_count": len(order.Items),
	}).Debug("Creating order")

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
		INSERT INTO orders (
			id, profile_id, status, payment_status,
			total_amount, total_currency, pickup_secret,
			customer_name, customer_phone, customer_email, notes,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING order_number
	`

	err = tx.QueryRowContext(ctx, query,
		order.ID,
		nullString(order.ProfileID),
		order.Status,
		order.PaymentStatus,
		order.Total.Amount,
		order.Total.Currency,
		order.PickupSecret,
		order.CustomerName,
		order.CustomerPhone,
		order.CustomerEmail,
		order.Notes,
		order.CreatedAt,
		order.UpdatedAt,
	).Scan(&order.Number)
	if err != nil {
		r.logger.WithError(err).Error("Failed to insert order")
		return err
	}

	itemQuery := `
		INSERT INTO order_items (
			id, order_id, product_id, product_name,
			unit_price_amount, unit_price_currency, quantity,
			total_amount, note
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	for _, item := range order.Items {
		if _, err := tx.ExecContext(ctx, itemQuery,
			item.ID,
			order.ID,
			item.ProductID,
			item.ProductName,
			item.UnitPrice.Amount,
			item.UnitPrice.Currency,
			item.Quantity,
			item.Total.Amount,
			item.Note,
		); err != nil {
			r.logger.WithError(err).WithField("order_id", order.ID).Error("Failed to insert order item, rolling back")
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	r.logger.WithFields(logrus.Fields{
		"order_id":     order.ID,
		"order_number": order.Number,
		"total":        order.Total.Amount,
	}).Info("Order created")

	return nil
}

// GetByID retrieves an order and its line items.
func (r *PostgresOrderRepository) GetByID(ctx context.Context, id string) (*models.Order, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
	return r.scanOrderWithItems(ctx, row)
}

// GetByNumber retrieves an order by its display number.
func (r *PostgresOrderRepository) GetByNumber(ctx context.Context, number int64) (*models.Order, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE order_number = $1`, number)
	return r.scanOrderWithItems(ctx, row)
}

// List retrieves orders matching the filter, newest first.
func (r *PostgresOrderRepository) List(ctx context.Context, filter *models.OrderListFilter) ([]*models.Order, int, error) {
	where := ` WHERE 1=1`
	args := make([]interface{}, 0, 4)

	if filter.Status != nil {
		args = append(args, *filter.Status)
		where += ` AND status = $` + strconv.Itoa(len(args))
	}
	if filter.Phone != "" {
		args = append(args, filter.Phone)
		where += ` AND customer_phone = $` + strconv.Itoa(len(args))
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM orders`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, filter.Limit)
	limitArg := strconv.Itoa(len(args))
	args = append(args, filter.Offset)
	offsetArg := strconv.Itoa(len(args))

	query := `SELECT ` + orderColumns + ` FROM orders` + where +
		` ORDER BY created_at DESC LIMIT $` + limitArg + ` OFFSET $` + offsetArg

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	orders := make([]*models.Order, 0)
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, 0, err
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	for _, order := range orders {
		if err := r.loadItems(ctx, order); err != nil {
			return nil, 0, err
		}
	}

	return orders, total, nil
}

// SetGatewayRef records the gateway checkout session reference on the order.
func (r *PostgresOrderRepository) SetGatewayRef(ctx context.Context, id, ref string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE orders SET gateway_ref = $2, updated_at = $3 WHERE id = $1`,
		id, ref, time.Now().UTC(),
	)
	if err != nil {
		return err
	}
	affected, _ := result.RowsAffected()
	if affected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// MarkPaid applies the pending → paid transition. A guard miss (order no
// longer pending) is reported as applied=false, not an error, so duplicate
// webhook deliveries stay no-ops.
func (r *PostgresOrderRepository) MarkPaid(ctx context.Context, id, gatewayRef string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE orders
		SET status = $2, payment_status = $3,
		    gateway_ref = COALESCE(NULLIF($4, ''), gateway_ref),
		    updated_at = $5
		WHERE id = $1 AND status = $6
	`, id, models.OrderStatusPaid, models.PaymentStatusSucceeded, gatewayRef, time.Now().UTC(), models.OrderStatusPending)
	if err != nil {
		return false, err
	}
	affected, _ := result.RowsAffected()
	return affected > 0, nil
}

// MarkPaymentFailed sets payment_status=failed, status unchanged.
func (r *PostgresOrderRepository) MarkPaymentFailed(ctx context.Context, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE orders
		SET payment_status = $2, updated_at = $3
		WHERE id = $1 AND payment_status = $4
	`, id, models.PaymentStatusFailed, time.Now().UTC(), models.PaymentStatusPending)
	if err != nil {
		return false, err
	}
	affected, _ := result.RowsAffected()
	return affected > 0, nil
}

// AdvanceStatus applies a single conditional from → to transition.
func (r *PostgresOrderRepository) AdvanceStatus(ctx context.Context, id string, from, to models.OrderStatus) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE orders
		SET status = $3, updated_at = $4
		WHERE id = $1 AND status = $2
	`, id, from, to, time.Now().UTC())
	if err != nil {
		return false, err
	}
	affected, _ := result.RowsAffected()

	r.logger.WithFields(logrus.Fields{
		"order_id": id,
		"from":     from,
		"to":       to,
		"applied":  affected > 0,
	}).Debug("Status advance")

	return affected > 0, nil
}

// Cancel moves any non-terminal order to cancelled.
func (r *PostgresOrderRepository) Cancel(ctx context.Context, id string, paymentStatus models.PaymentStatus, reason string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE orders
		SET status = $2, payment_status = $3,
		    notes = CASE WHEN $4 = '' THEN notes ELSE TRIM(notes || E'\n' || $4) END,
		    updated_at = $5
		WHERE id = $1 AND status NOT IN ($6, $7)
	`, id, models.OrderStatusCancelled, paymentStatus, reason, time.Now().UTC(),
		models.OrderStatusCompleted, models.OrderStatusCancelled)
	if err != nil {
		return false, err
	}
	affected, _ := result.RowsAffected()
	return affected > 0, nil
}

// CompletePickup applies the terminal pickup transition and stamps
// completed_at. The guard rejects terminal orders and unconfirmed payments in
// the same conditional write, so concurrent scans cannot double-complete.
func (r *PostgresOrderRepository) CompletePickup(ctx context.Context, id string) (bool, error) {
	now := time.Now().UTC()
	result, err := r.db.ExecContext(ctx, `
		UPDATE orders
		SET status = $2, completed_at = $3, updated_at = $3
		WHERE id = $1
		  AND status NOT IN ($4, $5)
		  AND payment_status = $6
	`, id, models.OrderStatusCompleted, now,
		models.OrderStatusCompleted, models.OrderStatusCancelled,
		models.PaymentStatusSucceeded)
	if err != nil {
		return false, err
	}
	affected, _ := result.RowsAffected()
	return affected > 0, nil
}

// CompletedTotalByPhone sums completed-order totals for a customer phone.
func (r *PostgresOrderRepository) CompletedTotalByPhone(ctx context.Context, phone string) (int64, int, error) {
	var totalCents int64
	var count int
	err := r.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(total_amount), 0), COUNT(*)
		FROM orders
		WHERE customer_phone = $1 AND status = $2
	`, phone, models.OrderStatusCompleted).Scan(&totalCents, &count)
	if err != nil {
		return 0, 0, err
	}
	return totalCents, count, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanOrder(row rowScanner) (*models.Order, error) {
	var order models.Order
	var profileID, gatewayRef, notes sql.NullString
	var completedAt sql.NullTime

	err := row.Scan(
		&order.ID,
		&order.Number,
		&profileID,
		&order.Status,
		&order.PaymentStatus,
		&order.Total.Amount,
		&order.Total.Currency,
		&gatewayRef,
		&order.PickupSecret,
		&order.CustomerName,
		&order.CustomerPhone,
		&order.CustomerEmail,
		&notes,
		&order.CreatedAt,
		&order.UpdatedAt,
		&completedAt,
	)
	if err == sql.ErrNoRows {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if profileID.Valid {
		order.ProfileID = &profileID.String
	}
	if gatewayRef.Valid {
		order.GatewayRef = gatewayRef.String
	}
	if notes.Valid {
		order.Notes = notes.String
	}
	if completedAt.Valid {
		order.CompletedAt = &completedAt.Time
	}

	return &order, nil
}

func (r *PostgresOrderRepository) scanOrderWithItems(ctx context.Context, row rowScanner) (*models.Order, error) {
	order, err := scanOrder(row)
	if err != nil {
		return nil, err
	}
	if err := r.loadItems(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}

func (r *PostgresOrderRepository) loadItems(ctx context.Context, order *models.Order) error {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, product_id, product_name,
		       unit_price_amount, unit_price_currency, quantity,
		       total_amount, note
		FROM order_items
		WHERE order_id = $1
		ORDER BY id
	`, order.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	order.Items = make([]models.OrderItem, 0, 4)
	for rows.Next() {
		var item models.OrderItem
		var note sql.NullString
		if err := rows.Scan(
			&item.ID,
			&item.ProductID,
			&item.ProductName,
			&item.UnitPrice.Amount,
			&item.UnitPrice.Currency,
			&item.Quantity,
			&item.Total.Amount,
			&note,
		); err != nil {
			return err
		}
		item.Total.Currency = item.UnitPrice.Currency
		if note.Valid {
			item.Note = note.String
		}
		order.Items = append(order.Items, item)
	}
	return rows.Err()
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
