package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"github.com/quickbite-kitchen/quickbite-orders-service/internal/apperrors"
	"github.com/quickbite-kitchen/quickbite-orders-service/internal/models"
)

var _ ProductRepository = (*PostgresProductRepository)(nil)

// PostgresProductRepository implements ProductRepository using PostgreSQL.
type PostgresProductRepository struct {
	db     *sql.DB
	logger *logrus.Entry
}

// NewPostgresProductRepository creates a new PostgreSQL product repository.
func NewPostgresProductRepository(db *sql.DB, logger *logrus.Logger) *PostgresProductRepository {
	return &PostgresProductRepository{
		db:     db,
		logger: logger.WithField("component", "product-repository"),
	}
}

const productColumns = `
	id, name, description, category, price_amount, price_currency,
	available, image_url, created_at, updated_at
`

// ListMenu returns available products, optionally filtered by category.
func (r *PostgresProductRepository) ListMenu(ctx context.Context, category string) ([]*models.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE available = TRUE`
	args := []interface{}{}
	if category != "" {
		query += ` AND category = $1`
		args = append(args, category)
	}
	query += ` ORDER BY category, name`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make([]*models.Product, 0)
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, product)
	}
	return products, rows.Err()
}

// GetByID retrieves a single product.
func (r *PostgresProductRepository) GetByID(ctx context.Context, id string) (*models.Product, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
	return scanProduct(row)
}

// GetByIDs retrieves products for the given ids, keyed by id. Missing ids are
// simply absent from the result; the caller decides whether that is an error.
func (r *PostgresProductRepository) GetByIDs(ctx context.Context, ids []string) (map[string]*models.Product, error) {
	if len(ids) == 0 {
		return map[string]*models.Product{}, nil
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = ANY($1)`,
		pq.Array(ids),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make(map[string]*models.Product, len(ids))
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products[product.ID] = product
	}
	return products, rows.Err()
}

// Update applies a staff price/availability change.
func (r *PostgresProductRepository) Update(ctx context.Context, id string, req *models.UpdateProductRequest) (*models.Product, error) {
	var priceCents sql.NullInt64
	if req.Price != nil {
		priceCents = sql.NullInt64{Int64: models.NewMoney(*req.Price, "").Amount, Valid: true}
	}
	var available sql.NullBool
	if req.Available != nil {
		available = sql.NullBool{Bool: *req.Available, Valid: true}
	}

	result, err := r.db.ExecContext(ctx, `
		UPDATE products
		SET price_amount = COALESCE($2, price_amount),
		    available = COALESCE($3, available),
		    updated_at = $4
		WHERE id = $1
	`, id, priceCents, available, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	affected, _ := result.RowsAffected()
	if affected == 0 {
		return nil, apperrors.ErrNotFound
	}

	r.logger.WithField("product_id", id).Info("Product updated")
	return r.GetByID(ctx, id)
}

func scanProduct(row rowScanner) (*models.Product, error) {
	var product models.Product
	var description, imageURL sql.NullString

	err := row.Scan(
		&product.ID,
		&product.Name,
		&description,
		&product.Category,
		&product.Price.Amount,
		&product.Price.Currency,
		&product.Available,
		&imageURL,
		&product.CreatedAt,
		&product.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if description.Valid {
		product.Description = description.String
	}
	if imageURL.Valid {
		product.ImageURL = imageURL.String
	}
	return &product, nil
}
