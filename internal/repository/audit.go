package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/quickbite-kitchen/quickbite-orders-service/internal/models"
)

var _ AuditLogRepository = (*PostgresAuditLogRepository)(nil)

// PostgresAuditLogRepository persists the staff action trail.
type PostgresAuditLogRepository struct {
	db     *sql.DB
	logger *logrus.Entry
}

// NewPostgresAuditLogRepository creates a new audit log repository.
func NewPostgresAuditLogRepository(db *sql.DB, logger *logrus.Logger) *PostgresAuditLogRepository {
	return &PostgresAuditLogRepository{
		db:     db,
		logger: logger.WithField("component", "audit-repository"),
	}
}

// Append records one staff action.
func (r *PostgresAuditLogRepository) Append(ctx context.Context, entry *models.AuditLog) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	err := r.db.QueryRowContext(ctx, `
		INSERT INTO admin_logs (actor, action, target_id, detail, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, entry.Actor, entry.Action, entry.TargetID, entry.Detail, entry.CreatedAt).Scan(&entry.ID)
	if err != nil {
		r.logger.WithError(err).WithField("action", entry.Action).Error("Failed to append audit log")
		return err
	}
	return nil
}

// ListRecent returns the newest audit entries.
func (r *PostgresAuditLogRepository) ListRecent(ctx context.Context, limit int) ([]*models.AuditLog, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, actor, action, target_id, detail, created_at
		FROM admin_logs
		ORDER BY id DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]*models.AuditLog, 0, limit)
	for rows.Next() {
		var entry models.AuditLog
		var detail sql.NullString
		if err := rows.Scan(&entry.ID, &entry.Actor, &entry.Action, &entry.TargetID, &detail, &entry.CreatedAt); err != nil {
			return nil, err
		}
		if detail.Valid {
			entry.Detail = detail.String
		}
		entries = append(entries, &entry)
	}
	return entries, rows.Err()
}
