package service

import (
	"strings"

	"github.com/quickbite-kitchen/quickbite-orders-service/internal/apperrors"
	"github.com/quickbite-kitchen/quickbite-orders-service/internal/models"
)

const (
	maxNotesLength   = 500
	maxItemsPerOrder = 50
)

// ValidateCreateOrderRequest validates a guest-checkout submission. Contact
// fields are always required; the profile reference is optional.
func ValidateCreateOrderRequest(req *models.CreateOrderRequest) error {
	if strings.TrimSpace(req.CustomerName) == "" {
		return apperrors.NewValidationError("customer_name", "customer name is required")
	}
	if strings.TrimSpace(req.CustomerPhone) == "" {
		return apperrors.NewValidationError("customer_phone", "customer phone is required")
	}
	if strings.TrimSpace(req.CustomerEmail) == "" {
		return apperrors.NewValidationError("customer_email", "customer email is required")
	}
	if !strings.Contains(req.CustomerEmail, "@") {
		return apperrors.NewValidationError("customer_email", "customer email is invalid")
	}

	if len(req.Items) == 0 {
		return apperrors.NewValidationError("items", "at least one item is required")
	}
	if len(req.Items) > maxItemsPerOrder {
		return apperrors.NewValidationError("items", "too many items")
	}

	for _, item := range req.Items {
		if item.ProductID == "" {
			return apperrors.NewValidationError("items", "product ID is required for item")
		}
		if item.Quantity < 1 {
			return apperrors.NewValidationError("items", "quantity must be at least 1")
		}
	}

	if len(req.Notes) > maxNotesLength {
		return apperrors.NewValidationError("notes", "notes too long")
	}

	return nil
}

// ValidateAdvanceStatus checks that the requested target is a status staff
// may set directly. Paid and completed are reached only through the webhook
// and the pickup scan.
func ValidateAdvanceStatus(to models.OrderStatus) error {
	switch to {
	case models.OrderStatusPreparing, models.OrderStatusReady:
		return nil
	default:
		return apperrors.NewValidationError("status", "status must be preparing or ready")
	}
}

// SanitizeNotes trims and length-caps free-text notes.
func SanitizeNotes(notes string) string {
	notes = strings.TrimSpace(notes)
	if len(notes) > maxNotesLength {
		notes = notes[:maxNotesLength]
	}
	return notes
}
