package models

import "time"

// Product is one catalog entry on the menu.
type Product struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Category    string    `json:"category"`
	Price       Money     `json:"price"`
	Available   bool      `json:"available"`
	ImageURL    string    `json:"image_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// UpdateProductRequest is a staff catalog mutation. Nil fields are left
// unchanged.
type UpdateProductRequest struct {
	Price     *float64 `json:"price,omitempty"`
	Available *bool    `json:"available,omitempty"`
}

// AuditLog is one row in the staff action trail.
type AuditLog struct {
	ID        int64     `json:"id"`
	Actor     string    `json:"actor"`
	Action    string    `json:"action"`
	TargetID  string    `json:"target_id"`
	Detail    string    `json:"detail,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
