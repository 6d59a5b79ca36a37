package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/quickbite-kitchen/quickbite-orders-service/internal/middleware"
	"github.com/quickbite-kitchen/quickbite-orders-service/internal/models"
)

// ListMenu handles GET /api/v1/menu. Only available products are returned.
func (h *Handlers) ListMenu(c *gin.Context) {
	products, err := h.productRepo.ListMenu(c.Request.Context(), c.Query("category"))
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"products": products})
}

// GetProduct handles GET /api/v1/menu/:id.
func (h *Handlers) GetProduct(c *gin.Context) {
	product, err := h.productRepo.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, product)
}

// UpdateProduct handles PATCH /api/v1/admin/menu/:id. Price and availability
// changes are recorded in the audit trail.
func (h *Handlers) UpdateProduct(c *gin.Context) {
	var req models.UpdateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	product, err := h.productRepo.Update(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		handleError(c, err)
		return
	}

	entry := &models.AuditLog{
		Actor:    middleware.Role(c),
		Action:   "product.updated",
		TargetID: product.ID,
		Detail:   updateDetail(&req),
	}
	if err := h.auditRepo.Append(c.Request.Context(), entry); err != nil {
		h.logger.WithError(err).WithField("product_id", product.ID).Warn("Failed to append audit log")
	}

	c.JSON(http.StatusOK, product)
}

func updateDetail(req *models.UpdateProductRequest) string {
	detail := ""
	if req.Price != nil {
		detail += fmt.Sprintf("price=%.2f ", *req.Price)
	}
	if req.Available != nil {
		detail += fmt.Sprintf("available=%t", *req.Available)
	}
	return detail
}

// ListAuditLog handles GET /api/v1/admin/audit-log.
func (h *Handlers) ListAuditLog(c *gin.Context) {
	limit := 0
	if limitStr := c.Query("limit"); limitStr != "" {
		if n, err := strconv.Atoi(limitStr); err == nil {
			limit = n
		}
	}

	entries, err := h.auditRepo.ListRecent(c.Request.Context(), limit)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

// GetLoyalty handles GET /api/v1/loyalty. The customer phone number is the
// lookup key.
func (h *Handlers) GetLoyalty(c *gin.Context) {
	phone := c.Query("phone")
	if phone == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "phone is required"})
		return
	}

	summary, err := h.loyaltyService.Summary(c.Request.Context(), phone)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}
