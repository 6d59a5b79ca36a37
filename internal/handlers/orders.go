package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/quickbite-kitchen/quickbite-orders-service/internal/middleware"
	"github.com/quickbite-kitchen/quickbite-orders-service/internal/models"
)

// CreateOrder handles POST /api/v1/orders (guest checkout).
func (h *Handlers) CreateOrder(c *gin.Context) {
	var req models.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	resp, err := h.orderService.CreateOrder(c.Request.Context(), &req)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// GetOrder handles GET /api/v1/orders/:id. The opaque order id acts as the
// capability for the customer confirmation page.
func (h *Handlers) GetOrder(c *gin.Context) {
	order, err := h.orderService.GetOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, order)
}

// GetOrderPickupPayload handles GET /api/v1/orders/:id/pickup-payload and
// returns the signed payload for QR rendering.
func (h *Handlers) GetOrderPickupPayload(c *gin.Context) {
	payload, err := h.orderService.BuildPickupPayload(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"pickup_payload": payload})
}

// ListOrders handles GET /api/v1/staff/orders.
func (h *Handlers) ListOrders(c *gin.Context) {
	filter := &models.OrderListFilter{
		Phone: c.Query("phone"),
	}

	if status := c.Query("status"); status != "" {
		s := models.OrderStatus(status)
		filter.Status = &s
	}
	if limitStr := c.Query("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil {
			filter.Limit = limit
		}
	}
	if offsetStr := c.Query("offset"); offsetStr != "" {
		if offset, err := strconv.Atoi(offsetStr); err == nil {
			filter.Offset = offset
		}
	}

	orders, total, err := h.orderService.ListOrders(c.Request.Context(), filter)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"orders": orders,
		"total":  total,
		"limit":  filter.Limit,
		"offset": filter.Offset,
	})
}

// AdvanceOrderStatus handles POST /api/v1/staff/orders/:id/status.
func (h *Handlers) AdvanceOrderStatus(c *gin.Context) {
	var req struct {
		Status models.OrderStatus `json:"status"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	order, err := h.orderService.AdvanceStatus(c.Request.Context(), c.Param("id"), req.Status, middleware.Role(c))
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, order)
}

// CancelOrder handles POST /api/v1/staff/orders/:id/cancel.
func (h *Handlers) CancelOrder(c *gin.Context) {
	var req struct {
		Reason string `json:"reason"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	order, err := h.orderService.CancelOrder(c.Request.Context(), c.Param("id"), req.Reason, middleware.Role(c))
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, order)
}
