package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/quickbite-kitchen/quickbite-orders-service/internal/middleware"
)

// PickupScan handles POST /api/v1/staff/pickup/scan. The route sits behind
// staff auth, so the capability check happens before any signature work.
func (h *Handlers) PickupScan(c *gin.Context) {
	var req struct {
		Payload string `json:"payload"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	result, err := h.pickupService.HandleScan(c.Request.Context(), req.Payload, middleware.Role(c))
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}
