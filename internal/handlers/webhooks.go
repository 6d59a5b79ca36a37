package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
)

// gatewaySignatureHeader carries the gateway's HMAC over the raw body.
const gatewaySignatureHeader = "X-Gateway-Signature"

// PaymentWebhook handles POST /api/v1/webhooks/payment. Signature and parse
// failures return 4xx so the gateway retries; stale or duplicate events are
// applied as no-ops and acknowledged with 200.
func (h *Handlers) PaymentWebhook(c *gin.Context) {
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read request body"})
		return
	}

	signature := c.GetHeader(gatewaySignatureHeader)

	if err := h.webhookService.ProcessWebhook(c.Request.Context(), payload, signature); err != nil {
		h.logger.WithError(err).Warn("Webhook processing failed")
		c.JSON(http.StatusBadRequest, gin.H{"error": "webhook rejected"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "received"})
}
