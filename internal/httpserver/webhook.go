package httpserver

import (
	"io"
	"net/http"

	"soapstore/internal/payment"

	"github.com/gin-gonic/gin"
)

const maxWebhookBody = 1 << 20

// paymentWebhook reconciles asynchronous payment notifications. Signature or
// payload problems are client errors: the provider retries delivery with
// backoff, so rejecting is safe. Once the signature verifies, the handler
// acknowledges everything except transient downstream failures, which return
// 5xx to request a retry. Duplicate deliveries are acknowledged without
// re-applying side effects.
func (h *handlers) paymentWebhook(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable payload"})
		return
	}

	event, err := h.deps.Payments.ParseEvent(payload, c.GetHeader("Stripe-Signature"))
	if err != nil {
		h.logger.Printf("webhook: signature verification failed: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "webhook signature verification failed"})
		return
	}

	if event.Type != payment.EventCheckoutCompleted {
		c.JSON(http.StatusOK, gin.H{"received": true})
		return
	}
	if event.OrderID == "" {
		h.logger.Printf("webhook: completed session without orderId metadata")
		c.JSON(http.StatusBadRequest, gin.H{"error": "no orderId in event metadata"})
		return
	}

	if err := h.deps.OrderSvc.ReconcilePayment(c.Request.Context(), event.OrderID); err != nil {
		h.logger.Printf("webhook: reconcile order=%s error=%v", event.OrderID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "reconciliation failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"received": true})
}
