package httpserver

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type checkoutRequest struct {
	OrderID string `json:"orderId" binding:"required"`
}

// createCheckoutSession builds a payment-provider session for an existing
// ledger order. The request carries only the order ID; every monetary value
// is re-derived server-side.
func (h *handlers) createCheckoutSession(c *gin.Context) {
	var req checkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "orderId required"})
		return
	}
	url, err := h.deps.Checkout.BuildSession(c.Request.Context(), userID(c), req.OrderID)
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"paymentUrl": url})
}
