package httpserver

import (
	"net/http"

	"soapstore/internal/service/order"

	"github.com/gin-gonic/gin"
)

func (h *handlers) createOrder(c *gin.Context) {
	var req order.CreateInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	created, err := h.deps.OrderSvc.CreateFromCart(c.Request.Context(), userID(c), req)
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (h *handlers) listOrders(c *gin.Context) {
	orders, err := h.deps.OrderSvc.ListByUser(c.Request.Context(), userID(c))
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

func (h *handlers) checkPending(c *gin.Context) {
	status, err := h.deps.OrderSvc.CheckPending(c.Request.Context(), userID(c))
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

func (h *handlers) retakeOrder(c *gin.Context) {
	url, err := h.deps.OrderSvc.Retake(c.Request.Context(), userID(c))
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"paymentUrl": url})
}

func (h *handlers) cancelOrder(c *gin.Context) {
	if err := h.deps.OrderSvc.Cancel(c.Request.Context(), userID(c)); err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
