package httpserver

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type setCartItemRequest struct {
	ProductID string `json:"productId" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required,min=1"`
}

func (h *handlers) getCart(c *gin.Context) {
	cart, err := h.deps.CartSvc.Get(c.Request.Context(), cartScope(c))
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, cart)
}

func (h *handlers) setCartItem(c *gin.Context) {
	var req setCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "productId and a positive quantity are required"})
		return
	}
	cart, err := h.deps.CartSvc.SetLine(c.Request.Context(), cartScope(c), req.ProductID, req.Quantity)
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, cart)
}

func (h *handlers) removeCartItem(c *gin.Context) {
	cart, err := h.deps.CartSvc.RemoveLine(c.Request.Context(), cartScope(c), c.Param("productId"))
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, cart)
}

// mergeCart folds the device cart into the freshly authenticated user's
// persisted cart. Called once, right after login.
func (h *handlers) mergeCart(c *gin.Context) {
	cart, err := h.deps.CartSvc.MergeOnLogin(c.Request.Context(), userID(c), c.GetString(ctxDeviceID))
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, cart)
}
