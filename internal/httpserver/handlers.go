package httpserver

import (
	"errors"
	"log"
	"net/http"

	"soapstore/internal/domain"

	"github.com/gin-gonic/gin"
)

type handlers struct {
	deps   Deps
	logger *log.Logger
}

// renderError maps domain errors to client responses. Internal failures are
// logged server-side and surfaced as a plain message, never a stack trace.
func (h *handlers) renderError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrNoPendingOrder):
		c.JSON(http.StatusNotFound, gin.H{"error": domain.ErrNoPendingOrder.Error()})
	case errors.Is(err, domain.ErrPendingOrderExists):
		c.JSON(http.StatusConflict, gin.H{"error": domain.ErrPendingOrderExists.Error()})
	case errors.Is(err, domain.ErrOutOfStock),
		errors.Is(err, domain.ErrEmptyOrder),
		errors.Is(err, domain.ErrOrderNotPending):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		h.logger.Printf("http: %s %s error=%v", c.Request.Method, c.Request.URL.Path, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
