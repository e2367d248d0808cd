package httpserver

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	cartsvc "soapstore/internal/service/cart"
)

// Session verification is an external collaborator: the edge proxy
// authenticates and forwards the caller identity in these headers.
const (
	headerUserID   = "X-User-ID"
	headerDeviceID = "X-Device-ID"
)

const (
	ctxUserID   = "userID"
	ctxDeviceID = "deviceID"
)

func requireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetHeader(headerUserID)
		if userID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}
		c.Set(ctxUserID, userID)
	}
}

// deviceIdentity issues a device ID for anonymous carts when the client has
// none yet. The ID is echoed back so the client can hold on to it.
func deviceIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		deviceID := c.GetHeader(headerDeviceID)
		if deviceID == "" {
			deviceID = uuid.NewString()
		}
		c.Header(headerDeviceID, deviceID)
		c.Set(ctxDeviceID, deviceID)
	}
}

func userID(c *gin.Context) string {
	return c.GetString(ctxUserID)
}

// cartScope prefers the authenticated user's cart, falling back to the
// device cart for anonymous requests.
func cartScope(c *gin.Context) cartsvc.Scope {
	return cartsvc.Scope{
		UserID:   c.GetHeader(headerUserID),
		DeviceID: c.GetString(ctxDeviceID),
	}
}
