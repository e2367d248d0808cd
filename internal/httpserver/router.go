package httpserver

import (
	"context"
	"log"

	"soapstore/internal/domain"
	"soapstore/internal/payment"
	"soapstore/internal/service/order"

	cartsvc "soapstore/internal/service/cart"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Deps are the services the HTTP layer dispatches to.
type Deps struct {
	Catalog  CatalogReader
	CartSvc  CartService
	OrderSvc OrderService
	Checkout CheckoutService
	Payments EventParser
}

type CatalogReader interface {
	List(ctx context.Context) ([]domain.Product, error)
	GetByID(ctx context.Context, id string) (*domain.Product, error)
}

type CartService interface {
	Get(ctx context.Context, scope cartsvc.Scope) (domain.Cart, error)
	SetLine(ctx context.Context, scope cartsvc.Scope, productID string, quantity int) (domain.Cart, error)
	RemoveLine(ctx context.Context, scope cartsvc.Scope, productID string) (domain.Cart, error)
	MergeOnLogin(ctx context.Context, userID, deviceID string) (domain.Cart, error)
}

type OrderService interface {
	CreateFromCart(ctx context.Context, userID string, in order.CreateInput) (*domain.Order, error)
	CheckPending(ctx context.Context, userID string) (order.PendingStatus, error)
	Retake(ctx context.Context, userID string) (string, error)
	Cancel(ctx context.Context, userID string) error
	ListByUser(ctx context.Context, userID string) ([]domain.Order, error)
	ReconcilePayment(ctx context.Context, orderID string) error
}

type CheckoutService interface {
	BuildSession(ctx context.Context, userID, orderID string) (string, error)
}

type EventParser interface {
	ParseEvent(payload []byte, signatureHeader string) (payment.Event, error)
}

// buildRouter wires routes for the API.
func buildRouter(logger *log.Logger, db *pgxpool.Pool, deps Deps, corsOrigins []string) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.LoggerWithWriter(logger.Writer()), gin.Recovery())

	corsCfg := cors.DefaultConfig()
	corsCfg.AllowOrigins = corsOrigins
	corsCfg.AllowHeaders = append(corsCfg.AllowHeaders, headerUserID, headerDeviceID)
	router.Use(cors.New(corsCfg))

	router.GET("/healthz", healthHandler)
	router.GET("/readyz", readyHandler(db))

	h := &handlers{deps: deps, logger: logger}

	router.GET("/products", h.listProducts)
	router.GET("/products/:id", h.getProduct)

	cart := router.Group("/cart")
	cart.Use(deviceIdentity())
	cart.GET("", h.getCart)
	cart.PUT("/items", h.setCartItem)
	cart.DELETE("/items/:productId", h.removeCartItem)
	cart.POST("/merge", requireUser(), h.mergeCart)

	orders := router.Group("/orders")
	orders.Use(requireUser())
	orders.GET("", h.listOrders)
	orders.POST("", h.createOrder)
	orders.GET("/pending", h.checkPending)
	orders.POST("/pending/retake", h.retakeOrder)
	orders.DELETE("/pending", h.cancelOrder)

	router.POST("/checkout", requireUser(), h.createCheckoutSession)
	router.POST("/webhooks/payment", h.paymentWebhook)

	return router
}
