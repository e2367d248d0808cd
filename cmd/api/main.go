package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"soapstore/internal/cartcache"
	"soapstore/internal/config"
	"soapstore/internal/db"
	"soapstore/internal/httpserver"
	"soapstore/internal/payment"
	addressrepo "soapstore/internal/repository/address"
	cartrepo "soapstore/internal/repository/cart"
	orderrepo "soapstore/internal/repository/order"
	productrepo "soapstore/internal/repository/product"
	cartsvc "soapstore/internal/service/cart"
	checkoutsvc "soapstore/internal/service/checkout"
	ordersvc "soapstore/internal/service/order"

	"github.com/redis/go-redis/v9"
)

func main() {
	logger := log.New(os.Stdout, "[api] ", log.LstdFlags|log.LUTC|log.Lshortfile)

	cfg, err := config.FromEnv()
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}

	ctx := context.Background()
	dbpool, err := db.Connect(ctx, cfg.DBConnString, cfg.DBMaxConns)
	if err != nil {
		logger.Fatalf("connect to db: %v", err)
	}
	defer dbpool.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer redisClient.Close()
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	if err := redisClient.Ping(pingCtx).Err(); err != nil {
		cancel()
		logger.Fatalf("connect to redis: %v", err)
	}
	cancel()

	productRepo := productrepo.NewPostgres(dbpool, logger)
	orderRepo := orderrepo.NewPostgres(dbpool, logger)
	cartRepo := cartrepo.NewPostgres(dbpool)
	addressRepo := addressrepo.NewPostgres(dbpool)

	cartCache := cartcache.New(redisClient, cfg.DeviceCartTTL)
	cartService := cartsvc.New(cartCache, cartRepo, logger)

	stripeClient := payment.NewClient(cfg.StripeSecretKey, cfg.StripeWebhookSecret)
	checkoutService := checkoutsvc.New(orderRepo, productRepo, stripeClient, cfg.SiteBaseURL, logger)
	orderService := ordersvc.New(orderRepo, productRepo, addressRepo, cartService, checkoutService, cfg.OrderTTL, cfg.ShippingCostCents, logger)

	srv, err := httpserver.New(cfg.HTTPAddr, logger, dbpool, httpserver.Deps{
		Catalog:  productRepo,
		CartSvc:  cartService,
		OrderSvc: orderService,
		Checkout: checkoutService,
		Payments: stripeClient,
	}, cfg.CORSOrigins)
	if err != nil {
		logger.Fatalf("init server: %v", err)
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Printf("starting http server on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stopCh:
		logger.Printf("received signal %s, shutting down", sig)
	case err := <-serverErr:
		logger.Printf("server error: %v", err)
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancelShutdown()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Printf("graceful shutdown failed: %v", err)
	} else {
		logger.Printf("server stopped")
	}
}
