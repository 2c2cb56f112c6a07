package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/anandkp/shelfwise-backend/api/routes"
	"github.com/anandkp/shelfwise-backend/internal/checkout"
	"github.com/anandkp/shelfwise-backend/internal/coupons"
	"github.com/anandkp/shelfwise-backend/internal/identity"
	"github.com/anandkp/shelfwise-backend/internal/orders"
	"github.com/anandkp/shelfwise-backend/internal/payments"
	"github.com/anandkp/shelfwise-backend/internal/products"
	"github.com/anandkp/shelfwise-backend/internal/profiles"
	"github.com/anandkp/shelfwise-backend/pkg/config"
	"github.com/anandkp/shelfwise-backend/pkg/db"
	"github.com/anandkp/shelfwise-backend/pkg/gateway"
	"github.com/anandkp/shelfwise-backend/pkg/logger"
	"github.com/anandkp/shelfwise-backend/pkg/metrics"
	"github.com/anandkp/shelfwise-backend/pkg/migrate"
	"github.com/anandkp/shelfwise-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	gatewayClient, err := gateway.NewClient(context.Background(), cfg.Gateway, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create gateway client", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	checkoutMetrics := metrics.NewCheckoutMetrics(registry)

	// The log sender stands in for an SMS provider. Swap it out before
	// real buyers depend on OTP delivery.
	codeSender, err := identity.NewLogSender(logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create code sender", err)
		os.Exit(1)
	}
	verifications, err := identity.NewVerifications(redisClient, codeSender, cfg.OTP, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create verifications", err)
		os.Exit(1)
	}
	identityService, err := identity.NewService(identity.NewRepository(dbClient.DB()), verifications, cfg.JWT, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create identity service", err)
		os.Exit(1)
	}

	orderService, err := orders.NewService(orders.NewRepository(dbClient.DB()), dbClient, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create order service", err)
		os.Exit(1)
	}

	paymentService, err := payments.NewService(gatewayClient, orderService, logg, checkoutMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create payment service", err)
		os.Exit(1)
	}

	sessions := checkout.NewSessionStore(redisClient, cfg.Checkout.SessionTTL)
	checkoutService, err := checkout.NewService(
		sessions,
		dbClient,
		products.NewRepository(dbClient.DB()),
		coupons.NewRepository(dbClient.DB()),
		orderService,
		profiles.NewRepository(dbClient.DB()),
		paymentService,
		verifications,
		nil,
		logg,
		checkoutMetrics,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			identityService,
			checkoutService,
			orderService,
			paymentService,
			registry,
		),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
