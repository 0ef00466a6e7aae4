package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/mve-platform/commerce-backend/pkg/config"
	"github.com/mve-platform/commerce-backend/pkg/idempotency"
	"github.com/mve-platform/commerce-backend/pkg/logging"
	"github.com/mve-platform/commerce-backend/pkg/outbox"
	"github.com/mve-platform/commerce-backend/pkg/postgres"
	"github.com/mve-platform/commerce-backend/pkg/shutdown"
	"github.com/mve-platform/commerce-backend/pkg/tracing"

	cartapp "github.com/mve-platform/commerce-backend/internal/cart/application"
	carthttp "github.com/mve-platform/commerce-backend/internal/cart/infrastructure/http"
	cartpg "github.com/mve-platform/commerce-backend/internal/cart/infrastructure/postgres"
	catalogapp "github.com/mve-platform/commerce-backend/internal/catalog/application"
	cataloghttp "github.com/mve-platform/commerce-backend/internal/catalog/infrastructure/http"
	catalogpg "github.com/mve-platform/commerce-backend/internal/catalog/infrastructure/postgres"
	"github.com/mve-platform/commerce-backend/internal/identity"
	orderapp "github.com/mve-platform/commerce-backend/internal/order/application"
	orderhttp "github.com/mve-platform/commerce-backend/internal/order/infrastructure/http"
	orderkafka "github.com/mve-platform/commerce-backend/internal/order/infrastructure/kafka"
	orderpg "github.com/mve-platform/commerce-backend/internal/order/infrastructure/postgres"
	"github.com/mve-platform/commerce-backend/internal/pricing"
	pricingpg "github.com/mve-platform/commerce-backend/internal/pricing/postgres"
)

func main() {
	log := logging.New("commerce-api")

	ctx, cancel := shutdown.WithSignals(context.Background())
	defer cancel()

	cfg := config.Load()

	tp, err := tracing.Init(ctx, "commerce-api", cfg.OTLPEndpoint, log)
	if err != nil {
		log.Error("otel init failed", "err", err)
		os.Exit(1)
	}
	defer func() { _ = tp.Shutdown(ctx) }()

	pool, err := postgres.Connect(ctx, cfg.PGURL)
	if err != nil {
		log.Error("pg connect failed", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := postgres.EnsureSchema(ctx, pool); err != nil {
		log.Error("schema apply failed", "err", err)
		os.Exit(1)
	}

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer rdb.Close()
	idemStore := idempotency.NewStore(rdb, time.Duration(cfg.IdemTTLMinutes)*time.Minute)

	writer := orderkafka.NewWriter([]string{cfg.KafkaAddr})
	defer writer.Close()

	// Outbox relay
	outboxStore := orderpg.NewOutboxStore(log, pool)
	dispatch := outbox.NewDispatcher(log, writer, cfg.OrderTopic)
	relay := outbox.NewRelay(log, outboxStore, dispatch, "commerce-api-relay")

	// Stores and services
	catalogRepo := catalogpg.NewRepository(log, pool)
	cartRepo := cartpg.NewRepository(log, pool)
	orderRepo := orderpg.NewRepository(log, pool)
	couponRepo := pricingpg.NewRepository(pool)

	catalogSvc := catalogapp.NewService(log, catalogRepo)
	cartSvc := cartapp.NewService(log, cartRepo, catalogRepo)
	orderSvc := orderapp.NewService(log, orderRepo, cartRepo, catalogRepo, pricing.Discount(couponRepo))

	auth := identity.Middleware(log, []byte(cfg.JWTSecret))
	idem := idempotency.Middleware(log, idemStore, "orders")

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Mount("/api/products", cataloghttp.NewHandler(log, catalogSvc, auth).Routes())
	r.Mount("/api/cart", carthttp.NewHandler(log, cartSvc, auth).Routes())
	r.Mount("/api/orders", orderhttp.NewHandler(log, orderSvc, auth, idem).Routes())
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		if err := relay.Run(ctx); err != nil {
			log.Error("relay stopped with error", "err", err)
		}
	}()

	go func() {
		log.Info("http listening", "addr", cfg.HTTPAddr, "env", cfg.AppEnv)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("http server error", "err", err)
			cancel()
		}
	}()

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	_ = srv.Shutdown(shutdownCtx)
	log.Info("commerce-api shutdown complete")
}
