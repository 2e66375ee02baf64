package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/fjod/go_storefront/internal/accounts"
	accountsrepo "github.com/fjod/go_storefront/internal/accounts/repository"
	"github.com/fjod/go_storefront/internal/auth"
	"github.com/fjod/go_storefront/internal/cart"
	"github.com/fjod/go_storefront/internal/cart/cache"
	"github.com/fjod/go_storefront/internal/cart/consumer"
	cartrepo "github.com/fjod/go_storefront/internal/cart/repository"
	"github.com/fjod/go_storefront/internal/catalog"
	catalogrepo "github.com/fjod/go_storefront/internal/catalog/repository"
	"github.com/fjod/go_storefront/internal/config"
	apphttp "github.com/fjod/go_storefront/internal/http"
	"github.com/fjod/go_storefront/internal/orders"
	"github.com/fjod/go_storefront/internal/orders/feed"
	"github.com/fjod/go_storefront/internal/orders/publisher"
	ordersrepo "github.com/fjod/go_storefront/internal/orders/repository"
	"github.com/fjod/go_storefront/internal/postgres"
	"github.com/fjod/go_storefront/internal/pricing"
	"github.com/fjod/go_storefront/pkg/circuitbreaker"
	applog "github.com/fjod/go_storefront/pkg/logger"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

const serviceName = "storefront"

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := applog.New(serviceName, applog.ParseLevel(cfg.LogLevel), os.Stdout)
	slog.SetDefault(logger)

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	if err := run(cfg, logger); err != nil {
		logger.Error("storefront stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup
	healthChecks := make(map[string]apphttp.HealthCheck)

	// Catalog
	productStore, err := catalogrepo.NewRepository(cfg.CatalogDBPath)
	if err != nil {
		return fmt.Errorf("open catalog: %w", err)
	}
	defer productStore.Close()
	if err := productStore.RunMigrations(cfg.CatalogMigrations); err != nil {
		return fmt.Errorf("catalog migrations: %w", err)
	}
	catalogService := catalog.NewService(productStore, logger)
	logger.Info("catalog ready", "path", cfg.CatalogDBPath)

	// Users and orders share one Postgres pool
	db, err := postgres.Open(&cfg.Postgres)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer db.Close()
	healthChecks["postgres"] = db.PingContext

	userStore := accountsrepo.NewRepository(db)
	if err := userStore.RunMigrations(cfg.UsersMigrations); err != nil {
		return fmt.Errorf("users migrations: %w", err)
	}
	orderStore := ordersrepo.NewRepository(db)
	if err := orderStore.RunMigrations(cfg.OrdersMigrations); err != nil {
		return fmt.Errorf("orders migrations: %w", err)
	}
	logger.Info("database migrations completed")

	tokens, err := auth.NewTokens(cfg.JWTSecret, cfg.TokenTTL)
	if err != nil {
		return err
	}
	calc := pricing.NewCalculator(cfg.ShippingFee, cfg.TaxRate)
	accountService := accounts.NewService(userStore, tokens, logger, accounts.WithAdminEmails(cfg.AdminEmails))
	orderService := orders.NewService(orderStore, catalogService, accountService, calc, logger)

	// Order events: outbox -> Kafka -> websocket feed
	hub := feed.NewHub(logger, cfg.CORSOrigins...)
	var writer publisher.MessageWriter
	if len(cfg.KafkaBrokers) > 0 {
		kw := publisher.NewKafkaWriter(cfg.OrderEventsTopic, cfg.KafkaBrokers...)
		defer kw.Close()
		writer = kw
	} else {
		logger.Warn("KAFKA_BROKERS is empty, order events go to the websocket feed only")
	}
	breaker := circuitbreaker.New(circuitbreaker.DefaultConfig("kafka-order-events"), logger)
	poller := publisher.NewOutboxPoller(orderStore, writer, breaker, logger, hub.Broadcast)

	// Server-side cart
	var cartService *cart.Service
	var cartConsumer *consumer.Consumer
	if cfg.MongoURI != "" {
		mongoDB, err := cartrepo.Open(ctx, cartrepo.MongoOptions{
			URI:            cfg.MongoURI,
			Database:       cfg.MongoDatabase,
			ConnectTimeout: cfg.MongoTimeout,
			MaxPoolSize:    uint64(cfg.MongoMaxPool),
		})
		if err != nil {
			return err
		}
		defer mongoDB.Client().Disconnect(context.Background())
		healthChecks["mongo"] = func(ctx context.Context) error { return mongoDB.Client().Ping(ctx, nil) }

		cartStore := cartrepo.NewMongoRepository(mongoDB)
		if err := cartStore.CreateIndexes(ctx); err != nil {
			return fmt.Errorf("cart indexes: %w", err)
		}

		redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer redisClient.Close()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis connection failed: %w", err)
		}
		healthChecks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }

		cartService = cart.NewService(cartStore, cache.NewRedisCache(redisClient, cache.Options{TTL: cfg.CartCacheTTL, Jitter: cfg.CartCacheTTL / 3}), catalogService, orderService, calc, logger)
		if len(cfg.KafkaBrokers) > 0 {
			reader := consumer.NewKafkaReader(cfg.OrderEventsTopic, cfg.CartConsumerGroup, cfg.KafkaBrokers...)
			cartConsumer = consumer.NewConsumer(reader, cartService, logger)
		} else {
			logger.Warn("KAFKA_BROKERS is empty, carts are settled by checkout only")
		}
		logger.Info("server-side cart enabled", "mongo", cfg.MongoURI, "redis", cfg.RedisAddr)
	}

	routerCfg := apphttp.RouterConfig{
		Gate:           auth.NewGate(tokens),
		Accounts:       accountService,
		Catalog:        catalogService,
		Orders:         orderService,
		Feed:           hub,
		HealthChecks:   healthChecks,
		Logger:         logger,
		RequestTimeout: cfg.RequestTimeout,
		CORSOrigins:    cfg.CORSOrigins,
		AuthRateLimit:  cfg.AuthRateLimit,
	}
	if cartService != nil {
		routerCfg.Carts = cartService
	}

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           apphttp.NewRouter(routerCfg),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	grpcServer := grpc.NewServer(grpc.StatsHandler(otelgrpc.NewServerHandler()))
	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	reflection.Register(grpcServer)

	lis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}

	bgCtx, cancelBackground := context.WithCancel(context.Background())
	defer cancelBackground()

	wg.Add(2)
	go func() {
		defer wg.Done()
		poller.Run(bgCtx)
	}()
	go func() {
		defer wg.Done()
		hub.Run(bgCtx)
	}()
	if cartConsumer != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cartConsumer.Run(bgCtx)
		}()
	}

	serveErr := make(chan error, 2)
	go func() {
		logger.Info("grpc health listening", "port", cfg.GRPCPort)
		if err := grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			serveErr <- fmt.Errorf("grpc server: %w", err)
		}
	}()
	go func() {
		logger.Info("http api listening", "port", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- fmt.Errorf("http server: %w", err)
		}
	}()
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(serviceName, healthpb.HealthCheckResponse_SERVING)

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case runErr = <-serveErr:
		logger.Error("server failed, shutting down", "error", runErr)
	}

	// Graceful shutdown
	healthServer.Shutdown()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server forced to shutdown", "error", err)
	}
	grpcServer.GracefulStop()
	cancelBackground()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		logger.Info("background workers stopped")
	case <-shutdownCtx.Done():
		logger.Warn("background workers did not stop in time")
	}

	if cartConsumer != nil {
		cartConsumer.Close()
	}
	logger.Info("storefront stopped")
	return runErr
}
