package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/safar/storefront/internal/api"
	"github.com/safar/storefront/internal/cache"
	"github.com/safar/storefront/internal/checkout"
	"github.com/safar/storefront/internal/config"
	"github.com/safar/storefront/internal/database"
	"github.com/safar/storefront/internal/kafka"
	"github.com/safar/storefront/internal/logger"
	"github.com/safar/storefront/internal/orders"
	"github.com/safar/storefront/internal/store"
	"github.com/safar/storefront/internal/telemetry"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Load config: %v", err)
	}
	if cfg.Auth.JWTSecret == "" {
		log.Fatal("JWT_SECRET is required")
	}

	appLogger, err := logger.New(cfg.Logger)
	if err != nil {
		log.Fatalf("Initialize logger: %v", err)
	}
	defer appLogger.Sync()

	if !cfg.Logger.Development {
		gin.SetMode(gin.ReleaseMode)
	}

	shutdownTracing, err := telemetry.InitTracing(cfg.Tracing)
	if err != nil {
		appLogger.Fatal("Failed to initialize tracing", zap.Error(err))
	}
	defer shutdownTracing(context.Background())

	db, err := database.NewConnection(&cfg.Database)
	if err != nil {
		appLogger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()
	appLogger.Info("Connected to database")

	txOpts := database.DefaultTxOptions()
	txOpts.MaxRetries = cfg.Checkout.MaxRetries
	txOpts.OnRetry = checkout.RetryObserver(appLogger)
	pg := store.NewPostgres(db, txOpts)

	checkoutOpts := []checkout.Option{}

	if cfg.Redis.Addr != "" {
		rdb, err := cache.InitRedis(cfg.Redis, appLogger)
		if err != nil {
			appLogger.Fatal("Failed to initialize Redis", zap.Error(err))
		}
		defer rdb.Close()
		checkoutOpts = append(checkoutOpts, checkout.WithLocker(cache.NewLocker(rdb, cfg.Redis.LockTTL)))
	} else {
		appLogger.Warn("REDIS_ADDR not set, per-user checkout lock disabled")
	}

	if len(cfg.Kafka.Brokers) > 0 {
		producer, err := kafka.InitProducer(cfg.Kafka, appLogger)
		if err != nil {
			appLogger.Fatal("Failed to initialize Kafka producer", zap.Error(err))
		}
		defer producer.Close()
		checkoutOpts = append(checkoutOpts, checkout.WithPublisher(kafka.NewPublisher(producer, cfg.Kafka.Topic, appLogger)))
	} else {
		appLogger.Warn("KAFKA_BROKERS not set, order events will not be published")
	}

	checkoutSvc := checkout.NewService(checkout.NewPostgresStore(pg), appLogger, checkoutOpts...)
	ordersSvc := orders.NewService(pg, appLogger)

	router := api.NewRouter(api.RouterConfig{
		ServiceName: cfg.Tracing.ServiceName,
		JWTSecret:   []byte(cfg.Auth.JWTSecret),
		DB:          db,
		Logger:      appLogger,
		Orders:      api.NewOrderHandler(checkoutSvc, ordersSvc, appLogger),
	})

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Fatal("Server error", zap.Error(err))
		}
	}()
	appLogger.Info("Server started", zap.String("port", cfg.Server.Port))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		appLogger.Error("Server forced to shutdown", zap.Error(err))
	}

	appLogger.Info("Server exited")
}
