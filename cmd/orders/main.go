package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/quickbite-kitchen/quickbite-orders-service/internal/clients"
	"github.com/quickbite-kitchen/quickbite-orders-service/internal/config"
	"github.com/quickbite-kitchen/quickbite-orders-service/internal/events"
	"github.com/quickbite-kitchen/quickbite-orders-service/internal/handlers"
	"github.com/quickbite-kitchen/quickbite-orders-service/internal/repository"
	"github.com/quickbite-kitchen/quickbite-orders-service/internal/server"
	"github.com/quickbite-kitchen/quickbite-orders-service/internal/service"
	"github.com/quickbite-kitchen/quickbite-orders-service/internal/token"

	_ "github.com/lib/pq"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}

	logger := newLogger(cfg)
	logger.WithField("port", cfg.Server.Port).Info("Starting quickbite-orders-service")

	db, err := initDatabase(cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to database")
	}
	defer db.Close()

	signer, err := token.New(cfg.Pickup.SigningKey)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize pickup token signer")
	}

	gatewayClient, err := clients.NewGatewayClient(cfg.Gateway, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize payment gateway client")
	}

	orderRepo := repository.NewPostgresOrderRepository(db, logger)
	productRepo := repository.NewPostgresProductRepository(db, logger)
	auditRepo := repository.NewPostgresAuditLogRepository(db, logger)
	orderCache := repository.NewRedisOrderCache(cfg.Redis, logger)

	notificationClient := clients.NewHTTPNotificationClient(cfg.Notification, logger)

	eventPublisher := events.NewKafkaPublisher(cfg.Kafka, logger)
	defer eventPublisher.Close()

	orderService := service.NewOrderService(
		orderRepo,
		productRepo,
		auditRepo,
		orderCache,
		gatewayClient,
		notificationClient,
		eventPublisher,
		signer,
		cfg,
		logger,
	)
	pickupService := service.NewPickupService(orderRepo, auditRepo, orderCache, eventPublisher, signer, cfg, logger)
	webhookService := service.NewWebhookService(orderRepo, orderCache, gatewayClient, eventPublisher, cfg, logger)
	loyaltyService := service.NewLoyaltyService(orderRepo, logger)

	h := handlers.NewHandlers(
		orderService,
		pickupService,
		webhookService,
		loyaltyService,
		productRepo,
		auditRepo,
		db,
		cfg,
		logger,
	)

	srv := server.NewServer(cfg, h, logger)

	go func() {
		if err := srv.Start(); err != nil {
			logger.WithError(err).Fatal("Server failed to start")
		}
	}()

	var consumer *events.KafkaConsumer
	if cfg.Features.EnablePaymentConsumer {
		consumer = events.NewKafkaConsumer(cfg.Kafka, webhookService, logger)
		go func() {
			if err := consumer.Start(context.Background()); err != nil {
				logger.WithError(err).Error("Payment event consumer failed")
			}
		}()
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if consumer != nil {
		consumer.Stop()
	}

	if err := srv.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
	}

	logger.Info("Server exited")
}

func newLogger(cfg *config.Config) *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	return logger
}

func initDatabase(cfg *config.Config, logger *logrus.Logger) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.Database.ConnectionString())
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.MaxLifetime)

	if err := db.Ping(); err != nil {
		return nil, err
	}

	logger.WithFields(logrus.Fields{
		"host": cfg.Database.Host,
		"name": cfg.Database.Name,
	}).Info("Database connected")

	return db, nil
}
