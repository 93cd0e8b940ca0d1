package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"reconciler/internal/app/reconciler"
	"reconciler/internal/config"
	webhooks_http "reconciler/internal/handler/http/webhooks"
	kafka_handler "reconciler/internal/handler/kafka"
	"reconciler/internal/infrastructure/database"
	kafka_infra "reconciler/internal/infrastructure/kafka"
	"reconciler/internal/outbox"
	"reconciler/internal/provider"
	order_postgres "reconciler/internal/repository/order_repo/postgres"
	outbox_postgres "reconciler/internal/repository/outbox_repo/postgres"
	refund_postgres "reconciler/internal/repository/refund_repo/postgres"
	event_postgres "reconciler/internal/repository/webhook_event_repo/postgres"
	"reconciler/internal/signature"
)

func serveCmd() *cobra.Command {
	var skipMigrations bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the webhook endpoint, outbox relay and replay consumer",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if err := cfg.ValidateServe(); err != nil {
				return err
			}
			logger, err := newLogger()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()
			return runServe(cfg, skipMigrations, logger)
		},
	}
	cmd.Flags().BoolVar(&skipMigrations, "skip-migrations", false, "do not apply database migrations on startup")
	return cmd
}

func runServe(cfg *config.Config, skipMigrations bool, appLogger *zap.Logger) error {
	appLogger.Info("Reconciler service starting...")

	appLogger.Info("Waiting for database to be available...")
	db, err := database.ConnectWithRetry(cfg.DB, cfg.DBMaxRetries, cfg.DBRetryDelay, appLogger)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			appLogger.Error("Error closing database connection", zap.Error(err))
		} else {
			appLogger.Info("Database connection closed.")
		}
	}()

	if !skipMigrations {
		appLogger.Info("Running database migrations...", zap.String("source", cfg.MigrationsPath))
		if err := database.Migrate(cfg.MigrationsPath, cfg.DB, true); err != nil {
			return err
		}
		appLogger.Info("Database migrations completed.")
	}

	kafkaBrokers := cfg.GetKafkaBrokers()
	topicsCtx, cancelTopics := context.WithTimeout(context.Background(), 10*time.Second)
	err = kafka_infra.EnsureTopics(topicsCtx, kafkaBrokers, []string{cfg.KafkaEventsTopic, cfg.KafkaReplayTopic}, appLogger)
	cancelTopics()
	if err != nil {
		return fmt.Errorf("failed to ensure Kafka topics: %w", err)
	}

	orderRepository := order_postgres.NewOrderRepository(db, appLogger.With(zap.String("component", "OrderRepository")))
	eventRepository := event_postgres.NewWebhookEventRepository(db)
	refundRepository := refund_postgres.NewRefundRepository(db)
	outboxRepository := outbox_postgres.NewOutboxRepository(db)

	refundClient := provider.NewClient(cfg.ProviderBaseURL, provider.Credentials{
		KeyID:     cfg.ProviderKeyID,
		KeySecret: cfg.ProviderKeySecret,
	}, cfg.ProviderTimeout, appLogger)

	reconcilerService := reconciler.NewService(
		orderRepository,
		eventRepository,
		refundRepository,
		refundClient,
		reconciler.Options{
			EventsTopic:   cfg.KafkaEventsTopic,
			RefundTimeout: cfg.ProviderTimeout + 5*time.Second,
		},
		appLogger,
	)
	appLogger.Info("Reconciler service initialized.")

	router := webhooks_http.NewRouter(reconcilerService, signature.NewVerifier(cfg.WebhookSecret), webhooks_http.RouterOptions{
		SignatureHeader: cfg.WebhookSignatureHeader,
		MaxBodyBytes:    cfg.WebhookMaxBodyBytes,
		AllowedOrigins:  cfg.CORSAllowedOrigins,
		RequestTimeout:  cfg.HTTPRequestTimeout,
	}, appLogger)

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	kafkaProducer := kafka_infra.NewProducer(kafkaBrokers, cfg.KafkaEventsTopic, appLogger.With(zap.String("component", "KafkaProducer")))
	defer func() {
		if err := kafkaProducer.Close(); err != nil {
			appLogger.Error("Error closing Kafka producer", zap.Error(err))
		}
	}()

	outboxProcessor := outbox.NewProcessor(
		outboxRepository,
		kafkaProducer,
		cfg.KafkaEventsTopic,
		cfg.OutboxPollInterval,
		cfg.OutboxPollTimeout,
		cfg.OutboxBatchSize,
		appLogger,
	)

	ctxMain, cancelMain := context.WithCancel(context.Background())
	defer cancelMain()

	serverErr := make(chan error, 1)
	go func() {
		appLogger.Info("Starting HTTP server", zap.String("address", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	outboxProcessor.Start(ctxMain)

	var consumers sync.WaitGroup
	var replayConsumer kafka_infra.Consumer
	if !cfg.KafkaReplayDisabled {
		replayConsumer = kafka_infra.NewConsumer(
			kafkaBrokers,
			cfg.KafkaConsumerGroup,
			cfg.KafkaReplayTopic,
			appLogger.With(zap.String("component", "ReplayConsumer")),
		)
		replayHandler := kafka_handler.ReplayMessageHandler(
			reconcilerService,
			appLogger.With(zap.String("component", "ReplayHandler")),
		)
		consumers.Add(1)
		go func() {
			defer consumers.Done()
			if err := replayConsumer.Start(ctxMain, replayHandler); err != nil {
				appLogger.Error("Replay consumer stopped with error", zap.Error(err))
			}
		}()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	var runErr error
	select {
	case sig := <-sigChan:
		appLogger.Info("Shutting down application...", zap.String("signal", sig.String()))
	case runErr = <-serverErr:
		appLogger.Error("HTTP server failed", zap.Error(runErr))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("HTTP server graceful shutdown failed", zap.Error(err))
	} else {
		appLogger.Info("HTTP server gracefully shut down.")
	}

	if replayConsumer != nil {
		replayConsumer.Stop()
	}
	outboxProcessor.Stop()
	cancelMain()

	done := make(chan struct{})
	go func() {
		consumers.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-shutdownCtx.Done():
		appLogger.Warn("Replay consumer did not stop before the shutdown deadline")
	}

	appLogger.Info("Application gracefully shut down.")
	return runErr
}
