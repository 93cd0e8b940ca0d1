package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"reconciler/internal/domain"
	kafka_infra "reconciler/internal/infrastructure/kafka"
)

func replayCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "replay <notification.json>",
		Short: "Re-drive a stored provider notification through the replay topic",
		Long: `Publishes the notification body to the replay topic. A running
"reconciler serve" consumes it and reconciles it exactly like a webhook
delivery, without signature verification.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			body, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read notification: %w", err)
			}
			notification, err := domain.ParseNotification(body)
			if err != nil {
				return err
			}
			if notification.PaymentID() == "" {
				return fmt.Errorf("%w: missing payment id", domain.ErrInvalidNotification)
			}

			producer := kafka_infra.NewProducer(cfg.GetKafkaBrokers(), cfg.KafkaReplayTopic, zap.NewNop())
			defer producer.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			if err := producer.Produce(ctx, notification.PaymentID(), cfg.KafkaReplayTopic, body); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "queued %s for payment %s on %s\n",
				notification.Event, notification.PaymentID(), cfg.KafkaReplayTopic)
			return nil
		},
	}
}
