package kafka

import (
	"context"
	"errors"
	"fmt"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"reconciler/internal/app/reconciler"
	"reconciler/internal/domain"
	kafka_infra "reconciler/internal/infrastructure/kafka"
)

// ReplayMessageHandler reconciles notifications re-driven through the internal
// replay topic. The topic is trusted, so no signature is checked.
func ReplayMessageHandler(service reconciler.Service, logger *zap.Logger) kafka_infra.MessageHandler {
	return func(ctx context.Context, msg kafka.Message) error {
		notification, err := domain.ParseNotification(msg.Value)
		if err != nil {
			logger.Error("Dropping malformed replay message",
				zap.Error(err),
				zap.ByteString("value", msg.Value),
				zap.Int("partition", msg.Partition),
				zap.Int64("offset", msg.Offset),
			)
			return nil
		}

		outcome, err := service.HandleNotification(ctx, notification, msg.Value, domain.SourceReplay)
		if err != nil {
			if errors.Is(err, domain.ErrInvalidNotification) {
				logger.Error("Dropping invalid replay notification", zap.Int64("offset", msg.Offset), zap.Error(err))
				return nil
			}
			return fmt.Errorf("failed to reconcile replayed payment %s: %w", notification.PaymentID(), err)
		}

		logger.Info("Replayed notification reconciled",
			zap.String("payment_id", outcome.PaymentID),
			zap.String("outcome", string(outcome.Kind)),
			zap.String("refund_status", string(outcome.Refund)),
		)
		return nil
	}
}
