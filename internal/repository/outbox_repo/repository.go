package outbox_repo

import (
	"context"
	"time"

	"reconciler/internal/domain"
)

type OutboxRepository interface {
	// InTx runs fn inside one transaction. Rows read through the querier stay
	// locked until fn returns.
	InTx(ctx context.Context, fn func(querier domain.Querier) error) error
	// GetPendingMessages locks up to limit PENDING messages that are due at now.
	GetPendingMessages(ctx context.Context, querier domain.Querier, limit int, now time.Time) ([]domain.OutboxMessage, error)
	MarkMessagesAsSent(ctx context.Context, querier domain.Querier, ids []string, sentAt time.Time) error
	// ScheduleRetry keeps the message PENDING and bumps its attempt counter.
	ScheduleRetry(ctx context.Context, querier domain.Querier, id string, nextAttemptAt time.Time, lastErr string) error
}
