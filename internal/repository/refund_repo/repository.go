package refund_repo

import (
	"context"

	"reconciler/internal/domain"
)

type RefundRepository interface {
	// GetByPaymentID returns domain.ErrRefundNotFound when no refund was attempted.
	GetByPaymentID(ctx context.Context, paymentID string) (*domain.Refund, error)
	// Save upserts the refund ledger entry, incrementing its attempt counter,
	// and stores msg in the same transaction.
	Save(ctx context.Context, refund *domain.Refund, msg *domain.OutboxMessage) error
}
