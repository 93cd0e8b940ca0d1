package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"reconciler/internal/domain"
)

type refundRepository struct {
	db *sql.DB
}

func NewRefundRepository(db *sql.DB) *refundRepository {
	return &refundRepository{db: db}
}

func (r *refundRepository) GetByPaymentID(ctx context.Context, paymentID string) (*domain.Refund, error) {
	query := `
		SELECT payment_id, provider_refund_id, reason, status, error, attempts, created_at, updated_at
		FROM refunds
		WHERE payment_id = $1
	`
	refund := &domain.Refund{}
	err := r.db.QueryRowContext(ctx, query, paymentID).Scan(
		&refund.PaymentID,
		&refund.ProviderRefundID,
		&refund.Reason,
		&refund.Status,
		&refund.Error,
		&refund.Attempts,
		&refund.CreatedAt,
		&refund.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrRefundNotFound
		}
		return nil, fmt.Errorf("failed to get refund for payment %s: %w", paymentID, err)
	}
	return refund, nil
}

func (r *refundRepository) Save(ctx context.Context, refund *domain.Refund, msg *domain.OutboxMessage) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := r.saveTx(ctx, tx, refund, msg); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback failed after refund save error %v: %w", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit refund for payment %s: %w", refund.PaymentID, err)
	}
	return nil
}

func (r *refundRepository) saveTx(ctx context.Context, querier domain.Querier, refund *domain.Refund, msg *domain.OutboxMessage) error {
	query := `
		INSERT INTO refunds (payment_id, provider_refund_id, reason, status, error, attempts, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, 1, $6, $7)
		ON CONFLICT (payment_id) DO UPDATE
		SET provider_refund_id = EXCLUDED.provider_refund_id,
		    status = EXCLUDED.status,
		    error = EXCLUDED.error,
		    attempts = refunds.attempts + 1,
		    updated_at = EXCLUDED.updated_at
	`
	_, err := querier.ExecContext(ctx, query,
		refund.PaymentID,
		refund.ProviderRefundID,
		refund.Reason,
		string(refund.Status),
		refund.Error,
		refund.CreatedAt,
		refund.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save refund for payment %s: %w", refund.PaymentID, err)
	}

	if msg == nil {
		return nil
	}
	outboxQuery := `
		INSERT INTO outbox_messages (id, aggregate_id, aggregate_type, message_type, topic, key_value, payload, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err = querier.ExecContext(ctx, outboxQuery,
		msg.ID, msg.AggregateID, msg.AggregateType, msg.MessageType, msg.Topic, msg.Key, string(msg.Payload), string(msg.Status), msg.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create outbox message for refund %s: %w", refund.PaymentID, err)
	}
	return nil
}
