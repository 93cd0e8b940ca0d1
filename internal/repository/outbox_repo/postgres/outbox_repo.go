package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"reconciler/internal/domain"
)

type OutboxRepository struct {
	db *sql.DB
}

func NewOutboxRepository(db *sql.DB) *OutboxRepository {
	return &OutboxRepository{db: db}
}

func (r *OutboxRepository) InTx(ctx context.Context, fn func(querier domain.Querier) error) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin outbox transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		} else if err != nil {
			_ = tx.Rollback()
		} else if err = tx.Commit(); err != nil {
			err = fmt.Errorf("failed to commit outbox transaction: %w", err)
		}
	}()

	return fn(tx)
}

func (r *OutboxRepository) GetPendingMessages(ctx context.Context, querier domain.Querier, limit int, now time.Time) ([]domain.OutboxMessage, error) {
	query := `
		SELECT id, aggregate_id, aggregate_type, message_type, topic, key_value, payload, status,
		       attempts, last_error, created_at, sent_at
		FROM outbox_messages
		WHERE status = $1 AND (next_attempt_at IS NULL OR next_attempt_at <= $2)
		ORDER BY created_at ASC
		LIMIT $3
		FOR UPDATE SKIP LOCKED
	`
	rows, err := querier.QueryContext(ctx, query, string(domain.OutboxStatusPending), now, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get pending outbox messages: %w", err)
	}
	defer rows.Close()

	var messages []domain.OutboxMessage
	for rows.Next() {
		msg := domain.OutboxMessage{}
		var sentAt sql.NullTime
		err := rows.Scan(
			&msg.ID,
			&msg.AggregateID,
			&msg.AggregateType,
			&msg.MessageType,
			&msg.Topic,
			&msg.Key,
			&msg.Payload,
			&msg.Status,
			&msg.Attempts,
			&msg.LastError,
			&msg.CreatedAt,
			&sentAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan outbox message: %w", err)
		}
		if sentAt.Valid {
			msg.SentAt = &sentAt.Time
		}
		messages = append(messages, msg)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating outbox messages: %w", err)
	}
	return messages, nil
}

func (r *OutboxRepository) MarkMessagesAsSent(ctx context.Context, querier domain.Querier, ids []string, sentAt time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	query := `
		UPDATE outbox_messages
		SET status = $1, sent_at = $2, last_error = ''
		WHERE id = ANY($3)
	`
	res, err := querier.ExecContext(ctx, query, string(domain.OutboxStatusSent), sentAt, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("failed to mark outbox messages as sent: %w", err)
	}
	return checkAffected(res, len(ids), "sent")
}

func (r *OutboxRepository) ScheduleRetry(ctx context.Context, querier domain.Querier, id string, nextAttemptAt time.Time, lastErr string) error {
	query := `
		UPDATE outbox_messages
		SET attempts = attempts + 1, next_attempt_at = $1, last_error = $2
		WHERE id = $3 AND status = $4
	`
	res, err := querier.ExecContext(ctx, query, nextAttemptAt, lastErr, id, string(domain.OutboxStatusPending))
	if err != nil {
		return fmt.Errorf("failed to schedule retry of outbox message %s: %w", id, err)
	}
	return checkAffected(res, 1, "retried")
}

func checkAffected(res sql.Result, want int, state string) error {
	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected for outbox %s: %w", state, err)
	}
	if rowsAffected != int64(want) {
		return fmt.Errorf("not all outbox messages were marked as %s; expected %d, got %d", state, want, rowsAffected)
	}
	return nil
}
