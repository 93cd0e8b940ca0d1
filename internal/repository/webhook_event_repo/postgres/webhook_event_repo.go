package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"reconciler/internal/domain"
)

type WebhookEventRepository struct {
	db *sql.DB
}

func NewWebhookEventRepository(db *sql.DB) *WebhookEventRepository {
	return &WebhookEventRepository{db: db}
}

func (r *WebhookEventRepository) Create(ctx context.Context, evt *domain.WebhookEvent) error {
	query := `
		INSERT INTO webhook_events (id, payment_id, event_type, source, payload, status, detail, received_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	var payload sql.NullString
	if len(evt.Payload) > 0 {
		payload = sql.NullString{String: string(evt.Payload), Valid: true}
	}

	_, err := r.db.ExecContext(ctx, query,
		evt.ID,
		evt.PaymentID,
		evt.EventType,
		string(evt.Source),
		payload,
		string(evt.Status),
		evt.Detail,
		evt.ReceivedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert webhook event: %w", err)
	}
	return nil
}

func (r *WebhookEventRepository) UpdateStatus(ctx context.Context, id string, status domain.WebhookEventStatus, detail string) error {
	query := `
		UPDATE webhook_events
		SET status = $1, detail = $2, processed_at = $3
		WHERE id = $4
	`
	res, err := r.db.ExecContext(ctx, query, string(status), detail, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update webhook event status %s: %w", id, err)
	}
	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected for webhook event update: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("webhook event with id %s not found for status update", id)
	}
	return nil
}

func (r *WebhookEventRepository) ListByPaymentID(ctx context.Context, paymentID string, limit int) ([]domain.WebhookEvent, error) {
	query := `
		SELECT id, payment_id, event_type, source, payload, status, detail, received_at, processed_at
		FROM webhook_events
		WHERE payment_id = $1
		ORDER BY received_at DESC
		LIMIT $2
	`
	rows, err := r.db.QueryContext(ctx, query, paymentID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get webhook events for payment %s: %w", paymentID, err)
	}
	defer rows.Close()

	var events []domain.WebhookEvent
	for rows.Next() {
		var evt domain.WebhookEvent
		var payload []byte
		var processedAt sql.NullTime
		err := rows.Scan(
			&evt.ID,
			&evt.PaymentID,
			&evt.EventType,
			&evt.Source,
			&payload,
			&evt.Status,
			&evt.Detail,
			&evt.ReceivedAt,
			&processedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan webhook event: %w", err)
		}
		evt.Payload = payload
		if processedAt.Valid {
			evt.ProcessedAt = &processedAt.Time
		}
		events = append(events, evt)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating webhook events: %w", err)
	}
	return events, nil
}
