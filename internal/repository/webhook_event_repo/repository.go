package webhook_event_repo

import (
	"context"

	"reconciler/internal/domain"
)

type WebhookEventRepository interface {
	Create(ctx context.Context, evt *domain.WebhookEvent) error
	UpdateStatus(ctx context.Context, id string, status domain.WebhookEventStatus, detail string) error
	ListByPaymentID(ctx context.Context, paymentID string, limit int) ([]domain.WebhookEvent, error)
}
