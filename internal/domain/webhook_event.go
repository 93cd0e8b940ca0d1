package domain

import "time"

type WebhookEventStatus string

const (
	WebhookEventReceived  WebhookEventStatus = "RECEIVED"
	WebhookEventProcessed WebhookEventStatus = "PROCESSED"
	WebhookEventIgnored   WebhookEventStatus = "IGNORED"
	WebhookEventFailed    WebhookEventStatus = "FAILED"
)

type WebhookEventSource string

const (
	SourceWebhook WebhookEventSource = "webhook"
	SourceReplay  WebhookEventSource = "replay"
)

// WebhookEvent records one delivery of a provider notification.
type WebhookEvent struct {
	ID          string
	PaymentID   string
	EventType   string
	Source      WebhookEventSource
	Payload     []byte
	Status      WebhookEventStatus
	Detail      string
	ReceivedAt  time.Time
	ProcessedAt *time.Time
}
