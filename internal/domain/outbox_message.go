package domain

import (
	"context"
	"database/sql"
	"time"
)

type OutboxMessageStatus string

const (
	OutboxStatusPending OutboxMessageStatus = "PENDING"
	OutboxStatusSent    OutboxMessageStatus = "SENT"
)

const (
	MessageOrderPlaced     = "order.placed"
	MessageRefundInitiated = "refund.initiated"
	MessageRefundFailed    = "refund.failed"
)

// OutboxMessage is a reconciliation event waiting to be published to Kafka.
type OutboxMessage struct {
	ID            string
	AggregateID   string
	AggregateType string
	MessageType   string
	Topic         string
	Key           string
	Payload       []byte
	Status        OutboxMessageStatus
	// Attempts counts failed publish attempts; the message stays PENDING
	// until it is sent.
	Attempts  int
	LastError string
	CreatedAt time.Time
	SentAt    *time.Time
}

// Querier is satisfied by both *sql.DB and *sql.Tx.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}
