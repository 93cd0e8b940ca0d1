package domain

import (
	"errors"
	"time"
)

const RefundReasonOrderFailed = "Stock Unavailable / Order Failed"

var ErrRefundNotFound = errors.New("refund not found")

type RefundStatus string

const (
	RefundStatusNone      RefundStatus = ""
	RefundStatusInitiated RefundStatus = "INITIATED"
	RefundStatusFailed    RefundStatus = "FAILED"
	// RefundStatusPreviouslyIssued only appears in an Outcome, when a
	// redelivery finds a refund already initiated for the payment.
	RefundStatusPreviouslyIssued RefundStatus = "PREVIOUSLY_ISSUED"
)

// Refund is the ledger entry of a compensating refund for one payment.
type Refund struct {
	PaymentID        string
	ProviderRefundID string
	Reason           string
	Status           RefundStatus
	Error            string
	Attempts         int
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
