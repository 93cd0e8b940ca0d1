package domain

type OutcomeKind string

const (
	OutcomeIgnored         OutcomeKind = "IGNORED"
	OutcomePlaced          OutcomeKind = "PLACED"
	OutcomeAlreadyPlaced   OutcomeKind = "ALREADY_PLACED"
	OutcomePlacementFailed OutcomeKind = "PLACEMENT_FAILED"
)

// Outcome is the result of reconciling one notification.
type Outcome struct {
	Kind      OutcomeKind
	PaymentID string
	OrderID   string
	// Refund is only set when Kind is OutcomePlacementFailed.
	Refund RefundStatus
	// Err is the placement failure cause.
	Err error
}

// Acknowledged reports whether the provider should consider the delivery
// handled.
func (o Outcome) Acknowledged() bool {
	return o.Kind != OutcomePlacementFailed
}

func (o Outcome) Refunded() bool {
	return o.Refund == RefundStatusInitiated || o.Refund == RefundStatusPreviouslyIssued
}
