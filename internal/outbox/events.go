package outbox

import (
	"encoding/json"
	"time"

	"reconciler/internal/domain"
	"reconciler/internal/util"
)

const (
	aggregateOrder  = "order"
	aggregateRefund = "refund"
)

// ReconciliationEvent is the payload published for every reconciliation
// outcome worth telling downstream services about.
type ReconciliationEvent struct {
	Type        string             `json:"type"`
	PaymentID   string             `json:"payment_id"`
	OrderID     string             `json:"order_id,omitempty"`
	FranchiseID string             `json:"franchise_id,omitempty"`
	TotalAmount float64            `json:"total_amount,omitempty"`
	Items       []domain.OrderItem `json:"items,omitempty"`
	RefundID    string             `json:"refund_id,omitempty"`
	Reason      string             `json:"reason,omitempty"`
	Error       string             `json:"error,omitempty"`
	Timestamp   time.Time          `json:"timestamp"`
}

func NewOrderPlacedMessage(topic, orderID string, params domain.PlaceOrderParams, now time.Time) (*domain.OutboxMessage, error) {
	return newMessage(topic, aggregateOrder, orderID, ReconciliationEvent{
		Type:        domain.MessageOrderPlaced,
		PaymentID:   params.PaymentID,
		OrderID:     orderID,
		FranchiseID: params.FranchiseID,
		TotalAmount: params.Total(),
		Items:       params.Items,
		Timestamp:   now,
	}, params.PaymentID)
}

// NewRefundMessage describes a refund attempt; its type follows the refund
// status.
func NewRefundMessage(topic string, refund *domain.Refund, now time.Time) (*domain.OutboxMessage, error) {
	msgType := domain.MessageRefundInitiated
	if refund.Status == domain.RefundStatusFailed {
		msgType = domain.MessageRefundFailed
	}
	return newMessage(topic, aggregateRefund, refund.PaymentID, ReconciliationEvent{
		Type:      msgType,
		PaymentID: refund.PaymentID,
		RefundID:  refund.ProviderRefundID,
		Reason:    refund.Reason,
		Error:     refund.Error,
		Timestamp: now,
	}, refund.PaymentID)
}

func newMessage(topic, aggregateType, aggregateID string, evt ReconciliationEvent, key string) (*domain.OutboxMessage, error) {
	payload, err := json.Marshal(evt)
	if err != nil {
		return nil, err
	}
	return &domain.OutboxMessage{
		ID:            util.GenerateUUID(),
		AggregateID:   aggregateID,
		AggregateType: aggregateType,
		MessageType:   evt.Type,
		Topic:         topic,
		Key:           key,
		Payload:       payload,
		Status:        domain.OutboxStatusPending,
		CreatedAt:     evt.Timestamp,
	}, nil
}
