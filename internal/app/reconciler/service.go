package reconciler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"reconciler/internal/domain"
	"reconciler/internal/outbox"
	"reconciler/internal/provider"
	"reconciler/internal/repository/order_repo"
	"reconciler/internal/repository/refund_repo"
	"reconciler/internal/repository/webhook_event_repo"
	"reconciler/internal/util"
)

// ErrRefundedEarlier marks a redelivery for a payment that was already
// refunded by an earlier failed reconciliation.
var ErrRefundedEarlier = errors.New("payment was refunded after an earlier placement failure")

const defaultRefundTimeout = 15 * time.Second

// RefundClient issues refunds with the payment provider.
type RefundClient interface {
	Refund(ctx context.Context, paymentID, reason string) (provider.RefundResponse, error)
}

type Service interface {
	// HandleNotification reconciles one verified notification. Placement
	// failures are reported through the Outcome; the error is reserved for
	// invalid input and storage failures that leave the payment undecided.
	HandleNotification(ctx context.Context, n *domain.Notification, raw []byte, source domain.WebhookEventSource) (domain.Outcome, error)
	GetOrderByPaymentID(ctx context.Context, paymentID string) (*domain.Order, error)
	ListFranchiseOrders(ctx context.Context, franchiseID string, limit int) ([]*domain.Order, error)
	ListWebhookEvents(ctx context.Context, paymentID string, limit int) ([]domain.WebhookEvent, error)
}

type Options struct {
	// EventsTopic receives order.placed and refund.* outbox messages.
	EventsTopic   string
	RefundTimeout time.Duration
}

type service struct {
	orders  order_repo.OrderRepository
	events  webhook_event_repo.WebhookEventRepository
	refunds refund_repo.RefundRepository
	client  RefundClient
	opts    Options
	now     func() time.Time
	logger  *zap.Logger
}

func NewService(
	orders order_repo.OrderRepository,
	events webhook_event_repo.WebhookEventRepository,
	refunds refund_repo.RefundRepository,
	client RefundClient,
	opts Options,
	logger *zap.Logger,
) Service {
	if opts.RefundTimeout <= 0 {
		opts.RefundTimeout = defaultRefundTimeout
	}
	return &service{
		orders:  orders,
		events:  events,
		refunds: refunds,
		client:  client,
		opts:    opts,
		now:     time.Now,
		logger:  logger.With(zap.String("component", "reconciler")),
	}
}

func (s *service) HandleNotification(ctx context.Context, n *domain.Notification, raw []byte, source domain.WebhookEventSource) (domain.Outcome, error) {
	if n == nil {
		return domain.Outcome{}, domain.ErrInvalidNotification
	}
	paymentID := n.PaymentID()
	log := s.logger.With(
		zap.String("event_type", n.Event),
		zap.String("payment_id", paymentID),
		zap.String("source", string(source)),
	)

	eventID := s.recordEvent(ctx, n, raw, source, log)

	if !n.IsPaymentCaptured() {
		log.Info("Ignoring notification event")
		s.finishEvent(ctx, eventID, domain.WebhookEventIgnored, "event type not handled", log)
		return domain.Outcome{Kind: domain.OutcomeIgnored, PaymentID: paymentID}, nil
	}
	if paymentID == "" {
		log.Warn("Captured payment notification without payment id")
		s.finishEvent(ctx, eventID, domain.WebhookEventFailed, "missing payment id", log)
		return domain.Outcome{}, fmt.Errorf("%w: missing payment id", domain.ErrInvalidNotification)
	}

	existing, err := s.orders.GetByPaymentID(ctx, paymentID)
	switch {
	case err == nil:
		log.Info("Order already exists for payment", zap.String("order_id", existing.ID))
		s.finishEvent(ctx, eventID, domain.WebhookEventProcessed, "order already exists", log)
		return domain.Outcome{Kind: domain.OutcomeAlreadyPlaced, PaymentID: paymentID, OrderID: existing.ID}, nil
	case !errors.Is(err, domain.ErrOrderNotFound):
		log.Error("Failed to check for existing order", zap.Error(err))
		s.finishEvent(ctx, eventID, domain.WebhookEventFailed, err.Error(), log)
		return domain.Outcome{}, fmt.Errorf("failed to check existing order for payment %s: %w", paymentID, err)
	}

	prior, err := s.refunds.GetByPaymentID(ctx, paymentID)
	switch {
	case err == nil && prior.Status == domain.RefundStatusInitiated:
		log.Warn("Payment already refunded, not placing order", zap.String("refund_id", prior.ProviderRefundID))
		s.finishEvent(ctx, eventID, domain.WebhookEventFailed, ErrRefundedEarlier.Error(), log)
		return domain.Outcome{
			Kind:      domain.OutcomePlacementFailed,
			PaymentID: paymentID,
			Refund:    domain.RefundStatusPreviouslyIssued,
			Err:       ErrRefundedEarlier,
		}, nil
	case err != nil && !errors.Is(err, domain.ErrRefundNotFound):
		log.Error("Failed to read refund ledger", zap.Error(err))
		s.finishEvent(ctx, eventID, domain.WebhookEventFailed, err.Error(), log)
		return domain.Outcome{}, fmt.Errorf("failed to read refund ledger for payment %s: %w", paymentID, err)
	}

	params, itemsErr := domain.NewPlaceOrderParams(n)
	if itemsErr != nil {
		log.Warn("Could not parse order items, placing order without items", zap.Error(itemsErr))
	}

	orderID := util.GenerateUUID()
	msg, err := outbox.NewOrderPlacedMessage(s.opts.EventsTopic, orderID, params, s.now())
	if err != nil {
		log.Error("Failed to prepare order.placed event", zap.Error(err))
		msg = nil
	}

	placeErr := s.orders.PlaceOrder(ctx, orderID, params, msg)
	switch {
	case placeErr == nil:
		log.Info("Order placed",
			zap.String("order_id", orderID),
			zap.String("franchise_id", params.FranchiseID),
			zap.Int("items", len(params.Items)),
			zap.Float64("total", params.Total()))
		s.finishEvent(ctx, eventID, domain.WebhookEventProcessed, "order placed", log)
		return domain.Outcome{Kind: domain.OutcomePlaced, PaymentID: paymentID, OrderID: orderID}, nil
	case errors.Is(placeErr, domain.ErrOrderAlreadyExists):
		log.Info("Concurrent delivery placed the order first")
		s.finishEvent(ctx, eventID, domain.WebhookEventProcessed, "order already exists", log)
		return domain.Outcome{Kind: domain.OutcomeAlreadyPlaced, PaymentID: paymentID}, nil
	}

	log.Error("Order placement failed, refunding payment", zap.Error(placeErr))
	refundStatus := s.refund(ctx, paymentID, log)
	s.finishEvent(ctx, eventID, domain.WebhookEventFailed, placeErr.Error(), log)
	return domain.Outcome{
		Kind:      domain.OutcomePlacementFailed,
		PaymentID: paymentID,
		Refund:    refundStatus,
		Err:       placeErr,
	}, nil
}

// refund makes a single refund attempt and records it in the ledger. The
// provider call outlives a cancelled request context.
func (s *service) refund(ctx context.Context, paymentID string, log *zap.Logger) domain.RefundStatus {
	refundCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.RefundTimeout)
	defer cancel()

	now := s.now()
	ledger := &domain.Refund{
		PaymentID: paymentID,
		Reason:    domain.RefundReasonOrderFailed,
		CreatedAt: now,
		UpdatedAt: now,
	}

	resp, err := s.client.Refund(refundCtx, paymentID, domain.RefundReasonOrderFailed)
	if err != nil {
		log.Error("Refund request failed, payment captured without an order", zap.Error(err))
		ledger.Status = domain.RefundStatusFailed
		ledger.Error = err.Error()
	} else {
		if resp.ID == "" {
			log.Warn("Refund accepted without a provider refund id")
		}
		log.Info("Refund initiated", zap.String("refund_id", resp.ID), zap.String("refund_status", resp.Status))
		ledger.Status = domain.RefundStatusInitiated
		ledger.ProviderRefundID = resp.ID
	}

	msg, msgErr := outbox.NewRefundMessage(s.opts.EventsTopic, ledger, now)
	if msgErr != nil {
		log.Error("Failed to prepare refund event", zap.Error(msgErr))
		msg = nil
	}
	if saveErr := s.refunds.Save(refundCtx, ledger, msg); saveErr != nil {
		log.Error("Failed to record refund in ledger", zap.String("refund_status", string(ledger.Status)), zap.Error(saveErr))
	}
	return ledger.Status
}

// recordEvent stores the delivery in the event log. Failures are logged and
// leave reconciliation unaffected.
func (s *service) recordEvent(ctx context.Context, n *domain.Notification, raw []byte, source domain.WebhookEventSource, log *zap.Logger) string {
	evt := &domain.WebhookEvent{
		ID:         util.GenerateUUID(),
		PaymentID:  n.PaymentID(),
		EventType:  n.Event,
		Source:     source,
		Payload:    raw,
		Status:     domain.WebhookEventReceived,
		ReceivedAt: s.now(),
	}
	if err := s.events.Create(ctx, evt); err != nil {
		log.Warn("Failed to record webhook event", zap.Error(err))
		return ""
	}
	return evt.ID
}

func (s *service) finishEvent(ctx context.Context, eventID string, status domain.WebhookEventStatus, detail string, log *zap.Logger) {
	if eventID == "" {
		return
	}
	if err := s.events.UpdateStatus(context.WithoutCancel(ctx), eventID, status, detail); err != nil {
		log.Warn("Failed to update webhook event status", zap.String("event_id", eventID), zap.Error(err))
	}
}

func (s *service) GetOrderByPaymentID(ctx context.Context, paymentID string) (*domain.Order, error) {
	order, err := s.orders.GetByPaymentID(ctx, paymentID)
	if err != nil {
		if !errors.Is(err, domain.ErrOrderNotFound) {
			s.logger.Error("Failed to get order", zap.String("payment_id", paymentID), zap.Error(err))
		}
		return nil, err
	}
	return order, nil
}

func (s *service) ListFranchiseOrders(ctx context.Context, franchiseID string, limit int) ([]*domain.Order, error) {
	orders, err := s.orders.ListByFranchise(ctx, franchiseID, limit)
	if err != nil {
		s.logger.Error("Failed to list franchise orders", zap.String("franchise_id", franchiseID), zap.Error(err))
		return nil, fmt.Errorf("failed to list orders for franchise %s: %w", franchiseID, err)
	}
	return orders, nil
}

func (s *service) ListWebhookEvents(ctx context.Context, paymentID string, limit int) ([]domain.WebhookEvent, error) {
	events, err := s.events.ListByPaymentID(ctx, paymentID, limit)
	if err != nil {
		s.logger.Error("Failed to list webhook events", zap.String("payment_id", paymentID), zap.Error(err))
		return nil, fmt.Errorf("failed to list webhook events for payment %s: %w", paymentID, err)
	}
	return events, nil
}
