package reconciler

import (
	"context"
	"sync"

	"reconciler/internal/domain"
	"reconciler/internal/provider"
)

type fakeOrderRepo struct {
	GetByPaymentIDFunc  func(ctx context.Context, paymentID string) (*domain.Order, error)
	PlaceOrderFunc      func(ctx context.Context, orderID string, params domain.PlaceOrderParams, msg *domain.OutboxMessage) error
	ListByFranchiseFunc func(ctx context.Context, franchiseID string, limit int) ([]*domain.Order, error)

	mu     sync.Mutex
	placed []domain.PlaceOrderParams
	msgs   []*domain.OutboxMessage
}

func (f *fakeOrderRepo) GetByPaymentID(ctx context.Context, paymentID string) (*domain.Order, error) {
	if f.GetByPaymentIDFunc != nil {
		return f.GetByPaymentIDFunc(ctx, paymentID)
	}
	return nil, domain.ErrOrderNotFound
}

func (f *fakeOrderRepo) PlaceOrder(ctx context.Context, orderID string, params domain.PlaceOrderParams, msg *domain.OutboxMessage) error {
	f.mu.Lock()
	f.placed = append(f.placed, params)
	f.msgs = append(f.msgs, msg)
	f.mu.Unlock()
	if f.PlaceOrderFunc != nil {
		return f.PlaceOrderFunc(ctx, orderID, params, msg)
	}
	return nil
}

func (f *fakeOrderRepo) ListByFranchise(ctx context.Context, franchiseID string, limit int) ([]*domain.Order, error) {
	if f.ListByFranchiseFunc != nil {
		return f.ListByFranchiseFunc(ctx, franchiseID, limit)
	}
	return nil, nil
}

func (f *fakeOrderRepo) placeCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.placed)
}

type fakeEventRepo struct {
	CreateFunc func(ctx context.Context, evt *domain.WebhookEvent) error

	mu       sync.Mutex
	created  []*domain.WebhookEvent
	statuses map[string]domain.WebhookEventStatus
}

func (f *fakeEventRepo) Create(ctx context.Context, evt *domain.WebhookEvent) error {
	if f.CreateFunc != nil {
		if err := f.CreateFunc(ctx, evt); err != nil {
			return err
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, evt)
	return nil
}

func (f *fakeEventRepo) UpdateStatus(_ context.Context, id string, status domain.WebhookEventStatus, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.statuses == nil {
		f.statuses = map[string]domain.WebhookEventStatus{}
	}
	f.statuses[id] = status
	return nil
}

func (f *fakeEventRepo) ListByPaymentID(_ context.Context, paymentID string, _ int) ([]domain.WebhookEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.WebhookEvent
	for _, evt := range f.created {
		if evt.PaymentID == paymentID {
			out = append(out, *evt)
		}
	}
	return out, nil
}

// lastStatus returns the final status of the most recently recorded event.
func (f *fakeEventRepo) lastStatus() domain.WebhookEventStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.created) == 0 {
		return ""
	}
	return f.statuses[f.created[len(f.created)-1].ID]
}

type fakeRefundRepo struct {
	GetByPaymentIDFunc func(ctx context.Context, paymentID string) (*domain.Refund, error)
	SaveFunc           func(ctx context.Context, refund *domain.Refund, msg *domain.OutboxMessage) error

	mu    sync.Mutex
	saved []*domain.Refund
	msgs  []*domain.OutboxMessage
}

func (f *fakeRefundRepo) GetByPaymentID(ctx context.Context, paymentID string) (*domain.Refund, error) {
	if f.GetByPaymentIDFunc != nil {
		return f.GetByPaymentIDFunc(ctx, paymentID)
	}
	return nil, domain.ErrRefundNotFound
}

func (f *fakeRefundRepo) Save(ctx context.Context, refund *domain.Refund, msg *domain.OutboxMessage) error {
	f.mu.Lock()
	f.saved = append(f.saved, refund)
	f.msgs = append(f.msgs, msg)
	f.mu.Unlock()
	if f.SaveFunc != nil {
		return f.SaveFunc(ctx, refund, msg)
	}
	return nil
}

type fakeRefundClient struct {
	RefundFunc func(ctx context.Context, paymentID, reason string) (provider.RefundResponse, error)

	mu      sync.Mutex
	calls   []string
	reasons []string
}

func (f *fakeRefundClient) Refund(ctx context.Context, paymentID, reason string) (provider.RefundResponse, error) {
	f.mu.Lock()
	f.calls = append(f.calls, paymentID)
	f.reasons = append(f.reasons, reason)
	f.mu.Unlock()
	if f.RefundFunc != nil {
		return f.RefundFunc(ctx, paymentID, reason)
	}
	return provider.RefundResponse{ID: "rfnd_" + paymentID, PaymentID: paymentID, Status: "processed"}, nil
}

func (f *fakeRefundClient) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}
