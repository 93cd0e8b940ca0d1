package order_repo

import (
	"context"

	"reconciler/internal/domain"
)

type OrderRepository interface {
	// GetByPaymentID returns domain.ErrOrderNotFound when no order exists.
	GetByPaymentID(ctx context.Context, paymentID string) (*domain.Order, error)
	// PlaceOrder runs the place_order procedure and stores msg in the same
	// transaction. It returns domain.ErrOrderAlreadyExists on a duplicate
	// payment id and wraps domain.ErrPlacementRejected on business failures.
	PlaceOrder(ctx context.Context, orderID string, params domain.PlaceOrderParams, msg *domain.OutboxMessage) error
	ListByFranchise(ctx context.Context, franchiseID string, limit int) ([]*domain.Order, error)
}
