package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"reconciler/internal/domain"
	"reconciler/internal/repository/order_repo"
)

const (
	pgUniqueViolation pq.ErrorCode = "23505"
	pgRaiseException  pq.ErrorCode = "P0001"
)

const orderColumns = `id, payment_id, created_by, customer_name, customer_email, customer_phone,
	customer_address, franchise_id, items, total_amount, status, created_at`

type pgOrderRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewOrderRepository(db *sql.DB, l *zap.Logger) order_repo.OrderRepository {
	return &pgOrderRepository{db: db, logger: l}
}

func (r *pgOrderRepository) GetByPaymentID(ctx context.Context, paymentID string) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE payment_id = $1`
	order, err := scanOrder(r.db.QueryRowContext(ctx, query, paymentID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrOrderNotFound
		}
		r.logger.Error("Failed to get order by payment ID", zap.String("payment_id", paymentID), zap.Error(err))
		return nil, fmt.Errorf("failed to get order by payment id %s: %w", paymentID, err)
	}
	return order, nil
}

func (r *pgOrderRepository) PlaceOrder(ctx context.Context, orderID string, params domain.PlaceOrderParams, msg *domain.OutboxMessage) (err error) {
	itemsJSON, err := params.ItemsJSON()
	if err != nil {
		return fmt.Errorf("failed to encode order items: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		r.logger.Error("Failed to begin transaction for order placement", zap.String("payment_id", params.PaymentID), zap.Error(err))
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("Panic during order placement, rolling back", zap.String("payment_id", params.PaymentID))
			_ = tx.Rollback()
			panic(p)
		} else if err != nil {
			_ = tx.Rollback()
		} else if err = tx.Commit(); err != nil {
			r.logger.Error("Failed to commit order placement", zap.String("payment_id", params.PaymentID), zap.Error(err))
			err = fmt.Errorf("failed to commit order placement: %w", err)
		}
	}()

	query := `SELECT place_order($1, $2, $3, $4, $5, $6, $7, $8, $9::jsonb)`
	var placedID string
	err = tx.QueryRowContext(ctx, query,
		orderID,
		params.CreatedBy,
		params.CustomerName,
		params.CustomerEmail,
		params.CustomerPhone,
		params.CustomerAddress,
		params.FranchiseID,
		params.PaymentID,
		string(itemsJSON),
	).Scan(&placedID)
	if err != nil {
		return mapPlaceOrderError(err)
	}
	r.logger.Debug("Order placed in transaction", zap.String("order_id", placedID), zap.String("payment_id", params.PaymentID))

	if msg != nil {
		outboxQuery := `
			INSERT INTO outbox_messages (id, aggregate_id, aggregate_type, message_type, topic, key_value, payload, status, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`
		_, err = tx.ExecContext(ctx, outboxQuery,
			msg.ID, msg.AggregateID, msg.AggregateType, msg.MessageType, msg.Topic, msg.Key, string(msg.Payload), string(msg.Status), msg.CreatedAt)
		if err != nil {
			return fmt.Errorf("tx failed to create outbox message: %w", err)
		}
	}

	return nil
}

func (r *pgOrderRepository) ListByFranchise(ctx context.Context, franchiseID string, limit int) ([]*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE franchise_id = $1 ORDER BY created_at DESC LIMIT $2`
	rows, err := r.db.QueryContext(ctx, query, franchiseID, limit)
	if err != nil {
		r.logger.Error("Failed to query orders for franchise", zap.String("franchise_id", franchiseID), zap.Error(err))
		return nil, fmt.Errorf("failed to get orders for franchise %s: %w", franchiseID, err)
	}
	defer rows.Close()

	var orders []*domain.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order row: %w", err)
		}
		orders = append(orders, order)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return orders, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*domain.Order, error) {
	order := &domain.Order{}
	var items []byte
	err := row.Scan(
		&order.ID,
		&order.PaymentID,
		&order.CreatedBy,
		&order.CustomerName,
		&order.CustomerEmail,
		&order.CustomerPhone,
		&order.CustomerAddress,
		&order.FranchiseID,
		&items,
		&order.TotalAmount,
		&order.Status,
		&order.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	order.Items = []domain.OrderItem{}
	if len(items) > 0 {
		if err := json.Unmarshal(items, &order.Items); err != nil {
			return nil, fmt.Errorf("failed to decode items of order %s: %w", order.ID, err)
		}
	}
	return order, nil
}

func mapPlaceOrderError(err error) error {
	var pgErr *pq.Error
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return domain.ErrOrderAlreadyExists
		case pgRaiseException:
			return fmt.Errorf("%w: %s", domain.ErrPlacementRejected, pgErr.Message)
		}
	}
	return fmt.Errorf("failed to place order: %w", err)
}
