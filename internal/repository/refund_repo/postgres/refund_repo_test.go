package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reconciler/internal/domain"
)

func TestRefundRepository_GetByPaymentID(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewRefundRepository(db)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("FROM refunds")).
		WithArgs("pay_1").
		WillReturnRows(sqlmock.NewRows([]string{"payment_id", "provider_refund_id", "reason", "status", "error", "attempts", "created_at", "updated_at"}).
			AddRow("pay_1", "rfnd_1", domain.RefundReasonOrderFailed, "INITIATED", "", 1, now, now))

	refund, err := repo.GetByPaymentID(context.Background(), "pay_1")
	require.NoError(t, err)
	assert.Equal(t, domain.RefundStatusInitiated, refund.Status)
	assert.Equal(t, "rfnd_1", refund.ProviderRefundID)
	assert.Equal(t, 1, refund.Attempts)

	mock.ExpectQuery(regexp.QuoteMeta("FROM refunds")).
		WithArgs("pay_2").
		WillReturnRows(sqlmock.NewRows([]string{"payment_id"}))
	_, err = repo.GetByPaymentID(context.Background(), "pay_2")
	assert.ErrorIs(t, err, domain.ErrRefundNotFound)
}

func TestRefundRepository_Save(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewRefundRepository(db)
	now := time.Now()
	refund := &domain.Refund{PaymentID: "pay_1", Reason: domain.RefundReasonOrderFailed, Status: domain.RefundStatusFailed, Error: "timeout", CreatedAt: now, UpdatedAt: now}
	msg := &domain.OutboxMessage{ID: "msg_1", AggregateID: "pay_1", AggregateType: "refund", MessageType: domain.MessageRefundFailed,
		Topic: "events", Key: "pay_1", Payload: []byte(`{}`), Status: domain.OutboxStatusPending, CreatedAt: now}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (payment_id) DO UPDATE")).
		WithArgs("pay_1", "", domain.RefundReasonOrderFailed, "FAILED", "timeout", now, now).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO outbox_messages")).
		WithArgs("msg_1", "pay_1", "refund", domain.MessageRefundFailed, "events", "pay_1", "{}", "PENDING", now).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Save(context.Background(), refund, msg))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRefundRepository_SaveRollsBack(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewRefundRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO refunds")).WillReturnError(errors.New("deadlock"))
	mock.ExpectRollback()

	err = repo.Save(context.Background(), &domain.Refund{PaymentID: "pay_1"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "deadlock")
	assert.NoError(t, mock.ExpectationsWereMet())
}
