package webhooks_http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reconciler/internal/domain"
)

func TestGetOrder(t *testing.T) {
	created := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	svc := &fakeService{GetOrderByPaymentIDFunc: func(_ context.Context, paymentID string) (*domain.Order, error) {
		if paymentID != "pay_1" {
			return nil, domain.ErrOrderNotFound
		}
		return &domain.Order{
			ID:          "ord_1",
			PaymentID:   "pay_1",
			FranchiseID: "fr_1",
			Items:       []domain.OrderItem{{ID: "p1", Name: "Idli", Price: 40, Quantity: 3}},
			TotalAmount: 120,
			Status:      domain.OrderStatusPlaced,
			CreatedAt:   created,
		}, nil
	}}
	router := newTestRouter(svc)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/orders/pay_1", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp OrderResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ord_1", resp.ID)
	assert.Equal(t, "PLACED", resp.Status)
	assert.Equal(t, "2024-03-01T10:00:00Z", resp.CreatedAt)
	assert.Len(t, resp.Items, 1)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/orders/pay_missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListFranchiseOrders(t *testing.T) {
	var gotLimit int
	svc := &fakeService{ListFranchiseOrdersFunc: func(_ context.Context, franchiseID string, limit int) ([]*domain.Order, error) {
		gotLimit = limit
		return []*domain.Order{{ID: "ord_1", FranchiseID: franchiseID}, {ID: "ord_2", FranchiseID: franchiseID}}, nil
	}}
	router := newTestRouter(svc)

	tests := []struct {
		query     string
		wantCode  int
		wantLimit int
	}{
		{query: "", wantCode: http.StatusOK, wantLimit: defaultListLimit},
		{query: "?limit=5", wantCode: http.StatusOK, wantLimit: 5},
		{query: "?limit=1000", wantCode: http.StatusOK, wantLimit: maxListLimit},
		{query: "?limit=abc", wantCode: http.StatusBadRequest},
		{query: "?limit=0", wantCode: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			gotLimit = 0
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/franchises/fr_1/orders"+tt.query, nil))
			require.Equal(t, tt.wantCode, rec.Code)
			if tt.wantCode != http.StatusOK {
				return
			}
			assert.Equal(t, tt.wantLimit, gotLimit)
			var resp []OrderResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Len(t, resp, 2)
		})
	}
}

func TestListWebhookEvents(t *testing.T) {
	processed := time.Date(2024, 3, 1, 10, 0, 1, 0, time.UTC)
	svc := &fakeService{ListWebhookEventsFunc: func(_ context.Context, paymentID string, _ int) ([]domain.WebhookEvent, error) {
		return []domain.WebhookEvent{
			{ID: "evt_2", PaymentID: paymentID, EventType: domain.EventPaymentCaptured, Source: domain.SourceWebhook, Status: domain.WebhookEventProcessed, ProcessedAt: &processed},
			{ID: "evt_1", PaymentID: paymentID, EventType: domain.EventPaymentCaptured, Source: domain.SourceWebhook, Status: domain.WebhookEventReceived},
		}, nil
	}}
	rec := httptest.NewRecorder()

	newTestRouter(svc).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/webhook-events/pay_1", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp []WebhookEventResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp, 2)
	require.NotNil(t, resp[0].ProcessedAt)
	assert.Equal(t, "2024-03-01T10:00:01Z", *resp[0].ProcessedAt)
	assert.Nil(t, resp[1].ProcessedAt)
}

func TestListWebhookEvents_ServiceError(t *testing.T) {
	svc := &fakeService{ListWebhookEventsFunc: func(context.Context, string, int) ([]domain.WebhookEvent, error) {
		return nil, errors.New("db down")
	}}
	rec := httptest.NewRecorder()
	newTestRouter(svc).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/webhook-events/pay_1", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
