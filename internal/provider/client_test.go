package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestClient_Refund(t *testing.T) {
	var gotPath, gotUser, gotPass string
	var gotBody map[string]map[string]string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		gotPath = r.URL.Path
		gotUser, gotPass, _ = r.BasicAuth()
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"rfnd_1","entity":"refund","payment_id":"pay_1","amount":5000,"status":"processed"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", Credentials{KeyID: "key", KeySecret: "secret"}, time.Second, zap.NewNop())
	refund, err := c.Refund(context.Background(), "pay_1", "Stock Unavailable / Order Failed")
	require.NoError(t, err)

	assert.Equal(t, "/v1/payments/pay_1/refund", gotPath)
	assert.Equal(t, "key", gotUser)
	assert.Equal(t, "secret", gotPass)
	assert.Equal(t, "Stock Unavailable / Order Failed", gotBody["notes"]["reason"])
	assert.Equal(t, RefundResponse{ID: "rfnd_1", PaymentID: "pay_1", Amount: 5000, Status: "processed"}, refund)
}

func TestClient_Refund_ProviderError(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"code":"BAD_REQUEST_ERROR","description":"The payment has been fully refunded already"}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, Credentials{KeyID: "key", KeySecret: "secret"}, time.Second, zap.NewNop())
	_, err := c.Refund(context.Background(), "pay_1", "reason")
	require.Error(t, err)
	assert.True(t, Error.Has(err))
	assert.Contains(t, err.Error(), "fully refunded already")
	assert.Equal(t, 1, calls)
}

func TestClient_Refund_EmptyPaymentID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected")
	}))
	defer srv.Close()

	c := NewClient(srv.URL, Credentials{}, time.Second, zap.NewNop())
	_, err := c.Refund(context.Background(), "", "reason")
	require.ErrorIs(t, err, ErrEmptyPaymentID)
}

func TestClient_Refund_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := NewClient(url, Credentials{}, time.Second, zap.NewNop())
	_, err := c.Refund(context.Background(), "pay_1", "reason")
	require.Error(t, err)
	assert.True(t, Error.Has(err))
}

func TestClient_Refund_AcceptedWithUnreadableBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("OK"))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, Credentials{KeyID: "key", KeySecret: "secret"}, time.Second, zap.NewNop())
	refund, err := c.Refund(context.Background(), "pay_1", "reason")
	require.NoError(t, err)
	assert.Equal(t, RefundResponse{PaymentID: "pay_1"}, refund)
}
