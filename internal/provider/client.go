// Package provider talks to the payment provider's REST API.
package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/zeebo/errs"
	"go.uber.org/zap"
)

// Error is the error class of provider API failures.
var Error = errs.Class("payment provider")

// ErrEmptyPaymentID is returned before any request is made.
var ErrEmptyPaymentID = Error.New("payment id is empty")

// Credentials are the API key pair used for HTTP basic auth.
type Credentials struct {
	KeyID     string
	KeySecret string
}

// RefundResponse is the subset of the provider refund entity we keep.
type RefundResponse struct {
	ID        string `json:"id"`
	PaymentID string `json:"payment_id"`
	Amount    int64  `json:"amount"`
	Status    string `json:"status"`
}

type Client struct {
	baseURL string
	creds   Credentials
	http    *http.Client
	logger  *zap.Logger
}

func NewClient(baseURL string, creds Credentials, timeout time.Duration, logger *zap.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		creds:   creds,
		http:    &http.Client{Timeout: timeout},
		logger:  logger.With(zap.String("component", "provider_client")),
	}
}

// Refund requests a full refund of paymentID. It makes exactly one attempt.
// A 2xx answer means the provider accepted the refund; an undecodable body
// then yields a RefundResponse with only PaymentID set and no error.
func (c *Client) Refund(ctx context.Context, paymentID, reason string) (_ RefundResponse, err error) {
	if paymentID == "" {
		return RefundResponse{}, ErrEmptyPaymentID
	}

	body, err := json.Marshal(map[string]any{
		"notes": map[string]string{"reason": reason},
	})
	if err != nil {
		return RefundResponse{}, Error.Wrap(err)
	}

	endpoint := c.baseURL + "/v1/payments/" + url.PathEscape(paymentID) + "/refund"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return RefundResponse{}, Error.Wrap(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.creds.KeyID, c.creds.KeySecret)

	resp, err := c.http.Do(req)
	if err != nil {
		return RefundResponse{}, Error.Wrap(err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer func() {
			err = errs.Combine(err, Error.Wrap(resp.Body.Close()))
		}()
		return RefundResponse{}, Error.New("refund of %s rejected with status %d: %s",
			paymentID, resp.StatusCode, describeError(resp.Body))
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			c.logger.Debug("Failed to close refund response body", zap.Error(closeErr))
		}
	}()

	var refund RefundResponse
	if decodeErr := json.NewDecoder(resp.Body).Decode(&refund); decodeErr != nil {
		c.logger.Warn("Refund accepted but response body could not be decoded",
			zap.String("payment_id", paymentID),
			zap.Int("status", resp.StatusCode),
			zap.Error(decodeErr))
		return RefundResponse{PaymentID: paymentID}, nil
	}
	if refund.PaymentID == "" {
		refund.PaymentID = paymentID
	}
	return refund, nil
}

// describeError extracts the provider's error description, falling back to
// the raw body.
func describeError(r io.Reader) string {
	raw, _ := io.ReadAll(io.LimitReader(r, 4096))
	var payload struct {
		Error struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	}
	if json.Unmarshal(raw, &payload) == nil && payload.Error.Description != "" {
		return payload.Error.Code + " " + payload.Error.Description
	}
	return strings.TrimSpace(string(raw))
}
