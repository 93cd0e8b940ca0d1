package webhooks_http

import (
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"reconciler/internal/app/reconciler"
	"reconciler/internal/domain"
)

const (
	DefaultSignatureHeader = "X-Razorpay-Signature"
	DefaultMaxBodyBytes    = 1 << 20
)

// SignatureVerifier authenticates a raw webhook body.
type SignatureVerifier interface {
	Verify(body []byte, signature string) error
}

type WebhookHandler struct {
	service         reconciler.Service
	verifier        SignatureVerifier
	signatureHeader string
	maxBodyBytes    int64
	logger          *zap.Logger
}

func NewWebhookHandler(s reconciler.Service, v SignatureVerifier, signatureHeader string, maxBodyBytes int64, l *zap.Logger) *WebhookHandler {
	if signatureHeader == "" {
		signatureHeader = DefaultSignatureHeader
	}
	if maxBodyBytes <= 0 {
		maxBodyBytes = DefaultMaxBodyBytes
	}
	return &WebhookHandler{
		service:         s,
		verifier:        v,
		signatureHeader: signatureHeader,
		maxBodyBytes:    maxBodyBytes,
		logger:          l,
	}
}

type receivedResponse struct {
	Received bool `json:"received"`
}

type failureResponse struct {
	Error        string `json:"error"`
	PaymentID    string `json:"payment_id,omitempty"`
	RefundStatus string `json:"refund_status,omitempty"`
}

// PaymentWebhookHandler verifies, decodes and reconciles one provider
// notification. Only the raw body is verified; it is never re-encoded.
func (h *WebhookHandler) PaymentWebhookHandler(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.logger.Warn("Webhook body too large", zap.Int64("limit", tooLarge.Limit))
			renderJSONError(w, "request body too large", http.StatusRequestEntityTooLarge)
			return
		}
		h.logger.Error("Failed to read webhook body", zap.Error(err))
		renderJSONError(w, "could not read request body", http.StatusBadRequest)
		return
	}

	if err := h.verifier.Verify(body, r.Header.Get(h.signatureHeader)); err != nil {
		h.logger.Warn("Rejected webhook with invalid signature",
			zap.String("remote_addr", r.RemoteAddr),
			zap.Error(err))
		renderJSONError(w, "invalid signature", http.StatusUnauthorized)
		return
	}

	notification, err := domain.ParseNotification(body)
	if err != nil {
		h.logger.Warn("Malformed webhook body", zap.Error(err))
		renderJSONError(w, "malformed notification", http.StatusBadRequest)
		return
	}

	outcome, err := h.service.HandleNotification(r.Context(), notification, body, domain.SourceWebhook)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidNotification) {
			renderJSONError(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.logger.Error("Failed to reconcile notification", zap.String("payment_id", notification.PaymentID()), zap.Error(err))
		renderJSONError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if !outcome.Acknowledged() {
		renderJSON(w, http.StatusInternalServerError, failureResponse{
			Error:        "order placement failed",
			PaymentID:    outcome.PaymentID,
			RefundStatus: string(outcome.Refund),
		}, h.logger)
		return
	}

	renderJSON(w, http.StatusOK, receivedResponse{Received: true}, h.logger)
}
