package webhooks_http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"reconciler/internal/app/reconciler"
	"reconciler/internal/domain"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// QueryHandler serves the read-only endpoints used by the franchise dashboard.
type QueryHandler struct {
	service reconciler.Service
	logger  *zap.Logger
}

func NewQueryHandler(s reconciler.Service, l *zap.Logger) *QueryHandler {
	return &QueryHandler{service: s, logger: l}
}

type OrderResponse struct {
	ID              string             `json:"id"`
	PaymentID       string             `json:"payment_id"`
	CreatedBy       string             `json:"created_by"`
	CustomerName    string             `json:"customer_name"`
	CustomerEmail   string             `json:"customer_email"`
	CustomerPhone   string             `json:"customer_phone"`
	CustomerAddress string             `json:"customer_address"`
	FranchiseID     string             `json:"franchise_id"`
	Items           []domain.OrderItem `json:"items"`
	TotalAmount     float64            `json:"total_amount"`
	Status          string             `json:"status"`
	CreatedAt       string             `json:"created_at"`
}

type WebhookEventResponse struct {
	ID          string  `json:"id"`
	PaymentID   string  `json:"payment_id"`
	EventType   string  `json:"event_type"`
	Source      string  `json:"source"`
	Status      string  `json:"status"`
	Detail      string  `json:"detail,omitempty"`
	ReceivedAt  string  `json:"received_at"`
	ProcessedAt *string `json:"processed_at,omitempty"`
}

func toOrderResponse(o *domain.Order) OrderResponse {
	return OrderResponse{
		ID:              o.ID,
		PaymentID:       o.PaymentID,
		CreatedBy:       o.CreatedBy,
		CustomerName:    o.CustomerName,
		CustomerEmail:   o.CustomerEmail,
		CustomerPhone:   o.CustomerPhone,
		CustomerAddress: o.CustomerAddress,
		FranchiseID:     o.FranchiseID,
		Items:           o.Items,
		TotalAmount:     o.TotalAmount,
		Status:          string(o.Status),
		CreatedAt:       o.CreatedAt.Format(time.RFC3339),
	}
}

func (h *QueryHandler) GetOrderHandler(w http.ResponseWriter, r *http.Request) {
	paymentID := chi.URLParam(r, "paymentID")

	order, err := h.service.GetOrderByPaymentID(r.Context(), paymentID)
	if err != nil {
		if errors.Is(err, domain.ErrOrderNotFound) {
			renderJSONError(w, "order not found", http.StatusNotFound)
			return
		}
		renderJSONError(w, "internal server error", http.StatusInternalServerError)
		return
	}
	renderJSON(w, http.StatusOK, toOrderResponse(order), h.logger)
}

func (h *QueryHandler) ListFranchiseOrdersHandler(w http.ResponseWriter, r *http.Request) {
	franchiseID := chi.URLParam(r, "franchiseID")
	limit, ok := parseLimit(r)
	if !ok {
		renderJSONError(w, "invalid limit", http.StatusBadRequest)
		return
	}

	orders, err := h.service.ListFranchiseOrders(r.Context(), franchiseID, limit)
	if err != nil {
		renderJSONError(w, "internal server error", http.StatusInternalServerError)
		return
	}
	resp := make([]OrderResponse, 0, len(orders))
	for _, o := range orders {
		resp = append(resp, toOrderResponse(o))
	}
	renderJSON(w, http.StatusOK, resp, h.logger)
}

func (h *QueryHandler) ListWebhookEventsHandler(w http.ResponseWriter, r *http.Request) {
	paymentID := chi.URLParam(r, "paymentID")
	limit, ok := parseLimit(r)
	if !ok {
		renderJSONError(w, "invalid limit", http.StatusBadRequest)
		return
	}

	events, err := h.service.ListWebhookEvents(r.Context(), paymentID, limit)
	if err != nil {
		renderJSONError(w, "internal server error", http.StatusInternalServerError)
		return
	}
	resp := make([]WebhookEventResponse, 0, len(events))
	for _, evt := range events {
		item := WebhookEventResponse{
			ID:         evt.ID,
			PaymentID:  evt.PaymentID,
			EventType:  evt.EventType,
			Source:     string(evt.Source),
			Status:     string(evt.Status),
			Detail:     evt.Detail,
			ReceivedAt: evt.ReceivedAt.Format(time.RFC3339),
		}
		if evt.ProcessedAt != nil {
			processed := evt.ProcessedAt.Format(time.RFC3339)
			item.ProcessedAt = &processed
		}
		resp = append(resp, item)
	}
	renderJSON(w, http.StatusOK, resp, h.logger)
}

func parseLimit(r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return defaultListLimit, true
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return 0, false
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	return limit, true
}
