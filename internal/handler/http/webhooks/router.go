package webhooks_http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"reconciler/internal/app/reconciler"
)

type RouterOptions struct {
	SignatureHeader string
	MaxBodyBytes    int64
	AllowedOrigins  []string
	RequestTimeout  time.Duration
}

func NewRouter(s reconciler.Service, v SignatureVerifier, opts RouterOptions, l *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	if opts.RequestTimeout > 0 {
		r.Use(middleware.Timeout(opts.RequestTimeout))
	}

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	RegisterRoutes(r, s, v, opts, l)
	return r
}

func RegisterRoutes(r chi.Router, s reconciler.Service, v SignatureVerifier, opts RouterOptions, l *zap.Logger) {
	webhooks := NewWebhookHandler(s, v, opts.SignatureHeader, opts.MaxBodyBytes, l.With(zap.String("component", "WebhookHTTPHandler")))
	queries := NewQueryHandler(s, l.With(zap.String("component", "QueryHTTPHandler")))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("Reconciler service is healthy!"))
	})

	r.Post("/webhooks/payments", webhooks.PaymentWebhookHandler)

	r.Get("/orders/{paymentID}", queries.GetOrderHandler)
	r.Get("/franchises/{franchiseID}/orders", queries.ListFranchiseOrdersHandler)
	r.Get("/webhook-events/{paymentID}", queries.ListWebhookEventsHandler)
}
