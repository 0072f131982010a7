// Package handler exposes the exchange over HTTP: REST endpoints for
// products, orders, quotes, and market state, webhook management, and the
// websocket event feed.
package handler

import (
	"bufio"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/efreitasn/tradebook/internal/exchange"
	"github.com/efreitasn/tradebook/internal/publish"
)

// NewRouter creates a chi router with all routes registered, request logging,
// and Content-Type validation middleware.
func NewRouter(
	ex *exchange.Exchange,
	dispatcher *publish.Dispatcher,
	feed *publish.Feed,
	logger *slog.Logger,
) chi.Router {
	r := chi.NewRouter()

	// Global middleware.
	r.Use(requestLogging(logger))
	r.Use(contentTypeJSON)

	// Create handlers.
	productH := NewProductHandler(ex)
	orderH := NewOrderHandler(ex)
	quoteH := NewQuoteHandler(ex)
	marketH := NewMarketHandler(ex)
	webhookH := NewWebhookHandler(dispatcher)

	// Health check.
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Product routes.
	r.Post("/products", productH.Create)
	r.Get("/products", productH.List)
	r.Get("/products/{symbol}/depth", productH.GetDepth)
	r.Get("/products/{symbol}/market", productH.GetMarketData)
	r.Get("/products/{symbol}/orders", productH.ListUserOrders)

	// Order routes.
	r.Post("/orders", orderH.Submit)
	r.Delete("/products/{symbol}/orders/{order_id}", orderH.Cancel)

	// Quote routes.
	r.Post("/quotes", quoteH.Submit)
	r.Delete("/products/{symbol}/quotes/{user}", quoteH.Cancel)

	// Market-state routes.
	r.Get("/market", marketH.GetState)
	r.Put("/market", marketH.SetState)

	// Webhook routes.
	r.Post("/webhooks", webhookH.Subscribe)
	r.Get("/webhooks", webhookH.List)
	r.Delete("/webhooks/{webhook_id}", webhookH.Delete)

	// Event feed.
	r.Get("/ws", feed.ServeWS)

	return r
}

// requestLogging returns middleware that logs each request's method, path,
// status code, and duration using slog.
func requestLogging(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(ww, r)
			logger.Info("request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.status),
				slog.Duration("duration", time.Since(start)),
			)
		})
	}
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *statusWriter) WriteHeader(code int) {
	if !w.wroteHeader {
		w.status = code
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(code)
}

// Hijack lets the websocket upgrade work through the logging middleware.
func (w *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, http.ErrNotSupported
	}
	return h.Hijack()
}

// contentTypeJSON is middleware that validates Content-Type for POST, PUT, and
// PATCH requests. If the Content-Type header doesn't start with
// "application/json", it returns 400 Bad Request before the handler runs.
func contentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost || r.Method == http.MethodPut || r.Method == http.MethodPatch {
			ct := r.Header.Get("Content-Type")
			if ct == "" || !strings.HasPrefix(ct, "application/json") {
				WriteError(w, http.StatusBadRequest, "invalid_request",
					"Content-Type must be application/json")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}
