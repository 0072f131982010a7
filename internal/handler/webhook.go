package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/efreitasn/tradebook/internal/domain"
	"github.com/efreitasn/tradebook/internal/publish"
)

// WebhookHandler handles HTTP requests for webhook subscription endpoints.
type WebhookHandler struct {
	dispatcher *publish.Dispatcher
}

// NewWebhookHandler creates a new WebhookHandler.
func NewWebhookHandler(dispatcher *publish.Dispatcher) *WebhookHandler {
	return &WebhookHandler{dispatcher: dispatcher}
}

// subscribeRequest is the JSON request body for POST /webhooks. An empty or
// omitted events list subscribes to all event types.
type subscribeRequest struct {
	URL    string   `json:"url"`
	Events []string `json:"events"`
}

// subscriptionResponse is the JSON representation of a webhook subscription.
type subscriptionResponse struct {
	WebhookID string   `json:"webhook_id"`
	URL       string   `json:"url"`
	Events    []string `json:"events"`
	CreatedAt string   `json:"created_at"`
}

// Subscribe handles POST /webhooks.
func (h *WebhookHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	var req subscribeRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	sub, err := h.dispatcher.Subscribe(req.URL, req.Events)
	if err != nil {
		var validationErr *domain.ValidationError
		if errors.As(err, &validationErr) {
			WriteError(w, http.StatusBadRequest, "validation_error", validationErr.Message)
			return
		}
		WriteError(w, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
		return
	}

	WriteJSON(w, http.StatusCreated, buildSubscriptionResponse(sub))
}

// List handles GET /webhooks.
func (h *WebhookHandler) List(w http.ResponseWriter, r *http.Request) {
	subs := h.dispatcher.List()
	webhooks := make([]subscriptionResponse, len(subs))
	for i, sub := range subs {
		webhooks[i] = buildSubscriptionResponse(sub)
	}
	WriteJSON(w, http.StatusOK, map[string][]subscriptionResponse{"webhooks": webhooks})
}

// Delete handles DELETE /webhooks/{webhook_id}.
func (h *WebhookHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "webhook_id")

	if err := h.dispatcher.Unsubscribe(id); err != nil {
		if errors.Is(err, publish.ErrSubscriptionNotFound) {
			WriteError(w, http.StatusNotFound, "webhook_not_found", err.Error())
			return
		}
		WriteError(w, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func buildSubscriptionResponse(sub publish.Subscription) subscriptionResponse {
	events := sub.Events
	if events == nil {
		events = []string{}
	}
	return subscriptionResponse{
		WebhookID: sub.ID,
		URL:       sub.URL,
		Events:    events,
		CreatedAt: sub.CreatedAt.Format(time.RFC3339),
	}
}
