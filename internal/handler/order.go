package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/efreitasn/tradebook/internal/domain"
	"github.com/efreitasn/tradebook/internal/exchange"
)

// OrderHandler handles HTTP requests for order endpoints.
type OrderHandler struct {
	ex *exchange.Exchange
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(ex *exchange.Exchange) *OrderHandler {
	return &OrderHandler{ex: ex}
}

// submitOrderRequest is the JSON request body for POST /orders. Price is a
// decimal dollar string such as "10.00", or "MKT" for a market order.
type submitOrderRequest struct {
	User   string `json:"user"`
	Symbol string `json:"symbol"`
	Side   string `json:"side"`
	Price  string `json:"price"`
	Volume int64  `json:"volume"`
}

// submitOrderResponse is the JSON response for POST /orders.
type submitOrderResponse struct {
	OrderID string `json:"order_id"`
	User    string `json:"user"`
	Symbol  string `json:"symbol"`
	Side    string `json:"side"`
	Price   string `json:"price"`
	Volume  int64  `json:"volume"`
}

// Submit handles POST /orders.
func (h *OrderHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req submitOrderRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	side, err := domain.ParseSide(req.Side)
	if err != nil {
		mapDomainError(w, err)
		return
	}
	price, err := parsePrice(req.Price)
	if err != nil {
		mapDomainError(w, err)
		return
	}

	id, err := h.ex.SubmitOrder(req.User, req.Symbol, price, req.Volume, side)
	if err != nil {
		mapDomainError(w, err)
		return
	}

	WriteJSON(w, http.StatusCreated, submitOrderResponse{
		OrderID: id,
		User:    req.User,
		Symbol:  req.Symbol,
		Side:    string(side),
		Price:   price.String(),
		Volume:  req.Volume,
	})
}

// Cancel handles DELETE /products/{symbol}/orders/{order_id}?side=.
func (h *OrderHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")
	orderID := chi.URLParam(r, "order_id")

	side, err := domain.ParseSide(r.URL.Query().Get("side"))
	if err != nil {
		mapDomainError(w, err)
		return
	}

	if err := h.ex.SubmitOrderCancel(symbol, side, orderID); err != nil {
		mapDomainError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{"order_id": orderID, "status": "cancelled"})
}
