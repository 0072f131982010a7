package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/efreitasn/tradebook/internal/exchange"
)

// QuoteHandler handles HTTP requests for quote endpoints.
type QuoteHandler struct {
	ex *exchange.Exchange
}

// NewQuoteHandler creates a new QuoteHandler.
func NewQuoteHandler(ex *exchange.Exchange) *QuoteHandler {
	return &QuoteHandler{ex: ex}
}

// submitQuoteRequest is the JSON request body for POST /quotes. Prices are
// decimal dollar strings; market prices are not allowed in quotes.
type submitQuoteRequest struct {
	User       string `json:"user"`
	Symbol     string `json:"symbol"`
	BuyPrice   string `json:"buy_price"`
	BuyVolume  int64  `json:"buy_volume"`
	SellPrice  string `json:"sell_price"`
	SellVolume int64  `json:"sell_volume"`
}

// submitQuoteResponse is the JSON response for POST /quotes.
type submitQuoteResponse struct {
	User        string `json:"user"`
	Symbol      string `json:"symbol"`
	BuyOrderID  string `json:"buy_order_id"`
	SellOrderID string `json:"sell_order_id"`
}

// Submit handles POST /quotes.
func (h *QuoteHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req submitQuoteRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	buyPrice, err := parsePrice(req.BuyPrice)
	if err != nil {
		mapDomainError(w, err)
		return
	}
	sellPrice, err := parsePrice(req.SellPrice)
	if err != nil {
		mapDomainError(w, err)
		return
	}

	buyID, sellID, err := h.ex.SubmitQuote(req.User, req.Symbol, buyPrice, req.BuyVolume, sellPrice, req.SellVolume)
	if err != nil {
		mapDomainError(w, err)
		return
	}

	WriteJSON(w, http.StatusCreated, submitQuoteResponse{
		User:        req.User,
		Symbol:      req.Symbol,
		BuyOrderID:  buyID,
		SellOrderID: sellID,
	})
}

// Cancel handles DELETE /products/{symbol}/quotes/{user}.
func (h *QuoteHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")
	user := chi.URLParam(r, "user")

	if err := h.ex.SubmitQuoteCancel(user, symbol); err != nil {
		mapDomainError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{"user": user, "symbol": symbol, "status": "cancelled"})
}
