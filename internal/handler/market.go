package handler

import (
	"net/http"

	"github.com/efreitasn/tradebook/internal/domain"
	"github.com/efreitasn/tradebook/internal/exchange"
)

// MarketHandler handles HTTP requests for the market-state endpoints.
type MarketHandler struct {
	ex *exchange.Exchange
}

// NewMarketHandler creates a new MarketHandler.
func NewMarketHandler(ex *exchange.Exchange) *MarketHandler {
	return &MarketHandler{ex: ex}
}

// setStateRequest is the JSON request body for PUT /market.
type setStateRequest struct {
	State string `json:"state"`
}

// stateResponse is the JSON response for the market-state endpoints.
type stateResponse struct {
	State string `json:"state"`
}

// GetState handles GET /market.
func (h *MarketHandler) GetState(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, stateResponse{State: string(h.ex.State())})
}

// SetState handles PUT /market.
func (h *MarketHandler) SetState(w http.ResponseWriter, r *http.Request) {
	var req setStateRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	if err := h.ex.SetMarketState(domain.MarketState(req.State)); err != nil {
		mapDomainError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, stateResponse{State: req.State})
}
