package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/efreitasn/tradebook/internal/domain"
	"github.com/efreitasn/tradebook/internal/exchange"
)

// ProductHandler handles HTTP requests for product endpoints.
type ProductHandler struct {
	ex *exchange.Exchange
}

// NewProductHandler creates a new ProductHandler.
func NewProductHandler(ex *exchange.Exchange) *ProductHandler {
	return &ProductHandler{ex: ex}
}

// createProductRequest is the JSON request body for POST /products.
type createProductRequest struct {
	Symbol string `json:"symbol"`
}

// depthResponse is the JSON response for GET /products/{symbol}/depth.
type depthResponse struct {
	Symbol string   `json:"symbol"`
	Buy    []string `json:"buy"`
	Sell   []string `json:"sell"`
}

// marketDataResponse is the JSON response for GET /products/{symbol}/market.
type marketDataResponse struct {
	Symbol     string `json:"symbol"`
	BuyPrice   string `json:"buy_price"`
	BuyVolume  int64  `json:"buy_volume"`
	SellPrice  string `json:"sell_price"`
	SellVolume int64  `json:"sell_volume"`
}

// userOrderResponse is one active entry in GET /products/{symbol}/orders.
type userOrderResponse struct {
	OrderID         string `json:"order_id"`
	User            string `json:"user"`
	Symbol          string `json:"symbol"`
	Side            string `json:"side"`
	Price           string `json:"price"`
	OriginalVolume  int64  `json:"original_volume"`
	RemainingVolume int64  `json:"remaining_volume"`
	CancelledVolume int64  `json:"cancelled_volume"`
	Quote           bool   `json:"quote"`
}

// Create handles POST /products.
func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createProductRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	if err := h.ex.CreateProduct(req.Symbol); err != nil {
		mapDomainError(w, err)
		return
	}

	WriteJSON(w, http.StatusCreated, map[string]string{"symbol": req.Symbol})
}

// List handles GET /products.
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string][]string{"products": h.ex.Products()})
}

// GetDepth handles GET /products/{symbol}/depth.
func (h *ProductHandler) GetDepth(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")

	buy, sell, err := h.ex.BookDepth(symbol)
	if err != nil {
		mapDomainError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, depthResponse{Symbol: symbol, Buy: buy, Sell: sell})
}

// GetMarketData handles GET /products/{symbol}/market.
func (h *ProductHandler) GetMarketData(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")

	md, err := h.ex.MarketData(symbol)
	if err != nil {
		mapDomainError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, marketDataResponse{
		Symbol:     symbol,
		BuyPrice:   md.BuyPrice.String(),
		BuyVolume:  md.BuyVolume,
		SellPrice:  md.SellPrice.String(),
		SellVolume: md.SellVolume,
	})
}

// ListUserOrders handles GET /products/{symbol}/orders?user=.
func (h *ProductHandler) ListUserOrders(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")
	user := r.URL.Query().Get("user")
	if user == "" {
		WriteError(w, http.StatusBadRequest, "validation_error", "user query parameter is required")
		return
	}

	snapshots, err := h.ex.OrdersWithRemainingQty(user, symbol)
	if err != nil {
		mapDomainError(w, err)
		return
	}

	orders := make([]userOrderResponse, len(snapshots))
	for i, s := range snapshots {
		orders[i] = buildUserOrderResponse(s)
	}
	WriteJSON(w, http.StatusOK, map[string][]userOrderResponse{"orders": orders})
}

func buildUserOrderResponse(s domain.TradableSnapshot) userOrderResponse {
	return userOrderResponse{
		OrderID:         s.ID,
		User:            s.User,
		Symbol:          s.Product,
		Side:            string(s.Side),
		Price:           s.Price.String(),
		OriginalVolume:  s.OriginalVolume,
		RemainingVolume: s.RemainingVolume,
		CancelledVolume: s.CancelledVolume,
		Quote:           s.IsQuote,
	}
}
