package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/efreitasn/tradebook/internal/domain"
)

// WriteJSON writes a JSON response with the given status code and data.
// Sets Content-Type to application/json before writing the status code.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data) // Write error intentionally ignored in response helper
}

// errorResponse is the standard error response format.
type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// WriteError writes a standard error response with the given status code,
// error code, and human-readable message.
func WriteError(w http.ResponseWriter, status int, errorCode, message string) {
	WriteJSON(w, status, errorResponse{
		Error:   errorCode,
		Message: message,
	})
}

// ParseJSON decodes the request body as JSON into v.
// It validates that the Content-Type header is application/json and
// returns an error for missing/incorrect content type or malformed JSON.
func ParseJSON(r *http.Request, v any) error {
	ct := r.Header.Get("Content-Type")
	if ct == "" || !strings.HasPrefix(ct, "application/json") {
		return fmt.Errorf("Request body must be valid JSON with Content-Type: application/json")
	}

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("Request body must be valid JSON with Content-Type: application/json")
	}

	return nil
}

// mapDomainError maps domain errors to HTTP responses.
func mapDomainError(w http.ResponseWriter, err error) {
	var validationErr *domain.ValidationError
	if errors.As(err, &validationErr) {
		WriteError(w, http.StatusBadRequest, "validation_error", validationErr.Message)
		return
	}

	switch {
	case errors.Is(err, domain.ErrInvalidVolume):
		WriteError(w, http.StatusBadRequest, "invalid_volume", err.Error())
	case errors.Is(err, domain.ErrInvalidPriceOperation):
		WriteError(w, http.StatusBadRequest, "invalid_price_operation", err.Error())
	case errors.Is(err, domain.ErrNoSuchProduct):
		WriteError(w, http.StatusNotFound, "no_such_product", err.Error())
	case errors.Is(err, domain.ErrOrderNotFound):
		WriteError(w, http.StatusNotFound, "order_not_found", err.Error())
	case errors.Is(err, domain.ErrProductAlreadyExists):
		WriteError(w, http.StatusConflict, "product_already_exists", err.Error())
	case errors.Is(err, domain.ErrInvalidMarketState):
		WriteError(w, http.StatusConflict, "invalid_market_state", err.Error())
	case errors.Is(err, domain.ErrInvalidMarketStateTransition):
		WriteError(w, http.StatusConflict, "invalid_market_state_transition", err.Error())
	default:
		WriteError(w, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
	}
}

// parsePrice converts the wire representation of a price into a canonical
// Price. The literal "MKT" selects the market sentinel; anything else must
// be a decimal dollar amount.
func parsePrice(raw string) (*domain.Price, error) {
	if raw == "MKT" {
		return domain.MarketPrice(), nil
	}
	return domain.PriceFromString(raw)
}
