package domain

import "errors"

// Sentinel errors for domain-level error handling.
// The handler layer maps these to HTTP status codes.
var (
	ErrInvalidVolume                = errors.New("invalid_volume")
	ErrInvalidPriceOperation        = errors.New("invalid_price_operation")
	ErrOrderNotFound                = errors.New("order_not_found")
	ErrInvalidMarketState           = errors.New("invalid_market_state")
	ErrInvalidMarketStateTransition = errors.New("invalid_market_state_transition")
	ErrNoSuchProduct                = errors.New("no_such_product")
	ErrProductAlreadyExists         = errors.New("product_already_exists")
)

// ValidationError represents a request validation failure.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}
