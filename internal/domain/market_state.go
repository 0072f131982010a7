package domain

// MarketState is the exchange-wide trading phase.
type MarketState string

const (
	MarketClosed  MarketState = "CLOSED"
	MarketPreOpen MarketState = "PREOPEN"
	MarketOpen    MarketState = "OPEN"
)

// Valid reports whether s names a known market state.
func (s MarketState) Valid() bool {
	switch s {
	case MarketClosed, MarketPreOpen, MarketOpen:
		return true
	}
	return false
}

// CanTransitionTo reports whether the transition s → to is legal:
// CLOSED → {CLOSED, PREOPEN}, PREOPEN → OPEN, OPEN → CLOSED.
func (s MarketState) CanTransitionTo(to MarketState) bool {
	switch s {
	case MarketClosed:
		return to == MarketClosed || to == MarketPreOpen
	case MarketPreOpen:
		return to == MarketOpen
	case MarketOpen:
		return to == MarketClosed
	}
	return false
}
