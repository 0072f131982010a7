package domain

import (
	"fmt"

	"github.com/google/uuid"
)

// Side indicates which side of the book a tradable belongs to.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// ParseSide converts a request string to a Side.
func ParseSide(s string) (Side, error) {
	switch Side(s) {
	case SideBuy, SideSell:
		return Side(s), nil
	}
	return "", &ValidationError{Message: fmt.Sprintf("side must be %q or %q", SideBuy, SideSell)}
}

// Opposite returns the other side of the book.
func (s Side) Opposite() Side {
	if s == SideBuy {
		return SideSell
	}
	return SideBuy
}

// Tradable is a unit of resting interest: a plain order, or one side of a
// two-sided quote. Volume conservation holds at every observable point:
//
//	original == remaining + cancelled
//
// with all three non-negative and original fixed at creation. Only matching
// and cancellation mutate a tradable, and only through the volume setters.
type Tradable struct {
	id              string
	user            string
	product         string
	side            Side
	price           *Price
	originalVolume  int64
	remainingVolume int64
	cancelledVolume int64
	quote           bool
}

// NewOrder creates a single-sided order. The original volume must be at
// least 1.
func NewOrder(user, product string, price *Price, volume int64, side Side) (*Tradable, error) {
	return newTradable(user, product, price, volume, side, false)
}

func newTradable(user, product string, price *Price, volume int64, side Side, quote bool) (*Tradable, error) {
	if volume < 1 {
		return nil, fmt.Errorf("%w: original volume %d", ErrInvalidVolume, volume)
	}
	return &Tradable{
		id:              uuid.New().String(),
		user:            user,
		product:         product,
		side:            side,
		price:           price,
		originalVolume:  volume,
		remainingVolume: volume,
		quote:           quote,
	}, nil
}

// ID returns the tradable's unique identifier.
func (t *Tradable) ID() string { return t.id }

// User returns the owning user name.
func (t *Tradable) User() string { return t.user }

// Product returns the product symbol.
func (t *Tradable) Product() string { return t.product }

// Side returns the book side.
func (t *Tradable) Side() Side { return t.side }

// Price returns the canonical price.
func (t *Tradable) Price() *Price { return t.price }

// OriginalVolume returns the volume at creation.
func (t *Tradable) OriginalVolume() int64 { return t.originalVolume }

// RemainingVolume returns the volume still available to trade.
func (t *Tradable) RemainingVolume() int64 { return t.remainingVolume }

// CancelledVolume returns the volume removed by cancellation.
func (t *Tradable) CancelledVolume() int64 { return t.cancelledVolume }

// IsQuote reports whether this tradable is one side of a quote.
func (t *Tradable) IsQuote() bool { return t.quote }

// SetRemainingVolume updates the remaining volume, enforcing volume
// conservation.
func (t *Tradable) SetRemainingVolume(v int64) error {
	if v < 0 {
		return fmt.Errorf("%w: remaining volume cannot be negative", ErrInvalidVolume)
	}
	if v+t.cancelledVolume > t.originalVolume {
		return fmt.Errorf("%w: remaining %d plus cancelled %d exceeds original %d",
			ErrInvalidVolume, v, t.cancelledVolume, t.originalVolume)
	}
	t.remainingVolume = v
	return nil
}

// SetCancelledVolume updates the cancelled volume, enforcing volume
// conservation.
func (t *Tradable) SetCancelledVolume(v int64) error {
	if v < 0 {
		return fmt.Errorf("%w: cancelled volume cannot be negative", ErrInvalidVolume)
	}
	if v+t.remainingVolume > t.originalVolume {
		return fmt.Errorf("%w: cancelled %d plus remaining %d exceeds original %d",
			ErrInvalidVolume, v, t.remainingVolume, t.originalVolume)
	}
	t.cancelledVolume = v
	return nil
}

// Snapshot returns an immutable copy of the tradable's current state.
func (t *Tradable) Snapshot() TradableSnapshot {
	return TradableSnapshot{
		Product:         t.product,
		Price:           t.price,
		OriginalVolume:  t.originalVolume,
		RemainingVolume: t.remainingVolume,
		CancelledVolume: t.cancelledVolume,
		User:            t.user,
		Side:            t.side,
		IsQuote:         t.quote,
		ID:              t.id,
	}
}

func (t *Tradable) String() string {
	return fmt.Sprintf("%s %s %d %s at %s (Original Vol: %d, CXL'd Vol: %d), ID: %s",
		t.user, t.side, t.remainingVolume, t.product, t.price,
		t.originalVolume, t.cancelledVolume, t.id)
}

// TradableSnapshot is a point-in-time record of a tradable, used by query
// results.
type TradableSnapshot struct {
	Product         string
	Price           *Price
	OriginalVolume  int64
	RemainingVolume int64
	CancelledVolume int64
	User            string
	Side            Side
	IsQuote         bool
	ID              string
}

// Quote is a user's two-sided interest in one product: exactly one BUY-side
// and one SELL-side tradable, created and validated together. A quote that
// fails validation has no effect at all.
type Quote struct {
	user    string
	product string
	buy     *Tradable
	sell    *Tradable
}

// NewQuote validates and creates a two-sided quote. The sell price must be
// strictly greater than the buy price, both prices must be positive limit
// prices, and both volumes must be at least 1.
func NewQuote(user, product string, buyPrice *Price, buyVolume int64, sellPrice *Price, sellVolume int64) (*Quote, error) {
	if buyPrice.IsMarket() || sellPrice.IsMarket() {
		return nil, &ValidationError{Message: "quote prices must be limit prices"}
	}
	if sellPrice.LessOrEqual(buyPrice) {
		return nil, &ValidationError{Message: fmt.Sprintf(
			"quote is crossed: sell price %s must be greater than buy price %s", sellPrice, buyPrice)}
	}
	zero := PriceFromUnits(0)
	if buyPrice.LessOrEqual(zero) || sellPrice.LessOrEqual(zero) {
		return nil, &ValidationError{Message: "quote prices must be positive"}
	}
	if buyVolume < 1 || sellVolume < 1 {
		return nil, &ValidationError{Message: "quote volumes must be at least 1"}
	}

	buy, err := newTradable(user, product, buyPrice, buyVolume, SideBuy, true)
	if err != nil {
		return nil, err
	}
	sell, err := newTradable(user, product, sellPrice, sellVolume, SideSell, true)
	if err != nil {
		return nil, err
	}

	return &Quote{user: user, product: product, buy: buy, sell: sell}, nil
}

// User returns the quoting user.
func (q *Quote) User() string { return q.user }

// Product returns the quoted product symbol.
func (q *Quote) Product() string { return q.product }

// Buy returns the BUY-side tradable.
func (q *Quote) Buy() *Tradable { return q.buy }

// Sell returns the SELL-side tradable.
func (q *Quote) Sell() *Tradable { return q.sell }

func (q *Quote) String() string {
	return fmt.Sprintf("%s %s %s - %s", q.user, q.product, q.buy, q.sell)
}
