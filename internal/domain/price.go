package domain

import (
	"fmt"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
)

// Price is an immutable fixed-point price: either a limit price holding a
// signed number of cents, or the market sentinel (no value, rendered "MKT").
//
// Prices are canonicalized by the package-level factory functions: two calls
// producing the same value return the same *Price, so pointer identity and
// value equality coincide and a *Price is safe to use as a map key.
type Price struct {
	units  int64
	market bool
}

var (
	priceMu    sync.RWMutex
	priceCache = make(map[int64]*Price)

	marketSentinel = &Price{market: true}
)

// PriceFromUnits returns the canonical limit price for the given number of
// cents.
func PriceFromUnits(units int64) *Price {
	priceMu.RLock()
	p := priceCache[units]
	priceMu.RUnlock()
	if p != nil {
		return p
	}

	priceMu.Lock()
	defer priceMu.Unlock()
	// Double-check after acquiring write lock.
	if p := priceCache[units]; p != nil {
		return p
	}
	p = &Price{units: units}
	priceCache[units] = p
	return p
}

// PriceFromString parses a decimal price string such as "10", "10.25" or
// "$1,234.50" and returns the canonical limit price. Currency formatting is
// stripped before parsing. Values with more than two decimal places are
// rounded to the nearest cent, ties away from zero.
func PriceFromString(value string) (*Price, error) {
	cleaned := strings.NewReplacer("$", "", ",", "").Replace(strings.TrimSpace(value))
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return nil, &ValidationError{Message: fmt.Sprintf("invalid price %q", value)}
	}
	return PriceFromUnits(d.Shift(2).Round(0).IntPart()), nil
}

// MarketPrice returns the canonical market-price sentinel.
func MarketPrice() *Price {
	return marketSentinel
}

// IsMarket reports whether this is the market sentinel.
func (p *Price) IsMarket() bool {
	return p.market
}

// IsNegative reports whether this is a negative limit price.
func (p *Price) IsNegative() bool {
	return !p.market && p.units < 0
}

// Units returns the price in cents. It is zero for the market sentinel.
func (p *Price) Units() int64 {
	return p.units
}

// Add returns the canonical sum of two limit prices. It fails if either
// operand is the market sentinel.
func (p *Price) Add(other *Price) (*Price, error) {
	if p.market || other.market {
		return nil, fmt.Errorf("%w: cannot add a MARKET price", ErrInvalidPriceOperation)
	}
	return PriceFromUnits(p.units + other.units), nil
}

// Sub returns the canonical difference of two limit prices. It fails if
// either operand is the market sentinel.
func (p *Price) Sub(other *Price) (*Price, error) {
	if p.market || other.market {
		return nil, fmt.Errorf("%w: cannot subtract a MARKET price", ErrInvalidPriceOperation)
	}
	return PriceFromUnits(p.units - other.units), nil
}

// Mul returns the canonical product of a limit price and an integer factor.
// It fails on the market sentinel.
func (p *Price) Mul(by int64) (*Price, error) {
	if p.market {
		return nil, fmt.Errorf("%w: cannot multiply a MARKET price", ErrInvalidPriceOperation)
	}
	return PriceFromUnits(p.units * by), nil
}

// Cmp compares two prices by underlying value: -1 if p < other, 0 if equal,
// +1 if p > other. The market sentinel compares by its zero value; crossing
// logic handles the sentinel before ordering ever matters.
func (p *Price) Cmp(other *Price) int {
	switch {
	case p.units < other.units:
		return -1
	case p.units > other.units:
		return 1
	default:
		return 0
	}
}

// Equal reports value equality. Because prices are interned this is
// equivalent to pointer equality.
func (p *Price) Equal(other *Price) bool {
	return p == other
}

// GreaterThan reports p > other by underlying value.
func (p *Price) GreaterThan(other *Price) bool { return p.Cmp(other) > 0 }

// GreaterOrEqual reports p >= other by underlying value.
func (p *Price) GreaterOrEqual(other *Price) bool { return p.Cmp(other) >= 0 }

// LessThan reports p < other by underlying value.
func (p *Price) LessThan(other *Price) bool { return p.Cmp(other) < 0 }

// LessOrEqual reports p <= other by underlying value.
func (p *Price) LessOrEqual(other *Price) bool { return p.Cmp(other) <= 0 }

// String renders a limit price as dollars with two decimal places and
// thousands separators ("$1,234.50", "-$0.75") and the market sentinel as
// "MKT".
func (p *Price) String() string {
	if p.market {
		return "MKT"
	}

	units := p.units
	sign := ""
	if units < 0 {
		sign = "-"
		units = -units
	}

	dollars := units / 100
	cents := units % 100

	return fmt.Sprintf("%s$%s.%02d", sign, groupThousands(dollars), cents)
}

// groupThousands renders a non-negative integer with comma separators.
func groupThousands(n int64) string {
	s := fmt.Sprintf("%d", n)
	if len(s) <= 3 {
		return s
	}
	var b strings.Builder
	lead := len(s) % 3
	if lead > 0 {
		b.WriteString(s[:lead])
	}
	for i := lead; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}
