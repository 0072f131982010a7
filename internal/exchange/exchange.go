// Package exchange is the facade over the product books: it owns the
// product registry and the market-state machine, and gates every mutating
// call on the current state.
package exchange

import (
	"fmt"
	"sort"
	"sync"

	"github.com/efreitasn/tradebook/internal/book"
	"github.com/efreitasn/tradebook/internal/domain"
)

// Exchange routes submissions, cancels, and queries to per-product books.
//
// Locking: submissions and queries hold the read lock for their full
// duration, so the write-locked market-state transition never interleaves
// with a product mutation; per-product exclusivity comes from each
// ProductBook's own critical section, so operations on different products
// proceed in parallel.
type Exchange struct {
	mu    sync.RWMutex
	state stateMachine
	books map[string]*book.ProductBook
	sink  book.EventSink
}

// New creates an Exchange in the CLOSED state publishing to the given sink.
func New(sink book.EventSink) *Exchange {
	return &Exchange{
		state: newStateMachine(),
		books: make(map[string]*book.ProductBook),
		sink:  sink,
	}
}

// State returns the current market state.
func (e *Exchange) State() domain.MarketState {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state.current
}

// SetMarketState performs a market-state transition. On success a
// market-state event is published, then every product book is opened (on
// OPEN) or swept closed (on CLOSED). The whole transition is one critical
// section: no product can be mutated by a submission while it runs.
func (e *Exchange) SetMarketState(to domain.MarketState) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.state.transitionTo(to); err != nil {
		return err
	}
	e.sink.PublishMarketState(to)

	switch to {
	case domain.MarketOpen:
		for _, b := range e.books {
			b.OpenMarket()
		}
	case domain.MarketClosed:
		for _, b := range e.books {
			b.CloseMarket()
		}
	}
	return nil
}

// CreateProduct registers a new product symbol with an empty book.
func (e *Exchange) CreateProduct(symbol string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if symbol == "" {
		return &domain.ValidationError{Message: "product symbol cannot be empty"}
	}
	if _, ok := e.books[symbol]; ok {
		return fmt.Errorf("%w: %s", domain.ErrProductAlreadyExists, symbol)
	}
	e.books[symbol] = book.NewProductBook(symbol, e.sink)
	return nil
}

// Products returns the registered product symbols, sorted.
func (e *Exchange) Products() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()

	products := make([]string, 0, len(e.books))
	for symbol := range e.books {
		products = append(products, symbol)
	}
	sort.Strings(products)
	return products
}

// SubmitOrder admits a new order and returns its id. It fails while the
// market is CLOSED, for market orders while PREOPEN, for unknown products,
// and for volumes below 1.
func (e *Exchange) SubmitOrder(user, product string, price *domain.Price, volume int64, side domain.Side) (string, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	st := e.state.current
	if st == domain.MarketClosed {
		return "", fmt.Errorf("%w: market is closed", domain.ErrInvalidMarketState)
	}
	if st == domain.MarketPreOpen && price.IsMarket() {
		return "", fmt.Errorf("%w: market orders cannot be submitted during PREOPEN", domain.ErrInvalidMarketState)
	}
	b, ok := e.books[product]
	if !ok {
		return "", fmt.Errorf("%w: %s", domain.ErrNoSuchProduct, product)
	}

	o, err := domain.NewOrder(user, product, price, volume, side)
	if err != nil {
		return "", err
	}
	b.Submit(o, st)
	return o.ID(), nil
}

// SubmitOrderCancel cancels the order with the given id on the named side.
func (e *Exchange) SubmitOrderCancel(product string, side domain.Side, id string) error {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.state.current == domain.MarketClosed {
		return fmt.Errorf("%w: market is closed", domain.ErrInvalidMarketState)
	}
	b, ok := e.books[product]
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrNoSuchProduct, product)
	}
	return b.CancelOrder(side, id)
}

// SubmitQuote validates and admits a two-sided quote, replacing any quote
// the user already has resting on the product. It returns the ids of the
// new BUY and SELL sides.
func (e *Exchange) SubmitQuote(user, product string, buyPrice *domain.Price, buyVolume int64, sellPrice *domain.Price, sellVolume int64) (buyID, sellID string, err error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	st := e.state.current
	if st == domain.MarketClosed {
		return "", "", fmt.Errorf("%w: market is closed", domain.ErrInvalidMarketState)
	}
	b, ok := e.books[product]
	if !ok {
		return "", "", fmt.Errorf("%w: %s", domain.ErrNoSuchProduct, product)
	}

	q, err := domain.NewQuote(user, product, buyPrice, buyVolume, sellPrice, sellVolume)
	if err != nil {
		return "", "", err
	}
	b.SubmitQuote(q, st)
	return q.Buy().ID(), q.Sell().ID(), nil
}

// SubmitQuoteCancel cancels both sides of the user's quote on the product.
// A user with no resting quote is a no-op.
func (e *Exchange) SubmitQuoteCancel(user, product string) error {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.state.current == domain.MarketClosed {
		return fmt.Errorf("%w: market is closed", domain.ErrInvalidMarketState)
	}
	b, ok := e.books[product]
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrNoSuchProduct, product)
	}
	b.CancelQuote(user)
	return nil
}

// BookDepth returns both sides of the product's book, best price first.
func (e *Exchange) BookDepth(product string) (buy, sell []string, err error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	b, ok := e.books[product]
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", domain.ErrNoSuchProduct, product)
	}
	buy, sell = b.Depth()
	return buy, sell, nil
}

// MarketData returns the product's current top-of-book snapshot.
func (e *Exchange) MarketData(product string) (domain.MarketData, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	b, ok := e.books[product]
	if !ok {
		return domain.MarketData{}, fmt.Errorf("%w: %s", domain.ErrNoSuchProduct, product)
	}
	return b.MarketData(), nil
}

// OrdersWithRemainingQty returns snapshots of the user's active entries on
// the product.
func (e *Exchange) OrdersWithRemainingQty(user, product string) ([]domain.TradableSnapshot, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	b, ok := e.books[product]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrNoSuchProduct, product)
	}
	return b.OrdersWithRemainingQty(user), nil
}
