package book

import (
	"fmt"
	"sync"

	"github.com/efreitasn/tradebook/internal/domain"
)

// EventSink receives the events the book emits. Fan-out to subscribers is
// the implementation's responsibility; the book only requires that delivery
// to any single subscriber preserves the order of publication per product.
type EventSink interface {
	PublishFill(e domain.FillEvent)
	PublishCancel(e domain.CancelEvent)
	PublishMarketData(md domain.MarketData)
	PublishLastSale(product string, price *domain.Price, volume int64)
	PublishMarketState(state domain.MarketState)
}

// marketKey is the de-duplication key for market-data publication. Prices
// are canonical pointers, so struct equality compares values.
type marketKey struct {
	buyPrice   *domain.Price
	buyVolume  int64
	sellPrice  *domain.Price
	sellVolume int64
}

// ProductBook owns both sides of one product's book, the archive of
// terminal tradables, and the per-product critical section: every public
// method locks the book for its duration, and the inner components
// (BookSide, matchingProcessor) assume that lock is held.
type ProductBook struct {
	mu      sync.Mutex
	product string
	buy     *BookSide
	sell    *BookSide
	sink    EventSink

	// archive holds terminal tradables keyed by the price they last held,
	// append-only, for late-cancel queries.
	archive     map[*domain.Price][]*domain.Tradable
	quoteOwners map[string]bool

	lastMarket marketKey
	published  bool
}

// NewProductBook creates an empty book for the given product symbol.
func NewProductBook(product string, sink EventSink) *ProductBook {
	b := &ProductBook{
		product:     product,
		sink:        sink,
		archive:     make(map[*domain.Price][]*domain.Tradable),
		quoteOwners: make(map[string]bool),
	}
	b.buy = newBookSide(b, domain.SideBuy)
	b.sell = newBookSide(b, domain.SideSell)
	return b
}

// Product returns the product symbol.
func (b *ProductBook) Product() string {
	return b.product
}

// Submit admits one tradable. During PREOPEN it rests directly on its side
// with no matching (market-priced submissions are rejected upstream).
// Otherwise it is matched against the opposite side; any limit remainder
// rests, while a market remainder is cancelled and archived since a market
// order can never rest. The market snapshot is recomputed at the end of the
// call and republished if it changed.
func (b *ProductBook) Submit(t *domain.Tradable, state domain.MarketState) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.submit(t, state)
	b.updateCurrentMarket()
}

func (b *ProductBook) submit(t *domain.Tradable, state domain.MarketState) {
	own, opposite := b.sidesFor(t.Side())

	if state == domain.MarketPreOpen {
		own.AddToBook(t)
		return
	}

	fills := opposite.TryTrade(t)
	if len(fills) > 0 {
		b.updateCurrentMarket()
		price, volume := lastSale(fills)
		b.sink.PublishLastSale(b.product, price, volume)
	}

	if t.RemainingVolume() > 0 {
		if t.Price().IsMarket() {
			b.sink.PublishCancel(domain.CancelEvent{
				User:    t.User(),
				Product: t.Product(),
				Price:   t.Price(),
				Volume:  t.RemainingVolume(),
				Details: "Cancelled",
				Side:    t.Side(),
				ID:      t.ID(),
			})
			b.addOldEntry(t)
		} else {
			own.AddToBook(t)
		}
	}
}

// SubmitQuote replaces the user's quote atomically: any resting quote is
// cancelled on both sides first, then the new BUY and SELL sides are each
// admitted through the standard submission path. The quote itself was
// validated at construction, before any mutation.
func (b *ProductBook) SubmitQuote(q *domain.Quote, state domain.MarketState) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.quoteOwners[q.User()] {
		b.buy.CancelQuote(q.User())
		b.sell.CancelQuote(q.User())
		b.updateCurrentMarket()
	}

	b.submit(q.Buy(), state)
	b.submit(q.Sell(), state)
	b.quoteOwners[q.User()] = true
	b.updateCurrentMarket()
}

// CancelOrder cancels the tradable with the given id on the named side.
// An id that was already consumed by matching resolves via the archive as
// an informational "Too Late to Cancel"; an unknown id fails with
// ErrOrderNotFound.
func (b *ProductBook) CancelOrder(side domain.Side, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	own, _ := b.sidesFor(side)
	if err := own.CancelOrder(id); err != nil {
		return err
	}
	b.updateCurrentMarket()
	return nil
}

// CancelQuote cancels both sides of the user's quote as a unit. Absent
// sides are no-ops.
func (b *ProductBook) CancelQuote(user string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.buy.CancelQuote(user)
	b.sell.CancelQuote(user)
	delete(b.quoteOwners, user)
	b.updateCurrentMarket()
}

// OpenMarket runs the opening auction: while the books cross, every entry
// at the top buy price is traded against the sell side in arrival order,
// round after round, until no more crossing exists.
func (b *ProductBook) OpenMarket() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for {
		buyTop := b.buy.TopOfBookPrice()
		sellTop := b.sell.TopOfBookPrice()
		if buyTop == nil || sellTop == nil {
			return
		}
		if !buyTop.IsMarket() && !sellTop.IsMarket() && !buyTop.GreaterOrEqual(sellTop) {
			return
		}

		var roundFills []domain.FillEvent
		for _, t := range b.buy.entriesAtPrice(buyTop) {
			roundFills = append(roundFills, b.sell.TryTrade(t)...)
			if t.RemainingVolume() == 0 {
				b.buy.removeTradable(t)
			}
		}

		b.updateCurrentMarket()
		if len(roundFills) == 0 {
			return
		}
		price, volume := lastSale(roundFills)
		b.sink.PublishLastSale(b.product, price, volume)
	}
}

// CloseMarket cancels all resting interest: quotes per user as a unit
// across both sides, then remaining orders individually, then republishes
// the now-empty snapshot.
func (b *ProductBook) CloseMarket() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for user := range b.quoteOwners {
		b.buy.CancelQuote(user)
		b.sell.CancelQuote(user)
	}
	clear(b.quoteOwners)

	b.buy.cancelAll()
	b.sell.cancelAll()
	b.updateCurrentMarket()
}

// Depth returns both sides' book depth, best price first.
func (b *ProductBook) Depth() (buy, sell []string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buy.Depth(), b.sell.Depth()
}

// MarketData returns the current top-of-book snapshot. Empty sides report
// the zero limit price.
func (b *ProductBook) MarketData() domain.MarketData {
	b.mu.Lock()
	defer b.mu.Unlock()
	k := b.marketKey()
	return domain.MarketData{
		Product:    b.product,
		BuyPrice:   k.buyPrice,
		BuyVolume:  k.buyVolume,
		SellPrice:  k.sellPrice,
		SellVolume: k.sellVolume,
	}
}

// OrdersWithRemainingQty returns snapshots of the user's active entries on
// both sides.
func (b *ProductBook) OrdersWithRemainingQty(user string) []domain.TradableSnapshot {
	b.mu.Lock()
	defer b.mu.Unlock()

	snapshots := b.buy.OrdersWithRemaining(user)
	return append(snapshots, b.sell.OrdersWithRemaining(user)...)
}

func (b *ProductBook) sidesFor(side domain.Side) (own, opposite *BookSide) {
	if side == domain.SideBuy {
		return b.buy, b.sell
	}
	return b.sell, b.buy
}

// addOldEntry moves a terminal tradable into the archive bucket for the
// price it last held, moving any remaining volume to cancelled so volume
// conservation holds across the transition.
func (b *ProductBook) addOldEntry(t *domain.Tradable) {
	remaining := t.RemainingVolume()
	mustSetRemaining(t, 0)
	mustSetCancelled(t, remaining)
	b.archive[t.Price()] = append(b.archive[t.Price()], t)
}

// checkTooLateToCancel resolves a cancel for an id that is no longer
// active: if the id is archived, an informational cancel event is published
// and the cancel succeeds; otherwise it fails with ErrOrderNotFound.
func (b *ProductBook) checkTooLateToCancel(id string) error {
	for _, entries := range b.archive {
		for _, t := range entries {
			if t.ID() == id {
				b.sink.PublishCancel(domain.CancelEvent{
					User:    t.User(),
					Product: t.Product(),
					Price:   t.Price(),
					Volume:  t.RemainingVolume(),
					Details: "Too Late to Cancel",
					Side:    t.Side(),
					ID:      id,
				})
				return nil
			}
		}
	}
	return fmt.Errorf("%w: %s", domain.ErrOrderNotFound, id)
}

func (b *ProductBook) marketKey() marketKey {
	zero := domain.PriceFromUnits(0)
	bp := b.buy.TopOfBookPrice()
	if bp == nil {
		bp = zero
	}
	sp := b.sell.TopOfBookPrice()
	if sp == nil {
		sp = zero
	}
	return marketKey{
		buyPrice:   bp,
		buyVolume:  b.buy.TopOfBookVolume(),
		sellPrice:  sp,
		sellVolume: b.sell.TopOfBookVolume(),
	}
}

// updateCurrentMarket republishes the market snapshot if the best price or
// aggregate top volume on either side changed since the last publication.
func (b *ProductBook) updateCurrentMarket() {
	k := b.marketKey()
	if b.published && k == b.lastMarket {
		return
	}
	b.lastMarket = k
	b.published = true
	b.sink.PublishMarketData(domain.MarketData{
		Product:    b.product,
		BuyPrice:   k.buyPrice,
		BuyVolume:  k.buyVolume,
		SellPrice:  k.sellPrice,
		SellVolume: k.sellVolume,
	})
}

// lastSale picks the fill at the best execution price: lowest price,
// earliest fill on ties.
func lastSale(fills []domain.FillEvent) (*domain.Price, int64) {
	best := fills[0]
	for _, f := range fills[1:] {
		if f.Price.LessThan(best.Price) {
			best = f
		}
	}
	return best.Price, best.Volume
}
