package book

import (
	"fmt"

	"github.com/google/btree"

	"github.com/efreitasn/tradebook/internal/domain"
)

// priceLevel is one price on one side of the book: an arrival-ordered FIFO
// queue of active tradables. A level exists only while its queue is
// non-empty.
type priceLevel struct {
	price *domain.Price
	queue []*domain.Tradable
}

// levelLess returns the B-tree ordering for one side: Min() is the best
// level. Buy levels order by price descending, sell levels by price
// ascending. The market sentinel sorts best on both sides since it always
// crosses.
func levelLess(side domain.Side) btree.LessFunc[*priceLevel] {
	return func(a, b *priceLevel) bool {
		if a.price.IsMarket() != b.price.IsMarket() {
			return a.price.IsMarket()
		}
		if side == domain.SideBuy {
			return a.price.GreaterThan(b.price)
		}
		return a.price.LessThan(b.price)
	}
}

// BookSide is one side (buy or sell) of a product's book: price levels in a
// B-tree with FIFO queues per level. All methods assume the owning
// ProductBook's critical section is held.
type BookSide struct {
	side      domain.Side
	book      *ProductBook
	levels    *btree.BTreeG[*priceLevel]
	processor *matchingProcessor
}

func newBookSide(book *ProductBook, side domain.Side) *BookSide {
	const degree = 32
	s := &BookSide{
		side:   side,
		book:   book,
		levels: btree.NewG(degree, levelLess(side)),
	}
	s.processor = &matchingProcessor{side: s}
	return s
}

// Side returns which side of the book this is.
func (s *BookSide) Side() domain.Side {
	return s.side
}

func (s *BookSide) topLevel() (*priceLevel, bool) {
	return s.levels.Min()
}

// TopOfBookPrice returns the best price on this side (highest buy, lowest
// sell), or nil if the side holds no levels.
func (s *BookSide) TopOfBookPrice() *domain.Price {
	lvl, ok := s.topLevel()
	if !ok {
		return nil
	}
	return lvl.price
}

// TopOfBookVolume returns the aggregate remaining volume at the best price,
// or 0 if the side is empty.
func (s *BookSide) TopOfBookVolume() int64 {
	lvl, ok := s.topLevel()
	if !ok {
		return 0
	}
	var sum int64
	for _, t := range lvl.queue {
		sum += t.RemainingVolume()
	}
	return sum
}

// Depth returns one "<price> x <volume>" entry per level, best price first,
// or the single sentinel entry "<Empty>" when the side holds no levels.
func (s *BookSide) Depth() []string {
	if s.levels.Len() == 0 {
		return []string{"<Empty>"}
	}
	depth := make([]string, 0, s.levels.Len())
	s.levels.Ascend(func(lvl *priceLevel) bool {
		var sum int64
		for _, t := range lvl.queue {
			sum += t.RemainingVolume()
		}
		depth = append(depth, fmt.Sprintf("%s x %d", lvl.price, sum))
		return true
	})
	return depth
}

// IsEmpty reports whether this side holds no levels.
func (s *BookSide) IsEmpty() bool {
	return s.levels.Len() == 0
}

// AddToBook appends the tradable to the tail of its price's queue, creating
// the level if absent. A market-priced tradable can never rest; submitting
// one here is a caller error.
func (s *BookSide) AddToBook(t *domain.Tradable) {
	if t.Price().IsMarket() {
		panic("book: market-priced tradable cannot rest on the book")
	}
	lvl, ok := s.levels.Get(&priceLevel{price: t.Price()})
	if !ok {
		lvl = &priceLevel{price: t.Price()}
		s.levels.ReplaceOrInsert(lvl)
	}
	lvl.queue = append(lvl.queue, t)
}

// entriesAtPrice returns a copy of the queue at the given price, or nil if
// the level does not exist.
func (s *BookSide) entriesAtPrice(p *domain.Price) []*domain.Tradable {
	lvl, ok := s.levels.Get(&priceLevel{price: p})
	if !ok {
		return nil
	}
	entries := make([]*domain.Tradable, len(lvl.queue))
	copy(entries, lvl.queue)
	return entries
}

// removeTradable removes the tradable from its level, dropping the level if
// it empties. It is a no-op when the tradable is not present.
func (s *BookSide) removeTradable(t *domain.Tradable) {
	lvl, ok := s.levels.Get(&priceLevel{price: t.Price()})
	if !ok {
		return
	}
	for i, entry := range lvl.queue {
		if entry == t {
			lvl.queue = append(lvl.queue[:i], lvl.queue[i+1:]...)
			break
		}
	}
	if len(lvl.queue) == 0 {
		s.levels.Delete(lvl)
	}
}

// find scans all levels for the tradable matching pred, in best-first order.
func (s *BookSide) find(pred func(*domain.Tradable) bool) *domain.Tradable {
	var found *domain.Tradable
	s.levels.Ascend(func(lvl *priceLevel) bool {
		for _, t := range lvl.queue {
			if pred(t) {
				found = t
				return false
			}
		}
		return true
	})
	return found
}

// CancelOrder cancels the active tradable with the given id on this side:
// it is removed, a cancel event is published, and it moves to the archive.
// If the id is not active here, the product's archive is consulted for the
// too-late-to-cancel case; an id found nowhere fails with ErrOrderNotFound.
func (s *BookSide) CancelOrder(id string) error {
	t := s.find(func(t *domain.Tradable) bool { return t.ID() == id })
	if t == nil {
		return s.book.checkTooLateToCancel(id)
	}

	s.removeTradable(t)
	s.book.sink.PublishCancel(domain.CancelEvent{
		User:    t.User(),
		Product: t.Product(),
		Price:   t.Price(),
		Volume:  t.RemainingVolume(),
		Details: fmt.Sprintf("Order %s Cancelled", id),
		Side:    s.side,
		ID:      id,
	})
	s.book.addOldEntry(t)
	return nil
}

// CancelQuote cancels the quote-side entry owned by user on this side. A
// quote may legitimately have only one side resting, or none, so a missing
// entry is a no-op.
func (s *BookSide) CancelQuote(user string) {
	t := s.find(func(t *domain.Tradable) bool { return t.IsQuote() && t.User() == user })
	if t == nil {
		return
	}

	s.removeTradable(t)
	s.book.sink.PublishCancel(domain.CancelEvent{
		User:    t.User(),
		Product: t.Product(),
		Price:   t.Price(),
		Volume:  t.RemainingVolume(),
		Details: fmt.Sprintf("Quote %s-Side Cancelled", s.side),
		Side:    s.side,
		ID:      t.ID(),
	})
	s.book.addOldEntry(t)
}

// cancelAll cancels every remaining entry on this side as a plain order
// cancel. The closing sweep cancels quotes per user, across both sides,
// before calling this.
func (s *BookSide) cancelAll() {
	var all []*domain.Tradable
	s.levels.Ascend(func(lvl *priceLevel) bool {
		all = append(all, lvl.queue...)
		return true
	})
	for _, t := range all {
		s.removeTradable(t)
		s.book.sink.PublishCancel(domain.CancelEvent{
			User:    t.User(),
			Product: t.Product(),
			Price:   t.Price(),
			Volume:  t.RemainingVolume(),
			Details: fmt.Sprintf("Order %s Cancelled", t.ID()),
			Side:    s.side,
			ID:      t.ID(),
		})
		s.book.addOldEntry(t)
	}
}

// OrdersWithRemaining returns snapshots of the user's active entries on
// this side.
func (s *BookSide) OrdersWithRemaining(user string) []domain.TradableSnapshot {
	var snapshots []domain.TradableSnapshot
	s.levels.Ascend(func(lvl *priceLevel) bool {
		for _, t := range lvl.queue {
			if t.User() == user && t.RemainingVolume() > 0 {
				snapshots = append(snapshots, t.Snapshot())
			}
		}
		return true
	})
	return snapshots
}

// crosses reports whether the incoming tradable trades against this side's
// current top of book. The market sentinel always crosses, on either leg.
func (s *BookSide) crosses(incoming *domain.Tradable) bool {
	top := s.TopOfBookPrice()
	if top == nil {
		return false
	}
	if incoming.Price().IsMarket() || top.IsMarket() {
		return true
	}
	if s.side == domain.SideBuy {
		return incoming.Price().LessOrEqual(top)
	}
	return incoming.Price().GreaterOrEqual(top)
}

// TryTrade matches the incoming tradable against this side under price-time
// priority until it is exhausted or no longer crosses. The top of book is
// re-read every pass since a level may empty mid-loop. Fills for the same
// (user, id, price) key are merged; each merged event is published exactly
// once, at loop exit, and the merged events are returned in first-fill
// order.
func (s *BookSide) TryTrade(incoming *domain.Tradable) []domain.FillEvent {
	acc := newFillAccumulator()
	for incoming.RemainingVolume() > 0 && s.levels.Len() > 0 && s.crosses(incoming) {
		s.processor.matchTopLevel(incoming, acc)
	}
	events := acc.Events()
	for _, e := range events {
		s.book.sink.PublishFill(e)
	}
	return events
}
