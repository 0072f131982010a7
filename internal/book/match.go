package book

import (
	"fmt"

	"github.com/efreitasn/tradebook/internal/domain"
)

// fillKey identifies the fills of one tradable at one execution price
// within a single matching operation.
type fillKey struct {
	user  string
	id    string
	price *domain.Price
}

// fillAccumulator collects fill events in first-fill order, merging repeated
// fills for the same key: the recorded volume becomes the cumulative
// quantity filled so far and the details string is overwritten with the
// latest value.
type fillAccumulator struct {
	order  []fillKey
	events map[fillKey]*domain.FillEvent
}

func newFillAccumulator() *fillAccumulator {
	return &fillAccumulator{events: make(map[fillKey]*domain.FillEvent)}
}

// record merges one fill step into the accumulator. e.Volume is the
// quantity traded in this step.
func (a *fillAccumulator) record(e domain.FillEvent) {
	k := fillKey{user: e.User, id: e.ID, price: e.Price}
	if prev, ok := a.events[k]; ok {
		prev.Volume += e.Volume
		prev.Details = e.Details
		return
	}
	cp := e
	a.events[k] = &cp
	a.order = append(a.order, k)
}

// Events returns the merged fill events in first-fill order.
func (a *fillAccumulator) Events() []domain.FillEvent {
	events := make([]domain.FillEvent, 0, len(a.order))
	for _, k := range a.order {
		events = append(events, *a.events[k])
	}
	return events
}

// matchingProcessor executes one matching pass of an incoming tradable
// against its side's current top price level, walking the level's queue in
// arrival order.
type matchingProcessor struct {
	side *BookSide
}

// matchTopLevel runs one pass. For each resting entry: if the incoming
// volume covers it, the resting entry fully fills and is archived; otherwise
// the incoming tradable fully fills, is archived, and the pass ends. Both
// legs execute at the resting price, unless the resting price is the market
// sentinel, in which case both execute at the incoming price. Fully-filled
// resting entries are purged from the level and the level is dropped once
// empty.
func (p *matchingProcessor) matchTopLevel(incoming *domain.Tradable, acc *fillAccumulator) {
	lvl, ok := p.side.topLevel()
	if !ok {
		return
	}

	var tradedOut []*domain.Tradable
	for _, t := range lvl.queue {
		if incoming.RemainingVolume() == 0 {
			break
		}

		execPrice := t.Price()
		if execPrice.IsMarket() {
			execPrice = incoming.Price()
		}

		if incoming.RemainingVolume() >= t.RemainingVolume() {
			// Resting entry fully fills.
			qty := t.RemainingVolume()
			acc.record(domain.FillEvent{
				User:    t.User(),
				Product: t.Product(),
				Price:   execPrice,
				Volume:  qty,
				Details: "leaving 0",
				Side:    t.Side(),
				ID:      t.ID(),
			})
			mustSetRemaining(incoming, incoming.RemainingVolume()-qty)
			acc.record(domain.FillEvent{
				User:    incoming.User(),
				Product: incoming.Product(),
				Price:   execPrice,
				Volume:  qty,
				Details: fmt.Sprintf("leaving %d", incoming.RemainingVolume()),
				Side:    incoming.Side(),
				ID:      incoming.ID(),
			})
			mustSetRemaining(t, 0)
			p.side.book.addOldEntry(t)
			tradedOut = append(tradedOut, t)
			if incoming.RemainingVolume() == 0 {
				p.side.book.addOldEntry(incoming)
			}
		} else {
			// Incoming tradable fully fills against a larger resting entry.
			qty := incoming.RemainingVolume()
			mustSetRemaining(t, t.RemainingVolume()-qty)
			acc.record(domain.FillEvent{
				User:    t.User(),
				Product: t.Product(),
				Price:   execPrice,
				Volume:  qty,
				Details: fmt.Sprintf("leaving %d", t.RemainingVolume()),
				Side:    t.Side(),
				ID:      t.ID(),
			})
			mustSetRemaining(incoming, 0)
			acc.record(domain.FillEvent{
				User:    incoming.User(),
				Product: incoming.Product(),
				Price:   execPrice,
				Volume:  qty,
				Details: "leaving 0",
				Side:    incoming.Side(),
				ID:      incoming.ID(),
			})
			p.side.book.addOldEntry(incoming)
			break
		}
	}

	if len(tradedOut) > 0 {
		kept := lvl.queue[:0]
		for _, t := range lvl.queue {
			traded := false
			for _, out := range tradedOut {
				if t == out {
					traded = true
					break
				}
			}
			if !traded {
				kept = append(kept, t)
			}
		}
		lvl.queue = kept
	}
	if len(lvl.queue) == 0 {
		p.side.levels.Delete(lvl)
	}
}

// mustSetRemaining applies a volume mutation that matching has already
// proven valid. A failure here means the matching loop broke volume
// conservation, which is a programming error, not a runtime condition.
func mustSetRemaining(t *domain.Tradable, v int64) {
	if err := t.SetRemainingVolume(v); err != nil {
		panic(fmt.Sprintf("book: matching broke volume conservation for %s: %v", t.ID(), err))
	}
}

func mustSetCancelled(t *domain.Tradable, v int64) {
	if err := t.SetCancelledVolume(v); err != nil {
		panic(fmt.Sprintf("book: cancellation broke volume conservation for %s: %v", t.ID(), err))
	}
}
