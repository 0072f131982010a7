package book

import (
	"testing"

	"github.com/efreitasn/tradebook/internal/domain"
	"github.com/efreitasn/tradebook/internal/publish"
)

func TestFillAccumulator_MergesSameKey(t *testing.T) {
	acc := newFillAccumulator()
	p := domain.PriceFromUnits(1000)

	acc.record(domain.FillEvent{User: "U1", ID: "a", Price: p, Volume: 10, Details: "leaving 40", Side: domain.SideBuy})
	acc.record(domain.FillEvent{User: "U1", ID: "a", Price: p, Volume: 15, Details: "leaving 25", Side: domain.SideBuy})

	events := acc.Events()
	if len(events) != 1 {
		t.Fatalf("expected 1 merged event, got %d", len(events))
	}
	if events[0].Volume != 25 {
		t.Errorf("expected cumulative volume 25, got %d", events[0].Volume)
	}
	if events[0].Details != "leaving 25" {
		t.Errorf("expected latest details, got %q", events[0].Details)
	}
}

func TestFillAccumulator_DistinctPricesStaySeparate(t *testing.T) {
	acc := newFillAccumulator()

	acc.record(domain.FillEvent{User: "U1", ID: "a", Price: domain.PriceFromUnits(1000), Volume: 10, Details: "leaving 40"})
	acc.record(domain.FillEvent{User: "U1", ID: "a", Price: domain.PriceFromUnits(1010), Volume: 15, Details: "leaving 25"})

	events := acc.Events()
	if len(events) != 2 {
		t.Fatalf("expected 2 events for distinct execution prices, got %d", len(events))
	}
	if events[0].Volume != 10 || events[1].Volume != 15 {
		t.Errorf("unexpected volumes: %d, %d", events[0].Volume, events[1].Volume)
	}
}

func TestFillAccumulator_FirstFillOrder(t *testing.T) {
	acc := newFillAccumulator()
	p := domain.PriceFromUnits(1000)

	acc.record(domain.FillEvent{User: "U1", ID: "a", Price: p, Volume: 1})
	acc.record(domain.FillEvent{User: "U2", ID: "b", Price: p, Volume: 1})
	acc.record(domain.FillEvent{User: "U1", ID: "a", Price: p, Volume: 1})

	events := acc.Events()
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].ID != "a" || events[1].ID != "b" {
		t.Errorf("expected first-fill order [a b], got [%s %s]", events[0].ID, events[1].ID)
	}
}

func TestTryTrade_WalksLevelInArrivalOrder(t *testing.T) {
	sink := publish.NewCapture()
	b := NewProductBook("TGT", sink)
	first := mustOrder(t, "U1", 1000, 20, domain.SideSell)
	second := mustOrder(t, "U2", 1000, 20, domain.SideSell)
	b.sell.AddToBook(first)
	b.sell.AddToBook(second)

	incoming := mustOrder(t, "U3", 1005, 30, domain.SideBuy)
	fills := b.sell.TryTrade(incoming)

	if len(fills) != 3 {
		t.Fatalf("expected 3 merged fill events, got %d", len(fills))
	}
	if fills[0].ID != first.ID() || fills[0].Volume != 20 || fills[0].Details != "leaving 0" {
		t.Errorf("unexpected first fill: %+v", fills[0])
	}
	if fills[1].ID != incoming.ID() || fills[1].Volume != 30 || fills[1].Details != "leaving 0" {
		t.Errorf("unexpected incoming fill: %+v", fills[1])
	}
	if fills[2].ID != second.ID() || fills[2].Volume != 10 || fills[2].Details != "leaving 10" {
		t.Errorf("unexpected second fill: %+v", fills[2])
	}

	if second.RemainingVolume() != 10 {
		t.Errorf("expected second resting order to keep 10, got %d", second.RemainingVolume())
	}
	if got := len(sink.Fills()); got != 3 {
		t.Errorf("expected each merged event published once, got %d", got)
	}
}

func TestTryTrade_ExecutesAtRestingPrice(t *testing.T) {
	b := NewProductBook("TGT", publish.NewCapture())
	b.sell.AddToBook(mustOrder(t, "U1", 1000, 20, domain.SideSell))

	incoming := mustOrder(t, "U2", 1010, 20, domain.SideBuy)
	fills := b.sell.TryTrade(incoming)

	for _, f := range fills {
		if f.Price != domain.PriceFromUnits(1000) {
			t.Errorf("expected execution at the resting price $10.00, got %s", f.Price)
		}
	}
}

func TestTryTrade_WalksMultipleLevels(t *testing.T) {
	b := NewProductBook("TGT", publish.NewCapture())
	b.sell.AddToBook(mustOrder(t, "U1", 1000, 20, domain.SideSell))
	b.sell.AddToBook(mustOrder(t, "U2", 1010, 20, domain.SideSell))

	incoming := mustOrder(t, "U3", 1010, 40, domain.SideBuy)
	fills := b.sell.TryTrade(incoming)

	// One event per resting order plus one per execution price for the
	// incoming order.
	if len(fills) != 4 {
		t.Fatalf("expected 4 fill events, got %d", len(fills))
	}
	if incoming.RemainingVolume() != 0 {
		t.Errorf("expected incoming to fill completely, got %d left", incoming.RemainingVolume())
	}
	if !b.sell.IsEmpty() {
		t.Error("expected the sell side to empty")
	}
}

func TestTryTrade_StopsWhenNoLongerCrossing(t *testing.T) {
	b := NewProductBook("TGT", publish.NewCapture())
	b.sell.AddToBook(mustOrder(t, "U1", 1000, 20, domain.SideSell))
	b.sell.AddToBook(mustOrder(t, "U2", 1050, 20, domain.SideSell))

	incoming := mustOrder(t, "U3", 1000, 40, domain.SideBuy)
	b.sell.TryTrade(incoming)

	if incoming.RemainingVolume() != 20 {
		t.Errorf("expected 20 left after the crossable level emptied, got %d", incoming.RemainingVolume())
	}
	if b.sell.TopOfBookPrice() != domain.PriceFromUnits(1050) {
		t.Error("expected the non-crossing level to survive")
	}
}

func TestMatchTopLevel_FullyFilledIncomingIsArchived(t *testing.T) {
	b := NewProductBook("TGT", publish.NewCapture())
	b.sell.AddToBook(mustOrder(t, "U1", 1000, 20, domain.SideSell))

	incoming := mustOrder(t, "U2", 1000, 20, domain.SideBuy)
	b.sell.TryTrade(incoming)

	// Exact consumption: the incoming tradable is terminal and must resolve
	// as too-late-to-cancel, not unknown.
	if err := b.buy.CancelOrder(incoming.ID()); err != nil {
		t.Errorf("expected archived incoming order to resolve, got %v", err)
	}
}
