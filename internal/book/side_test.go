package book

import (
	"errors"
	"testing"

	"github.com/efreitasn/tradebook/internal/domain"
	"github.com/efreitasn/tradebook/internal/publish"
)

func mustOrder(t *testing.T, user string, priceUnits int64, volume int64, side domain.Side) *domain.Tradable {
	t.Helper()
	o, err := domain.NewOrder(user, "TGT", domain.PriceFromUnits(priceUnits), volume, side)
	if err != nil {
		t.Fatalf("failed to create order: %v", err)
	}
	return o
}

func mustMarketOrder(t *testing.T, user string, volume int64, side domain.Side) *domain.Tradable {
	t.Helper()
	o, err := domain.NewOrder(user, "TGT", domain.MarketPrice(), volume, side)
	if err != nil {
		t.Fatalf("failed to create order: %v", err)
	}
	return o
}

func TestBookSide_BuyOrdersDescending(t *testing.T) {
	b := NewProductBook("TGT", publish.NewCapture())
	b.buy.AddToBook(mustOrder(t, "U1", 1000, 10, domain.SideBuy))
	b.buy.AddToBook(mustOrder(t, "U2", 1050, 10, domain.SideBuy))
	b.buy.AddToBook(mustOrder(t, "U3", 950, 10, domain.SideBuy))

	if top := b.buy.TopOfBookPrice(); top != domain.PriceFromUnits(1050) {
		t.Errorf("expected top buy $10.50, got %s", top)
	}
	depth := b.buy.Depth()
	want := []string{"$10.50 x 10", "$10.00 x 10", "$9.50 x 10"}
	if len(depth) != len(want) {
		t.Fatalf("expected %d levels, got %d", len(want), len(depth))
	}
	for i := range want {
		if depth[i] != want[i] {
			t.Errorf("level %d: expected %q, got %q", i, want[i], depth[i])
		}
	}
}

func TestBookSide_SellOrdersAscending(t *testing.T) {
	b := NewProductBook("TGT", publish.NewCapture())
	b.sell.AddToBook(mustOrder(t, "U1", 1000, 10, domain.SideSell))
	b.sell.AddToBook(mustOrder(t, "U2", 1050, 10, domain.SideSell))
	b.sell.AddToBook(mustOrder(t, "U3", 950, 10, domain.SideSell))

	if top := b.sell.TopOfBookPrice(); top != domain.PriceFromUnits(950) {
		t.Errorf("expected top sell $9.50, got %s", top)
	}
}

func TestBookSide_EmptyDepthSentinel(t *testing.T) {
	b := NewProductBook("TGT", publish.NewCapture())
	depth := b.buy.Depth()
	if len(depth) != 1 || depth[0] != "<Empty>" {
		t.Errorf("expected [\"<Empty>\"], got %v", depth)
	}
	if b.buy.TopOfBookPrice() != nil {
		t.Error("expected nil top price on empty side")
	}
	if b.buy.TopOfBookVolume() != 0 {
		t.Error("expected zero top volume on empty side")
	}
}

func TestBookSide_TopVolumeAggregatesLevel(t *testing.T) {
	b := NewProductBook("TGT", publish.NewCapture())
	b.buy.AddToBook(mustOrder(t, "U1", 1000, 10, domain.SideBuy))
	b.buy.AddToBook(mustOrder(t, "U2", 1000, 15, domain.SideBuy))
	b.buy.AddToBook(mustOrder(t, "U3", 900, 99, domain.SideBuy))

	if vol := b.buy.TopOfBookVolume(); vol != 25 {
		t.Errorf("expected aggregate top volume 25, got %d", vol)
	}
}

func TestBookSide_AddMarketPricePanics(t *testing.T) {
	b := NewProductBook("TGT", publish.NewCapture())
	defer func() {
		if recover() == nil {
			t.Error("expected panic when resting a market-priced tradable")
		}
	}()
	b.buy.AddToBook(mustMarketOrder(t, "U1", 10, domain.SideBuy))
}

func TestBookSide_CancelOrder(t *testing.T) {
	sink := publish.NewCapture()
	b := NewProductBook("TGT", sink)
	o := mustOrder(t, "U1", 1000, 50, domain.SideBuy)
	b.buy.AddToBook(o)

	if err := b.buy.CancelOrder(o.ID()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !b.buy.IsEmpty() {
		t.Error("expected the side to be empty after cancel")
	}

	cancels := sink.Cancels()
	if len(cancels) != 1 {
		t.Fatalf("expected 1 cancel event, got %d", len(cancels))
	}
	e := cancels[0]
	if e.Details != "Order "+o.ID()+" Cancelled" {
		t.Errorf("unexpected details %q", e.Details)
	}
	if e.Volume != 50 {
		t.Errorf("expected cancelled volume 50, got %d", e.Volume)
	}
	if o.RemainingVolume() != 0 || o.CancelledVolume() != 50 {
		t.Errorf("expected archived order to move remaining to cancelled, got remaining=%d cancelled=%d",
			o.RemainingVolume(), o.CancelledVolume())
	}
}

func TestBookSide_CancelUnknownOrder(t *testing.T) {
	b := NewProductBook("TGT", publish.NewCapture())
	if err := b.buy.CancelOrder("nope"); !errors.Is(err, domain.ErrOrderNotFound) {
		t.Errorf("expected ErrOrderNotFound, got %v", err)
	}
}

func TestBookSide_CancelQuoteIgnoresPlainOrders(t *testing.T) {
	sink := publish.NewCapture()
	b := NewProductBook("TGT", sink)
	b.buy.AddToBook(mustOrder(t, "U1", 1000, 50, domain.SideBuy))

	b.buy.CancelQuote("U1")
	if b.buy.IsEmpty() {
		t.Error("expected the plain order to survive a quote cancel")
	}
	if len(sink.Cancels()) != 0 {
		t.Error("expected no cancel events")
	}
}

func TestBookSide_Crosses(t *testing.T) {
	b := NewProductBook("TGT", publish.NewCapture())
	b.sell.AddToBook(mustOrder(t, "U1", 1000, 10, domain.SideSell))

	if !b.sell.crosses(mustOrder(t, "U2", 1000, 10, domain.SideBuy)) {
		t.Error("expected buy at the sell top to cross")
	}
	if !b.sell.crosses(mustOrder(t, "U2", 1010, 10, domain.SideBuy)) {
		t.Error("expected buy above the sell top to cross")
	}
	if b.sell.crosses(mustOrder(t, "U2", 990, 10, domain.SideBuy)) {
		t.Error("expected buy below the sell top to not cross")
	}
	if !b.sell.crosses(mustMarketOrder(t, "U2", 10, domain.SideBuy)) {
		t.Error("expected a market order to always cross a non-empty side")
	}
	if b.buy.crosses(mustMarketOrder(t, "U2", 10, domain.SideSell)) {
		t.Error("expected nothing to cross an empty side")
	}
}
