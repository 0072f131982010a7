package domain

// FillEvent describes one leg of a trade. Volume carries the cumulative
// quantity of the tradable filled within the matching operation that
// produced the event: a later partial fill against the same
// (user, id, price) key updates the recorded volume and details rather than
// producing a second event.
type FillEvent struct {
	User    string
	Product string
	Price   *Price
	Volume  int64
	Details string
	Side    Side
	ID      string
}

// CancelEvent describes one cancellation, including the informational
// "Too Late to Cancel" case for already-terminal tradables.
type CancelEvent struct {
	User    string
	Product string
	Price   *Price
	Volume  int64
	Details string
	Side    Side
	ID      string
}

// MarketData is the top-of-book snapshot published whenever either side's
// best price or aggregate top volume changes. An empty side is published as
// the zero limit price with zero volume.
type MarketData struct {
	Product    string
	BuyPrice   *Price
	BuyVolume  int64
	SellPrice  *Price
	SellVolume int64
}
