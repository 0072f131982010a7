package publish

import (
	"sync"

	"github.com/efreitasn/tradebook/internal/domain"
)

// LastSale is a recorded last-sale publication.
type LastSale struct {
	Product string
	Price   *domain.Price
	Volume  int64
}

// Capture is a Sink that records every publication in order, for tests.
type Capture struct {
	mu         sync.Mutex
	fills      []domain.FillEvent
	cancels    []domain.CancelEvent
	marketData []domain.MarketData
	lastSales  []LastSale
	states     []domain.MarketState
}

// NewCapture creates an empty Capture.
func NewCapture() *Capture {
	return &Capture{}
}

func (c *Capture) PublishFill(e domain.FillEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fills = append(c.fills, e)
}

func (c *Capture) PublishCancel(e domain.CancelEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancels = append(c.cancels, e)
}

func (c *Capture) PublishMarketData(md domain.MarketData) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.marketData = append(c.marketData, md)
}

func (c *Capture) PublishLastSale(product string, price *domain.Price, volume int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastSales = append(c.lastSales, LastSale{Product: product, Price: price, Volume: volume})
}

func (c *Capture) PublishMarketState(state domain.MarketState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.states = append(c.states, state)
}

// Fills returns the recorded fill events.
func (c *Capture) Fills() []domain.FillEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]domain.FillEvent(nil), c.fills...)
}

// Cancels returns the recorded cancel events.
func (c *Capture) Cancels() []domain.CancelEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]domain.CancelEvent(nil), c.cancels...)
}

// MarketData returns the recorded market-data publications.
func (c *Capture) MarketData() []domain.MarketData {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]domain.MarketData(nil), c.marketData...)
}

// LastSales returns the recorded last-sale publications.
func (c *Capture) LastSales() []LastSale {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]LastSale(nil), c.lastSales...)
}

// States returns the recorded market-state publications.
func (c *Capture) States() []domain.MarketState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]domain.MarketState(nil), c.states...)
}

// Reset clears all recorded publications.
func (c *Capture) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fills = nil
	c.cancels = nil
	c.marketData = nil
	c.lastSales = nil
	c.states = nil
}
