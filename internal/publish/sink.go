// Package publish provides the event-sink implementations the book
// publishes into: structured logging, a websocket feed, and webhook
// dispatch.
package publish

import (
	"log/slog"

	"github.com/efreitasn/tradebook/internal/domain"
)

// Sink mirrors book.EventSink so implementations here stay decoupled from
// the book package.
type Sink interface {
	PublishFill(e domain.FillEvent)
	PublishCancel(e domain.CancelEvent)
	PublishMarketData(md domain.MarketData)
	PublishLastSale(product string, price *domain.Price, volume int64)
	PublishMarketState(state domain.MarketState)
}

// LogSink writes every published event to a structured logger.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink creates a LogSink over the given logger.
func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) PublishFill(e domain.FillEvent) {
	s.logger.Info("fill",
		slog.String("user", e.User),
		slog.String("product", e.Product),
		slog.String("price", e.Price.String()),
		slog.Int64("volume", e.Volume),
		slog.String("side", string(e.Side)),
		slog.String("details", e.Details),
		slog.String("id", e.ID),
	)
}

func (s *LogSink) PublishCancel(e domain.CancelEvent) {
	s.logger.Info("cancel",
		slog.String("user", e.User),
		slog.String("product", e.Product),
		slog.String("price", e.Price.String()),
		slog.Int64("volume", e.Volume),
		slog.String("side", string(e.Side)),
		slog.String("details", e.Details),
		slog.String("id", e.ID),
	)
}

func (s *LogSink) PublishMarketData(md domain.MarketData) {
	s.logger.Info("market_data",
		slog.String("product", md.Product),
		slog.String("buy_price", md.BuyPrice.String()),
		slog.Int64("buy_volume", md.BuyVolume),
		slog.String("sell_price", md.SellPrice.String()),
		slog.Int64("sell_volume", md.SellVolume),
	)
}

func (s *LogSink) PublishLastSale(product string, price *domain.Price, volume int64) {
	s.logger.Info("last_sale",
		slog.String("product", product),
		slog.String("price", price.String()),
		slog.Int64("volume", volume),
	)
}

func (s *LogSink) PublishMarketState(state domain.MarketState) {
	s.logger.Info("market_state", slog.String("state", string(state)))
}

// Multi fans one publication out to several sinks, in order.
type Multi struct {
	sinks []Sink
}

// NewMulti creates a Multi over the given sinks.
func NewMulti(sinks ...Sink) *Multi {
	return &Multi{sinks: sinks}
}

func (m *Multi) PublishFill(e domain.FillEvent) {
	for _, s := range m.sinks {
		s.PublishFill(e)
	}
}

func (m *Multi) PublishCancel(e domain.CancelEvent) {
	for _, s := range m.sinks {
		s.PublishCancel(e)
	}
}

func (m *Multi) PublishMarketData(md domain.MarketData) {
	for _, s := range m.sinks {
		s.PublishMarketData(md)
	}
}

func (m *Multi) PublishLastSale(product string, price *domain.Price, volume int64) {
	for _, s := range m.sinks {
		s.PublishLastSale(product, price, volume)
	}
}

func (m *Multi) PublishMarketState(state domain.MarketState) {
	for _, s := range m.sinks {
		s.PublishMarketState(state)
	}
}
