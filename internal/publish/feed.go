package publish

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/efreitasn/tradebook/internal/domain"
)

const (
	feedWriteTimeout = 10 * time.Second
	feedPongTimeout  = 60 * time.Second
	feedPingInterval = 50 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// feedEnvelope wraps every broadcast message with its event type.
type feedEnvelope struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

type fillMessage struct {
	User    string `json:"user"`
	Product string `json:"product"`
	Price   string `json:"price"`
	Volume  int64  `json:"volume"`
	Details string `json:"details"`
	Side    string `json:"side"`
	ID      string `json:"id"`
}

type marketDataMessage struct {
	Product    string `json:"product"`
	BuyPrice   string `json:"buy_price"`
	BuyVolume  int64  `json:"buy_volume"`
	SellPrice  string `json:"sell_price"`
	SellVolume int64  `json:"sell_volume"`
}

type lastSaleMessage struct {
	Product string `json:"product"`
	Price   string `json:"price"`
	Volume  int64  `json:"volume"`
}

type marketStateMessage struct {
	State string `json:"state"`
}

// Feed is a websocket broadcast hub implementing Sink: every published
// event is serialized once and sent to all connected clients. A client
// whose send buffer is full is dropped rather than stalling the publisher.
type Feed struct {
	logger     *slog.Logger
	sendBuffer int

	mu      sync.RWMutex
	clients map[*feedClient]bool
}

type feedClient struct {
	conn *websocket.Conn
	send chan []byte
}

// NewFeed creates a Feed whose per-client send buffer holds sendBuffer
// messages.
func NewFeed(logger *slog.Logger, sendBuffer int) *Feed {
	return &Feed{
		logger:     logger,
		sendBuffer: sendBuffer,
		clients:    make(map[*feedClient]bool),
	}
}

// ServeWS upgrades the request to a websocket connection and streams the
// feed to it until the client disconnects.
func (f *Feed) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		f.logger.Warn("feed upgrade failed", slog.String("error", err.Error()))
		return
	}

	c := &feedClient{conn: conn, send: make(chan []byte, f.sendBuffer)}

	f.mu.Lock()
	f.clients[c] = true
	total := len(f.clients)
	f.mu.Unlock()
	f.logger.Info("feed client connected", slog.Int("total", total))

	go f.writePump(c)
	go f.readPump(c)
}

// Close disconnects all clients.
func (f *Feed) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for c := range f.clients {
		close(c.send)
		delete(f.clients, c)
	}
}

func (f *Feed) drop(c *feedClient) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.clients[c] {
		delete(f.clients, c)
		close(c.send)
	}
}

// readPump discards inbound messages; the feed is publish-only. It exists
// to notice disconnects and answer pings.
func (f *Feed) readPump(c *feedClient) {
	defer func() {
		f.drop(c)
		_ = c.conn.Close()
	}()

	_ = c.conn.SetReadDeadline(time.Now().Add(feedPongTimeout))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(feedPongTimeout))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (f *Feed) writePump(c *feedClient) {
	ticker := time.NewTicker(feedPingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(feedWriteTimeout))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(feedWriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (f *Feed) broadcast(eventType string, data any) {
	msg, err := json.Marshal(feedEnvelope{Type: eventType, Data: data})
	if err != nil {
		f.logger.Error("feed marshal failed", slog.String("error", err.Error()))
		return
	}

	f.mu.RLock()
	var slow []*feedClient
	for c := range f.clients {
		select {
		case c.send <- msg:
		default:
			slow = append(slow, c)
		}
	}
	f.mu.RUnlock()

	for _, c := range slow {
		f.logger.Warn("feed client too slow, dropping")
		f.drop(c)
	}
}

func (f *Feed) PublishFill(e domain.FillEvent) {
	f.broadcast("fill", fillMessage{
		User:    e.User,
		Product: e.Product,
		Price:   e.Price.String(),
		Volume:  e.Volume,
		Details: e.Details,
		Side:    string(e.Side),
		ID:      e.ID,
	})
}

func (f *Feed) PublishCancel(e domain.CancelEvent) {
	f.broadcast("cancel", fillMessage{
		User:    e.User,
		Product: e.Product,
		Price:   e.Price.String(),
		Volume:  e.Volume,
		Details: e.Details,
		Side:    string(e.Side),
		ID:      e.ID,
	})
}

func (f *Feed) PublishMarketData(md domain.MarketData) {
	f.broadcast("market_data", marketDataMessage{
		Product:    md.Product,
		BuyPrice:   md.BuyPrice.String(),
		BuyVolume:  md.BuyVolume,
		SellPrice:  md.SellPrice.String(),
		SellVolume: md.SellVolume,
	})
}

func (f *Feed) PublishLastSale(product string, price *domain.Price, volume int64) {
	f.broadcast("last_sale", lastSaleMessage{
		Product: product,
		Price:   price.String(),
		Volume:  volume,
	})
}

func (f *Feed) PublishMarketState(state domain.MarketState) {
	f.broadcast("market_state", marketStateMessage{State: string(state)})
}
