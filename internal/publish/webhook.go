package publish

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/efreitasn/tradebook/internal/domain"
)

// ErrSubscriptionNotFound is returned when deleting an unknown webhook
// subscription.
var ErrSubscriptionNotFound = errors.New("subscription_not_found")

// Valid webhook event types.
var validWebhookEvents = map[string]bool{
	"fill":         true,
	"cancel":       true,
	"market_data":  true,
	"last_sale":    true,
	"market_state": true,
}

// Subscription is one registered webhook endpoint.
type Subscription struct {
	ID        string
	URL       string
	Events    []string // empty means all events
	CreatedAt time.Time
}

type subscriber struct {
	sub    Subscription
	events map[string]bool
	queue  chan []byte
}

func (s *subscriber) wants(eventType string) bool {
	return len(s.events) == 0 || s.events[eventType]
}

// Dispatcher is a Sink that POSTs each event to registered webhook
// endpoints. Every subscriber has its own FIFO queue drained by one
// goroutine, so delivery order to a single subscriber matches publication
// order. Delivery is best-effort: a full queue drops the event rather than
// stalling the publisher.
type Dispatcher struct {
	logger    *slog.Logger
	client    *http.Client
	queueSize int

	mu   sync.RWMutex
	subs map[string]*subscriber
	wg   sync.WaitGroup
}

// NewDispatcher creates a Dispatcher whose deliveries time out after
// timeout and whose per-subscriber queues hold queueSize events.
func NewDispatcher(logger *slog.Logger, timeout time.Duration, queueSize int) *Dispatcher {
	return &Dispatcher{
		logger:    logger,
		client:    &http.Client{Timeout: timeout},
		queueSize: queueSize,
		subs:      make(map[string]*subscriber),
	}
}

// Subscribe validates and registers a webhook endpoint. An empty events
// list subscribes to all event types.
func (d *Dispatcher) Subscribe(rawURL string, events []string) (Subscription, error) {
	if rawURL == "" {
		return Subscription{}, &domain.ValidationError{Message: "url is required"}
	}
	parsed, err := url.ParseRequestURI(rawURL)
	if err != nil || !parsed.IsAbs() {
		return Subscription{}, &domain.ValidationError{Message: "url must be a valid absolute URL"}
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return Subscription{}, &domain.ValidationError{Message: "url must use http or https scheme"}
	}

	// Deduplicate events while preserving order and validating.
	seen := make(map[string]bool, len(events))
	deduped := make([]string, 0, len(events))
	for _, event := range events {
		if !validWebhookEvents[event] {
			return Subscription{}, &domain.ValidationError{
				Message: fmt.Sprintf("unknown event type %q", event),
			}
		}
		if !seen[event] {
			seen[event] = true
			deduped = append(deduped, event)
		}
	}

	s := &subscriber{
		sub: Subscription{
			ID:        uuid.New().String(),
			URL:       rawURL,
			Events:    deduped,
			CreatedAt: time.Now().UTC().Truncate(time.Second),
		},
		events: seen,
		queue:  make(chan []byte, d.queueSize),
	}

	d.mu.Lock()
	d.subs[s.sub.ID] = s
	d.mu.Unlock()

	d.wg.Add(1)
	go d.deliver(s)

	return s.sub, nil
}

// List returns all subscriptions ordered by creation time, then id.
func (d *Dispatcher) List() []Subscription {
	d.mu.RLock()
	defer d.mu.RUnlock()

	subs := make([]Subscription, 0, len(d.subs))
	for _, s := range d.subs {
		subs = append(subs, s.sub)
	}
	sort.Slice(subs, func(i, j int) bool {
		if !subs[i].CreatedAt.Equal(subs[j].CreatedAt) {
			return subs[i].CreatedAt.Before(subs[j].CreatedAt)
		}
		return subs[i].ID < subs[j].ID
	})
	return subs
}

// Unsubscribe removes a subscription and stops its delivery goroutine.
func (d *Dispatcher) Unsubscribe(id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	s, ok := d.subs[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrSubscriptionNotFound, id)
	}
	delete(d.subs, id)
	close(s.queue)
	return nil
}

// Close stops all delivery goroutines and waits for queued deliveries to
// drain.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	for id, s := range d.subs {
		delete(d.subs, id)
		close(s.queue)
	}
	d.mu.Unlock()
	d.wg.Wait()
}

func (d *Dispatcher) deliver(s *subscriber) {
	defer d.wg.Done()
	for msg := range s.queue {
		resp, err := d.client.Post(s.sub.URL, "application/json", bytes.NewReader(msg))
		if err != nil {
			d.logger.Warn("webhook delivery failed",
				slog.String("url", s.sub.URL),
				slog.String("error", err.Error()),
			)
			continue
		}
		_ = resp.Body.Close()
		if resp.StatusCode >= 300 {
			d.logger.Warn("webhook delivery rejected",
				slog.String("url", s.sub.URL),
				slog.Int("status", resp.StatusCode),
			)
		}
	}
}

func (d *Dispatcher) enqueue(eventType string, data any) {
	msg, err := json.Marshal(feedEnvelope{Type: eventType, Data: data})
	if err != nil {
		d.logger.Error("webhook marshal failed", slog.String("error", err.Error()))
		return
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, s := range d.subs {
		if !s.wants(eventType) {
			continue
		}
		select {
		case s.queue <- msg:
		default:
			d.logger.Warn("webhook queue full, dropping event",
				slog.String("url", s.sub.URL),
				slog.String("event", eventType),
			)
		}
	}
}

func (d *Dispatcher) PublishFill(e domain.FillEvent) {
	d.enqueue("fill", fillMessage{
		User:    e.User,
		Product: e.Product,
		Price:   e.Price.String(),
		Volume:  e.Volume,
		Details: e.Details,
		Side:    string(e.Side),
		ID:      e.ID,
	})
}

func (d *Dispatcher) PublishCancel(e domain.CancelEvent) {
	d.enqueue("cancel", fillMessage{
		User:    e.User,
		Product: e.Product,
		Price:   e.Price.String(),
		Volume:  e.Volume,
		Details: e.Details,
		Side:    string(e.Side),
		ID:      e.ID,
	})
}

func (d *Dispatcher) PublishMarketData(md domain.MarketData) {
	d.enqueue("market_data", marketDataMessage{
		Product:    md.Product,
		BuyPrice:   md.BuyPrice.String(),
		BuyVolume:  md.BuyVolume,
		SellPrice:  md.SellPrice.String(),
		SellVolume: md.SellVolume,
	})
}

func (d *Dispatcher) PublishLastSale(product string, price *domain.Price, volume int64) {
	d.enqueue("last_sale", lastSaleMessage{
		Product: product,
		Price:   price.String(),
		Volume:  volume,
	})
}

func (d *Dispatcher) PublishMarketState(state domain.MarketState) {
	d.enqueue("market_state", marketStateMessage{State: string(state)})
}
