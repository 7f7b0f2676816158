package events

import (
	"sync"
	"time"
)

// EventType represents different types of events in the system
type EventType string

const (
	EventPriceUpdate    EventType = "PRICE_UPDATE"
	EventAlertTriggered EventType = "ALERT_TRIGGERED"
	EventTradeCreated   EventType = "TRADE_CREATED"
	EventTradeClosed    EventType = "TRADE_CLOSED"
	EventCapitalUpdated EventType = "CAPITAL_UPDATED"
)

// Event represents a system event. UserID scopes delivery: empty means
// broadcast to everyone.
type Event struct {
	Type      EventType              `json:"type"`
	UserID    string                 `json:"-"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
}

// Subscriber is a function that handles events
type Subscriber func(Event)

// EventBus manages event publishing and subscriptions
type EventBus struct {
	mu          sync.RWMutex
	subscribers map[EventType][]Subscriber
	allSubs     []Subscriber
}

// NewEventBus creates a new event bus
func NewEventBus() *EventBus {
	return &EventBus{
		subscribers: make(map[EventType][]Subscriber),
	}
}

// Subscribe registers a subscriber for a specific event type
func (eb *EventBus) Subscribe(eventType EventType, subscriber Subscriber) {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	eb.subscribers[eventType] = append(eb.subscribers[eventType], subscriber)
}

// SubscribeAll registers a subscriber for all events
func (eb *EventBus) SubscribeAll(subscriber Subscriber) {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	eb.allSubs = append(eb.allSubs, subscriber)
}

// Publish sends an event to all subscribers. Handlers run in their own
// goroutines so a slow subscriber never blocks the publisher.
func (eb *EventBus) Publish(event Event) {
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	for _, sub := range eb.subscribers[event.Type] {
		go sub(event)
	}
	for _, sub := range eb.allSubs {
		go sub(event)
	}
}

// PublishPriceUpdate publishes a fresh quote sample
func (eb *EventBus) PublishPriceUpdate(code string, price float64, source string) {
	eb.Publish(Event{
		Type: EventPriceUpdate,
		Data: map[string]interface{}{
			"stock_code": code,
			"price":      price,
			"source":     source,
		},
	})
}

// PublishAlertTriggered publishes a stop-loss or take-profit crossing
func (eb *EventBus) PublishAlertTriggered(userID, code, direction string, price, target float64) {
	eb.Publish(Event{
		Type:   EventAlertTriggered,
		UserID: userID,
		Data: map[string]interface{}{
			"stock_code":   code,
			"direction":    direction,
			"price":        price,
			"target_price": target,
		},
	})
}

// PublishCapitalUpdated signals that a strategy's history was recomputed
func (eb *EventBus) PublishCapitalUpdated(userID string, strategyID int64) {
	eb.Publish(Event{
		Type:   EventCapitalUpdated,
		UserID: userID,
		Data: map[string]interface{}{
			"strategy_id": strategyID,
		},
	})
}
