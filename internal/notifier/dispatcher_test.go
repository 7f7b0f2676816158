package notifier

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"trade-journal/internal/database"
	"trade-journal/internal/email"
)

type memoryStore struct {
	mu   sync.Mutex
	sent map[string]time.Time
}

func newMemoryStore() *memoryStore {
	return &memoryStore{sent: make(map[string]time.Time)}
}

func (m *memoryStore) key(userID, code, direction string) string {
	return userID + "|" + code + "|" + direction
}

func (m *memoryStore) GetAlertLastSent(ctx context.Context, userID, code, direction string) (time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.sent[m.key(userID, code, direction)]
	if !ok {
		return time.Time{}, database.ErrNotFound
	}
	return t, nil
}

func (m *memoryStore) RecordAlertSent(ctx context.Context, userID, code, direction string, sentAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent[m.key(userID, code, direction)] = sentAt
	return nil
}

type countingSender struct {
	mu    sync.Mutex
	sends []email.AlertData
	err   error
}

func (c *countingSender) SendAlertEmail(ctx context.Context, to string, data email.AlertData) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.sends = append(c.sends, data)
	return nil
}

func (c *countingSender) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sends)
}

func testEvent() AlertEvent {
	return AlertEvent{
		UserID:             "u1",
		Email:              "u1@example.com",
		EmailAlertsEnabled: true,
		TradeID:            1,
		StockCode:          "600000",
		Direction:          database.DirectionStopLoss,
		Price:              9.90,
		TargetPrice:        10.00,
		TriggeredAt:        time.Now(),
	}
}

func TestDeliverSendsAndRecords(t *testing.T) {
	store := newMemoryStore()
	sender := &countingSender{}
	d := New(store, sender, 10*time.Second, zerolog.Nop())

	d.deliver(context.Background(), testEvent())

	if sender.count() != 1 {
		t.Fatalf("sends = %d, want 1", sender.count())
	}
	if _, err := store.GetAlertLastSent(context.Background(), "u1", "600000", database.DirectionStopLoss); err != nil {
		t.Error("delivery was not recorded")
	}
}

func TestRateLimitCoalescesWithinWindow(t *testing.T) {
	store := newMemoryStore()
	sender := &countingSender{}
	d := New(store, sender, 10*time.Second, zerolog.Nop())

	d.deliver(context.Background(), testEvent())
	d.deliver(context.Background(), testEvent())

	if sender.count() != 1 {
		t.Errorf("sends = %d, want 1 inside the rate window", sender.count())
	}
}

func TestRateLimitExpires(t *testing.T) {
	store := newMemoryStore()
	sender := &countingSender{}
	d := New(store, sender, 10*time.Millisecond, zerolog.Nop())

	d.deliver(context.Background(), testEvent())
	time.Sleep(20 * time.Millisecond)
	d.deliver(context.Background(), testEvent())

	if sender.count() != 2 {
		t.Errorf("sends = %d, want 2 across windows", sender.count())
	}
}

func TestRateLimitIsPerDirection(t *testing.T) {
	store := newMemoryStore()
	sender := &countingSender{}
	d := New(store, sender, 10*time.Second, zerolog.Nop())

	d.deliver(context.Background(), testEvent())
	tp := testEvent()
	tp.Direction = database.DirectionTakeProfit
	d.deliver(context.Background(), tp)

	if sender.count() != 2 {
		t.Errorf("sends = %d, want 2 for distinct directions", sender.count())
	}
}

func TestDisabledPreferenceDrops(t *testing.T) {
	store := newMemoryStore()
	sender := &countingSender{}
	d := New(store, sender, 10*time.Second, zerolog.Nop())

	ev := testEvent()
	ev.EmailAlertsEnabled = false
	d.deliver(context.Background(), ev)

	ev = testEvent()
	ev.Email = ""
	d.deliver(context.Background(), ev)

	if sender.count() != 0 {
		t.Errorf("sends = %d, want 0", sender.count())
	}
}

func TestSendFailureDoesNotRecordDelivery(t *testing.T) {
	store := newMemoryStore()
	sender := &countingSender{err: context.DeadlineExceeded}
	d := New(store, sender, 10*time.Second, zerolog.Nop())

	d.deliver(context.Background(), testEvent())

	if _, err := store.GetAlertLastSent(context.Background(), "u1", "600000", database.DirectionStopLoss); err == nil {
		t.Error("failed send must not update the delivery record")
	}

	// the next qualifying event goes through
	sender.err = nil
	d.deliver(context.Background(), testEvent())
	if sender.count() != 1 {
		t.Errorf("sends = %d, want 1 after recovery", sender.count())
	}
}

func TestPublishDropsOldestWhenFull(t *testing.T) {
	d := New(newMemoryStore(), &countingSender{}, 10*time.Second, zerolog.Nop())

	for i := 0; i < defaultInboxSize+5; i++ {
		ev := testEvent()
		ev.TradeID = int64(i)
		if !d.Publish(ev) {
			t.Fatalf("publish %d returned false", i)
		}
	}

	if len(d.inbox) != defaultInboxSize {
		t.Fatalf("inbox length = %d, want %d", len(d.inbox), defaultInboxSize)
	}
	first := <-d.inbox
	if first.TradeID != 5 {
		t.Errorf("oldest queued trade = %d, want 5 after dropping the first five", first.TradeID)
	}
}
