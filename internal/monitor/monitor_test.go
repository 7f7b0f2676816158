package monitor

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"trade-journal/internal/database"
	"trade-journal/internal/events"
	"trade-journal/internal/notifier"
	"trade-journal/internal/quote"
)

type stubPositions struct {
	positions []*database.OpenPosition
}

func (s *stubPositions) GetOpenAlertPositions(ctx context.Context) ([]*database.OpenPosition, error) {
	return s.positions, nil
}

// scriptedQuoter returns one price per Batch call, advancing through the
// script
type scriptedQuoter struct {
	prices []float64
	next   int
	source string
}

func (s *scriptedQuoter) Batch(ctx context.Context, codes []string, force bool) []quote.Quote {
	price := 0.0
	if s.next < len(s.prices) {
		price = s.prices[s.next]
		s.next++
	}
	source := s.source
	if source == "" {
		source = "sina"
	}
	quotes := make([]quote.Quote, len(codes))
	for i, code := range codes {
		quotes[i] = quote.Quote{Code: code, Price: price, Source: source, FetchedAt: time.Now()}
	}
	return quotes
}

type emptyQuoter struct{}

func (emptyQuoter) Batch(ctx context.Context, codes []string, force bool) []quote.Quote {
	return nil
}

type collectingDispatcher struct {
	events []notifier.AlertEvent
}

func (c *collectingDispatcher) Publish(event notifier.AlertEvent) bool {
	c.events = append(c.events, event)
	return true
}

func stockPosition(tradeID int64, stopLoss, takeProfit *float64) *database.OpenPosition {
	return &database.OpenPosition{
		TradeID:            tradeID,
		UserID:             "u1",
		StrategyID:         1,
		Market:             database.MarketStock,
		StockCode:          "600000",
		Shares:             100,
		BuyPrice:           11.00,
		StopLossPrice:      stopLoss,
		TakeProfitPrice:    takeProfit,
		StopLossAlert:      stopLoss != nil,
		TakeProfitAlert:    takeProfit != nil,
		EmailAlertsEnabled: true,
		Email:              "u1@example.com",
	}
}

func fptr(v float64) *float64 { return &v }

func newTestMonitor(positions *stubPositions, quoter Quoter, dispatcher Publisher) *Monitor {
	return New(positions, quoter, emptyQuoter{}, dispatcher, events.NewEventBus(),
		10*time.Second, zerolog.Nop())
}

func TestStopLossLatchFiresOncePerCrossing(t *testing.T) {
	// price walk 10.5, 10.1, 9.9, 9.8, 10.2, 9.7 against a 10.00 stop:
	// the 9.9 fires, 9.8 is latched, 10.2 resets, 9.7 fires again
	positions := &stubPositions{positions: []*database.OpenPosition{
		stockPosition(1, fptr(10.00), nil),
	}}
	quoter := &scriptedQuoter{prices: []float64{10.5, 10.1, 9.9, 9.8, 10.2, 9.7}}
	dispatcher := &collectingDispatcher{}
	m := newTestMonitor(positions, quoter, dispatcher)

	for range quoter.prices {
		m.tick(context.Background())
	}

	if len(dispatcher.events) != 2 {
		t.Fatalf("got %d alerts, want 2", len(dispatcher.events))
	}
	if dispatcher.events[0].Price != 9.9 || dispatcher.events[1].Price != 9.7 {
		t.Errorf("alert prices = %v, %v; want 9.9 and 9.7",
			dispatcher.events[0].Price, dispatcher.events[1].Price)
	}
	for _, e := range dispatcher.events {
		if e.Direction != database.DirectionStopLoss {
			t.Errorf("direction = %q, want stop_loss", e.Direction)
		}
	}
}

func TestTakeProfitCrossing(t *testing.T) {
	positions := &stubPositions{positions: []*database.OpenPosition{
		stockPosition(1, nil, fptr(12.00)),
	}}
	quoter := &scriptedQuoter{prices: []float64{11.5, 12.3, 12.4}}
	dispatcher := &collectingDispatcher{}
	m := newTestMonitor(positions, quoter, dispatcher)

	for range quoter.prices {
		m.tick(context.Background())
	}

	if len(dispatcher.events) != 1 {
		t.Fatalf("got %d alerts, want 1 (second crossing is latched)", len(dispatcher.events))
	}
	e := dispatcher.events[0]
	if e.Direction != database.DirectionTakeProfit || e.Price != 12.3 || e.TargetPrice != 12.00 {
		t.Errorf("unexpected event %+v", e)
	}
}

func TestDisabledAlertNeverFires(t *testing.T) {
	p := stockPosition(1, fptr(10.00), nil)
	p.StopLossAlert = false
	positions := &stubPositions{positions: []*database.OpenPosition{p}}
	quoter := &scriptedQuoter{prices: []float64{9.0}}
	dispatcher := &collectingDispatcher{}
	m := newTestMonitor(positions, quoter, dispatcher)

	m.tick(context.Background())

	if len(dispatcher.events) != 0 {
		t.Errorf("got %d alerts, want 0 for disabled flag", len(dispatcher.events))
	}
}

func TestStaleQuoteIsIgnored(t *testing.T) {
	positions := &stubPositions{positions: []*database.OpenPosition{
		stockPosition(1, fptr(10.00), nil),
	}}
	quoter := &scriptedQuoter{prices: []float64{9.0}, source: quote.SourceStale}
	dispatcher := &collectingDispatcher{}
	m := newTestMonitor(positions, quoter, dispatcher)

	m.tick(context.Background())

	if len(dispatcher.events) != 0 {
		t.Errorf("got %d alerts, want 0 for a stale quote", len(dispatcher.events))
	}
}

func TestLatchPrunedWhenPositionCloses(t *testing.T) {
	positions := &stubPositions{positions: []*database.OpenPosition{
		stockPosition(1, fptr(10.00), nil),
	}}
	quoter := &scriptedQuoter{prices: []float64{9.0, 9.0}}
	dispatcher := &collectingDispatcher{}
	m := newTestMonitor(positions, quoter, dispatcher)

	m.tick(context.Background())
	if len(m.latches) != 1 {
		t.Fatalf("latches = %d, want 1 after firing", len(m.latches))
	}

	positions.positions = nil
	m.tick(context.Background())
	if len(m.latches) != 0 {
		t.Errorf("latches = %d, want 0 after the position closed", len(m.latches))
	}
}
