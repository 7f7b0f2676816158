package monitor

import (
	"context"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"trade-journal/internal/database"
	"trade-journal/internal/events"
	"trade-journal/internal/notifier"
	"trade-journal/internal/quote"
)

// PositionLister enumerates every open lot with its alert settings
type PositionLister interface {
	GetOpenAlertPositions(ctx context.Context) ([]*database.OpenPosition, error)
}

// Quoter is the price cache surface the monitor needs
type Quoter interface {
	Batch(ctx context.Context, codes []string, force bool) []quote.Quote
}

// Publisher receives alert events for delivery
type Publisher interface {
	Publish(event notifier.AlertEvent) bool
}

// Monitor is the background loop that watches open positions: each tick it
// force-refreshes quotes for every held instrument, evaluates stop-loss and
// take-profit predicates, and hands crossings to the dispatcher.
//
// Latches live in memory only. A restart re-arms them; the alert_delivery
// rate limit downstream absorbs the resulting duplicate.
type Monitor struct {
	positions  PositionLister
	stockCache Quoter
	forexCache Quoter
	dispatcher Publisher
	bus        *events.EventBus
	interval   time.Duration
	logger     zerolog.Logger

	latches map[string]bool // "tradeID|direction" -> fired
}

// New creates a monitor
func New(positions PositionLister, stockCache, forexCache Quoter, dispatcher Publisher, bus *events.EventBus, interval time.Duration, logger zerolog.Logger) *Monitor {
	return &Monitor{
		positions:  positions,
		stockCache: stockCache,
		forexCache: forexCache,
		dispatcher: dispatcher,
		bus:        bus,
		interval:   interval,
		latches:    make(map[string]bool),
		logger:     logger.With().Str("component", "monitor").Logger(),
	}
}

// Run executes the tick loop until ctx is cancelled
func (m *Monitor) Run(ctx context.Context) {
	m.logger.Info().Dur("interval", m.interval).Msg("position monitor started")

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.logger.Info().Msg("position monitor stopped")
			return
		case <-ticker.C:
			m.tick(ctx)
		}
	}
}

// tick runs one evaluation round. Evaluation is sequential; only the batch
// fetch inside the cache fans out.
func (m *Monitor) tick(ctx context.Context) {
	positions, err := m.positions.GetOpenAlertPositions(ctx)
	if err != nil {
		m.logger.Error().Err(err).Msg("failed to enumerate open positions")
		return
	}
	if len(positions) == 0 {
		m.pruneLatches(nil)
		return
	}

	quotes := m.fetchQuotes(ctx, positions)

	now := time.Now()
	for _, p := range positions {
		q, ok := quotes[p.StockCode]
		if !ok || !usable(q) {
			continue
		}

		m.bus.PublishPriceUpdate(q.Code, q.Price, q.Source)

		m.evaluate(p, database.DirectionStopLoss, p.StopLossAlert, p.StopLossPrice,
			func(price, target float64) bool { return price <= target }, q, now)
		m.evaluate(p, database.DirectionTakeProfit, p.TakeProfitAlert, p.TakeProfitPrice,
			func(price, target float64) bool { return price >= target }, q, now)
	}

	m.pruneLatches(positions)
}

// fetchQuotes force-refreshes prices for the distinct codes held, split by
// market so each cache talks to its own provider chain
func (m *Monitor) fetchQuotes(ctx context.Context, positions []*database.OpenPosition) map[string]quote.Quote {
	var stockCodes, forexCodes []string
	seen := make(map[string]bool)
	for _, p := range positions {
		if seen[p.StockCode] {
			continue
		}
		seen[p.StockCode] = true
		if p.Market == database.MarketForex {
			forexCodes = append(forexCodes, p.StockCode)
		} else {
			stockCodes = append(stockCodes, p.StockCode)
		}
	}

	quotes := make(map[string]quote.Quote, len(seen))
	for _, q := range m.stockCache.Batch(ctx, stockCodes, true) {
		quotes[q.Code] = q
	}
	for _, q := range m.forexCache.Batch(ctx, forexCodes, true) {
		quotes[q.Code] = q
	}
	return quotes
}

func usable(q quote.Quote) bool {
	return q.Price > 0 && q.Source != quote.SourceStale && q.Source != quote.SourceUnavailable
}

// evaluate fires an alert on a threshold crossing, at most once until the
// price crosses back out of the trigger region
func (m *Monitor) evaluate(p *database.OpenPosition, direction string, enabled bool, target *float64, crossed func(price, target float64) bool, q quote.Quote, now time.Time) {
	if !enabled || target == nil {
		return
	}

	key := latchKey(p.TradeID, direction)
	if !crossed(q.Price, *target) {
		if m.latches[key] {
			m.logger.Debug().Int64("trade_id", p.TradeID).Str("direction", direction).
				Msg("latch reset")
		}
		delete(m.latches, key)
		return
	}

	if m.latches[key] {
		return
	}
	m.latches[key] = true

	name := ""
	if p.StockName != nil {
		name = *p.StockName
	}
	delivered := m.dispatcher.Publish(notifier.AlertEvent{
		UserID:             p.UserID,
		Email:              p.Email,
		EmailAlertsEnabled: p.EmailAlertsEnabled,
		TradeID:            p.TradeID,
		StockCode:          p.StockCode,
		StockName:          name,
		Direction:          direction,
		Price:              q.Price,
		TargetPrice:        *target,
		TriggeredAt:        now,
	})

	m.bus.PublishAlertTriggered(p.UserID, p.StockCode, direction, q.Price, *target)
	m.logger.Info().
		Int64("trade_id", p.TradeID).
		Str("code", p.StockCode).
		Str("direction", direction).
		Float64("price", q.Price).
		Float64("target", *target).
		Bool("queued", delivered).
		Msg("alert triggered")
}

// pruneLatches drops latches for positions that no longer exist, keeping
// the map bounded by the number of live lots
func (m *Monitor) pruneLatches(positions []*database.OpenPosition) {
	live := make(map[string]bool, 2*len(positions))
	for _, p := range positions {
		live[latchKey(p.TradeID, database.DirectionStopLoss)] = true
		live[latchKey(p.TradeID, database.DirectionTakeProfit)] = true
	}
	for key := range m.latches {
		if !live[key] {
			delete(m.latches, key)
		}
	}
}

func latchKey(tradeID int64, direction string) string {
	return strconv.FormatInt(tradeID, 10) + "|" + direction
}
