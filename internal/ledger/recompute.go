package ledger

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"

	"trade-journal/internal/database"
)

type eventKind int

const (
	eventOpen eventKind = iota
	eventClose
)

// ledgerEvent is one logical cash movement derived from a trade row
type ledgerEvent struct {
	at      time.Time
	kind    eventKind
	tradeID int64
	// cash delta: negative for opens (cost incl. buy commission),
	// positive for closes (proceeds net of sell commission)
	cash float64
	// entry-price book value of the lot, tracked while it stays open
	bookValue float64
}

// Recomputer rebuilds a strategy's daily capital series from its trade log.
// It is the only writer of capital_history.
type Recomputer struct {
	repo *database.Repository
	loc  *time.Location
}

// NewRecomputer creates a recomputer reporting calendar dates in loc
func NewRecomputer(repo *database.Repository, loc *time.Location) *Recomputer {
	return &Recomputer{repo: repo, loc: loc}
}

// Recompute derives the full daily series for one strategy and replaces the
// stored history inside tx. Without an anchor the history is emptied.
func (r *Recomputer) Recompute(ctx context.Context, tx pgx.Tx, userID string, strategyID int64) error {
	anchor, err := r.repo.GetCapitalAnchor(ctx, tx, strategyID)
	if errors.Is(err, database.ErrNotFound) {
		return r.repo.ReplaceCapitalHistory(ctx, tx, strategyID, nil)
	}
	if err != nil {
		return fmt.Errorf("failed to load anchor: %w", err)
	}

	trades, err := r.repo.GetActiveTrades(ctx, tx, strategyID)
	if err != nil {
		return fmt.Errorf("failed to load trades: %w", err)
	}

	anchorDay := r.dayOf(anchor.AnchorDate)
	events := r.buildEvents(trades, anchorDay)
	points := r.sampleDaily(userID, strategyID, anchor.Amount, anchorDay, events)

	return r.repo.ReplaceCapitalHistory(ctx, tx, strategyID, points)
}

// buildEvents expands trades into OPEN and CLOSE cash movements. Events
// older than the anchor are clamped to the anchor day so the anchor amount
// already reflects earlier history. Clamping both sides of a pre-anchor
// round trip lands its OPEN and CLOSE on the same instant, where the sort
// tie-break applies the open first and the lot nets out to zero.
func (r *Recomputer) buildEvents(trades []*database.Trade, anchorDay time.Time) []ledgerEvent {
	events := make([]ledgerEvent, 0, 2*len(trades))
	for _, t := range trades {
		openAt := t.BuyTime.In(r.loc)
		if openAt.Before(anchorDay) {
			openAt = anchorDay
		}
		events = append(events, ledgerEvent{
			at:        openAt,
			kind:      eventOpen,
			tradeID:   t.ID,
			cash:      -(t.BuyPrice*t.Shares + t.CommissionBuy),
			bookValue: t.BuyPrice * t.Shares,
		})

		if t.Status == database.StatusClosed && t.SellTime != nil && t.SellPrice != nil {
			closeAt := t.SellTime.In(r.loc)
			if closeAt.Before(anchorDay) {
				closeAt = anchorDay
			}
			events = append(events, ledgerEvent{
				at:      closeAt,
				kind:    eventClose,
				tradeID: t.ID,
				cash:    *t.SellPrice*t.Shares - t.CommissionSell,
			})
		}
	}

	sort.SliceStable(events, func(i, j int) bool {
		if !events[i].at.Equal(events[j].at) {
			return events[i].at.Before(events[j].at)
		}
		if events[i].kind != events[j].kind {
			return events[i].kind == eventOpen
		}
		return events[i].tradeID < events[j].tradeID
	})
	return events
}

// sampleDaily walks the sorted events once and emits one point per calendar
// day from the anchor through max(today, last event day)
func (r *Recomputer) sampleDaily(userID string, strategyID int64, anchorAmount float64, anchorDay time.Time, events []ledgerEvent) []*database.CapitalPoint {
	lastDay := r.dayOf(time.Now().In(r.loc))
	if n := len(events); n > 0 {
		if eventDay := r.dayOf(events[len(events)-1].at); eventDay.After(lastDay) {
			lastDay = eventDay
		}
	}

	available := anchorAmount
	openBook := make(map[int64]float64)
	positionValue := 0.0
	next := 0

	var points []*database.CapitalPoint
	for day := anchorDay; !day.After(lastDay); day = day.AddDate(0, 0, 1) {
		endOfDay := day.AddDate(0, 0, 1)
		for next < len(events) && events[next].at.Before(endOfDay) {
			ev := events[next]
			available += ev.cash
			switch ev.kind {
			case eventOpen:
				openBook[ev.tradeID] = ev.bookValue
				positionValue += ev.bookValue
			case eventClose:
				positionValue -= openBook[ev.tradeID]
				delete(openBook, ev.tradeID)
			}
			next++
		}

		points = append(points, &database.CapitalPoint{
			UserID:         userID,
			StrategyID:     strategyID,
			Date:           day,
			TotalAssets:    available + positionValue,
			AvailableFunds: available,
			PositionValue:  positionValue,
		})
	}
	return points
}

// dayOf truncates a timestamp to midnight of its calendar day in the
// reporting zone
func (r *Recomputer) dayOf(t time.Time) time.Time {
	y, m, d := t.In(r.loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, r.loc)
}
