package ledger

import (
	"math"
	"testing"
	"time"

	"trade-journal/internal/database"
)

var testLoc = time.FixedZone("UTC+8", 8*3600)

func day(dateStr string) time.Time {
	t, err := time.ParseInLocation("2006-01-02", dateStr, testLoc)
	if err != nil {
		panic(err)
	}
	return t
}

func at(dateStr, clock string) time.Time {
	t, err := time.ParseInLocation("2006-01-02 15:04", dateStr+" "+clock, testLoc)
	if err != nil {
		panic(err)
	}
	return t
}

func fptr(v float64) *float64 { return &v }

func openTrade(id int64, shares, buyPrice, commission float64, buyTime time.Time) *database.Trade {
	return &database.Trade{
		ID:            id,
		Shares:        shares,
		BuyPrice:      buyPrice,
		BuyTime:       buyTime,
		CommissionBuy: commission,
		Status:        database.StatusOpen,
	}
}

func closedTrade(id int64, shares, buyPrice, commBuy float64, buyTime time.Time, sellPrice, commSell float64, sellTime time.Time) *database.Trade {
	t := openTrade(id, shares, buyPrice, commBuy, buyTime)
	t.Status = database.StatusClosed
	t.SellPrice = &sellPrice
	t.SellTime = &sellTime
	t.CommissionSell = commSell
	return t
}

func computeSeries(t *testing.T, anchorAmount float64, anchorDate string, trades []*database.Trade) []*database.CapitalPoint {
	t.Helper()
	r := NewRecomputer(nil, testLoc)
	anchorDay := day(anchorDate)
	events := r.buildEvents(trades, anchorDay)
	return r.sampleDaily("u1", 1, anchorAmount, anchorDay, events)
}

func pointFor(t *testing.T, points []*database.CapitalPoint, dateStr string) *database.CapitalPoint {
	t.Helper()
	want := day(dateStr)
	for _, p := range points {
		if p.Date.Equal(want) {
			return p
		}
	}
	t.Fatalf("no point for %s", dateStr)
	return nil
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-6
}

func assertPoint(t *testing.T, p *database.CapitalPoint, available, position, total float64) {
	t.Helper()
	if !almostEqual(p.AvailableFunds, available) {
		t.Errorf("%s: available_funds = %v, want %v", p.Date.Format("2006-01-02"), p.AvailableFunds, available)
	}
	if !almostEqual(p.PositionValue, position) {
		t.Errorf("%s: position_value = %v, want %v", p.Date.Format("2006-01-02"), p.PositionValue, position)
	}
	if !almostEqual(p.TotalAssets, total) {
		t.Errorf("%s: total_assets = %v, want %v", p.Date.Format("2006-01-02"), p.TotalAssets, total)
	}
}

func TestFlatHistoryWithoutTrades(t *testing.T) {
	points := computeSeries(t, 100000, "2026-01-01", nil)

	if len(points) == 0 {
		t.Fatal("expected at least one point")
	}
	if !points[0].Date.Equal(day("2026-01-01")) {
		t.Errorf("first point date = %v, want anchor date", points[0].Date)
	}
	for _, p := range points {
		assertPoint(t, p, 100000, 0, 100000)
	}
}

func TestSameDayRoundTripWithCommissions(t *testing.T) {
	// buy 1 @ 2.00 (fee 5), sell same position @ 5.00 (fee 5): net -7
	trades := []*database.Trade{
		closedTrade(1, 1, 2.00, 5.00, at("2026-01-01", "10:00"), 5.00, 5.00, at("2026-01-02", "10:00")),
	}
	points := computeSeries(t, 100, "2026-01-01", trades)

	assertPoint(t, pointFor(t, points, "2026-01-01"), 93, 2, 95)
	assertPoint(t, pointFor(t, points, "2026-01-02"), 93, 0, 93)
}

func TestProfitableRoundTrip(t *testing.T) {
	trades := []*database.Trade{
		closedTrade(1, 1000, 15.00, 0, at("2026-01-01", "09:30"), 18.00, 0, at("2026-01-03", "14:00")),
	}
	points := computeSeries(t, 100000, "2026-01-01", trades)

	assertPoint(t, pointFor(t, points, "2026-01-01"), 85000, 15000, 100000)
	assertPoint(t, pointFor(t, points, "2026-01-02"), 85000, 15000, 100000)
	assertPoint(t, pointFor(t, points, "2026-01-03"), 103000, 0, 103000)
}

func TestPartialClose(t *testing.T) {
	// 1000 @ 10.00 opened day 1; 300 closed @ 12.00 day 2. The store holds
	// the parent with 700 remaining plus a closed child of 300.
	parentID := int64(1)
	child := closedTrade(2, 300, 10.00, 0, at("2026-02-01", "10:00"), 12.00, 0, at("2026-02-02", "10:00"))
	child.ParentTradeID = &parentID
	trades := []*database.Trade{
		openTrade(1, 700, 10.00, 0, at("2026-02-01", "10:00")),
		child,
	}
	points := computeSeries(t, 10000, "2026-02-01", trades)

	assertPoint(t, pointFor(t, points, "2026-02-01"), 0, 10000, 10000)
	assertPoint(t, pointFor(t, points, "2026-02-02"), 3600, 7000, 10600)
}

func TestDeleteCollapsesHistory(t *testing.T) {
	// Soft-deleted trades are filtered out before the recomputer runs, so
	// an emptied log must reproduce the no-trades series exactly.
	withTrades := computeSeries(t, 100000, "2026-01-01", []*database.Trade{
		closedTrade(1, 1000, 15.00, 0, at("2026-01-01", "09:30"), 18.00, 0, at("2026-01-03", "14:00")),
	})
	emptied := computeSeries(t, 100000, "2026-01-01", nil)

	if len(withTrades) != len(emptied) {
		t.Fatalf("series lengths differ: %d vs %d", len(withTrades), len(emptied))
	}
	for _, p := range emptied {
		assertPoint(t, p, 100000, 0, 100000)
	}
}

func TestTotalAssetsInvariant(t *testing.T) {
	trades := []*database.Trade{
		openTrade(1, 500, 20.00, 12.50, at("2026-03-01", "10:00")),
		closedTrade(2, 200, 8.00, 3.00, at("2026-03-02", "10:00"), 9.50, 3.00, at("2026-03-05", "11:00")),
		openTrade(3, 100, 50.00, 5.00, at("2026-03-04", "13:00")),
	}
	points := computeSeries(t, 50000, "2026-03-01", trades)

	for _, p := range points {
		if !almostEqual(p.TotalAssets, p.AvailableFunds+p.PositionValue) {
			t.Errorf("%s: total %v != available %v + position %v",
				p.Date.Format("2006-01-02"), p.TotalAssets, p.AvailableFunds, p.PositionValue)
		}
	}
}

func TestOpenBeforeAnchorIsClampedToAnchorDay(t *testing.T) {
	trades := []*database.Trade{
		openTrade(1, 100, 10.00, 0, at("2025-12-15", "10:00")),
	}
	points := computeSeries(t, 5000, "2026-01-01", trades)

	if !points[0].Date.Equal(day("2026-01-01")) {
		t.Fatalf("first point = %v, want anchor date", points[0].Date)
	}
	assertPoint(t, points[0], 4000, 1000, 5000)
}

func TestClosedBeforeAnchorLeavesNoPosition(t *testing.T) {
	// A round trip completed entirely before the anchor: both events land
	// on the anchor day, the open applies first, and only the realized
	// profit survives. The lot must not linger in position_value.
	trades := []*database.Trade{
		closedTrade(1, 100, 10.00, 0, at("2025-12-10", "10:00"), 12.00, 0, at("2025-12-20", "14:00")),
	}
	points := computeSeries(t, 5000, "2026-01-01", trades)

	if !points[0].Date.Equal(day("2026-01-01")) {
		t.Fatalf("first point = %v, want anchor date", points[0].Date)
	}
	for _, p := range points {
		assertPoint(t, p, 5200, 0, 5200)
	}
}

func TestEventOrderingTieBreak(t *testing.T) {
	// An open and a close at the same instant: the open applies first
	ts := at("2026-01-02", "10:00")
	trades := []*database.Trade{
		closedTrade(1, 100, 10.00, 0, at("2026-01-01", "10:00"), 11.00, 0, ts),
		openTrade(2, 50, 20.00, 0, ts),
	}
	r := NewRecomputer(nil, testLoc)
	events := r.buildEvents(trades, day("2026-01-01"))

	if len(events) != 3 {
		t.Fatalf("got %d events, want 3", len(events))
	}
	// index 1 and 2 share a timestamp; the open must sort first
	if events[1].kind != eventOpen || events[1].tradeID != 2 {
		t.Errorf("events[1] = kind %v trade %d, want open of trade 2", events[1].kind, events[1].tradeID)
	}
	if events[2].kind != eventClose || events[2].tradeID != 1 {
		t.Errorf("events[2] = kind %v trade %d, want close of trade 1", events[2].kind, events[2].tradeID)
	}
}

func TestSeriesExtendsThroughLastEventDate(t *testing.T) {
	future := time.Now().In(testLoc).AddDate(0, 0, 10)
	trades := []*database.Trade{
		closedTrade(1, 10, 5.00, 0, at("2026-01-01", "10:00"), 6.00, 0, future),
	}
	points := computeSeries(t, 1000, "2026-01-01", trades)

	last := points[len(points)-1]
	y1, m1, d1 := future.Date()
	y2, m2, d2 := last.Date.Date()
	if y1 != y2 || m1 != m2 || d1 != d2 {
		t.Errorf("last point = %v, want the future close date %v", last.Date, future)
	}
}
