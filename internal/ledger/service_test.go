package ledger

import (
	"testing"
	"time"

	"trade-journal/internal/database"
)

func TestResolveSharesExplicit(t *testing.T) {
	shares, err := resolveShares(&CreateTradeRequest{Shares: fptr(250), BuyPrice: 10})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if shares != 250 {
		t.Errorf("shares = %v, want 250", shares)
	}
}

func TestResolveSharesFromRisk(t *testing.T) {
	// risk 500 over a 1.00 stop distance sizes 500 shares
	shares, err := resolveShares(&CreateTradeRequest{
		BuyPrice:      20.00,
		StopLossPrice: fptr(19.00),
		RiskPerTrade:  fptr(500),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if shares != 500 {
		t.Errorf("shares = %v, want 500", shares)
	}
}

func TestResolveSharesFromRiskRoundsUp(t *testing.T) {
	shares, err := resolveShares(&CreateTradeRequest{
		BuyPrice:      20.00,
		StopLossPrice: fptr(19.70),
		RiskPerTrade:  fptr(100),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// 100 / 0.30 = 333.33..., sized up to the next whole share
	if shares != 334 {
		t.Errorf("shares = %v, want 334", shares)
	}
}

func TestResolveSharesValidation(t *testing.T) {
	cases := []struct {
		name string
		req  CreateTradeRequest
	}{
		{"neither shares nor risk", CreateTradeRequest{BuyPrice: 10}},
		{"zero shares", CreateTradeRequest{Shares: fptr(0), BuyPrice: 10}},
		{"negative risk", CreateTradeRequest{RiskPerTrade: fptr(-1), BuyPrice: 10, StopLossPrice: fptr(9)}},
		{"risk without stop", CreateTradeRequest{RiskPerTrade: fptr(100), BuyPrice: 10}},
		{"stop above buy", CreateTradeRequest{RiskPerTrade: fptr(100), BuyPrice: 10, StopLossPrice: fptr(11)}},
	}
	for _, tc := range cases {
		if _, err := resolveShares(&tc.req); err == nil {
			t.Errorf("%s: expected error", tc.name)
		}
	}
}

func TestTheoreticalRR(t *testing.T) {
	rr := theoreticalRR(20.00, fptr(19.00), fptr(23.00))
	if rr == nil {
		t.Fatal("expected a ratio")
	}
	if !almostEqual(*rr, 3.0) {
		t.Errorf("rr = %v, want 3.0", *rr)
	}

	if theoreticalRR(20.00, nil, fptr(23.00)) != nil {
		t.Error("expected nil without a stop")
	}
	if theoreticalRR(20.00, fptr(21.00), fptr(23.00)) != nil {
		t.Error("expected nil when the stop sits above the buy price")
	}
}

func TestActualRR(t *testing.T) {
	rr := actualRR(20.00, 22.00, fptr(19.00))
	if rr == nil {
		t.Fatal("expected a ratio")
	}
	if !almostEqual(*rr, 2.0) {
		t.Errorf("rr = %v, want 2.0", *rr)
	}

	rr = actualRR(20.00, 19.00, fptr(19.00))
	if rr == nil || !almostEqual(*rr, -1.0) {
		t.Errorf("rr = %v, want -1.0 for a stopped-out trade", rr)
	}
}

func TestApplyPatchPreservesUnsetFields(t *testing.T) {
	buyTime := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	trade := &database.Trade{
		StockCode:     "600000",
		Shares:        100,
		BuyPrice:      10.00,
		BuyTime:       buyTime,
		CommissionBuy: 5.00,
	}

	applyPatch(trade, &UpdateTradeRequest{BuyPrice: fptr(11.00)})

	if trade.BuyPrice != 11.00 {
		t.Errorf("buy_price = %v, want 11.00", trade.BuyPrice)
	}
	if trade.Shares != 100 || trade.StockCode != "600000" || trade.CommissionBuy != 5.00 {
		t.Error("unset fields were modified")
	}
	if !trade.BuyTime.Equal(buyTime) {
		t.Error("buy_time was modified")
	}
}

func TestGuardParentRowRejectsChildren(t *testing.T) {
	parentID := int64(1)
	child := &database.Trade{ID: 2, ParentTradeID: &parentID}

	if err := guardParentRow(child); err == nil {
		t.Error("expected a partial-close child to be rejected")
	}
	if err := guardParentRow(&database.Trade{ID: 1}); err != nil {
		t.Errorf("unexpected error for a parent row: %v", err)
	}
}

func TestSellAfterBuy(t *testing.T) {
	buyTime := time.Date(2026, 1, 10, 10, 0, 0, 0, time.UTC)
	before := buyTime.AddDate(0, 0, -1)
	after := buyTime.AddDate(0, 0, 1)

	if err := sellAfterBuy(buyTime, &before); err == nil {
		t.Error("expected a sell before the buy to be rejected")
	}
	if err := sellAfterBuy(buyTime, &after); err != nil {
		t.Errorf("unexpected error for a sell after the buy: %v", err)
	}
	if err := sellAfterBuy(buyTime, &buyTime); err != nil {
		t.Errorf("unexpected error for a same-instant close: %v", err)
	}
	if err := sellAfterBuy(buyTime, nil); err != nil {
		t.Errorf("unexpected error for an open trade: %v", err)
	}
}

func TestStockStatistics(t *testing.T) {
	s := &Service{}
	rr2, rr4 := 2.0, 4.0
	trades := []*database.Trade{
		{Status: database.StatusClosed, Shares: 100, BuyPrice: 10, SellPrice: fptr(12), CommissionBuy: 5, CommissionSell: 5, TheoreticalRR: &rr2},
		{Status: database.StatusClosed, Shares: 50, BuyPrice: 20, SellPrice: fptr(18), CommissionBuy: 0, CommissionSell: 0, TheoreticalRR: &rr4},
		{Status: database.StatusOpen, Shares: 10, BuyPrice: 30},
	}

	stats := s.GetStockStatistics(trades)

	// (12-10)*100 - 10 = 190; (18-20)*50 = -100
	if !almostEqual(stats.TotalProfitLoss, 90) {
		t.Errorf("total P/L = %v, want 90", stats.TotalProfitLoss)
	}
	if stats.AverageRR == nil || !almostEqual(*stats.AverageRR, 3.0) {
		t.Errorf("average RR = %v, want 3.0", stats.AverageRR)
	}
	if stats.TradeCount != 3 {
		t.Errorf("trade count = %d, want 3", stats.TradeCount)
	}
}
