package ledger

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"trade-journal/internal/database"
	"trade-journal/internal/logging"
)

// BillingGate decides whether a user may record new trades
type BillingGate interface {
	RequireActive(ctx context.Context, userID string) error
}

// Service owns all trade and anchor mutations. Every mutation runs under a
// per-strategy lock and inside one transaction together with the recompute,
// so readers always observe a history consistent with the trade log.
type Service struct {
	repo       *database.Repository
	recomputer *Recomputer
	billing    BillingGate
	loc        *time.Location
	logger     *logging.Logger

	locks sync.Map // "userID|strategyID" -> *sync.Mutex
}

// NewService creates a ledger service
func NewService(repo *database.Repository, recomputer *Recomputer, billing BillingGate, loc *time.Location) *Service {
	return &Service{
		repo:       repo,
		recomputer: recomputer,
		billing:    billing,
		loc:        loc,
		logger:     logging.WithComponent("ledger"),
	}
}

func (s *Service) lockStrategy(userID string, strategyID int64) func() {
	key := fmt.Sprintf("%s|%d", userID, strategyID)
	mu, _ := s.locks.LoadOrStore(key, &sync.Mutex{})
	m := mu.(*sync.Mutex)
	m.Lock()
	return m.Unlock
}

// mutate serializes a strategy mutation: lock, transaction, mutation,
// recompute, commit. A failed recompute rolls the mutation back.
func (s *Service) mutate(ctx context.Context, userID string, strategyID int64, fn func(tx pgx.Tx) error) error {
	unlock := s.lockStrategy(userID, strategyID)
	defer unlock()

	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return err
	}
	if err := s.recomputer.Recompute(ctx, tx, userID, strategyID); err != nil {
		return fmt.Errorf("recompute failed: %w", err)
	}
	return tx.Commit(ctx)
}

func (s *Service) getOwnedStrategy(ctx context.Context, userID string, strategyID int64) (*database.Strategy, error) {
	strategy, err := s.repo.GetStrategy(ctx, userID, strategyID)
	if errors.Is(err, database.ErrNotFound) {
		return nil, ErrStrategyNotFound
	}
	if err != nil {
		return nil, err
	}
	return strategy, nil
}

// resolveShares returns the explicit share count, or sizes it from the risk
// budget and the stop distance: ceil(risk / (buy - stop)).
func resolveShares(req *CreateTradeRequest) (float64, error) {
	if req.Shares != nil {
		if *req.Shares <= 0 {
			return 0, validationError("shares must be positive")
		}
		return *req.Shares, nil
	}
	if req.RiskPerTrade == nil {
		return 0, validationError("either shares or risk_per_trade is required")
	}
	if *req.RiskPerTrade <= 0 {
		return 0, validationError("risk_per_trade must be positive")
	}
	if req.StopLossPrice == nil {
		return 0, validationError("risk_per_trade requires stop_loss_price")
	}
	distance := req.BuyPrice - *req.StopLossPrice
	if distance <= 0 {
		return 0, validationError("buy_price must be above stop_loss_price")
	}
	return math.Ceil(*req.RiskPerTrade / distance), nil
}

// theoreticalRR computes (take_profit - buy) / (buy - stop) when both
// targets are present
func theoreticalRR(buyPrice float64, stopLoss, takeProfit *float64) *float64 {
	if stopLoss == nil || takeProfit == nil {
		return nil
	}
	risk := buyPrice - *stopLoss
	if risk <= 0 {
		return nil
	}
	rr := (*takeProfit - buyPrice) / risk
	return &rr
}

// sellAfterBuy rejects a close timestamp earlier than the open
func sellAfterBuy(buyTime time.Time, sellTime *time.Time) error {
	if sellTime != nil && sellTime.Before(buyTime) {
		return validationError("sell_time cannot precede buy_time")
	}
	return nil
}

// guardParentRow rejects mutations of partial-close children. A child is
// immutable once written; the parent carries the remaining position.
func guardParentRow(trade *database.Trade) error {
	if trade.ParentTradeID != nil {
		return validationError("partial close records cannot be modified")
	}
	return nil
}

// actualRR computes the realized multiple of the initial risk for a closed
// trade with a stop
func actualRR(buyPrice, sellPrice float64, stopLoss *float64) *float64 {
	if stopLoss == nil {
		return nil
	}
	risk := buyPrice - *stopLoss
	if risk <= 0 {
		return nil
	}
	rr := (sellPrice - buyPrice) / risk
	return &rr
}

// CreateTrade validates and records a trade, then recomputes the strategy's
// history. With sell fields supplied the trade is recorded already closed.
func (s *Service) CreateTrade(ctx context.Context, userID string, req *CreateTradeRequest) (*database.Trade, error) {
	if err := s.billing.RequireActive(ctx, userID); err != nil {
		return nil, err
	}

	strategy, err := s.getOwnedStrategy(ctx, userID, req.StrategyID)
	if err != nil {
		return nil, err
	}

	shares, err := resolveShares(req)
	if err != nil {
		return nil, err
	}
	if strategy.Market == database.MarketStock && shares != math.Trunc(shares) {
		return nil, validationError("stock shares must be a whole number")
	}
	if req.CommissionBuy < 0 || req.CommissionSell < 0 {
		return nil, validationError("commissions cannot be negative")
	}
	if (req.SellPrice == nil) != (req.SellTime == nil) {
		return nil, validationError("sell_price and sell_time must be supplied together")
	}
	if err := sellAfterBuy(req.BuyTime, req.SellTime); err != nil {
		return nil, err
	}

	trade := &database.Trade{
		UserID:          userID,
		StrategyID:      req.StrategyID,
		StockCode:       req.StockCode,
		StockName:       req.StockName,
		Direction:       "BUY",
		Shares:          shares,
		BuyPrice:        req.BuyPrice,
		BuyTime:         req.BuyTime,
		CommissionBuy:   req.CommissionBuy,
		CommissionSell:  req.CommissionSell,
		StopLossPrice:   req.StopLossPrice,
		TakeProfitPrice: req.TakeProfitPrice,
		StopLossAlert:   req.StopLossAlert,
		TakeProfitAlert: req.TakeProfitAlert,
		Status:          database.StatusOpen,
		TheoreticalRR:   theoreticalRR(req.BuyPrice, req.StopLossPrice, req.TakeProfitPrice),
		Note:            req.Note,
	}

	if req.SellPrice != nil {
		if *req.SellPrice <= 0 {
			return nil, validationError("sell_price must be positive")
		}
		manual := database.ResultManual
		trade.Status = database.StatusClosed
		trade.SellPrice = req.SellPrice
		trade.SellTime = req.SellTime
		trade.OrderResult = &manual
		trade.ActualRR = actualRR(trade.BuyPrice, *req.SellPrice, trade.StopLossPrice)
	}

	err = s.mutate(ctx, userID, req.StrategyID, func(tx pgx.Tx) error {
		return s.repo.CreateTrade(ctx, tx, trade)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Trade created", "trade_id", trade.ID,
		"strategy_id", trade.StrategyID, "code", trade.StockCode, "shares", trade.Shares)
	return trade, nil
}

// UpdateTrade applies a patch, re-derives dependent fields and recomputes
func (s *Service) UpdateTrade(ctx context.Context, userID string, tradeID int64, req *UpdateTradeRequest) (*database.Trade, error) {
	trade, err := s.repo.GetTradeByID(ctx, userID, tradeID)
	if err != nil {
		return nil, ErrTradeNotFound
	}
	if err := guardParentRow(trade); err != nil {
		return nil, err
	}

	applyPatch(trade, req)

	if trade.Shares <= 0 {
		return nil, validationError("shares must be positive")
	}
	if trade.BuyPrice <= 0 {
		return nil, validationError("buy_price must be positive")
	}
	if (trade.SellPrice == nil) != (trade.SellTime == nil) {
		return nil, validationError("sell_price and sell_time must be supplied together")
	}
	if err := sellAfterBuy(trade.BuyTime, trade.SellTime); err != nil {
		return nil, err
	}

	trade.TheoreticalRR = theoreticalRR(trade.BuyPrice, trade.StopLossPrice, trade.TakeProfitPrice)
	if trade.SellPrice != nil {
		trade.Status = database.StatusClosed
		if trade.OrderResult == nil {
			manual := database.ResultManual
			trade.OrderResult = &manual
		}
		trade.ActualRR = actualRR(trade.BuyPrice, *trade.SellPrice, trade.StopLossPrice)
	} else {
		trade.Status = database.StatusOpen
		trade.OrderResult = nil
		trade.ActualRR = nil
	}

	err = s.mutate(ctx, userID, trade.StrategyID, func(tx pgx.Tx) error {
		return s.repo.UpdateTrade(ctx, tx, trade)
	})
	if err != nil {
		return nil, err
	}
	return trade, nil
}

func applyPatch(trade *database.Trade, req *UpdateTradeRequest) {
	if req.StockCode != nil {
		trade.StockCode = *req.StockCode
	}
	if req.StockName != nil {
		trade.StockName = req.StockName
	}
	if req.Shares != nil {
		trade.Shares = *req.Shares
	}
	if req.BuyPrice != nil {
		trade.BuyPrice = *req.BuyPrice
	}
	if req.BuyTime != nil {
		trade.BuyTime = *req.BuyTime
	}
	if req.SellPrice != nil {
		trade.SellPrice = req.SellPrice
	}
	if req.SellTime != nil {
		trade.SellTime = req.SellTime
	}
	if req.CommissionBuy != nil {
		trade.CommissionBuy = *req.CommissionBuy
	}
	if req.CommissionSell != nil {
		trade.CommissionSell = *req.CommissionSell
	}
	if req.StopLossPrice != nil {
		trade.StopLossPrice = req.StopLossPrice
	}
	if req.TakeProfitPrice != nil {
		trade.TakeProfitPrice = req.TakeProfitPrice
	}
	if req.StopLossAlert != nil {
		trade.StopLossAlert = *req.StopLossAlert
	}
	if req.TakeProfitAlert != nil {
		trade.TakeProfitAlert = *req.TakeProfitAlert
	}
	if req.Note != nil {
		trade.Note = req.Note
	}
}

// DeleteTrade soft-deletes one trade and recomputes. Deleting a parent
// cascades to its partial-close children so no child is left without its
// parent in the event log; children themselves cannot be deleted directly.
func (s *Service) DeleteTrade(ctx context.Context, userID string, tradeID int64) error {
	trade, err := s.repo.GetTradeByID(ctx, userID, tradeID)
	if err != nil {
		return ErrTradeNotFound
	}
	if trade.ParentTradeID != nil {
		return validationError("partial close records cannot be deleted")
	}

	return s.mutate(ctx, userID, trade.StrategyID, func(tx pgx.Tx) error {
		return s.repo.SoftDeleteTrade(ctx, tx, tradeID)
	})
}

// ClosePosition closes an open lot in full or in part. A partial close
// splits off a child row carrying its prorated buy commission; the parent
// keeps the remainder and stays open.
func (s *Service) ClosePosition(ctx context.Context, userID string, tradeID int64, req *ClosePositionRequest, orderResult string) (*database.Trade, error) {
	parent, err := s.repo.GetTradeByID(ctx, userID, tradeID)
	if err != nil {
		return nil, ErrTradeNotFound
	}
	if !parent.IsOpen() || parent.ParentTradeID != nil {
		return nil, validationError("trade is not an open position")
	}

	closeShares := parent.Shares
	if req.Shares != nil {
		closeShares = *req.Shares
	}
	if closeShares <= 0 || closeShares > parent.Shares {
		return nil, validationError("shares must be between 0 and the remaining position")
	}

	closeTime := time.Now()
	if req.CloseDate != nil {
		closeTime = *req.CloseDate
	}
	if closeTime.Before(parent.BuyTime) {
		return nil, validationError("close date cannot precede buy_time")
	}

	var result *database.Trade
	err = s.mutate(ctx, userID, parent.StrategyID, func(tx pgx.Tx) error {
		if closeShares == parent.Shares {
			parent.Status = database.StatusClosed
			parent.SellPrice = &req.SellPrice
			parent.SellTime = &closeTime
			parent.CommissionSell = req.CommissionSell
			parent.OrderResult = &orderResult
			parent.ActualRR = actualRR(parent.BuyPrice, req.SellPrice, parent.StopLossPrice)
			result = parent
			return s.repo.UpdateTrade(ctx, tx, parent)
		}

		// Prorate the buy commission by the share ratio of the split
		ratio := closeShares / parent.Shares
		childCommissionBuy := parent.CommissionBuy * ratio

		child := &database.Trade{
			UserID:          parent.UserID,
			StrategyID:      parent.StrategyID,
			StockCode:       parent.StockCode,
			StockName:       parent.StockName,
			Direction:       parent.Direction,
			Shares:          closeShares,
			BuyPrice:        parent.BuyPrice,
			BuyTime:         parent.BuyTime,
			SellPrice:       &req.SellPrice,
			SellTime:        &closeTime,
			CommissionBuy:   childCommissionBuy,
			CommissionSell:  req.CommissionSell,
			StopLossPrice:   parent.StopLossPrice,
			TakeProfitPrice: parent.TakeProfitPrice,
			Status:          database.StatusClosed,
			OrderResult:     &orderResult,
			ActualRR:        actualRR(parent.BuyPrice, req.SellPrice, parent.StopLossPrice),
			ParentTradeID:   &parent.ID,
		}
		if err := s.repo.CreateTrade(ctx, tx, child); err != nil {
			return err
		}

		parent.Shares -= closeShares
		parent.CommissionBuy -= childCommissionBuy
		result = child
		return s.repo.UpdateTrade(ctx, tx, parent)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Position closed", "trade_id", tradeID,
		"shares", closeShares, "result", orderResult)
	return result, nil
}

// UpdatePosition adjusts alert targets in place; no cash moves, so the
// history is untouched and no recompute runs
func (s *Service) UpdatePosition(ctx context.Context, userID string, tradeID int64, req *UpdatePositionRequest) (*database.Trade, error) {
	trade, err := s.repo.GetTradeByID(ctx, userID, tradeID)
	if err != nil {
		return nil, ErrTradeNotFound
	}
	if !trade.IsOpen() {
		return nil, validationError("trade is not an open position")
	}

	if req.StopLossPrice != nil {
		trade.StopLossPrice = req.StopLossPrice
	}
	if req.TakeProfitPrice != nil {
		trade.TakeProfitPrice = req.TakeProfitPrice
	}
	if req.StopLossAlert != nil {
		trade.StopLossAlert = *req.StopLossAlert
	}
	if req.TakeProfitAlert != nil {
		trade.TakeProfitAlert = *req.TakeProfitAlert
	}
	trade.TheoreticalRR = theoreticalRR(trade.BuyPrice, trade.StopLossPrice, trade.TakeProfitPrice)

	if err := s.repo.UpdateTrade(ctx, s.repo.GetDB().Pool, trade); err != nil {
		return nil, err
	}
	return trade, nil
}

// ClearAllTrades soft-deletes every trade of a strategy in one transaction
// and recomputes, leaving a flat history at the anchor amount
func (s *Service) ClearAllTrades(ctx context.Context, userID string, strategyID int64) (int64, error) {
	if _, err := s.getOwnedStrategy(ctx, userID, strategyID); err != nil {
		return 0, err
	}

	var deleted int64
	err := s.mutate(ctx, userID, strategyID, func(tx pgx.Tx) error {
		var err error
		deleted, err = s.repo.SoftDeleteTradesByStrategy(ctx, tx, strategyID)
		return err
	})
	if err != nil {
		return 0, err
	}

	s.logger.Info("Cleared all trades", "strategy_id", strategyID, "deleted", deleted)
	return deleted, nil
}

// SetAnchor upserts the strategy's initial capital and recomputes. An
// omitted date defaults to today in the reporting zone.
func (s *Service) SetAnchor(ctx context.Context, userID string, strategyID int64, req *SetAnchorRequest) (*database.CapitalAnchor, error) {
	if _, err := s.getOwnedStrategy(ctx, userID, strategyID); err != nil {
		return nil, err
	}

	anchorDate := time.Now().In(s.loc)
	if req.Date != nil && *req.Date != "" {
		parsed, err := time.ParseInLocation("2006-01-02", *req.Date, s.loc)
		if err != nil {
			return nil, validationError("date must be YYYY-MM-DD")
		}
		anchorDate = parsed
	}
	y, m, d := anchorDate.Date()
	anchorDate = time.Date(y, m, d, 0, 0, 0, 0, s.loc)

	anchor := &database.CapitalAnchor{
		UserID:     userID,
		StrategyID: strategyID,
		Amount:     req.Capital,
		AnchorDate: anchorDate,
	}
	err := s.mutate(ctx, userID, strategyID, func(tx pgx.Tx) error {
		return s.repo.UpsertCapitalAnchor(ctx, tx, anchor)
	})
	if err != nil {
		return nil, err
	}
	return anchor, nil
}

// DeleteStrategy soft-deletes the strategy and its trades and erases its
// anchor and history. Nothing is left to recompute.
func (s *Service) DeleteStrategy(ctx context.Context, userID string, strategyID int64) error {
	if _, err := s.getOwnedStrategy(ctx, userID, strategyID); err != nil {
		return err
	}

	unlock := s.lockStrategy(userID, strategyID)
	defer unlock()

	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := s.repo.SoftDeleteTradesByStrategy(ctx, tx, strategyID); err != nil {
		return err
	}
	if err := s.repo.DeleteCapitalAnchor(ctx, tx, strategyID); err != nil {
		return err
	}
	if err := s.repo.ReplaceCapitalHistory(ctx, tx, strategyID, nil); err != nil {
		return err
	}
	if err := s.repo.DeleteStrategy(ctx, tx, userID, strategyID); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return err
	}

	s.logger.Info("Strategy deleted", "strategy_id", strategyID)
	return nil
}

// GetCapital returns the strategy's ledger state as of the latest sampled day
func (s *Service) GetCapital(ctx context.Context, userID string, strategyID int64) (*CapitalSnapshot, error) {
	point, err := s.repo.GetLatestCapitalPoint(ctx, userID, strategyID)
	if errors.Is(err, database.ErrNotFound) {
		return nil, ErrAnchorNotSet
	}
	if err != nil {
		return nil, err
	}
	return &CapitalSnapshot{
		TotalAssets:    point.TotalAssets,
		AvailableFunds: point.AvailableFunds,
		PositionValue:  point.PositionValue,
	}, nil
}

// GetCapitalHistory returns the daily series, optionally bounded by
// YYYY-MM-DD start and end dates inclusive
func (s *Service) GetCapitalHistory(ctx context.Context, userID string, strategyID int64, startDate, endDate string) ([]*database.CapitalPoint, error) {
	var from, to *time.Time
	if startDate != "" {
		parsed, err := time.ParseInLocation("2006-01-02", startDate, s.loc)
		if err != nil {
			return nil, validationError("start_date must be YYYY-MM-DD")
		}
		from = &parsed
	}
	if endDate != "" {
		parsed, err := time.ParseInLocation("2006-01-02", endDate, s.loc)
		if err != nil {
			return nil, validationError("end_date must be YYYY-MM-DD")
		}
		to = &parsed
	}
	return s.repo.GetCapitalHistory(ctx, userID, strategyID, from, to)
}

// GetStockStatistics summarizes the trades of one instrument: realized P/L
// over closed lots, the average planned risk-reward, and the trade count
func (s *Service) GetStockStatistics(trades []*database.Trade) StockStatistics {
	stats := StockStatistics{TradeCount: len(trades)}

	var rrSum float64
	var rrCount int
	for _, t := range trades {
		if t.Status == database.StatusClosed && t.SellPrice != nil {
			stats.TotalProfitLoss += (*t.SellPrice-t.BuyPrice)*t.Shares - t.CommissionBuy - t.CommissionSell
		}
		if t.TheoreticalRR != nil {
			rrSum += *t.TheoreticalRR
			rrCount++
		}
	}
	if rrCount > 0 {
		avg := rrSum / float64(rrCount)
		stats.AverageRR = &avg
	}
	return stats
}

// TradeDates folds a strategy's trade timestamps into the distinct calendar
// dates, ascending
func (s *Service) TradeDates(ctx context.Context, userID string, strategyID int64) ([]string, error) {
	times, err := s.repo.ListTradeTimes(ctx, userID, strategyID)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var dates []string
	for _, t := range times {
		d := t.In(s.loc).Format("2006-01-02")
		if !seen[d] {
			seen[d] = true
			dates = append(dates, d)
		}
	}
	sort.Strings(dates)
	return dates, nil
}

// DayBounds returns the [start, end) instants of a YYYY-MM-DD calendar day
// in the reporting zone
func (s *Service) DayBounds(date string) (time.Time, time.Time, error) {
	day, err := time.ParseInLocation("2006-01-02", date, s.loc)
	if err != nil {
		return time.Time{}, time.Time{}, validationError("date must be YYYY-MM-DD")
	}
	return day, day.AddDate(0, 0, 1), nil
}
