package ledger

import (
	"time"
)

// LedgerError is a typed error with a stable machine-readable code
type LedgerError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e LedgerError) Error() string {
	return e.Message
}

// Stable error codes
const (
	CodeValidation      = "VALIDATION"
	CodeNotFound        = "NOT_FOUND"
	CodeBillingRequired = "BILLING_REQUIRED"
)

// Common ledger errors
var (
	ErrTradeNotFound    = LedgerError{Code: CodeNotFound, Message: "trade not found"}
	ErrStrategyNotFound = LedgerError{Code: CodeNotFound, Message: "strategy not found"}
	ErrAnchorNotSet     = LedgerError{Code: CodeNotFound, Message: "initial capital not set"}
)

func validationError(msg string) error {
	return LedgerError{Code: CodeValidation, Message: msg}
}

// CreateTradeRequest opens (or records an already-closed) trade.
// Either Shares or RiskPerTrade must be given; with RiskPerTrade the share
// count is sized from the distance to the stop.
type CreateTradeRequest struct {
	StrategyID      int64      `json:"strategy_id" binding:"required"`
	StockCode       string     `json:"stock_code" binding:"required"`
	StockName       *string    `json:"stock_name,omitempty"`
	Shares          *float64   `json:"shares,omitempty"`
	RiskPerTrade    *float64   `json:"risk_per_trade,omitempty"`
	BuyPrice        float64    `json:"buy_price" binding:"required,gt=0"`
	BuyTime         time.Time  `json:"buy_time" binding:"required"`
	SellPrice       *float64   `json:"sell_price,omitempty"`
	SellTime        *time.Time `json:"sell_time,omitempty"`
	CommissionBuy   float64    `json:"commission_buy"`
	CommissionSell  float64    `json:"commission_sell"`
	StopLossPrice   *float64   `json:"stop_loss_price,omitempty"`
	TakeProfitPrice *float64   `json:"take_profit_price,omitempty"`
	StopLossAlert   bool       `json:"stop_loss_alert"`
	TakeProfitAlert bool       `json:"take_profit_alert"`
	Note            *string    `json:"note,omitempty"`
}

// UpdateTradeRequest patches a trade; nil fields are left untouched
type UpdateTradeRequest struct {
	StockCode       *string    `json:"stock_code,omitempty"`
	StockName       *string    `json:"stock_name,omitempty"`
	Shares          *float64   `json:"shares,omitempty"`
	BuyPrice        *float64   `json:"buy_price,omitempty"`
	BuyTime         *time.Time `json:"buy_time,omitempty"`
	SellPrice       *float64   `json:"sell_price,omitempty"`
	SellTime        *time.Time `json:"sell_time,omitempty"`
	CommissionBuy   *float64   `json:"commission_buy,omitempty"`
	CommissionSell  *float64   `json:"commission_sell,omitempty"`
	StopLossPrice   *float64   `json:"stop_loss_price,omitempty"`
	TakeProfitPrice *float64   `json:"take_profit_price,omitempty"`
	StopLossAlert   *bool      `json:"stop_loss_alert,omitempty"`
	TakeProfitAlert *bool      `json:"take_profit_alert,omitempty"`
	Note            *string    `json:"note,omitempty"`
}

// ClosePositionRequest closes all or part of an open lot
type ClosePositionRequest struct {
	SellPrice      float64    `json:"sell_price" binding:"required,gt=0"`
	CloseDate      *time.Time `json:"close_date,omitempty"`
	Shares         *float64   `json:"shares,omitempty"`
	CommissionSell float64    `json:"commission_sell"`
}

// UpdatePositionRequest adjusts alert targets on an open lot without
// touching the ledger
type UpdatePositionRequest struct {
	StopLossPrice   *float64 `json:"stop_loss_price,omitempty"`
	TakeProfitPrice *float64 `json:"take_profit_price,omitempty"`
	StopLossAlert   *bool    `json:"stop_loss_alert,omitempty"`
	TakeProfitAlert *bool    `json:"take_profit_alert,omitempty"`
}

// SetAnchorRequest seeds or moves a strategy's initial capital
type SetAnchorRequest struct {
	Capital float64 `json:"capital" binding:"required,gt=0"`
	Date    *string `json:"date,omitempty"` // YYYY-MM-DD, defaults to today
}

// CapitalSnapshot is the current ledger state of a strategy
type CapitalSnapshot struct {
	TotalAssets    float64 `json:"total_assets"`
	AvailableFunds float64 `json:"available_funds"`
	PositionValue  float64 `json:"position_value"`
}

// StockStatistics summarizes the closed trades of one instrument
type StockStatistics struct {
	TotalProfitLoss float64  `json:"total_profit_loss"`
	AverageRR       *float64 `json:"average_theoretical_risk_reward_ratio,omitempty"`
	TradeCount      int      `json:"trade_count"`
}
