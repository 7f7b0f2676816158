package database

import (
	"time"
)

// Market identifies which ledger family a strategy belongs to
const (
	MarketStock = "stock"
	MarketForex = "forex"
)

// Trade status values
const (
	StatusOpen   = "open"
	StatusClosed = "closed"
)

// Order result values for closed trades
const (
	ResultStopLoss   = "stop_loss"
	ResultTakeProfit = "take_profit"
	ResultManual     = "manual"
)

// Alert directions
const (
	DirectionStopLoss   = "stop_loss"
	DirectionTakeProfit = "take_profit"
)

// User represents a platform user
type User struct {
	ID                 string     `json:"id"`
	Username           string     `json:"username"`
	Email              string     `json:"email"`
	PasswordHash       string     `json:"-"` // Never serialize
	EmailAlertsEnabled bool       `json:"email_alerts_enabled"`
	IsAdmin            bool       `json:"is_admin"`
	IsPaid             bool       `json:"is_paid"`
	PaidUntil          *time.Time `json:"paid_until,omitempty"`
	Plan               *string    `json:"plan,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// Strategy is a named, market-scoped ledger owned by a user
type Strategy struct {
	ID        int64     `json:"id"`
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	Market    string    `json:"market"`
	CreatedAt time.Time `json:"created_at"`
}

// Trade is the fundamental log record: an open lot, a closed lot, or a
// partial-close child split off a parent lot.
type Trade struct {
	ID              int64      `json:"id"`
	UserID          string     `json:"user_id"`
	StrategyID      int64      `json:"strategy_id"`
	StockCode       string     `json:"stock_code"`
	StockName       *string    `json:"stock_name,omitempty"`
	Direction       string     `json:"direction"`
	Shares          float64    `json:"shares"`
	BuyPrice        float64    `json:"buy_price"`
	SellPrice       *float64   `json:"sell_price,omitempty"`
	BuyTime         time.Time  `json:"buy_time"`
	SellTime        *time.Time `json:"sell_time,omitempty"`
	CommissionBuy   float64    `json:"commission_buy"`
	CommissionSell  float64    `json:"commission_sell"`
	StopLossPrice   *float64   `json:"stop_loss_price,omitempty"`
	TakeProfitPrice *float64   `json:"take_profit_price,omitempty"`
	StopLossAlert   bool       `json:"stop_loss_alert"`
	TakeProfitAlert bool       `json:"take_profit_alert"`
	Status          string     `json:"status"`
	OrderResult     *string    `json:"order_result,omitempty"`
	TheoreticalRR   *float64   `json:"theoretical_risk_reward_ratio,omitempty"`
	ActualRR        *float64   `json:"actual_risk_reward_ratio,omitempty"`
	ParentTradeID   *int64     `json:"parent_trade_id,omitempty"`
	IsDeleted       bool       `json:"-"`
	Note            *string    `json:"note,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// IsOpen reports whether the trade still holds shares
func (t *Trade) IsOpen() bool {
	return t.Status == StatusOpen
}

// CapitalAnchor seeds a strategy's ledger at a date
type CapitalAnchor struct {
	ID         int64     `json:"id"`
	UserID     string    `json:"user_id"`
	StrategyID int64     `json:"strategy_id"`
	Amount     float64   `json:"amount"`
	AnchorDate time.Time `json:"anchor_date"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// CapitalPoint is one derived daily sample of a strategy's ledger. The
// daily value serializes as "capital" on the history wire; the snapshot
// endpoint reports it as total_assets.
type CapitalPoint struct {
	UserID         string    `json:"user_id"`
	StrategyID     int64     `json:"strategy_id"`
	Date           time.Time `json:"date"`
	TotalAssets    float64   `json:"capital"`
	AvailableFunds float64   `json:"available_funds"`
	PositionValue  float64   `json:"position_value"`
}

// AlertDelivery records when an alert email was last sent for a target
type AlertDelivery struct {
	UserID     string    `json:"user_id"`
	StockCode  string    `json:"stock_code"`
	Direction  string    `json:"direction"`
	LastSentAt time.Time `json:"last_sent_at"`
}

// PaymentOrder is a billing order awaiting admin confirmation
type PaymentOrder struct {
	ID        string     `json:"id"`
	UserID    string     `json:"user_id"`
	Plan      string     `json:"plan"`
	Amount    float64    `json:"amount"`
	Status    string     `json:"status"`
	CreatedAt time.Time  `json:"created_at"`
	PaidAt    *time.Time `json:"paid_at,omitempty"`
}

// OpenPosition is the monitor's view of one open lot with its alert settings
type OpenPosition struct {
	TradeID            int64
	UserID             string
	StrategyID         int64
	Market             string
	StockCode          string
	StockName          *string
	Shares             float64
	BuyPrice           float64
	StopLossPrice      *float64
	TakeProfitPrice    *float64
	StopLossAlert      bool
	TakeProfitAlert    bool
	EmailAlertsEnabled bool
	Email              string
}
