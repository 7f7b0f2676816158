package database

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is satisfied by both *pgxpool.Pool and pgx.Tx so ledger mutations can
// run inside the recompute transaction.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository provides data access methods
type Repository struct {
	db *DB
}

// NewRepository creates a new repository
func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

// HealthCheck performs a database health check
func (r *Repository) HealthCheck(ctx context.Context) error {
	return r.db.Pool.Ping(ctx)
}

// GetDB returns the underlying DB instance
func (r *Repository) GetDB() *DB {
	return r.db
}

// BeginTx starts a transaction
func (r *Repository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	return r.db.Pool.Begin(ctx)
}

const tradeColumns = `id, user_id, strategy_id, stock_code, stock_name, direction, shares,
	buy_price, sell_price, buy_time, sell_time, commission_buy, commission_sell,
	stop_loss_price, take_profit_price, stop_loss_alert, take_profit_alert,
	status, order_result, theoretical_rr, actual_rr, parent_trade_id, is_deleted,
	note, created_at, updated_at`

func scanTrade(row pgx.Row) (*Trade, error) {
	trade := &Trade{}
	err := row.Scan(
		&trade.ID, &trade.UserID, &trade.StrategyID, &trade.StockCode, &trade.StockName,
		&trade.Direction, &trade.Shares, &trade.BuyPrice, &trade.SellPrice,
		&trade.BuyTime, &trade.SellTime, &trade.CommissionBuy, &trade.CommissionSell,
		&trade.StopLossPrice, &trade.TakeProfitPrice, &trade.StopLossAlert, &trade.TakeProfitAlert,
		&trade.Status, &trade.OrderResult, &trade.TheoreticalRR, &trade.ActualRR,
		&trade.ParentTradeID, &trade.IsDeleted, &trade.Note, &trade.CreatedAt, &trade.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return trade, nil
}

func (r *Repository) queryTrades(ctx context.Context, q DBTX, query string, args ...interface{}) ([]*Trade, error) {
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trades []*Trade
	for rows.Next() {
		trade, err := scanTrade(rows)
		if err != nil {
			return nil, err
		}
		trades = append(trades, trade)
	}
	return trades, rows.Err()
}

// ============================================================================
// TRADES
// ============================================================================

// CreateTrade inserts a new trade within q (pool or transaction)
func (r *Repository) CreateTrade(ctx context.Context, q DBTX, trade *Trade) error {
	query := `
		INSERT INTO trades (user_id, strategy_id, stock_code, stock_name, direction, shares,
			buy_price, sell_price, buy_time, sell_time, commission_buy, commission_sell,
			stop_loss_price, take_profit_price, stop_loss_alert, take_profit_alert,
			status, order_result, theoretical_rr, actual_rr, parent_trade_id, note)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22)
		RETURNING id, created_at, updated_at
	`
	return q.QueryRow(
		ctx, query,
		trade.UserID, trade.StrategyID, trade.StockCode, trade.StockName, trade.Direction,
		trade.Shares, trade.BuyPrice, trade.SellPrice, trade.BuyTime, trade.SellTime,
		trade.CommissionBuy, trade.CommissionSell, trade.StopLossPrice, trade.TakeProfitPrice,
		trade.StopLossAlert, trade.TakeProfitAlert, trade.Status, trade.OrderResult,
		trade.TheoreticalRR, trade.ActualRR, trade.ParentTradeID, trade.Note,
	).Scan(&trade.ID, &trade.CreatedAt, &trade.UpdatedAt)
}

// UpdateTrade rewrites every mutable column of a trade
func (r *Repository) UpdateTrade(ctx context.Context, q DBTX, trade *Trade) error {
	query := `
		UPDATE trades
		SET stock_code = $2, stock_name = $3, shares = $4, buy_price = $5, sell_price = $6,
			buy_time = $7, sell_time = $8, commission_buy = $9, commission_sell = $10,
			stop_loss_price = $11, take_profit_price = $12, stop_loss_alert = $13,
			take_profit_alert = $14, status = $15, order_result = $16,
			theoretical_rr = $17, actual_rr = $18, note = $19
		WHERE id = $1
	`
	_, err := q.Exec(
		ctx, query,
		trade.ID, trade.StockCode, trade.StockName, trade.Shares, trade.BuyPrice,
		trade.SellPrice, trade.BuyTime, trade.SellTime, trade.CommissionBuy, trade.CommissionSell,
		trade.StopLossPrice, trade.TakeProfitPrice, trade.StopLossAlert, trade.TakeProfitAlert,
		trade.Status, trade.OrderResult, trade.TheoreticalRR, trade.ActualRR, trade.Note,
	)
	return err
}

// SoftDeleteTrade marks a trade and its partial-close children deleted
func (r *Repository) SoftDeleteTrade(ctx context.Context, q DBTX, tradeID int64) error {
	_, err := q.Exec(ctx,
		`UPDATE trades SET is_deleted = TRUE WHERE id = $1 OR parent_trade_id = $1`,
		tradeID)
	return err
}

// SoftDeleteTradesByStrategy marks every trade of a strategy deleted and
// returns how many rows were affected
func (r *Repository) SoftDeleteTradesByStrategy(ctx context.Context, q DBTX, strategyID int64) (int64, error) {
	tag, err := q.Exec(ctx,
		`UPDATE trades SET is_deleted = TRUE WHERE strategy_id = $1 AND is_deleted = FALSE`,
		strategyID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// GetTradeByID retrieves a trade by ID scoped to its owner
func (r *Repository) GetTradeByID(ctx context.Context, userID string, id int64) (*Trade, error) {
	query := `SELECT ` + tradeColumns + ` FROM trades WHERE id = $1 AND user_id = $2 AND is_deleted = FALSE`
	return scanTrade(r.db.Pool.QueryRow(ctx, query, id, userID))
}

// GetActiveTrades retrieves every non-deleted trade of a strategy,
// oldest first. This is the recomputer's input.
func (r *Repository) GetActiveTrades(ctx context.Context, q DBTX, strategyID int64) ([]*Trade, error) {
	query := `SELECT ` + tradeColumns + ` FROM trades
		WHERE strategy_id = $1 AND is_deleted = FALSE
		ORDER BY buy_time ASC, id ASC`
	return r.queryTrades(ctx, q, query, strategyID)
}

// ListTrades retrieves non-deleted trades of a strategy with pagination,
// newest first. Returns the page and the total count.
func (r *Repository) ListTrades(ctx context.Context, userID string, strategyID int64, limit, offset int) ([]*Trade, int, error) {
	var total int
	err := r.db.Pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM trades WHERE strategy_id = $1 AND user_id = $2 AND is_deleted = FALSE`,
		strategyID, userID).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + tradeColumns + ` FROM trades
		WHERE strategy_id = $1 AND user_id = $2 AND is_deleted = FALSE
		ORDER BY buy_time DESC, id DESC
		LIMIT $3 OFFSET $4`
	trades, err := r.queryTrades(ctx, r.db.Pool, query, strategyID, userID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	return trades, total, nil
}

// ListTradesByDate retrieves trades whose buy or sell falls on a calendar day
// in the given reporting zone
func (r *Repository) ListTradesByDate(ctx context.Context, userID string, strategyID int64, dayStart, dayEnd time.Time) ([]*Trade, error) {
	query := `SELECT ` + tradeColumns + ` FROM trades
		WHERE strategy_id = $1 AND user_id = $2 AND is_deleted = FALSE
		AND ((buy_time >= $3 AND buy_time < $4) OR (sell_time >= $3 AND sell_time < $4))
		ORDER BY buy_time ASC, id ASC`
	return r.queryTrades(ctx, r.db.Pool, query, strategyID, userID, dayStart, dayEnd)
}

// ListTradeTimes returns the buy and sell timestamps of all trades of a
// strategy; the caller folds them into distinct calendar dates.
func (r *Repository) ListTradeTimes(ctx context.Context, userID string, strategyID int64) ([]time.Time, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT buy_time, sell_time FROM trades
		 WHERE strategy_id = $1 AND user_id = $2 AND is_deleted = FALSE`,
		strategyID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var times []time.Time
	for rows.Next() {
		var buyTime time.Time
		var sellTime *time.Time
		if err := rows.Scan(&buyTime, &sellTime); err != nil {
			return nil, err
		}
		times = append(times, buyTime)
		if sellTime != nil {
			times = append(times, *sellTime)
		}
	}
	return times, rows.Err()
}

// StockCode pairs an instrument code with its display name
type StockCode struct {
	Code string  `json:"code"`
	Name *string `json:"name,omitempty"`
}

// ListStockCodes returns the distinct instrument codes traded under a strategy
func (r *Repository) ListStockCodes(ctx context.Context, userID string, strategyID int64) ([]StockCode, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT DISTINCT ON (stock_code) stock_code, stock_name FROM trades
		 WHERE strategy_id = $1 AND user_id = $2 AND is_deleted = FALSE
		 ORDER BY stock_code, id DESC`,
		strategyID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var codes []StockCode
	for rows.Next() {
		var sc StockCode
		if err := rows.Scan(&sc.Code, &sc.Name); err != nil {
			return nil, err
		}
		codes = append(codes, sc)
	}
	return codes, rows.Err()
}

// ListTradesByCode retrieves trades of one instrument under a strategy
func (r *Repository) ListTradesByCode(ctx context.Context, userID string, strategyID int64, code string) ([]*Trade, error) {
	query := `SELECT ` + tradeColumns + ` FROM trades
		WHERE strategy_id = $1 AND user_id = $2 AND stock_code = $3 AND is_deleted = FALSE
		ORDER BY buy_time ASC, id ASC`
	return r.queryTrades(ctx, r.db.Pool, query, strategyID, userID, code)
}

// GetOpenParentTrades retrieves the still-open, non-child trades of a strategy
func (r *Repository) GetOpenParentTrades(ctx context.Context, userID string, strategyID int64) ([]*Trade, error) {
	query := `SELECT ` + tradeColumns + ` FROM trades
		WHERE strategy_id = $1 AND user_id = $2 AND is_deleted = FALSE
		AND status = 'open' AND parent_trade_id IS NULL
		ORDER BY buy_time ASC, id ASC`
	return r.queryTrades(ctx, r.db.Pool, query, strategyID, userID)
}

// GetChildren retrieves the partial-close children of a parent trade,
// earliest close first
func (r *Repository) GetChildren(ctx context.Context, parentID int64) ([]*Trade, error) {
	query := `SELECT ` + tradeColumns + ` FROM trades
		WHERE parent_trade_id = $1 AND is_deleted = FALSE
		ORDER BY sell_time ASC, id ASC`
	return r.queryTrades(ctx, r.db.Pool, query, parentID)
}

// GetOpenAlertPositions enumerates every open lot across all users together
// with the owner's alert preferences. The monitor calls this once per tick.
func (r *Repository) GetOpenAlertPositions(ctx context.Context) ([]*OpenPosition, error) {
	query := `
		SELECT t.id, t.user_id, t.strategy_id, s.market, t.stock_code, t.stock_name,
		       t.shares, t.buy_price, t.stop_loss_price, t.take_profit_price,
		       t.stop_loss_alert, t.take_profit_alert, u.email_alerts_enabled, u.email
		FROM trades t
		JOIN strategies s ON s.id = t.strategy_id
		JOIN users u ON u.id = t.user_id
		WHERE t.status = 'open' AND t.is_deleted = FALSE AND t.parent_trade_id IS NULL
		AND s.is_deleted = FALSE
	`
	rows, err := r.db.Pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var positions []*OpenPosition
	for rows.Next() {
		p := &OpenPosition{}
		err := rows.Scan(
			&p.TradeID, &p.UserID, &p.StrategyID, &p.Market, &p.StockCode, &p.StockName,
			&p.Shares, &p.BuyPrice, &p.StopLossPrice, &p.TakeProfitPrice,
			&p.StopLossAlert, &p.TakeProfitAlert, &p.EmailAlertsEnabled, &p.Email,
		)
		if err != nil {
			return nil, err
		}
		positions = append(positions, p)
	}
	return positions, rows.Err()
}
