package database

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
)

// GetAlertLastSent returns when an alert email was last sent for a
// (user, code, direction) target, ErrNotFound when never
func (r *Repository) GetAlertLastSent(ctx context.Context, userID, stockCode, direction string) (time.Time, error) {
	var lastSent time.Time
	err := r.db.Pool.QueryRow(ctx,
		`SELECT last_sent_at FROM alert_delivery
		 WHERE user_id = $1 AND stock_code = $2 AND direction = $3`,
		userID, stockCode, direction).Scan(&lastSent)
	if errors.Is(err, pgx.ErrNoRows) {
		return time.Time{}, ErrNotFound
	}
	if err != nil {
		return time.Time{}, err
	}
	return lastSent, nil
}

// RecordAlertSent upserts the delivery timestamp for a target
func (r *Repository) RecordAlertSent(ctx context.Context, userID, stockCode, direction string, sentAt time.Time) error {
	_, err := r.db.Pool.Exec(ctx,
		`INSERT INTO alert_delivery (user_id, stock_code, direction, last_sent_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (user_id, stock_code, direction) DO UPDATE
		 SET last_sent_at = EXCLUDED.last_sent_at`,
		userID, stockCode, direction, sentAt)
	return err
}

// SetTradeAlertFlag persists a fired alert flag so it survives restarts
func (r *Repository) SetTradeAlertFlag(ctx context.Context, tradeID int64, direction string, fired bool) error {
	var query string
	switch direction {
	case DirectionStopLoss:
		query = `UPDATE trades SET stop_loss_alert = $2 WHERE id = $1`
	case DirectionTakeProfit:
		query = `UPDATE trades SET take_profit_alert = $2 WHERE id = $1`
	default:
		return errors.New("unknown alert direction: " + direction)
	}
	_, err := r.db.Pool.Exec(ctx, query, tradeID, fired)
	return err
}
