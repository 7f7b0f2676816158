package database

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
)

// GetCapitalAnchor retrieves the anchor of a strategy, ErrNotFound when unset
func (r *Repository) GetCapitalAnchor(ctx context.Context, q DBTX, strategyID int64) (*CapitalAnchor, error) {
	a := &CapitalAnchor{}
	err := q.QueryRow(ctx,
		`SELECT id, user_id, strategy_id, amount, anchor_date, updated_at
		 FROM capital_anchors WHERE strategy_id = $1`,
		strategyID).
		Scan(&a.ID, &a.UserID, &a.StrategyID, &a.Amount, &a.AnchorDate, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

// UpsertCapitalAnchor sets or moves the single anchor of a strategy
func (r *Repository) UpsertCapitalAnchor(ctx context.Context, q DBTX, a *CapitalAnchor) error {
	query := `
		INSERT INTO capital_anchors (user_id, strategy_id, amount, anchor_date)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (strategy_id) DO UPDATE
		SET amount = EXCLUDED.amount,
		    anchor_date = EXCLUDED.anchor_date,
		    updated_at = CURRENT_TIMESTAMP
		RETURNING id, updated_at
	`
	return q.QueryRow(ctx, query, a.UserID, a.StrategyID, a.Amount, a.AnchorDate).
		Scan(&a.ID, &a.UpdatedAt)
}

// DeleteCapitalAnchor removes the anchor of a strategy
func (r *Repository) DeleteCapitalAnchor(ctx context.Context, q DBTX, strategyID int64) error {
	_, err := q.Exec(ctx, `DELETE FROM capital_anchors WHERE strategy_id = $1`, strategyID)
	return err
}

// ReplaceCapitalHistory deletes a strategy's daily series and bulk-loads the
// recomputed one. Must run inside the recompute transaction.
func (r *Repository) ReplaceCapitalHistory(ctx context.Context, tx pgx.Tx, strategyID int64, points []*CapitalPoint) error {
	if _, err := tx.Exec(ctx,
		`DELETE FROM capital_history WHERE strategy_id = $1`, strategyID); err != nil {
		return err
	}
	if len(points) == 0 {
		return nil
	}

	rows := make([][]interface{}, len(points))
	for i, p := range points {
		rows[i] = []interface{}{
			p.UserID, p.StrategyID, p.Date, p.TotalAssets, p.AvailableFunds, p.PositionValue,
		}
	}

	_, err := tx.CopyFrom(
		ctx,
		pgx.Identifier{"capital_history"},
		[]string{"user_id", "strategy_id", "date", "total_assets", "available_funds", "position_value"},
		pgx.CopyFromRows(rows),
	)
	return err
}

// GetCapitalHistory retrieves the daily series of a strategy, optionally
// bounded by [from, to] inclusive
func (r *Repository) GetCapitalHistory(ctx context.Context, userID string, strategyID int64, from, to *time.Time) ([]*CapitalPoint, error) {
	query := `SELECT user_id, strategy_id, date, total_assets, available_funds, position_value
		FROM capital_history WHERE strategy_id = $1 AND user_id = $2`
	args := []interface{}{strategyID, userID}
	if from != nil {
		args = append(args, *from)
		query += ` AND date >= $3`
	}
	if to != nil {
		args = append(args, *to)
		if from != nil {
			query += ` AND date <= $4`
		} else {
			query += ` AND date <= $3`
		}
	}
	query += ` ORDER BY date ASC`

	rows, err := r.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var points []*CapitalPoint
	for rows.Next() {
		p := &CapitalPoint{}
		err := rows.Scan(&p.UserID, &p.StrategyID, &p.Date,
			&p.TotalAssets, &p.AvailableFunds, &p.PositionValue)
		if err != nil {
			return nil, err
		}
		points = append(points, p)
	}
	return points, rows.Err()
}

// GetLatestCapitalPoint retrieves the most recent daily sample of a strategy
func (r *Repository) GetLatestCapitalPoint(ctx context.Context, userID string, strategyID int64) (*CapitalPoint, error) {
	p := &CapitalPoint{}
	err := r.db.Pool.QueryRow(ctx,
		`SELECT user_id, strategy_id, date, total_assets, available_funds, position_value
		 FROM capital_history WHERE strategy_id = $1 AND user_id = $2
		 ORDER BY date DESC LIMIT 1`,
		strategyID, userID).
		Scan(&p.UserID, &p.StrategyID, &p.Date, &p.TotalAssets, &p.AvailableFunds, &p.PositionValue)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}
