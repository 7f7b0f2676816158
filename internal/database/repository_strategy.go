package database

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
)

// CreateStrategy inserts a new strategy
func (r *Repository) CreateStrategy(ctx context.Context, s *Strategy) error {
	query := `
		INSERT INTO strategies (user_id, name, market)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`
	return r.db.Pool.QueryRow(ctx, query, s.UserID, s.Name, s.Market).
		Scan(&s.ID, &s.CreatedAt)
}

// GetStrategy retrieves a strategy by ID scoped to its owner
func (r *Repository) GetStrategy(ctx context.Context, userID string, id int64) (*Strategy, error) {
	s := &Strategy{}
	err := r.db.Pool.QueryRow(ctx,
		`SELECT id, user_id, name, market, created_at FROM strategies
		 WHERE id = $1 AND user_id = $2 AND is_deleted = FALSE`,
		id, userID).
		Scan(&s.ID, &s.UserID, &s.Name, &s.Market, &s.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

// ListStrategies retrieves a user's strategies for one market
func (r *Repository) ListStrategies(ctx context.Context, userID, market string) ([]*Strategy, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT id, user_id, name, market, created_at FROM strategies
		 WHERE user_id = $1 AND market = $2 AND is_deleted = FALSE
		 ORDER BY created_at ASC, id ASC`,
		userID, market)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var strategies []*Strategy
	for rows.Next() {
		s := &Strategy{}
		if err := rows.Scan(&s.ID, &s.UserID, &s.Name, &s.Market, &s.CreatedAt); err != nil {
			return nil, err
		}
		strategies = append(strategies, s)
	}
	return strategies, rows.Err()
}

// RenameStrategy updates a strategy's name
func (r *Repository) RenameStrategy(ctx context.Context, userID string, id int64, name string) error {
	tag, err := r.db.Pool.Exec(ctx,
		`UPDATE strategies SET name = $3 WHERE id = $1 AND user_id = $2 AND is_deleted = FALSE`,
		id, userID, name)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteStrategy soft-deletes a strategy row. Its trades are soft-deleted
// separately; anchors and history are removed by the caller.
func (r *Repository) DeleteStrategy(ctx context.Context, q DBTX, userID string, id int64) error {
	tag, err := q.Exec(ctx,
		`UPDATE strategies SET is_deleted = TRUE
		 WHERE id = $1 AND user_id = $2 AND is_deleted = FALSE`,
		id, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
