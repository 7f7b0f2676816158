package database

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
)

// Payment order status values
const (
	OrderStatusPending   = "pending"
	OrderStatusPaid      = "paid"
	OrderStatusCancelled = "cancelled"
)

// CreatePaymentOrder inserts a new pending order
func (r *Repository) CreatePaymentOrder(ctx context.Context, order *PaymentOrder) error {
	query := `
		INSERT INTO payment_orders (id, user_id, plan, amount, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`
	return r.db.Pool.QueryRow(ctx, query,
		order.ID, order.UserID, order.Plan, order.Amount, order.Status).
		Scan(&order.CreatedAt)
}

// GetPaymentOrder retrieves an order by ID
func (r *Repository) GetPaymentOrder(ctx context.Context, id string) (*PaymentOrder, error) {
	order := &PaymentOrder{}
	err := r.db.Pool.QueryRow(ctx,
		`SELECT id, user_id, plan, amount, status, created_at, paid_at
		 FROM payment_orders WHERE id = $1`, id).
		Scan(&order.ID, &order.UserID, &order.Plan, &order.Amount,
			&order.Status, &order.CreatedAt, &order.PaidAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return order, nil
}

// ListPaymentOrders retrieves a user's orders, newest first
func (r *Repository) ListPaymentOrders(ctx context.Context, userID string) ([]*PaymentOrder, error) {
	return r.queryOrders(ctx,
		`SELECT id, user_id, plan, amount, status, created_at, paid_at
		 FROM payment_orders WHERE user_id = $1 ORDER BY created_at DESC`, userID)
}

// ListPendingPaymentOrders retrieves all pending orders across users. Admin only.
func (r *Repository) ListPendingPaymentOrders(ctx context.Context) ([]*PaymentOrder, error) {
	return r.queryOrders(ctx,
		`SELECT id, user_id, plan, amount, status, created_at, paid_at
		 FROM payment_orders WHERE status = 'pending' ORDER BY created_at ASC`)
}

func (r *Repository) queryOrders(ctx context.Context, query string, args ...interface{}) ([]*PaymentOrder, error) {
	rows, err := r.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []*PaymentOrder
	for rows.Next() {
		order := &PaymentOrder{}
		err := rows.Scan(&order.ID, &order.UserID, &order.Plan, &order.Amount,
			&order.Status, &order.CreatedAt, &order.PaidAt)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	return orders, rows.Err()
}

// MarkOrderPaid transitions a pending order to paid within q. Returns
// ErrNotFound when the order does not exist or is not pending.
func (r *Repository) MarkOrderPaid(ctx context.Context, q DBTX, orderID string) error {
	tag, err := q.Exec(ctx,
		`UPDATE payment_orders SET status = 'paid', paid_at = CURRENT_TIMESTAMP
		 WHERE id = $1 AND status = 'pending'`, orderID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// CancelOrder transitions a pending order to cancelled
func (r *Repository) CancelOrder(ctx context.Context, userID, orderID string) error {
	tag, err := r.db.Pool.Exec(ctx,
		`UPDATE payment_orders SET status = 'cancelled'
		 WHERE id = $1 AND user_id = $2 AND status = 'pending'`, orderID, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
