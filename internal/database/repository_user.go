package database

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
)

// ErrNotFound is returned when a lookup matches no row
var ErrNotFound = errors.New("not found")

const userColumns = `id, username, email, password_hash, email_alerts_enabled,
	is_admin, is_paid, paid_until, plan, created_at, updated_at`

func scanUser(row pgx.Row) (*User, error) {
	user := &User{}
	err := row.Scan(
		&user.ID, &user.Username, &user.Email, &user.PasswordHash,
		&user.EmailAlertsEnabled, &user.IsAdmin, &user.IsPaid,
		&user.PaidUntil, &user.Plan, &user.CreatedAt, &user.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

// CreateUser inserts a new user
func (r *Repository) CreateUser(ctx context.Context, user *User) error {
	query := `
		INSERT INTO users (id, username, email, password_hash, email_alerts_enabled, is_admin)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at
	`
	return r.db.Pool.QueryRow(
		ctx, query,
		user.ID, user.Username, user.Email, user.PasswordHash,
		user.EmailAlertsEnabled, user.IsAdmin,
	).Scan(&user.CreatedAt, &user.UpdatedAt)
}

// GetUserByID retrieves a user by ID
func (r *Repository) GetUserByID(ctx context.Context, id string) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.db.Pool.QueryRow(ctx, query, id))
}

// GetUserByUsername retrieves a user by username
func (r *Repository) GetUserByUsername(ctx context.Context, username string) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = $1`
	return scanUser(r.db.Pool.QueryRow(ctx, query, username))
}

// GetUserByEmail retrieves a user by email
func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return scanUser(r.db.Pool.QueryRow(ctx, query, email))
}

// UpdateUserEmailAlerts toggles email alert delivery for a user
func (r *Repository) UpdateUserEmailAlerts(ctx context.Context, userID string, enabled bool) error {
	_, err := r.db.Pool.Exec(ctx,
		`UPDATE users SET email_alerts_enabled = $2 WHERE id = $1`,
		userID, enabled)
	return err
}

// UpdateUserPassword replaces a user's password hash
func (r *Repository) UpdateUserPassword(ctx context.Context, userID, passwordHash string) error {
	_, err := r.db.Pool.Exec(ctx,
		`UPDATE users SET password_hash = $2 WHERE id = $1`,
		userID, passwordHash)
	return err
}

// UpdateUserPlan marks a user as paid on a plan through the given date
func (r *Repository) UpdateUserPlan(ctx context.Context, q DBTX, userID, plan string, paidUntil time.Time) error {
	_, err := q.Exec(ctx,
		`UPDATE users SET is_paid = TRUE, plan = $2, paid_until = $3 WHERE id = $1`,
		userID, plan, paidUntil)
	return err
}

// ListUsers retrieves all users, newest first. Admin only.
func (r *Repository) ListUsers(ctx context.Context) ([]*User, error) {
	query := `SELECT ` + userColumns + ` FROM users ORDER BY created_at DESC`
	rows, err := r.db.Pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*User
	for rows.Next() {
		user := &User{}
		err := rows.Scan(
			&user.ID, &user.Username, &user.Email, &user.PasswordHash,
			&user.EmailAlertsEnabled, &user.IsAdmin, &user.IsPaid,
			&user.PaidUntil, &user.Plan, &user.CreatedAt, &user.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}
