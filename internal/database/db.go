package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"trade-journal/internal/logging"
)

// DB wraps the PostgreSQL connection pool
type DB struct {
	Pool *pgxpool.Pool
}

// Config holds database configuration
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// NewDB creates a new database connection
func NewDB(cfg Config) (*DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode,
	)

	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("unable to parse database config: %w", err)
	}

	poolConfig.MaxConns = 25
	poolConfig.MinConns = 5
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	logging.Info("Connected to PostgreSQL database", "database", cfg.Database)

	return &DB{Pool: pool}, nil
}

// Close closes the database connection
func (db *DB) Close() {
	if db.Pool != nil {
		db.Pool.Close()
		logging.Info("Database connection closed")
	}
}

// BeginTx starts a transaction
func (db *DB) BeginTx(ctx context.Context) (pgx.Tx, error) {
	return db.Pool.Begin(ctx)
}

// RunMigrations executes database migrations
func (db *DB) RunMigrations(ctx context.Context) error {
	logging.Info("Running database migrations...")

	migrations := []string{
		// Users
		`CREATE TABLE IF NOT EXISTS users (
			id UUID PRIMARY KEY,
			username VARCHAR(50) NOT NULL UNIQUE,
			email VARCHAR(255) NOT NULL UNIQUE,
			password_hash VARCHAR(255) NOT NULL,
			email_alerts_enabled BOOLEAN NOT NULL DEFAULT TRUE,
			is_admin BOOLEAN NOT NULL DEFAULT FALSE,
			is_paid BOOLEAN NOT NULL DEFAULT FALSE,
			paid_until TIMESTAMP,
			plan VARCHAR(20),
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_users_username ON users(username)`,

		// Strategies
		`CREATE TABLE IF NOT EXISTS strategies (
			id BIGSERIAL PRIMARY KEY,
			user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			name VARCHAR(100) NOT NULL,
			market VARCHAR(10) NOT NULL DEFAULT 'stock',
			is_deleted BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_strategies_unique_name
			ON strategies(user_id, market, name) WHERE is_deleted = FALSE`,
		`CREATE INDEX IF NOT EXISTS idx_strategies_user ON strategies(user_id, market)`,

		// Trades: a row is an open lot, a closed lot, or a partial-close child
		`CREATE TABLE IF NOT EXISTS trades (
			id BIGSERIAL PRIMARY KEY,
			user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			strategy_id BIGINT NOT NULL REFERENCES strategies(id) ON DELETE CASCADE,
			stock_code VARCHAR(20) NOT NULL,
			stock_name VARCHAR(100),
			direction VARCHAR(4) NOT NULL DEFAULT 'BUY',
			shares DECIMAL(20, 4) NOT NULL,
			buy_price DECIMAL(20, 5) NOT NULL,
			sell_price DECIMAL(20, 5),
			buy_time TIMESTAMP NOT NULL,
			sell_time TIMESTAMP,
			commission_buy DECIMAL(20, 2) NOT NULL DEFAULT 0,
			commission_sell DECIMAL(20, 2) NOT NULL DEFAULT 0,
			stop_loss_price DECIMAL(20, 5),
			take_profit_price DECIMAL(20, 5),
			stop_loss_alert BOOLEAN NOT NULL DEFAULT FALSE,
			take_profit_alert BOOLEAN NOT NULL DEFAULT FALSE,
			status VARCHAR(10) NOT NULL DEFAULT 'open',
			order_result VARCHAR(20),
			theoretical_rr DECIMAL(10, 4),
			actual_rr DECIMAL(10, 4),
			parent_trade_id BIGINT REFERENCES trades(id) ON DELETE SET NULL,
			is_deleted BOOLEAN NOT NULL DEFAULT FALSE,
			note TEXT,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_trades_strategy ON trades(strategy_id, is_deleted)`,
		`CREATE INDEX IF NOT EXISTS idx_trades_status ON trades(status)`,
		`CREATE INDEX IF NOT EXISTS idx_trades_code ON trades(stock_code)`,
		`CREATE INDEX IF NOT EXISTS idx_trades_parent ON trades(parent_trade_id)`,

		// Capital anchors: at most one per strategy
		`CREATE TABLE IF NOT EXISTS capital_anchors (
			id BIGSERIAL PRIMARY KEY,
			user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			strategy_id BIGINT NOT NULL UNIQUE REFERENCES strategies(id) ON DELETE CASCADE,
			amount DECIMAL(20, 2) NOT NULL,
			anchor_date DATE NOT NULL,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,

		// Capital history: derived daily series, replaced wholesale on recompute
		`CREATE TABLE IF NOT EXISTS capital_history (
			user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			strategy_id BIGINT NOT NULL REFERENCES strategies(id) ON DELETE CASCADE,
			date DATE NOT NULL,
			total_assets DECIMAL(20, 2) NOT NULL,
			available_funds DECIMAL(20, 2) NOT NULL,
			position_value DECIMAL(20, 2) NOT NULL,
			PRIMARY KEY (strategy_id, date)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_capital_history_user ON capital_history(user_id)`,

		// Alert delivery records for notification rate limiting
		`CREATE TABLE IF NOT EXISTS alert_delivery (
			user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			stock_code VARCHAR(20) NOT NULL,
			direction VARCHAR(20) NOT NULL,
			last_sent_at TIMESTAMP NOT NULL,
			PRIMARY KEY (user_id, stock_code, direction)
		)`,

		// Payment orders backing the billing gate
		`CREATE TABLE IF NOT EXISTS payment_orders (
			id UUID PRIMARY KEY,
			user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			plan VARCHAR(20) NOT NULL,
			amount DECIMAL(20, 2) NOT NULL,
			status VARCHAR(20) NOT NULL DEFAULT 'pending',
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			paid_at TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_payment_orders_user ON payment_orders(user_id)`,

		// Admin settings (SMTP credentials, billing toggles, plan prices)
		`CREATE TABLE IF NOT EXISTS admin_settings (
			key VARCHAR(100) PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,

		// updated_at triggers
		`CREATE OR REPLACE FUNCTION update_updated_at_column()
		RETURNS TRIGGER AS $$
		BEGIN
			NEW.updated_at = CURRENT_TIMESTAMP;
			RETURN NEW;
		END;
		$$ language 'plpgsql'`,

		`DROP TRIGGER IF EXISTS update_users_updated_at ON users`,
		`CREATE TRIGGER update_users_updated_at BEFORE UPDATE ON users
		FOR EACH ROW EXECUTE FUNCTION update_updated_at_column()`,

		`DROP TRIGGER IF EXISTS update_trades_updated_at ON trades`,
		`CREATE TRIGGER update_trades_updated_at BEFORE UPDATE ON trades
		FOR EACH ROW EXECUTE FUNCTION update_updated_at_column()`,
	}

	for i, migration := range migrations {
		if _, err := db.Pool.Exec(ctx, migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}

	logging.Info("Database migrations completed successfully")
	return nil
}

// HealthCheck performs a database health check
func (db *DB) HealthCheck(ctx context.Context) error {
	return db.Pool.Ping(ctx)
}
