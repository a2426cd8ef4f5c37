package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/kitchenlane/catering-ops/internal/config"
	"github.com/kitchenlane/catering-ops/pkg/logger"
)

// Database represents a database connection.
type Database struct {
	DB     *sqlx.DB
	logger logger.Logger
}

// New creates a new database connection.
func New(cfg *config.Config, logger logger.Logger) (*Database, error) {
	db, err := sqlx.Connect("postgres", cfg.GetDBConnString())

	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	logger.Info("Connected to database", "host", cfg.DB.Host, "database", cfg.DB.Name)

	return &Database{
		DB:     db,
		logger: logger,
	}, nil
}

// Ping checks the database connection.
func (d *Database) Ping(ctx context.Context) error {
	return d.DB.PingContext(ctx)
}

// Close closes the database connection.
func (d *Database) Close() error {
	return d.DB.Close()
}

// RunMigrations creates the schema on startup.
func (d *Database) RunMigrations() error {
	schema := `
	CREATE TABLE IF NOT EXISTS orders (
		id VARCHAR(20) PRIMARY KEY,
		customer_name VARCHAR(120) NOT NULL,
		customer_phone VARCHAR(40) NOT NULL,
		address TEXT NOT NULL DEFAULT '',
		items JSONB NOT NULL,
		status VARCHAR(20) NOT NULL,
		amount DECIMAL(10, 2) NOT NULL,
		due_time VARCHAR(60) NOT NULL DEFAULT '',
		driver_id VARCHAR(50),
		payment_method VARCHAR(20),
		order_type VARCHAR(20) NOT NULL,
		version BIGINT NOT NULL DEFAULT 1,
		created_at TIMESTAMP NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMP NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_orders_status ON orders(status);
	CREATE INDEX IF NOT EXISTS idx_orders_driver_id ON orders(driver_id);
	CREATE INDEX IF NOT EXISTS idx_orders_created_at ON orders(created_at);

	CREATE TABLE IF NOT EXISTS products (
		id VARCHAR(50) PRIMARY KEY,
		code VARCHAR(50) NOT NULL UNIQUE,
		name VARCHAR(120) NOT NULL,
		category VARCHAR(60) NOT NULL DEFAULT '',
		price DECIMAL(10, 2) NOT NULL,
		image_url TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMP NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS drivers (
		id VARCHAR(50) PRIMARY KEY,
		name VARCHAR(120) NOT NULL,
		phone VARCHAR(40) NOT NULL DEFAULT '',
		status VARCHAR(20) NOT NULL DEFAULT 'offline',
		current_order_id VARCHAR(20),
		updated_at TIMESTAMP NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS vehicles (
		id VARCHAR(50) PRIMARY KEY,
		model VARCHAR(120) NOT NULL,
		plate VARCHAR(20) NOT NULL,
		status VARCHAR(20) NOT NULL DEFAULT 'available',
		driver_id VARCHAR(50),
		declared_at TIMESTAMP,
		updated_at TIMESTAMP NOT NULL DEFAULT NOW()
	);

	-- Outbox table feeding the change-notification topic
	CREATE TABLE IF NOT EXISTS outbox_messages (
		id SERIAL PRIMARY KEY,
		aggregate_type VARCHAR(50) NOT NULL,
		aggregate_id VARCHAR(50) NOT NULL,
		event_type VARCHAR(50) NOT NULL,
		payload JSONB NOT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT NOW(),
		processed_at TIMESTAMP,
		processing_attempts INT NOT NULL DEFAULT 0,
		last_error TEXT,
		status VARCHAR(20) NOT NULL DEFAULT 'pending'
	);

	CREATE INDEX IF NOT EXISTS idx_outbox_status ON outbox_messages(status);
	CREATE INDEX IF NOT EXISTS idx_outbox_aggregate ON outbox_messages(aggregate_type, aggregate_id);
	`

	_, err := d.DB.Exec(schema)

	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	d.logger.Info("Database migrations completed successfully")
	return nil
}
