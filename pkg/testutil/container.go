// Package testutil provides testing utilities for the AgroTrace backend.
// It includes testcontainers for PostgreSQL, mock factories, and common
// test fixtures.
package testutil

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// PostgresContainer wraps a testcontainers PostgreSQL instance
type PostgresContainer struct {
	*postgres.PostgresContainer
	DSN string
}

// PostgresContainerConfig configures the test PostgreSQL container
type PostgresContainerConfig struct {
	Database string
	Username string
	Password string
	Image    string // Optional: defaults to postgres:15-alpine
}

// DefaultPostgresConfig returns sensible defaults for test containers
func DefaultPostgresConfig() PostgresContainerConfig {
	return PostgresContainerConfig{
		Database: "agrotrace_test",
		Username: "test",
		Password: "test",
		Image:    "postgres:15-alpine",
	}
}

// NewPostgresContainer creates a new PostgreSQL test container.
//
// Usage:
//
//	func TestMain(m *testing.M) {
//	    ctx := context.Background()
//	    container, err := testutil.NewPostgresContainer(ctx, testutil.DefaultPostgresConfig())
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    defer container.Terminate(ctx)
//
//	    code := m.Run()
//	    os.Exit(code)
//	}
func NewPostgresContainer(ctx context.Context, cfg PostgresContainerConfig) (*PostgresContainer, error) {
	if cfg.Image == "" {
		cfg.Image = "postgres:15-alpine"
	}
	if cfg.Database == "" {
		cfg.Database = "agrotrace_test"
	}
	if cfg.Username == "" {
		cfg.Username = "test"
	}
	if cfg.Password == "" {
		cfg.Password = "test"
	}

	container, err := postgres.RunContainer(ctx,
		testcontainers.WithImage(cfg.Image),
		postgres.WithDatabase(cfg.Database),
		postgres.WithUsername(cfg.Username),
		postgres.WithPassword(cfg.Password),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start postgres container: %w", err)
	}

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		container.Terminate(ctx)
		return nil, fmt.Errorf("failed to get connection string: %w", err)
	}

	return &PostgresContainer{
		PostgresContainer: container,
		DSN:               dsn,
	}, nil
}

// Connect returns a sqlx.DB connection to the container
func (c *PostgresContainer) Connect(ctx context.Context) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", c.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to test database: %w", err)
	}
	return db, nil
}

// Terminate stops and removes the container
func (c *PostgresContainer) Terminate(ctx context.Context) error {
	return c.PostgresContainer.Terminate(ctx)
}

// CreateTraceSchema creates the tables the trace service persists to.
// Kept in sync with the production migrations by hand.
func (c *PostgresContainer) CreateTraceSchema(ctx context.Context, db *sqlx.DB) error {
	schema := `
		CREATE TABLE IF NOT EXISTS operation_types (
			id BIGSERIAL PRIMARY KEY,
			name VARCHAR(100) NOT NULL,
			code VARCHAR(5) UNIQUE NOT NULL
		);

		CREATE TABLE IF NOT EXISTS products (
			id BIGSERIAL PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			lot_code VARCHAR(2) NOT NULL,
			active BOOLEAN NOT NULL DEFAULT TRUE
		);

		CREATE TABLE IF NOT EXISTS warehouses (
			id BIGSERIAL PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			lot_code VARCHAR(2) NOT NULL,
			max_capacity NUMERIC(14,3),
			current_capacity NUMERIC(14,3) NOT NULL DEFAULT 0,
			active BOOLEAN NOT NULL DEFAULT TRUE
		);

		CREATE TABLE IF NOT EXISTS suppliers (
			id BIGSERIAL PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			origin_code VARCHAR(2)
		);

		CREATE TABLE IF NOT EXISTS clients (
			id BIGSERIAL PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			origin_code VARCHAR(2)
		);

		CREATE TABLE IF NOT EXISTS lot_counters (
			id BIGSERIAL PRIMARY KEY,
			operation_code VARCHAR(5) NOT NULL,
			origin_code VARCHAR(2) NOT NULL,
			product_code VARCHAR(2) NOT NULL,
			warehouse_code VARCHAR(2) NOT NULL,
			year_code VARCHAR(2) NOT NULL,
			year INT NOT NULL,
			consecutive INT NOT NULL DEFAULT 1,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CONSTRAINT lot_counters_key_unique UNIQUE
				(operation_code, origin_code, product_code, warehouse_code, year_code, year)
		);

		CREATE TABLE IF NOT EXISTS receivings (
			id BIGSERIAL PRIMARY KEY,
			ticket VARCHAR(50) NOT NULL,
			lot_code VARCHAR(30) UNIQUE,
			status VARCHAR(30) NOT NULL DEFAULT 'Pending',
			warehouse_id BIGINT REFERENCES warehouses(id),
			product_id BIGINT REFERENCES products(id),
			supplier_id BIGINT REFERENCES suppliers(id),
			driver_name VARCHAR(255),
			plates VARCHAR(20),
			transport_type VARCHAR(50),
			gross_weight NUMERIC(14,3),
			tare_weight NUMERIC(14,3),
			net_weight NUMERIC(14,3),
			seals VARCHAR(100),
			notes TEXT,
			received_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE TABLE IF NOT EXISTS shipments (
			id BIGSERIAL PRIMARY KEY,
			ticket VARCHAR(50) NOT NULL,
			lot_code VARCHAR(30) UNIQUE,
			status VARCHAR(30) NOT NULL DEFAULT 'Pending',
			shipment_type VARCHAR(20) NOT NULL DEFAULT 'national',
			warehouse_id BIGINT REFERENCES warehouses(id),
			product_id BIGINT REFERENCES products(id),
			client_id BIGINT REFERENCES clients(id),
			driver_name VARCHAR(255),
			plates VARCHAR(20),
			transport_type VARCHAR(50),
			gross_weight NUMERIC(14,3),
			tare_weight NUMERIC(14,3),
			net_weight NUMERIC(14,3),
			seals VARCHAR(100),
			notes TEXT,
			shipped_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE TABLE IF NOT EXISTS lots (
			id BIGSERIAL PRIMARY KEY,
			code VARCHAR(30) UNIQUE NOT NULL,
			operation_code VARCHAR(5) NOT NULL,
			origin_code VARCHAR(2) NOT NULL,
			product_code VARCHAR(2) NOT NULL,
			warehouse_code VARCHAR(2) NOT NULL,
			year_code VARCHAR(2) NOT NULL,
			year INT NOT NULL,
			consecutive INT NOT NULL,
			active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			deleted_at TIMESTAMPTZ
		);

		CREATE TABLE IF NOT EXISTS warehouse_product_balances (
			id BIGSERIAL PRIMARY KEY,
			warehouse_id BIGINT NOT NULL REFERENCES warehouses(id),
			product_id BIGINT NOT NULL REFERENCES products(id),
			balance NUMERIC(14,3) NOT NULL DEFAULT 0,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CONSTRAINT warehouse_product_unique UNIQUE (warehouse_id, product_id)
		);

		CREATE TABLE IF NOT EXISTS audit_log (
			id UUID PRIMARY KEY,
			table_name VARCHAR(100) NOT NULL,
			record_id BIGINT NOT NULL,
			action VARCHAR(20) NOT NULL,
			before_data JSONB,
			after_data JSONB,
			actor_id VARCHAR(100),
			actor_email VARCHAR(255),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
	`

	_, err := db.ExecContext(ctx, schema)
	if err != nil {
		return fmt.Errorf("failed to create trace schema: %w", err)
	}

	return nil
}
