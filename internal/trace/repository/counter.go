package repository

import (
	"context"
	"time"

	"github.com/agrotrace/agrotrace-backend/internal/trace/lotcode"
	"github.com/agrotrace/agrotrace-backend/pkg/database"
)

// ConsecutiveCounter is one row of the lot_counters table. Each row holds
// the last consecutive handed out for its key.
type ConsecutiveCounter struct {
	ID            int64     `db:"id" json:"id"`
	OperationCode string    `db:"operation_code" json:"operation_code"`
	OriginCode    string    `db:"origin_code" json:"origin_code"`
	ProductCode   string    `db:"product_code" json:"product_code"`
	WarehouseCode string    `db:"warehouse_code" json:"warehouse_code"`
	YearCode      string    `db:"year_code" json:"year_code"`
	Year          int       `db:"year" json:"year"`
	Consecutive   int       `db:"consecutive" json:"consecutive"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// CounterRepository hands out consecutive numbers per counter key.
type CounterRepository struct {
	db *database.DB
}

// NewCounterRepository creates a new counter repository
func NewCounterRepository(db *database.DB) *CounterRepository {
	return &CounterRepository{db: db}
}

// IncrementOrCreate atomically claims the next consecutive for the key.
// A missing counter row is created at 1 in the same statement; no state
// where the row exists but was never claimed is observable. Concurrent
// callers each receive a distinct value with no gaps.
func (r *CounterRepository) IncrementOrCreate(ctx context.Context, key lotcode.Key) (*ConsecutiveCounter, error) {
	query := `
		INSERT INTO lot_counters (
			operation_code, origin_code, product_code, warehouse_code, year_code, year, consecutive, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, 1, NOW())
		ON CONFLICT ON CONSTRAINT lot_counters_key_unique
		DO UPDATE SET consecutive = lot_counters.consecutive + 1, updated_at = NOW()
		RETURNING id, operation_code, origin_code, product_code, warehouse_code, year_code, year, consecutive, updated_at
	`

	var counter ConsecutiveCounter
	err := r.db.GetContext(ctx, &counter, query,
		key.OperationCode, key.OriginCode, key.ProductCode, key.WarehouseCode, key.YearCode, key.Year,
	)
	if err != nil {
		return nil, err
	}

	return &counter, nil
}

// Get reads the current counter row for a key without claiming a number.
// Used by reporting; returns sql.ErrNoRows when nothing was allocated yet.
func (r *CounterRepository) Get(ctx context.Context, key lotcode.Key) (*ConsecutiveCounter, error) {
	query := `
		SELECT id, operation_code, origin_code, product_code, warehouse_code, year_code, year, consecutive, updated_at
		FROM lot_counters
		WHERE operation_code = $1 AND origin_code = $2 AND product_code = $3
		  AND warehouse_code = $4 AND year_code = $5 AND year = $6
	`

	var counter ConsecutiveCounter
	err := r.db.GetContext(ctx, &counter, query,
		key.OperationCode, key.OriginCode, key.ProductCode, key.WarehouseCode, key.YearCode, key.Year,
	)
	if err != nil {
		return nil, err
	}

	return &counter, nil
}
