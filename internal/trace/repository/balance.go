package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/agrotrace/agrotrace-backend/pkg/database"
)

// Balance is the running stock of one product in one warehouse.
type Balance struct {
	ID          int64           `db:"id" json:"id"`
	WarehouseID int64           `db:"warehouse_id" json:"warehouse_id"`
	ProductID   int64           `db:"product_id" json:"product_id"`
	Balance     decimal.Decimal `db:"balance" json:"balance"`
	UpdatedAt   time.Time       `db:"updated_at" json:"updated_at"`
}

// AppliedDelta reports the outcome of one balance mutation: the row it
// landed on, the balance before and after, whether the zero floor cut the
// delta short, and whether the row was created by this write.
type AppliedDelta struct {
	ID       int64
	Previous decimal.Decimal
	Balance  decimal.Decimal
	Clamped  bool
	Created  bool
}

// BalanceRepository handles warehouse/product balance persistence
type BalanceRepository struct {
	db *database.DB
}

// NewBalanceRepository creates a new balance repository
func NewBalanceRepository(db *database.DB) *BalanceRepository {
	return &BalanceRepository{db: db}
}

// Table returns the table name for audit entries.
func (r *BalanceRepository) Table() string {
	return "warehouse_product_balances"
}

// Get reads the balance for a warehouse/product pair. A missing row reads
// as a zero balance.
func (r *BalanceRepository) Get(ctx context.Context, warehouseID, productID int64) (*Balance, error) {
	var b Balance
	query := `
		SELECT id, warehouse_id, product_id, balance, updated_at
		FROM warehouse_product_balances
		WHERE warehouse_id = $1 AND product_id = $2
	`

	err := r.db.GetContext(ctx, &b, query, warehouseID, productID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &Balance{
				WarehouseID: warehouseID,
				ProductID:   productID,
				Balance:     decimal.Zero,
			}, nil
		}
		return nil, err
	}

	return &b, nil
}

// ApplyDelta adds a signed delta to the balance for a warehouse/product
// pair, creating the row if needed. The stored balance never goes below
// zero; GREATEST clamps the result at the floor.
func (r *BalanceRepository) ApplyDelta(ctx context.Context, warehouseID, productID int64, delta decimal.Decimal) (*AppliedDelta, error) {
	query := `
		INSERT INTO warehouse_product_balances (warehouse_id, product_id, balance, updated_at)
		VALUES ($1, $2, GREATEST($3::numeric, 0), NOW())
		ON CONFLICT ON CONSTRAINT warehouse_product_unique
		DO UPDATE SET
			balance = GREATEST(warehouse_product_balances.balance + $3::numeric, 0),
			updated_at = NOW()
		RETURNING id, balance,
			COALESCE((SELECT b.balance FROM warehouse_product_balances b
				WHERE b.warehouse_id = $1 AND b.product_id = $2), 0) AS previous,
			(xmax = 0) AS created
	`

	// The RETURNING subselect sees the pre-update snapshot, giving us the
	// old balance to detect clamping without a second round trip. xmax = 0
	// distinguishes a fresh insert from a conflict update.
	var applied AppliedDelta
	row := r.db.QueryRowxContext(ctx, query, warehouseID, productID, delta)
	if err := row.Scan(&applied.ID, &applied.Balance, &applied.Previous, &applied.Created); err != nil {
		return nil, err
	}

	applied.Clamped = applied.Previous.Add(delta).IsNegative()
	return &applied, nil
}

// ListByWarehouse lists all product balances in a warehouse.
func (r *BalanceRepository) ListByWarehouse(ctx context.Context, warehouseID int64) ([]*Balance, error) {
	var balances []*Balance
	query := `
		SELECT id, warehouse_id, product_id, balance, updated_at
		FROM warehouse_product_balances
		WHERE warehouse_id = $1
		ORDER BY product_id
	`

	if err := r.db.SelectContext(ctx, &balances, query, warehouseID); err != nil {
		return nil, err
	}

	return balances, nil
}

// RecomputeWarehouseCapacity rewrites warehouses.current_capacity as the
// sum of the warehouse's product balances.
func (r *BalanceRepository) RecomputeWarehouseCapacity(ctx context.Context, warehouseID int64) (decimal.Decimal, error) {
	query := `
		UPDATE warehouses SET current_capacity = (
			SELECT COALESCE(SUM(balance), 0)
			FROM warehouse_product_balances
			WHERE warehouse_id = $1
		)
		WHERE id = $1
		RETURNING current_capacity
	`

	var capacity decimal.Decimal
	if err := r.db.QueryRowxContext(ctx, query, warehouseID).Scan(&capacity); err != nil {
		return decimal.Zero, err
	}

	return capacity, nil
}
