package repository_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agrotrace/agrotrace-backend/internal/trace/repository"
)

func seedWarehouse(t *testing.T, ctx context.Context, name, code string) int64 {
	t.Helper()

	var id int64
	err := suite.RawDB.QueryRowxContext(ctx,
		`INSERT INTO warehouses (name, lot_code) VALUES ($1, $2) RETURNING id`,
		name, code,
	).Scan(&id)
	require.NoError(t, err)
	return id
}

func seedProduct(t *testing.T, ctx context.Context, name, code string) int64 {
	t.Helper()

	var id int64
	err := suite.RawDB.QueryRowxContext(ctx,
		`INSERT INTO products (name, lot_code) VALUES ($1, $2) RETURNING id`,
		name, code,
	).Scan(&id)
	require.NoError(t, err)
	return id
}

func TestBalanceRepository_ApplyDeltaCreatesRow(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	ctx := context.Background()
	suite.TruncateAll(t, ctx)
	repo := repository.NewBalanceRepository(suite.DB)

	warehouseID := seedWarehouse(t, ctx, "Central Silo", "05")
	productID := seedProduct(t, ctx, "Yellow Corn", "16")

	applied, err := repo.ApplyDelta(ctx, warehouseID, productID, decimal.RequireFromString("1250.500"))
	require.NoError(t, err)
	assert.False(t, applied.Clamped)
	assert.True(t, applied.Created, "the first delta must report a fresh row")
	assert.True(t, applied.Previous.IsZero())
	assert.True(t, applied.Balance.Equal(decimal.RequireFromString("1250.500")))
}

func TestBalanceRepository_ApplyDeltaAccumulates(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	ctx := context.Background()
	suite.TruncateAll(t, ctx)
	repo := repository.NewBalanceRepository(suite.DB)

	warehouseID := seedWarehouse(t, ctx, "Central Silo", "05")
	productID := seedProduct(t, ctx, "Yellow Corn", "16")

	_, err := repo.ApplyDelta(ctx, warehouseID, productID, decimal.RequireFromString("1000"))
	require.NoError(t, err)

	applied, err := repo.ApplyDelta(ctx, warehouseID, productID, decimal.RequireFromString("-300"))
	require.NoError(t, err)
	assert.False(t, applied.Clamped)
	assert.False(t, applied.Created, "the second delta must report the existing row")
	assert.True(t, applied.Previous.Equal(decimal.RequireFromString("1000")))
	assert.True(t, applied.Balance.Equal(decimal.RequireFromString("700")))
}

func TestBalanceRepository_OverdrawClampsAtZero(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	ctx := context.Background()
	suite.TruncateAll(t, ctx)
	repo := repository.NewBalanceRepository(suite.DB)

	warehouseID := seedWarehouse(t, ctx, "Central Silo", "05")
	productID := seedProduct(t, ctx, "Yellow Corn", "16")

	_, err := repo.ApplyDelta(ctx, warehouseID, productID, decimal.RequireFromString("100"))
	require.NoError(t, err)

	applied, err := repo.ApplyDelta(ctx, warehouseID, productID, decimal.RequireFromString("-250"))
	require.NoError(t, err)
	assert.True(t, applied.Clamped, "overdraw must be reported so operators can reconcile")
	assert.True(t, applied.Balance.IsZero())
}

func TestBalanceRepository_GetMissingRowReadsZero(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	ctx := context.Background()
	suite.TruncateAll(t, ctx)
	repo := repository.NewBalanceRepository(suite.DB)

	balance, err := repo.Get(ctx, 404, 404)
	require.NoError(t, err)
	assert.True(t, balance.Balance.IsZero())
}

func TestBalanceRepository_RecomputeWarehouseCapacitySumsProducts(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	ctx := context.Background()
	suite.TruncateAll(t, ctx)
	repo := repository.NewBalanceRepository(suite.DB)

	warehouseID := seedWarehouse(t, ctx, "Central Silo", "05")
	cornID := seedProduct(t, ctx, "Yellow Corn", "16")
	wheatID := seedProduct(t, ctx, "Wheat", "17")

	_, err := repo.ApplyDelta(ctx, warehouseID, cornID, decimal.RequireFromString("400"))
	require.NoError(t, err)
	_, err = repo.ApplyDelta(ctx, warehouseID, wheatID, decimal.RequireFromString("250"))
	require.NoError(t, err)

	capacity, err := repo.RecomputeWarehouseCapacity(ctx, warehouseID)
	require.NoError(t, err)
	assert.True(t, capacity.Equal(decimal.RequireFromString("650")))

	balances, err := repo.ListByWarehouse(ctx, warehouseID)
	require.NoError(t, err)
	assert.Len(t, balances, 2)
}
