package repository_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agrotrace/agrotrace-backend/internal/trace/repository"
	apperrors "github.com/agrotrace/agrotrace-backend/pkg/errors"
	"github.com/agrotrace/agrotrace-backend/pkg/testutil"
)

func seedSupplier(t *testing.T, ctx context.Context, name, origin string) int64 {
	t.Helper()

	var id int64
	err := suite.RawDB.QueryRowxContext(ctx,
		`INSERT INTO suppliers (name, origin_code) VALUES ($1, $2) RETURNING id`,
		name, origin,
	).Scan(&id)
	require.NoError(t, err)
	return id
}

func newReceiving(t *testing.T, ctx context.Context, ticket string) *repository.Receiving {
	t.Helper()

	warehouseID := seedWarehouse(t, ctx, "Central Silo", "05")
	productID := seedProduct(t, ctx, "Yellow Corn", "16")
	supplierID := seedSupplier(t, ctx, "Rancho La Estrella", "01")

	return &repository.Receiving{
		Ticket:      ticket,
		Status:      repository.StatusPending,
		WarehouseID: &warehouseID,
		ProductID:   &productID,
		SupplierID:  &supplierID,
	}
}

func TestReceivingRepository_CreateNeverWritesLotCode(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	ctx := context.Background()
	suite.TruncateAll(t, ctx)
	repo := repository.NewReceivingRepository(suite.DB)

	rec := newReceiving(t, ctx, "T-1001")
	rec.LotCode = testutil.PtrString("AC-01160525-001")
	require.NoError(t, repo.Create(ctx, rec))
	require.NotZero(t, rec.ID)

	stored, err := repo.GetByID(ctx, rec.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.LotCode, "the insert must not carry a lot code")
}

func TestReceivingRepository_UpdateCannotChangeLotCode(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	ctx := context.Background()
	suite.TruncateAll(t, ctx)
	repo := repository.NewReceivingRepository(suite.DB)

	rec := newReceiving(t, ctx, "T-1002")
	require.NoError(t, repo.Create(ctx, rec))
	require.NoError(t, repo.AttachLotCode(ctx, rec.ID, "AC-01160525-001"))

	rec.Status = repository.StatusCompleted
	rec.NetWeight = decimal.NewNullDecimal(decimal.RequireFromString("950.250"))
	rec.LotCode = testutil.PtrString("AC-99999999-999")
	require.NoError(t, repo.Update(ctx, rec))

	stored, err := repo.GetByID(ctx, rec.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.LotCode)
	assert.Equal(t, "AC-01160525-001", *stored.LotCode, "business updates must not touch the lot code column")
	assert.Equal(t, repository.StatusCompleted, stored.Status)
	assert.True(t, stored.NetWeight.Decimal.Equal(decimal.RequireFromString("950.250")))
}

func TestReceivingRepository_AttachLotCodeToMissingRecord(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	ctx := context.Background()
	suite.TruncateAll(t, ctx)
	repo := repository.NewReceivingRepository(suite.DB)

	err := repo.AttachLotCode(ctx, 404, "AC-01160525-001")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestReceivingRepository_ListUncodedFindsCompletedWithoutCode(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	ctx := context.Background()
	suite.TruncateAll(t, ctx)
	repo := repository.NewReceivingRepository(suite.DB)

	pending := newReceiving(t, ctx, "T-1003")
	require.NoError(t, repo.Create(ctx, pending))

	completed := &repository.Receiving{Ticket: "T-1004", Status: repository.StatusCompleted}
	require.NoError(t, repo.Create(ctx, completed))

	coded := &repository.Receiving{Ticket: "T-1005", Status: repository.StatusCompleted}
	require.NoError(t, repo.Create(ctx, coded))
	require.NoError(t, repo.AttachLotCode(ctx, coded.ID, "AC-01160525-001"))

	uncoded, err := repo.ListUncoded(ctx)
	require.NoError(t, err)
	require.Len(t, uncoded, 1)
	assert.Equal(t, completed.ID, uncoded[0].ID)
}

func TestReceivingRepository_FindByLotCode(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	ctx := context.Background()
	suite.TruncateAll(t, ctx)
	repo := repository.NewReceivingRepository(suite.DB)

	rec := newReceiving(t, ctx, "T-1006")
	require.NoError(t, repo.Create(ctx, rec))
	require.NoError(t, repo.AttachLotCode(ctx, rec.ID, "AC-01160525-001"))

	found, err := repo.FindByLotCode(ctx, "AC-01160525-001")
	require.NoError(t, err)
	assert.Equal(t, rec.ID, found.ID)

	_, err = repo.FindByLotCode(ctx, "AC-01160525-999")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestReceivingRepository_DeleteRemovesRecord(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	ctx := context.Background()
	suite.TruncateAll(t, ctx)
	repo := repository.NewReceivingRepository(suite.DB)

	rec := newReceiving(t, ctx, "T-1007")
	require.NoError(t, repo.Create(ctx, rec))

	require.NoError(t, repo.Delete(ctx, rec.ID))

	_, err := repo.GetByID(ctx, rec.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	assert.ErrorIs(t, repo.Delete(ctx, rec.ID), apperrors.ErrNotFound)
}

func TestLookupRepository_SeesCodesAcrossBothTables(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	ctx := context.Background()
	suite.TruncateAll(t, ctx)

	receivings := repository.NewReceivingRepository(suite.DB)
	shipments := repository.NewShipmentRepository(suite.DB)
	lookup := repository.NewLookupRepository(suite.DB)

	rec := newReceiving(t, ctx, "T-1008")
	require.NoError(t, receivings.Create(ctx, rec))
	require.NoError(t, receivings.AttachLotCode(ctx, rec.ID, "AC-01160525-001"))

	sh := &repository.Shipment{Ticket: "S-2001", Status: repository.StatusCompleted}
	require.NoError(t, shipments.Create(ctx, sh))
	require.NoError(t, shipments.AttachLotCode(ctx, sh.ID, "NL-02160525-001"))

	inUse, err := lookup.LotCodeInUse(ctx, "AC-01160525-001")
	require.NoError(t, err)
	assert.True(t, inUse)

	inUse, err = lookup.LotCodeInUse(ctx, "NL-02160525-001")
	require.NoError(t, err)
	assert.True(t, inUse)

	inUse, err = lookup.LotCodeInUse(ctx, "EX-02160525-001")
	require.NoError(t, err)
	assert.False(t, inUse)
}
