package handler_test

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agrotrace/agrotrace-backend/internal/trace/handler"
	"github.com/agrotrace/agrotrace-backend/internal/trace/repository"
	"github.com/agrotrace/agrotrace-backend/internal/trace/service"
	"github.com/agrotrace/agrotrace-backend/pkg/config"
	"github.com/agrotrace/agrotrace-backend/pkg/logger"
	"github.com/agrotrace/agrotrace-backend/pkg/testutil"
)

var suite *testutil.IntegrationSuite

func TestMain(m *testing.M) {
	flag.Parse()
	if testing.Short() {
		os.Exit(m.Run())
	}

	ctx := context.Background()

	s, err := testutil.NewIntegrationSuite(ctx)
	if err != nil {
		log.Fatalf("failed to create integration suite: %v", err)
	}
	suite = s

	code := m.Run()
	testutil.TerminateContainer(ctx)
	os.Exit(code)
}

// newRouter wires the receiving routes onto real repositories, with no
// event publisher.
func newRouter() chi.Router {
	lg := logger.New("test", "test")

	counterRepo := repository.NewCounterRepository(suite.DB)
	catalogRepo := repository.NewCatalogRepository(suite.DB)
	receivingRepo := repository.NewReceivingRepository(suite.DB)
	shipmentRepo := repository.NewShipmentRepository(suite.DB)
	lookupRepo := repository.NewLookupRepository(suite.DB)
	balanceRepo := repository.NewBalanceRepository(suite.DB)
	auditRepo := repository.NewAuditRepository(suite.DB)
	lotRepo := repository.NewLotRepository(suite.DB)

	allocator := service.NewAllocator(counterRepo, config.AllocatorConfig{
		MaxAttempts: 3,
		BackoffBase: time.Millisecond,
	}, lg)
	recorder := service.NewRecorder(auditRepo, lg)
	ledger := service.NewLedger(balanceRepo, recorder, nil, lg)
	finalizer := service.NewFinalizer(
		receivingRepo, shipmentRepo, catalogRepo, lookupRepo, lotRepo,
		allocator, ledger, recorder, nil, lg,
	)

	receivingHandler := handler.NewReceivingHandler(finalizer, receivingRepo, lg)

	r := chi.NewRouter()
	r.Route("/api/v1/trace/receivings", func(r chi.Router) {
		r.Get("/", receivingHandler.List)
		r.Post("/", receivingHandler.Create)
		r.Get("/uncoded", receivingHandler.ListUncoded)
		r.Get("/{id}", receivingHandler.Get)
		r.Put("/{id}", receivingHandler.Update)
		r.Delete("/{id}", receivingHandler.Delete)
		r.Post("/{id}/retry-code", receivingHandler.RetryCode)
	})
	return r
}

func seedCatalog(t *testing.T, ctx context.Context) (warehouseID, productID, supplierID int64) {
	t.Helper()

	require.NoError(t, suite.RawDB.QueryRowxContext(ctx,
		`INSERT INTO warehouses (name, lot_code) VALUES ('Central Silo', '05') RETURNING id`).Scan(&warehouseID))
	require.NoError(t, suite.RawDB.QueryRowxContext(ctx,
		`INSERT INTO products (name, lot_code) VALUES ('Yellow Corn', '16') RETURNING id`).Scan(&productID))
	require.NoError(t, suite.RawDB.QueryRowxContext(ctx,
		`INSERT INTO suppliers (name, origin_code) VALUES ('Rancho La Estrella', '01') RETURNING id`).Scan(&supplierID))
	return warehouseID, productID, supplierID
}

func decodeReceiving(t *testing.T, body []byte) *repository.Receiving {
	t.Helper()

	var envelope struct {
		Success bool                  `json:"success"`
		Data    *repository.Receiving `json:"data"`
	}
	require.NoError(t, json.Unmarshal(body, &envelope))
	require.NotNil(t, envelope.Data)
	return envelope.Data
}

func TestReceivingAPI_CreatePendingHasNoLotCode(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	ctx := context.Background()
	suite.TruncateAll(t, ctx)
	router := newRouter()

	req := testutil.NewHTTPRequest(http.MethodPost, "/api/v1/trace/receivings", map[string]interface{}{
		"ticket":   "T-3001",
		"status":   "Pending",
		"lot_code": "FORGED-001",
	})
	rr := testutil.ExecuteRequest(router, req)

	testutil.AssertStatus(t, rr, http.StatusCreated)
	rec := decodeReceiving(t, rr.Body.Bytes())
	assert.Nil(t, rec.LotCode, "caller-supplied codes must be discarded")
	assert.Equal(t, "Pending", rec.Status)
}

func TestReceivingAPI_CompletionAssignsLotCode(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	ctx := context.Background()
	suite.TruncateAll(t, ctx)
	router := newRouter()
	warehouseID, productID, supplierID := seedCatalog(t, ctx)

	create := testutil.NewHTTPRequest(http.MethodPost, "/api/v1/trace/receivings", map[string]interface{}{
		"ticket":       "T-3002",
		"status":       "Pending",
		"warehouse_id": warehouseID,
		"product_id":   productID,
		"supplier_id":  supplierID,
	})
	rr := testutil.ExecuteRequest(router, create)
	testutil.AssertStatus(t, rr, http.StatusCreated)
	rec := decodeReceiving(t, rr.Body.Bytes())

	year := time.Now().Year() % 100
	wantCode := fmt.Sprintf("AC-011605%02d-001", year)

	complete := testutil.NewHTTPRequest(http.MethodPut,
		fmt.Sprintf("/api/v1/trace/receivings/%d", rec.ID), map[string]interface{}{
			"ticket":       "T-3002",
			"status":       "Completed",
			"warehouse_id": warehouseID,
			"product_id":   productID,
			"supplier_id":  supplierID,
			"gross_weight": "32500.000",
			"tare_weight":  "12500.000",
			"net_weight":   "20000.000",
		})
	rr = testutil.ExecuteRequest(router, complete)
	testutil.AssertStatus(t, rr, http.StatusOK)

	updated := decodeReceiving(t, rr.Body.Bytes())
	require.NotNil(t, updated.LotCode)
	assert.Equal(t, wantCode, *updated.LotCode)

	// the completion must have moved the warehouse balance
	balances := repository.NewBalanceRepository(suite.DB)
	balance, err := balances.Get(ctx, warehouseID, productID)
	require.NoError(t, err)
	assert.True(t, balance.Balance.Equal(decimal.RequireFromString("20000")))

	// and left an audit trail, with the assigned code in the update snapshot
	audits := repository.NewAuditRepository(suite.DB)
	entries, err := audits.ListByRecord(ctx, "receivings", rec.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, repository.AuditUpdate, entries[0].Action)
	assert.Equal(t, repository.AuditInsert, entries[1].Action)
	require.NotNil(t, entries[0].AfterData)
	assert.Contains(t, *entries[0].AfterData, wantCode)

	// the balance mutation is audited too
	balanceAudits, _, err := audits.ListByTable(ctx, "warehouse_product_balances", 1, 10)
	require.NoError(t, err)
	require.Len(t, balanceAudits, 1)
	assert.Equal(t, repository.AuditInsert, balanceAudits[0].Action)
	require.NotNil(t, balanceAudits[0].AfterData)
	assert.Contains(t, *balanceAudits[0].AfterData, "20000")
}

func TestReceivingAPI_SecondCompletionKeepsFirstCode(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	ctx := context.Background()
	suite.TruncateAll(t, ctx)
	router := newRouter()
	warehouseID, productID, supplierID := seedCatalog(t, ctx)

	payload := map[string]interface{}{
		"ticket":       "T-3003",
		"status":       "Completed",
		"warehouse_id": warehouseID,
		"product_id":   productID,
		"supplier_id":  supplierID,
		"net_weight":   "1000.000",
	}

	rr := testutil.ExecuteRequest(router, testutil.NewHTTPRequest(http.MethodPost, "/api/v1/trace/receivings", payload))
	testutil.AssertStatus(t, rr, http.StatusCreated)
	rec := decodeReceiving(t, rr.Body.Bytes())
	require.NotNil(t, rec.LotCode)
	firstCode := *rec.LotCode

	rr = testutil.ExecuteRequest(router, testutil.NewHTTPRequest(http.MethodPut,
		fmt.Sprintf("/api/v1/trace/receivings/%d", rec.ID), payload))
	testutil.AssertStatus(t, rr, http.StatusOK)

	resaved := decodeReceiving(t, rr.Body.Bytes())
	require.NotNil(t, resaved.LotCode)
	assert.Equal(t, firstCode, *resaved.LotCode)
}

func TestReceivingAPI_ValidationRejectsMissingTicket(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	ctx := context.Background()
	suite.TruncateAll(t, ctx)
	router := newRouter()

	req := testutil.NewHTTPRequest(http.MethodPost, "/api/v1/trace/receivings", map[string]interface{}{
		"status": "Pending",
	})
	rr := testutil.ExecuteRequest(router, req)

	testutil.AssertStatus(t, rr, http.StatusBadRequest)
	testutil.AssertBodyContains(t, rr, "Ticket")
}

func TestReceivingAPI_RetryCodeRejectsIncomplete(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	ctx := context.Background()
	suite.TruncateAll(t, ctx)
	router := newRouter()

	rr := testutil.ExecuteRequest(router, testutil.NewHTTPRequest(http.MethodPost, "/api/v1/trace/receivings", map[string]interface{}{
		"ticket": "T-3004",
		"status": "Pending",
	}))
	testutil.AssertStatus(t, rr, http.StatusCreated)
	rec := decodeReceiving(t, rr.Body.Bytes())

	rr = testutil.ExecuteRequest(router, testutil.NewHTTPRequest(http.MethodPost,
		fmt.Sprintf("/api/v1/trace/receivings/%d/retry-code", rec.ID), nil))
	testutil.AssertStatus(t, rr, http.StatusBadRequest)
}

func TestReceivingAPI_InvalidIDIsBadRequest(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	router := newRouter()

	rr := testutil.ExecuteRequest(router, testutil.NewHTTPRequest(http.MethodGet, "/api/v1/trace/receivings/not-a-number", nil))
	testutil.AssertStatus(t, rr, http.StatusBadRequest)
}
