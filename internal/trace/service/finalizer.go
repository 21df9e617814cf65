package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/agrotrace/agrotrace-backend/internal/trace/lotcode"
	"github.com/agrotrace/agrotrace-backend/internal/trace/repository"
	apperrors "github.com/agrotrace/agrotrace-backend/pkg/errors"
	"github.com/agrotrace/agrotrace-backend/pkg/logger"
	"github.com/agrotrace/agrotrace-backend/pkg/messaging"
)

// ReceivingStore is the persistence surface for receivings.
type ReceivingStore interface {
	Table() string
	Create(ctx context.Context, rec *repository.Receiving) error
	GetByID(ctx context.Context, id int64) (*repository.Receiving, error)
	Update(ctx context.Context, rec *repository.Receiving) error
	AttachLotCode(ctx context.Context, id int64, code string) error
	ListUncoded(ctx context.Context) ([]*repository.Receiving, error)
	List(ctx context.Context, filter repository.ReceivingFilter) ([]*repository.Receiving, error)
	Delete(ctx context.Context, id int64) error
}

// ShipmentStore is the persistence surface for shipments.
type ShipmentStore interface {
	Table() string
	Create(ctx context.Context, s *repository.Shipment) error
	GetByID(ctx context.Context, id int64) (*repository.Shipment, error)
	Update(ctx context.Context, s *repository.Shipment) error
	AttachLotCode(ctx context.Context, id int64, code string) error
	ListUncoded(ctx context.Context) ([]*repository.Shipment, error)
	List(ctx context.Context, filter repository.ShipmentFilter) ([]*repository.Shipment, error)
	Delete(ctx context.Context, id int64) error
}

// CatalogStore resolves the catalog segments a lot code is built from.
type CatalogStore interface {
	SupplierOriginCode(ctx context.Context, supplierID int64) (string, error)
	ClientOriginCode(ctx context.Context, clientID int64) (string, error)
	ProductCode(ctx context.Context, productID int64) (string, error)
	WarehouseCode(ctx context.Context, warehouseID int64) (string, error)
}

// CodeLookup answers whether a lot code is already attached anywhere.
type CodeLookup interface {
	LotCodeInUse(ctx context.Context, code string) (bool, error)
}

// LotRegistry records issued lot codes.
type LotRegistry interface {
	Create(ctx context.Context, key lotcode.Key, code string, consecutive int) (*repository.Lot, error)
	SoftDelete(ctx context.Context, code string) error
}

// Finalizer drives the transaction save flow: business data is persisted
// first, then a lot code is allocated, checked for collisions, and
// attached in a second write. A crash between the two writes leaves a
// valid completed-but-uncoded record that RetryReceivingCode or
// RetryShipmentCode can repair.
type Finalizer struct {
	receivings ReceivingStore
	shipments  ShipmentStore
	catalog    CatalogStore
	lookup     CodeLookup
	lots       LotRegistry
	allocator  *Allocator
	ledger     *Ledger
	audit      *Recorder
	events     Publisher
	logger     *logger.Logger

	// now is swapped out in tests to pin the year segment.
	now func() time.Time
}

// NewFinalizer creates a new finalizer
func NewFinalizer(
	receivings ReceivingStore,
	shipments ShipmentStore,
	catalog CatalogStore,
	lookup CodeLookup,
	lots LotRegistry,
	allocator *Allocator,
	ledger *Ledger,
	audit *Recorder,
	events Publisher,
	log *logger.Logger,
) *Finalizer {
	return &Finalizer{
		receivings: receivings,
		shipments:  shipments,
		catalog:    catalog,
		lookup:     lookup,
		lots:       lots,
		allocator:  allocator,
		ledger:     ledger,
		audit:      audit,
		events:     events,
		logger:     log.WithComponent("finalizer"),
		now:        time.Now,
	}
}

// CreateReceiving persists a new receiving. Caller-supplied lot codes are
// discarded: codes are only ever issued by the allocator. A receiving
// created directly in Completed status goes through code assignment the
// same way an update does.
func (f *Finalizer) CreateReceiving(ctx context.Context, rec *repository.Receiving) error {
	f.stripCode(&rec.LotCode, f.receivings.Table(), 0)

	if err := f.receivings.Create(ctx, rec); err != nil {
		return err
	}

	if rec.Status != repository.StatusCompleted {
		f.audit.Record(ctx, f.receivings.Table(), rec.ID, repository.AuditInsert, nil, rec)
		return nil
	}

	// Assign before auditing so the insert snapshot carries the code.
	codeErr := f.assignReceivingCode(ctx, rec)
	f.audit.Record(ctx, f.receivings.Table(), rec.ID, repository.AuditInsert, nil, rec)
	f.applyLedger(ctx, rec.WarehouseID, rec.ProductID, netOf(rec.NetWeight))
	f.publishCompleted(ctx, f.receivings.Table(), rec.ID, rec.Ticket, rec.LotCode, rec.WarehouseID, rec.ProductID, rec.NetWeight)
	return codeErr
}

// SaveReceiving persists changes to a receiving and finalizes it when it
// reaches Completed status.
//
// Ordering is deliberate: the business fields are written before any code
// work so a code failure can never lose weights or status. If the record
// already carries a lot code, any code in the incoming payload is
// discarded and no reallocation happens, making repeated saves of a
// completed transaction idempotent.
func (f *Finalizer) SaveReceiving(ctx context.Context, rec *repository.Receiving) (*repository.Receiving, error) {
	before, err := f.receivings.GetByID(ctx, rec.ID)
	if err != nil {
		return nil, err
	}

	f.stripCode(&rec.LotCode, f.receivings.Table(), rec.ID)
	rec.LotCode = before.LotCode

	if err := f.receivings.Update(ctx, rec); err != nil {
		return nil, err
	}

	var codeErr error
	if rec.Status == repository.StatusCompleted && before.LotCode == nil {
		codeErr = f.assignReceivingCode(ctx, rec)
	}

	if sameStockPair(before.WarehouseID, before.ProductID, rec.WarehouseID, rec.ProductID) {
		f.applyLedger(ctx, rec.WarehouseID, rec.ProductID, completionDelta(before.Status, rec.Status, netOf(before.NetWeight), netOf(rec.NetWeight)))
	} else {
		// The correction moved the stock to a different warehouse/product
		// pair: reverse the old pair's contribution and credit the new one.
		if before.Status == repository.StatusCompleted {
			f.applyLedger(ctx, before.WarehouseID, before.ProductID, netOf(before.NetWeight).Neg())
		}
		if rec.Status == repository.StatusCompleted {
			f.applyLedger(ctx, rec.WarehouseID, rec.ProductID, netOf(rec.NetWeight))
		}
	}
	f.audit.Record(ctx, f.receivings.Table(), rec.ID, repository.AuditUpdate, before, rec)

	if rec.Status == repository.StatusCompleted && before.Status != repository.StatusCompleted {
		f.publishCompleted(ctx, f.receivings.Table(), rec.ID, rec.Ticket, rec.LotCode, rec.WarehouseID, rec.ProductID, rec.NetWeight)
	}

	return rec, codeErr
}

// CreateShipment persists a new shipment, assigning a code when it is
// created directly in Completed status.
func (f *Finalizer) CreateShipment(ctx context.Context, s *repository.Shipment) error {
	f.stripCode(&s.LotCode, f.shipments.Table(), 0)

	if err := f.shipments.Create(ctx, s); err != nil {
		return err
	}

	if s.Status != repository.StatusCompleted {
		f.audit.Record(ctx, f.shipments.Table(), s.ID, repository.AuditInsert, nil, s)
		return nil
	}

	// Assign before auditing so the insert snapshot carries the code.
	codeErr := f.assignShipmentCode(ctx, s)
	f.audit.Record(ctx, f.shipments.Table(), s.ID, repository.AuditInsert, nil, s)
	f.applyLedger(ctx, s.WarehouseID, s.ProductID, netOf(s.NetWeight).Neg())
	f.publishCompleted(ctx, f.shipments.Table(), s.ID, s.Ticket, s.LotCode, s.WarehouseID, s.ProductID, s.NetWeight)
	return codeErr
}

// SaveShipment persists changes to a shipment and finalizes it when it
// reaches Completed status. Shipments reduce stock, so ledger deltas are
// negated.
func (f *Finalizer) SaveShipment(ctx context.Context, s *repository.Shipment) (*repository.Shipment, error) {
	before, err := f.shipments.GetByID(ctx, s.ID)
	if err != nil {
		return nil, err
	}

	f.stripCode(&s.LotCode, f.shipments.Table(), s.ID)
	s.LotCode = before.LotCode

	if err := f.shipments.Update(ctx, s); err != nil {
		return nil, err
	}

	var codeErr error
	if s.Status == repository.StatusCompleted && before.LotCode == nil {
		codeErr = f.assignShipmentCode(ctx, s)
	}

	if sameStockPair(before.WarehouseID, before.ProductID, s.WarehouseID, s.ProductID) {
		f.applyLedger(ctx, s.WarehouseID, s.ProductID, completionDelta(before.Status, s.Status, netOf(before.NetWeight), netOf(s.NetWeight)).Neg())
	} else {
		// Outbound signs: reversing an old shipment restores stock, the
		// new pair loses it.
		if before.Status == repository.StatusCompleted {
			f.applyLedger(ctx, before.WarehouseID, before.ProductID, netOf(before.NetWeight))
		}
		if s.Status == repository.StatusCompleted {
			f.applyLedger(ctx, s.WarehouseID, s.ProductID, netOf(s.NetWeight).Neg())
		}
	}
	f.audit.Record(ctx, f.shipments.Table(), s.ID, repository.AuditUpdate, before, s)

	if s.Status == repository.StatusCompleted && before.Status != repository.StatusCompleted {
		f.publishCompleted(ctx, f.shipments.Table(), s.ID, s.Ticket, s.LotCode, s.WarehouseID, s.ProductID, s.NetWeight)
	}

	return s, codeErr
}

// RetryReceivingCode re-drives code assignment for a completed receiving
// that was saved without a code.
func (f *Finalizer) RetryReceivingCode(ctx context.Context, id int64) (*repository.Receiving, error) {
	rec, err := f.receivings.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if rec.LotCode != nil {
		return rec, nil
	}
	if rec.Status != repository.StatusCompleted {
		return nil, apperrors.BadRequest("only completed transactions are assigned lot codes")
	}

	before := *rec
	if err := f.assignReceivingCode(ctx, rec); err != nil {
		return nil, err
	}
	f.audit.Record(ctx, f.receivings.Table(), rec.ID, repository.AuditUpdate, &before, rec)

	return rec, nil
}

// RetryShipmentCode re-drives code assignment for a completed shipment
// that was saved without a code.
func (f *Finalizer) RetryShipmentCode(ctx context.Context, id int64) (*repository.Shipment, error) {
	s, err := f.shipments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if s.LotCode != nil {
		return s, nil
	}
	if s.Status != repository.StatusCompleted {
		return nil, apperrors.BadRequest("only completed transactions are assigned lot codes")
	}

	before := *s
	if err := f.assignShipmentCode(ctx, s); err != nil {
		return nil, err
	}
	f.audit.Record(ctx, f.shipments.Table(), s.ID, repository.AuditUpdate, &before, s)

	return s, nil
}

// ListUncodedReceivings lists completed receivings awaiting a lot code.
func (f *Finalizer) ListUncodedReceivings(ctx context.Context) ([]*repository.Receiving, error) {
	return f.receivings.ListUncoded(ctx)
}

// ListUncodedShipments lists completed shipments awaiting a lot code.
func (f *Finalizer) ListUncodedShipments(ctx context.Context) ([]*repository.Shipment, error) {
	return f.shipments.ListUncoded(ctx)
}

// DeleteReceiving permanently removes a receiving, reversing its ledger
// effect when it had completed.
func (f *Finalizer) DeleteReceiving(ctx context.Context, id int64) error {
	before, err := f.receivings.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := f.receivings.Delete(ctx, id); err != nil {
		return err
	}

	f.audit.Record(ctx, f.receivings.Table(), id, repository.AuditDeletePermanent, before, nil)

	if before.Status == repository.StatusCompleted {
		f.applyLedger(ctx, before.WarehouseID, before.ProductID, netOf(before.NetWeight).Neg())
	}
	if before.LotCode != nil {
		if err := f.lots.SoftDelete(ctx, *before.LotCode); err != nil {
			f.logger.Warn().Str("lot_code", *before.LotCode).Err(err).Msg("failed to retire lot registry entry")
		}
	}

	f.publishDeleted(ctx, f.receivings.Table(), id, before.Ticket, before.LotCode)
	return nil
}

// DeleteShipment permanently removes a shipment, reversing its ledger
// effect when it had completed.
func (f *Finalizer) DeleteShipment(ctx context.Context, id int64) error {
	before, err := f.shipments.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := f.shipments.Delete(ctx, id); err != nil {
		return err
	}

	f.audit.Record(ctx, f.shipments.Table(), id, repository.AuditDeletePermanent, before, nil)

	if before.Status == repository.StatusCompleted {
		f.applyLedger(ctx, before.WarehouseID, before.ProductID, netOf(before.NetWeight))
	}
	if before.LotCode != nil {
		if err := f.lots.SoftDelete(ctx, *before.LotCode); err != nil {
			f.logger.Warn().Str("lot_code", *before.LotCode).Err(err).Msg("failed to retire lot registry entry")
		}
	}

	f.publishDeleted(ctx, f.shipments.Table(), id, before.Ticket, before.LotCode)
	return nil
}

// assignReceivingCode builds the counter key for a receiving and runs
// code assignment. On success the code is written back to rec.LotCode.
func (f *Finalizer) assignReceivingCode(ctx context.Context, rec *repository.Receiving) error {
	if rec.WarehouseID == nil || rec.ProductID == nil {
		f.logger.Warn().
			Int64("id", rec.ID).
			Msg("completed receiving has no warehouse or product; leaving uncoded")
		return apperrors.MissingLotKeys(f.receivings.Table(), rec.ID)
	}

	origin := repository.DefaultOriginCode
	if rec.SupplierID != nil {
		var err error
		origin, err = f.catalog.SupplierOriginCode(ctx, *rec.SupplierID)
		if err != nil {
			return err
		}
	}

	key, err := f.buildKey(ctx, lotcode.OpReceiving, origin, *rec.ProductID, *rec.WarehouseID)
	if err != nil {
		return err
	}

	code, err := f.assign(ctx, f.receivings, f.receivings.Table(), rec.ID, key)
	if err != nil {
		return err
	}

	rec.LotCode = &code
	return nil
}

// assignShipmentCode builds the counter key for a shipment and runs code
// assignment. National shipments issue NL- codes, exports EX-.
func (f *Finalizer) assignShipmentCode(ctx context.Context, s *repository.Shipment) error {
	if s.WarehouseID == nil || s.ProductID == nil {
		f.logger.Warn().
			Int64("id", s.ID).
			Msg("completed shipment has no warehouse or product; leaving uncoded")
		return apperrors.MissingLotKeys(f.shipments.Table(), s.ID)
	}

	origin := repository.DefaultOriginCode
	if s.ClientID != nil {
		var err error
		origin, err = f.catalog.ClientOriginCode(ctx, *s.ClientID)
		if err != nil {
			return err
		}
	}

	op := lotcode.OpNationalShipment
	if s.ShipmentType == repository.ShipmentExport {
		op = lotcode.OpExportShipment
	}

	key, err := f.buildKey(ctx, op, origin, *s.ProductID, *s.WarehouseID)
	if err != nil {
		return err
	}

	code, err := f.assign(ctx, f.shipments, f.shipments.Table(), s.ID, key)
	if err != nil {
		return err
	}

	s.LotCode = &code
	return nil
}

// buildKey resolves catalog segments into a full counter key.
func (f *Finalizer) buildKey(ctx context.Context, opCode, originCode string, productID, warehouseID int64) (lotcode.Key, error) {
	productCode, err := f.catalog.ProductCode(ctx, productID)
	if err != nil {
		return lotcode.Key{}, err
	}

	warehouseCode, err := f.catalog.WarehouseCode(ctx, warehouseID)
	if err != nil {
		return lotcode.Key{}, err
	}

	year := f.now().Year()
	return lotcode.Key{
		OperationCode: opCode,
		OriginCode:    originCode,
		ProductCode:   productCode,
		WarehouseCode: warehouseCode,
		YearCode:      lotcode.YearCode(year),
		Year:          year,
	}, nil
}

// attachStore is the slice of a transaction store code assignment needs.
type attachStore interface {
	AttachLotCode(ctx context.Context, id int64, code string) error
}

// assign allocates a consecutive, composes the code, guards against
// collisions across both transaction tables, and attaches the code.
// A collision is fatal and leaves the record uncoded; an attach failure
// surfaces as a retryable code-pending error.
func (f *Finalizer) assign(ctx context.Context, store attachStore, table string, id int64, key lotcode.Key) (string, error) {
	consecutive, err := f.allocator.Next(ctx, key)
	if err != nil {
		return "", err
	}

	code := lotcode.ComposeKey(key, consecutive)

	inUse, err := f.lookup.LotCodeInUse(ctx, code)
	if err != nil {
		return "", apperrors.CodePending(table, id, err)
	}
	if inUse {
		f.logger.Error().
			Str("lot_code", code).
			Str("key", key.String()).
			Int("consecutive", consecutive).
			Msg("composed lot code already in use; counter state needs investigation")
		return "", apperrors.DuplicateLotCode(code)
	}

	if err := store.AttachLotCode(ctx, id, code); err != nil {
		return "", apperrors.CodePending(table, id, err)
	}

	if _, err := f.lots.Create(ctx, key, code, consecutive); err != nil {
		f.logger.Warn().Str("lot_code", code).Err(err).Msg("failed to register issued lot")
	}

	if f.events != nil {
		event := messaging.LotCodeAssignedEvent{
			Table:       table,
			RecordID:    id,
			LotCode:     code,
			Consecutive: consecutive,
			Year:        key.Year,
		}
		if err := f.events.Publish(ctx, messaging.EventLotCodeAssigned, event); err != nil {
			f.logger.Error().Err(err).Msg("failed to publish lot code assigned event")
		}
	}

	f.logger.Info().
		Str("table", table).
		Int64("id", id).
		Str("lot_code", code).
		Msg("lot code assigned")

	return code, nil
}

// stripCode discards a caller-supplied lot code. Codes are only issued by
// the allocator; accepting one from the payload would bypass uniqueness.
func (f *Finalizer) stripCode(code **string, table string, id int64) {
	if *code != nil {
		f.logger.Debug().
			Str("table", table).
			Int64("id", id).
			Msg("ignoring caller-supplied lot code")
		*code = nil
	}
}

// applyLedger forwards a delta to the ledger, skipping records without a
// warehouse/product pair. Ledger failures never propagate.
func (f *Finalizer) applyLedger(ctx context.Context, warehouseID, productID *int64, delta decimal.Decimal) {
	if warehouseID == nil || productID == nil || delta.IsZero() {
		return
	}
	// Errors are already logged inside the ledger.
	_ = f.ledger.Apply(ctx, *warehouseID, *productID, delta)
}

func (f *Finalizer) publishCompleted(ctx context.Context, table string, id int64, ticket string, code *string, warehouseID, productID *int64, net decimal.NullDecimal) {
	if f.events == nil {
		return
	}

	event := messaging.TransactionCompletedEvent{
		Table:     table,
		RecordID:  id,
		Ticket:    ticket,
		NetWeight: netOf(net).String(),
	}
	if code != nil {
		event.LotCode = *code
	}
	if warehouseID != nil {
		event.WarehouseID = *warehouseID
	}
	if productID != nil {
		event.ProductID = *productID
	}

	if err := f.events.Publish(ctx, messaging.EventTransactionCompleted, event); err != nil {
		f.logger.Error().Err(err).Msg("failed to publish transaction completed event")
	}
}

func (f *Finalizer) publishDeleted(ctx context.Context, table string, id int64, ticket string, code *string) {
	if f.events == nil {
		return
	}

	event := messaging.TransactionDeletedEvent{
		Table:    table,
		RecordID: id,
		Ticket:   ticket,
	}
	if code != nil {
		event.LotCode = *code
	}

	if err := f.events.Publish(ctx, messaging.EventTransactionDeleted, event); err != nil {
		f.logger.Error().Err(err).Msg("failed to publish transaction deleted event")
	}
}

// completionDelta computes the signed quantity a save contributes to the
// ledger, in the inbound sign convention. First completion contributes the
// full net weight; a correction to an already-completed transaction
// contributes new minus old; everything else contributes nothing.
func completionDelta(beforeStatus, afterStatus string, beforeNet, afterNet decimal.Decimal) decimal.Decimal {
	switch {
	case afterStatus != repository.StatusCompleted:
		return decimal.Zero
	case beforeStatus != repository.StatusCompleted:
		return afterNet
	default:
		return afterNet.Sub(beforeNet)
	}
}

// sameStockPair reports whether two warehouse/product pairs address the
// same balance row. A nil ID only matches another nil.
func sameStockPair(w1, p1, w2, p2 *int64) bool {
	return eqID(w1, w2) && eqID(p1, p2)
}

func eqID(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// netOf unwraps a nullable net weight, treating NULL as zero.
func netOf(d decimal.NullDecimal) decimal.Decimal {
	if !d.Valid {
		return decimal.Zero
	}
	return d.Decimal
}
