package service

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/agrotrace/agrotrace-backend/internal/trace/repository"
	"github.com/agrotrace/agrotrace-backend/pkg/logger"
	"github.com/agrotrace/agrotrace-backend/pkg/messaging"
)

// BalanceStore is the persistence surface the ledger drives. The
// production implementation is repository.BalanceRepository.
type BalanceStore interface {
	Table() string
	ApplyDelta(ctx context.Context, warehouseID, productID int64, delta decimal.Decimal) (*repository.AppliedDelta, error)
	RecomputeWarehouseCapacity(ctx context.Context, warehouseID int64) (decimal.Decimal, error)
}

// Publisher publishes domain events. Satisfied by events.Publisher in
// production and by a recording mock in tests.
type Publisher interface {
	Publish(ctx context.Context, eventType string, payload interface{}) error
}

// balanceSnapshot is the audit image of one balance row.
type balanceSnapshot struct {
	WarehouseID int64           `json:"warehouse_id"`
	ProductID   int64           `json:"product_id"`
	Balance     decimal.Decimal `json:"balance"`
}

// Ledger keeps warehouse/product balances in step with completed
// transactions. Ledger updates are best-effort bookkeeping: every failure
// is logged and none propagates to the transaction that triggered it.
type Ledger struct {
	balances BalanceStore
	audit    *Recorder
	events   Publisher
	logger   *logger.Logger
}

// NewLedger creates a new ledger
func NewLedger(balances BalanceStore, audit *Recorder, events Publisher, log *logger.Logger) *Ledger {
	return &Ledger{
		balances: balances,
		audit:    audit,
		events:   events,
		logger:   log.WithComponent("ledger"),
	}
}

// Apply adds a signed delta to the balance of a warehouse/product pair
// and recomputes the warehouse's current capacity. Inbound transactions
// apply positive deltas, outbound negative; corrections apply new minus
// old in the same sign convention. Every applied delta leaves an audit
// entry with the balance before and after.
//
// The stored balance is clamped at zero. A clamp means the ledger and the
// physical stock disagree, so it is logged with the would-be value for
// operators to reconcile.
func (l *Ledger) Apply(ctx context.Context, warehouseID, productID int64, delta decimal.Decimal) error {
	if delta.IsZero() {
		return nil
	}

	applied, err := l.balances.ApplyDelta(ctx, warehouseID, productID, delta)
	if err != nil {
		l.logger.Error().
			Int64("warehouse_id", warehouseID).
			Int64("product_id", productID).
			Str("delta", delta.String()).
			Err(err).
			Msg("failed to apply balance delta")
		return err
	}

	if applied.Clamped {
		l.logger.Warn().
			Int64("warehouse_id", warehouseID).
			Int64("product_id", productID).
			Str("delta", delta.String()).
			Str("stored_balance", applied.Balance.String()).
			Msg("balance clamped at zero; ledger disagrees with physical stock")
	}

	after := balanceSnapshot{WarehouseID: warehouseID, ProductID: productID, Balance: applied.Balance}
	if applied.Created {
		l.audit.Record(ctx, l.balances.Table(), applied.ID, repository.AuditInsert, nil, after)
	} else {
		before := balanceSnapshot{WarehouseID: warehouseID, ProductID: productID, Balance: applied.Previous}
		l.audit.Record(ctx, l.balances.Table(), applied.ID, repository.AuditUpdate, before, after)
	}

	if _, err := l.balances.RecomputeWarehouseCapacity(ctx, warehouseID); err != nil {
		l.logger.Error().
			Int64("warehouse_id", warehouseID).
			Err(err).
			Msg("failed to recompute warehouse capacity")
	}

	if l.events != nil {
		event := messaging.BalanceAdjustedEvent{
			WarehouseID: warehouseID,
			ProductID:   productID,
			Delta:       delta.String(),
			NewBalance:  applied.Balance.String(),
			Clamped:     applied.Clamped,
		}
		if err := l.events.Publish(ctx, messaging.EventBalanceAdjusted, event); err != nil {
			l.logger.Error().Err(err).Msg("failed to publish balance adjusted event")
		}
	}

	return nil
}
