package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/agrotrace/agrotrace-backend/pkg/database"
	apperrors "github.com/agrotrace/agrotrace-backend/pkg/errors"
)

// Transaction status lifecycle. A transaction only earns a lot code once
// it reaches StatusCompleted.
const (
	StatusPending     = "Pending"
	StatusGrossWeight = "Gross Weight"
	StatusUnloading   = "Unloading"
	StatusLoading     = "Loading"
	StatusTareWeight  = "Tare Weight"
	StatusCompleted   = "Completed"
)

// Receiving represents an inbound grain transaction.
type Receiving struct {
	ID            int64               `db:"id" json:"id"`
	Ticket        string              `db:"ticket" json:"ticket"`
	LotCode       *string             `db:"lot_code" json:"lot_code,omitempty"`
	Status        string              `db:"status" json:"status"`
	WarehouseID   *int64              `db:"warehouse_id" json:"warehouse_id,omitempty"`
	ProductID     *int64              `db:"product_id" json:"product_id,omitempty"`
	SupplierID    *int64              `db:"supplier_id" json:"supplier_id,omitempty"`
	DriverName    *string             `db:"driver_name" json:"driver_name,omitempty"`
	Plates        *string             `db:"plates" json:"plates,omitempty"`
	TransportType *string             `db:"transport_type" json:"transport_type,omitempty"`
	GrossWeight   decimal.NullDecimal `db:"gross_weight" json:"gross_weight,omitempty"`
	TareWeight    decimal.NullDecimal `db:"tare_weight" json:"tare_weight,omitempty"`
	NetWeight     decimal.NullDecimal `db:"net_weight" json:"net_weight,omitempty"`
	Seals         *string             `db:"seals" json:"seals,omitempty"`
	Notes         *string             `db:"notes" json:"notes,omitempty"`
	ReceivedAt    *time.Time          `db:"received_at" json:"received_at,omitempty"`
	CreatedAt     time.Time           `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time           `db:"updated_at" json:"updated_at"`
}

const receivingColumns = `
	id, ticket, lot_code, status, warehouse_id, product_id, supplier_id,
	driver_name, plates, transport_type, gross_weight, tare_weight, net_weight,
	seals, notes, received_at, created_at, updated_at
`

// ReceivingFilter narrows List results.
type ReceivingFilter struct {
	Status    string
	ProductID *int64
	From      *time.Time
	To        *time.Time
}

// ReceivingRepository handles receiving persistence
type ReceivingRepository struct {
	db *database.DB
}

// NewReceivingRepository creates a new receiving repository
func NewReceivingRepository(db *database.DB) *ReceivingRepository {
	return &ReceivingRepository{db: db}
}

// Table returns the table name for audit entries and duplicate checks.
func (r *ReceivingRepository) Table() string {
	return "receivings"
}

// Create inserts a new receiving. The lot code is never written on create;
// it is attached only when the transaction completes.
func (r *ReceivingRepository) Create(ctx context.Context, rec *Receiving) error {
	query := `
		INSERT INTO receivings (
			ticket, status, warehouse_id, product_id, supplier_id, driver_name,
			plates, transport_type, gross_weight, tare_weight, net_weight,
			seals, notes, received_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id, created_at, updated_at
	`

	if rec.Status == "" {
		rec.Status = StatusPending
	}

	err := r.db.QueryRowxContext(ctx, query,
		rec.Ticket, rec.Status, rec.WarehouseID, rec.ProductID, rec.SupplierID,
		rec.DriverName, rec.Plates, rec.TransportType, rec.GrossWeight,
		rec.TareWeight, rec.NetWeight, rec.Seals, rec.Notes, rec.ReceivedAt,
	).Scan(&rec.ID, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return database.MapPQError(err)
	}

	return nil
}

// GetByID reads a receiving by ID.
func (r *ReceivingRepository) GetByID(ctx context.Context, id int64) (*Receiving, error) {
	var rec Receiving
	query := `SELECT ` + receivingColumns + ` FROM receivings WHERE id = $1`

	if err := r.db.GetContext(ctx, &rec, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("receiving")
		}
		return nil, err
	}

	return &rec, nil
}

// Update persists the business fields of a receiving. The lot code column
// is deliberately excluded: code attachment happens through AttachLotCode
// as a separate step after completion.
func (r *ReceivingRepository) Update(ctx context.Context, rec *Receiving) error {
	query := `
		UPDATE receivings SET
			ticket = $1, status = $2, warehouse_id = $3, product_id = $4,
			supplier_id = $5, driver_name = $6, plates = $7, transport_type = $8,
			gross_weight = $9, tare_weight = $10, net_weight = $11,
			seals = $12, notes = $13, received_at = $14, updated_at = NOW()
		WHERE id = $15
		RETURNING updated_at
	`

	err := r.db.QueryRowxContext(ctx, query,
		rec.Ticket, rec.Status, rec.WarehouseID, rec.ProductID, rec.SupplierID,
		rec.DriverName, rec.Plates, rec.TransportType, rec.GrossWeight,
		rec.TareWeight, rec.NetWeight, rec.Seals, rec.Notes, rec.ReceivedAt,
		rec.ID,
	).Scan(&rec.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperrors.NotFound("receiving")
		}
		return database.MapPQError(err)
	}

	return nil
}

// AttachLotCode writes the lot code onto an already-persisted receiving.
func (r *ReceivingRepository) AttachLotCode(ctx context.Context, id int64, code string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE receivings SET lot_code = $1, updated_at = NOW() WHERE id = $2`, code, id)
	if err != nil {
		return database.MapPQError(err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return apperrors.NotFound("receiving")
	}

	return nil
}

// FindByLotCode reads a receiving by its lot code.
func (r *ReceivingRepository) FindByLotCode(ctx context.Context, code string) (*Receiving, error) {
	var rec Receiving
	query := `SELECT ` + receivingColumns + ` FROM receivings WHERE lot_code = $1`

	if err := r.db.GetContext(ctx, &rec, query, code); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("receiving")
		}
		return nil, err
	}

	return &rec, nil
}

// ListUncoded lists completed receivings that were saved without a lot
// code. These are candidates for code repair.
func (r *ReceivingRepository) ListUncoded(ctx context.Context) ([]*Receiving, error) {
	var recs []*Receiving
	query := `SELECT ` + receivingColumns + `
		FROM receivings
		WHERE status = $1 AND lot_code IS NULL
		ORDER BY updated_at ASC`

	if err := r.db.SelectContext(ctx, &recs, query, StatusCompleted); err != nil {
		return nil, err
	}

	return recs, nil
}

// List lists receivings with optional filters, newest first.
func (r *ReceivingRepository) List(ctx context.Context, filter ReceivingFilter) ([]*Receiving, error) {
	args := []interface{}{}
	argIdx := 1

	query := `SELECT ` + receivingColumns + ` FROM receivings WHERE 1=1`

	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, filter.Status)
		argIdx++
	}

	if filter.ProductID != nil {
		query += fmt.Sprintf(` AND product_id = $%d`, argIdx)
		args = append(args, *filter.ProductID)
		argIdx++
	}

	if filter.From != nil {
		query += fmt.Sprintf(` AND created_at >= $%d`, argIdx)
		args = append(args, *filter.From)
		argIdx++
	}

	if filter.To != nil {
		query += fmt.Sprintf(` AND created_at <= $%d`, argIdx)
		args = append(args, *filter.To)
		argIdx++
	}

	query += ` ORDER BY created_at DESC`

	var recs []*Receiving
	if err := r.db.SelectContext(ctx, &recs, query, args...); err != nil {
		return nil, err
	}

	return recs, nil
}

// Delete permanently removes a receiving. The caller is responsible for
// auditing the removal as DELETE_PERMANENT.
func (r *ReceivingRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM receivings WHERE id = $1`, id)
	if err != nil {
		return database.MapPQError(err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return apperrors.NotFound("receiving")
	}

	return nil
}
