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

// Shipment destination kinds. The kind decides the operation segment of
// the lot code: national shipments issue NL- codes, exports EX-.
const (
	ShipmentNational = "national"
	ShipmentExport   = "export"
)

// Shipment represents an outbound grain transaction.
type Shipment struct {
	ID            int64               `db:"id" json:"id"`
	Ticket        string              `db:"ticket" json:"ticket"`
	LotCode       *string             `db:"lot_code" json:"lot_code,omitempty"`
	Status        string              `db:"status" json:"status"`
	ShipmentType  string              `db:"shipment_type" json:"shipment_type"`
	WarehouseID   *int64              `db:"warehouse_id" json:"warehouse_id,omitempty"`
	ProductID     *int64              `db:"product_id" json:"product_id,omitempty"`
	ClientID      *int64              `db:"client_id" json:"client_id,omitempty"`
	DriverName    *string             `db:"driver_name" json:"driver_name,omitempty"`
	Plates        *string             `db:"plates" json:"plates,omitempty"`
	TransportType *string             `db:"transport_type" json:"transport_type,omitempty"`
	GrossWeight   decimal.NullDecimal `db:"gross_weight" json:"gross_weight,omitempty"`
	TareWeight    decimal.NullDecimal `db:"tare_weight" json:"tare_weight,omitempty"`
	NetWeight     decimal.NullDecimal `db:"net_weight" json:"net_weight,omitempty"`
	Seals         *string             `db:"seals" json:"seals,omitempty"`
	Notes         *string             `db:"notes" json:"notes,omitempty"`
	ShippedAt     *time.Time          `db:"shipped_at" json:"shipped_at,omitempty"`
	CreatedAt     time.Time           `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time           `db:"updated_at" json:"updated_at"`
}

const shipmentColumns = `
	id, ticket, lot_code, status, shipment_type, warehouse_id, product_id, client_id,
	driver_name, plates, transport_type, gross_weight, tare_weight, net_weight,
	seals, notes, shipped_at, created_at, updated_at
`

// ShipmentFilter narrows List results.
type ShipmentFilter struct {
	Status       string
	ShipmentType string
	ProductID    *int64
	From         *time.Time
	To           *time.Time
}

// ShipmentRepository handles shipment persistence
type ShipmentRepository struct {
	db *database.DB
}

// NewShipmentRepository creates a new shipment repository
func NewShipmentRepository(db *database.DB) *ShipmentRepository {
	return &ShipmentRepository{db: db}
}

// Table returns the table name for audit entries and duplicate checks.
func (r *ShipmentRepository) Table() string {
	return "shipments"
}

// Create inserts a new shipment. The lot code is never written on create.
func (r *ShipmentRepository) Create(ctx context.Context, s *Shipment) error {
	query := `
		INSERT INTO shipments (
			ticket, status, shipment_type, warehouse_id, product_id, client_id,
			driver_name, plates, transport_type, gross_weight, tare_weight,
			net_weight, seals, notes, shipped_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING id, created_at, updated_at
	`

	if s.Status == "" {
		s.Status = StatusPending
	}
	if s.ShipmentType == "" {
		s.ShipmentType = ShipmentNational
	}

	err := r.db.QueryRowxContext(ctx, query,
		s.Ticket, s.Status, s.ShipmentType, s.WarehouseID, s.ProductID, s.ClientID,
		s.DriverName, s.Plates, s.TransportType, s.GrossWeight, s.TareWeight,
		s.NetWeight, s.Seals, s.Notes, s.ShippedAt,
	).Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return database.MapPQError(err)
	}

	return nil
}

// GetByID reads a shipment by ID.
func (r *ShipmentRepository) GetByID(ctx context.Context, id int64) (*Shipment, error) {
	var s Shipment
	query := `SELECT ` + shipmentColumns + ` FROM shipments WHERE id = $1`

	if err := r.db.GetContext(ctx, &s, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("shipment")
		}
		return nil, err
	}

	return &s, nil
}

// Update persists the business fields of a shipment. The lot code column
// is deliberately excluded; see AttachLotCode.
func (r *ShipmentRepository) Update(ctx context.Context, s *Shipment) error {
	query := `
		UPDATE shipments SET
			ticket = $1, status = $2, shipment_type = $3, warehouse_id = $4,
			product_id = $5, client_id = $6, driver_name = $7, plates = $8,
			transport_type = $9, gross_weight = $10, tare_weight = $11,
			net_weight = $12, seals = $13, notes = $14, shipped_at = $15,
			updated_at = NOW()
		WHERE id = $16
		RETURNING updated_at
	`

	err := r.db.QueryRowxContext(ctx, query,
		s.Ticket, s.Status, s.ShipmentType, s.WarehouseID, s.ProductID, s.ClientID,
		s.DriverName, s.Plates, s.TransportType, s.GrossWeight, s.TareWeight,
		s.NetWeight, s.Seals, s.Notes, s.ShippedAt,
		s.ID,
	).Scan(&s.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperrors.NotFound("shipment")
		}
		return database.MapPQError(err)
	}

	return nil
}

// AttachLotCode writes the lot code onto an already-persisted shipment.
func (r *ShipmentRepository) AttachLotCode(ctx context.Context, id int64, code string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE shipments SET lot_code = $1, updated_at = NOW() WHERE id = $2`, code, id)
	if err != nil {
		return database.MapPQError(err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return apperrors.NotFound("shipment")
	}

	return nil
}

// FindByLotCode reads a shipment by its lot code.
func (r *ShipmentRepository) FindByLotCode(ctx context.Context, code string) (*Shipment, error) {
	var s Shipment
	query := `SELECT ` + shipmentColumns + ` FROM shipments WHERE lot_code = $1`

	if err := r.db.GetContext(ctx, &s, query, code); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("shipment")
		}
		return nil, err
	}

	return &s, nil
}

// ListUncoded lists completed shipments that were saved without a lot code.
func (r *ShipmentRepository) ListUncoded(ctx context.Context) ([]*Shipment, error) {
	var shipments []*Shipment
	query := `SELECT ` + shipmentColumns + `
		FROM shipments
		WHERE status = $1 AND lot_code IS NULL
		ORDER BY updated_at ASC`

	if err := r.db.SelectContext(ctx, &shipments, query, StatusCompleted); err != nil {
		return nil, err
	}

	return shipments, nil
}

// List lists shipments with optional filters, newest first.
func (r *ShipmentRepository) List(ctx context.Context, filter ShipmentFilter) ([]*Shipment, error) {
	args := []interface{}{}
	argIdx := 1

	query := `SELECT ` + shipmentColumns + ` FROM shipments WHERE 1=1`

	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, filter.Status)
		argIdx++
	}

	if filter.ShipmentType != "" {
		query += fmt.Sprintf(` AND shipment_type = $%d`, argIdx)
		args = append(args, filter.ShipmentType)
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

	var shipments []*Shipment
	if err := r.db.SelectContext(ctx, &shipments, query, args...); err != nil {
		return nil, err
	}

	return shipments, nil
}

// Delete permanently removes a shipment. The caller audits the removal
// as DELETE_PERMANENT.
func (r *ShipmentRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM shipments WHERE id = $1`, id)
	if err != nil {
		return database.MapPQError(err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return apperrors.NotFound("shipment")
	}

	return nil
}
