package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/agrotrace/agrotrace-backend/pkg/database"
	apperrors "github.com/agrotrace/agrotrace-backend/pkg/errors"
)

// DefaultOriginCode is used when a supplier or client carries no origin
// mapping. Unmapped parties share the generic "00" origin segment.
const DefaultOriginCode = "00"

// OperationType is one row of the operation_types catalog.
type OperationType struct {
	ID   int64  `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
	Code string `db:"code" json:"code"`
}

// Product is one row of the products catalog.
type Product struct {
	ID      int64  `db:"id" json:"id"`
	Name    string `db:"name" json:"name"`
	LotCode string `db:"lot_code" json:"lot_code"`
	Active  bool   `db:"active" json:"active"`
}

// Warehouse is one row of the warehouses catalog.
type Warehouse struct {
	ID              int64   `db:"id" json:"id"`
	Name            string  `db:"name" json:"name"`
	LotCode         string  `db:"lot_code" json:"lot_code"`
	MaxCapacity     *string `db:"max_capacity" json:"max_capacity,omitempty"`
	CurrentCapacity string  `db:"current_capacity" json:"current_capacity"`
	Active          bool    `db:"active" json:"active"`
}

// CatalogRepository resolves the catalog segments a lot code is built from.
type CatalogRepository struct {
	db *database.DB
}

// NewCatalogRepository creates a new catalog repository
func NewCatalogRepository(db *database.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

// OperationCode resolves an operation type name (e.g. "Receiving") to its
// lot code prefix (e.g. "AC-").
func (r *CatalogRepository) OperationCode(ctx context.Context, name string) (string, error) {
	var code string
	err := r.db.GetContext(ctx, &code, `SELECT code FROM operation_types WHERE name = $1`, name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", apperrors.NotFound("operation type")
		}
		return "", err
	}
	return code, nil
}

// SupplierOriginCode resolves a supplier's origin segment. Suppliers with
// no mapping resolve to DefaultOriginCode.
func (r *CatalogRepository) SupplierOriginCode(ctx context.Context, supplierID int64) (string, error) {
	var code sql.NullString
	err := r.db.GetContext(ctx, &code, `SELECT origin_code FROM suppliers WHERE id = $1`, supplierID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return DefaultOriginCode, nil
		}
		return "", err
	}
	if !code.Valid || code.String == "" {
		return DefaultOriginCode, nil
	}
	return code.String, nil
}

// ClientOriginCode resolves a client's origin segment. Clients with no
// mapping resolve to DefaultOriginCode.
func (r *CatalogRepository) ClientOriginCode(ctx context.Context, clientID int64) (string, error) {
	var code sql.NullString
	err := r.db.GetContext(ctx, &code, `SELECT origin_code FROM clients WHERE id = $1`, clientID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return DefaultOriginCode, nil
		}
		return "", err
	}
	if !code.Valid || code.String == "" {
		return DefaultOriginCode, nil
	}
	return code.String, nil
}

// ProductCode resolves a product's lot code segment.
func (r *CatalogRepository) ProductCode(ctx context.Context, productID int64) (string, error) {
	var code string
	err := r.db.GetContext(ctx, &code, `SELECT lot_code FROM products WHERE id = $1`, productID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", apperrors.NotFound("product")
		}
		return "", err
	}
	return code, nil
}

// WarehouseCode resolves a warehouse's lot code segment.
func (r *CatalogRepository) WarehouseCode(ctx context.Context, warehouseID int64) (string, error) {
	var code string
	err := r.db.GetContext(ctx, &code, `SELECT lot_code FROM warehouses WHERE id = $1`, warehouseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", apperrors.NotFound("warehouse")
		}
		return "", err
	}
	return code, nil
}

// ListProducts lists active products.
func (r *CatalogRepository) ListProducts(ctx context.Context) ([]*Product, error) {
	var products []*Product
	err := r.db.SelectContext(ctx, &products,
		`SELECT id, name, lot_code, active FROM products WHERE active = TRUE ORDER BY name`)
	if err != nil {
		return nil, err
	}
	return products, nil
}

// ListWarehouses lists active warehouses.
func (r *CatalogRepository) ListWarehouses(ctx context.Context) ([]*Warehouse, error) {
	var warehouses []*Warehouse
	err := r.db.SelectContext(ctx, &warehouses,
		`SELECT id, name, lot_code, max_capacity, current_capacity, active FROM warehouses WHERE active = TRUE ORDER BY name`)
	if err != nil {
		return nil, err
	}
	return warehouses, nil
}
