package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/agrotrace/agrotrace-backend/internal/trace/lotcode"
	"github.com/agrotrace/agrotrace-backend/pkg/database"
	apperrors "github.com/agrotrace/agrotrace-backend/pkg/errors"
)

// Lot is one issued lot code, stored with its decomposed key so reporting
// can group by segment without parsing codes.
type Lot struct {
	ID            int64      `db:"id" json:"id"`
	Code          string     `db:"code" json:"code"`
	OperationCode string     `db:"operation_code" json:"operation_code"`
	OriginCode    string     `db:"origin_code" json:"origin_code"`
	ProductCode   string     `db:"product_code" json:"product_code"`
	WarehouseCode string     `db:"warehouse_code" json:"warehouse_code"`
	YearCode      string     `db:"year_code" json:"year_code"`
	Year          int        `db:"year" json:"year"`
	Consecutive   int        `db:"consecutive" json:"consecutive"`
	Active        bool       `db:"active" json:"active"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	DeletedAt     *time.Time `db:"deleted_at" json:"-"`
}

// LotRepository handles the registry of issued lot codes.
type LotRepository struct {
	db *database.DB
}

// NewLotRepository creates a new lot repository
func NewLotRepository(db *database.DB) *LotRepository {
	return &LotRepository{db: db}
}

// Create registers an issued lot code.
func (r *LotRepository) Create(ctx context.Context, key lotcode.Key, code string, consecutive int) (*Lot, error) {
	query := `
		INSERT INTO lots (
			code, operation_code, origin_code, product_code, warehouse_code,
			year_code, year, consecutive, active
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, TRUE)
		RETURNING id, created_at
	`

	lot := &Lot{
		Code:          code,
		OperationCode: key.OperationCode,
		OriginCode:    key.OriginCode,
		ProductCode:   key.ProductCode,
		WarehouseCode: key.WarehouseCode,
		YearCode:      key.YearCode,
		Year:          key.Year,
		Consecutive:   consecutive,
		Active:        true,
	}

	err := r.db.QueryRowxContext(ctx, query,
		lot.Code, lot.OperationCode, lot.OriginCode, lot.ProductCode,
		lot.WarehouseCode, lot.YearCode, lot.Year, lot.Consecutive,
	).Scan(&lot.ID, &lot.CreatedAt)
	if err != nil {
		return nil, database.MapPQError(err)
	}

	return lot, nil
}

// GetByCode reads a lot by its code.
func (r *LotRepository) GetByCode(ctx context.Context, code string) (*Lot, error) {
	var lot Lot
	query := `
		SELECT id, code, operation_code, origin_code, product_code, warehouse_code,
		       year_code, year, consecutive, active, created_at, deleted_at
		FROM lots
		WHERE code = $1 AND deleted_at IS NULL
	`

	if err := r.db.GetContext(ctx, &lot, query, code); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("lot")
		}
		return nil, err
	}

	return &lot, nil
}

// List lists issued lots for a year, newest first.
func (r *LotRepository) List(ctx context.Context, year int) ([]*Lot, error) {
	var lots []*Lot
	query := `
		SELECT id, code, operation_code, origin_code, product_code, warehouse_code,
		       year_code, year, consecutive, active, created_at, deleted_at
		FROM lots
		WHERE year = $1 AND deleted_at IS NULL
		ORDER BY created_at DESC
	`

	if err := r.db.SelectContext(ctx, &lots, query, year); err != nil {
		return nil, err
	}

	return lots, nil
}

// SoftDelete marks a lot inactive without losing the issued code.
func (r *LotRepository) SoftDelete(ctx context.Context, code string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE lots SET active = FALSE, deleted_at = NOW() WHERE code = $1 AND deleted_at IS NULL`, code)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return apperrors.NotFound("lot")
	}

	return nil
}
