package repository

import (
	"context"

	"github.com/agrotrace/agrotrace-backend/pkg/database"
)

// LookupRepository answers cross-table questions about issued lot codes.
type LookupRepository struct {
	db *database.DB
}

// NewLookupRepository creates a new lookup repository
func NewLookupRepository(db *database.DB) *LookupRepository {
	return &LookupRepository{db: db}
}

// LotCodeInUse reports whether a lot code is already attached to any
// transaction, receiving or shipment. Used as the cross-table duplicate
// guard before attaching a freshly composed code.
func (r *LookupRepository) LotCodeInUse(ctx context.Context, code string) (bool, error) {
	var exists bool
	query := `
		SELECT EXISTS (
			SELECT 1 FROM receivings WHERE lot_code = $1
			UNION
			SELECT 1 FROM shipments WHERE lot_code = $1
		)
	`

	if err := r.db.GetContext(ctx, &exists, query, code); err != nil {
		return false, err
	}

	return exists, nil
}
