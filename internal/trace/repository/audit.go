package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/agrotrace/agrotrace-backend/pkg/database"
)

// Audit actions.
const (
	AuditInsert          = "INSERT"
	AuditUpdate          = "UPDATE"
	AuditDelete          = "DELETE"
	AuditDeletePermanent = "DELETE_PERMANENT"
)

// AuditEntry is one row of the append-only audit_log table. Entries are
// never updated or deleted.
type AuditEntry struct {
	ID         string    `db:"id" json:"id"`
	TableName  string    `db:"table_name" json:"table_name"`
	RecordID   int64     `db:"record_id" json:"record_id"`
	Action     string    `db:"action" json:"action"`
	BeforeData *string   `db:"before_data" json:"before_data,omitempty"`
	AfterData  *string   `db:"after_data" json:"after_data,omitempty"`
	ActorID    *string   `db:"actor_id" json:"actor_id,omitempty"`
	ActorEmail *string   `db:"actor_email" json:"actor_email,omitempty"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// AuditRepository handles audit log persistence. All operations are
// append-only: no UPDATE or DELETE is permitted.
type AuditRepository struct {
	db *database.DB
}

// NewAuditRepository creates a new audit repository
func NewAuditRepository(db *database.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// Create appends a new audit entry.
func (r *AuditRepository) Create(ctx context.Context, entry *AuditEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}

	query := `
		INSERT INTO audit_log (
			id, table_name, record_id, action, before_data, after_data,
			actor_id, actor_email
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at
	`

	return r.db.QueryRowxContext(ctx, query,
		entry.ID, entry.TableName, entry.RecordID, entry.Action,
		entry.BeforeData, entry.AfterData, entry.ActorID, entry.ActorEmail,
	).Scan(&entry.CreatedAt)
}

// ListByRecord lists the audit history of one record, newest first.
func (r *AuditRepository) ListByRecord(ctx context.Context, tableName string, recordID int64) ([]*AuditEntry, error) {
	var entries []*AuditEntry
	query := `
		SELECT id, table_name, record_id, action, before_data, after_data,
		       actor_id, actor_email, created_at
		FROM audit_log
		WHERE table_name = $1 AND record_id = $2
		ORDER BY created_at DESC
	`

	if err := r.db.SelectContext(ctx, &entries, query, tableName, recordID); err != nil {
		return nil, err
	}

	return entries, nil
}

// ListByTable lists recent audit entries for a table with pagination.
func (r *AuditRepository) ListByTable(ctx context.Context, tableName string, page, perPage int) ([]*AuditEntry, int64, error) {
	var total int64
	if err := r.db.GetContext(ctx, &total,
		`SELECT COUNT(*) FROM audit_log WHERE table_name = $1`, tableName); err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * perPage
	var entries []*AuditEntry
	query := `
		SELECT id, table_name, record_id, action, before_data, after_data,
		       actor_id, actor_email, created_at
		FROM audit_log
		WHERE table_name = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	if err := r.db.SelectContext(ctx, &entries, query, tableName, perPage, offset); err != nil {
		return nil, 0, err
	}

	return entries, total, nil
}
