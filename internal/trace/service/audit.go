package service

import (
	"context"
	"encoding/json"

	"github.com/agrotrace/agrotrace-backend/internal/trace/repository"
	"github.com/agrotrace/agrotrace-backend/pkg/actor"
	"github.com/agrotrace/agrotrace-backend/pkg/logger"
)

// AuditStore is the persistence surface the recorder writes to.
type AuditStore interface {
	Create(ctx context.Context, entry *repository.AuditEntry) error
}

// Recorder writes audit entries for every mutation. Audit writes never
// block or fail the mutation they describe: every failure is swallowed
// and logged.
type Recorder struct {
	store  AuditStore
	logger *logger.Logger
}

// NewRecorder creates a new audit recorder
func NewRecorder(store AuditStore, log *logger.Logger) *Recorder {
	return &Recorder{
		store:  store,
		logger: log.WithComponent("audit"),
	}
}

// Record appends an audit entry with JSON snapshots of the record before
// and after the mutation. Nil snapshots are stored as NULL (INSERT has no
// before, DELETE no after). The acting user is read from the context.
func (r *Recorder) Record(ctx context.Context, tableName string, recordID int64, action string, before, after interface{}) {
	entry := &repository.AuditEntry{
		TableName: tableName,
		RecordID:  recordID,
		Action:    action,
	}

	if before != nil {
		if data, err := json.Marshal(before); err == nil {
			s := string(data)
			entry.BeforeData = &s
		} else {
			r.logger.Warn().Err(err).Str("table", tableName).Msg("failed to marshal audit before snapshot")
		}
	}

	if after != nil {
		if data, err := json.Marshal(after); err == nil {
			s := string(data)
			entry.AfterData = &s
		} else {
			r.logger.Warn().Err(err).Str("table", tableName).Msg("failed to marshal audit after snapshot")
		}
	}

	if a := actor.FromContext(ctx); a != nil {
		entry.ActorID = &a.ID
		entry.ActorEmail = &a.Email
	}

	if err := r.store.Create(ctx, entry); err != nil {
		r.logger.Error().
			Str("table", tableName).
			Int64("record_id", recordID).
			Str("action", action).
			Err(err).
			Msg("failed to write audit entry")
	}
}
