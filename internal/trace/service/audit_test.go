package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agrotrace/agrotrace-backend/internal/trace/repository"
	"github.com/agrotrace/agrotrace-backend/pkg/actor"
	"github.com/agrotrace/agrotrace-backend/pkg/logger"
)

func TestRecorder_RecordWritesBeforeAndAfterSnapshots(t *testing.T) {
	store := &fakeAudit{}
	recorder := NewRecorder(store, logger.New("test", "test"))

	before := map[string]string{"status": "Pending"}
	after := map[string]string{"status": "Completed"}
	recorder.Record(context.Background(), "receivings", 7, repository.AuditUpdate, before, after)

	require.Len(t, store.entries, 1)
	entry := store.entries[0]
	assert.Equal(t, "receivings", entry.TableName)
	assert.Equal(t, int64(7), entry.RecordID)
	assert.Equal(t, repository.AuditUpdate, entry.Action)
	require.NotNil(t, entry.BeforeData)
	require.NotNil(t, entry.AfterData)
	assert.JSONEq(t, `{"status":"Pending"}`, *entry.BeforeData)
	assert.JSONEq(t, `{"status":"Completed"}`, *entry.AfterData)
}

func TestRecorder_InsertHasNoBeforeSnapshot(t *testing.T) {
	store := &fakeAudit{}
	recorder := NewRecorder(store, logger.New("test", "test"))

	recorder.Record(context.Background(), "shipments", 3, repository.AuditInsert, nil, map[string]string{"ticket": "S-1"})

	require.Len(t, store.entries, 1)
	assert.Nil(t, store.entries[0].BeforeData)
	assert.NotNil(t, store.entries[0].AfterData)
}

func TestRecorder_StampsActorFromContext(t *testing.T) {
	store := &fakeAudit{}
	recorder := NewRecorder(store, logger.New("test", "test"))

	a := &actor.Actor{ID: "5f7d2f9e-4a2e-4f7e-9f1a-1c2d3e4f5a6b", Name: "Warehouse Operator", Email: "op@example.com"}
	ctx := actor.WithActor(context.Background(), a)
	recorder.Record(ctx, "receivings", 1, repository.AuditDelete, map[string]string{}, nil)

	require.Len(t, store.entries, 1)
	entry := store.entries[0]
	require.NotNil(t, entry.ActorID)
	assert.Equal(t, a.ID, *entry.ActorID)
	require.NotNil(t, entry.ActorEmail)
	assert.Equal(t, "op@example.com", *entry.ActorEmail)
}

func TestRecorder_StoreFailureIsSwallowed(t *testing.T) {
	store := &fakeAudit{err: errors.New("audit table locked")}
	recorder := NewRecorder(store, logger.New("test", "test"))

	// must not panic or propagate
	recorder.Record(context.Background(), "receivings", 1, repository.AuditUpdate, nil, nil)
	assert.Empty(t, store.entries)
}
