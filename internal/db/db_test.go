package db

import (
	"context"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ldi/wird/internal/store"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Init(context.Background()))
	return db
}

func TestOpen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "data", "test.db")

	db, err := Open(dbPath)
	require.NoError(t, err)
	defer db.Close()

	var mode string
	require.NoError(t, db.QueryRow("PRAGMA journal_mode").Scan(&mode))
	assert.Equal(t, "wal", mode)
}

func TestMigrate(t *testing.T) {
	db, err := Open(":memory:")
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	require.NoError(t, db.Migrate(ctx, `CREATE TABLE test (id INTEGER PRIMARY KEY, name TEXT);`))
	_, err = db.Exec("INSERT INTO test (name) VALUES (?)", "foo")
	require.NoError(t, err)

	assert.Error(t, db.Migrate(ctx, `CREATE TABLE broken (`))
}

func TestInitIsIdempotent(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.Init(context.Background()))
}

func TestGetSet(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	_, err := db.Get(ctx, store.KeyTasks)
	assert.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, db.Set(ctx, store.KeyTasks, `[]`))
	require.NoError(t, db.Set(ctx, store.KeyTasks, `[{"id":1}]`))

	v, err := db.Get(ctx, store.KeyTasks)
	require.NoError(t, err)
	assert.Equal(t, `[{"id":1}]`, v)

	var rows int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM kv`).Scan(&rows))
	assert.Equal(t, 1, rows)
}

func TestOnChange(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	var calls atomic.Int32
	db.SetOnChange(func(context.Context) { calls.Add(1) })

	require.NoError(t, db.Set(ctx, store.KeyHistory, `{}`))
	assert.Equal(t, int32(1), calls.Load())

	db.DisableOnChange()
	require.NoError(t, db.Set(ctx, store.KeyHistory, `{"2024-01-01":{}}`))
	assert.Equal(t, int32(1), calls.Load())

	db.EnableOnChange()
	require.NoError(t, db.Set(ctx, store.KeyHistory, `{}`))
	assert.Equal(t, int32(2), calls.Load())
}

func TestListEntries(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	entries, err := db.ListEntries(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)

	require.NoError(t, db.Set(ctx, store.KeyTasks, `[]`))
	require.NoError(t, db.Set(ctx, store.KeyHistory, `{"2024-01-01":{"1":true}}`))

	entries, err = db.ListEntries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, store.KeyHistory, entries[0].Key)
	assert.False(t, entries[0].UpdatedAt.IsZero())
	assert.Equal(t, store.KeyTasks, entries[1].Key)
	assert.Equal(t, 2, entries[1].Size)
}

func TestSetMany(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	var calls atomic.Int32
	db.SetOnChange(func(context.Context) { calls.Add(1) })

	require.NoError(t, db.Set(ctx, store.KeyTasks, `[]`))
	require.NoError(t, db.SetMany(ctx, map[string]string{
		store.KeyTasks:   `[{"id":1}]`,
		store.KeyHistory: `{}`,
	}))
	assert.Equal(t, int32(2), calls.Load())

	v, err := db.Get(ctx, store.KeyTasks)
	require.NoError(t, err)
	assert.Equal(t, `[{"id":1}]`, v)
	v, err = db.Get(ctx, store.KeyHistory)
	require.NoError(t, err)
	assert.Equal(t, `{}`, v)
}
