package kvstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	libdb "github.com/AmanYize/ev-charge/backend/libs/db"
)

func exerciseStore(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()

	_, ok, err := store.Get(ctx, KeyWallet)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Set(ctx, KeyWallet, `{"balance":1000}`))
	require.NoError(t, store.Set(ctx, KeyWallet, `{"balance":985}`))

	value, ok, err := store.Get(ctx, KeyWallet)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `{"balance":985}`, value)

	require.NoError(t, store.Delete(ctx, KeyWallet))
	require.NoError(t, store.Delete(ctx, KeyWallet))
	_, ok, err = store.Get(ctx, KeyWallet)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemory())
}

func TestSQLiteStore(t *testing.T) {
	db, err := libdb.NewSQLiteDB(filepath.Join(t.TempDir(), "state", "kiosk.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	store, err := NewSQLite(context.Background(), db)
	require.NoError(t, err)
	exerciseStore(t, store)
}

func TestSQLiteStoreSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kiosk.db")
	ctx := context.Background()

	db, err := libdb.NewSQLiteDB(path)
	require.NoError(t, err)
	store, err := NewSQLite(ctx, db)
	require.NoError(t, err)
	require.NoError(t, store.Set(ctx, KeyToken, "abc"))
	require.NoError(t, db.Close())

	db, err = libdb.NewSQLiteDB(path)
	require.NoError(t, err)
	defer db.Close()
	store, err = NewSQLite(ctx, db)
	require.NoError(t, err)

	value, ok, err := store.Get(ctx, KeyToken)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "abc", value)
}
