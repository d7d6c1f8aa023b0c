package db

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSQLiteDBCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "kiosk.db")
	db, err := NewSQLiteDB(path)
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, EnsureSchema(context.Background(), db,
		`CREATE TABLE IF NOT EXISTS t (k TEXT PRIMARY KEY)`,
		`CREATE TABLE IF NOT EXISTS t (k TEXT PRIMARY KEY)`,
	))
	_, err = db.Exec(`INSERT INTO t (k) VALUES ('a')`)
	assert.NoError(t, err)
}

func TestEnsureSchemaReportsStatement(t *testing.T) {
	db, err := NewSQLiteDB(":memory:")
	require.NoError(t, err)
	defer db.Close()

	err = EnsureSchema(context.Background(), db, `CREATE TABLE ok (k TEXT)`, `NOT SQL`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "statement 1")
}

func TestNewPostgresDBRejectsEmptyDSN(t *testing.T) {
	_, err := NewPostgresDB(context.Background(), " ", PoolOptions{})
	assert.Error(t, err)
}
