package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

// NewSQLiteDB opens a WAL-mode SQLite database at path, creating the parent directory.
// Used by device-side binaries that have no server to talk to for local state.
func NewSQLiteDB(path string) (*sql.DB, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("db: empty sqlite path")
	}

	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("db: create sqlite directory: %w", err)
		}
	}

	dsn := fmt.Sprintf("%s?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("db: open sqlite: %w", err)
	}

	// a single writer keeps ":memory:" databases on one connection
	db.SetMaxOpenConns(1)

	if err := ping(context.Background(), db); err != nil {
		return nil, err
	}
	return db, nil
}
