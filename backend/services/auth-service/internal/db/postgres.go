package db

import (
	"context"
	"database/sql"

	libdb "github.com/AmanYize/ev-charge/backend/libs/db"
)

// NewPostgres connects to Postgres using shared library helper.
func NewPostgres(ctx context.Context, dsn string) (*sql.DB, error) {
	return libdb.NewPostgresDB(ctx, dsn, libdb.PoolOptions{})
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            BIGSERIAL PRIMARY KEY,
		phone_number  TEXT NOT NULL UNIQUE,
		full_name     TEXT NOT NULL DEFAULT '',
		password_hash TEXT NOT NULL,
		role          TEXT NOT NULL DEFAULT 'driver',
		created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
}

// Migrate creates the users table when missing.
func Migrate(ctx context.Context, db *sql.DB) error {
	return libdb.EnsureSchema(ctx, db, schema...)
}
