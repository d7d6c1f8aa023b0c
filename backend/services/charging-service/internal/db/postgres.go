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
	`CREATE TABLE IF NOT EXISTS stations (
		id            TEXT PRIMARY KEY,
		name          TEXT NOT NULL,
		address       TEXT NOT NULL DEFAULT '',
		hours         TEXT NOT NULL DEFAULT '',
		contact       TEXT NOT NULL DEFAULT '',
		latitude      DOUBLE PRECISION NOT NULL DEFAULT 0,
		longitude     DOUBLE PRECISION NOT NULL DEFAULT 0,
		price_per_kwh NUMERIC(10,2) NOT NULL DEFAULT 0,
		service_fee   NUMERIC(10,2) NOT NULL DEFAULT 0,
		parking_fee   NUMERIC(10,2) NOT NULL DEFAULT 0,
		currency      TEXT NOT NULL DEFAULT 'ETB',
		facilities    TEXT NOT NULL DEFAULT '',
		created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS connectors (
		station_id  TEXT NOT NULL REFERENCES stations(id) ON DELETE CASCADE,
		id          TEXT NOT NULL,
		position    INT NOT NULL DEFAULT 0,
		charge_mode TEXT NOT NULL,
		power_kw    DOUBLE PRECISION NOT NULL DEFAULT 0,
		type        TEXT NOT NULL DEFAULT '',
		status      TEXT NOT NULL DEFAULT 'available',
		updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (station_id, id)
	)`,
	`CREATE TABLE IF NOT EXISTS charging_history (
		id            TEXT PRIMARY KEY,
		user_id       BIGINT NOT NULL,
		station_id    TEXT NOT NULL,
		station_name  TEXT NOT NULL DEFAULT '',
		connector_id  TEXT NOT NULL,
		energy_kwh    NUMERIC(12,2) NOT NULL,
		cost          NUMERIC(12,2) NOT NULL,
		price_per_kwh NUMERIC(10,2) NOT NULL,
		currency      TEXT NOT NULL,
		balance_after NUMERIC(12,2) NOT NULL,
		outcome       TEXT NOT NULL,
		receipt_id    TEXT,
		started_at    TIMESTAMPTZ NOT NULL,
		ended_at      TIMESTAMPTZ NOT NULL,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS charging_history_user_started_idx ON charging_history (user_id, started_at DESC)`,
}

// Migrate creates the charging tables when they are missing.
func Migrate(ctx context.Context, db *sql.DB) error {
	return libdb.EnsureSchema(ctx, db, schema...)
}
