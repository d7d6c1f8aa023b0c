package repository

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"sync"

	"github.com/AmanYize/ev-charge/backend/services/charging-service/internal/models"
)

// ErrRecordNotFound indicates a missing history entry.
var ErrRecordNotFound = errors.New("repository: record not found")

const defaultHistoryLimit = 50

// HistoryRepository stores finished charging sessions.
type HistoryRepository interface {
	Append(ctx context.Context, record models.SessionRecord) error
	ListByUser(ctx context.Context, userID int64, limit int) ([]models.SessionRecord, error)
	Get(ctx context.Context, userID int64, id string) (models.SessionRecord, error)
}

// PostgresHistory keeps history in the charging_history table.
type PostgresHistory struct {
	db *sql.DB
}

// NewPostgresHistory returns repository.
func NewPostgresHistory(db *sql.DB) *PostgresHistory {
	return &PostgresHistory{db: db}
}

// Append inserts a record. Re-appending the same id keeps the first copy.
func (r *PostgresHistory) Append(ctx context.Context, rec models.SessionRecord) error {
	const query = `
		INSERT INTO charging_history (id, user_id, station_id, station_name, connector_id, energy_kwh, cost,
			price_per_kwh, currency, balance_after, outcome, receipt_id, started_at, ended_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, NOW())
		ON CONFLICT (id) DO NOTHING
	`
	_, err := r.db.ExecContext(ctx, query,
		rec.ID,
		rec.UserID,
		rec.StationID,
		rec.StationName,
		rec.ConnectorID,
		rec.EnergyKWh,
		rec.Cost,
		rec.PricePerKWh,
		rec.Currency,
		rec.BalanceAfter,
		rec.Outcome,
		nullString(rec.ReceiptID),
		rec.StartedAt,
		rec.EndedAt,
	)
	return err
}

// ListByUser returns the latest records of a user, newest first.
func (r *PostgresHistory) ListByUser(ctx context.Context, userID int64, limit int) ([]models.SessionRecord, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	const query = `
		SELECT id, user_id, station_id, station_name, connector_id, energy_kwh, cost, price_per_kwh,
			currency, balance_after, outcome, receipt_id, started_at, ended_at
		FROM charging_history
		WHERE user_id = $1
		ORDER BY started_at DESC
		LIMIT $2
	`
	rows, err := r.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []models.SessionRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

// Get returns one record owned by userID.
func (r *PostgresHistory) Get(ctx context.Context, userID int64, id string) (models.SessionRecord, error) {
	const query = `
		SELECT id, user_id, station_id, station_name, connector_id, energy_kwh, cost, price_per_kwh,
			currency, balance_after, outcome, receipt_id, started_at, ended_at
		FROM charging_history
		WHERE id = $1 AND user_id = $2
	`
	rec, err := scanRecord(r.db.QueryRowContext(ctx, query, id, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return models.SessionRecord{}, ErrRecordNotFound
	}
	return rec, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (models.SessionRecord, error) {
	var (
		rec       models.SessionRecord
		receiptID sql.NullString
	)
	err := row.Scan(
		&rec.ID,
		&rec.UserID,
		&rec.StationID,
		&rec.StationName,
		&rec.ConnectorID,
		&rec.EnergyKWh,
		&rec.Cost,
		&rec.PricePerKWh,
		&rec.Currency,
		&rec.BalanceAfter,
		&rec.Outcome,
		&receiptID,
		&rec.StartedAt,
		&rec.EndedAt,
	)
	if err != nil {
		return models.SessionRecord{}, err
	}
	rec.ReceiptID = receiptID.String
	return rec, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// MemoryHistory is a process-local HistoryRepository.
type MemoryHistory struct {
	mu      sync.RWMutex
	records map[string]models.SessionRecord
}

// NewMemoryHistory returns an empty history.
func NewMemoryHistory() *MemoryHistory {
	return &MemoryHistory{records: make(map[string]models.SessionRecord)}
}

// Append implements HistoryRepository.
func (m *MemoryHistory) Append(_ context.Context, rec models.SessionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[rec.ID]; !ok {
		m.records[rec.ID] = rec
	}
	return nil
}

// ListByUser implements HistoryRepository.
func (m *MemoryHistory) ListByUser(_ context.Context, userID int64, limit int) ([]models.SessionRecord, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	m.mu.RLock()
	var records []models.SessionRecord
	for _, rec := range m.records {
		if rec.UserID == userID {
			records = append(records, rec)
		}
	}
	m.mu.RUnlock()

	sort.Slice(records, func(i, j int) bool { return records[i].StartedAt.After(records[j].StartedAt) })
	if len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

// Get implements HistoryRepository.
func (m *MemoryHistory) Get(_ context.Context, userID int64, id string) (models.SessionRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.records[id]
	if !ok || rec.UserID != userID {
		return models.SessionRecord{}, ErrRecordNotFound
	}
	return rec, nil
}
