package directory

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/AmanYize/ev-charge/backend/services/charging-service/internal/models"
)

// Postgres reads the station catalog from the stations/connectors tables.
type Postgres struct {
	db *sql.DB
}

// NewPostgres returns a SQL-backed directory.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

const stationColumns = `id, name, address, hours, contact, latitude, longitude,
	price_per_kwh, service_fee, parking_fee, currency, facilities`

// Station implements Directory.
func (p *Postgres) Station(ctx context.Context, siteID string) (models.Station, error) {
	const query = `SELECT ` + stationColumns + ` FROM stations WHERE id = $1 LIMIT 1`

	station, err := scanStation(p.db.QueryRowContext(ctx, query, siteID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Station{}, ErrStationNotFound
		}
		return models.Station{}, err
	}

	connectors, err := p.connectors(ctx, `WHERE station_id = $1`, siteID)
	if err != nil {
		return models.Station{}, err
	}
	station.Connectors = connectors[station.ID]
	return station, nil
}

// Connector implements Directory.
func (p *Postgres) Connector(ctx context.Context, siteID, gunID string) (models.Connector, error) {
	const query = `
		SELECT c.id, c.charge_mode, c.power_kw, c.type, c.status
		FROM stations s
		LEFT JOIN connectors c ON c.station_id = s.id AND c.id = $2
		WHERE s.id = $1
		LIMIT 1
	`
	var (
		id, mode, typ, status sql.NullString
		power                 sql.NullFloat64
	)
	err := p.db.QueryRowContext(ctx, query, siteID, gunID).Scan(&id, &mode, &power, &typ, &status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Connector{}, ErrStationNotFound
		}
		return models.Connector{}, err
	}
	if !id.Valid {
		return models.Connector{}, ErrConnectorNotFound
	}
	return models.Connector{
		ID:         id.String,
		ChargeMode: models.ChargeMode(mode.String),
		PowerKW:    power.Float64,
		Type:       typ.String,
		Status:     models.ConnectorStatus(status.String),
	}, nil
}

// List implements Directory. Filtering happens in process so that the same
// rules apply to every directory implementation.
func (p *Postgres) List(ctx context.Context, filter Filter) ([]models.Station, error) {
	const query = `SELECT ` + stationColumns + ` FROM stations ORDER BY id`

	rows, err := p.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stations []models.Station
	for rows.Next() {
		station, err := scanStation(rows)
		if err != nil {
			return nil, err
		}
		stations = append(stations, station)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	connectors, err := p.connectors(ctx, "")
	if err != nil {
		return nil, err
	}
	for i := range stations {
		stations[i].Connectors = connectors[stations[i].ID]
	}
	return Apply(stations, filter), nil
}

// Upsert stores a station and replaces its connectors.
func (p *Postgres) Upsert(ctx context.Context, station models.Station) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	const upsertStation = `
		INSERT INTO stations (id, name, address, hours, contact, latitude, longitude,
			price_per_kwh, service_fee, parking_fee, currency, facilities, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW(), NOW())
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			address = EXCLUDED.address,
			hours = EXCLUDED.hours,
			contact = EXCLUDED.contact,
			latitude = EXCLUDED.latitude,
			longitude = EXCLUDED.longitude,
			price_per_kwh = EXCLUDED.price_per_kwh,
			service_fee = EXCLUDED.service_fee,
			parking_fee = EXCLUDED.parking_fee,
			currency = EXCLUDED.currency,
			facilities = EXCLUDED.facilities,
			updated_at = NOW()
	`
	if _, err := tx.ExecContext(ctx, upsertStation,
		station.ID,
		station.Name,
		station.Address,
		station.Hours,
		station.Contact,
		station.Latitude,
		station.Longitude,
		station.Pricing.EnergyPerKWh,
		station.Pricing.ServiceFee,
		station.Pricing.ParkingFee,
		station.Pricing.Currency,
		strings.Join(station.Facilities, ","),
	); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM connectors WHERE station_id = $1`, station.ID); err != nil {
		return err
	}

	const insertConnector = `
		INSERT INTO connectors (station_id, id, position, charge_mode, power_kw, type, status, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
	`
	for i, c := range station.Connectors {
		if _, err := tx.ExecContext(ctx, insertConnector,
			station.ID, c.ID, i, string(c.ChargeMode), c.PowerKW, c.Type, string(c.Status),
		); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// SetConnectorStatus implements StatusWriter.
func (p *Postgres) SetConnectorStatus(ctx context.Context, siteID, gunID string, status models.ConnectorStatus) error {
	const query = `
		UPDATE connectors
		SET status = $3,
		    updated_at = NOW()
		WHERE station_id = $1 AND id = $2
	`
	result, err := p.db.ExecContext(ctx, query, siteID, gunID, string(status))
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrConnectorNotFound
	}
	return nil
}

func (p *Postgres) connectors(ctx context.Context, where string, args ...any) (map[string][]models.Connector, error) {
	query := `SELECT station_id, id, charge_mode, power_kw, type, status FROM connectors ` + where + ` ORDER BY station_id, position`

	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string][]models.Connector)
	for rows.Next() {
		var (
			stationID string
			c         models.Connector
			mode      string
			status    string
		)
		if err := rows.Scan(&stationID, &c.ID, &mode, &c.PowerKW, &c.Type, &status); err != nil {
			return nil, err
		}
		c.ChargeMode = models.ChargeMode(mode)
		c.Status = models.ConnectorStatus(status)
		out[stationID] = append(out[stationID], c)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanStation(row rowScanner) (models.Station, error) {
	var (
		s          models.Station
		facilities string
	)
	if err := row.Scan(
		&s.ID,
		&s.Name,
		&s.Address,
		&s.Hours,
		&s.Contact,
		&s.Latitude,
		&s.Longitude,
		&s.Pricing.EnergyPerKWh,
		&s.Pricing.ServiceFee,
		&s.Pricing.ParkingFee,
		&s.Pricing.Currency,
		&facilities,
	); err != nil {
		return models.Station{}, err
	}
	if facilities != "" {
		s.Facilities = strings.Split(facilities, ",")
	}
	return s, nil
}
