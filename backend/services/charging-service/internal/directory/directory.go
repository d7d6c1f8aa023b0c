package directory

import (
	"context"
	"errors"
	"fmt"

	"github.com/AmanYize/ev-charge/backend/services/charging-service/internal/models"
)

var (
	// ErrNotFound is wrapped by every lookup miss.
	ErrNotFound = errors.New("directory: not found")
	// ErrStationNotFound reports an unknown site id.
	ErrStationNotFound = fmt.Errorf("%w: station", ErrNotFound)
	// ErrConnectorNotFound reports an unknown gun id at a known site.
	ErrConnectorNotFound = fmt.Errorf("%w: connector", ErrNotFound)
)

// Directory resolves stations and their connectors.
type Directory interface {
	Station(ctx context.Context, siteID string) (models.Station, error)
	Connector(ctx context.Context, siteID, gunID string) (models.Connector, error)
	List(ctx context.Context, filter Filter) ([]models.Station, error)
}

// StatusWriter records operator-reported connector status.
type StatusWriter interface {
	SetConnectorStatus(ctx context.Context, siteID, gunID string, status models.ConnectorStatus) error
}

// ErrReadOnly is returned when the underlying catalog cannot record status.
var ErrReadOnly = errors.New("directory: read-only catalog")

// connectorOf resolves a connector through a station lookup.
func connectorOf(ctx context.Context, d interface {
	Station(ctx context.Context, siteID string) (models.Station, error)
}, siteID, gunID string) (models.Connector, error) {
	station, err := d.Station(ctx, siteID)
	if err != nil {
		return models.Connector{}, err
	}
	connector, ok := station.Connector(gunID)
	if !ok {
		return models.Connector{}, ErrConnectorNotFound
	}
	return connector, nil
}
