package directory

import (
	"strings"

	"github.com/AmanYize/ev-charge/backend/services/charging-service/internal/models"
)

// Filter narrows a station listing. Zero values match everything.
type Filter struct {
	Query        string
	ChargeMode   models.ChargeMode
	MinPowerKW   float64
	Availability models.ConnectorStatus
}

// Match reports whether station satisfies every populated criterion. Connector
// criteria match when any connector satisfies them.
func (f Filter) Match(station models.Station) bool {
	if q := strings.ToLower(strings.TrimSpace(f.Query)); q != "" {
		if !strings.Contains(strings.ToLower(station.Name), q) &&
			!strings.Contains(strings.ToLower(station.Address), q) {
			return false
		}
	}
	if f.ChargeMode != "" && !anyConnector(station, func(c models.Connector) bool { return c.ChargeMode == f.ChargeMode }) {
		return false
	}
	if f.MinPowerKW > 0 && !anyConnector(station, func(c models.Connector) bool { return c.PowerKW >= f.MinPowerKW }) {
		return false
	}
	if f.Availability != "" && !anyConnector(station, func(c models.Connector) bool { return c.Status == f.Availability }) {
		return false
	}
	return true
}

func anyConnector(station models.Station, pred func(models.Connector) bool) bool {
	for _, c := range station.Connectors {
		if pred(c) {
			return true
		}
	}
	return false
}

// Apply returns the stations matching f, preserving order.
func Apply(stations []models.Station, f Filter) []models.Station {
	out := make([]models.Station, 0, len(stations))
	for _, s := range stations {
		if f.Match(s) {
			out = append(out, s)
		}
	}
	return out
}
