package directory

import (
	"context"
	"sort"
	"sync"

	"github.com/AmanYize/ev-charge/backend/services/charging-service/internal/models"
)

// Memory is an in-process station catalog.
type Memory struct {
	mu       sync.RWMutex
	stations map[string]models.Station
}

// NewMemory returns a catalog holding stations.
func NewMemory(stations ...models.Station) *Memory {
	m := &Memory{stations: make(map[string]models.Station, len(stations))}
	for _, s := range stations {
		m.stations[s.ID] = s
	}
	return m
}

// Station implements Directory.
func (m *Memory) Station(_ context.Context, siteID string) (models.Station, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.stations[siteID]
	if !ok {
		return models.Station{}, ErrStationNotFound
	}
	return cloneStation(s), nil
}

// Connector implements Directory.
func (m *Memory) Connector(ctx context.Context, siteID, gunID string) (models.Connector, error) {
	return connectorOf(ctx, m, siteID, gunID)
}

// List implements Directory.
func (m *Memory) List(_ context.Context, filter Filter) ([]models.Station, error) {
	m.mu.RLock()
	all := make([]models.Station, 0, len(m.stations))
	for _, s := range m.stations {
		all = append(all, cloneStation(s))
	}
	m.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	return Apply(all, filter), nil
}

// SetConnectorStatus implements StatusWriter.
func (m *Memory) SetConnectorStatus(_ context.Context, siteID, gunID string, status models.ConnectorStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.stations[siteID]
	if !ok {
		return ErrStationNotFound
	}
	for i := range s.Connectors {
		if s.Connectors[i].ID == gunID {
			s.Connectors[i].Status = status
			return nil
		}
	}
	return ErrConnectorNotFound
}

func cloneStation(s models.Station) models.Station {
	s.Connectors = append([]models.Connector(nil), s.Connectors...)
	s.Facilities = append([]string(nil), s.Facilities...)
	return s
}
