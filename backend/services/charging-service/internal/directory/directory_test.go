package directory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AmanYize/ev-charge/backend/services/charging-service/internal/models"
)

func TestMemoryLookups(t *testing.T) {
	ctx := context.Background()
	dir := NewMemory(DemoStations()...)

	station, err := dir.Station(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "Station A - SwiftCharge", station.Name)
	assert.Equal(t, 15.0, station.Pricing.EnergyPerKWh)

	connector, err := dir.Connector(ctx, "1", "DC-001")
	require.NoError(t, err)
	assert.True(t, connector.Available())

	_, err = dir.Station(ctx, "404")
	assert.ErrorIs(t, err, ErrStationNotFound)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = dir.Connector(ctx, "1", "XX-999")
	assert.ErrorIs(t, err, ErrConnectorNotFound)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, dir.SetConnectorStatus(context.Background(), "1", "DC-001", models.ConnectorOccupied))
	connector, err = dir.Connector(ctx, "1", "DC-001")
	require.NoError(t, err)
	assert.False(t, connector.Available())
}

func TestMemoryReturnsCopies(t *testing.T) {
	ctx := context.Background()
	dir := NewMemory(DemoStations()...)

	station, err := dir.Station(ctx, "1")
	require.NoError(t, err)
	station.Connectors[0].Status = models.ConnectorMaintenance

	again, err := dir.Station(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, models.ConnectorAvailable, again.Connectors[0].Status)
}

func TestListFilters(t *testing.T) {
	ctx := context.Background()
	dir := NewMemory(DemoStations()...)

	ids := func(stations []models.Station) []string {
		out := make([]string, 0, len(stations))
		for _, s := range stations {
			out = append(out, s.ID)
		}
		return out
	}

	cases := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{name: "all", filter: Filter{}, want: []string{"1", "2", "3"}},
		{name: "search name", filter: Filter{Query: "powerup"}, want: []string{"2"}},
		{name: "search address", filter: Filter{Query: "BOLE"}, want: []string{"1", "2"}},
		{name: "dc", filter: Filter{ChargeMode: models.ChargeModeDC}, want: []string{"1", "2", "3"}},
		{name: "min power", filter: Filter{MinPowerKW: 60}, want: []string{"2"}},
		{name: "available", filter: Filter{Availability: models.ConnectorAvailable}, want: []string{"1", "2"}},
		{name: "maintenance", filter: Filter{Availability: models.ConnectorMaintenance}, want: []string{"3"}},
		{name: "combined", filter: Filter{Query: "addis", ChargeMode: models.ChargeModeAC, MinPowerKW: 20, Availability: models.ConnectorAvailable}, want: []string{"1", "2"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := dir.List(ctx, tc.filter)
			require.NoError(t, err)
			assert.Equal(t, tc.want, ids(got))
		})
	}
}

type countingDirectory struct {
	*Memory
	mu    sync.Mutex
	calls int
}

func (c *countingDirectory) Station(ctx context.Context, siteID string) (models.Station, error) {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()
	return c.Memory.Station(ctx, siteID)
}

func TestCachedServesRepeatsAndExpires(t *testing.T) {
	ctx := context.Background()
	backing := &countingDirectory{Memory: NewMemory(DemoStations()...)}
	cached, err := NewCached(backing, 8, time.Minute)
	require.NoError(t, err)

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	cached.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		_, err := cached.Connector(ctx, "2", "DC-002")
		require.NoError(t, err)
	}
	assert.Equal(t, 1, backing.calls)

	now = now.Add(2 * time.Minute)
	_, err = cached.Station(ctx, "2")
	require.NoError(t, err)
	assert.Equal(t, 2, backing.calls)

	cached.Invalidate("2")
	_, err = cached.Station(ctx, "2")
	require.NoError(t, err)
	assert.Equal(t, 3, backing.calls)

	_, err = cached.Station(ctx, "missing")
	assert.ErrorIs(t, err, ErrStationNotFound)
	_, err = cached.Station(ctx, "missing")
	assert.ErrorIs(t, err, ErrStationNotFound)
	assert.Equal(t, 5, backing.calls, "misses are not cached")
}

type readOnly struct{ Directory }

func TestCachedWritesStatusThrough(t *testing.T) {
	ctx := context.Background()
	backing := &countingDirectory{Memory: NewMemory(DemoStations()...)}
	cached, err := NewCached(backing, 8, time.Hour)
	require.NoError(t, err)

	c, err := cached.Connector(ctx, "1", "DC-001")
	require.NoError(t, err)
	require.True(t, c.Available())

	require.NoError(t, cached.SetConnectorStatus(ctx, "1", "DC-001", models.ConnectorMaintenance))
	c, err = cached.Connector(ctx, "1", "DC-001")
	require.NoError(t, err)
	assert.Equal(t, models.ConnectorMaintenance, c.Status)
	assert.Equal(t, 2, backing.calls)

	assert.ErrorIs(t, cached.SetConnectorStatus(ctx, "1", "NOPE", models.ConnectorOccupied), ErrConnectorNotFound)

	ro, err := NewCached(readOnly{NewMemory()}, 8, time.Hour)
	require.NoError(t, err)
	assert.ErrorIs(t, ro.SetConnectorStatus(ctx, "1", "DC-001", models.ConnectorOccupied), ErrReadOnly)
}
