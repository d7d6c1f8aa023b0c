package directory

import (
	"context"
	"time"

	lru "github.com/hashicorp/golang-lru"

	"github.com/AmanYize/ev-charge/backend/services/charging-service/internal/metrics"
	"github.com/AmanYize/ev-charge/backend/services/charging-service/internal/models"
)

type cacheEntry struct {
	station models.Station
	expires time.Time
}

// Cached keeps recently resolved stations in an LRU. Entries expire after ttl
// so connector status changes reach callers.
type Cached struct {
	next  Directory
	cache *lru.Cache
	ttl   time.Duration
	now   func() time.Time
}

// NewCached wraps next with an LRU of size entries.
func NewCached(next Directory, size int, ttl time.Duration) (*Cached, error) {
	if size <= 0 {
		size = 128
	}
	cache, err := lru.New(size)
	if err != nil {
		return nil, err
	}
	return &Cached{next: next, cache: cache, ttl: ttl, now: time.Now}, nil
}

// Station implements Directory.
func (c *Cached) Station(ctx context.Context, siteID string) (models.Station, error) {
	if v, ok := c.cache.Get(siteID); ok {
		entry := v.(cacheEntry)
		if c.ttl <= 0 || c.now().Before(entry.expires) {
			metrics.IncDirectoryLookup(metrics.LookupHit)
			return cloneStation(entry.station), nil
		}
		c.cache.Remove(siteID)
	}
	metrics.IncDirectoryLookup(metrics.LookupMiss)

	station, err := c.next.Station(ctx, siteID)
	if err != nil {
		return models.Station{}, err
	}
	c.cache.Add(siteID, cacheEntry{station: cloneStation(station), expires: c.now().Add(c.ttl)})
	return station, nil
}

// Connector implements Directory.
func (c *Cached) Connector(ctx context.Context, siteID, gunID string) (models.Connector, error) {
	return connectorOf(ctx, c, siteID, gunID)
}

// List implements Directory. Listings are not cached.
func (c *Cached) List(ctx context.Context, filter Filter) ([]models.Station, error) {
	return c.next.List(ctx, filter)
}

// SetConnectorStatus writes through to the wrapped catalog and drops the
// cached station so the next lookup sees the change.
func (c *Cached) SetConnectorStatus(ctx context.Context, siteID, gunID string, status models.ConnectorStatus) error {
	w, ok := c.next.(StatusWriter)
	if !ok {
		return ErrReadOnly
	}
	if err := w.SetConnectorStatus(ctx, siteID, gunID, status); err != nil {
		return err
	}
	c.Invalidate(siteID)
	return nil
}

// Invalidate drops siteID from the cache.
func (c *Cached) Invalidate(siteID string) {
	c.cache.Remove(siteID)
}
