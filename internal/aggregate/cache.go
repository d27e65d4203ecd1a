package aggregate

import (
	"time"

	gocache "github.com/patrickmn/go-cache"

	"travelbot/internal/domain"
)

const (
	// DefaultWeatherTTL bounds how long current weather and forecast results
	// stay valid. Weather data is volatile, so the window is short.
	DefaultWeatherTTL = 10 * time.Minute
	// DefaultPOITTL bounds POI results. Attractions change slowly.
	DefaultPOITTL = 30 * time.Minute

	cacheCleanupInterval = 5 * time.Minute
)

// Cache stores the last successful normalized result per (kind, key).
// Entries expire per-kind; expired entries are dropped lazily on read and by
// the backing store's janitor. Empty result sets are never stored.
type Cache struct {
	store      *gocache.Cache
	weatherTTL time.Duration
	poiTTL     time.Duration
}

// NewCache creates a Cache with per-kind TTLs. Non-positive TTLs fall back to
// the defaults.
func NewCache(weatherTTL, poiTTL time.Duration) *Cache {
	if weatherTTL <= 0 {
		weatherTTL = DefaultWeatherTTL
	}
	if poiTTL <= 0 {
		poiTTL = DefaultPOITTL
	}
	return &Cache{
		store:      gocache.New(gocache.NoExpiration, cacheCleanupInterval),
		weatherTTL: weatherTTL,
		poiTTL:     poiTTL,
	}
}

// Get returns the cached records for the key, or false on a miss or an
// expired entry.
func (c *Cache) Get(kind domain.QueryKind, key string) ([]domain.Record, bool) {
	v, ok := c.store.Get(cacheKey(kind, key))
	if !ok {
		return nil, false
	}
	records, ok := v.([]domain.Record)
	if !ok || len(records) == 0 {
		return nil, false
	}
	return records, true
}

// Put overwrites the entry for the key. Empty result sets are dropped so the
// cache never serves failures.
func (c *Cache) Put(kind domain.QueryKind, key string, records []domain.Record) {
	if len(records) == 0 {
		return
	}
	c.store.Set(cacheKey(kind, key), records, c.ttl(kind))
}

func (c *Cache) ttl(kind domain.QueryKind) time.Duration {
	if kind == domain.KindPOI {
		return c.poiTTL
	}
	return c.weatherTTL
}

func cacheKey(kind domain.QueryKind, key string) string {
	return kind.String() + ":" + key
}
