package geocode

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"

	"golang.org/x/sync/singleflight"
)

type cacheKey struct {
	lat, lon int64
}

type cacheEntry struct {
	place *Place
	err   error
}

// Cached memoizes another [Geocoder] by coordinate rounded to four
// decimal places (about 11 meters). Not-found results are cached too;
// other failures are retried on the next call. Concurrent misses on the
// same key share one lookup.
type Cached struct {
	next    Geocoder
	entries map[cacheKey]cacheEntry
	group   singleflight.Group
	mu      sync.RWMutex
}

// NewCached wraps next with a cache.
func NewCached(next Geocoder) *Cached {
	return &Cached{next: next, entries: map[cacheKey]cacheEntry{}}
}

// Reverse implements [Geocoder].
func (c *Cached) Reverse(ctx context.Context, coord Coordinate) (*Place, error) {
	key := cacheKey{
		lat: int64(math.Round(coord.Lat * 1e4)),
		lon: int64(math.Round(coord.Lon * 1e4)),
	}

	if e, ok := c.get(key); ok {
		return e.place, e.err
	}

	v, err, _ := c.group.Do(fmt.Sprintf("%d,%d", key.lat, key.lon), func() (any, error) {
		if e, ok := c.get(key); ok {
			return e.place, e.err
		}

		place, err := c.next.Reverse(ctx, coord)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return nil, err
		}

		c.mu.Lock()
		c.entries[key] = cacheEntry{place: place, err: err}
		c.mu.Unlock()

		return place, err
	})

	place, _ := v.(*Place)

	return place, err
}

func (c *Cached) get(key cacheKey) (cacheEntry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[key]

	return e, ok
}

// Len returns the number of cached coordinates.
func (c *Cached) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.entries)
}
