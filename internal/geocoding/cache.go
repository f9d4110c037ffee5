package geocoding

import (
	"container/list"
	"context"
	"strings"
	"sync"

	"github.com/i474232898/coastal-threat-monitor/internal/coastal"
)

// CachedGeocoder wraps a Geocoder with an in-memory LRU cache.
// Place names rarely move, so entries never expire.
type CachedGeocoder struct {
	inner coastal.Geocoder

	mu         sync.Mutex
	maxEntries int
	order      *list.List // front is most recently used
	entries    map[string]*list.Element
}

type cacheEntry struct {
	key    string
	coords coastal.Coordinates
}

// NewCachedGeocoder creates a cache decorator around a geocoder.
func NewCachedGeocoder(inner coastal.Geocoder, maxEntries int) *CachedGeocoder {
	if maxEntries <= 0 {
		maxEntries = 256
	}
	return &CachedGeocoder{
		inner:      inner,
		maxEntries: maxEntries,
		order:      list.New(),
		entries:    make(map[string]*list.Element),
	}
}

func (c *CachedGeocoder) Geocode(ctx context.Context, city, country string) (coastal.Coordinates, error) {
	key := strings.ToLower(strings.TrimSpace(city)) + "|" + strings.ToLower(strings.TrimSpace(country))

	c.mu.Lock()
	if el, ok := c.entries[key]; ok {
		c.order.MoveToFront(el)
		coords := el.Value.(*cacheEntry).coords
		c.mu.Unlock()
		return coords, nil
	}
	c.mu.Unlock()

	coords, err := c.inner.Geocode(ctx, city, country)
	if err != nil {
		return coords, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.entries[key]; ok {
		c.order.MoveToFront(el)
		return coords, nil
	}
	c.entries[key] = c.order.PushFront(&cacheEntry{key: key, coords: coords})
	if c.order.Len() > c.maxEntries {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*cacheEntry).key)
	}
	return coords, nil
}
