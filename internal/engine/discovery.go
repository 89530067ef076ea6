package engine

import (
	"sync"
	"time"
)

const (
	discoveryCacheCap     = 200
	discoveryCacheEvictAge = 300 * time.Second
)

// discoveryEntry is one UI-only discovery cache record (spec.md §3).
type discoveryEntry struct {
	RSSIMax  int
	Name     string
	Major    *int
	Minor    *int
	LastSeen time.Time
	Sources  map[string]int // sat_id -> rssi
}

// discoveryCache mirrors original_source's discovered_devices merge
// semantics (also informed by other_examples/.../storskegg-flock-you-c6
// __ble_monitor-aggregator.go.go's AddOrUpdate pattern): keep the
// existing name if the new sample carries none, keep the max RSSI seen,
// refresh last_seen. Capped at 200 entries; evicts entries older than
// 300s when the cap would otherwise be exceeded.
type discoveryCache struct {
	mu      sync.Mutex
	entries map[string]*discoveryEntry
}

func newDiscoveryCache() *discoveryCache {
	return &discoveryCache{entries: map[string]*discoveryEntry{}}
}

func (c *discoveryCache) update(idKey, satID string, rssi int, extra Extra, now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[idKey]
	if !ok {
		if len(c.entries) >= discoveryCacheCap {
			c.evictStale(now)
		}
		if len(c.entries) >= discoveryCacheCap {
			c.evictOldest()
		}
		e = &discoveryEntry{Sources: map[string]int{}}
		c.entries[idKey] = e
	}

	if extra.Name != "" {
		e.Name = extra.Name
	}
	if extra.Major != nil {
		e.Major = extra.Major
	}
	if extra.Minor != nil {
		e.Minor = extra.Minor
	}
	e.Sources[satID] = rssi
	if rssi > e.RSSIMax {
		e.RSSIMax = rssi
	}
	e.LastSeen = now
}

// evictStale removes entries older than the 300s eviction window. Must
// be called with mu held.
func (c *discoveryCache) evictStale(now time.Time) {
	for k, e := range c.entries {
		if now.Sub(e.LastSeen) >= discoveryCacheEvictAge {
			delete(c.entries, k)
		}
	}
}

// evictOldest drops the single oldest entry when eviction-by-age was
// insufficient to make room. Must be called with mu held.
func (c *discoveryCache) evictOldest() {
	var oldestKey string
	var oldestTime time.Time
	first := true
	for k, e := range c.entries {
		if first || e.LastSeen.Before(oldestTime) {
			oldestKey, oldestTime = k, e.LastSeen
			first = false
		}
	}
	if oldestKey != "" {
		delete(c.entries, oldestKey)
	}
}

// Len returns the current discovery cache size.
func (c *discoveryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// DiscoveryCacheSize exposes the cache size for status reporting.
func (e *Engine) DiscoveryCacheSize() int {
	return e.discovery.Len()
}
