package handler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

type cacheEntry struct {
	objects   ManagedObjectTree
	refreshed time.Time
}

// SensorCache holds each connection's enumerated object tree for up to
// SensorMapUpdatePeriod. A stale entry is re-enumerated synchronously on
// access; a failed enumeration keeps the old entry but reports the sensor
// unavailable, so the next access retries immediately.
type SensorCache struct {
	store Store
	clock Clock

	mu      sync.Mutex
	entries map[string]cacheEntry
}

func NewSensorCache(store Store, clock Clock) *SensorCache {
	return &SensorCache{
		store:   store,
		clock:   clock,
		entries: make(map[string]cacheEntry),
	}
}

// Lookup returns the interface map for one object, refreshing the
// connection's tree first when it is missing or stale. The refresh timestamp
// advances only on success.
func (c *SensorCache) Lookup(ctx context.Context, connection, path string) (InterfaceMap, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[connection]
	if !ok || c.clock.Now().Sub(entry.refreshed) > SensorMapUpdatePeriod {
		objects, err := c.store.ManagedObjects(ctx, connection)
		if err != nil {
			slog.Warn("failed to enumerate connection", "connection", connection, "err", err)
			return nil, fmt.Errorf("enumerate %s: %w", connection, ErrSensorUnavailable)
		}
		entry = cacheEntry{objects: objects, refreshed: c.clock.Now()}
		c.entries[connection] = entry
	}

	objects, ok := entry.objects[path]
	if !ok {
		return nil, fmt.Errorf("%s on %s: %w", path, connection, ErrObjectNotFound)
	}
	return objects, nil
}
