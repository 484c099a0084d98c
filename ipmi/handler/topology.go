package handler

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// Topology indexes sensor numbers to (connection, path) pairs. The index is
// the sorted order of object paths, so sensor numbers are stable between
// invalidations and SDR record enumeration follows the same order. Any
// topology change clears the whole index rather than patching it, keeping
// record numbering consistent for the next read.
type Topology struct {
	store Store
	clock Clock

	mu          sync.Mutex
	paths       []string
	connections map[string]string
	lastAdd     time.Time
	lastRemove  time.Time
}

func NewTopology(store Store, clock Clock) *Topology {
	return &Topology{
		store: store,
		clock: clock,
	}
}

// rebuildLocked enumerates the sensor namespace when the index is empty.
func (t *Topology) rebuildLocked(ctx context.Context) error {
	if len(t.paths) != 0 {
		return nil
	}
	subtree, err := t.store.SensorSubTree(ctx)
	if err != nil {
		return fmt.Errorf("sensor subtree: %w", ErrSensorUnavailable)
	}
	paths := make([]string, 0, len(subtree))
	connections := make(map[string]string, len(subtree))
	for path, connection := range subtree {
		paths = append(paths, path)
		connections[path] = connection
	}
	sort.Strings(paths)
	t.paths = paths
	t.connections = connections
	return nil
}

// Count reports how many sensors the index holds, rebuilding it if needed.
func (t *Topology) Count(ctx context.Context) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.rebuildLocked(ctx); err != nil {
		return 0, err
	}
	return len(t.paths), nil
}

// At resolves a record index to its (connection, path) pair.
func (t *Topology) At(ctx context.Context, index int) (string, string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.rebuildLocked(ctx); err != nil {
		return "", "", err
	}
	if index < 0 || index >= len(t.paths) {
		return "", "", fmt.Errorf("sensor %d of %d: %w", index, len(t.paths), ErrUnknownSensor)
	}
	path := t.paths[index]
	return t.connections[path], path, nil
}

// Resolve maps an 8-bit sensor number to its (connection, path) pair.
func (t *Topology) Resolve(ctx context.Context, sensorNumber byte) (string, string, error) {
	return t.At(ctx, int(sensorNumber))
}

// Invalidate clears the index after a topology change and stamps the
// matching repository timestamp.
func (t *Topology) Invalidate(added bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.paths = nil
	t.connections = nil
	if added {
		t.lastAdd = t.clock.Now()
	} else {
		t.lastRemove = t.clock.Now()
	}
}

// LastAdd reports when a sensor was last added, zero if never.
func (t *Topology) LastAdd() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastAdd
}

// LastRemove reports when a sensor was last removed, zero if never.
func (t *Topology) LastRemove() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastRemove
}
