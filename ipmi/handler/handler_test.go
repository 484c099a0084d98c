package handler

import (
	"context"
	"sync"
	"time"
)

// mockClock is a settable Clock for cache and timestamp tests.
type mockClock struct {
	mu  sync.Mutex
	now time.Time
}

func newMockClock() *mockClock {
	return &mockClock{now: time.Unix(1700000000, 0)}
}

func (c *mockClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *mockClock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type propertyWrite struct {
	connection string
	path       string
	iface      string
	property   string
	value      any
}

// mockStore is an in-memory Store implementation.
type mockStore struct {
	mu           sync.Mutex
	subtree      SensorSubTree
	objects      map[string]ManagedObjectTree
	subtreeErr   error
	objectsErr   error
	setErr       error
	subtreeCalls int
	objectCalls  int
	writes       []propertyWrite
}

func newMockStore() *mockStore {
	return &mockStore{
		subtree: SensorSubTree{},
		objects: map[string]ManagedObjectTree{},
	}
}

func (s *mockStore) SensorSubTree(ctx context.Context) (SensorSubTree, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subtreeCalls++
	if s.subtreeErr != nil {
		return nil, s.subtreeErr
	}
	return s.subtree, nil
}

func (s *mockStore) ManagedObjects(ctx context.Context, connection string) (ManagedObjectTree, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objectCalls++
	if s.objectsErr != nil {
		return nil, s.objectsErr
	}
	return s.objects[connection], nil
}

func (s *mockStore) SetProperty(ctx context.Context, connection, path, iface, property string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.setErr != nil {
		return s.setErr
	}
	s.writes = append(s.writes, propertyWrite{connection, path, iface, property, value})
	return nil
}

func (s *mockStore) addSensor(connection, path string, objects InterfaceMap) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subtree[path] = connection
	tree, ok := s.objects[connection]
	if !ok {
		tree = ManagedObjectTree{}
		s.objects[connection] = tree
	}
	tree[path] = objects
}

type selEntry struct {
	message     string
	path        string
	eventData   []byte
	assert      bool
	generatorID uint16
}

// mockSELWriter records added entries.
type mockSELWriter struct {
	mu      sync.Mutex
	entries []selEntry
	err     error
}

func (w *mockSELWriter) AddEntry(ctx context.Context, message, path string, eventData []byte, assert bool, generatorID uint16) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.entries = append(w.entries, selEntry{message, path, append([]byte(nil), eventData...), assert, generatorID})
	return nil
}

func (w *mockSELWriter) added() []selEntry {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.entries
}

// mockFRUSource serves a fixed list of encoded locator records.
type mockFRUSource struct {
	records   [][]byte
	countErr  error
	recordErr error
}

func (f *mockFRUSource) Count(ctx context.Context) (uint16, error) {
	if f.countErr != nil {
		return 0, f.countErr
	}
	return uint16(len(f.records)), nil
}

func (f *mockFRUSource) Record(ctx context.Context, index uint16) ([]byte, error) {
	if f.recordErr != nil {
		return nil, f.recordErr
	}
	if int(index) >= len(f.records) {
		return nil, ErrObjectNotFound
	}
	return f.records[index], nil
}

// testEnv bundles a handler with its mock collaborators.
type testEnv struct {
	handler *Handler
	store   *mockStore
	sel     *mockSELWriter
	fru     *mockFRUSource
	clock   *mockClock
}

func newTestEnv() *testEnv {
	store := newMockStore()
	sel := &mockSELWriter{}
	fru := &mockFRUSource{}
	clock := newMockClock()
	return &testEnv{
		handler: NewHandler(store, sel, fru, clock),
		store:   store,
		sel:     sel,
		fru:     fru,
		clock:   clock,
	}
}

// valueSensor builds a sensor exposing only the value interface.
func valueSensor(min, max, value float64) InterfaceMap {
	return InterfaceMap{
		SensorValueInterface: PropertyMap{
			"Value":    value,
			"MinValue": min,
			"MaxValue": max,
		},
	}
}
