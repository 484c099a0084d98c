//go:build integration

// Package helpers assembles a complete bridge stack for integration tests:
// an in-memory sensor store, the real command handler and router, and a
// real WebSocket server on a free port.
package helpers

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/vb15s/intel-ipmi-oem/ipmi"
	"github.com/vb15s/intel-ipmi-oem/ipmi/frufile"
	"github.com/vb15s/intel-ipmi-oem/ipmi/handler"
	"github.com/vb15s/intel-ipmi-oem/server"
)

// PropertyWrite records one SetProperty call against the fake store.
type PropertyWrite struct {
	Connection string
	Path       string
	Interface  string
	Property   string
	Value      any
}

// FakeStore is an in-memory object store standing in for the D-Bus backend.
type FakeStore struct {
	mu      sync.Mutex
	subtree handler.SensorSubTree
	objects map[string]handler.ManagedObjectTree
	writes  []PropertyWrite
}

func NewFakeStore() *FakeStore {
	return &FakeStore{
		subtree: handler.SensorSubTree{},
		objects: map[string]handler.ManagedObjectTree{},
	}
}

func (s *FakeStore) SensorSubTree(ctx context.Context) (handler.SensorSubTree, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	subtree := make(handler.SensorSubTree, len(s.subtree))
	for path, connection := range s.subtree {
		subtree[path] = connection
	}
	return subtree, nil
}

func (s *FakeStore) ManagedObjects(ctx context.Context, connection string) (handler.ManagedObjectTree, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	// copied so AddSensor cannot race with a handler holding the tree
	tree := make(handler.ManagedObjectTree, len(s.objects[connection]))
	for path, objects := range s.objects[connection] {
		tree[path] = objects
	}
	return tree, nil
}

func (s *FakeStore) SetProperty(ctx context.Context, connection, path, iface, property string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writes = append(s.writes, PropertyWrite{connection, path, iface, property, value})
	return nil
}

// AddSensor registers a sensor object under a connection. The handler sees
// it on the next topology rebuild.
func (s *FakeStore) AddSensor(connection, path string, objects handler.InterfaceMap) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subtree[path] = connection
	tree, ok := s.objects[connection]
	if !ok {
		tree = handler.ManagedObjectTree{}
		s.objects[connection] = tree
	}
	tree[path] = objects
}

// RemoveSensor drops a sensor object from the store.
func (s *FakeStore) RemoveSensor(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	connection, ok := s.subtree[path]
	if !ok {
		return
	}
	delete(s.subtree, path)
	delete(s.objects[connection], path)
}

// Writes returns a copy of the recorded property writes.
func (s *FakeStore) Writes() []PropertyWrite {
	s.mu.Lock()
	defer s.mu.Unlock()
	writes := make([]PropertyWrite, len(s.writes))
	copy(writes, s.writes)
	return writes
}

// SELEntry records one appended event log entry.
type SELEntry struct {
	Message     string
	Path        string
	EventData   []byte
	Assert      bool
	GeneratorID uint16
}

// FakeSELWriter records event log appends instead of forwarding them.
type FakeSELWriter struct {
	mu      sync.Mutex
	entries []SELEntry
}

func (w *FakeSELWriter) AddEntry(ctx context.Context, message, path string, eventData []byte, assert bool, generatorID uint16) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.entries = append(w.entries, SELEntry{message, path, append([]byte(nil), eventData...), assert, generatorID})
	return nil
}

// Entries returns a copy of the recorded event log entries.
func (w *FakeSELWriter) Entries() []SELEntry {
	w.mu.Lock()
	defer w.mu.Unlock()
	entries := make([]SELEntry, len(w.entries))
	copy(entries, w.entries)
	return entries
}

// ThresholdSensorObjects builds a sensor with warning and critical
// thresholds on a 0..100 range.
func ThresholdSensorObjects(value float64) handler.InterfaceMap {
	return handler.InterfaceMap{
		handler.SensorValueInterface: handler.PropertyMap{
			"Value":    value,
			"MinValue": 0.0,
			"MaxValue": 100.0,
		},
		handler.WarningThresholdInterface: handler.PropertyMap{
			"WarningHigh":      80.0,
			"WarningLow":       5.0,
			"WarningAlarmHigh": false,
			"WarningAlarmLow":  false,
		},
		handler.CriticalThresholdInterface: handler.PropertyMap{
			"CriticalHigh":      90.0,
			"CriticalLow":       2.0,
			"CriticalAlarmHigh": false,
			"CriticalAlarmLow":  false,
		},
	}
}

// ValueSensorObjects builds a sensor exposing only a value on the given
// range.
func ValueSensorObjects(value, min, max float64) handler.InterfaceMap {
	return handler.InterfaceMap{
		handler.SensorValueInterface: handler.PropertyMap{
			"Value":    value,
			"MinValue": min,
			"MaxValue": max,
		},
	}
}

// TestServer manages the stack under test.
type TestServer struct {
	Store    *FakeStore
	SEL      *FakeSELWriter
	FRU      *frufile.Source
	Handler  *handler.Handler
	Router   *ipmi.Router
	WSServer *server.WebSocketServer
	Port     int

	events  chan handler.StoreEvent
	mu      sync.Mutex
	running bool
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewTestServer prepares a stack on a free port. Sensors and FRU fixtures
// are added to the returned stores before Start.
func NewTestServer() (*TestServer, error) {
	port, err := findFreePort()
	if err != nil {
		return nil, fmt.Errorf("no free port available: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &TestServer{
		Store:  NewFakeStore(),
		SEL:    &FakeSELWriter{},
		FRU:    frufile.NewSource(),
		Port:   port,
		events: make(chan handler.StoreEvent, 16),
		ctx:    ctx,
		cancel: cancel,
	}, nil
}

// SetFRUFixture loads FRU device locators from a JSON file.
func (ts *TestServer) SetFRUFixture(filename string) error {
	return ts.FRU.LoadFromFile(filename)
}

// Start brings up the handler, the router and the WebSocket bridge, and
// waits until the listener is bound.
func (ts *TestServer) Start() error {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	if ts.running {
		return fmt.Errorf("server is already running")
	}

	ts.Handler = handler.NewHandler(ts.Store, ts.SEL, ts.FRU, nil)
	ts.Handler.StartWatcher(ts.ctx, ts.events)

	ts.Router = ipmi.NewRouter()
	ts.Handler.Register(ts.Router)

	addr := fmt.Sprintf("localhost:%d", ts.Port)
	ws, err := server.NewWebSocketServer(ts.ctx, addr, ts.Router, ts.Handler)
	if err != nil {
		return fmt.Errorf("creating WebSocket server: %v", err)
	}
	ts.WSServer = ws

	ready := make(chan struct{})
	go func() {
		if err := ws.Start(server.StartOptions{Ready: ready}); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fmt.Printf("WebSocket server failed: %v\n", err)
		}
	}()

	select {
	case <-ready:
		ts.running = true
		return nil
	case <-time.After(10 * time.Second):
		return fmt.Errorf("server startup timed out")
	}
}

// Stop shuts the stack down. Calling it twice is safe.
func (ts *TestServer) Stop() error {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	if !ts.running {
		return nil
	}

	var errs []error

	if ts.WSServer != nil {
		if err := ts.WSServer.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("stopping WebSocket server: %v", err))
		}
	}

	if ts.Handler != nil {
		if err := ts.Handler.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing handler: %v", err))
		}
	}

	ts.cancel()
	ts.running = false

	if len(errs) > 0 {
		return fmt.Errorf("errors during shutdown: %v", errs)
	}
	return nil
}

// PushStoreEvent injects a backend event into the running watcher.
func (ts *TestServer) PushStoreEvent(ev handler.StoreEvent) {
	ts.events <- ev
}

// GetWebSocketURL returns the bridge endpoint URL.
func (ts *TestServer) GetWebSocketURL() string {
	return fmt.Sprintf("ws://localhost:%d/ws", ts.Port)
}

// IsRunning reports whether the server is up.
func (ts *TestServer) IsRunning() bool {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return ts.running
}

// findFreePort picks a port the test server can bind.
func findFreePort() (int, error) {
	addr, err := net.ResolveTCPAddr("tcp", "localhost:0")
	if err != nil {
		return 0, err
	}

	l, err := net.ListenTCP("tcp", addr)
	if err != nil {
		return 0, err
	}
	defer l.Close()

	return l.Addr().(*net.TCPAddr).Port, nil
}
