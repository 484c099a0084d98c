package handler

import (
	"context"
	"errors"
	"time"
)

// Backend interface names. Sensor objects expose a value interface and
// optionally one threshold interface per severity.
const (
	SensorValueInterface       = "xyz.openbmc_project.Sensor.Value"
	WarningThresholdInterface  = "xyz.openbmc_project.Sensor.Threshold.Warning"
	CriticalThresholdInterface = "xyz.openbmc_project.Sensor.Threshold.Critical"

	// ThresholdInterfacePrefix covers both threshold interfaces in
	// property-change events.
	ThresholdInterfacePrefix = "xyz.openbmc_project.Sensor.Threshold"
)

// PropertyMap holds the property values of one interface.
type PropertyMap map[string]any

// InterfaceMap maps interface name to properties for one object.
type InterfaceMap map[string]PropertyMap

// ManagedObjectTree maps object path to interfaces, as returned by a
// connection-wide enumeration.
type ManagedObjectTree map[string]InterfaceMap

// SensorSubTree maps each sensor object path to the connection hosting it.
type SensorSubTree map[string]string

// Store is the backend object store the handlers consult.
type Store interface {
	// SensorSubTree lists every sensor object path with its hosting
	// connection.
	SensorSubTree(ctx context.Context) (SensorSubTree, error)

	// ManagedObjects enumerates every object one connection exposes.
	ManagedObjects(ctx context.Context, connection string) (ManagedObjectTree, error)

	// SetProperty writes a single property value.
	SetProperty(ctx context.Context, connection, path, iface, property string, value any) error
}

// SELWriter appends entries to the system event log.
type SELWriter interface {
	AddEntry(ctx context.Context, message, path string, eventData []byte, assert bool, generatorID uint16) error
}

// FRUSource supplies encoded FRU device locator records for the repository.
type FRUSource interface {
	Count(ctx context.Context) (uint16, error)
	Record(ctx context.Context, index uint16) ([]byte, error)
}

// Clock abstracts time for the cache and the repository timestamps.
type Clock interface {
	Now() time.Time
}

// StoreEventType classifies a backend notification.
type StoreEventType int

const (
	// StoreEventInterfacesAdded reports a new object under the sensor
	// namespace.
	StoreEventInterfacesAdded StoreEventType = iota
	// StoreEventInterfacesRemoved reports an object leaving the sensor
	// namespace.
	StoreEventInterfacesRemoved
	// StoreEventPropertiesChanged reports changed property values on one
	// interface of one object.
	StoreEventPropertiesChanged
)

// StoreEvent is one backend notification delivered to the watcher.
type StoreEvent struct {
	Type      StoreEventType
	Path      string
	Interface string      // property changes only
	Changed   PropertyMap // property changes only
}

var (
	// ErrSensorUnavailable reports that backend enumeration failed; the
	// sensor may exist but no data could be fetched this time.
	ErrSensorUnavailable = errors.New("sensor data unavailable")

	// ErrUnknownSensor reports a sensor number outside the current topology.
	ErrUnknownSensor = errors.New("unknown sensor number")

	// ErrObjectNotFound reports a path missing from a connection's
	// enumerated tree.
	ErrObjectNotFound = errors.New("sensor object not found")
)

// Reading range defaults when the backend omits MinValue/MaxValue.
const (
	DefaultMaxReading = 127
	DefaultMinReading = -128
)

// SensorMapUpdatePeriod bounds how stale a connection's cached object tree
// may be when consulted.
const SensorMapUpdatePeriod = 2 * time.Second

// floatValue extracts a numeric property value. Backends deliver doubles for
// readings but integer types appear on some implementations.
func floatValue(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case uint32:
		return float64(n), true
	case int:
		return float64(n), true
	default:
		return 0, false
	}
}
