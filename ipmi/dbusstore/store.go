// Package dbusstore backs the handler interfaces with the system bus: the
// object mapper and sensor daemons on the read side, the IPMI logging
// service for SEL writes, and an exported Execute method on the request
// side.
package dbusstore

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/godbus/dbus/v5"

	"github.com/vb15s/intel-ipmi-oem/ipmi"
	"github.com/vb15s/intel-ipmi-oem/ipmi/handler"
)

const (
	mapperService   = "xyz.openbmc_project.ObjectMapper"
	mapperPath      = "/xyz/openbmc_project/object_mapper"
	mapperInterface = "xyz.openbmc_project.ObjectMapper"

	objectManagerInterface = "org.freedesktop.DBus.ObjectManager"
	propertiesInterface    = "org.freedesktop.DBus.Properties"

	// GetSubTree depth covering <category>/<name> under the sensor root.
	subTreeDepth int32 = 2
)

var subTreeInterfaces = []string{
	handler.SensorValueInterface,
	handler.WarningThresholdInterface,
	handler.CriticalThresholdInterface,
}

// Store implements handler.Store over a bus connection.
type Store struct {
	conn *dbus.Conn
}

// New connects to the system bus.
func New() (*Store, error) {
	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		return nil, fmt.Errorf("connect system bus: %w", err)
	}
	return &Store{conn: conn}, nil
}

// NewWithConn wraps an existing connection, as tests and the session bus
// need.
func NewWithConn(conn *dbus.Conn) *Store {
	return &Store{conn: conn}
}

func (s *Store) Close() error {
	return s.conn.Close()
}

// Conn exposes the underlying connection for signal subscription and the
// Execute export, which share it.
func (s *Store) Conn() *dbus.Conn {
	return s.conn
}

// SensorSubTree queries the object mapper for every sensor object. Objects
// hosted by several connections keep the lexicographically first one, so
// repeated enumerations are stable.
func (s *Store) SensorSubTree(ctx context.Context) (handler.SensorSubTree, error) {
	root := strings.TrimSuffix(ipmi.SensorPathPrefix, "/")
	var subtree map[string]map[string][]string
	err := s.conn.Object(mapperService, mapperPath).
		CallWithContext(ctx, mapperInterface+".GetSubTree", 0, root, subTreeDepth, subTreeInterfaces).
		Store(&subtree)
	if err != nil {
		return nil, fmt.Errorf("mapper GetSubTree: %w", err)
	}

	result := make(handler.SensorSubTree, len(subtree))
	for path, connections := range subtree {
		names := make([]string, 0, len(connections))
		for name := range connections {
			names = append(names, name)
		}
		if len(names) == 0 {
			continue
		}
		sort.Strings(names)
		result[path] = names[0]
	}
	return result, nil
}

// ManagedObjects enumerates one connection's objects with all their
// properties.
func (s *Store) ManagedObjects(ctx context.Context, connection string) (handler.ManagedObjectTree, error) {
	var objects map[dbus.ObjectPath]map[string]map[string]dbus.Variant
	err := s.conn.Object(connection, "/").
		CallWithContext(ctx, objectManagerInterface+".GetManagedObjects", 0).
		Store(&objects)
	if err != nil {
		return nil, fmt.Errorf("GetManagedObjects on %s: %w", connection, err)
	}

	tree := make(handler.ManagedObjectTree, len(objects))
	for path, interfaces := range objects {
		ifaceMap := make(handler.InterfaceMap, len(interfaces))
		for name, properties := range interfaces {
			propMap := make(handler.PropertyMap, len(properties))
			for property, variant := range properties {
				propMap[property] = variant.Value()
			}
			ifaceMap[name] = propMap
		}
		tree[string(path)] = ifaceMap
	}
	return tree, nil
}

// SetProperty writes one property on one object.
func (s *Store) SetProperty(ctx context.Context, connection, path, iface, property string, value any) error {
	call := s.conn.Object(connection, dbus.ObjectPath(path)).
		CallWithContext(ctx, propertiesInterface+".Set", 0, iface, property, dbus.MakeVariant(value))
	if call.Err != nil {
		return fmt.Errorf("set %s.%s on %s: %w", iface, property, path, call.Err)
	}
	return nil
}
