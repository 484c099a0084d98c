package dbusstore

import (
	"context"
	"fmt"

	"github.com/godbus/dbus/v5"

	"github.com/vb15s/intel-ipmi-oem/ipmi"
	"github.com/vb15s/intel-ipmi-oem/ipmi/handler"
)

// Signals subscribes to sensor topology and threshold change signals and
// converts them to store events. The returned channel closes when the
// context is canceled.
func (s *Store) Signals(ctx context.Context) (<-chan handler.StoreEvent, error) {
	matches := [][]dbus.MatchOption{
		{
			dbus.WithMatchInterface(objectManagerInterface),
			dbus.WithMatchMember("InterfacesAdded"),
			dbus.WithMatchOption("arg0path", ipmi.SensorPathPrefix),
		},
		{
			dbus.WithMatchInterface(objectManagerInterface),
			dbus.WithMatchMember("InterfacesRemoved"),
			dbus.WithMatchOption("arg0path", ipmi.SensorPathPrefix),
		},
		{
			dbus.WithMatchInterface(propertiesInterface),
			dbus.WithMatchMember("PropertiesChanged"),
			dbus.WithMatchArg0Namespace(handler.ThresholdInterfacePrefix),
		},
	}
	for _, match := range matches {
		if err := s.conn.AddMatchSignal(match...); err != nil {
			return nil, fmt.Errorf("add signal match: %w", err)
		}
	}

	signals := make(chan *dbus.Signal, 64)
	s.conn.Signal(signals)

	events := make(chan handler.StoreEvent, 64)
	go func() {
		defer close(events)
		for {
			select {
			case sig, ok := <-signals:
				if !ok {
					return
				}
				ev, ok := convertSignal(sig)
				if !ok {
					continue
				}
				select {
				case events <- ev:
				case <-ctx.Done():
					s.conn.RemoveSignal(signals)
					return
				}
			case <-ctx.Done():
				s.conn.RemoveSignal(signals)
				return
			}
		}
	}()
	return events, nil
}

// convertSignal maps a bus signal to a store event. Signals with unexpected
// bodies are dropped.
func convertSignal(sig *dbus.Signal) (handler.StoreEvent, bool) {
	switch sig.Name {
	case objectManagerInterface + ".InterfacesAdded":
		if len(sig.Body) < 1 {
			return handler.StoreEvent{}, false
		}
		path, ok := sig.Body[0].(dbus.ObjectPath)
		if !ok {
			return handler.StoreEvent{}, false
		}
		return handler.StoreEvent{
			Type: handler.StoreEventInterfacesAdded,
			Path: string(path),
		}, true

	case objectManagerInterface + ".InterfacesRemoved":
		if len(sig.Body) < 1 {
			return handler.StoreEvent{}, false
		}
		path, ok := sig.Body[0].(dbus.ObjectPath)
		if !ok {
			return handler.StoreEvent{}, false
		}
		return handler.StoreEvent{
			Type: handler.StoreEventInterfacesRemoved,
			Path: string(path),
		}, true

	case propertiesInterface + ".PropertiesChanged":
		if len(sig.Body) < 2 {
			return handler.StoreEvent{}, false
		}
		iface, ok := sig.Body[0].(string)
		if !ok {
			return handler.StoreEvent{}, false
		}
		raw, ok := sig.Body[1].(map[string]dbus.Variant)
		if !ok {
			return handler.StoreEvent{}, false
		}
		changed := make(handler.PropertyMap, len(raw))
		for name, variant := range raw {
			changed[name] = variant.Value()
		}
		return handler.StoreEvent{
			Type:      handler.StoreEventPropertiesChanged,
			Path:      string(sig.Path),
			Interface: iface,
			Changed:   changed,
		}, true
	}
	return handler.StoreEvent{}, false
}
