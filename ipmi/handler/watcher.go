package handler

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"github.com/vb15s/intel-ipmi-oem/ipmi"
)

// StartWatcher consumes backend store events until the channel closes or the
// context is canceled. Topology changes clear the sensor index; threshold
// alarm transitions update the deassertion latches.
func (h *Handler) StartWatcher(ctx context.Context, events <-chan StoreEvent) {
	go func() {
		for {
			select {
			case ev, ok := <-events:
				if !ok {
					return
				}
				h.handleStoreEvent(ev)
			case <-ctx.Done():
				return
			}
		}
	}()
}

func (h *Handler) handleStoreEvent(ev StoreEvent) {
	switch ev.Type {
	case StoreEventInterfacesAdded:
		if !strings.HasPrefix(ev.Path, ipmi.SensorPathPrefix) {
			return
		}
		slog.Debug("sensor added", "path", ev.Path)
		h.topology.Invalidate(true)
		h.notify(Notification{Type: NotificationTopologyChanged, Path: ev.Path})
	case StoreEventInterfacesRemoved:
		if !strings.HasPrefix(ev.Path, ipmi.SensorPathPrefix) {
			return
		}
		slog.Debug("sensor removed", "path", ev.Path)
		h.topology.Invalidate(false)
		h.notify(Notification{Type: NotificationTopologyChanged, Path: ev.Path})
	case StoreEventPropertiesChanged:
		if strings.HasPrefix(ev.Interface, ThresholdInterfacePrefix) {
			h.handleThresholdChange(ev)
		}
	}
}

// handleThresholdChange records the alarm transition carried by a threshold
// property change. Only the first alarm property in key order is considered.
func (h *Handler) handleThresholdChange(ev StoreEvent) {
	names := make([]string, 0, len(ev.Changed))
	for name := range ev.Changed {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if !strings.Contains(name, "Alarm") {
			continue
		}
		asserted, ok := ev.Changed[name].(bool)
		if !ok {
			slog.Warn("alarm property is not a bool", "path", ev.Path, "property", name)
			return
		}
		if asserted {
			slog.Info("threshold asserted", "sensor", ev.Path, "alarm", name)
			h.latches.Assert(ev.Path, name)
		} else {
			// ignored unless an assertion was seen first
			if !h.latches.Deassert(ev.Path, name) {
				return
			}
			slog.Info("threshold deasserted", "sensor", ev.Path, "alarm", name)
		}
		h.notify(Notification{
			Type:     NotificationThresholdEvent,
			Path:     ev.Path,
			Alarm:    name,
			Asserted: asserted,
		})
		return
	}
}
