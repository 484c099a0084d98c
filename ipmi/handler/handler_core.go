package handler

import (
	"log/slog"
	"sync"
	"time"
)

// NotificationType classifies a handler notification.
type NotificationType int

const (
	// NotificationTopologyChanged reports a sensor appearing or
	// disappearing; the record space has been renumbered.
	NotificationTopologyChanged NotificationType = iota
	// NotificationThresholdEvent reports a threshold alarm transition.
	NotificationThresholdEvent
)

func (t NotificationType) String() string {
	switch t {
	case NotificationTopologyChanged:
		return "topology_changed"
	case NotificationThresholdEvent:
		return "threshold_event"
	default:
		return "unknown"
	}
}

// Notification is pushed to bridge clients when backend state changes.
type Notification struct {
	Type     NotificationType
	Path     string
	Alarm    string // threshold events only
	Asserted bool   // threshold events only
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Handler owns the shared sensor state and implements every command this
// service registers. All exported command methods satisfy ipmi.HandlerFunc.
type Handler struct {
	store Store
	sel   SELWriter
	fru   FRUSource
	clock Clock

	cache    *SensorCache
	topology *Topology
	latches  *DeassertionLatches

	reservationMu sync.Mutex
	reservationID uint16

	// NotificationCh carries topology and threshold notifications for
	// bridge clients. Slow consumers drop notifications rather than block
	// command handling.
	NotificationCh chan Notification
}

// NewHandler wires the handler state around its collaborators. A nil clock
// selects the system clock.
func NewHandler(store Store, sel SELWriter, fru FRUSource, clock Clock) *Handler {
	if clock == nil {
		clock = systemClock{}
	}
	return &Handler{
		store:          store,
		sel:            sel,
		fru:            fru,
		clock:          clock,
		cache:          NewSensorCache(store, clock),
		topology:       NewTopology(store, clock),
		latches:        NewDeassertionLatches(),
		NotificationCh: make(chan Notification, 100),
	}
}

// Close releases the notification channel. Stop the watcher before calling.
func (h *Handler) Close() error {
	close(h.NotificationCh)
	return nil
}

func (h *Handler) notify(n Notification) {
	select {
	case h.NotificationCh <- n:
	default:
		slog.Warn("notification channel full, dropping", "type", n.Type.String(), "path", n.Path)
	}
}

// ReserveRepository issues the next reservation ID, skipping zero so that a
// zero value always means "no active reservation".
func (h *Handler) ReserveRepository() uint16 {
	h.reservationMu.Lock()
	defer h.reservationMu.Unlock()
	h.reservationID++
	if h.reservationID == 0 {
		h.reservationID++
	}
	return h.reservationID
}

func (h *Handler) currentReservation() uint16 {
	h.reservationMu.Lock()
	defer h.reservationMu.Unlock()
	return h.reservationID
}
