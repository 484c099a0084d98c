package handler

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestTopologyOrdersSensorsByPath(t *testing.T) {
	ctx := context.Background()
	store := newMockStore()
	store.addSensor("svc.psu", "/xyz/openbmc_project/sensors/voltage/PSU1", valueSensor(0, 14, 12))
	store.addSensor("svc.hwmon", "/xyz/openbmc_project/sensors/fan_tach/Fan1", valueSensor(0, 18000, 4000))
	store.addSensor("svc.hwmon", "/xyz/openbmc_project/sensors/temperature/CPU", valueSensor(0, 100, 50))

	topo := NewTopology(store, newMockClock())
	count, err := topo.Count(ctx)
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 3 {
		t.Fatalf("expected 3 sensors, got %d", count)
	}

	want := []struct {
		connection string
		path       string
	}{
		{"svc.hwmon", "/xyz/openbmc_project/sensors/fan_tach/Fan1"},
		{"svc.hwmon", "/xyz/openbmc_project/sensors/temperature/CPU"},
		{"svc.psu", "/xyz/openbmc_project/sensors/voltage/PSU1"},
	}
	for i, w := range want {
		connection, path, err := topo.At(ctx, i)
		if err != nil {
			t.Fatalf("At(%d) failed: %v", i, err)
		}
		if connection != w.connection || path != w.path {
			t.Errorf("At(%d) = (%q, %q), want (%q, %q)", i, connection, path, w.connection, w.path)
		}
	}
}

func TestTopologyResolveOutOfRange(t *testing.T) {
	ctx := context.Background()
	store := newMockStore()
	store.addSensor("svc.hwmon", "/xyz/openbmc_project/sensors/temperature/CPU", valueSensor(0, 100, 50))

	topo := NewTopology(store, newMockClock())
	if _, _, err := topo.Resolve(ctx, 1); !errors.Is(err, ErrUnknownSensor) {
		t.Errorf("expected ErrUnknownSensor, got %v", err)
	}
}

func TestTopologySubtreeFailure(t *testing.T) {
	ctx := context.Background()
	store := newMockStore()
	store.subtreeErr = errors.New("mapper down")

	topo := NewTopology(store, newMockClock())
	if _, err := topo.Count(ctx); !errors.Is(err, ErrSensorUnavailable) {
		t.Errorf("expected ErrSensorUnavailable, got %v", err)
	}
}

func TestTopologyInvalidateRebuildsFromStore(t *testing.T) {
	ctx := context.Background()
	store := newMockStore()
	store.addSensor("svc.hwmon", "/xyz/openbmc_project/sensors/temperature/CPU", valueSensor(0, 100, 50))

	topo := NewTopology(store, newMockClock())
	if count, _ := topo.Count(ctx); count != 1 {
		t.Fatalf("expected 1 sensor, got %d", count)
	}

	// cached until invalidated
	store.addSensor("svc.hwmon", "/xyz/openbmc_project/sensors/temperature/DIMM", valueSensor(0, 100, 40))
	if count, _ := topo.Count(ctx); count != 1 {
		t.Errorf("expected cached count 1 before invalidation, got %d", count)
	}

	topo.Invalidate(true)
	if count, _ := topo.Count(ctx); count != 2 {
		t.Errorf("expected rebuilt count 2, got %d", count)
	}
}

func TestTopologyChangeTimestamps(t *testing.T) {
	clock := newMockClock()
	topo := NewTopology(newMockStore(), clock)

	if !topo.LastAdd().IsZero() || !topo.LastRemove().IsZero() {
		t.Fatal("expected zero timestamps before any change")
	}

	topo.Invalidate(true)
	addStamp := topo.LastAdd()
	if !addStamp.Equal(clock.Now()) {
		t.Errorf("LastAdd = %v, want %v", addStamp, clock.Now())
	}
	if !topo.LastRemove().IsZero() {
		t.Error("LastRemove moved on an addition")
	}

	clock.advance(5 * time.Second)
	topo.Invalidate(false)
	if !topo.LastRemove().Equal(clock.Now()) {
		t.Errorf("LastRemove = %v, want %v", topo.LastRemove(), clock.Now())
	}
	if !topo.LastAdd().Equal(addStamp) {
		t.Error("LastAdd moved on a removal")
	}
}
