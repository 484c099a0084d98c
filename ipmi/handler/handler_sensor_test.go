package handler

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/vb15s/intel-ipmi-oem/ipmi"
)

func sensorRequest(cmd ipmi.Command, data ...byte) ipmi.Request {
	return ipmi.Request{NetFn: ipmi.NetFnSensor, Cmd: cmd, Data: data}
}

// thresholdSensor builds a sensor with warning and critical thresholds on a
// 0..100 range.
func thresholdSensor() InterfaceMap {
	return InterfaceMap{
		SensorValueInterface: PropertyMap{
			"Value":    42.5,
			"MinValue": 0.0,
			"MaxValue": 100.0,
		},
		WarningThresholdInterface: PropertyMap{
			"WarningHigh":      80.0,
			"WarningLow":       5.0,
			"WarningAlarmHigh": false,
			"WarningAlarmLow":  false,
		},
		CriticalThresholdInterface: PropertyMap{
			"CriticalHigh":      90.0,
			"CriticalLow":       2.0,
			"CriticalAlarmHigh": false,
			"CriticalAlarmLow":  false,
		},
	}
}

func percentFactors(t *testing.T) ipmi.ReadingFactors {
	t.Helper()
	factors, err := ipmi.DeriveReadingFactors(0, 100)
	if err != nil {
		t.Fatalf("DeriveReadingFactors failed: %v", err)
	}
	return factors
}

func TestGetSensorReading(t *testing.T) {
	env := newTestEnv()
	env.store.addSensor("svc.hwmon", "/xyz/openbmc_project/sensors/temperature/CPU", thresholdSensor())

	resp := env.handler.GetSensorReading(context.Background(), sensorRequest(ipmi.CmdGetSensorReading, 0))
	if resp.Code != ipmi.CCOK {
		t.Fatalf("completion code = %v", resp.Code)
	}

	factors := percentFactors(t)
	want := []byte{
		factors.EncodeReading(42.5),
		ipmi.ReadingEventMessagesEnable | ipmi.ReadingScanningEnable,
		0,
	}
	if !bytes.Equal(resp.Data, want) {
		t.Errorf("reading = %02X, want %02X", resp.Data, want)
	}
}

func TestGetSensorReadingAlarmBits(t *testing.T) {
	env := newTestEnv()
	objects := thresholdSensor()
	objects[WarningThresholdInterface]["WarningAlarmHigh"] = true
	objects[CriticalThresholdInterface]["CriticalAlarmLow"] = true
	env.store.addSensor("svc.hwmon", "/xyz/openbmc_project/sensors/temperature/CPU", objects)

	resp := env.handler.GetSensorReading(context.Background(), sensorRequest(ipmi.CmdGetSensorReading, 0))
	if resp.Code != ipmi.CCOK {
		t.Fatalf("completion code = %v", resp.Code)
	}
	wantBits := ipmi.ThresholdBitUpperNonCritical | ipmi.ThresholdBitLowerCritical
	if resp.Data[2] != wantBits {
		t.Errorf("alarm bits = 0x%02X, want 0x%02X", resp.Data[2], wantBits)
	}
}

func TestGetSensorReadingUnknownSensor(t *testing.T) {
	env := newTestEnv()
	resp := env.handler.GetSensorReading(context.Background(), sensorRequest(ipmi.CmdGetSensorReading, 5))
	if resp.Code != ipmi.CCSensorNotPresent {
		t.Errorf("completion code = %v, want sensor not present", resp.Code)
	}
}

func TestGetSensorReadingLengthCheck(t *testing.T) {
	env := newTestEnv()
	resp := env.handler.GetSensorReading(context.Background(), sensorRequest(ipmi.CmdGetSensorReading))
	if resp.Code != ipmi.CCReqDataLenInvalid {
		t.Errorf("completion code = %v, want length invalid", resp.Code)
	}
}

func TestGetSensorReadingValueMissing(t *testing.T) {
	env := newTestEnv()
	env.store.addSensor("svc.hwmon", "/xyz/openbmc_project/sensors/temperature/CPU", InterfaceMap{
		SensorValueInterface: PropertyMap{"MinValue": 0.0, "MaxValue": 100.0},
	})
	resp := env.handler.GetSensorReading(context.Background(), sensorRequest(ipmi.CmdGetSensorReading, 0))
	if resp.Code != ipmi.CCResponseError {
		t.Errorf("completion code = %v, want response error", resp.Code)
	}
}

func TestGetSensorThresholds(t *testing.T) {
	env := newTestEnv()
	env.store.addSensor("svc.hwmon", "/xyz/openbmc_project/sensors/temperature/CPU", thresholdSensor())

	resp := env.handler.GetSensorThresholds(context.Background(), sensorRequest(ipmi.CmdGetSensorThresholds, 0))
	if resp.Code != ipmi.CCOK {
		t.Fatalf("completion code = %v", resp.Code)
	}

	factors := percentFactors(t)
	want := []byte{
		ipmi.ThresholdBitLowerNonCritical | ipmi.ThresholdBitLowerCritical |
			ipmi.ThresholdBitUpperNonCritical | ipmi.ThresholdBitUpperCritical,
		factors.EncodeReading(5),
		factors.EncodeReading(2),
		0,
		factors.EncodeReading(80),
		factors.EncodeReading(90),
		0,
	}
	if !bytes.Equal(resp.Data, want) {
		t.Errorf("thresholds = %02X, want %02X", resp.Data, want)
	}
}

func TestGetSensorThresholdsNoneSupported(t *testing.T) {
	env := newTestEnv()
	env.store.addSensor("svc.hwmon", "/xyz/openbmc_project/sensors/temperature/CPU", valueSensor(0, 100, 42.5))

	resp := env.handler.GetSensorThresholds(context.Background(), sensorRequest(ipmi.CmdGetSensorThresholds, 0))
	if resp.Code != ipmi.CCOK {
		t.Fatalf("completion code = %v", resp.Code)
	}
	if !bytes.Equal(resp.Data, make([]byte, 7)) {
		t.Errorf("thresholds = %02X, want all zero", resp.Data)
	}
}

func TestSetSensorThresholdsWritesSelected(t *testing.T) {
	env := newTestEnv()
	env.store.addSensor("svc.hwmon", "/xyz/openbmc_project/sensors/temperature/CPU", thresholdSensor())

	factors := percentFactors(t)
	raw := factors.EncodeReading(95)
	resp := env.handler.SetSensorThresholds(context.Background(), sensorRequest(ipmi.CmdSetSensorThresholds,
		0, ipmi.ThresholdBitUpperCritical, 0, 0, 0, 0, raw, 0))
	if resp.Code != ipmi.CCOK {
		t.Fatalf("completion code = %v", resp.Code)
	}

	if len(env.store.writes) != 1 {
		t.Fatalf("expected 1 property write, got %d", len(env.store.writes))
	}
	w := env.store.writes[0]
	if w.iface != CriticalThresholdInterface || w.property != "CriticalHigh" {
		t.Errorf("wrote %s.%s, want Critical.CriticalHigh", w.iface, w.property)
	}
	if w.value != factors.DecodeReading(raw) {
		t.Errorf("wrote %v, want %v", w.value, factors.DecodeReading(raw))
	}
}

func TestSetSensorThresholdsRejectsReservedMask(t *testing.T) {
	env := newTestEnv()
	for _, mask := range []byte{
		ipmi.ThresholdSelectReserved,
		ipmi.ThresholdBitLowerNonRecoverable,
		ipmi.ThresholdBitUpperNonRecoverable,
	} {
		resp := env.handler.SetSensorThresholds(context.Background(), sensorRequest(ipmi.CmdSetSensorThresholds,
			0, mask, 0, 0, 0, 0, 0, 0))
		if resp.Code != ipmi.CCInvalidField {
			t.Errorf("mask 0x%02X: completion code = %v, want invalid field", mask, resp.Code)
		}
	}
}

func TestSetSensorThresholdsEmptyMaskSkipsResolution(t *testing.T) {
	env := newTestEnv()
	// sensor 99 does not exist; an empty mask succeeds without resolving it
	resp := env.handler.SetSensorThresholds(context.Background(), sensorRequest(ipmi.CmdSetSensorThresholds,
		99, 0, 0, 0, 0, 0, 0, 0))
	if resp.Code != ipmi.CCOK {
		t.Errorf("completion code = %v, want OK", resp.Code)
	}
	if len(env.store.writes) != 0 {
		t.Errorf("empty mask issued %d writes", len(env.store.writes))
	}
}

func TestSetSensorThresholdsValidatesBeforeWriting(t *testing.T) {
	env := newTestEnv()
	// critical interface only; selecting a warning threshold as well must
	// fail the whole request without touching the critical one
	env.store.addSensor("svc.hwmon", "/xyz/openbmc_project/sensors/temperature/CPU", InterfaceMap{
		SensorValueInterface: PropertyMap{
			"Value":    42.5,
			"MinValue": 0.0,
			"MaxValue": 100.0,
		},
		CriticalThresholdInterface: PropertyMap{"CriticalHigh": 90.0},
	})

	resp := env.handler.SetSensorThresholds(context.Background(), sensorRequest(ipmi.CmdSetSensorThresholds,
		0, ipmi.ThresholdBitUpperCritical|ipmi.ThresholdBitLowerNonCritical, 0, 0, 0, 0, 0x80, 0))
	if resp.Code != ipmi.CCInvalidField {
		t.Fatalf("completion code = %v, want invalid field", resp.Code)
	}
	if len(env.store.writes) != 0 {
		t.Errorf("rejected request issued %d writes", len(env.store.writes))
	}
}

func TestSetSensorThresholdsWriteFailure(t *testing.T) {
	env := newTestEnv()
	env.store.addSensor("svc.hwmon", "/xyz/openbmc_project/sensors/temperature/CPU", thresholdSensor())
	env.store.setErr = errors.New("backend rejected the write")

	resp := env.handler.SetSensorThresholds(context.Background(), sensorRequest(ipmi.CmdSetSensorThresholds,
		0, ipmi.ThresholdBitUpperCritical, 0, 0, 0, 0, 0x80, 0))
	if resp.Code != ipmi.CCUnspecifiedError {
		t.Errorf("completion code = %v, want unspecified error", resp.Code)
	}
}

func TestGetSensorEventEnable(t *testing.T) {
	env := newTestEnv()
	env.store.addSensor("svc.hwmon", "/xyz/openbmc_project/sensors/temperature/CPU", thresholdSensor())

	resp := env.handler.GetSensorEventEnable(context.Background(), sensorRequest(ipmi.CmdGetSensorEventEnable, 0))
	if resp.Code != ipmi.CCOK {
		t.Fatalf("completion code = %v", resp.Code)
	}

	maskLSB := ipmi.EventUpperNonCriticalGoingHigh | ipmi.EventLowerNonCriticalGoingLow |
		ipmi.EventLowerCriticalGoingLow
	maskMSB := ipmi.EventUpperCriticalGoingHigh
	want := []byte{ipmi.ReadingScanningEnable, maskLSB, maskMSB, maskLSB, maskMSB}
	if !bytes.Equal(resp.Data, want) {
		t.Errorf("event enable = %02X, want %02X", resp.Data, want)
	}
}

func TestGetSensorEventEnableMinimalForm(t *testing.T) {
	env := newTestEnv()
	env.store.addSensor("svc.hwmon", "/xyz/openbmc_project/sensors/temperature/CPU", valueSensor(0, 100, 42.5))

	resp := env.handler.GetSensorEventEnable(context.Background(), sensorRequest(ipmi.CmdGetSensorEventEnable, 0))
	if resp.Code != ipmi.CCOK {
		t.Fatalf("completion code = %v", resp.Code)
	}
	want := []byte{ipmi.ReadingEventMessagesEnable | ipmi.ReadingScanningEnable}
	if !bytes.Equal(resp.Data, want) {
		t.Errorf("event enable = %02X, want %02X", resp.Data, want)
	}
}

func TestGetSensorEventStatus(t *testing.T) {
	env := newTestEnv()
	path := "/xyz/openbmc_project/sensors/temperature/CPU"
	objects := thresholdSensor()
	objects[CriticalThresholdInterface]["CriticalAlarmHigh"] = true
	env.store.addSensor("svc.hwmon", path, objects)

	// a warning alarm came and went; its deassertion stays latched
	env.handler.latches.Assert(path, "WarningAlarmLow")
	env.handler.latches.Deassert(path, "WarningAlarmLow")

	resp := env.handler.GetSensorEventStatus(context.Background(), sensorRequest(ipmi.CmdGetSensorEventStatus, 0))
	if resp.Code != ipmi.CCOK {
		t.Fatalf("completion code = %v", resp.Code)
	}
	want := []byte{
		ipmi.ReadingEventMessagesEnable,
		0, ipmi.EventUpperCriticalGoingHigh,
		ipmi.EventLowerNonCriticalGoingLow, 0,
	}
	if !bytes.Equal(resp.Data, want) {
		t.Errorf("event status = %02X, want %02X", resp.Data, want)
	}
}

func TestGetSensorEventStatusMinimalForm(t *testing.T) {
	env := newTestEnv()
	path := "/xyz/openbmc_project/sensors/fan_tach/Fan1"
	env.store.addSensor("svc.hwmon", path, valueSensor(0, 18000, 4000))

	env.handler.latches.Assert(path, "WarningAlarmHigh")
	env.handler.latches.Deassert(path, "WarningAlarmHigh")

	resp := env.handler.GetSensorEventStatus(context.Background(), sensorRequest(ipmi.CmdGetSensorEventStatus, 0))
	if resp.Code != ipmi.CCOK {
		t.Fatalf("completion code = %v", resp.Code)
	}
	// the minimal form still carries the low deassertion byte
	want := []byte{ipmi.ReadingScanningEnable, 0, 0, ipmi.EventUpperNonCriticalGoingHigh}
	if !bytes.Equal(resp.Data, want) {
		t.Errorf("event status = %02X, want %02X", resp.Data, want)
	}
}

func TestPlatformEventWithoutOriginator(t *testing.T) {
	env := newTestEnv()
	env.store.addSensor("svc.hwmon", "/xyz/openbmc_project/sensors/temperature/CPU", thresholdSensor())

	resp := env.handler.PlatformEvent(context.Background(), sensorRequest(ipmi.CmdPlatformEvent,
		PlatformEventEvMRev, 0x01, 0x00, 0x01, 0x57))
	if resp.Code != ipmi.CCOK {
		t.Fatalf("completion code = %v", resp.Code)
	}

	entries := env.sel.added()
	if len(entries) != 1 {
		t.Fatalf("expected 1 SEL entry, got %d", len(entries))
	}
	e := entries[0]
	if e.generatorID != DefaultEventOriginator {
		t.Errorf("generatorID = 0x%02X, want 0x%02X", e.generatorID, DefaultEventOriginator)
	}
	if !e.assert {
		t.Error("event direction bit clear must log an assertion")
	}
	if e.path != "/xyz/openbmc_project/sensors/temperature/CPU" {
		t.Errorf("path = %q", e.path)
	}
	if !bytes.Equal(e.eventData, []byte{0x57, 0xFF, 0xFF}) {
		t.Errorf("eventData = %02X, want 57 FF FF", e.eventData)
	}
	if e.message != selAddMessage {
		t.Errorf("message = %q", e.message)
	}
}

func TestPlatformEventWithOriginator(t *testing.T) {
	env := newTestEnv()

	resp := env.handler.PlatformEvent(context.Background(), sensorRequest(ipmi.CmdPlatformEvent,
		0x35, PlatformEventEvMRev, 0x01, 0x07, 0x81, 0x57, 0x02, 0x03))
	if resp.Code != ipmi.CCOK {
		t.Fatalf("completion code = %v", resp.Code)
	}

	entries := env.sel.added()
	if len(entries) != 1 {
		t.Fatalf("expected 1 SEL entry, got %d", len(entries))
	}
	e := entries[0]
	if e.generatorID != 0x35 {
		t.Errorf("generatorID = 0x%02X, want 0x35", e.generatorID)
	}
	if e.assert {
		t.Error("event direction bit set must log a deassertion")
	}
	// sensor 0x07 does not resolve; the entry still logs with no path
	if e.path != "" {
		t.Errorf("path = %q, want empty", e.path)
	}
	if !bytes.Equal(e.eventData, []byte{0x57, 0x02, 0x03}) {
		t.Errorf("eventData = %02X, want 57 02 03", e.eventData)
	}
}

func TestPlatformEventLengthWindow(t *testing.T) {
	env := newTestEnv()
	tests := []struct {
		name string
		data []byte
	}{
		{name: "empty", data: nil},
		{name: "short", data: []byte{PlatformEventEvMRev, 0x01, 0x00, 0x01}},
		{name: "long", data: []byte{PlatformEventEvMRev, 0x01, 0x00, 0x01, 1, 2, 3, 4}},
		{name: "long with originator", data: []byte{0x35, PlatformEventEvMRev, 0x01, 0x00, 0x01, 1, 2, 3, 4}},
	}
	for _, tt := range tests {
		resp := env.handler.PlatformEvent(context.Background(),
			ipmi.Request{NetFn: ipmi.NetFnSensor, Cmd: ipmi.CmdPlatformEvent, Data: tt.data})
		if resp.Code != ipmi.CCReqDataLenInvalid {
			t.Errorf("%s: completion code = %v, want length invalid", tt.name, resp.Code)
		}
	}
	if len(env.sel.added()) != 0 {
		t.Error("rejected events reached the SEL")
	}
}

func TestPlatformEventSELFailure(t *testing.T) {
	env := newTestEnv()
	env.sel.err = errors.New("log full")

	resp := env.handler.PlatformEvent(context.Background(), sensorRequest(ipmi.CmdPlatformEvent,
		PlatformEventEvMRev, 0x01, 0x00, 0x01, 0x57))
	if resp.Code != ipmi.CCUnspecifiedError {
		t.Errorf("completion code = %v, want unspecified error", resp.Code)
	}
}

func TestUnsupportedCommand(t *testing.T) {
	env := newTestEnv()
	resp := env.handler.UnsupportedCommand(context.Background(), sensorRequest(ipmi.CmdGetSensorType, 0))
	if resp.Code != ipmi.CCInvalidCommand {
		t.Errorf("completion code = %v, want invalid command", resp.Code)
	}
}
