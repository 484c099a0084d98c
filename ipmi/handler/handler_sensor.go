package handler

import (
	"context"
	"errors"
	"log/slog"

	"github.com/vb15s/intel-ipmi-oem/ipmi"
)

// Platform event constants.
const (
	// PlatformEventEvMRev marks a payload whose first byte is the event
	// message revision, meaning the originator was not transmitted.
	PlatformEventEvMRev byte = 0x04

	// DefaultEventOriginator stands in when the channel strips the
	// originator from the payload.
	DefaultEventOriginator uint16 = 0x2C

	// eventDirectionDeassert is the direction bit of the event type byte.
	eventDirectionDeassert byte = 1 << 7

	selAddMessage = "SEL Entry"
)

// sensorErrorCode maps a resolution or cache error to its completion code.
func sensorErrorCode(err error) ipmi.CompletionCode {
	if errors.Is(err, ErrUnknownSensor) {
		return ipmi.CCSensorNotPresent
	}
	return ipmi.CCResponseError
}

// GetSensorReading returns the raw reading, the sensor status byte and the
// threshold comparison bitmask for one sensor.
func (h *Handler) GetSensorReading(ctx context.Context, req ipmi.Request) ipmi.Response {
	if len(req.Data) != 1 {
		return ipmi.ErrorResponse(ipmi.CCReqDataLenInvalid)
	}

	connection, path, err := h.topology.Resolve(ctx, req.Data[0])
	if err != nil {
		return ipmi.ErrorResponse(sensorErrorCode(err))
	}
	objects, err := h.cache.Lookup(ctx, connection, path)
	if err != nil {
		return ipmi.ErrorResponse(ipmi.CCResponseError)
	}

	values, ok := objects[SensorValueInterface]
	if !ok {
		return ipmi.ErrorResponse(ipmi.CCResponseError)
	}
	reading, ok := floatValue(values["Value"])
	if !ok {
		return ipmi.ErrorResponse(ipmi.CCResponseError)
	}

	min, max := SensorRange(values)
	factors, err := ipmi.DeriveReadingFactors(min, max)
	if err != nil {
		slog.Warn("sensor range not linearizable", "path", path, "err", err)
		return ipmi.ErrorResponse(ipmi.CCResponseError)
	}

	status := ipmi.ReadingEventMessagesEnable | ipmi.ReadingScanningEnable
	return ipmi.OKResponse([]byte{factors.EncodeReading(reading), status, AlarmBits(objects)})
}

// GetSensorThresholds returns the readable-threshold mask and the six
// raw-encoded threshold bytes. Unsupported thresholds read as zero.
func (h *Handler) GetSensorThresholds(ctx context.Context, req ipmi.Request) ipmi.Response {
	if len(req.Data) != 1 {
		return ipmi.ErrorResponse(ipmi.CCReqDataLenInvalid)
	}

	connection, path, err := h.topology.Resolve(ctx, req.Data[0])
	if err != nil {
		return ipmi.ErrorResponse(sensorErrorCode(err))
	}
	objects, err := h.cache.Lookup(ctx, connection, path)
	if err != nil {
		return ipmi.ErrorResponse(ipmi.CCResponseError)
	}

	vals, err := SensorThresholds(objects)
	if err != nil {
		slog.Warn("failed to read thresholds", "path", path, "err", err)
		return ipmi.ErrorResponse(ipmi.CCResponseError)
	}

	// [readable, lowerNC, lowerCrit, lowerNR, upperNC, upperCrit, upperNR]
	resp := make([]byte, 7)
	if vals.WarningLow != nil {
		resp[0] |= ipmi.ThresholdBitLowerNonCritical
		resp[1] = *vals.WarningLow
	}
	if vals.CriticalLow != nil {
		resp[0] |= ipmi.ThresholdBitLowerCritical
		resp[2] = *vals.CriticalLow
	}
	if vals.WarningHigh != nil {
		resp[0] |= ipmi.ThresholdBitUpperNonCritical
		resp[4] = *vals.WarningHigh
	}
	if vals.CriticalHigh != nil {
		resp[0] |= ipmi.ThresholdBitUpperCritical
		resp[5] = *vals.CriticalHigh
	}
	return ipmi.OKResponse(resp)
}

type thresholdWrite struct {
	iface    string
	property string
	value    float64
}

// SetSensorThresholds decodes and writes the thresholds selected by the
// request mask. Every selected threshold must exist on the backend before
// any write is issued; partial application is not allowed.
func (h *Handler) SetSensorThresholds(ctx context.Context, req ipmi.Request) ipmi.Response {
	if len(req.Data) != 8 {
		return ipmi.ErrorResponse(ipmi.CCReqDataLenInvalid)
	}
	mask := req.Data[1]
	if mask&ipmi.ThresholdSelectReserved != 0 {
		return ipmi.ErrorResponse(ipmi.CCInvalidField)
	}
	// non-recoverable thresholds are not supported on any sensor
	if mask&(ipmi.ThresholdBitLowerNonRecoverable|ipmi.ThresholdBitUpperNonRecoverable) != 0 {
		return ipmi.ErrorResponse(ipmi.CCInvalidField)
	}
	if mask == 0 {
		return ipmi.OKResponse(nil)
	}

	connection, path, err := h.topology.Resolve(ctx, req.Data[0])
	if err != nil {
		return ipmi.ErrorResponse(sensorErrorCode(err))
	}
	objects, err := h.cache.Lookup(ctx, connection, path)
	if err != nil {
		return ipmi.ErrorResponse(ipmi.CCResponseError)
	}

	factors, err := ReadingFactorsFor(objects)
	if err != nil {
		return ipmi.ErrorResponse(ipmi.CCResponseError)
	}

	// [sensor, mask, lowerNC, lowerCrit, lowerNR, upperNC, upperCrit, upperNR]
	selections := []struct {
		bit      byte
		iface    string
		property string
		raw      byte
	}{
		{ipmi.ThresholdBitLowerCritical, CriticalThresholdInterface, "CriticalLow", req.Data[3]},
		{ipmi.ThresholdBitUpperCritical, CriticalThresholdInterface, "CriticalHigh", req.Data[6]},
		{ipmi.ThresholdBitLowerNonCritical, WarningThresholdInterface, "WarningLow", req.Data[2]},
		{ipmi.ThresholdBitUpperNonCritical, WarningThresholdInterface, "WarningHigh", req.Data[5]},
	}

	var writes []thresholdWrite
	for _, sel := range selections {
		if mask&sel.bit == 0 {
			continue
		}
		values, ok := objects[sel.iface]
		if !ok {
			return ipmi.ErrorResponse(ipmi.CCInvalidField)
		}
		if _, ok := values[sel.property]; !ok {
			return ipmi.ErrorResponse(ipmi.CCInvalidField)
		}
		writes = append(writes, thresholdWrite{
			iface:    sel.iface,
			property: sel.property,
			value:    factors.DecodeReading(sel.raw),
		})
	}

	for _, w := range writes {
		if err := h.store.SetProperty(ctx, connection, path, w.iface, w.property, w.value); err != nil {
			slog.Warn("failed to write threshold", "path", path, "property", w.property, "err", err)
			return ipmi.ErrorResponse(ipmi.CCUnspecifiedError)
		}
	}
	return ipmi.OKResponse(nil)
}

// GetSensorEventEnable reports which threshold events the sensor can
// generate. Sensors without threshold interfaces return the minimal form.
func (h *Handler) GetSensorEventEnable(ctx context.Context, req ipmi.Request) ipmi.Response {
	if len(req.Data) != 1 {
		return ipmi.ErrorResponse(ipmi.CCReqDataLenInvalid)
	}

	connection, path, err := h.topology.Resolve(ctx, req.Data[0])
	if err != nil {
		return ipmi.ErrorResponse(sensorErrorCode(err))
	}
	objects, err := h.cache.Lookup(ctx, connection, path)
	if err != nil {
		return ipmi.ErrorResponse(ipmi.CCResponseError)
	}

	_, hasWarning := objects[WarningThresholdInterface]
	_, hasCritical := objects[CriticalThresholdInterface]
	if !hasWarning && !hasCritical {
		return ipmi.OKResponse([]byte{ipmi.ReadingEventMessagesEnable | ipmi.ReadingScanningEnable})
	}

	mask, _ := SupportedEventMasks(objects)
	return ipmi.OKResponse([]byte{
		ipmi.ReadingScanningEnable,
		mask[0], mask[1], // assertion enables
		mask[0], mask[1], // deassertion enables
	})
}

// GetSensorEventStatus reports the asserted thresholds and the latched
// deassertions. Sensors without threshold interfaces drop the final
// deassertion byte.
func (h *Handler) GetSensorEventStatus(ctx context.Context, req ipmi.Request) ipmi.Response {
	if len(req.Data) != 1 {
		return ipmi.ErrorResponse(ipmi.CCReqDataLenInvalid)
	}

	connection, path, err := h.topology.Resolve(ctx, req.Data[0])
	if err != nil {
		return ipmi.ErrorResponse(sensorErrorCode(err))
	}
	objects, err := h.cache.Lookup(ctx, connection, path)
	if err != nil {
		return ipmi.ErrorResponse(ipmi.CCResponseError)
	}

	deassertLSB, deassertMSB := DeassertedEventBits(path, h.latches)

	_, hasWarning := objects[WarningThresholdInterface]
	_, hasCritical := objects[CriticalThresholdInterface]
	if !hasWarning && !hasCritical {
		return ipmi.OKResponse([]byte{ipmi.ReadingScanningEnable, 0, 0, deassertLSB})
	}

	assertLSB, assertMSB := AssertedEventBits(objects)
	return ipmi.OKResponse([]byte{
		ipmi.ReadingEventMessagesEnable,
		assertLSB, assertMSB,
		deassertLSB, deassertMSB,
	})
}

// PlatformEvent decodes an inbound platform event and forwards it to the
// system event log. The originator field is present only when the first
// byte is not the event message revision.
func (h *Handler) PlatformEvent(ctx context.Context, req ipmi.Request) ipmi.Response {
	data := req.Data
	generatorID := DefaultEventOriginator

	var fields []byte
	if len(data) > 0 && data[0] == PlatformEventEvMRev {
		// [evmRev, sensorType, sensorNum, eventType, eventData1..3]
		fields = data
	} else {
		// [generatorID, evmRev, sensorType, sensorNum, eventType, eventData1..3]
		if len(data) < 1 {
			return ipmi.ErrorResponse(ipmi.CCReqDataLenInvalid)
		}
		generatorID = uint16(data[0])
		fields = data[1:]
	}
	if len(fields) < 5 || len(fields) > 7 {
		return ipmi.ErrorResponse(ipmi.CCReqDataLenInvalid)
	}

	sensorNumber := fields[2]
	eventType := fields[3]
	assert := eventType&eventDirectionDeassert == 0

	eventData := []byte{fields[4], 0xFF, 0xFF}
	if len(fields) > 5 {
		eventData[1] = fields[5]
	}
	if len(fields) > 6 {
		eventData[2] = fields[6]
	}

	// an unresolvable sensor number still logs, with an empty path
	var path string
	if _, p, err := h.topology.Resolve(ctx, sensorNumber); err == nil {
		path = p
	}

	if err := h.sel.AddEntry(ctx, selAddMessage, path, eventData, assert, generatorID); err != nil {
		slog.Error("failed to add SEL entry", "path", path, "err", err)
		return ipmi.ErrorResponse(ipmi.CCUnspecifiedError)
	}
	return ipmi.OKResponse(nil)
}

// UnsupportedCommand claims a command code without implementing the
// operation behind it.
func (h *Handler) UnsupportedCommand(ctx context.Context, req ipmi.Request) ipmi.Response {
	return ipmi.ErrorResponse(ipmi.CCInvalidCommand)
}
