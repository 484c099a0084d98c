package handler

import (
	"fmt"

	"github.com/vb15s/intel-ipmi-oem/ipmi"
)

// ThresholdValues holds the raw-encoded bytes for the thresholds a sensor
// exposes. Nil means the backend does not publish that threshold.
type ThresholdValues struct {
	WarningHigh  *byte
	WarningLow   *byte
	CriticalHigh *byte
	CriticalLow  *byte
}

// SensorRange reports the declared reading range from a value interface's
// properties, falling back to the protocol defaults when the backend omits
// MinValue or MaxValue.
func SensorRange(values PropertyMap) (min, max float64) {
	min, max = DefaultMinReading, DefaultMaxReading
	if v, ok := floatValue(values["MaxValue"]); ok {
		max = v
	}
	if v, ok := floatValue(values["MinValue"]); ok {
		min = v
	}
	return min, max
}

// ReadingFactorsFor derives the linearization factors for a sensor object.
func ReadingFactorsFor(objects InterfaceMap) (ipmi.ReadingFactors, error) {
	values, ok := objects[SensorValueInterface]
	if !ok {
		return ipmi.ReadingFactors{}, fmt.Errorf("no value interface: %w", ErrObjectNotFound)
	}
	min, max := SensorRange(values)
	return ipmi.DeriveReadingFactors(min, max)
}

// SensorThresholds reads and raw-encodes every threshold property present on
// the sensor. A sensor exposing a threshold interface without a value
// interface is a backend inconsistency and fails.
func SensorThresholds(objects InterfaceMap) (ThresholdValues, error) {
	var vals ThresholdValues

	warning, hasWarning := objects[WarningThresholdInterface]
	critical, hasCritical := objects[CriticalThresholdInterface]
	if !hasWarning && !hasCritical {
		return vals, nil
	}

	factors, err := ReadingFactorsFor(objects)
	if err != nil {
		return vals, err
	}

	encode := func(values PropertyMap, property string) (*byte, error) {
		v, ok := values[property]
		if !ok {
			return nil, nil
		}
		f, ok := floatValue(v)
		if !ok {
			return nil, fmt.Errorf("threshold %s is not numeric", property)
		}
		raw := factors.EncodeReading(f)
		return &raw, nil
	}

	if hasWarning {
		if vals.WarningHigh, err = encode(warning, "WarningHigh"); err != nil {
			return vals, err
		}
		if vals.WarningLow, err = encode(warning, "WarningLow"); err != nil {
			return vals, err
		}
	}
	if hasCritical {
		if vals.CriticalHigh, err = encode(critical, "CriticalHigh"); err != nil {
			return vals, err
		}
		if vals.CriticalLow, err = encode(critical, "CriticalLow"); err != nil {
			return vals, err
		}
	}
	return vals, nil
}

// SupportedEventMasks reports the event mask bytes and the readable
// threshold bits for the thresholds present on a sensor. Each threshold
// occupies the same position in the assertion and deassertion masks, so one
// mask serves both directions.
func SupportedEventMasks(objects InterfaceMap) (mask [2]byte, readable byte) {
	if warning, ok := objects[WarningThresholdInterface]; ok {
		if _, ok := warning["WarningHigh"]; ok {
			mask[0] |= ipmi.EventUpperNonCriticalGoingHigh
			readable |= ipmi.ThresholdBitUpperNonCritical
		}
		if _, ok := warning["WarningLow"]; ok {
			mask[0] |= ipmi.EventLowerNonCriticalGoingLow
			readable |= ipmi.ThresholdBitLowerNonCritical
		}
	}
	if critical, ok := objects[CriticalThresholdInterface]; ok {
		if _, ok := critical["CriticalHigh"]; ok {
			mask[1] |= ipmi.EventUpperCriticalGoingHigh
			readable |= ipmi.ThresholdBitUpperCritical
		}
		if _, ok := critical["CriticalLow"]; ok {
			mask[0] |= ipmi.EventLowerCriticalGoingLow
			readable |= ipmi.ThresholdBitLowerCritical
		}
	}
	return mask, readable
}

// alarmValue reads a boolean alarm property, absent or non-boolean
// properties count as not alarming.
func alarmValue(values PropertyMap, property string) bool {
	v, ok := values[property].(bool)
	return ok && v
}

// AlarmBits packs the currently alarming thresholds into the comparison
// bitmask of the reading response.
func AlarmBits(objects InterfaceMap) byte {
	var bits byte
	if warning, ok := objects[WarningThresholdInterface]; ok {
		if alarmValue(warning, "WarningAlarmHigh") {
			bits |= ipmi.ThresholdBitUpperNonCritical
		}
		if alarmValue(warning, "WarningAlarmLow") {
			bits |= ipmi.ThresholdBitLowerNonCritical
		}
	}
	if critical, ok := objects[CriticalThresholdInterface]; ok {
		if alarmValue(critical, "CriticalAlarmHigh") {
			bits |= ipmi.ThresholdBitUpperCritical
		}
		if alarmValue(critical, "CriticalAlarmLow") {
			bits |= ipmi.ThresholdBitLowerCritical
		}
	}
	return bits
}

// AssertedEventBits packs the currently alarming thresholds into event
// status assertion bytes.
func AssertedEventBits(objects InterfaceMap) (lsb, msb byte) {
	if warning, ok := objects[WarningThresholdInterface]; ok {
		if alarmValue(warning, "WarningAlarmHigh") {
			lsb |= ipmi.EventUpperNonCriticalGoingHigh
		}
		if alarmValue(warning, "WarningAlarmLow") {
			lsb |= ipmi.EventLowerNonCriticalGoingLow
		}
	}
	if critical, ok := objects[CriticalThresholdInterface]; ok {
		if alarmValue(critical, "CriticalAlarmHigh") {
			msb |= ipmi.EventUpperCriticalGoingHigh
		}
		if alarmValue(critical, "CriticalAlarmLow") {
			lsb |= ipmi.EventLowerCriticalGoingLow
		}
	}
	return lsb, msb
}

// DeassertedEventBits packs the latched deassertions for a sensor into event
// status deassertion bytes. A threshold contributes a bit only when its
// latch exists and is currently false.
func DeassertedEventBits(path string, latches *DeassertionLatches) (lsb, msb byte) {
	deasserted := func(alarm string) bool {
		asserted, ok := latches.Latched(path, alarm)
		return ok && !asserted
	}
	if deasserted("WarningAlarmHigh") {
		lsb |= ipmi.EventUpperNonCriticalGoingHigh
	}
	if deasserted("WarningAlarmLow") {
		lsb |= ipmi.EventLowerNonCriticalGoingLow
	}
	if deasserted("CriticalAlarmHigh") {
		msb |= ipmi.EventUpperCriticalGoingHigh
	}
	if deasserted("CriticalAlarmLow") {
		lsb |= ipmi.EventLowerCriticalGoingLow
	}
	return lsb, msb
}
