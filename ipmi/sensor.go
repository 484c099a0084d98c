package ipmi

import (
	"fmt"
	"strings"
)

// SensorType classifies what a sensor monitors (IPMI v2.0 table 42-3).
type SensorType byte

const (
	SensorTypeReserved    SensorType = 0x00
	SensorTypeTemperature SensorType = 0x01
	SensorTypeVoltage     SensorType = 0x02
	SensorTypeCurrent     SensorType = 0x03
	SensorTypeFan         SensorType = 0x04
	SensorTypeOther       SensorType = 0x0B // other units-based sensor
)

func (t SensorType) String() string {
	switch t {
	case SensorTypeReserved:
		return "Reserved"
	case SensorTypeTemperature:
		return "Temperature"
	case SensorTypeVoltage:
		return "Voltage"
	case SensorTypeCurrent:
		return "Current"
	case SensorTypeFan:
		return "Fan"
	case SensorTypeOther:
		return "Other"
	default:
		return fmt.Sprintf("(%02X)", byte(t))
	}
}

// EventReadingType is the event/reading type code of a sensor.
type EventReadingType byte

const (
	EventReadingUnspecified EventReadingType = 0x00
	EventReadingThreshold   EventReadingType = 0x01
)

// SensorUnit is a sensor base unit type code (IPMI v2.0 table 43-15).
type SensorUnit byte

const (
	UnitUnspecified SensorUnit = 0
	UnitDegreesC    SensorUnit = 1
	UnitVolts       SensorUnit = 4
	UnitAmps        SensorUnit = 5
	UnitWatts       SensorUnit = 6
	UnitRPM         SensorUnit = 18
)

func (u SensorUnit) String() string {
	switch u {
	case UnitUnspecified:
		return "unspecified"
	case UnitDegreesC:
		return "degrees C"
	case UnitVolts:
		return "Volts"
	case UnitAmps:
		return "Amps"
	case UnitWatts:
		return "Watts"
	case UnitRPM:
		return "RPM"
	default:
		return fmt.Sprintf("(%02X)", byte(u))
	}
}

// Sensor status byte of the Get Sensor Reading response.
const (
	ReadingEventMessagesEnable byte = 1 << 7
	ReadingScanningEnable      byte = 1 << 6
)

// Threshold comparison bits, used both in the Get Sensor Reading status byte
// and as the readable/settable threshold masks.
const (
	ThresholdBitLowerNonCritical    byte = 1 << 0
	ThresholdBitLowerCritical       byte = 1 << 1
	ThresholdBitLowerNonRecoverable byte = 1 << 2
	ThresholdBitUpperNonCritical    byte = 1 << 3
	ThresholdBitUpperCritical       byte = 1 << 4
	ThresholdBitUpperNonRecoverable byte = 1 << 5

	// Set Sensor Thresholds reserved selector bits.
	ThresholdSelectReserved byte = 0xC0
)

// Threshold event bit positions. Each value is a position within the byte
// that carries it: the lower and upper non-critical events live in the first
// (LSB) byte, the upper critical and upper non-recoverable events in the
// second (MSB) byte. A threshold occupies the same position in assertion and
// deassertion masks.
const (
	// LSB byte
	EventLowerNonCriticalGoingLow     byte = 1 << 0
	EventLowerNonCriticalGoingHigh    byte = 1 << 1
	EventLowerCriticalGoingLow        byte = 1 << 2
	EventLowerCriticalGoingHigh       byte = 1 << 3
	EventLowerNonRecoverableGoingLow  byte = 1 << 4
	EventLowerNonRecoverableGoingHigh byte = 1 << 5
	EventUpperNonCriticalGoingLow     byte = 1 << 6
	EventUpperNonCriticalGoingHigh    byte = 1 << 7

	// MSB byte
	EventUpperCriticalGoingLow        byte = 1 << 0
	EventUpperCriticalGoingHigh       byte = 1 << 1
	EventUpperNonRecoverableGoingLow  byte = 1 << 2
	EventUpperNonRecoverableGoingHigh byte = 1 << 3
)

// SensorPathPrefix is where the backend exposes sensor objects. The segment
// that follows it is the sensor category, the final segment the sensor name.
const SensorPathPrefix = "/xyz/openbmc_project/sensors/"

var sensorTypeByCategory = map[string]SensorType{
	"temperature": SensorTypeTemperature,
	"voltage":     SensorTypeVoltage,
	"current":     SensorTypeCurrent,
	"fan_tach":    SensorTypeFan,
	"fan_pwm":     SensorTypeFan,
	"power":       SensorTypeOther,
}

var unitByCategory = map[string]SensorUnit{
	"temperature": UnitDegreesC,
	"voltage":     UnitVolts,
	"current":     UnitAmps,
	"fan_tach":    UnitRPM,
	"power":       UnitWatts,
}

// CategoryFromPath extracts the category segment from a sensor object path.
// Paths outside SensorPathPrefix have no category.
func CategoryFromPath(path string) string {
	rest, ok := strings.CutPrefix(path, SensorPathPrefix)
	if !ok {
		return ""
	}
	category, _, found := strings.Cut(rest, "/")
	if !found {
		return ""
	}
	return category
}

// SensorTypeForPath maps a sensor object path to its type code. Unknown
// categories report SensorTypeReserved.
func SensorTypeForPath(path string) SensorType {
	return sensorTypeByCategory[CategoryFromPath(path)]
}

// EventReadingTypeForPath reports the event/reading type for a sensor object
// path. All known categories are threshold-based.
func EventReadingTypeForPath(path string) EventReadingType {
	if SensorTypeForPath(path) == SensorTypeReserved {
		return EventReadingUnspecified
	}
	return EventReadingThreshold
}

// UnitForPath maps a sensor object path to its base unit code.
func UnitForPath(path string) SensorUnit {
	return unitByCategory[CategoryFromPath(path)]
}

// SensorNameMaxLength is the id-string capacity of a full sensor record.
const SensorNameMaxLength = 16

// SensorNameFromPath derives the display name from the last path segment,
// with underscores replaced by spaces and truncated to the record capacity.
func SensorNameFromPath(path string) string {
	name := path[strings.LastIndexByte(path, '/')+1:]
	name = strings.ReplaceAll(name, "_", " ")
	if len(name) > SensorNameMaxLength {
		name = name[:SensorNameMaxLength]
	}
	return name
}
