package ipmi

import (
	"fmt"
)

const (
	// SDRVersion is the SDR format version this repository implements.
	SDRVersion byte = 0x51

	RecordTypeFullSensor       byte = 0x01
	RecordTypeFRUDeviceLocator byte = 0x11

	// LastRecordID both addresses the final record in a Get SDR request and
	// marks the end of the repository in the next-record field.
	LastRecordID uint16 = 0xFFFF

	FullSensorRecordSize       = 64
	FRUDeviceLocatorRecordSize = 32

	sdrHeaderSize = 5

	// MaxSDRAllocationUnit is the largest record size plus transport
	// overhead, reported by Get SDR Allocation Info.
	MaxSDRAllocationUnit = 76
)

// Record owner for every record this repository serves: the BMC at the
// conventional slave address, LUN 0.
const (
	SensorOwnerID  byte = 0x20
	SensorOwnerLUN byte = 0x00
)

// FullSensorRecord is the type 0x01 SDR layout (IPMI v2.0 table 43-1),
// 64 bytes on the wire. Thresholds not flagged in ReadableThresholds encode
// as zero.
type FullSensorRecord struct {
	RecordID         uint16
	SensorNumber     byte
	SensorType       SensorType
	EventReadingType EventReadingType
	Unit             SensorUnit
	Factors          ReadingFactors

	AssertionMask      [2]byte
	DeassertionMask    [2]byte
	ReadableThresholds byte

	SensorMax byte
	SensorMin byte

	UpperNonRecoverable byte
	UpperCritical       byte
	UpperNonCritical    byte
	LowerNonRecoverable byte
	LowerCritical       byte
	LowerNonCritical    byte

	Name string
}

// sensorCapabilities: auto re-arm, threshold access per the record masks.
const sensorCapabilities byte = 0x68

// encodeMantissa splits a 10-bit two's-complement value into its LSB byte
// and the two high bits positioned at 7:6 of the shared MSB byte.
func encodeMantissa(v int16) (lsb, msbBits byte) {
	lsb = byte(v & 0xFF)
	if v&(1<<8) != 0 {
		msbBits |= 1 << 6
	}
	if v < 0 {
		msbBits |= 1 << 7
	}
	return lsb, msbBits
}

func decodeMantissa(lsb, msbBits byte) int16 {
	v := uint16(lsb) | uint16(msbBits&0xC0)<<2
	if v&(1<<9) != 0 {
		return int16(v) - 1024
	}
	return int16(v)
}

func decodeExponent(nibble byte) int8 {
	if nibble&0x8 != 0 {
		return int8(nibble&0xF) - 16
	}
	return int8(nibble & 0xF)
}

func (r *FullSensorRecord) Encode() []byte {
	b := make([]byte, FullSensorRecordSize)
	b[0] = byte(r.RecordID & 0xFF)
	b[1] = byte(r.RecordID >> 8)
	b[2] = SDRVersion
	b[3] = RecordTypeFullSensor
	b[4] = FullSensorRecordSize - sdrHeaderSize
	b[5] = SensorOwnerID
	b[6] = SensorOwnerLUN
	b[7] = r.SensorNumber

	b[8] = 0x00 // entity id
	b[9] = 0x01 // entity instance
	b[11] = sensorCapabilities
	b[12] = byte(r.SensorType)
	b[13] = byte(r.EventReadingType)
	b[14] = r.AssertionMask[0]
	b[15] = r.AssertionMask[1]
	b[16] = r.DeassertionMask[0]
	b[17] = r.DeassertionMask[1]
	b[18] = r.ReadableThresholds
	b[19] = r.ReadableThresholds // everything readable is settable

	if r.Factors.Signed {
		b[20] = 1 << 7 // 2's complement analog format
	}
	b[21] = byte(r.Unit)
	// b[22] modifier unit, b[23] linearization: linear

	var msbBits byte
	b[24], msbBits = encodeMantissa(r.Factors.M)
	b[25] = msbBits
	b[26], msbBits = encodeMantissa(r.Factors.B)
	b[27] = msbBits
	b[29] = byte(r.Factors.BExp) & 0x0F
	b[29] |= (byte(r.Factors.RExp) & 0x0F) << 4

	b[34] = r.SensorMax
	b[35] = r.SensorMin
	b[36] = r.UpperNonRecoverable
	b[37] = r.UpperCritical
	b[38] = r.UpperNonCritical
	b[39] = r.LowerNonRecoverable
	b[40] = r.LowerCritical
	b[41] = r.LowerNonCritical

	name := r.Name
	if len(name) > SensorNameMaxLength {
		name = name[:SensorNameMaxLength]
	}
	b[47] = byte(len(name))
	copy(b[48:], name)
	return b
}

// ParseFullSensorRecord decodes an encoded type 0x01 record. It accepts
// exactly the layout Encode produces.
func ParseFullSensorRecord(data []byte) (*FullSensorRecord, error) {
	if len(data) < FullSensorRecordSize {
		return nil, fmt.Errorf("record too short: %d bytes", len(data))
	}
	if data[3] != RecordTypeFullSensor {
		return nil, fmt.Errorf("record type 0x%02X is not a full sensor record", data[3])
	}

	r := &FullSensorRecord{
		RecordID:         uint16(data[0]) | uint16(data[1])<<8,
		SensorNumber:     data[7],
		SensorType:       SensorType(data[12]),
		EventReadingType: EventReadingType(data[13]),
		Unit:             SensorUnit(data[21]),
		Factors: ReadingFactors{
			M:      decodeMantissa(data[24], data[25]),
			B:      decodeMantissa(data[26], data[27]),
			BExp:   decodeExponent(data[29] & 0x0F),
			RExp:   decodeExponent(data[29] >> 4),
			Signed: data[20]&(1<<7) != 0,
		},
		AssertionMask:       [2]byte{data[14], data[15]},
		DeassertionMask:     [2]byte{data[16], data[17]},
		ReadableThresholds:  data[18],
		SensorMax:           data[34],
		SensorMin:           data[35],
		UpperNonRecoverable: data[36],
		UpperCritical:       data[37],
		UpperNonCritical:    data[38],
		LowerNonRecoverable: data[39],
		LowerCritical:       data[40],
		LowerNonCritical:    data[41],
	}

	nameLen := int(data[47] & 0x1F)
	if nameLen > SensorNameMaxLength {
		nameLen = SensorNameMaxLength
	}
	r.Name = string(data[48 : 48+nameLen])
	return r, nil
}

// FRUDeviceLocatorRecord is the type 0x11 SDR layout, 32 bytes on the wire.
// The body fields come from the FRU inventory; the record id is assigned by
// the repository when the record is served.
type FRUDeviceLocatorRecord struct {
	RecordID           uint16
	DeviceAddress      byte
	FRUID              byte
	AccessLUN          byte
	ChannelNumber      byte
	DeviceType         byte
	DeviceTypeModifier byte
	EntityID           byte
	EntityInstance     byte
	Name               string
}

func (r *FRUDeviceLocatorRecord) Encode() []byte {
	b := make([]byte, FRUDeviceLocatorRecordSize)
	b[0] = byte(r.RecordID & 0xFF)
	b[1] = byte(r.RecordID >> 8)
	b[2] = SDRVersion
	b[3] = RecordTypeFRUDeviceLocator
	b[4] = FRUDeviceLocatorRecordSize - sdrHeaderSize
	b[5] = r.DeviceAddress
	b[6] = r.FRUID
	b[7] = r.AccessLUN
	b[8] = r.ChannelNumber
	// b[9] reserved
	b[10] = r.DeviceType
	b[11] = r.DeviceTypeModifier
	b[12] = r.EntityID
	b[13] = r.EntityInstance
	// b[14] oem

	name := r.Name
	if len(name) > SensorNameMaxLength {
		name = name[:SensorNameMaxLength]
	}
	b[15] = byte(len(name))
	copy(b[16:], name)
	return b
}

// ParseFRUDeviceLocatorRecord decodes an encoded type 0x11 record.
func ParseFRUDeviceLocatorRecord(data []byte) (*FRUDeviceLocatorRecord, error) {
	if len(data) < FRUDeviceLocatorRecordSize {
		return nil, fmt.Errorf("record too short: %d bytes", len(data))
	}
	if data[3] != RecordTypeFRUDeviceLocator {
		return nil, fmt.Errorf("record type 0x%02X is not a FRU device locator", data[3])
	}

	r := &FRUDeviceLocatorRecord{
		RecordID:           uint16(data[0]) | uint16(data[1])<<8,
		DeviceAddress:      data[5],
		FRUID:              data[6],
		AccessLUN:          data[7],
		ChannelNumber:      data[8],
		DeviceType:         data[10],
		DeviceTypeModifier: data[11],
		EntityID:           data[12],
		EntityInstance:     data[13],
	}
	nameLen := int(data[15] & 0x1F)
	if nameLen > SensorNameMaxLength {
		nameLen = SensorNameMaxLength
	}
	r.Name = string(data[16 : 16+nameLen])
	return r, nil
}

// RecordType reports the type byte of an encoded record, for callers walking
// a mixed repository.
func RecordType(data []byte) (byte, error) {
	if len(data) < sdrHeaderSize {
		return 0, fmt.Errorf("record header too short: %d bytes", len(data))
	}
	return data[3], nil
}
