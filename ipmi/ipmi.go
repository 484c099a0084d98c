package ipmi

import (
	"fmt"
)

// IPMI v2.0 specification:
// https://www.intel.com/content/www/us/en/products/docs/servers/ipmi/ipmi-second-gen-interface-spec-v2-rev1-1.html

// NetFn is the network function class of a command. Requests use even
// values; the matching response class is the next odd value.
type NetFn byte

const (
	NetFnChassis NetFn = 0x00
	NetFnSensor  NetFn = 0x04
	NetFnApp     NetFn = 0x06
	NetFnStorage NetFn = 0x0A
)

// Response returns the response-class NetFn for a request-class NetFn.
func (n NetFn) Response() NetFn {
	return n | 0x01
}

func (n NetFn) String() string {
	switch n &^ 0x01 {
	case NetFnChassis:
		return "Chassis"
	case NetFnSensor:
		return "Sensor"
	case NetFnApp:
		return "App"
	case NetFnStorage:
		return "Storage"
	default:
		return fmt.Sprintf("(%02X)", byte(n))
	}
}

// Command is a command code within a NetFn class. The same code can mean
// different commands under different classes.
type Command byte

// Sensor NetFn commands.
const (
	CmdPlatformEvent        Command = 0x02
	CmdGetDeviceSDRInfo     Command = 0x20
	CmdGetDeviceSDR         Command = 0x21
	CmdReserveDeviceSDRRepo Command = 0x22
	CmdSetSensorThresholds  Command = 0x26
	CmdGetSensorThresholds  Command = 0x27
	CmdGetSensorEventEnable Command = 0x29
	CmdGetSensorEventStatus Command = 0x2B
	CmdGetSensorReading     Command = 0x2D
	CmdGetSensorType        Command = 0x2F
	CmdSetSensorReading     Command = 0x30
)

// Storage NetFn commands.
const (
	CmdGetSDRRepositoryInfo Command = 0x20
	CmdGetSDRAllocationInfo Command = 0x21
	CmdReserveSDRRepository Command = 0x22
	CmdGetSDR               Command = 0x23
)

// CompletionCode is the first byte of every response.
type CompletionCode byte

const (
	CCOK                 CompletionCode = 0x00
	CCInvalidCommand     CompletionCode = 0xC1
	CCInvalidReservation CompletionCode = 0xC5
	CCReqDataLenInvalid  CompletionCode = 0xC7
	CCParamOutOfRange    CompletionCode = 0xC9
	CCSensorNotPresent   CompletionCode = 0xCB
	CCInvalidField       CompletionCode = 0xCC
	CCResponseError      CompletionCode = 0xCE
	CCUnspecifiedError   CompletionCode = 0xFF
)

func (c CompletionCode) String() string {
	switch c {
	case CCOK:
		return "OK"
	case CCInvalidCommand:
		return "invalid command"
	case CCInvalidReservation:
		return "reservation canceled or invalid"
	case CCReqDataLenInvalid:
		return "request data length invalid"
	case CCParamOutOfRange:
		return "parameter out of range"
	case CCSensorNotPresent:
		return "sensor not present"
	case CCInvalidField:
		return "invalid data field in request"
	case CCResponseError:
		return "command response could not be provided"
	case CCUnspecifiedError:
		return "unspecified error"
	default:
		return fmt.Sprintf("(%02X)", byte(c))
	}
}

// Privilege is the minimum channel privilege a command requires.
type Privilege byte

const (
	PrivilegeUser     Privilege = 0x02
	PrivilegeOperator Privilege = 0x03
	PrivilegeAdmin    Privilege = 0x04
)

func (p Privilege) String() string {
	switch p {
	case PrivilegeUser:
		return "user"
	case PrivilegeOperator:
		return "operator"
	case PrivilegeAdmin:
		return "admin"
	default:
		return fmt.Sprintf("(%02X)", byte(p))
	}
}

// Request is a single inbound command.
type Request struct {
	NetFn NetFn
	Cmd   Command
	Data  []byte
}

func (r Request) String() string {
	return fmt.Sprintf("%v/0x%02X len=%d", r.NetFn, byte(r.Cmd), len(r.Data))
}

// Response is the completion code plus any response data bytes.
type Response struct {
	Code CompletionCode
	Data []byte
}

// OKResponse builds a success response carrying data.
func OKResponse(data []byte) Response {
	return Response{Code: CCOK, Data: data}
}

// ErrorResponse builds an error response with no data.
func ErrorResponse(code CompletionCode) Response {
	return Response{Code: code}
}
