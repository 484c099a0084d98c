package client

import (
	"encoding/json"
	"fmt"

	"github.com/vb15s/intel-ipmi-oem/ipmi"
	"github.com/vb15s/intel-ipmi-oem/ipmi/utils"
	"github.com/vb15s/intel-ipmi-oem/protocol"
)

// CompletionError reports a command that completed with a non-OK code.
// The exchange itself succeeded; the BMC rejected the request.
type CompletionError struct {
	Code ipmi.CompletionCode
}

func (e *CompletionError) Error() string {
	return fmt.Sprintf("command failed: %s", e.Code)
}

// Execute sends one raw IPMI request through the bridge and returns the
// response, completion code included.
func (c *WebSocketClient) Execute(req ipmi.Request) (ipmi.Response, error) {
	payload := protocol.ExecutePayload{
		NetFn: protocol.HexByte(req.NetFn),
		Cmd:   protocol.HexByte(req.Cmd),
		Data:  protocol.HexBytes(req.Data),
	}

	response, err := c.sendRequest(protocol.MessageTypeExecute, payload)
	if err != nil {
		return ipmi.Response{}, err
	}

	var result protocol.CommandResultPayload
	if err := protocol.ParsePayload(response, &result); err != nil {
		return ipmi.Response{}, fmt.Errorf("error parsing command result: %v", err)
	}
	if !result.Success {
		if result.Error != nil {
			return ipmi.Response{}, fmt.Errorf("server error: %s (%s)", result.Error.Message, result.Error.Code)
		}
		return ipmi.Response{}, fmt.Errorf("server reported failure without error detail")
	}

	var resultData protocol.ExecuteResultData
	if err := json.Unmarshal(result.Data, &resultData); err != nil {
		return ipmi.Response{}, fmt.Errorf("error parsing execute result: %v", err)
	}

	return protocol.ResultToResponse(resultData), nil
}

// executeOK runs a request and turns a non-OK completion code into a
// CompletionError.
func (c *WebSocketClient) executeOK(req ipmi.Request) ([]byte, error) {
	resp, err := c.Execute(req)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", req, err)
	}
	if resp.Code != ipmi.CCOK {
		return nil, &CompletionError{Code: resp.Code}
	}
	return resp.Data, nil
}

// SensorReading is the decoded Get Sensor Reading response.
type SensorReading struct {
	Reading              byte
	EventMessagesEnabled bool
	ScanningEnabled      bool
	ThresholdBits        byte
}

// GetSensorReading reads one sensor by number.
func (c *WebSocketClient) GetSensorReading(sensor byte) (*SensorReading, error) {
	data, err := c.executeOK(ipmi.Request{NetFn: ipmi.NetFnSensor, Cmd: ipmi.CmdGetSensorReading, Data: []byte{sensor}})
	if err != nil {
		return nil, err
	}
	if len(data) < 3 {
		return nil, fmt.Errorf("short sensor reading response: %d bytes", len(data))
	}
	return &SensorReading{
		Reading:              data[0],
		EventMessagesEnabled: data[1]&ipmi.ReadingEventMessagesEnable != 0,
		ScanningEnabled:      data[1]&ipmi.ReadingScanningEnable != 0,
		ThresholdBits:        data[2],
	}, nil
}

// SensorThresholds is the decoded Get Sensor Thresholds response. A nil
// field means the sensor does not carry that threshold.
type SensorThresholds struct {
	LowerNonCritical *byte
	LowerCritical    *byte
	UpperNonCritical *byte
	UpperCritical    *byte
}

// GetSensorThresholds reads the raw threshold bytes of one sensor.
func (c *WebSocketClient) GetSensorThresholds(sensor byte) (*SensorThresholds, error) {
	data, err := c.executeOK(ipmi.Request{NetFn: ipmi.NetFnSensor, Cmd: ipmi.CmdGetSensorThresholds, Data: []byte{sensor}})
	if err != nil {
		return nil, err
	}
	if len(data) != 7 {
		return nil, fmt.Errorf("unexpected thresholds response: %d bytes", len(data))
	}

	// [readable, lowerNC, lowerCrit, lowerNR, upperNC, upperCrit, upperNR]
	t := &SensorThresholds{}
	if data[0]&ipmi.ThresholdBitLowerNonCritical != 0 {
		v := data[1]
		t.LowerNonCritical = &v
	}
	if data[0]&ipmi.ThresholdBitLowerCritical != 0 {
		v := data[2]
		t.LowerCritical = &v
	}
	if data[0]&ipmi.ThresholdBitUpperNonCritical != 0 {
		v := data[4]
		t.UpperNonCritical = &v
	}
	if data[0]&ipmi.ThresholdBitUpperCritical != 0 {
		v := data[5]
		t.UpperCritical = &v
	}
	return t, nil
}

// SetSensorThresholds writes the thresholds selected by mask. values holds
// the six raw threshold bytes in wire order: lower non-critical, lower
// critical, lower non-recoverable, upper non-critical, upper critical,
// upper non-recoverable.
func (c *WebSocketClient) SetSensorThresholds(sensor byte, mask byte, values [6]byte) error {
	data := append([]byte{sensor, mask}, values[:]...)
	_, err := c.executeOK(ipmi.Request{NetFn: ipmi.NetFnSensor, Cmd: ipmi.CmdSetSensorThresholds, Data: data})
	return err
}

// SensorEventEnable is the decoded Get Sensor Event Enable response.
type SensorEventEnable struct {
	EventMessagesEnabled bool
	ScanningEnabled      bool
	AssertionMask        uint16
	DeassertionMask      uint16
}

// GetSensorEventEnable reads which threshold events a sensor can raise.
func (c *WebSocketClient) GetSensorEventEnable(sensor byte) (*SensorEventEnable, error) {
	data, err := c.executeOK(ipmi.Request{NetFn: ipmi.NetFnSensor, Cmd: ipmi.CmdGetSensorEventEnable, Data: []byte{sensor}})
	if err != nil {
		return nil, err
	}
	if len(data) < 1 {
		return nil, fmt.Errorf("empty event enable response")
	}

	e := &SensorEventEnable{
		EventMessagesEnabled: data[0]&ipmi.ReadingEventMessagesEnable != 0,
		ScanningEnabled:      data[0]&ipmi.ReadingScanningEnable != 0,
	}
	if len(data) >= 5 {
		e.AssertionMask = utils.LEToUint16(data[1:3])
		e.DeassertionMask = utils.LEToUint16(data[3:5])
	}
	return e, nil
}

// SensorEventStatus is the decoded Get Sensor Event Status response.
type SensorEventStatus struct {
	EventMessagesEnabled bool
	Asserted             uint16
	Deasserted           uint16
}

// GetSensorEventStatus reads the asserted thresholds and the latched
// deassertions of one sensor.
func (c *WebSocketClient) GetSensorEventStatus(sensor byte) (*SensorEventStatus, error) {
	data, err := c.executeOK(ipmi.Request{NetFn: ipmi.NetFnSensor, Cmd: ipmi.CmdGetSensorEventStatus, Data: []byte{sensor}})
	if err != nil {
		return nil, err
	}
	if len(data) < 4 {
		return nil, fmt.Errorf("short event status response: %d bytes", len(data))
	}

	st := &SensorEventStatus{
		EventMessagesEnabled: data[0]&ipmi.ReadingEventMessagesEnable != 0,
		Asserted:             utils.LEToUint16(data[1:3]),
	}
	if len(data) >= 5 {
		st.Deasserted = utils.LEToUint16(data[3:5])
	} else {
		// discrete form carries a single deassertion byte
		st.Deasserted = uint16(data[3])
	}
	return st, nil
}

// SendPlatformEvent logs a platform event to the system event log. The
// event bytes are sent as-is; both the seven-byte form with a generator ID
// and the six-byte form without one are accepted by the server.
func (c *WebSocketClient) SendPlatformEvent(event []byte) error {
	_, err := c.executeOK(ipmi.Request{NetFn: ipmi.NetFnSensor, Cmd: ipmi.CmdPlatformEvent, Data: event})
	return err
}

// SDRRepositoryInfo is the decoded Get SDR Repository Info response.
// Timestamps are seconds since the epoch, 0xFFFFFFFF when never set.
type SDRRepositoryInfo struct {
	Version     byte
	RecordCount uint16
	FreeSpace   uint16
	LastAdd     uint32
	LastErase   uint32
	Operations  byte
}

// GetSDRRepositoryInfo reads the repository record count and timestamps.
func (c *WebSocketClient) GetSDRRepositoryInfo() (*SDRRepositoryInfo, error) {
	data, err := c.executeOK(ipmi.Request{NetFn: ipmi.NetFnStorage, Cmd: ipmi.CmdGetSDRRepositoryInfo})
	if err != nil {
		return nil, err
	}
	if len(data) != 14 {
		return nil, fmt.Errorf("unexpected repository info response: %d bytes", len(data))
	}
	return &SDRRepositoryInfo{
		Version:     data[0],
		RecordCount: utils.LEToUint16(data[1:3]),
		FreeSpace:   utils.LEToUint16(data[3:5]),
		LastAdd:     utils.LEToUint32(data[5:9]),
		LastErase:   utils.LEToUint32(data[9:13]),
		Operations:  data[13],
	}, nil
}

// SDRAllocationInfo is the decoded Get SDR Repository Allocation Info
// response.
type SDRAllocationInfo struct {
	AllocationUnits  uint16
	UnitSize         uint16
	FreeUnits        uint16
	LargestFreeBlock uint16
	MaxRecordSize    byte
}

// GetSDRAllocationInfo reads the repository allocation figures.
func (c *WebSocketClient) GetSDRAllocationInfo() (*SDRAllocationInfo, error) {
	data, err := c.executeOK(ipmi.Request{NetFn: ipmi.NetFnStorage, Cmd: ipmi.CmdGetSDRAllocationInfo})
	if err != nil {
		return nil, err
	}
	if len(data) != 9 {
		return nil, fmt.Errorf("unexpected allocation info response: %d bytes", len(data))
	}
	return &SDRAllocationInfo{
		AllocationUnits:  utils.LEToUint16(data[0:2]),
		UnitSize:         utils.LEToUint16(data[2:4]),
		FreeUnits:        utils.LEToUint16(data[4:6]),
		LargestFreeBlock: utils.LEToUint16(data[6:8]),
		MaxRecordSize:    data[8],
	}, nil
}

// ReserveSDRRepository obtains a reservation ID for partial record reads.
func (c *WebSocketClient) ReserveSDRRepository() (uint16, error) {
	data, err := c.executeOK(ipmi.Request{NetFn: ipmi.NetFnStorage, Cmd: ipmi.CmdReserveSDRRepository})
	if err != nil {
		return 0, err
	}
	if len(data) != 2 {
		return 0, fmt.Errorf("unexpected reservation response: %d bytes", len(data))
	}
	return utils.LEToUint16(data), nil
}

// GetSDR reads up to count bytes of one record starting at offset. It
// returns the ID of the next record and the window read.
func (c *WebSocketClient) GetSDR(reservation, recordID uint16, offset, count byte) (uint16, []byte, error) {
	req := utils.FlattenBytes([][]byte{
		utils.Uint16ToLE(reservation),
		utils.Uint16ToLE(recordID),
		{offset, count},
	})

	data, err := c.executeOK(ipmi.Request{NetFn: ipmi.NetFnStorage, Cmd: ipmi.CmdGetSDR, Data: req})
	if err != nil {
		return 0, nil, err
	}
	if len(data) < 2 {
		return 0, nil, fmt.Errorf("short record response: %d bytes", len(data))
	}
	return utils.LEToUint16(data[0:2]), data[2:], nil
}
