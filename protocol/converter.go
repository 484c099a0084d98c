package protocol

import (
	"github.com/vb15s/intel-ipmi-oem/ipmi"
	"github.com/vb15s/intel-ipmi-oem/ipmi/handler"
)

// ExecuteToRequest converts an ExecutePayload to an ipmi.Request.
func ExecuteToRequest(payload ExecutePayload) ipmi.Request {
	return ipmi.Request{
		NetFn: ipmi.NetFn(payload.NetFn),
		Cmd:   ipmi.Command(payload.Cmd),
		Data:  []byte(payload.Data),
	}
}

// ResponseToResult converts an ipmi.Response to an ExecuteResultData.
func ResponseToResult(resp ipmi.Response) ExecuteResultData {
	return ExecuteResultData{
		Code:     HexByte(resp.Code),
		CodeName: resp.Code.String(),
		Data:     HexBytes(resp.Data),
	}
}

// ResultToResponse rebuilds the router response from an ExecuteResultData.
func ResultToResponse(result ExecuteResultData) ipmi.Response {
	return ipmi.Response{
		Code: ipmi.CompletionCode(result.Code),
		Data: []byte(result.Data),
	}
}

// NotificationToPayload converts a handler.Notification to a
// SensorNotificationPayload.
func NotificationToPayload(n handler.Notification) SensorNotificationPayload {
	payload := SensorNotificationPayload{
		Kind: NotificationKindTopology,
		Path: n.Path,
	}
	if n.Type == handler.NotificationThresholdEvent {
		payload.Kind = NotificationKindThreshold
		payload.Alarm = n.Alarm
		payload.Asserted = n.Asserted
	}
	return payload
}

// CommandInfoToProtocol converts an ipmi.CommandInfo to a protocol
// CommandInfo.
func CommandInfoToProtocol(info ipmi.CommandInfo) CommandInfo {
	return CommandInfo{
		NetFn:     HexByte(info.NetFn),
		Cmd:       HexByte(info.Cmd),
		Name:      info.Name,
		Privilege: info.Privilege.String(),
	}
}
