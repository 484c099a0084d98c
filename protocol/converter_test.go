package protocol

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/vb15s/intel-ipmi-oem/ipmi"
	"github.com/vb15s/intel-ipmi-oem/ipmi/handler"
)

func TestExecuteToRequest(t *testing.T) {
	got := ExecuteToRequest(ExecutePayload{
		NetFn: HexByte(0x04),
		Cmd:   HexByte(0x2D),
		Data:  HexBytes{0x05},
	})
	want := ipmi.Request{
		NetFn: ipmi.NetFnSensor,
		Cmd:   ipmi.CmdGetSensorReading,
		Data:  []byte{0x05},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ExecuteToRequest mismatch (-want +got):\n%s", diff)
	}
}

func TestResponseToResult(t *testing.T) {
	tests := []struct {
		name string
		resp ipmi.Response
		want ExecuteResultData
	}{
		{
			name: "Success with data",
			resp: ipmi.OKResponse([]byte{0x2A, 0xC0, 0x00}),
			want: ExecuteResultData{
				Code:     HexByte(0x00),
				CodeName: "OK",
				Data:     HexBytes{0x2A, 0xC0, 0x00},
			},
		},
		{
			name: "Error without data",
			resp: ipmi.ErrorResponse(ipmi.CCSensorNotPresent),
			want: ExecuteResultData{
				Code:     HexByte(0xCB),
				CodeName: "sensor not present",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResponseToResult(tt.resp)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ResponseToResult mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestResultToResponseInvertsResponseToResult(t *testing.T) {
	resp := ipmi.OKResponse([]byte{0x51, 0x02, 0x00})

	got := ResultToResponse(ResponseToResult(resp))

	if got.Code != resp.Code {
		t.Errorf("Code = %v, want %v", got.Code, resp.Code)
	}
	if diff := cmp.Diff(resp.Data, got.Data); diff != "" {
		t.Errorf("Data mismatch (-want +got):\n%s", diff)
	}
}

func TestNotificationToPayload(t *testing.T) {
	tests := []struct {
		name         string
		notification handler.Notification
		want         SensorNotificationPayload
	}{
		{
			name: "Topology change",
			notification: handler.Notification{
				Type: handler.NotificationTopologyChanged,
				Path: "/xyz/openbmc_project/sensors/temperature/CPU",
			},
			want: SensorNotificationPayload{
				Kind: NotificationKindTopology,
				Path: "/xyz/openbmc_project/sensors/temperature/CPU",
			},
		},
		{
			name: "Threshold assertion",
			notification: handler.Notification{
				Type:     handler.NotificationThresholdEvent,
				Path:     "/xyz/openbmc_project/sensors/voltage/PSU1",
				Alarm:    "CriticalAlarmHigh",
				Asserted: true,
			},
			want: SensorNotificationPayload{
				Kind:     NotificationKindThreshold,
				Path:     "/xyz/openbmc_project/sensors/voltage/PSU1",
				Alarm:    "CriticalAlarmHigh",
				Asserted: true,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NotificationToPayload(tt.notification)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("NotificationToPayload mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestCommandInfoToProtocol(t *testing.T) {
	got := CommandInfoToProtocol(ipmi.CommandInfo{
		NetFn:     ipmi.NetFnStorage,
		Cmd:       ipmi.CmdGetSDR,
		Name:      "GetSDR",
		Privilege: ipmi.PrivilegeUser,
	})
	want := CommandInfo{
		NetFn:     HexByte(0x0A),
		Cmd:       HexByte(0x23),
		Name:      "GetSDR",
		Privilege: "user",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("CommandInfoToProtocol mismatch (-want +got):\n%s", diff)
	}
}
