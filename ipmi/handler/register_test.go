package handler

import (
	"bytes"
	"context"
	"testing"

	"github.com/vb15s/intel-ipmi-oem/ipmi"
)

func TestRegisterBindsCommandTable(t *testing.T) {
	env := newRepositoryEnv()
	router := ipmi.NewRouter()
	env.handler.Register(router)
	ctx := context.Background()

	names := []struct {
		netfn ipmi.NetFn
		cmd   ipmi.Command
		want  string
	}{
		{ipmi.NetFnSensor, ipmi.CmdPlatformEvent, "PlatformEvent"},
		{ipmi.NetFnSensor, ipmi.CmdGetSensorReading, "GetSensorReading"},
		{ipmi.NetFnSensor, ipmi.CmdSetSensorThresholds, "SetSensorThresholds"},
		{ipmi.NetFnSensor, ipmi.CmdGetSensorEventStatus, "GetSensorEventStatus"},
		{ipmi.NetFnSensor, ipmi.CmdGetDeviceSDR, "GetDeviceSDR"},
		{ipmi.NetFnStorage, ipmi.CmdGetSDRRepositoryInfo, "GetSDRRepositoryInfo"},
		{ipmi.NetFnStorage, ipmi.CmdGetSDR, "GetSDR"},
	}
	for _, n := range names {
		if got := router.CommandName(n.netfn, n.cmd); got != n.want {
			t.Errorf("CommandName(%v, 0x%02X) = %q, want %q", n.netfn, byte(n.cmd), got, n.want)
		}
	}

	// claimed stubs complete with invalid command
	resp := router.Execute(ctx, ipmi.Request{NetFn: ipmi.NetFnSensor, Cmd: ipmi.CmdGetSensorType, Data: []byte{0}})
	if resp.Code != ipmi.CCInvalidCommand {
		t.Errorf("GetSensorType stub: completion code = %v, want invalid command", resp.Code)
	}
}

func TestRegisterSharesReservationSpace(t *testing.T) {
	env := newRepositoryEnv()
	router := ipmi.NewRouter()
	env.handler.Register(router)
	ctx := context.Background()

	// a reservation issued on the sensor netfn authorizes partial reads on
	// the storage netfn
	resp := router.Execute(ctx, ipmi.Request{NetFn: ipmi.NetFnSensor, Cmd: ipmi.CmdReserveDeviceSDRRepo})
	if resp.Code != ipmi.CCOK {
		t.Fatalf("reserve: completion code = %v", resp.Code)
	}

	data := append(append([]byte{}, resp.Data...), 0, 0, 5, 10)
	read := router.Execute(ctx, ipmi.Request{NetFn: ipmi.NetFnStorage, Cmd: ipmi.CmdGetSDR, Data: data})
	if read.Code != ipmi.CCOK {
		t.Errorf("partial read with shared reservation: completion code = %v", read.Code)
	}
}

func TestRegisterDeviceSDRFlavor(t *testing.T) {
	env := newRepositoryEnv()
	router := ipmi.NewRouter()
	env.handler.Register(router)

	resp := router.Execute(context.Background(), ipmi.Request{
		NetFn: ipmi.NetFnSensor,
		Cmd:   ipmi.CmdGetDeviceSDR,
		Data:  []byte{0, 0, 0, 0, 0, 0xFF},
	})
	if resp.Code != ipmi.CCOK {
		t.Fatalf("completion code = %v", resp.Code)
	}
	if !bytes.Equal(resp.Data[0:2], []byte{1, 0}) {
		t.Errorf("next record = %02X, want 01 00", resp.Data[0:2])
	}
}
