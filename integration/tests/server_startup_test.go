//go:build integration

package tests

import (
	"testing"

	"github.com/vb15s/intel-ipmi-oem/integration/helpers"
)

func TestServerStartAndStop(t *testing.T) {
	server, err := helpers.NewTestServer()
	helpers.AssertNoError(t, err, "creating test server")

	server.Store.AddSensor("svc.hwmon",
		"/xyz/openbmc_project/sensors/temperature/CPU0",
		helpers.ThresholdSensorObjects(42.5))

	helpers.AssertFalse(t, server.IsRunning(), "server running before Start")

	err = server.Start()
	helpers.AssertNoError(t, err, "starting the server")
	helpers.AssertTrue(t, server.IsRunning(), "server not running after Start")

	err = server.Stop()
	helpers.AssertNoError(t, err, "stopping the server")
	helpers.AssertFalse(t, server.IsRunning(), "server still running after Stop")

	// second Stop is a no-op
	err = server.Stop()
	helpers.AssertNoError(t, err, "stopping the server twice")
}

func TestServerDoubleStartFails(t *testing.T) {
	server, err := helpers.NewTestServer()
	helpers.AssertNoError(t, err, "creating test server")

	err = server.Start()
	helpers.AssertNoError(t, err, "starting the server")
	defer server.Stop()

	err = server.Start()
	helpers.AssertError(t, err, "second Start")
}

func TestServerRefusesConnectionsAfterStop(t *testing.T) {
	server, err := helpers.NewTestServer()
	helpers.AssertNoError(t, err, "creating test server")

	err = server.Start()
	helpers.AssertNoError(t, err, "starting the server")

	wsConn, err := helpers.NewWebSocketConnection(server.GetWebSocketURL())
	helpers.AssertNoError(t, err, "connecting while running")
	wsConn.Close()

	err = server.Stop()
	helpers.AssertNoError(t, err, "stopping the server")

	_, err = helpers.NewWebSocketConnection(server.GetWebSocketURL())
	helpers.AssertError(t, err, "connecting after Stop")
}
