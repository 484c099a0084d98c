//go:build integration

package tests

import (
	"context"
	"testing"
	"time"

	"github.com/vb15s/intel-ipmi-oem/client"
	"github.com/vb15s/intel-ipmi-oem/integration/helpers"
)

func TestInitialStateMessage(t *testing.T) {
	server, err := helpers.NewTestServer()
	helpers.AssertNoError(t, err, "creating test server")

	server.Store.AddSensor("svc.hwmon",
		"/xyz/openbmc_project/sensors/temperature/CPU0",
		helpers.ThresholdSensorObjects(42.5))
	server.Store.AddSensor("svc.hwmon",
		"/xyz/openbmc_project/sensors/voltage/P12V",
		helpers.ValueSensorObjects(12.1, 0, 20))

	err = server.Start()
	helpers.AssertNoError(t, err, "starting the server")
	defer server.Stop()

	wsConn, err := helpers.NewWebSocketConnection(server.GetWebSocketURL())
	helpers.AssertNoError(t, err, "creating WebSocket connection")
	defer wsConn.Close()

	initialStateMsg, err := wsConn.WaitForMessage(
		func(msg map[string]interface{}) bool {
			msgType, ok := msg["type"].(string)
			return ok && msgType == "initial_state"
		},
		5*time.Second,
	)
	helpers.AssertNoError(t, err, "receiving initial_state")

	payload, ok := initialStateMsg["payload"].(map[string]interface{})
	helpers.AssertTrue(t, ok, "payload format")

	commands, ok := payload["commands"].([]interface{})
	helpers.AssertTrue(t, ok, "commands format")
	helpers.AssertEqual(t, len(server.Router.Commands()), len(commands), "command table size")

	for _, raw := range commands {
		command, ok := raw.(map[string]interface{})
		helpers.AssertTrue(t, ok, "command entry format")
		for _, key := range []string{"netfn", "cmd", "name", "privilege"} {
			_, present := command[key]
			helpers.AssertTrue(t, present, "command entry carries "+key)
		}
	}

	startupTime, ok := payload["serverStartupTime"].(string)
	helpers.AssertTrue(t, ok, "serverStartupTime format")
	_, err = time.Parse(time.RFC3339Nano, startupTime)
	helpers.AssertNoError(t, err, "parsing serverStartupTime")
}

func TestClientReceivesInitialState(t *testing.T) {
	server, err := helpers.NewTestServer()
	helpers.AssertNoError(t, err, "creating test server")

	err = server.Start()
	helpers.AssertNoError(t, err, "starting the server")
	defer server.Stop()

	c, err := client.NewWebSocketClient(context.Background(), server.GetWebSocketURL(), false)
	helpers.AssertNoError(t, err, "creating bridge client")
	err = c.Connect()
	helpers.AssertNoError(t, err, "connecting to the bridge")
	defer c.Close()

	err = c.WaitForInitialState(5 * time.Second)
	helpers.AssertNoError(t, err, "waiting for initial state")

	helpers.AssertEqual(t, len(server.Router.Commands()), len(c.Commands()), "command table size")
	helpers.AssertFalse(t, c.ServerStartupTime().IsZero(), "startup time is set")
}
