package console

import (
	"context"
	"testing"
	"time"

	"github.com/vb15s/intel-ipmi-oem/ipmi"
)

// Help and quit never touch the bridge client, so a nil client is enough to
// exercise the channel mechanics.

func TestCommandProcessorHelp(t *testing.T) {
	processor := NewCommandProcessor(context.Background(), nil, NewSensorDirectory())
	processor.Start()
	defer processor.Stop()

	cmd := newCommand(CmdHelp)
	if err := processor.SendCommand(cmd); err != nil {
		t.Errorf("SendCommand(help) error = %v", err)
	}

	select {
	case <-cmd.Done:
	default:
		t.Error("Done channel not closed after SendCommand returned")
	}
}

func TestCommandProcessorQuit(t *testing.T) {
	processor := NewCommandProcessor(context.Background(), nil, NewSensorDirectory())
	processor.Start()

	cmd := newCommand(CmdQuit)
	if err := processor.SendCommand(cmd); err != nil {
		t.Errorf("SendCommand(quit) error = %v", err)
	}

	// the processing goroutine must exit on quit
	select {
	case <-processor.done:
	case <-time.After(time.Second):
		t.Fatal("processor goroutine did not exit after quit")
	}

	processor.Stop() // must not panic or block after quit
}

func TestCommandProcessorStopTwice(t *testing.T) {
	processor := NewCommandProcessor(context.Background(), nil, NewSensorDirectory())
	processor.Start()

	processor.Stop()
	processor.Stop()
}

func TestThresholdStatus(t *testing.T) {
	tests := []struct {
		bits byte
		want string
	}{
		{0x00, "ok"},
		{ipmi.ThresholdBitLowerNonCritical, "warning"},
		{ipmi.ThresholdBitUpperNonCritical, "warning"},
		{ipmi.ThresholdBitLowerCritical, "critical"},
		{ipmi.ThresholdBitUpperCritical, "critical"},
		{ipmi.ThresholdBitUpperNonCritical | ipmi.ThresholdBitUpperCritical, "critical"},
	}
	for _, tt := range tests {
		if got := thresholdStatus(tt.bits); got != tt.want {
			t.Errorf("thresholdStatus(0x%02X) = %q, want %q", tt.bits, got, tt.want)
		}
	}
}

func TestFormatTimestamp(t *testing.T) {
	if got := formatTimestamp(0); got != "never" {
		t.Errorf("formatTimestamp(0) = %q, want never", got)
	}
	if got := formatTimestamp(1700000000); got != "2023-11-14T22:13:20Z" {
		t.Errorf("formatTimestamp(1700000000) = %q, want 2023-11-14T22:13:20Z", got)
	}
}

func TestFormatEnabled(t *testing.T) {
	if got := formatEnabled(true); got != "enabled" {
		t.Errorf("formatEnabled(true) = %q", got)
	}
	if got := formatEnabled(false); got != "disabled" {
		t.Errorf("formatEnabled(false) = %q", got)
	}
}
