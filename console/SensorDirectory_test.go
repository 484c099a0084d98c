package console

import (
	"testing"

	"github.com/vb15s/intel-ipmi-oem/client"
	"github.com/vb15s/intel-ipmi-oem/ipmi"
)

func TestSensorDirectoryUpdateAndFull(t *testing.T) {
	dir := NewSensorDirectory()

	if got := dir.Full(5); got != nil {
		t.Errorf("Full(5) on empty directory = %v, want nil", got)
	}

	dir.Update([]client.SDREntry{
		{Full: &ipmi.FullSensorRecord{SensorNumber: 5, Name: "CPU0 Temp"}},
		{FRU: &ipmi.FRUDeviceLocatorRecord{Name: "Baseboard"}},
	})

	record := dir.Full(5)
	if record == nil {
		t.Fatal("Full(5) = nil after Update")
	}
	if record.Name != "CPU0 Temp" {
		t.Errorf("Full(5).Name = %q, want CPU0 Temp", record.Name)
	}

	if got := dir.Full(99); got != nil {
		t.Errorf("Full(99) = %v, want nil", got)
	}

	if got := len(dir.Entries()); got != 2 {
		t.Errorf("len(Entries()) = %d, want 2", got)
	}
}

func TestSensorDirectoryUpdateReplaces(t *testing.T) {
	dir := NewSensorDirectory()
	dir.Update([]client.SDREntry{
		{Full: &ipmi.FullSensorRecord{SensorNumber: 5, Name: "CPU0 Temp"}},
	})
	dir.Update([]client.SDREntry{
		{Full: &ipmi.FullSensorRecord{SensorNumber: 7, Name: "P12V"}},
	})

	if dir.Full(5) != nil {
		t.Error("Full(5) survived a replacing Update")
	}
	if dir.Full(7) == nil {
		t.Error("Full(7) = nil after Update")
	}
}
