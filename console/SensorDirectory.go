package console

import (
	"sync"

	"github.com/vb15s/intel-ipmi-oem/client"
	"github.com/vb15s/intel-ipmi-oem/ipmi"
)

// SensorDirectory caches the entries of the last SDR repository walk. The
// cache feeds completion candidates and the raw/engineering-unit conversion
// of the threshold command.
type SensorDirectory struct {
	mu      sync.RWMutex
	entries []client.SDREntry
}

func NewSensorDirectory() *SensorDirectory {
	return &SensorDirectory{}
}

// Update replaces the cached entries with the result of a new walk.
func (d *SensorDirectory) Update(entries []client.SDREntry) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.entries = entries
}

// Entries returns the cached entries. Callers must not modify them.
func (d *SensorDirectory) Entries() []client.SDREntry {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.entries
}

// Full returns the full sensor record of a sensor number, or nil when the
// sensor is not in the cache.
func (d *SensorDirectory) Full(sensor byte) *ipmi.FullSensorRecord {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, entry := range d.entries {
		if entry.Full != nil && entry.Full.SensorNumber == sensor {
			return entry.Full
		}
	}
	return nil
}
