// Package frufile supplies FRU device locator records from a JSON file, for
// platforms whose FRU inventory is declared statically.
package frufile

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/vb15s/intel-ipmi-oem/ipmi"
)

// Device describes one FRU device locator in the config file. Record IDs
// are assigned by the repository, not the file.
type Device struct {
	Name               string `json:"name"`
	DeviceAddress      byte   `json:"deviceAddress"`
	FRUID              byte   `json:"fruID"`
	AccessLUN          byte   `json:"accessLUN"`
	ChannelNumber      byte   `json:"channelNumber"`
	DeviceType         byte   `json:"deviceType"`
	DeviceTypeModifier byte   `json:"deviceTypeModifier"`
	EntityID           byte   `json:"entityID"`
	EntityInstance     byte   `json:"entityInstance"`
}

// RecordNotFoundError reports a record index past the loaded set.
type RecordNotFoundError struct {
	Index uint16
}

func (e RecordNotFoundError) Error() string {
	return fmt.Sprintf("FRU record %d is not present", e.Index)
}

// Source serves encoded locator records loaded from a JSON file. It
// implements the handler's FRU collaborator interface.
type Source struct {
	mu      sync.RWMutex
	records [][]byte
}

func NewSource() *Source {
	return &Source{}
}

// LoadFromFile replaces the record set with the file's contents. A missing
// file leaves the source empty.
func (s *Source) LoadFromFile(filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	var devices []Device
	if err := json.NewDecoder(file).Decode(&devices); err != nil {
		return fmt.Errorf("failed to decode data: %w", err)
	}

	records := make([][]byte, 0, len(devices))
	for _, d := range devices {
		r := ipmi.FRUDeviceLocatorRecord{
			DeviceAddress:      d.DeviceAddress,
			FRUID:              d.FRUID,
			AccessLUN:          d.AccessLUN,
			ChannelNumber:      d.ChannelNumber,
			DeviceType:         d.DeviceType,
			DeviceTypeModifier: d.DeviceTypeModifier,
			EntityID:           d.EntityID,
			EntityInstance:     d.EntityInstance,
			Name:               d.Name,
		}
		records = append(records, r.Encode())
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = records
	return nil
}

// Count reports how many locator records are loaded.
func (s *Source) Count(ctx context.Context) (uint16, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return uint16(len(s.records)), nil
}

// Record returns the encoded locator at index.
func (s *Source) Record(ctx context.Context, index uint16) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if int(index) >= len(s.records) {
		return nil, RecordNotFoundError{Index: index}
	}
	return s.records[index], nil
}
