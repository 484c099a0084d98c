package client

import (
	"errors"
	"fmt"

	"github.com/vb15s/intel-ipmi-oem/ipmi"
)

const (
	// sdrChunkSize is the window size for partial record reads.
	sdrChunkSize = 32

	// sdrHeaderLength is the common SDR header: record ID, version, type
	// and remaining length.
	sdrHeaderLength = 5
)

// SDREntry is one record from a repository walk. Full and FRU are set when
// the record parses as the corresponding type.
type SDREntry struct {
	RecordID uint16
	Type     byte
	Raw      []byte
	Full     *ipmi.FullSensorRecord
	FRU      *ipmi.FRUDeviceLocatorRecord
}

// WalkSDRs reads every record in the repository. Records are fetched in
// chunks under a reservation; a canceled reservation is renewed and the
// chunk retried.
func (c *WebSocketClient) WalkSDRs() ([]SDREntry, error) {
	reservation, err := c.ReserveSDRRepository()
	if err != nil {
		return nil, err
	}

	var entries []SDREntry
	recordID := uint16(0)
	for {
		next, raw, err := c.readRecord(&reservation, recordID)
		if err != nil {
			return entries, fmt.Errorf("record %04X: %w", recordID, err)
		}

		entry := SDREntry{RecordID: recordID, Raw: raw}
		if t, err := ipmi.RecordType(raw); err == nil {
			entry.Type = t
		}
		switch entry.Type {
		case ipmi.RecordTypeFullSensor:
			if full, err := ipmi.ParseFullSensorRecord(raw); err == nil {
				entry.Full = full
			}
		case ipmi.RecordTypeFRUDeviceLocator:
			if fru, err := ipmi.ParseFRUDeviceLocatorRecord(raw); err == nil {
				entry.FRU = fru
			}
		}
		entries = append(entries, entry)

		if next == ipmi.LastRecordID {
			return entries, nil
		}
		recordID = next
	}
}

// ReadSDR reads one complete record by ID.
func (c *WebSocketClient) ReadSDR(recordID uint16) ([]byte, error) {
	reservation, err := c.ReserveSDRRepository()
	if err != nil {
		return nil, err
	}
	_, record, err := c.readRecord(&reservation, recordID)
	return record, err
}

// readRecord assembles one record from chunked reads. The header's length
// byte bounds the record; the reservation is renewed in place when the
// server cancels it mid-record.
func (c *WebSocketClient) readRecord(reservation *uint16, recordID uint16) (uint16, []byte, error) {
	var record []byte
	next := ipmi.LastRecordID
	total := -1

	for {
		count := sdrChunkSize
		if total >= 0 && total-len(record) < count {
			count = total - len(record)
		}

		n, chunk, err := c.GetSDR(*reservation, recordID, byte(len(record)), byte(count))
		if err != nil {
			var ce *CompletionError
			if errors.As(err, &ce) && ce.Code == ipmi.CCInvalidReservation {
				renewed, rerr := c.ReserveSDRRepository()
				if rerr != nil {
					return 0, nil, rerr
				}
				*reservation = renewed
				continue
			}
			return 0, nil, err
		}
		next = n
		record = append(record, chunk...)

		if total < 0 && len(record) >= sdrHeaderLength {
			total = sdrHeaderLength + int(record[4])
		}
		if total >= 0 && len(record) >= total {
			return next, record[:total], nil
		}
		if len(chunk) < count {
			return 0, nil, fmt.Errorf("truncated record: %d of %d bytes", len(record), total)
		}
	}
}
