package handler

import (
	"context"
	"log/slog"
	"time"

	"github.com/vb15s/intel-ipmi-oem/ipmi"
	"github.com/vb15s/intel-ipmi-oem/ipmi/utils"
)

const (
	// repositoryOperations: overflow flag, reserve repository and
	// allocation info supported.
	repositoryOperations byte = 0x83

	// noTimestamp is reported until the first add or erase event.
	noTimestamp uint32 = 0xFFFFFFFF
)

func timestampSeconds(t time.Time) uint32 {
	if t.IsZero() {
		return noTimestamp
	}
	return uint32(t.Unix())
}

// GetSDRRepositoryInfo reports the record count and the change timestamps.
// The record space is sensors first, FRU device locators after; a FRU
// source failure degrades the count to sensors only.
func (h *Handler) GetSDRRepositoryInfo(ctx context.Context, req ipmi.Request) ipmi.Response {
	if len(req.Data) != 0 {
		return ipmi.ErrorResponse(ipmi.CCReqDataLenInvalid)
	}

	sensorCount, err := h.topology.Count(ctx)
	if err != nil {
		return ipmi.ErrorResponse(ipmi.CCResponseError)
	}
	fruCount, err := h.fru.Count(ctx)
	if err != nil {
		slog.Warn("failed to count FRU records", "err", err)
		fruCount = 0
	}
	recordCount := uint16(sensorCount) + fruCount

	resp := make([]byte, 0, 14)
	resp = append(resp, ipmi.SDRVersion)
	resp = append(resp, utils.Uint16ToLE(recordCount)...)
	resp = append(resp, 0xFF, 0xFF) // free space unspecified
	resp = append(resp, utils.Uint32ToLE(timestampSeconds(h.topology.LastAdd()))...)
	resp = append(resp, utils.Uint32ToLE(timestampSeconds(h.topology.LastRemove()))...)
	resp = append(resp, repositoryOperations)
	return ipmi.OKResponse(resp)
}

// GetSDRAllocationInfo reports static allocation figures for the
// dynamically assembled repository.
func (h *Handler) GetSDRAllocationInfo(ctx context.Context, req ipmi.Request) ipmi.Response {
	if len(req.Data) != 0 {
		return ipmi.ErrorResponse(ipmi.CCReqDataLenInvalid)
	}
	// units unspecified, no free units, max record size one unit
	return ipmi.OKResponse([]byte{0, 0, ipmi.MaxSDRAllocationUnit, 0, 0, 0, 0, 0, 1})
}

// ReserveSDRRepository hands out the next reservation ID. Serves both the
// storage-netfn and the device-SDR flavor of the command.
func (h *Handler) ReserveSDRRepository(ctx context.Context, req ipmi.Request) ipmi.Response {
	if len(req.Data) != 0 {
		return ipmi.ErrorResponse(ipmi.CCReqDataLenInvalid)
	}
	return ipmi.OKResponse(utils.Uint16ToLE(h.ReserveRepository()))
}

// GetSDR returns a window of one record plus the ID of the next record.
// Partial reads (offset != 0) require the current reservation; reading a
// whole record from offset zero does not.
func (h *Handler) GetSDR(ctx context.Context, req ipmi.Request) ipmi.Response {
	if len(req.Data) != 6 {
		return ipmi.ErrorResponse(ipmi.CCReqDataLenInvalid)
	}
	reservation := utils.LEToUint16(req.Data[0:2])
	recordID := utils.LEToUint16(req.Data[2:4])
	offset := int(req.Data[4])
	count := int(req.Data[5])

	if offset != 0 {
		if current := h.currentReservation(); current == 0 || reservation != current {
			return ipmi.ErrorResponse(ipmi.CCInvalidReservation)
		}
	}

	sensorCount, err := h.topology.Count(ctx)
	if err != nil {
		return ipmi.ErrorResponse(ipmi.CCResponseError)
	}
	fruCount, err := h.fru.Count(ctx)
	if err != nil {
		return ipmi.ErrorResponse(ipmi.CCResponseError)
	}
	total := sensorCount + int(fruCount)
	if total == 0 {
		return ipmi.ErrorResponse(ipmi.CCInvalidField)
	}
	last := uint16(total - 1)

	if recordID == ipmi.LastRecordID {
		recordID = last
	}
	if recordID > last {
		return ipmi.ErrorResponse(ipmi.CCInvalidField)
	}
	next := ipmi.LastRecordID
	if recordID < last {
		next = recordID + 1
	}

	var record []byte
	if int(recordID) < sensorCount {
		connection, path, err := h.topology.At(ctx, int(recordID))
		if err != nil {
			return ipmi.ErrorResponse(sensorErrorCode(err))
		}
		record, err = h.buildSensorRecord(ctx, recordID, connection, path)
		if err != nil {
			slog.Warn("failed to build sensor record", "recordID", recordID, "path", path, "err", err)
			return ipmi.ErrorResponse(ipmi.CCResponseError)
		}
	} else {
		raw, err := h.fru.Record(ctx, recordID-uint16(sensorCount))
		if err != nil || len(raw) != ipmi.FRUDeviceLocatorRecordSize {
			return ipmi.ErrorResponse(ipmi.CCResponseError)
		}
		// the source numbers records from zero; stamp the repository ID
		record = append([]byte(nil), raw...)
		record[0] = byte(recordID)
		record[1] = byte(recordID >> 8)
	}

	if offset >= len(record) {
		return ipmi.ErrorResponse(ipmi.CCInvalidField)
	}
	end := offset + count
	if end > len(record) {
		end = len(record)
	}
	return ipmi.OKResponse(append(utils.Uint16ToLE(next), record[offset:end]...))
}

// buildSensorRecord assembles the full sensor record for one topology slot
// from the backend's current properties.
func (h *Handler) buildSensorRecord(ctx context.Context, recordID uint16, connection, path string) ([]byte, error) {
	objects, err := h.cache.Lookup(ctx, connection, path)
	if err != nil {
		return nil, err
	}

	values, ok := objects[SensorValueInterface]
	if !ok {
		return nil, ErrSensorUnavailable
	}
	min, max := SensorRange(values)
	factors, err := ipmi.DeriveReadingFactors(min, max)
	if err != nil {
		return nil, err
	}
	thresholds, err := SensorThresholds(objects)
	if err != nil {
		return nil, err
	}
	mask, readable := SupportedEventMasks(objects)

	record := ipmi.FullSensorRecord{
		RecordID:           recordID,
		SensorNumber:       byte(recordID),
		SensorType:         ipmi.SensorTypeForPath(path),
		EventReadingType:   ipmi.EventReadingTypeForPath(path),
		Unit:               ipmi.UnitForPath(path),
		Factors:            factors,
		AssertionMask:      mask,
		DeassertionMask:    mask,
		ReadableThresholds: readable,
		SensorMax:          factors.EncodeReading(max),
		SensorMin:          factors.EncodeReading(min),
		Name:               ipmi.SensorNameFromPath(path),
	}
	if thresholds.WarningHigh != nil {
		record.UpperNonCritical = *thresholds.WarningHigh
	}
	if thresholds.WarningLow != nil {
		record.LowerNonCritical = *thresholds.WarningLow
	}
	if thresholds.CriticalHigh != nil {
		record.UpperCritical = *thresholds.CriticalHigh
	}
	if thresholds.CriticalLow != nil {
		record.LowerCritical = *thresholds.CriticalLow
	}
	return record.Encode(), nil
}
