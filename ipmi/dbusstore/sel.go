package dbusstore

import (
	"context"
	"fmt"

	"github.com/godbus/dbus/v5"
)

const (
	selService   = "xyz.openbmc_project.Logging.IPMI"
	selPath      = "/xyz/openbmc_project/Logging/IPMI"
	selInterface = "xyz.openbmc_project.Logging.IPMI"
)

// SELWriter appends system event log entries through the IPMI logging
// service.
type SELWriter struct {
	conn *dbus.Conn
}

func NewSELWriter(conn *dbus.Conn) *SELWriter {
	return &SELWriter{conn: conn}
}

// AddEntry logs one event. The returned record ID is discarded; callers
// only need success or failure.
func (w *SELWriter) AddEntry(ctx context.Context, message, path string, eventData []byte, assert bool, generatorID uint16) error {
	var recordID uint16
	err := w.conn.Object(selService, selPath).
		CallWithContext(ctx, selInterface+".IpmiSelAdd", 0, message, path, eventData, assert, generatorID).
		Store(&recordID)
	if err != nil {
		return fmt.Errorf("IpmiSelAdd: %w", err)
	}
	return nil
}
