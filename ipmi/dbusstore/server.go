package dbusstore

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/godbus/dbus/v5"

	"github.com/vb15s/intel-ipmi-oem/ipmi"
)

const (
	// HostService is the well-known bus name host bridges look up.
	HostService = "xyz.openbmc_project.Ipmi.Host"

	serverPath      = "/xyz/openbmc_project/Ipmi"
	serverInterface = "xyz.openbmc_project.Ipmi.Server"
)

// Server exports the in-band Execute method and feeds requests to the
// router.
type Server struct {
	ctx    context.Context
	conn   *dbus.Conn
	router *ipmi.Router
}

func NewServer(ctx context.Context, conn *dbus.Conn, router *ipmi.Router) *Server {
	return &Server{ctx: ctx, conn: conn, router: router}
}

// executeResult is the response tuple of the Execute method: the response
// netfn, LUN, command, completion code and data.
type executeResult struct {
	NetFn byte
	LUN   byte
	Cmd   byte
	Code  byte
	Data  []byte
}

// Execute serves one command from the bus. Exported.
func (s *Server) Execute(netfn, lun, cmd byte, data []byte, options map[string]dbus.Variant) (executeResult, *dbus.Error) {
	resp := s.router.Execute(s.ctx, ipmi.Request{
		NetFn: ipmi.NetFn(netfn),
		Cmd:   ipmi.Command(cmd),
		Data:  data,
	})
	return executeResult{
		NetFn: netfn | 1,
		LUN:   lun,
		Cmd:   cmd,
		Code:  byte(resp.Code),
		Data:  resp.Data,
	}, nil
}

// Start exports the Execute method and claims the host service name.
func (s *Server) Start() error {
	if err := s.conn.Export(s, serverPath, serverInterface); err != nil {
		return fmt.Errorf("export %s: %w", serverInterface, err)
	}
	reply, err := s.conn.RequestName(HostService, dbus.NameFlagDoNotQueue)
	if err != nil {
		return fmt.Errorf("request name %s: %w", HostService, err)
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		return fmt.Errorf("bus name %s is already owned", HostService)
	}
	slog.Info("IPMI execute surface up", "service", HostService, "path", serverPath)
	return nil
}
