package ipmi

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
)

// HandlerFunc processes one command. Implementations return a Response for
// every input; transport errors are expressed as completion codes.
type HandlerFunc func(ctx context.Context, req Request) Response

type route struct {
	name      string
	privilege Privilege
	handler   HandlerFunc
}

// Router dispatches requests to handlers registered per NetFn/command pair.
type Router struct {
	mu     sync.RWMutex
	routes map[uint16]route
}

func NewRouter() *Router {
	return &Router{
		routes: make(map[uint16]route),
	}
}

func routeKey(netfn NetFn, cmd Command) uint16 {
	return uint16(netfn)<<8 | uint16(cmd)
}

// Register binds a handler to a NetFn/command pair. A later registration for
// the same pair replaces the earlier one.
func (r *Router) Register(netfn NetFn, cmd Command, priv Privilege, name string, handler HandlerFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.routes[routeKey(netfn, cmd)] = route{name: name, privilege: priv, handler: handler}
	slog.Debug("registered command", "netfn", netfn.String(), "cmd", fmt.Sprintf("0x%02X", byte(cmd)), "name", name)
}

// Execute dispatches a request. Unregistered commands complete with
// CCInvalidCommand.
func (r *Router) Execute(ctx context.Context, req Request) Response {
	r.mu.RLock()
	rt, ok := r.routes[routeKey(req.NetFn, req.Cmd)]
	r.mu.RUnlock()

	if !ok {
		slog.Debug("unregistered command", "netfn", req.NetFn.String(), "cmd", fmt.Sprintf("0x%02X", byte(req.Cmd)))
		return ErrorResponse(CCInvalidCommand)
	}

	resp := rt.handler(ctx, req)
	if resp.Code != CCOK {
		slog.Debug("command failed", "name", rt.name, "code", resp.Code.String())
	}
	return resp
}

// CommandName returns the registered name for a NetFn/command pair, or ""
// when nothing is bound.
func (r *Router) CommandName(netfn NetFn, cmd Command) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.routes[routeKey(netfn, cmd)].name
}

// CommandInfo describes one registered command.
type CommandInfo struct {
	NetFn     NetFn
	Cmd       Command
	Name      string
	Privilege Privilege
}

// Commands lists every registered command, ordered by NetFn then command.
func (r *Router) Commands() []CommandInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	keys := make([]uint16, 0, len(r.routes))
	for key := range r.routes {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	infos := make([]CommandInfo, 0, len(keys))
	for _, key := range keys {
		rt := r.routes[key]
		infos = append(infos, CommandInfo{
			NetFn:     NetFn(key >> 8),
			Cmd:       Command(key & 0xFF),
			Name:      rt.name,
			Privilege: rt.privilege,
		})
	}
	return infos
}
