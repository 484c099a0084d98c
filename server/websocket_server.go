package server

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/vb15s/intel-ipmi-oem/ipmi"
	"github.com/vb15s/intel-ipmi-oem/ipmi/handler"
	"github.com/vb15s/intel-ipmi-oem/protocol"
)

// StartOptions carries the WebSocketServer startup options.
type StartOptions struct {
	// CertFile is the TLS certificate path (empty disables TLS).
	CertFile string
	// KeyFile is the TLS private key path.
	KeyFile string
	// Ready, if non-nil, is closed once the listener is bound.
	Ready chan struct{}
}

// WebSocketServer bridges WebSocket clients to the IPMI command router.
type WebSocketServer struct {
	ctx         context.Context
	cancel      context.CancelFunc
	transport   WebSocketTransport
	router      *ipmi.Router
	handler     *handler.Handler
	startupTime time.Time
}

// NewWebSocketServer creates a WebSocket server on addr. Commands from
// clients are executed against router; notifications from h are broadcast
// to every connected client.
func NewWebSocketServer(ctx context.Context, addr string, router *ipmi.Router, h *handler.Handler) (*WebSocketServer, error) {
	serverCtx, cancel := context.WithCancel(ctx)

	transport := NewDefaultWebSocketTransport(serverCtx, addr)

	ws := &WebSocketServer{
		ctx:         serverCtx,
		cancel:      cancel,
		transport:   transport,
		router:      router,
		handler:     h,
		startupTime: time.Now(),
	}

	transport.SetConnectHandler(ws.handleClientConnect)
	transport.SetMessageHandler(ws.handleClientMessage)
	transport.SetDisconnectHandler(ws.handleClientDisconnect)

	go ws.listenForNotifications()

	return ws, nil
}

// handleClientConnect is called when a new client connects
func (ws *WebSocketServer) handleClientConnect(connID string) error {
	slog.Debug("New WebSocket connection established", "connID", connID)

	// Send initial state to the client
	return ws.sendInitialStateToClient(connID)
}

// handleClientMessage is called when a message is received from a client
func (ws *WebSocketServer) handleClientMessage(connID string, message []byte) error {
	msg, err := protocol.ParseMessage(message)
	if err != nil {
		slog.Error("Error parsing message", "err", err, "connID", connID)
		errorPayload := protocol.ErrorNotificationPayload{
			Code:    protocol.ErrorCodeInvalidRequestFormat,
			Message: fmt.Sprintf("Error parsing message: %v", err),
		}
		return ws.sendMessageToClient(connID, protocol.MessageTypeErrorNotification, errorPayload, "")
	}

	switch msg.Type {
	case protocol.MessageTypeExecute:
		result := ws.handleExecuteFromClient(msg)
		return ws.sendMessageToClient(connID, protocol.MessageTypeCommandResult, result, msg.RequestID)
	default:
		slog.Error("Unknown message type", "type", msg.Type, "connID", connID)
		errorPayload := protocol.ErrorNotificationPayload{
			Code:    protocol.ErrorCodeInvalidRequestFormat,
			Message: fmt.Sprintf("Unknown message type: %s", msg.Type),
		}
		return ws.sendMessageToClient(connID, protocol.MessageTypeErrorNotification, errorPayload, msg.RequestID)
	}
}

// handleClientDisconnect is called when a client disconnects
func (ws *WebSocketServer) handleClientDisconnect(connID string) {
	slog.Debug("WebSocket connection closed", "connID", connID)
}

// Start starts the WebSocket server
func (ws *WebSocketServer) Start(options StartOptions) error {
	return ws.transport.Start(options)
}

// Stop stops the WebSocket server
func (ws *WebSocketServer) Stop() error {
	ws.cancel()
	return ws.transport.Stop()
}

// sendInitialStateToClient sends the command table and startup time to a
// freshly connected client.
func (ws *WebSocketServer) sendInitialStateToClient(connID string) error {
	slog.Debug("Sending initial state to client", "connID", connID)

	commands := ws.router.Commands()
	protoCommands := make([]protocol.CommandInfo, 0, len(commands))
	for _, info := range commands {
		protoCommands = append(protoCommands, protocol.CommandInfoToProtocol(info))
	}

	payload := protocol.InitialStatePayload{
		Commands:          protoCommands,
		ServerStartupTime: ws.startupTime,
	}

	return ws.sendMessageToClient(connID, protocol.MessageTypeInitialState, payload, "")
}

// sendMessageToClient sends a message to a client
func (ws *WebSocketServer) sendMessageToClient(connID string, msgType protocol.MessageType, payload interface{}, requestID string) error {
	data, err := protocol.CreateMessage(msgType, payload, requestID)
	if err != nil {
		return fmt.Errorf("error creating message: %v", err)
	}

	return ws.transport.SendMessage(connID, data)
}

// broadcastMessageToClients sends a message to all connected clients
func (ws *WebSocketServer) broadcastMessageToClients(msgType protocol.MessageType, payload interface{}) error {
	data, err := protocol.CreateMessage(msgType, payload, "")
	if err != nil {
		slog.Error("Error creating broadcast message", "err", err)
		return err
	}

	return ws.transport.BroadcastMessage(data)
}

// listenForNotifications forwards handler notifications to every connected
// client until the context is canceled or the channel closes.
func (ws *WebSocketServer) listenForNotifications() {
	for {
		select {
		case <-ws.ctx.Done():
			slog.Debug("Notification listener stopped")
			return
		case notification, ok := <-ws.handler.NotificationCh:
			if !ok {
				slog.Debug("Notification channel closed")
				return
			}

			switch notification.Type {
			case handler.NotificationTopologyChanged:
				slog.Debug("Sensor topology changed", "path", notification.Path)
			case handler.NotificationThresholdEvent:
				slog.Debug("Threshold event",
					"path", notification.Path,
					"alarm", notification.Alarm,
					"asserted", notification.Asserted)
			}

			payload := protocol.NotificationToPayload(notification)
			ws.broadcastMessageToClients(protocol.MessageTypeSensorNotification, payload)
		}
	}
}
