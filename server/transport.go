package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// writeWait is how long a control frame write may block before the
	// connection is considered dead.
	writeWait = 10 * time.Second

	// pongWait is how long to wait for a pong after sending a ping.
	pongWait = 60 * time.Second

	// pingPeriod is the interval between pings. Must be less than
	// pongWait so the read deadline is refreshed before it expires.
	pingPeriod = (pongWait * 9) / 10
)

// WebSocketTransport abstracts the network layer of the WebSocket server.
type WebSocketTransport interface {
	// Start runs the server until it is stopped or fails.
	Start(options StartOptions) error

	// Stop shuts the server down.
	Stop() error

	// SetMessageHandler sets the handler called when a client message
	// arrives. connID identifies the client connection.
	SetMessageHandler(handler func(connID string, message []byte) error)

	// SetConnectHandler sets the handler called when a new client connects.
	SetConnectHandler(handler func(connID string) error)

	// SetDisconnectHandler sets the handler called when a client disconnects.
	SetDisconnectHandler(handler func(connID string))

	// SendMessage sends a message to a specific client.
	SendMessage(connID string, message []byte) error

	// BroadcastMessage sends a message to every connected client.
	BroadcastMessage(message []byte) error
}

// clientConnection wraps a WebSocket connection with a mutex for safe
// concurrent writes and a channel that stops its ping goroutine.
type clientConnection struct {
	conn     *websocket.Conn
	mutex    sync.Mutex
	pingDone chan struct{}
}

// DefaultWebSocketTransport is the gorilla/websocket-backed implementation
// of WebSocketTransport.
type DefaultWebSocketTransport struct {
	ctx               context.Context
	cancel            context.CancelFunc
	server            *http.Server
	upgrader          websocket.Upgrader
	clients           map[string]*clientConnection
	clientsReverse    map[*websocket.Conn]string
	clientsMutex      sync.RWMutex
	messageHandler    func(connID string, message []byte) error
	connectHandler    func(connID string) error
	disconnectHandler func(connID string)
}

// NewDefaultWebSocketTransport creates a transport listening on addr.
func NewDefaultWebSocketTransport(ctx context.Context, addr string) *DefaultWebSocketTransport {
	transportCtx, cancel := context.WithCancel(ctx)

	transport := &DefaultWebSocketTransport{
		ctx:    transportCtx,
		cancel: cancel,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// Browser consoles connect from arbitrary origins.
				return true
			},
		},
		clients:        make(map[string]*clientConnection),
		clientsReverse: make(map[*websocket.Conn]string),
		clientsMutex:   sync.RWMutex{},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", transport.handleWebSocket)

	transport.server = &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	return transport
}

// Start binds the listener and serves until Stop is called. If the options
// carry a Ready channel it is closed once the listener is bound.
func (t *DefaultWebSocketTransport) Start(options StartOptions) error {
	listener, err := net.Listen("tcp", t.server.Addr)
	if err != nil {
		return err
	}
	if options.Ready != nil {
		close(options.Ready)
	}
	slog.Info("WebSocket server starting", "addr", t.server.Addr)

	if options.CertFile != "" && options.KeyFile != "" {
		slog.Info("Using TLS with certificate", "certFile", options.CertFile)
		return t.server.ServeTLS(listener, options.CertFile, options.KeyFile)
	}

	return t.server.Serve(listener)
}

// Stop shuts the HTTP server down and cancels the transport context.
func (t *DefaultWebSocketTransport) Stop() error {
	slog.Info("Stopping WebSocket server", "addr", t.server.Addr)
	t.cancel()
	err := t.server.Shutdown(context.Background())
	if err != nil {
		slog.Info("Error shutting down WebSocket server", "err", err)
	}
	return err
}

func (t *DefaultWebSocketTransport) SetMessageHandler(handler func(connID string, message []byte) error) {
	t.messageHandler = handler
}

func (t *DefaultWebSocketTransport) SetConnectHandler(handler func(connID string) error) {
	t.connectHandler = handler
}

func (t *DefaultWebSocketTransport) SetDisconnectHandler(handler func(connID string)) {
	t.disconnectHandler = handler
}

// isConnectionClosedError checks if the error indicates a closed connection
func isConnectionClosedError(err error) bool {
	return websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNoStatusReceived) ||
		strings.Contains(err.Error(), "close sent") ||
		strings.Contains(err.Error(), "use of closed network connection") ||
		strings.Contains(err.Error(), "broken pipe") ||
		strings.Contains(err.Error(), "connection reset by peer")
}

// removeClient safely removes a client from the transport and calls the
// disconnect handler. Returns true if the client was actually removed,
// false if it was already removed.
func (t *DefaultWebSocketTransport) removeClient(connID string) bool {
	t.clientsMutex.Lock()
	defer t.clientsMutex.Unlock()

	client, exists := t.clients[connID]
	if !exists {
		return false
	}

	delete(t.clients, connID)
	if client.conn != nil {
		delete(t.clientsReverse, client.conn)
	}
	close(client.pingDone)

	// Call disconnect handler outside of the mutex lock
	go func() {
		select {
		case <-t.ctx.Done():
			return
		default:
			if t.disconnectHandler != nil {
				t.disconnectHandler(connID)
			}
		}
	}()

	return true
}

// SendMessage sends a message to a specific client.
func (t *DefaultWebSocketTransport) SendMessage(connID string, message []byte) error {
	t.clientsMutex.RLock()
	client, exists := t.clients[connID]
	t.clientsMutex.RUnlock()

	if !exists {
		return fmt.Errorf("client with ID %s not found", connID)
	}

	client.mutex.Lock()
	defer client.mutex.Unlock()

	err := client.conn.WriteMessage(websocket.TextMessage, message)
	if err != nil {
		if isConnectionClosedError(err) {
			t.removeClient(connID)
		}
		return fmt.Errorf("failed to send message to client %s: %w", connID, err)
	}

	return nil
}

// BroadcastMessage sends a message to every connected client.
func (t *DefaultWebSocketTransport) BroadcastMessage(message []byte) error {
	t.clientsMutex.RLock()
	clients := make(map[string]*clientConnection)
	for connID, client := range t.clients {
		clients[connID] = client
	}
	t.clientsMutex.RUnlock()

	var disconnectedClients []string

	for connID, client := range clients {
		client.mutex.Lock()
		if err := client.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			if isConnectionClosedError(err) {
				disconnectedClients = append(disconnectedClients, connID)
			} else {
				slog.Error("Error broadcasting message to client", "err", err, "connID", connID)
			}
		}
		client.mutex.Unlock()
	}

	for _, connID := range disconnectedClients {
		t.removeClient(connID)
	}

	return nil
}

// pingClient sends pings on pingPeriod until the client goes away.
func (t *DefaultWebSocketTransport) pingClient(client *clientConnection) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			client.mutex.Lock()
			err := client.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
			client.mutex.Unlock()
			if err != nil {
				if !isConnectionClosedError(err) {
					slog.Debug("Ping failed", "err", err)
				}
				return
			}
		case <-client.pingDone:
			return
		case <-t.ctx.Done():
			return
		}
	}
}

// handleWebSocket upgrades an HTTP request and pumps messages until the
// connection closes.
func (t *DefaultWebSocketTransport) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	slog.Debug("WebSocket upgrade request received",
		"origin", r.Header.Get("Origin"),
		"host", r.Header.Get("Host"),
		"upgrade", r.Header.Get("Upgrade"),
		"connection", r.Header.Get("Connection"))

	conn, err := t.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("Error upgrading to WebSocket", "err", err,
			"remote_addr", r.RemoteAddr,
			"user_agent", r.Header.Get("User-Agent"))
		return
	}
	defer conn.Close()

	// Generate a unique connection ID
	connID := fmt.Sprintf("%p", conn)

	client := &clientConnection{
		conn:     conn,
		mutex:    sync.Mutex{},
		pingDone: make(chan struct{}),
	}
	t.clientsMutex.Lock()
	t.clients[connID] = client
	t.clientsReverse[conn] = connID
	t.clientsMutex.Unlock()

	defer func() {
		t.removeClient(connID)
	}()

	// Heartbeat: ping on a timer, expect pongs before the read deadline.
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	go t.pingClient(client)

	if t.connectHandler != nil {
		if err := t.connectHandler(connID); err != nil {
			slog.Error("Error in connect handler", "err", err)
			return
		}
	}

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			// Expected close codes:
			// - 1000 (Normal): intentional client disconnect
			// - 1001 (Going Away): navigation or server shutdown
			// - 1005 (No Status): no close code provided
			// - 1006 (Abnormal): connection lost without close frame
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNoStatusReceived) {
				slog.Error("Unexpected WebSocket close error", "err", err)
			}
			break
		}

		if t.messageHandler != nil {
			if err := t.messageHandler(connID, message); err != nil {
				errStr := err.Error()
				if !isConnectionClosedError(err) &&
					!(strings.Contains(errStr, "client with ID") && strings.Contains(errStr, "not found")) {
					slog.Error("Error in message handler", "err", err)
				}
			}
		}
	}
}
