// Package client connects to the WebSocket bridge and exposes the IPMI
// command set as typed calls, for the interactive console and for tests.
package client

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vb15s/intel-ipmi-oem/protocol"
)

// WebSocketClient is a bridge client. One goroutine reads frames and
// dispatches responses to waiting requests by request ID; notifications
// without a request ID go to NotificationCh.
type WebSocketClient struct {
	ctx    context.Context
	cancel context.CancelFunc
	conn   *websocket.Conn
	url    string
	debug  bool

	commands          []protocol.CommandInfo
	serverStartupTime time.Time
	stateMutex        sync.RWMutex

	requestID       int
	requestIDMutex  sync.Mutex
	responseCh      map[string]chan *protocol.Message
	responseChMutex sync.Mutex

	initialState     chan struct{}
	initialStateOnce sync.Once

	// NotificationCh carries sensor notifications pushed by the server.
	// Notifications are dropped when the channel is full.
	NotificationCh chan protocol.SensorNotificationPayload
}

// NewWebSocketClient creates a new WebSocket client
func NewWebSocketClient(ctx context.Context, serverURL string, debug bool) (*WebSocketClient, error) {
	// Validate the URL
	_, err := url.Parse(serverURL)
	if err != nil {
		return nil, fmt.Errorf("invalid server URL: %v", err)
	}

	clientCtx, cancel := context.WithCancel(ctx)

	client := &WebSocketClient{
		ctx:            clientCtx,
		cancel:         cancel,
		url:            serverURL,
		debug:          debug,
		responseCh:     make(map[string]chan *protocol.Message),
		initialState:   make(chan struct{}),
		NotificationCh: make(chan protocol.SensorNotificationPayload, 32),
	}

	return client, nil
}

// Connect connects to the WebSocket server
func (c *WebSocketClient) Connect() error {
	conn, _, err := websocket.DefaultDialer.Dial(c.url, nil)
	if err != nil {
		return fmt.Errorf("error connecting to WebSocket server: %v", err)
	}
	c.conn = conn

	// Start listening for messages
	go c.listenForMessages()

	return nil
}

// Close closes the WebSocket connection
func (c *WebSocketClient) Close() error {
	c.cancel()
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// IsDebug returns whether debug mode is enabled
func (c *WebSocketClient) IsDebug() bool {
	return c.debug
}

// SetDebug sets the debug mode
func (c *WebSocketClient) SetDebug(debug bool) {
	c.debug = debug
}

// WaitForInitialState blocks until the server's initial state arrives.
func (c *WebSocketClient) WaitForInitialState(timeout time.Duration) error {
	select {
	case <-c.initialState:
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("timeout waiting for initial state")
	case <-c.ctx.Done():
		return fmt.Errorf("context canceled")
	}
}

// Commands returns the command table announced by the server.
func (c *WebSocketClient) Commands() []protocol.CommandInfo {
	c.stateMutex.RLock()
	defer c.stateMutex.RUnlock()
	return c.commands
}

// ServerStartupTime returns the startup time announced by the server.
func (c *WebSocketClient) ServerStartupTime() time.Time {
	c.stateMutex.RLock()
	defer c.stateMutex.RUnlock()
	return c.serverStartupTime
}

// sendRequest sends a message and waits for the matching response.
func (c *WebSocketClient) sendRequest(msgType protocol.MessageType, payload interface{}) (*protocol.Message, error) {
	// Generate a request ID
	c.requestIDMutex.Lock()
	c.requestID++
	requestID := fmt.Sprintf("req-%d", c.requestID)
	c.requestIDMutex.Unlock()

	// Create a channel for the response
	responseCh := make(chan *protocol.Message, 1)
	c.responseChMutex.Lock()
	c.responseCh[requestID] = responseCh
	c.responseChMutex.Unlock()

	// Create the message
	data, err := protocol.CreateMessage(msgType, payload, requestID)
	if err != nil {
		return nil, fmt.Errorf("error creating message: %v", err)
	}

	// Send the message
	if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return nil, fmt.Errorf("error sending message: %v", err)
	}

	// Wait for the response
	select {
	case response := <-responseCh:
		return response, nil
	case <-time.After(10 * time.Second):
		return nil, fmt.Errorf("timeout waiting for response")
	case <-c.ctx.Done():
		return nil, fmt.Errorf("context canceled")
	}
}

// listenForMessages listens for messages from the WebSocket server
func (c *WebSocketClient) listenForMessages() {
	for {
		select {
		case <-c.ctx.Done():
			return
		default:
			// Read a message
			_, message, err := c.conn.ReadMessage()
			if err != nil {
				if c.debug {
					fmt.Printf("Error reading message: %v\n", err)
				}
				return
			}

			// Parse the message
			msg, err := protocol.ParseMessage(message)
			if err != nil {
				if c.debug {
					fmt.Printf("Error parsing message: %v\n", err)
				}
				continue
			}

			// Handle the message
			if msg.RequestID != "" {
				// This is a response to a request
				c.responseChMutex.Lock()
				if ch, ok := c.responseCh[msg.RequestID]; ok {
					ch <- msg
					delete(c.responseCh, msg.RequestID)
				}
				c.responseChMutex.Unlock()
			} else {
				// This is a notification
				c.handleNotification(msg)
			}
		}
	}
}

// handleNotification handles a notification from the WebSocket server
func (c *WebSocketClient) handleNotification(msg *protocol.Message) {
	switch msg.Type {
	case protocol.MessageTypeInitialState:
		c.handleInitialState(msg)
	case protocol.MessageTypeSensorNotification:
		c.handleSensorNotification(msg)
	case protocol.MessageTypeErrorNotification:
		c.handleErrorNotification(msg)
	}
}

// handleInitialState handles an initial_state message
func (c *WebSocketClient) handleInitialState(msg *protocol.Message) {
	var payload protocol.InitialStatePayload
	if err := protocol.ParsePayload(msg, &payload); err != nil {
		if c.debug {
			fmt.Printf("Error parsing initial_state payload: %v\n", err)
		}
		return
	}

	c.stateMutex.Lock()
	c.commands = payload.Commands
	c.serverStartupTime = payload.ServerStartupTime
	c.stateMutex.Unlock()

	c.initialStateOnce.Do(func() {
		close(c.initialState)
	})
}

// handleSensorNotification handles a sensor_notification message
func (c *WebSocketClient) handleSensorNotification(msg *protocol.Message) {
	var payload protocol.SensorNotificationPayload
	if err := protocol.ParsePayload(msg, &payload); err != nil {
		if c.debug {
			fmt.Printf("Error parsing sensor_notification payload: %v\n", err)
		}
		return
	}

	select {
	case c.NotificationCh <- payload:
	default:
		if c.debug {
			fmt.Printf("Notification channel full, dropping %s for %s\n", payload.Kind, payload.Path)
		}
	}
}

// handleErrorNotification handles an error_notification message
func (c *WebSocketClient) handleErrorNotification(msg *protocol.Message) {
	var payload protocol.ErrorNotificationPayload
	if err := protocol.ParsePayload(msg, &payload); err != nil {
		if c.debug {
			fmt.Printf("Error parsing error_notification payload: %v\n", err)
		}
		return
	}

	fmt.Printf("Server error: %s (%s)\n", payload.Message, payload.Code)
}
