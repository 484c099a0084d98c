//go:build integration

package helpers

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// WebSocketConnection is a raw test wrapper around one bridge connection.
type WebSocketConnection struct {
	conn   *websocket.Conn
	url    string
	closed bool
}

// NewWebSocketConnection dials the bridge endpoint.
func NewWebSocketConnection(serverURL string) (*WebSocketConnection, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return nil, fmt.Errorf("parsing URL: %v", err)
	}

	dialer := websocket.Dialer{HandshakeTimeout: 5 * time.Second}

	conn, _, err := dialer.Dial(u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("WebSocket connection failed: %v", err)
	}

	return &WebSocketConnection{
		conn: conn,
		url:  serverURL,
	}, nil
}

// SendMessage sends one JSON message.
func (wsc *WebSocketConnection) SendMessage(message interface{}) error {
	if wsc.closed {
		return fmt.Errorf("connection is already closed")
	}

	return wsc.conn.WriteJSON(message)
}

// SendRaw sends one text frame without JSON encoding, for malformed-input
// tests.
func (wsc *WebSocketConnection) SendRaw(data []byte) error {
	if wsc.closed {
		return fmt.Errorf("connection is already closed")
	}

	return wsc.conn.WriteMessage(websocket.TextMessage, data)
}

// ReceiveMessage reads one JSON message within the timeout.
func (wsc *WebSocketConnection) ReceiveMessage(timeout time.Duration) (map[string]interface{}, error) {
	if wsc.closed {
		return nil, fmt.Errorf("connection is already closed")
	}

	if timeout > 0 {
		wsc.conn.SetReadDeadline(time.Now().Add(timeout))
	}

	var message map[string]interface{}
	err := wsc.conn.ReadJSON(&message)
	if err != nil {
		return nil, fmt.Errorf("receiving message: %v", err)
	}

	return message, nil
}

// WaitForMessage reads messages until one matches the predicate or the
// timeout expires. Non-matching messages are discarded.
func (wsc *WebSocketConnection) WaitForMessage(predicate func(map[string]interface{}) bool, timeout time.Duration) (map[string]interface{}, error) {
	deadline := time.Now().Add(timeout)

	for time.Now().Before(deadline) {
		message, err := wsc.ReceiveMessage(time.Until(deadline))
		if err != nil {
			return nil, err
		}

		if predicate(message) {
			return message, nil
		}
	}

	return nil, fmt.Errorf("timeout: no message matched the predicate")
}

// Close closes the connection. Closing twice is safe.
func (wsc *WebSocketConnection) Close() error {
	if wsc.closed {
		return nil
	}

	wsc.closed = true
	return wsc.conn.Close()
}

// CreateTempFile writes content to a file in the test's temp directory and
// returns its path.
func CreateTempFile(t *testing.T, content string, suffix string) string {
	t.Helper()

	tempDir := t.TempDir()
	tempFile := filepath.Join(tempDir, "temp"+suffix)

	err := os.WriteFile(tempFile, []byte(content), 0644)
	if err != nil {
		t.Fatalf("creating temp file: %v", err)
	}

	return tempFile
}

// AssertEqual fails the test when the values differ.
func AssertEqual(t *testing.T, expected, actual interface{}, message string) {
	t.Helper()

	if !reflect.DeepEqual(expected, actual) {
		t.Errorf("%s: expected %v, got %v", message, expected, actual)
	}
}

// AssertTrue fails the test when the condition is false.
func AssertTrue(t *testing.T, condition bool, message string) {
	t.Helper()

	if !condition {
		t.Errorf("%s: condition is false", message)
	}
}

// AssertFalse fails the test when the condition is true.
func AssertFalse(t *testing.T, condition bool, message string) {
	t.Helper()

	if condition {
		t.Errorf("%s: condition is true", message)
	}
}

// AssertNoError aborts the test on an unexpected error.
func AssertNoError(t *testing.T, err error, message string) {
	t.Helper()

	if err != nil {
		t.Fatalf("%s: unexpected error: %v", message, err)
	}
}

// AssertError fails the test when no error occurred.
func AssertError(t *testing.T, err error, message string) {
	t.Helper()

	if err == nil {
		t.Errorf("%s: expected an error, got none", message)
	}
}

// WaitForCondition polls until the condition holds or the timeout expires.
func WaitForCondition(condition func() bool, timeout time.Duration, interval time.Duration) bool {
	deadline := time.Now().Add(timeout)

	for time.Now().Before(deadline) {
		if condition() {
			return true
		}
		time.Sleep(interval)
	}

	return false
}
