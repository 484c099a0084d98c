// Package protocol defines the JSON message vocabulary spoken between the
// bridge server and its clients. Every frame is a Message envelope whose
// payload is one of the typed payload structs below; raw IPMI bytes travel
// as hex strings (see hex.go).
package protocol

import (
	"encoding/json"
	"time"
)

// MessageType defines the type of message being sent between client and server
type MessageType string

const (
	// Server -> Client message types
	MessageTypeInitialState       MessageType = "initial_state"
	MessageTypeCommandResult      MessageType = "command_result"
	MessageTypeSensorNotification MessageType = "sensor_notification"
	MessageTypeErrorNotification  MessageType = "error_notification"

	// Client -> Server message types
	MessageTypeExecute MessageType = "execute"
)

// ErrorCode defines error codes for error messages
type ErrorCode string

const (
	ErrorCodeInvalidRequestFormat ErrorCode = "INVALID_REQUEST_FORMAT"
	ErrorCodeInvalidParameters    ErrorCode = "INVALID_PARAMETERS"
	ErrorCodeInternalServerError  ErrorCode = "INTERNAL_SERVER_ERROR"
)

// Message is the base structure for all WebSocket messages
type Message struct {
	Type      MessageType     `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	RequestID string          `json:"requestId,omitempty"`
}

// Error represents an error in the WebSocket protocol
type Error struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// CommandInfo describes one registered IPMI command.
type CommandInfo struct {
	NetFn     HexByte `json:"netfn"`
	Cmd       HexByte `json:"cmd"`
	Name      string  `json:"name"`
	Privilege string  `json:"privilege"`
}

// InitialStatePayload is the payload for the initial_state message, pushed
// once when a client connects.
type InitialStatePayload struct {
	Commands          []CommandInfo `json:"commands"`
	ServerStartupTime time.Time     `json:"serverStartupTime"`
}

// ExecutePayload is the payload for the execute message.
type ExecutePayload struct {
	NetFn HexByte  `json:"netfn"`
	Cmd   HexByte  `json:"cmd"`
	Data  HexBytes `json:"data,omitempty"`
}

// ExecuteResultData is the data for the command_result message when an
// execute request completed. A non-zero completion code is still a completed
// exchange; Success stays true and the client inspects Code.
type ExecuteResultData struct {
	Code     HexByte  `json:"code"`
	CodeName string   `json:"codeName"`
	Data     HexBytes `json:"data,omitempty"`
}

// CommandResultPayload is the payload for the command_result message
type CommandResultPayload struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   *Error          `json:"error,omitempty"`
}

// NotificationKind classifies a sensor_notification message.
type NotificationKind string

const (
	NotificationKindTopology  NotificationKind = "topology"
	NotificationKindThreshold NotificationKind = "threshold"
)

// SensorNotificationPayload is the payload for the sensor_notification
// message.
type SensorNotificationPayload struct {
	Kind     NotificationKind `json:"kind"`
	Path     string           `json:"path"`
	Alarm    string           `json:"alarm,omitempty"`
	Asserted bool             `json:"asserted,omitempty"`
}

// ErrorNotificationPayload is the payload for the error_notification message
type ErrorNotificationPayload struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// CreateMessage creates a new Message with the given type and payload
func CreateMessage(msgType MessageType, payload interface{}, requestID string) ([]byte, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	msg := Message{
		Type:      msgType,
		Payload:   payloadBytes,
		RequestID: requestID,
	}

	return json.Marshal(msg)
}

// ParseMessage parses a JSON message into a Message struct
func ParseMessage(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// ParsePayload parses the payload of a message into the given struct
func ParsePayload(msg *Message, payload interface{}) error {
	return json.Unmarshal(msg.Payload, payload)
}
