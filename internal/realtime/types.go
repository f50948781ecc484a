package realtime

import (
	"encoding/json"
	"strings"
)

// Socket event names
const (
	EventJoin    = "join"
	EventLeave   = "leave"
	EventMessage = "message"
	EventError   = "error"

	// SystemUser authors server generated notices
	SystemUser = "System"
)

// InboundEvent is a frame sent by a browser
type InboundEvent struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// RoomPayload is the data of join, leave and message events
type RoomPayload struct {
	Room uint   `json:"room"`
	Text string `json:"text,omitempty"`
}

// OutboundEvent is a frame pushed to browsers
type OutboundEvent struct {
	Event string      `json:"event"`
	Room  uint        `json:"room,omitempty"`
	Data  interface{} `json:"data"`
}

// ChatData is the payload of an outbound message event
type ChatData struct {
	User string `json:"user"`
	Text string `json:"text"`
}

type ErrorData struct {
	Message string `json:"message"`
}

// NewChatEvent builds the frame relayed to a room
func NewChatEvent(roomID uint, user, text string) ([]byte, error) {
	return json.Marshal(OutboundEvent{
		Event: EventMessage,
		Room:  roomID,
		Data:  ChatData{User: user, Text: text},
	})
}

// NewErrorEvent builds an error frame for a single client
func NewErrorEvent(message string) []byte {
	payload, _ := json.Marshal(OutboundEvent{
		Event: EventError,
		Data:  ErrorData{Message: message},
	})
	return payload
}

// JoinNotice is the system text announcing a new member
func JoinNotice(username string) string {
	return username + " has joined the room."
}

// isExpectedCloseError checks if an error is expected during connection closure.
func isExpectedCloseError(err error) bool {
	if err == nil {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "use of closed network connection") ||
		strings.Contains(errStr, "websocket: close sent") ||
		strings.Contains(errStr, "broken pipe")
}
