package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
)

const (
	EventSource  = "studyroom-service"
	EventVersion = "1.0"

	TypePasswordResetRequested = "auth.password_reset_requested"
)

// Event is the envelope of every message the service publishes
type Event struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Source    string          `json:"source"`
	Version   string          `json:"version"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// NewEvent wraps data into an envelope with a fresh id
func NewEvent(eventType string, data interface{}) (*Event, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("marshal %s event: %w", eventType, err)
	}
	return &Event{
		ID:        watermill.NewUUID(),
		Type:      eventType,
		Source:    EventSource,
		Version:   EventVersion,
		Timestamp: time.Now().UTC(),
		Data:      raw,
	}, nil
}

// Decode unmarshals the event payload into dest
func (e *Event) Decode(dest interface{}) error {
	if err := json.Unmarshal(e.Data, dest); err != nil {
		return fmt.Errorf("decode %s event: %w", e.Type, err)
	}
	return nil
}

// PasswordResetRequested asks the mailer to deliver a reset link
type PasswordResetRequested struct {
	DeliveryID uint   `json:"delivery_id"`
	Email      string `json:"email"`
	Username   string `json:"username"`
	ResetURL   string `json:"reset_url"`
}
