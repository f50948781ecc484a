package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ThreeDotsLabs/watermill/message"
)

// EventPublisher publishes service events to a topic
type EventPublisher interface {
	Publish(ctx context.Context, topic string, event *Event) error
	Close() error
}

// WatermillEventPublisher sends events through any watermill publisher
type WatermillEventPublisher struct {
	publisher message.Publisher
	logger    *slog.Logger
}

func NewWatermillEventPublisher(publisher message.Publisher, logger *slog.Logger) *WatermillEventPublisher {
	return &WatermillEventPublisher{publisher: publisher, logger: logger}
}

func (p *WatermillEventPublisher) Publish(ctx context.Context, topic string, event *Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	msg := message.NewMessage(event.ID, payload)
	msg.SetContext(ctx)
	msg.Metadata.Set("event_type", event.Type)

	if err := p.publisher.Publish(topic, msg); err != nil {
		return fmt.Errorf("publish %s to %s: %w", event.Type, topic, err)
	}

	p.logger.Debug("Event published", "event_id", event.ID, "event_type", event.Type, "topic", topic)
	return nil
}

func (p *WatermillEventPublisher) Close() error {
	return p.publisher.Close()
}

// DecodeMessage reads the event envelope from a watermill message
func DecodeMessage(msg *message.Message) (*Event, error) {
	var event Event
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		return nil, fmt.Errorf("decode event %s: %w", msg.UUID, err)
	}
	return &event, nil
}

// MockEventPublisher records published events in memory
type MockEventPublisher struct {
	mu        sync.Mutex
	logger    *slog.Logger
	events    []*Event
	topics    []string
	PublishFn func(topic string, event *Event) error
}

func NewMockEventPublisher(logger *slog.Logger) *MockEventPublisher {
	return &MockEventPublisher{logger: logger}
}

func (m *MockEventPublisher) Publish(ctx context.Context, topic string, event *Event) error {
	if m.PublishFn != nil {
		if err := m.PublishFn(topic, event); err != nil {
			return err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	m.topics = append(m.topics, topic)
	return nil
}

func (m *MockEventPublisher) Close() error { return nil }

// GetPublishedEvents returns a copy of the recorded events
func (m *MockEventPublisher) GetPublishedEvents() []*Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Event, len(m.events))
	copy(out, m.events)
	return out
}

func (m *MockEventPublisher) Topics() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.topics))
	copy(out, m.topics)
	return out
}

func (m *MockEventPublisher) ClearEvents() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = nil
	m.topics = nil
}
