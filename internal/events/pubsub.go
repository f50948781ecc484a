package events

import (
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v2/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/SAP-F-2025/studyroom-service/internal/config"
)

// PubSub bundles the transport the mail queue runs on
type PubSub struct {
	Publisher  message.Publisher
	Subscriber message.Subscriber
	Logger     watermill.LoggerAdapter
	Backend    string
}

// NewPubSub uses Kafka when brokers are configured and an in-process channel otherwise
func NewPubSub(cfg config.QueueConfig, logger *slog.Logger) (*PubSub, error) {
	wmLogger := watermill.NewSlogLogger(logger)

	if len(cfg.KafkaBrokers) == 0 {
		ch := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 64}, wmLogger)
		return &PubSub{Publisher: ch, Subscriber: ch, Logger: wmLogger, Backend: "gochannel"}, nil
	}

	publisher, err := kafka.NewPublisher(kafka.PublisherConfig{
		Brokers:   cfg.KafkaBrokers,
		Marshaler: kafka.DefaultMarshaler{},
	}, wmLogger)
	if err != nil {
		return nil, fmt.Errorf("create kafka publisher: %w", err)
	}

	subscriber, err := kafka.NewSubscriber(kafka.SubscriberConfig{
		Brokers:               cfg.KafkaBrokers,
		Unmarshaler:           kafka.DefaultMarshaler{},
		OverwriteSaramaConfig: kafka.DefaultSaramaSubscriberConfig(),
		ConsumerGroup:         cfg.ConsumerGroup,
	}, wmLogger)
	if err != nil {
		_ = publisher.Close()
		return nil, fmt.Errorf("create kafka subscriber: %w", err)
	}

	return &PubSub{Publisher: publisher, Subscriber: subscriber, Logger: wmLogger, Backend: "kafka"}, nil
}

// Close closes both ends. A gochannel is closed once.
func (p *PubSub) Close() error {
	if err := p.Publisher.Close(); err != nil {
		return err
	}
	if p.Backend == "gochannel" {
		return nil
	}
	return p.Subscriber.Close()
}
