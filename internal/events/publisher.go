package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v2/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"
)

// Message metadata keys set on every published event.
const (
	MetadataEventType = "event_type"
	MetadataSubject   = "subject"
	MetadataSource    = "source"
	MetadataVersion   = "version"
	MetadataTimestamp = "timestamp"
)

// EventPublisher publishes exam and content events.
type EventPublisher interface {
	PublishNotificationEvent(ctx context.Context, event *NotificationEvent) error
	Close() error
}

// PublisherConfig holds the Kafka settings for KafkaEventPublisher.
type PublisherConfig struct {
	KafkaBrokers []string
	TopicName    string
	Logger       *slog.Logger
}

// KafkaEventPublisher writes events to a single Kafka topic. Events with the
// same subject land on the same partition, so consumers see an attempt's
// start before its finalization.
type KafkaEventPublisher struct {
	publisher message.Publisher
	topic     string
	logger    *slog.Logger
}

func NewKafkaEventPublisher(cfg PublisherConfig) (*KafkaEventPublisher, error) {
	marshaler := kafka.NewWithPartitioningMarshaler(partitionBySubject)

	publisher, err := kafka.NewPublisher(kafka.PublisherConfig{
		Brokers:   cfg.KafkaBrokers,
		Marshaler: marshaler,
	}, watermill.NewSlogLogger(cfg.Logger))
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka publisher: %w", err)
	}

	return &KafkaEventPublisher{
		publisher: publisher,
		topic:     cfg.TopicName,
		logger:    cfg.Logger.With("component", "kafka_publisher", "topic", cfg.TopicName),
	}, nil
}

// partitionBySubject keys messages by subject. Events without one fall back
// to their own id and spread across partitions.
func partitionBySubject(_ string, msg *message.Message) (string, error) {
	if subject := msg.Metadata.Get(MetadataSubject); subject != "" {
		return subject, nil
	}
	return msg.UUID, nil
}

// ToMessage encodes an event as a watermill message carrying its routing
// metadata.
func ToMessage(ctx context.Context, event *NotificationEvent) (*message.Message, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s event: %w", event.Type, err)
	}

	msg := message.NewMessage(event.ID, payload)
	msg.Metadata = message.Metadata{
		MetadataEventType: string(event.Type),
		MetadataSubject:   event.Subject,
		MetadataSource:    event.Source,
		MetadataVersion:   event.Version,
		MetadataTimestamp: event.Timestamp.UTC().Format(time.RFC3339Nano),
	}
	msg.SetContext(ctx)
	return msg, nil
}

func (p *KafkaEventPublisher) PublishNotificationEvent(ctx context.Context, event *NotificationEvent) error {
	msg, err := ToMessage(ctx, event)
	if err != nil {
		return err
	}

	log := p.logger.With("event_id", event.ID, "event_type", event.Type, "subject", event.Subject)
	if err := p.publisher.Publish(p.topic, msg); err != nil {
		log.Error("Failed to publish event", "error", err)
		return fmt.Errorf("failed to publish %s event: %w", event.Type, err)
	}
	log.Debug("Published event")
	return nil
}

func (p *KafkaEventPublisher) Close() error {
	return p.publisher.Close()
}

// MockEventPublisher records events in memory. It backs tests and stands in
// for Kafka when publishing is disabled.
type MockEventPublisher struct {
	mu     sync.Mutex
	events []NotificationEvent
	logger *slog.Logger
}

func NewMockEventPublisher(logger *slog.Logger) *MockEventPublisher {
	return &MockEventPublisher{logger: logger}
}

func (m *MockEventPublisher) PublishNotificationEvent(_ context.Context, event *NotificationEvent) error {
	m.mu.Lock()
	m.events = append(m.events, *event)
	m.mu.Unlock()

	m.logger.Debug("Recorded event", "event_id", event.ID, "event_type", event.Type, "subject", event.Subject)
	return nil
}

func (m *MockEventPublisher) Close() error { return nil }

// GetPublishedEvents returns a copy of the recorded events in publish order.
func (m *MockEventPublisher) GetPublishedEvents() []NotificationEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]NotificationEvent(nil), m.events...)
}

func (m *MockEventPublisher) EventsOfType(eventType EventType) []NotificationEvent {
	var out []NotificationEvent
	for _, e := range m.GetPublishedEvents() {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

// EventsFor returns the recorded events about one exam or attempt.
func (m *MockEventPublisher) EventsFor(subject string) []NotificationEvent {
	var out []NotificationEvent
	for _, e := range m.GetPublishedEvents() {
		if e.Subject == subject {
			out = append(out, e)
		}
	}
	return out
}
