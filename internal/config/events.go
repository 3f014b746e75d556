package config

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/hades874/Super-CMS-sub001/internal/events"
)

// Event publisher kinds accepted in EVENTS_PUBLISHER.
const (
	PublisherKafka = "kafka"
	PublisherMock  = "mock"
)

// EventConfig holds configuration for event publishing
type EventConfig struct {
	Enabled           bool   `env:"EVENTS_ENABLED" envDefault:"false"`
	Publisher         string `env:"EVENTS_PUBLISHER" envDefault:"kafka"` // kafka or mock
	KafkaBrokers      string `env:"KAFKA_BROKERS" envDefault:"localhost:9092"`
	NotificationTopic string `env:"NOTIFICATION_TOPIC" envDefault:"exam-content-events"`
}

// LoadEventConfig reads the event settings from the environment.
func LoadEventConfig() EventConfig {
	enabled, err := strconv.ParseBool(getEnv("EVENTS_ENABLED", "false"))
	if err != nil {
		enabled = false
	}
	return EventConfig{
		Enabled:           enabled,
		Publisher:         strings.ToLower(getEnv("EVENTS_PUBLISHER", PublisherKafka)),
		KafkaBrokers:      getEnv("KAFKA_BROKERS", "localhost:9092"),
		NotificationTopic: getEnv("NOTIFICATION_TOPIC", "exam-content-events"),
	}
}

// GetKafkaBrokers returns Kafka brokers as a slice
func (c *EventConfig) GetKafkaBrokers() []string {
	var brokers []string
	for _, b := range strings.Split(c.KafkaBrokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

// CreateEventPublisher picks the publisher named by EVENTS_PUBLISHER. Disabled
// or unrecognised settings record events in memory instead.
func (c *EventConfig) CreateEventPublisher(logger *slog.Logger) (events.EventPublisher, error) {
	publisher := c.Publisher
	if !c.Enabled {
		publisher = PublisherMock
	}

	switch publisher {
	case PublisherKafka:
		brokers := c.GetKafkaBrokers()
		if len(brokers) == 0 {
			return nil, fmt.Errorf("KAFKA_BROKERS is empty but EVENTS_PUBLISHER is %q", PublisherKafka)
		}
		logger.Info("Publishing events to Kafka", "brokers", brokers, "topic", c.NotificationTopic)
		return events.NewKafkaEventPublisher(events.PublisherConfig{
			KafkaBrokers: brokers,
			TopicName:    c.NotificationTopic,
			Logger:       logger,
		})
	case PublisherMock:
		logger.Info("Recording events in memory", "events_enabled", c.Enabled)
	default:
		logger.Warn("Unknown event publisher, recording events in memory", "publisher", c.Publisher)
	}
	return events.NewMockEventPublisher(logger), nil
}
