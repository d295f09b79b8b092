package events

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"
)

// Publisher delivers appointment events to a broker.  Publish failures
// are reported to the caller, which decides whether to ignore them.
type Publisher interface {
	Publish(ctx context.Context, ev AppointmentEvent) error
	Close() error
}

// NopPublisher drops every event.  Used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, AppointmentEvent) error { return nil }
func (NopPublisher) Close() error                                    { return nil }

// Options selects and configures a broker.
type Options struct {
	Broker       string   // rabbitmq | kafka | none
	AMQPURL      string   // RabbitMQ URL
	Queue        string   // RabbitMQ queue name
	KafkaBrokers []string // Kafka bootstrap servers
	Topic        string   // Kafka topic
}

// New returns the publisher for opts.Broker.  A broker that cannot be
// reached at startup is logged and replaced by NopPublisher so the API
// keeps serving bookings.
func New(opts Options, log logrus.FieldLogger) Publisher {
	switch strings.ToLower(opts.Broker) {
	case "rabbitmq", "amqp":
		p, err := NewRabbitPublisher(opts.AMQPURL, opts.Queue)
		if err != nil {
			log.WithError(err).Warn("events: rabbitmq unavailable, events disabled")
			return NopPublisher{}
		}
		return p
	case "kafka":
		if len(opts.KafkaBrokers) == 0 {
			log.Warn("events: no kafka brokers configured, events disabled")
			return NopPublisher{}
		}
		return NewKafkaPublisher(opts.KafkaBrokers, opts.Topic)
	default:
		return NopPublisher{}
	}
}
