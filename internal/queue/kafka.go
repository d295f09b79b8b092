package queue

import (
    "context"
    "errors"
    "time"

    "github.com/segmentio/kafka-go"
    "github.com/sirupsen/logrus"

    "github.com/iliyamo/sports-hall-booking/internal/events"
)

// DefaultGroup is the consumer group used when none is configured.
const DefaultGroup = "appointment-log"

// KafkaConsumer reads the events topic as part of a consumer group.
// Offsets are committed only after the sink accepted the message; poison
// messages are logged and committed so the partition keeps moving.
type KafkaConsumer struct {
    Brokers []string
    Topic   string
    Group   string
    Sink    *Sink
    Log     logrus.FieldLogger
}

// Run blocks until ctx is cancelled.
func (c *KafkaConsumer) Run(ctx context.Context) error {
    topic, group := c.Topic, c.Group
    if topic == "" {
        topic = events.DefaultTopic
    }
    if group == "" {
        group = DefaultGroup
    }
    r := kafka.NewReader(kafka.ReaderConfig{
        Brokers:  c.Brokers,
        Topic:    topic,
        GroupID:  group,
        MinBytes: 1,
        MaxBytes: 1 << 20,
    })
    defer func() { _ = r.Close() }()

    for {
        m, err := r.FetchMessage(ctx)
        if err != nil {
            if errors.Is(err, context.Canceled) || ctx.Err() != nil {
                return ctx.Err()
            }
            c.Log.WithError(err).Warn("appointment-consumer: fetch failed")
            if !sleep(ctx, time.Second) {
                return ctx.Err()
            }
            continue
        }
        if err := c.Sink.Handle(m.Value); err != nil {
            c.Log.WithError(err).WithFields(logrus.Fields{
                "partition": m.Partition,
                "offset":    m.Offset,
            }).Error("appointment-consumer: handle message failed")
        }
        if err := r.CommitMessages(ctx, m); err != nil && ctx.Err() == nil {
            c.Log.WithError(err).Warn("appointment-consumer: commit failed")
        }
    }
}
