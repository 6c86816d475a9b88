// Package kafka appends reaction records to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/G-m007/EmoStream/internal/domain"
	"github.com/twmb/franz-go/pkg/kgo"
)

const clientID = "emostream-relay"

// producer is the subset of *kgo.Client the event log needs.
type producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
	Ping(ctx context.Context) error
	Close()
}

// EventLog is a domain.EventLog writing one JSON record per reaction,
// keyed by user id so a user's reactions stay ordered within a partition.
type EventLog struct {
	client producer
	topic  string
}

// NewEventLog connects a producer to brokers. The connection is lazy; use Ping
// to check the brokers are reachable.
func NewEventLog(brokers []string, topic string) (*EventLog, error) {
	if len(brokers) == 0 {
		return nil, errors.New("kafka: no brokers configured")
	}

	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.ClientID(clientID),
		kgo.RequiredAcks(kgo.AllISRAcks()),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}

	slog.Info("Kafka event log configured", "brokers", brokers, "topic", topic)
	return newEventLog(client, topic), nil
}

func newEventLog(client producer, topic string) *EventLog {
	return &EventLog{client: client, topic: topic}
}

// Append produces record synchronously and returns once the brokers acknowledged it.
func (l *EventLog) Append(ctx context.Context, record domain.LogRecord) error {
	value, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode log record: %w", err)
	}

	r := &kgo.Record{
		Topic: l.topic,
		Key:   []byte(record.UserID),
		Value: value,
	}
	if err := l.client.ProduceSync(ctx, r).FirstErr(); err != nil {
		return fmt.Errorf("produce to %s: %w", l.topic, err)
	}
	return nil
}

func (l *EventLog) Ping(ctx context.Context) error {
	if err := l.client.Ping(ctx); err != nil {
		return fmt.Errorf("ping kafka: %w", err)
	}
	return nil
}

// Close releases the producer.
func (l *EventLog) Close() error {
	l.client.Close()
	return nil
}
