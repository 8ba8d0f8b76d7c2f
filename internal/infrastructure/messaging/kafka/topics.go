package kafka

import (
	"context"
	"encoding/json"
	"net"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/turtacn/ChemXGen/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ChemXGen/pkg/errors"
)

const (
	TopicTaskEvents           = "chemxgen.task.events"
	TopicDeadLetterTaskEvents = "chemxgen.task.events.dlq"

	SchemaVersion   = "1"
	HeaderEventType = "event_type"
)

// Message is a consumed record.
type Message struct {
	Topic     string
	Partition int
	Offset    int64
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Timestamp time.Time
}

// ProducerMessage is a record to publish.
type ProducerMessage struct {
	Topic     string
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Timestamp time.Time
}

// MessageHandler processes one consumed message.
type MessageHandler func(ctx context.Context, msg *Message) error

// EventEnvelope wraps every event on the wire.
type EventEnvelope struct {
	EventID       string            `json:"event_id"`
	EventType     string            `json:"event_type"`
	Source        string            `json:"source"`
	Timestamp     time.Time         `json:"timestamp"`
	SchemaVersion string            `json:"schema_version"`
	Payload       json.RawMessage   `json:"payload"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

func NewEventEnvelope(eventType, source string, payload interface{}) (*EventEnvelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to marshal event payload")
	}
	return &EventEnvelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		Source:        source,
		Timestamp:     time.Now().UTC(),
		SchemaVersion: SchemaVersion,
		Payload:       raw,
	}, nil
}

func (e *EventEnvelope) DecodePayload(target interface{}) error {
	if err := json.Unmarshal(e.Payload, target); err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to decode event payload").WithDetail("event_type=" + e.EventType)
	}
	return nil
}

// ToMessage encodes the envelope for topic, keyed by key.
func (e *EventEnvelope) ToMessage(topic string, key string) (*ProducerMessage, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to marshal envelope")
	}
	return &ProducerMessage{
		Topic:     topic,
		Key:       []byte(key),
		Value:     data,
		Headers:   map[string]string{HeaderEventType: e.EventType},
		Timestamp: e.Timestamp,
	}, nil
}

func EnvelopeFromMessage(msg *Message) (*EventEnvelope, error) {
	var env EventEnvelope
	if err := json.Unmarshal(msg.Value, &env); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to decode envelope").
			WithDetail("topic=" + msg.Topic + " offset=" + strconv.FormatInt(msg.Offset, 10))
	}
	if env.EventType == "" {
		return nil, errors.New(errors.ErrCodeValidation, "envelope without event type")
	}
	return &env, nil
}

// EnsureTopics creates missing topics through the cluster controller.
func EnsureTopics(ctx context.Context, broker string, partitions, replication int, log logging.Logger, topics ...string) error {
	var d kafka.Dialer
	conn, err := d.DialContext(ctx, "tcp", broker)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeServiceUnavailable, "failed to dial kafka").WithDetail("broker=" + broker)
	}
	defer conn.Close()

	controller, err := conn.Controller()
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeServiceUnavailable, "failed to find kafka controller")
	}
	cc, err := d.DialContext(ctx, "tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeServiceUnavailable, "failed to dial kafka controller")
	}
	defer cc.Close()

	configs := make([]kafka.TopicConfig, len(topics))
	for i, t := range topics {
		configs[i] = kafka.TopicConfig{Topic: t, NumPartitions: partitions, ReplicationFactor: replication}
	}
	if err := cc.CreateTopics(configs...); err != nil {
		return errors.Wrap(err, errors.ErrCodeServiceUnavailable, "failed to create topics")
	}
	log.Info("Kafka topics ensured", logging.Strings("topics", topics))
	return nil
}
