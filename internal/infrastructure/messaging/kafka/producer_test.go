package kafka

import (
	"context"
	stderrors "errors"
	"strings"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/ChemXGen/internal/domain/task"
	"github.com/turtacn/ChemXGen/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ChemXGen/pkg/errors"
)

type mockKafkaWriter struct {
	writeFunc func(ctx context.Context, msgs ...kafka.Message) error
	closeFunc func() error
	written   []kafka.Message
}

func (m *mockKafkaWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if m.writeFunc != nil {
		return m.writeFunc(ctx, msgs...)
	}
	m.written = append(m.written, msgs...)
	return nil
}

func (m *mockKafkaWriter) Close() error {
	if m.closeFunc != nil {
		return m.closeFunc()
	}
	return nil
}

func newTestProducer(w WriterInterface) *Producer {
	return NewProducerWithWriter(w, ProducerConfig{Brokers: []string{"localhost:9092"}, MaxMessageBytes: 64}, logging.NewNopLogger())
}

func TestProducer_Publish(t *testing.T) {
	w := &mockKafkaWriter{}
	p := newTestProducer(w)

	err := p.Publish(context.Background(), &ProducerMessage{
		Topic:   TopicTaskEvents,
		Key:     []byte("t1"),
		Value:   []byte(`{"a":1}`),
		Headers: map[string]string{"h": "v"},
	})
	require.NoError(t, err)
	require.Len(t, w.written, 1)
	assert.Equal(t, TopicTaskEvents, w.written[0].Topic)
	assert.Equal(t, "t1", string(w.written[0].Key))
	assert.Equal(t, []kafka.Header{{Key: "h", Value: []byte("v")}}, w.written[0].Headers)
	assert.False(t, w.written[0].Time.IsZero())

	sent, failed, bytes := p.Metrics()
	assert.Equal(t, int64(1), sent)
	assert.Equal(t, int64(0), failed)
	assert.Equal(t, int64(7), bytes)
}

func TestProducer_PublishValidation(t *testing.T) {
	p := newTestProducer(&mockKafkaWriter{})
	ctx := context.Background()

	cases := map[string]*ProducerMessage{
		"no topic":  {Value: []byte("x")},
		"no value":  {Topic: "t"},
		"too large": {Topic: "t", Value: []byte(strings.Repeat("x", 65))},
	}
	for name, msg := range cases {
		t.Run(name, func(t *testing.T) {
			assert.True(t, errors.IsCode(p.Publish(ctx, msg), errors.ErrCodeValidation))
		})
	}
}

func TestProducer_PublishWriteError(t *testing.T) {
	p := newTestProducer(&mockKafkaWriter{writeFunc: func(context.Context, ...kafka.Message) error {
		return stderrors.New("broker down")
	}})
	err := p.Publish(context.Background(), &ProducerMessage{Topic: "t", Value: []byte("x")})
	assert.True(t, errors.IsCode(err, errors.ErrCodeServiceUnavailable))
	_, failed, _ := p.Metrics()
	assert.Equal(t, int64(1), failed)
}

func TestProducer_Close(t *testing.T) {
	closes := 0
	p := newTestProducer(&mockKafkaWriter{closeFunc: func() error { closes++; return nil }})
	require.NoError(t, p.Close())
	require.NoError(t, p.Close())
	assert.Equal(t, 1, closes)
	assert.ErrorIs(t, p.Publish(context.Background(), &ProducerMessage{Topic: "t", Value: []byte("x")}), ErrProducerClosed)
}

func TestNewProducer_Validation(t *testing.T) {
	_, err := NewProducer(ProducerConfig{}, logging.NewNopLogger())
	assert.True(t, errors.IsCode(err, errors.ErrCodeValidation))
	_, err = NewProducer(ProducerConfig{Brokers: []string{"b"}, MaxRetries: -1}, logging.NewNopLogger())
	assert.Error(t, err)

	p, err := NewProducer(ProducerConfig{Brokers: []string{"b"}, Acks: "all", Compression: "zstd"}, logging.NewNopLogger())
	require.NoError(t, err)
	assert.Equal(t, 3, p.config.MaxRetries)
	assert.NoError(t, p.Close())
}

func TestTaskEventPublisher(t *testing.T) {
	w := &mockKafkaWriter{}
	pub := NewTaskEventPublisher(NewProducerWithWriter(w, ProducerConfig{Brokers: []string{"b"}}, logging.NewNopLogger()), "")

	at := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	tk := task.New("t-1", "CCO", task.KindToxicity, nil, at)
	ev := task.NewLifecycleEvent(task.LifecycleSubmitted, tk, at)
	require.NoError(t, pub.Publish(context.Background(), ev))

	require.Len(t, w.written, 1)
	m := w.written[0]
	assert.Equal(t, TopicTaskEvents, m.Topic)
	assert.Equal(t, "t-1", string(m.Key))

	env, err := EnvelopeFromMessage(&Message{Topic: m.Topic, Value: m.Value})
	require.NoError(t, err)
	assert.Equal(t, "task.submitted", env.EventType)
	assert.Equal(t, SchemaVersion, env.SchemaVersion)
	assert.NotEmpty(t, env.EventID)

	got, err := DecodeLifecycleEvent(env)
	require.NoError(t, err)
	assert.Equal(t, ev, got)
}
