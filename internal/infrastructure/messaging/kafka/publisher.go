package kafka

import (
	"context"

	"github.com/turtacn/ChemXGen/internal/domain/task"
)

const eventSource = "chemxgen.queue"

// TaskEventPublisher forwards queue lifecycle events to a topic.  Events are
// keyed by task ID so one task's events stay ordered within a partition.
type TaskEventPublisher struct {
	producer *Producer
	topic    string
}

func NewTaskEventPublisher(p *Producer, topic string) *TaskEventPublisher {
	if topic == "" {
		topic = TopicTaskEvents
	}
	return &TaskEventPublisher{producer: p, topic: topic}
}

func (t *TaskEventPublisher) Publish(ctx context.Context, ev task.LifecycleEvent) error {
	env, err := NewEventEnvelope(ev.EventType(), eventSource, ev)
	if err != nil {
		return err
	}
	msg, err := env.ToMessage(t.topic, ev.TaskID)
	if err != nil {
		return err
	}
	return t.producer.Publish(ctx, msg)
}

// DecodeLifecycleEvent extracts a task event from a consumed envelope.
func DecodeLifecycleEvent(env *EventEnvelope) (task.LifecycleEvent, error) {
	var ev task.LifecycleEvent
	err := env.DecodePayload(&ev)
	return ev, err
}
