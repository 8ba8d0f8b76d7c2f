package main

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/ChemXGen/internal/domain/task"
	"github.com/turtacn/ChemXGen/internal/infrastructure/database/redis"
	"github.com/turtacn/ChemXGen/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/ChemXGen/internal/infrastructure/monitoring/logging"
)

func eventMessage(t *testing.T, ev task.LifecycleEvent) *kafka.Message {
	t.Helper()
	env, err := kafka.NewEventEnvelope(ev.EventType(), "test", ev)
	require.NoError(t, err)
	pm, err := env.ToMessage(kafka.TopicTaskEvents, ev.TaskID)
	require.NoError(t, err)
	return &kafka.Message{Topic: pm.Topic, Key: pm.Key, Value: pm.Value, Headers: pm.Headers}
}

func TestEventTracker_StoresLatestEvent(t *testing.T) {
	mr := miniredis.RunT(t)
	client, err := redis.NewClient(redis.Config{Addr: mr.Addr()}, logging.NewNopLogger())
	require.NoError(t, err)
	defer client.Close()

	tr := newEventTracker(client, logging.NewNopLogger())
	ctx := context.Background()
	tk := task.New("t1", "CCO", task.KindToxicity, nil, time.Now())

	require.NoError(t, tr.Handle(ctx, eventMessage(t, task.NewLifecycleEvent(task.LifecycleSubmitted, tk, time.Now()))))
	tk.Status = task.StatusCompleted
	tk.Progress = 100
	require.NoError(t, tr.Handle(ctx, eventMessage(t, task.NewLifecycleEvent(task.LifecycleCompleted, tk, time.Now()))))

	last, err := tr.Last(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, task.LifecycleCompleted, last.Type)
	assert.Equal(t, task.StatusCompleted, last.Status)
	assert.Equal(t, 100.0, last.Progress)
	assert.Equal(t, 1, tr.Count(task.LifecycleSubmitted))
	assert.Equal(t, 1, tr.Count(task.LifecycleCompleted))
}

func TestEventTracker_WithoutRedis(t *testing.T) {
	tr := newEventTracker(nil, logging.NewNopLogger())
	ctx := context.Background()

	require.NoError(t, tr.Handle(ctx, eventMessage(t, task.NewLifecycleEvent(task.LifecycleCleared, nil, time.Now()))))
	assert.Equal(t, 1, tr.Count(task.LifecycleCleared))

	_, err := tr.Last(ctx, "t1")
	assert.ErrorIs(t, err, redis.ErrCacheMiss)
}

func TestEventTracker_RejectsMalformed(t *testing.T) {
	tr := newEventTracker(nil, logging.NewNopLogger())
	err := tr.Handle(context.Background(), &kafka.Message{Topic: kafka.TopicTaskEvents, Value: []byte("not json")})
	assert.Error(t, err)
}
