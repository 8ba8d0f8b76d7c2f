package main

import (
	"context"
	"sync"
	"time"

	"github.com/turtacn/ChemXGen/internal/domain/task"
	"github.com/turtacn/ChemXGen/internal/infrastructure/database/redis"
	"github.com/turtacn/ChemXGen/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/ChemXGen/internal/infrastructure/monitoring/logging"
)

const (
	eventKeyPrefix = "task-event:"
	eventTTL       = 24 * time.Hour
)

// eventTracker records the latest lifecycle event of every task.
type eventTracker struct {
	cache  redis.Cache
	logger logging.Logger

	mu     sync.Mutex
	counts map[task.LifecycleType]int
}

// newEventTracker creates a tracker.  Without a Redis client events are only
// logged and counted.
func newEventTracker(client *redis.Client, logger logging.Logger) *eventTracker {
	t := &eventTracker{logger: logger.Named("events"), counts: make(map[task.LifecycleType]int)}
	if client != nil {
		t.cache = redis.NewCache(client, logger, redis.WithCachePrefix(""), redis.WithDefaultTTL(eventTTL))
	}
	return t
}

func (t *eventTracker) Handle(ctx context.Context, msg *kafka.Message) error {
	env, err := kafka.EnvelopeFromMessage(msg)
	if err != nil {
		return err
	}
	ev, err := kafka.DecodeLifecycleEvent(env)
	if err != nil {
		return err
	}

	t.mu.Lock()
	t.counts[ev.Type]++
	t.mu.Unlock()

	t.logger.Info("Task event",
		logging.String("type", string(ev.Type)),
		logging.String("task_id", ev.TaskID),
		logging.String("status", string(ev.Status)),
		logging.Float64("progress", ev.Progress))

	if t.cache == nil || ev.TaskID == "" {
		return nil
	}
	return t.cache.Set(ctx, eventKeyPrefix+ev.TaskID, ev, 0)
}

// Last returns the recorded event for id.
func (t *eventTracker) Last(ctx context.Context, id string) (task.LifecycleEvent, error) {
	var ev task.LifecycleEvent
	if t.cache == nil {
		return ev, redis.ErrCacheMiss
	}
	err := t.cache.Get(ctx, eventKeyPrefix+id, &ev)
	return ev, err
}

func (t *eventTracker) Count(typ task.LifecycleType) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.counts[typ]
}
