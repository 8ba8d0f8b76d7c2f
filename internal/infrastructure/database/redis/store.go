package redis

import (
	"context"
	stderrors "errors"

	"github.com/redis/go-redis/v9"

	"github.com/turtacn/ChemXGen/internal/domain/task"
)

// TaskStore keeps each task list as one string value.
type TaskStore struct {
	client *Client
}

var _ task.Store = (*TaskStore)(nil)

func NewTaskStore(client *Client) *TaskStore {
	return &TaskStore{client: client}
}

func (s *TaskStore) Load(ctx context.Context, key string) ([]byte, error) {
	if s.client.isClosed() {
		return nil, ErrClientClosed
	}
	data, err := s.client.rdb.Get(ctx, s.client.Key(key)).Bytes()
	if stderrors.Is(err, redis.Nil) {
		return nil, task.ErrNotFound
	}
	if err != nil {
		return nil, storeError(err, "get", key)
	}
	return data, nil
}

func (s *TaskStore) Save(ctx context.Context, key string, data []byte) error {
	if s.client.isClosed() {
		return ErrClientClosed
	}
	if err := s.client.rdb.Set(ctx, s.client.Key(key), data, s.client.cfg.TTL).Err(); err != nil {
		return storeError(err, "set", key)
	}
	return nil
}

func (s *TaskStore) Clear(ctx context.Context, key string) error {
	if s.client.isClosed() {
		return ErrClientClosed
	}
	if err := s.client.rdb.Del(ctx, s.client.Key(key)).Err(); err != nil {
		return storeError(err, "del", key)
	}
	return nil
}
