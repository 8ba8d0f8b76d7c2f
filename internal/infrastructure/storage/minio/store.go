package minio

import (
	"bytes"
	"context"
	"io"

	"github.com/minio/minio-go/v7"

	"github.com/turtacn/ChemXGen/internal/domain/task"
	"github.com/turtacn/ChemXGen/pkg/errors"
)

var ErrClientClosed = errors.New(errors.ErrCodeStoreUnavailable, "minio client is closed")

// Store keeps each key as one JSON object.
type Store struct {
	client *Client
}

var _ task.Store = (*Store)(nil)

func NewStore(client *Client) *Store {
	return &Store{client: client}
}

func (s *Store) Load(ctx context.Context, key string) ([]byte, error) {
	if s.client.isClosed() {
		return nil, ErrClientClosed
	}
	name := s.client.object(key)
	if _, err := s.client.api.StatObject(ctx, s.client.cfg.Bucket, name, minio.StatObjectOptions{}); err != nil {
		if isNoSuchKey(err) {
			return nil, task.ErrNotFound
		}
		return nil, objectError(err, "stat", name)
	}

	obj, err := s.client.api.GetObject(ctx, s.client.cfg.Bucket, name, minio.GetObjectOptions{})
	if err != nil {
		return nil, objectError(err, "get", name)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		if isNoSuchKey(err) {
			return nil, task.ErrNotFound
		}
		return nil, objectError(err, "read", name)
	}
	return data, nil
}

func (s *Store) Save(ctx context.Context, key string, data []byte) error {
	if s.client.isClosed() {
		return ErrClientClosed
	}
	name := s.client.object(key)
	_, err := s.client.api.PutObject(ctx, s.client.cfg.Bucket, name, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: "application/json"})
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeStoreWrite, "minio put failed").WithDetail("object=" + name)
	}
	return nil
}

// Clear removes the object.  S3 deletes of missing objects succeed.
func (s *Store) Clear(ctx context.Context, key string) error {
	if s.client.isClosed() {
		return ErrClientClosed
	}
	name := s.client.object(key)
	if err := s.client.api.RemoveObject(ctx, s.client.cfg.Bucket, name, minio.RemoveObjectOptions{}); err != nil {
		if isNoSuchKey(err) {
			return nil
		}
		return objectError(err, "remove", name)
	}
	return nil
}

func isNoSuchKey(err error) bool {
	return minio.ToErrorResponse(err).Code == "NoSuchKey"
}

func objectError(err error, op, name string) error {
	return errors.Wrap(err, errors.ErrCodeStoreUnavailable, "minio "+op+" failed").WithDetail("object=" + name)
}
