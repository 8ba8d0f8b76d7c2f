package minio

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/ChemXGen/internal/domain/task"
	"github.com/turtacn/ChemXGen/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ChemXGen/pkg/errors"
)

func newTestStore() (*Store, *MockObjectAPI) {
	api := new(MockObjectAPI)
	client := NewClientFromAPI(api, Config{Bucket: "state", Prefix: "chemxgen/"}, logging.NewNopLogger())
	return NewStore(client), api
}

func TestStore_LoadMissing(t *testing.T) {
	store, api := newTestStore()
	ctx := context.Background()
	api.On("StatObject", ctx, "state", "chemxgen/tasks", minio.StatObjectOptions{}).Return(minio.ObjectInfo{}, noSuchKey)

	_, err := store.Load(ctx, "tasks")
	assert.ErrorIs(t, err, task.ErrNotFound)
	api.AssertExpectations(t)
}

func TestStore_LoadErrors(t *testing.T) {
	store, api := newTestStore()
	ctx := context.Background()
	api.On("StatObject", ctx, "state", "chemxgen/tasks", minio.StatObjectOptions{}).Return(minio.ObjectInfo{}, stderrors.New("timeout")).Once()

	_, err := store.Load(ctx, "tasks")
	assert.True(t, errors.IsCode(err, errors.ErrCodeStoreUnavailable))

	api.On("StatObject", ctx, "state", "chemxgen/tasks", minio.StatObjectOptions{}).Return(minio.ObjectInfo{Size: 2}, nil).Once()
	api.On("GetObject", ctx, "state", "chemxgen/tasks", minio.GetObjectOptions{}).Return(nil, stderrors.New("reset"))

	_, err = store.Load(ctx, "tasks")
	assert.True(t, errors.IsCode(err, errors.ErrCodeStoreUnavailable))
	api.AssertExpectations(t)
}

func TestStore_Save(t *testing.T) {
	store, api := newTestStore()
	ctx := context.Background()
	opts := minio.PutObjectOptions{ContentType: "application/json"}
	api.On("PutObject", ctx, "state", "chemxgen/tasks", `[{"id":"a"}]`, int64(12), opts).Return(minio.UploadInfo{}, nil).Once()
	api.On("PutObject", ctx, "state", "chemxgen/tasks", `[]`, int64(2), opts).Return(minio.UploadInfo{}, stderrors.New("quota"))

	require.NoError(t, store.Save(ctx, "tasks", []byte(`[{"id":"a"}]`)))
	err := store.Save(ctx, "tasks", []byte(`[]`))
	assert.True(t, errors.IsCode(err, errors.ErrCodeStoreWrite))
	api.AssertExpectations(t)
}

func TestStore_Clear(t *testing.T) {
	store, api := newTestStore()
	ctx := context.Background()
	api.On("RemoveObject", ctx, "state", "chemxgen/tasks", minio.RemoveObjectOptions{}).Return(nil).Once()
	api.On("RemoveObject", ctx, "state", "chemxgen/tasks", minio.RemoveObjectOptions{}).Return(noSuchKey).Once()
	api.On("RemoveObject", ctx, "state", "chemxgen/tasks", minio.RemoveObjectOptions{}).Return(stderrors.New("denied")).Once()

	assert.NoError(t, store.Clear(ctx, "tasks"))
	assert.NoError(t, store.Clear(ctx, "tasks"))
	assert.True(t, errors.IsCode(store.Clear(ctx, "tasks"), errors.ErrCodeStoreUnavailable))
	api.AssertExpectations(t)
}

func TestStore_Closed(t *testing.T) {
	store, _ := newTestStore()
	require.NoError(t, store.client.Close())
	_, err := store.Load(context.Background(), "tasks")
	assert.ErrorIs(t, err, ErrClientClosed)
	assert.ErrorIs(t, store.Save(context.Background(), "tasks", nil), ErrClientClosed)
	assert.ErrorIs(t, store.Clear(context.Background(), "tasks"), ErrClientClosed)
}
