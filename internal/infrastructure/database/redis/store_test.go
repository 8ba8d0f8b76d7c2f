package redis

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/ChemXGen/internal/domain/task"
	"github.com/turtacn/ChemXGen/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ChemXGen/pkg/errors"
)

func TestTaskStore_RoundTrip(t *testing.T) {
	client, mr := newTestClient(t, "chemxgen:")
	store := NewTaskStore(client)
	ctx := context.Background()

	_, err := store.Load(ctx, "tasks")
	assert.ErrorIs(t, err, task.ErrNotFound)

	require.NoError(t, store.Save(ctx, "tasks", []byte(`[{"id":"a"}]`)))
	raw, err := mr.Get("chemxgen:tasks")
	require.NoError(t, err)
	assert.Equal(t, `[{"id":"a"}]`, raw)

	data, err := store.Load(ctx, "tasks")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":"a"}]`, string(data))

	require.NoError(t, store.Clear(ctx, "tasks"))
	assert.False(t, mr.Exists("chemxgen:tasks"))
	assert.NoError(t, store.Clear(ctx, "tasks"))
}

func TestTaskStore_TTL(t *testing.T) {
	mr := miniredis.RunT(t)
	client, err := NewClient(Config{Addr: mr.Addr(), TTL: time.Hour}, logging.NewNopLogger())
	require.NoError(t, err)
	defer client.Close()

	require.NoError(t, NewTaskStore(client).Save(context.Background(), "tasks", []byte("[]")))
	assert.Equal(t, time.Hour, mr.TTL("tasks"))
}

func TestTaskStore_BackendErrors(t *testing.T) {
	db, mock := redismock.NewClientMock()
	client := NewClientFromUniversal(db, Config{KeyPrefix: "p:"}, logging.NewNopLogger())
	store := NewTaskStore(client)
	ctx := context.Background()

	mock.ExpectGet("p:tasks").SetErr(stderrors.New("connection reset"))
	_, err := store.Load(ctx, "tasks")
	assert.True(t, errors.IsCode(err, errors.ErrCodeStoreUnavailable))

	mock.ExpectSet("p:tasks", []byte("[]"), 0).SetErr(stderrors.New("readonly"))
	err = store.Save(ctx, "tasks", []byte("[]"))
	assert.True(t, errors.IsCode(err, errors.ErrCodeStoreUnavailable))

	mock.ExpectDel("p:tasks").SetErr(stderrors.New("readonly"))
	err = store.Clear(ctx, "tasks")
	assert.True(t, errors.IsCode(err, errors.ErrCodeStoreUnavailable))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskStore_ClosedClient(t *testing.T) {
	client, _ := newTestClient(t, "")
	store := NewTaskStore(client)
	require.NoError(t, client.Close())

	_, err := store.Load(context.Background(), "tasks")
	assert.ErrorIs(t, err, ErrClientClosed)
	assert.ErrorIs(t, store.Save(context.Background(), "tasks", nil), ErrClientClosed)
	assert.ErrorIs(t, store.Clear(context.Background(), "tasks"), ErrClientClosed)
}
