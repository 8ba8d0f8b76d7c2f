package main

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/ChemXGen/internal/bootstrap"
	"github.com/turtacn/ChemXGen/internal/config"
	"github.com/turtacn/ChemXGen/internal/domain/task"
	"github.com/turtacn/ChemXGen/internal/infrastructure/database/redis"
	"github.com/turtacn/ChemXGen/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ChemXGen/internal/infrastructure/storage/file"
)

func drainRuntime(t *testing.T, fs afero.Fs) *bootstrap.Runtime {
	t.Helper()
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	cfg.Store.Backend = "file"
	cfg.Store.FileDir = "/data"
	cfg.Queue.PacingDelay = time.Millisecond
	cfg.Queue.TickInterval = 5 * time.Millisecond
	cfg.Queue.PollInterval = 10 * time.Millisecond
	return bootstrap.New(cfg, logging.NewNopLogger(), fs)
}

func TestDrain_NothingRunning(t *testing.T) {
	rt := drainRuntime(t, afero.NewMemMapFs())
	require.NoError(t, drain(context.Background(), rt, false))
}

func TestDrain_FailsTasksWithoutGateway(t *testing.T) {
	fs := afero.NewMemMapFs()
	rt := drainRuntime(t, fs)

	data, err := task.Encode([]*task.Task{task.New("t1", "CCO", task.KindToxicity, nil, time.Now())})
	require.NoError(t, err)
	store := file.NewStore(fs, "/data")
	require.NoError(t, store.Save(context.Background(), rt.Config.Queue.StorageKey, data))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, drain(ctx, rt, false))

	raw, err := store.Load(context.Background(), rt.Config.Queue.StorageKey)
	require.NoError(t, err)
	tasks, err := task.Decode(raw)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, task.StatusFailed, tasks[0].Status)
}

func TestDrain_SkipsWhenLeaseHeld(t *testing.T) {
	mr := miniredis.RunT(t)
	rt := drainRuntime(t, afero.NewMemMapFs())
	rt.Config.Redis.Addr = mr.Addr()
	require.NoError(t, rt.ConnectRedis())
	defer rt.Close()

	other := redis.NewMutex(rt.Redis, "queue:"+rt.Config.Queue.StorageKey, logging.NewNopLogger())
	ok, err := other.TryLock(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	defer other.Unlock(context.Background())

	require.NoError(t, drain(context.Background(), rt, false))
}
