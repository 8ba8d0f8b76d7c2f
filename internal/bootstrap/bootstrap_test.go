package bootstrap

import (
	"context"
	stderrors "errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/ChemXGen/internal/config"
	"github.com/turtacn/ChemXGen/internal/domain/task"
	"github.com/turtacn/ChemXGen/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ChemXGen/pkg/errors"
)

func testConfig(backend string) *config.Config {
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	cfg.Store.Backend = backend
	cfg.Queue.PacingDelay = time.Millisecond
	return cfg
}

func TestCleanup_RunsInReverseOrder(t *testing.T) {
	var c Cleanup
	var order []string
	c.Add("first", func() error { order = append(order, "first"); return nil })
	c.Add("nil", nil)
	c.Add("second", func() error { order = append(order, "second"); return stderrors.New("boom") })

	assert.Equal(t, 1, c.Run(logging.NewNopLogger()))
	assert.Equal(t, []string{"second", "first"}, order)
	assert.Equal(t, 0, c.Run(logging.NewNopLogger()), "stack is emptied")
}

func roundTrip(t *testing.T, s task.Store) {
	t.Helper()
	ctx := context.Background()
	_, err := s.Load(ctx, "k")
	assert.ErrorIs(t, err, task.ErrNotFound)
	require.NoError(t, s.Save(ctx, "k", []byte(`[]`)))
	got, err := s.Load(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, `[]`, string(got))
	require.NoError(t, s.Clear(ctx, "k"))
}

func TestTaskStore_Memory(t *testing.T) {
	rt := New(testConfig("memory"), logging.NewNopLogger(), nil)
	s, err := rt.TaskStore(context.Background())
	require.NoError(t, err)
	roundTrip(t, s)
}

func TestTaskStore_File(t *testing.T) {
	fs := afero.NewMemMapFs()
	cfg := testConfig("file")
	cfg.Store.FileDir = "/var/chemxgen"
	rt := New(cfg, logging.NewNopLogger(), fs)

	s, err := rt.TaskStore(context.Background())
	require.NoError(t, err)
	require.NoError(t, s.Save(context.Background(), "tasks", []byte(`[]`)))

	exists, err := afero.DirExists(fs, "/var/chemxgen")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestTaskStore_SQLite(t *testing.T) {
	cfg := testConfig("sqlite")
	cfg.Store.SQLitePath = filepath.Join(t.TempDir(), "nested", "tasks.db")
	rt := New(cfg, logging.NewNopLogger(), nil)
	defer rt.Close()

	s, err := rt.TaskStore(context.Background())
	require.NoError(t, err)
	roundTrip(t, s)
}

func TestTaskStore_Redis(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig("redis")
	cfg.Redis.Addr = mr.Addr()
	rt := New(cfg, logging.NewNopLogger(), nil)
	defer rt.Close()

	require.NoError(t, rt.ConnectRedis())
	require.NotNil(t, rt.Redis)
	require.Len(t, rt.Checks, 1)
	assert.NoError(t, rt.Checks[0].Fn(context.Background()))

	s, err := rt.TaskStore(context.Background())
	require.NoError(t, err)
	roundTrip(t, s)
}

func TestConnectRedis_OptionalUnlessBackend(t *testing.T) {
	cfg := testConfig("memory")
	cfg.Redis.Addr = "127.0.0.1:1"
	cfg.Redis.DialTimeout = 200 * time.Millisecond
	rt := New(cfg, logging.NewNopLogger(), nil)
	require.NoError(t, rt.ConnectRedis())
	assert.Nil(t, rt.Redis)

	cfg.Store.Backend = "redis"
	assert.Error(t, rt.ConnectRedis())
	_, err := rt.TaskStore(context.Background())
	assert.True(t, errors.IsCode(err, errors.ErrCodeStoreUnavailable))
}

func TestTaskStore_UnknownBackend(t *testing.T) {
	rt := New(testConfig("etcd"), logging.NewNopLogger(), nil)
	_, err := rt.TaskStore(context.Background())
	assert.True(t, errors.IsCode(err, errors.ErrCodeValidation))
}

func TestGateway_WithoutKeyFailsCalls(t *testing.T) {
	rt := New(testConfig("memory"), logging.NewNopLogger(), nil)
	gw, err := rt.Gateway(context.Background())
	require.NoError(t, err)

	_, err = gw.AnalyzeToxicity(context.Background(), "CCO")
	assert.Error(t, err)
}

func TestQueue_RestoresPersistedList(t *testing.T) {
	cfg := testConfig("file")
	cfg.Store.FileDir = "/data"
	fs := afero.NewMemMapFs()
	persisted := `[{"id":"t1","molecule":"CCO","type":"toxicity","status":"completed","progress":100,"result":{},"startTime":"2026-01-02T03:04:05Z"}]`
	require.NoError(t, afero.WriteFile(fs, "/data/"+cfg.Queue.StorageKey+".json", []byte(persisted), 0o644))

	rt := New(cfg, logging.NewNopLogger(), fs)
	require.NoError(t, rt.SetupMetrics())
	gw, err := rt.Gateway(context.Background())
	require.NoError(t, err)

	q, err := rt.Queue(context.Background(), gw)
	require.NoError(t, err)
	assert.Len(t, q.List(), 1)
}

func TestSetupMetrics(t *testing.T) {
	cfg := testConfig("memory")
	rt := New(cfg, logging.NewNopLogger(), nil)
	require.NoError(t, rt.SetupMetrics())
	assert.Nil(t, rt.Metrics)

	cfg.Metrics.Enabled = true
	require.NoError(t, rt.SetupMetrics())
	require.NotNil(t, rt.Metrics)
	assert.NotNil(t, rt.Collector.Handler())
}
