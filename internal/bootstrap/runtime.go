package bootstrap

import (
	"context"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/turtacn/ChemXGen/internal/application/queue"
	"github.com/turtacn/ChemXGen/internal/config"
	"github.com/turtacn/ChemXGen/internal/domain/task"
	"github.com/turtacn/ChemXGen/internal/infrastructure/database/redis"
	"github.com/turtacn/ChemXGen/internal/infrastructure/database/sqlite"
	"github.com/turtacn/ChemXGen/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/ChemXGen/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ChemXGen/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/ChemXGen/internal/infrastructure/storage/file"
	"github.com/turtacn/ChemXGen/internal/infrastructure/storage/minio"
	"github.com/turtacn/ChemXGen/internal/intelligence/gemini"
	"github.com/turtacn/ChemXGen/pkg/errors"
)

// Check is a named readiness probe.
type Check struct {
	Name string
	Fn   func(ctx context.Context) error
}

// Runtime owns the connections opened for one process.
type Runtime struct {
	Config  *config.Config
	Logger  logging.Logger
	Fs      afero.Fs
	Cleanup Cleanup
	Checks  []Check

	// Redis is nil when no server was reachable and no component needs one.
	Redis *redis.Client
	// Collector and Metrics are nil when metrics are disabled.
	Collector prometheus.Collector
	Metrics   *prometheus.AppMetrics

	producer *kafka.Producer
}

// New creates a Runtime.  fs backs the file store; nil means the OS
// filesystem.
func New(cfg *config.Config, logger logging.Logger, fs afero.Fs) *Runtime {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &Runtime{Config: cfg, Logger: logger, Fs: fs}
}

// Close releases everything acquired through the Runtime.
func (r *Runtime) Close() {
	r.Cleanup.Run(r.Logger)
}

func (r *Runtime) addCheck(name string, fn func(ctx context.Context) error) {
	r.Checks = append(r.Checks, Check{Name: name, Fn: fn})
}

// SetupMetrics registers the application metrics.  Disabled metrics leave
// Collector and Metrics nil.
func (r *Runtime) SetupMetrics() error {
	if !r.Config.Metrics.Enabled {
		return nil
	}
	c, err := prometheus.NewCollector(prometheus.CollectorConfig{
		Namespace:            r.Config.Metrics.Namespace,
		EnableProcessMetrics: true,
		EnableGoMetrics:      true,
	}, r.Logger.Named("metrics"))
	if err != nil {
		return err
	}
	r.Collector = c
	r.Metrics = prometheus.NewAppMetrics(c)
	return nil
}

// ConnectRedis dials Redis.  The connection is mandatory for the redis store
// backend; otherwise a failure is logged and the process runs without a
// shared cache.
func (r *Runtime) ConnectRedis() error {
	rc := r.Config.Redis
	client, err := redis.NewClient(redis.Config{
		Addr:         rc.Addr,
		Password:     rc.Password,
		DB:           rc.DB,
		PoolSize:     rc.PoolSize,
		DialTimeout:  rc.DialTimeout,
		ReadTimeout:  rc.ReadTimeout,
		WriteTimeout: rc.WriteTimeout,
		KeyPrefix:    rc.KeyPrefix,
		TTL:          rc.TTL,
	}, r.Logger.Named("redis"))
	if err != nil {
		if r.Config.Store.Backend == "redis" {
			return err
		}
		r.Logger.Warn("Redis unavailable, continuing without cache", logging.Err(err))
		return nil
	}
	r.Redis = client
	r.Cleanup.Add("redis", client.Close)
	r.addCheck("redis", client.Ping)
	return nil
}

// TaskStore opens the configured task list backend.
func (r *Runtime) TaskStore(ctx context.Context) (task.Store, error) {
	sc := r.Config.Store
	log := r.Logger.Named("store")
	switch sc.Backend {
	case "memory":
		return file.NewStore(afero.NewMemMapFs(), "/"), nil
	case "file":
		return file.NewStore(r.Fs, sc.FileDir), nil
	case "sqlite":
		if err := r.Fs.MkdirAll(filepath.Dir(sc.SQLitePath), 0o755); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeStoreUnavailable, "create sqlite directory")
		}
		s, err := sqlite.Open(ctx, sc.SQLitePath, log)
		if err != nil {
			return nil, err
		}
		r.Cleanup.Add("sqlite", s.Close)
		return s, nil
	case "redis":
		if r.Redis == nil {
			return nil, errors.New(errors.ErrCodeStoreUnavailable, "redis store selected but no redis connection")
		}
		return redis.NewTaskStore(r.Redis), nil
	case "minio":
		mc := r.Config.MinIO
		client, err := minio.NewClient(ctx, minio.Config{
			Endpoint:        mc.Endpoint,
			AccessKeyID:     mc.AccessKey,
			SecretAccessKey: mc.SecretKey,
			UseSSL:          mc.UseSSL,
			Region:          mc.Region,
			Bucket:          mc.Bucket,
			Prefix:          mc.ObjectPrefix,
		}, log)
		if err != nil {
			return nil, err
		}
		r.Cleanup.Add("minio", client.Close)
		r.addCheck("minio", func(ctx context.Context) error {
			status, err := client.HealthCheck(ctx)
			if err != nil {
				return err
			}
			if !status.Healthy {
				return errors.New(errors.ErrCodeStoreUnavailable, status.Error)
			}
			return nil
		})
		return minio.NewStore(client), nil
	default:
		return nil, errors.New(errors.ErrCodeValidation, "unknown store backend").WithDetail("backend=" + sc.Backend)
	}
}

// Gateway builds the prediction gateway.  Without an API key every call
// fails with GATEWAY_001 so the rest of the service stays usable.
func (r *Runtime) Gateway(ctx context.Context) (*gemini.Gateway, error) {
	gc := r.Config.Gemini
	log := r.Logger.Named("gateway")

	var gen gemini.Generator
	if gc.APIKey == "" {
		log.Warn("Gemini API key not configured, analyses will fail")
		gen = unconfiguredGenerator{}
	} else {
		g, err := gemini.NewGenAIGenerator(ctx, gemini.ClientConfig{
			APIKey:      gc.APIKey,
			Model:       gc.Model,
			Temperature: gc.Temperature,
			Timeout:     gc.Timeout,
		})
		if err != nil {
			return nil, err
		}
		gen = g
	}

	opts := []gemini.Option{gemini.WithLocalSimilarity(gc.LocalSimilarity)}
	if r.Metrics != nil {
		opts = append(opts, gemini.WithObserver(r.Metrics))
	}
	return gemini.NewGateway(gen, r.Logger, opts...), nil
}

type unconfiguredGenerator struct{}

func (unconfiguredGenerator) Generate(context.Context, gemini.Request) (string, error) {
	return "", errors.New(errors.ErrCodeGatewayUnavailable, "gemini api key is not configured")
}

// Producer returns the shared Kafka producer, or nil when Kafka is disabled.
func (r *Runtime) Producer(ctx context.Context) (*kafka.Producer, error) {
	kc := r.Config.Kafka
	if !kc.Enabled {
		return nil, nil
	}
	if r.producer != nil {
		return r.producer, nil
	}
	if kc.EnsureTopics {
		topics := []string{kc.Topic, kafka.TopicDeadLetterTaskEvents}
		if err := kafka.EnsureTopics(ctx, kc.Brokers[0], kc.Partitions, kc.Replication, r.Logger, topics...); err != nil {
			return nil, err
		}
	}
	p, err := kafka.NewProducer(kafka.ProducerConfig{
		Brokers:      kc.Brokers,
		Acks:         acksName(kc.RequiredAcks),
		BatchTimeout: kc.BatchTimeout,
	}, r.Logger.Named("kafka"))
	if err != nil {
		return nil, err
	}
	r.producer = p
	r.Cleanup.Add("kafka-producer", p.Close)
	return p, nil
}

func acksName(n int) string {
	switch n {
	case 0:
		return "none"
	case 1:
		return "one"
	default:
		return "all"
	}
}

// Queue opens the task store, builds the queue over analyzer and restores
// the persisted list.
func (r *Runtime) Queue(ctx context.Context, analyzer queue.Analyzer) (*queue.Queue, error) {
	store, err := r.TaskStore(ctx)
	if err != nil {
		return nil, err
	}

	var opts []queue.Option
	if r.Metrics != nil {
		opts = append(opts, queue.WithMetrics(r.Metrics))
	}
	producer, err := r.Producer(ctx)
	if err != nil {
		return nil, err
	}
	if producer != nil {
		opts = append(opts, queue.WithPublisher(kafka.NewTaskEventPublisher(producer, r.Config.Kafka.Topic)))
	}

	qc := r.Config.Queue
	q := queue.New(queue.Config{
		StorageKey:    qc.StorageKey,
		PacingDelay:   qc.PacingDelay,
		DefaultRoutes: qc.DefaultRoutes,
	}, store, analyzer, r.Logger, opts...)
	if err := q.Load(ctx); err != nil {
		return nil, err
	}
	return q, nil
}
