// Command worker runs ChemXGen background jobs outside the API server.
//
// In drain mode it takes the task list lease, restores the persisted list and
// analyses every running task before exiting.  In follow mode it consumes the
// task lifecycle topic and keeps the latest event per task in Redis.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/turtacn/ChemXGen/internal/application/queue"
	"github.com/turtacn/ChemXGen/internal/bootstrap"
	"github.com/turtacn/ChemXGen/internal/config"
	"github.com/turtacn/ChemXGen/internal/infrastructure/database/redis"
	"github.com/turtacn/ChemXGen/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/ChemXGen/internal/infrastructure/monitoring/logging"
	httpserver "github.com/turtacn/ChemXGen/internal/interfaces/http"
	"github.com/turtacn/ChemXGen/internal/interfaces/http/handlers"
	"github.com/turtacn/ChemXGen/internal/interfaces/http/middleware"
	"github.com/turtacn/ChemXGen/pkg/errors"
)

var version = "dev"

const (
	modeDrain  = "drain"
	modeFollow = "follow"

	defaultHealthPort = 8081
	lockTTL           = 30 * time.Second
)

type options struct {
	configPath string
	envFile    string
	mode       string
	wait       bool
	healthPort int
}

func main() {
	var opts options
	flag.StringVar(&opts.configPath, "config", "", "path to the YAML configuration file (default: environment only)")
	flag.StringVar(&opts.envFile, "env-file", ".env", "dotenv file loaded before the configuration")
	flag.StringVar(&opts.mode, "mode", modeDrain, "drain | follow")
	flag.BoolVar(&opts.wait, "wait", false, "drain: wait for the task list lease instead of exiting when it is held")
	flag.IntVar(&opts.healthPort, "health-port", defaultHealthPort, "follow: port for /healthz, /readyz and /metrics")
	flag.Parse()

	if err := run(opts); err != nil {
		fmt.Fprintf(os.Stderr, "worker: %v\n", err)
		os.Exit(1)
	}
}

func run(opts options) error {
	if err := godotenv.Load(opts.envFile); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("load %s: %w", opts.envFile, err)
	}
	cfg, err := config.LoadOrEnv(opts.configPath)
	if err != nil {
		return err
	}
	logger, err := logging.NewLogger(cfg.Log)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	logger = logger.Named("worker")
	logging.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt := bootstrap.New(cfg, logger, nil)
	defer rt.Close()
	if err := rt.SetupMetrics(); err != nil {
		return err
	}
	if err := rt.ConnectRedis(); err != nil {
		return err
	}

	logger.Info("Starting ChemXGen worker", logging.String("version", version), logging.String("mode", opts.mode))
	switch opts.mode {
	case modeDrain:
		return drain(ctx, rt, opts.wait)
	case modeFollow:
		return follow(ctx, rt, opts.healthPort)
	default:
		return errors.New(errors.ErrCodeValidation, "unknown worker mode").WithDetail("mode=" + opts.mode)
	}
}

// drain analyses every running task of the persisted list and returns once
// none is left.  The lease keeps two workers off the same list.
func drain(ctx context.Context, rt *bootstrap.Runtime, wait bool) error {
	log := rt.Logger
	if rt.Redis != nil {
		mu := redis.NewMutex(rt.Redis, "queue:"+rt.Config.Queue.StorageKey, log, redis.WithLockTTL(lockTTL))
		if wait {
			if err := mu.Lock(ctx); err != nil {
				return err
			}
		} else {
			ok, err := mu.TryLock(ctx)
			if err != nil {
				return err
			}
			if !ok {
				log.Info("Task list is being drained elsewhere")
				return nil
			}
		}
		defer func() {
			if err := mu.Unlock(context.WithoutCancel(ctx)); err != nil {
				log.Warn("Failed to release task list lease", logging.Err(err))
			}
		}()
	} else {
		log.Warn("Draining without a lease, Redis is unavailable")
	}

	gateway, err := rt.Gateway(ctx)
	if err != nil {
		return err
	}
	q, err := rt.Queue(ctx, gateway)
	if err != nil {
		return err
	}
	pending := q.Pending()
	if pending == 0 {
		log.Info("No running tasks")
		return nil
	}
	log.Info("Draining task list", logging.Int("running", pending))

	qc := rt.Config.Queue
	start := time.Now()
	if err := queue.NewScheduler(q, qc.TickInterval, qc.PollInterval, log).Drain(ctx); err != nil {
		return err
	}
	log.Info("Task list drained", logging.Duration("elapsed", time.Since(start)))
	return nil
}

// follow consumes task lifecycle events until ctx ends.
func follow(ctx context.Context, rt *bootstrap.Runtime, healthPort int) error {
	cfg := rt.Config
	log := rt.Logger
	if !cfg.Kafka.Enabled {
		return errors.New(errors.ErrCodeValidation, "follow mode requires kafka.enabled")
	}

	var deadLetter kafka.Publisher
	producer, err := rt.Producer(ctx)
	if err != nil {
		return err
	}
	if producer != nil {
		deadLetter = producer
	}
	consumer, err := kafka.NewConsumer(kafka.ConsumerConfig{
		Brokers:         cfg.Kafka.Brokers,
		GroupID:         cfg.Kafka.GroupID,
		Topics:          []string{cfg.Kafka.Topic},
		AutoOffsetReset: "earliest",
		RetryConfig: kafka.RetryConfig{
			MaxRetries:      3,
			RetryBackoff:    time.Second,
			MaxRetryBackoff: 4 * time.Second,
			DeadLetterTopic: kafka.TopicDeadLetterTaskEvents,
		},
	}, log.Named("consumer"), deadLetter)
	if err != nil {
		return err
	}
	rt.Cleanup.Add("kafka-consumer", consumer.Close)

	tracker := newEventTracker(rt.Redis, log)
	consumer.Subscribe(cfg.Kafka.Topic, tracker.Handle)

	srv := newHealthServer(rt, healthPort)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := consumer.Start(gctx); err != nil {
			return err
		}
		<-gctx.Done()
		return nil
	})
	g.Go(srv.Start)
	g.Go(func() error {
		<-gctx.Done()
		return srv.Stop(context.WithoutCancel(gctx))
	})
	err = g.Wait()

	consumed, processed, failed, deadLettered := consumer.Metrics()
	log.Info("Worker stopped",
		logging.Int64("consumed", consumed),
		logging.Int64("processed", processed),
		logging.Int64("failed", failed),
		logging.Int64("dead_lettered", deadLettered))
	return err
}

func newHealthServer(rt *bootstrap.Runtime, port int) *httpserver.Server {
	checks := make([]handlers.HealthChecker, 0, len(rt.Checks))
	for _, c := range rt.Checks {
		checks = append(checks, handlers.CheckFunc{ComponentName: c.Name, Fn: c.Fn})
	}
	routerCfg := httpserver.RouterConfig{
		HealthHandler: handlers.NewHealthHandler(version, checks...),
		CORS:          middleware.DefaultCORSConfig(),
		Logging:       middleware.DefaultLoggingConfig(),
		Logger:        rt.Logger,
	}
	if rt.Collector != nil {
		routerCfg.MetricsUI = rt.Collector.Handler()
	}
	gin.SetMode(gin.ReleaseMode)

	serverCfg := rt.Config.Server
	serverCfg.Port = port
	return httpserver.NewServer(serverCfg, httpserver.NewRouter(routerCfg), rt.Logger)
}
