// Command apiserver serves the ChemXGen REST API and runs the task
// scheduler in-process.
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
	"github.com/turtacn/ChemXGen/internal/application/render"
	"github.com/turtacn/ChemXGen/internal/bootstrap"
	"github.com/turtacn/ChemXGen/internal/config"
	"github.com/turtacn/ChemXGen/internal/infrastructure/database/redis"
	"github.com/turtacn/ChemXGen/internal/infrastructure/monitoring/logging"
	httpserver "github.com/turtacn/ChemXGen/internal/interfaces/http"
	"github.com/turtacn/ChemXGen/internal/interfaces/http/handlers"
	"github.com/turtacn/ChemXGen/internal/interfaces/http/middleware"
)

// Set via -ldflags.
var version = "dev"

const (
	rateLimitPerSecond = 2
	rateLimitBurst     = 10
	rateLimitIdleTTL   = 10 * time.Minute
)

func main() {
	configPath := flag.String("config", "", "path to the YAML configuration file (default: environment only)")
	envFile := flag.String("env-file", ".env", "dotenv file loaded before the configuration")
	port := flag.Int("port", 0, "HTTP port (overrides config)")
	flag.Parse()

	if err := run(*configPath, *envFile, *port); err != nil {
		fmt.Fprintf(os.Stderr, "apiserver: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, envFile string, port int) error {
	if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("load %s: %w", envFile, err)
	}
	cfg, err := config.LoadOrEnv(configPath)
	if err != nil {
		return err
	}
	if port > 0 {
		cfg.Server.Port = port
	}

	logger, err := logging.NewLogger(cfg.Log)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	logging.SetDefault(logger)
	logger.Info("Starting ChemXGen API server",
		logging.String("version", version),
		logging.Int("port", cfg.Server.Port),
		logging.String("store", cfg.Store.Backend))

	if configPath != "" {
		config.Watch(configPath, func(c *config.Config) {
			if logging.SetLevel(logger, c.Log.Level) {
				logger.Info("Log level updated", logging.String("level", c.Log.Level))
			}
		}, func(err error) {
			logger.Warn("Ignoring invalid configuration change", logging.Err(err))
		})
	}
	gin.SetMode(cfg.Server.Mode)

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
	gateway, err := rt.Gateway(ctx)
	if err != nil {
		return err
	}
	q, err := rt.Queue(ctx, gateway)
	if err != nil {
		return err
	}
	svc, err := buildServices(ctx, rt)
	if err != nil {
		return err
	}

	limiter := middleware.NewTokenBucketLimiter(rateLimitPerSecond, rateLimitBurst, rateLimitIdleTTL)
	taskHandler := handlers.NewTaskHandler(q, logger.Named("tasks"))
	routerCfg := httpserver.RouterConfig{
		TaskHandler:    taskHandler,
		RenderHandler:  newRenderHandler(rt, logger),
		PredictHandler: handlers.NewPredictHandler(gateway),
		HealthHandler:  handlers.NewHealthHandler(version, healthCheckers(rt.Checks)...),
		Limiter:        limiter,
		CORS:           corsConfig(cfg.Server.AllowedOrigins),
		Logging:        middleware.DefaultLoggingConfig(),
		Logger:         logger,
	}
	if svc.identity != nil {
		routerCfg.AuthHandler = handlers.NewAuthHandler(svc.identity)
		routerCfg.Sessions = svc.identity
	}
	if svc.billing != nil {
		routerCfg.BillingHandler = handlers.NewBillingHandler(svc.billing)
	}
	if svc.projects != nil {
		routerCfg.ProjectHandler = handlers.NewProjectHandler(svc.projects)
	}
	if rt.Metrics != nil {
		routerCfg.Recorder = rt.Metrics
		routerCfg.MetricsUI = rt.Collector.Handler()
	}

	srv := httpserver.NewServer(cfg.Server, httpserver.NewRouter(routerCfg), logger)
	srv.OnShutdown(taskHandler.CloseStreams)
	scheduler := queue.NewScheduler(q, cfg.Queue.TickInterval, cfg.Queue.PollInterval, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(srv.Start)
	g.Go(func() error { return scheduler.Run(gctx) })
	g.Go(func() error {
		<-gctx.Done()
		return srv.Stop(context.WithoutCancel(gctx))
	})
	g.Go(func() error {
		sweepLimiter(gctx, limiter, rateLimitIdleTTL, logger)
		return nil
	})
	if svc.keycloak != nil {
		g.Go(func() error {
			svc.keycloak.RefreshKeys(gctx)
			return nil
		})
	}

	err = g.Wait()
	logger.Info("ChemXGen API server stopped")
	return err
}

func newRenderHandler(rt *bootstrap.Runtime, logger logging.Logger) *handlers.RenderHandler {
	renderer := render.NewRenderer(render.NewEngine(render.Options{}), logger)
	var cache handlers.RenderCache
	if rt.Redis != nil {
		cache = redis.NewCache(rt.Redis, logger.Named("render-cache"),
			redis.WithCachePrefix("render:"),
			redis.WithJitter(0.1))
	}
	var observer handlers.RenderObserver
	if rt.Metrics != nil {
		observer = rt.Metrics
	}
	return handlers.NewRenderHandler(renderer, cache, rt.Config.Redis.CacheTTL, observer, logger.Named("render"))
}

func corsConfig(origins []string) middleware.CORSConfig {
	c := middleware.DefaultCORSConfig()
	if len(origins) > 0 {
		c.AllowedOrigins = origins
	}
	return c
}

func sweepLimiter(ctx context.Context, l *middleware.TokenBucketLimiter, every time.Duration, logger logging.Logger) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := l.Sweep(); n > 0 {
				logger.Debug("Evicted idle rate limit buckets", logging.Int("count", n))
			}
		}
	}
}
