// Package redis provides the Redis client, the Redis-backed task store, a
// JSON cache and a single-owner mutex.
package redis

import (
	"context"
	"crypto/tls"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/turtacn/ChemXGen/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ChemXGen/pkg/errors"
)

var (
	ErrClientClosed     = errors.New(errors.ErrCodeStoreUnavailable, "redis client is closed")
	ErrConnectionFailed = errors.New(errors.ErrCodeStoreUnavailable, "redis connection failed")
)

// Config holds connection parameters.  Mode is "standalone" (default),
// "sentinel" or "cluster".
type Config struct {
	Mode          string
	Addr          string
	MasterName    string
	SentinelAddrs []string
	ClusterAddrs  []string
	Username      string
	Password      string
	DB            int
	PoolSize      int
	DialTimeout   time.Duration
	ReadTimeout   time.Duration
	WriteTimeout  time.Duration
	TLSEnabled    bool
	// KeyPrefix is prepended to every key written through this package.
	KeyPrefix string
	// TTL applies to stored task lists; zero keeps them forever.
	TTL time.Duration
}

// Client wraps a go-redis universal client.
type Client struct {
	rdb    redis.UniversalClient
	cfg    Config
	logger logging.Logger
	mu     sync.RWMutex
	closed bool
}

// NewClient connects and pings the server.
func NewClient(cfg Config, log logging.Logger) (*Client, error) {
	applyDefaults(&cfg)
	var tlsConfig *tls.Config
	if cfg.TLSEnabled {
		tlsConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	var rdb redis.UniversalClient
	switch cfg.Mode {
	case "cluster":
		rdb = redis.NewClusterClient(&redis.ClusterOptions{
			Addrs:        cfg.ClusterAddrs,
			Username:     cfg.Username,
			Password:     cfg.Password,
			PoolSize:     cfg.PoolSize,
			DialTimeout:  cfg.DialTimeout,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			TLSConfig:    tlsConfig,
		})
	case "sentinel":
		rdb = redis.NewFailoverClient(&redis.FailoverOptions{
			MasterName:    cfg.MasterName,
			SentinelAddrs: cfg.SentinelAddrs,
			Username:      cfg.Username,
			Password:      cfg.Password,
			DB:            cfg.DB,
			PoolSize:      cfg.PoolSize,
			DialTimeout:   cfg.DialTimeout,
			ReadTimeout:   cfg.ReadTimeout,
			WriteTimeout:  cfg.WriteTimeout,
			TLSConfig:     tlsConfig,
		})
	default:
		if cfg.Mode != "" && cfg.Mode != "standalone" {
			log.Warn("Invalid redis mode, defaulting to standalone", logging.String("mode", cfg.Mode))
		}
		rdb = redis.NewClient(&redis.Options{
			Addr:         cfg.Addr,
			Username:     cfg.Username,
			Password:     cfg.Password,
			DB:           cfg.DB,
			PoolSize:     cfg.PoolSize,
			DialTimeout:  cfg.DialTimeout,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			TLSConfig:    tlsConfig,
		})
	}

	c := &Client{rdb: rdb, cfg: cfg, logger: log}
	ctx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout)
	defer cancel()
	if err := c.Ping(ctx); err != nil {
		rdb.Close()
		return nil, errors.Wrap(err, errors.ErrCodeStoreUnavailable, "redis connection failed").
			WithDetail("addr=" + cfg.Addr)
	}
	log.Info("Redis client connected", logging.String("mode", cfg.Mode), logging.String("addr", cfg.Addr))
	return c, nil
}

// NewClientFromUniversal wraps an existing client.  It does not ping, which
// lets tests pass a redismock client.
func NewClientFromUniversal(rdb redis.UniversalClient, cfg Config, log logging.Logger) *Client {
	applyDefaults(&cfg)
	return &Client{rdb: rdb, cfg: cfg, logger: log}
}

func applyDefaults(cfg *Config) {
	if cfg.PoolSize == 0 {
		cfg.PoolSize = 10
	}
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = 5 * time.Second
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 3 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 3 * time.Second
	}
}

func (c *Client) Ping(ctx context.Context) error {
	if c.isClosed() {
		return ErrClientClosed
	}
	return c.rdb.Ping(ctx).Err()
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	err := c.rdb.Close()
	if err == nil {
		c.logger.Info("Closed Redis client")
	} else {
		c.logger.Error("Failed to close Redis client", logging.Err(err))
	}
	return err
}

// Underlying exposes the go-redis client.
func (c *Client) Underlying() redis.UniversalClient {
	return c.rdb
}

// Key applies the configured prefix.
func (c *Client) Key(k string) string {
	return c.cfg.KeyPrefix + k
}

func (c *Client) isClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

// storeError classifies a go-redis error.
func storeError(err error, op, key string) error {
	return errors.Wrap(err, errors.ErrCodeStoreUnavailable, "redis "+op+" failed").WithDetail("key=" + key)
}
