// Package minio keeps the task list as an object in a MinIO (or any S3
// compatible) bucket.
package minio

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/turtacn/ChemXGen/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ChemXGen/pkg/errors"
)

// ObjectAPI is the subset of *minio.Client used here.
type ObjectAPI interface {
	ListBuckets(ctx context.Context) ([]minio.BucketInfo, error)
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	GetObject(ctx context.Context, bucketName, objectName string, opts minio.GetObjectOptions) (*minio.Object, error)
	StatObject(ctx context.Context, bucketName, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error)
	RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error
}

type Config struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	UseSSL          bool
	Region          string
	Bucket          string
	// Prefix is prepended to object names.
	Prefix string
}

type Client struct {
	api    ObjectAPI
	cfg    Config
	logger logging.Logger
	mu     sync.RWMutex
	closed bool
}

// NewClient connects, verifies credentials and creates the bucket when it
// does not exist.
func NewClient(ctx context.Context, cfg Config, log logging.Logger) (*Client, error) {
	applyDefaults(&cfg)
	api, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to create minio client")
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if _, err := api.ListBuckets(ctx); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStoreUnavailable, "failed to connect to minio").
			WithDetail("endpoint=" + cfg.Endpoint)
	}

	c := NewClientFromAPI(api, cfg, log)
	if err := c.EnsureBucket(ctx); err != nil {
		return nil, err
	}
	log.Info("MinIO client connected", logging.String("endpoint", cfg.Endpoint), logging.String("bucket", cfg.Bucket), logging.Bool("ssl", cfg.UseSSL))
	return c, nil
}

// NewClientFromAPI wraps an existing API without any network calls.
func NewClientFromAPI(api ObjectAPI, cfg Config, log logging.Logger) *Client {
	applyDefaults(&cfg)
	return &Client{api: api, cfg: cfg, logger: log}
}

func applyDefaults(cfg *Config) {
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}
	if cfg.Bucket == "" {
		cfg.Bucket = "chemxgen-state"
	}
}

func (c *Client) EnsureBucket(ctx context.Context) error {
	exists, err := c.api.BucketExists(ctx, c.cfg.Bucket)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeStoreUnavailable, "failed to check bucket").WithDetail("bucket=" + c.cfg.Bucket)
	}
	if exists {
		return nil
	}
	if err := c.api.MakeBucket(ctx, c.cfg.Bucket, minio.MakeBucketOptions{Region: c.cfg.Region}); err != nil {
		return errors.Wrap(err, errors.ErrCodeStoreUnavailable, "failed to create bucket").WithDetail("bucket=" + c.cfg.Bucket)
	}
	c.logger.Info("Created bucket", logging.String("bucket", c.cfg.Bucket))
	return nil
}

type HealthStatus struct {
	Healthy bool
	Latency time.Duration
	Error   string
}

// HealthCheck lists buckets and checks the configured one exists.
func (c *Client) HealthCheck(ctx context.Context) (*HealthStatus, error) {
	start := time.Now()
	exists, err := c.api.BucketExists(ctx, c.cfg.Bucket)
	status := &HealthStatus{Healthy: err == nil && exists, Latency: time.Since(start)}
	if err != nil {
		status.Error = err.Error()
		return status, errors.Wrap(err, errors.ErrCodeStoreUnavailable, "minio health check failed")
	}
	if !exists {
		status.Error = "bucket " + c.cfg.Bucket + " missing"
	}
	return status, nil
}

func (c *Client) Bucket() string { return c.cfg.Bucket }

func (c *Client) object(key string) string { return c.cfg.Prefix + key }

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *Client) isClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}
