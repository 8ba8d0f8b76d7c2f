//go:build integration

// Package integration runs the storage and database adapters against real
// servers started with testcontainers.  Tests require Docker and are gated
// behind the "integration" build tag.
package integration

import (
	"context"
	"fmt"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/turtacn/ChemXGen/internal/config"
)

const startupTimeout = 90 * time.Second

// endpoint is the host:port a container port is mapped to.
type endpoint struct {
	Host string
	Port int
}

func (e endpoint) String() string { return fmt.Sprintf("%s:%d", e.Host, e.Port) }

func startContainer(t *testing.T, req testcontainers.ContainerRequest, port string) endpoint {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	mapped, err := container.MappedPort(ctx, port)
	require.NoError(t, err)
	p, err := strconv.Atoi(mapped.Port())
	require.NoError(t, err)
	return endpoint{Host: host, Port: p}
}

func startRedis(t *testing.T) endpoint {
	return startContainer(t, testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(startupTimeout),
	}, "6379")
}

const (
	minioUser     = "chemxgen"
	minioPassword = "chemxgen-secret"
)

func startMinIO(t *testing.T) endpoint {
	return startContainer(t, testcontainers.ContainerRequest{
		Image:        "minio/minio:latest",
		ExposedPorts: []string{"9000/tcp"},
		Env: map[string]string{
			"MINIO_ROOT_USER":     minioUser,
			"MINIO_ROOT_PASSWORD": minioPassword,
		},
		Cmd:        []string{"server", "/data"},
		WaitingFor: wait.ForHTTP("/minio/health/live").WithPort("9000/tcp").WithStartupTimeout(startupTimeout),
	}, "9000")
}

func startPostgres(t *testing.T) config.DatabaseConfig {
	ep := startContainer(t, testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "chemxgen_test",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").WithOccurrence(2).WithStartupTimeout(startupTimeout),
	}, "5432")

	return config.DatabaseConfig{
		Enabled:  true,
		Host:     ep.Host,
		Port:     ep.Port,
		User:     "test",
		Password: "test",
		DBName:   "chemxgen_test",
		SSLMode:  "disable",
		MaxConns: 4,
	}
}
