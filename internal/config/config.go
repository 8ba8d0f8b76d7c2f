// Package config defines the configuration structures for ChemXGen.  No I/O
// lives here, only plain data types and validation.
package config

import (
	"fmt"
	"time"

	"github.com/turtacn/ChemXGen/internal/infrastructure/monitoring/logging"
)

// ─────────────────────────────────────────────────────────────────────────────
// Sub-configuration structs
// ─────────────────────────────────────────────────────────────────────────────

// ServerConfig holds HTTP server tunables.
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"` // "debug" | "release" | "test"
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
}

// QueueConfig holds task queue timing.
type QueueConfig struct {
	StorageKey    string        `mapstructure:"storage_key"`
	TickInterval  time.Duration `mapstructure:"tick_interval"`
	PacingDelay   time.Duration `mapstructure:"pacing_delay"`
	PollInterval  time.Duration `mapstructure:"poll_interval"`
	DefaultRoutes int           `mapstructure:"default_routes"`
}

// StoreConfig selects the key-value backend behind the task queue.
type StoreConfig struct {
	Backend    string `mapstructure:"backend"` // "memory" | "file" | "redis" | "minio" | "sqlite"
	FileDir    string `mapstructure:"file_dir"`
	SQLitePath string `mapstructure:"sqlite_path"`
}

// GeminiConfig holds the generative model parameters.
type GeminiConfig struct {
	APIKey      string        `mapstructure:"api_key"`
	Model       string        `mapstructure:"model"`
	Temperature float32       `mapstructure:"temperature"`
	Timeout     time.Duration `mapstructure:"timeout"`
	// LocalSimilarity rescores similarity hits with local fingerprints.
	LocalSimilarity bool `mapstructure:"local_similarity"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr         string        `mapstructure:"addr"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	KeyPrefix    string        `mapstructure:"key_prefix"`
	TTL          time.Duration `mapstructure:"ttl"`
	CacheTTL     time.Duration `mapstructure:"cache_ttl"`
}

// MinIOConfig holds MinIO / S3-compatible object-storage parameters.
type MinIOConfig struct {
	Endpoint     string `mapstructure:"endpoint"`
	AccessKey    string `mapstructure:"access_key"`
	SecretKey    string `mapstructure:"secret_key"`
	Bucket       string `mapstructure:"bucket"`
	Region       string `mapstructure:"region"`
	UseSSL       bool   `mapstructure:"use_ssl"`
	ObjectPrefix string `mapstructure:"object_prefix"`
}

// KafkaConfig holds the task event producer parameters.
type KafkaConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Brokers      []string      `mapstructure:"brokers"`
	Topic        string        `mapstructure:"topic"`
	BatchTimeout time.Duration `mapstructure:"batch_timeout"`
	RequiredAcks int           `mapstructure:"required_acks"`
	GroupID      string        `mapstructure:"group_id"`
	// EnsureTopics creates the event and dead-letter topics on startup.
	EnsureTopics bool `mapstructure:"ensure_topics"`
	Partitions   int  `mapstructure:"partitions"`
	Replication  int  `mapstructure:"replication"`
}

// DatabaseConfig holds PostgreSQL connection parameters for profiles and projects.
type DatabaseConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"db_name"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxConns        int           `mapstructure:"max_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

// DSN returns the libpq-style connection URL.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode)
}

// KeycloakConfig holds Keycloak OIDC parameters.
type KeycloakConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	BaseURL        string        `mapstructure:"base_url"`
	Realm          string        `mapstructure:"realm"`
	ClientID       string        `mapstructure:"client_id"`
	ClientSecret   string        `mapstructure:"client_secret"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	JWKSRefresh    time.Duration `mapstructure:"jwks_refresh"`
}

// BillingConfig holds Stripe parameters.  Plans maps a subscription tier key
// (individual, team, enterprise) to its Stripe price ID.
type BillingConfig struct {
	Enabled       bool              `mapstructure:"enabled"`
	SecretKey     string            `mapstructure:"secret_key"`
	PublicBaseURL string            `mapstructure:"public_base_url"`
	Plans         map[string]string `mapstructure:"plans"`
}

// MetricsConfig holds Prometheus exposition parameters.
type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Namespace string `mapstructure:"namespace"`
	Path      string `mapstructure:"path"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Root Config
// ─────────────────────────────────────────────────────────────────────────────

// Config is the root configuration structure.
type Config struct {
	Server   ServerConfig      `mapstructure:"server"`
	Log      logging.LogConfig `mapstructure:"log"`
	Queue    QueueConfig       `mapstructure:"queue"`
	Store    StoreConfig       `mapstructure:"store"`
	Gemini   GeminiConfig      `mapstructure:"gemini"`
	Redis    RedisConfig       `mapstructure:"redis"`
	MinIO    MinIOConfig       `mapstructure:"minio"`
	Kafka    KafkaConfig       `mapstructure:"kafka"`
	Database DatabaseConfig    `mapstructure:"database"`
	Keycloak KeycloakConfig    `mapstructure:"keycloak"`
	Billing  BillingConfig     `mapstructure:"billing"`
	Metrics  MetricsConfig     `mapstructure:"metrics"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Validation
// ─────────────────────────────────────────────────────────────────────────────

// Validate performs semantic validation of a defaulted Config and returns the
// first problem found.
func (c *Config) Validate() error {
	// Server
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("config: server.port %d is out of range [1, 65535]", c.Server.Port)
	}
	switch c.Server.Mode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("config: server.mode %q is invalid; expected debug|release|test", c.Server.Mode)
	}

	// Queue
	if c.Queue.StorageKey == "" {
		return fmt.Errorf("config: queue.storage_key is required")
	}
	if c.Queue.TickInterval <= 0 {
		return fmt.Errorf("config: queue.tick_interval must be positive, got %s", c.Queue.TickInterval)
	}
	if c.Queue.PacingDelay < 0 {
		return fmt.Errorf("config: queue.pacing_delay must not be negative, got %s", c.Queue.PacingDelay)
	}
	if c.Queue.DefaultRoutes < 1 || c.Queue.DefaultRoutes > 10 {
		return fmt.Errorf("config: queue.default_routes %d is out of range [1, 10]", c.Queue.DefaultRoutes)
	}

	// Store
	switch c.Store.Backend {
	case "memory":
	case "file":
		if c.Store.FileDir == "" {
			return fmt.Errorf("config: store.file_dir is required for the file backend")
		}
	case "sqlite":
		if c.Store.SQLitePath == "" {
			return fmt.Errorf("config: store.sqlite_path is required for the sqlite backend")
		}
	case "redis":
		if c.Redis.Addr == "" {
			return fmt.Errorf("config: redis.addr is required for the redis backend")
		}
		if c.Redis.DB < 0 {
			return fmt.Errorf("config: redis.db must be ≥ 0, got %d", c.Redis.DB)
		}
	case "minio":
		if c.MinIO.Endpoint == "" || c.MinIO.Bucket == "" {
			return fmt.Errorf("config: minio.endpoint and minio.bucket are required for the minio backend")
		}
	default:
		return fmt.Errorf("config: store.backend %q is invalid; expected memory|file|sqlite|redis|minio", c.Store.Backend)
	}

	// Gemini
	if c.Gemini.Model == "" {
		return fmt.Errorf("config: gemini.model is required")
	}

	// Kafka
	if c.Kafka.Enabled {
		if len(c.Kafka.Brokers) == 0 {
			return fmt.Errorf("config: kafka.brokers must contain at least one broker address")
		}
		if c.Kafka.Topic == "" {
			return fmt.Errorf("config: kafka.topic is required")
		}
	}

	// Database
	if c.Database.Enabled {
		if c.Database.Host == "" || c.Database.User == "" || c.Database.DBName == "" {
			return fmt.Errorf("config: database.host, database.user and database.db_name are required")
		}
		if c.Database.MaxConns < 1 {
			return fmt.Errorf("config: database.max_conns must be ≥ 1, got %d", c.Database.MaxConns)
		}
	}

	// Keycloak
	if c.Keycloak.Enabled && (c.Keycloak.BaseURL == "" || c.Keycloak.Realm == "" || c.Keycloak.ClientID == "") {
		return fmt.Errorf("config: keycloak.base_url, keycloak.realm and keycloak.client_id are required")
	}

	// Billing
	if c.Billing.Enabled {
		if c.Billing.SecretKey == "" {
			return fmt.Errorf("config: billing.secret_key is required")
		}
		if len(c.Billing.Plans) == 0 {
			return fmt.Errorf("config: billing.plans must list at least one price")
		}
	}

	// Log
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: log.level %q is invalid; expected debug|info|warn|error", c.Log.Level)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("config: log.format %q is invalid; expected json|console", c.Log.Format)
	}

	return nil
}
