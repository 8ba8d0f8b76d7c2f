package config

import "time"

// ─────────────────────────────────────────────────────────────────────────────
// Default value constants
// ─────────────────────────────────────────────────────────────────────────────

const (
	DefaultServerPort = 8080
	DefaultServerMode = "release"

	// DefaultStorageKey is the single slot holding the serialised task list.
	DefaultStorageKey      = "chemxgen_running_tasks"
	DefaultTickInterval    = 300 * time.Millisecond
	DefaultPacingDelay     = 1500 * time.Millisecond
	DefaultPollInterval    = 2 * time.Second
	DefaultSynthesisRoutes = 5

	DefaultStoreBackend = "memory"
	DefaultStoreDir     = "./data"
	DefaultSQLitePath   = "./data/chemxgen.db"

	DefaultGeminiModel   = "gemini-2.5-flash"
	DefaultGeminiTimeout = 90 * time.Second

	DefaultRedisAddr = "localhost:6379"

	DefaultMinIOEndpoint = "localhost:9000"
	DefaultMinIOBucket   = "chemxgen"

	DefaultKafkaBroker = "localhost:9092"
	DefaultKafkaTopic  = "chemxgen.task.events"
	DefaultKafkaGroup  = "chemxgen-worker"

	DefaultRenderCacheTTL = 10 * time.Minute

	DefaultDBHost     = "localhost"
	DefaultDBPort     = 5432
	DefaultDBName     = "chemxgen"
	DefaultDBMaxConns = 10

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"

	DefaultMetricsNamespace = "chemxgen"
	DefaultMetricsPath      = "/metrics"
)

// ApplyDefaults fills every zero-value field in cfg.  Values already set are
// left alone so explicit configuration always wins.
func ApplyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}

	// ── Server ────────────────────────────────────────────────────────────────
	if cfg.Server.Port == 0 {
		cfg.Server.Port = DefaultServerPort
	}
	if cfg.Server.Mode == "" {
		cfg.Server.Mode = DefaultServerMode
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 15 * time.Second
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 15 * time.Second
	}
	if len(cfg.Server.AllowedOrigins) == 0 {
		cfg.Server.AllowedOrigins = []string{"*"}
	}

	// ── Queue ─────────────────────────────────────────────────────────────────
	if cfg.Queue.StorageKey == "" {
		cfg.Queue.StorageKey = DefaultStorageKey
	}
	if cfg.Queue.TickInterval == 0 {
		cfg.Queue.TickInterval = DefaultTickInterval
	}
	if cfg.Queue.PacingDelay == 0 {
		cfg.Queue.PacingDelay = DefaultPacingDelay
	}
	if cfg.Queue.PollInterval == 0 {
		cfg.Queue.PollInterval = DefaultPollInterval
	}
	if cfg.Queue.DefaultRoutes == 0 {
		cfg.Queue.DefaultRoutes = DefaultSynthesisRoutes
	}

	// ── Store ─────────────────────────────────────────────────────────────────
	if cfg.Store.Backend == "" {
		cfg.Store.Backend = DefaultStoreBackend
	}
	if cfg.Store.FileDir == "" {
		cfg.Store.FileDir = DefaultStoreDir
	}
	if cfg.Store.SQLitePath == "" {
		cfg.Store.SQLitePath = DefaultSQLitePath
	}

	// ── Gemini ────────────────────────────────────────────────────────────────
	if cfg.Gemini.Model == "" {
		cfg.Gemini.Model = DefaultGeminiModel
	}
	if cfg.Gemini.Timeout == 0 {
		cfg.Gemini.Timeout = DefaultGeminiTimeout
	}

	// ── Redis ─────────────────────────────────────────────────────────────────
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = DefaultRedisAddr
	}
	// DB 0 is both the default and a valid explicit value.
	if cfg.Redis.CacheTTL == 0 {
		cfg.Redis.CacheTTL = DefaultRenderCacheTTL
	}

	// ── MinIO ─────────────────────────────────────────────────────────────────
	if cfg.MinIO.Endpoint == "" {
		cfg.MinIO.Endpoint = DefaultMinIOEndpoint
	}
	if cfg.MinIO.Bucket == "" {
		cfg.MinIO.Bucket = DefaultMinIOBucket
	}

	// ── Kafka ─────────────────────────────────────────────────────────────────
	if len(cfg.Kafka.Brokers) == 0 {
		cfg.Kafka.Brokers = []string{DefaultKafkaBroker}
	}
	if cfg.Kafka.Topic == "" {
		cfg.Kafka.Topic = DefaultKafkaTopic
	}
	if cfg.Kafka.BatchTimeout == 0 {
		cfg.Kafka.BatchTimeout = 50 * time.Millisecond
	}
	if cfg.Kafka.GroupID == "" {
		cfg.Kafka.GroupID = DefaultKafkaGroup
	}
	if cfg.Kafka.Partitions <= 0 {
		cfg.Kafka.Partitions = 3
	}
	if cfg.Kafka.Replication <= 0 {
		cfg.Kafka.Replication = 1
	}

	// ── Database ──────────────────────────────────────────────────────────────
	if cfg.Database.Host == "" {
		cfg.Database.Host = DefaultDBHost
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = DefaultDBPort
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = DefaultDBName
	}
	if cfg.Database.MaxConns == 0 {
		cfg.Database.MaxConns = DefaultDBMaxConns
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 30 * time.Minute
	}

	// ── Keycloak ──────────────────────────────────────────────────────────────
	if cfg.Keycloak.RequestTimeout == 0 {
		cfg.Keycloak.RequestTimeout = 10 * time.Second
	}
	if cfg.Keycloak.JWKSRefresh == 0 {
		cfg.Keycloak.JWKSRefresh = 5 * time.Minute
	}

	// ── Billing ───────────────────────────────────────────────────────────────
	if cfg.Billing.PublicBaseURL == "" {
		cfg.Billing.PublicBaseURL = "http://localhost:5173"
	}

	// ── Log ───────────────────────────────────────────────────────────────────
	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}

	// ── Metrics ───────────────────────────────────────────────────────────────
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = DefaultMetricsNamespace
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = DefaultMetricsPath
	}
}
