// Package config provides configuration structures and validation for the
// switch. It covers the core processing bounds, the fraud and routing
// engines, and the external collaborators (PostgreSQL, MongoDB, Redis,
// Kafka) the pipeline depends on.
package config

import (
	"errors"
	"strings"
	"time"
)

// Config holds the complete switch configuration. Each field represents a
// major subsystem and is validated during startup.
type Config struct {
	Application ApplicationConfig
	Logging     LoggingConfig
	Switch      SwitchConfig
	Fraud       FraudConfig
	Routing     RoutingConfig
	Admin       AdminConfig
	Postgres    PostgresConfig
	MongoDB     MongoDBConfig
	Redis       RedisConfig
	Kafka       KafkaConfig
	WorkerPool  WorkerPoolConfig
}

// ApplicationConfig contains general application configuration
type ApplicationConfig struct {
	Env  string
	Name string
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level string
}

// SwitchConfig contains the core processing bounds of the switch.
type SwitchConfig struct {
	ListenPort         int           // Port the (external) acquirer listener binds
	MaxSessions        int           // Maximum concurrent acquirer sessions
	TransactionTimeout time.Duration // Per-transaction pipeline deadline
	RetryAttempts      int           // Connection-layer retry budget; the pipeline itself never retries
	QueueCapacity      int           // Inbound queue bound between connections and workers
	HSMEnabled         bool          // PIN/MAC operations delegated to the external HSM when set
}

// FraudConfig contains fraud engine thresholds.
type FraudConfig struct {
	HighAmountThreshold string        // Major units, e.g. "10000.00"; strict > comparison
	VelocityPerMinute   int           // Max transactions per account reference per window
	VelocityWindow      time.Duration // Rolling velocity window
	SuspiciousHourStart int           // Inclusive local hour
	SuspiciousHourEnd   int           // Exclusive local hour
}

// RoutingConfig contains routing engine settings.
type RoutingConfig struct {
	CacheTTL time.Duration // Rule-set cache lifetime; stale reads are tolerated
}

// AdminConfig contains the admin/monitoring HTTP server settings.
type AdminConfig struct {
	Port            int
	ShutdownTimeout time.Duration
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
}

// PostgresConfig contains PostgreSQL configuration
type PostgresConfig struct {
	URL             string        // Database connection string
	MaxConns        int32         // Maximum number of open connections
	MinConns        int32         // Minimum number of idle connections
	ConnMaxLifetime time.Duration // Maximum lifetime of a connection
	ConnMaxIdleTime time.Duration // Maximum idle time of a connection
	MigrationsPath  string        // Path to migration files
}

// MongoDBConfig contains MongoDB configuration for the audit trail.
type MongoDBConfig struct {
	URI             string
	Database        string
	Timeout         time.Duration
	MaxPoolSize     uint64
	MinPoolSize     uint64
	MaxConnIdleTime time.Duration
}

// RedisConfig contains Redis configuration for the velocity counters.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// KafkaConfig contains the audit event publisher configuration. An empty
// topic disables publishing.
type KafkaConfig struct {
	Brokers           string
	AuditTopic        string
	NumPartitions     int
	ReplicationFactor int
	WriteTimeout      time.Duration
}

// WorkerPoolConfig contains pipeline worker pool configuration
type WorkerPoolConfig struct {
	Size int // Maximum number of concurrent pipeline workers
}

// validate performs comprehensive validation of all configuration values,
// ensuring they meet minimum requirements and logical constraints
func (c *Config) validate() error {
	var validationErrors []string

	// Validate switch core config
	if c.Switch.ListenPort <= 0 {
		validationErrors = append(validationErrors, "SWITCH_LISTEN_PORT must be greater than 0")
	}
	if c.Switch.MaxSessions <= 0 {
		validationErrors = append(validationErrors, "SWITCH_MAX_SESSIONS must be greater than 0")
	}
	if c.Switch.TransactionTimeout <= 0 {
		validationErrors = append(validationErrors, "SWITCH_TRANSACTION_TIMEOUT must be greater than 0")
	}
	if c.Switch.RetryAttempts < 0 {
		validationErrors = append(validationErrors, "SWITCH_RETRY_ATTEMPTS must not be negative")
	}
	if c.Switch.QueueCapacity <= 0 {
		validationErrors = append(validationErrors, "SWITCH_QUEUE_CAPACITY must be greater than 0")
	}

	// Validate fraud config
	if c.Fraud.HighAmountThreshold == "" {
		validationErrors = append(validationErrors, "FRAUD_HIGH_AMOUNT_THRESHOLD is required")
	}
	if c.Fraud.VelocityPerMinute <= 0 {
		validationErrors = append(validationErrors, "FRAUD_VELOCITY_PER_MINUTE must be greater than 0")
	}
	if c.Fraud.VelocityWindow <= 0 {
		validationErrors = append(validationErrors, "FRAUD_VELOCITY_WINDOW must be greater than 0")
	}
	if c.Fraud.SuspiciousHourStart < 0 || c.Fraud.SuspiciousHourStart > 23 {
		validationErrors = append(validationErrors, "FRAUD_SUSPICIOUS_HOUR_START must be within [0,23]")
	}
	if c.Fraud.SuspiciousHourEnd < 0 || c.Fraud.SuspiciousHourEnd > 24 {
		validationErrors = append(validationErrors, "FRAUD_SUSPICIOUS_HOUR_END must be within [0,24]")
	}

	// Validate routing config
	if c.Routing.CacheTTL < 0 {
		validationErrors = append(validationErrors, "ROUTING_CACHE_TTL must not be negative")
	}

	// Validate admin server config
	if c.Admin.Port <= 0 {
		validationErrors = append(validationErrors, "ADMIN_PORT must be greater than 0")
	}
	if c.Admin.ShutdownTimeout <= 0 {
		validationErrors = append(validationErrors, "ADMIN_SHUTDOWN_TIMEOUT must be greater than 0")
	}
	if c.Admin.ReadTimeout <= 0 {
		validationErrors = append(validationErrors, "ADMIN_READ_TIMEOUT must be greater than 0")
	}
	if c.Admin.WriteTimeout <= 0 {
		validationErrors = append(validationErrors, "ADMIN_WRITE_TIMEOUT must be greater than 0")
	}
	if c.Admin.IdleTimeout <= 0 {
		validationErrors = append(validationErrors, "ADMIN_IDLE_TIMEOUT must be greater than 0")
	}

	// Validate PostgreSQL config
	if c.Postgres.URL == "" {
		validationErrors = append(validationErrors, "POSTGRES_URL is required")
	}
	if c.Postgres.MaxConns <= 0 {
		validationErrors = append(validationErrors, "POSTGRES_MAX_CONNS must be greater than 0")
	}
	if c.Postgres.MinConns <= 0 {
		validationErrors = append(validationErrors, "POSTGRES_MIN_CONNS must be greater than 0")
	}
	if c.Postgres.ConnMaxLifetime <= 0 {
		validationErrors = append(validationErrors, "POSTGRES_MAX_CONN_LIFETIME must be greater than 0")
	}
	if c.Postgres.ConnMaxIdleTime <= 0 {
		validationErrors = append(validationErrors, "POSTGRES_MAX_CONN_IDLE_TIME must be greater than 0")
	}

	// Validate MongoDB config
	if c.MongoDB.URI == "" {
		validationErrors = append(validationErrors, "MONGO_URI is required")
	}
	if c.MongoDB.Database == "" {
		validationErrors = append(validationErrors, "MONGO_DATABASE is required")
	}
	if c.MongoDB.Timeout <= 0 {
		validationErrors = append(validationErrors, "MONGO_TIMEOUT must be greater than 0")
	}
	if c.MongoDB.MaxPoolSize <= 0 {
		validationErrors = append(validationErrors, "MONGO_MAX_POOL_SIZE must be greater than 0")
	}
	if c.MongoDB.MinPoolSize <= 0 {
		validationErrors = append(validationErrors, "MONGO_MIN_POOL_SIZE must be greater than 0")
	}
	if c.MongoDB.MaxConnIdleTime <= 0 {
		validationErrors = append(validationErrors, "MONGO_MAX_CONN_IDLE_TIME must be greater than 0")
	}

	// Validate Redis config
	if c.Redis.Addr == "" {
		validationErrors = append(validationErrors, "REDIS_ADDR is required")
	}

	// Validate Kafka config; the audit topic itself is optional
	if c.Kafka.AuditTopic != "" && c.Kafka.Brokers == "" {
		validationErrors = append(validationErrors, "KAFKA_BROKERS is required when KAFKA_AUDIT_TOPIC is set")
	}

	// Validate WorkerPool config
	if c.WorkerPool.Size <= 0 {
		validationErrors = append(validationErrors, "WORKER_POOL_SIZE must be greater than 0")
	}

	if len(validationErrors) > 0 {
		return errors.New(strings.Join(validationErrors, ", "))
	}

	return nil
}
