package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	Port        string           `koanf:"port"`
	Environment string           `koanf:"environment"`
	StoreDriver string           `koanf:"store_driver"` // clickhouse or memory
	ClickHouse  ClickHouseConfig `koanf:"clickhouse"`
	Redis       RedisConfig      `koanf:"redis"`
	Postgres    PostgresConfig   `koanf:"postgres"`
	NATS        NATSConfig       `koanf:"nats"`
	Ingest      IngestConfig     `koanf:"ingest"`
	Tracking    TrackingConfig   `koanf:"tracking"`
	Auth        AuthConfig       `koanf:"auth"`
	Logging     LoggingConfig    `koanf:"logging"`
}

// ClickHouseConfig holds ClickHouse connection settings
type ClickHouseConfig struct {
	Host                   string `koanf:"host"`
	Port                   string `koanf:"port"`
	Database               string `koanf:"database"`
	User                   string `koanf:"user"`
	Password               string `koanf:"password"`
	DSN                    string `koanf:"dsn"`
	AsyncInsertEnabled     bool   `koanf:"async_insert_enabled"`
	AsyncInsertWait        int    `koanf:"async_insert_wait"`          // wait_for_async_insert (0 or 1)
	AsyncInsertMaxDataSize int64  `koanf:"async_insert_max_data_size"` // bytes
	AsyncInsertBusyTimeout int    `koanf:"async_insert_busy_timeout"`  // milliseconds
	TableTTL               bool   `koanf:"table_ttl"`                  // add TTL expires_at to the table
}

// RedisConfig holds Redis connection settings. An empty Host and Endpoint disables dedup.
type RedisConfig struct {
	Host           string        `koanf:"host"`
	Port           string        `koanf:"port"`
	Password       string        `koanf:"password"`
	Endpoint       string        `koanf:"endpoint"`
	IdempotencyTTL time.Duration `koanf:"idempotency_ttl"`
}

// PostgresConfig points at the storefront database owning users, products and orders.
// An empty DSN disables summary joins.
type PostgresConfig struct {
	DSN string `koanf:"dsn"`
}

// NATSConfig configures the persisted-event mirror. An empty URL disables it.
type NATSConfig struct {
	URL           string        `koanf:"url"`
	Token         string        `koanf:"token"`
	Stream        string        `koanf:"stream"`
	SubjectPrefix string        `koanf:"subject_prefix"`
	MaxAge        time.Duration `koanf:"max_age"`
}

// IngestConfig tunes the asynchronous write path.
type IngestConfig struct {
	BufferChannelCapacity int           `koanf:"buffer_capacity"`        // capacity of the event buffer channel
	BatchSize             int           `koanf:"batch_size"`             // events per flush
	FlushIntervalSeconds  int           `koanf:"flush_interval_seconds"` // time-based flush
	FlushTimeout          time.Duration `koanf:"flush_timeout"`
	FlushRetries          int           `koanf:"flush_retries"`
	FlushRetryDelay       time.Duration `koanf:"flush_retry_delay"`
	BreakerFailures       uint32        `koanf:"breaker_failures"`
	BreakerOpenTimeout    time.Duration `koanf:"breaker_open_timeout"`
	MaxBulkEvents         int           `koanf:"max_bulk_events"`
	NodeID                int64         `koanf:"node_id"` // snowflake node for event ids
}

// TrackingConfig holds schema and session settings.
type TrackingConfig struct {
	RetentionDays    int           `koanf:"retention_days"`
	SessionCookieAge time.Duration `koanf:"session_cookie_age"`
}

// AuthConfig configures the bearer token identity provider.
type AuthConfig struct {
	JWTSecret string `koanf:"jwt_secret"`
	AdminRole string `koanf:"admin_role"`
}

// LoggingConfig mirrors logging.Config.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Default returns the built-in settings, the base layer of Load.
func Default() *Config {
	return &Config{
		Port:        "3000",
		Environment: "development",
		StoreDriver: "clickhouse",
		ClickHouse: ClickHouseConfig{
			Host:                   "127.0.0.1",
			Port:                   "9000",
			Database:               "default",
			User:                   "app",
			Password:               "clickhouse_app_password",
			AsyncInsertEnabled:     true,
			AsyncInsertWait:        1,
			AsyncInsertMaxDataSize: 10485760,
			AsyncInsertBusyTimeout: 200,
			TableTTL:               true,
		},
		Redis: RedisConfig{
			Host:           "127.0.0.1",
			Port:           "6379",
			IdempotencyTTL: time.Hour,
		},
		NATS: NATSConfig{
			Stream:        "ACTIVITIES",
			SubjectPrefix: "activity",
			MaxAge:        7 * 24 * time.Hour,
		},
		Ingest: IngestConfig{
			BufferChannelCapacity: 50000,
			BatchSize:             5000,
			FlushIntervalSeconds:  1,
			FlushTimeout:          30 * time.Second,
			FlushRetries:          2,
			FlushRetryDelay:       500 * time.Millisecond,
			BreakerFailures:       5,
			BreakerOpenTimeout:    30 * time.Second,
			MaxBulkEvents:         10000,
			NodeID:                1,
		},
		Tracking: TrackingConfig{
			RetentionDays:    730,
			SessionCookieAge: 30 * 24 * time.Hour,
		},
		Auth: AuthConfig{
			AdminRole: "admin",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// IsProduction reports whether secure cookies and strict checks apply.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

// RetentionHorizon is the configured event lifetime.
func (c *Config) RetentionHorizon() time.Duration {
	return time.Duration(c.Tracking.RetentionDays) * 24 * time.Hour
}

// FlushInterval converts FlushIntervalSeconds to a duration.
func (c *IngestConfig) FlushInterval() time.Duration {
	return time.Duration(c.FlushIntervalSeconds) * time.Second
}

// Validate checks the ranges the services rely on.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("port is required")
	}
	switch c.StoreDriver {
	case "clickhouse", "memory":
	default:
		return fmt.Errorf("store_driver must be clickhouse or memory, got %q", c.StoreDriver)
	}
	if c.Ingest.BufferChannelCapacity <= 0 {
		return fmt.Errorf("ingest.buffer_capacity must be positive")
	}
	if c.Ingest.BatchSize <= 0 {
		return fmt.Errorf("ingest.batch_size must be positive")
	}
	if c.Ingest.FlushIntervalSeconds <= 0 {
		return fmt.Errorf("ingest.flush_interval_seconds must be positive")
	}
	if c.Ingest.FlushRetries < 0 {
		return fmt.Errorf("ingest.flush_retries cannot be negative")
	}
	if c.Ingest.MaxBulkEvents <= 0 {
		return fmt.Errorf("ingest.max_bulk_events must be positive")
	}
	if c.Ingest.NodeID < 0 || c.Ingest.NodeID > 1023 {
		return fmt.Errorf("ingest.node_id must be within 0..1023")
	}
	if c.Tracking.RetentionDays <= 0 {
		return fmt.Errorf("tracking.retention_days must be positive")
	}
	if c.IsProduction() && c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required in production")
	}
	return nil
}

func (c *ClickHouseConfig) GetClickHouseDSN() string {
	if c.DSN != "" {
		return c.DSN
	}

	u := url.URL{
		Scheme: "clickhouse",
		Host:   c.Host + ":" + c.Port,
		Path:   "/" + c.Database,
	}
	if c.User != "" {
		if c.Password != "" {
			u.User = url.UserPassword(c.User, c.Password)
		} else {
			u.User = url.User(c.User)
		}
	}

	if c.AsyncInsertEnabled {
		// applied to every query on the connection
		q := url.Values{}
		q.Set("wait_for_async_insert", fmt.Sprint(c.AsyncInsertWait))
		q.Set("async_insert_max_data_size", fmt.Sprint(c.AsyncInsertMaxDataSize))
		q.Set("async_insert_busy_timeout_ms", fmt.Sprint(c.AsyncInsertBusyTimeout))
		u.RawQuery = q.Encode()
	}

	return u.String()
}

// Enabled reports whether a Redis address is configured.
func (r *RedisConfig) Enabled() bool {
	return r.Endpoint != "" || r.Host != ""
}

func (r *RedisConfig) GetRedisAddr() string {
	if r.Endpoint != "" {
		return r.Endpoint
	}
	return r.Host + ":" + r.Port
}
