package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// ConfigPathEnvVar overrides the config file location when no path is passed to Load.
const ConfigPathEnvVar = "CONFIG_PATH"

// envMappings maps environment variable names (lower-cased) to koanf paths.
// Unmapped variables are ignored.
var envMappings = map[string]string{
	"port":         "port",
	"environment":  "environment",
	"store_driver": "store_driver",

	"clickhouse_host":                      "clickhouse.host",
	"clickhouse_port":                      "clickhouse.port",
	"clickhouse_database":                  "clickhouse.database",
	"clickhouse_user":                      "clickhouse.user",
	"clickhouse_password":                  "clickhouse.password",
	"clickhouse_dsn":                       "clickhouse.dsn",
	"clickhouse_async_insert_enabled":      "clickhouse.async_insert_enabled",
	"clickhouse_async_insert_wait":         "clickhouse.async_insert_wait",
	"clickhouse_async_insert_max_data_size": "clickhouse.async_insert_max_data_size",
	"clickhouse_async_insert_busy_timeout": "clickhouse.async_insert_busy_timeout",
	"clickhouse_table_ttl":                 "clickhouse.table_ttl",

	"redis_host":            "redis.host",
	"redis_port":            "redis.port",
	"redis_password":        "redis.password",
	"redis_endpoint":        "redis.endpoint",
	"redis_idempotency_ttl": "redis.idempotency_ttl",

	"postgres_dsn": "postgres.dsn",

	"nats_url":            "nats.url",
	"nats_token":          "nats.token",
	"nats_stream":         "nats.stream",
	"nats_subject_prefix": "nats.subject_prefix",
	"nats_max_age":        "nats.max_age",

	"event_buffer_capacity":        "ingest.buffer_capacity",
	"event_batch_size":             "ingest.batch_size",
	"event_flush_interval_seconds": "ingest.flush_interval_seconds",
	"event_flush_timeout":          "ingest.flush_timeout",
	"event_flush_retries":          "ingest.flush_retries",
	"event_flush_retry_delay":      "ingest.flush_retry_delay",
	"event_breaker_failures":       "ingest.breaker_failures",
	"event_breaker_open_timeout":   "ingest.breaker_open_timeout",
	"event_max_bulk":               "ingest.max_bulk_events",
	"event_node_id":                "ingest.node_id",

	"retention_days":     "tracking.retention_days",
	"session_cookie_age": "tracking.session_cookie_age",

	"jwt_secret": "auth.jwt_secret",
	"admin_role": "auth.admin_role",

	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

func envTransformFunc(key string) string {
	if mapped, ok := envMappings[strings.ToLower(key)]; ok {
		return mapped
	}
	return ""
}

// Load builds the configuration from defaults, an optional YAML file and the environment,
// in increasing order of priority. path may be empty.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path == "" {
		path = os.Getenv(ConfigPathEnvVar)
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}
