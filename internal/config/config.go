/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Database backend selection.
type DatabaseBackend string

const (
	DatabasePostgres DatabaseBackend = "postgres"
	DatabaseMySQL    DatabaseBackend = "mysql"
	DatabaseSQLite   DatabaseBackend = "sqlite"
)

// Config covers process level configuration. Values come from environment
// variables, optionally seeded by a YAML file named in HUGINN_CONFIG_FILE
// (env always wins).
type Config struct {
	Environment string
	HTTPBind    string
	HTTPPort    int
	MetricsBind string
	InstanceID  string

	DBBackend DatabaseBackend
	DBDSN     string

	// Legacy consumer store (the downstream playout system's database).
	LegacySyncEnabled bool
	LegacyDBBackend   DatabaseBackend
	LegacyDBDSN       string

	// Redis plan cache / distributed event fanout. Empty addr disables both.
	RedisAddr       string
	RedisPassword   string
	RedisDB         int
	PlanCacheTTLSec int

	// Tracing configuration
	TracingEnabled    bool
	OTLPEndpoint      string
	TracingSampleRate float64
}

// Load reads the optional config file and environment variables, applies
// defaults, and validates the result.
func Load() (*Config, error) {
	base := fileValues{}
	if path := os.Getenv("HUGINN_CONFIG_FILE"); path != "" {
		loaded, err := loadFile(path)
		if err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
		base = loaded
	}

	cfg := &Config{
		Environment: getEnv("HUGINN_ENV", base.str("environment", "development")),
		HTTPBind:    getEnv("HUGINN_HTTP_BIND", base.str("http_bind", "0.0.0.0")),
		HTTPPort:    getEnvInt("HUGINN_HTTP_PORT", base.num("http_port", 8080)),
		MetricsBind: getEnv("HUGINN_METRICS_BIND", base.str("metrics_bind", "127.0.0.1:9000")),
		InstanceID:  getEnv("HUGINN_INSTANCE_ID", base.str("instance_id", "")),

		DBBackend: DatabaseBackend(getEnv("HUGINN_DB_BACKEND", base.str("db_backend", string(DatabasePostgres)))),
		DBDSN:     getEnv("HUGINN_DB_DSN", base.str("db_dsn", "")),

		LegacySyncEnabled: getEnvBool("HUGINN_LEGACY_SYNC_ENABLED", base.boolean("legacy_sync_enabled", false)),
		LegacyDBBackend:   DatabaseBackend(getEnv("HUGINN_LEGACY_DB_BACKEND", base.str("legacy_db_backend", string(DatabaseSQLite)))),
		LegacyDBDSN:       getEnv("HUGINN_LEGACY_DB_DSN", base.str("legacy_db_dsn", "")),

		RedisAddr:       getEnv("HUGINN_REDIS_ADDR", base.str("redis_addr", "")),
		RedisPassword:   getEnv("HUGINN_REDIS_PASSWORD", base.str("redis_password", "")),
		RedisDB:         getEnvInt("HUGINN_REDIS_DB", base.num("redis_db", 0)),
		PlanCacheTTLSec: getEnvInt("HUGINN_PLAN_CACHE_TTL_SECONDS", base.num("plan_cache_ttl_seconds", 300)),

		TracingEnabled:    getEnvBool("HUGINN_TRACING_ENABLED", base.boolean("tracing_enabled", false)),
		OTLPEndpoint:      getEnv("HUGINN_OTLP_ENDPOINT", base.str("otlp_endpoint", "localhost:4317")),
		TracingSampleRate: getEnvFloat("HUGINN_TRACING_SAMPLE_RATE", base.float("tracing_sample_rate", 1.0)),
	}

	if cfg.InstanceID == "" {
		host, _ := os.Hostname()
		cfg.InstanceID = host
	}

	switch cfg.DBBackend {
	case DatabasePostgres, DatabaseMySQL, DatabaseSQLite:
	default:
		return nil, fmt.Errorf("unknown database backend: %s", cfg.DBBackend)
	}
	if cfg.DBDSN == "" {
		return nil, fmt.Errorf("HUGINN_DB_DSN is required")
	}
	if cfg.LegacySyncEnabled && cfg.LegacyDBDSN == "" {
		return nil, fmt.Errorf("HUGINN_LEGACY_DB_DSN is required when legacy sync is enabled")
	}

	return cfg, nil
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if val := os.Getenv(key); val != "" {
		switch strings.ToLower(strings.TrimSpace(val)) {
		case "true", "1", "yes":
			return true
		case "false", "0", "no":
			return false
		}
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseFloat(val, 64); err == nil {
			return parsed
		}
	}
	return def
}
