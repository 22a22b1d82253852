// Package config loads the runtime's ambient settings: the
// Postgres row-store pool, the embedded debug store's retention window,
// the Reflexion Loop's retry budget, and the LLM capability's model
// defaults (spec.md §4.E-F, §6).
package config

import "time"

// Config is the fully resolved, ready-to-use runtime configuration.
type Config struct {
	Database  DatabaseConfig  `yaml:"database"`
	Retention RetentionConfig `yaml:"retention"`
	Reflexion ReflexionConfig `yaml:"reflexion"`
	LLM       LLMConfig       `yaml:"llm"`
}

// DatabaseConfig configures the pkg/rowstore/postgres connection pool.
type DatabaseConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	Database        string        `yaml:"database"`
	SSLMode         string        `yaml:"ssl_mode"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time"`
}

// RetentionConfig controls the embedded debug store's cleanup behavior
// (spec.md §4.F cleanup_old_sessions).
type RetentionConfig struct {
	DebugSessionDSN    string        `yaml:"debug_session_dsn"`
	SessionRetentionDays int         `yaml:"session_retention_days"`
	CleanupInterval    time.Duration `yaml:"cleanup_interval"`
}

// ReflexionConfig bounds the Reflexion Loop's retry budget (spec.md §4.E).
type ReflexionConfig struct {
	MaxRetries int `yaml:"max_retries"`
}

// LLMConfig configures the LLM capability (spec.md §6). cmd/ontorun picks
// the Anthropic client when the APIKeyEnv variable is set and NullLLM
// otherwise; Provider is not consulted for that choice.
type LLMConfig struct {
	Provider    string  `yaml:"provider"` // e.g. "anthropic"; informational only
	APIKeyEnv   string  `yaml:"api_key_env"`
	Model       string  `yaml:"model"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
}
