package config

import "time"

// DefaultRetentionConfig returns the built-in debug-session retention
// defaults, used when the YAML's retention block omits a field.
func DefaultRetentionConfig() RetentionConfig {
	return RetentionConfig{
		DebugSessionDSN:      "debugstore.db",
		SessionRetentionDays: 30,
		CleanupInterval:      12 * time.Hour,
	}
}

// DefaultReflexionConfig returns the built-in retry-budget default
// (spec.md §4.E invariant: at most 2 retries after the first attempt).
func DefaultReflexionConfig() ReflexionConfig {
	return ReflexionConfig{MaxRetries: 2}
}

// DefaultDatabaseConfig returns the built-in Postgres pool defaults.
func DefaultDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		Host:            "localhost",
		Port:            5432,
		SSLMode:         "disable",
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxLifetime: time.Hour,
		ConnMaxIdleTime: 10 * time.Minute,
	}
}

// DefaultLLMConfig returns the built-in LLM defaults. Provider is left
// empty; the runtime stays on NullLLM until the APIKeyEnv variable is set.
func DefaultLLMConfig() LLMConfig {
	return LLMConfig{
		APIKeyEnv:   "ANTHROPIC_API_KEY",
		Model:       "claude-3-5-sonnet-20241022",
		Temperature: 0,
		MaxTokens:   1024,
	}
}
