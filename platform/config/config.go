// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// =============================================================================
// Module-Specific Config Interfaces (Principle of Least Privilege)
// =============================================================================

// DatabaseConfig provides database connection settings.
type DatabaseConfig interface {
	GetDatabaseURL() string
}

// JWTConfig provides JWT validation settings for middleware.
type JWTConfig interface {
	GetJWTAccessSecret() string
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
	GetCORSAllowCreds() bool
}

// ModelConfig provides settings for the completion-model client.
type ModelConfig interface {
	GetModelAPIKey() string
	GetModelBaseURL() string
	GetModelName() string
	GetModelTimeout() time.Duration
}

// ConciergeConfig provides tuning knobs for the conversation pipeline.
type ConciergeConfig interface {
	GetExtractionCadence() int
	GetPersonaConfigPath() string
}

// WorkflowConfig provides settings for the external workflow engine.
type WorkflowConfig interface {
	GetWorkflowWebhookURL() string
	GetWorkflowAPIKey() string
}

// SchedulerConfig provides settings for the asynq task queue.
type SchedulerConfig interface {
	GetRedisURL() string
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env                string
	HTTPAddr           string
	DatabaseURL        string
	JWTAccessSecret    string
	CORSAllowAll       bool
	CORSOrigins        []string
	CORSAllowCreds     bool
	ModelAPIKey        string
	ModelBaseURL       string
	ModelName          string
	ModelTimeout       time.Duration
	ExtractionCadence  int
	PersonaConfigPath  string
	WorkflowWebhookURL string
	WorkflowAPIKey     string
	RedisURL           string
	AsynqQueueName     string
	AsynqConcurrency   int
}

// =============================================================================
// Interface Implementations
// =============================================================================

// DatabaseConfig implementation
func (c *Config) GetDatabaseURL() string { return c.DatabaseURL }

// JWTConfig implementation
func (c *Config) GetJWTAccessSecret() string { return c.JWTAccessSecret }

// HTTPConfig implementation
func (c *Config) GetHTTPAddr() string { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }
func (c *Config) GetCORSAllowCreds() bool { return c.CORSAllowCreds }

// ModelConfig implementation
func (c *Config) GetModelAPIKey() string { return c.ModelAPIKey }
func (c *Config) GetModelBaseURL() string { return c.ModelBaseURL }
func (c *Config) GetModelName() string { return c.ModelName }
func (c *Config) GetModelTimeout() time.Duration { return c.ModelTimeout }

// ConciergeConfig implementation
func (c *Config) GetExtractionCadence() int { return c.ExtractionCadence }
func (c *Config) GetPersonaConfigPath() string { return c.PersonaConfigPath }

// WorkflowConfig implementation
func (c *Config) GetWorkflowWebhookURL() string { return c.WorkflowWebhookURL }
func (c *Config) GetWorkflowAPIKey() string { return c.WorkflowAPIKey }

// SchedulerConfig implementation
func (c *Config) GetRedisURL() string { return c.RedisURL }
func (c *Config) GetAsynqQueueName() string { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int { return c.AsynqConcurrency }

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "http://localhost:4200"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	cfg := &Config{
		Env:                getEnv("APP_ENV", "development"),
		HTTPAddr:           getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		JWTAccessSecret:    getEnv("JWT_ACCESS_SECRET", ""),
		CORSAllowAll:       corsAllowAll,
		CORSOrigins:        corsOrigins,
		CORSAllowCreds:     strings.EqualFold(getEnv("CORS_ALLOW_CREDENTIALS", "true"), "true"),
		ModelAPIKey:        getEnv("MODEL_API_KEY", ""),
		ModelBaseURL:       getEnv("MODEL_BASE_URL", ""),
		ModelName:          getEnv("MODEL_NAME", ""),
		ModelTimeout:       mustDuration(getEnv("MODEL_TIMEOUT", "30s")),
		ExtractionCadence:  mustInt(getEnv("EXTRACTION_EVERY_N_EXCHANGES", "2")),
		PersonaConfigPath:  getEnv("PERSONA_CONFIG_PATH", "config/personas.yaml"),
		WorkflowWebhookURL: getEnv("WORKFLOW_WEBHOOK_URL", ""),
		WorkflowAPIKey:     getEnv("WORKFLOW_API_KEY", ""),
		RedisURL:           getEnv("REDIS_URL", ""),
		AsynqQueueName:     getEnv("ASYNQ_QUEUE", "concierge"),
		AsynqConcurrency:   mustInt(getEnv("ASYNQ_CONCURRENCY", "10")),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.JWTAccessSecret == "" {
		return nil, fmt.Errorf("JWT_ACCESS_SECRET is required")
	}
	if cfg.ModelAPIKey == "" {
		return nil, fmt.Errorf("MODEL_API_KEY is required")
	}
	if cfg.ExtractionCadence < 1 {
		return nil, fmt.Errorf("EXTRACTION_EVERY_N_EXCHANGES must be at least 1")
	}
	if cfg.CORSAllowAll && cfg.CORSAllowCreds {
		return nil, fmt.Errorf("CORS_ALLOW_CREDENTIALS cannot be true when CORS_ALLOW_ALL is true")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func mustDuration(value string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0
	}
	return d
}

func mustInt(value string) int {
	result, err := strconv.Atoi(value)
	if err != nil {
		return 0
	}
	return result
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	results := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			results = append(results, trimmed)
		}
	}
	return results
}

func containsWildcard(values []string) bool {
	for _, value := range values {
		if value == "*" {
			return true
		}
	}
	return false
}
