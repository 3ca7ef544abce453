package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// History backends.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
	BackendMongo    = "mongo"
)

type Config struct {
	Port        string
	Environment string
	LogLevel    string

	// History storage
	HistoryBackend  string
	HistoryRedisKey string

	// Database
	DatabaseURL    string
	DBDriver       string
	DBMaxOpenConns int
	MongoDBURL     string
	MongoDBName    string
	RedisURL       string
	RedisPoolSize  int

	// OpenAI
	OpenAIAPIKey   string
	OpenAIBaseURL  string
	LLMModel       string
	LLMMaxTokens   int
	LLMTemperature float64
	LLMTimeoutSec  int

	// Analyzer
	MaxMessageLength int

	// HTTP
	AllowedOrigins  []string
	RateLimit       int
	RateLimitWindow time.Duration
	BodyLimitBytes  int
}

func Load() (*Config, error) {
	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENV", "development"),
		LogLevel:    getEnv("LOG_LEVEL", ""),

		HistoryBackend:  strings.ToLower(getEnv("HISTORY_BACKEND", BackendMemory)),
		HistoryRedisKey: getEnv("HISTORY_REDIS_KEY", "triageHistory"),

		DatabaseURL:    getEnv("DATABASE_URL", ""),
		DBDriver:       getEnv("DB_DRIVER", "pgx"),
		DBMaxOpenConns: getEnvInt("DB_MAX_CONNS", 25),
		MongoDBURL:     getEnv("MONGODB_URL", ""),
		MongoDBName:    getEnv("MONGODB_DATABASE", "triage"),
		RedisURL:       getEnv("REDIS_URL", ""),
		RedisPoolSize:  getEnvInt("REDIS_POOL_SIZE", 20),

		OpenAIAPIKey:   getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:  getEnv("OPENAI_BASE_URL", ""),
		LLMModel:       getEnv("LLM_MODEL", "gpt-4o-mini"),
		LLMMaxTokens:   getEnvInt("LLM_MAX_TOKENS", 512),
		LLMTemperature: getEnvFloat("LLM_TEMPERATURE", 0.2),
		LLMTimeoutSec:  getEnvInt("LLM_TIMEOUT_SEC", 20),

		MaxMessageLength: getEnvInt("MAX_MESSAGE_LENGTH", 5000),

		AllowedOrigins:  getEnvSlice("ALLOWED_ORIGINS", []string{"http://localhost:3000", "http://localhost:5173"}),
		RateLimit:       getEnvInt("RATE_LIMIT", 120),
		RateLimitWindow: time.Duration(getEnvInt("RATE_LIMIT_WINDOW_SEC", 60)) * time.Second,
		BodyLimitBytes:  getEnvInt("BODY_LIMIT_BYTES", 1024*1024),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the selected backend has what it needs.
func (c *Config) Validate() error {
	switch c.HistoryBackend {
	case BackendMemory:
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("HISTORY_BACKEND=postgres requires DATABASE_URL")
		}
	case BackendRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("HISTORY_BACKEND=redis requires REDIS_URL")
		}
	case BackendMongo:
		if c.MongoDBURL == "" {
			return fmt.Errorf("HISTORY_BACKEND=mongo requires MONGODB_URL")
		}
	default:
		return fmt.Errorf("unknown HISTORY_BACKEND %q", c.HistoryBackend)
	}

	if c.MaxMessageLength <= 0 {
		return fmt.Errorf("MAX_MESSAGE_LENGTH must be positive, got %d", c.MaxMessageLength)
	}
	if c.RateLimit <= 0 {
		return fmt.Errorf("RATE_LIMIT must be positive, got %d", c.RateLimit)
	}
	return nil
}

// LLMEnabled reports whether an LLM reasoner should be used.
func (c *Config) LLMEnabled() bool {
	return c.OpenAIAPIKey != ""
}

// LLMTimeout returns the per-call LLM timeout.
func (c *Config) LLMTimeout() time.Duration {
	return time.Duration(c.LLMTimeoutSec) * time.Second
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvSlice(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
