package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds server and worker configuration
type Config struct {
	DatabaseURL         string
	DatabaseAutoMigrate bool
	ServerPort          string
	BaseURL             string
	FrontendURL         string
	EnableHSTS          bool
	OIDCProvider        string
	RedisURL            string
	RabbitMQURL         string
	RabbitMQPrefetch    int
	TagAnalysisDebounce time.Duration
	WorkerDebugMode     bool
	ServerDebugMode     bool
	OTELEnabled         bool
	OTELEndpoint        string
	OTELInsecure        bool
	OTELSampleRatio     float64
	OpenAPIPath         string
}

// ClientConfig holds settings for the smart-notes command line client
type ClientConfig struct {
	ServerURL string
	Token     string
	CacheTTL  time.Duration
	Timeout   time.Duration
}

// LoadDotEnv loads variables from the given .env files (default ".env") without
// overriding variables already present in the environment. Missing files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	if err := LoadDotEnv(); err != nil {
		return nil, err
	}

	cfg := &Config{
		DatabaseURL:         getEnv("DATABASE_URL", ""),
		DatabaseAutoMigrate: getEnvBool("DATABASE_AUTO_MIGRATE", false),
		ServerPort:          getEnv("SERVER_PORT", "8080"),
		BaseURL:             getEnv("BASE_URL", "http://localhost:8080"),
		FrontendURL:         getEnv("FRONTEND_URL", "http://localhost:3000"),
		EnableHSTS:          getEnvBool("ENABLE_HSTS", false),
		OIDCProvider:        getEnv("OIDC_PROVIDER", "cognito"),
		RedisURL:            getEnv("REDIS_URL", "redis://localhost:6379/0"),
		RabbitMQURL:         getEnv("RABBITMQ_URL", ""),
		RabbitMQPrefetch:    getEnvInt("RABBITMQ_PREFETCH", 1),
		TagAnalysisDebounce: getEnvDuration("TAG_ANALYSIS_DEBOUNCE", 5*time.Second),
		WorkerDebugMode:     getEnvBool("WORKER_DEBUG_MODE", false),
		ServerDebugMode:     getEnvBool("SERVER_DEBUG_MODE", false),
		OTELEnabled:         getEnvBool("OTEL_ENABLED", false),
		OTELEndpoint:        getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
		OTELInsecure:        getEnvBool("OTEL_EXPORTER_OTLP_INSECURE", true),
		OTELSampleRatio:     getEnvFloat("OTEL_TRACES_SAMPLER_ARG", 1),
		OpenAPIPath:         getEnv("OPENAPI_PATH", "api/openapi/openapi.yaml"),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.RabbitMQPrefetch < 1 {
		return nil, fmt.Errorf("RABBITMQ_PREFETCH must be at least 1, got %d", cfg.RabbitMQPrefetch)
	}

	return cfg, nil
}

// LoadClient loads the command line client configuration.
func LoadClient() (*ClientConfig, error) {
	if err := LoadDotEnv(); err != nil {
		return nil, err
	}

	cfg := &ClientConfig{
		ServerURL: strings.TrimRight(getEnv("SMART_NOTES_URL", "http://localhost:8080"), "/"),
		Token:     getEnv("SMART_NOTES_TOKEN", ""),
		CacheTTL:  getEnvDuration("SMART_NOTES_CACHE_TTL", 30*time.Second),
		Timeout:   getEnvDuration("SMART_NOTES_TIMEOUT", 15*time.Second),
	}
	if !strings.HasPrefix(cfg.ServerURL, "http://") && !strings.HasPrefix(cfg.ServerURL, "https://") {
		return nil, fmt.Errorf("SMART_NOTES_URL must start with http:// or https://, got %q", cfg.ServerURL)
	}
	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
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
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
