package config

import (
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	pkgRetry "github.com/jacfrist/student-support-assistant/internal/pkg/retry"
	"github.com/joho/godotenv"
)

// Config holds the application configuration
type Config struct {
	// Server configuration
	ServerAddr string `env:"SERVER_ADDR,notEmpty"`

	// Database configuration
	DatabaseURL         string        `env:"DATABASE_URL,notEmpty"`
	DBMaxConns          int           `env:"DB_MAX_CONNS" envDefault:"25"`
	DBMinConns          int           `env:"DB_MIN_CONNS" envDefault:"5"`
	DBMaxConnLifetime   time.Duration `env:"DB_MAX_CONN_LIFETIME" envDefault:"1h"`
	DBMaxConnIdleTime   time.Duration `env:"DB_MAX_CONN_IDLE_TIME" envDefault:"30m"`
	DBHealthCheckPeriod time.Duration `env:"DB_HEALTH_CHECK_PERIOD" envDefault:"1m"`

	// External service configurations
	AIConnectorCfg        AIConnectorConfig        `envPrefix:"AI_"`
	KnowledgeConnectorCfg KnowledgeConnectorConfig `envPrefix:"KNOWLEDGE_"`
	NotifyConnectorCfg    NotifyConnectorConfig    `envPrefix:"NOTIFY_"`

	// Chat behavior configuration
	ChatCfg ChatConfig `envPrefix:"CHAT_"`

	// Logging configuration
	LogLevel string `env:"LOG_LEVEL,notEmpty"`

	// Mock configuration
	EnableMocks bool `env:"ENABLE_MOCKS" envDefault:"false"`

	// Environment (set from flag, not from env var)
	Environment string
}

// AIConnectorConfig configures the remote completion service client.
type AIConnectorConfig struct {
	HTTPClientConfig
	CompletionEndpoint string               `env:"COMPLETION_ENDPOINT,notEmpty"`
	Model              string               `env:"MODEL,notEmpty"`
	Temperature        float64              `env:"TEMPERATURE" envDefault:"0.3"`
	Retry              pkgRetry.RetryConfig `envPrefix:"RETRY_"`
}

// KnowledgeConnectorConfig configures the remote file/data-source store
// client used for RAG grounding uploads.
type KnowledgeConnectorConfig struct {
	HTTPClientConfig
	RegisterEndpoint  string               `env:"REGISTER_ENDPOINT,notEmpty"`
	KnowledgeBaseTag  string               `env:"KB_TAG" envDefault:"assistant-documents"`
	UploadConcurrency int                  `env:"UPLOAD_CONCURRENCY" envDefault:"4"`
	Retry             pkgRetry.RetryConfig `envPrefix:"RETRY_"`
}

// NotifyConnectorConfig configures the fire-and-forget document change
// hook. An empty endpoint disables delivery.
type NotifyConnectorConfig struct {
	HTTPClientConfig
	EventEndpoint string `env:"EVENT_ENDPOINT"`
}

// ChatConfig holds defaults for response generation.
type ChatConfig struct {
	FallbackMessage string        `env:"FALLBACK_MESSAGE" envDefault:"I'm sorry, I'm having trouble answering right now. Please try again in a moment or contact the support office directly."`
	MaxContextChars int           `env:"MAX_CONTEXT_CHARS" envDefault:"12000"`
	CacheTTL        time.Duration `env:"CACHE_TTL" envDefault:"30s"`
}

type HTTPClientConfig struct {
	RequestTimeout        time.Duration `env:"TIMEOUT" envDefault:"30s"`
	ConnTimeout           time.Duration `env:"CONN_TIMEOUT" envDefault:"10s"`
	KeepAlive             time.Duration `env:"KEEP_ALIVE" envDefault:"90s"`
	IdleConnTimeout       time.Duration `env:"IDLE_CONN_TIMEOUT" envDefault:"90s"`
	ResponseHeaderTimeout time.Duration `env:"RESPONSE_HEADER_TIMEOUT" envDefault:"10s"`
	Token                 string        `env:"TOKEN"`
	Url                   string        `env:"SERVICE_URL"`
}

func LoadConfig() (*Config, error) {
	envFlag := flag.String("env", "local", "Environment to run (local, prod, or custom)")
	flag.Parse()

	envFile := getEnvFile(*envFlag)
	// Try to load env file, but don't fail if it's missing.
	// In containerized/prod environments variables are usually set externally.
	if err := godotenv.Load(envFile); err != nil {
		fmt.Printf("Warning: could not load %s file (this is ok if env vars are set externally): %v\n", envFile, err)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	cfg.Environment = *envFlag

	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func validateConfig(cfg *Config) error {
	var errs []string

	if cfg.DBMaxConns < 1 || cfg.DBMaxConns > 200 {
		errs = append(errs, fmt.Sprintf("DB_MAX_CONNS must be between 1 and 200, got %d", cfg.DBMaxConns))
	}

	if cfg.DBMinConns < 0 || cfg.DBMinConns > cfg.DBMaxConns {
		errs = append(errs, fmt.Sprintf("DB_MIN_CONNS must be between 0 and DB_MAX_CONNS(%d), got %d", cfg.DBMaxConns, cfg.DBMinConns))
	}

	if cfg.KnowledgeConnectorCfg.UploadConcurrency < 1 || cfg.KnowledgeConnectorCfg.UploadConcurrency > 32 {
		errs = append(errs, fmt.Sprintf("KNOWLEDGE_UPLOAD_CONCURRENCY must be between 1 and 32, got %d", cfg.KnowledgeConnectorCfg.UploadConcurrency))
	}

	if cfg.AIConnectorCfg.Temperature < 0 || cfg.AIConnectorCfg.Temperature > 2 {
		errs = append(errs, fmt.Sprintf("AI_TEMPERATURE must be between 0 and 2, got %f", cfg.AIConnectorCfg.Temperature))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

func getEnvFile(environment string) string {
	switch environment {
	case "prod", "production":
		return ".env.prod"
	case "local", "dev", "development":
		return ".env.local"
	default:
		return fmt.Sprintf(".env.%s", environment)
	}
}
