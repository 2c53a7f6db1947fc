package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Environment string `envconfig:"ENVIRONMENT" default:"local"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`
	DBMinConns  int32  `envconfig:"WV_DB_MIN_CONNS" default:"1"`
	DBMaxConns  int32  `envconfig:"WV_DB_MAX_CONNS" default:"8"`

	OpenAIAPIKey  string `envconfig:"OPENAI_API_KEY" default:""`
	OpenAIBaseURL string `envconfig:"OPENAI_BASE_URL" default:""`
	OllamaBaseURL string `envconfig:"OLLAMA_BASE_URL" default:"http://localhost:11434"`

	EmbeddingProvider string        `envconfig:"EMBEDDING_PROVIDER" default:"openai"`
	EmbeddingModel    string        `envconfig:"EMBEDDING_MODEL" default:""`
	EmbeddingEndpoint string        `envconfig:"EMBEDDING_ENDPOINT" default:""`
	EmbeddingCacheTTL time.Duration `envconfig:"EMBEDDING_CACHE_TTL" default:"6h"`

	JudgeProvider string `envconfig:"JUDGE_PROVIDER" default:"openai"`
	JudgeModel    string `envconfig:"JUDGE_MODEL" default:""`

	ProviderRequestsPerSecond float64       `envconfig:"PROVIDER_REQUESTS_PER_SECOND" default:"5"`
	ProviderBurst             int           `envconfig:"PROVIDER_BURST" default:"5"`
	ProviderTimeout           time.Duration `envconfig:"PROVIDER_TIMEOUT" default:"30s"`

	SimilarityThreshold float64 `envconfig:"SIMILARITY_THRESHOLD" default:"0.5"`
	TuningFile          string  `envconfig:"TUNING_FILE" default:""`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.DBMinConns < 0 {
		return fmt.Errorf("WV_DB_MIN_CONNS must be >= 0")
	}
	if c.DBMaxConns < 1 {
		return fmt.Errorf("WV_DB_MAX_CONNS must be >= 1")
	}
	if c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("WV_DB_MIN_CONNS (%d) cannot exceed WV_DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
	}

	switch c.EmbeddingProviderName() {
	case "openai", "ollama", "http":
	default:
		return fmt.Errorf("EMBEDDING_PROVIDER must be openai, ollama, or http")
	}
	switch c.JudgeProviderName() {
	case "openai", "ollama", "none":
	default:
		return fmt.Errorf("JUDGE_PROVIDER must be openai, ollama, or none")
	}
	if (c.EmbeddingProviderName() == "openai" || c.JudgeProviderName() == "openai") && strings.TrimSpace(c.OpenAIAPIKey) == "" {
		return fmt.Errorf("OPENAI_API_KEY is required when an OpenAI provider is selected")
	}

	if c.SimilarityThreshold <= 0 || c.SimilarityThreshold > 1 {
		return fmt.Errorf("SIMILARITY_THRESHOLD must be within (0,1]")
	}
	if c.ProviderRequestsPerSecond < 0 {
		return fmt.Errorf("PROVIDER_REQUESTS_PER_SECOND must be >= 0")
	}
	if c.ProviderBurst < 1 {
		return fmt.Errorf("PROVIDER_BURST must be >= 1")
	}
	if c.ProviderTimeout <= 0 {
		return fmt.Errorf("PROVIDER_TIMEOUT must be > 0")
	}
	return nil
}

func (c *Config) EmbeddingProviderName() string {
	return strings.ToLower(strings.TrimSpace(c.EmbeddingProvider))
}

func (c *Config) JudgeProviderName() string {
	return strings.ToLower(strings.TrimSpace(c.JudgeProvider))
}
