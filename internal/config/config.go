package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the TrendSentry server.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	AI       AIConfig
	Sources  SourcesConfig
	Pipeline PipelineConfig
}

type ServerConfig struct {
	Port int
	Env  string
	// APITokenHash is the bcrypt hash of the operator bearer token. Required
	// outside development.
	APITokenHash string
}

type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	URL string
}

type AIConfig struct {
	Provider         string
	InferenceTimeout time.Duration
	MaxTokens        int
	Temperature      float64
	Ollama           OllamaConfig
	OpenAI           OpenAIConfig
	Anthropic        AnthropicConfig
}

type OllamaConfig struct {
	BaseURL string
	Model   string
}

type OpenAIConfig struct {
	APIKey string
	Model  string
}

type AnthropicConfig struct {
	APIKey string
	Model  string
}

type SourcesConfig struct {
	NewsAPIKey       string
	AlphaVantageKey  string
	Timeout          time.Duration
	WatchlistPath    string
}

// PipelineConfig carries the externally supplied pipeline tuning knobs. None
// of these are hard-baked into the algorithms.
type PipelineConfig struct {
	ScanInterval       time.Duration
	AlertThreshold     float64
	ApprovalThreshold  float64
	LearningRate       float64
	AlertRetentionDays int
}

var validProviders = map[string]bool{
	"ollama":    true,
	"openai":    true,
	"anthropic": true,
	"mock":      true,
}

// Load reads configuration from environment variables and returns a validated
// Config. Returns an error with a descriptive message if any required value
// is missing or invalid.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:         envInt("TRENDSENTRY_PORT", 8080),
			Env:          envString("TRENDSENTRY_ENV", "development"),
			APITokenHash: os.Getenv("API_TOKEN_HASH"),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    envInt("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: envDuration("DATABASE_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			URL: os.Getenv("REDIS_URL"),
		},
		AI: AIConfig{
			Provider:         os.Getenv("AI_PROVIDER"),
			InferenceTimeout: envDurationSecs("AI_INFERENCE_TIMEOUT_SECS", 60*time.Second),
			MaxTokens:        envInt("AI_MAX_TOKENS", 1000),
			Temperature:      envFloat("AI_TEMPERATURE", 0.3),
			Ollama: OllamaConfig{
				BaseURL: envString("OLLAMA_BASE_URL", "http://localhost:11434"),
				Model:   envString("OLLAMA_MODEL", "llama3"),
			},
			OpenAI: OpenAIConfig{
				APIKey: os.Getenv("OPENAI_API_KEY"),
				Model:  envString("OPENAI_MODEL", "gpt-4-turbo"),
			},
			Anthropic: AnthropicConfig{
				APIKey: os.Getenv("ANTHROPIC_API_KEY"),
				Model:  envString("ANTHROPIC_MODEL", "claude-sonnet-4-5-20250929"),
			},
		},
		Sources: SourcesConfig{
			NewsAPIKey:      os.Getenv("NEWS_API_KEY"),
			AlphaVantageKey: os.Getenv("ALPHA_VANTAGE_KEY"),
			Timeout:         envDuration("SOURCE_TIMEOUT", 30*time.Second),
			WatchlistPath:   envString("WATCHLIST_PATH", "watchlist.yaml"),
		},
		Pipeline: PipelineConfig{
			ScanInterval:       envDurationSecs("SCAN_INTERVAL_SECS", 300*time.Second),
			AlertThreshold:     envFloat("ALERT_THRESHOLD", 0.7),
			ApprovalThreshold:  envFloat("APPROVAL_THRESHOLD", 0.8),
			LearningRate:       envFloat("LEARNING_RATE", 0.01),
			AlertRetentionDays: envInt("ALERT_RETENTION_DAYS", 90),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Redis.URL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}

	if c.AI.Provider == "" {
		return fmt.Errorf("AI_PROVIDER is required")
	}
	if !validProviders[c.AI.Provider] {
		return fmt.Errorf("AI_PROVIDER must be one of ollama, openai, anthropic, mock; got %q", c.AI.Provider)
	}
	if c.AI.Provider == "openai" && c.AI.OpenAI.APIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is required when AI_PROVIDER is openai")
	}
	if c.AI.Provider == "anthropic" && c.AI.Anthropic.APIKey == "" {
		return fmt.Errorf("ANTHROPIC_API_KEY is required when AI_PROVIDER is anthropic")
	}

	if c.Server.Env != "development" && c.Server.APITokenHash == "" {
		return fmt.Errorf("API_TOKEN_HASH is required outside development")
	}

	if c.Pipeline.AlertThreshold < 0 || c.Pipeline.AlertThreshold > 1 {
		return fmt.Errorf("ALERT_THRESHOLD must be in [0, 1], got %v", c.Pipeline.AlertThreshold)
	}
	if c.Pipeline.ApprovalThreshold < 0 || c.Pipeline.ApprovalThreshold > 1 {
		return fmt.Errorf("APPROVAL_THRESHOLD must be in [0, 1], got %v", c.Pipeline.ApprovalThreshold)
	}
	if c.Pipeline.LearningRate <= 0 {
		return fmt.Errorf("LEARNING_RATE must be positive, got %v", c.Pipeline.LearningRate)
	}

	return nil
}

func envString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func envFloat(key string, defaultVal float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return defaultVal
	}
	return f
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}

func envDurationSecs(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	secs, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return time.Duration(secs) * time.Second
}
