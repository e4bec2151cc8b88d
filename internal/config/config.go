// Package config loads the service configuration from environment
// variables and an optional .env file using Viper.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/revware/pr-sentinel/internal/logger"
)

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port string
}

// DBConfig holds PostgreSQL connection settings for the review history
// store.
type DBConfig struct {
	Host            string
	Port            int
	Username        string
	Password        string
	Database        string
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// RedisConfig holds connection and stream naming for the queue and the
// key-value checks.
type RedisConfig struct {
	URL       string
	Stream    string
	Group     string
	Consumer  string
	DLQStream string
}

// GitHubConfig holds GitHub App credentials and identity.
type GitHubConfig struct {
	AppID          int64
	AppSlug        string
	WebhookSecret  string
	PrivateKeyPath string
	Token          string // PAT, CLI use only
}

// AIConfig holds LLM backend settings.
type AIConfig struct {
	APIKey         string
	BaseURL        string
	Model          string
	MaxTokens      int
	Temperature    float64
	RequestTimeout time.Duration
}

// ReviewConfig holds pipeline tuning knobs.
type ReviewConfig struct {
	MaxWorkers         int
	MaxAttempts        int
	DedupTTL           time.Duration
	RateLimitPerWindow int
	RateLimitWindow    time.Duration
	ContinuationPacing time.Duration
	ReclaimMinIdle     time.Duration
}

// Config is the root configuration for the service.
type Config struct {
	Server   ServerConfig
	Logging  logger.Config
	Database DBConfig
	Redis    RedisConfig
	GitHub   GitHubConfig
	AI       AIConfig
	Review   ReviewConfig
}

// LoadConfig reads configuration from environment variables and a .env
// file, sets defaults, and validates required fields.
func LoadConfig() (*Config, error) {
	cfg := loadFromEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadCLIConfig loads the same configuration without the service-only
// requirements. The CLI authenticates with a personal access token, so
// the App credentials and webhook secret stay optional; each command
// checks the fields it actually needs.
func LoadCLIConfig() (*Config, error) {
	return loadFromEnv(), nil
}

func loadFromEnv() *Config {
	viper.SetConfigFile(".env")
	viper.AutomaticEnv()

	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("LOG_FORMAT", "text")
	viper.SetDefault("LOG_OUTPUT", "stdout")

	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", 5432)
	viper.SetDefault("DB_USER", "sentinel")
	viper.SetDefault("DB_NAME", "sentinel")
	viper.SetDefault("DB_CONN_MAX_LIFETIME", "30m")
	viper.SetDefault("DB_CONN_MAX_IDLE_TIME", "5m")

	viper.SetDefault("REDIS_URL", "redis://localhost:6379/0")
	viper.SetDefault("REDIS_STREAM", "review_tasks")
	viper.SetDefault("REDIS_GROUP", "review_workers")
	viper.SetDefault("REDIS_CONSUMER", "worker-1")
	viper.SetDefault("REDIS_DLQ_STREAM", "review_tasks_dlq")

	viper.SetDefault("GITHUB_APP_SLUG", "pr-sentinel")
	viper.SetDefault("GITHUB_PRIVATE_KEY_PATH", "keys/pr-sentinel.private-key.pem")

	viper.SetDefault("AI_MODEL", "gpt-4o-mini")
	viper.SetDefault("AI_MAX_TOKENS", 4096)
	viper.SetDefault("AI_TEMPERATURE", 0.1)
	viper.SetDefault("AI_REQUEST_TIMEOUT", "90s")

	viper.SetDefault("MAX_WORKERS", 5)
	viper.SetDefault("MAX_ATTEMPTS", 3)
	viper.SetDefault("DEDUP_TTL", "24h")
	viper.SetDefault("RATE_LIMIT_PER_WINDOW", 60)
	viper.SetDefault("RATE_LIMIT_WINDOW", "1m")
	viper.SetDefault("CONTINUATION_PACING", "1s")
	viper.SetDefault("RECLAIM_MIN_IDLE", "10m")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			// .env is optional; anything else is worth surfacing but
			// env vars may still carry a complete configuration.
			fmt.Printf("warning: could not read .env file: %v\n", err)
		}
	}

	cfg := &Config{
		Server: ServerConfig{
			Port: viper.GetString("SERVER_PORT"),
		},
		Logging: logger.Config{
			Level:  viper.GetString("LOG_LEVEL"),
			Format: viper.GetString("LOG_FORMAT"),
			Output: viper.GetString("LOG_OUTPUT"),
		},
		Database: DBConfig{
			Host:            viper.GetString("DB_HOST"),
			Port:            viper.GetInt("DB_PORT"),
			Username:        viper.GetString("DB_USER"),
			Password:        viper.GetString("DB_PASSWORD"),
			Database:        viper.GetString("DB_NAME"),
			ConnMaxLifetime: viper.GetDuration("DB_CONN_MAX_LIFETIME"),
			ConnMaxIdleTime: viper.GetDuration("DB_CONN_MAX_IDLE_TIME"),
		},
		Redis: RedisConfig{
			URL:       viper.GetString("REDIS_URL"),
			Stream:    viper.GetString("REDIS_STREAM"),
			Group:     viper.GetString("REDIS_GROUP"),
			Consumer:  viper.GetString("REDIS_CONSUMER"),
			DLQStream: viper.GetString("REDIS_DLQ_STREAM"),
		},
		GitHub: GitHubConfig{
			AppID:          viper.GetInt64("GITHUB_APP_ID"),
			AppSlug:        viper.GetString("GITHUB_APP_SLUG"),
			WebhookSecret:  viper.GetString("GITHUB_WEBHOOK_SECRET"),
			PrivateKeyPath: viper.GetString("GITHUB_PRIVATE_KEY_PATH"),
			Token:          viper.GetString("GITHUB_TOKEN"),
		},
		AI: AIConfig{
			APIKey:         viper.GetString("AI_API_KEY"),
			BaseURL:        viper.GetString("AI_BASE_URL"),
			Model:          viper.GetString("AI_MODEL"),
			MaxTokens:      viper.GetInt("AI_MAX_TOKENS"),
			Temperature:    viper.GetFloat64("AI_TEMPERATURE"),
			RequestTimeout: viper.GetDuration("AI_REQUEST_TIMEOUT"),
		},
		Review: ReviewConfig{
			MaxWorkers:         viper.GetInt("MAX_WORKERS"),
			MaxAttempts:        viper.GetInt("MAX_ATTEMPTS"),
			DedupTTL:           viper.GetDuration("DEDUP_TTL"),
			RateLimitPerWindow: viper.GetInt("RATE_LIMIT_PER_WINDOW"),
			RateLimitWindow:    viper.GetDuration("RATE_LIMIT_WINDOW"),
			ContinuationPacing: viper.GetDuration("CONTINUATION_PACING"),
			ReclaimMinIdle:     viper.GetDuration("RECLAIM_MIN_IDLE"),
		},
	}

	return cfg
}

// Validate checks fields the service cannot run without.
func (c *Config) Validate() error {
	if c.GitHub.AppID == 0 {
		return fmt.Errorf("GITHUB_APP_ID must be set")
	}
	if c.GitHub.WebhookSecret == "" {
		return fmt.Errorf("GITHUB_WEBHOOK_SECRET must be set")
	}
	if c.AI.APIKey == "" {
		return fmt.Errorf("AI_API_KEY must be set")
	}
	if c.Review.MaxAttempts <= 0 {
		return fmt.Errorf("MAX_ATTEMPTS must be positive, got %d", c.Review.MaxAttempts)
	}
	if c.Review.RateLimitWindow <= 0 {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be positive, got %s", c.Review.RateLimitWindow)
	}
	return nil
}
