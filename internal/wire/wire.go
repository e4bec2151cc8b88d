//go:build wireinject
// +build wireinject

package wire

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/google/wire"
	"github.com/redis/go-redis/v9"

	"github.com/revware/pr-sentinel/internal/app"
	"github.com/revware/pr-sentinel/internal/config"
	"github.com/revware/pr-sentinel/internal/db"
	"github.com/revware/pr-sentinel/internal/dedup"
	"github.com/revware/pr-sentinel/internal/github"
	"github.com/revware/pr-sentinel/internal/jobs"
	"github.com/revware/pr-sentinel/internal/llm"
	"github.com/revware/pr-sentinel/internal/logger"
	"github.com/revware/pr-sentinel/internal/queue"
	"github.com/revware/pr-sentinel/internal/ratelimit"
	"github.com/revware/pr-sentinel/internal/review"
	"github.com/revware/pr-sentinel/internal/server"
	"github.com/revware/pr-sentinel/internal/storage"
)

func InitializeApp(ctx context.Context) (*app.App, func(), error) {
	wire.Build(
		app.NewApp,
		server.NewServer,
		server.NewRouter,
		config.LoadConfig,
		db.NewDatabase,
		storage.NewStore,
		github.NewClientFactory,
		llm.NewClient,
		llm.NewPromptManager,
		review.NewFormatter,
		review.NewProcessor,
		jobs.NewReviewJob,
		jobs.NewWorkerPool,
		provideRedisClient,
		provideProducer,
		provideConsumer,
		provideDeduplicator,
		provideLimiter,
		providePublisher,
		provideLoggerConfig,
		provideLogWriter,
		provideSlogLogger,
		provideDBConfig,
		provideAIConfig,
		provideGitHubConfig,
		provideMaxWorkers,
	)
	return &app.App{}, nil, nil
}

func provideRedisClient(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	opts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return client, nil
}

func provideProducer(client *redis.Client, cfg *config.Config, logger *slog.Logger) queue.Producer {
	return queue.NewProducer(client, cfg.Redis.Stream, logger)
}

func provideConsumer(client *redis.Client, cfg *config.Config, logger *slog.Logger) (*queue.Consumer, error) {
	return queue.NewConsumer(client, queue.ConsumerConfig{
		Stream:         cfg.Redis.Stream,
		Group:          cfg.Redis.Group,
		Consumer:       cfg.Redis.Consumer,
		DLQStream:      cfg.Redis.DLQStream,
		BatchSize:      1,
		Block:          5 * time.Second,
		MaxAttempts:    cfg.Review.MaxAttempts,
		ReclaimMinIdle: cfg.Review.ReclaimMinIdle,
	}, logger)
}

func provideDeduplicator(client *redis.Client, cfg *config.Config, logger *slog.Logger) dedup.Deduplicator {
	return dedup.New(client, cfg.Review.DedupTTL, logger)
}

func provideLimiter(client *redis.Client, cfg *config.Config, logger *slog.Logger) ratelimit.Limiter {
	return ratelimit.New(client, cfg.Review.RateLimitPerWindow, cfg.Review.RateLimitWindow, logger)
}

func providePublisher(cfg *config.Config, logger *slog.Logger) *review.Publisher {
	return review.NewPublisher(cfg.GitHub.AppSlug+"[bot]", cfg.Review.ContinuationPacing, logger)
}

func provideLoggerConfig(cfg *config.Config) logger.Config {
	return cfg.Logging
}

func provideLogWriter(cfg *config.Config) io.Writer {
	switch cfg.Logging.Output {
	case "stdout":
		return os.Stdout
	case "stderr":
		return os.Stderr
	case "file":
		f, _ := os.OpenFile("pr-sentinel.log", os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0600)
		return f
	default:
		return os.Stdout
	}
}

func provideSlogLogger(loggerConfig logger.Config, writer io.Writer) *slog.Logger {
	return logger.NewLogger(loggerConfig, writer)
}

func provideDBConfig(cfg *config.Config) *config.DBConfig {
	return &cfg.Database
}

func provideAIConfig(cfg *config.Config) *config.AIConfig {
	return &cfg.AI
}

func provideGitHubConfig(cfg *config.Config) *config.GitHubConfig {
	return &cfg.GitHub
}

func provideMaxWorkers(cfg *config.Config) int {
	return cfg.Review.MaxWorkers
}
