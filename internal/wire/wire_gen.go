// Code generated manually. DO NOT EDIT.

//go:generate go run -mod=mod github.com/google/wire/cmd/wire
//go:build !wireinject
// +build !wireinject

package wire

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

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

// InitializeApp creates and wires all application dependencies.
func InitializeApp(ctx context.Context) (*app.App, func(), error) {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	// Setup logger
	var logWriter io.Writer
	switch cfg.Logging.Output {
	case "stderr":
		logWriter = os.Stderr
	case "file":
		f, _ := os.OpenFile("pr-sentinel.log", os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0600)
		logWriter = f
	default:
		logWriter = os.Stdout
	}
	slogLogger := logger.NewLogger(cfg.Logging, logWriter)

	// Database
	dbConn, dbCleanup, err := db.NewDatabase(&cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	store := storage.NewStore(dbConn.DB)

	// Redis
	opts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		dbCleanup()
		return nil, nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	redisClient := redis.NewClient(opts)
	if err := redisClient.Ping(ctx).Err(); err != nil {
		dbCleanup()
		return nil, nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	// Queue
	producer := queue.NewProducer(redisClient, cfg.Redis.Stream, slogLogger)
	consumer, err := queue.NewConsumer(redisClient, queue.ConsumerConfig{
		Stream:         cfg.Redis.Stream,
		Group:          cfg.Redis.Group,
		Consumer:       cfg.Redis.Consumer,
		DLQStream:      cfg.Redis.DLQStream,
		BatchSize:      1,
		Block:          5 * time.Second,
		MaxAttempts:    cfg.Review.MaxAttempts,
		ReclaimMinIdle: cfg.Review.ReclaimMinIdle,
	}, slogLogger)
	if err != nil {
		_ = redisClient.Close()
		dbCleanup()
		return nil, nil, fmt.Errorf("failed to create stream consumer: %w", err)
	}

	// Gateway checks
	deduplicator := dedup.New(redisClient, cfg.Review.DedupTTL, slogLogger)
	limiter := ratelimit.New(redisClient, cfg.Review.RateLimitPerWindow, cfg.Review.RateLimitWindow, slogLogger)

	// GitHub
	clientFactory := github.NewClientFactory(&cfg.GitHub, slogLogger)

	// LLM
	llmClient, err := llm.NewClient(&cfg.AI, slogLogger)
	if err != nil {
		_ = redisClient.Close()
		dbCleanup()
		return nil, nil, fmt.Errorf("failed to create LLM client: %w", err)
	}
	promptMgr, err := llm.NewPromptManager()
	if err != nil {
		_ = redisClient.Close()
		dbCleanup()
		return nil, nil, fmt.Errorf("failed to create prompt manager: %w", err)
	}

	// Review pipeline
	processor := review.NewProcessor(llmClient, promptMgr, store, &cfg.AI, slogLogger)
	formatter := review.NewFormatter()
	publisher := review.NewPublisher(cfg.GitHub.AppSlug+"[bot]", cfg.Review.ContinuationPacing, slogLogger)

	// Jobs
	reviewJob := jobs.NewReviewJob(clientFactory, processor, formatter, publisher, store, slogLogger)
	workers := jobs.NewWorkerPool(consumer, reviewJob, cfg.Review.MaxWorkers, slogLogger)

	// Server
	router := server.NewRouter(cfg, producer, deduplicator, limiter, slogLogger)
	srv := server.NewServer(cfg, router, slogLogger)

	// App
	application := app.NewApp(cfg, srv, workers, dbConn, redisClient, slogLogger)

	cleanup := func() {
		_ = redisClient.Close()
		dbCleanup()
	}

	return application, cleanup, nil
}
