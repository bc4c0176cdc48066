package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/jaume768/splashmy/internal/adapter/repo"
	"github.com/jaume768/splashmy/internal/cache"
	"github.com/jaume768/splashmy/internal/infra"
	"github.com/jaume768/splashmy/internal/moderation"
	"github.com/jaume768/splashmy/internal/openai"
	"github.com/jaume768/splashmy/internal/service"
	"github.com/jaume768/splashmy/internal/storage"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: db connection failed")
	}
	defer pool.Close()

	store, err := storage.NewFileStore(cfg.StoragePath, cfg.StorageBaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: failed to configure storage")
	}

	client := openai.NewClient(openai.Options{
		APIKey:  cfg.OpenAIAPIKey,
		BaseURL: cfg.OpenAIBaseURL,
		Model:   cfg.OpenAIImageModel,
		Timeout: cfg.OpenAITimeout,
		Logger:  &logger,
	})

	var moderator moderation.Moderator = moderation.AllowAll{}
	if cfg.UseModeration {
		moderator = moderation.NewOpenAIModerator(moderation.Options{
			APIKey:  cfg.OpenAIAPIKey,
			BaseURL: cfg.OpenAIBaseURL,
		})
	}

	jobRepo := repo.NewJobRepository(pool)
	resultRepo := repo.NewResultRepository(pool)
	eventRepo := repo.NewStreamingEventRepository(pool)
	quotaRepo := repo.NewQuotaRepository(pool)
	imageRepo := repo.NewImageRepository(pool)

	styleRepo, err := cache.NewCachedStyleRepository(repo.NewStyleRepository(pool), cfg.RedisURL, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: failed to configure style cache")
	}

	runner := service.NewRunner(
		jobRepo,
		resultRepo,
		eventRepo,
		quotaRepo,
		styleRepo,
		imageRepo,
		store,
		client,
		moderator,
		logger,
		service.RunnerOptions{Poll: cfg.WorkerPoll},
	)

	sweeper := service.NewSweeper(jobRepo, resultRepo, eventRepo, store, cfg.RetentionDays, 0, logger)
	go sweeper.Run(ctx)

	if err := runner.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal().Err(err).Msg("worker: stopped with error")
	}
	logger.Info().Msg("worker: stopped")
}
