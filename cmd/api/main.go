package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/jaume768/splashmy/internal/adapter/repo"
	"github.com/jaume768/splashmy/internal/cache"
	"github.com/jaume768/splashmy/internal/email"
	"github.com/jaume768/splashmy/internal/http/handlers"
	"github.com/jaume768/splashmy/internal/http/httpapi"
	"github.com/jaume768/splashmy/internal/infra"
	"github.com/jaume768/splashmy/internal/moderation"
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

	ctx := context.Background()
	dbpool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect database")
	}
	defer dbpool.Close()

	store, err := storage.NewFileStore(cfg.StoragePath, cfg.StorageBaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure storage")
	}

	var sender email.Sender = email.Noop{}
	if cfg.BrevoAPIKey != "" {
		sender = email.NewBrevoSender(email.BrevoOptions{
			APIKey:       cfg.BrevoAPIKey,
			BaseURL:      cfg.BrevoBaseURL,
			FromName:     cfg.EmailFromName,
			FromAddress:  cfg.EmailFromAddress,
			SupportInbox: cfg.SupportInbox,
		})
	} else {
		logger.Warn().Msg("BREVO_API_KEY missing, outgoing email disabled")
	}

	var moderator moderation.Moderator = moderation.AllowAll{}
	if cfg.UseModeration {
		moderator = moderation.NewOpenAIModerator(moderation.Options{
			APIKey:  cfg.OpenAIAPIKey,
			BaseURL: cfg.OpenAIBaseURL,
		})
	}

	userRepo := repo.NewUserRepository(dbpool)
	verificationRepo := repo.NewVerificationRepository(dbpool)
	imageRepo := repo.NewImageRepository(dbpool)
	jobRepo := repo.NewJobRepository(dbpool)
	resultRepo := repo.NewResultRepository(dbpool)
	eventRepo := repo.NewStreamingEventRepository(dbpool)
	quotaRepo := repo.NewQuotaRepository(dbpool)

	styleRepo, err := cache.NewCachedStyleRepository(repo.NewStyleRepository(dbpool), cfg.RedisURL, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure style cache")
	}

	app := &handlers.App{
		Auth:       service.NewAuthService(userRepo, verificationRepo, sender, cfg.JWTSecret, logger),
		Jobs:       service.NewJobService(jobRepo, quotaRepo, styleRepo, imageRepo, userRepo, cfg.FreeDailyLimit, logger),
		Uploads:    service.NewUploadService(imageRepo, store, moderator, logger),
		JobRepo:    jobRepo,
		ResultRepo: resultRepo,
		EventRepo:  eventRepo,
		ImageRepo:  imageRepo,
		StyleRepo:  styleRepo,
		QuotaRepo:  quotaRepo,
		UserRepo:   userRepo,
		Store:      store,
		Mailer:     sender,
		JWTSecret:  cfg.JWTSecret,
		JWTTTL:     cfg.JWTTTL,
		DailyLimit: cfg.FreeDailyLimit,
		Logger:     logger,
	}

	router := httpapi.NewRouter(app, httpapi.Options{
		JWTSecret:       cfg.JWTSecret,
		AllowedOrigins:  strings.Split(cfg.AllowedOrigins, ","),
		DefaultLocale:   "en",
		RateLimitPerMin: cfg.RateLimitPerMin,
	})

	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}
