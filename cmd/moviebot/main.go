// Command moviebot runs the movie search service: the Telegram long-poll
// bot (when enabled) and the HTTP ops API, sharing one search pipeline and
// one SQLite database.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"gorm.io/plugin/opentelemetry/tracing"

	_ "github.com/filmoteka/go-movie-bot/docs"
	"github.com/filmoteka/go-movie-bot/internal/bot"
	"github.com/filmoteka/go-movie-bot/internal/config"
	httpapi "github.com/filmoteka/go-movie-bot/internal/http"
	"github.com/filmoteka/go-movie-bot/internal/observability"
	"github.com/filmoteka/go-movie-bot/internal/repo"
	"github.com/filmoteka/go-movie-bot/internal/services"
	"github.com/filmoteka/go-movie-bot/internal/sysutil"
	"github.com/filmoteka/go-movie-bot/internal/tmdb"
)

// version is stamped at build time via -ldflags "-X main.version=...".
var version = "dev"

// @title        Movie Bot API
// @version      1.0
// @description  HTTP surface of the movie search bot: search, history, genres.
// @BasePath     /api/v1
func main() {
	// Missing .env is fine; the environment may carry everything already.
	_ = godotenv.Load()

	cfg := config.MustLoad()
	sysutil.SetLogLevel(cfg.LogLevel)

	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", "moviebot").Logger()
	if cfg.LogPretty {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stdout})
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		logger.Fatal().Err(err).Msg("OpenTelemetry setup failed")
	}

	db, err := repo.OpenSQLite(cfg.DBPath)
	if err != nil {
		logger.Fatal().Err(err).Str("path", cfg.DBPath).Msg("Failed to open database")
	}
	if err := db.Use(tracing.NewPlugin(tracing.WithoutMetrics())); err != nil {
		logger.Fatal().Err(err).Msg("Failed to attach DB tracing plugin")
	}
	if err := repo.AutoMigrate(db); err != nil {
		logger.Fatal().Err(err).Msg("Schema migration failed")
	}

	provider := tmdb.NewClient(cfg.TMDB, logger)

	gin.SetMode(cfg.GinMode)
	r := gin.New()
	httpapi.RegisterRoutes(r, db, provider, cfg, logger)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	var wg sync.WaitGroup

	if cfg.Telegram.Enabled {
		historySvc := services.NewHistoryService(db, cfg.MaxHistoryEntries)
		resolver := services.NewGenreResolver(provider, logger)
		searchSvc := services.NewSearchService(provider, resolver, historySvc, cfg.MoviesPerPage, logger)
		userSvc := &services.UserService{DB: db}

		api := bot.NewAPI(cfg.Telegram.APIURL, cfg.Telegram.Token, nil, logger)
		poller := bot.New(api, searchSvc, historySvc, userSvc, provider, cfg.Telegram.PollTimeout, logger)

		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := poller.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error().Err(err).Msg("Bot poller exited")
			}
		}()
	} else {
		logger.Info().Msg("Telegram bot disabled, running HTTP-only")
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		logger.Info().Str("addr", srv.Addr).Str("version", version).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("HTTP server failed")
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("Shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("HTTP shutdown incomplete")
	}
	wg.Wait()

	if err := shutdownOTel(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("OpenTelemetry shutdown failed")
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	logger.Info().Msg("Stopped")
}
