// Package main is the entry point for the RepRoom API server and its
// optional Telegram bot.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/jakesanders16/mini-youtube/internal/api"
	"github.com/jakesanders16/mini-youtube/internal/bot"
	"github.com/jakesanders16/mini-youtube/internal/cache"
	"github.com/jakesanders16/mini-youtube/internal/config"
	"github.com/jakesanders16/mini-youtube/internal/pkg/db"
	"github.com/jakesanders16/mini-youtube/internal/pkg/lock"
	"github.com/jakesanders16/mini-youtube/internal/service"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	configPath := "config"
	if p := os.Getenv("REPROOM_CONFIG_DIR"); p != "" {
		configPath = p
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	configureLogger(&cfg.Log)

	log.Info().Msg("Configuration loaded successfully")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbPool, err := db.NewPool(ctx, &cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer dbPool.Close()

	if err := db.Migrate(ctx, dbPool); err != nil {
		log.Fatal().Err(err).Msg("Failed to run database migrations")
	}

	loc, err := cfg.Ledger.Location()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid ledger timezone")
	}

	// A nil interface, not a nil *LeaderboardCache, disables caching.
	var lbCache service.LeaderboardCache
	var redisCache *cache.LeaderboardCache
	if cfg.Redis.Addr != "" {
		client := cache.NewRedisClient(&cfg.Redis)
		defer client.Close()
		redisCache = cache.NewLeaderboardCache(client, cfg.Leaderboard.CacheTTL)
		if err := redisCache.Ping(ctx); err != nil {
			log.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("Redis unreachable, leaderboards will read through on every miss")
		}
		lbCache = redisCache
	} else {
		log.Info().Msg("Redis not configured, leaderboard cache disabled")
	}

	var invalidator service.Invalidator
	if lbCache != nil {
		invalidator = lbCache
	}

	userLock := lock.NewUserLock()

	ledgerService := service.NewLedgerService(dbPool, loc, invalidator)
	accountService := service.NewAccountService(dbPool)
	videoService := service.NewVideoService(dbPool, ledgerService, invalidator)
	engagementService := service.NewEngagementService(dbPool, ledgerService, invalidator)
	challengeService := service.NewChallengeService(dbPool, ledgerService, userLock, cfg.Ledger.ChallengeStake, invalidator)
	leaderboardService := service.NewLeaderboardService(
		dbPool,
		lbCache,
		loc,
		cfg.Leaderboard.DefaultLimit,
		cfg.Leaderboard.MaxLimit,
	)

	gin.SetMode(cfg.HTTP.Mode)
	router := api.NewRouter(api.Deps{
		Videos:      videoService,
		Engagement:  engagementService,
		Challenges:  challengeService,
		Leaderboard: leaderboardService,
		Ledger:      ledgerService,
		Health: func(ctx context.Context) error {
			if err := dbPool.HealthCheck(ctx); err != nil {
				return err
			}
			if redisCache != nil {
				return redisCache.Ping(ctx)
			}
			return nil
		},
		JWTSecret: cfg.Identity.JWTSecret,
		VoteSalt:  cfg.Identity.VoteSalt,
	})

	server := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      router,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	go func() {
		log.Info().Str("addr", cfg.HTTP.Addr).Msg("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	go runExpirySweep(ctx, challengeService, cfg.Ledger.ExpirySweep)

	var telegramBot *bot.Bot
	if cfg.Bot.Token != "" {
		telegramBot, err = bot.New(&bot.Dependencies{
			Config:      cfg,
			Accounts:    accountService,
			Ledger:      ledgerService,
			Leaderboard: leaderboardService,
			Challenges:  challengeService,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create bot")
		}
		go telegramBot.Start()
	} else {
		log.Info().Msg("Bot token not set, Telegram bot disabled")
	}

	<-ctx.Done()
	log.Info().Msg("Received shutdown signal")

	if telegramBot != nil {
		telegramBot.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}
	log.Info().Msg("Server stopped gracefully")
}

// runExpirySweep refunds overdue challenges until ctx is cancelled.
func runExpirySweep(ctx context.Context, challenges *service.ChallengeService, every time.Duration) {
	if every <= 0 {
		return
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := challenges.ExpireOverdue(ctx)
			if err != nil {
				log.Error().Err(err).Msg("Challenge expiry sweep failed")
				continue
			}
			if n > 0 {
				log.Info().Int("expired", n).Msg("Expired overdue challenges")
			}
		}
	}
}

func configureLogger(cfg *config.LogConfig) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if !cfg.Pretty {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}
}
