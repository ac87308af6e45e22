package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/freeeve/iron-alliance/api/internal/auth"
	"github.com/freeeve/iron-alliance/api/internal/config"
	"github.com/freeeve/iron-alliance/api/internal/handler"
	"github.com/freeeve/iron-alliance/api/internal/logger"
	"github.com/freeeve/iron-alliance/api/internal/middleware"
	"github.com/freeeve/iron-alliance/api/internal/repository/postgres"
	redisrepo "github.com/freeeve/iron-alliance/api/internal/repository/redis"
	"github.com/freeeve/iron-alliance/api/internal/service"
	"github.com/freeeve/iron-alliance/api/pkg/campaign"
)

func main() {
	logger.Init(logger.Options{Color: os.Getenv("LOG_COLOR") == "true"})
	cfg := config.Load()
	log.Info().Str("port", cfg.Port).Bool("devMode", cfg.DevMode).Dur("turnTimeout", cfg.TurnTimeout).Msg("Config loaded")

	graph := loadMap(cfg.MapFile)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Database
	db, err := postgres.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Database connection failed")
	}
	defer db.Close()
	if err := postgres.Migrate(ctx, db); err != nil {
		log.Fatal().Err(err).Msg("Database migration failed")
	}

	// Redis
	redisClient, err := redisrepo.NewClient(ctx, cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Redis connection failed")
	}
	defer redisClient.Close()
	if err := redisClient.EnableExpiryEvents(ctx); err != nil {
		log.Warn().Err(err).Msg("Redis keyspace notifications unavailable, relying on the deadline poller")
	}

	// Repos
	userRepo := postgres.NewUserRepo(db)
	gameRepo := postgres.NewGameRepo(db)
	actionRepo := postgres.NewActionRepo(db)
	saveRepo := postgres.NewSaveRepo(db)

	// Auth
	jwtMgr := auth.NewJWTManager(cfg.JWTSecret)
	google := auth.NewGoogleOAuth(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.OAuthRedirectURL)

	// Services
	hub := handler.NewHub()
	play := service.NewPlayService(graph, gameRepo, actionRepo, saveRepo, redisClient, hub)
	games := service.NewGameService(gameRepo, userRepo, play, cfg.TurnTimeout)

	// Rehydrate Redis and restart bot turns after a restart.
	if err := play.RecoverActiveGames(ctx); err != nil {
		log.Error().Err(err).Msg("Failed to recover active games (non-fatal)")
	}
	go service.NewTimerListener(redisClient, play, gameRepo).Start(ctx)

	routes := handler.Routes{
		Auth:          handler.NewAuthHandler(google, jwtMgr, userRepo, cfg.DevMode),
		Users:         handler.NewUserHandler(userRepo),
		Games:         handler.NewGameHandler(games),
		Play:          handler.NewPlayHandler(play),
		WS:            handler.NewWSHandler(hub, cfg.CORSOrigin),
		JWT:           jwtMgr,
		Limiter:       middleware.NewLimiter(cfg.ActionRate, cfg.ActionBurst),
		AllowedOrigin: cfg.CORSOrigin,
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      routes.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("Server shutdown error")
	}
	log.Info().Msg("Server stopped")
}

// loadMap reads the theater map from path, or returns the embedded map
// when path is empty.
func loadMap(path string) campaign.Graph {
	if path == "" {
		return campaign.DefaultMap()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		log.Fatal().Err(err).Str("path", path).Msg("Failed to read map file")
	}
	m, err := campaign.LoadMap(data)
	if err != nil {
		log.Fatal().Err(err).Str("path", path).Msg("Invalid map file")
	}
	log.Info().Str("path", path).Msg("Loaded theater map")
	return m
}
