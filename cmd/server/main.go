package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/freeeve/galcon/internal/auth"
	"github.com/freeeve/galcon/internal/config"
	"github.com/freeeve/galcon/internal/handler"
	"github.com/freeeve/galcon/internal/logger"
	"github.com/freeeve/galcon/internal/middleware"
	"github.com/freeeve/galcon/internal/repository/postgres"
	redisrepo "github.com/freeeve/galcon/internal/repository/redis"
	"github.com/freeeve/galcon/internal/service"
	"github.com/freeeve/galcon/pkg/galcon"
)

func main() {
	closeLog := logger.Init()
	defer closeLog()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	log.Info().Str("port", cfg.Port).Bool("devMode", cfg.DevMode).Msg("Config loaded")

	var scenario *galcon.Scenario
	if cfg.ScenarioPath != "" {
		scenario, err = galcon.LoadScenarioFile(cfg.ScenarioPath)
		if err != nil {
			log.Fatal().Err(err).Str("path", cfg.ScenarioPath).Msg("Failed to load scenario")
		}
		log.Info().Str("scenario", scenario.Name).Int("planets", len(scenario.Planets)).Msg("Scenario loaded")
	}

	startupCtx, startupCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer startupCancel()

	// Database
	db, err := postgres.Connect(startupCtx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Database connection failed")
	}
	defer db.Close()

	// Redis
	redisClient, err := redisrepo.NewClient(startupCtx, cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Redis connection failed")
	}
	defer redisClient.Close()

	// Enable Redis keyspace notifications so expired snapshots reach the reaper.
	if err := redisClient.Underlying().ConfigSet(startupCtx, "notify-keyspace-events", "Ex").Err(); err != nil {
		log.Warn().Err(err).Msg("Failed to set Redis keyspace notifications (stale live matches are only swept by polling)")
	}

	// Repos
	matchRepo := postgres.NewMatchRepo(db)

	// Matches recorded as running belong to a previous process.
	if n, err := matchRepo.AbortRunning(startupCtx); err != nil {
		log.Error().Err(err).Msg("Failed to abort stale matches (non-fatal)")
	} else if n > 0 {
		log.Info().Int64("count", n).Msg("Aborted matches left running by a previous process")
	}

	// Auth
	jwtMgr := auth.NewJWTManager(cfg.JWTSecret)

	// WebSocket hub
	wsHub := handler.NewHub()

	// Services
	matchSvc := service.NewMatchService(matchRepo, redisClient, wsHub, scenario, service.MatchOptions{
		Tick:           cfg.MatchTick,
		MaxDuration:    cfg.MatchMaxDuration,
		BroadcastEvery: cfg.BroadcastEvery,
		MaxConcurrent:  cfg.MaxConcurrentMatches,
		Realtime:       cfg.Realtime,
	})
	reaper := service.NewLiveReaper(redisClient.Underlying(), redisClient, matchSvc)

	// Handlers
	authHandler := handler.NewAuthHandler(jwtMgr, cfg.OperatorKey, cfg.DevMode)
	matchHandler := handler.NewMatchHandler(matchSvc)
	wsHandler := handler.NewWSHandler(wsHub, jwtMgr, matchSvc)

	// Router
	mux := http.NewServeMux()
	authMw := auth.Middleware(jwtMgr)

	// Health
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	// Auth (public)
	mux.HandleFunc("POST /auth/spectator", authHandler.SpectatorLogin)
	mux.HandleFunc("POST /auth/operator", authHandler.OperatorLogin)
	mux.HandleFunc("POST /auth/refresh", authHandler.RefreshToken)
	mux.HandleFunc("POST /auth/dev", authHandler.DevLogin)

	// Protected API routes
	api := http.NewServeMux()
	api.HandleFunc("GET /scenario", matchHandler.Scenario)
	api.HandleFunc("GET /standings", matchHandler.Standings)
	api.HandleFunc("GET /matches", matchHandler.ListMatches)
	api.HandleFunc("GET /matches/live", matchHandler.LiveMatches)
	api.HandleFunc("GET /matches/{id}", matchHandler.GetMatch)
	api.HandleFunc("GET /matches/{id}/timeline", matchHandler.Timeline)
	api.HandleFunc("GET /matches/{id}/snapshot", matchHandler.Snapshot)
	api.Handle("POST /matches", auth.RequireOperator(http.HandlerFunc(matchHandler.StartMatch)))
	api.Handle("DELETE /matches/{id}", auth.RequireOperator(http.HandlerFunc(matchHandler.CancelMatch)))

	mux.Handle("/api/v1/", http.StripPrefix("/api/v1", authMw(api)))

	// WebSocket (auth via query param, not middleware)
	mux.HandleFunc("GET /api/v1/ws", wsHandler.ServeWS)

	// Apply global middleware
	root := middleware.Chain(mux, middleware.Logger, middleware.Recover, middleware.CORS(cfg.CORSOrigins), middleware.JSON)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      root,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go reaper.Start(ctx)

	go func() {
		log.Info().Str("port", cfg.Port).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
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
		log.Error().Err(err).Msg("Server shutdown error")
	}
	matchSvc.Close()
	log.Info().Msg("Server stopped")
}
