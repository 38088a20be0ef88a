package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/openlearn/live-session-server/internal/config"
	"github.com/openlearn/live-session-server/internal/database"
	"github.com/openlearn/live-session-server/internal/handler"
	"github.com/openlearn/live-session-server/internal/jobs"
	"github.com/openlearn/live-session-server/internal/middleware"
	"github.com/openlearn/live-session-server/internal/redis"
	"github.com/openlearn/live-session-server/internal/repository"
	"github.com/openlearn/live-session-server/internal/service"
	"github.com/openlearn/live-session-server/internal/sse"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	setLogLevel(cfg.LogLevel)

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), config.DBPingTimeout)
	if err := db.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to ping database")
	}
	cancel()
	log.Info().Msg("database connected")

	redisClient, err := redis.NewClient(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer redisClient.Close()
	log.Info().Msg("redis connected")

	sessionRepo := repository.NewSessionRepository(db.DB)
	courseRepo := repository.NewCourseRepository(db.DB)
	enrollmentRepo := repository.NewEnrollmentRepository(db.DB)
	notificationRepo := repository.NewNotificationRepository(db.DB)
	userRepo := repository.NewUserRepository(db.DB)

	broker := sse.NewBroker(redisClient)
	defer broker.Close()

	fanoutService := service.NewFanoutService(
		courseRepo, enrollmentRepo, notificationRepo, broker,
		cfg.JoinURL, cfg.FanoutConcurrency,
	)
	schedulingService := service.NewSchedulingService(
		sessionRepo, courseRepo, enrollmentRepo, fanoutService,
	)
	lifecycleService := service.NewLifecycleService(sessionRepo, fanoutService)
	admissionService := service.NewAdmissionService(sessionRepo, enrollmentRepo)

	authMiddleware := middleware.NewAuthMiddleware(userRepo)
	rateLimitMiddleware := middleware.NewRedisRateLimitMiddleware(redisClient.Client, cfg.RateLimitPerMin)
	bodyLimitMiddleware := middleware.NewBodyLimitMiddleware(0)

	liveSessionHandler := handler.NewLiveSessionHandler(
		schedulingService, lifecycleService, admissionService,
	)
	eventsHandler := handler.NewEventsHandler(broker)

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(config.ServerRequestTimeout))
	r.Use(bodyLimitMiddleware.Handler)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]any{
			"status":    "ok",
			"timestamp": time.Now().UnixMilli(),
		})
	})

	r.Route("/live-sessions", func(r chi.Router) {
		r.Use(authMiddleware.Handler)
		r.Use(rateLimitMiddleware.Handler)
		r.Mount("/", liveSessionHandler.Routes())
	})

	r.Route("/events", func(r chi.Router) {
		r.Use(authMiddleware.Handler)
		r.Get("/", eventsHandler.ServeHTTP)
	})

	reaperJob := jobs.NewReaperJob(sessionRepo, cfg.ReaperInterval(), cfg.MaxOverrun())
	reaperJob.Start()
	defer reaperJob.Stop()

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  config.ServerReadTimeout,
		WriteTimeout: 0,
		IdleTimeout:  config.ServerIdleTimeout,
	}

	go func() {
		log.Info().Str("addr", cfg.Addr()).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), config.ServerShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}

func setLogLevel(level string) {
	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
