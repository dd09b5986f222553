// Package server owns the process-wide resources: configuration, loggers,
// the Postgres pool, Redis, the path cache, the job queue and the HTTP
// listener.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/newrelic/go-agent/v3/integrations/nrredis-v9"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/deppfellow/go-invoices/internal/config"
	"github.com/deppfellow/go-invoices/internal/database"
	"github.com/deppfellow/go-invoices/internal/lib/cache"
	"github.com/deppfellow/go-invoices/internal/lib/job"
	loggerPkg "github.com/deppfellow/go-invoices/internal/logger"
)

type Server struct {
	Config        *config.Config
	Logger        *zerolog.Logger
	LoggerService *loggerPkg.LoggerService
	DB            *database.Database
	Redis         *redis.Client
	Cache         *cache.PathCache
	Job           *job.JobService

	httpServer *http.Server
	stopWatch  context.CancelFunc
}

// New connects to Postgres and Redis. Redis being unreachable is logged
// but not fatal: writes still succeed and revalidation errors are logged.
func New(cfg *config.Config, logger *zerolog.Logger, loggerService *loggerPkg.LoggerService) (*Server, error) {
	db, err := database.New(cfg, logger, loggerService)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.Redis.Address})
	if loggerService.GetApplication() != nil {
		redisClient.AddHook(nrredis.NewHook(redisClient.Options()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Error().Err(err).Msg("failed to connect to redis, continuing without cache")
	}

	return &Server{
		Config:        cfg,
		Logger:        logger,
		LoggerService: loggerService,
		DB:            db,
		Redis:         redisClient,
		Cache:         cache.NewPathCache(redisClient, cfg.Invoices.CacheTTL, logger),
		Job:           job.NewJobService(logger, cfg),
	}, nil
}

// WatchRevalidations logs every path revalidated by any instance and
// records it as a New Relic event.
func (s *Server) WatchRevalidations() {
	ctx, cancel := context.WithCancel(context.Background())

	paths, err := s.Cache.Subscribe(ctx)
	if err != nil {
		cancel()
		s.Logger.Warn().Err(err).Msg("not watching path revalidations")
		return
	}
	s.stopWatch = cancel

	go func() {
		for path := range paths {
			s.Logger.Debug().Str("path", path).Msg("revalidation received")
			s.LoggerService.RecordEvent("PathRevalidated", map[string]interface{}{
				"path": path,
			})
		}
	}()
}

// SetupHTTPServer configures the listener. Timeouts are in seconds.
func (s *Server) SetupHTTPServer(handler http.Handler) {
	s.httpServer = &http.Server{
		Addr:         ":" + s.Config.Server.Port,
		Handler:      handler,
		ReadTimeout:  time.Duration(s.Config.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(s.Config.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(s.Config.Server.IdleTimeout) * time.Second,
	}
}

// Start serves HTTP until Shutdown is called.
func (s *Server) Start() error {
	if s.httpServer == nil {
		return errors.New("HTTP server not initialized")
	}

	s.Logger.Info().
		Str("port", s.Config.Server.Port).
		Str("env", s.Config.Primary.Env).
		Msg("starting server")

	return s.httpServer.ListenAndServe()
}

// Shutdown drains HTTP requests, then stops the workers and closes Redis,
// the database pool and New Relic, in that order.
func (s *Server) Shutdown(ctx context.Context) error {
	var errs []error

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to shutdown HTTP server: %w", err))
		}
	}

	if s.stopWatch != nil {
		s.stopWatch()
	}

	if s.Job != nil {
		s.Job.Stop()
	}

	if err := s.Redis.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close redis: %w", err))
	}

	if err := s.DB.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close database connection: %w", err))
	}

	s.LoggerService.Shutdown()

	return errors.Join(errs...)
}
