package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/deppfellow/go-invoices/internal/config"
	"github.com/deppfellow/go-invoices/internal/database"
	"github.com/deppfellow/go-invoices/internal/handler"
	"github.com/deppfellow/go-invoices/internal/lib/email"
	"github.com/deppfellow/go-invoices/internal/logger"
	"github.com/deppfellow/go-invoices/internal/repository"
	"github.com/deppfellow/go-invoices/internal/router"
	"github.com/deppfellow/go-invoices/internal/server"
	"github.com/deppfellow/go-invoices/internal/service"
)

const shutdownTimeout = 30 * time.Second

func newServeCommand() *cobra.Command {
	var migrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server and background workers",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), migrate)
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", false, "apply database migrations before serving")
	return cmd
}

func serve(ctx context.Context, migrate bool) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	loggerService := logger.NewLoggerService(cfg.Observability)
	log := logger.NewLoggerWithService(cfg.Observability, loggerService)

	if migrate {
		if err := database.Migrate(ctx, &log, cfg); err != nil {
			log.Error().Err(err).Msg("failed to migrate database")
			loggerService.Shutdown()
			return err
		}
	}

	srv, err := server.New(cfg, &log, loggerService)
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize server")
		loggerService.Shutdown()
		return err
	}

	repos := repository.NewRepositories(srv)
	if srv.Job.Enabled() {
		srv.Job.InitHandlers(repos.Invoice, email.NewClient(cfg, &log))
	}
	if err := srv.Job.Start(); err != nil {
		log.Error().Err(err).Msg("failed to start job server")
		_ = srv.Shutdown(context.Background())
		return err
	}

	services, err := service.NewServices(srv, repos)
	if err != nil {
		log.Error().Err(err).Msg("could not create services")
		_ = srv.Shutdown(context.Background())
		return err
	}

	srv.WatchRevalidations()
	srv.SetupHTTPServer(router.NewRouter(srv, handler.NewHandlers(srv, services)))

	if ctx.Err() != nil {
		log.Info().Msg("shutdown signal received during startup")
		return shutdown(srv, &log)
	}

	serveErr := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-serveErr:
		if err != nil {
			log.Error().Err(err).Msg("server stopped unexpectedly")
		}
	}

	return shutdown(srv, &log)
}

func shutdown(srv *server.Server, log *zerolog.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
		return err
	}

	log.Info().Msg("server exited properly")
	return nil
}
