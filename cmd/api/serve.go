package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/geocoder89/speakup/internal/config"
	"github.com/geocoder89/speakup/internal/db"
	"github.com/geocoder89/speakup/internal/errutil"
	httpx "github.com/geocoder89/speakup/internal/http"
	"github.com/geocoder89/speakup/internal/observability"
)

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	var migrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long:  `Start the HTTP API. The configured administrator is created on startup when missing.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), migrate)
		},
	}

	cmd.Flags().BoolVar(&migrate, "migrate", false, "apply database migrations before serving")

	return cmd
}

func runServe(ctx context.Context, migrate bool) error {
	if ctx == nil {
		ctx = context.Background()
	}

	// Load the config set up
	cfg := config.Load()

	log := observability.NewLogger(cfg.Env)

	shutdownTracer, err := observability.InitTracer(ctx, observability.TracerConfig{
		ServiceName: "speakup-api",
		Version:     version,
		Environment: cfg.Env,
		Endpoint:    cfg.OTLPEndpoint,
		SampleRatio: cfg.TraceSampleRatio,
	})
	if err != nil {
		return oops.Code("STARTUP_FAILED").With("operation", "init tracer").Wrap(err)
	}
	defer func() {
		tctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracer(tctx)
	}()

	if migrate && cfg.StoreDriver == "postgres" {
		if err := runMigrations(ctx, cfg); err != nil {
			errutil.LogError(ctx, log, "migrations failed", err)
			return err
		}
	}

	a, err := buildApp(ctx, cfg, log)
	if err != nil {
		errutil.LogError(ctx, log, "startup failed", err)
		return err
	}
	defer a.Close()

	seedCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	err = db.EnsureAdminUser(seedCtx, a.accounts, cfg.Admin, log)
	cancel()
	if err != nil {
		errutil.LogError(ctx, log, "admin bootstrap failed", err)
		return err
	}

	router := httpx.NewRouter(httpx.Deps{
		Config:   cfg,
		Logger:   log,
		Accounts: a.accounts,
		Prom:     a.prom,
		Gatherer: a.registry,
		Health:   a.health,
	})

	// server set up
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serveErr := make(chan error, 1)

	go func() {
		log.Info("Server starting", "port", cfg.Port, "env", cfg.Env, "store", cfg.StoreDriver, "mail", cfg.MailDriver)
		err := srv.ListenAndServe()

		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	// Graceful shutdown

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)

	select {
	case err := <-serveErr:
		if err != nil {
			errutil.LogError(ctx, log, "server failed", err)
			return err
		}
		return nil
	case <-stop:
	}

	log.Info("server shutting down")
	a.health.MarkShuttingDown()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "err", err)
		return err
	}

	log.Info("shutdown complete")
	return nil
}
