package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"socialingest/internal/server"
	"socialingest/pkg/logger"
)

// serveCmd runs the HTTP job-submission API
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP job-submission API",
	Long: `Run the HTTP API for submitting ingestion jobs and polling their status.

Endpoints:
  POST /api/parse/start      submit a URL, returns {job_id, status}
  GET  /api/parse/jobs/{id}  poll one job
  GET  /api/parse/platforms  list known platforms
  GET  /healthz              liveness probe`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := logger.GetLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pipe, err := buildPipeline(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer pipe.close()

	srv := server.NewServer(cfg.Server.ListenAddr, pipe.orchestrator, pipe.store, log)

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.Start()
	}()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
