package main

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/dgallion1/docfocus/internal/api"
	"github.com/dgallion1/docfocus/internal/config"
	"github.com/dgallion1/docfocus/internal/logging"
	"github.com/dgallion1/docfocus/internal/metrics"
	"github.com/dgallion1/docfocus/internal/pipeline"
)

func main() {
	// A missing .env is fine; the environment may already be set.
	envErr := godotenv.Load()

	cfg, cfgErr := config.Load()
	log, closeLog := logging.Default(os.Stdout, logging.Options{Level: cfg.LogLevel, File: cfg.LogFile})
	defer closeLog()

	if envErr == nil {
		log.Debug("loaded .env")
	}
	if cfgErr != nil {
		log.Error("invalid configuration", "error", cfgErr)
		os.Exit(1)
	}
	if err := cfg.ValidateServer(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	metrics.Register(prometheus.DefaultRegisterer)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize pipeline.
	analyzer := pipeline.NewAnalyzer(cfg, log)
	orch := pipeline.NewOrchestrator(cfg, analyzer, log)
	orch.Start(ctx)

	// Initialize HTTP server.
	srv := api.NewServer(orch, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	sigCtx, stopSignals := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stopSignals()

	log.Info("starting docfocus",
		"port", cfg.Port,
		"workers", cfg.WorkerCount,
		"collections_dir", cfg.CollectionsDir,
		"pdf_backend", cfg.PDFBackend,
	)
	ln, err := net.Listen("tcp", httpServer.Addr)
	if err != nil {
		log.Error("listen", "error", err)
		os.Exit(1)
	}
	if err := serve(sigCtx, httpServer, ln, orch, log); err != nil {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
	log.Info("shutdown complete")
}

type stopper interface {
	Stop()
}

// serve runs httpServer on ln until ctx is done, then stops accepting
// requests and drains orch. It returns only after orch.Stop has finished,
// so queued jobs are failed and their uploads removed before exit.
func serve(ctx context.Context, httpServer *http.Server, ln net.Listener, orch stopper, log *slog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.Serve(ln)
	}()

	var serveErr error
	select {
	case err := <-errCh:
		if err != http.ErrServerClosed {
			serveErr = err
		}
	case <-ctx.Done():
		log.Info("shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Warn("http shutdown", "error", err)
		}
		if err := <-errCh; err != http.ErrServerClosed {
			serveErr = err
		}
	}

	orch.Stop()
	return serveErr
}
