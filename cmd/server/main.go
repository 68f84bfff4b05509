package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	httpadapter "trustscan/internal/adapters/http"
	"trustscan/internal/app"
	"trustscan/internal/config"
	"trustscan/internal/logger"
	scanworker "trustscan/internal/workers/scanrunner"
)

func main() {
	cfg, cfgErr := config.Load()
	log, err := logger.New(cfg.Log)
	if err != nil {
		logrus.Fatalf("logger: %v", err)
	}
	if cfgErr != nil {
		log.Warnf("config: %v", cfgErr)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := app.Build(ctx, cfg, log)
	if err != nil {
		log.Fatalf("startup: %v", err)
	}
	defer a.Close()

	srv := httpadapter.New(a.Scanner, a.Profiles, a.Jobs, a.Processor, log)
	r := chi.NewRouter()
	r.Mount("/", srv.Routes())

	// Optional background job workers
	if cfg.ScanWorkers > 0 {
		scanworker.Run(ctx, a.Jobs, a.Processor, cfg.ScanWorkers, 500*time.Millisecond, log)
		log.Infof("scan workers started: %d", cfg.ScanWorkers)
	}

	httpSrv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() { errCh <- httpSrv.ListenAndServe() }()
	log.WithField("addr", cfg.ListenAddr).Info("listening")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		log.Infof("shutting down on %s", sig)
		cancel()
		shutdownCtx, done := context.WithTimeout(context.Background(), 10*time.Second)
		defer done()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Warn("shutdown")
		}
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("server error")
			a.Close()
			os.Exit(1)
		}
	}
}
