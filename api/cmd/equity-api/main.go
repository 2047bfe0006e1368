package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"equity-lens/api/internal/app"
	"equity-lens/api/internal/config"
	"equity-lens/api/internal/handle"
	"equity-lens/api/internal/httpserver"
	"equity-lens/api/internal/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	h := handle.New(a.Analyzer, a.Normalizer, cfg.RequestTimeout, log.Named("handle"))
	router := httpserver.NewRouter(h, httpserver.Options{
		CORSOrigins: cfg.CORSOrigins,
		Metrics:     a.Metrics,
		Logger:      log.Named("http"),
	})

	addr := ":" + cfg.Port
	if err := httpserver.Serve(ctx, addr, router, log); err != nil {
		log.Error("server stopped", zap.Error(err))
		return err
	}
	return nil
}
