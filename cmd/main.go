package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bwise1/bookgroups/config"
	deps "github.com/bwise1/bookgroups/internal/debs"
	api "github.com/bwise1/bookgroups/internal/http/rest"
	"github.com/bwise1/bookgroups/pkg/logger"
	"go.uber.org/zap"
)

const (
	allowConnectionsAfterShutdown = 1 * time.Second
)

func main() {
	cfg := config.New()

	log, err := logger.NewLogger(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer log.Sync()
	zap.ReplaceGlobals(log)

	if err := cfg.Validate(); err != nil {
		log.Fatal("invalid configuration", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(logger.WithLogger(context.Background(), log))
	defer cancel()

	deps, err := deps.New(ctx, cfg)
	if err != nil {
		log.Fatal("failed to initialise dependencies", zap.Error(err))
	}
	defer deps.Close()

	a := &api.API{
		Config: cfg,
		Deps:   deps,
	}
	go deps.Run(ctx, cfg.QueryGCTime)
	go func() {
		log.Info("server running", zap.Int("port", cfg.Port), zap.String("api", cfg.APIBaseURL))
		if err := a.Serve(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server stopped", zap.Error(err))
		}
	}()

	stopChan := make(chan os.Signal, 1)
	signal.Notify(stopChan, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	<-stopChan

	log.Info("request to shutdown server, draining", zap.Duration("wait", allowConnectionsAfterShutdown))
	time.Sleep(allowConnectionsAfterShutdown)

	log.Info("shutting down server")
	if err := a.Shutdown(context.Background()); err != nil {
		log.Error("shutdown failed", zap.Error(err))
	}
	cancel()
}
