package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/announcarr/announcarr/internal/app"
	"github.com/announcarr/announcarr/internal/config"
	"github.com/announcarr/announcarr/internal/handler"
)

const (
	serverReadTimeout  = 30 * time.Second
	serverWriteTimeout = 30 * time.Second
	serverIdleTimeout  = 60 * time.Second
)

func main() {
	log.SetOutput(os.Stdout)

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("failed to load configuration")
	}
	setLogLevel(cfg.LogLevel)

	application, err := app.New(cfg)
	if err != nil {
		log.WithError(err).Fatal("failed to initialize application")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	server := startHealthServer(cfg, application)

	if err := application.Run(ctx); err != nil {
		log.WithError(err).Error("application exited with error")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), serverReadTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("failed to shutdown health server")
	}
}

func startHealthServer(cfg *config.Config, application *app.App) *http.Server {
	mux := http.NewServeMux()
	httpHandler := handler.NewHTTPHandler(
		application.Orchestrator(),
		application.Plex(),
		application.Store(),
		application.Buffer(),
	)
	httpHandler.RegisterRoutes(mux)

	server := &http.Server{
		Addr:         cfg.ServerPort,
		Handler:      mux,
		ReadTimeout:  serverReadTimeout,
		WriteTimeout: serverWriteTimeout,
		IdleTimeout:  serverIdleTimeout,
	}

	go func() {
		log.WithField("address", server.Addr).Info("starting health server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("health server failed")
		}
	}()

	return server
}

func setLogLevel(level string) {
	parsed, err := log.ParseLevel(level)
	if err != nil {
		log.WithField("level", level).Warn("unknown log level, using info")
		parsed = log.InfoLevel
	}
	log.SetLevel(parsed)
}
