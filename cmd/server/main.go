package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/stefankoanton994-hub/dating-video-chat/internal/app"
	"github.com/stefankoanton994-hub/dating-video-chat/internal/matching"
	"github.com/stefankoanton994-hub/dating-video-chat/internal/server"
	"github.com/stefankoanton994-hub/dating-video-chat/internal/signaling"
)

func main() {
	cfg, err := app.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}
	logger := app.NewLogger(cfg.Env)

	// Cancel on SIGINT/SIGTERM
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Matching engine; one instance owns all connection state.
	engine := matching.New(logger, cfg.Cities)

	// Websocket layer on top of it.
	hub := signaling.NewHub(logger, engine, cfg.MessageRate, cfg.MessageBurst)

	router := server.NewRouter(cfg, logger, hub)
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("signaling server listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server crashed", "err", err)
			cancel()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	_ = srv.Shutdown(shutdownCtx)
}
