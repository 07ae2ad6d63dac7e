package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/mcdev12/lotto/go/internal/transport/gateway"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

func setupServer(port string, services *Services) *http.Server {
	mux := http.NewServeMux()

	c := cors.New(cors.Options{
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
			http.MethodPost,
		},
		AllowedOrigins: []string{"*"},
		AllowedHeaders: []string{"*"},
	})

	services.Admin.RegisterRoutes(mux)
	if services.Gateway != nil {
		gateway.NewWebSocketHandler(services.Gateway).RegisterRoutes(mux)
	}
	mux.Handle("/metrics", services.Metrics.Handler())
	setupHealthCheck(mux)

	return &http.Server{
		Addr:        fmt.Sprintf(":%s", port),
		Handler:     h2c.NewHandler(c.Handler(mux), &http2.Server{}),
		ReadTimeout: 10 * time.Second,
		IdleTimeout: 120 * time.Second,
	}
}

func setupHealthCheck(mux *http.ServeMux) {
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			log.Error().Err(err).Msg("failed to write health check response")
		}
	})
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	st, closeStore, err := setupStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	services, err := setupServices(ctx, cfg, st)
	if err != nil {
		return err
	}
	defer services.Publisher.Close()

	if err := services.App.Recover(ctx); err != nil {
		return fmt.Errorf("failed to recover sessions: %w", err)
	}

	// signal-aware context
	runCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if services.Gateway != nil {
		go services.Gateway.Start(runCtx)
	}
	pollerDone := make(chan struct{})
	go func() {
		defer close(pollerDone)
		if services.Poller == nil {
			return
		}
		if err := services.Poller.Run(runCtx); err != nil {
			log.Error().Err(err).Msg("telegram poller failed")
		}
	}()

	server := setupServer(cfg.HTTP.Port, services)
	go func() {
		log.Info().Str("addr", server.Addr).Msg("HTTP server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	<-runCtx.Done()
	log.Info().Msg("received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}
	<-pollerDone
	if err := services.App.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("game engine shutdown failed")
	}

	log.Info().Msg("lotto shutdown complete")
	return nil
}
