package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"ideaclient/infrastructure/config"
	"ideaclient/infrastructure/observability"
	"ideaclient/interfaces/http/mockapi"
)

func main() {
	configPath := flag.String("config", "", "Path to a YAML config file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Environment, "info")
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}

	api, err := mockapi.NewServer(mockapi.Config{
		JWTSecret:      cfg.MockAPI.JWTSecret,
		TokenTTL:       cfg.MockAPI.TokenTTL,
		AllowedOrigins: cfg.MockAPI.AllowedOrigins,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to create server", zap.Error(err))
	}

	srv := &http.Server{
		Addr:         cfg.MockAPI.Addr,
		Handler:      api.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("Starting mock API",
			zap.String("address", cfg.MockAPI.Addr),
			zap.String("environment", cfg.Environment),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", zap.Error(err))
	}

	_ = logger.Sync()
}
