// Package main runs an in-memory stand-in for the storytelling backend so the
// console can be exercised without the real service.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/storynest/console/internal/mockapi"
	"github.com/storynest/console/internal/telemetry"
)

func main() {
	cfg := mockapi.DefaultConfig()
	var (
		port    int
		origins string
		latency time.Duration
		env     string
	)
	flag.IntVar(&port, "port", 8000, "Port to listen on")
	flag.StringVar(&env, "env", cfg.Env, "Environment name (development or production)")
	flag.StringVar(&origins, "origins", strings.Join(cfg.AllowedOrigins, ","), "Comma-separated CORS origins")
	flag.DurationVar(&latency, "latency", 0, "Artificial delay for story generation and choices")
	flag.StringVar(&cfg.SeedEmail, "email", cfg.SeedEmail, "Email of the seeded parent account")
	flag.StringVar(&cfg.SeedPassword, "password", cfg.SeedPassword, "Password of the seeded parent account")
	flag.Parse()

	cfg.Env = env
	cfg.Latency = latency
	cfg.AllowedOrigins = nil
	for _, origin := range strings.Split(origins, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			cfg.AllowedOrigins = append(cfg.AllowedOrigins, origin)
		}
	}

	logLevel := "info"
	if env == "development" {
		logLevel = "debug"
	}
	logger, err := telemetry.NewLogger(telemetry.Config{Level: logLevel, Encoding: "console", OutputPath: "stdout"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	backend := mockapi.NewServer(cfg, logger)
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      backend.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("Mock backend listening",
			zap.String("addr", srv.Addr),
			zap.String("api", fmt.Sprintf("http://localhost:%d%s", port, mockapi.APIPrefix)),
			zap.String("seed_email", cfg.SeedEmail))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server listen error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down mock backend...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}
}
