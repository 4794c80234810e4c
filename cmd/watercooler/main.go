package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/boyl/lighteddjango/internal/config"
	"github.com/boyl/lighteddjango/internal/logging"
	"github.com/boyl/lighteddjango/internal/redis"
	"github.com/boyl/lighteddjango/internal/relay"
	"github.com/boyl/lighteddjango/internal/server"
	"github.com/boyl/lighteddjango/internal/signing"
)

const heartbeatInterval = 15 * time.Second

func instanceID() string {
	if hostname, err := os.Hostname(); err == nil && hostname != "" {
		return hostname
	}
	return uuid.NewString()
}

func runGracefulShutdown(cancel context.CancelFunc, srv *server.Server, bridge *redis.Bridge) <-chan struct{} {
	done := make(chan struct{})
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("Shutdown signal received, cleaning up...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}

		bridge.Stop()
		cancel()

		close(done)
	}()

	return done
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}

	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	slog.Info("Relay starting", "port", cfg.Port, "debug", cfg.Debug)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rdb, err := redis.NewClient(ctx, cfg.RedisURL)
	if err != nil {
		slog.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	defer func() { _ = rdb.Close() }()

	clock := clockwork.NewRealClock()
	signer := signing.NewSigner(cfg.SecretKey, clock)
	tokens := signing.NewChannelTokens(signer)
	verifier := signing.NewWebhookVerifier(signer)

	registry := relay.NewRegistry()
	bridge := redis.NewBridge(rdb, registry)
	bridge.Start(ctx)

	router := relay.NewRouter(tokens, registry, bridge, clock)

	instances := redis.NewInstanceRegistry(rdb, instanceID(), heartbeatInterval)
	go instances.Start(ctx)

	srv := server.NewServer(cfg, router, registry, verifier, rdb, instances)

	done := runGracefulShutdown(cancel, srv, bridge)

	slog.Info("Server starting", "port", cfg.Port)
	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}

	<-done
}
