package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/edgeee/chat-backend/api"
	"github.com/edgeee/chat-backend/api/validator"
	"github.com/edgeee/chat-backend/postgres"
	"github.com/edgeee/chat-backend/redis"
	"github.com/edgeee/chat-backend/ws"
)

type config struct {
	Addr        string `envconfig:"ADDR" default:":8080"`
	PostgresDSN string `envconfig:"POSTGRES_DSN" required:"true"`
	RedisAddr   string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "chatd: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// A local .env is optional; real deployments set the environment.
	_ = godotenv.Load()

	var cfg config
	if err := envconfig.Process("chatd", &cfg); err != nil {
		return fmt.Errorf("process config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pg, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	cache, err := redis.Connect(ctx, cfg.RedisAddr)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}

	// The relay is constructed here and handed to the websocket handler, so
	// construction order is enforced by this composition root rather than a
	// lazily checked global.
	relay := &ws.Relay{
		Logger:   logger,
		Registry: ws.NewRegistry(),
	}

	mux := http.NewServeMux()
	mux.Handle("/ws", &ws.Handler{
		Logger: logger,
		Relay:  relay,
	})
	mux.Handle("/", &api.API{
		Logger: logger,
		DB:     pg,
		Cache:  cache,
		Val:    validator.New(),
	})

	srv := &http.Server{
		Addr:    cfg.Addr,
		Handler: mux,
	}

	errs := make(chan error, 1)
	go func() {
		logger.Info("Listening", "addr", cfg.Addr)
		errs <- srv.ListenAndServe()
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errs:
		return fmt.Errorf("serve: %w", err)
	case s := <-sig:
		logger.Info("Shutting down", "signal", s.String())
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
