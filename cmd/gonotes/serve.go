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

	"github.com/go-redis/redis/v8"
	"github.com/spf13/cobra"

	"gonotes/internal/config"
	"gonotes/internal/note"
	"gonotes/internal/render"
	"gonotes/internal/server"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the notes web server",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if serveAddr != "" {
			cfg.Addr = serveAddr
		}
		level, _ := cfg.LogLevel()
		setupLogger(level)
		return serve(cmd.Context(), cfg, slog.Default())
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Address to listen on (overrides config and HTTP_ADDR)")
	rootCmd.AddCommand(serveCmd)
}

// openStore builds the configured note backend. The returned func releases
// its resources.
func openStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (note.Store, func(), error) {
	switch cfg.Store.Backend {
	case config.BackendRedis:
		client := redis.NewClient(&redis.Options{Addr: cfg.Store.RedisAddr})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("could not connect to redis (%s): %w", cfg.Store.RedisAddr, err)
		}
		store, err := note.NewRedisStore(ctx, client, cfg.Store.RedisPrefix, cfg.NoteSeed())
		if err != nil {
			_ = client.Close()
			return nil, nil, err
		}
		logger.Info("using redis store", "addr", cfg.Store.RedisAddr, "prefix", cfg.Store.RedisPrefix)
		return store, func() { _ = client.Close() }, nil
	default:
		logger.Info("using in-memory store")
		return note.NewMemoryStore(cfg.NoteSeed()), func() {}, nil
	}
}

func serve(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	if ctx == nil {
		ctx = context.Background()
	}
	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	s := server.New(store, server.WithLogger(logger), server.WithRenderer(render.New(loc)))

	httpServer := &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server is listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-errCh:
		return fmt.Errorf("could not listen: %w", err)
	case sig := <-quit:
		logger.Info("server is shutting down", "signal", sig)
	}

	// Websocket streams are hijacked and invisible to Shutdown.
	s.Hub().Close()

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctxShutdown); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	logger.Info("server stopped")
	return nil
}
