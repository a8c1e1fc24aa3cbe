// Package main is the entry point for the item-sync HTTP server (§6).
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"

	itemsynchandlers "github.com/notesync/transition-core/internal/api/handlers/itemsync"
	"github.com/notesync/transition-core/internal/config"
	"github.com/notesync/transition-core/internal/eventbus"
	"github.com/notesync/transition-core/internal/itemsync"
	"github.com/notesync/transition-core/internal/middleware"
	"github.com/notesync/transition-core/internal/repository"
	"github.com/notesync/transition-core/pkg/logger"
)

const (
	serviceName    = "item-sync-server"
	serviceVersion = "1.0.0"
)

func main() {
	var configPath string
	var showVersion bool
	flag.StringVar(&configPath, "config", "", "path to a YAML configuration file")
	flag.BoolVar(&showVersion, "version", false, "show version information")
	flag.Parse()

	if showVersion {
		fmt.Printf("%s version %s\n", serviceName, serviceVersion)
		os.Exit(0)
	}

	if err := run(configPath); err != nil {
		slog.Error("server exited with error", "error", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	log := logger.NewLogger(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	slog.SetDefault(log)

	log.Info("starting item-sync server", "service", serviceName, "version", serviceVersion)

	ctx := context.Background()

	primaryPool, err := pgxpool.New(ctx, cfg.Primary.URLOrDefault())
	if err != nil {
		return fmt.Errorf("connect to primary store: %w", err)
	}
	defer primaryPool.Close()

	publisher, err := eventbus.NewRedisPublisher(eventbus.Config{
		Addr:            cfg.Redis.Addr,
		Password:        cfg.Redis.Password,
		DB:              cfg.Redis.DB,
		PoolSize:        cfg.Redis.PoolSize,
		DialTimeout:     cfg.Redis.DialTimeout,
		ReadTimeout:     cfg.Redis.ReadTimeout,
		WriteTimeout:    cfg.Redis.WriteTimeout,
		MaxRetries:      cfg.Redis.MaxRetries,
		StreamMaxLength: cfg.Redis.StreamMaxLength,
	}, log)
	if err != nil {
		return fmt.Errorf("create event publisher: %w", err)
	}
	defer publisher.Close()

	items := repository.NewPostgresItemRepository(primaryPool, log)
	updater := itemsync.NewUpdater(items, publisher, log)
	handlers := itemsynchandlers.NewHandlers(items, updater, log)

	mux := http.NewServeMux()
	mux.HandleFunc("/items/sync", handlers.Sync)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	stack := middleware.BuildItemSyncStack(middleware.StackConfig{
		Logger:         log,
		MaxRequestSize: 1 << 20,
		RequestTimeout: cfg.Server.WriteTimeout,
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      stack(mux),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	serveErr := make(chan error, 1)
	go func() {
		log.Info("HTTP server listening", "addr", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErr <- err
		}
	}()

	select {
	case err := <-serveErr:
		return fmt.Errorf("http server failed: %w", err)
	case <-quit:
		log.Info("shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}

	log.Info("server exited")
	return nil
}
