// Package main is the entry point for the transition scheduler CLI.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/notesync/transition-core/internal/config"
	"github.com/notesync/transition-core/internal/eventbus"
	"github.com/notesync/transition-core/internal/repository"
	"github.com/notesync/transition-core/internal/transition"
	"github.com/notesync/transition-core/pkg/logger"
)

const (
	serviceName    = "transition-scheduler"
	serviceVersion = "1.0.0"
)

// dateArgLayouts are tried in order against a startDate/endDate argument
// before falling back to a raw UTC-microsecond integer.
var dateArgLayouts = []string{
	time.RFC3339,
	"2006-01-02",
	"2006-01-02T15:04:05",
}

// parseDateArg accepts an ISO-8601 (or otherwise date-parseable) string,
// or a raw UTC-microsecond integer, and returns UTC microseconds.
func parseDateArg(arg string) (int64, error) {
	for _, layout := range dateArgLayouts {
		if t, err := time.Parse(layout, arg); err == nil {
			return t.UTC().UnixMicro(), nil
		}
	}
	micros, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("not ISO-8601 and not a UTC-microsecond integer: %w", err)
	}
	return micros, nil
}

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "scheduler <startDate> <endDate> [forceRun]",
		Short: "Trigger revision and item transitions for a window of users",
		Long:  "Enumerates users created in [startDate, endDate] (each an ISO-8601 date or date-time, or a UTC microsecond timestamp) and requests a transition for each candidate (user, transitionType) pair.",
		Args:  cobra.RangeArgs(2, 3),
		RunE:  runScheduler(&configPath),
	}
	rootCmd.Flags().StringVar(&configPath, "config", "", "path to a YAML configuration file")

	if err := rootCmd.Execute(); err != nil {
		slog.Error("scheduler run failed", "error", err)
		os.Exit(1)
	}
}

func runScheduler(configPath *string) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		startDate, err := parseDateArg(args[0])
		if err != nil {
			return fmt.Errorf("invalid startDate %q: %w", args[0], err)
		}
		endDate, err := parseDateArg(args[1])
		if err != nil {
			return fmt.Errorf("invalid endDate %q: %w", args[1], err)
		}
		forceRun := false
		if len(args) == 3 {
			forceRun, err = strconv.ParseBool(args[2])
			if err != nil {
				return fmt.Errorf("invalid forceRun %q: %w", args[2], err)
			}
		}

		cfg, err := config.Load(*configPath)
		if err != nil {
			return fmt.Errorf("load configuration: %w", err)
		}

		log := logger.NewLogger(logger.Config{
			Level:  cfg.Log.Level,
			Format: cfg.Log.Format,
			Output: cfg.Log.Output,
		})
		slog.SetDefault(log)

		log.Info("starting scheduler run",
			"service", serviceName, "version", serviceVersion,
			"start_date", startDate, "end_date", endDate, "force_run", forceRun)

		ctx := cmd.Context()

		primaryPool, err := pgxpool.New(ctx, cfg.Primary.URLOrDefault())
		if err != nil {
			return fmt.Errorf("connect to primary store: %w", err)
		}
		defer primaryPool.Close()

		redisClient := redis.NewClient(&redis.Options{
			Addr:         cfg.Redis.Addr,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			PoolSize:     cfg.Redis.PoolSize,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
			MaxRetries:   cfg.Redis.MaxRetries,
		})
		defer redisClient.Close()

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			return fmt.Errorf("connect to redis: %w", err)
		}

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

		users := repository.NewPostgresUserRepository(primaryPool, log)
		status := repository.NewPostgresTransitionStatusRepository(primaryPool, log)

		scheduler := transition.NewScheduler(users, status, publisher, redisClient, log)

		report, err := scheduler.Run(ctx, startDate, endDate, forceRun)
		if err != nil {
			return fmt.Errorf("scheduler run: %w", err)
		}

		log.Info("scheduler run complete",
			"users_seen", report.UsersSeen, "transitions_triggered", report.TransitionsTriggered)
		return nil
	}
}
