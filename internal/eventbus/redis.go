// Package eventbus publishes the transition engine's and item updater's
// lifecycle events (§4.5, §4.6) on a durable, at-least-once bus.
package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// EventKind names the four event payload shapes this bus carries.
type EventKind string

const (
	KindTransitionRequested          EventKind = "TransitionRequested"
	KindTransitionStatusUpdated      EventKind = "TransitionStatusUpdated"
	KindItemRevisionCreationRequested EventKind = "ItemRevisionCreationRequested"
	KindDuplicateItemSynced          EventKind = "DuplicateItemSynced"
)

// Publisher publishes domain events. Implementations must be
// at-least-once: a handler may see the same event more than once and
// must be idempotent on payload.
type Publisher interface {
	Publish(ctx context.Context, kind EventKind, payload any) error
}

// Config configures the Redis-backed event bus.
type Config struct {
	Addr            string
	Password        string
	DB              int
	PoolSize        int
	DialTimeout     time.Duration
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	MaxRetries      int
	StreamMaxLength int64
}

// RedisPublisher publishes events on a Redis Pub/Sub channel per kind
// and additionally appends them to a capped stream (XADD) so a
// consumer that was briefly disconnected can replay recent history —
// the closest at-least-once approximation available without a
// dedicated broker dependency.
type RedisPublisher struct {
	client *redis.Client
	logger *slog.Logger
	cfg    Config
}

// NewRedisPublisher connects to Redis and verifies the connection with
// a Ping before returning.
func NewRedisPublisher(cfg Config, logger *slog.Logger) (*RedisPublisher, error) {
	if logger == nil {
		logger = slog.Default()
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		MaxRetries:   cfg.MaxRetries,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis event bus at %s: %w", cfg.Addr, err)
	}

	logger.Info("connected to redis event bus", "addr", cfg.Addr, "db", cfg.DB)
	return &RedisPublisher{client: client, logger: logger, cfg: cfg}, nil
}

// Publish marshals payload as JSON, publishes it on the channel named
// after kind, and appends it to the matching capped stream.
func (p *RedisPublisher) Publish(ctx context.Context, kind EventKind, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s event payload: %w", kind, err)
	}

	channel := channelName(kind)
	if err := p.client.Publish(ctx, channel, data).Err(); err != nil {
		p.logger.Error("failed to publish event", "kind", kind, "error", err)
		return fmt.Errorf("publish %s event on channel %s: %w", kind, channel, err)
	}

	maxLen := p.cfg.StreamMaxLength
	if maxLen <= 0 {
		maxLen = 100000
	}
	stream := streamName(kind)
	if err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		MaxLen: maxLen,
		Approx: true,
		Values: map[string]any{"payload": data},
	}).Err(); err != nil {
		// The Pub/Sub publish above already succeeded; a stream append
		// failure only degrades replay of recently missed events, so it
		// is logged rather than surfaced as a publish failure.
		p.logger.Warn("failed to append event to replay stream", "kind", kind, "error", err)
	}

	p.logger.Debug("published event", "kind", kind, "channel", channel)
	return nil
}

// Close releases the underlying Redis client.
func (p *RedisPublisher) Close() error {
	return p.client.Close()
}

func channelName(kind EventKind) string {
	return "transition-core:events:" + string(kind)
}

func streamName(kind EventKind) string {
	return "transition-core:stream:" + string(kind)
}
