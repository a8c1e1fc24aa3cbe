// Package lock provides the Redis-backed distributed lock that
// serializes TransitionRequested publication per (userId, transitionType)
// so the scheduler driver never issues a second in-flight request for
// the same key unless forceRun is set (§5 "Concurrency for one user").
package lock

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/notesync/transition-core/internal/domain"
)

// DistributedLock is a single Redis SETNX-based mutual exclusion lock.
type DistributedLock struct {
	redis    *redis.Client
	key      string
	value    string
	ttl      time.Duration
	logger   *slog.Logger
	acquired bool
}

// Config configures lock acquisition/release behavior. Only TTL and
// ValuePrefix are applied; AcquireWithRetry falls back to 3 retries when
// given 0, the retry interval is a fixed 100ms base with jitter, and
// Release uses a fixed 2s timeout. MaxRetries, RetryInterval,
// AcquireTimeout and ReleaseTimeout are not read.
type Config struct {
	TTL            time.Duration
	MaxRetries     int
	RetryInterval  time.Duration
	AcquireTimeout time.Duration
	ReleaseTimeout time.Duration
	ValuePrefix    string
}

func defaultConfig() *Config {
	return &Config{
		TTL:            30 * time.Second,
		MaxRetries:     3,
		RetryInterval:  100 * time.Millisecond,
		AcquireTimeout: 5 * time.Second,
		ReleaseTimeout: 2 * time.Second,
		ValuePrefix:    "transition-lock",
	}
}

// TransitionKey builds the lock key for one (userId, transitionType)
// pair, the unit the scheduler driver serializes on.
func TransitionKey(userID uuid.UUID, transitionType domain.TransitionType) string {
	return fmt.Sprintf("transition-core:lock:%s:%s", userID, transitionType)
}

// NewDistributedLock constructs a lock bound to key. The lock carries a
// random value so only the holder that acquired it can release it.
func NewDistributedLock(client *redis.Client, key string, config *Config, logger *slog.Logger) *DistributedLock {
	if config == nil {
		config = defaultConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &DistributedLock{
		redis:  client,
		key:    key,
		value:  generateLockValue(config.ValuePrefix),
		ttl:    config.TTL,
		logger: logger,
	}
}

func generateLockValue(prefix string) string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("%s_%d", prefix, time.Now().UnixNano())
	}
	return fmt.Sprintf("%s_%s", prefix, hex.EncodeToString(b))
}

// Acquire attempts to acquire the lock with the default retry count.
func (l *DistributedLock) Acquire(ctx context.Context) (bool, error) {
	return l.AcquireWithRetry(ctx, 0)
}

// AcquireWithRetry attempts to acquire the lock, retrying up to
// maxRetries times (0 uses a sensible default of 3) with a jittered
// linear backoff between attempts.
func (l *DistributedLock) AcquireWithRetry(ctx context.Context, maxRetries int) (bool, error) {
	if maxRetries <= 0 {
		maxRetries = 3
	}

	l.logger.Debug("attempting to acquire lock", "key", l.key, "ttl", l.ttl)

	for attempt := 0; attempt <= maxRetries; attempt++ {
		acquireCtx, cancel := context.WithTimeout(ctx, l.ttl)
		result, err := l.redis.SetNX(acquireCtx, l.key, l.value, l.ttl).Result()
		cancel()
		if err != nil {
			l.logger.Error("failed to acquire lock", "key", l.key, "attempt", attempt+1, "error", err)
			if attempt == maxRetries {
				return false, fmt.Errorf("acquire lock %s after %d attempts: %w", l.key, maxRetries+1, err)
			}
			if !sleepOrDone(ctx, l.retryInterval(attempt)) {
				return false, ctx.Err()
			}
			continue
		}

		if result {
			l.acquired = true
			l.logger.Info("lock acquired", "key", l.key, "ttl", l.ttl)
			return true, nil
		}

		l.logger.Debug("lock already held by another holder", "key", l.key, "attempt", attempt+1)
		if attempt == maxRetries {
			return false, nil
		}
		if !sleepOrDone(ctx, l.retryInterval(attempt)) {
			return false, ctx.Err()
		}
	}

	return false, nil
}

// releaseScript atomically deletes the key only if its value still
// matches, so a holder can never release a lock it does not own.
const releaseScript = `
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
else
	return 0
end
`

// Release frees the lock if it is still held by this instance.
func (l *DistributedLock) Release(ctx context.Context) error {
	if !l.acquired {
		l.logger.Warn("attempting to release a lock that was not acquired", "key", l.key)
		return nil
	}

	releaseCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	result, err := l.redis.Eval(releaseCtx, releaseScript, []string{l.key}, l.value).Result()
	if err != nil {
		l.logger.Error("failed to release lock", "key", l.key, "error", err)
		return fmt.Errorf("release lock %s: %w", l.key, err)
	}

	if n, ok := result.(int64); ok && n == 1 {
		l.acquired = false
		l.logger.Info("lock released", "key", l.key)
		return nil
	}

	l.logger.Warn("lock was not released (expired or held by another holder)", "key", l.key)
	return nil
}

// IsAcquired reports whether this instance currently holds the lock.
func (l *DistributedLock) IsAcquired() bool {
	return l.acquired
}

func (l *DistributedLock) retryInterval(attempt int) time.Duration {
	base := 100 * time.Millisecond
	interval := time.Duration(attempt+1) * base
	jitter := time.Duration(float64(interval) * 0.25 * (2*float64(time.Now().UnixNano()%1000)/1000 - 1))
	return interval + jitter
}

func sleepOrDone(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
