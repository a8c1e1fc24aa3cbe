package transition

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"

	"github.com/notesync/transition-core/internal/domain"
	"github.com/notesync/transition-core/internal/eventbus"
	"github.com/notesync/transition-core/internal/lock"
	"github.com/notesync/transition-core/internal/repository"
	"github.com/redis/go-redis/v9"
)

// schedulerUserPageSize is the fixed page size the scheduler driver
// pages users in, per §4.1.
const schedulerUserPageSize = 100

// inFlightCacheSize bounds the scheduler's in-memory cache of
// recently-seen in-flight (userId, transitionType) pairs, avoiding a
// redundant status-store round trip on back-to-back pages of the same
// run.
const inFlightCacheSize = 4096

// forceRunLimiterCacheSize bounds the number of per-user rate limiters
// the scheduler keeps for forced re-runs of an in-progress migration.
const forceRunLimiterCacheSize = 4096

// forceRunRateInterval and forceRunRateBurst cap how often a single
// user's in-progress migration can be forcibly re-triggered, protecting
// the primary store from a thundering herd of forced transitions.
const forceRunRateInterval = time.Minute
const forceRunRateBurst = 1

// Report summarizes one scheduler run for the caller (§4.1 "Reports
// aggregate counts at completion").
type Report struct {
	UsersSeen        int
	TransitionsTriggered int
}

// Scheduler enumerates users created in a time window and requests
// transitions for candidates (§4.1).
type Scheduler struct {
	users     repository.UserRepository
	status    StatusStore
	publisher eventbus.Publisher
	redis     *redis.Client
	lockCfg   *lock.Config
	logger    *slog.Logger
	metrics   *Metrics

	seenInFlight    *lru.Cache[string, struct{}]
	forceRunLimiter *lru.Cache[string, *rate.Limiter]
}

// NewScheduler constructs a Scheduler. redisClient may be nil, in which
// case per-user lock serialization is skipped (suitable for tests using
// a single in-process run).
func NewScheduler(users repository.UserRepository, status StatusStore, publisher eventbus.Publisher, redisClient *redis.Client, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	cache, _ := lru.New[string, struct{}](inFlightCacheSize)
	limiters, _ := lru.New[string, *rate.Limiter](forceRunLimiterCacheSize)
	return &Scheduler{
		users:           users,
		status:          status,
		publisher:       publisher,
		redis:           redisClient,
		logger:          logger,
		metrics:         defaultMetrics,
		seenInFlight:    cache,
		forceRunLimiter: limiters,
	}
}

// allowForceRun reports whether userID's in-progress migration may be
// forcibly re-triggered right now, enforcing at most
// forceRunRateBurst requests per forceRunRateInterval per user.
func (s *Scheduler) allowForceRun(userID string) bool {
	if s.forceRunLimiter == nil {
		return true
	}
	limiter, ok := s.forceRunLimiter.Get(userID)
	if !ok {
		limiter = rate.NewLimiter(rate.Every(forceRunRateInterval), forceRunRateBurst)
		s.forceRunLimiter.Add(userID, limiter)
	}
	return limiter.Allow()
}

// Run pages through users created in [startDate, endDate] (UTC
// microseconds) and requests a transition for each (user, type) pair
// that qualifies, per the trigger rule in §4.1.
func (s *Scheduler) Run(ctx context.Context, startDate, endDate int64, forceRun bool) (Report, error) {
	var report Report

	total, err := s.users.CountAllCreatedBetween(ctx, startDate, endDate)
	if err != nil {
		return report, fmt.Errorf("count users created between %d and %d: %w", startDate, endDate, err)
	}

	for offset := 0; offset < total; offset += schedulerUserPageSize {
		users, err := s.users.FindAllCreatedBetween(ctx, startDate, endDate, offset, schedulerUserPageSize)
		if err != nil {
			return report, fmt.Errorf("fetch users page at offset %d: %w", offset, err)
		}

		for _, user := range users {
			report.UsersSeen++
			s.metrics.SchedulerUsersSeen.Inc()

			for _, transitionType := range domain.AllTransitionTypes() {
				triggered, err := s.evaluateUser(ctx, user, transitionType, forceRun)
				if err != nil {
					s.logger.Warn("failed to evaluate user for transition",
						"user_id", user.UserID, "transition_type", transitionType, "error", err)
					continue
				}
				if triggered {
					report.TransitionsTriggered++
				}
			}
		}
	}

	s.logger.Info("scheduler run complete", "users_seen", report.UsersSeen, "transitions_triggered", report.TransitionsTriggered)
	return report, nil
}

// evaluateUser applies the §4.1 decision rule for one (user,
// transitionType) pair, requesting a transition when it qualifies.
func (s *Scheduler) evaluateUser(ctx context.Context, user domain.User, transitionType domain.TransitionType, forceRun bool) (bool, error) {
	cacheKey := user.UserID.String() + ":" + string(transitionType)
	if s.seenInFlight != nil {
		if _, ok := s.seenInFlight.Get(cacheKey); ok && !forceRun {
			// Already triggered earlier in this run; the status row was
			// just removed and re-requested, so a repeat page sighting
			// of the same user needs no second status-store round trip.
			return false, nil
		}
	}

	status, err := s.status.GetStatus(ctx, user.UserID, transitionType)
	if err != nil {
		return false, fmt.Errorf("get transition status: %w", err)
	}

	qualifies := user.HasRole(domain.RoleTransitionUser) || status == nil || status.Status != domain.TransitionStateVerified
	if !qualifies {
		return false, nil
	}

	forcedRetrigger := status != nil && status.Status == domain.TransitionStateInProgress && forceRun
	shouldTrigger := status == nil || status.Status == domain.TransitionStateFailed || forcedRetrigger
	if !shouldTrigger {
		return false, nil
	}
	if forcedRetrigger && !s.allowForceRun(user.UserID.String()) {
		s.logger.Debug("forced re-run rate limited", "user_id", user.UserID, "transition_type", transitionType)
		return false, nil
	}

	// The scheduler is the serializer for one user (§5): guard the
	// remove-then-request sequence with a distributed lock so two
	// scheduler processes racing on the same (user, type) pair cannot
	// both issue a TransitionRequested for it.
	if s.redis != nil {
		key := lock.TransitionKey(user.UserID, transitionType)
		l := lock.NewDistributedLock(s.redis, key, s.lockCfg, s.logger)
		acquired, err := l.Acquire(ctx)
		if err != nil {
			return false, fmt.Errorf("acquire transition lock: %w", err)
		}
		if !acquired {
			s.logger.Debug("transition already being requested by another scheduler", "user_id", user.UserID, "transition_type", transitionType)
			return false, nil
		}
		defer func() {
			if releaseErr := l.Release(ctx); releaseErr != nil {
				s.logger.Warn("failed to release transition lock", "error", releaseErr)
			}
		}()
	}

	if err := s.status.Remove(ctx, user.UserID, transitionType); err != nil {
		return false, fmt.Errorf("remove transition status to force fresh paging: %w", err)
	}

	emit := newEmitter(s.publisher)
	evt := RequestedEvent{UserID: user.UserID, Type: transitionType, Timestamp: nowMicros()}
	if err := emit.requested(ctx, evt); err != nil {
		return false, fmt.Errorf("publish TransitionRequested: %w", err)
	}

	s.metrics.SchedulerRequested.Inc()
	if s.seenInFlight != nil {
		s.seenInFlight.Add(cacheKey, struct{}{})
	}
	return true, nil
}

func nowMicros() int64 {
	return time.Now().UTC().UnixMicro()
}
