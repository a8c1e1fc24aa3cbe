package transition

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/notesync/transition-core/internal/domain"
	"github.com/notesync/transition-core/internal/eventbus"
	"github.com/notesync/transition-core/internal/repository"
	"github.com/notesync/transition-core/internal/resilience"
)

// replicationLagSleep is the explicit cooperative pause used twice in
// the migration sequence to tolerate eventual-consistency replication
// on the primary store. Do not elide it for performance (§9).
const replicationLagSleep = 2 * time.Second

// Config tunes the per-user migrator's paging and keep-alive cadence.
type Config struct {
	RevisionPageSize     int
	ReplicationLagSleep  time.Duration
	KeepAliveStepPercent int
}

func (c Config) pageSize() int {
	if c.RevisionPageSize <= 0 {
		return 100
	}
	return c.RevisionPageSize
}

func (c Config) replicationSleep() time.Duration {
	if c.ReplicationLagSleep <= 0 {
		return replicationLagSleep
	}
	return c.ReplicationLagSleep
}

func (c Config) keepAliveStep() int {
	if c.KeepAliveStepPercent <= 0 {
		return 10
	}
	return c.KeepAliveStepPercent
}

// storeRetryPolicy retries transient store failures (network blips,
// timeouts) on the read/cleanup paths against the primary/secondary
// stores, per §7. Configuration and integrity-mismatch errors are
// never retried (resilience.DefaultErrorChecker).
func storeRetryPolicy(logger *slog.Logger) *resilience.RetryPolicy {
	policy := resilience.DefaultRetryPolicy()
	policy.ErrorChecker = &resilience.DefaultErrorChecker{}
	policy.Logger = logger
	return policy
}

// Migrator runs the per-user migration state machine described in §4.2:
// NotStarted -> InProgress -> (Verified | Failed), with Failed
// re-entrant on the next attempt.
//
// This implementation:
//   - pages secondary revisions into primary, resuming from the
//     durably persisted pagingProgress cursor
//   - re-publishes InProgress at keep-alive boundaries so monitoring
//     can detect a stalled migration
//   - runs the integrity verifier after paging completes
//   - empties the secondary store once integrity passes
//
// All state lives in the status store; Migrator itself holds no
// per-user mutable state, so concurrent migrations for different
// users on the same Migrator value are safe. The scheduler driver is
// responsible for not running two migrations for the same user
// concurrently (§5).
type Migrator struct {
	primary   repository.RevisionRepository
	secondary repository.RevisionRepository
	status    StatusStore
	publisher eventbus.Publisher
	verifier  *Verifier
	cfg       Config
	logger    *slog.Logger
	metrics   *Metrics
}

// NewMigrator constructs a Migrator. primary and secondary must be
// configured; a nil status store or nil secondary causes Run to fail
// immediately with a configuration error (§4.2 entry preconditions).
func NewMigrator(primary, secondary repository.RevisionRepository, status StatusStore, publisher eventbus.Publisher, cfg Config, logger *slog.Logger) *Migrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Migrator{
		primary:   primary,
		secondary: secondary,
		status:    status,
		publisher: publisher,
		verifier:  NewVerifier(primary, secondary, status, cfg, logger),
		cfg:       cfg,
		logger:    logger,
		metrics:   defaultMetrics,
	}
}

// Run drives one migration attempt for (userID, transitionType) to
// completion: InProgress, paging, replication wait, integrity check,
// secondary cleanup, and a terminal Verified or Failed publish.
func (m *Migrator) Run(ctx context.Context, userID uuid.UUID, transitionType domain.TransitionType) error {
	if m.secondary == nil || m.status == nil {
		return fmt.Errorf("%w: migrator requires a configured secondary repository and status store", resilience.ErrConfiguration)
	}

	logger := m.logger.With("user_id", userID, "transition_type", transitionType)
	emit := newEmitter(m.publisher)

	secondaryCount, err := resilience.WithRetryFunc(ctx, storeRetryPolicy(logger), func() (int, error) {
		return m.secondary.CountByUserID(ctx, userID)
	})
	if err != nil {
		return fmt.Errorf("count secondary revisions for user %s: %w", userID, err)
	}

	// Short-circuit: nothing to migrate, either already migrated and
	// cleaned, or there was never anything to move.
	if secondaryCount == 0 {
		logger.Info("secondary store empty, publishing Verified without touching primary")
		return m.publishTerminal(ctx, emit, userID, transitionType, domain.TransitionStateVerified)
	}

	m.metrics.MigrationsInFlight.Inc()
	defer m.metrics.MigrationsInFlight.Dec()
	start := time.Now()

	if err := m.publishStatus(ctx, emit, userID, transitionType, domain.TransitionStateInProgress); err != nil {
		logger.Warn("failed to publish InProgress", "error", err)
	}

	if err := m.runPaging(ctx, logger, userID, transitionType, secondaryCount); err != nil {
		m.metrics.MigrationsTotal.WithLabelValues(string(transitionType), "failed").Inc()
		m.metrics.MigrationDuration.WithLabelValues(string(transitionType), "failed").Observe(time.Since(start).Seconds())
		if pubErr := m.publishTerminal(ctx, emit, userID, transitionType, domain.TransitionStateFailed); pubErr != nil {
			logger.Error("failed to publish Failed status after paging error", "error", pubErr)
		}
		return fmt.Errorf("migration failed for user %s: %w", userID, err)
	}

	time.Sleep(m.cfg.replicationSleep())

	if err := m.verifier.Verify(ctx, userID, transitionType); err != nil {
		logger.Warn("integrity verification failed, resetting progress", "error", err)
		// Reset both counters to 1 before marking Failed; preserve this
		// ordering even across a crash between the two writes (§9).
		if resetErr := m.status.SetPagingProgress(ctx, userID, transitionType, domain.DefaultPagingProgress); resetErr != nil {
			logger.Error("failed to reset paging progress after integrity failure", "error", resetErr)
		}
		if resetErr := m.status.SetIntegrityProgress(ctx, userID, transitionType, domain.DefaultIntegrityProgress); resetErr != nil {
			logger.Error("failed to reset integrity progress after integrity failure", "error", resetErr)
		}
		m.metrics.IntegrityFailures.Inc()
		m.metrics.MigrationsTotal.WithLabelValues(string(transitionType), "failed").Inc()
		m.metrics.MigrationDuration.WithLabelValues(string(transitionType), "failed").Observe(time.Since(start).Seconds())
		if pubErr := m.publishTerminal(ctx, emit, userID, transitionType, domain.TransitionStateFailed); pubErr != nil {
			logger.Error("failed to publish Failed status after integrity failure", "error", pubErr)
		}
		return fmt.Errorf("integrity verification failed for user %s: %w", userID, err)
	}

	// Cleanup: empty the secondary store. A cleanup failure is logged
	// but the migration is still marked Failed per source behavior —
	// the revisions have already been validated in primary at this
	// point, which is arguably a false negative (open question, §9).
	if err := resilience.WithRetry(ctx, storeRetryPolicy(logger), func() error {
		return m.secondary.RemoveByUserID(ctx, userID)
	}); err != nil {
		logger.Error("failed to clean up secondary store after successful integrity check", "error", err)
		m.metrics.MigrationsTotal.WithLabelValues(string(transitionType), "failed").Inc()
		m.metrics.MigrationDuration.WithLabelValues(string(transitionType), "failed").Observe(time.Since(start).Seconds())
		if pubErr := m.publishTerminal(ctx, emit, userID, transitionType, domain.TransitionStateFailed); pubErr != nil {
			logger.Error("failed to publish Failed status after cleanup error", "error", pubErr)
		}
		return fmt.Errorf("cleanup failed for user %s: %w", userID, err)
	}

	elapsed := time.Since(start)
	logger.Info("migration verified", "elapsed", elapsed)
	m.metrics.MigrationsTotal.WithLabelValues(string(transitionType), "verified").Inc()
	m.metrics.MigrationDuration.WithLabelValues(string(transitionType), "verified").Observe(elapsed.Seconds())

	return m.publishTerminal(ctx, emit, userID, transitionType, domain.TransitionStateVerified)
}

// runPaging executes §4.2 step 3: pages secondary revisions from the
// persisted pagingProgress cursor through totalPages, applying the
// per-revision conflict rule and re-publishing InProgress at keep-alive
// boundaries.
func (m *Migrator) runPaging(ctx context.Context, logger *slog.Logger, userID uuid.UUID, transitionType domain.TransitionType, secondaryCount int) error {
	pageSize := m.cfg.pageSize()
	totalPages := int(math.Ceil(float64(secondaryCount) / float64(pageSize)))

	startPage, err := m.status.GetPagingProgress(ctx, userID, transitionType)
	if err != nil {
		return fmt.Errorf("read paging progress: %w", err)
	}

	keepAliveStep := m.cfg.keepAliveStep()
	nextKeepAlive := keepAliveStep

	for page := startPage; page <= totalPages; page++ {
		percent := int(float64(page) / float64(totalPages) * 100)
		if percent >= nextKeepAlive {
			emit := newEmitter(m.publisher)
			if err := m.publishStatus(ctx, emit, userID, transitionType, domain.TransitionStateInProgress); err != nil {
				logger.Warn("failed to publish keep-alive InProgress", "error", err, "page", page)
			}
			for nextKeepAlive <= percent {
				nextKeepAlive += keepAliveStep
			}
		}

		// Persist pagingProgress before fetching so a crash resumes at
		// this page (§4.2 step 3, §9 ordering note).
		if err := m.status.SetPagingProgress(ctx, userID, transitionType, page); err != nil {
			return fmt.Errorf("persist paging progress at page %d: %w", page, err)
		}

		offset := (page - 1) * pageSize
		revisions, err := resilience.WithRetryFunc(ctx, storeRetryPolicy(logger), func() ([]domain.Revision, error) {
			return m.secondary.FindByUserID(ctx, userID, offset, pageSize)
		})
		if err != nil {
			return fmt.Errorf("fetch secondary page %d: %w", page, err)
		}

		for _, rev := range revisions {
			if err := m.applyRevision(ctx, userID, rev); err != nil {
				// Per-revision exceptions are logged and swallowed; the
				// loop continues (§4.2 step 3).
				logger.Warn("error applying revision, skipping", "revision_id", rev.RevisionID, "error", err)
			}
		}
	}

	return nil
}

// applyRevision implements the per-revision conflict rule in §4.2 step 3.
func (m *Migrator) applyRevision(ctx context.Context, userID uuid.UUID, rev domain.Revision) error {
	existing, err := m.primary.FindOneByUUID(ctx, rev.RevisionID, userID)
	if err != nil {
		return fmt.Errorf("look up revision %s in primary: %w", rev.RevisionID, err)
	}

	if existing == nil {
		if _, err := m.primary.Insert(ctx, rev); err != nil {
			return fmt.Errorf("insert revision %s into primary: %w", rev.RevisionID, err)
		}
		return nil
	}

	if existing.UpdatedAt > rev.UpdatedAt {
		// Primary is newer; skip.
		return nil
	}

	if existing.Identical(rev) {
		return nil
	}

	// Conflicting, non-identical copies: secondary is authoritative.
	// Delete primary's copy, allow replication to settle, then insert
	// the secondary copy.
	if err := m.primary.RemoveOneByUUID(ctx, rev.RevisionID, userID); err != nil {
		return fmt.Errorf("delete stale primary copy of revision %s: %w", rev.RevisionID, err)
	}
	time.Sleep(m.cfg.replicationSleep())
	if _, err := m.primary.Insert(ctx, rev); err != nil {
		return fmt.Errorf("insert revision %s into primary after conflict: %w", rev.RevisionID, err)
	}
	return nil
}

func (m *Migrator) publishStatus(ctx context.Context, emit *emitter, userID uuid.UUID, transitionType domain.TransitionType, state domain.TransitionState) error {
	if err := m.status.SetStatus(ctx, userID, transitionType, state); err != nil {
		return err
	}
	return emit.statusUpdated(ctx, StatusUpdatedEvent{
		UserID:              userID,
		Status:              state,
		TransitionType:      transitionType,
		TransitionTimestamp: time.Now().UTC().UnixMicro(),
	})
}

// publishTerminal publishes a Verified or Failed status, which ends the
// current attempt.
func (m *Migrator) publishTerminal(ctx context.Context, emit *emitter, userID uuid.UUID, transitionType domain.TransitionType, state domain.TransitionState) error {
	return m.publishStatus(ctx, emit, userID, transitionType, state)
}
