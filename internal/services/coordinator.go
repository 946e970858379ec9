/**
 * @description
 * Batch Coordinator for the sync job.
 * Drives the identifier list through the fetcher and reconciler with a
 * bounded worker pool, isolates per-item failures, and aggregates a run
 * summary that decides the process exit status.
 *
 * @dependencies
 * - backend/internal/keepa
 * - backend/internal/apperrors
 * - github.com/google/uuid: run ids for log correlation
 *
 * @notes
 * - The unit of atomicity is one identifier; one item's failure never aborts
 *   the batch and no item's outcome depends on another's.
 * - Cancellation stops dispatching new work; in-flight reconciliations run to
 *   completion on a detached context so no item is left partially written.
 */

package services

import (
	"context"
	"sync"
	"time"

	"github.com/asinwatch-project/backend/internal/apperrors"
	"github.com/asinwatch-project/backend/internal/keepa"
	"github.com/asinwatch-project/backend/internal/logger"
	"github.com/google/uuid"
)

const (
	// reconcileTimeout bounds a single store transaction so one hung item
	// cannot stall the batch
	reconcileTimeout = 30 * time.Second

	defaultStoreRetryDelay = 2 * time.Second
)

// Fetcher retrieves one normalized snapshot per identifier
type Fetcher interface {
	FetchProduct(ctx context.Context, asin string) (*keepa.Snapshot, error)
}

// SnapshotReconciler merges one snapshot into the store
type SnapshotReconciler interface {
	Reconcile(ctx context.Context, snap *keepa.Snapshot) (uint, error)
}

// FailureDetail records one terminal per-item failure
type FailureDetail struct {
	ASIN    string         `json:"asin"`
	Kind    apperrors.Kind `json:"kind"`
	Message string         `json:"message"`
}

// RunSummary aggregates the outcome of one batch run
type RunSummary struct {
	RunID      string          `json:"run_id"`
	Attempted  int             `json:"attempted"`
	Succeeded  int             `json:"succeeded"`
	Skipped    int             `json:"skipped"`
	Failed     int             `json:"failed"`
	Failures   []FailureDetail `json:"failures"` // capped at MaxFailureDetails
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt time.Time       `json:"finished_at"`
}

// OverallFailed reports whether the run should exit non-zero: only when
// something was attempted and nothing at all succeeded. A mixed run is
// success-with-warnings so transient per-item problems don't block a
// scheduled sync.
func (s *RunSummary) OverallFailed() bool {
	return s.Attempted > 0 && s.Succeeded == 0
}

// Coordinator supervises one batch run
type Coordinator struct {
	Fetcher           Fetcher
	Reconciler        SnapshotReconciler
	Workers           int
	MaxFailureDetails int

	// StoreRetryDelay is the pause before the single batch-level retry of a
	// StoreUnavailable reconcile. Overridable in tests.
	StoreRetryDelay time.Duration

	mu sync.Mutex
}

func NewCoordinator(fetcher Fetcher, reconciler SnapshotReconciler, workers, maxFailureDetails int) *Coordinator {
	if workers < 1 {
		workers = 1
	}
	if maxFailureDetails < 1 {
		maxFailureDetails = 25
	}
	return &Coordinator{
		Fetcher:           fetcher,
		Reconciler:        reconciler,
		Workers:           workers,
		MaxFailureDetails: maxFailureDetails,
		StoreRetryDelay:   defaultStoreRetryDelay,
	}
}

// Run processes the identifier list and returns the aggregated summary.
// ctx cancellation halts dispatch; identifiers never handed to a worker are
// not counted as attempted.
func (c *Coordinator) Run(ctx context.Context, identifiers []string) *RunSummary {
	summary := &RunSummary{
		RunID:     uuid.NewString(),
		StartedAt: time.Now().UTC(),
	}

	logger.Info("🚀 Sync run %s: %d identifiers, %d workers", summary.RunID, len(identifiers), c.Workers)

	jobs := make(chan string)
	var wg sync.WaitGroup

	for i := 0; i < c.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for asin := range jobs {
				c.processOne(ctx, asin, summary)
			}
		}()
	}

dispatch:
	for _, asin := range identifiers {
		if ctx.Err() != nil {
			logger.Error("⚠️ Sync run %s: stop requested, not dispatching remaining identifiers", summary.RunID)
			break
		}
		select {
		case <-ctx.Done():
			logger.Error("⚠️ Sync run %s: stop requested, not dispatching remaining identifiers", summary.RunID)
			break dispatch
		case jobs <- asin:
		}
	}
	close(jobs)
	wg.Wait()

	summary.FinishedAt = time.Now().UTC()
	return summary
}

// processOne runs fetch → reconcile for a single identifier and records the
// outcome. Every error is caught here; nothing escapes to abort the batch.
func (c *Coordinator) processOne(ctx context.Context, asin string, summary *RunSummary) {
	c.recordAttempt(summary)

	snap, err := c.Fetcher.FetchProduct(ctx, asin)
	if err != nil {
		kind := apperrors.KindOf(err)
		if kind == apperrors.KindNotFound {
			c.recordSkip(summary)
			logger.Info("⏭️ %s: unknown upstream, skipped", asin)
			return
		}
		c.recordFailure(summary, asin, kind, err)
		return
	}

	// Reconcile on a detached context: a stop request must not cancel a
	// transaction that is already in flight.
	reconcileCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), reconcileTimeout)
	defer cancel()

	_, err = c.Reconciler.Reconcile(reconcileCtx, snap)
	if err != nil && apperrors.IsKind(err, apperrors.KindStoreUnavailable) {
		// One bounded batch-level retry; the reconciler itself never retries.
		time.Sleep(c.StoreRetryDelay)
		_, err = c.Reconciler.Reconcile(reconcileCtx, snap)
	}
	if err != nil {
		c.recordFailure(summary, asin, apperrors.KindOf(err), err)
		return
	}

	c.recordSuccess(summary)
}

func (c *Coordinator) recordAttempt(summary *RunSummary) {
	c.mu.Lock()
	defer c.mu.Unlock()
	summary.Attempted++
}

func (c *Coordinator) recordSuccess(summary *RunSummary) {
	c.mu.Lock()
	defer c.mu.Unlock()
	summary.Succeeded++
}

func (c *Coordinator) recordSkip(summary *RunSummary) {
	c.mu.Lock()
	defer c.mu.Unlock()
	summary.Skipped++
}

func (c *Coordinator) recordFailure(summary *RunSummary, asin string, kind apperrors.Kind, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	summary.Failed++
	if len(summary.Failures) < c.MaxFailureDetails {
		summary.Failures = append(summary.Failures, FailureDetail{
			ASIN:    asin,
			Kind:    kind,
			Message: err.Error(),
		})
	}
	logger.Error("❌ %s: %v", asin, err)
}
