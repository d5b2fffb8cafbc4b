package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"loadcheck/internal/datastore"
	"loadcheck/internal/logging"
	"loadcheck/internal/retry"
)

const (
	defaultBatchSize              = 1000
	defaultMaxConsecutiveFailures = 5
	defaultBatchPause             = 300 * time.Millisecond
	defaultFailurePause           = 5 * time.Second
	defaultProgressEvery          = 10
)

// State is the position of a dataset's update loop.
type State int

const (
	// StatePending means more batches may remain.
	StatePending State = iota
	// StateDone means the RPC reported no remaining rows.
	StateDone
	// StateAborted means the circuit breaker tripped; the dataset is partially reconciled.
	StateAborted
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateDone:
		return "done"
	case StateAborted:
		return "partial"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// UpdateResult summarizes one dataset's update loop.
type UpdateResult struct {
	Dataset   int
	DatasetID string
	State     State
	// Rows is the total reported by successful batches.
	Rows int
	// Batches counts successful calls, including the final zero-row call.
	Batches int
	// Calls counts every RPC request, retries included.
	Calls    int
	Failures int
	Elapsed  time.Duration
	// Err is the last failure seen, if any.
	Err error
}

// UpdateReport aggregates update mode over all datasets.
type UpdateReport struct {
	Results []UpdateResult
	// Skipped lists datasets without a remote identifier.
	Skipped []int
}

// Partial returns datasets that stopped on the circuit breaker.
func (r UpdateReport) Partial() []UpdateResult {
	var out []UpdateResult
	for _, res := range r.Results {
		if res.State == StateAborted {
			out = append(out, res)
		}
	}
	return out
}

// UpdaterOptions configures an Updater. Non-positive counts and negative
// pauses take defaults.
type UpdaterOptions struct {
	BatchSize              int
	MaxConsecutiveFailures int
	BatchPause             time.Duration
	FailurePause           time.Duration
	ProgressEvery          int
	Policy                 retry.Policy
	Logger                 *slog.Logger
	// Sleep waits between batches; tests replace it.
	Sleep func(ctx context.Context, d time.Duration) error
	Now   func() time.Time
}

// Updater drives the batched validation RPC.
type Updater struct {
	store Store
	opts  UpdaterOptions
	log   *slog.Logger
}

// NewUpdater builds an updater over store.
func NewUpdater(store Store, opts UpdaterOptions) *Updater {
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultBatchSize
	}
	if opts.MaxConsecutiveFailures <= 0 {
		opts.MaxConsecutiveFailures = defaultMaxConsecutiveFailures
	}
	if opts.BatchPause < 0 {
		opts.BatchPause = defaultBatchPause
	}
	if opts.FailurePause < 0 {
		opts.FailurePause = defaultFailurePause
	}
	if opts.ProgressEvery <= 0 {
		opts.ProgressEvery = defaultProgressEvery
	}
	if opts.Policy.Attempts == 0 {
		opts.Policy = retry.Default()
	}
	if opts.Sleep == nil {
		opts.Sleep = sleepContext
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Updater{store: store, opts: opts, log: logging.NewComponentLogger(opts.Logger, "update")}
}

// Update reconciles every target in dataset order. A dataset that trips its
// circuit breaker is recorded as partial and the next dataset proceeds. The
// only error returned is datastore.ErrRPCMissing (or ctx cancellation), which
// stops the whole run; results gathered so far are still returned.
func (u *Updater) Update(ctx context.Context, ids map[int]string, targets []Target) (UpdateReport, error) {
	var report UpdateReport
	for _, target := range sortedTargets(targets) {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		id, ok := ids[target.Dataset]
		if !ok || id == "" {
			logging.WarnWithContext(u.log, "dataset has no remote identifier", "dataset_unmapped",
				logging.Dataset(target.Dataset),
				logging.String(logging.FieldErrorHint, "create the dataset row remotely or check dataset_number"),
				logging.String(logging.FieldImpact, "dataset skipped for update"),
			)
			report.Skipped = append(report.Skipped, target.Dataset)
			continue
		}

		result, err := u.UpdateDataset(ctx, id, target)
		report.Results = append(report.Results, result)
		if err != nil {
			return report, err
		}
	}
	return report, nil
}

// UpdateDataset runs the loop for one dataset until it is done or aborted.
func (u *Updater) UpdateDataset(ctx context.Context, datasetID string, target Target) (UpdateResult, error) {
	result := UpdateResult{Dataset: target.Dataset, DatasetID: datasetID, State: StatePending}
	logger := u.log.With(logging.Dataset(target.Dataset))
	sampler := logging.NewProgressSampler(u.opts.ProgressEvery)
	start := u.opts.Now()
	consecutive := 0

	policy := u.opts.Policy
	policy.OnRetry = func(n int, err error) {
		logger.Debug("batch call retry", logging.Int("attempt", n+1), logging.Error(err))
	}

	logger.Info("update started",
		logging.String("dataset_id", datasetID),
		logging.Int("local_documents", target.Documents),
		logging.Int("batch_size", u.opts.BatchSize),
	)

	for result.State == StatePending {
		rows, err := retry.Value(ctx, policy, func(ctx context.Context) (int, error) {
			result.Calls++
			return u.store.MarkValidated(ctx, datasetID, u.opts.BatchSize)
		})
		result.Elapsed = u.opts.Now().Sub(start)

		if err != nil {
			if errors.Is(err, datastore.ErrRPCMissing) {
				result.Err = err
				logging.ErrorWithContext(logger, "validation rpc is not installed", "rpc_missing",
					logging.Error(err),
					logging.String(logging.FieldErrorHint, "deploy the mark_dat_validated function on the datastore"),
				)
				return result, err
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				result.Err = ctxErr
				return result, ctxErr
			}
			consecutive++
			result.Failures++
			result.Err = err
			logging.WarnWithContext(logger, "batch failed", "batch_failed",
				logging.Int("consecutive_failures", consecutive),
				logging.Int("max_consecutive_failures", u.opts.MaxConsecutiveFailures),
				logging.Error(err),
				logging.String(logging.FieldImpact, "batch will be retried"),
			)
			if consecutive >= u.opts.MaxConsecutiveFailures {
				result.State = StateAborted
				break
			}
			if err := u.opts.Sleep(ctx, u.opts.FailurePause); err != nil {
				result.Err = err
				return result, err
			}
			continue
		}

		consecutive = 0
		result.Batches++
		if rows == 0 {
			result.State = StateDone
			break
		}
		result.Rows += rows
		done := target.Documents > 0 && result.Rows >= target.Documents
		if sampler.ShouldLog(result.Batches, done) {
			logProgress(logger, result, target.Documents)
		}
		if err := u.opts.Sleep(ctx, u.opts.BatchPause); err != nil {
			result.Err = err
			return result, err
		}
	}

	if result.State == StateAborted {
		logging.WarnWithContext(logger, "update halted after consecutive failures", "update_partial",
			logging.Int("rows_updated", result.Rows),
			logging.Int("failures", result.Failures),
			logging.String(logging.FieldErrorHint, "rerun --update later; the RPC resumes where it stopped"),
			logging.String(logging.FieldImpact, "dataset partially reconciled"),
		)
		return result, nil
	}
	logger.Info("update complete",
		logging.Int("rows_updated", result.Rows),
		logging.Int("batches", result.Batches),
		logging.Duration("elapsed", result.Elapsed.Round(time.Second)),
	)
	return result, nil
}

func logProgress(logger *slog.Logger, result UpdateResult, local int) {
	attrs := []logging.Attr{
		logging.Int("rows_updated", result.Rows),
		logging.Int("batches", result.Batches),
	}
	if seconds := result.Elapsed.Seconds(); seconds > 0 {
		rate := float64(result.Rows) / seconds
		attrs = append(attrs, logging.String("rate", fmt.Sprintf("%.0f rows/s", rate)))
		if remaining := local - result.Rows; remaining > 0 && rate > 0 {
			eta := time.Duration(float64(remaining) / rate * float64(time.Second))
			attrs = append(attrs, logging.Duration("eta", eta.Round(time.Second)))
		}
	}
	if local > 0 {
		attrs = append(attrs, logging.String("progress", fmt.Sprintf("%.1f%%", 100*float64(result.Rows)/float64(local))))
	}
	logger.Info("update progress", logging.Args(attrs...)...)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
