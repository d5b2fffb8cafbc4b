package dataset

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"loadcheck/internal/logging"
)

// Pipeline processes a single dataset.
type Pipeline interface {
	Process(ctx context.Context, spec Spec) Outcome
}

// Runner fans datasets out over a bounded worker pool.
type Runner struct {
	pipeline Pipeline
	workers  int
	logger   *slog.Logger
}

// NewRunner builds a runner with at most workers datasets in flight.
func NewRunner(pipeline Pipeline, workers int, logger *slog.Logger) *Runner {
	if workers <= 0 {
		workers = 1
	}
	return &Runner{pipeline: pipeline, workers: workers, logger: logging.NewComponentLogger(logger, "runner")}
}

// Run processes specs and returns outcomes in the order of specs, regardless
// of completion order.
func (r *Runner) Run(ctx context.Context, specs []Spec) []Outcome {
	outcomes := make([]Outcome, len(specs))
	r.logger.Info("processing datasets", logging.Int("datasets", len(specs)), logging.Int("workers", r.workers))

	var group errgroup.Group
	group.SetLimit(r.workers)
	for i, spec := range specs {
		group.Go(func() error {
			if err := ctx.Err(); err != nil {
				outcomes[i] = Outcome{Spec: spec, Err: err}
				return nil
			}
			outcomes[i] = r.pipeline.Process(ctx, spec)
			return nil
		})
	}
	_ = group.Wait()
	return outcomes
}

// Succeeded filters outcomes to those that processed.
func Succeeded(outcomes []Outcome) []Outcome {
	out := make([]Outcome, 0, len(outcomes))
	for _, o := range outcomes {
		if o.OK() {
			out = append(out, o)
		}
	}
	return out
}
