package main

import (
	"context"
	"log/slog"

	"loadcheck/internal/audit"
	"loadcheck/internal/dataset"
	"loadcheck/internal/logging"
	"loadcheck/internal/reconcile"
)

// recorder writes run results to the audit database. Write failures are
// logged and never fail the run.
type recorder struct {
	store  *audit.Store
	runID  string
	logger *slog.Logger
}

func (r *recorder) dataset(ctx context.Context, outcome dataset.Outcome) {
	result := audit.DatasetResult{
		Dataset:       outcome.Spec.Number,
		Pages:         outcome.Report.Pages,
		Documents:     outcome.Report.Documents,
		Records:       outcome.Report.Records,
		ParseErrors:   outcome.Report.ParseErrors,
		Valid:         outcome.OK() && outcome.Validation.Valid,
		OPTSHA256:     outcome.OPT.SHA256,
		DATSHA256:     outcome.DAT.SHA256,
		Discrepancies: outcome.Validation.Discrepancies,
	}
	if outcome.Err != nil {
		result.Error = outcome.Err.Error()
	}
	r.check(outcome.Spec.Number, r.store.RecordDataset(ctx, r.runID, result))
}

func (r *recorder) verify(ctx context.Context, rep reconcile.VerifyReport) {
	for _, row := range rep.Rows {
		remote := row.Remote
		result := audit.ReconcileResult{
			Dataset:   row.Dataset,
			Mode:      audit.ReconcileVerify,
			DatasetID: row.DatasetID,
			Remote:    &remote,
			Local:     row.Local,
			State:     "match",
		}
		if !row.Match() {
			result.State = "mismatch"
		}
		for _, check := range row.SpotChecks {
			result.SpotMismatches += len(check.Mismatches)
		}
		if row.SpotErr != nil {
			result.Error = row.SpotErr.Error()
		}
		r.check(row.Dataset, r.store.RecordReconcile(ctx, r.runID, result))
	}
	for _, ds := range rep.Skipped {
		r.check(ds, r.store.RecordReconcile(ctx, r.runID, audit.ReconcileResult{
			Dataset: ds,
			Mode:    audit.ReconcileVerify,
			State:   "skipped",
		}))
	}
	for _, failure := range rep.Failed {
		r.check(failure.Dataset, r.store.RecordReconcile(ctx, r.runID, audit.ReconcileResult{
			Dataset: failure.Dataset,
			Mode:    audit.ReconcileVerify,
			State:   "failed",
			Error:   failure.Err.Error(),
		}))
	}
}

func (r *recorder) update(ctx context.Context, rep reconcile.UpdateReport, local map[int]int) {
	for _, res := range rep.Results {
		result := audit.ReconcileResult{
			Dataset:   res.Dataset,
			Mode:      audit.ReconcileUpdate,
			DatasetID: res.DatasetID,
			Local:     local[res.Dataset],
			State:     res.State.String(),
			Rows:      res.Rows,
			Calls:     res.Calls,
			Failures:  res.Failures,
		}
		if res.Err != nil {
			result.Error = res.Err.Error()
		}
		r.check(res.Dataset, r.store.RecordReconcile(ctx, r.runID, result))
	}
	for _, ds := range rep.Skipped {
		r.check(ds, r.store.RecordReconcile(ctx, r.runID, audit.ReconcileResult{
			Dataset: ds,
			Mode:    audit.ReconcileUpdate,
			Local:   local[ds],
			State:   "skipped",
		}))
	}
}

func (r *recorder) check(ds int, err error) {
	if err == nil {
		return
	}
	logging.WarnWithContext(r.logger, "audit write failed", "audit_write_failed",
		logging.Dataset(ds),
		logging.Error(err),
		logging.String(logging.FieldImpact, "result missing from the audit database"),
	)
}
