package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"loadcheck/internal/audit"
	"loadcheck/internal/config"
	"loadcheck/internal/crossval"
	"loadcheck/internal/dataset"
	"loadcheck/internal/datastore"
	"loadcheck/internal/documents"
	"loadcheck/internal/logging"
	"loadcheck/internal/objectstore"
	"loadcheck/internal/reconcile"
	"loadcheck/internal/report"
	"loadcheck/internal/retry"
)

const discrepancyListLimit = 20

var errNoDatasets = errors.New("no dataset could be processed")

type runOptions struct {
	Dataset    int
	Verify     bool
	Update     bool
	NoDownload bool
}

func (o runOptions) remote() bool {
	return o.Verify || o.Update
}

func runPipeline(cmd *cobra.Command, cctx *commandContext, opts runOptions) error {
	cfg, err := cctx.ensureConfig()
	if err != nil {
		return err
	}
	if opts.remote() {
		if err := cfg.ValidateRemote(); err != nil {
			return err
		}
	}
	specs, err := dataset.Select(dataset.FromConfig(cfg.Datasets), opts.Dataset)
	if err != nil {
		return err
	}

	logger, err := cctx.logger(cfg)
	if err != nil {
		return err
	}

	store, err := audit.Open(cfg.AuditDBPath())
	if err != nil {
		return fmt.Errorf("open audit database: %w", err)
	}
	defer store.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	run, err := store.StartRun(ctx, audit.ModeFor(opts.Verify, opts.Update), opts.Dataset)
	if err != nil {
		return fmt.Errorf("start run: %w", err)
	}
	ctx = logging.WithRunID(ctx, run.ID)
	logger = logging.WithContext(ctx, logger)
	logger.Info("run started",
		logging.String("mode", run.Mode.String()),
		logging.Int("datasets", len(specs)),
		logging.Bool("downloads", !opts.NoDownload),
	)

	r := &runner{
		cfg:      cfg,
		opts:     opts,
		out:      cmd.OutOrStdout(),
		colorize: shouldColorize(cmd.OutOrStdout()),
		logger:   logger,
		recorder: &recorder{store: store, runID: run.ID, logger: logger},
		policy:   retryPolicy(cfg, logger),
	}
	status, runErr := r.execute(ctx, specs)

	// The run record must be closed even when ctx was cancelled.
	errMsg := ""
	if runErr != nil {
		errMsg = runErr.Error()
	}
	if err := store.FinishRun(context.WithoutCancel(ctx), run.ID, status, errMsg); err != nil {
		logging.WarnWithContext(logger, "audit run not finalized", "audit_write_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "run stays marked as running in the audit database"),
		)
	}
	logger.Info("run finished", logging.String("status", string(status)))
	return runErr
}

type runner struct {
	cfg      *config.Config
	opts     runOptions
	out      io.Writer
	colorize bool
	logger   *slog.Logger
	recorder *recorder
	policy   retry.Policy
}

func (r *runner) execute(ctx context.Context, specs []dataset.Spec) (audit.RunStatus, error) {
	fetcher, closeFetcher, err := newFetcher(ctx, r.cfg, r.opts.NoDownload)
	if err != nil {
		return audit.RunFailed, err
	}
	defer func() {
		_ = closeFetcher()
	}()

	cache := objectstore.NewCache(r.cfg.Paths.CacheDir, fetcher, r.policy, r.logger)
	columns := crossval.Columns{Begin: r.cfg.Metadata.BeginColumn, End: r.cfg.Metadata.EndColumn}
	processor := dataset.NewProcessor(cache, columns, r.logger)

	start := time.Now()
	outcomes := dataset.NewRunner(processor, r.cfg.Workers.Datasets, r.logger).Run(ctx, specs)
	fmt.Fprintf(r.out, "\nParsing complete in %.1fs\n", time.Since(start).Seconds())

	for _, outcome := range outcomes {
		r.recorder.dataset(ctx, outcome)
	}

	succeeded := dataset.Succeeded(outcomes)
	if err := r.renderParse(outcomes, succeeded, columns); err != nil {
		return audit.RunFailed, err
	}
	if len(succeeded) == 0 {
		return audit.RunFailed, errNoDatasets
	}

	status := audit.RunCompleted
	if len(succeeded) < len(outcomes) {
		status = audit.RunPartial
	}

	if r.opts.remote() {
		remoteStatus, err := r.reconcile(ctx, newDatastoreClient(r.cfg), succeeded)
		if err != nil {
			return audit.RunFailed, err
		}
		if remoteStatus == audit.RunPartial {
			status = audit.RunPartial
		}
	}

	fmt.Fprintln(r.out, "\nDone.")
	return status, nil
}

func (r *runner) renderParse(outcomes, succeeded []dataset.Outcome, columns crossval.Columns) error {
	for _, outcome := range outcomes {
		if !outcome.OK() {
			fmt.Fprintf(r.out, "  DS%d: skipped (%v)\n", outcome.Spec.Number, outcome.Err)
		}
	}
	if len(succeeded) == 0 {
		return nil
	}

	reports := make([]report.DatasetReport, 0, len(succeeded))
	var docs []documents.Document
	for _, outcome := range succeeded {
		reports = append(reports, outcome.Report)
		docs = append(docs, outcome.Documents...)
	}
	if err := report.Render(r.out, reports, docs, report.Options{Colorize: r.colorize, Columns: columns}); err != nil {
		return fmt.Errorf("render report: %w", err)
	}
	for _, outcome := range succeeded {
		if err := report.RenderDiscrepancies(r.out, outcome.Spec.Number, outcome.Validation.Discrepancies, discrepancyListLimit); err != nil {
			return fmt.Errorf("render discrepancies: %w", err)
		}
	}
	return nil
}

// reconcile runs verify and, when requested, update. Update always follows
// a verify pass so the counts it is about to stamp are on screen first.
// The dataset lookup doubles as the reachability check and goes through the
// retry policy, so it runs only after the local report is out.
func (r *runner) reconcile(ctx context.Context, client *datastore.Client, succeeded []dataset.Outcome) (audit.RunStatus, error) {
	targets := make([]reconcile.Target, 0, len(succeeded))
	for _, outcome := range succeeded {
		targets = append(targets, outcome.Target())
	}
	local := make(map[int]int, len(targets))
	for _, target := range targets {
		local[target.Dataset] = target.Documents
	}

	ids, err := reconcile.LookupIDs(ctx, client, r.policy)
	if err != nil {
		fmt.Fprintf(r.out, "\nDatastore unavailable, remote phase skipped: %v\n", err)
		return audit.RunFailed, fmt.Errorf("datastore unavailable: %w", err)
	}

	status := audit.RunCompleted
	verifier := reconcile.NewVerifier(client, reconcile.VerifierOptions{
		Policy:         r.policy,
		SpotCheckLimit: r.cfg.Verify.SpotCheckLimit,
		Logger:         r.logger,
	})
	verified := verifier.Verify(ctx, ids, targets)
	r.recorder.verify(ctx, verified)
	if err := report.RenderVerify(r.out, verified, report.Options{Colorize: r.colorize}); err != nil {
		return audit.RunFailed, fmt.Errorf("render verification: %w", err)
	}
	if len(verified.Failed) > 0 {
		status = audit.RunPartial
	}

	if !r.opts.Update {
		return status, nil
	}

	updater := reconcile.NewUpdater(client, reconcile.UpdaterOptions{
		BatchSize:              r.cfg.Update.BatchSize,
		MaxConsecutiveFailures: r.cfg.Update.MaxConsecutiveFailures,
		BatchPause:             time.Duration(r.cfg.Update.BatchPauseMillis) * time.Millisecond,
		FailurePause:           time.Duration(r.cfg.Update.FailurePauseMillis) * time.Millisecond,
		ProgressEvery:          r.cfg.Update.ProgressEvery,
		Policy:                 r.policy,
		Logger:                 r.logger,
	})
	updated, updateErr := updater.Update(ctx, ids, targets)
	r.recorder.update(ctx, updated, local)
	if err := report.RenderUpdate(r.out, updated, report.Options{Colorize: r.colorize}); err != nil {
		return audit.RunFailed, fmt.Errorf("render update: %w", err)
	}
	if updateErr != nil {
		if errors.Is(updateErr, datastore.ErrRPCMissing) {
			return audit.RunFailed, fmt.Errorf("update: %w (install the %s function on the datastore)", updateErr, r.cfg.Remote.RPCName)
		}
		return audit.RunFailed, fmt.Errorf("update: %w", updateErr)
	}
	if len(updated.Partial()) > 0 {
		status = audit.RunPartial
	}
	return status, nil
}

func newDatastoreClient(cfg *config.Config) *datastore.Client {
	return datastore.NewClient(datastore.Config{
		BaseURL:        cfg.Remote.URL,
		ServiceKey:     cfg.Remote.ServiceKey,
		RPCName:        cfg.Remote.RPCName,
		RequestTimeout: cfg.RequestTimeout(),
		RPCTimeout:     cfg.RPCTimeout(),
	})
}

// newFetcher returns the configured object store, or a nil fetcher when
// downloads are disabled.
func newFetcher(ctx context.Context, cfg *config.Config, noDownload bool) (objectstore.Fetcher, func() error, error) {
	noop := func() error { return nil }
	if noDownload {
		return nil, noop, nil
	}
	switch cfg.Storage.Backend {
	case config.StorageBackendGCS:
		gcs, err := objectstore.NewGCS(ctx, cfg.Storage.Bucket, cfg.Storage.Endpoint)
		if err != nil {
			return nil, noop, err
		}
		return gcs, gcs.Close, nil
	default:
		if !cfg.RemoteConfigured() {
			return nil, noop, errors.New("storage: the supabase backend needs remote.url and remote.service_key (or run with --no-download)")
		}
		return objectstore.NewSupabase(objectstore.SupabaseConfig{
			BaseURL:    cfg.Remote.URL,
			ServiceKey: cfg.Remote.ServiceKey,
			Bucket:     cfg.Storage.Bucket,
		}), noop, nil
	}
}

func retryPolicy(cfg *config.Config, logger *slog.Logger) retry.Policy {
	policy := retry.New(cfg.Retry.Attempts, retry.Schedule{
		ServerErrorBase: time.Duration(cfg.Retry.ServerErrorBaseMS) * time.Millisecond,
		ServerErrorStep: time.Duration(cfg.Retry.ServerErrorStepMS) * time.Millisecond,
		TimeoutWait:     time.Duration(cfg.Retry.TimeoutWaitMS) * time.Millisecond,
	})
	policy.OnRetry = func(n int, err error) {
		logger.Debug("retrying remote call", logging.Int("attempt", n+1), logging.Error(err))
	}
	return policy
}
