package dataset

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/dustin/go-humanize"

	"loadcheck/internal/concordance"
	"loadcheck/internal/crossval"
	"loadcheck/internal/documents"
	"loadcheck/internal/logging"
	"loadcheck/internal/objectstore"
	"loadcheck/internal/opticon"
	"loadcheck/internal/reconcile"
	"loadcheck/internal/report"
)

// Source provides local copies of remote load files.
type Source interface {
	Ensure(ctx context.Context, key, name string) (objectstore.Entry, error)
}

// Outcome is everything learned about one dataset.
type Outcome struct {
	Spec       Spec
	OPT        objectstore.Entry
	DAT        objectstore.Entry
	Documents  []documents.Document
	Metadata   concordance.File
	Validation crossval.Result
	Rejected   []opticon.Rejection
	Report     report.DatasetReport
	Elapsed    time.Duration
	// Err is set when the dataset could not be processed; it is then excluded
	// from reporting and reconciliation.
	Err error
}

// OK reports whether the dataset was processed.
func (o Outcome) OK() bool {
	return o.Err == nil
}

// Target is the local truth handed to reconciliation.
func (o Outcome) Target() reconcile.Target {
	return reconcile.Target{
		Dataset:    o.Spec.Number,
		Documents:  len(o.Documents),
		PageCounts: documents.PageCountsByFilename(o.Documents),
	}
}

// Processor runs the pipeline for one dataset at a time.
type Processor struct {
	source  Source
	columns crossval.Columns
	logger  *slog.Logger
}

// NewProcessor builds a processor reading files through source.
func NewProcessor(source Source, columns crossval.Columns, logger *slog.Logger) *Processor {
	if columns == (crossval.Columns{}) {
		columns = crossval.DefaultColumns
	}
	return &Processor{source: source, columns: columns, logger: logging.NewComponentLogger(logger, "dataset")}
}

// Process obtains, parses and validates spec. Failures are reported on the
// outcome rather than returned so one dataset cannot stop the others.
func (p *Processor) Process(ctx context.Context, spec Spec) Outcome {
	ctx = logging.WithDataset(ctx, spec.Number)
	logger := logging.WithContext(ctx, p.logger)
	start := time.Now()
	out := Outcome{Spec: spec}

	fail := func(stage string, err error) Outcome {
		out.Err = fmt.Errorf("dataset %d: %s: %w", spec.Number, stage, err)
		out.Elapsed = time.Since(start)
		logging.ErrorWithContext(logger, "dataset failed", "dataset_failed",
			logging.String("stage", stage),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, errorHint(err)),
		)
		return out
	}

	var err error
	if out.OPT, err = p.source.Ensure(ctx, spec.OPTKey(), spec.CacheName(".OPT")); err != nil {
		return fail("fetch opt", err)
	}
	if out.DAT, err = p.source.Ensure(ctx, spec.DATKey(), spec.CacheName(".DAT")); err != nil {
		return fail("fetch dat", err)
	}

	pages, err := parseFile(out.OPT.Path, opticon.Parse)
	if err != nil {
		return fail("parse opt", err)
	}
	out.Rejected = pages.Rejected
	if pages.Errors > 0 {
		attrs := []logging.Attr{
			logging.Int("rejected_lines", pages.Errors),
			logging.String(logging.FieldImpact, "rejected lines are excluded from documents"),
		}
		if len(pages.Rejected) > 0 {
			first := pages.Rejected[0]
			attrs = append(attrs, logging.Int("first_line", first.Line), logging.String("first_reason", first.Reason))
		}
		logging.WarnWithContext(logger, "malformed image index lines skipped", "opt_lines_rejected", attrs...)
	}

	out.Documents = documents.Assemble(pages.Pages, spec.VolumeBase)

	if out.Metadata, err = parseFile(out.DAT.Path, concordance.Parse); err != nil {
		return fail("parse dat", err)
	}

	out.Validation = crossval.Validate(out.Documents, out.Metadata.Records, p.columns)
	out.Report = report.Build(report.Input{
		Dataset:     spec.Number,
		Pages:       len(pages.Pages),
		ParseErrors: pages.Errors,
		Documents:   out.Documents,
		Metadata:    out.Metadata,
		Validation:  out.Validation,
		OPTBytes:    out.OPT.Bytes,
		DATBytes:    out.DAT.Bytes,
	})
	out.Elapsed = time.Since(start)

	attrs := []logging.Attr{
		logging.String("opt_size", humanize.Bytes(uint64(out.OPT.Bytes))),
		logging.String("dat_size", humanize.Bytes(uint64(out.DAT.Bytes))),
		logging.Int("pages", out.Report.Pages),
		logging.Int("documents", out.Report.Documents),
		logging.Int("records", out.Report.Records),
		logging.Bool("valid", out.Validation.Valid),
		logging.Duration("elapsed", out.Elapsed.Round(time.Millisecond)),
	}
	if out.Validation.Valid {
		logger.Info("dataset processed", logging.Args(attrs...)...)
	} else {
		attrs = append(attrs,
			logging.Int("discrepancies", len(out.Validation.Discrepancies)),
			logging.String(logging.FieldImpact, "image index and metadata disagree"),
			logging.String(logging.FieldErrorHint, "inspect with loadcheck audit discrepancies"),
		)
		if len(out.Validation.Discrepancies) > 0 {
			attrs = append(attrs, logging.String("first_discrepancy", out.Validation.Discrepancies[0].String()))
		}
		logging.WarnWithContext(logger, "cross-validation failed", "crossval_mismatch", attrs...)
	}
	return out
}

func parseFile[T any](path string, parse func(io.Reader) (T, error)) (T, error) {
	var zero T
	f, err := os.Open(path)
	if err != nil {
		return zero, err
	}
	defer f.Close()
	return parse(f)
}

func errorHint(err error) string {
	switch {
	case objectstore.IsMissing(err):
		return "check the dataset catalog paths or run without --no-download"
	default:
		return "check storage connectivity and rerun; cached files are reused"
	}
}
