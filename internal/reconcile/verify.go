package reconcile

import (
	"context"
	"log/slog"

	"loadcheck/internal/datastore"
	"loadcheck/internal/logging"
	"loadcheck/internal/retry"
)

const defaultSpotCheckLimit = 5

// SpotOrders are the sample orderings checked against local page counts.
var SpotOrders = []string{"page_count.desc", "filename"}

// SpotMismatch is a sampled remote document whose page count disagrees.
type SpotMismatch struct {
	Filename string
	Remote   int
	Local    int
}

// SpotUnknown is a sampled remote document with no local counterpart. It is
// neither a match nor a mismatch.
type SpotUnknown struct {
	Filename string
	Remote   int
}

// SpotCheck is the outcome of one ordered sample. Checked counts only the
// documents that could be compared.
type SpotCheck struct {
	Order      string
	Checked    int
	Mismatches []SpotMismatch
	Unknown    []SpotUnknown
}

// VerifyRow compares remote and local counts for one dataset.
type VerifyRow struct {
	Dataset    int
	DatasetID  string
	Remote     int
	Local      int
	SpotChecks []SpotCheck
	// SpotErr is set when sampling failed; the count comparison still stands.
	SpotErr error
}

// Match reports whether the counts agree.
func (r VerifyRow) Match() bool {
	return r.Remote == r.Local
}

// Difference is remote minus local.
func (r VerifyRow) Difference() int {
	return r.Remote - r.Local
}

// VerifyReport aggregates verify mode over all datasets.
type VerifyReport struct {
	Rows []VerifyRow
	// Skipped lists datasets without a remote identifier.
	Skipped []int
	// Failed lists datasets whose remote count could not be read; they are
	// omitted from Rows and the totals.
	Failed      []DatasetFailure
	RemoteTotal int
	LocalTotal  int
}

// Mismatches returns rows whose counts disagree.
func (r VerifyReport) Mismatches() []VerifyRow {
	var out []VerifyRow
	for _, row := range r.Rows {
		if !row.Match() {
			out = append(out, row)
		}
	}
	return out
}

// VerifierOptions configures a Verifier.
type VerifierOptions struct {
	Policy retry.Policy
	// SpotCheckLimit is the sample size per order; zero disables sampling.
	SpotCheckLimit int
	Logger         *slog.Logger
}

// Verifier compares remote state with local truth without mutating it.
type Verifier struct {
	store     Store
	policy    retry.Policy
	spotLimit int
	logger    *slog.Logger
}

// NewVerifier builds a verifier over store.
func NewVerifier(store Store, opts VerifierOptions) *Verifier {
	limit := opts.SpotCheckLimit
	if limit < 0 {
		limit = defaultSpotCheckLimit
	}
	policy := opts.Policy
	if policy.Attempts == 0 {
		policy = retry.Default()
	}
	return &Verifier{
		store:     store,
		policy:    policy,
		spotLimit: limit,
		logger:    logging.NewComponentLogger(opts.Logger, "verify"),
	}
}

// Verify checks every target in dataset order.
func (v *Verifier) Verify(ctx context.Context, ids map[int]string, targets []Target) VerifyReport {
	var report VerifyReport
	for _, target := range sortedTargets(targets) {
		if ctx.Err() != nil {
			report.Failed = append(report.Failed, DatasetFailure{Dataset: target.Dataset, Err: ctx.Err()})
			continue
		}
		id, ok := ids[target.Dataset]
		if !ok || id == "" {
			logging.WarnWithContext(v.logger, "dataset has no remote identifier", "dataset_unmapped",
				logging.Dataset(target.Dataset),
				logging.String(logging.FieldErrorHint, "create the dataset row remotely or check dataset_number"),
				logging.String(logging.FieldImpact, "dataset skipped for verification"),
			)
			report.Skipped = append(report.Skipped, target.Dataset)
			continue
		}

		row, err := v.VerifyDataset(ctx, id, target)
		if err != nil {
			logging.WarnWithContext(v.logger, "remote count failed", "verify_count_failed",
				logging.Dataset(target.Dataset),
				logging.Error(err),
				logging.String(logging.FieldImpact, "dataset omitted from comparison"),
			)
			report.Failed = append(report.Failed, DatasetFailure{Dataset: target.Dataset, Err: err})
			continue
		}
		report.Rows = append(report.Rows, row)
		report.RemoteTotal += row.Remote
		report.LocalTotal += row.Local
	}
	return report
}

// VerifyDataset compares one dataset. Only a failed count is an error; a
// failed sample is recorded on the row.
func (v *Verifier) VerifyDataset(ctx context.Context, datasetID string, target Target) (VerifyRow, error) {
	remote, err := retry.Value(ctx, v.policy, func(ctx context.Context) (int, error) {
		return v.store.CountDocuments(ctx, datasetID)
	})
	if err != nil {
		return VerifyRow{}, err
	}
	row := VerifyRow{
		Dataset:   target.Dataset,
		DatasetID: datasetID,
		Remote:    remote,
		Local:     target.Documents,
	}
	v.logger.Info("remote count",
		logging.Dataset(target.Dataset),
		logging.Int("remote", remote),
		logging.Int("local", target.Documents),
		logging.Bool("match", row.Match()),
	)

	if v.spotLimit == 0 {
		return row, nil
	}
	for _, order := range SpotOrders {
		check, err := v.spotCheck(ctx, datasetID, order, target.PageCounts)
		if err != nil {
			row.SpotErr = err
			logging.WarnWithContext(v.logger, "spot check failed", "verify_spot_failed",
				logging.Dataset(target.Dataset),
				logging.String("order", order),
				logging.Error(err),
				logging.String(logging.FieldImpact, "page counts not sampled"),
			)
			break
		}
		row.SpotChecks = append(row.SpotChecks, check)
	}
	return row, nil
}

func (v *Verifier) spotCheck(ctx context.Context, datasetID, order string, local map[string]int) (SpotCheck, error) {
	docs, err := retry.Value(ctx, v.policy, func(ctx context.Context) ([]datastore.Document, error) {
		return v.store.ListDocuments(ctx, datasetID, datastore.ListOptions{Order: order, Limit: v.spotLimit})
	})
	if err != nil {
		return SpotCheck{}, err
	}
	check := SpotCheck{Order: order}
	for _, doc := range docs {
		pages, ok := local[doc.Filename]
		if !ok {
			check.Unknown = append(check.Unknown, SpotUnknown{Filename: doc.Filename, Remote: doc.PageCount})
			continue
		}
		check.Checked++
		if pages != doc.PageCount {
			check.Mismatches = append(check.Mismatches, SpotMismatch{
				Filename: doc.Filename,
				Remote:   doc.PageCount,
				Local:    pages,
			})
		}
	}
	return check, nil
}
