package reconcile

import (
	"context"
	"fmt"
	"sort"

	"loadcheck/internal/datastore"
	"loadcheck/internal/retry"
)

// Store is the remote datastore surface used by reconciliation.
type Store interface {
	DatasetIDs(ctx context.Context) (map[int]string, error)
	CountDocuments(ctx context.Context, datasetID string) (int, error)
	ListDocuments(ctx context.Context, datasetID string, opts datastore.ListOptions) ([]datastore.Document, error)
	MarkValidated(ctx context.Context, datasetID string, batchSize int) (int, error)
}

// Target is the locally computed truth for one dataset.
type Target struct {
	Dataset   int
	Documents int
	// PageCounts maps document filename to its local page count.
	PageCounts map[string]int
}

// LookupIDs fetches the dataset number to remote identifier mapping once.
func LookupIDs(ctx context.Context, store Store, policy retry.Policy) (map[int]string, error) {
	ids, err := retry.Value(ctx, policy, store.DatasetIDs)
	if err != nil {
		return nil, fmt.Errorf("lookup dataset ids: %w", err)
	}
	return ids, nil
}

// DatasetFailure records a dataset whose remote reads failed.
type DatasetFailure struct {
	Dataset int
	Err     error
}

func sortedTargets(targets []Target) []Target {
	out := append([]Target(nil), targets...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Dataset < out[j].Dataset })
	return out
}
