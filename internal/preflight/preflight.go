package preflight

import (
	"context"
	"fmt"

	"loadcheck/internal/config"
	"loadcheck/internal/dataset"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name    string
	Passed  bool
	Skipped bool
	Detail  string
}

// Failed reports whether any non-skipped check failed.
func Failed(results []Result) bool {
	for _, r := range results {
		if !r.Passed && !r.Skipped {
			return true
		}
	}
	return false
}

// RunAll executes all applicable preflight checks for the given config.
// The datastore check is skipped when pinger is nil.
func RunAll(ctx context.Context, cfg *config.Config, pinger Pinger) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Cache directory", cfg.Paths.CacheDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
	}

	if pinger == nil {
		results = append(results, Result{Name: "Datastore", Skipped: true, Detail: "not configured (--verify/--update unavailable)"})
	} else {
		results = append(results, CheckDatastore(ctx, pinger, cfg.RequestTimeout()))
	}

	for _, spec := range dataset.FromConfig(cfg.Datasets) {
		results = append(results, CheckCachedLoadFiles(fmt.Sprintf("DS%d load files", spec.Number), cfg.Paths.CacheDir, spec))
	}
	return results
}
