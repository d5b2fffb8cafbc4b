package testsupport

import (
	"testing"

	"loadcheck/internal/audit"
	"loadcheck/internal/config"
)

// MustOpenAudit opens the audit store for tests and registers cleanup.
func MustOpenAudit(t testing.TB, cfg *config.Config) *audit.Store {
	t.Helper()

	store, err := audit.Open(cfg.AuditDBPath())
	if err != nil {
		t.Fatalf("audit.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}
