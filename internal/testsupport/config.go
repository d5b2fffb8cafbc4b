package testsupport

import (
	"path/filepath"
	"testing"

	"loadcheck/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// Retry waits are zeroed so failure paths run quickly.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.CacheDir = filepath.Join(base, "cache")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Retry.ServerErrorBaseMS = 0
	cfgVal.Retry.ServerErrorStepMS = 0
	cfgVal.Retry.TimeoutWaitMS = 0
	cfgVal.Update.BatchPauseMillis = 0
	cfgVal.Update.FailurePauseMillis = 0

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithRemote points the config at a test datastore.
func WithRemote(url, key string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Remote.URL = url
		b.cfg.Remote.ServiceKey = key
	}
}

// WithDatasets replaces the dataset catalog.
func WithDatasets(datasets ...config.Dataset) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Datasets = datasets
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.CacheDir)
}
