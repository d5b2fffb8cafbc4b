package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"loadcheck/internal/config"
)

func TestLoadDefaultConfigUsesEnvAndExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("SUPABASE_URL", "")
	t.Setenv("NEXT_PUBLIC_SUPABASE_URL", "https://example.supabase.co/")
	t.Setenv("SUPABASE_SERVICE_ROLE_KEY", "secret")

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}
	if cfg.Paths.CacheDir != filepath.Join(tempHome, ".cache", "loadcheck") {
		t.Fatalf("unexpected cache dir: %q", cfg.Paths.CacheDir)
	}
	if cfg.Remote.URL != "https://example.supabase.co" {
		t.Fatalf("expected trimmed url from env, got %q", cfg.Remote.URL)
	}
	if cfg.Remote.ServiceKey != "secret" {
		t.Fatalf("expected key from env, got %q", cfg.Remote.ServiceKey)
	}
	if !cfg.RemoteConfigured() {
		t.Fatal("expected remote to be configured")
	}
	if len(cfg.Datasets) != 12 {
		t.Fatalf("expected 12 default datasets, got %d", len(cfg.Datasets))
	}
	ds, ok := cfg.Dataset(9)
	if !ok || ds.VolumeBase != "doj/dataset-9/DataSet_9/VOL00009" {
		t.Fatalf("unexpected dataset 9: %+v", ds)
	}
	if cfg.Update.BatchSize != 1000 || cfg.Update.MaxConsecutiveFailures != 5 {
		t.Fatalf("unexpected update defaults: %+v", cfg.Update)
	}
	if cfg.Retry.Attempts != 3 {
		t.Fatalf("unexpected retry attempts: %d", cfg.Retry.Attempts)
	}
}

func TestLoadFileOverridesDatasets(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	dir := t.TempDir()
	path := filepath.Join(dir, "loadcheck.toml")
	body := `
[paths]
cache_dir = "` + filepath.ToSlash(filepath.Join(dir, "cache")) + `"

[update]
batch_size = 250

[[datasets]]
number = 42
data_path = "/custom/DATA/VOL00042/"
volume_base = "custom/"
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("resolved = %q exists = %v", resolved, exists)
	}
	if cfg.Update.BatchSize != 250 {
		t.Fatalf("batch size = %d", cfg.Update.BatchSize)
	}
	if cfg.Update.ProgressEvery != 10 {
		t.Fatalf("expected default progress_every, got %d", cfg.Update.ProgressEvery)
	}
	if len(cfg.Datasets) != 1 {
		t.Fatalf("expected file datasets to replace defaults, got %d", len(cfg.Datasets))
	}
	if cfg.Datasets[0].DataPath != "custom/DATA/VOL00042" || cfg.Datasets[0].VolumeBase != "custom" {
		t.Fatalf("dataset not normalized: %+v", cfg.Datasets[0])
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "cache")); err != nil {
		t.Fatalf("cache dir not created: %v", err)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	tests := []struct {
		name string
		body string
		want string
	}{
		{"backend", "[storage]\nbackend = \"ftp\"\n", "storage.backend"},
		{"batch size", "[update]\nbatch_size = 0\n", "update.batch_size"},
		{"duplicate dataset", "[[datasets]]\nnumber = 1\ndata_path = \"a\"\n[[datasets]]\nnumber = 1\ndata_path = \"b\"\n", "declared twice"},
		{"unknown key", "[update]\nbatchsize = 3\n", "parse config"},
		{"log format", "[logging]\nformat = \"xml\"\n", "logging.format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			if err := os.WriteFile(path, []byte(tt.body), 0o644); err != nil {
				t.Fatal(err)
			}
			_, _, _, err := config.Load(path)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("err = %v, want substring %q", err, tt.want)
			}
		})
	}
}

func TestValidateRemote(t *testing.T) {
	cfg := config.Default()
	if err := cfg.ValidateRemote(); err == nil {
		t.Fatal("expected missing url error")
	}
	cfg.Remote.URL = "https://x"
	cfg.Remote.ServiceKey = "k"
	if err := cfg.ValidateRemote(); err != nil {
		t.Fatalf("ValidateRemote: %v", err)
	}
}

func TestCreateSampleIsLoadable(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	if _, _, _, err := config.Load(path); err != nil {
		t.Fatalf("sample config does not load: %v", err)
	}
}
