package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains local directories.
type Paths struct {
	CacheDir string `toml:"cache_dir"`
	LogDir   string `toml:"log_dir"`
}

// Remote configures the document datastore (a PostgREST endpoint).
type Remote struct {
	URL                   string `toml:"url"`
	ServiceKey            string `toml:"service_key"`
	RequestTimeoutSeconds int    `toml:"request_timeout_seconds"`
	RPCTimeoutSeconds     int    `toml:"rpc_timeout_seconds"`
	RPCName               string `toml:"rpc_name"`
}

// Storage configures where load files are fetched from.
type Storage struct {
	// Backend is "supabase" or "gcs".
	Backend string `toml:"backend"`
	Bucket  string `toml:"bucket"`
	// Endpoint overrides the GCS endpoint (emulators).
	Endpoint string `toml:"endpoint"`
}

// Metadata names the DAT boundary columns.
type Metadata struct {
	BeginColumn string `toml:"begin_column"`
	EndColumn   string `toml:"end_column"`
}

// Update tunes the batched mutation loop.
type Update struct {
	BatchSize              int `toml:"batch_size"`
	MaxConsecutiveFailures int `toml:"max_consecutive_failures"`
	BatchPauseMillis       int `toml:"batch_pause_ms"`
	FailurePauseMillis     int `toml:"failure_pause_ms"`
	ProgressEvery          int `toml:"progress_every"`
}

// Verify tunes verify mode.
type Verify struct {
	SpotCheckLimit int `toml:"spot_check_limit"`
}

// Retry configures the shared retry policy.
type Retry struct {
	Attempts          int `toml:"attempts"`
	ServerErrorBaseMS int `toml:"server_error_base_ms"`
	ServerErrorStepMS int `toml:"server_error_step_ms"`
	TimeoutWaitMS     int `toml:"timeout_wait_ms"`
}

// Workers bounds parallelism across independent datasets.
type Workers struct {
	Datasets int `toml:"datasets"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Dataset locates one dataset's load files.
type Dataset struct {
	Number int `toml:"number"`
	// DataPath is the object key of the OPT/DAT pair without extension.
	DataPath string `toml:"data_path"`
	// VolumeBase prefixes image paths to form document storage paths.
	VolumeBase string `toml:"volume_base"`
}

// Config encapsulates all configuration values for loadcheck.
type Config struct {
	Paths    Paths     `toml:"paths"`
	Remote   Remote    `toml:"remote"`
	Storage  Storage   `toml:"storage"`
	Metadata Metadata  `toml:"metadata"`
	Update   Update    `toml:"update"`
	Verify   Verify    `toml:"verify"`
	Retry    Retry     `toml:"retry"`
	Workers  Workers   `toml:"workers"`
	Logging  Logging   `toml:"logging"`
	Datasets []Dataset `toml:"datasets"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/loadcheck/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()
	// Decoding appends to slices, so file-declared datasets would mix with
	// the defaults. normalize restores the catalog when the file has none.
	cfg.Datasets = nil

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("loadcheck.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the cache and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.CacheDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// AuditDBPath is the SQLite audit database location.
func (c *Config) AuditDBPath() string {
	return filepath.Join(c.Paths.LogDir, "audit.db")
}

// LogFilePath is the persistent log file location.
func (c *Config) LogFilePath() string {
	return filepath.Join(c.Paths.LogDir, "loadcheck.log")
}

// RequestTimeout is the timeout for datastore reads and object downloads.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Remote.RequestTimeoutSeconds) * time.Second
}

// RPCTimeout is the timeout for one batched mutation call.
func (c *Config) RPCTimeout() time.Duration {
	return time.Duration(c.Remote.RPCTimeoutSeconds) * time.Second
}

// RemoteConfigured reports whether datastore credentials are present.
func (c *Config) RemoteConfigured() bool {
	return c.Remote.URL != "" && c.Remote.ServiceKey != ""
}

// Dataset returns the catalog entry for number.
func (c *Config) Dataset(number int) (Dataset, bool) {
	for _, ds := range c.Datasets {
		if ds.Number == number {
			return ds, true
		}
	}
	return Dataset{}, false
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
