package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable. Datastore credentials are
// not required here: parsing and local reporting work without them, and the
// CLI checks them only when --verify or --update is requested.
func (c *Config) Validate() error {
	if err := c.validateStorage(); err != nil {
		return err
	}
	if err := c.validateUpdate(); err != nil {
		return err
	}
	if err := c.validateRetry(); err != nil {
		return err
	}
	if err := c.validateDatasets(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	if c.Remote.RequestTimeoutSeconds <= 0 || c.Remote.RPCTimeoutSeconds <= 0 {
		return errors.New("remote timeouts must be positive")
	}
	if c.Verify.SpotCheckLimit < 0 {
		return errors.New("verify.spot_check_limit must be zero or positive")
	}
	if c.Workers.Datasets <= 0 {
		return errors.New("workers.datasets must be positive")
	}
	return nil
}

// ValidateRemote ensures datastore credentials are present.
func (c *Config) ValidateRemote() error {
	if c.Remote.URL == "" {
		return errors.New("remote.url is required for --verify/--update (or set SUPABASE_URL)")
	}
	if c.Remote.ServiceKey == "" {
		return errors.New("remote.service_key is required for --verify/--update (or set SUPABASE_SERVICE_ROLE_KEY)")
	}
	return nil
}

func (c *Config) validateStorage() error {
	switch c.Storage.Backend {
	case StorageBackendSupabase, StorageBackendGCS:
	default:
		return fmt.Errorf("storage.backend: unsupported value %q", c.Storage.Backend)
	}
	if c.Storage.Bucket == "" {
		return errors.New("storage.bucket must be set")
	}
	return nil
}

func (c *Config) validateUpdate() error {
	if c.Update.BatchSize <= 0 {
		return errors.New("update.batch_size must be positive")
	}
	if c.Update.MaxConsecutiveFailures <= 0 {
		return errors.New("update.max_consecutive_failures must be positive")
	}
	if c.Update.BatchPauseMillis < 0 || c.Update.FailurePauseMillis < 0 {
		return errors.New("update pauses must be zero or positive")
	}
	if c.Update.ProgressEvery <= 0 {
		return errors.New("update.progress_every must be positive")
	}
	return nil
}

func (c *Config) validateRetry() error {
	if c.Retry.Attempts <= 0 {
		return errors.New("retry.attempts must be positive")
	}
	if c.Retry.ServerErrorBaseMS < 0 || c.Retry.ServerErrorStepMS < 0 || c.Retry.TimeoutWaitMS < 0 {
		return errors.New("retry delays must be zero or positive")
	}
	return nil
}

func (c *Config) validateDatasets() error {
	seen := make(map[int]struct{}, len(c.Datasets))
	for _, ds := range c.Datasets {
		if ds.Number <= 0 {
			return fmt.Errorf("datasets: number must be positive (got %d)", ds.Number)
		}
		if _, dup := seen[ds.Number]; dup {
			return fmt.Errorf("datasets: number %d declared twice", ds.Number)
		}
		seen[ds.Number] = struct{}{}
		if strings.TrimSpace(ds.DataPath) == "" {
			return fmt.Errorf("datasets: dataset %d has no data_path", ds.Number)
		}
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
}
