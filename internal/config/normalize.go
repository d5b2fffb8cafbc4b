package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeRemote()
	c.normalizeStorage()
	c.normalizeMetadata()
	c.normalizeDatasets()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.CacheDir) == "" {
		c.Paths.CacheDir = defaultCacheDir
	}
	if c.Paths.CacheDir, err = expandPath(c.Paths.CacheDir); err != nil {
		return fmt.Errorf("paths.cache_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeRemote() {
	if c.Remote.URL == "" {
		c.Remote.URL = firstEnv("SUPABASE_URL", "NEXT_PUBLIC_SUPABASE_URL")
	}
	if c.Remote.ServiceKey == "" {
		c.Remote.ServiceKey = firstEnv("SUPABASE_SERVICE_ROLE_KEY")
	}
	c.Remote.URL = strings.TrimRight(strings.TrimSpace(c.Remote.URL), "/")
	c.Remote.ServiceKey = strings.TrimSpace(c.Remote.ServiceKey)
	c.Remote.RPCName = strings.TrimSpace(c.Remote.RPCName)
	if c.Remote.RPCName == "" {
		c.Remote.RPCName = defaultRPCName
	}
}

func (c *Config) normalizeStorage() {
	c.Storage.Backend = strings.ToLower(strings.TrimSpace(c.Storage.Backend))
	if c.Storage.Backend == "" {
		c.Storage.Backend = defaultStorageBackend
	}
	if c.Storage.Backend == StorageBackendGCS && strings.TrimSpace(c.Storage.Bucket) == "" {
		c.Storage.Bucket = firstEnv("GCS_BUCKET")
	}
	c.Storage.Bucket = strings.TrimSpace(c.Storage.Bucket)
	if c.Storage.Bucket == "" && c.Storage.Backend == StorageBackendSupabase {
		c.Storage.Bucket = defaultStorageBucket
	}
	c.Storage.Endpoint = strings.TrimSpace(c.Storage.Endpoint)
}

func (c *Config) normalizeMetadata() {
	if c.Metadata.BeginColumn == "" {
		c.Metadata.BeginColumn = defaultBeginColumn
	}
	if c.Metadata.EndColumn == "" {
		c.Metadata.EndColumn = defaultEndColumn
	}
}

func (c *Config) normalizeDatasets() {
	if len(c.Datasets) == 0 {
		c.Datasets = DefaultDatasets()
		return
	}
	for i := range c.Datasets {
		c.Datasets[i].DataPath = strings.Trim(strings.TrimSpace(c.Datasets[i].DataPath), "/")
		c.Datasets[i].VolumeBase = strings.TrimRight(strings.TrimSpace(c.Datasets[i].VolumeBase), "/")
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func firstEnv(keys ...string) string {
	for _, key := range keys {
		if value, ok := os.LookupEnv(key); ok && strings.TrimSpace(value) != "" {
			return strings.TrimSpace(value)
		}
	}
	return ""
}
