package objectstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gofrs/flock"

	"loadcheck/internal/fileutil"
	"loadcheck/internal/logging"
	"loadcheck/internal/retry"
)

const lockPollInterval = 200 * time.Millisecond

// Entry is a load file present in the local cache.
type Entry struct {
	Key        string
	Path       string
	Bytes      int64
	SHA256     string
	Downloaded bool
}

// Cache materializes remote objects as local files.
type Cache struct {
	dir     string
	fetcher Fetcher
	policy  retry.Policy
	logger  *slog.Logger
}

// NewCache builds a cache rooted at dir. A nil fetcher disables downloads so
// only files already on disk can be used.
func NewCache(dir string, fetcher Fetcher, policy retry.Policy, logger *slog.Logger) *Cache {
	return &Cache{
		dir:     dir,
		fetcher: fetcher,
		policy:  policy,
		logger:  logging.NewComponentLogger(logger, "objectstore"),
	}
}

// Path returns the local path used for name.
func (c *Cache) Path(name string) string {
	return filepath.Join(c.dir, filepath.FromSlash(name))
}

// Ensure returns the cached file for name, downloading key first when the
// local copy is absent or empty. Concurrent callers for the same name wait
// on a per-file lock so only one of them downloads.
func (c *Cache) Ensure(ctx context.Context, key, name string) (Entry, error) {
	path := c.Path(name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return Entry{}, fmt.Errorf("create cache directory: %w", err)
	}

	lock := flock.New(path + ".lock")
	locked, err := lock.TryLockContext(ctx, lockPollInterval)
	if err != nil {
		return Entry{}, fmt.Errorf("lock %s: %w", name, err)
	}
	if !locked {
		return Entry{}, fmt.Errorf("lock %s: not acquired", name)
	}
	defer func() {
		_ = lock.Unlock()
	}()

	size, ok, err := fileutil.NonEmptyFile(path)
	if err != nil {
		return Entry{}, fmt.Errorf("stat %s: %w", path, err)
	}
	if ok {
		c.logger.Debug("cache hit", logging.String("path", path), logging.String("size", humanize.Bytes(uint64(size))))
		return Entry{Key: key, Path: path, Bytes: size}, nil
	}
	if c.fetcher == nil {
		return Entry{}, fmt.Errorf("%s: %w", path, ErrNotCached)
	}

	policy := c.policy
	policy.OnRetry = func(n int, err error) {
		logging.WarnWithContext(c.logger, "download attempt failed", "download_retry",
			logging.String("key", key),
			logging.Int("attempt", n+1),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "transient storage error; retrying"),
			logging.String(logging.FieldImpact, "dataset processing delayed"),
		)
	}

	start := time.Now()
	written, err := retry.Value(ctx, policy, func(ctx context.Context) (fileutil.Written, error) {
		return c.download(ctx, key, path)
	})
	if err != nil {
		return Entry{}, err
	}
	c.logger.Info("downloaded load file",
		logging.String("key", key),
		logging.String("size", humanize.Bytes(uint64(written.Bytes))),
		logging.Duration("elapsed", time.Since(start).Round(time.Millisecond)),
	)
	return Entry{Key: key, Path: path, Bytes: written.Bytes, SHA256: written.SHA256, Downloaded: true}, nil
}

func (c *Cache) download(ctx context.Context, key, path string) (fileutil.Written, error) {
	body, err := c.fetcher.Open(ctx, key)
	if err != nil {
		return fileutil.Written{}, err
	}
	defer body.Close()

	written, err := fileutil.WriteAtomic(path, body, 0o644)
	if err != nil {
		return fileutil.Written{}, fmt.Errorf("download %s: %w", key, err)
	}
	if written.Bytes == 0 {
		_ = os.Remove(path)
		return fileutil.Written{}, fmt.Errorf("download %s: %w", key, ErrEmptyObject)
	}
	return written, nil
}

// IsMissing reports whether err means the file could not be obtained at all,
// as opposed to a transport failure.
func IsMissing(err error) bool {
	return errors.Is(err, ErrObjectNotFound) || errors.Is(err, ErrNotCached) || errors.Is(err, ErrEmptyObject)
}
