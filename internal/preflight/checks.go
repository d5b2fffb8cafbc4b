package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"loadcheck/internal/dataset"
	"loadcheck/internal/fileutil"
	"loadcheck/internal/retry"
)

// Pinger is the datastore health probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

// CheckDatastore verifies that the datastore is reachable and the key is
// accepted. It makes a single attempt.
func CheckDatastore(ctx context.Context, pinger Pinger, timeout time.Duration) Result {
	const name = "Datastore"

	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	checkCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := pinger.Ping(checkCtx); err != nil {
		return Result{Name: name, Detail: summarizeDatastoreError(err)}
	}
	return Result{Name: name, Passed: true, Detail: "Reachable"}
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckCachedLoadFiles reports whether both load files of spec are cached.
// A miss is informational: the files are downloaded on the next run unless
// downloads are disabled.
func CheckCachedLoadFiles(name, cacheDir string, spec dataset.Spec) Result {
	var missing []string
	for _, ext := range []string{".OPT", ".DAT"} {
		path := filepath.Join(cacheDir, filepath.FromSlash(spec.CacheName(ext)))
		_, ok, err := fileutil.NonEmptyFile(path)
		if err != nil {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", path, err)}
		}
		if !ok {
			missing = append(missing, ext)
		}
	}
	switch len(missing) {
	case 0:
		return Result{Name: name, Passed: true, Detail: "cached"}
	case 2:
		return Result{Name: name, Skipped: true, Detail: "not cached (downloaded on demand)"}
	default:
		return Result{Name: name, Skipped: true, Detail: fmt.Sprintf("%s not cached (downloaded on demand)", strings.TrimPrefix(missing[0], "."))}
	}
}

func summarizeDatastoreError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "health check timed out (datastore unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "health check timed out (datastore unreachable)"
	}
	var coder retry.StatusCoder
	if errors.As(err, &coder) {
		switch coder.HTTPStatus() {
		case 401, 403:
			return "auth failed (invalid service key)"
		}
	}
	return err.Error()
}
