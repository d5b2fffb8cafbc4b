package preflight

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"loadcheck/internal/config"
	"loadcheck/internal/dataset"
	"loadcheck/internal/datastore"
	"loadcheck/internal/testsupport"
)

type fakePinger struct {
	err error
}

func (f fakePinger) Ping(context.Context) error {
	return f.err
}

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_Missing(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
}

func TestCheckDirectoryAccess_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", path)
	if result.Passed {
		t.Fatal("expected failure for regular file")
	}
}

func TestCheckDatastore(t *testing.T) {
	ok := CheckDatastore(context.Background(), fakePinger{}, time.Second)
	if !ok.Passed {
		t.Fatalf("expected pass, got %s", ok.Detail)
	}

	failed := CheckDatastore(context.Background(), fakePinger{err: errors.New("boom")}, time.Second)
	if failed.Passed || failed.Detail != "boom" {
		t.Fatalf("unexpected result: %#v", failed)
	}
}

func TestCheckDatastore_Unauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"Invalid API key"}`))
	}))
	defer srv.Close()

	client := datastore.NewClient(datastore.Config{BaseURL: srv.URL, ServiceKey: "bad"})
	result := CheckDatastore(context.Background(), client, time.Second)
	if result.Passed {
		t.Fatal("expected auth failure")
	}
	if result.Detail != "auth failed (invalid service key)" {
		t.Fatalf("unexpected detail: %s", result.Detail)
	}
}

func TestCheckCachedLoadFiles(t *testing.T) {
	dir := t.TempDir()
	spec := dataset.Spec{Number: 3, DataPath: "doj/dataset-3/DATA/VOL00003"}

	miss := CheckCachedLoadFiles("DS3", dir, spec)
	if miss.Passed || !miss.Skipped {
		t.Fatalf("expected skipped miss, got %#v", miss)
	}

	for _, ext := range []string{".OPT", ".DAT"} {
		testsupport.WriteFile(t, filepath.Join(dir, filepath.FromSlash(spec.CacheName(ext))), "data")
	}
	hit := CheckCachedLoadFiles("DS3", dir, spec)
	if !hit.Passed {
		t.Fatalf("expected pass, got %#v", hit)
	}
}

func TestRunAllSkipsDatastoreWithoutPinger(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.CacheDir = t.TempDir()
	cfg.Paths.LogDir = t.TempDir()
	cfg.Datasets = []config.Dataset{{Number: 1, DataPath: "doj/dataset-1/VOL00001"}}

	results := RunAll(context.Background(), &cfg, nil)
	if len(results) != 4 {
		t.Fatalf("expected 4 results, got %d", len(results))
	}
	if Failed(results) {
		t.Fatalf("expected no failures, got %#v", results)
	}
	if !results[2].Skipped || results[2].Name != "Datastore" {
		t.Fatalf("expected skipped datastore check, got %#v", results[2])
	}
}

func TestRunAllReportsDatastoreFailure(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.CacheDir = t.TempDir()
	cfg.Paths.LogDir = t.TempDir()
	cfg.Datasets = nil

	results := RunAll(context.Background(), &cfg, fakePinger{err: errors.New("down")})
	if !Failed(results) {
		t.Fatal("expected failure")
	}
}
