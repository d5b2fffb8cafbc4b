package main

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"loadcheck/internal/concordance"
)

const (
	testDataPath   = "doj/dataset-1/DATA/VOL00001"
	testVolumeBase = "doj/dataset-1"
)

const testOPT = "EFTA001,VOL00001,IMAGES\\0001\\EFTA001.pdf,Y,,,1\r\n" +
	"EFTA002,VOL00001,IMAGES\\0001\\EFTA002.pdf,,,,1\r\n" +
	"EFTA003,VOL00001,IMAGES\\0001\\EFTA003.pdf,Y,,,1\r\n"

func testDAT(records ...[2]string) string {
	lines := []string{concordance.JoinLine([]string{"Begin Bates", "End Bates"})}
	for _, rec := range records {
		lines = append(lines, concordance.JoinLine([]string{rec[0], rec[1]}))
	}
	return strings.Join(lines, "\r\n") + "\r\n"
}

// fakeRemote serves object storage and the PostgREST datastore.
type fakeRemote struct {
	t *testing.T

	mu          sync.Mutex
	objects     map[string]string
	remoteCount int
	rpcStatus   int
	rpcReplies  []int
	rpcCalls    int

	// datasetsDown answers that many dataset lookups with 503 first.
	datasetsDown int
	datasetsHits int
}

func newFakeRemote(t *testing.T) (*fakeRemote, *httptest.Server) {
	t.Helper()
	f := &fakeRemote{
		t: t,
		objects: map[string]string{
			testDataPath + ".OPT": testOPT,
			testDataPath + ".DAT": testDAT([2]string{"EFTA001", "EFTA002"}, [2]string{"EFTA003", "EFTA003"}),
		},
		remoteCount: 2,
		rpcReplies:  []int{2, 0},
	}
	srv := httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(srv.Close)
	return f, srv
}

func (f *fakeRemote) serve(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if r.Header.Get("apikey") != "test-key" {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	const objectPrefix = "/storage/v1/object/raw-archive/"
	switch {
	case strings.HasPrefix(r.URL.Path, objectPrefix):
		body, ok := f.objects[strings.TrimPrefix(r.URL.Path, objectPrefix)]
		if !ok {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"not_found","message":"Object not found"}`))
			return
		}
		_, _ = w.Write([]byte(body))
	case r.URL.Path == "/rest/v1/datasets":
		f.datasetsHits++
		if f.datasetsHits <= f.datasetsDown {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`[{"id":"ds-1","dataset_number":1}]`))
	case r.URL.Path == "/rest/v1/documents":
		if r.Header.Get("Prefer") == "count=exact" {
			w.Header().Set("Content-Range", fmt.Sprintf("0-0/%d", f.remoteCount))
			_, _ = w.Write([]byte(`[{"id":1}]`))
			return
		}
		_, _ = w.Write([]byte(`[{"filename":"EFTA001.pdf","page_count":2},{"filename":"EFTA003.pdf","page_count":1}]`))
	case r.URL.Path == "/rest/v1/rpc/mark_dat_validated":
		f.rpcCalls++
		if f.rpcStatus != 0 {
			w.WriteHeader(f.rpcStatus)
			return
		}
		reply := 0
		if len(f.rpcReplies) > 0 {
			reply, f.rpcReplies = f.rpcReplies[0], f.rpcReplies[1:]
		}
		_, _ = fmt.Fprintf(w, "%d", reply)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (f *fakeRemote) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rpcCalls
}

type cliTestEnv struct {
	configPath string
	baseDir    string
}

// setupCLITestEnv writes a config for a single dataset. An empty remoteURL
// leaves the datastore unconfigured.
func setupCLITestEnv(t *testing.T, remoteURL string) *cliTestEnv {
	t.Helper()
	for _, key := range []string{"SUPABASE_URL", "NEXT_PUBLIC_SUPABASE_URL", "SUPABASE_SERVICE_ROLE_KEY", "GCS_BUCKET"} {
		t.Setenv(key, "")
	}

	base := t.TempDir()
	configPath := filepath.Join(base, "config.toml")
	key := ""
	if remoteURL != "" {
		key = "test-key"
	}
	content := fmt.Sprintf(`[paths]
cache_dir = %q
log_dir = %q

[remote]
url = %q
service_key = %q

[retry]
attempts = 2
server_error_base_ms = 0
server_error_step_ms = 0
timeout_wait_ms = 0

[update]
batch_pause_ms = 0
failure_pause_ms = 0

[logging]
level = "error"

[[datasets]]
number = 1
data_path = %q
volume_base = %q
`, filepath.Join(base, "cache"), filepath.Join(base, "logs"), remoteURL, key, testDataPath, testVolumeBase)
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return &cliTestEnv{configPath: configPath, baseDir: base}
}

func (e *cliTestEnv) cacheFile(ext string) string {
	return filepath.Join(e.baseDir, "cache", "dataset-1", "VOL00001"+ext)
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
