package e2e

import (
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/im-vishesh15th/bookmind/internal/stub"
)

// buildBookmind builds the bookmind binary into a temp dir and returns its path.
func buildBookmind(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("e2e: skipped in -short mode")
	}
	goBin, err := exec.LookPath("go")
	if err != nil {
		t.Skip("e2e: go toolchain not on PATH")
	}

	binPath := filepath.Join(t.TempDir(), "bookmind")

	rootDir, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	// test/e2e -> module root
	rootDir = filepath.Join(rootDir, "..", "..")

	cmd := exec.Command(goBin, "build", "-o", binPath, "./cmd/bookmind")
	cmd.Dir = rootDir
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("build failed: %v\n%s", err, out)
	}
	return binPath
}

// startStub serves the built-in catalog and returns its base URL.
func startStub(t *testing.T, opts stub.Options) string {
	t.Helper()
	srv := httptest.NewServer(stub.New(stub.DefaultCatalog(), opts).Handler())
	t.Cleanup(srv.Close)
	return srv.URL
}

// bookmindEnv isolates the binary from the developer's config and data.
func bookmindEnv(homeDir, apiURL string) []string {
	var env []string
	for _, kv := range os.Environ() {
		if strings.HasPrefix(kv, "BOOKMIND_") || strings.HasPrefix(kv, "NEXT_PUBLIC_") ||
			strings.HasPrefix(kv, "HOME=") || strings.HasPrefix(kv, "TERM=") {
			continue
		}
		env = append(env, kv)
	}
	return append(env,
		"HOME="+homeDir,
		"TERM=xterm-256color",
		"BOOKMIND_API_URL="+apiURL,
		"BOOKMIND_DATA_DIR="+filepath.Join(homeDir, ".bookmind"),
		"BOOKMIND_DEBOUNCE="+(100*time.Millisecond).String(),
	)
}

// dumpLogs prints the human log from a failed run.
func dumpLogs(t *testing.T, homeDir string) {
	t.Helper()
	matches, _ := filepath.Glob(filepath.Join(homeDir, ".bookmind", "logs", "*.log"))
	for _, m := range matches {
		if logs, err := os.ReadFile(m); err == nil {
			t.Logf("%s:\n%s", filepath.Base(m), logs)
		}
	}
}

func stubOptions() stub.Options {
	return stub.Options{RecommendLatency: 50 * time.Millisecond}
}
