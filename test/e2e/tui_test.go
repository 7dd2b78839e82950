package e2e

import (
	"bytes"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	expect "github.com/Netflix/go-expect"
	"github.com/creack/pty"
)

func TestE2E_SearchAndRecommend(t *testing.T) {
	binPath := buildBookmind(t)
	apiURL := startStub(t, stubOptions())
	homeDir := t.TempDir()

	var outputBuf bytes.Buffer
	console, err := expect.NewConsole(
		expect.WithStdout(&outputBuf),
		expect.WithDefaultTimeout(5*time.Second),
	)
	if err != nil {
		t.Fatalf("failed to create console: %v", err)
	}
	defer console.Close()

	if err := pty.Setsize(console.Tty(), &pty.Winsize{Cols: 120, Rows: 40}); err != nil {
		t.Fatalf("failed to set pty size: %v", err)
	}

	cmd := exec.Command(binPath, "tui", "-no-mouse")
	cmd.Env = bookmindEnv(homeDir, apiURL)
	cmd.Stdin = console.Tty()
	cmd.Stdout = console.Tty()
	cmd.Stderr = console.Tty()
	if err := cmd.Start(); err != nil {
		t.Fatalf("failed to start bookmind: %v", err)
	}
	defer func() { _ = cmd.Process.Kill() }()

	fail := func(step string, err error) {
		t.Helper()
		dumpLogs(t, homeDir)
		t.Fatalf("%s: %v\nOutput buffer:\n%s", step, err, outputBuf.String())
	}

	// 1. Startup: header and the idle hint.
	t.Log("Waiting for startup...")
	if _, err := console.ExpectString("Book Recommendation Engine"); err != nil {
		fail("header not found", err)
	}
	if _, err := console.ExpectString("Start typing to search!"); err != nil {
		fail("idle hint not found", err)
	}

	// 2. Type a query; the dropdown appears after the debounce.
	time.Sleep(300 * time.Millisecond) // let the first frame settle
	t.Log("Typing 'dune'")
	if _, err := console.Send("dune"); err != nil {
		t.Fatalf("failed to send query: %v", err)
	}
	if _, err := console.ExpectString("1 result found"); err != nil {
		fail("suggestion footer not found", err)
	}

	// 3. Choose the highlighted suggestion.
	t.Log("Sending Enter...")
	if _, err := console.Send("\r"); err != nil {
		t.Fatalf("failed to send Enter: %v", err)
	}
	if _, err := console.ExpectString(`Recommendations for "Dune"`); err != nil {
		fail("recommendation heading not found", err)
	}
	if _, err := console.ExpectString("Hyperion"); err != nil {
		fail("recommendation card not found", err)
	}

	// 4. Quit.
	t.Log("Sending ctrl+c...")
	if _, err := console.Send("\x03"); err != nil {
		t.Fatalf("failed to send ctrl+c: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("bookmind exited with error: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("bookmind did not exit after ctrl+c")
	}

	events, err := os.ReadFile(filepath.Join(homeDir, ".bookmind", "events.jsonl"))
	if err != nil {
		t.Fatalf("event log not written: %v", err)
	}
	for _, kind := range []string{`"sys.startup"`, `"catalog.complete"`, `"recommend.complete"`, `"sys.shutdown"`} {
		if !strings.Contains(string(events), kind) {
			t.Errorf("event log missing %s", kind)
		}
	}
}

func TestE2E_SuggestCommand(t *testing.T) {
	binPath := buildBookmind(t)
	apiURL := startStub(t, stubOptions())

	cmd := exec.Command(binPath, "suggest", "the")
	cmd.Env = bookmindEnv(t.TempDir(), apiURL)
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("suggest failed: %v\n%s", err, out)
	}
	for _, want := range []string{"The Left Hand of Darkness", "The Lonely Book", "2 results found"} {
		if !strings.Contains(string(out), want) {
			t.Errorf("suggest output missing %q:\n%s", want, out)
		}
	}
}

func TestE2E_RecommendNotFound(t *testing.T) {
	binPath := buildBookmind(t)
	apiURL := startStub(t, stubOptions())

	cmd := exec.Command(binPath, "recommend", "No Such Book")
	cmd.Env = bookmindEnv(t.TempDir(), apiURL)
	out, err := cmd.CombinedOutput()
	if err == nil {
		t.Fatalf("recommend for a missing title should fail:\n%s", out)
	}
	if !strings.Contains(string(out), "Book 'No Such Book' not found") {
		t.Errorf("output should carry the backend detail:\n%s", out)
	}
}
