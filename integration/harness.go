//go:build integration

package integration

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/schaermu/plugsync/internal/testutil"
)

const (
	defaultTimeout = 2 * time.Minute
	outputTimeout  = 10 * time.Second
)

// Harness builds the plugsync binary and runs it against temporary directories
type Harness struct {
	t      *testing.T
	binary string
	Source string
	Vault  string

	cmd    *exec.Cmd
	output *syncBuffer
	done   chan struct{}
	err    error
}

// NewHarness builds the binary and creates an empty source directory and vault
func NewHarness(t *testing.T, ctx context.Context) *Harness {
	t.Helper()

	root := t.TempDir()
	h := &Harness{
		t:      t,
		Source: filepath.Join(root, "plugin"),
		Vault:  filepath.Join(root, "vault"),
	}
	for _, dir := range []string{h.Source, h.Vault} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("create %s: %v", dir, err)
		}
	}

	binary, err := testutil.BuildBinary(ctx, root, "cmd/plugsync")
	if err != nil {
		t.Fatalf("build plugsync: %v", err)
	}
	h.binary = binary
	t.Logf("Built %s", h.binary)

	return h
}

// PluginDir returns the destination directory for pluginID
func (h *Harness) PluginDir(pluginID string) string {
	return filepath.Join(h.Vault, ".obsidian", "plugins", pluginID)
}

// WriteSource writes a file below the source directory
func (h *Harness) WriteSource(rel, content string) {
	h.t.Helper()
	path := filepath.Join(h.Source, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		h.t.Fatalf("create parent of %s: %v", rel, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		h.t.Fatalf("write %s: %v", rel, err)
	}
}

// Run executes plugsync to completion and returns its output and exit code
func (h *Harness) Run(ctx context.Context, args ...string) (string, int) {
	h.t.Helper()
	cmd := exec.CommandContext(ctx, h.binary, args...)
	out, err := cmd.CombinedOutput()

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		return string(out), 0
	case errors.As(err, &exitErr):
		return string(out), exitErr.ExitCode()
	default:
		h.t.Fatalf("run plugsync: %v", err)
		return "", -1
	}
}

// Start launches plugsync in the background
func (h *Harness) Start(ctx context.Context, args ...string) {
	h.t.Helper()
	h.output = &syncBuffer{}
	h.cmd = exec.CommandContext(ctx, h.binary, args...)
	h.cmd.Stdout = h.output
	h.cmd.Stderr = h.output
	h.done = make(chan struct{})

	if err := h.cmd.Start(); err != nil {
		h.t.Fatalf("start plugsync: %v", err)
	}
	go func() {
		h.err = h.cmd.Wait()
		close(h.done)
	}()

	h.t.Cleanup(func() {
		select {
		case <-h.done:
		default:
			_ = h.cmd.Process.Kill()
			<-h.done
		}
		if h.t.Failed() {
			h.t.Logf("plugsync output:\n%s", h.output.String())
		}
	})
}

// WaitForOutput blocks until the process has printed want
func (h *Harness) WaitForOutput(want string) {
	h.t.Helper()
	deadline := time.Now().Add(outputTimeout)
	for time.Now().Before(deadline) {
		if strings.Contains(h.output.String(), want) {
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	h.t.Fatalf("timed out waiting for %q in output:\n%s", want, h.output.String())
}

// WaitForFile blocks until path holds want
func (h *Harness) WaitForFile(path, want string) {
	h.t.Helper()
	deadline := time.Now().Add(outputTimeout)
	for time.Now().Before(deadline) {
		if data, err := os.ReadFile(path); err == nil && string(data) == want {
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	data, err := os.ReadFile(path)
	h.t.Fatalf("timed out waiting for %s to contain %q (got %q, err %v)", path, want, data, err)
}

// Interrupt sends SIGINT and returns the exit code
func (h *Harness) Interrupt() int {
	h.t.Helper()
	if err := h.cmd.Process.Signal(syscall.SIGINT); err != nil {
		h.t.Fatalf("signal plugsync: %v", err)
	}

	select {
	case <-h.done:
	case <-time.After(outputTimeout):
		h.t.Fatal("plugsync did not exit after SIGINT")
	}

	var exitErr *exec.ExitError
	if errors.As(h.err, &exitErr) {
		return exitErr.ExitCode()
	}
	if h.err != nil {
		h.t.Fatalf("wait plugsync: %v", h.err)
	}
	return 0
}

// Output returns everything the process has printed so far
func (h *Harness) Output() string {
	return h.output.String()
}

// syncBuffer is a bytes.Buffer safe for concurrent writes and reads
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
