package runner

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/openfroyo/conformance/pkg/artifact"
	"github.com/openfroyo/conformance/pkg/report"
)

// copyFixtures writes the conformant fixtures into a fresh directory.
func copyFixtures(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	for name, f := range conformantFS(t) {
		if err := os.WriteFile(filepath.Join(dir, name), f.Data, 0o644); err != nil {
			t.Fatalf("Failed to write fixture %s: %v", name, err)
		}
	}
	return dir
}

type watchHarness struct {
	reports chan *report.RunReport
	cancel  context.CancelFunc
	done    chan error
}

func startWatcher(t *testing.T, dir string) *watchHarness {
	t.Helper()

	r := newTestRunner(t, artifact.NewDirSource(dir), 0)
	ctx, cancel := context.WithCancel(context.Background())

	h := &watchHarness{
		reports: make(chan *report.RunReport, 16),
		cancel:  cancel,
		done:    make(chan error, 1),
	}

	w, err := NewWatcher(r, dir, artifact.DefaultLayout(), 50*time.Millisecond, func(rep *report.RunReport, err error) {
		if err != nil {
			t.Errorf("run failed: %v", err)
			return
		}
		select {
		case h.reports <- rep:
		case <-ctx.Done():
		}
	})
	if err != nil {
		cancel()
		t.Fatalf("NewWatcher() error = %v", err)
	}

	go func() { h.done <- w.Run(ctx) }()
	return h
}

func (h *watchHarness) stop(t *testing.T) {
	t.Helper()
	h.cancel()
	select {
	case err := <-h.done:
		if err != nil {
			t.Errorf("Run() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop")
	}
}

func (h *watchHarness) next(t *testing.T, timeout time.Duration) *report.RunReport {
	t.Helper()
	select {
	case rep := <-h.reports:
		return rep
	case <-time.After(timeout):
		return nil
	}
}

func TestNewWatcherRequiresCallback(t *testing.T) {
	r := newTestRunner(t, artifact.NewDirSource(conformantDir), 0)
	if _, err := NewWatcher(r, conformantDir, artifact.DefaultLayout(), 0, nil); err == nil {
		t.Fatal("expected error for nil callback")
	}
}

func TestWatcherRerunsOnArtifactChange(t *testing.T) {
	defer goleak.VerifyNone(t)

	dir := copyFixtures(t)
	h := startWatcher(t, dir)
	defer h.stop(t)

	first := h.next(t, 10*time.Second)
	if first == nil {
		t.Fatal("no initial report")
	}
	if !first.Conformant() {
		t.Fatalf("initial run not conformant: %d failed, %d errored", first.Failed, first.Errored)
	}

	if err := os.WriteFile(filepath.Join(dir, artifact.NginxConf), []byte("events {\n"), 0o644); err != nil {
		t.Fatalf("Failed to modify nginx.conf: %v", err)
	}

	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		rep := h.next(t, time.Until(deadline))
		if rep == nil {
			break
		}
		if rep.Conformant() {
			continue
		}
		for _, res := range rep.Results {
			if res.Artifact != artifact.NginxConf && !res.Verdict.IsPass() {
				t.Errorf("%s changed verdict: %s", res.RuleID, res.Verdict)
			}
		}
		return
	}
	t.Fatal("no report reflected the modified nginx.conf")
}

func TestWatcherIgnoresUnrelatedFiles(t *testing.T) {
	defer goleak.VerifyNone(t)

	dir := copyFixtures(t)
	h := startWatcher(t, dir)
	defer h.stop(t)

	if h.next(t, 10*time.Second) == nil {
		t.Fatal("no initial report")
	}

	if err := os.WriteFile(filepath.Join(dir, "NOTES.md"), []byte("scratch\n"), 0o644); err != nil {
		t.Fatalf("Failed to write unrelated file: %v", err)
	}

	if rep := h.next(t, 500*time.Millisecond); rep != nil {
		t.Errorf("unexpected run %s after unrelated change", rep.Meta.ID)
	}
}
