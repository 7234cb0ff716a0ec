package runner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/openfroyo/conformance/pkg/artifact"
	"github.com/openfroyo/conformance/pkg/report"
)

// DefaultDebounce is how long the watcher waits after the last change before
// starting a run.
const DefaultDebounce = 500 * time.Millisecond

// ReportFunc receives the outcome of every run the watcher starts.
type ReportFunc func(rep *report.RunReport, err error)

// Watcher re-runs a Runner whenever an artifact under a local project root
// changes.
type Watcher struct {
	runner   *Runner
	root     string
	targets  map[string]bool
	dirs     []string
	debounce time.Duration
	onReport ReportFunc
	logger   zerolog.Logger
}

// NewWatcher creates a watcher over the artifacts of layout under root. Zero
// debounce selects DefaultDebounce.
func NewWatcher(r *Runner, root string, layout *artifact.Layout, debounce time.Duration, onReport ReportFunc) (*Watcher, error) {
	if onReport == nil {
		return nil, fmt.Errorf("report callback is required")
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve root %s: %w", root, err)
	}

	targets := make(map[string]bool)
	dirSet := make(map[string]bool)
	for _, d := range layout.Descriptors() {
		p := filepath.Join(abs, filepath.FromSlash(d.Path))
		targets[p] = true
		dirSet[filepath.Dir(p)] = true
	}

	dirs := make([]string, 0, len(dirSet))
	for dir := range dirSet {
		dirs = append(dirs, dir)
	}
	sort.Strings(dirs)

	return &Watcher{
		runner:   r,
		root:     abs,
		targets:  targets,
		dirs:     dirs,
		debounce: debounce,
		onReport: onReport,
		logger:   r.logger.With().Str("component", "watcher").Logger(),
	}, nil
}

// Run performs an initial run, then re-runs after each debounced burst of
// artifact changes until ctx is cancelled. Directories are watched rather
// than files so editors that replace files on save are seen.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer fsw.Close()

	watched := 0
	for _, dir := range w.dirs {
		if _, err := os.Stat(dir); err != nil {
			w.logger.Warn().Err(err).Str("dir", dir).Msg("Failed to stat directory for watching")
			continue
		}
		if err := fsw.Add(dir); err != nil {
			w.logger.Warn().Err(err).Str("dir", dir).Msg("Failed to watch directory")
			continue
		}
		watched++
	}
	if watched == 0 {
		return fmt.Errorf("no artifact directory under %s could be watched", w.root)
	}

	w.logger.Info().
		Str("root", w.root).
		Int("dirs", watched).
		Dur("debounce", w.debounce).
		Msg("Started watching artifacts")

	w.runOnce(ctx)

	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info().Msg("Stopped watching artifacts")
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if !w.relevant(event) {
				continue
			}
			w.logger.Debug().
				Str("file", event.Name).
				Str("op", event.Op.String()).
				Msg("Artifact changed")
			timer.Reset(w.debounce)

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error().Err(err).Msg("Watcher error")

		case <-timer.C:
			w.runOnce(ctx)
		}
	}
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	return w.targets[filepath.Clean(event.Name)]
}

func (w *Watcher) runOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	rep, err := w.runner.Run(ctx)
	if err != nil {
		w.logger.Error().Err(err).Msg("Conformance run failed")
	}
	w.onReport(rep, err)
}
