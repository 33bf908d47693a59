// Package watch re-runs a program whenever its source file, or a file it
// depends on, changes.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/lspl-lang/lspl/pkgs/invariant"
)

// DefaultDebounce collapses the burst of events an editor emits for one save
const DefaultDebounce = 100 * time.Millisecond

// Runner executes one run of the watched program. An error is logged and
// watching continues.
type Runner func(ctx context.Context) error

// Options configures Watch
type Options struct {
	Debounce time.Duration // Quiet period after the last event before a re-run
	Logger   *slog.Logger

	// Dependencies lists further files to watch. It is called after every
	// run, so files pulled in by the latest run are picked up.
	Dependencies func() []string
}

// Watch calls run once, then again after every write to path or to one of
// its dependencies, until ctx is done. Parent directories are watched so files
// replaced by rename-on-save are picked up. Cancellation is not an error.
func Watch(ctx context.Context, path string, run Runner, opts Options) error {
	invariant.NotNil(run, "run")

	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	target, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", path, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("watching %s: %w", filepath.Dir(target), err)
	}
	dirs := map[string]bool{filepath.Dir(target): true}
	targets := map[string]bool{target: true}

	refresh := func() {
		if opts.Dependencies == nil {
			return
		}
		targets = map[string]bool{target: true}
		for _, dep := range opts.Dependencies() {
			abs, err := filepath.Abs(dep)
			if err != nil {
				logger.Warn("skipping dependency", "file", dep, "error", err)
				continue
			}
			targets[abs] = true

			dir := filepath.Dir(abs)
			if dirs[dir] {
				continue
			}
			if err := watcher.Add(dir); err != nil {
				logger.Warn("cannot watch dependency", "file", abs, "error", err)
				continue
			}
			dirs[dir] = true
		}
	}

	runOnce := func(reason string) {
		logger.Debug("run", "file", target, "reason", reason)
		if err := run(ctx); err != nil {
			logger.Error("run failed", "file", target, "error", err)
		}
		refresh()
	}

	runOnce("start")

	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			changed := filepath.Clean(event.Name)
			if !targets[changed] || !(event.Has(fsnotify.Write) || event.Has(fsnotify.Create)) {
				continue
			}
			logger.Debug("change", "file", changed, "op", event.Op.String())
			if timer == nil {
				timer = time.NewTimer(opts.Debounce)
			} else {
				timer.Reset(opts.Debounce)
			}
			fire = timer.C

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch error", "file", target, "error", err)

		case <-fire:
			fire = nil
			runOnce("change")
		}
	}
}
