package tester

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const defaultDebounce = 100 * time.Millisecond

// Watcher calls back after files change. Paths may name files or directories; a directory is watched
// recursively for suite files. Bursts of events are collapsed into one call made after a quiet period.
type Watcher struct {
	Paths    []string
	Debounce time.Duration
	Logger   *slog.Logger
}

// Watch blocks until ctx is done. onChange runs on the calling goroutine, so calls never overlap.
func (w *Watcher) Watch(ctx context.Context, onChange func()) error {
	logger := w.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	debounce := w.Debounce
	if debounce <= 0 {
		debounce = defaultDebounce
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create a file watcher: %w", err)
	}
	defer fw.Close()

	t := &watchTargets{
		fw:     fw,
		files:  map[string]struct{}{},
		dirs:   map[string]struct{}{},
		logger: logger,
	}
	for _, p := range w.Paths {
		err := t.add(p)
		if err != nil {
			return err
		}
	}
	logger.Info("watching files", "paths", w.Paths, "debounce", debounce)

	var timer *time.Timer
	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return fmt.Errorf("the file watcher was closed")
			}
			if !t.relevant(ev) {
				continue
			}
			logger.Debug("file changed", "path", ev.Name, "op", ev.Op.String())
			if timer != nil {
				timer.Stop()
			}
			timer = time.NewTimer(debounce)
			fire = timer.C
		case <-fire:
			fire = nil
			onChange()
		case err, ok := <-fw.Errors:
			if !ok {
				return fmt.Errorf("the file watcher was closed")
			}
			logger.Error("file watcher error", "error", err)
		}
	}
}

// watchTargets tracks what the watcher is interested in. A file is watched through its parent directory
// because editors often replace a file rather than write it in place.
type watchTargets struct {
	fw     *fsnotify.Watcher
	files  map[string]struct{}
	dirs   map[string]struct{}
	logger *slog.Logger
}

func (t *watchTargets) add(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	fi, err := os.Stat(abs)
	if err != nil {
		return err
	}
	if !fi.IsDir() {
		t.files[abs] = struct{}{}
		return t.fw.Add(filepath.Dir(abs))
	}
	return filepath.WalkDir(abs, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		t.dirs[p] = struct{}{}
		return t.fw.Add(p)
	})
}

func (t *watchTargets) relevant(ev fsnotify.Event) bool {
	if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) && !ev.Has(fsnotify.Remove) {
		return false
	}
	name, err := filepath.Abs(ev.Name)
	if err != nil {
		return false
	}
	if _, ok := t.files[name]; ok {
		return true
	}
	if _, ok := t.dirs[filepath.Dir(name)]; !ok {
		return false
	}
	if ev.Has(fsnotify.Create) {
		if fi, err := os.Stat(name); err == nil && fi.IsDir() {
			// A new subdirectory may receive suite files later. Failing to watch it does not stop the
			// others from being watched.
			err := t.add(name)
			if err != nil {
				t.logger.Error("failed to watch a directory", "path", name, "error", err)
			}
			return false
		}
	}
	return isSuiteFile(name)
}
