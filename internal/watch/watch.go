// Package watch reports revisions of files as they are saved. Each settled
// write is diffed against the previous snapshot of the file.
package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/Sumatoshi-tech/revdiff/internal/batchio"
	"github.com/Sumatoshi-tech/revdiff/pkg/dedupe"
	"github.com/Sumatoshi-tech/revdiff/pkg/textdiff"
)

// DefaultDebounce is how long a file must stay quiet before it is diffed.
const DefaultDebounce = 200 * time.Millisecond

// ErrNoFiles is returned by New without any path.
var ErrNoFiles = errors.New("no files to watch")

// Event is one observed revision.
type Event struct {
	Path   string              `json:"path"`
	Time   time.Time           `json:"time"`
	Result textdiff.DiffResult `json:"result"`
	// Elapsed is the time spent diffing.
	Elapsed time.Duration `json:"-"`
}

// Options configures a Watcher.
type Options struct {
	// Debounce defaults to DefaultDebounce.
	Debounce time.Duration
	// MaxBytes of 0 disables the file size check.
	MaxBytes uint64
	Diff     []textdiff.Option
	Logger   *slog.Logger
}

// Watcher tracks a fixed set of files.
type Watcher struct {
	fs        *fsnotify.Watcher
	opts      Options
	logger    *slog.Logger
	snapshots map[string]string
	pending   map[string]time.Time
}

// New snapshots paths and subscribes to their parent directories, so that
// editors replacing a file by rename are still followed.
func New(paths []string, opts Options) (*Watcher, error) {
	if len(paths) == 0 {
		return nil, ErrNoFiles
	}

	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	snapshots := make(map[string]string, len(paths))
	dirs := make([]string, 0, len(paths))

	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, fmt.Errorf("resolve %s: %w", p, err)
		}

		text, err := batchio.ReadFile(abs, opts.MaxBytes)
		if err != nil {
			return nil, err
		}

		snapshots[abs] = text
		dirs = append(dirs, filepath.Dir(abs))
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	for _, dir := range dedupe.Strings(dirs) {
		err = fsw.Add(dir)
		if err != nil {
			return nil, errors.Join(fmt.Errorf("watch %s: %w", dir, err), fsw.Close())
		}
	}

	return &Watcher{
		fs:        fsw,
		opts:      opts,
		logger:    logger,
		snapshots: snapshots,
		pending:   make(map[string]time.Time),
	}, nil
}

// Close releases the underlying watcher.
func (w *Watcher) Close() error {
	return w.fs.Close()
}

// Run delivers events to emit until ctx is done. An error from emit stops
// Run and is returned.
func (w *Watcher) Run(ctx context.Context, emit func(Event) error) error {
	ticker := time.NewTicker(w.opts.Debounce / 2) //nolint:mnd // poll at twice the debounce rate.
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.fs.Events:
			if !ok {
				return nil
			}

			w.note(event)

		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}

			w.logger.WarnContext(ctx, "watch error", "error", err)

		case now := <-ticker.C:
			err := w.flush(now, emit)
			if err != nil {
				return err
			}
		}
	}
}

func (w *Watcher) note(event fsnotify.Event) {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return
	}

	name := filepath.Clean(event.Name)
	if _, tracked := w.snapshots[name]; !tracked {
		return
	}

	w.pending[name] = time.Now()
}

func (w *Watcher) flush(now time.Time, emit func(Event) error) error {
	for path, changed := range w.pending {
		if now.Sub(changed) < w.opts.Debounce {
			continue
		}

		delete(w.pending, path)

		event, ok := w.revise(path, now)
		if !ok {
			continue
		}

		err := emit(event)
		if err != nil {
			return err
		}
	}

	return nil
}

// revise diffs the current content of path against its snapshot.
func (w *Watcher) revise(path string, now time.Time) (Event, bool) {
	text, err := batchio.ReadFile(path, w.opts.MaxBytes)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			w.logger.Warn("read revision", "path", path, "error", err)
		}

		return Event{}, false
	}

	prev := w.snapshots[path]
	if text == prev {
		return Event{}, false
	}

	start := time.Now()

	res, err := textdiff.ComputeDiff(prev, text, w.opts.Diff...)
	if err != nil {
		w.logger.Warn("diff revision", "path", path, "error", err)

		return Event{}, false
	}

	w.snapshots[path] = text

	return Event{Path: path, Time: now, Result: res, Elapsed: time.Since(start)}, true
}
