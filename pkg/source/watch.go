package source

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/gofrs/flock"

	"github.com/nilp0inter/monana/pkg/expr"
	"github.com/nilp0inter/monana/pkg/log"
)

const (
	// LockFileName is created in every watched directory.
	LockFileName = ".monana.lock"

	DefaultDebounce     = 2 * time.Second
	DefaultPollInterval = 500 * time.Millisecond
)

// ErrLocked is returned when another daemon already watches a directory.
var ErrLocked = errors.New("directory is locked by another monana process")

// WatchOptions configure a [Watcher].
type WatchOptions struct {
	// Filter drops events it evaluates to false. Nil accepts all events.
	Filter *expr.Filter
	Options
	// Debounce is the quiet period required before a file is processed.
	Debounce time.Duration
	// PollInterval is how often pending files are checked.
	PollInterval time.Duration
}

// pending tracks a file between its last event and its dispatch.
type pending struct {
	since  time.Time
	op     fsnotify.Op
	size   int64
	polled bool
}

// Watcher emits files created or changed in a directory once they are
// stable. Existing files are emitted on start.
type Watcher struct {
	state map[string]*pending
	fsw   *fsnotify.Watcher
	root  string
	opts  WatchOptions
}

// NewWatcher creates a [Watcher] for dir.
func NewWatcher(dir string, opts WatchOptions) (*Watcher, error) {
	root, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSource, err)
	}

	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}

	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}

	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSource, err)
	}

	return &Watcher{root: root, opts: opts, state: map[string]*pending{}}, nil
}

// Root returns the absolute watched directory.
func (w *Watcher) Root() string {
	return w.root
}

// Run watches until ctx is done. Each stable file is passed to emit from a
// single goroutine. On shutdown Run closes the watcher, calls wait (if not
// nil) to let in-flight work finish, releases the lock and returns.
func (w *Watcher) Run(ctx context.Context, emit Emit, wait func()) error {
	info, err := os.Stat(w.root)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSource, err)
	}

	if !info.IsDir() {
		return fmt.Errorf("%w: %s: not a directory", ErrSource, w.root)
	}

	lock := flock.New(filepath.Join(w.root, LockFileName))

	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("%w: lock %s: %w", ErrSource, w.root, err)
	}

	if !locked {
		return fmt.Errorf("%w: %s", ErrLocked, w.root)
	}

	defer func() {
		if err := lock.Unlock(); err != nil {
			log.WithContext(ctx).WarnContext(ctx, "release lock",
				slog.String("path", lock.Path()),
				slog.Any("error", err),
			)
		}
	}()

	if wait != nil {
		defer wait()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("%w: create watcher: %w", ErrSource, err)
	}

	w.fsw = fsw

	defer func() {
		if err := fsw.Close(); err != nil {
			log.WithContext(ctx).DebugContext(ctx, "close watcher", slog.Any("error", err))
		}
	}()

	if err := w.addTree(ctx, w.root, time.Time{}); err != nil {
		return err
	}

	logger := log.WithContext(ctx).With(slog.String("dir", w.root))
	logger.InfoContext(ctx, "watching directory",
		slog.Duration("debounce", w.opts.Debounce),
		slog.Bool("recursive", w.opts.Recursive),
	)

	ticker := time.NewTicker(w.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.InfoContext(ctx, "stopping watch")
			return nil

		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}

			w.handle(ctx, ev, time.Now())

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}

			logger.WarnContext(ctx, "watch error", slog.Any("error", err))

		case now := <-ticker.C:
			for _, path := range w.promote(now) {
				emit(ctx, path)
			}
		}
	}
}

// addTree watches dir and, when recursive, its subdirectories. Files
// already present are tracked as pending since the given time.
func (w *Watcher) addTree(ctx context.Context, dir string, since time.Time) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return fmt.Errorf("%w: %w", ErrSource, err)
			}

			return nil
		}

		if d.IsDir() {
			if path != w.root && !w.acceptDir(path) {
				return fs.SkipDir
			}

			if err := w.fsw.Add(path); err != nil {
				return fmt.Errorf("%w: watch %s: %w", ErrSource, path, err)
			}

			if path != dir && !w.opts.Recursive {
				return fs.SkipDir
			}

			return nil
		}

		if d.Type().IsRegular() {
			w.track(ctx, path, fsnotify.Create, since)
		}

		return nil
	})
}

func (w *Watcher) acceptDir(path string) bool {
	if !w.opts.Recursive {
		return false
	}

	return w.opts.Hidden || !strings.HasPrefix(filepath.Base(path), ".")
}

func (w *Watcher) handle(ctx context.Context, ev fsnotify.Event, now time.Time) {
	if ev.Op == fsnotify.Chmod {
		return
	}

	info, err := os.Stat(ev.Name)
	if err != nil {
		// Removed or renamed away.
		delete(w.state, ev.Name)
		return
	}

	if info.IsDir() {
		if ev.Has(fsnotify.Create) && w.acceptDir(ev.Name) {
			if err := w.addTree(ctx, ev.Name, now); err != nil {
				log.WithContext(ctx).WarnContext(ctx, "watch new directory",
					slog.String("path", ev.Name),
					slog.Any("error", err),
				)
			}
		}

		return
	}

	if !info.Mode().IsRegular() {
		return
	}

	w.track(ctx, ev.Name, ev.Op, now)
}

func (w *Watcher) track(ctx context.Context, path string, op fsnotify.Op, now time.Time) {
	if filepath.Base(path) == LockFileName || !w.opts.accepts(w.root, path) {
		return
	}

	ok, err := w.opts.Filter.Match(path, op)
	if err != nil {
		log.WithContext(ctx).WarnContext(ctx, "filter failed, dropping event",
			slog.String("path", path),
			slog.Any("error", err),
		)

		return
	}

	if !ok {
		return
	}

	p, exists := w.state[path]
	if !exists {
		w.state[path] = &pending{since: now, op: op, size: -1}
		return
	}

	p.since = now
	p.op |= op
	p.polled = false
}

// promote returns, sorted, the pending paths that have been quiet for the
// debounce period and whose size did not change between two polls.
func (w *Watcher) promote(now time.Time) []string {
	var ready []string

	for path, p := range w.state {
		if now.Sub(p.since) < w.opts.Debounce {
			continue
		}

		info, err := os.Stat(path)
		if err != nil {
			delete(w.state, path)
			continue
		}

		if !p.polled || p.size != info.Size() {
			p.size = info.Size()
			p.polled = true

			continue
		}

		f, err := os.Open(path)
		if err != nil {
			continue
		}

		_ = f.Close() //nolint:errcheck // Read-only probe.

		delete(w.state, path)

		ready = append(ready, path)
	}

	slices.Sort(ready)

	return ready
}
