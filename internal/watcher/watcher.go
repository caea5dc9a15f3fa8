package watcher

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/amber/internal/apperr"
)

// DefaultDebounce is the quiet period after the last ref change before a
// batch is delivered.
const DefaultDebounce = 2 * time.Second

// refsDir is watched inside every repository.
var refsDir = filepath.Join(".git", "refs", "heads")

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce overrides the quiet period.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(w *Watcher) { w.logger = l }
}

// Watcher watches .git/refs/heads of a fixed set of repositories and delivers
// the repos whose branches moved, one debounced batch at a time.
type Watcher struct {
	fsw      *fsnotify.Watcher
	logger   *slog.Logger
	debounce time.Duration

	// refs maps each watched refs/heads dir to its repository root.
	refs    map[string]string
	batches chan []string

	stopCh   chan struct{}
	done     chan struct{}
	stopOnce sync.Once
	running  atomic.Bool
}

// New registers repos and starts the debounce loop. Repositories without a
// refs/heads directory, or whose registration fails, are logged and skipped.
func New(repos []string, opts ...Option) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperr.ErrWatcher, err)
	}

	w := &Watcher{
		fsw:      fsw,
		logger:   slog.Default(),
		debounce: DefaultDebounce,
		refs:     make(map[string]string, len(repos)),
		batches:  make(chan []string),
		stopCh:   make(chan struct{}),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}

	for _, repo := range repos {
		dir := filepath.Join(repo, refsDir)
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			w.logger.Warn("watcher: no refs dir, skipping", slog.String("repo", repo))
			continue
		}
		if err := addDirsRecursive(fsw, dir); err != nil {
			w.logger.Warn("watcher: register failed",
				slog.String("repo", repo),
				slog.String("error", err.Error()))
			continue
		}
		w.refs[dir] = repo
	}

	w.running.Store(true)
	go w.loop()
	w.logger.Info("watcher: started", slog.Int("repos", len(w.refs)))
	return w, nil
}

// Batches delivers repository batches. The channel is closed once the
// watcher has stopped.
func (w *Watcher) Batches() <-chan []string {
	return w.batches
}

// Running reports whether the debounce loop is alive.
func (w *Watcher) Running() bool {
	return w.running.Load()
}

// Stop halts delivery, closes the fsnotify handle and waits for the loop to
// exit. It is safe to call more than once.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
		_ = w.fsw.Close()
	})
	<-w.done
}

func (w *Watcher) loop() {
	defer func() {
		w.running.Store(false)
		close(w.batches)
		close(w.done)
		w.logger.Info("watcher: stopped")
	}()

	var (
		pending []string
		timer   *time.Timer
		timerC  <-chan time.Time
	)
	arm := func() {
		if timer == nil {
			timer = time.NewTimer(w.debounce)
			timerC = timer.C
			return
		}
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(w.debounce)
	}
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-w.stopCh:
			return

		case <-timerC:
			batch := w.changedRepos(pending)
			pending = nil
			if len(batch) == 0 {
				continue
			}
			select {
			case w.batches <- batch:
			case <-w.stopCh:
				return
			}

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if ev.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					if err := addDirsRecursive(w.fsw, ev.Name); err != nil {
						w.logger.Warn("watcher: add new dir failed",
							slog.String("path", ev.Name),
							slog.String("error", err.Error()))
					}
				}
			}
			pending = append(pending, ev.Name)
			arm()

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Error("watcher: error", slog.String("error", err.Error()))
		}
	}
}

// changedRepos maps event paths to distinct repositories, in order of first
// appearance.
func (w *Watcher) changedRepos(paths []string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, p := range paths {
		repo, ok := w.repoFor(p)
		if !ok {
			continue
		}
		if _, dup := seen[repo]; dup {
			continue
		}
		seen[repo] = struct{}{}
		out = append(out, repo)
	}
	return out
}

func (w *Watcher) repoFor(path string) (string, bool) {
	for dir, repo := range w.refs {
		if path == dir || strings.HasPrefix(path, dir+string(filepath.Separator)) {
			return repo, true
		}
	}
	return "", false
}

// addDirsRecursive adds root and all its subdirectories to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(path)
		}
		return nil
	})
}
