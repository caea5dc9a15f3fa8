package ingest

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/starford/amber/internal/gitlog"
	"github.com/starford/amber/internal/watcher"
)

// GitSource discovers repositories, watches their branch refs and emits the
// commits that appear.
type GitSource struct {
	roots    []string
	depth    int
	debounce time.Duration
	differ   *gitlog.Differ
	logger   *slog.Logger

	mu      sync.Mutex
	w       *watcher.Watcher
	repos   []string
	stopped bool
}

// NewGitSource creates a git source. Nothing touches the filesystem until Run.
func NewGitSource(roots []string, depth int, debounce time.Duration, differ *gitlog.Differ, logger *slog.Logger) *GitSource {
	return &GitSource{
		roots:    roots,
		depth:    depth,
		debounce: debounce,
		differ:   differ,
		logger:   logger,
	}
}

// Name implements Source.
func (g *GitSource) Name() string { return "git" }

// Running reports whether the ref watcher is alive.
func (g *GitSource) Running() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.w != nil && g.w.Running()
}

// Repos returns the repositories found by the last discovery.
func (g *GitSource) Repos() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.repos...)
}

// Run discovers repositories, starts the watcher and turns every batch into
// diffs. Diff failures are logged per repo and do not stop the source.
// With no repositories to watch it returns at once and stays not running.
func (g *GitSource) Run(ctx context.Context, emit EmitFunc) error {
	repos := watcher.Discover(g.roots, g.depth, g.logger)
	if len(repos) == 0 {
		g.logger.Warn("git: no repositories found", slog.Any("roots", g.roots))
		return nil
	}
	g.logger.Info("git: discovered repos", slog.Int("count", len(repos)))

	w, err := watcher.New(repos, watcher.WithDebounce(g.debounce), watcher.WithLogger(g.logger))
	if err != nil {
		return err
	}

	g.mu.Lock()
	if g.stopped {
		g.mu.Unlock()
		w.Stop()
		return nil
	}
	g.w, g.repos = w, repos
	g.mu.Unlock()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			w.Stop()
		case <-done:
		}
	}()

	for batch := range w.Batches() {
		for _, repo := range batch {
			g.ingestRepo(ctx, repo, emit)
		}
	}
	return nil
}

func (g *GitSource) ingestRepo(ctx context.Context, repo string, emit EmitFunc) {
	events, err := g.differ.Diff(ctx, repo)
	if err != nil {
		g.logger.Warn("git: diff failed", slog.String("repo", repo), slog.String("error", err.Error()))
	}
	for _, ev := range events {
		if err := emit(ctx, ev); err != nil {
			g.logger.Error("git: stage failed",
				slog.String("repo", repo),
				slog.Any("hash", ev.Data["hash"]),
				slog.String("error", err.Error()))
		}
	}
	if len(events) > 0 {
		g.logger.Info("git: staged commits", slog.String("repo", repo), slog.Int("count", len(events)))
	}
}

// Stop stops the watcher. Safe to call before Run and more than once.
func (g *GitSource) Stop() {
	g.mu.Lock()
	g.stopped = true
	w := g.w
	g.mu.Unlock()
	if w != nil {
		w.Stop()
	}
}
