// Package watcher finds git repositories under a set of roots and reports,
// in debounced batches, which of them had a branch ref change.
package watcher

import (
	"log/slog"
	"os"
	"path/filepath"

	pkgconfig "github.com/starford/amber/pkg/config"
)

// skipDirs are never descended into: dependency caches and build output.
var skipDirs = map[string]struct{}{
	"node_modules": {},
	"target":       {},
	".git":         {},
	"vendor":       {},
	"dist":         {},
	"build":        {},
	".venv":        {},
}

// Discover returns the git repository roots found under roots, descending at
// most depth directory levels below each root. A directory is a repository
// root when it directly contains a .git directory; nested repositories are
// reported too. Unreadable directories are skipped. The result holds no
// duplicates and keeps discovery order.
func Discover(roots []string, depth int, logger *slog.Logger) []string {
	seen := make(map[string]struct{})
	var repos []string
	add := func(dir string) {
		if _, ok := seen[dir]; ok {
			return
		}
		seen[dir] = struct{}{}
		repos = append(repos, dir)
	}

	for _, root := range roots {
		expanded, err := pkgconfig.ExpandHome(root)
		if err != nil {
			logger.Warn("discover: cannot expand root", slog.String("root", root), slog.String("error", err.Error()))
			continue
		}
		abs, err := filepath.Abs(expanded)
		if err != nil {
			logger.Warn("discover: cannot resolve root", slog.String("root", root), slog.String("error", err.Error()))
			continue
		}
		walk(abs, depth, add)
	}

	logger.Debug("discover: done", slog.Int("repos", len(repos)))
	return repos
}

func walk(dir string, depth int, add func(string)) {
	if isRepo(dir) {
		add(dir)
	}
	if depth <= 0 {
		return
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	for _, e := range entries {
		if _, skip := skipDirs[e.Name()]; skip {
			continue
		}
		child := filepath.Join(dir, e.Name())
		if !isDir(e.Type(), child) {
			continue
		}
		walk(child, depth-1, add)
	}
}

// isDir follows symlinks so a linked checkout is still found.
func isDir(mode os.FileMode, path string) bool {
	if mode.IsDir() {
		return true
	}
	if mode&os.ModeSymlink == 0 {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func isRepo(dir string) bool {
	info, err := os.Stat(filepath.Join(dir, ".git"))
	return err == nil && info.IsDir()
}
