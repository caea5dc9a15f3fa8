// Package testutil provides shared test helpers: temporary stores, state
// databases and git repositories with scripted history.
package testutil

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/starford/amber/internal/state"
	"github.com/starford/amber/internal/storage"
)

// Logger returns a logger that discards everything.
func Logger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

// TestState creates a temporary state database that is automatically cleaned up.
func TestState(t *testing.T) *state.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "amber-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := state.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestStore creates a temporary base directory with a storage.FS.
func TestStore(t *testing.T) (string, *storage.FS) {
	t.Helper()
	baseDir := t.TempDir()
	store, err := storage.Open(baseDir)
	if err != nil {
		t.Fatal(err)
	}
	return baseDir, store
}

// Repo is a scratch git repository whose commits get strictly increasing
// timestamps, so history order is deterministic.
type Repo struct {
	Dir  string
	Git  *git.Repository
	t    *testing.T
	n    int
	base time.Time
}

// InitRepo initialises a non-bare repository at dir (created if needed).
func InitRepo(t *testing.T, dir string) *Repo {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	r, err := git.PlainInit(dir, false)
	if err != nil {
		t.Fatalf("init %s: %v", dir, err)
	}
	return &Repo{
		Dir:  dir,
		Git:  r,
		t:    t,
		base: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC),
	}
}

// Commit writes a file and commits it with the given message, returning the hash.
func (r *Repo) Commit(message string) string {
	r.t.Helper()
	r.n++
	name := fmt.Sprintf("file-%03d.txt", r.n)
	if err := os.WriteFile(filepath.Join(r.Dir, name), []byte(message+"\n"), 0o644); err != nil {
		r.t.Fatal(err)
	}
	wt, err := r.Git.Worktree()
	if err != nil {
		r.t.Fatal(err)
	}
	if _, err := wt.Add(name); err != nil {
		r.t.Fatalf("add %s: %v", name, err)
	}
	sig := &object.Signature{
		Name:  "Ada Lovelace",
		Email: "ada@example.com",
		When:  r.base.Add(time.Duration(r.n) * time.Minute),
	}
	hash, err := wt.Commit(message, &git.CommitOptions{Author: sig, Committer: sig})
	if err != nil {
		r.t.Fatalf("commit: %v", err)
	}
	return hash.String()
}

// Commits makes n commits named "commit 1".."commit n" and returns their
// hashes, oldest first.
func (r *Repo) Commits(n int) []string {
	r.t.Helper()
	hashes := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		hashes = append(hashes, r.Commit(fmt.Sprintf("commit %d", r.n+1)))
	}
	return hashes
}
