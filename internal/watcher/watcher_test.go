package watcher

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeRef(t *testing.T, repo, branch string) {
	t.Helper()
	path := filepath.Join(repo, ".git", "refs", "heads", branch)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("0123456789abcdef\n"), 0o644); err != nil {
		t.Fatal(err)
	}
}

func nextBatch(t *testing.T, w *Watcher, timeout time.Duration) []string {
	t.Helper()
	select {
	case b, ok := <-w.Batches():
		if !ok {
			t.Fatal("batches closed")
		}
		return b
	case <-time.After(timeout):
		t.Fatal("timed out waiting for batch")
		return nil
	}
}

func TestWatcher_DebouncesIntoOneBatch(t *testing.T) {
	root := t.TempDir()
	a := mkRepo(t, filepath.Join(root, "a"))
	b := mkRepo(t, filepath.Join(root, "b"))

	w, err := New([]string{a, b}, WithDebounce(100*time.Millisecond), WithLogger(quietLogger()))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer w.Stop()

	writeRef(t, b, "main")
	writeRef(t, a, "main")
	writeRef(t, b, "feature")

	got := nextBatch(t, w, 3*time.Second)
	if len(got) != 2 || got[0] != b || got[1] != a {
		t.Errorf("batch = %v, want [%s %s]", got, b, a)
	}

	select {
	case extra := <-w.Batches():
		t.Errorf("unexpected second batch %v", extra)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestWatcher_NewRefSubdirWatched(t *testing.T) {
	repo := mkRepo(t, t.TempDir())
	w, err := New([]string{repo}, WithDebounce(50*time.Millisecond), WithLogger(quietLogger()))
	if err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	_ = os.MkdirAll(filepath.Join(repo, ".git", "refs", "heads", "feature"), 0o755)
	_ = nextBatch(t, w, 3*time.Second)

	// Give the loop a moment to register the new directory.
	time.Sleep(50 * time.Millisecond)
	writeRef(t, repo, "feature/login")
	got := nextBatch(t, w, 3*time.Second)
	if len(got) != 1 || got[0] != repo {
		t.Errorf("batch = %v", got)
	}
}

func TestWatcher_SkipsRepoWithoutRefs(t *testing.T) {
	plain := t.TempDir()
	w, err := New([]string{plain}, WithLogger(quietLogger()))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer w.Stop()
	if len(w.refs) != 0 {
		t.Errorf("expected no registrations, got %v", w.refs)
	}
}

func TestWatcher_StopIsIdempotent(t *testing.T) {
	repo := mkRepo(t, t.TempDir())
	w, err := New([]string{repo}, WithLogger(quietLogger()))
	if err != nil {
		t.Fatal(err)
	}
	if !w.Running() {
		t.Fatal("expected running")
	}
	w.Stop()
	w.Stop()
	if w.Running() {
		t.Error("expected stopped")
	}
	if _, ok := <-w.Batches(); ok {
		t.Error("batches should be closed")
	}
}

func TestChangedRepos_PathBoundary(t *testing.T) {
	w := &Watcher{refs: map[string]string{
		"/src/app/.git/refs/heads":  "/src/app",
		"/src/app2/.git/refs/heads": "/src/app2",
	}}
	got := w.changedRepos([]string{
		"/src/app2/.git/refs/heads/main",
		"/src/app/.git/refs/heads/main.lock",
		"/src/app2/.git/refs/heads/dev",
		"/elsewhere/file",
	})
	if len(got) != 2 || got[0] != "/src/app2" || got[1] != "/src/app" {
		t.Errorf("got %v", got)
	}
}
