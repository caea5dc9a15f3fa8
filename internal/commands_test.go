package internal

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/starford/amber/internal/apperr"
	"github.com/starford/amber/internal/models"
	"github.com/starford/amber/internal/noteservice"
	"github.com/starford/amber/internal/sse"
	"github.com/starford/amber/internal/storage"
)

const fakeNote = "---\ndate: 2024-05-01\ntopics: [watcher]\npeople: [Ada]\n---\n## Shipped\n- ref watcher (abc123)\n"

func testConfig(t *testing.T, apiBase string) *Config {
	t.Helper()
	t.Setenv("AMBER_TEST_KEY", "sk-test")
	cfg := NewDefaultConfig()
	cfg.App.LogLevel = 8 // above error: keep test output quiet
	cfg.App.HTTP.Port = 0
	cfg.Storage.BaseDir = t.TempDir()
	cfg.Summarizer.APIBase = apiBase
	cfg.Summarizer.APIKeyEnv = "AMBER_TEST_KEY"
	cfg.Summarizer.Timeout = 5 * time.Second
	return cfg
}

func fakeCompletions(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" || r.Header.Get("Authorization") != "Bearer sk-test" {
			http.Error(w, "unexpected request", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"---\ndate: 2024-05-01\ntopics: [watcher]\npeople: [Ada]\n---\n## Shipped\n- ref watcher (abc123)\n"}}]}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestSummarizeNow_WritesNoteAndClearsStaging(t *testing.T) {
	cfg := testConfig(t, fakeCompletions(t).URL)

	store, err := storage.Open(cfg.Storage.BaseDir)
	if err != nil {
		t.Fatal(err)
	}
	_ = store.AppendStaging("2024-05-01", `{"source":"git","kind":"Commit"}`)
	_ = store.AppendStaging("2024-05-01", `{"source":"git","kind":"Commit"}`)

	ctx := context.Background()
	out, err := SummarizeNow(ctx, cfg, "2024-05-01")
	if err != nil {
		t.Fatalf("SummarizeNow: %v", err)
	}
	if out.Queued || out.Result == nil || out.Result.Events != 2 {
		t.Fatalf("outcome = %+v", out)
	}

	if _, err := os.Stat(filepath.Join(cfg.Storage.BaseDir, "staging", "2024-05-01.jsonl")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("staging file should be gone, stat err = %v", err)
	}

	note, err := ReadNote(ctx, cfg, "2024-05-01")
	if err != nil {
		t.Fatalf("ReadNote: %v", err)
	}
	if note.Content != fakeNote {
		t.Errorf("content = %q", note.Content)
	}
	if len(note.Topics) != 1 || note.Topics[0] != "watcher" || note.Events != 2 {
		t.Errorf("note = %+v", note)
	}

	st, live, err := QueryStatus(ctx, cfg)
	if err != nil {
		t.Fatalf("QueryStatus: %v", err)
	}
	if live {
		t.Error("no agent is running, status should come from disk")
	}
	if st.BufferedEvents != 0 || st.LastSummarized == nil || *st.LastSummarized != "2024-05-01" {
		t.Errorf("status = %+v", st)
	}
}

func TestSummarizeNow_NothingStaged(t *testing.T) {
	cfg := testConfig(t, "http://127.0.0.1:1")
	out, err := SummarizeNow(context.Background(), cfg, "2024-05-01")
	if err != nil {
		t.Fatalf("SummarizeNow: %v", err)
	}
	if out.Result == nil || !out.Result.Skipped {
		t.Errorf("outcome = %+v", out)
	}
}

func TestSummarizeNow_ProviderFailureKeepsStaging(t *testing.T) {
	cfg := testConfig(t, "http://127.0.0.1:1")
	store, err := storage.Open(cfg.Storage.BaseDir)
	if err != nil {
		t.Fatal(err)
	}
	_ = store.AppendStaging("2024-05-01", `{"a":1}`)

	if _, err := SummarizeNow(context.Background(), cfg, "2024-05-01"); !errors.Is(err, apperr.ErrProvider) {
		t.Fatalf("err = %v, want ErrProvider", err)
	}
	lines, _ := store.ReadStaging("2024-05-01")
	if len(lines) != 1 {
		t.Errorf("staging lines = %d, want 1", len(lines))
	}
}

func TestReadNote_Missing(t *testing.T) {
	cfg := testConfig(t, "")
	if _, err := ReadNote(context.Background(), cfg, "2023-01-01"); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestDiscoverRepos(t *testing.T) {
	root := t.TempDir()
	for _, d := range []string{"a/.git", "b/node_modules/c/.git", "d"} {
		if err := os.MkdirAll(filepath.Join(root, d), 0o755); err != nil {
			t.Fatal(err)
		}
	}
	cfg := testConfig(t, "")
	cfg.Sources.Git.WatchPaths = []string{root}
	cfg.Sources.Git.ScanDepth = 3

	repos := DiscoverRepos(cfg)
	if len(repos) != 1 || repos[0] != filepath.Join(root, "a") {
		t.Errorf("repos = %v", repos)
	}
}

func TestHTTPHandler_HealthAndStatus(t *testing.T) {
	cfg := testConfig(t, "")
	store, err := storage.Open(cfg.Storage.BaseDir)
	if err != nil {
		t.Fatal(err)
	}
	broker := sse.NewBroker(time.Second)
	defer broker.Close()

	h := newHTTPHandler(cfg, noteservice.NewService(store, nil), broker)

	for _, path := range []string{"/health/live", "/health/ready", "/api/status"} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Errorf("GET %s = %d", path, rec.Code)
		}
	}
}

// fakeAgent serves /api/summarize like a running agent and points cfg at it.
func fakeAgent(t *testing.T, cfg *Config, calls *atomic.Int32) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/summarize" {
			http.NotFound(w, r)
			return
		}
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte(`{"date":"` + models.DateOf(time.Now()) + `","queued":true}`))
	}))
	t.Cleanup(srv.Close)

	host, port, err := net.SplitHostPort(srv.Listener.Addr().String())
	if err != nil {
		t.Fatal(err)
	}
	cfg.App.HTTP.Host = host
	cfg.App.HTTP.Port, _ = strconv.Atoi(port)
}

func TestSummarizeNow_TodayGoesToRunningAgent(t *testing.T) {
	cfg := testConfig(t, "http://127.0.0.1:1")
	var calls atomic.Int32
	fakeAgent(t, cfg, &calls)

	store, err := storage.Open(cfg.Storage.BaseDir)
	if err != nil {
		t.Fatal(err)
	}
	today := models.DateOf(time.Now())
	_ = store.AppendStaging(today, `{"a":1}`)

	out, err := SummarizeNow(context.Background(), cfg, "")
	if err != nil {
		t.Fatalf("SummarizeNow: %v", err)
	}
	if !out.Queued || calls.Load() != 1 {
		t.Errorf("outcome = %+v, agent calls = %d", out, calls.Load())
	}
	// The agent owns today's staging; this process must not touch it.
	lines, _ := store.ReadStaging(today)
	if len(lines) != 1 {
		t.Errorf("staging lines = %d, want 1", len(lines))
	}
}

func TestSummarizeNow_PastDateRunsLocally(t *testing.T) {
	cfg := testConfig(t, fakeCompletions(t).URL)
	var calls atomic.Int32
	fakeAgent(t, cfg, &calls)

	store, err := storage.Open(cfg.Storage.BaseDir)
	if err != nil {
		t.Fatal(err)
	}
	_ = store.AppendStaging("2024-05-01", `{"a":1}`)

	out, err := SummarizeNow(context.Background(), cfg, "2024-05-01")
	if err != nil {
		t.Fatalf("SummarizeNow: %v", err)
	}
	if out.Queued || out.Result == nil || out.Result.Events != 1 || calls.Load() != 0 {
		t.Errorf("outcome = %+v, agent calls = %d", out, calls.Load())
	}
}
