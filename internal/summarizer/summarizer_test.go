package summarizer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/starford/amber/internal/llm"
	"github.com/starford/amber/internal/testutil"
)

// lenProvider answers "len=<N>" where N is the length of the event text that
// follows the first blank line of the user turn.
type lenProvider struct {
	mu    sync.Mutex
	calls int
	seen  []llm.Message
	hook  func()
}

func (p *lenProvider) Complete(_ context.Context, msgs []llm.Message) (string, error) {
	p.mu.Lock()
	p.calls++
	p.seen = msgs
	hook := p.hook
	p.mu.Unlock()
	if hook != nil {
		hook()
	}
	_, events, _ := strings.Cut(msgs[len(msgs)-1].Content, "\n\n")
	return fmt.Sprintf("len=%d", len(events)), nil
}

type failingProvider struct{}

func (failingProvider) Complete(context.Context, []llm.Message) (string, error) {
	return "", errors.New("provider down")
}

func TestSummarize_EndToEnd(t *testing.T) {
	baseDir, store := testutil.TestStore(t)
	_ = store.AppendStaging("2024-05-01", `{"a":1}`)
	_ = store.AppendStaging("2024-05-01", `{"b":2}`)
	provider := &lenProvider{}

	s := New(store, provider, WithLogger(testutil.Logger()))
	res, err := s.Summarize(context.Background(), "2024-05-01")
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if res.Skipped || res.Events != 2 {
		t.Errorf("result = %+v", res)
	}

	note, err := os.ReadFile(filepath.Join(baseDir, "daily", "2024-05-01.md"))
	if err != nil {
		t.Fatalf("note not written: %v", err)
	}
	want := fmt.Sprintf("len=%d", len(`{"a":1}`+"\n"+`{"b":2}`))
	if string(note) != want {
		t.Errorf("note = %q, want %q", note, want)
	}
	if _, err := os.Stat(filepath.Join(baseDir, "staging", "2024-05-01.jsonl")); !os.IsNotExist(err) {
		t.Errorf("staging file should be gone, stat err = %v", err)
	}
}

func TestSummarize_PromptShape(t *testing.T) {
	_, store := testutil.TestStore(t)
	_ = store.AppendStaging("2024-05-01", `{"x":1}`)
	provider := &lenProvider{}

	_, _ = New(store, provider, WithLogger(testutil.Logger())).Summarize(context.Background(), "2024-05-01")

	if len(provider.seen) != 2 {
		t.Fatalf("messages = %d", len(provider.seen))
	}
	sys, user := provider.seen[0], provider.seen[1]
	if sys.Role != llm.RoleSystem || !strings.Contains(sys.Content, "daily development note for 2024-05-01") {
		t.Errorf("system = %+v", sys)
	}
	for _, heading := range []string{"Shipped", "Worked On", "Decisions", "Discovered", "Links", "People", "Events"} {
		if !strings.Contains(sys.Content, "- "+heading+":") {
			t.Errorf("system prompt missing %s", heading)
		}
	}
	if user.Content != "Here are the raw events for 2024-05-01:\n\n{\"x\":1}" {
		t.Errorf("user = %q", user.Content)
	}
}

func TestSummarize_EmptyIsNoOp(t *testing.T) {
	baseDir, store := testutil.TestStore(t)
	provider := &lenProvider{}

	res, err := New(store, provider, WithLogger(testutil.Logger())).Summarize(context.Background(), "2024-05-01")
	if err != nil {
		t.Fatal(err)
	}
	if !res.Skipped {
		t.Error("expected skipped result")
	}
	if provider.calls != 0 {
		t.Errorf("provider called %d times", provider.calls)
	}
	if _, err := os.Stat(filepath.Join(baseDir, "daily", "2024-05-01.md")); !os.IsNotExist(err) {
		t.Error("no note should be written")
	}
}

func TestSummarize_Idempotent(t *testing.T) {
	_, store := testutil.TestStore(t)
	_ = store.AppendStaging("2024-05-01", `{"a":1}`)
	provider := &lenProvider{}
	s := New(store, provider, WithLogger(testutil.Logger()))

	if _, err := s.Summarize(context.Background(), "2024-05-01"); err != nil {
		t.Fatal(err)
	}
	first, _ := store.ReadNote("2024-05-01")

	res, err := s.Summarize(context.Background(), "2024-05-01")
	if err != nil {
		t.Fatal(err)
	}
	if !res.Skipped || provider.calls != 1 {
		t.Errorf("second run should be a no-op: %+v calls=%d", res, provider.calls)
	}
	second, _ := store.ReadNote("2024-05-01")
	if string(first) != string(second) {
		t.Error("note changed on second run")
	}
}

func TestSummarize_ProviderFailureKeepsStaging(t *testing.T) {
	_, store := testutil.TestStore(t)
	_ = store.AppendStaging("2024-05-01", `{"a":1}`)

	if _, err := New(store, failingProvider{}, WithLogger(testutil.Logger())).Summarize(context.Background(), "2024-05-01"); err == nil {
		t.Fatal("expected error")
	}
	lines, _ := store.ReadStaging("2024-05-01")
	if len(lines) != 1 {
		t.Errorf("staging = %v, want untouched", lines)
	}
	if _, err := store.ReadNote("2024-05-01"); err == nil {
		t.Error("no note should exist")
	}
}

func TestSummarize_AppendDuringGenerationSurvives(t *testing.T) {
	_, store := testutil.TestStore(t)
	_ = store.AppendStaging("2024-05-01", `{"a":1}`)
	provider := &lenProvider{hook: func() {
		_ = store.AppendStaging("2024-05-01", `{"late":true}`)
	}}

	if _, err := New(store, provider, WithLogger(testutil.Logger())).Summarize(context.Background(), "2024-05-01"); err != nil {
		t.Fatal(err)
	}
	lines, _ := store.ReadStaging("2024-05-01")
	if len(lines) != 1 || lines[0] != `{"late":true}` {
		t.Errorf("staging after run = %v", lines)
	}
}

func TestSummarize_RecordsStateAndNotifies(t *testing.T) {
	_, store := testutil.TestStore(t)
	db := testutil.TestState(t)
	_ = store.AppendStaging("2024-05-01", `{"a":1}`)

	note := "---\ndate: 2024-05-01\ntopics: [watcher]\npeople: [Ada]\n---\n## Shipped\n- thing\n"
	provider := stubProvider(note)

	var got *Result
	s := New(store, provider,
		WithLogger(testutil.Logger()),
		WithState(db),
		WithNoteCallback(func(r *Result) { got = r }),
	)
	res, err := s.Summarize(context.Background(), "2024-05-01")
	if err != nil {
		t.Fatal(err)
	}
	if got != res {
		t.Error("callback not called with the result")
	}
	if res.Note == nil || len(res.Note.Topics) != 1 || res.Note.Topics[0] != "watcher" {
		t.Errorf("parsed note = %+v", res.Note)
	}

	row, err := db.GetSummary(context.Background(), "2024-05-01")
	if err != nil {
		t.Fatalf("summary not recorded: %v", err)
	}
	if row.RunID != res.RunID || row.Events != 1 || row.Checksum != res.Checksum {
		t.Errorf("row = %+v", row)
	}
}

type stubProvider string

func (s stubProvider) Complete(context.Context, []llm.Message) (string, error) {
	return string(s), nil
}
