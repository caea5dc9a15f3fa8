package noteservice

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/starford/amber/internal/apperr"
	"github.com/starford/amber/internal/llm"
	"github.com/starford/amber/internal/summarizer"
	"github.com/starford/amber/internal/testutil"
)

type echoProvider struct{}

func (echoProvider) Complete(_ context.Context, msgs []llm.Message) (string, error) {
	return "---\ndate: x\n---\n# Note\n", nil
}

func fixedClock() time.Time { return time.Date(2024, 5, 1, 22, 0, 0, 0, time.Local) }

func TestSummarize_SynchronousWithoutScheduler(t *testing.T) {
	_, store := testutil.TestStore(t)
	db := testutil.TestState(t)
	_ = store.AppendStaging("2024-05-01", `{"a":1}`)

	sum := summarizer.New(store, echoProvider{}, summarizer.WithState(db), summarizer.WithLogger(testutil.Logger()))
	svc := NewService(store, db, WithSummarizer(sum), WithClock(fixedClock))

	out, err := svc.Summarize(context.Background())
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if out.Queued || out.Result == nil || out.Result.Events != 1 {
		t.Errorf("out = %+v", out)
	}

	st, err := svc.Status(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if st.BufferedEvents != 0 || st.LastSummarized == nil || *st.LastSummarized != "2024-05-01" {
		t.Errorf("status = %+v", st)
	}
	if st.WatchersRunning {
		t.Error("no watchers attached")
	}
}

func TestSummarize_Unavailable(t *testing.T) {
	_, store := testutil.TestStore(t)
	svc := NewService(store, nil)
	if _, err := svc.Summarize(context.Background()); !errors.Is(err, apperr.ErrUnavailable) {
		t.Errorf("expected ErrUnavailable, got %v", err)
	}
	if _, _, err := svc.ListNotes(context.Background(), 10, 0); !errors.Is(err, apperr.ErrUnavailable) {
		t.Errorf("expected ErrUnavailable, got %v", err)
	}
}

func TestGetNote_DefaultsToToday(t *testing.T) {
	_, store := testutil.TestStore(t)
	_ = store.WriteNote("2024-05-01", []byte("---\npeople: [Ada]\n---\n## Events\n- standup\n"))
	svc := NewService(store, nil, WithClock(fixedClock))

	note, err := svc.GetNote(context.Background(), "")
	if err != nil {
		t.Fatalf("GetNote: %v", err)
	}
	if note.Date != "2024-05-01" || len(note.People) != 1 || note.Sections[0] != "Events" {
		t.Errorf("note = %+v", note)
	}
	if note.Topics == nil {
		t.Error("topics should be an empty list, not null")
	}
}

func TestSearch_EmptyQuery(t *testing.T) {
	_, store := testutil.TestStore(t)
	svc := NewService(store, testutil.TestState(t))
	if _, err := svc.Search(context.Background(), "", 10); !errors.Is(err, apperr.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestSummarize_RemoteAgentFirst(t *testing.T) {
	_, store := testutil.TestStore(t)
	_ = store.AppendStaging("2024-05-01", `{"a":1}`)
	sum := summarizer.New(store, echoProvider{}, summarizer.WithLogger(testutil.Logger()))

	remoteCalls := 0
	svc := NewService(store, nil, WithSummarizer(sum), WithClock(fixedClock),
		WithRemote(func(context.Context) (*SummarizeOutcome, error) {
			remoteCalls++
			return &SummarizeOutcome{Date: "2024-05-01", Queued: true}, nil
		}))
	out, err := svc.Summarize(context.Background())
	if err != nil || !out.Queued || remoteCalls != 1 {
		t.Fatalf("out = %+v, err = %v, remote calls = %d", out, err, remoteCalls)
	}
	if lines, _ := store.ReadStaging("2024-05-01"); len(lines) != 1 {
		t.Errorf("staging touched while the agent owns it: %d lines", len(lines))
	}
}

func TestSummarize_RemoteUnavailableRunsLocally(t *testing.T) {
	_, store := testutil.TestStore(t)
	_ = store.AppendStaging("2024-05-01", `{"a":1}`)
	sum := summarizer.New(store, echoProvider{}, summarizer.WithLogger(testutil.Logger()))

	svc := NewService(store, nil, WithSummarizer(sum), WithClock(fixedClock),
		WithRemote(func(context.Context) (*SummarizeOutcome, error) {
			return nil, fmt.Errorf("%w: agent not reachable", apperr.ErrUnavailable)
		}))
	out, err := svc.Summarize(context.Background())
	if err != nil || out.Queued || out.Result == nil || out.Result.Events != 1 {
		t.Fatalf("out = %+v, err = %v", out, err)
	}
}
