package ingest

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/starford/amber/internal/models"
	"github.com/starford/amber/internal/testutil"
)

// fakeSource emits n events and then waits to be stopped.
type fakeSource struct {
	n       int
	stop    chan struct{}
	stops   atomic.Int32
	running atomic.Bool
}

func newFakeSource(n int) *fakeSource {
	return &fakeSource{n: n, stop: make(chan struct{})}
}

func (f *fakeSource) Name() string { return "fake" }

func (f *fakeSource) Run(ctx context.Context, emit EmitFunc) error {
	f.running.Store(true)
	defer f.running.Store(false)
	for i := 0; i < f.n; i++ {
		_ = emit(ctx, models.NewCommitEvent("/r", "h", "s", "a", "t"))
	}
	select {
	case <-ctx.Done():
	case <-f.stop:
	}
	return nil
}

func (f *fakeSource) Stop() {
	if f.stops.Add(1) == 1 {
		close(f.stop)
	}
}

func (f *fakeSource) Running() bool { return f.running.Load() }

func TestManager_RunAndStop(t *testing.T) {
	_, store := testutil.TestStore(t)
	a, b := newFakeSource(2), newFakeSource(3)
	m := NewManager(NewPipeline(store, nil, nil), testutil.Logger(), a, b)

	done := make(chan error, 1)
	go func() { done <- m.Run(context.Background()) }()

	eventually(t, 2*time.Second, 5*time.Millisecond, func() bool { return m.Staged() == 5 }, "events not staged")
	if !m.Running() {
		t.Error("expected running")
	}
	n, _ := store.CountStaged()
	if n != 5 {
		t.Errorf("staged on disk = %d", n)
	}

	m.Stop()
	m.Stop()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return")
	}
	if a.stops.Load() != 1 || b.stops.Load() != 1 {
		t.Errorf("sources stopped %d/%d times, want once each", a.stops.Load(), b.stops.Load())
	}
	if m.Running() {
		t.Error("expected stopped")
	}
}
