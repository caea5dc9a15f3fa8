package gitlog

import (
	"context"
	"sync"
)

// CursorStore remembers the newest commit already emitted for each repo.
type CursorStore interface {
	Cursor(ctx context.Context, repo string) (hash string, ok bool, err error)
	SetCursor(ctx context.Context, repo, hash string) error
}

// MemoryCursors keeps cursors for the lifetime of the process only. After a
// restart the first diff of every repo re-emits its recent history.
type MemoryCursors struct {
	mu sync.Mutex
	m  map[string]string
}

// NewMemoryCursors returns an empty in-memory cursor store.
func NewMemoryCursors() *MemoryCursors {
	return &MemoryCursors{m: make(map[string]string)}
}

func (c *MemoryCursors) Cursor(_ context.Context, repo string) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	h, ok := c.m[repo]
	return h, ok, nil
}

func (c *MemoryCursors) SetCursor(_ context.Context, repo, hash string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[repo] = hash
	return nil
}
