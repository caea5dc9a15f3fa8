package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/starford/amber/internal/models"
	"github.com/starford/amber/internal/storage"
)

// StagedCallback is called after an event has been appended.
type StagedCallback func(date string, ev models.RawEvent)

// Pipeline serializes events into the staging log of the current local date.
type Pipeline struct {
	staging  storage.Staging
	now      func() time.Time
	onStaged StagedCallback
	staged   atomic.Int64
}

// NewPipeline creates a Pipeline writing to staging.
func NewPipeline(staging storage.Staging, now func() time.Time, onStaged StagedCallback) *Pipeline {
	if now == nil {
		now = time.Now
	}
	return &Pipeline{staging: staging, now: now, onStaged: onStaged}
}

// Stage appends ev to today's staging log. The date is the moment of
// staging, not the commit time.
func (p *Pipeline) Stage(_ context.Context, ev models.RawEvent) error {
	line, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("ingest: encode event: %w", err)
	}
	date := models.DateOf(p.now())
	if err := p.staging.AppendStaging(date, string(line)); err != nil {
		return err
	}
	p.staged.Add(1)
	if p.onStaged != nil {
		p.onStaged(date, ev)
	}
	return nil
}

// Staged returns how many events this pipeline has appended since start.
func (p *Pipeline) Staged() int64 {
	return p.staged.Load()
}
