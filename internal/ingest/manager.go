package ingest

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Manager runs a set of sources into one pipeline.
type Manager struct {
	sources  []Source
	pipeline *Pipeline
	logger   *slog.Logger
	stopOnce sync.Once
}

// NewManager creates a Manager.
func NewManager(pipeline *Pipeline, logger *slog.Logger, sources ...Source) *Manager {
	return &Manager{sources: sources, pipeline: pipeline, logger: logger}
}

// Run starts every source and blocks until all of them return.
func (m *Manager) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, src := range m.sources {
		g.Go(func() error {
			m.logger.Info("ingest: source started", slog.String("source", src.Name()))
			err := src.Run(ctx, m.pipeline.Stage)
			m.logger.Info("ingest: source stopped", slog.String("source", src.Name()))
			return err
		})
	}
	return g.Wait()
}

// Stop stops every source. It is idempotent.
func (m *Manager) Stop() {
	m.stopOnce.Do(func() {
		for _, src := range m.sources {
			src.Stop()
		}
	})
}

// Running reports whether at least one source is running.
func (m *Manager) Running() bool {
	for _, src := range m.sources {
		if src.Running() {
			return true
		}
	}
	return false
}

// Staged returns how many events were staged since start.
func (m *Manager) Staged() int64 {
	return m.pipeline.Staged()
}
