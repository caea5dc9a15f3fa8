// Package ingest runs activity sources and appends what they produce to the
// day's staging log.
package ingest

import (
	"context"

	"github.com/starford/amber/internal/models"
)

// EmitFunc hands one event to the pipeline.
type EmitFunc func(ctx context.Context, ev models.RawEvent) error

// Source produces RawEvents until ctx is cancelled or Stop is called.
type Source interface {
	Name() string
	Run(ctx context.Context, emit EmitFunc) error
	Stop()
	Running() bool
}
