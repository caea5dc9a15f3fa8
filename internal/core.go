package internal

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/starford/amber/internal/apperr"
	"github.com/starford/amber/internal/llm"
	"github.com/starford/amber/internal/state"
	"github.com/starford/amber/internal/storage"
	"github.com/starford/amber/internal/summarizer"
)

// NewLogger returns a JSON logger writing to w at level.
func NewLogger(level slog.Level, w io.Writer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	}))
}

// core holds what every entry point needs: the note/staging store and the
// state database, reconciled against the notes on disk.
type core struct {
	cfg     *Config
	logger  *slog.Logger
	baseDir string
	store   *storage.FS
	db      *state.DB
}

func openCore(ctx context.Context, cfg *Config, logger *slog.Logger) (*core, error) {
	baseDir, err := cfg.Storage.ResolveBaseDir()
	if err != nil {
		return nil, err
	}
	statePath, err := cfg.Storage.ResolveStatePath()
	if err != nil {
		return nil, err
	}

	store, err := storage.Open(baseDir)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(statePath), 0o755); err != nil {
		return nil, fmt.Errorf("%w: create state dir: %w", apperr.ErrStorage, err)
	}
	db, err := state.Open(statePath)
	if err != nil {
		return nil, fmt.Errorf("init state: %w", err)
	}

	if err := state.SyncNotes(ctx, db, store, logger); err != nil {
		logger.Warn("state: initial sync failed", slog.String("error", err.Error()))
	}

	return &core{
		cfg:     cfg,
		logger:  logger,
		baseDir: baseDir,
		store:   store,
		db:      db,
	}, nil
}

func (c *core) Close() error {
	return c.db.Close()
}

func (c *core) summarizer(opts ...summarizer.Option) (*summarizer.Summarizer, error) {
	provider, err := llm.New(c.cfg.Summarizer.LLM())
	if err != nil {
		return nil, err
	}
	opts = append([]summarizer.Option{
		summarizer.WithState(c.db),
		summarizer.WithLogger(c.logger),
	}, opts...)
	return summarizer.New(c.store, provider, opts...), nil
}
