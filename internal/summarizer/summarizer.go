// Package summarizer compresses one day's staged events into a daily note.
package summarizer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/starford/amber/internal/llm"
	"github.com/starford/amber/internal/parser"
	"github.com/starford/amber/internal/state"
	"github.com/starford/amber/internal/storage"
)

// Result describes one summarization attempt.
type Result struct {
	RunID    string         `json:"run_id"`
	Date     string         `json:"date"`
	Events   int            `json:"events"`
	Skipped  bool           `json:"skipped"`
	Checksum string         `json:"checksum,omitempty"`
	Note     *parser.Result `json:"-"`
	Duration time.Duration  `json:"duration_ns"`
}

// NoteCallback is called after a note was written.
type NoteCallback func(res *Result)

// Option configures a Summarizer.
type Option func(*Summarizer)

// WithState records each written note in the state database.
func WithState(db *state.DB) Option {
	return func(s *Summarizer) { s.db = db }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Summarizer) { s.logger = l }
}

// WithNoteCallback registers cb to run after every written note.
func WithNoteCallback(cb NoteCallback) Option {
	return func(s *Summarizer) { s.onNote = cb }
}

// Summarizer runs the read → generate → write → clear workflow.
type Summarizer struct {
	store    storage.Provider
	provider llm.Provider
	db       *state.DB
	logger   *slog.Logger
	onNote   NoteCallback
}

// New creates a Summarizer.
func New(store storage.Provider, provider llm.Provider, opts ...Option) *Summarizer {
	s := &Summarizer{
		store:    store,
		provider: provider,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Summarize generates the daily note for date from its staged events.
//
// With nothing staged it returns a skipped Result and touches nothing. On
// success the note is written (overwriting an earlier one) and exactly the
// staged lines that went into the prompt are cleared; events staged while
// the provider was working stay for the next run. Any failure before the
// note is written leaves staging untouched.
func (s *Summarizer) Summarize(ctx context.Context, date string) (*Result, error) {
	start := time.Now()
	res := &Result{RunID: uuid.NewString(), Date: date}
	log := s.logger.With(slog.String("run_id", res.RunID), slog.String("date", date))

	snap, err := s.store.SnapshotStaging(date)
	if err != nil {
		return nil, err
	}
	res.Events = len(snap.Lines)
	if res.Events == 0 {
		res.Skipped = true
		log.Info("summarize: nothing staged")
		return res, nil
	}

	log.Info("summarize: generating", slog.Int("events", res.Events))
	note, err := s.provider.Complete(ctx, BuildMessages(date, snap.Lines))
	if err != nil {
		return nil, fmt.Errorf("summarize %s: %w", date, err)
	}

	data := []byte(note)
	if err := s.store.WriteNote(date, data); err != nil {
		return nil, fmt.Errorf("summarize %s: %w", date, err)
	}
	res.Checksum = storage.Checksum(data)

	if err := s.store.ClearStagingThrough(date, snap.Offset); err != nil {
		// The note is on disk; the staged lines will be summarized again next run.
		log.Warn("summarize: clear staging failed", slog.String("error", err.Error()))
	}

	res.Note = s.record(ctx, log, date, data, res)
	res.Duration = time.Since(start)
	log.Info("summarize: note written",
		slog.Int("events", res.Events),
		slog.Duration("duration", res.Duration))

	if s.onNote != nil {
		s.onNote(res)
	}
	return res, nil
}

// record indexes the note in the state database. Failures are logged only.
func (s *Summarizer) record(ctx context.Context, log *slog.Logger, date string, data []byte, res *Result) *parser.Result {
	if s.db == nil {
		parsed, _ := parser.Parse(data)
		return parsed
	}
	parsed, err := state.IndexNote(ctx, s.db, date, data, state.SummaryRow{
		RunID:     res.RunID,
		Events:    res.Events,
		WrittenAt: time.Now(),
	})
	if err != nil {
		log.Warn("summarize: record summary failed", slog.String("error", err.Error()))
	}
	return parsed
}
