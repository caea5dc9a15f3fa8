// Package noteservice is the query and command surface shared by the HTTP
// API, the MCP server and the CLI.
package noteservice

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/starford/amber/internal/apperr"
	"github.com/starford/amber/internal/models"
	"github.com/starford/amber/internal/parser"
	"github.com/starford/amber/internal/scheduler"
	"github.com/starford/amber/internal/state"
	"github.com/starford/amber/internal/storage"
	"github.com/starford/amber/internal/summarizer"
)

// NoteDetail is the full representation of a daily note.
type NoteDetail struct {
	Date        string         `json:"date"`
	Title       string         `json:"title"`
	Content     string         `json:"content"`
	Checksum    string         `json:"checksum"`
	Topics      []string       `json:"topics"`
	People      []string       `json:"people"`
	Sections    []string       `json:"sections"`
	Frontmatter map[string]any `json:"frontmatter,omitempty"`
	RunID       string         `json:"run_id,omitempty"`
	Events      int            `json:"events,omitempty"`
	WrittenAt   time.Time      `json:"written_at,omitzero"`
}

// NoteListItem is a lightweight item in a list response.
type NoteListItem struct {
	Date      string    `json:"date"`
	Title     string    `json:"title"`
	Checksum  string    `json:"checksum"`
	Topics    []string  `json:"topics"`
	People    []string  `json:"people"`
	Events    int       `json:"events"`
	WrittenAt time.Time `json:"written_at"`
}

// Status answers "is Amber alive and how much is waiting".
type Status struct {
	WatchersRunning bool             `json:"watchers_running"`
	BufferedEvents  int              `json:"buffered_events"`
	LastSummarized  *string          `json:"last_summarized"`
	StagedDates     []string         `json:"staged_dates"`
	Scheduler       *scheduler.State `json:"scheduler,omitempty"`
}

// SummarizeOutcome reports what a summarize request did.
type SummarizeOutcome struct {
	Date   string             `json:"date"`
	Queued bool               `json:"queued"`
	Result *summarizer.Result `json:"result,omitempty"`
}

// Scheduler is the part of the scheduler the service needs.
type Scheduler interface {
	Trigger()
	State() scheduler.State
}

// Option configures a Service.
type Option func(*Service)

// WithScheduler routes summarize requests through the scheduler's queue.
func WithScheduler(s Scheduler) Option {
	return func(svc *Service) { svc.sched = s }
}

// WithSummarizer lets the service summarize synchronously when no
// scheduler is attached, as in one-shot CLI and MCP processes.
func WithSummarizer(s *summarizer.Summarizer) Option {
	return func(svc *Service) { svc.summarizer = s }
}

// RemoteFunc asks a running agent to summarize today. It returns an error
// wrapping apperr.ErrUnavailable when no agent answers.
type RemoteFunc func(ctx context.Context) (*SummarizeOutcome, error)

// WithRemote hands summarize requests to a running agent first, so that
// only the agent's process clears staging while it is appending to it.
func WithRemote(fn RemoteFunc) Option {
	return func(svc *Service) { svc.remote = fn }
}

// WithWatchers reports watcher liveness.
func WithWatchers(running func() bool) Option {
	return func(svc *Service) { svc.watchersRunning = running }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(svc *Service) { svc.now = now }
}

// Service coordinates storage, the state database and the scheduler.
type Service struct {
	store           storage.Provider
	db              *state.DB
	sched           Scheduler
	summarizer      *summarizer.Summarizer
	remote          RemoteFunc
	watchersRunning func() bool
	now             func() time.Time
}

// NewService creates a new service.
func NewService(store storage.Provider, db *state.DB, opts ...Option) *Service {
	s := &Service{store: store, db: db, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Today returns the local date used for staging and summarizing.
func (s *Service) Today() string {
	return models.DateOf(s.now())
}

// GetNote reads the note for date. An empty date means today.
func (s *Service) GetNote(ctx context.Context, date string) (*NoteDetail, error) {
	if date == "" {
		date = s.Today()
	}
	data, err := s.store.ReadNote(date)
	if err != nil {
		return nil, err
	}
	res, err := parser.Parse(data)
	if err != nil {
		return nil, err
	}
	detail := &NoteDetail{
		Date:        date,
		Title:       res.Title,
		Content:     string(data),
		Checksum:    storage.Checksum(data),
		Topics:      nonNilSlice(res.Topics),
		People:      nonNilSlice(res.People),
		Sections:    nonNilSlice(res.Sections),
		Frontmatter: res.Frontmatter,
	}
	if s.db != nil {
		if row, err := s.db.GetSummary(ctx, date); err == nil {
			detail.RunID = row.RunID
			detail.Events = row.Events
			detail.WrittenAt = row.WrittenAt
		}
	}
	return detail, nil
}

// ListNotes returns summarized days, newest first.
func (s *Service) ListNotes(ctx context.Context, limit, offset int) ([]NoteListItem, int, error) {
	if s.db == nil {
		return nil, 0, fmt.Errorf("%w: no state database", apperr.ErrUnavailable)
	}
	rows, total, err := s.db.ListSummaries(ctx, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	items := make([]NoteListItem, len(rows))
	for i, r := range rows {
		items[i] = NoteListItem{
			Date:      r.Date,
			Title:     r.Title,
			Checksum:  r.Checksum,
			Topics:    nonNilSlice(r.Topics),
			People:    nonNilSlice(r.People),
			Events:    r.Events,
			WrittenAt: r.WrittenAt,
		}
	}
	return items, total, nil
}

// Search delegates full-text search to the state database.
func (s *Service) Search(ctx context.Context, query string, limit int) ([]state.SearchResult, error) {
	if query == "" {
		return nil, fmt.Errorf("%w: empty query", apperr.ErrInvalidInput)
	}
	if s.db == nil {
		return nil, fmt.Errorf("%w: no state database", apperr.ErrUnavailable)
	}
	res, err := s.db.Search(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	return nonNilSlice(res), nil
}

// Status reports watcher liveness, the staged backlog and the last
// summarized date.
func (s *Service) Status(ctx context.Context) (*Status, error) {
	dates, err := s.store.StagedDates()
	if err != nil {
		return nil, err
	}
	buffered, err := s.store.CountStaged()
	if err != nil {
		return nil, err
	}
	st := &Status{
		BufferedEvents: buffered,
		StagedDates:    nonNilSlice(dates),
	}
	if s.watchersRunning != nil {
		st.WatchersRunning = s.watchersRunning()
	}
	if s.sched != nil {
		ss := s.sched.State()
		st.Scheduler = &ss
		if ss.LastSummarized != "" {
			st.LastSummarized = &ss.LastSummarized
		}
	}
	if s.db != nil {
		last, err := s.db.LastSummary(ctx)
		if err != nil {
			return nil, err
		}
		if last != nil {
			st.LastSummarized = &last.Date
		}
	}
	return st, nil
}

// Summarize summarizes today. With a scheduler attached the request is
// queued and Summarize returns at once. Otherwise a reachable agent gets the
// request, and only without one does it run synchronously here.
func (s *Service) Summarize(ctx context.Context) (*SummarizeOutcome, error) {
	today := s.Today()
	if s.sched != nil {
		s.sched.Trigger()
		return &SummarizeOutcome{Date: today, Queued: true}, nil
	}
	if s.remote != nil {
		out, err := s.remote(ctx)
		if !errors.Is(err, apperr.ErrUnavailable) {
			return out, err
		}
	}
	return s.SummarizeDate(ctx, today)
}

// SummarizeDate summarizes date synchronously.
func (s *Service) SummarizeDate(ctx context.Context, date string) (*SummarizeOutcome, error) {
	if s.summarizer == nil {
		return nil, fmt.Errorf("%w: summarizer not configured", apperr.ErrUnavailable)
	}
	res, err := s.summarizer.Summarize(ctx, date)
	if err != nil {
		return nil, err
	}
	return &SummarizeOutcome{Date: date, Result: res}, nil
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
