// Package scheduler decides when a day gets summarized: once per day at a
// configured hour, and whenever a manual trigger arrives.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/starford/amber/internal/models"
)

// Default timer periods.
const (
	DefaultIngestInterval = 15 * time.Minute
	DefaultCheckInterval  = time.Minute
)

// SummarizeFunc runs the summarization workflow for date.
type SummarizeFunc func(ctx context.Context, date string) error

// Config controls the scheduler's timers.
type Config struct {
	IngestInterval time.Duration
	CheckInterval  time.Duration
	// DailyHour is the local hour (0-23) during which the daily run fires.
	DailyHour int
}

// State is a snapshot of the scheduler.
type State struct {
	LastDailyDate  string    `json:"last_daily_date,omitempty"`
	LastSummarized string    `json:"last_summarized,omitempty"`
	LastRunAt      time.Time `json:"last_run_at,omitzero"`
	LastError      string    `json:"last_error,omitempty"`
	Busy           bool      `json:"busy"`
	Pending        int       `json:"pending"`
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Scheduler) { s.logger = l }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

// WithIngestTick registers fn to run on every ingest tick.
func WithIngestTick(fn func(ctx context.Context)) Option {
	return func(s *Scheduler) { s.onIngest = fn }
}

// Scheduler owns a single control loop. Workflows run inside the loop, so
// at most one is in flight and triggers are served in arrival order.
type Scheduler struct {
	cfg       Config
	summarize SummarizeFunc
	logger    *slog.Logger
	now       func() time.Time
	onIngest  func(ctx context.Context)

	wake chan struct{}

	mu    sync.Mutex
	state State
}

// New creates a Scheduler. Zero intervals fall back to the defaults.
func New(cfg Config, summarize SummarizeFunc, opts ...Option) *Scheduler {
	if cfg.IngestInterval <= 0 {
		cfg.IngestInterval = DefaultIngestInterval
	}
	if cfg.CheckInterval <= 0 {
		cfg.CheckInterval = DefaultCheckInterval
	}
	s := &Scheduler{
		cfg:       cfg,
		summarize: summarize,
		logger:    slog.Default(),
		now:       time.Now,
		wake:      make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Trigger requests a summarization of today. Triggers are never merged:
// n calls produce n runs, even if some arrive while a run is in progress.
func (s *Scheduler) Trigger() {
	s.mu.Lock()
	s.state.Pending++
	s.mu.Unlock()
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// State returns a snapshot of the scheduler state.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Run drives the loop until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	ingest := time.NewTicker(s.cfg.IngestInterval)
	defer ingest.Stop()
	check := time.NewTicker(s.cfg.CheckInterval)
	defer check.Stop()

	s.logger.Info("scheduler: started",
		slog.Duration("ingest_interval", s.cfg.IngestInterval),
		slog.Int("daily_hour", s.cfg.DailyHour))

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler: stopped")
			return nil

		case <-ingest.C:
			s.logger.Debug("scheduler: ingest tick")
			if s.onIngest != nil {
				s.onIngest(ctx)
			}

		case <-check.C:
			s.checkClock(ctx, s.now())

		case <-s.wake:
			s.drainTriggers(ctx)
		}
	}
}

// checkClock runs the daily workflow when now falls inside the daily hour
// and today has not been handled yet. The date is marked before the run, so
// a failed run is not retried within the same hour.
func (s *Scheduler) checkClock(ctx context.Context, now time.Time) bool {
	today := models.DateOf(now)
	s.mu.Lock()
	due := now.Hour() == s.cfg.DailyHour && s.state.LastDailyDate != today
	if due {
		s.state.LastDailyDate = today
	}
	s.mu.Unlock()
	if !due {
		return false
	}
	s.logger.Info("scheduler: daily run", slog.String("date", today))
	s.run(ctx, today)
	return true
}

func (s *Scheduler) drainTriggers(ctx context.Context) {
	for {
		s.mu.Lock()
		if s.state.Pending == 0 {
			s.mu.Unlock()
			return
		}
		s.state.Pending--
		s.mu.Unlock()

		if ctx.Err() != nil {
			return
		}
		today := models.DateOf(s.now())
		s.logger.Info("scheduler: manual run", slog.String("date", today))
		s.run(ctx, today)
	}
}

func (s *Scheduler) run(ctx context.Context, date string) {
	s.mu.Lock()
	s.state.Busy = true
	s.mu.Unlock()

	err := s.summarize(ctx, date)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Busy = false
	s.state.LastRunAt = s.now()
	if err != nil {
		s.state.LastError = err.Error()
		s.logger.Error("scheduler: summarize failed",
			slog.String("date", date),
			slog.String("error", err.Error()))
		return
	}
	s.state.LastError = ""
	s.state.LastSummarized = date
}
