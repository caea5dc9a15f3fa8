// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/amber/internal/api"
	"github.com/starford/amber/internal/apperr"
	"github.com/starford/amber/internal/gitlog"
	"github.com/starford/amber/internal/ingest"
	"github.com/starford/amber/internal/models"
	"github.com/starford/amber/internal/noteservice"
	"github.com/starford/amber/internal/scheduler"
	"github.com/starford/amber/internal/sse"
	"github.com/starford/amber/internal/summarizer"
)

// Run starts the agent with the given options and blocks until ctx is
// cancelled or a shutdown signal arrives.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("%w: config is required", apperr.ErrConfig)
	}

	cfg := app.config

	// Initialize structured JSON logger.
	logger := NewLogger(cfg.App.LogLevel, os.Stdout)
	slog.SetDefault(logger)

	logger.Info("config: loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("base_dir", cfg.Storage.BaseDir),
		slog.String("provider", cfg.Summarizer.Provider),
		slog.Int("daily_hour", cfg.Schedule.DailyHour),
		slog.Bool("ephemeral_cursors", app.ephemeralCursors),
		slog.String("log_level", cfg.App.LogLevel.String()))

	c, err := openCore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer c.Close()

	// SSE broker.
	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	sum, err := c.summarizer(summarizer.WithNoteCallback(func(res *summarizer.Result) {
		broker.PublishNoteWritten(res.Date, res.RunID, res.Events)
	}))
	if err != nil {
		return err
	}

	sched := scheduler.New(scheduler.Config{
		IngestInterval: cfg.Schedule.IngestInterval(),
		DailyHour:      cfg.Schedule.DailyHour,
	}, func(ctx context.Context, date string) error {
		if _, err := sum.Summarize(ctx, date); err != nil {
			broker.PublishSummarizeFailed(date, err)
			return err
		}
		return nil
	}, scheduler.WithLogger(logger))

	// Ingestion: git refs → differ → staging.
	pipeline := ingest.NewPipeline(c.store, time.Now, func(date string, ev models.RawEvent) {
		hash, _ := ev.Data["hash"].(string)
		repo, _ := ev.Data["repo"].(string)
		broker.PublishStaged(date, repo, hash)
	})

	var sources []ingest.Source
	if git := cfg.Sources.Git; git.Enabled {
		history, err := gitlog.NewLog(git.Backend)
		if err != nil {
			return err
		}
		var cursors gitlog.CursorStore = c.db
		if app.ephemeralCursors {
			cursors = gitlog.NewMemoryCursors()
		}
		differ := gitlog.NewDiffer(history, cursors, git.HistoryDepth)
		sources = append(sources, ingest.NewGitSource(git.WatchPaths, git.ScanDepth, git.Debounce, differ, logger))
	} else {
		logger.Warn("config: git source disabled, nothing will be ingested")
	}
	manager := ingest.NewManager(pipeline, logger, sources...)

	svc := noteservice.NewService(c.store, c.db,
		noteservice.WithScheduler(sched),
		noteservice.WithSummarizer(sum),
		noteservice.WithWatchers(manager.Running),
	)

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := manager.Run(gCtx); err != nil {
			// The API and scheduler stay useful without watchers.
			logger.Error("ingest: stopped with error", slog.String("error", err.Error()))
		}
		return nil
	})

	g.Go(func() error {
		return sched.Run(gCtx)
	})

	var httpServer *http.Server
	if cfg.App.HTTP.Enabled() {
		httpServer = &http.Server{
			Addr:              cfg.App.HTTP.Address(),
			Handler:           newHTTPHandler(cfg, svc, broker),
			ReadHeaderTimeout: 10 * time.Second,
		}

		g.Go(func() error {
			logger.Info("http: starting server", slog.String("address", cfg.App.HTTP.Address()))
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("HTTP server error: %w", err)
			}
			return nil
		})
	}

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		var err error
		select {
		case sig := <-quit:
			logger.Info("app: received shutdown signal", slog.String("signal", sig.String()))
			err = context.Canceled
		case <-gCtx.Done():
			logger.Info("app: context cancelled, initiating shutdown")
		}

		manager.Stop()

		if httpServer != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				logger.Error("http: shutdown error", slog.String("error", err.Error()))
			}
		}

		// Returning an error cancels gCtx, which stops the scheduler.
		return err
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("app: error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("app: stopped")
	return nil
}

func newHTTPHandler(cfg *Config, svc *noteservice.Service, broker *sse.Broker) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Mount("/api", api.NewRouter(svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker))
	return r
}
