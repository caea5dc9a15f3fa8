package internal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/starford/amber/internal/apperr"
	"github.com/starford/amber/internal/mcpserver"
	"github.com/starford/amber/internal/noteservice"
	"github.com/starford/amber/internal/watcher"
)

// One-shot commands log to stderr; stdout carries their output (or the MCP
// protocol).
func commandLogger(cfg *Config) *slog.Logger {
	return NewLogger(cfg.App.LogLevel, os.Stderr)
}

// SummarizeNow summarizes date (today when empty). Today is handed to a
// running agent when one answers, since the agent may be appending to
// today's staging log; other dates are summarized in this process.
func SummarizeNow(ctx context.Context, cfg *Config, date string) (*noteservice.SummarizeOutcome, error) {
	logger := commandLogger(cfg)
	c, err := openCore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	defer c.Close()

	sum, err := c.summarizer()
	if err != nil {
		return nil, err
	}
	svc := noteservice.NewService(c.store, c.db,
		noteservice.WithSummarizer(sum),
		noteservice.WithRemote(remoteSummarize(cfg)),
	)
	if date == "" || date == svc.Today() {
		return svc.Summarize(ctx)
	}
	return svc.SummarizeDate(ctx, date)
}

// remoteSummarize posts to a running agent's /api/summarize.
func remoteSummarize(cfg *Config) noteservice.RemoteFunc {
	return func(ctx context.Context) (*noteservice.SummarizeOutcome, error) {
		if !cfg.App.HTTP.Enabled() {
			return nil, fmt.Errorf("%w: http api disabled", apperr.ErrUnavailable)
		}
		resp, err := agentRequest(ctx, cfg, http.MethodPost, "/api/summarize")
		if err != nil {
			return nil, fmt.Errorf("%w: agent not reachable: %w", apperr.ErrUnavailable, err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
			return nil, fmt.Errorf("agent summarize returned %s", resp.Status)
		}
		var out noteservice.SummarizeOutcome
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return nil, fmt.Errorf("decode summarize response: %w", err)
		}
		return &out, nil
	}
}

// QueryStatus asks a running agent for its status over HTTP and falls back
// to what can be read from disk. live reports which of the two answered.
func QueryStatus(ctx context.Context, cfg *Config) (st *noteservice.Status, live bool, err error) {
	if cfg.App.HTTP.Enabled() {
		st, err := fetchStatus(ctx, cfg)
		if err == nil {
			return st, true, nil
		}
		commandLogger(cfg).Debug("status: agent not reachable", slog.String("error", err.Error()))
	}

	c, err := openCore(ctx, cfg, commandLogger(cfg))
	if err != nil {
		return nil, false, err
	}
	defer c.Close()
	st, err = noteservice.NewService(c.store, c.db).Status(ctx)
	return st, false, err
}

func fetchStatus(ctx context.Context, cfg *Config) (*noteservice.Status, error) {
	resp, err := agentRequest(ctx, cfg, http.MethodGet, "/api/status")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status endpoint returned %s", resp.Status)
	}
	var st noteservice.Status
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		return nil, fmt.Errorf("decode status: %w", err)
	}
	return &st, nil
}

// agentRequest sends a body-less request to the agent's HTTP API.
func agentRequest(ctx context.Context, cfg *Config, method, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, "http://"+cfg.App.HTTP.Address()+path, nil)
	if err != nil {
		return nil, err
	}
	if cfg.Auth.AuthEnabled() {
		req.Header.Set("Authorization", "Bearer "+cfg.Auth.Token)
	}
	return agentClient.Do(req)
}

var agentClient = &http.Client{Timeout: 2 * time.Second}

// ReadNote returns the daily note for date (today when empty).
func ReadNote(ctx context.Context, cfg *Config, date string) (*noteservice.NoteDetail, error) {
	c, err := openCore(ctx, cfg, commandLogger(cfg))
	if err != nil {
		return nil, err
	}
	defer c.Close()

	note, err := noteservice.NewService(c.store, c.db).GetNote(ctx, date)
	if errors.Is(err, apperr.ErrNotFound) {
		if date == "" {
			date = "today"
		}
		return nil, fmt.Errorf("no daily note for %s: %w", date, err)
	}
	return note, err
}

// DiscoverRepos lists the repositories the git source would watch.
func DiscoverRepos(cfg *Config) []string {
	git := cfg.Sources.Git
	return watcher.Discover(git.WatchPaths, git.ScanDepth, commandLogger(cfg))
}

// ServeMCP serves the MCP tools on stdio until the client disconnects.
// summarize_today goes to a running agent when one answers.
func ServeMCP(ctx context.Context, cfg *Config, version string) error {
	c, err := openCore(ctx, cfg, commandLogger(cfg))
	if err != nil {
		return err
	}
	defer c.Close()

	sum, err := c.summarizer()
	if err != nil {
		return err
	}
	svc := noteservice.NewService(c.store, c.db,
		noteservice.WithSummarizer(sum),
		noteservice.WithRemote(remoteSummarize(cfg)),
	)
	return mcpserver.New(svc, version).ServeStdio()
}
