package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/amber/internal"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg, err := internal.LoadConfig(cmd.String("config"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

func run(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	opts := []internal.Option{
		internal.WithConfig(cfg),
		internal.WithEphemeralCursors(cmd.Bool("ephemeral-cursors")),
	}

	if err := internal.Run(ctx, opts...); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}

	return nil
}

func summarize(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	out, err := internal.SummarizeNow(ctx, cfg, cmd.String("date"))
	if err != nil {
		return err
	}
	printSummarize(out)
	return nil
}

func status(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	st, live, err := internal.QueryStatus(ctx, cfg)
	if err != nil {
		return err
	}
	printStatus(st, live)
	return nil
}

func note(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	n, err := internal.ReadNote(ctx, cfg, cmd.String("date"))
	if err != nil {
		return err
	}
	if cmd.Bool("raw") {
		fmt.Print(n.Content)
		return nil
	}
	fmt.Print(renderMarkdown(n.Content))
	return nil
}

func discover(_ context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	printRepos(cfg.Sources.Git.WatchPaths, internal.DiscoverRepos(cfg))
	return nil
}

func serveMCP(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.ServeMCP(ctx, cfg, version)
}

func dateFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  "date",
		Usage: "Day as YYYY-MM-DD (default: today)",
	}
}

func main() {
	runCmd := &cli.Command{
		Name:   "run",
		Usage:  "Watch repositories, stage commits and write daily notes (default)",
		Action: run,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "ephemeral-cursors",
				Usage: "Keep repository cursors in memory; history is re-read after every restart",
			},
		},
	}

	cmd := &cli.Command{
		Name:    "amber",
		Usage:   "Turn local development activity into daily Markdown notes",
		Version: version,
		Action:  run,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: internal.DefaultConfigPath,
				Value:       internal.DefaultConfigPath,
				Sources:     cli.EnvVars("AMBER_CONFIG_FILE"),
			},
		},
		Commands: []*cli.Command{
			runCmd,
			{
				Name:   "summarize",
				Usage:  "Summarize a day's staged events now",
				Action: summarize,
				Flags:  []cli.Flag{dateFlag()},
			},
			{
				Name:   "status",
				Usage:  "Show watcher state, buffered events and the last summarized day",
				Action: status,
			},
			{
				Name:   "note",
				Usage:  "Print a daily note",
				Action: note,
				Flags: []cli.Flag{
					dateFlag(),
					&cli.BoolFlag{Name: "raw", Usage: "Print the Markdown source"},
				},
			},
			{
				Name:   "discover",
				Usage:  "List the repositories that would be watched",
				Action: discover,
			},
			{
				Name:   "mcp",
				Usage:  "Serve notes and status to an MCP client over stdio",
				Action: serveMCP,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
