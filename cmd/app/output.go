package main

import (
	"fmt"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/fatih/color"

	"github.com/starford/amber/internal/noteservice"
)

var (
	titleColor   = color.New(color.FgHiCyan, color.Bold)
	successColor = color.New(color.FgHiGreen)
	warnColor    = color.New(color.FgHiYellow)
	dimColor     = color.New(color.FgHiBlack)
	infoColor    = color.New(color.FgHiWhite)
)

func printStatus(st *noteservice.Status, live bool) {
	fmt.Println()
	titleColor.Printf("  Amber Status\n\n")

	dimColor.Print("  Agent:            ")
	if live {
		successColor.Println("running")
	} else {
		warnColor.Println("not reachable (showing data on disk)")
	}

	dimColor.Print("  Watchers:         ")
	if st.WatchersRunning {
		successColor.Println("running")
	} else {
		warnColor.Println("stopped")
	}

	dimColor.Print("  Buffered events:  ")
	infoColor.Println(st.BufferedEvents)
	for _, d := range st.StagedDates {
		dimColor.Printf("    • %s\n", d)
	}

	dimColor.Print("  Last summarized:  ")
	if st.LastSummarized != nil {
		infoColor.Println(*st.LastSummarized)
	} else {
		dimColor.Println("never")
	}

	if s := st.Scheduler; s != nil {
		if s.Busy {
			dimColor.Print("  Scheduler:        ")
			warnColor.Println("summarizing")
		}
		if s.LastError != "" {
			dimColor.Print("  Last error:       ")
			warnColor.Println(s.LastError)
		}
	}
	fmt.Println()
}

func printSummarize(out *noteservice.SummarizeOutcome) {
	switch {
	case out.Result == nil:
		successColor.Printf("Summary of %s queued\n", out.Date)
	case out.Result.Skipped:
		dimColor.Printf("Nothing staged for %s\n", out.Date)
	default:
		successColor.Printf("Wrote daily note for %s ", out.Date)
		dimColor.Printf("(%d events, %s)\n", out.Result.Events, out.Result.Duration.Round(time.Millisecond))
	}
}

func printRepos(roots, repos []string) {
	fmt.Println()
	titleColor.Printf("  Repositories\n\n")
	for _, r := range roots {
		dimColor.Printf("  root: %s\n", r)
	}
	fmt.Println()
	if len(repos) == 0 {
		dimColor.Println("    No repositories found")
		return
	}
	for _, r := range repos {
		infoColor.Printf("    %s\n", r)
	}
	fmt.Println()
	dimColor.Printf("  %d repositories\n\n", len(repos))
}

// renderMarkdown falls back to the source when the terminal renderer fails.
func renderMarkdown(md string) string {
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return md
	}
	out, err := renderer.Render(md)
	if err != nil {
		return md
	}
	return out
}
