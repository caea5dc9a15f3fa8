package gitlog

import (
	"context"
	"fmt"

	"github.com/starford/amber/internal/models"
)

// Differ emits commits that appeared since the previous diff of a repo.
type Differ struct {
	log     Log
	cursors CursorStore
	depth   int
}

// NewDiffer creates a Differ. depth <= 0 means DefaultHistoryDepth.
func NewDiffer(log Log, cursors CursorStore, depth int) *Differ {
	if depth <= 0 {
		depth = DefaultHistoryDepth
	}
	return &Differ{log: log, cursors: cursors, depth: depth}
}

// Diff fetches the recent history of repo and returns one commit event per
// commit newer than the stored cursor, newest first. Without a cursor every
// fetched commit is returned. The cursor then moves to the newest hash.
//
// Commits older than the fetch window are never seen: more than depth
// commits between two diffs lose the oldest ones.
func (d *Differ) Diff(ctx context.Context, repo string) ([]models.RawEvent, error) {
	commits, err := d.log.Recent(ctx, repo, d.depth)
	if err != nil {
		return nil, err
	}
	if len(commits) == 0 {
		return nil, nil
	}

	last, hasCursor, err := d.cursors.Cursor(ctx, repo)
	if err != nil {
		return nil, fmt.Errorf("read cursor for %s: %w", repo, err)
	}

	var events []models.RawEvent
	for _, c := range commits {
		if hasCursor && c.Hash == last {
			break
		}
		events = append(events, models.NewCommitEvent(repo, c.Hash, c.Subject, c.Author, c.Date))
	}

	if newest := commits[0].Hash; !hasCursor || newest != last {
		if err := d.cursors.SetCursor(ctx, repo, newest); err != nil {
			return events, fmt.Errorf("store cursor for %s: %w", repo, err)
		}
	}
	return events, nil
}
