// Package storage persists daily notes and per-date staging logs under a base directory:
//
//	<base>/daily/<date>.md       one note per calendar date
//	<base>/staging/<date>.jsonl  newline-delimited serialized events
package storage

import "github.com/starford/amber/internal/models"

// Notes is the interface for daily note files.
type Notes interface {
	// ReadNote returns the note for date. A missing note wraps os.ErrNotExist.
	ReadNote(date string) ([]byte, error)
	// WriteNote atomically replaces the note for date.
	WriteNote(date string, content []byte) error
	// ListNotes returns metadata for every note, newest date first.
	ListNotes() ([]models.NoteMetadata, error)
}

// Staging is the interface for the per-date append-only event log.
type Staging interface {
	// AppendStaging appends one record followed by a newline.
	AppendStaging(date, line string) error
	// ReadStaging returns the non-empty records for date; absent means empty.
	ReadStaging(date string) ([]string, error)
	// SnapshotStaging returns the records for date together with the byte
	// offset they end at, for use with ClearStagingThrough.
	SnapshotStaging(date string) (Snapshot, error)
	// ClearStaging removes every record for date; absent is not an error.
	ClearStaging(date string) error
	// ClearStagingThrough removes the first offset bytes of date's log,
	// keeping anything appended after the snapshot was taken.
	ClearStagingThrough(date string, offset int64) error
	// CountStaged returns the number of records staged across all dates.
	CountStaged() (int, error)
	// StagedDates returns every date with a staging file, oldest first.
	StagedDates() ([]string, error)
}

// Provider combines note and staging access.
type Provider interface {
	Notes
	Staging
}

// Snapshot is a point-in-time view of one date's staging log.
type Snapshot struct {
	Date   string
	Lines  []string
	Offset int64
}

// Verify *FS satisfies Provider at compile time.
var _ Provider = (*FS)(nil)
