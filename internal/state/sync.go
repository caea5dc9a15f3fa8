package state

import (
	"context"
	"log/slog"

	"github.com/starford/amber/internal/parser"
	"github.com/starford/amber/internal/storage"
)

// IndexNote parses a daily note and upserts its summary row. RunID, Events
// and WrittenAt are taken from seed; everything else comes from the note.
func IndexNote(ctx context.Context, db *DB, date string, data []byte, seed SummaryRow) (*parser.Result, error) {
	res, err := parser.Parse(data)
	if err != nil {
		return nil, err
	}
	row := seed
	row.Date = date
	row.Title = res.Title
	row.Checksum = storage.Checksum(data)
	row.Topics = res.Topics
	row.People = res.People
	return res, db.UpsertSummary(ctx, row, res.Body)
}

// SyncNotes brings the summaries index in line with the notes on disk:
//   - new/changed notes are parsed and upserted
//   - summaries whose note file is gone are deleted
func SyncNotes(ctx context.Context, db *DB, notes storage.Notes, logger *slog.Logger) error {
	metas, err := notes.ListNotes()
	if err != nil {
		return err
	}

	checksums, err := db.AllChecksums(ctx)
	if err != nil {
		return err
	}

	disk := make(map[string]struct{}, len(metas))
	for _, m := range metas {
		disk[m.Date] = struct{}{}

		if checksums[m.Date] == m.Checksum {
			continue
		}

		data, err := notes.ReadNote(m.Date)
		if err != nil {
			logger.Warn("sync: read failed", slog.String("date", m.Date), slog.String("error", err.Error()))
			continue
		}
		if _, err := IndexNote(ctx, db, m.Date, data, SummaryRow{WrittenAt: m.UpdatedAt}); err != nil {
			logger.Warn("sync: index failed", slog.String("date", m.Date), slog.String("error", err.Error()))
		} else {
			logger.Debug("sync: indexed", slog.String("date", m.Date))
		}
	}

	for d := range checksums {
		if _, ok := disk[d]; !ok {
			if err := db.DeleteSummary(ctx, d); err != nil {
				logger.Warn("sync: delete failed", slog.String("date", d), slog.String("error", err.Error()))
			} else {
				logger.Debug("sync: removed stale", slog.String("date", d))
			}
		}
	}

	return nil
}
