package state

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/starford/amber/internal/apperr"
)

// SummaryRow represents a row in the summaries table.
type SummaryRow struct {
	Date      string
	RunID     string
	Title     string
	Checksum  string
	Events    int
	Topics    []string
	People    []string
	WrittenAt time.Time
}

// SearchResult represents one search hit.
type SearchResult struct {
	Date    string
	Title   string
	Snippet string
}

// UpsertSummary inserts or replaces a summary and its FTS entry within a
// transaction. An empty RunID or zero Events keeps the stored values, so a
// re-index from disk does not erase what the summarizer recorded.
func (db *DB) UpsertSummary(ctx context.Context, s SummaryRow, body string) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("state: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	topicsJSON, _ := json.Marshal(nonNil(s.Topics))
	peopleJSON, _ := json.Marshal(nonNil(s.People))
	if s.WrittenAt.IsZero() {
		s.WrittenAt = time.Now()
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO summaries (date, run_id, title, checksum, events, topics, people, body, written_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(date) DO UPDATE SET
			run_id     = CASE WHEN excluded.run_id = '' THEN summaries.run_id ELSE excluded.run_id END,
			events     = CASE WHEN excluded.events = 0 THEN summaries.events ELSE excluded.events END,
			title      = excluded.title,
			checksum   = excluded.checksum,
			topics     = excluded.topics,
			people     = excluded.people,
			body       = excluded.body,
			written_at = excluded.written_at
	`, s.Date, s.RunID, s.Title, s.Checksum, s.Events, string(topicsJSON), string(peopleJSON), body, s.WrittenAt.UTC())
	if err != nil {
		return fmt.Errorf("state: upsert summary: %w", err)
	}

	if err := ftsUpsert(tx, s.Date, s.Title, body, s.Topics, s.People); err != nil {
		return err
	}
	return tx.Commit()
}

// DeleteSummary removes a summary and its FTS entry.
func (db *DB) DeleteSummary(ctx context.Context, date string) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("state: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	ftsDelete(tx, date)
	_, _ = tx.ExecContext(ctx, `DELETE FROM summaries WHERE date = ?`, date)

	return tx.Commit()
}

const summaryColumns = `date, run_id, title, checksum, events, topics, people, written_at`

// GetSummary returns the summary for date or an ErrNotFound error.
func (db *DB) GetSummary(ctx context.Context, date string) (*SummaryRow, error) {
	row := db.conn.QueryRowContext(ctx, `SELECT `+summaryColumns+` FROM summaries WHERE date = ?`, date)
	s, err := scanSummary(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: summary %s", apperr.ErrNotFound, date)
	}
	return s, err
}

// LastSummary returns the most recently written summary, or nil when none
// has been recorded yet.
func (db *DB) LastSummary(ctx context.Context) (*SummaryRow, error) {
	row := db.conn.QueryRowContext(ctx, `SELECT `+summaryColumns+` FROM summaries ORDER BY written_at DESC LIMIT 1`)
	s, err := scanSummary(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return s, err
}

// ListSummaries returns summaries newest date first and the total count.
func (db *DB) ListSummaries(ctx context.Context, limit, offset int) ([]SummaryRow, int, error) {
	if limit <= 0 {
		limit = 50
	}
	var total int
	if err := db.conn.QueryRowContext(ctx, `SELECT count(*) FROM summaries`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("state: count summaries: %w", err)
	}

	rows, err := db.conn.QueryContext(ctx, `SELECT `+summaryColumns+` FROM summaries ORDER BY date DESC LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("state: list summaries: %w", err)
	}
	defer rows.Close()

	var out []SummaryRow
	for rows.Next() {
		s, err := scanSummary(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *s)
	}
	return out, total, rows.Err()
}

// AllChecksums returns date → checksum for every indexed summary.
func (db *DB) AllChecksums(ctx context.Context) (map[string]string, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT date, checksum FROM summaries`)
	if err != nil {
		return nil, fmt.Errorf("state: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var d, cs string
		if err := rows.Scan(&d, &cs); err != nil {
			return nil, err
		}
		out[d] = cs
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSummary(r rowScanner) (*SummaryRow, error) {
	var (
		s              SummaryRow
		topics, people string
	)
	if err := r.Scan(&s.Date, &s.RunID, &s.Title, &s.Checksum, &s.Events, &topics, &people, &s.WrittenAt); err != nil {
		return nil, err
	}
	_ = json.Unmarshal([]byte(topics), &s.Topics)
	_ = json.Unmarshal([]byte(people), &s.People)
	return &s, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
