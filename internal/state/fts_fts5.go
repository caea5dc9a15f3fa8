//go:build sqlite_fts5

package state

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

func initFTS(conn *sql.DB) error {
	_, err := conn.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS summaries_fts USING fts5(
			date UNINDEXED,
			title,
			body,
			topics,
			people,
			tokenize = 'unicode61 remove_diacritics 2'
		);
	`)
	return err
}

func ftsUpsert(tx *sql.Tx, date, title, body string, topics, people []string) error {
	_, _ = tx.Exec(`DELETE FROM summaries_fts WHERE date = ?`, date)
	_, err := tx.Exec(`INSERT INTO summaries_fts (date, title, body, topics, people) VALUES (?, ?, ?, ?, ?)`,
		date, title, body, strings.Join(topics, " "), strings.Join(people, " "))
	if err != nil {
		return fmt.Errorf("state: upsert fts: %w", err)
	}
	return nil
}

func ftsDelete(tx *sql.Tx, date string) {
	_, _ = tx.Exec(`DELETE FROM summaries_fts WHERE date = ?`, date)
}

// Search performs an FTS5 full-text search and returns matching results with snippets.
func (db *DB) Search(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.conn.QueryContext(ctx, `
		SELECT date,
		       title,
		       snippet(summaries_fts, 2, '<b>', '</b>', '...', 64)
		FROM summaries_fts
		WHERE summaries_fts MATCH ?
		ORDER BY rank
		LIMIT ?
	`, query, limit)
	if err != nil {
		return nil, fmt.Errorf("state: search: %w", err)
	}
	defer rows.Close()

	var out []SearchResult
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(&r.Date, &r.Title, &r.Snippet); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
