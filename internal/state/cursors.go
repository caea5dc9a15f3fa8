package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/starford/amber/internal/gitlog"
)

var _ gitlog.CursorStore = (*DB)(nil)

// Cursor returns the last commit hash emitted for repo.
func (db *DB) Cursor(ctx context.Context, repo string) (string, bool, error) {
	var hash string
	err := db.conn.QueryRowContext(ctx, `SELECT hash FROM cursors WHERE repo = ?`, repo).Scan(&hash)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("state: cursor: %w", err)
	}
	return hash, true, nil
}

// SetCursor stores hash as the newest emitted commit for repo.
func (db *DB) SetCursor(ctx context.Context, repo, hash string) error {
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO cursors (repo, hash, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(repo) DO UPDATE SET
			hash       = excluded.hash,
			updated_at = excluded.updated_at
	`, repo, hash, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("state: set cursor: %w", err)
	}
	return nil
}
