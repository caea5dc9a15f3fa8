//go:build sqlite_fts5

package state

import (
	"context"
	"strings"
	"testing"
)

func TestFTS5_TableExists(t *testing.T) {
	db := testDB(t)
	var count int
	if err := db.conn.QueryRow(`SELECT count(*) FROM summaries_fts`).Scan(&count); err != nil {
		t.Fatalf("summaries_fts table missing: %v", err)
	}
}

func TestFTS5_SearchWithSnippet(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	_ = db.UpsertSummary(ctx, SummaryRow{Date: "2024-05-01", Topics: []string{"watcher"}}, "Shipped the debounced ref watcher today")

	res, err := db.Search(ctx, "debounced", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(res) != 1 {
		t.Fatalf("expected 1 result, got %d", len(res))
	}
	if !strings.Contains(res[0].Snippet, "<b>debounced</b>") {
		t.Errorf("snippet = %q", res[0].Snippet)
	}
}

func TestFTS5_DeleteRemovesEntry(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	_ = db.UpsertSummary(ctx, SummaryRow{Date: "2024-05-01"}, "unique-token-xyz")
	_ = db.DeleteSummary(ctx, "2024-05-01")
	res, _ := db.Search(ctx, "xyz", 10)
	if len(res) != 0 {
		t.Errorf("expected no hits after delete, got %v", res)
	}
}
