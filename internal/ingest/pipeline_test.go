package ingest

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/starford/amber/internal/models"
	"github.com/starford/amber/internal/testutil"
)

func TestPipeline_StagesUnderLocalDate(t *testing.T) {
	_, store := testutil.TestStore(t)
	now := func() time.Time { return time.Date(2024, 5, 1, 23, 59, 0, 0, time.Local) }

	var calls []string
	p := NewPipeline(store, now, func(date string, ev models.RawEvent) { calls = append(calls, date) })
	ev := models.NewCommitEvent("/src/amber", "abc", "fix bug", "Ada", "2024-04-30 10:00:00 +0000")
	if err := p.Stage(context.Background(), ev); err != nil {
		t.Fatalf("Stage: %v", err)
	}

	lines, _ := store.ReadStaging("2024-05-01")
	if len(lines) != 1 {
		t.Fatalf("staged lines = %v", lines)
	}
	var back models.RawEvent
	if err := json.Unmarshal([]byte(lines[0]), &back); err != nil {
		t.Fatalf("staged line is not JSON: %v", err)
	}
	if back.Source != "git" || back.Kind != models.KindCommit || back.Data["hash"] != "abc" {
		t.Errorf("event = %+v", back)
	}
	if p.Staged() != 1 || len(calls) != 1 || calls[0] != "2024-05-01" {
		t.Errorf("staged=%d calls=%v", p.Staged(), calls)
	}
}
