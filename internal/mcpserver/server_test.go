package mcpserver

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/amber/internal/llm"
	"github.com/starford/amber/internal/noteservice"
	"github.com/starford/amber/internal/state"
	"github.com/starford/amber/internal/storage"
	"github.com/starford/amber/internal/summarizer"
	"github.com/starford/amber/internal/testutil"
)

type stubProvider struct{}

func (stubProvider) Complete(context.Context, []llm.Message) (string, error) {
	return "---\ndate: 2024-05-01\ntopics: [mcp]\n---\n## Shipped\n- tools\n", nil
}

func testServer(t *testing.T) (*Server, *storage.FS, *state.DB) {
	t.Helper()
	_, store := testutil.TestStore(t)
	db := testutil.TestState(t)
	sum := summarizer.New(store, stubProvider{}, summarizer.WithState(db), summarizer.WithLogger(testutil.Logger()))
	svc := noteservice.NewService(store, db,
		noteservice.WithSummarizer(sum),
		noteservice.WithClock(func() time.Time { return time.Date(2024, 5, 1, 18, 0, 0, 0, time.Local) }),
	)
	return New(svc, "test"), store, db
}

func callTool(t *testing.T, srv *Server, name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	var result *mcp.CallToolResult
	var err error

	switch name {
	case "get_status":
		result, err = srv.getStatus(ctx, req)
	case "read_daily_note":
		result, err = srv.readDailyNote(ctx, req)
	case "list_daily_notes":
		result, err = srv.listDailyNotes(ctx, req)
	case "search_notes":
		result, err = srv.searchNotes(ctx, req)
	case "summarize_today":
		result, err = srv.summarizeToday(ctx, req)
	case "get_note_format":
		result, err = srv.getNoteFormat(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestSummarizeThenRead(t *testing.T) {
	srv, store, _ := testServer(t)
	_ = store.AppendStaging("2024-05-01", `{"a":1}`)

	r := callTool(t, srv, "summarize_today", nil)
	if text := resultText(r); text != "written: daily note for 2024-05-01 (1 events)" {
		t.Errorf("summarize result = %q", text)
	}

	r = callTool(t, srv, "read_daily_note", map[string]interface{}{})
	if !strings.Contains(resultText(r), "## Shipped") {
		t.Errorf("read result = %q", resultText(r))
	}

	r = callTool(t, srv, "list_daily_notes", map[string]interface{}{"limit": 5})
	if text := resultText(r); !strings.HasPrefix(text, "2024-05-01") || !strings.Contains(text, "topics: mcp") {
		t.Errorf("list result = %q", text)
	}
}

func TestSummarizeNothingStaged(t *testing.T) {
	srv, _, _ := testServer(t)
	r := callTool(t, srv, "summarize_today", nil)
	if text := resultText(r); text != "nothing staged for 2024-05-01" {
		t.Errorf("result = %q", text)
	}
}

func TestReadDailyNoteMissing(t *testing.T) {
	srv, _, _ := testServer(t)
	r := callTool(t, srv, "read_daily_note", map[string]interface{}{"date": "2023-01-01"})
	if !r.IsError {
		t.Error("expected error for missing note")
	}
}

func TestGetStatus(t *testing.T) {
	srv, store, _ := testServer(t)
	_ = store.AppendStaging("2024-05-01", `{"a":1}`)
	r := callTool(t, srv, "get_status", nil)
	text := resultText(r)
	if !strings.Contains(text, `"buffered_events": 1`) || !strings.Contains(text, `"watchers_running": false`) {
		t.Errorf("status = %s", text)
	}
}

func TestSearchNotes(t *testing.T) {
	srv, _, db := testServer(t)
	_ = db.UpsertSummary(context.Background(), state.SummaryRow{Date: "2024-04-30"}, "fixed the debounce timer")

	r := callTool(t, srv, "search_notes", map[string]interface{}{"query": "debounce"})
	if !strings.Contains(resultText(r), "2024-04-30") {
		t.Errorf("search = %q", resultText(r))
	}
	r = callTool(t, srv, "search_notes", map[string]interface{}{})
	if !r.IsError {
		t.Error("expected error without query")
	}
}

func TestNoteFormat(t *testing.T) {
	srv, _, _ := testServer(t)
	text := resultText(callTool(t, srv, "get_note_format", nil))
	for _, section := range []string{"Shipped", "Worked On", "Decisions", "Discovered", "Links", "People", "Events"} {
		if !strings.Contains(text, "**"+section+"**") {
			t.Errorf("format missing %s", section)
		}
	}
}
