// Package mcpserver provides an MCP (Model Context Protocol) server that
// exposes Amber's daily notes and status to LLM clients over stdio.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/amber/internal/noteservice"
)

const formatURI = "amber://daily-note-format"

// Server wraps the MCP server with Amber tools.
type Server struct {
	mcp *server.MCPServer
	svc *noteservice.Service
}

// New creates a new MCP server with all Amber tools registered.
func New(svc *noteservice.Service, version string) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"Amber",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("get_status",
		mcp.WithDescription("Report whether watchers are running, how many events are staged and the last summarized day."),
	), s.getStatus)

	s.mcp.AddTool(mcp.NewTool("read_daily_note",
		mcp.WithDescription("Read the Markdown daily note for a date."),
		mcp.WithString("date", mcp.Description("Date as YYYY-MM-DD (default: today)")),
	), s.readDailyNote)

	s.mcp.AddTool(mcp.NewTool("list_daily_notes",
		mcp.WithDescription("List summarized days, newest first, with their topics and people."),
		mcp.WithNumber("limit", mcp.Description("Maximum number of days (default 30)")),
	), s.listDailyNotes)

	s.mcp.AddTool(mcp.NewTool("search_notes",
		mcp.WithDescription("Full-text search through daily notes."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchNotes)

	s.mcp.AddTool(mcp.NewTool("summarize_today",
		mcp.WithDescription("Generate today's daily note from the staged events now. "+
			"Overwrites an existing note for today."),
	), s.summarizeToday)

	s.mcp.AddTool(mcp.NewTool("get_note_format",
		mcp.WithDescription("Returns the structure every Amber daily note follows."),
	), s.getNoteFormat)

	s.mcp.AddResource(
		mcp.NewResource(formatURI, "Daily Note Format",
			mcp.WithResourceDescription("Frontmatter and section layout of Amber daily notes."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func jsonResult(v any) *mcp.CallToolResult {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error())
	}
	return mcp.NewToolResultText(string(out))
}

func (s *Server) getStatus(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	st, err := s.svc.Status(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(st), nil
}

func (s *Server) readDailyNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	date := strings.TrimSpace(req.GetString("date", ""))
	note, err := s.svc.GetNote(ctx, date)
	if err != nil {
		if date == "" {
			date = s.svc.Today()
		}
		return mcp.NewToolResultError(fmt.Sprintf("no daily note for %s: %v", date, err)), nil
	}
	return mcp.NewToolResultText(note.Content), nil
}

func (s *Server) listDailyNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := req.GetInt("limit", 30)
	items, _, err := s.svc.ListNotes(ctx, limit, 0)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(items) == 0 {
		return mcp.NewToolResultText("no daily notes yet"), nil
	}
	var b strings.Builder
	for _, it := range items {
		fmt.Fprintf(&b, "%s", it.Date)
		if it.Title != "" {
			fmt.Fprintf(&b, "  %s", it.Title)
		}
		if len(it.Topics) > 0 {
			fmt.Fprintf(&b, "  topics: %s", strings.Join(it.Topics, ", "))
		}
		b.WriteByte('\n')
	}
	return mcp.NewToolResultText(strings.TrimRight(b.String(), "\n")), nil
}

func (s *Server) searchNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.svc.Search(ctx, query, 20)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(results), nil
}

func (s *Server) summarizeToday(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	out, err := s.svc.Summarize(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	switch {
	case out.Queued:
		return mcp.NewToolResultText(fmt.Sprintf("queued: summary of %s", out.Date)), nil
	case out.Result != nil && out.Result.Skipped:
		return mcp.NewToolResultText(fmt.Sprintf("nothing staged for %s", out.Date)), nil
	default:
		return mcp.NewToolResultText(fmt.Sprintf("written: daily note for %s (%d events)", out.Date, out.Result.Events)), nil
	}
}

func (s *Server) getNoteFormat(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(NoteFormat), nil
}

func (s *Server) readFormatResource(context.Context, mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      formatURI,
			MIMEType: "text/markdown",
			Text:     NoteFormat,
		},
	}, nil
}
