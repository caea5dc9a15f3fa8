package api

import (
	"github.com/starford/amber/internal/noteservice"
	"github.com/starford/amber/internal/state"
)

// NoteDetail is the full note response type (aliased from the domain layer).
type NoteDetail = noteservice.NoteDetail

// NoteListItem is a lightweight item in a list response (aliased from the domain layer).
type NoteListItem = noteservice.NoteListItem

// StatusResponse is the GET /status payload.
type StatusResponse = noteservice.Status

// SummarizeResponse is the POST /summarize payload.
type SummarizeResponse = noteservice.SummarizeOutcome

// NoteListResponse wraps paginated note listings.
type NoteListResponse struct {
	Notes []NoteListItem `json:"notes" validate:"required"`
	Total int            `json:"total" example:"42" validate:"required"`
}

// SearchResult is a single search hit in the API response.
type SearchResult struct {
	Date    string `json:"date" example:"2024-05-01" validate:"required"`
	Title   string `json:"title" example:"Wednesday" validate:"required"`
	Snippet string `json:"snippet" example:"...matched text..." validate:"required"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []SearchResult `json:"results" validate:"required"`
}

func toSearchResults(in []state.SearchResult) []SearchResult {
	out := make([]SearchResult, len(in))
	for i, r := range in {
		out[i] = SearchResult{Date: r.Date, Title: r.Title, Snippet: r.Snippet}
	}
	return out
}
