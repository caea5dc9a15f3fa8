package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/starford/amber/internal/noteservice"
)

// Handler holds API route handlers.
type Handler struct {
	svc *noteservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *noteservice.Service) *Handler {
	return &Handler{svc: svc}
}

// Status handles GET /api/status.
//
//	@Summary		Watcher liveness, staged backlog and last summarized day
//	@Tags			status
//	@Produce		json
//	@Success		200	{object}	StatusResponse
//	@Security		BearerAuth
//	@Router			/status [get]
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	st, err := h.svc.Status(r.Context())
	if err != nil {
		writeError(w, "status", err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// Summarize handles POST /api/summarize.
//
//	@Summary		Summarize today now
//	@Description	Queues a run when the scheduler is running; responds 202.
//	@Tags			summarize
//	@Produce		json
//	@Success		202	{object}	SummarizeResponse
//	@Success		200	{object}	SummarizeResponse
//	@Failure		503	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/summarize [post]
func (h *Handler) Summarize(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.Summarize(r.Context())
	if err != nil {
		writeError(w, "summarize", err)
		return
	}
	status := http.StatusOK
	if out.Queued {
		status = http.StatusAccepted
	}
	writeJSON(w, status, out)
}

// ListNotes handles GET /api/notes.
//
//	@Summary		List summarized days, newest first
//	@Tags			notes
//	@Produce		json
//	@Param			limit	query		int		false	"Page size"
//	@Param			offset	query		int		false	"Page offset"
//	@Success		200		{object}	NoteListResponse
//	@Security		BearerAuth
//	@Router			/notes [get]
func (h *Handler) ListNotes(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	items, total, err := h.svc.ListNotes(r.Context(), limit, offset)
	if err != nil {
		writeError(w, "list notes", err)
		return
	}
	writeJSON(w, http.StatusOK, NoteListResponse{Notes: items, Total: total})
}

// GetNote handles GET /api/notes/{date}.
//
//	@Summary		Read the daily note for a date
//	@Tags			notes
//	@Produce		json
//	@Param			date	path		string	true	"YYYY-MM-DD"
//	@Success		200		{object}	NoteDetail
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{date} [get]
func (h *Handler) GetNote(w http.ResponseWriter, r *http.Request) {
	h.writeNote(w, r, chi.URLParam(r, "date"))
}

// GetToday handles GET /api/notes/today.
func (h *Handler) GetToday(w http.ResponseWriter, r *http.Request) {
	h.writeNote(w, r, "")
}

func (h *Handler) writeNote(w http.ResponseWriter, r *http.Request, date string) {
	note, err := h.svc.GetNote(r.Context(), date)
	if err != nil {
		writeError(w, "get note", err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// Search handles GET /api/search.
//
//	@Summary		Full-text search across daily notes
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.svc.Search(r.Context(), q, limit)
	if err != nil {
		writeError(w, "search", err)
		return
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: toSearchResults(results)})
}
