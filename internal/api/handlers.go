package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/starford/othala/internal/apperr"
	"github.com/starford/othala/internal/kbservice"
	"github.com/starford/othala/internal/sse"
)

const maxBodyBytes = 1 << 20

// Handler holds API route handlers.
type Handler struct {
	svc    *kbservice.Service
	broker *sse.Broker
}

// NewHandler creates a new Handler. broker may be nil when SSE is not wired
// (tests, MCP mode).
func NewHandler(svc *kbservice.Service, broker *sse.Broker) *Handler {
	return &Handler{svc: svc, broker: broker}
}

// noteID extracts and parses the {id} URL parameter.
func noteID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id < 1 {
		return 0, false
	}
	return id, true
}

// ListNotes handles GET /api/notes.
func (h *Handler) ListNotes(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var tagID int64
	if raw := q.Get("tagId"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed < 1 {
			writeJSON(w, http.StatusBadRequest, errorBody("Invalid query"))
			return
		}
		tagID = parsed
	}

	notes, err := h.svc.ListNotes(r.Context(), userKey(r), q.Get("query"), tagID)
	if err != nil {
		slog.Error("list notes failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("Server error"))
		return
	}
	writeJSON(w, http.StatusOK, notes)
}

// CreateNote handles POST /api/notes.
func (h *Handler) CreateNote(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req CreateNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("Invalid JSON body"))
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("Invalid input"))
		return
	}

	note, err := h.svc.CreateNote(r.Context(), userKey(r), kbservice.CreateNoteInput{
		Title:   req.Title,
		Content: req.Content,
		TagIDs:  req.TagIDs,
	})
	if err != nil {
		if errors.Is(err, apperr.ErrInvalidReference) {
			writeJSON(w, http.StatusBadRequest, errorBody("Invalid tagIds"))
			return
		}
		slog.Error("create note failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("Server error"))
		return
	}
	h.publishNote("created", note.ID)
	writeJSON(w, http.StatusCreated, note)
}

// GetNote handles GET /api/notes/{id}.
func (h *Handler) GetNote(w http.ResponseWriter, r *http.Request) {
	id, ok := noteID(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody("Invalid id"))
		return
	}
	note, err := h.svc.GetNote(r.Context(), userKey(r), id)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("Not found"))
			return
		}
		slog.Error("get note failed", slog.Int64("id", id), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("Server error"))
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// UpdateNote handles PUT /api/notes/{id}.
func (h *Handler) UpdateNote(w http.ResponseWriter, r *http.Request) {
	id, ok := noteID(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody("Invalid id"))
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req UpdateNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("Invalid JSON body"))
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("Invalid input"))
		return
	}

	note, err := h.svc.UpdateNote(r.Context(), userKey(r), id, kbservice.UpdateNoteInput{
		Title:   req.Title,
		Content: req.Content,
		TagIDs:  req.TagIDs,
	})
	if err != nil {
		switch {
		case errors.Is(err, apperr.ErrNotFound):
			writeJSON(w, http.StatusNotFound, errorBody("Not found"))
		case errors.Is(err, apperr.ErrInvalidReference):
			writeJSON(w, http.StatusBadRequest, errorBody("Invalid tagIds"))
		default:
			slog.Error("update note failed", slog.Int64("id", id), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("Server error"))
		}
		return
	}
	h.publishNote("updated", note.ID)
	writeJSON(w, http.StatusOK, note)
}

// DeleteNote handles DELETE /api/notes/{id}.
func (h *Handler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	id, ok := noteID(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody("Invalid id"))
		return
	}
	deleted, err := h.svc.DeleteNote(r.Context(), userKey(r), id)
	if err != nil {
		slog.Error("delete note failed", slog.Int64("id", id), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("Server error"))
		return
	}
	if !deleted {
		writeJSON(w, http.StatusNotFound, errorBody("Not found"))
		return
	}
	h.publishNote("deleted", id)
	writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

func (h *Handler) publishNote(kind string, id int64) {
	if h.broker != nil {
		h.broker.PublishNoteEvent(kind, id)
	}
}
