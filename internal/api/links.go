package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/starford/othala/internal/apperr"
)

// CreateLink handles POST /api/links.
func (h *Handler) CreateLink(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req CreateLinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("Invalid JSON body"))
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("Invalid input"))
		return
	}

	link, err := h.svc.CreateLink(r.Context(), userKey(r), req.FromID, req.ToID)
	if err != nil {
		switch {
		case errors.Is(err, apperr.ErrSelfLink):
			writeJSON(w, http.StatusBadRequest, errorBody("Self link not allowed"))
		case errors.Is(err, apperr.ErrNotFound):
			writeJSON(w, http.StatusNotFound, errorBody("Note not found"))
		case errors.Is(err, apperr.ErrConflict):
			writeJSON(w, http.StatusConflict, errorBody("Link already exists"))
		default:
			slog.Error("create link failed", slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("Server error"))
		}
		return
	}
	if h.broker != nil {
		h.broker.PublishLinkEvent("created", link.FromID, link.ToID)
	}
	writeJSON(w, http.StatusCreated, link)
}

// DeleteLink handles DELETE /api/links. Deleting an absent edge is not an
// error; the response reports how many rows were removed.
func (h *Handler) DeleteLink(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	fromID, errFrom := strconv.ParseInt(q.Get("fromId"), 10, 64)
	toID, errTo := strconv.ParseInt(q.Get("toId"), 10, 64)
	if errFrom != nil || errTo != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("Invalid query"))
		return
	}

	deleted, err := h.svc.DeleteLink(r.Context(), userKey(r), fromID, toID)
	if err != nil {
		slog.Error("delete link failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("Server error"))
		return
	}
	if deleted > 0 && h.broker != nil {
		h.broker.PublishLinkEvent("deleted", fromID, toID)
	}
	writeJSON(w, http.StatusOK, map[string]int64{"deleted": deleted})
}
