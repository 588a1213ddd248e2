package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/starford/othala/internal/apperr"
)

// ListTags handles GET /api/tags.
func (h *Handler) ListTags(w http.ResponseWriter, r *http.Request) {
	tags, err := h.svc.ListTags(r.Context(), userKey(r))
	if err != nil {
		slog.Error("list tags failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("Server error"))
		return
	}
	writeJSON(w, http.StatusOK, tags)
}

// CreateTag handles POST /api/tags.
func (h *Handler) CreateTag(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req CreateTagRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("Invalid JSON body"))
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("Invalid input"))
		return
	}

	tag, err := h.svc.CreateTag(r.Context(), userKey(r), req.Name)
	if err != nil {
		switch {
		case errors.Is(err, apperr.ErrConflict):
			writeJSON(w, http.StatusConflict, errorBody("Tag already exists"))
		case errors.Is(err, apperr.ErrInvalidReference):
			writeJSON(w, http.StatusBadRequest, errorBody("Invalid input"))
		default:
			slog.Error("create tag failed", slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("Server error"))
		}
		return
	}
	if h.broker != nil {
		h.broker.PublishTagEvent(tag.ID)
	}
	writeJSON(w, http.StatusCreated, tag)
}
