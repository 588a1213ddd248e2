package api

import (
	"log/slog"
	"net/http"
)

// Insights handles GET /api/insights. The range parameter accepts "7" or
// "30" and defaults to 7 days.
func (h *Handler) Insights(w http.ResponseWriter, r *http.Request) {
	rangeDays := 7
	switch r.URL.Query().Get("range") {
	case "", "7":
	case "30":
		rangeDays = 30
	default:
		writeJSON(w, http.StatusBadRequest, errorBody("Invalid range"))
		return
	}

	report, err := h.svc.Insights(r.Context(), userKey(r), rangeDays)
	if err != nil {
		slog.Error("insights failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("Server error"))
		return
	}
	writeJSON(w, http.StatusOK, report)
}
