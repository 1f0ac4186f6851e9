package api

import (
	"net/http"
	"strconv"

	"github.com/ayusman/mudra/internal/dispatch"
	"github.com/ayusman/mudra/internal/store"
)

const maxHistory = 500

// HistoryHandler serves the stored dispatch history.
type HistoryHandler struct {
	store *store.Store
}

// NewHistoryHandler creates a HistoryHandler.
func NewHistoryHandler(s *store.Store) *HistoryHandler {
	return &HistoryHandler{store: s}
}

type historyResponse struct {
	Records []dispatch.Record        `json:"records"`
	Counts  map[dispatch.Outcome]int `json:"counts"`
}

// ServeHTTP handles GET /api/history?limit=N.
func (h *HistoryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxHistory)
	}

	records, err := h.store.History().Recent(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to read history")
		return
	}
	counts, err := h.store.History().Counts()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to count history")
		return
	}
	if records == nil {
		records = []dispatch.Record{}
	}
	writeJSON(w, http.StatusOK, historyResponse{Records: records, Counts: counts})
}
