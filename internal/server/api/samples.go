package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/store"
)

// SamplesHandler stores recorded samples and retrains the gesture's template
// from all of them.
type SamplesHandler struct {
	store     *store.Store
	templates *gesture.TemplateSet
	trainer   *gesture.Trainer
}

// NewSamplesHandler creates a SamplesHandler. templates may be nil.
func NewSamplesHandler(s *store.Store, templates *gesture.TemplateSet) *SamplesHandler {
	return &SamplesHandler{store: s, templates: templates, trainer: gesture.NewTrainer()}
}

// ServeHTTP routes /api/gestures/{id}/samples.
func (h *SamplesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/gestures/"), "/"), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] != "samples" {
		writeError(w, http.StatusNotFound, "Not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.list(w, r, parts[0])
	case http.MethodPost:
		h.create(w, r, parts[0])
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

type createSamplesRequest struct {
	Samples []json.RawMessage `json:"samples"`
}

type sampleResponse struct {
	ID          int64           `json:"id"`
	GestureID   string          `json:"gesture_id"`
	SampleIndex int             `json:"sample_index"`
	Data        json.RawMessage `json:"data"`
	CreatedAt   string          `json:"created_at"`
}

type listSamplesResponse struct {
	Samples []sampleResponse `json:"samples"`
}

type trainResponse struct {
	Samples int  `json:"samples"`
	Trained bool `json:"trained"`
}

func (h *SamplesHandler) list(w http.ResponseWriter, r *http.Request, gestureID string) {
	if _, err := h.store.Gestures().GetByID(gestureID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Gesture not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get gesture")
		return
	}

	samples, err := h.store.Samples().GetByGestureID(gestureID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list samples")
		return
	}

	response := listSamplesResponse{Samples: make([]sampleResponse, 0, len(samples))}
	for _, s := range samples {
		response.Samples = append(response.Samples, sampleResponse{
			ID:          s.ID,
			GestureID:   s.GestureID,
			SampleIndex: s.SampleIndex,
			Data:        s.Data,
			CreatedAt:   s.CreatedAt.Format(timeFormat),
		})
	}
	writeJSON(w, http.StatusOK, response)
}

// create trains on the stored samples plus the new ones before saving
// anything, so a malformed sample is rejected without touching the store.
func (h *SamplesHandler) create(w http.ResponseWriter, r *http.Request, gestureID string) {
	g, err := h.store.Gestures().GetByID(gestureID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Gesture not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to verify gesture")
		return
	}

	var req createSamplesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if len(req.Samples) == 0 {
		writeError(w, http.StatusBadRequest, "At least one sample is required")
		return
	}

	existing, err := h.store.Samples().Data(gestureID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load samples")
		return
	}
	tmpl, err := h.trainer.Train(g.ID, g.Name, g.Type, append(existing, req.Samples...))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid samples: "+err.Error())
		return
	}
	tmpl.Tolerance = g.Tolerance

	total, err := h.store.Samples().Append(gestureID, req.Samples)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save samples")
		return
	}
	if err := h.store.Gestures().SaveTemplate(tmpl); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save template")
		return
	}
	if h.templates != nil {
		h.templates.Put(tmpl)
	}

	writeJSON(w, http.StatusCreated, trainResponse{Samples: total, Trained: true})
}
