package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/store"
)

// GestureHandler handles HTTP requests for gesture resources. Changes are
// mirrored into the live template set so the gesture loop sees them at once.
type GestureHandler struct {
	store     *store.Store
	templates *gesture.TemplateSet
}

// NewGestureHandler creates a GestureHandler. templates may be nil.
func NewGestureHandler(s *store.Store, templates *gesture.TemplateSet) *GestureHandler {
	return &GestureHandler{store: s, templates: templates}
}

// ServeHTTP routes /api/gestures and /api/gestures/{id}.
func (h *GestureHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/gestures"), "/")

	if id == "" {
		switch r.Method {
		case http.MethodGet:
			h.list(w, r)
		case http.MethodPost:
			h.create(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.get(w, r, id)
	case http.MethodPut:
		h.update(w, r, id)
	case http.MethodDelete:
		h.delete(w, r, id)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

type gestureRequest struct {
	Name      string  `json:"name"`
	Type      string  `json:"type"`
	Tolerance float64 `json:"tolerance"`
}

type gestureResponse struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Type      string  `json:"type"`
	Tolerance float64 `json:"tolerance"`
	Samples   int     `json:"samples"`
	Trained   bool    `json:"trained"`
	CreatedAt string  `json:"created_at"`
	UpdatedAt string  `json:"updated_at"`
}

type listGesturesResponse struct {
	Gestures []gestureResponse `json:"gestures"`
}

func (h *GestureHandler) toResponse(g *store.Gesture) gestureResponse {
	_, err := h.store.Gestures().Template(g.ID)
	return gestureResponse{
		ID:        g.ID,
		Name:      g.Name,
		Type:      string(g.Type),
		Tolerance: g.Tolerance,
		Samples:   g.Samples,
		Trained:   err == nil,
		CreatedAt: g.CreatedAt.Format(timeFormat),
		UpdatedAt: g.UpdatedAt.Format(timeFormat),
	}
}

// validateName rejects names that would shadow a built-in label.
func validateName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "Name is required"
	}
	if slices.Contains(gesture.BuiltinLabels(), strings.ToLower(name)) {
		return "Name is a built-in gesture"
	}
	return ""
}

func parseType(s string) (gesture.Type, bool) {
	switch gesture.Type(s) {
	case "", gesture.TypeStatic:
		return gesture.TypeStatic, true
	case gesture.TypeDynamic:
		return gesture.TypeDynamic, true
	}
	return "", false
}

func (h *GestureHandler) list(w http.ResponseWriter, r *http.Request) {
	gestures, err := h.store.Gestures().List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list gestures")
		return
	}

	response := listGesturesResponse{Gestures: make([]gestureResponse, 0, len(gestures))}
	for _, g := range gestures {
		response.Gestures = append(response.Gestures, h.toResponse(g))
	}
	writeJSON(w, http.StatusOK, response)
}

func (h *GestureHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	g, err := h.store.Gestures().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Gesture not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get gesture")
		return
	}
	writeJSON(w, http.StatusOK, h.toResponse(g))
}

func (h *GestureHandler) create(w http.ResponseWriter, r *http.Request) {
	var req gestureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if msg := validateName(req.Name); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	typ, ok := parseType(req.Type)
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid gesture type")
		return
	}
	if req.Tolerance < 0 {
		writeError(w, http.StatusBadRequest, "Tolerance must be positive")
		return
	}

	tolerance := req.Tolerance
	if tolerance == 0 {
		tolerance = gesture.DefaultStaticTolerance
		if typ == gesture.TypeDynamic {
			tolerance = gesture.DefaultDynamicTolerance
		}
	}

	if _, err := h.store.Gestures().GetByName(strings.TrimSpace(req.Name)); err == nil {
		writeError(w, http.StatusConflict, "Gesture name already exists")
		return
	}

	g := &store.Gesture{
		ID:        uuid.NewString(),
		Name:      strings.TrimSpace(req.Name),
		Type:      typ,
		Tolerance: tolerance,
	}
	if err := h.store.Gestures().Create(g); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create gesture")
		return
	}
	writeJSON(w, http.StatusCreated, h.toResponse(g))
}

func (h *GestureHandler) update(w http.ResponseWriter, r *http.Request, id string) {
	g, err := h.store.Gestures().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Gesture not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get gesture")
		return
	}

	var req gestureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if req.Name != "" {
		if msg := validateName(req.Name); msg != "" {
			writeError(w, http.StatusBadRequest, msg)
			return
		}
		g.Name = strings.TrimSpace(req.Name)
	}
	if req.Type != "" {
		typ, ok := parseType(req.Type)
		if !ok {
			writeError(w, http.StatusBadRequest, "Invalid gesture type")
			return
		}
		if typ != g.Type && h.trained(g) {
			writeError(w, http.StatusConflict, "Cannot change the type of a trained gesture")
			return
		}
		g.Type = typ
	}
	if req.Tolerance < 0 {
		writeError(w, http.StatusBadRequest, "Tolerance must be positive")
		return
	}
	if req.Tolerance != 0 {
		g.Tolerance = req.Tolerance
	}

	if err := h.store.Gestures().Update(g); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to update gesture")
		return
	}
	h.refresh(g.ID)
	writeJSON(w, http.StatusOK, h.toResponse(g))
}

func (h *GestureHandler) delete(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.store.Gestures().Delete(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Gesture not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete gesture")
		return
	}
	if h.templates != nil {
		h.templates.Remove(id)
	}
	w.WriteHeader(http.StatusNoContent)
}

// trained reports whether g has samples or a stored template.
func (h *GestureHandler) trained(g *store.Gesture) bool {
	if g.Samples > 0 {
		return true
	}
	_, err := h.store.Gestures().Template(g.ID)
	return err == nil
}

// refresh reloads a trained template into the live set after a rename or
// tolerance change.
func (h *GestureHandler) refresh(id string) {
	if h.templates == nil {
		return
	}
	t, err := h.store.Gestures().Template(id)
	if err != nil {
		h.templates.Remove(id)
		return
	}
	h.templates.Put(t)
}
