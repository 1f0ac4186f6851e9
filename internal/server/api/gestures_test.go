package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/store"
)

// newTestStore creates a new Store with a temporary database for testing.
func newTestStore(t *testing.T) *store.Store {
	t.Helper()

	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() {
		s.Close()
	})
	return s
}

func createGesture(t *testing.T, s *store.Store, id, name string, typ gesture.Type) *store.Gesture {
	t.Helper()
	g := &store.Gesture{ID: id, Name: name, Type: typ, Tolerance: 0.3}
	if err := s.Gestures().Create(g); err != nil {
		t.Fatalf("failed to create gesture: %v", err)
	}
	return g
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestGestureHandler_List(t *testing.T) {
	s := newTestStore(t)
	handler := NewGestureHandler(s, nil)
	createGesture(t, s, "g1", "rock", gesture.TypeStatic)

	rec := doJSON(t, handler, http.MethodGet, "/api/gestures", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected Content-Type application/json, got %s", ct)
	}

	var response listGesturesResponse
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(response.Gestures) != 1 {
		t.Fatalf("expected 1 gesture, got %d", len(response.Gestures))
	}
	got := response.Gestures[0]
	if got.ID != "g1" || got.Name != "rock" || got.Type != "static" {
		t.Errorf("unexpected gesture %+v", got)
	}
	if got.Trained {
		t.Error("expected an untrained gesture")
	}
}

func TestGestureHandler_ListEmpty(t *testing.T) {
	handler := NewGestureHandler(newTestStore(t), nil)

	rec := doJSON(t, handler, http.MethodGet, "/api/gestures", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	var response listGesturesResponse
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if response.Gestures == nil || len(response.Gestures) != 0 {
		t.Errorf("expected an empty list, got %v", response.Gestures)
	}
}

func TestGestureHandler_Create(t *testing.T) {
	s := newTestStore(t)
	handler := NewGestureHandler(s, nil)

	t.Run("defaults", func(t *testing.T) {
		rec := doJSON(t, handler, http.MethodPost, "/api/gestures", gestureRequest{Name: "rock"})
		if rec.Code != http.StatusCreated {
			t.Fatalf("expected status %d, got %d: %s", http.StatusCreated, rec.Code, rec.Body.String())
		}
		var got gestureResponse
		if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if got.ID == "" {
			t.Error("expected a generated ID")
		}
		if got.Type != string(gesture.TypeStatic) {
			t.Errorf("expected static type, got %s", got.Type)
		}
		if got.Tolerance != gesture.DefaultStaticTolerance {
			t.Errorf("expected default tolerance %v, got %v", gesture.DefaultStaticTolerance, got.Tolerance)
		}
		if _, err := s.Gestures().GetByID(got.ID); err != nil {
			t.Errorf("gesture not stored: %v", err)
		}
	})

	t.Run("dynamic default tolerance", func(t *testing.T) {
		rec := doJSON(t, handler, http.MethodPost, "/api/gestures", gestureRequest{Name: "circle", Type: "dynamic"})
		if rec.Code != http.StatusCreated {
			t.Fatalf("expected status %d, got %d", http.StatusCreated, rec.Code)
		}
		var got gestureResponse
		json.NewDecoder(rec.Body).Decode(&got)
		if got.Tolerance != gesture.DefaultDynamicTolerance {
			t.Errorf("expected tolerance %v, got %v", gesture.DefaultDynamicTolerance, got.Tolerance)
		}
	})

	t.Run("duplicate name", func(t *testing.T) {
		rec := doJSON(t, handler, http.MethodPost, "/api/gestures", gestureRequest{Name: "rock"})
		if rec.Code != http.StatusConflict {
			t.Errorf("expected status %d, got %d", http.StatusConflict, rec.Code)
		}
	})
}

func TestGestureHandler_CreateInvalid(t *testing.T) {
	handler := NewGestureHandler(newTestStore(t), nil)

	tests := []struct {
		name string
		body gestureRequest
	}{
		{"missing name", gestureRequest{}},
		{"blank name", gestureRequest{Name: "  "}},
		{"builtin name", gestureRequest{Name: "Thumbs_Up"}},
		{"unknown type", gestureRequest{Name: "wave", Type: "sideways"}},
		{"negative tolerance", gestureRequest{Name: "wave", Tolerance: -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, handler, http.MethodPost, "/api/gestures", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("expected status %d, got %d", http.StatusBadRequest, rec.Code)
			}
			var errResp errorResponse
			if err := json.NewDecoder(rec.Body).Decode(&errResp); err != nil || errResp.Error == "" {
				t.Errorf("expected an error message, got %v", err)
			}
		})
	}

	t.Run("invalid JSON", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/gestures", bytes.NewBufferString("{not json"))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected status %d, got %d", http.StatusBadRequest, rec.Code)
		}
	})
}

func TestGestureHandler_Get(t *testing.T) {
	s := newTestStore(t)
	handler := NewGestureHandler(s, nil)
	createGesture(t, s, "g1", "rock", gesture.TypeStatic)

	rec := doJSON(t, handler, http.MethodGet, "/api/gestures/g1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	var got gestureResponse
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if got.Name != "rock" || got.Tolerance != 0.3 {
		t.Errorf("unexpected gesture %+v", got)
	}

	rec = doJSON(t, handler, http.MethodGet, "/api/gestures/missing", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status %d, got %d", http.StatusNotFound, rec.Code)
	}
}

func TestGestureHandler_Update(t *testing.T) {
	s := newTestStore(t)
	templates := gesture.NewTemplateSet()
	handler := NewGestureHandler(s, templates)
	createGesture(t, s, "g1", "rock", gesture.TypeStatic)

	rec := doJSON(t, handler, http.MethodPut, "/api/gestures/g1", gestureRequest{Name: "stone", Tolerance: 0.5})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
	}
	g, err := s.Gestures().GetByID("g1")
	if err != nil {
		t.Fatal(err)
	}
	if g.Name != "stone" || g.Tolerance != 0.5 {
		t.Errorf("update not stored: %+v", g)
	}
	if templates.Len() != 0 {
		t.Error("an untrained gesture must not enter the template set")
	}

	rec = doJSON(t, handler, http.MethodPut, "/api/gestures/missing", gestureRequest{Name: "x"})
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status %d, got %d", http.StatusNotFound, rec.Code)
	}
}

func TestGestureHandler_UpdateRefreshesTemplate(t *testing.T) {
	s := newTestStore(t)
	templates := gesture.NewTemplateSet()
	handler := NewGestureHandler(s, templates)
	createGesture(t, s, "g1", "rock", gesture.TypeStatic)
	seedTemplate(t, s, "g1")

	rec := doJSON(t, handler, http.MethodPut, "/api/gestures/g1", gestureRequest{Name: "stone"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	if names := templates.Names(); len(names) != 1 || names[0] != "stone" {
		t.Errorf("expected the renamed template to be live, got %v", names)
	}

	// A trained gesture keeps its type.
	rec = doJSON(t, handler, http.MethodPut, "/api/gestures/g1", gestureRequest{Type: "dynamic"})
	if rec.Code != http.StatusConflict {
		t.Errorf("expected status %d, got %d", http.StatusConflict, rec.Code)
	}
}

func TestGestureHandler_Delete(t *testing.T) {
	s := newTestStore(t)
	templates := gesture.NewTemplateSet()
	handler := NewGestureHandler(s, templates)
	createGesture(t, s, "g1", "rock", gesture.TypeStatic)
	seedTemplate(t, s, "g1")
	templates.Put(&gesture.Template{ID: "g1", Name: "rock", Type: gesture.TypeStatic})

	rec := doJSON(t, handler, http.MethodDelete, "/api/gestures/g1", nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected status %d, got %d", http.StatusNoContent, rec.Code)
	}
	if _, err := s.Gestures().GetByID("g1"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if templates.Len() != 0 {
		t.Error("expected the template to be removed from the live set")
	}

	rec = doJSON(t, handler, http.MethodDelete, "/api/gestures/g1", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status %d, got %d", http.StatusNotFound, rec.Code)
	}
}

func TestGestureHandler_MethodNotAllowed(t *testing.T) {
	handler := NewGestureHandler(newTestStore(t), nil)

	tests := []struct {
		method string
		path   string
	}{
		{http.MethodPut, "/api/gestures"},
		{http.MethodDelete, "/api/gestures"},
		{http.MethodPatch, "/api/gestures"},
		{http.MethodPost, "/api/gestures/g1"},
		{http.MethodPatch, "/api/gestures/g1"},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := doJSON(t, handler, tt.method, tt.path, nil)
			if rec.Code != http.StatusMethodNotAllowed {
				t.Errorf("expected status %d, got %d", http.StatusMethodNotAllowed, rec.Code)
			}
		})
	}
}
