package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/ayusman/trexvision/internal/store"
)

// ScreenshotTaker saves and removes screenshots.
type ScreenshotTaker interface {
	SaveScreenshot() (*store.Screenshot, error)
	DeleteScreenshot(id string) error
}

// ScreenshotHandler serves /api/screenshots and /api/screenshots/{id}.
type ScreenshotHandler struct {
	store *store.Store
	taker ScreenshotTaker
	// noFrame is the error the taker returns before the first frame.
	noFrame error
}

// NewScreenshotHandler creates a new ScreenshotHandler. noFrame is mapped to
// 503 Service Unavailable.
func NewScreenshotHandler(s *store.Store, taker ScreenshotTaker, noFrame error) *ScreenshotHandler {
	return &ScreenshotHandler{store: s, taker: taker, noFrame: noFrame}
}

type listScreenshotsResponse struct {
	Screenshots []*store.Screenshot `json:"screenshots"`
}

// ServeHTTP implements the http.Handler interface and routes requests to appropriate methods.
func (h *ScreenshotHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/screenshots")
	path = strings.TrimPrefix(path, "/")

	if path == "" {
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

	id := path
	switch r.Method {
	case http.MethodGet:
		h.get(w, r, id)
	case http.MethodDelete:
		h.delete(w, r, id)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// list handles GET /api/screenshots, newest first.
func (h *ScreenshotHandler) list(w http.ResponseWriter, r *http.Request) {
	shots, err := h.store.Screenshots().List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list screenshots")
		return
	}
	if shots == nil {
		shots = []*store.Screenshot{}
	}
	writeJSON(w, http.StatusOK, listScreenshotsResponse{Screenshots: shots})
}

// create handles POST /api/screenshots by saving the current frame.
func (h *ScreenshotHandler) create(w http.ResponseWriter, r *http.Request) {
	shot, err := h.taker.SaveScreenshot()
	if err != nil {
		if h.noFrame != nil && errors.Is(err, h.noFrame) {
			writeError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to save screenshot: "+err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, shot)
}

// get handles GET /api/screenshots/{id}.
func (h *ScreenshotHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	shot, err := h.store.Screenshots().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Screenshot not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get screenshot")
		return
	}
	writeJSON(w, http.StatusOK, shot)
}

// delete handles DELETE /api/screenshots/{id}, removing the file as well.
func (h *ScreenshotHandler) delete(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.taker.DeleteScreenshot(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Screenshot not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete screenshot")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
