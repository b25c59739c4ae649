package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/ayusman/trexvision/internal/change"
)

// PixelProber reports the history of one pixel.
type PixelProber interface {
	PixelStats(x, y int) (change.PixelStats, error)
}

// PixelHandler serves /api/pixel?x=&y=.
type PixelHandler struct {
	prober PixelProber
}

// NewPixelHandler creates a new PixelHandler.
func NewPixelHandler(p PixelProber) *PixelHandler {
	return &PixelHandler{prober: p}
}

// ServeHTTP returns the samples, mean, standard deviation and visibility of
// the requested pixel.
func (h *PixelHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	q := r.URL.Query()
	x, err := strconv.Atoi(q.Get("x"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "x must be an integer")
		return
	}
	y, err := strconv.Atoi(q.Get("y"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "y must be an integer")
		return
	}

	stats, err := h.prober.PixelStats(x, y)
	switch {
	case errors.Is(err, change.ErrNotReady):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, change.ErrOutOfBounds):
		writeError(w, http.StatusBadRequest, err.Error())
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
	default:
		writeJSON(w, http.StatusOK, stats)
	}
}
