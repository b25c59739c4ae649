package api

import (
	"encoding/json"
	"net/http"

	"github.com/ayusman/trexvision/internal/config"
)

// SettingsController reads and changes the detector settings.
type SettingsController interface {
	Settings() config.DetectorConfig
	UpdateSettings(config.Update) (config.DetectorConfig, error)
}

// SettingsHandler serves /api/settings.
type SettingsHandler struct {
	ctrl SettingsController
}

// NewSettingsHandler creates a new SettingsHandler.
func NewSettingsHandler(ctrl SettingsController) *SettingsHandler {
	return &SettingsHandler{ctrl: ctrl}
}

// ServeHTTP handles GET and PUT. A PUT body may set either field; a changed
// history_depth discards the frame history.
func (h *SettingsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, h.ctrl.Settings())
	case http.MethodPut:
		h.update(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *SettingsHandler) update(w http.ResponseWriter, r *http.Request) {
	var req config.Update
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON: "+err.Error())
		return
	}

	cfg, err := h.ctrl.UpdateSettings(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, cfg)
}
