// Package server provides the HTTP server for T-Rex Vision.
package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ayusman/trexvision/internal/app"
	"github.com/ayusman/trexvision/internal/change"
	"github.com/ayusman/trexvision/internal/server/api"
	"github.com/ayusman/trexvision/internal/store"
)

// Controller is the running pipeline as seen by the HTTP surface.
// *app.App implements it.
type Controller interface {
	api.SettingsController
	api.ScreenshotTaker
	api.PixelProber

	IsEnabled() bool
	LastStats() (app.FrameStats, bool)
	LatestJPEG() ([]byte, uint64, error)
	Subscribe() (<-chan app.FrameStats, func())
	Activity() []app.FrameStats
	StdDevField() (*change.Field, error)
}

// Config holds the server configuration.
type Config struct {
	StaticDir string
	Store     *store.Store
	App       Controller
}

// Server represents the HTTP server for the T-Rex Vision application.
type Server struct {
	config Config
	mux    *http.ServeMux
	start  time.Time
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	s := &Server{
		config: config,
		mux:    http.NewServeMux(),
		start:  time.Now(),
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)

	if s.config.App != nil {
		s.mux.Handle("/api/settings", api.NewSettingsHandler(s.config.App))
		s.mux.Handle("/api/pixel", api.NewPixelHandler(s.config.App))
		s.mux.Handle("/api/stream", NewStreamHandler(s.config.App))
		s.mux.Handle("/api/stats", NewStatsHandler(s.config.App))

		debug := NewDebugHandler(s.config.App)
		s.mux.HandleFunc("/debug/histogram.png", debug.handleHistogram)
		s.mux.HandleFunc("/debug/activity", debug.handleActivity)
	}

	// Screenshot records live in the store; taking one needs the pipeline
	if s.config.Store != nil && s.config.App != nil {
		screenshots := api.NewScreenshotHandler(s.config.Store, s.config.App, app.ErrNoFrame)
		s.mux.Handle("/api/screenshots", screenshots)
		s.mux.Handle("/api/screenshots/", screenshots)
	}

	// Serve static files if StaticDir is configured
	if s.config.StaticDir != "" {
		fs := http.FileServer(http.Dir(s.config.StaticDir))
		s.mux.Handle("/", fs)
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	uptime := time.Since(s.start)

	response := map[string]interface{}{
		"status": "ok",
		"uptime": uptime.String(),
	}
	if s.config.App != nil {
		response["enabled"] = s.config.App.IsEnabled()
		if stats, ok := s.config.App.LastStats(); ok {
			response["frames"] = stats.Seq
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}
}

// ListenAndServe starts the HTTP server on the given address.
func (s *Server) ListenAndServe(addr string) error {
	return http.ListenAndServe(addr, s)
}

// HTTPServer wraps s in an http.Server for callers that need Shutdown.
func (s *Server) HTTPServer(addr string) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}
}
