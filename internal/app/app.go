// Package app drives the T-Rex Vision pipeline: it reads frames from the
// capture source, feeds them through the change detector and keeps the
// latest output around for the window, the HTTP server and the tray.
package app

import (
	"log"
	"sync"
	"time"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"

	"github.com/ayusman/trexvision/internal/capture"
	"github.com/ayusman/trexvision/internal/change"
	"github.com/ayusman/trexvision/internal/config"
	"github.com/ayusman/trexvision/internal/store"
	"github.com/ayusman/trexvision/internal/trex"
)

// ActivitySize is how many per-frame stats are kept for the activity chart.
const ActivitySize = 300

// ErrNoFrame is returned by operations that need a processed frame before the
// first one has arrived.
var ErrNoFrame = errors.New("no frame captured yet")

// Config holds configuration options for the application.
type Config struct {
	// Store persists settings and screenshot records. Optional.
	Store *store.Store
	// Camera overrides the capture device built from Capture. Optional.
	Camera  capture.Camera
	Capture capture.Config

	Detector config.DetectorConfig
	// RestoreSettings replaces Detector with the settings last saved in
	// Store, if any.
	RestoreSettings bool

	ScreenshotDir string
}

// FrameStats summarises one processed frame.
type FrameStats struct {
	Seq          uint64    `json:"seq"`
	Timestamp    time.Time `json:"timestamp"`
	Width        int       `json:"width"`
	Height       int       `json:"height"`
	Flagged      int       `json:"flagged"`
	Total        int       `json:"total"`
	Ratio        float64   `json:"ratio"`
	Threshold    float64   `json:"threshold"`
	HistoryDepth int       `json:"history_depth"`
	Buffered     int       `json:"buffered"`
}

// Result is the outcome of one Step. The caller owns Output and must call
// Close.
type Result struct {
	Output gocv.Mat
	Mask   *change.Mask
	Stats  FrameStats
}

// Close releases the output image.
func (r *Result) Close() {
	if r == nil {
		return
	}
	r.Output.Close()
}

// App is the main application that owns the detector state and the capture
// source.
type App struct {
	config Config
	camera capture.Camera
	pre    *capture.Preprocessor
	state  *trex.State

	enabled bool
	mu      sync.RWMutex
	stopCh  chan struct{}
	doneCh  chan struct{}

	// stepMu serialises Step so the window loop and the background
	// pipeline never read the camera at the same time.
	stepMu sync.Mutex

	// settingsMu orders settings changes with their saves.
	settingsMu sync.Mutex

	frameMu   sync.Mutex
	seq       uint64
	lastRaw   gocv.Mat
	lastOut   gocv.Mat
	lastStats FrameStats
	hasFrame  bool
	jpeg      []byte
	jpegSeq   uint64

	subsMu sync.Mutex
	subs   map[chan FrameStats]struct{}

	shotMu  sync.Mutex
	shotSeq int

	activity *activityRing
}

// New creates a new App. The detector settings come from config.Detector,
// or from the store when RestoreSettings is set and something was saved.
func New(cfg Config) (*App, error) {
	detector := cfg.Detector
	if cfg.RestoreSettings && cfg.Store != nil {
		saved, ok, err := cfg.Store.Settings().LoadDetector()
		switch {
		case err != nil:
			log.Printf("Ignoring saved settings: %v", err)
		case ok:
			log.Printf("Restored settings: threshold=%g history_depth=%d", saved.Threshold, saved.HistoryDepth)
			detector = saved
		}
	}

	state, err := trex.NewState(detector)
	if err != nil {
		return nil, errors.Wrap(err, "detector settings")
	}

	camera := cfg.Camera
	if camera == nil {
		camera = capture.NewCamera(cfg.Capture)
	}
	if cfg.ScreenshotDir == "" {
		cfg.ScreenshotDir = "."
	}

	return &App{
		config:   cfg,
		camera:   camera,
		pre:      capture.NewPreprocessor(),
		state:    state,
		enabled:  true,
		lastRaw:  gocv.NewMat(),
		lastOut:  gocv.NewMat(),
		subs:     make(map[chan FrameStats]struct{}),
		activity: newActivityRing(ActivitySize),
	}, nil
}

// SetEnabled pauses or resumes the background pipeline.
func (a *App) SetEnabled(enabled bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.enabled != enabled {
		log.Printf("Detection enabled: %v", enabled)
	}
	a.enabled = enabled
}

// IsEnabled returns whether the background pipeline processes frames.
func (a *App) IsEnabled() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.enabled
}

// Open opens the capture source. Step needs an open source; Start opens it
// on its own.
func (a *App) Open() error {
	if err := a.camera.Open(); err != nil {
		return errors.Wrap(err, "open capture source")
	}
	return nil
}

// Close closes the capture source and releases retained frames.
func (a *App) Close() error {
	err := a.camera.Close()
	a.pre.Close()

	a.frameMu.Lock()
	a.lastRaw.Close()
	a.lastOut.Close()
	a.lastRaw = gocv.NewMat()
	a.lastOut = gocv.NewMat()
	a.hasFrame = false
	a.jpeg = nil
	a.frameMu.Unlock()

	return err
}

// Start opens the capture source and runs the pipeline in the background at
// the camera frame rate.
func (a *App) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	// Don't start if already running
	if a.stopCh != nil {
		return nil
	}

	if err := a.Open(); err != nil {
		return err
	}

	a.stopCh = make(chan struct{})
	a.doneCh = make(chan struct{})
	go a.runPipeline(a.stopCh, a.doneCh)

	log.Println("Detection pipeline started")
	return nil
}

// Stop halts the pipeline, waits for it to exit and releases resources.
func (a *App) Stop() {
	a.mu.Lock()
	stopCh, doneCh := a.stopCh, a.doneCh
	a.stopCh = nil
	a.mu.Unlock()

	if stopCh != nil {
		close(stopCh)
		<-doneCh
	}

	if err := a.Close(); err != nil {
		log.Printf("Error closing camera: %v", err)
	}

	log.Println("Detection pipeline stopped")
}

// Done is closed when the background pipeline exits, either through Stop or
// because a file source ran out of frames. It is nil before Start.
func (a *App) Done() <-chan struct{} {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.doneCh
}

// Camera returns the capture source.
func (a *App) Camera() capture.Camera {
	return a.camera
}

// Settings returns the detector settings in effect.
func (a *App) Settings() config.DetectorConfig {
	return a.state.Config()
}

// UpdateSettings applies a partial update. Changing the history depth
// discards the history. Valid settings are saved to the store.
func (a *App) UpdateSettings(u config.Update) (config.DetectorConfig, error) {
	a.settingsMu.Lock()
	defer a.settingsMu.Unlock()

	cfg, changed, err := a.state.Update(u)
	if err != nil {
		return cfg, err
	}
	if changed {
		a.persist(cfg)
	}
	return cfg, nil
}

// Nudge steps the threshold by dThreshold and the history depth by dDepth
// within the interactive ranges.
func (a *App) Nudge(dThreshold float64, dDepth int) (config.DetectorConfig, error) {
	a.settingsMu.Lock()
	defer a.settingsMu.Unlock()

	cfg, changed, err := a.state.Nudge(dThreshold, dDepth)
	if err != nil {
		return cfg, err
	}
	if changed {
		a.persist(cfg)
	}
	return cfg, nil
}

// persist saves cfg. Callers hold settingsMu so saves land in the order the
// changes were applied.
func (a *App) persist(cfg config.DetectorConfig) {
	if a.config.Store == nil {
		return
	}
	if err := a.config.Store.Settings().SaveDetector(cfg); err != nil {
		log.Printf("Failed to save settings: %v", err)
	}
}

// ResetHistory empties the frame history; the next frame bootstraps it.
func (a *App) ResetHistory() {
	a.state.Reset()
}

// PixelStats probes one pixel of the current history.
func (a *App) PixelStats(x, y int) (change.PixelStats, error) {
	return a.state.PixelStats(x, y)
}

// StdDevField returns the unthresholded deviation of every pixel.
func (a *App) StdDevField() (*change.Field, error) {
	return a.state.StdDevField()
}

// LastStats returns the stats of the most recent frame.
func (a *App) LastStats() (FrameStats, bool) {
	a.frameMu.Lock()
	defer a.frameMu.Unlock()
	return a.lastStats, a.hasFrame
}

// Activity returns up to ActivitySize recent frame stats, oldest first.
func (a *App) Activity() []FrameStats {
	return a.activity.Snapshot()
}

// LatestJPEG returns the most recent output frame as JPEG along with its
// sequence number. Encoding happens once per frame however many clients ask.
func (a *App) LatestJPEG() ([]byte, uint64, error) {
	a.frameMu.Lock()
	defer a.frameMu.Unlock()

	if !a.hasFrame {
		return nil, 0, ErrNoFrame
	}
	if a.jpeg != nil && a.jpegSeq == a.seq {
		return a.jpeg, a.seq, nil
	}

	buf, err := gocv.IMEncode(".jpg", a.lastOut)
	if err != nil {
		return nil, 0, errors.Wrap(err, "encode jpeg")
	}
	defer buf.Close()

	data := make([]byte, buf.Len())
	copy(data, buf.GetBytes())
	a.jpeg = data
	a.jpegSeq = a.seq
	return data, a.seq, nil
}

// Subscribe returns a channel receiving the stats of every processed frame
// and a function to unsubscribe. Slow subscribers miss frames instead of
// stalling the pipeline.
func (a *App) Subscribe() (<-chan FrameStats, func()) {
	ch := make(chan FrameStats, 8)

	a.subsMu.Lock()
	a.subs[ch] = struct{}{}
	a.subsMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			a.subsMu.Lock()
			delete(a.subs, ch)
			a.subsMu.Unlock()
			close(ch)
		})
	}
}

func (a *App) publish(stats FrameStats) {
	a.subsMu.Lock()
	defer a.subsMu.Unlock()

	for ch := range a.subs {
		select {
		case ch <- stats:
		default:
		}
	}
}
