package display

import (
	"context"
	"log"
	"math"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"

	"github.com/ayusman/trexvision/internal/app"
	"github.com/ayusman/trexvision/internal/capture"
	"github.com/ayusman/trexvision/internal/config"
	"github.com/ayusman/trexvision/internal/store"
)

// Window and trackbar names.
const (
	Title             = "T-Rex Vision | Press Q or Esc to quit"
	ThresholdTrackbar = "Diff. Threshold"
	MemoryTrackbar    = "Frame Memory"
)

// keyDelayMs is how long WaitKey blocks per frame.
const keyDelayMs = 5

// Controller is the part of *app.App the window drives.
type Controller interface {
	Step() (*app.Result, error)
	Settings() config.DetectorConfig
	UpdateSettings(config.Update) (config.DetectorConfig, error)
	Nudge(dThreshold float64, dDepth int) (config.DetectorConfig, error)
	SaveScreenshot() (*store.Screenshot, error)
}

// panel abstracts the two trackbars.
type panel interface {
	ThresholdPos() int
	SetThresholdPos(int)
	MemoryPos() int
	SetMemoryPos(int)
}

// Window shows each processed frame and keeps the trackbars and the
// detector settings in step.
type Window struct {
	ctrl   Controller
	win    *gocv.Window
	panel  panel
	thresh int
	memory int
}

// NewWindow opens the output window with its two trackbars set to the
// current settings. It must be called from the main goroutine.
func NewWindow(ctrl Controller) *Window {
	win := gocv.NewWindow(Title)
	win.SetWindowProperty(gocv.WindowPropertyAspectRatio, gocv.WindowKeepRatio)

	tb := &trackbars{
		threshold: win.CreateTrackbar(ThresholdTrackbar, int(config.MaxThreshold)),
		memory:    win.CreateTrackbar(MemoryTrackbar, config.MaxInteractiveHistoryDepth),
	}
	return newWindow(ctrl, win, tb)
}

func newWindow(ctrl Controller, win *gocv.Window, p panel) *Window {
	w := &Window{ctrl: ctrl, win: win, panel: p}
	cfg := ctrl.Settings()
	w.thresh = thresholdPos(cfg)
	w.memory = memoryPos(cfg)
	p.SetThresholdPos(w.thresh)
	p.SetMemoryPos(w.memory)
	return w
}

// Run shows frames until the user quits, the window is closed, the source
// runs out or ctx is cancelled.
func (w *Window) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		res, err := w.ctrl.Step()
		switch {
		case errors.Is(err, capture.ErrEndOfStream):
			log.Println("Capture source exhausted")
			return nil
		case errors.Is(err, capture.ErrCameraNotOpen):
			return err
		case err != nil:
			log.Printf("Error processing frame: %v", err)
		default:
			w.win.IMShow(res.Output)
			res.Close()
		}

		w.sync()

		if w.handleKey(w.win.WaitKey(keyDelayMs)) {
			return nil
		}
		if !w.win.IsOpen() {
			return nil
		}
	}
}

// Close closes the window.
func (w *Window) Close() error {
	return w.win.Close()
}

// handleKey applies the command bound to key and reports whether to quit.
func (w *Window) handleKey(key int) bool {
	cmd := CommandForKey(key)
	switch cmd {
	case CommandNone:
		return false
	case CommandQuit:
		return true
	case CommandScreenshot:
		if _, err := w.ctrl.SaveScreenshot(); err != nil {
			log.Printf("Screenshot failed: %v", err)
		}
		return false
	}

	dT, dD := cmd.Step()
	cfg, err := w.ctrl.Nudge(dT, dD)
	if err != nil {
		log.Printf("%s: %v", cmd, err)
		return false
	}
	w.show(cfg)
	return false
}

// sync pushes trackbar drags into the settings, then moves the trackbars to
// follow settings changed elsewhere (keys, HTTP, tray).
func (w *Window) sync() {
	if pos := w.panel.ThresholdPos(); pos != w.thresh {
		w.thresh = pos
		threshold := float64(pos)
		if _, err := w.ctrl.UpdateSettings(config.Update{Threshold: &threshold}); err != nil {
			log.Printf("%s: %v", ThresholdTrackbar, err)
		}
	}
	if pos := w.panel.MemoryPos(); pos != w.memory {
		w.memory = pos
		depth := pos
		if _, err := w.ctrl.UpdateSettings(config.Update{HistoryDepth: &depth}); err != nil {
			log.Printf("%s: %v", MemoryTrackbar, err)
		}
	}
	w.show(w.ctrl.Settings())
}

// show moves the trackbars to cfg. Values beyond a trackbar's range pin it
// at the end without writing the pinned value back.
func (w *Window) show(cfg config.DetectorConfig) {
	if pos := thresholdPos(cfg); pos != w.thresh {
		w.thresh = pos
		w.panel.SetThresholdPos(pos)
	}
	if pos := memoryPos(cfg); pos != w.memory {
		w.memory = pos
		w.panel.SetMemoryPos(pos)
	}
}

func thresholdPos(cfg config.DetectorConfig) int {
	return clamp(int(math.Round(cfg.Threshold)), 0, int(config.MaxThreshold))
}

func memoryPos(cfg config.DetectorConfig) int {
	return clamp(cfg.HistoryDepth, 0, config.MaxInteractiveHistoryDepth)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// trackbars is the gocv implementation of panel.
type trackbars struct {
	threshold *gocv.Trackbar
	memory    *gocv.Trackbar
}

func (t *trackbars) ThresholdPos() int       { return t.threshold.GetPos() }
func (t *trackbars) SetThresholdPos(pos int) { t.threshold.SetPos(pos) }
func (t *trackbars) MemoryPos() int          { return t.memory.GetPos() }
func (t *trackbars) SetMemoryPos(pos int)    { t.memory.SetPos(pos) }
