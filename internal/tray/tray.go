// Package tray provides a system tray menu for controlling a running
// T-Rex Vision detector.
package tray

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/getlantern/systray"

	"github.com/ayusman/trexvision/internal/config"
	"github.com/ayusman/trexvision/internal/store"
)

// Threshold and frame memory steps of one menu click, matching the window
// keys.
const (
	thresholdStep = 1.0
	memoryStep    = 1
)

// Controller is the detector as driven from the tray. *app.App implements it.
type Controller interface {
	SetEnabled(enabled bool)
	IsEnabled() bool
	Settings() config.DetectorConfig
	Nudge(dThreshold float64, dDepth int) (config.DetectorConfig, error)
	ResetHistory()
	SaveScreenshot() (*store.Screenshot, error)
}

// Tray represents the system tray application.
type Tray struct {
	ctrl       Controller
	onSettings func()
	onQuit     func()
	mu         sync.RWMutex

	// Menu items stored for later updates
	menuToggle    *systray.MenuItem
	menuThreshold *systray.MenuItem
	menuMemory    *systray.MenuItem
	menuLastShot  *systray.MenuItem

	// shown is what the labels display.
	shown    config.DetectorConfig
	hasShown bool
}

// New creates a new Tray controlling ctrl.
func New(ctrl Controller) *Tray {
	return &Tray{ctrl: ctrl}
}

// OnSettings sets the callback function to be called when the dashboard menu item is clicked.
func (t *Tray) OnSettings(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onSettings = fn
}

// OnQuit sets the callback function to be called when the quit menu item is clicked.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the system tray application.
// This function blocks until systray.Quit() is called.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

// onReady is called when the system tray is ready.
// It sets up the menu structure.
func (t *Tray) onReady() {
	systray.SetTitle("T-Rex")
	systray.SetTooltip("T-Rex Vision motion view")

	t.mu.Lock()
	t.menuToggle = systray.AddMenuItem(toggleTitle(t.ctrl.IsEnabled()), "Pause or resume detection")
	systray.AddSeparator()

	t.menuThreshold = systray.AddMenuItem("", "Diff. Threshold")
	t.menuThreshold.Disable()
	thresholdDown := systray.AddMenuItem("Threshold -", "Lower the threshold")
	thresholdUp := systray.AddMenuItem("Threshold +", "Raise the threshold")
	systray.AddSeparator()

	t.menuMemory = systray.AddMenuItem("", "Frame Memory")
	t.menuMemory.Disable()
	memoryDown := systray.AddMenuItem("Memory -", "Remember fewer frames")
	memoryUp := systray.AddMenuItem("Memory +", "Remember more frames")
	reset := systray.AddMenuItem("Reset History", "Forget remembered frames")
	systray.AddSeparator()

	screenshot := systray.AddMenuItem("Save Screenshot", "Save the current camera frame")
	t.menuLastShot = systray.AddMenuItem("Last: none", "Last saved screenshot")
	t.menuLastShot.Disable()
	systray.AddSeparator()

	menuSettings := systray.AddMenuItem("Open Dashboard...", "Open the dashboard in a browser")
	systray.AddSeparator()

	menuQuit := systray.AddMenuItem("Quit", "Quit T-Rex Vision")
	t.mu.Unlock()

	t.refresh()

	// Handle menu item clicks in a separate goroutine
	go func() {
		for {
			select {
			case <-t.menuToggle.ClickedCh:
				t.handleToggle()
			case <-thresholdDown.ClickedCh:
				t.handleNudge(-thresholdStep, 0)
			case <-thresholdUp.ClickedCh:
				t.handleNudge(thresholdStep, 0)
			case <-memoryDown.ClickedCh:
				t.handleNudge(0, -memoryStep)
			case <-memoryUp.ClickedCh:
				t.handleNudge(0, memoryStep)
			case <-reset.ClickedCh:
				t.ctrl.ResetHistory()
			case <-screenshot.ClickedCh:
				t.handleScreenshot()
			case <-menuSettings.ClickedCh:
				t.handleSettings()
			case <-menuQuit.ClickedCh:
				t.handleQuit()
				return
			}
		}
	}()
}

// onExit is called when the system tray is about to exit.
func (t *Tray) onExit() {}

// handleToggle flips the detector between running and paused.
func (t *Tray) handleToggle() {
	enabled := !t.ctrl.IsEnabled()
	t.ctrl.SetEnabled(enabled)

	t.mu.RLock()
	if t.menuToggle != nil {
		t.menuToggle.SetTitle(toggleTitle(enabled))
	}
	t.mu.RUnlock()
}

func (t *Tray) handleNudge(dThreshold float64, dDepth int) {
	if _, err := t.ctrl.Nudge(dThreshold, dDepth); err != nil {
		log.Printf("tray: %v", err)
	}
	t.refresh()
}

func (t *Tray) handleScreenshot() {
	shot, err := t.ctrl.SaveScreenshot()
	if err != nil {
		log.Printf("tray: screenshot failed: %v", err)
		return
	}
	t.SetLastScreenshot(shot.Path)
}

// handleSettings handles the dashboard menu item click.
func (t *Tray) handleSettings() {
	t.mu.RLock()
	callback := t.onSettings
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

// handleQuit handles the quit menu item click.
func (t *Tray) handleQuit() {
	t.mu.RLock()
	callback := t.onQuit
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}

	systray.Quit()
}

// Quit closes the tray, making Run return.
func (t *Tray) Quit() {
	systray.Quit()
}

// refresh shows the detector settings in effect.
func (t *Tray) refresh() {
	t.SetSettings(t.ctrl.Settings())
}

// Watch keeps the labels in step with settings changed elsewhere, such as
// the HTTP API, by checking every interval until ctx is done.
func (t *Tray) Watch(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cfg := t.ctrl.Settings()
			if shown, ok := t.Shown(); !ok || shown != cfg {
				t.SetSettings(cfg)
			}
		}
	}
}

// Shown returns the settings the labels display, and false before any have
// been shown.
func (t *Tray) Shown() (config.DetectorConfig, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.shown, t.hasShown
}

// SetSettings updates the threshold and frame memory labels.
func (t *Tray) SetSettings(cfg config.DetectorConfig) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.shown = cfg
	t.hasShown = true

	if t.menuThreshold != nil {
		t.menuThreshold.SetTitle(thresholdTitle(cfg))
	}
	if t.menuMemory != nil {
		t.menuMemory.SetTitle(memoryTitle(cfg))
	}
}

// SetLastScreenshot updates the last screenshot display in the menu.
func (t *Tray) SetLastScreenshot(path string) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.menuLastShot != nil {
		if path == "" {
			t.menuLastShot.SetTitle("Last: none")
		} else {
			t.menuLastShot.SetTitle("Last: " + path)
		}
	}
}

func toggleTitle(enabled bool) string {
	if enabled {
		return "● Enabled"
	}
	return "○ Paused"
}

func thresholdTitle(cfg config.DetectorConfig) string {
	return fmt.Sprintf("Diff. Threshold: %g", cfg.Threshold)
}

func memoryTitle(cfg config.DetectorConfig) string {
	return fmt.Sprintf("Frame Memory: %d", cfg.HistoryDepth)
}
