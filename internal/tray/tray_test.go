package tray

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ayusman/trexvision/internal/config"
	"github.com/ayusman/trexvision/internal/store"
)

type fakeController struct {
	mu      sync.Mutex
	enabled bool
	cfg     config.DetectorConfig
	resets  int
	shots   int
	failing bool
}

func (f *fakeController) SetEnabled(enabled bool) { f.enabled = enabled }

func (f *fakeController) IsEnabled() bool { return f.enabled }

func (f *fakeController) Settings() config.DetectorConfig {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cfg
}

func (f *fakeController) setSettings(cfg config.DetectorConfig) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cfg = cfg
}

func (f *fakeController) Nudge(dThreshold float64, dDepth int) (config.DetectorConfig, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cfg = f.cfg.Nudge(dThreshold, dDepth)
	return f.cfg, nil
}

func (f *fakeController) ResetHistory() { f.resets++ }

func (f *fakeController) SaveScreenshot() (*store.Screenshot, error) {
	if f.failing {
		return nil, errors.New("no frame captured yet")
	}
	f.shots++
	return &store.Screenshot{Path: "000.jpg"}, nil
}

func TestTray_Toggle(t *testing.T) {
	ctrl := &fakeController{enabled: true, cfg: config.DefaultDetector()}
	tr := New(ctrl)

	tr.handleToggle()
	if ctrl.enabled {
		t.Error("expected detector to be paused after first toggle")
	}

	tr.handleToggle()
	if !ctrl.enabled {
		t.Error("expected detector to run after second toggle")
	}
}

func TestTray_Nudge(t *testing.T) {
	tests := []struct {
		name          string
		start         config.DetectorConfig
		dThreshold    float64
		dDepth        int
		wantThreshold float64
		wantDepth     int
	}{
		{"threshold up", config.DetectorConfig{Threshold: 10, HistoryDepth: 3}, thresholdStep, 0, 11, 3},
		{"threshold floor", config.DetectorConfig{Threshold: 0, HistoryDepth: 3}, -thresholdStep, 0, 0, 3},
		{"memory up", config.DetectorConfig{Threshold: 10, HistoryDepth: 3}, 0, memoryStep, 10, 4},
		{"memory ceiling", config.DetectorConfig{Threshold: 10, HistoryDepth: 4}, 0, memoryStep, 10, 4},
		{"memory down", config.DetectorConfig{Threshold: 10, HistoryDepth: 1}, 0, -memoryStep, 10, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := &fakeController{cfg: tt.start}
			New(ctrl).handleNudge(tt.dThreshold, tt.dDepth)

			if ctrl.cfg.Threshold != tt.wantThreshold {
				t.Errorf("threshold = %v, want %v", ctrl.cfg.Threshold, tt.wantThreshold)
			}
			if ctrl.cfg.HistoryDepth != tt.wantDepth {
				t.Errorf("history depth = %d, want %d", ctrl.cfg.HistoryDepth, tt.wantDepth)
			}
		})
	}
}

func TestTray_Screenshot(t *testing.T) {
	ctrl := &fakeController{cfg: config.DefaultDetector()}
	tr := New(ctrl)

	tr.handleScreenshot()
	if ctrl.shots != 1 {
		t.Errorf("expected 1 screenshot, got %d", ctrl.shots)
	}

	ctrl.failing = true
	tr.handleScreenshot()
	if ctrl.shots != 1 {
		t.Errorf("failed screenshot should not count, got %d", ctrl.shots)
	}
}

func TestTray_Callbacks(t *testing.T) {
	tr := New(&fakeController{})

	called := false
	tr.OnSettings(func() { called = true })
	tr.handleSettings()
	if !called {
		t.Error("expected settings callback to run")
	}

	// no callback set must not panic
	New(&fakeController{}).handleSettings()
}

func TestTray_Titles(t *testing.T) {
	cfg := config.DetectorConfig{Threshold: 12.5, HistoryDepth: 2}

	if got := thresholdTitle(cfg); got != "Diff. Threshold: 12.5" {
		t.Errorf("thresholdTitle() = %q", got)
	}
	if got := memoryTitle(cfg); got != "Frame Memory: 2" {
		t.Errorf("memoryTitle() = %q", got)
	}
	if toggleTitle(true) == toggleTitle(false) {
		t.Error("toggle title should reflect the state")
	}

	// labels are not created before Run
	New(&fakeController{}).SetSettings(cfg)
	New(&fakeController{}).SetLastScreenshot("001.jpg")
}

func TestTray_NudgeUpdatesShown(t *testing.T) {
	ctrl := &fakeController{cfg: config.DetectorConfig{Threshold: 10, HistoryDepth: 3}}
	tr := New(ctrl)

	tr.handleNudge(thresholdStep, 0)

	shown, ok := tr.Shown()
	if !ok || shown.Threshold != 11 {
		t.Errorf("Shown() = %+v, %v; want threshold 11", shown, ok)
	}
}

func TestTray_WatchPicksUpExternalChanges(t *testing.T) {
	ctrl := &fakeController{cfg: config.DefaultDetector()}
	tr := New(ctrl)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		tr.Watch(ctx, 5*time.Millisecond)
	}()
	defer func() {
		cancel()
		<-done
	}()

	// a change made through the HTTP API, not the tray
	want := config.DetectorConfig{Threshold: 42, HistoryDepth: 1}
	ctrl.setSettings(want)

	deadline := time.Now().Add(2 * time.Second)
	for {
		if shown, ok := tr.Shown(); ok && shown == want {
			break
		}
		if time.Now().After(deadline) {
			shown, _ := tr.Shown()
			t.Fatalf("Shown() = %+v, want %+v", shown, want)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestTray_WatchStops(t *testing.T) {
	tr := New(&fakeController{cfg: config.DefaultDetector()})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		tr.Watch(ctx, time.Hour)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Watch did not return after cancel")
	}
}
