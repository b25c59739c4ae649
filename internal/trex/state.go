// Package trex owns the detector state for one run: the frame history and
// the settings it is evaluated with.
//
// State is the only handle the driver needs. Frames go in through Process
// (or Push followed by Mask), settings change through Configure and the
// setters, and a change of history depth always starts a fresh history.
package trex

import (
	"log"
	"sync"

	"github.com/pkg/errors"

	"github.com/ayusman/trexvision/internal/change"
	"github.com/ayusman/trexvision/internal/config"
	"github.com/ayusman/trexvision/internal/history"
)

// Result is the outcome of processing one frame, with the settings and
// history size the mask was computed under.
type Result struct {
	Mask     *change.Mask
	Config   config.DetectorConfig
	Buffered int
}

// State pairs a history buffer with its detector settings. It is safe for
// concurrent use; every operation holds the same lock, so a mask is never
// computed against a half-updated history.
type State struct {
	mu  sync.Mutex
	cfg config.DetectorConfig
	buf *history.Buffer
}

// NewState validates cfg and creates an empty history for it.
func NewState(cfg config.DetectorConfig) (*State, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	buf, err := history.NewBuffer(cfg.HistoryDepth)
	if err != nil {
		return nil, err
	}
	return &State{cfg: cfg, buf: buf}, nil
}

// Push adds a frame to the history.
func (s *State) Push(frame *history.Frame) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.Push(frame)
}

// Mask computes the visibility mask for the current history and threshold.
// It returns change.ErrNotReady before the first push.
func (s *State) Mask() (*change.Mask, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return change.ComputeMask(s.buf, s.cfg.Threshold)
}

// Process pushes frame and computes the mask for the resulting history in
// one step.
func (s *State) Process(frame *history.Frame) (*change.Mask, error) {
	res, err := s.Step(frame)
	if err != nil {
		return nil, err
	}
	return res.Mask, nil
}

// Step is Process that also reports the settings and history size in effect
// while the mask was computed.
func (s *State) Step(frame *history.Frame) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.buf.Push(frame); err != nil {
		return Result{}, errors.Wrap(err, "push frame")
	}
	mask, err := change.ComputeMask(s.buf, s.cfg.Threshold)
	if err != nil {
		return Result{}, err
	}
	return Result{Mask: mask, Config: s.cfg, Buffered: s.buf.Size()}, nil
}

// Reset empties the history. The next frame bootstraps it again.
func (s *State) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buf.Reset()
}

// Configure replaces both settings. The history is reset when, and only
// when, the history depth changes.
func (s *State) Configure(cfg config.DetectorConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.configure(cfg)
}

// SetThreshold changes the threshold without touching the history.
func (s *State) SetThreshold(threshold float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cfg := s.cfg
	cfg.Threshold = threshold
	return s.configure(cfg)
}

// SetHistoryDepth changes the number of remembered frames, resetting the
// history if it differs from the current value.
func (s *State) SetHistoryDepth(historyDepth int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cfg := s.cfg
	cfg.HistoryDepth = historyDepth
	return s.configure(cfg)
}

// Update applies a partial change to the settings in effect. It reports
// whether anything changed; on error the settings are untouched.
func (s *State) Update(u config.Update) (config.DetectorConfig, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := u.Apply(s.cfg)
	if err != nil {
		return s.cfg, false, err
	}
	return s.replace(next)
}

// Nudge steps the settings within the interactive ranges.
func (s *State) Nudge(dThreshold float64, dDepth int) (config.DetectorConfig, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.replace(s.cfg.Nudge(dThreshold, dDepth))
}

// replace must be called with s.mu held.
func (s *State) replace(next config.DetectorConfig) (config.DetectorConfig, bool, error) {
	if next == s.cfg {
		return s.cfg, false, nil
	}
	if err := s.configure(next); err != nil {
		return s.cfg, false, err
	}
	return s.cfg, true, nil
}

// configure must be called with s.mu held.
func (s *State) configure(cfg config.DetectorConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	if cfg.HistoryDepth != s.cfg.HistoryDepth {
		buf, err := history.NewBuffer(cfg.HistoryDepth)
		if err != nil {
			return err
		}
		log.Printf("trex: frame memory %d -> %d, history reset (had %d frames)",
			s.cfg.HistoryDepth, cfg.HistoryDepth, s.buf.Size())
		s.buf = buf
	}
	if cfg.Threshold != s.cfg.Threshold {
		log.Printf("trex: threshold %g -> %g", s.cfg.Threshold, cfg.Threshold)
	}
	s.cfg = cfg
	return nil
}

// Config returns the current settings.
func (s *State) Config() config.DetectorConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

// Size returns the number of frames currently held.
func (s *State) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.Size()
}

// Depth returns the history capacity, HistoryDepth+1.
func (s *State) Depth() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.Depth()
}

// PixelStats probes one pixel of the current history and reports whether it
// is above the current threshold.
func (s *State) PixelStats(x, y int) (change.PixelStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ps, err := change.Probe(s.buf, x, y)
	if err != nil {
		return ps, err
	}
	ps.Threshold = s.cfg.Threshold
	ps.Visible = ps.StdDev > s.cfg.Threshold
	return ps, nil
}

// StdDevField returns the unthresholded standard deviation of every pixel.
func (s *State) StdDevField() (*change.Field, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return change.StdDevField(s.buf)
}
