// Package config holds the detector settings and the optional JSON config file.
package config

import (
	"math"

	"github.com/pkg/errors"
)

// Detector defaults and limits.
const (
	DefaultThreshold    = 10.0
	DefaultHistoryDepth = 3

	// MaxThreshold is the top of the interactive threshold range. A standard
	// deviation of 8-bit samples never exceeds 127.5.
	MaxThreshold = 100.0

	// MaxHistoryDepth caps configured history to bound memory use.
	MaxHistoryDepth = 100

	// MaxInteractiveHistoryDepth is the top of the "Frame Memory" control.
	MaxInteractiveHistoryDepth = 4
)

var (
	// ErrInvalidThreshold is returned for a negative or non-finite threshold.
	ErrInvalidThreshold = errors.New("invalid threshold")

	// ErrInvalidHistoryDepth is returned for a history depth outside
	// [0, MaxHistoryDepth].
	ErrInvalidHistoryDepth = errors.New("invalid history depth")
)

// DetectorConfig is the pair of values the change detector consumes.
type DetectorConfig struct {
	// Threshold is compared against each pixel's standard deviation.
	Threshold float64 `json:"threshold"`

	// HistoryDepth is the number of prior frames remembered. The buffer holds
	// HistoryDepth+1 frames.
	HistoryDepth int `json:"history_depth"`
}

// DefaultDetector returns threshold 10 with 3 remembered frames.
func DefaultDetector() DetectorConfig {
	return DetectorConfig{
		Threshold:    DefaultThreshold,
		HistoryDepth: DefaultHistoryDepth,
	}
}

// Validate rejects values the detector cannot run with.
func (c DetectorConfig) Validate() error {
	if math.IsNaN(c.Threshold) || math.IsInf(c.Threshold, 0) || c.Threshold < 0 {
		return errors.Wrapf(ErrInvalidThreshold, "threshold must be a non-negative number, got %v", c.Threshold)
	}
	if c.HistoryDepth < 0 || c.HistoryDepth > MaxHistoryDepth {
		return errors.Wrapf(ErrInvalidHistoryDepth, "history_depth must be between 0 and %d, got %d", MaxHistoryDepth, c.HistoryDepth)
	}
	return nil
}

// BufferDepth returns the number of frames held once the history is warm.
func (c DetectorConfig) BufferDepth() int {
	return c.HistoryDepth + 1
}

// Nudge shifts both values by the given steps and clamps the results to the
// interactive ranges.
func (c DetectorConfig) Nudge(dThreshold float64, dDepth int) DetectorConfig {
	if dThreshold != 0 {
		c.Threshold = clampFloat(c.Threshold+dThreshold, 0, MaxThreshold)
	}
	if dDepth != 0 {
		c.HistoryDepth = clampInt(c.HistoryDepth+dDepth, 0, MaxInteractiveHistoryDepth)
	}
	return c
}

// Update is a partial change to a DetectorConfig. Nil fields are kept.
type Update struct {
	Threshold    *float64 `json:"threshold,omitempty"`
	HistoryDepth *int     `json:"history_depth,omitempty"`
}

// Apply returns base with the update applied, validated.
func (u Update) Apply(base DetectorConfig) (DetectorConfig, error) {
	next := base
	if u.Threshold != nil {
		next.Threshold = *u.Threshold
	}
	if u.HistoryDepth != nil {
		next.HistoryDepth = *u.HistoryDepth
	}
	if err := next.Validate(); err != nil {
		return base, err
	}
	return next, nil
}

func clampFloat(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}

func clampInt(v, lo, hi int) int {
	return min(max(v, lo), hi)
}
