package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Capture defaults.
const (
	DefaultSource = "0"
	DefaultWidth  = 640
	DefaultHeight = 480
	DefaultFPS    = 30
	DefaultListen = ":8080"
)

// File is the optional JSON config file. Omitted fields fall back to the
// defaults returned by the Get* accessors, so partial files are fine.
type File struct {
	Threshold    *float64 `json:"threshold,omitempty"`
	HistoryDepth *int     `json:"history_depth,omitempty"`

	// Source is a camera index ("0") or a video file path.
	Source *string `json:"source,omitempty"`
	Width  *int    `json:"width,omitempty"`
	Height *int    `json:"height,omitempty"`
	FPS    *int    `json:"fps,omitempty"`

	Listen        *string `json:"listen,omitempty"`
	DataDir       *string `json:"data_dir,omitempty"`
	ScreenshotDir *string `json:"screenshot_dir,omitempty"`
}

// Load reads a File from a .json path no larger than 1MB.
func Load(path string) (*File, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	info, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if info.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	f := &File{}
	if err := json.Unmarshal(data, f); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := f.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return f, nil
}

// Validate checks the fields that are set.
func (f *File) Validate() error {
	if err := f.Detector().Validate(); err != nil {
		return err
	}
	if f.Source != nil && strings.TrimSpace(*f.Source) == "" {
		return fmt.Errorf("source must not be empty")
	}
	if f.Width != nil && *f.Width <= 0 {
		return fmt.Errorf("width must be positive, got %d", *f.Width)
	}
	if f.Height != nil && *f.Height <= 0 {
		return fmt.Errorf("height must be positive, got %d", *f.Height)
	}
	if f.FPS != nil && *f.FPS <= 0 {
		return fmt.Errorf("fps must be positive, got %d", *f.FPS)
	}
	return nil
}

// Detector returns the detector settings with defaults filled in.
func (f *File) Detector() DetectorConfig {
	cfg := DefaultDetector()
	if f.Threshold != nil {
		cfg.Threshold = *f.Threshold
	}
	if f.HistoryDepth != nil {
		cfg.HistoryDepth = *f.HistoryDepth
	}
	return cfg
}

// GetSource returns the capture source or "0", the default camera.
func (f *File) GetSource() string {
	if f.Source == nil {
		return DefaultSource
	}
	return *f.Source
}

// GetWidth returns the requested capture width.
func (f *File) GetWidth() int {
	if f.Width == nil {
		return DefaultWidth
	}
	return *f.Width
}

// GetHeight returns the requested capture height.
func (f *File) GetHeight() int {
	if f.Height == nil {
		return DefaultHeight
	}
	return *f.Height
}

// GetFPS returns the requested capture frame rate.
func (f *File) GetFPS() int {
	if f.FPS == nil {
		return DefaultFPS
	}
	return *f.FPS
}

// GetListen returns the HTTP listen address.
func (f *File) GetListen() string {
	if f.Listen == nil {
		return DefaultListen
	}
	return *f.Listen
}

// GetDataDir returns the data directory, defaulting to ~/.trexvision.
func (f *File) GetDataDir() string {
	if f.DataDir != nil && *f.DataDir != "" {
		return *f.DataDir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".trexvision"
	}
	return filepath.Join(home, ".trexvision")
}

// GetScreenshotDir returns where screenshots are written, defaulting to the
// current directory like the classic "000.jpg" behaviour.
func (f *File) GetScreenshotDir() string {
	if f.ScreenshotDir == nil || *f.ScreenshotDir == "" {
		return "."
	}
	return *f.ScreenshotDir
}
