package main

import (
	"flag"
	"fmt"
	"path/filepath"

	"github.com/ayusman/trexvision/internal/capture"
	"github.com/ayusman/trexvision/internal/config"
)

// Run modes.
const (
	modeWindow   = "window"
	modeHeadless = "headless"
	modeTray     = "tray"
)

// options is the merged result of the config file and the command line.
type options struct {
	mode          string
	capture       capture.Config
	detector      config.DetectorConfig
	restore       bool
	listen        string
	dataDir       string
	screenshotDir string
}

func (o options) dbPath() string {
	return filepath.Join(o.dataDir, "trexvision.db")
}

// parseOptions reads args. Flags given explicitly override the config file,
// which overrides the defaults.
func parseOptions(args []string) (options, error) {
	fs := flag.NewFlagSet("trexvision", flag.ContinueOnError)
	configPath := fs.String("config", "", "path to a JSON config file")
	mode := fs.String("mode", modeWindow, "run mode: window, headless or tray")
	source := fs.String("source", config.DefaultSource, "camera index or video file path")
	width := fs.Int("width", config.DefaultWidth, "capture width")
	height := fs.Int("height", config.DefaultHeight, "capture height")
	fps := fs.Int("fps", config.DefaultFPS, "capture frame rate")
	threshold := fs.Float64("threshold", config.DefaultThreshold, "standard deviation a pixel must exceed to be shown")
	depth := fs.Int("depth", config.DefaultHistoryDepth, "number of prior frames remembered")
	restore := fs.Bool("restore", true, "restore the detector settings saved by the last run")
	listen := fs.String("listen", config.DefaultListen, "HTTP listen address, empty to disable")
	dataDir := fs.String("data", "", "data directory (default ~/.trexvision)")
	screenshotDir := fs.String("screenshots", "", "screenshot directory (default current directory)")

	if err := fs.Parse(args); err != nil {
		return options{}, err
	}

	file := &config.File{}
	if *configPath != "" {
		f, err := config.Load(*configPath)
		if err != nil {
			return options{}, err
		}
		file = f
	}

	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })

	opts := options{
		mode: *mode,
		capture: capture.Config{
			Source: file.GetSource(),
			Width:  file.GetWidth(),
			Height: file.GetHeight(),
			FPS:    file.GetFPS(),
		},
		detector:      file.Detector(),
		restore:       *restore,
		listen:        file.GetListen(),
		dataDir:       file.GetDataDir(),
		screenshotDir: file.GetScreenshotDir(),
	}

	if set["source"] {
		opts.capture.Source = *source
	}
	if set["width"] {
		opts.capture.Width = *width
	}
	if set["height"] {
		opts.capture.Height = *height
	}
	if set["fps"] {
		opts.capture.FPS = *fps
	}
	if set["threshold"] {
		opts.detector.Threshold = *threshold
	}
	if set["depth"] {
		opts.detector.HistoryDepth = *depth
	}
	if set["listen"] {
		opts.listen = *listen
	}
	if set["data"] && *dataDir != "" {
		opts.dataDir = *dataDir
	}
	if set["screenshots"] && *screenshotDir != "" {
		opts.screenshotDir = *screenshotDir
	}

	// Settings on the command line win over the ones saved by the last run.
	if set["threshold"] || set["depth"] {
		opts.restore = set["restore"] && *restore
	}

	switch opts.mode {
	case modeWindow, modeHeadless, modeTray:
	default:
		return options{}, fmt.Errorf("unknown mode %q", opts.mode)
	}
	if err := opts.detector.Validate(); err != nil {
		return options{}, err
	}
	if opts.capture.Width <= 0 || opts.capture.Height <= 0 || opts.capture.FPS <= 0 {
		return options{}, fmt.Errorf("width, height and fps must be positive")
	}
	return opts, nil
}
