// Package capture reads frames from a camera or video file using GoCV
// (OpenCV) and converts them to and from the grayscale frames the change
// detector works on.
package capture

import (
	"errors"
	"strconv"
	"strings"
	"sync"

	"gocv.io/x/gocv"

	"github.com/ayusman/trexvision/internal/config"
)

// Default capture settings
const (
	DefaultFPS    = config.DefaultFPS
	DefaultWidth  = config.DefaultWidth
	DefaultHeight = config.DefaultHeight
)

// ErrCameraNotOpen is returned when trying to read from a camera that is not open.
var ErrCameraNotOpen = errors.New("camera is not open")

// ErrEndOfStream is returned once a video file has no more frames.
var ErrEndOfStream = errors.New("end of stream")

// Camera defines the interface for camera capture implementations.
type Camera interface {
	Open() error
	Close() error
	ReadFrame() (*gocv.Mat, error)
	SetFPS(fps int)
	FPS() int
	IsOpen() bool
}

// Config selects the capture source. Source is either a device index such
// as "0" or a path to a video file.
type Config struct {
	Source string
	Width  int
	Height int
	FPS    int
}

// DefaultConfig returns the settings for the first camera at 640x480.
func DefaultConfig() Config {
	return Config{Source: config.DefaultSource, Width: DefaultWidth, Height: DefaultHeight, FPS: DefaultFPS}
}

// Device returns the source as a device index when it is one, otherwise
// the trimmed file path. The result is passed to gocv.OpenVideoCapture.
func (c Config) Device() interface{} {
	src := strings.TrimSpace(c.Source)
	if id, err := strconv.Atoi(src); err == nil && id >= 0 {
		return id
	}
	return src
}

// IsFile reports whether the source is a video file rather than a device.
func (c Config) IsFile() bool {
	_, ok := c.Device().(string)
	return ok
}

// cameraImpl manages video capture from a device or file using GoCV.
type cameraImpl struct {
	cfg     Config
	capture *gocv.VideoCapture
	mu      sync.Mutex
	running bool
	fps     int
}

// NewCamera creates a Camera for cfg. Zero fields take the defaults.
func NewCamera(cfg Config) Camera {
	if strings.TrimSpace(cfg.Source) == "" {
		cfg.Source = config.DefaultSource
	}
	if cfg.Width <= 0 {
		cfg.Width = DefaultWidth
	}
	if cfg.Height <= 0 {
		cfg.Height = DefaultHeight
	}
	if cfg.FPS <= 0 {
		cfg.FPS = DefaultFPS
	}
	return &cameraImpl{
		cfg: cfg,
		fps: cfg.FPS,
	}
}

// Open opens the device or file for capturing frames. The requested
// resolution only applies to devices; files play at their own size.
func (c *cameraImpl) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		return nil
	}

	capture, err := gocv.OpenVideoCapture(c.cfg.Device())
	if err != nil {
		return err
	}
	if !capture.IsOpened() {
		capture.Close()
		return errors.New("unable to open capture source " + c.cfg.Source)
	}

	if !c.cfg.IsFile() {
		capture.Set(gocv.VideoCaptureFrameWidth, float64(c.cfg.Width))
		capture.Set(gocv.VideoCaptureFrameHeight, float64(c.cfg.Height))
		capture.Set(gocv.VideoCaptureFPS, float64(c.fps))
	}

	c.capture = capture
	c.running = true

	return nil
}

// Close closes the camera and releases resources.
func (c *cameraImpl) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running || c.capture == nil {
		c.running = false
		return nil
	}

	err := c.capture.Close()
	c.capture = nil
	c.running = false

	return err
}

// ReadFrame reads a single frame. An empty read from a file source means the
// file is exhausted and yields ErrEndOfStream.
// The caller is responsible for closing the returned Mat.
func (c *cameraImpl) ReadFrame() (*gocv.Mat, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running || c.capture == nil {
		return nil, ErrCameraNotOpen
	}

	mat := gocv.NewMat()
	if ok := c.capture.Read(&mat); !ok || mat.Empty() {
		mat.Close()
		if c.cfg.IsFile() {
			return nil, ErrEndOfStream
		}
		return nil, errors.New("failed to read frame from camera")
	}

	return &mat, nil
}

// SetFPS sets the frames per second for capture.
// Values less than or equal to 0 are ignored.
func (c *cameraImpl) SetFPS(fps int) {
	if fps <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.fps = fps

	if c.capture != nil && !c.cfg.IsFile() {
		c.capture.Set(gocv.VideoCaptureFPS, float64(fps))
	}
}

// FPS returns the current frames per second setting.
func (c *cameraImpl) FPS() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.fps
}

// IsOpen returns true if the camera is currently open and running.
func (c *cameraImpl) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.running
}
