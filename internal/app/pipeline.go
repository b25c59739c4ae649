package app

import (
	"log"
	"time"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"

	"github.com/ayusman/trexvision/internal/capture"
	"github.com/ayusman/trexvision/internal/trex"
)

// Step reads one frame, updates the history and returns the frame with
// everything but the changing pixels blacked out.
//
// Pipeline:
// 1. Read a color frame from the capture source
// 2. Convert to grayscale and blur
// 3. Push into the history and compute the visibility mask
// 4. Copy the flagged pixels of the color frame onto black
func (a *App) Step() (*Result, error) {
	a.stepMu.Lock()
	defer a.stepMu.Unlock()

	frame, err := a.camera.ReadFrame()
	if err != nil {
		return nil, err
	}
	defer frame.Close()

	gray, err := a.pre.Process(frame)
	if err != nil {
		return nil, errors.Wrap(err, "preprocess")
	}

	res, err := a.state.Step(gray)
	if err != nil {
		return nil, err
	}

	out, err := capture.Composite(*frame, res.Mask)
	if err != nil {
		return nil, err
	}

	stats := a.record(frame, &out, res)
	return &Result{Output: out, Mask: res.Mask, Stats: stats}, nil
}

// record keeps copies of the raw and output frames and fans the stats out.
func (a *App) record(raw, out *gocv.Mat, res trex.Result) FrameStats {
	mask := res.Mask

	a.frameMu.Lock()
	a.seq++
	stats := FrameStats{
		Seq:          a.seq,
		Timestamp:    time.Now(),
		Width:        mask.Width,
		Height:       mask.Height,
		Flagged:      mask.Count(),
		Total:        len(mask.Pix),
		Ratio:        mask.Ratio(),
		Threshold:    res.Config.Threshold,
		HistoryDepth: res.Config.HistoryDepth,
		Buffered:     res.Buffered,
	}
	a.lastRaw.Close()
	a.lastRaw = raw.Clone()
	a.lastOut.Close()
	a.lastOut = out.Clone()
	a.lastStats = stats
	a.hasFrame = true
	a.frameMu.Unlock()

	a.activity.Add(stats)
	a.publish(stats)
	return stats
}

// runPipeline is the background loop used when there is no window to pace
// frames. It steps once per tick at the camera frame rate until stopped or
// until a file source is exhausted.
func (a *App) runPipeline(stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)

	fps := a.camera.FPS()
	if fps <= 0 {
		fps = capture.DefaultFPS
	}
	ticker := time.NewTicker(time.Second / time.Duration(fps))
	defer ticker.Stop()

	failures := 0
	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			// Skip processing if detection is paused
			if !a.IsEnabled() {
				continue
			}

			res, err := a.Step()
			if err != nil {
				if errors.Is(err, capture.ErrEndOfStream) {
					log.Println("Capture source exhausted")
					return
				}
				// Log the first failure of a run and then every 100th
				failures++
				if failures == 1 || failures%100 == 0 {
					log.Printf("Error processing frame (%d consecutive): %v", failures, err)
				}
				continue
			}
			failures = 0
			res.Close()
		}
	}
}
