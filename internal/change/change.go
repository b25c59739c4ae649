// Package change turns a history of grayscale frames into a per-pixel
// visibility mask.
//
// A pixel is visible when the population standard deviation of its
// intensity across every frame in the history is strictly greater than the
// threshold. With a freshly bootstrapped history every sample is identical,
// so nothing is visible until distinct frames have been pushed.
package change

import (
	"math"

	"github.com/pkg/errors"

	"github.com/ayusman/trexvision/internal/history"
)

var (
	// ErrNotReady is returned when the history holds no frames yet.
	ErrNotReady = errors.New("history is empty")

	// ErrOutOfBounds is returned when a probed pixel lies outside the frame.
	ErrOutOfBounds = errors.New("pixel out of bounds")
)

// Source provides the frames to aggregate. *history.Buffer satisfies it.
type Source interface {
	Snapshot() []*history.Frame
}

// ComputeMask flags every pixel whose standard deviation across the history
// exceeds threshold. It keeps no state between calls.
func ComputeMask(src Source, threshold float64) (*Mask, error) {
	frames, err := snapshot(src)
	if err != nil {
		return nil, err
	}

	first := frames[0]
	mask := newMask(first.Width, first.Height)
	for i := range mask.Pix {
		if pixelStdDev(frames, i) > threshold {
			mask.Pix[i] = Flagged
		}
	}
	return mask, nil
}

// Field is a per-pixel standard deviation grid, row-major.
type Field struct {
	Width  int
	Height int
	Values []float64
}

// StdDevField computes the standard deviation of every pixel without
// thresholding it.
func StdDevField(src Source) (*Field, error) {
	frames, err := snapshot(src)
	if err != nil {
		return nil, err
	}

	first := frames[0]
	field := &Field{
		Width:  first.Width,
		Height: first.Height,
		Values: make([]float64, first.Width*first.Height),
	}
	for i := range field.Values {
		field.Values[i] = pixelStdDev(frames, i)
	}
	return field, nil
}

// snapshot returns the frames of src after checking they share one size.
func snapshot(src Source) ([]*history.Frame, error) {
	frames := src.Snapshot()
	if len(frames) == 0 {
		return nil, ErrNotReady
	}
	first := frames[0]
	if first == nil {
		return nil, errors.Wrap(history.ErrInvalidFrame, "nil frame in history")
	}
	for _, f := range frames {
		if f == nil || !first.SameSize(f) || len(f.Pix) != f.Width*f.Height {
			return nil, errors.Wrapf(history.ErrDimensionMismatch, "history frames differ from %dx%d", first.Width, first.Height)
		}
	}
	return frames, nil
}

// pixelStdDev is the two-pass population standard deviation of sample i
// across frames.
func pixelStdDev(frames []*history.Frame, i int) float64 {
	n := float64(len(frames))

	var sum float64
	for _, f := range frames {
		sum += float64(f.Pix[i])
	}
	mean := sum / n

	var sq float64
	for _, f := range frames {
		d := float64(f.Pix[i]) - mean
		sq += d * d
	}
	return math.Sqrt(sq / n)
}
