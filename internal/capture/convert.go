package capture

import (
	"fmt"

	"gocv.io/x/gocv"

	"github.com/ayusman/trexvision/internal/change"
	"github.com/ayusman/trexvision/internal/history"
)

// FrameFromMat copies a single channel 8-bit Mat into a history.Frame.
func FrameFromMat(m gocv.Mat) (*history.Frame, error) {
	if m.Empty() {
		return nil, ErrEmptyFrame
	}
	if m.Type() != gocv.MatTypeCV8UC1 {
		return nil, fmt.Errorf("expected 8-bit single channel mat, got type %v", m.Type())
	}

	src := m
	if !m.IsContinuous() {
		src = m.Clone()
		defer src.Close()
	}

	return history.NewFrameFromPix(src.Cols(), src.Rows(), src.ToBytes())
}

// MatFromFrame copies a history.Frame into a new single channel Mat.
// The caller must close the result.
func MatFromFrame(f *history.Frame) (gocv.Mat, error) {
	if f == nil {
		return gocv.NewMat(), ErrEmptyFrame
	}
	return matFromPix(f.Height, f.Width, f.Pix)
}

// MatFromMask copies a visibility mask into a new single channel Mat usable
// as a copy mask. The caller must close the result.
func MatFromMask(mask *change.Mask) (gocv.Mat, error) {
	if mask == nil {
		return gocv.NewMat(), ErrEmptyFrame
	}
	return matFromPix(mask.Height, mask.Width, mask.Pix)
}

func matFromPix(rows, cols int, pix []uint8) (gocv.Mat, error) {
	if rows <= 0 || cols <= 0 || len(pix) != rows*cols {
		return gocv.NewMat(), fmt.Errorf("invalid %dx%d buffer of %d bytes", cols, rows, len(pix))
	}

	view, err := gocv.NewMatFromBytes(rows, cols, gocv.MatTypeCV8UC1, pix)
	if err != nil {
		return gocv.NewMat(), fmt.Errorf("create mat: %w", err)
	}
	defer view.Close()

	// The view may share memory with pix, so hand out an owned copy.
	return view.Clone(), nil
}
