// Package history keeps a fixed-depth ring of recent grayscale frames.
package history

import (
	"github.com/pkg/errors"
)

// ErrInvalidFrame is returned when a frame is nil or its pixel data does not
// match its dimensions.
var ErrInvalidFrame = errors.New("invalid frame")

// Frame is a single-channel grid of 8-bit intensity samples stored row-major.
type Frame struct {
	Width  int
	Height int
	Pix    []uint8
}

// NewFrame allocates a black frame of the given size.
func NewFrame(width, height int) *Frame {
	return &Frame{
		Width:  width,
		Height: height,
		Pix:    make([]uint8, width*height),
	}
}

// NewFrameFromPix wraps pix as a frame. The slice is not copied.
func NewFrameFromPix(width, height int, pix []uint8) (*Frame, error) {
	f := &Frame{Width: width, Height: height, Pix: pix}
	if err := f.validate(); err != nil {
		return nil, err
	}
	return f, nil
}

// Fill sets every sample to v.
func (f *Frame) Fill(v uint8) {
	for i := range f.Pix {
		f.Pix[i] = v
	}
}

// At returns the sample at column x, row y.
func (f *Frame) At(x, y int) uint8 {
	return f.Pix[y*f.Width+x]
}

// Set stores v at column x, row y.
func (f *Frame) Set(x, y int, v uint8) {
	f.Pix[y*f.Width+x] = v
}

// Clone returns a deep copy of f.
func (f *Frame) Clone() *Frame {
	pix := make([]uint8, len(f.Pix))
	copy(pix, f.Pix)
	return &Frame{Width: f.Width, Height: f.Height, Pix: pix}
}

// SameSize reports whether f and o have identical dimensions.
func (f *Frame) SameSize(o *Frame) bool {
	return f.Width == o.Width && f.Height == o.Height
}

func (f *Frame) validate() error {
	if f == nil {
		return errors.Wrap(ErrInvalidFrame, "nil frame")
	}
	if f.Width <= 0 || f.Height <= 0 {
		return errors.Wrapf(ErrInvalidFrame, "size %dx%d", f.Width, f.Height)
	}
	if len(f.Pix) != f.Width*f.Height {
		return errors.Wrapf(ErrInvalidFrame, "%d samples for %dx%d", len(f.Pix), f.Width, f.Height)
	}
	return nil
}
