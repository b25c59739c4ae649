// Package testdata generates synthetic camera frames for tests.
package testdata

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"
)

// SolidFrame returns a BGR frame filled with one color.
// The caller must close it.
func SolidFrame(width, height int, b, g, r float64) gocv.Mat {
	m := gocv.NewMatWithSize(height, width, gocv.MatTypeCV8UC3)
	m.SetTo(gocv.NewScalar(b, g, r, 0))
	return m
}

// SquareAt returns a black BGR frame with a filled white square whose top
// left corner is at (x, y). The caller must close it.
func SquareAt(width, height, size, x, y int) gocv.Mat {
	m := SolidFrame(width, height, 0, 0, 0)
	gocv.Rectangle(&m, image.Rect(x, y, x+size, y+size), color.RGBA{R: 255, G: 255, B: 255}, -1)
	return m
}

// MovingSquare returns n frames of a white square sliding right by step
// pixels per frame along the top left of a black background.
// Close them with CloseAll.
func MovingSquare(width, height, size, step, n int) []*gocv.Mat {
	frames := make([]*gocv.Mat, 0, n)
	for i := 0; i < n; i++ {
		x := (i * step) % (width - size)
		m := SquareAt(width, height, size, x, size)
		frames = append(frames, &m)
	}
	return frames
}

// CloseAll closes every frame.
func CloseAll(frames []*gocv.Mat) {
	for _, f := range frames {
		f.Close()
	}
}
