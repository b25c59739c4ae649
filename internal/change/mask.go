package change

import "bytes"

// Flagged is the mask value of a visible pixel. Hidden pixels are 0.
const Flagged uint8 = 255

// Mask marks the pixels whose recent intensity spread exceeded the threshold.
// Pix holds one byte per pixel, row-major, so it can be used directly as an
// 8-bit single-channel image mask.
type Mask struct {
	Width  int
	Height int
	Pix    []uint8
}

func newMask(width, height int) *Mask {
	return &Mask{
		Width:  width,
		Height: height,
		Pix:    make([]uint8, width*height),
	}
}

// Visible reports whether the pixel at column x, row y is flagged.
func (m *Mask) Visible(x, y int) bool {
	return m.Pix[y*m.Width+x] == Flagged
}

// Count returns the number of flagged pixels.
func (m *Mask) Count() int {
	n := 0
	for _, v := range m.Pix {
		if v == Flagged {
			n++
		}
	}
	return n
}

// Ratio returns the fraction of flagged pixels in [0, 1].
func (m *Mask) Ratio() float64 {
	if len(m.Pix) == 0 {
		return 0
	}
	return float64(m.Count()) / float64(len(m.Pix))
}

// Equal reports whether m and o have the same size and contents.
func (m *Mask) Equal(o *Mask) bool {
	if m == nil || o == nil {
		return m == o
	}
	return m.Width == o.Width && m.Height == o.Height && bytes.Equal(m.Pix, o.Pix)
}

// Covers reports whether every pixel flagged in o is also flagged in m.
func (m *Mask) Covers(o *Mask) bool {
	if m.Width != o.Width || m.Height != o.Height {
		return false
	}
	for i, v := range o.Pix {
		if v == Flagged && m.Pix[i] != Flagged {
			return false
		}
	}
	return true
}
