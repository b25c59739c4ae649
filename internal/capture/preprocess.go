package capture

import (
	"errors"
	"image"
	"sync"

	"gocv.io/x/gocv"

	"github.com/ayusman/trexvision/internal/history"
)

// BlurSize is the box blur kernel applied to the grayscale frame before it
// enters the history. A small kernel takes the edge off sensor noise
// without hiding real movement.
const BlurSize = 2

// ErrEmptyFrame is returned for nil or empty input Mats.
var ErrEmptyFrame = errors.New("empty frame")

// Preprocessor turns color camera frames into blurred grayscale frames.
// The intermediate Mats are reused between calls.
type Preprocessor struct {
	blurSize int
	gray     gocv.Mat
	blurred  gocv.Mat
	mu       sync.Mutex
}

// NewPreprocessor creates a Preprocessor with the default blur kernel.
func NewPreprocessor() *Preprocessor {
	return NewPreprocessorWithBlur(BlurSize)
}

// NewPreprocessorWithBlur creates a Preprocessor with a square blur kernel of
// the given size. A size below 2 disables blurring.
func NewPreprocessorWithBlur(size int) *Preprocessor {
	return &Preprocessor{
		blurSize: size,
		gray:     gocv.NewMat(),
		blurred:  gocv.NewMat(),
	}
}

// Process converts frame to grayscale, blurs it and copies the result into
// a new history.Frame. Single channel input is used as is.
func (p *Preprocessor) Process(frame *gocv.Mat) (*history.Frame, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if frame == nil || frame.Empty() {
		return nil, ErrEmptyFrame
	}

	switch frame.Channels() {
	case 1:
		frame.CopyTo(&p.gray)
	case 4:
		gocv.CvtColor(*frame, &p.gray, gocv.ColorBGRAToGray)
	default:
		gocv.CvtColor(*frame, &p.gray, gocv.ColorBGRToGray)
	}

	if p.blurSize < 2 {
		return FrameFromMat(p.gray)
	}

	gocv.Blur(p.gray, &p.blurred, image.Point{X: p.blurSize, Y: p.blurSize})
	return FrameFromMat(p.blurred)
}

// Close releases the intermediate Mats. The Preprocessor can still be used
// afterwards; the Mats are reallocated on demand.
func (p *Preprocessor) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.gray.Close()
	p.blurred.Close()
	p.gray = gocv.NewMat()
	p.blurred = gocv.NewMat()
}
