package capture

import (
	"fmt"

	"gocv.io/x/gocv"

	"github.com/ayusman/trexvision/internal/change"
)

// Composite returns a copy of color where only flagged pixels keep their
// value and everything else is black. color must match the mask size.
// The caller must close the result.
func Composite(color gocv.Mat, mask *change.Mask) (gocv.Mat, error) {
	if color.Empty() {
		return gocv.NewMat(), ErrEmptyFrame
	}
	if mask == nil {
		return gocv.NewMat(), fmt.Errorf("composite: nil mask")
	}
	if color.Cols() != mask.Width || color.Rows() != mask.Height {
		return gocv.NewMat(), fmt.Errorf("composite: frame is %dx%d but mask is %dx%d",
			color.Cols(), color.Rows(), mask.Width, mask.Height)
	}

	m, err := MatFromMask(mask)
	if err != nil {
		return gocv.NewMat(), err
	}
	defer m.Close()

	out := gocv.Zeros(color.Rows(), color.Cols(), color.Type())
	color.CopyToWithMask(&out, m)
	return out, nil
}
