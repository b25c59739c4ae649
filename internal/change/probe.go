package change

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/stat"
)

// PixelStats describes the history of a single pixel.
type PixelStats struct {
	X       int       `json:"x"`
	Y       int       `json:"y"`
	Samples []float64 `json:"samples"`
	Mean    float64   `json:"mean"`
	StdDev  float64   `json:"std_dev"`

	// Threshold and Visible are filled in by callers that know the
	// threshold in effect.
	Threshold float64 `json:"threshold"`
	Visible   bool    `json:"visible"`
}

// Probe returns the samples, population mean and population standard
// deviation of the pixel at column x, row y.
func Probe(src Source, x, y int) (PixelStats, error) {
	frames, err := snapshot(src)
	if err != nil {
		return PixelStats{}, err
	}

	first := frames[0]
	if x < 0 || y < 0 || x >= first.Width || y >= first.Height {
		return PixelStats{}, errors.Wrapf(ErrOutOfBounds, "(%d,%d) in %dx%d", x, y, first.Width, first.Height)
	}

	samples := make([]float64, len(frames))
	for i, f := range frames {
		samples[i] = float64(f.At(x, y))
	}

	mean, std := stat.PopMeanStdDev(samples, nil)
	return PixelStats{
		X:       x,
		Y:       y,
		Samples: samples,
		Mean:    mean,
		StdDev:  std,
	}, nil
}
