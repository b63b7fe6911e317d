package spectral

import (
	"math"
	"runtime"

	"github.com/gammazero/workerpool"

	"github.com/agrimonitor/hyperspectral-pipeline/internal/cube"
)

const smoothingWindow = 3

// SmoothBands applies a moving average of smoothingWindow bands along the
// spectral axis to suppress sensor noise. Edge bands average over a
// shrinking window instead of wrapping or zero-padding. The input cube is
// left untouched.
func SmoothBands(c *cube.Cube) (*cube.Cube, error) {
	n := c.NumBands()
	half := smoothingWindow / 2
	smoothed := make([][]float64, n)
	for b := range n {
		lo := max(b-half, 0)
		hi := min(b+half, n-1)
		span := float64(hi - lo + 1)
		out := make([]float64, c.Rows*c.Cols)
		for i := range out {
			var sum float64
			for k := lo; k <= hi; k++ {
				sum += c.Band(k)[i]
			}
			out[i] = sum / span
		}
		smoothed[b] = out
	}
	return replaceBands(c, smoothed)
}

// NormalizeBands rescales every band linearly to [0, 1] using the band's
// own finite min and max. Constant bands pass through unchanged rather than
// dividing by zero, and non-finite samples survive the affine map. Bands
// are independent, so they are normalized in parallel. The input cube is
// left untouched.
func NormalizeBands(c *cube.Cube, workers int) (*cube.Cube, error) {
	if workers < 1 {
		workers = runtime.NumCPU()
	}
	normalized := make([][]float64, c.NumBands())
	wp := workerpool.New(workers)
	for b := range c.NumBands() {
		wp.Submit(func() {
			normalized[b] = Stretch(c.Band(b))
		})
	}
	wp.StopWait()
	return replaceBands(c, normalized)
}

// Stretch returns a copy of values rescaled linearly to [0, 1] by the
// finite min and max. Degenerate input (constant, or nothing finite) is
// returned as an unscaled copy.
func Stretch(values []float64) []float64 {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	out := make([]float64, len(values))
	if !(hi > lo) {
		copy(out, values)
		return out
	}
	scale := hi - lo
	for i, v := range values {
		out[i] = (v - lo) / scale
	}
	return out
}

func replaceBands(c *cube.Cube, bands [][]float64) (*cube.Cube, error) {
	out, err := cube.New(c.Rows, c.Cols, c.Wavelengths, bands)
	if err != nil {
		return nil, err
	}
	out.Geo = c.Geo
	return out, nil
}
