package spectral

import (
	"fmt"
	"math"
	"runtime"
	"sync"

	"github.com/gammazero/workerpool"
	"github.com/schollz/progressbar/v3"
	"golang.org/x/sync/errgroup"

	"github.com/agrimonitor/hyperspectral-pipeline/internal/cube"
)

// Fixed band-selection targets in nanometers.
const (
	blueTarget    = 470
	greenTarget   = 550
	redTarget     = 670
	redEdgeTarget = 700
	nirTarget     = 800

	swirReference = 1650
	waterBandLow  = 1450
	waterBandHigh = 1950

	redEdgeWindowLow  = 680
	redEdgeWindowHigh = 750

	visibleWindowLow  = 400
	visibleWindowHigh = 700

	// epsilon keeps the NDVI denominator away from zero.
	epsilon = 1e-10
)

// Calculator derives indicator maps from a reflectance cube. The
// computations are pure per-pixel arithmetic over bands chosen with
// NearestBand; invalid reflectance (NaN/Inf) flows through into the maps
// and is filtered later by the statistics stage.
type Calculator struct {
	workers  int
	progress bool
}

// NewCalculator returns a calculator running pixel-parallel work on the
// given number of workers (CPU count when workers < 1).
func NewCalculator(workers int, progress bool) *Calculator {
	if workers < 1 {
		workers = runtime.NumCPU()
	}
	return &Calculator{workers: workers, progress: progress}
}

// ComputeAll derives every indicator map concurrently. The maps are
// independent, so they only share the read-only cube.
func (calc *Calculator) ComputeAll(c *cube.Cube) (map[Kind]*Map, error) {
	derive := map[Kind]func(*cube.Cube) *Map{
		NDVI:           calc.NDVI,
		SAVI:           calc.SAVI,
		EVI:            calc.EVI,
		MCARI:          calc.MCARI,
		RedEdge:        calc.RedEdgePosition,
		SoilBrightness: calc.SoilBrightness,
		SoilMoisture:   calc.SoilMoisture,
	}

	maps := make(map[Kind]*Map, len(derive))
	var mu sync.Mutex
	g := new(errgroup.Group)
	for kind, fn := range derive {
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("computing %s: %v", kind, r)
				}
			}()
			m := fn(c)
			mu.Lock()
			maps[kind] = m
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return maps, nil
}

// NDVI is (NIR-red)/(NIR+red+epsilon), clamped to [-1, 1].
func (calc *Calculator) NDVI(c *cube.Cube) *Map {
	red := c.Band(NearestBand(c.Wavelengths, redTarget))
	nir := c.Band(NearestBand(c.Wavelengths, nirTarget))
	values := make([]float64, len(red))
	for i := range values {
		values[i] = clamp((nir[i]-red[i])/(nir[i]+red[i]+epsilon), -1, 1)
	}
	return calc.newMap(NDVI, c, values)
}

// SAVI is the soil-adjusted NDVI variant with L=0.5, left unclamped.
func (calc *Calculator) SAVI(c *cube.Cube) *Map {
	const soilFactor = 0.5
	red := c.Band(NearestBand(c.Wavelengths, redTarget))
	nir := c.Band(NearestBand(c.Wavelengths, nirTarget))
	values := make([]float64, len(red))
	for i := range values {
		values[i] = (nir[i] - red[i]) / (nir[i] + red[i] + soilFactor) * (1 + soilFactor)
	}
	return calc.newMap(SAVI, c, values)
}

// EVI is G*(NIR-red)/(NIR+C1*red-C2*blue+L) with the MODIS coefficients,
// clamped to [-1, 1] like NDVI.
func (calc *Calculator) EVI(c *cube.Cube) *Map {
	const (
		gain = 2.5
		c1   = 6.0
		c2   = 7.5
		l    = 1.0
	)
	blue := c.Band(NearestBand(c.Wavelengths, blueTarget))
	red := c.Band(NearestBand(c.Wavelengths, redTarget))
	nir := c.Band(NearestBand(c.Wavelengths, nirTarget))
	values := make([]float64, len(red))
	for i := range values {
		values[i] = clamp(gain*(nir[i]-red[i])/(nir[i]+c1*red[i]-c2*blue[i]+l), -1, 1)
	}
	return calc.newMap(EVI, c, values)
}

// MCARI is ((edge-red)-0.2*(edge-green))*(edge/red), unclamped.
func (calc *Calculator) MCARI(c *cube.Cube) *Map {
	green := c.Band(NearestBand(c.Wavelengths, greenTarget))
	red := c.Band(NearestBand(c.Wavelengths, redTarget))
	edge := c.Band(NearestBand(c.Wavelengths, redEdgeTarget))
	values := make([]float64, len(red))
	for i := range values {
		values[i] = ((edge[i] - red[i]) - 0.2*(edge[i]-green[i])) * (edge[i] / red[i])
	}
	return calc.newMap(MCARI, c, values)
}

// RedEdgePosition locates, per pixel, the wavelength of the steepest
// reflectance increase within the 680-750 nm window: the discrete first
// difference of the sub-spectrum is scanned and the wavelength at its first
// maximum wins. The result is always a member of the cube's wavelength set.
// With fewer than two bands inside the window, the window widens to the
// bands nearest 680 and 750 so the search stays total.
func (calc *Calculator) RedEdgePosition(c *cube.Cube) *Map {
	idx := window(c.Wavelengths, redEdgeWindowLow, redEdgeWindowHigh)
	if len(idx) == 0 {
		lo := NearestBand(c.Wavelengths, redEdgeWindowLow)
		hi := NearestBand(c.Wavelengths, redEdgeWindowHigh)
		for b := lo; b <= hi; b++ {
			idx = append(idx, b)
		}
	}

	values := make([]float64, c.Rows*c.Cols)
	if len(idx) == 1 {
		w := c.Wavelengths[idx[0]]
		for i := range values {
			values[i] = w
		}
		return calc.newMap(RedEdge, c, values)
	}

	var bar *progressbar.ProgressBar
	if calc.progress {
		bar = progressbar.Default(int64(c.Rows), "locating red edge")
	}

	// Pixels are independent; fan rows out across the pool, each worker
	// writing its own row segment.
	wp := workerpool.New(calc.workers)
	for row := range c.Rows {
		wp.Submit(func() {
			base := row * c.Cols
			for col := range c.Cols {
				steepest := math.Inf(-1)
				wavelength := c.Wavelengths[idx[1]]
				for k := 1; k < len(idx); k++ {
					d := c.Band(idx[k])[base+col] - c.Band(idx[k-1])[base+col]
					if d > steepest {
						steepest = d
						wavelength = c.Wavelengths[idx[k]]
					}
				}
				values[base+col] = wavelength
			}
			if bar != nil {
				bar.Add(1)
			}
		})
	}
	wp.StopWait()
	return calc.newMap(RedEdge, c, values)
}

// SoilBrightness is the per-pixel mean reflectance over the 400-700 nm
// visible window. A cube with no visible bands degrades to an all-zero map.
func (calc *Calculator) SoilBrightness(c *cube.Cube) *Map {
	values := make([]float64, c.Rows*c.Cols)
	idx := window(c.Wavelengths, visibleWindowLow, visibleWindowHigh)
	if len(idx) == 0 {
		return calc.newMap(SoilBrightness, c, values)
	}
	span := float64(len(idx))
	for i := range values {
		var sum float64
		for _, b := range idx {
			sum += c.Band(b)[i]
		}
		values[i] = sum / span
	}
	return calc.newMap(SoilBrightness, c, values)
}

// SoilMoisture is the normalized difference between the 1650 nm reference
// and the mean of the 1450/1950 nm water-absorption bands. When any of the
// three targets falls outside the cube's spectral range the map degrades to
// all zeros instead of failing; downstream consumers rely on that.
func (calc *Calculator) SoilMoisture(c *cube.Cube) *Map {
	values := make([]float64, c.Rows*c.Cols)
	if !MoistureBandsCovered(c.Wavelengths) {
		return calc.newMap(SoilMoisture, c, values)
	}
	low := c.Band(NearestBand(c.Wavelengths, waterBandLow))
	high := c.Band(NearestBand(c.Wavelengths, waterBandHigh))
	ref := c.Band(NearestBand(c.Wavelengths, swirReference))
	for i := range values {
		water := (low[i] + high[i]) / 2
		values[i] = (ref[i] - water) / (ref[i] + water)
	}
	return calc.newMap(SoilMoisture, c, values)
}

func (calc *Calculator) newMap(kind Kind, c *cube.Cube, values []float64) *Map {
	return &Map{Kind: kind, Rows: c.Rows, Cols: c.Cols, Values: values}
}

// clamp bounds v to [lo, hi]. NaN passes through: both comparisons are
// false, so the pixel stays invalid instead of being silently bounded.
func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
