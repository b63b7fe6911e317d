package spectral

import "math"

// NearestBand returns the index of the band whose center wavelength has the
// minimum absolute difference from target. Ties resolve to the lowest index,
// so selection is deterministic for equidistant bands. wavelengths must be
// non-empty; selection itself cannot fail.
func NearestBand(wavelengths []float64, target float64) int {
	best := 0
	bestDiff := math.Abs(wavelengths[0] - target)
	for i := 1; i < len(wavelengths); i++ {
		if d := math.Abs(wavelengths[i] - target); d < bestDiff {
			best, bestDiff = i, d
		}
	}
	return best
}

// Covers reports whether target lies within the cube's spectral range.
// Targets outside the range have no physically meaningful nearest band.
func Covers(wavelengths []float64, target float64) bool {
	return target >= wavelengths[0] && target <= wavelengths[len(wavelengths)-1]
}

// MoistureBandsCovered reports whether the spectral range covers the two
// water-absorption targets and the 1650 nm reference. When it does not, the
// soil-moisture map degrades to all zeros instead of failing.
func MoistureBandsCovered(wavelengths []float64) bool {
	for _, target := range []float64{waterBandLow, waterBandHigh, swirReference} {
		if !Covers(wavelengths, target) {
			return false
		}
	}
	return true
}

// HasVisibleBands reports whether at least one band falls inside the
// 400-700 nm window that soil brightness averages over.
func HasVisibleBands(wavelengths []float64) bool {
	return len(window(wavelengths, visibleWindowLow, visibleWindowHigh)) > 0
}

// window returns the indices of all bands with wavelength in [lo, hi].
// Wavelengths are sorted, so the result is a contiguous run.
func window(wavelengths []float64, lo, hi float64) []int {
	var idx []int
	for i, w := range wavelengths {
		if w > hi {
			break
		}
		if w >= lo {
			idx = append(idx, i)
		}
	}
	return idx
}
