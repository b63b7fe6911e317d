package spectral

import "testing"

func TestNearestBand(t *testing.T) {
	wavelengths := []float64{470, 550, 670, 800}

	tests := []struct {
		name   string
		target float64
		want   int
	}{
		{"exact match", 550, 1},
		{"closest below", 680, 2},
		{"closest above", 760, 3},
		{"beyond range", 2000, 3},
		{"before range", 100, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NearestBand(wavelengths, tt.target); got != tt.want {
				t.Errorf("NearestBand(%v) = %d, want %d", tt.target, got, tt.want)
			}
		})
	}
}

func TestNearestBandTieBreaksLow(t *testing.T) {
	// 650 is equidistant from both bands; the lower index must win.
	if got := NearestBand([]float64{600, 700}, 650); got != 0 {
		t.Errorf("NearestBand tie = %d, want 0", got)
	}
	if got := NearestBand([]float64{500, 500, 500}, 500); got != 0 {
		t.Errorf("NearestBand duplicates = %d, want 0", got)
	}
}

func TestCovers(t *testing.T) {
	wavelengths := []float64{470, 1950}
	for _, target := range []float64{470, 1000, 1950} {
		if !Covers(wavelengths, target) {
			t.Errorf("Covers(%v) = false, want true", target)
		}
	}
	for _, target := range []float64{469.9, 1950.1} {
		if Covers(wavelengths, target) {
			t.Errorf("Covers(%v) = true, want false", target)
		}
	}
}

func TestMoistureBandsCovered(t *testing.T) {
	if !MoistureBandsCovered([]float64{400, 2000}) {
		t.Error("full SWIR coverage reported unavailable")
	}
	// 1950 nm beyond the upper edge.
	if MoistureBandsCovered([]float64{400, 1800}) {
		t.Error("truncated SWIR coverage reported available")
	}
	// 1450 nm below the lower edge.
	if MoistureBandsCovered([]float64{1500, 2000}) {
		t.Error("missing low water band reported available")
	}
}

func TestHasVisibleBands(t *testing.T) {
	if !HasVisibleBands([]float64{550, 800}) {
		t.Error("cube with a 550 nm band reported no visible coverage")
	}
	if HasVisibleBands([]float64{800, 1650}) {
		t.Error("NIR-only cube reported visible coverage")
	}
}

func TestWindow(t *testing.T) {
	wavelengths := []float64{400, 680, 700, 750, 800}

	got := window(wavelengths, 680, 750)
	want := []int{1, 2, 3}
	if len(got) != len(want) {
		t.Fatalf("window = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("window = %v, want %v", got, want)
		}
	}

	if got := window(wavelengths, 900, 1000); len(got) != 0 {
		t.Errorf("empty window returned %v", got)
	}
}
