package spectral

import (
	"math"
	"testing"

	"github.com/agrimonitor/hyperspectral-pipeline/internal/cube"
)

func testCalculator() *Calculator {
	return NewCalculator(2, false)
}

// surveyWavelengths is the canonical band layout of the field spectrometer:
// visible, red edge, NIR and the SWIR water-absorption region.
var surveyWavelengths = []float64{470, 550, 670, 700, 800, 1450, 1650, 1950}

// surveyLevels holds one constant reflectance per band of surveyWavelengths.
var surveyLevels = []float64{0.05, 0.08, 0.1, 0.2, 0.3, 0.2, 0.6, 0.4}

func TestNDVIConstantCube(t *testing.T) {
	c := constCube(t, 2, 3, []float64{670, 800}, []float64{100, 300})
	m := testCalculator().NDVI(c)

	want := (300.0 - 100.0) / (300.0 + 100.0)
	for i, got := range m.Values {
		if !almostEqual(got, want, 1e-9) {
			t.Fatalf("pixel %d NDVI = %v, want %v", i, got, want)
		}
	}
}

func TestNDVIClampsToUnitInterval(t *testing.T) {
	// nir+red cancels, so the raw ratio explodes and must be clamped.
	c := constCube(t, 1, 1, []float64{670, 800}, []float64{-1, 1})
	if got := testCalculator().NDVI(c).Values[0]; got != 1 {
		t.Errorf("NDVI = %v, want clamp to 1", got)
	}
	c = constCube(t, 1, 1, []float64{670, 800}, []float64{1, -1})
	if got := testCalculator().NDVI(c).Values[0]; got != -1 {
		t.Errorf("NDVI = %v, want clamp to -1", got)
	}
}

func TestNDVIPropagatesNaN(t *testing.T) {
	bands := [][]float64{{math.NaN()}, {0.5}}
	c, err := cube.New(1, 1, []float64{670, 800}, bands)
	if err != nil {
		t.Fatal(err)
	}
	if got := testCalculator().NDVI(c).Values[0]; !math.IsNaN(got) {
		t.Errorf("NDVI of NaN reflectance = %v, want NaN", got)
	}
}

func TestSAVI(t *testing.T) {
	c := constCube(t, 1, 2, []float64{670, 800}, []float64{0.1, 0.3})
	m := testCalculator().SAVI(c)

	want := (0.3 - 0.1) / (0.3 + 0.1 + 0.5) * 1.5
	if !almostEqual(m.Values[0], want, 1e-12) {
		t.Errorf("SAVI = %v, want %v", m.Values[0], want)
	}
}

func TestEVI(t *testing.T) {
	c := constCube(t, 1, 1, []float64{470, 670, 800}, []float64{0.05, 0.1, 0.3})
	m := testCalculator().EVI(c)

	want := 2.5 * (0.3 - 0.1) / (0.3 + 6*0.1 - 7.5*0.05 + 1)
	if !almostEqual(m.Values[0], want, 1e-12) {
		t.Errorf("EVI = %v, want %v", m.Values[0], want)
	}
}

func TestEVIClampsToUnitInterval(t *testing.T) {
	// Denominator NIR + 6*red - 7.5*blue + L tuned to a tiny positive
	// value so the raw quotient far exceeds 1.
	c := constCube(t, 1, 1, []float64{470, 670, 800}, []float64{0.2533, 0.1, 0.3})
	if got := testCalculator().EVI(c).Values[0]; got != 1 {
		t.Errorf("EVI = %v, want clamp to 1", got)
	}
}

func TestMCARI(t *testing.T) {
	c := constCube(t, 1, 1, []float64{550, 670, 700}, []float64{0.08, 0.1, 0.2})
	m := testCalculator().MCARI(c)

	want := ((0.2 - 0.1) - 0.2*(0.2-0.08)) * (0.2 / 0.1)
	if !almostEqual(m.Values[0], want, 1e-12) {
		t.Errorf("MCARI = %v, want %v", m.Values[0], want)
	}
}

func TestRedEdgePosition(t *testing.T) {
	c := constCube(t, 2, 2,
		[]float64{680, 700, 720, 750},
		[]float64{0.1, 0.15, 0.4, 0.45})
	m := testCalculator().RedEdgePosition(c)

	// Steepest rise is 0.15 -> 0.4 between 700 and 720.
	for i, got := range m.Values {
		if got != 720 {
			t.Fatalf("pixel %d REP = %v, want 720", i, got)
		}
	}
}

func TestRedEdgePositionFirstMaximumWins(t *testing.T) {
	c := constCube(t, 1, 1,
		[]float64{680, 700, 720, 750},
		[]float64{0.1, 0.2, 0.3, 0.4})
	if got := testCalculator().RedEdgePosition(c).Values[0]; got != 700 {
		t.Errorf("REP = %v, want first maximum at 700", got)
	}
}

func TestRedEdgePositionSingleBandWindow(t *testing.T) {
	c := constCube(t, 1, 2, []float64{500, 700, 1000}, []float64{0.1, 0.2, 0.3})
	for _, got := range testCalculator().RedEdgePosition(c).Values {
		if got != 700 {
			t.Errorf("REP = %v, want the lone in-window wavelength 700", got)
		}
	}
}

func TestRedEdgePositionEmptyWindowWidens(t *testing.T) {
	c := constCube(t, 1, 1, []float64{500, 900}, []float64{0.1, 0.5})
	if got := testCalculator().RedEdgePosition(c).Values[0]; got != 900 {
		t.Errorf("REP = %v, want 900 from the widened window", got)
	}
}

func TestRedEdgeValuesStayOnWavelengthGrid(t *testing.T) {
	wavelengths := []float64{680, 690, 710, 730, 750}
	bands := [][]float64{
		{0.1, 0.3}, {0.2, 0.1}, {0.5, 0.4}, {0.55, 0.2}, {0.6, 0.9},
	}
	c, err := cube.New(1, 2, wavelengths, bands)
	if err != nil {
		t.Fatal(err)
	}
	grid := map[float64]bool{}
	for _, w := range wavelengths {
		grid[w] = true
	}
	for i, got := range testCalculator().RedEdgePosition(c).Values {
		if !grid[got] {
			t.Errorf("pixel %d REP = %v, not a cube wavelength", i, got)
		}
	}
}

func TestSoilBrightness(t *testing.T) {
	c := constCube(t, 1, 2, []float64{470, 550, 670, 800}, []float64{0.1, 0.2, 0.3, 0.9})
	m := testCalculator().SoilBrightness(c)

	want := (0.1 + 0.2 + 0.3) / 3
	if !almostEqual(m.Values[0], want, 1e-12) {
		t.Errorf("soil brightness = %v, want %v", m.Values[0], want)
	}
}

func TestSoilBrightnessNoVisibleBands(t *testing.T) {
	c := constCube(t, 2, 2, []float64{800, 900}, []float64{0.5, 0.6})
	for i, got := range testCalculator().SoilBrightness(c).Values {
		if got != 0 {
			t.Errorf("pixel %d = %v, want zero map without visible bands", i, got)
		}
	}
}

func TestSoilMoisture(t *testing.T) {
	c := constCube(t, 1, 1, []float64{470, 1450, 1650, 1950}, []float64{0.1, 0.2, 0.6, 0.4})
	m := testCalculator().SoilMoisture(c)

	water := (0.2 + 0.4) / 2
	want := (0.6 - water) / (0.6 + water)
	if !almostEqual(m.Values[0], want, 1e-12) {
		t.Errorf("soil moisture = %v, want %v", m.Values[0], want)
	}
}

func TestSoilMoistureDegradesToZeroMap(t *testing.T) {
	// 1950 nm lies beyond the cube's range: the documented soft-degrade
	// yields zeros rather than an error.
	c := constCube(t, 2, 2, []float64{470, 1450, 1650, 1800}, []float64{0.1, 0.2, 0.6, 0.4})
	for i, got := range testCalculator().SoilMoisture(c).Values {
		if got != 0 {
			t.Errorf("pixel %d = %v, want 0", i, got)
		}
	}
}

func TestComputeAll(t *testing.T) {
	c := constCube(t, 3, 4, surveyWavelengths, surveyLevels)

	maps, err := testCalculator().ComputeAll(c)
	if err != nil {
		t.Fatal(err)
	}
	if len(maps) != len(Kinds) {
		t.Fatalf("got %d maps, want %d", len(maps), len(Kinds))
	}
	for _, kind := range Kinds {
		m, ok := maps[kind]
		if !ok {
			t.Fatalf("missing %s map", kind)
		}
		if m.Rows != 3 || m.Cols != 4 || len(m.Values) != 12 {
			t.Fatalf("%s map has wrong shape %dx%d/%d", kind, m.Rows, m.Cols, len(m.Values))
		}
	}

	checks := map[Kind]float64{
		NDVI:           (0.3 - 0.1) / (0.3 + 0.1),
		SAVI:           (0.3 - 0.1) / (0.3 + 0.1 + 0.5) * 1.5,
		EVI:            2.5 * (0.3 - 0.1) / (0.3 + 6*0.1 - 7.5*0.05 + 1),
		MCARI:          ((0.2 - 0.1) - 0.2*(0.2-0.08)) * (0.2 / 0.1),
		RedEdge:        700,
		SoilBrightness: (0.05 + 0.08 + 0.1 + 0.2) / 4,
		SoilMoisture:   (0.6 - 0.3) / (0.6 + 0.3),
	}
	for kind, want := range checks {
		if got := maps[kind].Values[0]; !almostEqual(got, want, 1e-9) {
			t.Errorf("%s = %v, want %v", kind, got, want)
		}
	}
}
