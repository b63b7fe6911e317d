package cube

import "fmt"

// GeoReference carries the affine geotransform and projection of the source
// raster. Cubes loaded from plain files have none.
type GeoReference struct {
	Transform  [6]float64
	Projection string
}

// Cube is a hyperspectral reflectance cube of Rows x Cols pixels by
// len(Wavelengths) spectral bands. Bands are stored band-major, each as a
// flat row-major slice of Rows*Cols samples. Wavelengths are in nanometers,
// sorted non-decreasing, one per band.
type Cube struct {
	Rows, Cols  int
	Wavelengths []float64
	Geo         *GeoReference

	bands [][]float64
}

// New validates the shape of the data and wraps it in a Cube. The band
// slices are retained, not copied.
func New(rows, cols int, wavelengths []float64, bands [][]float64) (*Cube, error) {
	if rows <= 0 || cols <= 0 {
		return nil, fmt.Errorf("invalid cube dimensions %dx%d", rows, cols)
	}
	if len(wavelengths) == 0 {
		return nil, fmt.Errorf("cube has no spectral bands")
	}
	if len(bands) != len(wavelengths) {
		return nil, fmt.Errorf("%d bands but %d wavelengths", len(bands), len(wavelengths))
	}
	for i, band := range bands {
		if len(band) != rows*cols {
			return nil, fmt.Errorf("band %d has %d samples, want %d", i, len(band), rows*cols)
		}
	}
	for i := 1; i < len(wavelengths); i++ {
		if wavelengths[i] < wavelengths[i-1] {
			return nil, fmt.Errorf("wavelengths not sorted: %.2f after %.2f", wavelengths[i], wavelengths[i-1])
		}
	}
	return &Cube{Rows: rows, Cols: cols, Wavelengths: wavelengths, bands: bands}, nil
}

func (c *Cube) NumBands() int {
	return len(c.bands)
}

// Band returns the flat row-major samples of band i. The slice is shared,
// not a copy.
func (c *Cube) Band(i int) []float64 {
	return c.bands[i]
}

func (c *Cube) At(row, col, band int) float64 {
	return c.bands[band][row*c.Cols+col]
}

// WavelengthRange returns the shortest and longest wavelength of the cube.
func (c *Cube) WavelengthRange() (float64, float64) {
	return c.Wavelengths[0], c.Wavelengths[len(c.Wavelengths)-1]
}
