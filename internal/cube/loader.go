package cube

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/airbusgeo/godal"
)

// Load reads a hyperspectral cube from disk. Files with a .json extension
// use the plain research format (see jsonCube); everything else is opened
// through GDAL. Beyond existence and shape nothing is validated: NaN or Inf
// reflectance samples pass through untouched.
func Load(path string) (*Cube, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("source %s: %w", path, err)
	}
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return loadJSON(path)
	}
	return loadRaster(path)
}

// jsonCube is the toolchain-independent cube format used by the research
// scripts and the tests: band-major samples, each band flat row-major.
type jsonCube struct {
	Rows        int         `json:"rows"`
	Cols        int         `json:"cols"`
	Wavelengths []float64   `json:"wavelengths"`
	Bands       [][]float64 `json:"bands"`
}

func loadJSON(path string) (*Cube, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read cube %s: %w", path, err)
	}
	var doc jsonCube
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode cube %s: %w", path, err)
	}
	c, err := New(doc.Rows, doc.Cols, doc.Wavelengths, doc.Bands)
	if err != nil {
		return nil, fmt.Errorf("cube %s: %w", path, err)
	}
	return c, nil
}

var registerDrivers sync.Once

func loadRaster(path string) (*Cube, error) {
	registerDrivers.Do(godal.RegisterAll)

	ds, err := godal.Open(path, godal.ErrLogger(func(ec godal.ErrorCategory, code int, msg string) error {
		if ec == godal.CE_Warning {
			return nil
		}
		return fmt.Errorf("gdal: %s", msg)
	}))
	if err != nil {
		return nil, fmt.Errorf("open raster %s: %v", path, err)
	}
	defer ds.Close()

	width, height := ds.Structure().SizeX, ds.Structure().SizeY
	rasterBands := ds.Bands()
	if len(rasterBands) == 0 {
		return nil, fmt.Errorf("raster %s has no bands", path)
	}

	wavelengths, err := wavelengthsOf(ds, rasterBands)
	if err != nil {
		return nil, fmt.Errorf("raster %s: %w", path, err)
	}

	bands := make([][]float64, len(rasterBands))
	for i, band := range rasterBands {
		data := make([]float64, width*height)
		if err := band.Read(0, 0, data, width, height); err != nil {
			return nil, fmt.Errorf("read band %d of %s: %v", i+1, path, err)
		}
		bands[i] = data
	}
	sortByWavelength(wavelengths, bands)

	c, err := New(height, width, wavelengths, bands)
	if err != nil {
		return nil, fmt.Errorf("raster %s: %w", path, err)
	}
	c.Geo = geoReferenceOf(ds)
	return c, nil
}

// wavelengthsOf resolves the band center wavelengths in nanometers.
// Per-band "wavelength" metadata wins; a dataset-level comma-separated
// "wavelengths" list is the fallback. ENVI products commonly record
// micrometers, so wavelength_units is honored.
func wavelengthsOf(ds *godal.Dataset, bands []godal.Band) ([]float64, error) {
	units := ds.Metadata("wavelength_units")

	wavelengths := make([]float64, 0, len(bands))
	for i := range bands {
		raw := bands[i].Metadata("wavelength")
		if raw == "" {
			raw = bands[i].Metadata("WAVELENGTH")
		}
		if raw == "" {
			wavelengths = wavelengths[:0]
			break
		}
		if u := bands[i].Metadata("wavelength_units"); u != "" {
			units = u
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return nil, fmt.Errorf("band %d wavelength %q: %v", i+1, raw, err)
		}
		wavelengths = append(wavelengths, v)
	}

	if len(wavelengths) == 0 {
		raw := ds.Metadata("wavelengths")
		if raw == "" {
			raw = ds.Metadata("wavelength")
		}
		if raw == "" {
			return nil, fmt.Errorf("no wavelength metadata on bands or dataset")
		}
		for _, field := range strings.FieldsFunc(raw, func(r rune) bool {
			return r == ',' || r == ' ' || r == '{' || r == '}'
		}) {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("dataset wavelengths %q: %v", raw, err)
			}
			wavelengths = append(wavelengths, v)
		}
		if len(wavelengths) != len(bands) {
			return nil, fmt.Errorf("%d wavelengths for %d bands", len(wavelengths), len(bands))
		}
	}

	if isMicrometers(units) {
		for i := range wavelengths {
			wavelengths[i] *= 1000
		}
	}
	return wavelengths, nil
}

func isMicrometers(units string) bool {
	u := strings.ToLower(strings.TrimSpace(units))
	return u == "um" || u == "µm" || strings.HasPrefix(u, "micro")
}

// sortByWavelength orders the bands spectrally in place. GDAL reports bands
// in file order, which for nearly every product is already sorted.
func sortByWavelength(wavelengths []float64, bands [][]float64) {
	if sort.Float64sAreSorted(wavelengths) {
		return
	}
	idx := make([]int, len(wavelengths))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return wavelengths[idx[a]] < wavelengths[idx[b]] })
	sortedW := make([]float64, len(wavelengths))
	sortedB := make([][]float64, len(bands))
	for i, j := range idx {
		sortedW[i] = wavelengths[j]
		sortedB[i] = bands[j]
	}
	copy(wavelengths, sortedW)
	copy(bands, sortedB)
}

func geoReferenceOf(ds *godal.Dataset) *GeoReference {
	gt, err := ds.GeoTransform()
	if err != nil {
		return nil
	}
	geo := &GeoReference{Transform: gt}
	if sr := ds.SpatialRef(); sr != nil {
		if wkt, err := sr.WKT(); err == nil {
			geo.Projection = wkt
		}
		sr.Close()
	}
	return geo
}
