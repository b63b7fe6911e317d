package spectral

// Kind identifies a derived per-pixel indicator.
type Kind string

const (
	NDVI           Kind = "ndvi"
	SAVI           Kind = "savi"
	EVI            Kind = "evi"
	MCARI          Kind = "mcari"
	RedEdge        Kind = "red_edge"
	SoilBrightness Kind = "soil_brightness"
	SoilMoisture   Kind = "soil_moisture"
)

// Kinds lists every indicator in presentation order.
var Kinds = []Kind{NDVI, SAVI, EVI, MCARI, RedEdge, SoilBrightness, SoilMoisture}

// Map is one per-pixel indicator raster, flat row-major like a cube band.
// Maps are never mutated after computation.
type Map struct {
	Kind       Kind
	Rows, Cols int
	Values     []float64
}

// At returns the value at the given pixel.
func (m *Map) At(row, col int) float64 {
	return m.Values[row*m.Cols+col]
}
