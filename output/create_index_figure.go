package output

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/agrimonitor/hyperspectral-pipeline/internal/spectral"
)

// indexGrid adapts an indicator map to the heatmap grid interface. Rows are
// flipped so pixel (0,0) renders top-left, the way the imagery is viewed.
type indexGrid struct{ m *spectral.Map }

func (g indexGrid) Dims() (int, int) { return g.m.Cols, g.m.Rows }
func (g indexGrid) X(c int) float64  { return float64(c) }
func (g indexGrid) Y(r int) float64  { return float64(r) }
func (g indexGrid) Z(c, r int) float64 {
	return g.m.At(g.m.Rows-1-r, c)
}

var figureKinds = []spectral.Kind{spectral.NDVI, spectral.SAVI, spectral.EVI}

// CreateIndexFigure renders the NDVI, SAVI and EVI maps as one side-by-side
// heatmap figure. Invalid pixels draw light gray.
func CreateIndexFigure(dir string, maps map[spectral.Kind]*spectral.Map) (Artifact, error) {
	plots := [][]*plot.Plot{make([]*plot.Plot, len(figureKinds))}
	for i, kind := range figureKinds {
		m, ok := maps[kind]
		if !ok {
			return Artifact{}, fmt.Errorf("missing %s map", kind)
		}

		cmap := moreland.Kindlmann()
		cmap.SetMin(0)
		cmap.SetMax(1)
		hm := plotter.NewHeatMap(indexGrid{m}, cmap.Palette(255))
		hm.NaN = color.Gray{Y: 0xdd}
		if hm.Min > hm.Max {
			// Every pixel invalid; pin the range so drawing stays sane.
			hm.Min, hm.Max = 0, 1
		}

		p := plot.New()
		p.Title.Text = strings.ToUpper(string(kind))
		p.X.Label.Text = "column"
		p.Y.Label.Text = "row"
		p.Add(hm)
		plots[0][i] = p
	}

	img := vgimg.New(30*vg.Centimeter, 11*vg.Centimeter)
	tiles := draw.Tiles{
		Rows: 1, Cols: len(figureKinds),
		PadX: 4 * vg.Millimeter, PadY: 4 * vg.Millimeter,
		PadTop: 2 * vg.Millimeter, PadBottom: 2 * vg.Millimeter,
		PadLeft: 2 * vg.Millimeter, PadRight: 2 * vg.Millimeter,
	}
	canvases := plot.Align(plots, tiles, draw.New(img))
	for i := range plots[0] {
		plots[0][i].Draw(canvases[0][i])
	}

	path := filepath.Join(dir, "vegetation_indices.png")
	file, err := os.Create(path)
	if err != nil {
		return Artifact{}, fmt.Errorf("create %s: %w", path, err)
	}
	defer file.Close()
	canvas := vgimg.PngCanvas{Canvas: img}
	if _, err := canvas.WriteTo(file); err != nil {
		return Artifact{}, fmt.Errorf("encode %s: %w", path, err)
	}
	return Artifact{Kind: KindIndexFigure, Path: path}, nil
}
