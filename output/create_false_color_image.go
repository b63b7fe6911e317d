package output

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"

	"github.com/fogleman/gg"

	"github.com/agrimonitor/hyperspectral-pipeline/internal/cube"
	"github.com/agrimonitor/hyperspectral-pipeline/internal/spectral"
)

// Composite channel targets: NIR on red, red on green, green on blue, the
// classic vegetation false-color assignment.
var falseColorTargets = [3]float64{800, 670, 550}

const annotationStrip = 26

// CreateFalseColorImage renders the NIR/red/green composite. Each channel
// is contrast-stretched independently so dim bands still show structure,
// and a strip below the image names the wavelengths actually used.
func CreateFalseColorImage(dir string, c *cube.Cube) (Artifact, error) {
	var channels [3][]float64
	var used [3]float64
	for i, target := range falseColorTargets {
		b := spectral.NearestBand(c.Wavelengths, target)
		channels[i] = spectral.Stretch(c.Band(b))
		used[i] = c.Wavelengths[b]
	}

	img := image.NewRGBA(image.Rect(0, 0, c.Cols, c.Rows))
	for row := range c.Rows {
		for col := range c.Cols {
			i := row*c.Cols + col
			img.Set(col, row, color.RGBA{
				R: toByte(channels[0][i]),
				G: toByte(channels[1][i]),
				B: toByte(channels[2][i]),
				A: 255,
			})
		}
	}

	dc := gg.NewContext(c.Cols, c.Rows+annotationStrip)
	dc.SetRGB(1, 1, 1)
	dc.Clear()
	dc.DrawImage(img, 0, 0)
	dc.SetRGB(0, 0, 0)
	label := fmt.Sprintf("R %.0f nm  G %.0f nm  B %.0f nm", used[0], used[1], used[2])
	dc.DrawStringAnchored(label, float64(c.Cols)/2, float64(c.Rows)+annotationStrip/2, 0.5, 0.5)

	path := filepath.Join(dir, "false_color.png")
	file, err := os.Create(path)
	if err != nil {
		return Artifact{}, fmt.Errorf("create %s: %w", path, err)
	}
	defer file.Close()
	if err := png.Encode(file, dc.Image()); err != nil {
		return Artifact{}, fmt.Errorf("encode %s: %w", path, err)
	}
	return Artifact{Kind: KindFalseColor, Path: path}, nil
}

// toByte maps a unit-range value to 8 bit; invalid pixels go black.
func toByte(v float64) uint8 {
	if math.IsNaN(v) {
		return 0
	}
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	return uint8(v*255 + 0.5)
}
