package output

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"sync"

	"github.com/airbusgeo/godal"

	"github.com/agrimonitor/hyperspectral-pipeline/internal/cube"
	"github.com/agrimonitor/hyperspectral-pipeline/internal/spectral"
)

// rasterKinds are the indicator maps persisted as standalone rasters.
var rasterKinds = []spectral.Kind{
	spectral.NDVI, spectral.SAVI, spectral.EVI, spectral.MCARI, spectral.RedEdge,
}

var registerDrivers sync.Once

// CreateIndexRasters persists the indicator maps, one file each. A
// georeferenced run produces single-band float64 GeoTIFFs carrying the
// source geotransform and projection with NaN as nodata; without
// georeferencing it falls back to contrast-stretched 16-bit grayscale PNGs.
// Artifacts written before a failure are returned alongside the error.
func CreateIndexRasters(dir string, maps map[spectral.Kind]*spectral.Map, geo *cube.GeoReference) ([]Artifact, error) {
	artifacts := make([]Artifact, 0, len(rasterKinds))
	for _, kind := range rasterKinds {
		m, ok := maps[kind]
		if !ok {
			return artifacts, fmt.Errorf("missing %s map", kind)
		}
		var path string
		var err error
		if geo != nil {
			path = filepath.Join(dir, string(kind)+"_map.tif")
			err = createGeoTIFF(path, m, geo)
		} else {
			path = filepath.Join(dir, string(kind)+"_map.png")
			err = createGrayPNG(path, m)
		}
		if err != nil {
			return artifacts, err
		}
		artifacts = append(artifacts, Artifact{Kind: string(kind) + "_map", Path: path})
	}
	return artifacts, nil
}

func createGeoTIFF(path string, m *spectral.Map, geo *cube.GeoReference) error {
	registerDrivers.Do(godal.RegisterAll)

	ds, err := godal.Create(godal.GTiff, path, 1, godal.Float64, m.Cols, m.Rows)
	if err != nil {
		return fmt.Errorf("create %s: %v", path, err)
	}
	if err := ds.SetGeoTransform(geo.Transform); err != nil {
		ds.Close()
		return fmt.Errorf("set geotransform on %s: %v", path, err)
	}
	if geo.Projection != "" {
		sr, err := godal.NewSpatialRefFromWKT(geo.Projection)
		if err != nil {
			ds.Close()
			return fmt.Errorf("parse projection for %s: %v", path, err)
		}
		err = ds.SetSpatialRef(sr)
		sr.Close()
		if err != nil {
			ds.Close()
			return fmt.Errorf("set projection on %s: %v", path, err)
		}
	}

	band := ds.Bands()[0]
	if err := band.SetNoData(math.NaN()); err != nil {
		ds.Close()
		return fmt.Errorf("set nodata on %s: %v", path, err)
	}
	if err := band.Write(0, 0, m.Values, m.Cols, m.Rows); err != nil {
		ds.Close()
		return fmt.Errorf("write %s: %v", path, err)
	}
	return ds.Close()
}

// createGrayPNG is the georeference-free fallback: the valid value range is
// stretched over 16-bit gray, invalid pixels stay black and a constant map
// renders mid-gray.
func createGrayPNG(path string, m *spectral.Map) error {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range m.Values {
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
	span := hi - lo

	img := image.NewGray16(image.Rect(0, 0, m.Cols, m.Rows))
	for row := 0; row < m.Rows; row++ {
		for col := 0; col < m.Cols; col++ {
			v := m.At(row, col)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}
			level := 0.5
			if span > 0 {
				level = (v - lo) / span
			}
			img.SetGray16(col, row, color.Gray16{Y: uint16(level*65535 + 0.5)})
		}
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer file.Close()
	if err := png.Encode(file, img); err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return nil
}
