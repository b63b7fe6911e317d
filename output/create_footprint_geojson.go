package output

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"

	"github.com/agrimonitor/hyperspectral-pipeline/internal/cube"
)

// CreateFootprintGeoJSON writes the raster footprint polygon with centroid
// and area properties, in the source projection's coordinates. Only
// meaningful for georeferenced cubes; the caller skips it otherwise.
func CreateFootprintGeoJSON(dir string, rows, cols int, geo *cube.GeoReference) (Artifact, error) {
	gt := geo.Transform
	corner := func(px, py float64) orb.Point {
		return orb.Point{
			gt[0] + gt[1]*px + gt[2]*py,
			gt[3] + gt[4]*px + gt[5]*py,
		}
	}

	w, h := float64(cols), float64(rows)
	footprint := orb.Polygon{orb.Ring{
		corner(0, 0), corner(w, 0), corner(w, h), corner(0, h), corner(0, 0),
	}}
	centroid, area := planar.CentroidArea(footprint)

	feature := geojson.NewFeature(footprint)
	feature.Properties["centroid_x"] = centroid[0]
	feature.Properties["centroid_y"] = centroid[1]
	feature.Properties["area"] = math.Abs(area)
	if geo.Projection != "" {
		feature.Properties["projection_wkt"] = geo.Projection
	}

	collection := geojson.NewFeatureCollection()
	collection.Append(feature)
	raw, err := json.Marshal(collection)
	if err != nil {
		return Artifact{}, fmt.Errorf("encode footprint: %w", err)
	}

	path := filepath.Join(dir, "footprint.geojson")
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return Artifact{}, fmt.Errorf("write %s: %w", path, err)
	}
	return Artifact{Kind: KindFootprint, Path: path}, nil
}
