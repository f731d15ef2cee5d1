package geotiff

import (
	"fmt"
	"os"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// LoadBoundary reads the region-of-interest polygons from a GeoJSON
// feature collection. Polygon and MultiPolygon features are merged; other
// geometry types are rejected.
func LoadBoundary(path string) (orb.MultiPolygon, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read boundary: %w", err)
	}

	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("parse boundary: %w", err)
	}
	if len(fc.Features) == 0 {
		return nil, fmt.Errorf("boundary %s has no features", path)
	}

	var region orb.MultiPolygon
	for i, f := range fc.Features {
		switch geom := f.Geometry.(type) {
		case orb.Polygon:
			region = append(region, geom)
		case orb.MultiPolygon:
			region = append(region, geom...)
		default:
			return nil, fmt.Errorf("boundary feature %d is %T, want polygonal", i, geom)
		}
	}
	return region, nil
}
