package raster

import (
	"errors"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// Grid is the immutable spatial reference every layer is aligned to:
// projection, geotransform, raster dimensions, and the region-of-interest
// polygon used to clip all outputs. It is configuration, loaded once and
// shared read-only across queries.
type Grid struct {
	width  int
	height int
	// geoTransform follows the GDAL convention:
	// [originX, pixelWidth, 0, originY, 0, pixelHeight] with pixelHeight
	// negative for north-up rasters.
	geoTransform [6]float64
	crs          string
	region       orb.MultiPolygon
}

// NewGrid validates and builds a Grid. The region may be nil, in which case
// Clip is a no-op copy.
func NewGrid(width, height int, geoTransform [6]float64, crs string, region orb.MultiPolygon) (*Grid, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("grid dimensions must be positive, got %dx%d", width, height)
	}
	if geoTransform[1] == 0 || geoTransform[5] == 0 {
		return nil, errors.New("grid pixel size must be non-zero")
	}
	return &Grid{
		width:        width,
		height:       height,
		geoTransform: geoTransform,
		crs:          crs,
		region:       region,
	}, nil
}

func (g *Grid) Width() int  { return g.width }
func (g *Grid) Height() int { return g.height }

// Size is the number of pixels in a layer on this grid.
func (g *Grid) Size() int { return g.width * g.height }

func (g *Grid) CRS() string { return g.crs }

func (g *Grid) GeoTransform() [6]float64 { return g.geoTransform }

// Region returns the region-of-interest polygon, or nil when unset.
func (g *Grid) Region() orb.MultiPolygon { return g.region }

// CellCenter returns the georeferenced center of the pixel at (col, row).
func (g *Grid) CellCenter(col, row int) (x, y float64) {
	x = g.geoTransform[0] + (float64(col)+0.5)*g.geoTransform[1]
	y = g.geoTransform[3] + (float64(row)+0.5)*g.geoTransform[5]
	return x, y
}

// Clip returns a copy of the layer with every pixel whose center falls
// outside the region polygon masked. Layers on a grid without a region are
// returned as plain copies.
func (g *Grid) Clip(l *Layer) *Layer {
	out := l.Clone()
	if g.region == nil {
		return out
	}
	for row := 0; row < g.height; row++ {
		for col := 0; col < g.width; col++ {
			x, y := g.CellCenter(col, row)
			if !planar.MultiPolygonContains(g.region, orb.Point{x, y}) {
				out.SetMasked(row*g.width + col)
			}
		}
	}
	return out
}
