package geotiff

import (
	"fmt"

	"github.com/airbusgeo/godal"

	"github.com/geoandina/droughtfire/internal/raster"
)

// WriteLayers writes layers as bands of one GeoTIFF on the layers' shared
// grid. Masked pixels are written as the sentinel and the band nodata value
// is set accordingly.
func WriteLayers(path string, layers ...*raster.Layer) error {
	if len(layers) == 0 {
		return fmt.Errorf("write %s: no layers", path)
	}
	grid := layers[0].Grid()
	for _, l := range layers[1:] {
		if l.Grid() != grid {
			return fmt.Errorf("write %s: layers on different grids", path)
		}
	}

	ds, err := godal.Create(godal.GTiff, path, len(layers), godal.Float64, grid.Width(), grid.Height())
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer ds.Close()

	if err := ds.SetGeoTransform(grid.GeoTransform()); err != nil {
		return fmt.Errorf("set geotransform on %s: %w", path, err)
	}
	sr, err := godal.NewSpatialRefFromEPSG(4326)
	if err != nil {
		return fmt.Errorf("spatial ref: %w", err)
	}
	defer sr.Close()
	if err := ds.SetSpatialRef(sr); err != nil {
		return fmt.Errorf("set spatial ref on %s: %w", path, err)
	}

	for i, l := range layers {
		band := ds.Bands()[i]
		if err := band.SetNoData(Sentinel); err != nil {
			return fmt.Errorf("set nodata on %s band %d: %w", path, i+1, err)
		}

		buf := make([]float64, l.Len())
		for p := 0; p < l.Len(); p++ {
			if v, ok := l.At(p); ok {
				buf[p] = v
			} else {
				buf[p] = Sentinel
			}
		}
		if err := band.Write(0, 0, buf, grid.Width(), grid.Height()); err != nil {
			return fmt.Errorf("write %s band %d (%s): %w", path, i+1, l.Band(), err)
		}
	}
	return nil
}
