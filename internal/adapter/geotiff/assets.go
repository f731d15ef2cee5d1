// Package geotiff loads the static calibration assets and writes assessment
// rasters, using GDAL through godal. Callers must register GDAL drivers once
// at startup with godal.RegisterAll.
package geotiff

import (
	"fmt"
	"time"

	"github.com/airbusgeo/godal"

	"github.com/geoandina/droughtfire/internal/drought"
	"github.com/geoandina/droughtfire/internal/raster"
)

// Sentinel marks nodata pixels in every asset and output raster.
const Sentinel = -9999.0

// calibrationBands is the fixed layout of the calibration asset: twelve
// location bands, twelve scale bands, twelve shape bands.
const calibrationBands = 36

// Assets bundles the reference grid and the fitted distribution parameters.
type Assets struct {
	Grid   *raster.Grid
	Params *drought.CalibratedParameterSet
}

// LoadAssets reads the reference grid and parameter set from the 36-band
// calibration GeoTIFF and clips it to the boundary GeoJSON. Layout problems
// are errors; sentinel pixels inside the bands become masked.
func LoadAssets(calibrationPath, boundaryPath string) (*Assets, error) {
	region, err := LoadBoundary(boundaryPath)
	if err != nil {
		return nil, err
	}

	ds, err := godal.Open(calibrationPath, godal.ErrLogger(ignoreWarnings))
	if err != nil {
		return nil, fmt.Errorf("open calibration asset: %w", err)
	}
	defer ds.Close()

	bands := ds.Bands()
	if len(bands) != calibrationBands {
		return nil, fmt.Errorf("calibration asset %s has %d bands, want %d", calibrationPath, len(bands), calibrationBands)
	}

	gt, err := ds.GeoTransform()
	if err != nil {
		return nil, fmt.Errorf("calibration asset geotransform: %w", err)
	}
	width := ds.Structure().SizeX
	height := ds.Structure().SizeY

	grid, err := raster.NewGrid(width, height, gt, "EPSG:4326", region)
	if err != nil {
		return nil, fmt.Errorf("calibration asset grid: %w", err)
	}

	readParam := func(bandIndex int, name string) (*raster.Layer, error) {
		buf := make([]float64, grid.Size())
		if err := bands[bandIndex].Read(0, 0, buf, width, height); err != nil {
			return nil, fmt.Errorf("read %s band %d: %w", name, bandIndex+1, err)
		}
		return raster.FromSentinel(grid, name, time.Time{}, buf, Sentinel)
	}

	var months [12]drought.ParamTriple
	for m := 0; m < 12; m++ {
		xi, err := readParam(m, "xi")
		if err != nil {
			return nil, err
		}
		alpha, err := readParam(12+m, "alpha")
		if err != nil {
			return nil, err
		}
		kappa, err := readParam(24+m, "kappa")
		if err != nil {
			return nil, err
		}
		months[m] = drought.ParamTriple{Xi: xi, Alpha: alpha, Kappa: kappa}
	}

	params, err := drought.NewCalibratedParameterSet(months)
	if err != nil {
		return nil, fmt.Errorf("calibration asset %s: %w", calibrationPath, err)
	}

	return &Assets{Grid: grid, Params: params}, nil
}

// LoadLandCover reads a single-band categorical raster aligned to the grid.
func LoadLandCover(path string, grid *raster.Grid, at time.Time) (*raster.Layer, error) {
	ds, err := godal.Open(path, godal.ErrLogger(ignoreWarnings))
	if err != nil {
		return nil, fmt.Errorf("open land cover raster: %w", err)
	}
	defer ds.Close()

	if ds.Structure().SizeX != grid.Width() || ds.Structure().SizeY != grid.Height() {
		return nil, fmt.Errorf("land cover raster %s is %dx%d, grid is %dx%d",
			path, ds.Structure().SizeX, ds.Structure().SizeY, grid.Width(), grid.Height())
	}
	bands := ds.Bands()
	if len(bands) == 0 {
		return nil, fmt.Errorf("land cover raster %s has no bands", path)
	}

	buf := make([]float64, grid.Size())
	if err := bands[0].Read(0, 0, buf, grid.Width(), grid.Height()); err != nil {
		return nil, fmt.Errorf("read land cover raster: %w", err)
	}

	sentinel := Sentinel
	if nodata, ok := bands[0].NoData(); ok {
		sentinel = nodata
	}
	return raster.FromSentinel(grid, "landcover", at, buf, sentinel)
}

func ignoreWarnings(ec godal.ErrorCategory, _ int, msg string) error {
	if ec == godal.CE_Warning {
		return nil
	}
	return fmt.Errorf("gdal: %s", msg)
}
