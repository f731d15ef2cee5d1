package hazard

import (
	"fmt"
	"os"

	"github.com/gocarina/gocsv"

	"github.com/geoandina/droughtfire/internal/raster"
)

// CoverWeights maps integer land-cover class codes to scalar hazard weights.
// Codes absent from the table map to 0.
type CoverWeights map[int]float64

// coverWeightRow is one line of the hazard-weight CSV asset.
type coverWeightRow struct {
	Class  int     `csv:"class"`
	Name   string  `csv:"name"`
	Weight float64 `csv:"weight"`
}

// LoadCoverWeights reads a hazard-weight table from a CSV asset with columns
// class,name,weight.
func LoadCoverWeights(path string) (CoverWeights, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open cover weight table: %w", err)
	}
	defer f.Close()

	var rows []coverWeightRow
	if err := gocsv.UnmarshalFile(f, &rows); err != nil {
		return nil, fmt.Errorf("parse cover weight table: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("cover weight table %s is empty", path)
	}

	w := make(CoverWeights, len(rows))
	for _, r := range rows {
		w[r.Class] = r.Weight
	}
	return w, nil
}

// DefaultCoverWeights returns the calibrated weights for the 17 IGBP
// land-cover classes of the annual MODIS product.
func DefaultCoverWeights() CoverWeights {
	return CoverWeights{
		1:  0.70, // evergreen needleleaf forest
		2:  0.55, // evergreen broadleaf forest
		3:  0.75, // deciduous needleleaf forest
		4:  0.65, // deciduous broadleaf forest
		5:  0.68, // mixed forest
		6:  0.80, // closed shrubland
		7:  0.85, // open shrubland
		8:  0.95, // woody savanna
		9:  1.00, // savanna
		10: 0.90, // grassland
		11: 0.05, // permanent wetland
		12: 0.60, // cropland
		13: 0.20, // urban and built-up
		14: 0.65, // cropland/natural vegetation mosaic
		15: 0.00, // permanent snow and ice
		16: 0.10, // barren
		17: 0.00, // water
	}
}

// CoverHazard remaps land-cover category codes through the weight table.
// Codes without an entry yield 0; masked pixels stay masked.
func CoverHazard(cover *raster.Layer, w CoverWeights) *raster.Layer {
	return cover.Rename("cover_hazard").Map(func(v float64) float64 {
		return w[int(v)]
	})
}
