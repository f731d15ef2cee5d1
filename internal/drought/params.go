package drought

import (
	"fmt"
	"time"

	"github.com/geoandina/droughtfire/internal/raster"
)

// ParamTriple holds the per-pixel generalized-logistic parameters for one
// calendar month: location (xi), scale (alpha), and shape (kappa).
type ParamTriple struct {
	Xi    *raster.Layer
	Alpha *raster.Layer
	Kappa *raster.Layer
}

// CalibratedParameterSet is the immutable offline-fitted asset consumed by
// Standardize: exactly twelve parameter triples, one per calendar month.
// A pixel lacking parameters is masked in every derived output.
type CalibratedParameterSet struct {
	months [12]ParamTriple
}

// NewCalibratedParameterSet validates the structural layout of the asset.
// An incomplete layout is a configuration error surfaced to the caller, not
// a per-pixel condition.
func NewCalibratedParameterSet(months [12]ParamTriple) (*CalibratedParameterSet, error) {
	for i, tr := range months {
		if tr.Xi == nil || tr.Alpha == nil || tr.Kappa == nil {
			return nil, fmt.Errorf("calibration asset: month %d is missing a parameter layer", i+1)
		}
		if tr.Xi.Len() != tr.Alpha.Len() || tr.Xi.Len() != tr.Kappa.Len() {
			return nil, fmt.Errorf("calibration asset: month %d parameter layers disagree in size", i+1)
		}
	}
	return &CalibratedParameterSet{months: months}, nil
}

// Month returns the parameter triple for a calendar month. Month m selects
// triple index m−1; a direct lookup, no date arithmetic.
func (s *CalibratedParameterSet) Month(m time.Month) ParamTriple {
	return s.months[int(m)-1]
}
