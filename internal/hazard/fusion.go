// Package hazard derives the secondary physical indicators (TVDI moisture
// stress, normalized thermal anomaly, land-cover hazard weight) and fuses
// them into the composite fire-danger index (FDCI).
package hazard

import (
	"github.com/geoandina/droughtfire/internal/raster"
)

// FDCIBand is the band name of the composite fire-danger index.
const FDCIBand = "fdci"

// Edges holds the fixed dry/wet-edge linear coefficients of the TVDI
// triangle, both linear in NDVI. They are regional calibration constants.
type Edges struct {
	WetSlope  float64 // a1
	WetOffset float64 // b1
	DrySlope  float64 // a2
	DryOffset float64 // b2
}

// FusionWeights are the calibrated weights of the four FDCI terms.
type FusionWeights struct {
	LST    float64
	NDVI   float64
	TVDI   float64
	Hazard float64
}

// TVDI computes the temperature–vegetation dryness index
// clamp((LST − Ts_wet) / (Ts_dry − Ts_wet), 0, 1) with Ts_wet = a1·NDVI + b1
// and Ts_dry = a2·NDVI + b2. Masked where either input is masked or the
// edges coincide.
func TVDI(lst, ndvi *raster.Layer, e Edges) *raster.Layer {
	out := raster.NewMaskedLayer(lst.Grid(), "tvdi", lst.Time())
	for p := 0; p < out.Len(); p++ {
		t, okT := lst.At(p)
		n, okN := ndvi.At(p)
		if !okT || !okN {
			continue
		}
		wet := e.WetSlope*n + e.WetOffset
		dry := e.DrySlope*n + e.DryOffset
		if dry == wet {
			continue
		}
		out.Set(p, clamp01((t-wet)/(dry-wet)))
	}
	return out
}

// NormalizeLST rescales land-surface temperature against the fixed regional
// calibration percentiles: clamp((LST − p02) / (p98 − p02), 0, 1). The
// percentiles are configuration, never recomputed per query.
func NormalizeLST(lst *raster.Layer, p02, p98 float64) *raster.Layer {
	span := p98 - p02
	return lst.Rename("lst_norm").Map(func(v float64) float64 {
		return clamp01((v - p02) / span)
	})
}

// FuseFDCI combines the four indicators into the composite index:
//
//	FDCI = (w_lst·LST_norm + w_ndvi·NDVI + w_tvdi·TVDI + w_haz·HAZARD + 1) / 4
//
// The +1 offset and /4 rescaling are part of the calibrated contract and
// must match the fitted thresholds. Masked wherever any input is masked.
func FuseFDCI(lstNorm, ndvi, tvdi, coverHazard *raster.Layer, w FusionWeights) *raster.Layer {
	out := raster.NewMaskedLayer(lstNorm.Grid(), FDCIBand, lstNorm.Time())
	for p := 0; p < out.Len(); p++ {
		l, okL := lstNorm.At(p)
		n, okN := ndvi.At(p)
		t, okT := tvdi.At(p)
		h, okH := coverHazard.At(p)
		if !okL || !okN || !okT || !okH {
			continue
		}
		out.Set(p, (w.LST*l+w.NDVI*n+w.TVDI*t+w.Hazard*h+1)/4)
	}
	return out
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
