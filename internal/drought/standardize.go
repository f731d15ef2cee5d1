package drought

import (
	"math"

	"github.com/geoandina/droughtfire/internal/raster"
)

// IndexBand is the band name of the standardized drought index.
const IndexBand = "drought_index"

// Abramowitz & Stegun 26.2.23 rational approximation constants for the
// standard-normal quantile. Error in the quantile is below 4.5e-4.
const (
	c0 = 2.515517
	c1 = 0.802853
	c2 = 0.010328
	d1 = 1.432788
	d2 = 0.189269
	d3 = 0.001308
)

// baseFloor keeps 1−kappa·u away from the pole of the generalized-logistic
// CDF so the power 1/kappa stays finite.
const baseFloor = 1e-9

// probFloor clamps exceedance probabilities away from 0 and 1 before the
// quantile transform.
const probFloor = 1e-6

// Standardize maps each accumulated-balance layer to a standardized score
// using the calendar-month parameter triple of the layer's timestamp. A pixel
// is masked wherever the balance or any of xi/alpha/kappa is masked, or the
// guarded computation still produces a non-finite value.
func Standardize(acc *raster.TimeSeries, params *CalibratedParameterSet) *raster.TimeSeries {
	out := raster.NewTimeSeries(IndexBand)

	for i := 0; i < acc.Len(); i++ {
		dl := acc.At(i)
		tr := params.Month(dl.Time().Month())

		idx := raster.NewMaskedLayer(dl.Grid(), IndexBand, dl.Time())
		for px := 0; px < dl.Len(); px++ {
			d, ok := dl.At(px)
			if !ok {
				continue
			}
			xi, okXi := tr.Xi.At(px)
			alpha, okAlpha := tr.Alpha.At(px)
			kappa, okKappa := tr.Kappa.At(px)
			if !okXi || !okAlpha || !okKappa || alpha == 0 {
				continue
			}

			z := score(d, xi, alpha, kappa)
			if math.IsNaN(z) || math.IsInf(z, 0) {
				continue
			}
			idx.Set(px, z)
		}
		out.Add(idx) //nolint:errcheck // band is fixed above
	}
	return out
}

// score computes the standardized index for one pixel: the generalized-
// logistic CDF of the accumulated balance followed by a standard-normal
// quantile approximation of the exceedance probability.
func score(d, xi, alpha, kappa float64) float64 {
	u := (d - xi) / alpha

	var cdf float64
	if kappa == 0 {
		// Degenerate shape: the GLO reduces to the standard logistic.
		cdf = 1 / (1 + math.Exp(-u))
	} else {
		base := 1 - kappa*u
		if base < baseFloor {
			base = baseFloor
		}
		cdf = 1 / (1 + math.Pow(base, 1/kappa))
	}

	p := 1 - cdf
	if p < probFloor {
		p = probFloor
	}
	if p > 1-probFloor {
		p = 1 - probFloor
	}
	return normalQuantile(p)
}

// normalQuantile converts an exceedance probability to a standard-normal
// quantile via the Abramowitz–Stegun rational polynomial.
func normalQuantile(p float64) float64 {
	tail := p
	if p > 0.5 {
		tail = 1 - p
	}
	t := math.Sqrt(-2 * math.Log(tail))
	z := t - (c0+t*(c1+t*c2))/(1+t*(d1+t*(d2+t*d3)))
	if p > 0.5 {
		return -z
	}
	return z
}
