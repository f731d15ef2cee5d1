// Package drought derives the standardized drought index: monthly water
// balance, rolling accumulation, and the generalized-logistic quantile
// transform against pre-calibrated per-pixel-per-month parameters.
package drought

import (
	"github.com/geoandina/droughtfire/internal/raster"
)

// BalanceBand is the band name of the derived moisture deficit/surplus series.
const BalanceBand = "water_balance"

// Balance computes the monthly moisture deficit/surplus D = P − PET for each
// month present in the precipitation series. Where the PET layer for the
// matching month is absent, or a PET pixel is masked, PET falls back to zero
// so a valid precipitation pixel is not erased.
func Balance(p, pet *raster.TimeSeries) *raster.TimeSeries {
	out := raster.NewTimeSeries(BalanceBand)

	for i := 0; i < p.Len(); i++ {
		pl := p.At(i)

		var petLayer *raster.Layer
		for j := 0; j < pet.Len(); j++ {
			t := pet.At(j).Time()
			if t.Year() == pl.Time().Year() && t.Month() == pl.Time().Month() {
				petLayer = pet.At(j)
				break
			}
		}

		d := raster.NewMaskedLayer(pl.Grid(), BalanceBand, pl.Time())
		for px := 0; px < pl.Len(); px++ {
			pv, ok := pl.At(px)
			if !ok {
				continue
			}
			petV := 0.0
			if petLayer != nil {
				if v, ok := petLayer.At(px); ok {
					petV = v
				}
			}
			d.Set(px, pv-petV)
		}
		out.Add(d) //nolint:errcheck // band is fixed above
	}
	return out
}

// RollingAccumulate sums the k most recent balance layers for every window
// ending at index i >= k−1, tagging each result with the timestamp of the
// window's last element. A series shorter than k yields an empty series;
// standardization for those periods is simply unavailable, not an error.
//
// A pixel masked in any month of the window is masked in the accumulated
// layer; a partial sum would understate the deficit.
func RollingAccumulate(d *raster.TimeSeries, k int) *raster.TimeSeries {
	out := raster.NewTimeSeries(d.Band())
	if k <= 0 || d.Len() < k {
		return out
	}

	for i := k - 1; i < d.Len(); i++ {
		last := d.At(i)
		acc := raster.NewMaskedLayer(last.Grid(), d.Band(), last.Time())

		for px := 0; px < last.Len(); px++ {
			sum := 0.0
			ok := true
			for j := i - k + 1; j <= i; j++ {
				v, valid := d.At(j).At(px)
				if !valid {
					ok = false
					break
				}
				sum += v
			}
			if ok {
				acc.Set(px, sum)
			}
		}
		out.Add(acc) //nolint:errcheck // band matches the source series
	}
	return out
}
