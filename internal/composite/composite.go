// Package composite turns irregular observation streams into dense layers:
// gap-filled mosaics for a target date and exact calendar-month aggregates.
package composite

import (
	"time"

	"github.com/geoandina/droughtfire/internal/raster"
)

// GapFill builds a composite layer for targetDate from the observations in
// [targetDate − lookbackDays, targetDate] inclusive. At each pixel the value
// comes from the latest-timestamped layer that is valid there, falling back
// to the next-most-recent where still masked. With no observations in the
// window the result is fully masked, a normal state rather than an error.
//
// The function performs no caching; it is called once per band per date and
// is cheap to recompute.
func GapFill(series *raster.TimeSeries, targetDate time.Time, lookbackDays int, band string, grid *raster.Grid) *raster.Layer {
	out := raster.NewMaskedLayer(grid, band, targetDate)

	window := series.Window(targetDate.AddDate(0, 0, -lookbackDays), targetDate)
	// Window is ascending; walk newest-first so recency wins and older
	// observations only fill remaining gaps.
	for i := len(window) - 1; i >= 0; i-- {
		l := window[i]
		for p := 0; p < out.Len(); p++ {
			if out.Valid(p) {
				continue
			}
			if v, ok := l.At(p); ok {
				out.Set(p, v)
			}
		}
	}
	return out
}
