package composite

import (
	"time"

	"github.com/geoandina/droughtfire/internal/raster"
)

// OverlapWeight returns the weight a composite covering [start, start+spanDays)
// contributes to the month [monthStart, monthEnd): the whole-day overlap
// divided by the composite span, clamped to [0, 1].
func OverlapWeight(start time.Time, spanDays int, monthStart, monthEnd time.Time) float64 {
	end := start.AddDate(0, 0, spanDays)

	from := maxTime(start, monthStart)
	to := minTime(end, monthEnd)
	if !to.After(from) {
		return 0
	}
	overlapDays := int(to.Sub(from).Hours() / 24)

	w := float64(overlapDays) / float64(spanDays)
	if w < 0 {
		return 0
	}
	if w > 1 {
		return 1
	}
	return w
}

// MonthlyFromComposites aggregates multi-day composites (e.g. 8-day PET) into
// an exact calendar-month layer. Each composite contributes its value times
// its overlap weight; the weighted sum is scaled by unitScale to the target
// physical unit. With no overlapping composite the result is fully masked.
//
// Per pixel, only valid contributions are summed; a pixel with no valid
// contribution at all stays masked.
func MonthlyFromComposites(series *raster.TimeSeries, monthStart, monthEnd time.Time, spanDays int, unitScale float64, band string, grid *raster.Grid) *raster.Layer {
	out := raster.NewMaskedLayer(grid, band, monthStart)

	// Composites starting up to spanDays before the month can still overlap it.
	for _, l := range series.Window(monthStart.AddDate(0, 0, -spanDays), monthEnd) {
		w := OverlapWeight(l.Time(), spanDays, monthStart, monthEnd)
		if w == 0 {
			continue
		}
		for p := 0; p < out.Len(); p++ {
			v, ok := l.At(p)
			if !ok {
				continue
			}
			prev, _ := out.At(p)
			out.Set(p, prev+w*v)
		}
	}
	return out.Map(func(v float64) float64 { return v * unitScale })
}

// MonthlyFromDaily sums a densely-sampled stream (e.g. daily precipitation)
// over the observations whose date falls within [monthStart, monthEnd).
// Absence of any observation yields a fully masked layer rather than zero,
// so downstream statistics are not biased by false zeros.
func MonthlyFromDaily(series *raster.TimeSeries, monthStart, monthEnd time.Time, band string, grid *raster.Grid) *raster.Layer {
	out := raster.NewMaskedLayer(grid, band, monthStart)

	for _, l := range series.Window(monthStart, monthEnd.Add(-time.Nanosecond)) {
		for p := 0; p < out.Len(); p++ {
			v, ok := l.At(p)
			if !ok {
				continue
			}
			prev, _ := out.At(p)
			out.Set(p, prev+v)
		}
	}
	return out
}

func maxTime(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

func minTime(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}
