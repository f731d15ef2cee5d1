package hazard

import (
	"github.com/geoandina/droughtfire/internal/raster"
)

// HotspotBand is the band name of the boolean anomaly mask.
const HotspotBand = "hotspot"

// DetectHotspots applies the dual-threshold rule to a date's fire-danger and
// drought-index layers: a pixel is a hot spot (1) iff fdci >= fdciThreshold
// and the standardized index <= indexThreshold, 0 otherwise. Pixels masked in
// either input are masked in the output, never silently treated as false.
func DetectHotspots(fdci, index *raster.Layer, fdciThreshold, indexThreshold float64) *raster.Layer {
	out := raster.NewMaskedLayer(fdci.Grid(), HotspotBand, fdci.Time())
	for p := 0; p < out.Len(); p++ {
		f, okF := fdci.At(p)
		z, okZ := index.At(p)
		if !okF || !okZ {
			continue
		}
		if f >= fdciThreshold && z <= indexThreshold {
			out.Set(p, 1)
		} else {
			out.Set(p, 0)
		}
	}
	return out
}

// CountHotspots returns the number of true pixels in a hotspot mask.
func CountHotspots(mask *raster.Layer) int {
	n := 0
	for p := 0; p < mask.Len(); p++ {
		if v, ok := mask.At(p); ok && v == 1 {
			n++
		}
	}
	return n
}
