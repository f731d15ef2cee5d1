package pipeline

import (
	"time"

	"github.com/geoandina/droughtfire/internal/hazard"
	"github.com/geoandina/droughtfire/internal/raster"
)

// RegionName identifies the monitored area in summaries and alerts.
const RegionName = "cundinamarca-boyaca"

// AlertSummary is the compact per-date result shared by the HTTP API and
// the Kafka alert stream.
type AlertSummary struct {
	Date          string  `json:"date"`
	Region        string  `json:"region"`
	HotspotPixels int     `json:"hotspot_pixels"`
	ValidPixels   int     `json:"valid_pixels"`
	MeanFDCI      float64 `json:"mean_fdci"`
	MeanIndex     float64 `json:"mean_index"`
}

// Summarize reduces a stack and its hotspot mask to an AlertSummary. Means
// are over valid pixels only and zero when nothing is valid.
func Summarize(stack *DailyStack, hotspots *raster.Layer) AlertSummary {
	meanFDCI, _ := stack.FDCI.MeanValid()
	meanIndex, _ := stack.Index.MeanValid()

	return AlertSummary{
		Date:          stack.Date.Format(time.DateOnly),
		Region:        RegionName,
		HotspotPixels: hazard.CountHotspots(hotspots),
		ValidPixels:   stack.FDCI.CountValid(),
		MeanFDCI:      meanFDCI,
		MeanIndex:     meanIndex,
	}
}
