// Package pipeline orchestrates one per-date hazard assessment: fetch the
// observation windows each band needs, composite them, run the water-balance
// and standardization chain, fuse the fire-danger index, and clip the
// results to the region.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/geoandina/droughtfire/internal/composite"
	"github.com/geoandina/droughtfire/internal/config"
	"github.com/geoandina/droughtfire/internal/drought"
	"github.com/geoandina/droughtfire/internal/hazard"
	"github.com/geoandina/droughtfire/internal/observability"
	"github.com/geoandina/droughtfire/internal/raster"
)

// Observation stream names known to the catalog.
const (
	BandPrecipitation = "precipitation"
	BandLST           = "lst"
	BandPET           = "pet"
	BandNDVI          = "ndvi"
	BandLandCover     = "landcover"
)

// Source provides time-window slices of a named observation stream, already
// aligned to the reference grid.
type Source interface {
	FetchSeries(ctx context.Context, band string, from, to time.Time) (*raster.TimeSeries, error)
}

// DailyStack is the output of one assessment: the standardized drought
// index and the fused fire-danger index for the target date, both clipped
// to the region.
type DailyStack struct {
	Date  time.Time
	Index *raster.Layer
	FDCI  *raster.Layer
}

// Assessor runs per-date assessments. Each call to Assess is a pure
// function of (date, calibration, assets); no state carries across calls
// beyond the readiness flag.
type Assessor struct {
	source       Source
	grid         *raster.Grid
	params       *drought.CalibratedParameterSet
	coverWeights hazard.CoverWeights
	cal          config.Calibration
	logger       *slog.Logger
	metrics      *observability.Metrics
	ready        atomic.Bool
}

// New creates an Assessor over the given source and static assets.
func New(source Source, grid *raster.Grid, params *drought.CalibratedParameterSet, coverWeights hazard.CoverWeights, cal config.Calibration, logger *slog.Logger, metrics *observability.Metrics) *Assessor {
	return &Assessor{
		source:       source,
		grid:         grid,
		params:       params,
		coverWeights: coverWeights,
		cal:          cal,
		logger:       logger,
		metrics:      metrics,
	}
}

// CheckReadiness returns nil once at least one assessment has completed,
// or an error describing why the service is not yet ready.
func (a *Assessor) CheckReadiness(_ context.Context) error {
	if !a.ready.Load() {
		return errors.New("no assessment has completed yet")
	}
	return nil
}

// Assess computes the daily stack for the given date. The date is
// normalized to UTC midnight. Structural failures (exhausted source
// retries, context cancellation) return an error; data gaps within the
// streams stay masked in the output.
func (a *Assessor) Assess(ctx context.Context, date time.Time) (*DailyStack, error) {
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	start := time.Now()

	stack, err := a.assess(ctx, day)
	if err != nil {
		a.metrics.AssessmentsTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	a.metrics.AssessmentsTotal.WithLabelValues("success").Inc()
	a.metrics.AssessmentDuration.Observe(time.Since(start).Seconds())
	a.metrics.ValidPixelRatio.WithLabelValues(drought.IndexBand).Set(validRatio(stack.Index))
	a.metrics.ValidPixelRatio.WithLabelValues(hazard.FDCIBand).Set(validRatio(stack.FDCI))
	a.ready.Store(true)

	a.logger.Info("assessment complete",
		"date", day.Format("2006-01-02"),
		"index_valid", stack.Index.CountValid(),
		"fdci_valid", stack.FDCI.CountValid(),
		"duration", time.Since(start),
	)
	return stack, nil
}

func (a *Assessor) assess(ctx context.Context, day time.Time) (*DailyStack, error) {
	cal := a.cal

	// The accumulation window of the oldest month inside the index lookback
	// reaches k-1 months further back, so the balance inputs start there.
	windowStart := firstOfMonth(day.AddDate(0, 0, -cal.IndexLookbackDays))
	fetchStart := windowStart.AddDate(0, -(cal.AccumulationMonths - 1), 0)

	var p, pet, lst, ndvi, cover *raster.TimeSeries

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		p, err = a.source.FetchSeries(gctx, BandPrecipitation, fetchStart, day)
		return err
	})
	g.Go(func() (err error) {
		// PET composites starting before the first month can still overlap
		// it, so the fetch reaches one span further back.
		pet, err = a.source.FetchSeries(gctx, BandPET, fetchStart.AddDate(0, 0, -(cal.PETSpanDays-1)), day)
		return err
	})
	g.Go(func() (err error) {
		lst, err = a.source.FetchSeries(gctx, BandLST, day.AddDate(0, 0, -cal.LSTLookbackDays), day)
		return err
	})
	g.Go(func() (err error) {
		ndvi, err = a.source.FetchSeries(gctx, BandNDVI, day.AddDate(0, 0, -cal.NDVILookbackDays), day)
		return err
	})
	g.Go(func() (err error) {
		cover, err = a.source.FetchSeries(gctx, BandLandCover, day.AddDate(0, 0, -cal.LandCoverLookbackDays), day)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("fetch observation streams: %w", err)
	}

	index, err := a.droughtIndex(day, p, pet)
	if err != nil {
		return nil, err
	}
	fdci := a.fireDanger(day, lst, ndvi, cover)

	return &DailyStack{
		Date:  day,
		Index: a.grid.Clip(index),
		FDCI:  a.grid.Clip(fdci),
	}, nil
}

// droughtIndex runs the water-balance chain: complete calendar months only,
// rolling accumulation, GLO standardization, then a gap-filled composite of
// the standardized layers within the index lookback.
func (a *Assessor) droughtIndex(day time.Time, p, pet *raster.TimeSeries) (*raster.Layer, error) {
	cal := a.cal

	pMonthly := raster.NewTimeSeries(BandPrecipitation)
	petMonthly := raster.NewTimeSeries(BandPET)

	windowStart := firstOfMonth(day.AddDate(0, 0, -cal.IndexLookbackDays))
	fetchStart := windowStart.AddDate(0, -(cal.AccumulationMonths - 1), 0)

	for m := fetchStart; ; m = m.AddDate(0, 1, 0) {
		monthEnd := m.AddDate(0, 1, 0)
		// Complete months only: a month whose last day is past the target
		// date would aggregate a partial record.
		if monthEnd.After(day.AddDate(0, 0, 1)) {
			break
		}
		if err := pMonthly.Add(composite.MonthlyFromDaily(p, m, monthEnd, BandPrecipitation, a.grid)); err != nil {
			return nil, err
		}
		if err := petMonthly.Add(composite.MonthlyFromComposites(pet, m, monthEnd, cal.PETSpanDays, cal.PETScale, BandPET, a.grid)); err != nil {
			return nil, err
		}
	}

	balance := drought.Balance(pMonthly, petMonthly)
	acc := drought.RollingAccumulate(balance, cal.AccumulationMonths)
	std := drought.Standardize(acc, a.params)

	a.logger.Debug("drought chain built",
		"months", pMonthly.Len(),
		"accumulations", acc.Len(),
	)
	return composite.GapFill(std, day, cal.IndexLookbackDays, drought.IndexBand, a.grid), nil
}

// fireDanger composites the thermal, vegetation, and land-cover inputs at
// their native cadences, converts them to physical units, and fuses them.
func (a *Assessor) fireDanger(day time.Time, lst, ndvi, cover *raster.TimeSeries) *raster.Layer {
	cal := a.cal

	lstC := composite.GapFill(lst, day, cal.LSTLookbackDays, BandLST, a.grid).
		Map(func(v float64) float64 { return v*cal.LSTScale + cal.LSTOffset })
	ndviC := composite.GapFill(ndvi, day, cal.NDVILookbackDays, BandNDVI, a.grid).
		Map(func(v float64) float64 { return v * cal.NDVIScale })
	coverC := composite.GapFill(cover, day, cal.LandCoverLookbackDays, BandLandCover, a.grid)

	edges := hazard.Edges{
		WetSlope:  cal.WetEdgeSlope,
		WetOffset: cal.WetEdgeOffset,
		DrySlope:  cal.DryEdgeSlope,
		DryOffset: cal.DryEdgeOffset,
	}
	weights := hazard.FusionWeights{
		LST:    cal.WeightLST,
		NDVI:   cal.WeightNDVI,
		TVDI:   cal.WeightTVDI,
		Hazard: cal.WeightHazard,
	}

	tvdi := hazard.TVDI(lstC, ndviC, edges)
	lstNorm := hazard.NormalizeLST(lstC, cal.LSTPercentile02, cal.LSTPercentile98)
	coverHaz := hazard.CoverHazard(coverC, a.coverWeights)

	return hazard.FuseFDCI(lstNorm, ndviC, tvdi, coverHaz, weights)
}

// Hotspots applies the dual thresholds to a stack and records the count.
func (a *Assessor) Hotspots(stack *DailyStack) *raster.Layer {
	mask := hazard.DetectHotspots(stack.FDCI, stack.Index, a.cal.FDCIThreshold, a.cal.IndexThreshold)
	a.metrics.HotspotPixels.Set(float64(hazard.CountHotspots(mask)))
	return mask
}

func firstOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

func validRatio(l *raster.Layer) float64 {
	if l.Len() == 0 {
		return 0
	}
	return float64(l.CountValid()) / float64(l.Len())
}
