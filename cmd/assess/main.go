// Command assess runs assessments from the terminal: a single date, or a
// backfill over a date range fanned out across workers. Each assessed date
// is written as a three-band GeoTIFF (drought index, FDCI, hotspot mask).
//
// Usage:
//
//	go run ./cmd/assess -date 2023-07-15 -out out/
//	go run ./cmd/assess -from 2023-06-01 -to 2023-08-31 -out out/ -workers 4
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/airbusgeo/godal"
	"github.com/gammazero/workerpool"
	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/schollz/progressbar/v3"

	"github.com/geoandina/droughtfire/internal/adapter/catalog"
	"github.com/geoandina/droughtfire/internal/adapter/geotiff"
	"github.com/geoandina/droughtfire/internal/config"
	"github.com/geoandina/droughtfire/internal/hazard"
	"github.com/geoandina/droughtfire/internal/observability"
	"github.com/geoandina/droughtfire/internal/pipeline"
)

func main() {
	if err := run(); err != nil {
		slog.Error("assess failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	dateFlag := flag.String("date", "", "single date to assess (YYYY-MM-DD)")
	fromFlag := flag.String("from", "", "backfill range start (YYYY-MM-DD)")
	toFlag := flag.String("to", "", "backfill range end (YYYY-MM-DD), inclusive")
	outFlag := flag.String("out", "out", "output directory for GeoTIFFs")
	workersFlag := flag.Int("workers", 4, "concurrent assessments during backfill")
	flag.Parse()

	dates, err := parseDates(*dateFlag, *fromFlag, *toFlag)
	if err != nil {
		flag.Usage()
		return err
	}

	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	godal.RegisterAll()

	assets, err := geotiff.LoadAssets(cfg.CalibrationPath, cfg.BoundaryPath)
	if err != nil {
		return err
	}
	coverWeights := hazard.DefaultCoverWeights()
	if cfg.CoverWeightsPath != "" {
		if coverWeights, err = hazard.LoadCoverWeights(cfg.CoverWeightsPath); err != nil {
			return err
		}
	}

	client := catalog.NewClient(cfg.CatalogBaseURL, cfg.CatalogTimeout, cfg.CatalogRetries, assets.Grid, clockwork.NewRealClock(), logger, metrics)
	source := catalog.NewCachedSource(client, cfg.CatalogCacheSize, metrics)
	assessor := pipeline.New(source, assets.Grid, assets.Params, coverWeights, cfg.Calibration, logger, metrics)

	if err := os.MkdirAll(*outFlag, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	ctx := context.Background()
	bar := progressbar.Default(int64(len(dates)), "assessing")

	var (
		mu       sync.Mutex
		failures []error
	)
	wp := workerpool.New(*workersFlag)
	for _, date := range dates {
		wp.Submit(func() {
			defer bar.Add(1) //nolint:errcheck // progress display only

			if err := assessOne(ctx, assessor, date, *outFlag); err != nil {
				mu.Lock()
				failures = append(failures, err)
				mu.Unlock()
			}
		})
	}
	wp.StopWait()

	if len(failures) > 0 {
		for _, err := range failures {
			logger.Error("date failed", "error", err)
		}
		return fmt.Errorf("%d of %d dates failed", len(failures), len(dates))
	}
	logger.Info("backfill complete", "dates", len(dates), "out", *outFlag)
	return nil
}

func assessOne(ctx context.Context, assessor *pipeline.Assessor, date time.Time, outDir string) error {
	stack, err := assessor.Assess(ctx, date)
	if err != nil {
		return fmt.Errorf("assess %s: %w", date.Format(time.DateOnly), err)
	}
	mask := assessor.Hotspots(stack)

	path := filepath.Join(outDir, fmt.Sprintf("assessment_%s.tif", date.Format(time.DateOnly)))
	if err := geotiff.WriteLayers(path, stack.Index, stack.FDCI, mask); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func parseDates(date, from, to string) ([]time.Time, error) {
	if date != "" {
		if from != "" || to != "" {
			return nil, fmt.Errorf("-date and -from/-to are mutually exclusive")
		}
		d, err := time.Parse(time.DateOnly, date)
		if err != nil {
			return nil, fmt.Errorf("parse -date: %w", err)
		}
		return []time.Time{d}, nil
	}

	if from == "" || to == "" {
		return nil, fmt.Errorf("either -date or both -from and -to are required")
	}
	start, err := time.Parse(time.DateOnly, from)
	if err != nil {
		return nil, fmt.Errorf("parse -from: %w", err)
	}
	end, err := time.Parse(time.DateOnly, to)
	if err != nil {
		return nil, fmt.Errorf("parse -to: %w", err)
	}
	if end.Before(start) {
		return nil, fmt.Errorf("-to %s is before -from %s", to, from)
	}

	var dates []time.Time
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		dates = append(dates, d)
	}
	return dates, nil
}
