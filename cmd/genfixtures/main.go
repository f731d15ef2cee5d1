// Command genfixtures writes deterministic synthetic assets for local runs
// and demos: a calibration GeoTIFF, a region boundary, and per-band
// observation stream JSON files that a static file server can serve in
// place of the raster catalog.
//
// Usage:
//
//	go run ./cmd/genfixtures -out data/fixtures -width 24 -height 20 -end 2023-07-15
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/airbusgeo/godal"

	"github.com/geoandina/droughtfire/internal/adapter/geotiff"
	"github.com/geoandina/droughtfire/internal/raster"
)

// Approximate bounding box of Cundinamarca & Boyacá.
const (
	lonMin = -74.8
	lonMax = -72.7
	latMin = 4.0
	latMax = 6.2
)

// observation mirrors the catalog wire format.
type observation struct {
	Time   time.Time `json:"time"`
	Values []float64 `json:"values"`
	Nodata float64   `json:"nodata"`
}

type stream struct {
	Band         string        `json:"band"`
	Observations []observation `json:"observations"`
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	out := flag.String("out", "data/fixtures", "output directory")
	width := flag.Int("width", 24, "grid width in pixels")
	height := flag.Int("height", 20, "grid height in pixels")
	days := flag.Int("days", 240, "length of the generated history")
	endFlag := flag.String("end", "", "last observation date (YYYY-MM-DD), default today")
	seed := flag.Int64("seed", 7, "random seed")
	flag.Parse()

	end := time.Now().UTC().Truncate(24 * time.Hour)
	if *endFlag != "" {
		var err error
		if end, err = time.Parse(time.DateOnly, *endFlag); err != nil {
			return fmt.Errorf("parse -end: %w", err)
		}
	}

	if err := os.MkdirAll(*out, 0o755); err != nil {
		return err
	}

	godal.RegisterAll()
	rng := rand.New(rand.NewSource(*seed))

	gt := [6]float64{
		lonMin, (lonMax - lonMin) / float64(*width), 0,
		latMax, 0, -(latMax - latMin) / float64(*height),
	}
	grid, err := raster.NewGrid(*width, *height, gt, "EPSG:4326", nil)
	if err != nil {
		return err
	}

	if err := writeBoundary(filepath.Join(*out, "region.geojson")); err != nil {
		return err
	}
	if err := writeCalibration(filepath.Join(*out, "glo_params.tif"), grid, rng); err != nil {
		return err
	}
	if err := writeStreams(*out, grid, rng, end, *days); err != nil {
		return err
	}

	log.Printf("fixtures written to %s (%dx%d grid, %d days ending %s)",
		*out, *width, *height, *days, end.Format(time.DateOnly))
	return nil
}

// writeBoundary writes a rectangle slightly inside the grid extent so the
// clip path is exercised.
func writeBoundary(path string) error {
	inset := 0.05
	boundary := map[string]any{
		"type": "FeatureCollection",
		"features": []map[string]any{{
			"type":       "Feature",
			"properties": map[string]any{"name": "cundinamarca-boyaca"},
			"geometry": map[string]any{
				"type": "Polygon",
				"coordinates": [][][2]float64{{
					{lonMin + inset, latMin + inset},
					{lonMax - inset, latMin + inset},
					{lonMax - inset, latMax - inset},
					{lonMin + inset, latMax - inset},
					{lonMin + inset, latMin + inset},
				}},
			},
		}},
	}
	data, err := json.MarshalIndent(boundary, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// writeCalibration emits the 36-band parameter asset: per-month location,
// scale, and shape surfaces with mild spatial noise.
func writeCalibration(path string, grid *raster.Grid, rng *rand.Rand) error {
	layers := make([]*raster.Layer, 0, 36)
	genBand := func(name string, base, spread float64) *raster.Layer {
		l := raster.NewMaskedLayer(grid, name, time.Time{})
		for p := 0; p < grid.Size(); p++ {
			l.Set(p, base+spread*(rng.Float64()-0.5))
		}
		return l
	}

	for m := 0; m < 12; m++ {
		layers = append(layers, genBand("xi", 150+10*float64(m%3), 20))
	}
	for m := 0; m < 12; m++ {
		layers = append(layers, genBand("alpha", 45, 10))
	}
	for m := 0; m < 12; m++ {
		layers = append(layers, genBand("kappa", 0.1, 0.05))
	}
	return geotiff.WriteLayers(path, layers...)
}

func writeStreams(dir string, grid *raster.Grid, rng *rand.Rand, end time.Time, days int) error {
	start := end.AddDate(0, 0, -days)

	precip := stream{Band: "precipitation"}
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		precip.Observations = append(precip.Observations, randomLayer(grid, rng, d, 0, 20, 0.02))
	}

	pet := stream{Band: "pet"}
	for d := start; !d.After(end); d = d.AddDate(0, 0, 8) {
		pet.Observations = append(pet.Observations, randomLayer(grid, rng, d, 250, 400, 0.02))
	}

	lst := stream{Band: "lst"}
	for d := start; !d.After(end); d = d.AddDate(0, 0, 8) {
		// Native MODIS LST around 18-35 C.
		lst.Observations = append(lst.Observations, randomLayer(grid, rng, d, 14560, 15410, 0.1))
	}

	ndvi := stream{Band: "ndvi"}
	for d := start; !d.After(end); d = d.AddDate(0, 0, 16) {
		ndvi.Observations = append(ndvi.Observations, randomLayer(grid, rng, d, 2000, 8500, 0.1))
	}

	cover := stream{Band: "landcover"}
	coverObs := observation{Time: time.Date(end.Year(), 1, 1, 0, 0, 0, 0, time.UTC), Nodata: geotiff.Sentinel}
	for p := 0; p < grid.Size(); p++ {
		coverObs.Values = append(coverObs.Values, float64(1+rng.Intn(17)))
	}
	cover.Observations = append(cover.Observations, coverObs)

	for _, s := range []stream{precip, pet, lst, ndvi, cover} {
		data, err := json.Marshal(s)
		if err != nil {
			return err
		}
		if err := os.WriteFile(filepath.Join(dir, s.Band+".json"), data, 0o644); err != nil {
			return err
		}
	}
	return nil
}

// randomLayer draws per-pixel values uniformly in [lo, hi) and knocks out a
// small fraction as nodata to mimic cloud gaps.
func randomLayer(grid *raster.Grid, rng *rand.Rand, at time.Time, lo, hi, gapRate float64) observation {
	obs := observation{Time: at, Nodata: geotiff.Sentinel}
	for p := 0; p < grid.Size(); p++ {
		if rng.Float64() < gapRate {
			obs.Values = append(obs.Values, geotiff.Sentinel)
			continue
		}
		obs.Values = append(obs.Values, lo+(hi-lo)*rng.Float64())
	}
	return obs
}
