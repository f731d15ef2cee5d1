package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all service settings, populated from environment variables.
// The calibration block carries the regional constants fitted offline for
// Cundinamarca & Boyacá; they are configuration, not derived at runtime.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Scheduler settings.
	ScheduleInterval time.Duration

	// Kafka alerting (feature-flagged via KAFKA_ENABLED).
	KafkaBrokers     []string
	KafkaAlertsTopic string
	KafkaEnabled     bool

	// Observation catalog (the remote raster stream service).
	CatalogBaseURL   string
	CatalogTimeout   time.Duration
	CatalogRetries   int
	CatalogCacheSize int

	// Static assets.
	CalibrationPath  string // 36-band GeoTIFF: xi[1..12], alpha[1..12], kappa[1..12]
	BoundaryPath     string // region GeoJSON
	CoverWeightsPath string // optional CSV; built-in IGBP table when empty

	Calibration Calibration
}

// Calibration holds the regionally fitted constants of the index pipeline.
type Calibration struct {
	FDCIThreshold  float64
	IndexThreshold float64

	WeightLST    float64
	WeightNDVI   float64
	WeightTVDI   float64
	WeightHazard float64

	// TVDI wet/dry edge coefficients, linear in NDVI.
	WetEdgeSlope  float64
	WetEdgeOffset float64
	DryEdgeSlope  float64
	DryEdgeOffset float64

	// Fixed regional LST percentiles for thermal normalization.
	LSTPercentile02 float64
	LSTPercentile98 float64

	// Gap-fill lookback windows, in days.
	LSTLookbackDays       int
	NDVILookbackDays      int
	LandCoverLookbackDays int
	IndexLookbackDays     int

	// Rolling accumulation window, in months.
	AccumulationMonths int

	// Native scale conventions of the observation streams.
	PETSpanDays int
	PETScale    float64
	NDVIScale   float64
	LSTScale    float64
	LSTOffset   float64
}

// Load reads configuration from environment variables, applying the
// calibrated defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := envDuration("SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}
	scheduleInterval, err := envDuration("SCHEDULE_INTERVAL", 24*time.Hour)
	if err != nil {
		return nil, err
	}
	catalogTimeout, err := envDuration("CATALOG_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, err
	}

	kafkaEnabled := false
	if v := os.Getenv("KAFKA_ENABLED"); v != "" {
		kafkaEnabled = v == "true"
	}

	cfg := &Config{
		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		ScheduleInterval: scheduleInterval,

		KafkaBrokers:     parseBrokers(envOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaAlertsTopic: envOrDefault("KAFKA_ALERTS_TOPIC", "hazard-hotspot-alerts"),
		KafkaEnabled:     kafkaEnabled,

		CatalogBaseURL:   os.Getenv("CATALOG_BASE_URL"),
		CatalogTimeout:   catalogTimeout,
		CatalogRetries:   envInt("CATALOG_RETRIES", 3),
		CatalogCacheSize: envInt("CATALOG_CACHE_SIZE", 64),

		CalibrationPath:  envOrDefault("CALIBRATION_PATH", "data/glo_params.tif"),
		BoundaryPath:     envOrDefault("BOUNDARY_PATH", "data/region.geojson"),
		CoverWeightsPath: os.Getenv("COVER_WEIGHTS_PATH"),

		Calibration: Calibration{
			FDCIThreshold:  envFloat("FDCI_THRESHOLD", 0.62),
			IndexThreshold: envFloat("INDEX_THRESHOLD", 0.1),

			WeightLST:    envFloat("WEIGHT_LST", 0.918),
			WeightNDVI:   envFloat("WEIGHT_NDVI", 0.017),
			WeightTVDI:   envFloat("WEIGHT_TVDI", 0.465),
			WeightHazard: envFloat("WEIGHT_HAZARD", 0.411),

			WetEdgeSlope:  envFloat("TVDI_WET_SLOPE", 8.06),
			WetEdgeOffset: envFloat("TVDI_WET_OFFSET", 0.22),
			DryEdgeSlope:  envFloat("TVDI_DRY_SLOPE", -11.41),
			DryEdgeOffset: envFloat("TVDI_DRY_OFFSET", 48.03),

			LSTPercentile02: envFloat("LST_P02", 10.9),
			LSTPercentile98: envFloat("LST_P98", 37.2),

			LSTLookbackDays:       envInt("LST_LOOKBACK_DAYS", 30),
			NDVILookbackDays:      envInt("NDVI_LOOKBACK_DAYS", 45),
			LandCoverLookbackDays: envInt("LANDCOVER_LOOKBACK_DAYS", 730),
			IndexLookbackDays:     envInt("INDEX_LOOKBACK_DAYS", 90),

			AccumulationMonths: envInt("ACCUMULATION_MONTHS", 3),

			PETSpanDays: envInt("PET_SPAN_DAYS", 8),
			PETScale:    envFloat("PET_SCALE", 0.1),
			NDVIScale:   envFloat("NDVI_SCALE", 0.0001),
			LSTScale:    envFloat("LST_SCALE", 0.02),
			LSTOffset:   envFloat("LST_OFFSET", -273.15),
		},
	}

	if cfg.CatalogBaseURL == "" {
		return nil, errors.New("CATALOG_BASE_URL is required")
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is not set")
	}
	if cfg.KafkaEnabled && cfg.KafkaAlertsTopic == "" {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_ALERTS_TOPIC is not set")
	}
	if cfg.CatalogRetries < 1 {
		return nil, errors.New("CATALOG_RETRIES must be at least 1")
	}
	if err := cfg.Calibration.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c Calibration) validate() error {
	if c.LSTPercentile98 <= c.LSTPercentile02 {
		return fmt.Errorf("LST_P98 (%g) must exceed LST_P02 (%g)", c.LSTPercentile98, c.LSTPercentile02)
	}
	if c.AccumulationMonths < 1 {
		return errors.New("ACCUMULATION_MONTHS must be at least 1")
	}
	if c.PETSpanDays < 1 {
		return errors.New("PET_SPAN_DAYS must be at least 1")
	}
	for name, days := range map[string]int{
		"LST_LOOKBACK_DAYS":       c.LSTLookbackDays,
		"NDVI_LOOKBACK_DAYS":      c.NDVILookbackDays,
		"LANDCOVER_LOOKBACK_DAYS": c.LandCoverLookbackDays,
		"INDEX_LOOKBACK_DAYS":     c.IndexLookbackDays,
	} {
		if days < 1 {
			return fmt.Errorf("%s must be at least 1", name)
		}
	}
	return nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, s)
	}
	return d, nil
}

func envInt(key string, fallback int) int {
	if s := os.Getenv(key); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if s := os.Getenv(key); s != "" {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
	}
	return fallback
}

func parseBrokers(s string) []string {
	var out []string
	for _, b := range strings.Split(s, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}
