// Package raster holds the in-memory raster model shared by every pipeline
// stage: the reference Grid, single-band Layers, and chronological TimeSeries.
//
// # Validity masks
//
// Absence of data is a normal state. Every Layer carries an explicit validity
// mask; a masked pixel has no numeric meaning and all arithmetic skips it.
// Input nodata sentinels (−9999 in the calibration and land-cover assets,
// provider-specific fill values elsewhere) are converted to masked pixels at
// ingestion by [FromSentinel]; no arithmetic ever operates on a sentinel.
//
// # Alignment
//
// All layers are aligned to one reference Grid (projection, resolution,
// region polygon). Sources that are not natively aligned are resampled by the
// catalog service before they reach this package; layer constructors reject
// value buffers whose length does not match the grid.
//
// # Unit conventions (native scale → pipeline unit)
//
//	Precipitation  mm/day, additive                  daily
//	LST            raw × 0.02 → Kelvin, − 273.15 → °C  daily
//	PET            raw × 0.1 → mm per composite       8-day composite
//	NDVI           raw × 0.0001, dimensionless        16-day composite
//	Land cover     integer class code (17 classes)    annual
//
// Scale conversion happens in the pipeline immediately after compositing;
// the catalog adapter delivers native-scale values.
package raster
