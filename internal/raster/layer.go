package raster

import (
	"fmt"
	"math"
	"time"
)

// Layer is a single-band raster aligned to a Grid: a band name, a timestamp,
// values, and a validity mask. A masked pixel carries no numeric meaning.
type Layer struct {
	band   string
	at     time.Time
	grid   *Grid
	values []float64
	valid  []bool
}

// NewMaskedLayer builds a fully masked layer for the given band and time.
// An empty composite window or an absent monthly aggregate is represented
// this way rather than as an error or a zero-filled raster.
func NewMaskedLayer(grid *Grid, band string, at time.Time) *Layer {
	return &Layer{
		band:   band,
		at:     at,
		grid:   grid,
		values: make([]float64, grid.Size()),
		valid:  make([]bool, grid.Size()),
	}
}

// NewLayer builds a layer from a value buffer with every pixel valid.
func NewLayer(grid *Grid, band string, at time.Time, values []float64) (*Layer, error) {
	if len(values) != grid.Size() {
		return nil, fmt.Errorf("band %s: got %d values for a %dx%d grid", band, len(values), grid.Width(), grid.Height())
	}
	l := NewMaskedLayer(grid, band, at)
	copy(l.values, values)
	for i := range l.valid {
		l.valid[i] = true
	}
	return l, nil
}

// FromSentinel builds a layer converting a nodata sentinel (e.g. −9999) and
// non-finite values to masked pixels. This is the only place sentinel values
// are allowed to appear; past ingestion, absence is always the mask.
func FromSentinel(grid *Grid, band string, at time.Time, values []float64, sentinel float64) (*Layer, error) {
	if len(values) != grid.Size() {
		return nil, fmt.Errorf("band %s: got %d values for a %dx%d grid", band, len(values), grid.Width(), grid.Height())
	}
	l := NewMaskedLayer(grid, band, at)
	for i, v := range values {
		if v == sentinel || math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		l.values[i] = v
		l.valid[i] = true
	}
	return l, nil
}

func (l *Layer) Band() string    { return l.band }
func (l *Layer) Time() time.Time { return l.at }
func (l *Layer) Grid() *Grid     { return l.grid }
func (l *Layer) Len() int        { return len(l.values) }

// At returns the pixel value and whether it is valid.
func (l *Layer) At(i int) (float64, bool) {
	if !l.valid[i] {
		return 0, false
	}
	return l.values[i], true
}

func (l *Layer) Valid(i int) bool { return l.valid[i] }

// Set stores a value and marks the pixel valid.
func (l *Layer) Set(i int, v float64) {
	l.values[i] = v
	l.valid[i] = true
}

// SetMasked marks the pixel invalid.
func (l *Layer) SetMasked(i int) {
	l.values[i] = 0
	l.valid[i] = false
}

// CountValid returns the number of unmasked pixels.
func (l *Layer) CountValid() int {
	n := 0
	for _, ok := range l.valid {
		if ok {
			n++
		}
	}
	return n
}

// MeanValid returns the mean over unmasked pixels, and false when every
// pixel is masked.
func (l *Layer) MeanValid() (float64, bool) {
	sum, n := 0.0, 0
	for i, ok := range l.valid {
		if ok {
			sum += l.values[i]
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}

// Clone returns a deep copy sharing the grid.
func (l *Layer) Clone() *Layer {
	out := NewMaskedLayer(l.grid, l.band, l.at)
	copy(out.values, l.values)
	copy(out.valid, l.valid)
	return out
}

// Rename returns a copy tagged with a different band name.
func (l *Layer) Rename(band string) *Layer {
	out := l.Clone()
	out.band = band
	return out
}

// Retag returns a copy tagged with a different timestamp.
func (l *Layer) Retag(at time.Time) *Layer {
	out := l.Clone()
	out.at = at
	return out
}

// Map applies f to every valid pixel, returning a new layer. Masked pixels
// stay masked; f results that are non-finite become masked.
func (l *Layer) Map(f func(float64) float64) *Layer {
	out := NewMaskedLayer(l.grid, l.band, l.at)
	for i, ok := range l.valid {
		if !ok {
			continue
		}
		v := f(l.values[i])
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		out.Set(i, v)
	}
	return out
}
