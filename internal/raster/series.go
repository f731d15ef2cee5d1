package raster

import (
	"fmt"
	"sort"
	"time"
)

// TimeSeries is an ordered sequence of layers sharing a band identity,
// sorted ascending by timestamp. Insertion order carries no meaning;
// chronological order is the contract consumers rely on.
type TimeSeries struct {
	band   string
	layers []*Layer
}

// NewTimeSeries creates an empty series for the given band.
func NewTimeSeries(band string) *TimeSeries {
	return &TimeSeries{band: band}
}

func (s *TimeSeries) Band() string { return s.band }

func (s *TimeSeries) Len() int { return len(s.layers) }

func (s *TimeSeries) Empty() bool { return len(s.layers) == 0 }

// At returns the i-th layer in chronological order.
func (s *TimeSeries) At(i int) *Layer { return s.layers[i] }

// Last returns the most recent layer, or nil for an empty series.
func (s *TimeSeries) Last() *Layer {
	if len(s.layers) == 0 {
		return nil
	}
	return s.layers[len(s.layers)-1]
}

// Add inserts a layer, keeping the series sorted ascending by timestamp.
func (s *TimeSeries) Add(l *Layer) error {
	if l.Band() != s.band {
		return fmt.Errorf("band mismatch: series %q, layer %q", s.band, l.Band())
	}
	i := sort.Search(len(s.layers), func(i int) bool {
		return s.layers[i].Time().After(l.Time())
	})
	s.layers = append(s.layers, nil)
	copy(s.layers[i+1:], s.layers[i:])
	s.layers[i] = l
	return nil
}

// Window returns the layers with timestamps in [from, to] inclusive, in
// chronological order. An empty result is normal, not an error.
func (s *TimeSeries) Window(from, to time.Time) []*Layer {
	var out []*Layer
	for _, l := range s.layers {
		t := l.Time()
		if t.Before(from) || t.After(to) {
			continue
		}
		out = append(out, l)
	}
	return out
}
