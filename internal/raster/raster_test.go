package raster

import (
	"math"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testDate = time.Date(2023, time.July, 15, 0, 0, 0, 0, time.UTC)

// testGrid is a 4x4 grid with 1-degree pixels anchored at (-75, 6), no region.
func testGrid(t *testing.T) *Grid {
	t.Helper()
	g, err := NewGrid(4, 4, [6]float64{-75, 1, 0, 6, 0, -1}, "EPSG:4326", nil)
	require.NoError(t, err)
	return g
}

func TestNewGrid(t *testing.T) {
	t.Run("rejects non-positive dimensions", func(t *testing.T) {
		_, err := NewGrid(0, 4, [6]float64{0, 1, 0, 0, 0, -1}, "EPSG:4326", nil)
		require.Error(t, err)
	})

	t.Run("rejects zero pixel size", func(t *testing.T) {
		_, err := NewGrid(4, 4, [6]float64{0, 0, 0, 0, 0, -1}, "EPSG:4326", nil)
		require.Error(t, err)
	})

	t.Run("cell centers", func(t *testing.T) {
		g := testGrid(t)
		x, y := g.CellCenter(0, 0)
		assert.Equal(t, -74.5, x)
		assert.Equal(t, 5.5, y)
		x, y = g.CellCenter(3, 3)
		assert.Equal(t, -71.5, x)
		assert.Equal(t, 2.5, y)
	})
}

func TestFromSentinel(t *testing.T) {
	g := testGrid(t)
	values := make([]float64, g.Size())
	for i := range values {
		values[i] = float64(i)
	}
	values[3] = -9999
	values[7] = math.NaN()
	values[11] = math.Inf(1)

	l, err := FromSentinel(g, "pet", testDate, values, -9999)
	require.NoError(t, err)

	for _, i := range []int{3, 7, 11} {
		_, ok := l.At(i)
		assert.False(t, ok, "pixel %d should be masked", i)
	}
	v, ok := l.At(5)
	require.True(t, ok)
	assert.Equal(t, 5.0, v)
	assert.Equal(t, g.Size()-3, l.CountValid())
}

func TestNewLayer_SizeMismatch(t *testing.T) {
	g := testGrid(t)
	_, err := NewLayer(g, "ndvi", testDate, make([]float64, 3))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ndvi")
}

func TestLayerMap(t *testing.T) {
	g := testGrid(t)
	l := NewMaskedLayer(g, "lst", testDate)
	l.Set(0, 15000) // raw MODIS LST
	l.Set(1, 0)

	scaled := l.Map(func(v float64) float64 { return v*0.02 - 273.15 })

	v, ok := scaled.At(0)
	require.True(t, ok)
	assert.InDelta(t, 26.85, v, 1e-9)

	t.Run("masked stays masked", func(t *testing.T) {
		_, ok := scaled.At(2)
		assert.False(t, ok)
	})

	t.Run("non-finite result is masked", func(t *testing.T) {
		div := l.Map(func(v float64) float64 { return 1 / v })
		_, ok := div.At(1)
		assert.False(t, ok)
	})
}

func TestGridClip(t *testing.T) {
	// Region covering the western half of the grid: x in [-75, -73].
	region := orb.MultiPolygon{{{{-75, 6}, {-73, 6}, {-73, 2}, {-75, 2}, {-75, 6}}}}
	g, err := NewGrid(4, 4, [6]float64{-75, 1, 0, 6, 0, -1}, "EPSG:4326", region)
	require.NoError(t, err)

	l := NewMaskedLayer(g, "fdci", testDate)
	for i := 0; i < g.Size(); i++ {
		l.Set(i, 1)
	}

	clipped := g.Clip(l)

	// Columns 0-1 inside, columns 2-3 outside.
	for row := 0; row < 4; row++ {
		assert.True(t, clipped.Valid(row*4+0))
		assert.True(t, clipped.Valid(row*4+1))
		assert.False(t, clipped.Valid(row*4+2))
		assert.False(t, clipped.Valid(row*4+3))
	}

	t.Run("no region is a no-op", func(t *testing.T) {
		g := testGrid(t)
		l := NewMaskedLayer(g, "fdci", testDate)
		l.Set(5, 2)
		out := g.Clip(l)
		assert.Equal(t, l.CountValid(), out.CountValid())
	})
}

func TestTimeSeries(t *testing.T) {
	g := testGrid(t)
	s := NewTimeSeries("precipitation")

	mk := func(day int) *Layer {
		return NewMaskedLayer(g, "precipitation", testDate.AddDate(0, 0, day))
	}

	// Insert out of order; chronological order is the contract.
	require.NoError(t, s.Add(mk(5)))
	require.NoError(t, s.Add(mk(1)))
	require.NoError(t, s.Add(mk(3)))

	require.Equal(t, 3, s.Len())
	assert.True(t, s.At(0).Time().Before(s.At(1).Time()))
	assert.True(t, s.At(1).Time().Before(s.At(2).Time()))
	assert.Equal(t, testDate.AddDate(0, 0, 5), s.Last().Time())

	t.Run("band mismatch", func(t *testing.T) {
		err := s.Add(NewMaskedLayer(g, "pet", testDate))
		require.Error(t, err)
	})

	t.Run("window is inclusive", func(t *testing.T) {
		got := s.Window(testDate.AddDate(0, 0, 1), testDate.AddDate(0, 0, 3))
		require.Len(t, got, 2)
		assert.Equal(t, testDate.AddDate(0, 0, 1), got[0].Time())
		assert.Equal(t, testDate.AddDate(0, 0, 3), got[1].Time())
	})

	t.Run("empty window", func(t *testing.T) {
		got := s.Window(testDate.AddDate(0, 1, 0), testDate.AddDate(0, 2, 0))
		assert.Empty(t, got)
	})
}
