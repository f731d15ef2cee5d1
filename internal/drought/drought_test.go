package drought

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geoandina/droughtfire/internal/raster"
)

func testGrid(t *testing.T) *raster.Grid {
	t.Helper()
	g, err := raster.NewGrid(2, 2, [6]float64{-75, 1, 0, 6, 0, -1}, "EPSG:4326", nil)
	require.NoError(t, err)
	return g
}

func month(y int, m time.Month) time.Time {
	return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
}

func constLayer(g *raster.Grid, band string, at time.Time, v float64) *raster.Layer {
	l := raster.NewMaskedLayer(g, band, at)
	for i := 0; i < l.Len(); i++ {
		l.Set(i, v)
	}
	return l
}

// constParams builds a parameter set with the same xi/alpha/kappa everywhere,
// for all twelve months.
func constParams(t *testing.T, g *raster.Grid, xi, alpha, kappa float64) *CalibratedParameterSet {
	t.Helper()
	var months [12]ParamTriple
	for i := range months {
		months[i] = ParamTriple{
			Xi:    constLayer(g, "xi", time.Time{}, xi),
			Alpha: constLayer(g, "alpha", time.Time{}, alpha),
			Kappa: constLayer(g, "kappa", time.Time{}, kappa),
		}
	}
	set, err := NewCalibratedParameterSet(months)
	require.NoError(t, err)
	return set
}

func TestBalance(t *testing.T) {
	g := testGrid(t)

	t.Run("subtracts matching month PET", func(t *testing.T) {
		p := raster.NewTimeSeries("precipitation")
		require.NoError(t, p.Add(constLayer(g, "precipitation", month(2023, time.July), 100)))
		pet := raster.NewTimeSeries("pet")
		require.NoError(t, pet.Add(constLayer(g, "pet", month(2023, time.July), 80)))

		d := Balance(p, pet)

		require.Equal(t, 1, d.Len())
		v, ok := d.At(0).At(0)
		require.True(t, ok)
		assert.Equal(t, 20.0, v)
	})

	t.Run("absent PET month falls back to zero", func(t *testing.T) {
		p := raster.NewTimeSeries("precipitation")
		require.NoError(t, p.Add(constLayer(g, "precipitation", month(2023, time.July), 100)))
		pet := raster.NewTimeSeries("pet")

		d := Balance(p, pet)

		v, ok := d.At(0).At(0)
		require.True(t, ok)
		assert.Equal(t, 100.0, v)
	})

	t.Run("masked PET pixel does not erase valid P", func(t *testing.T) {
		p := raster.NewTimeSeries("precipitation")
		require.NoError(t, p.Add(constLayer(g, "precipitation", month(2023, time.July), 100)))

		petLayer := constLayer(g, "pet", month(2023, time.July), 80)
		petLayer.SetMasked(1)
		pet := raster.NewTimeSeries("pet")
		require.NoError(t, pet.Add(petLayer))

		d := Balance(p, pet)

		v, ok := d.At(0).At(1)
		require.True(t, ok)
		assert.Equal(t, 100.0, v)
	})

	t.Run("masked P pixel stays masked", func(t *testing.T) {
		pLayer := constLayer(g, "precipitation", month(2023, time.July), 100)
		pLayer.SetMasked(2)
		p := raster.NewTimeSeries("precipitation")
		require.NoError(t, p.Add(pLayer))
		pet := raster.NewTimeSeries("pet")

		d := Balance(p, pet)
		assert.False(t, d.At(0).Valid(2))
	})
}

func TestRollingAccumulate(t *testing.T) {
	g := testGrid(t)

	series := func(n int) *raster.TimeSeries {
		s := raster.NewTimeSeries(BalanceBand)
		for i := 0; i < n; i++ {
			require.NoError(t, s.Add(constLayer(g, BalanceBand, month(2023, time.Month(i+1)), float64(i+1))))
		}
		return s
	}

	t.Run("two months with k=3 is empty", func(t *testing.T) {
		out := RollingAccumulate(series(2), 3)
		assert.True(t, out.Empty())
	})

	t.Run("three months with k=3 is one elementwise sum", func(t *testing.T) {
		out := RollingAccumulate(series(3), 3)

		require.Equal(t, 1, out.Len())
		assert.Equal(t, month(2023, time.March), out.At(0).Time())
		v, ok := out.At(0).At(0)
		require.True(t, ok)
		assert.Equal(t, 6.0, v) // 1+2+3
	})

	t.Run("windows slide and keep last-element timestamps", func(t *testing.T) {
		out := RollingAccumulate(series(5), 3)

		require.Equal(t, 3, out.Len())
		assert.Equal(t, month(2023, time.March), out.At(0).Time())
		assert.Equal(t, month(2023, time.May), out.At(2).Time())
		v, _ := out.At(2).At(0)
		assert.Equal(t, 12.0, v) // 3+4+5
	})

	t.Run("masked month masks the whole window pixel", func(t *testing.T) {
		s := series(3)
		s.At(1).SetMasked(0)

		out := RollingAccumulate(s, 3)
		assert.False(t, out.At(0).Valid(0))
		assert.True(t, out.At(0).Valid(1))
	})
}

func TestNewCalibratedParameterSet(t *testing.T) {
	g := testGrid(t)

	t.Run("missing layer is a structural error", func(t *testing.T) {
		var months [12]ParamTriple
		for i := range months {
			months[i] = ParamTriple{
				Xi:    constLayer(g, "xi", time.Time{}, 0),
				Alpha: constLayer(g, "alpha", time.Time{}, 1),
				Kappa: constLayer(g, "kappa", time.Time{}, 0),
			}
		}
		months[7].Kappa = nil

		_, err := NewCalibratedParameterSet(months)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "month 8")
	})

	t.Run("month lookup is a direct index", func(t *testing.T) {
		set := constParams(t, g, 60, 10, 0)
		tr := set.Month(time.January)
		v, ok := tr.Xi.At(0)
		require.True(t, ok)
		assert.Equal(t, 60.0, v)
	})
}

func TestStandardize(t *testing.T) {
	g := testGrid(t)

	accSeries := func(v float64) *raster.TimeSeries {
		s := raster.NewTimeSeries(BalanceBand)
		require.NoError(t, s.Add(constLayer(g, BalanceBand, month(2023, time.July), v)))
		return s
	}

	t.Run("balance at the location parameter scores zero", func(t *testing.T) {
		params := constParams(t, g, 60, 10, 0)
		out := Standardize(accSeries(60), params)

		require.Equal(t, 1, out.Len())
		v, ok := out.At(0).At(0)
		require.True(t, ok)
		assert.InDelta(t, 0.0, v, 4.5e-4)
	})

	t.Run("kappa zero matches the closed-form logistic transform", func(t *testing.T) {
		// D=80, xi=60, alpha=10: u=2, logistic CDF F=1/(1+e^-2),
		// exceedance P=1-F, score = -Phi^-1(P)... computed via the same
		// A&S approximation the operational thresholds were calibrated on.
		params := constParams(t, g, 60, 10, 0)
		out := Standardize(accSeries(80), params)

		v, ok := out.At(0).At(0)
		require.True(t, ok)

		f := 1 / (1 + math.Exp(-2.0))
		p := 1 - f
		tt := math.Sqrt(-2 * math.Log(p))
		want := tt - (2.515517+tt*(0.802853+tt*0.010328))/(1+tt*(1.432788+tt*(0.189269+tt*0.001308)))
		assert.InDelta(t, want, v, 4.5e-4)
	})

	t.Run("dry anomaly scores negative, wet positive", func(t *testing.T) {
		params := constParams(t, g, 60, 10, 0)

		dry, ok := Standardize(accSeries(20), params).At(0).At(0)
		require.True(t, ok)
		assert.Negative(t, dry)

		wet, ok := Standardize(accSeries(100), params).At(0).At(0)
		require.True(t, ok)
		assert.Positive(t, wet)
	})

	t.Run("non-zero kappa stays finite at the distribution pole", func(t *testing.T) {
		// kappa=0.5 puts the pole at u=2; beyond it the floored base must
		// still yield a finite clamped score.
		params := constParams(t, g, 60, 10, 0.5)
		out := Standardize(accSeries(200), params)

		v, ok := out.At(0).At(0)
		require.True(t, ok)
		assert.False(t, math.IsNaN(v))
		assert.False(t, math.IsInf(v, 0))
	})

	t.Run("masked parameters mask the output pixel", func(t *testing.T) {
		params := constParams(t, g, 60, 10, 0)
		params.Month(time.July).Alpha.SetMasked(3)

		out := Standardize(accSeries(60), params)
		assert.False(t, out.At(0).Valid(3))
		assert.True(t, out.At(0).Valid(0))
	})

	t.Run("masked balance masks the output pixel", func(t *testing.T) {
		params := constParams(t, g, 60, 10, 0)
		acc := accSeries(60)
		acc.At(0).SetMasked(2)

		out := Standardize(acc, params)
		assert.False(t, out.At(0).Valid(2))
	})

	t.Run("twelve months of steady surplus score zero everywhere", func(t *testing.T) {
		// The end-to-end scenario: P=100, PET=80 every month, xi=60,
		// alpha=10, kappa=0. Every 3-month accumulation is 60, u=0, so the
		// standardized score is 0 for every window from month 3 onward.
		p := raster.NewTimeSeries("precipitation")
		pet := raster.NewTimeSeries("pet")
		for m := time.January; m <= time.December; m++ {
			require.NoError(t, p.Add(constLayer(g, "precipitation", month(2023, m), 100)))
			require.NoError(t, pet.Add(constLayer(g, "pet", month(2023, m), 80)))
		}

		acc := RollingAccumulate(Balance(p, pet), 3)
		require.Equal(t, 10, acc.Len())
		for i := 0; i < acc.Len(); i++ {
			d3, ok := acc.At(i).At(0)
			require.True(t, ok)
			assert.Equal(t, 60.0, d3)
		}

		idx := Standardize(acc, constParams(t, g, 60, 10, 0))
		for i := 0; i < idx.Len(); i++ {
			v, ok := idx.At(i).At(0)
			require.True(t, ok)
			assert.InDelta(t, 0.0, v, 4.5e-4, "window %d", i)
		}
	})
}
