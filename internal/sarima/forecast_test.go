package sarima

import (
	"math"
	"testing"

	"github.com/sartorproj/goarima/timeseries"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPredictRequiresFit(t *testing.T) {
	m := New(Order{P: 1})
	_, err := m.Predict(3)
	assert.Error(t, err)
}

func TestPredictWithIntervalValidatesSteps(t *testing.T) {
	m := New(Order{P: 1})
	require.NoError(t, m.Fit(ar1Series(40)))

	_, _, _, err := m.PredictWithInterval(0, 0.05)
	assert.Error(t, err)
}

func TestPredictWithIntervalOrdering(t *testing.T) {
	m := New(Order{P: 1, D: 1})
	require.NoError(t, m.Fit(ar1Series(40)))

	point, lower, upper, err := m.PredictWithInterval(6, 0.05)
	require.NoError(t, err)
	require.Len(t, point, 6)
	require.Len(t, lower, 6)
	require.Len(t, upper, 6)

	for h := 0; h < 6; h++ {
		assert.LessOrEqual(t, lower[h], point[h], "horizon %d", h)
		assert.GreaterOrEqual(t, upper[h], point[h], "horizon %d", h)
	}
}

func TestIntervalWidthNeverShrinks(t *testing.T) {
	for _, order := range []Order{
		{},
		{P: 1},
		{P: 1, D: 1, Q: 1},
		{P: 2, D: 1},
	} {
		m := New(order)
		require.NoError(t, m.Fit(ar1Series(48)), "order %s", order)

		_, lower, upper, err := m.PredictWithInterval(12, 0.05)
		require.NoError(t, err)

		prev := -1.0
		for h := 0; h < 12; h++ {
			width := upper[h] - lower[h]
			assert.GreaterOrEqual(t, width+1e-9, prev, "order %s horizon %d", order, h)
			prev = width
		}
	}
}

func TestWiderIntervalAtLowerAlpha(t *testing.T) {
	m := New(Order{P: 1})
	require.NoError(t, m.Fit(ar1Series(40)))

	_, lo95, hi95, err := m.PredictWithInterval(3, 0.05)
	require.NoError(t, err)
	_, lo80, hi80, err := m.PredictWithInterval(3, 0.20)
	require.NoError(t, err)

	for h := 0; h < 3; h++ {
		assert.GreaterOrEqual(t, hi95[h]-lo95[h], hi80[h]-lo80[h], "horizon %d", h)
	}
}

func TestPredictIntegratesTrend(t *testing.T) {
	// a clean linear trend fitted with one difference should keep climbing
	values := make([]float64, 30)
	for i := range values {
		values[i] = 100 + 10*float64(i)
	}
	m := New(Order{D: 1})
	require.NoError(t, m.Fit(timeseries.New(values)))

	point, err := m.Predict(4)
	require.NoError(t, err)
	last := values[len(values)-1]
	for h := 0; h < 4; h++ {
		assert.Greater(t, point[h], last, "horizon %d", h)
		last = point[h]
	}
}

func TestNormalQuantile(t *testing.T) {
	assert.InDelta(t, 1.6449, normalQuantile(0.95), 0.01)
	assert.InDelta(t, 1.9600, normalQuantile(0.975), 0.01)
	assert.InDelta(t, -1.9600, normalQuantile(0.025), 0.01)
	assert.InDelta(t, 0, normalQuantile(0.5), 0.02)
}

func TestForecastStdErrFinite(t *testing.T) {
	m := New(Order{P: 1, Q: 1})
	require.NoError(t, m.Fit(ar1Series(36)))

	se := m.forecastStdErr(12)
	for h, v := range se {
		assert.False(t, math.IsNaN(v) || math.IsInf(v, 0), "horizon %d", h)
		assert.GreaterOrEqual(t, v, 0.0)
	}
}
