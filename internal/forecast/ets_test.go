package forecast

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFitETSRejectsShortSeries(t *testing.T) {
	_, err := fitETS(seasonalValues(11))
	require.Error(t, err)

	var insufficient *InsufficientDataError
	require.True(t, errors.As(err, &insufficient))
	assert.Equal(t, etsMinObs, insufficient.Need)
}

func TestFitETSFallsBackWithoutTwoSeasons(t *testing.T) {
	// 12..23 observations cannot initialize the seasonal component and must
	// fall back to the trend-only fit
	m, err := fitETS(seasonalValues(16))
	require.NoError(t, err)
	assert.False(t, m.Seasonal())
}

func TestFitETSSeasonalWithTwoCycles(t *testing.T) {
	m, err := fitETS(seasonalValues(30))
	require.NoError(t, err)
	assert.True(t, m.Seasonal())
	assert.Len(t, m.seasonal, seasonalPeriod)
}

func TestETSForecastTracksTrend(t *testing.T) {
	// 23 observations: trend-only fit on a perfect linear series
	values := make([]float64, 23)
	for i := range values {
		values[i] = 100 + 10*float64(i)
	}
	m, err := fitETS(values)
	require.NoError(t, err)
	require.False(t, m.Seasonal())

	out := m.forecast(4)
	require.Len(t, out, 4)
	for h := 1; h < 4; h++ {
		assert.Greater(t, out[h], out[h-1])
	}
	assert.InDelta(t, 330, out[0], 30) // continuation of the 10/month trend
}

func TestETSForecastWithBandOrdering(t *testing.T) {
	m, err := fitETS(seasonalValues(30))
	require.NoError(t, err)

	point, lower, upper := m.forecastWithBand(6)
	for h := 0; h < 6; h++ {
		assert.LessOrEqual(t, lower[h], point[h], "horizon %d", h)
		assert.GreaterOrEqual(t, upper[h], point[h], "horizon %d", h)
	}
}

func TestETSBandFallbackOnZeroResiduals(t *testing.T) {
	// a perfect linear series leaves residSD near zero after burn-in; bands
	// must still be non-degenerate via the fractional fallback
	m := &ETSModel{level: 100, trend: 10, residSD: 0, nobs: 24}
	point, lower, upper := m.forecastWithBand(3)
	for h := 0; h < 3; h++ {
		expectedBand := etsFallbackBandFrac * math.Abs(point[h])
		assert.InDelta(t, point[h]-expectedBand, lower[h], 1e-9)
		assert.InDelta(t, point[h]+expectedBand, upper[h], 1e-9)
	}
}
