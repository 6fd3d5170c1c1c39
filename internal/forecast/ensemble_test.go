package forecast

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsembleRequiresFit(t *testing.T) {
	f := NewForecaster(seasonalTestSeries(30), quietLogger())
	_, err := f.ForecastEnsemble(6, 0.10)
	assert.ErrorIs(t, err, ErrNotFitted)
}

func TestEnsembleBoundsEnvelopePoints(t *testing.T) {
	f := NewForecaster(seasonalTestSeries(30), quietLogger())
	require.NoError(t, f.Fit())

	res, err := f.ForecastEnsemble(6, 0.10)
	require.NoError(t, err)
	assert.Equal(t, MethodEnsemble, res.Method)

	for _, cat := range Categories {
		points := res.Points[cat]
		require.Len(t, points, 6, "category %s", cat)
		for h := 0; h < 6; h++ {
			assert.LessOrEqual(t, res.Lower[cat][h], points[h], "category %s horizon %d", cat, h)
			assert.GreaterOrEqual(t, res.Upper[cat][h], points[h], "category %s horizon %d", cat, h)
		}
	}
}

func TestEnsembleBoundsAtLeastAsWideAsGrid(t *testing.T) {
	f := NewForecaster(seasonalTestSeries(30), quietLogger())
	require.NoError(t, f.Fit())

	grid, err := f.forecastGrid(6, 0.10)
	require.NoError(t, err)
	ens, err := f.ForecastEnsemble(6, 0.10)
	require.NoError(t, err)

	for _, cat := range Categories {
		for h := 0; h < 6; h++ {
			assert.LessOrEqual(t, ens.Lower[cat][h], grid.Lower[cat][h], "category %s horizon %d", cat, h)
			assert.GreaterOrEqual(t, ens.Upper[cat][h], grid.Upper[cat][h], "category %s horizon %d", cat, h)
		}
	}
}

func TestEnsembleFallsBackWhenSmoothingUnavailable(t *testing.T) {
	// 8 months is below the smoothing minimum; the ensemble must degrade to
	// the grid-search forecast instead of failing
	f := NewForecaster(seasonalTestSeries(8), quietLogger())
	require.NoError(t, f.Fit())

	grid, err := f.forecastGrid(4, 0.10)
	require.NoError(t, err)
	ens, err := f.ForecastEnsemble(4, 0.10)
	require.NoError(t, err)

	for _, cat := range Categories {
		assert.Equal(t, grid.Points[cat], ens.Points[cat], "category %s", cat)
		assert.Equal(t, grid.Lower[cat], ens.Lower[cat], "category %s", cat)
		assert.Equal(t, grid.Upper[cat], ens.Upper[cat], "category %s", cat)
	}
}

func TestCombineEnsembleAveragesPoints(t *testing.T) {
	base := &ForecastResult{
		Dates:     seasonalTestSeries(12).FutureMonths(2),
		Points:    map[Category][]float64{},
		Lower:     map[Category][]float64{},
		Upper:     map[Category][]float64{},
		Method:    MethodSARIMAGrid,
		Summaries: map[Category]ModelSummary{},
	}
	for _, cat := range Categories {
		base.Points[cat] = []float64{100, 110}
		base.Lower[cat] = []float64{90, 95}
		base.Upper[cat] = []float64{110, 125}
		base.Summaries[cat] = ModelSummary{Strategy: MethodSARIMAGrid, Order: "(1,0,0)"}
	}

	// a deterministic smoothing model: flat level 200, no trend
	ets := map[Category]*ETSModel{
		Income: {level: 200, trend: 0, residSD: 1, nobs: 12},
	}

	out := combineEnsemble(base, ets)
	assert.Equal(t, []float64{150, 155}, out.Points[Income])
	// the other categories pass through untouched
	assert.Equal(t, []float64{100, 110}, out.Points[Expenses])
	assert.Equal(t, MethodEnsemble, out.Summaries[Income].Strategy)
	assert.Equal(t, MethodSARIMAGrid, out.Summaries[Expenses].Strategy)
}
