package forecast

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMAPE(t *testing.T) {
	assert.InDelta(t, 10.0, MAPE([]float64{100, 100}, []float64{90, 110}), 1e-9)
	assert.InDelta(t, 0.0, MAPE([]float64{50, 60}, []float64{50, 60}), 1e-9)

	// zero actuals are skipped, not divided by
	assert.InDelta(t, 10.0, MAPE([]float64{0, 100}, []float64{123, 90}), 1e-9)

	// all-zero actuals score the defined constant instead of NaN
	assert.Equal(t, 100.0, MAPE([]float64{0, 0}, []float64{1, 2}))

	// negative actuals score on magnitude
	assert.InDelta(t, 10.0, MAPE([]float64{-100}, []float64{-110}), 1e-9)
}

func TestBacktestRequiresHistory(t *testing.T) {
	f := NewForecaster(nil, quietLogger())
	_, err := f.RunRollingBacktest(BacktestConfig{TestPeriods: 3, NumSplits: 2})
	assert.ErrorIs(t, err, ErrNoHistory)
}

func TestBacktestValidatesConfig(t *testing.T) {
	f := NewForecaster(seasonalTestSeries(30), quietLogger())

	_, err := f.RunRollingBacktest(BacktestConfig{TestPeriods: 0, NumSplits: 2})
	assert.Error(t, err)
	_, err = f.RunRollingBacktest(BacktestConfig{TestPeriods: 3, NumSplits: 0})
	assert.Error(t, err)
}

func TestBacktestInsufficientHistory(t *testing.T) {
	// 14 months cannot host a 12-month training window plus 6 test periods
	f := NewForecaster(seasonalTestSeries(14), quietLogger())
	_, err := f.RunRollingBacktest(BacktestConfig{TestPeriods: 6, NumSplits: 2})
	require.Error(t, err)

	var insufficient *InsufficientDataError
	require.True(t, errors.As(err, &insufficient))
	assert.Equal(t, 14, insufficient.Have)
	assert.Equal(t, 18, insufficient.Need)
}

func TestBacktestExactBoundary(t *testing.T) {
	// 30 months, 6 test periods, 3 splits: the last split trains on 14
	// months and tests on [14, 20), well inside the history
	f := NewForecaster(seasonalTestSeries(30), quietLogger())
	rep, err := f.RunRollingBacktest(BacktestConfig{
		TestPeriods: 6,
		NumSplits:   3,
		Methods:     []BacktestMethod{BacktestSARIMA},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, rep.CompletedSplits)
	assert.Equal(t, 3, rep.RequestedSplits)
}

func TestBacktestEarlyStop(t *testing.T) {
	// 20 months, 6 test periods: splits 0..2 end at 18, 19, 20; split 3
	// would need month 21 and must stop early with a warning, not an error
	f := NewForecaster(seasonalTestSeries(20), quietLogger())
	rep, err := f.RunRollingBacktest(BacktestConfig{
		TestPeriods: 6,
		NumSplits:   5,
		Methods:     []BacktestMethod{BacktestSARIMA},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, rep.CompletedSplits)
	assert.Equal(t, 5, rep.RequestedSplits)
}

func TestBacktestDefaultMethods(t *testing.T) {
	f := NewForecaster(seasonalTestSeries(24), quietLogger())
	rep, err := f.RunRollingBacktest(BacktestConfig{TestPeriods: 3, NumSplits: 2})
	require.NoError(t, err)

	methods := make(map[BacktestMethod]bool)
	for _, r := range rep.Results {
		methods[r.Method] = true
	}
	assert.True(t, methods[BacktestSARIMA])
	assert.True(t, methods[BacktestEnsemble])
}

func TestBacktestRankingAscending(t *testing.T) {
	f := NewForecaster(seasonalTestSeries(30), quietLogger())
	rep, err := f.RunRollingBacktest(BacktestConfig{
		TestPeriods: 3,
		NumSplits:   3,
		Methods:     []BacktestMethod{BacktestSARIMA, BacktestETS, BacktestEnsemble},
	})
	require.NoError(t, err)
	require.Len(t, rep.Ranking, 3)

	for i := 1; i < len(rep.Results); i++ {
		a, b := rep.Results[i-1].OverallMAPE, rep.Results[i].OverallMAPE
		if math.IsInf(b, 1) {
			continue // infinite methods rank last
		}
		assert.LessOrEqual(t, a, b, "rank %d", i)
	}
	assert.Equal(t, rep.Results[0].Method, rep.Ranking[0])
}

func TestBacktestStatsAndImprovement(t *testing.T) {
	f := NewForecaster(seasonalTestSeries(30), quietLogger())
	rep, err := f.RunRollingBacktest(BacktestConfig{
		TestPeriods: 3,
		NumSplits:   3,
		Methods:     []BacktestMethod{BacktestSARIMA, BacktestETS},
	})
	require.NoError(t, err)

	for _, r := range rep.Results {
		if math.IsInf(r.OverallMAPE, 1) {
			continue
		}
		for cat, stats := range r.Stats {
			assert.LessOrEqual(t, stats.Min, stats.Median, "method %s category %s", r.Method, cat)
			assert.LessOrEqual(t, stats.Median, stats.Max, "method %s category %s", r.Method, cat)
			assert.LessOrEqual(t, stats.Q25, stats.Q75, "method %s category %s", r.Method, cat)
			assert.GreaterOrEqual(t, stats.Std, 0.0, "method %s category %s", r.Method, cat)
		}
	}

	// improvement entries exist only between finitely scored methods, and
	// the better method improves on the worse by a non-negative margin
	best := rep.Results[0]
	if !math.IsInf(best.OverallMAPE, 1) {
		for other, pct := range rep.Improvement[best.Method] {
			assert.GreaterOrEqual(t, pct, 0.0, "vs %s", other)
		}
	}
}

func TestBacktestDoesNotMutateForecaster(t *testing.T) {
	data := seasonalTestSeries(30)
	f := NewForecaster(data, quietLogger())
	require.NoError(t, f.Fit())

	before, err := f.Forecast(3, 0.10)
	require.NoError(t, err)

	_, err = f.RunRollingBacktest(BacktestConfig{TestPeriods: 3, NumSplits: 3})
	require.NoError(t, err)

	// history length and a post-backtest forecast must match the pre-backtest run
	assert.Equal(t, 30, f.data.Len())
	after, err := f.Forecast(3, 0.10)
	require.NoError(t, err)
	assert.Equal(t, before.Method, after.Method)
	for _, cat := range Categories {
		assert.Equal(t, before.Points[cat], after.Points[cat], "category %s", cat)
	}
}
