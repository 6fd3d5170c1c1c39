package forecast

import (
	"fmt"
	"math"
	"sort"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// minTrainMonths is the smallest training window a rolling split may use.
const minTrainMonths = 12

// BacktestMethod names a forecasting method evaluated by the backtester.
type BacktestMethod string

const (
	BacktestSARIMA   BacktestMethod = "sarima"
	BacktestETS      BacktestMethod = "ets"
	BacktestEnsemble BacktestMethod = "ensemble"
)

// DefaultBacktestMethods are used when the caller passes none.
var DefaultBacktestMethods = []BacktestMethod{BacktestSARIMA, BacktestEnsemble}

// BacktestConfig parameterizes one rolling-origin run.
type BacktestConfig struct {
	TestPeriods int
	NumSplits   int
	Methods     []BacktestMethod
}

// SeriesStats are descriptive statistics of per-split MAPE for one series.
type SeriesStats struct {
	Mean   float64 `json:"mean"`
	Std    float64 `json:"std"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Median float64 `json:"median"`
	Q25    float64 `json:"q25"`
	Q75    float64 `json:"q75"`
	Splits int     `json:"splits"`
}

// MethodResult aggregates one method's scores across all completed splits.
type MethodResult struct {
	Method           BacktestMethod
	SplitMAPE        map[Category][]float64
	MeanMAPE         map[Category]float64
	Stats            map[Category]SeriesStats
	OverallMAPE      float64
	SuccessfulSplits int
}

// BacktestReport is the outcome of a rolling-origin backtest: per-method
// aggregates ranked ascending by overall MAPE, plus a pairwise improvement
// matrix over the methods that scored.
type BacktestReport struct {
	RequestedSplits int
	CompletedSplits int
	TestPeriods     int
	Results         []MethodResult
	Ranking         []BacktestMethod
	// Improvement[a][b] is the percentage by which method a's overall MAPE
	// improves on method b's.
	Improvement map[BacktestMethod]map[BacktestMethod]float64
}

// MAPE computes the mean absolute percentage error over paired values,
// skipping periods where the actual is zero. When every actual is zero the
// result is defined as 100 rather than a division failure.
func MAPE(actual, forecast []float64) float64 {
	n := len(actual)
	if len(forecast) < n {
		n = len(forecast)
	}
	sum, count := 0.0, 0
	for i := 0; i < n; i++ {
		if actual[i] == 0 {
			continue
		}
		sum += math.Abs(actual[i]-forecast[i]) / math.Abs(actual[i])
		count++
	}
	if count == 0 {
		return 100.0
	}
	return sum / float64(count) * 100
}

// RunRollingBacktest re-fits every requested method on expanding training
// windows and scores each against the held-out horizon. The forecaster's
// own fitted models and series are never touched: every split works on
// read-only slices and throwaway fits, so state cannot leak into later
// calls.
func (f *Forecaster) RunRollingBacktest(cfg BacktestConfig) (*BacktestReport, error) {
	if f.data == nil || f.data.Len() == 0 {
		return nil, ErrNoHistory
	}
	if cfg.TestPeriods < 1 {
		return nil, fmt.Errorf("backtest requires at least 1 test period, got %d", cfg.TestPeriods)
	}
	if cfg.NumSplits < 1 {
		return nil, fmt.Errorf("backtest requires at least 1 split, got %d", cfg.NumSplits)
	}
	methods := cfg.Methods
	if len(methods) == 0 {
		methods = DefaultBacktestMethods
	}

	total := f.data.Len()
	minRequired := minTrainMonths + cfg.TestPeriods
	if total < minRequired {
		return nil, &InsufficientDataError{
			Op:   fmt.Sprintf("rolling backtest (%d splits, %d test periods)", cfg.NumSplits, cfg.TestPeriods),
			Have: total,
			Need: minRequired,
		}
	}

	perMethod := make(map[BacktestMethod]map[Category][]float64, len(methods))
	for _, m := range methods {
		perMethod[m] = make(map[Category][]float64, len(Categories))
	}

	completed := 0
	for i := 0; i < cfg.NumSplits; i++ {
		trainEnd := minTrainMonths + i
		testEnd := trainEnd + cfg.TestPeriods
		if testEnd > total {
			f.log.WithFields(logrus.Fields{
				"split":     i,
				"completed": completed,
				"requested": cfg.NumSplits,
			}).Warn("stopping backtest early: test window exceeds available history")
			break
		}
		train := f.data.slice(0, trainEnd)
		test := f.data.slice(trainEnd, testEnd)

		for _, method := range methods {
			scores := scoreMethodOnSplit(method, train, test, cfg.TestPeriods, f.log)
			for _, cat := range Categories {
				perMethod[method][cat] = append(perMethod[method][cat], scores[cat])
			}
		}
		completed++
	}

	report := &BacktestReport{
		RequestedSplits: cfg.NumSplits,
		CompletedSplits: completed,
		TestPeriods:     cfg.TestPeriods,
		Improvement:     make(map[BacktestMethod]map[BacktestMethod]float64),
	}
	for _, method := range methods {
		report.Results = append(report.Results, aggregateMethod(method, perMethod[method]))
	}

	sort.SliceStable(report.Results, func(a, b int) bool {
		return report.Results[a].OverallMAPE < report.Results[b].OverallMAPE
	})
	for _, r := range report.Results {
		report.Ranking = append(report.Ranking, r.Method)
	}

	for _, a := range report.Results {
		if math.IsInf(a.OverallMAPE, 1) {
			continue
		}
		row := make(map[BacktestMethod]float64)
		for _, b := range report.Results {
			if a.Method == b.Method || math.IsInf(b.OverallMAPE, 1) || b.OverallMAPE == 0 {
				continue
			}
			row[b.Method] = (b.OverallMAPE - a.OverallMAPE) / b.OverallMAPE * 100
		}
		report.Improvement[a.Method] = row
	}
	return report, nil
}

// scoreMethodOnSplit fits one method on the training slice and returns the
// per-series MAPE against the test slice. Any failure scores the whole
// split as infinity for this method; errors never abort the run.
func scoreMethodOnSplit(method BacktestMethod, train, test *Series, periods int, log logrus.FieldLogger) map[Category]float64 {
	scores := make(map[Category]float64, len(Categories))
	for _, cat := range Categories {
		scores[cat] = math.Inf(1)
	}

	forecasts, err := forecastSplit(method, train, periods)
	if err != nil {
		log.WithFields(logrus.Fields{"method": method, "train": train.Len()}).
			WithError(err).Warn("method failed on split")
		return scores
	}
	for _, cat := range Categories {
		point, ok := forecasts[cat]
		actual := test.Column(cat)
		if !ok || len(actual) == 0 {
			continue // stays infinite: series absent from forecast or test
		}
		scores[cat] = MAPE(actual, point)
	}
	return scores
}

// forecastSplit produces point forecasts per series for one method over a
// training slice.
func forecastSplit(method BacktestMethod, train *Series, periods int) (map[Category][]float64, error) {
	switch method {
	case BacktestSARIMA:
		return gridForecastAll(train, periods)
	case BacktestETS:
		out := make(map[Category][]float64, len(Categories))
		for _, cat := range Categories {
			m, err := fitETS(train.Column(cat))
			if err != nil {
				return nil, err
			}
			out[cat] = m.forecast(periods)
		}
		return out, nil
	case BacktestEnsemble:
		grid, err := gridForecastAll(train, periods)
		if err != nil {
			return nil, err
		}
		out := make(map[Category][]float64, len(Categories))
		for _, cat := range Categories {
			base := grid[cat]
			m, err := fitETS(train.Column(cat))
			if err != nil {
				out[cat] = base // smoothing unavailable, keep grid alone
				continue
			}
			etsPoint := m.forecast(periods)
			combined := make([]float64, periods)
			for h := 0; h < periods; h++ {
				combined[h] = (base[h] + etsPoint[h]) / 2
			}
			out[cat] = combined
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unknown backtest method %q", method)
	}
}

func gridForecastAll(train *Series, periods int) (map[Category][]float64, error) {
	out := make(map[Category][]float64, len(Categories))
	for _, cat := range Categories {
		g, err := fitGridSearch(train.Column(cat))
		if err != nil {
			return nil, err
		}
		point, err := g.Model.Predict(periods)
		if err != nil {
			return nil, err
		}
		out[cat] = point
	}
	return out, nil
}

// aggregateMethod reduces per-split scores to per-series means, descriptive
// statistics, and the overall MAPE. Infinite scores are excluded from the
// valid-MAPE averages; a series with no finite score stays infinite, and a
// method with no finite series is ranked last with an infinite overall.
func aggregateMethod(method BacktestMethod, splits map[Category][]float64) MethodResult {
	result := MethodResult{
		Method:    method,
		SplitMAPE: splits,
		MeanMAPE:  make(map[Category]float64, len(Categories)),
		Stats:     make(map[Category]SeriesStats, len(Categories)),
	}

	successful := 0
	if scores := splits[Income]; len(scores) > 0 {
		for i := range scores {
			finiteSplit := false
			for _, cat := range Categories {
				if !math.IsInf(splits[cat][i], 1) {
					finiteSplit = true
					break
				}
			}
			if finiteSplit {
				successful++
			}
		}
	}
	result.SuccessfulSplits = successful

	var overallSum float64
	var overallCount int
	for _, cat := range Categories {
		finite := make([]float64, 0, len(splits[cat]))
		for _, v := range splits[cat] {
			if !math.IsInf(v, 1) && !math.IsNaN(v) {
				finite = append(finite, v)
			}
		}
		if len(finite) == 0 {
			result.MeanMAPE[cat] = math.Inf(1)
			continue
		}

		mean := stat.Mean(finite, nil)
		result.MeanMAPE[cat] = mean
		overallSum += mean
		overallCount++

		sorted := append([]float64(nil), finite...)
		sort.Float64s(sorted)
		std := 0.0
		if len(finite) > 1 {
			std = stat.StdDev(finite, nil)
		}
		result.Stats[cat] = SeriesStats{
			Mean:   mean,
			Std:    std,
			Min:    floats.Min(sorted),
			Max:    floats.Max(sorted),
			Median: stat.Quantile(0.5, stat.Empirical, sorted, nil),
			Q25:    stat.Quantile(0.25, stat.Empirical, sorted, nil),
			Q75:    stat.Quantile(0.75, stat.Empirical, sorted, nil),
			Splits: len(finite),
		}
	}
	if overallCount == 0 {
		result.OverallMAPE = math.Inf(1)
	} else {
		result.OverallMAPE = overallSum / float64(overallCount)
	}
	return result
}
