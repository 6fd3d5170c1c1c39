package forecast

import (
	"fmt"

	"github.com/sartorproj/goarima/autoarima"
	"github.com/sartorproj/goarima/timeseries"
)

// autoSearchMinObs is the smallest series the stepwise auto-search backend
// accepts; below it the backend reports unavailable and the grid search
// carries the session.
const autoSearchMinObs = 10

// AutoModel wraps a stepwise auto-search fit for one series.
type AutoModel struct {
	Result *autoarima.Result
}

// autoSearchAvailable is the construction-time availability probe for the
// stepwise backend.
func autoSearchAvailable(n int) bool { return n >= autoSearchMinObs }

// fitAutoSearch delegates order selection to the stepwise automatic search
// with the same bounded ranges the grid search uses: AR and MA order at most
// 2, seasonal orders at most 1 at period 12. Seasonal fitting is attempted
// only with at least two full annual cycles of data.
func fitAutoSearch(values []float64) (*AutoModel, error) {
	n := len(values)
	if !autoSearchAvailable(n) {
		return nil, &InsufficientDataError{Op: "auto order search", Have: n, Need: autoSearchMinObs}
	}

	cfg := autoarima.DefaultConfig()
	cfg.MaxP, cfg.MaxQ = 2, 2
	cfg.MaxSP, cfg.MaxSQ = 1, 1
	cfg.MaxD = 1
	cfg.Criterion = "aic"
	cfg.ModelSelection = "aic"
	cfg.Stepwise = true
	if n >= seasonalSearchMinObs {
		cfg.AutoSeasonal = true
		cfg.SeasonalPeriods = []int{seasonalPeriod}
		cfg.SeasonalityThreshold = 0.1
	} else {
		cfg.AutoSeasonal = false
		cfg.CompareModels = false
	}

	result, err := autoarima.AutoARIMA(timeseries.New(values), cfg)
	if err != nil {
		return nil, fmt.Errorf("auto order search failed: %w", err)
	}
	if result == nil || (result.Model == nil && result.SeasonalModel == nil) {
		return nil, fmt.Errorf("auto order search found no usable model on %d observations", n)
	}
	return &AutoModel{Result: result}, nil
}

// predictWithInterval projects the selected model with a two-sided interval
// at level 1-alpha.
func (a *AutoModel) predictWithInterval(steps int, alpha float64) (point, lower, upper []float64, err error) {
	point, lower, upper, err = a.Result.PredictWithInterval(steps, 1-alpha)
	if err != nil {
		return nil, nil, nil, err
	}
	if point == nil {
		return nil, nil, nil, fmt.Errorf("auto-search model produced no forecast")
	}
	return point, lower, upper, nil
}

func (a *AutoModel) predict(steps int) ([]float64, error) {
	point, err := a.Result.Predict(steps)
	if err != nil {
		return nil, err
	}
	if point == nil {
		return nil, fmt.Errorf("auto-search model produced no forecast")
	}
	return point, nil
}
