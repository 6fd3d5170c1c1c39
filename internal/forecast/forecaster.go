package forecast

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultAlpha is the two-sided significance level used when callers do not
// specify one (0.10 → 90% interval).
const DefaultAlpha = 0.10

// ModelSummary describes the model chosen for one series, kept for
// inspection alongside the forecast.
type ModelSummary struct {
	Strategy string  `json:"strategy"`
	Order    string  `json:"order"`
	AIC      float64 `json:"aic"`
	BIC      float64 `json:"bic"`
}

// ForecastResult is a table of dated point forecasts with confidence bounds
// per series. Lower and Upper are nil on the fast path. Immutable once
// returned.
type ForecastResult struct {
	Dates     []time.Time
	Points    map[Category][]float64
	Lower     map[Category][]float64
	Upper     map[Category][]float64
	Method    string
	Summaries map[Category]ModelSummary
}

// Forecaster fits and projects the four cash-flow series. It is not safe
// for concurrent use; one instance serves one analysis run.
type Forecaster struct {
	log  logrus.FieldLogger
	data *Series

	autoAvailable bool
	autoModels    map[Category]*AutoModel
	gridModels    map[Category]*GridModel
	fitCalled     bool
}

// NewForecaster wraps an already-prepared series. Availability of the
// stepwise auto-search backend is probed once here, not per call.
func NewForecaster(data *Series, logger logrus.FieldLogger) *Forecaster {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	n := 0
	if data != nil {
		n = data.Len()
	}
	return &Forecaster{
		log:           logger,
		data:          data,
		autoAvailable: autoSearchAvailable(n),
		autoModels:    make(map[Category]*AutoModel, len(Categories)),
		gridModels:    make(map[Category]*GridModel, len(Categories)),
	}
}

// Data returns the historical series the forecaster was built over.
func (f *Forecaster) Data() *Series { return f.data }

// Fit fits models for every series with whichever strategies are available.
// It fails only when neither strategy produced a complete set of models.
func (f *Forecaster) Fit() error {
	if f.data == nil || f.data.Len() == 0 {
		return ErrNoHistory
	}

	var lastErr error
	for _, cat := range Categories {
		values := f.data.Column(cat)
		if f.autoAvailable {
			if m, err := fitAutoSearch(values); err != nil {
				f.log.WithField("series", cat).WithError(err).Debug("auto order search unavailable for series")
			} else {
				f.autoModels[cat] = m
			}
		}
		if g, err := fitGridSearch(values); err != nil {
			lastErr = err
			f.log.WithField("series", cat).WithError(err).Warn("grid search failed for series")
		} else {
			f.gridModels[cat] = g
		}
	}
	f.fitCalled = true

	if !f.autoComplete() && !f.gridComplete() {
		if lastErr != nil {
			return fmt.Errorf("model fitting failed: %w", lastErr)
		}
		return fmt.Errorf("model fitting failed for all series")
	}
	return nil
}

func (f *Forecaster) autoComplete() bool { return len(f.autoModels) == len(Categories) }
func (f *Forecaster) gridComplete() bool { return len(f.gridModels) == len(Categories) }

// Forecast projects every series `periods` months past the last observed
// month with bounds at level 1-alpha. Strategies are tried in order: the
// stepwise auto-search models, the grid-search models, then a one-shot
// grid-search refit in case fitted state was lost; the last error
// propagates if everything fails.
func (f *Forecaster) Forecast(periods int, alpha float64) (*ForecastResult, error) {
	if err := f.checkReady(periods); err != nil {
		return nil, err
	}
	if alpha <= 0 || alpha >= 1 {
		alpha = DefaultAlpha
	}

	var lastErr error
	if f.autoComplete() {
		res, err := f.forecastAuto(periods, alpha)
		if err == nil {
			return res, nil
		}
		lastErr = err
		f.log.WithError(err).Warn("auto-search forecast failed, falling back to grid-search models")
	}
	if f.gridComplete() {
		res, err := f.forecastGrid(periods, alpha)
		if err == nil {
			return res, nil
		}
		lastErr = err
		f.log.WithError(err).Warn("grid-search forecast failed, refitting once")
	}

	// Fitted state may have been lost or partial; refit strategy B in one
	// shot before giving up.
	refit := make(map[Category]*GridModel, len(Categories))
	for _, cat := range Categories {
		g, err := fitGridSearch(f.data.Column(cat))
		if err != nil {
			if lastErr == nil {
				lastErr = err
			}
			return nil, fmt.Errorf("forecast failed: %w", lastErr)
		}
		refit[cat] = g
	}
	f.gridModels = refit
	return f.forecastGrid(periods, alpha)
}

// ForecastFast projects point forecasts only, skipping interval computation
// for latency-sensitive consumers such as chart rendering.
func (f *Forecaster) ForecastFast(periods int) (*ForecastResult, error) {
	if err := f.checkReady(periods); err != nil {
		return nil, err
	}

	res := &ForecastResult{
		Dates:     f.data.FutureMonths(periods),
		Points:    make(map[Category][]float64, len(Categories)),
		Summaries: make(map[Category]ModelSummary, len(Categories)),
	}
	for _, cat := range Categories {
		if f.autoComplete() {
			point, err := f.autoModels[cat].predict(periods)
			if err == nil {
				res.Points[cat] = point
				res.Summaries[cat] = f.autoSummary(cat)
				res.Method = MethodAutoSARIMA
				continue
			}
		}
		g, ok := f.gridModels[cat]
		if !ok {
			return nil, fmt.Errorf("forecast failed: no fitted model for %s", cat)
		}
		point, err := g.Model.Predict(periods)
		if err != nil {
			return nil, fmt.Errorf("forecast failed for %s: %w", cat, err)
		}
		res.Points[cat] = point
		res.Summaries[cat] = gridSummary(g)
		res.Method = MethodSARIMAGrid
	}
	return res, nil
}

func (f *Forecaster) checkReady(periods int) error {
	if f.data == nil || f.data.Len() == 0 {
		return ErrNoHistory
	}
	if !f.fitCalled {
		return ErrNotFitted
	}
	if periods < 1 {
		return fmt.Errorf("forecast periods must be at least 1, got %d", periods)
	}
	return nil
}

// Method identifiers as they appear in results and API responses.
const (
	MethodAutoSARIMA = "sarima_auto"
	MethodSARIMAGrid = "sarima"
	MethodETS        = "ets"
	MethodEnsemble   = "ensemble"
)

func (f *Forecaster) forecastAuto(periods int, alpha float64) (*ForecastResult, error) {
	res := f.emptyResult(periods, MethodAutoSARIMA)
	for _, cat := range Categories {
		point, lower, upper, err := f.autoModels[cat].predictWithInterval(periods, alpha)
		if err != nil {
			return nil, fmt.Errorf("auto-search forecast for %s: %w", cat, err)
		}
		res.Points[cat] = point
		res.Lower[cat] = lower
		res.Upper[cat] = upper
		res.Summaries[cat] = f.autoSummary(cat)
	}
	return res, nil
}

func (f *Forecaster) forecastGrid(periods int, alpha float64) (*ForecastResult, error) {
	res := f.emptyResult(periods, MethodSARIMAGrid)
	for _, cat := range Categories {
		g, ok := f.gridModels[cat]
		if !ok {
			return nil, fmt.Errorf("no grid-search model for %s", cat)
		}
		point, lower, upper, err := g.Model.PredictWithInterval(periods, alpha)
		if err != nil {
			return nil, fmt.Errorf("grid-search forecast for %s: %w", cat, err)
		}
		res.Points[cat] = point
		res.Lower[cat] = lower
		res.Upper[cat] = upper
		res.Summaries[cat] = gridSummary(g)
	}
	return res, nil
}

func (f *Forecaster) emptyResult(periods int, method string) *ForecastResult {
	return &ForecastResult{
		Dates:     f.data.FutureMonths(periods),
		Points:    make(map[Category][]float64, len(Categories)),
		Lower:     make(map[Category][]float64, len(Categories)),
		Upper:     make(map[Category][]float64, len(Categories)),
		Method:    method,
		Summaries: make(map[Category]ModelSummary, len(Categories)),
	}
}

func (f *Forecaster) autoSummary(cat Category) ModelSummary {
	r := f.autoModels[cat].Result
	return ModelSummary{Strategy: MethodAutoSARIMA, Order: r.Order(), AIC: r.AIC, BIC: r.BIC}
}

func gridSummary(g *GridModel) ModelSummary {
	return ModelSummary{Strategy: MethodSARIMAGrid, Order: g.Order.String(), AIC: g.AIC, BIC: g.BIC}
}
