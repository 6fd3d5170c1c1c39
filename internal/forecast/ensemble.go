package forecast

import (
	"fmt"
	"math"
)

// ForecastEnsemble combines the grid-search family with exponential
// smoothing: point forecasts are averaged, bounds take the widest envelope
// of the two methods. A series the smoothing fit cannot cover falls back to
// the grid-search result alone.
func (f *Forecaster) ForecastEnsemble(periods int, alpha float64) (*ForecastResult, error) {
	if err := f.checkReady(periods); err != nil {
		return nil, err
	}
	if alpha <= 0 || alpha >= 1 {
		alpha = DefaultAlpha
	}

	if !f.gridComplete() {
		refit := make(map[Category]*GridModel, len(Categories))
		for _, cat := range Categories {
			g, err := fitGridSearch(f.data.Column(cat))
			if err != nil {
				return nil, fmt.Errorf("ensemble forecast: %w", err)
			}
			refit[cat] = g
		}
		f.gridModels = refit
	}

	base, err := f.forecastGrid(periods, alpha)
	if err != nil {
		return nil, fmt.Errorf("ensemble forecast: %w", err)
	}

	ets := make(map[Category]*ETSModel, len(Categories))
	for _, cat := range Categories {
		m, err := fitETS(f.data.Column(cat))
		if err != nil {
			f.log.WithField("series", cat).WithError(err).Debug("smoothing fit skipped for ensemble")
			continue
		}
		ets[cat] = m
	}
	return combineEnsemble(base, ets), nil
}

// combineEnsemble merges the grid-search table with smoothing forecasts per
// series: mean of points, min of lowers, max of uppers.
func combineEnsemble(base *ForecastResult, ets map[Category]*ETSModel) *ForecastResult {
	periods := len(base.Dates)
	out := &ForecastResult{
		Dates:     base.Dates,
		Points:    make(map[Category][]float64, len(Categories)),
		Lower:     make(map[Category][]float64, len(Categories)),
		Upper:     make(map[Category][]float64, len(Categories)),
		Method:    MethodEnsemble,
		Summaries: make(map[Category]ModelSummary, len(Categories)),
	}

	for _, cat := range Categories {
		basePoint := base.Points[cat]
		baseLower := base.Lower[cat]
		baseUpper := base.Upper[cat]

		m, ok := ets[cat]
		if !ok {
			out.Points[cat] = basePoint
			out.Lower[cat] = baseLower
			out.Upper[cat] = baseUpper
			out.Summaries[cat] = base.Summaries[cat]
			continue
		}
		etsPoint, etsLower, etsUpper := m.forecastWithBand(periods)

		point := make([]float64, periods)
		lower := make([]float64, periods)
		upper := make([]float64, periods)
		for h := 0; h < periods; h++ {
			point[h] = (basePoint[h] + etsPoint[h]) / 2
			lower[h] = math.Min(baseLower[h], etsLower[h])
			upper[h] = math.Max(baseUpper[h], etsUpper[h])
		}
		out.Points[cat] = point
		out.Lower[cat] = lower
		out.Upper[cat] = upper

		s := base.Summaries[cat]
		s.Strategy = MethodEnsemble
		out.Summaries[cat] = s
	}
	return out
}
