package forecast

import (
	"fmt"
	"math"
)

// Additive-trend, additive-seasonal exponential smoothing. Used by the
// ensemble and backtest paths only; never the primary forecast method.

const (
	etsMinObs = 12
	etsAlpha  = 0.3
	etsBeta   = 0.1
	etsGamma  = 0.1

	// etsIntervalZ approximates a 95% band around the point forecast from
	// the residual standard deviation.
	etsIntervalZ = 1.96
	// etsFallbackBandFrac is the band half-width, as a fraction of the point
	// forecast magnitude, used when the residual approximation is unusable.
	// Tunable, not derived.
	etsFallbackBandFrac = 0.10
)

// ETSModel is a fitted exponential smoothing model for one series.
type ETSModel struct {
	level    float64
	trend    float64
	seasonal []float64 // length seasonalPeriod when seasonal, nil otherwise
	residSD  float64
	nobs     int
}

// Seasonal reports whether the fit kept a seasonal component.
func (m *ETSModel) Seasonal() bool { return m.seasonal != nil }

// fitETS fits with the seasonal component first and retries once without any
// seasonal term if that fails. Series under 12 observations are rejected.
func fitETS(values []float64) (*ETSModel, error) {
	n := len(values)
	if n < etsMinObs {
		return nil, &InsufficientDataError{Op: "exponential smoothing", Have: n, Need: etsMinObs}
	}
	m, err := fitHoltWinters(values, seasonalPeriod)
	if err != nil {
		m, err = fitHolt(values)
		if err != nil {
			return nil, fmt.Errorf("exponential smoothing failed with and without seasonality: %w", err)
		}
	}
	return m, nil
}

// fitHoltWinters fits additive Holt-Winters. Initialization needs two full
// seasons; shorter series fail here and fall back to the trend-only fit.
func fitHoltWinters(values []float64, period int) (*ETSModel, error) {
	n := len(values)
	if n < 2*period {
		return nil, fmt.Errorf("seasonal smoothing needs %d observations, have %d", 2*period, n)
	}

	level := 0.0
	for i := 0; i < period; i++ {
		level += values[i]
	}
	level /= float64(period)
	trend := (values[period] - values[0]) / float64(period)

	seasonal := make([]float64, period)
	for i := 0; i < period; i++ {
		seasonal[i] = values[i] - level
	}

	var sse float64
	for i := 0; i < n; i++ {
		sIdx := i % period
		fitted := level + trend + seasonal[sIdx]
		if i == 0 {
			fitted = level + seasonal[sIdx]
		}
		resid := values[i] - fitted
		sse += resid * resid

		prevLevel := level
		level = etsAlpha*(values[i]-seasonal[sIdx]) + (1-etsAlpha)*(level+trend)
		trend = etsBeta*(level-prevLevel) + (1-etsBeta)*trend
		seasonal[sIdx] = etsGamma*(values[i]-level) + (1-etsGamma)*seasonal[sIdx]
	}

	residSD := math.Sqrt(sse / float64(n-1))
	if !isFiniteF(level) || !isFiniteF(trend) || !isFiniteF(residSD) {
		return nil, fmt.Errorf("seasonal smoothing diverged")
	}
	return &ETSModel{level: level, trend: trend, seasonal: seasonal, residSD: residSD, nobs: n}, nil
}

// fitHolt fits additive trend smoothing with no seasonal term.
func fitHolt(values []float64) (*ETSModel, error) {
	n := len(values)
	if n < 2 {
		return nil, fmt.Errorf("trend smoothing needs at least 2 observations, have %d", n)
	}

	level := values[0]
	trend := values[1] - values[0]

	var sse float64
	for i := 1; i < n; i++ {
		fitted := level + trend
		resid := values[i] - fitted
		sse += resid * resid

		prevLevel := level
		level = etsAlpha*values[i] + (1-etsAlpha)*(level+trend)
		trend = etsBeta*(level-prevLevel) + (1-etsBeta)*trend
	}

	residSD := math.Sqrt(sse / float64(n-1))
	if !isFiniteF(level) || !isFiniteF(trend) || !isFiniteF(residSD) {
		return nil, fmt.Errorf("trend smoothing diverged")
	}
	return &ETSModel{level: level, trend: trend, residSD: residSD, nobs: n}, nil
}

// forecast projects point values for the given horizon.
func (m *ETSModel) forecast(periods int) []float64 {
	out := make([]float64, periods)
	for h := 0; h < periods; h++ {
		v := m.level + float64(h+1)*m.trend
		if m.seasonal != nil {
			v += m.seasonal[(m.nobs+h)%len(m.seasonal)]
		}
		out[h] = v
	}
	return out
}

// forecastWithBand projects points with approximate confidence bounds:
// ±1.96 residual standard deviations, or ±10% of magnitude when the
// residual estimate is unusable.
func (m *ETSModel) forecastWithBand(periods int) (point, lower, upper []float64) {
	point = m.forecast(periods)
	lower = make([]float64, periods)
	upper = make([]float64, periods)
	half := etsIntervalZ * m.residSD
	usable := isFiniteF(half) && half > 0
	for h := 0; h < periods; h++ {
		if usable {
			lower[h] = point[h] - half
			upper[h] = point[h] + half
		} else {
			band := etsFallbackBandFrac * math.Abs(point[h])
			lower[h] = point[h] - band
			upper[h] = point[h] + band
		}
	}
	return point, lower, upper
}

func isFiniteF(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
