package sarima

import (
	"errors"
	"math"
)

// Predict returns point forecasts for the given number of steps ahead.
func (m *Model) Predict(steps int) ([]float64, error) {
	point, _, _, err := m.PredictWithInterval(steps, 0.05)
	return point, err
}

// PredictWithInterval returns point forecasts with a two-sided prediction
// interval at level 1-alpha. Interval variance comes from the cumulative
// psi-weight expansion of the fitted model, so band width never shrinks with
// horizon.
func (m *Model) PredictWithInterval(steps int, alpha float64) (point, lower, upper []float64, err error) {
	if !m.fitted {
		return nil, nil, nil, errors.New("model must be fitted before prediction")
	}
	if steps < 1 {
		return nil, nil, nil, errors.New("steps must be at least 1")
	}
	if alpha <= 0 || alpha >= 1 {
		alpha = 0.05
	}

	o := m.Order
	y := m.diff.Values
	n := len(y)

	extY := make([]float64, n+steps)
	copy(extY, y)
	extRes := make([]float64, n+steps)
	copy(extRes, m.residuals)

	for h := 0; h < steps; h++ {
		t := n + h
		pred := m.Intercept
		for i := 0; i < o.P && t-i-1 >= 0; i++ {
			pred += m.AR[i] * (extY[t-i-1] - m.Intercept)
		}
		for i := 0; i < o.SP; i++ {
			if lag := (i + 1) * o.M; t-lag >= 0 {
				pred += m.SAR[i] * (extY[t-lag] - m.Intercept)
			}
		}
		// future residuals are zero, only observed ones contribute
		for i := 0; i < o.Q && t-i-1 >= 0 && t-i-1 < n; i++ {
			pred += m.MA[i] * extRes[t-i-1]
		}
		for i := 0; i < o.SQ; i++ {
			if lag := (i + 1) * o.M; t-lag >= 0 && t-lag < n {
				pred += m.SMA[i] * extRes[t-lag]
			}
		}
		extY[t] = pred
		extRes[t] = 0
	}

	point = make([]float64, steps)
	copy(point, extY[n:])
	point = m.integrate(point)

	se := m.forecastStdErr(steps)
	z := normalQuantile(1 - alpha/2)
	lower = make([]float64, steps)
	upper = make([]float64, steps)
	for h := 0; h < steps; h++ {
		lower[h] = point[h] - z*se[h]
		upper[h] = point[h] + z*se[h]
	}
	return point, lower, upper, nil
}

// forecastStdErr builds per-horizon standard errors from psi weights. The
// seasonal and non-seasonal lag polynomials are combined additively, matching
// the CSS recursion used in fitting. Integration turns the weights into
// cumulative sums, and seasonal integration scales by completed cycles.
func (m *Model) forecastStdErr(steps int) []float64 {
	o := m.Order

	phi := make([]float64, steps+1)
	theta := make([]float64, steps+1)
	for i := 0; i < o.P && i+1 <= steps; i++ {
		phi[i+1] += m.AR[i]
	}
	for i := 0; i < o.SP; i++ {
		if lag := (i + 1) * o.M; lag <= steps {
			phi[lag] += m.SAR[i]
		}
	}
	for i := 0; i < o.Q && i+1 <= steps; i++ {
		theta[i+1] += m.MA[i]
	}
	for i := 0; i < o.SQ; i++ {
		if lag := (i + 1) * o.M; lag <= steps {
			theta[lag] += m.SMA[i]
		}
	}

	psi := make([]float64, steps+1)
	psi[0] = 1
	for j := 1; j <= steps; j++ {
		v := theta[j]
		for i := 1; i <= j; i++ {
			v += phi[i] * psi[j-i]
		}
		psi[j] = v
	}

	// Each order of integration replaces psi with its running sum.
	for d := 0; d < o.D; d++ {
		for j := 1; j <= steps; j++ {
			psi[j] += psi[j-1]
		}
	}

	sigma := math.Sqrt(math.Max(m.Variance, 0))
	se := make([]float64, steps)
	cum := 0.0
	for h := 0; h < steps; h++ {
		cum += psi[h] * psi[h]
		se[h] = sigma * math.Sqrt(cum)
		if o.SD > 0 && o.M > 0 {
			se[h] *= math.Sqrt(float64(h/o.M + 1))
		}
	}
	return se
}

// integrate undoes the differencing applied during fitting: seasonal first,
// then non-seasonal, mirroring the inverse of the fit order.
func (m *Model) integrate(forecasts []float64) []float64 {
	o := m.Order
	original := m.data.Values
	n := len(original)

	result := append([]float64(nil), forecasts...)

	nonSeasonal := original
	for i := 0; i < o.D; i++ {
		if len(nonSeasonal) <= 1 {
			break
		}
		next := make([]float64, len(nonSeasonal)-1)
		for j := 1; j < len(nonSeasonal); j++ {
			next[j-1] = nonSeasonal[j] - nonSeasonal[j-1]
		}
		nonSeasonal = next
	}

	if o.SD > 0 && o.M > 0 {
		nDiff := len(nonSeasonal)
		for i := 0; i < o.SD; i++ {
			for j := range result {
				if j < o.M {
					if idx := nDiff - o.M + j; idx >= 0 && idx < nDiff {
						result[j] += nonSeasonal[idx]
					}
				} else {
					result[j] += result[j-o.M]
				}
			}
		}
	}

	for i := 0; i < o.D; i++ {
		last := original[n-1]
		for j := range result {
			if j == 0 {
				result[j] += last
			} else {
				result[j] += result[j-1]
			}
		}
	}
	return result
}

// normalQuantile approximates the standard normal quantile function
// (Abramowitz & Stegun 26.2.23).
func normalQuantile(p float64) float64 {
	if p <= 0 || p >= 1 {
		return 0
	}
	if p < 0.5 {
		return -normalQuantile(1 - p)
	}
	t := math.Sqrt(-2 * math.Log(1-p))
	c0, c1, c2 := 2.515517, 0.802853, 0.010328
	d1, d2, d3 := 1.432788, 0.189269, 0.001308
	return t - (c0+c1*t+c2*t*t)/(1+d1*t+d2*t*t+d3*t*t*t)
}
