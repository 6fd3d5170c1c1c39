// Package sarima implements a seasonal ARIMA estimator sized for short
// monthly cash-flow series. Estimation is conditional sum of squares with a
// bounded optimizer, so fits stay cheap enough for exhaustive order search
// and terminate on pathological inputs.
package sarima

import (
	"errors"
	"fmt"
	"math"

	"github.com/sartorproj/goarima/stats"
	"github.com/sartorproj/goarima/timeseries"
)

// Order is the (p,d,q)x(P,D,Q,m) model order.
type Order struct {
	P, D, Q    int
	SP, SD, SQ int
	M          int // seasonal period, 0 when the seasonal part is unused
}

// IsSeasonal reports whether any seasonal component is active.
func (o Order) IsSeasonal() bool {
	return o.M > 0 && (o.SP > 0 || o.SD > 0 || o.SQ > 0)
}

func (o Order) String() string {
	if o.M > 0 {
		return fmt.Sprintf("(%d,%d,%d)(%d,%d,%d)[%d]", o.P, o.D, o.Q, o.SP, o.SD, o.SQ, o.M)
	}
	return fmt.Sprintf("(%d,%d,%d)", o.P, o.D, o.Q)
}

// numParams counts estimated coefficients plus the intercept.
func (o Order) numParams() int {
	return o.P + o.Q + o.SP + o.SQ + 1
}

const (
	maxIterations  = 100 // optimizer cap, guarantees termination
	learningRate   = 0.005
	momentumCoef   = 0.9
	rateDecay      = 0.99
	coefBound      = 0.99
	convergenceTol = 1e-8
)

// Model is a fitted (or fittable) seasonal ARIMA model.
type Model struct {
	Order     Order
	AR        []float64
	MA        []float64
	SAR       []float64
	SMA       []float64
	Intercept float64
	Variance  float64
	AIC       float64
	BIC       float64
	LogLik    float64

	fitted    bool
	data      *timeseries.Series
	diff      *timeseries.Series
	residuals []float64
}

// New creates an unfitted model with the given order.
func New(o Order) *Model {
	return &Model{
		Order: o,
		AR:    make([]float64, o.P),
		MA:    make([]float64, o.Q),
		SAR:   make([]float64, o.SP),
		SMA:   make([]float64, o.SQ),
	}
}

// Fit estimates coefficients by conditional sum of squares. It errors when
// the differenced series is too short to identify the requested order; the
// caller is expected to skip such candidates.
func (m *Model) Fit(series *timeseries.Series) error {
	if series == nil || series.Len() == 0 {
		return errors.New("empty series")
	}
	m.data = series

	diff := series
	for i := 0; i < m.Order.D; i++ {
		diff = diff.Diff()
		if diff.Len() == 0 {
			return errors.New("differencing exhausted the series")
		}
	}
	for i := 0; i < m.Order.SD; i++ {
		diff = diff.SeasonalDiff(m.Order.M)
		if diff.Len() == 0 {
			return errors.New("seasonal differencing exhausted the series")
		}
	}
	if diff.Len() < m.Order.numParams()+2 {
		return fmt.Errorf("series too short for order %s: %d observations after differencing",
			m.Order, diff.Len())
	}
	m.diff = diff

	m.initCoefficients()
	m.optimize()
	m.informationCriteria()

	if !isFinite(m.AIC) || !isFinite(m.Variance) {
		return fmt.Errorf("fit for order %s did not converge", m.Order)
	}
	m.fitted = true
	return nil
}

// initCoefficients seeds AR terms from the ACF and MA terms with a small
// constant, the same starting point goarima uses.
func (m *Model) initCoefficients() {
	y := m.diff.Values
	mean := 0.0
	for _, v := range y {
		mean += v
	}
	m.Intercept = mean / float64(len(y))

	if m.Order.P > 0 {
		if acf := stats.ACF(m.diff, m.Order.P); acf != nil {
			for i := 0; i < m.Order.P && i+1 < len(acf); i++ {
				m.AR[i] = acf[i+1] * 0.5
			}
		}
	}
	if m.Order.SP > 0 {
		if acf := stats.ACF(m.diff, m.Order.SP*m.Order.M); acf != nil {
			for i := 0; i < m.Order.SP; i++ {
				if idx := (i + 1) * m.Order.M; idx < len(acf) {
					m.SAR[i] = acf[idx] * 0.5
				}
			}
		}
	}
	for i := range m.MA {
		m.MA[i] = 0.1
	}
	for i := range m.SMA {
		m.SMA[i] = 0.1
	}
}

// predictAt computes the one-step prediction at index t of the differenced
// series, given residuals for earlier indices.
func (m *Model) predictAt(y, residuals []float64, t int) float64 {
	pred := m.Intercept
	for i := 0; i < m.Order.P && t-i-1 >= 0; i++ {
		pred += m.AR[i] * (y[t-i-1] - m.Intercept)
	}
	for i := 0; i < m.Order.SP; i++ {
		if lag := (i + 1) * m.Order.M; t-lag >= 0 {
			pred += m.SAR[i] * (y[t-lag] - m.Intercept)
		}
	}
	for i := 0; i < m.Order.Q && t-i-1 >= 0; i++ {
		pred += m.MA[i] * residuals[t-i-1]
	}
	for i := 0; i < m.Order.SQ; i++ {
		if lag := (i + 1) * m.Order.M; t-lag >= 0 {
			pred += m.SMA[i] * residuals[t-lag]
		}
	}
	return pred
}

// optimize runs gradient descent with momentum on the conditional sum of
// squares, keeping the best coefficients seen.
func (m *Model) optimize() {
	y := m.diff.Values
	n := len(y)
	o := m.Order

	startIdx := maxInt(maxInt(o.P, o.Q), maxInt(o.SP*o.M, o.SQ*o.M))
	if startIdx >= n-2 {
		startIdx = 0
	}

	arMom := make([]float64, o.P)
	maMom := make([]float64, o.Q)
	sarMom := make([]float64, o.SP)
	smaMom := make([]float64, o.SQ)

	bestSSE := math.Inf(1)
	bestAR := append([]float64(nil), m.AR...)
	bestMA := append([]float64(nil), m.MA...)
	bestSAR := append([]float64(nil), m.SAR...)
	bestSMA := append([]float64(nil), m.SMA...)
	noImprove := 0
	lr := learningRate

	for iter := 0; iter < maxIterations; iter++ {
		residuals := make([]float64, n)
		sse := 0.0
		for t := startIdx; t < n; t++ {
			residuals[t] = y[t] - m.predictAt(y, residuals, t)
			sse += residuals[t] * residuals[t]
		}

		if sse < bestSSE {
			if iter > 0 && bestSSE-sse < convergenceTol {
				bestSSE = sse
				copy(bestAR, m.AR)
				copy(bestMA, m.MA)
				copy(bestSAR, m.SAR)
				copy(bestSMA, m.SMA)
				break
			}
			bestSSE = sse
			copy(bestAR, m.AR)
			copy(bestMA, m.MA)
			copy(bestSAR, m.SAR)
			copy(bestSMA, m.SMA)
			noImprove = 0
		} else {
			noImprove++
			if noImprove > 20 {
				break
			}
		}

		arGrad := make([]float64, o.P)
		maGrad := make([]float64, o.Q)
		sarGrad := make([]float64, o.SP)
		smaGrad := make([]float64, o.SQ)
		for t := startIdx; t < n; t++ {
			for i := 0; i < o.P && t-i-1 >= 0; i++ {
				arGrad[i] -= 2 * residuals[t] * (y[t-i-1] - m.Intercept)
			}
			for i := 0; i < o.SP; i++ {
				if lag := (i + 1) * o.M; t-lag >= 0 {
					sarGrad[i] -= 2 * residuals[t] * (y[t-lag] - m.Intercept)
				}
			}
			for i := 0; i < o.Q && t-i-1 >= 0; i++ {
				maGrad[i] -= 2 * residuals[t] * residuals[t-i-1]
			}
			for i := 0; i < o.SQ; i++ {
				if lag := (i + 1) * o.M; t-lag >= 0 {
					smaGrad[i] -= 2 * residuals[t] * residuals[t-lag]
				}
			}
		}

		step := func(coeffs, mom, grad []float64) {
			for i := range coeffs {
				mom[i] = momentumCoef*mom[i] + lr*grad[i]/float64(n)
				coeffs[i] = clamp(coeffs[i]-mom[i], -coefBound, coefBound)
			}
		}
		step(m.AR, arMom, arGrad)
		step(m.SAR, sarMom, sarGrad)
		step(m.MA, maMom, maGrad)
		step(m.SMA, smaMom, smaGrad)

		lr *= rateDecay
	}

	copy(m.AR, bestAR)
	copy(m.MA, bestMA)
	copy(m.SAR, bestSAR)
	copy(m.SMA, bestSMA)

	m.residuals = make([]float64, n)
	for t := 0; t < n; t++ {
		m.residuals[t] = y[t] - m.predictAt(y, m.residuals, t)
	}

	sse := 0.0
	count := 0
	for t := startIdx; t < n; t++ {
		sse += m.residuals[t] * m.residuals[t]
		count++
	}
	if k := o.numParams(); count > k {
		m.Variance = sse / float64(count-k)
	} else if count > 0 {
		m.Variance = sse / float64(count)
	}
}

func (m *Model) informationCriteria() {
	n := float64(len(m.residuals))
	k := float64(m.Order.numParams())

	sse := 0.0
	for _, r := range m.residuals {
		sse += r * r
	}
	if m.Variance > 0 {
		m.LogLik = -n/2*math.Log(2*math.Pi) - n/2*math.Log(m.Variance) - sse/(2*m.Variance)
	} else {
		// A perfect in-sample fit on a short window; treat it as maximally
		// likely so AIC reduces to the complexity penalty.
		m.LogLik = 0
	}
	m.AIC = -2*m.LogLik + 2*k
	m.BIC = -2*m.LogLik + k*math.Log(n)
}

// Residuals returns a copy of the in-sample residuals on the differenced
// scale.
func (m *Model) Residuals() []float64 {
	if !m.fitted {
		return nil
	}
	return append([]float64(nil), m.residuals...)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
