package forecast

import (
	"fmt"
	"time"
)

// StressResult is a shocked copy of a baseline forecast with recomputed net
// cash flow and per-period liquidity flags.
type StressResult struct {
	Dates            []time.Time
	Income           []float64
	Expenses         []float64
	Investment       []float64
	NetCashFlow      []float64
	LiquidityWarning []bool
	IncomeShock      float64
	ExpenseShock     float64
	FromPeriod       int
}

// ApplyStress scales forecasted income and expenses by (1+shock) from
// fromPeriod onward, recomputes net cash flow, and flags every period where
// the recomputed net is negative. Pure function over the baseline; no model
// refitting.
func ApplyStress(baseline *ForecastResult, incomeShock, expenseShock float64, fromPeriod int) (*StressResult, error) {
	if baseline == nil || len(baseline.Dates) == 0 {
		return nil, fmt.Errorf("stress scenario requires a non-empty baseline forecast")
	}
	income, ok := baseline.Points[Income]
	if !ok {
		return nil, fmt.Errorf("baseline forecast is missing the %s series", Income)
	}
	expenses, ok := baseline.Points[Expenses]
	if !ok {
		return nil, fmt.Errorf("baseline forecast is missing the %s series", Expenses)
	}
	investment := baseline.Points[Investment] // optional; absent means zero
	if fromPeriod < 0 {
		fromPeriod = 0
	}

	n := len(baseline.Dates)
	out := &StressResult{
		Dates:            baseline.Dates,
		Income:           make([]float64, n),
		Expenses:         make([]float64, n),
		Investment:       make([]float64, n),
		NetCashFlow:      make([]float64, n),
		LiquidityWarning: make([]bool, n),
		IncomeShock:      incomeShock,
		ExpenseShock:     expenseShock,
		FromPeriod:       fromPeriod,
	}
	for h := 0; h < n; h++ {
		inc, exp := income[h], expenses[h]
		if h >= fromPeriod {
			inc *= 1 + incomeShock
			exp *= 1 + expenseShock
		}
		var inv float64
		if investment != nil {
			inv = investment[h]
		}
		out.Income[h] = inc
		out.Expenses[h] = exp
		out.Investment[h] = inv
		out.NetCashFlow[h] = inc - exp - inv
		out.LiquidityWarning[h] = out.NetCashFlow[h] < 0
	}
	return out, nil
}
