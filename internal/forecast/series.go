package forecast

import (
	"fmt"
	"math"
	"time"
)

// Category names one of the four tracked monthly series.
type Category string

const (
	Income      Category = "Income"
	Expenses    Category = "Expenses"
	Investment  Category = "Investment"
	NetCashFlow Category = "Net_Cash_Flow"
)

// Categories lists the tracked series in their canonical column order.
var Categories = []Category{Income, Expenses, Investment, NetCashFlow}

// MinSeasonalHistory is the number of months below which seasonal modeling is
// considered unreliable (two full annual cycles).
const MinSeasonalHistory = 12

// Series holds the four aligned monthly cash-flow series. Months are
// month-end dates, strictly increasing, one per calendar month. Net cash
// flow equals income minus expenses minus investment at every index.
type Series struct {
	Months  []time.Time
	Columns map[Category][]float64
}

func newSeries(n int) *Series {
	s := &Series{
		Months:  make([]time.Time, 0, n),
		Columns: make(map[Category][]float64, len(Categories)),
	}
	for _, c := range Categories {
		s.Columns[c] = make([]float64, 0, n)
	}
	return s
}

// Len returns the number of months in the series.
func (s *Series) Len() int { return len(s.Months) }

// Column returns the values for one category, or nil if absent.
func (s *Series) Column(c Category) []float64 { return s.Columns[c] }

// Recent returns a read-only view of the most recent k months. The view
// shares backing arrays with the receiver.
func (s *Series) Recent(k int) *Series {
	if k >= s.Len() {
		return s
	}
	return s.slice(s.Len()-k, s.Len())
}

// slice returns the read-only sub-series [i, j).
func (s *Series) slice(i, j int) *Series {
	out := &Series{
		Months:  s.Months[i:j:j],
		Columns: make(map[Category][]float64, len(s.Columns)),
	}
	for c, vals := range s.Columns {
		out.Columns[c] = vals[i:j:j]
	}
	return out
}

// appendRow adds one month of values, keeping the net identity.
func (s *Series) appendRow(month time.Time, income, expenses, investment float64) {
	s.Months = append(s.Months, month)
	s.Columns[Income] = append(s.Columns[Income], income)
	s.Columns[Expenses] = append(s.Columns[Expenses], expenses)
	s.Columns[Investment] = append(s.Columns[Investment], investment)
	s.Columns[NetCashFlow] = append(s.Columns[NetCashFlow], income-expenses-investment)
}

// Validate checks the structural invariants: strictly increasing months, one
// entry per calendar month, and the net cash flow identity.
func (s *Series) Validate() error {
	for i := 1; i < s.Len(); i++ {
		prev, cur := s.Months[i-1], s.Months[i]
		if !cur.After(prev) {
			return fmt.Errorf("months not strictly increasing at index %d", i)
		}
		if prev.Year() == cur.Year() && prev.Month() == cur.Month() {
			return fmt.Errorf("duplicate month %s at index %d", cur.Format("2006-01"), i)
		}
	}
	for i := 0; i < s.Len(); i++ {
		want := s.Columns[Income][i] - s.Columns[Expenses][i] - s.Columns[Investment][i]
		if math.Abs(s.Columns[NetCashFlow][i]-want) > 1e-6 {
			return fmt.Errorf("net cash flow identity violated at %s", s.Months[i].Format("2006-01"))
		}
	}
	return nil
}

// FutureMonths returns the n month-end dates following the last observed
// month.
func (s *Series) FutureMonths(n int) []time.Time {
	out := make([]time.Time, n)
	last := s.Months[s.Len()-1]
	// Step from the first of the month so that adding months never rolls
	// over short months.
	base := time.Date(last.Year(), last.Month(), 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		out[i] = monthEnd(base.AddDate(0, i+1, 0))
	}
	return out
}

// monthEnd normalizes a date to the last day of its calendar month.
func monthEnd(t time.Time) time.Time {
	firstOfNext := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0)
	return firstOfNext.AddDate(0, 0, -1)
}
