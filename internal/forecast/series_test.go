package forecast

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func month(year int, m time.Month) time.Time {
	return monthEnd(time.Date(year, m, 1, 0, 0, 0, 0, time.UTC))
}

// testSeries builds n months of synthetic cash flow starting January 2023.
func testSeries(n int, income, expenses, investment func(i int) float64) *Series {
	s := newSeries(n)
	start := time.Date(2023, time.January, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		m := monthEnd(start.AddDate(0, i, 0))
		s.appendRow(m, income(i), expenses(i), investment(i))
	}
	return s
}

func flatSeries(n int) *Series {
	return testSeries(n,
		func(i int) float64 { return 5000 + 100*float64(i%3) },
		func(i int) float64 { return 3000 + 50*float64(i%4) },
		func(i int) float64 { return 500 },
	)
}

func TestAppendRowMaintainsNetIdentity(t *testing.T) {
	s := flatSeries(24)
	require.NoError(t, s.Validate())
	for i := 0; i < s.Len(); i++ {
		want := s.Columns[Income][i] - s.Columns[Expenses][i] - s.Columns[Investment][i]
		assert.InDelta(t, want, s.Columns[NetCashFlow][i], 1e-9)
	}
}

func TestValidateRejectsDuplicateMonth(t *testing.T) {
	s := newSeries(2)
	m := month(2024, time.March)
	s.appendRow(m, 1, 1, 0)
	s.appendRow(m, 2, 1, 0)
	assert.Error(t, s.Validate())
}

func TestValidateRejectsBrokenIdentity(t *testing.T) {
	s := flatSeries(3)
	s.Columns[NetCashFlow][1] += 10
	assert.Error(t, s.Validate())
}

func TestRecent(t *testing.T) {
	s := flatSeries(24)

	r := s.Recent(6)
	assert.Equal(t, 6, r.Len())
	assert.Equal(t, s.Months[18], r.Months[0])
	assert.Equal(t, s.Columns[Income][23], r.Columns[Income][5])

	// asking for more than available returns the full series
	assert.Equal(t, 24, s.Recent(100).Len())
}

func TestSliceIsView(t *testing.T) {
	s := flatSeries(12)
	v := s.slice(0, 6)
	assert.Equal(t, 6, v.Len())

	// the view shares backing arrays; appends to the view must not clobber
	// the parent thanks to the capacity limit
	v.Columns[Income] = append(v.Columns[Income], 999)
	assert.NotEqual(t, 999.0, s.Columns[Income][6])
}

func TestFutureMonthsAreMonthEnds(t *testing.T) {
	s := newSeries(1)
	// January 31st: naive AddDate would roll February over into March
	s.appendRow(time.Date(2024, time.January, 31, 0, 0, 0, 0, time.UTC), 1, 0, 0)

	future := s.FutureMonths(3)
	require.Len(t, future, 3)
	assert.Equal(t, time.Date(2024, time.February, 29, 0, 0, 0, 0, time.UTC), future[0])
	assert.Equal(t, time.Date(2024, time.March, 31, 0, 0, 0, 0, time.UTC), future[1])
	assert.Equal(t, time.Date(2024, time.April, 30, 0, 0, 0, 0, time.UTC), future[2])
}

func TestMonthEnd(t *testing.T) {
	assert.Equal(t,
		time.Date(2023, time.February, 28, 0, 0, 0, 0, time.UTC),
		monthEnd(time.Date(2023, time.February, 10, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t,
		time.Date(2024, time.February, 29, 0, 0, 0, 0, time.UTC),
		monthEnd(time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC)))
}
