package forecast

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/quantfolio/backend/internal/model"
)

// PrepareOptions configures series preparation.
type PrepareOptions struct {
	// OutlierAmount excludes any single transaction whose absolute amount
	// exceeds this threshold within OutlierMonth. Zero disables the filter.
	OutlierAmount decimal.Decimal
	// OutlierMonth is the "2006-01" month the outlier filter applies to.
	// Empty applies the threshold to every month.
	OutlierMonth string
	// ReimbursementKeywords mark internal reimbursements by memo or account
	// name; matching transactions are dropped before aggregation.
	ReimbursementKeywords []string
	// MinActivityRatio overrides the nonzero-activity requirement for
	// investment column candidates. Zero keeps the default of 0.2.
	MinActivityRatio float64

	Logger logrus.FieldLogger
}

func (o PrepareOptions) logger() logrus.FieldLogger {
	if o.Logger != nil {
		return o.Logger
	}
	return logrus.StandardLogger()
}

// Prepare builds the four aligned monthly series from whichever source is
// available, in priority order: pre-aggregated monthly cash flow, raw
// transactions, portfolio valuation snapshots. It returns ErrNoData when no
// tier yields a single usable month.
func Prepare(monthly []*model.MonthlyCashFlowRow, txns []*model.Transaction, snaps []*model.PortfolioSnapshot, opts PrepareOptions) (*Series, error) {
	log := opts.logger()

	var s *Series
	if len(monthly) > 0 {
		s = fromMonthlyRows(monthly, opts)
	}
	if s == nil || s.Len() == 0 {
		if len(txns) > 0 {
			s = fromTransactions(txns, opts)
		}
	}
	if s == nil || s.Len() == 0 {
		if len(snaps) > 0 {
			s = fromSnapshots(snaps)
		}
	}
	if s == nil || s.Len() == 0 {
		return nil, ErrNoData
	}

	if s.Len() < MinSeasonalHistory {
		log.WithFields(logrus.Fields{
			"months":   s.Len(),
			"required": MinSeasonalHistory,
		}).Warn("fewer than 12 months of cash flow history; seasonal models will be unreliable")
	}
	return s, nil
}

// fromMonthlyRows resolves source columns by the keyword policy and copies
// the chosen columns into a series, zero-filling undetected categories.
func fromMonthlyRows(rows []*model.MonthlyCashFlowRow, opts PrepareOptions) *Series {
	sorted := append([]*model.MonthlyCashFlowRow(nil), rows...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Month.Before(sorted[j].Month) })

	// Union of column names, preserving first-seen order.
	var order []string
	seen := make(map[string]bool)
	for _, r := range sorted {
		names := r.ColumnOrder
		if len(names) == 0 {
			names = make([]string, 0, len(r.Columns))
			for name := range r.Columns {
				names = append(names, name)
			}
			sort.Strings(names)
		}
		for _, name := range names {
			if !seen[name] {
				seen[name] = true
				order = append(order, name)
			}
		}
	}

	values := make(map[string][]float64, len(order))
	for _, name := range order {
		col := make([]float64, len(sorted))
		for i, r := range sorted {
			col[i] = r.Columns[name]
		}
		values[name] = col
	}

	chosen := detectColumns(order, values, opts.MinActivityRatio)

	s := newSeries(len(sorted))
	for i, r := range sorted {
		var income, expenses, investment float64
		if name, ok := chosen[Income]; ok {
			income = values[name][i]
		}
		if name, ok := chosen[Expenses]; ok {
			expenses = values[name][i]
		}
		if name, ok := chosen[Investment]; ok {
			investment = values[name][i]
		}
		if income == 0 && expenses == 0 && investment == 0 {
			continue
		}
		s.appendRow(monthEnd(r.Month), income, expenses, investment)
	}
	return dedupeMonths(s)
}

// fromTransactions filters known one-off outliers and reimbursements, then
// buckets signed amounts into monthly category totals. Expense and
// investment flows are normalized to positive magnitudes; a positive flow
// out of an equity-compensation lot counts as income, not investment.
func fromTransactions(txns []*model.Transaction, opts PrepareOptions) *Series {
	type bucket struct{ income, expenses, investment float64 }
	buckets := make(map[string]*bucket)

	for _, t := range txns {
		if isOutlier(t, opts) || isReimbursement(t, opts.ReimbursementKeywords) {
			continue
		}
		key := t.Date.Format("2006-01")
		b := buckets[key]
		if b == nil {
			b = &bucket{}
			buckets[key] = b
		}
		amount, _ := t.Amount.Float64()
		switch t.Kind {
		case model.TransactionIncome:
			b.income += amount
		case model.TransactionExpense:
			b.expenses += math.Abs(amount)
		case model.TransactionInvestment:
			if amount > 0 && isVestingAsset(t.AssetClass) {
				b.income += amount
			} else {
				b.investment += math.Abs(amount)
			}
		}
	}
	if len(buckets) == 0 {
		return nil
	}

	keys := make([]string, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	s := newSeries(len(keys))
	for _, k := range keys {
		b := buckets[k]
		if b.income == 0 && b.expenses == 0 && b.investment == 0 {
			continue
		}
		month, _ := time.Parse("2006-01", k)
		s.appendRow(monthEnd(month), b.income, b.expenses, b.investment)
	}
	return s
}

// fromSnapshots derives a synthetic cash flow from month-over-month changes
// in total portfolio valuation. Positive deltas proxy income, negative
// deltas proxy expenses; investment flows cannot be recovered and stay zero.
func fromSnapshots(snaps []*model.PortfolioSnapshot) *Series {
	totals := make(map[string]float64)
	for _, snap := range snaps {
		v, _ := snap.MarketValue.Float64()
		totals[snap.Date.Format("2006-01")] += v
	}
	if len(totals) < 2 {
		return nil
	}

	keys := make([]string, 0, len(totals))
	for k := range totals {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	s := newSeries(len(keys) - 1)
	for i := 1; i < len(keys); i++ {
		delta := totals[keys[i]] - totals[keys[i-1]]
		if delta == 0 {
			continue
		}
		month, _ := time.Parse("2006-01", keys[i])
		if delta > 0 {
			s.appendRow(monthEnd(month), delta, 0, 0)
		} else {
			s.appendRow(monthEnd(month), 0, -delta, 0)
		}
	}
	return s
}

func isOutlier(t *model.Transaction, opts PrepareOptions) bool {
	if opts.OutlierAmount.IsZero() {
		return false
	}
	if opts.OutlierMonth != "" && t.Date.Format("2006-01") != opts.OutlierMonth {
		return false
	}
	return t.Amount.Abs().GreaterThan(opts.OutlierAmount)
}

func isReimbursement(t *model.Transaction, keywords []string) bool {
	for _, kw := range keywords {
		lower := strings.ToLower(kw)
		if strings.Contains(strings.ToLower(t.Memo), lower) ||
			strings.Contains(strings.ToLower(t.Account), lower) ||
			strings.Contains(strings.ToLower(t.AssetName), lower) {
			return true
		}
	}
	return false
}

func isVestingAsset(class string) bool {
	switch strings.ToLower(class) {
	case "rsu", "vesting", "espp", "stock_grant":
		return true
	}
	return false
}

// dedupeMonths keeps the last row seen for each calendar month. Monthly rows
// are upserted at the store layer, so a duplicate means a re-aggregation.
func dedupeMonths(s *Series) *Series {
	if s == nil || s.Len() == 0 {
		return s
	}
	out := newSeries(s.Len())
	for i := 0; i < s.Len(); i++ {
		key := s.Months[i].Format("2006-01")
		if i+1 < s.Len() && s.Months[i+1].Format("2006-01") == key {
			continue
		}
		out.appendRow(s.Months[i], s.Columns[Income][i], s.Columns[Expenses][i], s.Columns[Investment][i])
	}
	return out
}
