package forecast

import (
	"strings"
)

// Column detection is a prioritized, data-driven matcher rather than a chain
// of conditionals so the policy can be tested against sample column sets.
//
// Priority:
//  1. validated calculated columns, matched exactly (case-insensitive)
//  2. keyword rules in rule order; within a rule, the first column in source
//     order that matches the keywords, clears the exclusions, and meets the
//     activity requirement wins. Ties among qualifying candidates resolve to
//     the first in source order.

var investmentKeywords = []string{"investment", "invest", "saving", "portfolio", "allocation", "contribution"}

var calculatedColumns = map[Category][]string{
	Income:     {"income_calculated", "calculated_income", "total_income_validated"},
	Expenses:   {"expenses_calculated", "calculated_expenses", "total_expenses_validated"},
	Investment: {"investment_calculated", "calculated_investment", "total_investment_validated"},
}

type columnRule struct {
	target      Category
	keywords    []string
	exclude     []string
	minActivity float64 // minimum fraction of periods with nonzero values
}

var columnRules = []columnRule{
	{
		target:   Income,
		keywords: []string{"income", "revenue", "salary", "earning", "inflow"},
		exclude:  investmentKeywords,
	},
	{
		target:   Expenses,
		keywords: []string{"expense", "cost", "spending", "expenditure"},
	},
	{
		target:      Investment,
		keywords:    investmentKeywords,
		minActivity: defaultMinActivityRatio,
	},
}

const defaultMinActivityRatio = 0.2

func matchesAny(name string, keywords []string) bool {
	lower := strings.ToLower(name)
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func activityRatio(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	nonzero := 0
	for _, v := range values {
		if v != 0 {
			nonzero++
		}
	}
	return float64(nonzero) / float64(len(values))
}

// detectColumns maps each category to the source column chosen for it.
// Categories with no acceptable column are absent from the result and get
// zero-filled by the caller.
func detectColumns(order []string, values map[string][]float64, minActivity float64) map[Category]string {
	if minActivity <= 0 {
		minActivity = defaultMinActivityRatio
	}
	chosen := make(map[Category]string, len(Categories))
	used := make(map[string]bool, len(order))

	for _, cat := range []Category{Income, Expenses, Investment} {
		for _, name := range order {
			if used[name] {
				continue
			}
			if matchesExact(name, calculatedColumns[cat]) {
				chosen[cat] = name
				used[name] = true
				break
			}
		}
	}

	for _, rule := range columnRules {
		if _, ok := chosen[rule.target]; ok {
			continue
		}
		threshold := rule.minActivity
		if rule.target == Investment && threshold != minActivity {
			threshold = minActivity
		}
		for _, name := range order {
			if used[name] || !matchesAny(name, rule.keywords) {
				continue
			}
			if len(rule.exclude) > 0 && matchesAny(name, rule.exclude) {
				continue
			}
			if threshold > 0 && activityRatio(values[name]) < threshold {
				continue
			}
			chosen[rule.target] = name
			used[name] = true
			break
		}
	}
	return chosen
}

func matchesExact(name string, candidates []string) bool {
	for _, c := range candidates {
		if strings.EqualFold(name, c) {
			return true
		}
	}
	return false
}
