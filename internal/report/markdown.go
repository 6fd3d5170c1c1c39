// Package report renders forecast and backtest output as markdown for
// digest-style delivery.
package report

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/quantfolio/backend/internal/forecast"
)

// BuildForecastReport renders a monthly cash-flow forecast as a markdown
// document: a summary line per series, then a dated table with confidence
// bounds. Nil or empty input yields a short placeholder so digests never
// break on missing data.
func BuildForecastReport(res *forecast.ForecastResult, generatedAt time.Time) string {
	var b strings.Builder
	b.WriteString("# Cash Flow Forecast\n\n")
	fmt.Fprintf(&b, "Generated %s\n\n", generatedAt.Format("2006-01-02"))

	if res == nil || len(res.Dates) == 0 {
		b.WriteString("No forecast available.\n")
		return b.String()
	}

	fmt.Fprintf(&b, "Method: `%s`, horizon %d months.\n\n", res.Method, len(res.Dates))

	b.WriteString("## Models\n\n")
	b.WriteString("| Series | Strategy | Order | AIC |\n")
	b.WriteString("|---|---|---|---|\n")
	for _, cat := range forecast.Categories {
		s, ok := res.Summaries[cat]
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "| %s | %s | %s | %s |\n", cat, s.Strategy, s.Order, fmtValue(s.AIC))
	}
	b.WriteString("\n")

	for _, cat := range forecast.Categories {
		points, ok := res.Points[cat]
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "## %s\n\n", strings.ReplaceAll(string(cat), "_", " "))
		hasBounds := res.Lower != nil && res.Lower[cat] != nil
		if hasBounds {
			b.WriteString("| Month | Forecast | Lower | Upper |\n")
			b.WriteString("|---|---|---|---|\n")
		} else {
			b.WriteString("| Month | Forecast |\n")
			b.WriteString("|---|---|\n")
		}
		for i, d := range res.Dates {
			if hasBounds {
				fmt.Fprintf(&b, "| %s | %s | %s | %s |\n",
					d.Format("2006-01"), fmtValue(points[i]),
					fmtValue(res.Lower[cat][i]), fmtValue(res.Upper[cat][i]))
			} else {
				fmt.Fprintf(&b, "| %s | %s |\n", d.Format("2006-01"), fmtValue(points[i]))
			}
		}
		b.WriteString("\n")
	}
	return b.String()
}

// BuildBacktestReport renders backtest results as markdown: the ranking,
// per-method overall MAPE, and the pairwise improvement matrix.
func BuildBacktestReport(rep *forecast.BacktestReport, generatedAt time.Time) string {
	var b strings.Builder
	b.WriteString("# Forecast Backtest\n\n")
	fmt.Fprintf(&b, "Generated %s\n\n", generatedAt.Format("2006-01-02"))

	if rep == nil || len(rep.Results) == 0 {
		b.WriteString("No backtest results available.\n")
		return b.String()
	}

	fmt.Fprintf(&b, "%d of %d splits completed, %d test periods each.\n\n",
		rep.CompletedSplits, rep.RequestedSplits, rep.TestPeriods)

	b.WriteString("## Ranking\n\n")
	b.WriteString("| Rank | Method | Overall MAPE | Splits Scored |\n")
	b.WriteString("|---|---|---|---|\n")
	for i, r := range rep.Results {
		fmt.Fprintf(&b, "| %d | %s | %s | %d |\n",
			i+1, r.Method, fmtMAPE(r.OverallMAPE), r.SuccessfulSplits)
	}
	b.WriteString("\n")

	b.WriteString("## Per-Series Mean MAPE\n\n")
	b.WriteString("| Method |")
	for _, cat := range forecast.Categories {
		fmt.Fprintf(&b, " %s |", cat)
	}
	b.WriteString("\n|---|")
	for range forecast.Categories {
		b.WriteString("---|")
	}
	b.WriteString("\n")
	for _, r := range rep.Results {
		fmt.Fprintf(&b, "| %s |", r.Method)
		for _, cat := range forecast.Categories {
			fmt.Fprintf(&b, " %s |", fmtMAPE(r.MeanMAPE[cat]))
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")

	if len(rep.Improvement) > 0 {
		b.WriteString("## Improvement\n\n")
		for _, a := range rep.Ranking {
			row, ok := rep.Improvement[a]
			if !ok {
				continue
			}
			for _, bMethod := range rep.Ranking {
				pct, ok := row[bMethod]
				if !ok {
					continue
				}
				fmt.Fprintf(&b, "- `%s` improves on `%s` by %.1f%%\n", a, bMethod, pct)
			}
		}
		b.WriteString("\n")
	}
	return b.String()
}

// BuildStressReport renders a stress scenario as markdown, calling out the
// months where net cash flow goes negative.
func BuildStressReport(res *forecast.StressResult, generatedAt time.Time) string {
	var b strings.Builder
	b.WriteString("# Stress Scenario\n\n")
	fmt.Fprintf(&b, "Generated %s\n\n", generatedAt.Format("2006-01-02"))

	if res == nil || len(res.Dates) == 0 {
		b.WriteString("No scenario results available.\n")
		return b.String()
	}

	fmt.Fprintf(&b, "Income shock %+.0f%%, expense shock %+.0f%%, applied from period %d.\n\n",
		res.IncomeShock*100, res.ExpenseShock*100, res.FromPeriod)

	b.WriteString("| Month | Income | Expenses | Investment | Net | |\n")
	b.WriteString("|---|---|---|---|---|---|\n")
	warnings := 0
	for i, d := range res.Dates {
		flag := ""
		if res.LiquidityWarning[i] {
			flag = "⚠️"
			warnings++
		}
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %s | %s |\n",
			d.Format("2006-01"), fmtValue(res.Income[i]), fmtValue(res.Expenses[i]),
			fmtValue(res.Investment[i]), fmtValue(res.NetCashFlow[i]), flag)
	}
	b.WriteString("\n")
	if warnings > 0 {
		fmt.Fprintf(&b, "**%d of %d months show negative net cash flow under this scenario.**\n", warnings, len(res.Dates))
	} else {
		b.WriteString("Net cash flow stays positive across the scenario horizon.\n")
	}
	return b.String()
}

func fmtValue(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "n/a"
	}
	return fmt.Sprintf("%.2f", v)
}

func fmtMAPE(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "n/a"
	}
	return fmt.Sprintf("%.2f%%", v)
}
