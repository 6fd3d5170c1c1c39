package forecast

import (
	"fmt"

	"github.com/sartorproj/goarima/timeseries"

	"github.com/quantfolio/backend/internal/sarima"
)

const (
	seasonalPeriod = 12
	// two full annual cycles before the seasonal orders join the search
	seasonalSearchMinObs = 2 * seasonalPeriod
	gridSearchMinObs     = 4
)

// GridModel is a grid-search fit for one series: the winning model together
// with the selection scores kept for model-summary inspection.
type GridModel struct {
	Model *sarima.Model
	Order sarima.Order
	AIC   float64
	BIC   float64
}

// fitGridSearch exhaustively fits every candidate order and keeps the lowest
// AIC. Candidates that fail to converge are skipped. Enumeration runs p, d,
// q, then the seasonal orders, each ascending; ties on AIC keep the first
// candidate seen, so repeated runs always select the same order.
func fitGridSearch(values []float64) (*GridModel, error) {
	n := len(values)
	if n < gridSearchMinObs {
		return nil, &InsufficientDataError{Op: "grid search", Have: n, Need: gridSearchMinObs}
	}

	spRange, sdRange, sqRange := []int{0}, []int{0}, []int{0}
	period := 0
	if n >= seasonalSearchMinObs {
		spRange, sdRange, sqRange = []int{0, 1, 2}, []int{0, 1}, []int{0, 1, 2}
		period = seasonalPeriod
	}

	series := timeseries.New(values)
	var best *GridModel
	for _, p := range []int{0, 1, 2} {
		for _, d := range []int{0, 1} {
			for _, q := range []int{0, 1, 2} {
				for _, sp := range spRange {
					for _, sd := range sdRange {
						for _, sq := range sqRange {
							order := sarima.Order{P: p, D: d, Q: q, SP: sp, SD: sd, SQ: sq, M: period}
							model := sarima.New(order)
							if err := model.Fit(series); err != nil {
								continue
							}
							if best == nil || model.AIC < best.AIC {
								best = &GridModel{Model: model, Order: order, AIC: model.AIC, BIC: model.BIC}
							}
						}
					}
				}
			}
		}
	}
	if best == nil {
		return nil, fmt.Errorf("grid search: no candidate order converged on %d observations", n)
	}
	return best, nil
}
