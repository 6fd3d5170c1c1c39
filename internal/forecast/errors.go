package forecast

import (
	"errors"
	"fmt"
)

var (
	// ErrNoData means no usable source data was found across all fallback
	// tiers of series preparation.
	ErrNoData = errors.New("no cash flow data available from any source")

	// ErrInsufficientData is the sentinel wrapped by InsufficientDataError.
	ErrInsufficientData = errors.New("insufficient data")

	// ErrNotFitted is returned when a forecast is requested before Fit.
	ErrNotFitted = errors.New("must fit models first")

	// ErrNoHistory is returned when a forecaster holds an empty series.
	ErrNoHistory = errors.New("no historical data")
)

// InsufficientDataError reports how many observations an operation needs
// versus how many the series actually has.
type InsufficientDataError struct {
	Op     string
	Series string
	Have   int
	Need   int
}

func (e *InsufficientDataError) Error() string {
	if e.Series != "" {
		return fmt.Sprintf("insufficient data for %s on %s: have %d observations, need %d",
			e.Op, e.Series, e.Have, e.Need)
	}
	return fmt.Sprintf("insufficient data for %s: have %d observations, need %d", e.Op, e.Have, e.Need)
}

func (e *InsufficientDataError) Unwrap() error { return ErrInsufficientData }
