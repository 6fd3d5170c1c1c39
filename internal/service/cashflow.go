package service

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/quantfolio/backend/internal/forecast"
	"github.com/quantfolio/backend/internal/report"
)

type forecastRequest struct {
	UserID  string  `json:"user_id"`
	Periods int     `json:"periods"`
	Alpha   float64 `json:"alpha,omitempty"`
	// Method selects the forecast path: "auto" (default strategy dispatch),
	// "ensemble", or "fast" for point forecasts without intervals.
	Method string `json:"method,omitempty"`
}

type forecastResponse struct {
	Dates     []string                         `json:"dates"`
	Points    map[string][]nullableFloat       `json:"points"`
	Lower     map[string][]nullableFloat       `json:"lower,omitempty"`
	Upper     map[string][]nullableFloat       `json:"upper,omitempty"`
	Method    string                           `json:"method"`
	Summaries map[string]forecast.ModelSummary `json:"summaries,omitempty"`
}

func toForecastResponse(res *forecast.ForecastResult) forecastResponse {
	out := forecastResponse{
		Dates:     make([]string, len(res.Dates)),
		Points:    make(map[string][]nullableFloat, len(res.Points)),
		Method:    res.Method,
		Summaries: make(map[string]forecast.ModelSummary, len(res.Summaries)),
	}
	for i, d := range res.Dates {
		out.Dates[i] = d.Format("2006-01")
	}
	for cat, values := range res.Points {
		out.Points[string(cat)] = toNullable(values)
	}
	if res.Lower != nil {
		out.Lower = make(map[string][]nullableFloat, len(res.Lower))
		for cat, values := range res.Lower {
			out.Lower[string(cat)] = toNullable(values)
		}
	}
	if res.Upper != nil {
		out.Upper = make(map[string][]nullableFloat, len(res.Upper))
		for cat, values := range res.Upper {
			out.Upper[string(cat)] = toNullable(values)
		}
	}
	for cat, sum := range res.Summaries {
		out.Summaries[string(cat)] = sum
	}
	return out
}

func (s *AnalyticsService) handleForecast(w http.ResponseWriter, r *http.Request) {
	var req forecastRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}
	if req.UserID == "" {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("user_id is required"))
		return
	}
	if req.Periods < 1 {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("periods must be at least 1, got %d", req.Periods))
		return
	}
	switch req.Method {
	case "", "auto", "ensemble", "fast":
	default:
		// reject before model fitting so invalid requests stay cheap
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("unknown forecast method %q", req.Method))
		return
	}

	f, err := s.buildForecaster(r, req.UserID)
	if err != nil {
		s.writeError(w, statusForForecastError(err), err)
		return
	}

	var res *forecast.ForecastResult
	switch req.Method {
	case "ensemble":
		res, err = f.ForecastEnsemble(req.Periods, req.Alpha)
	case "fast":
		res, err = f.ForecastFast(req.Periods)
	default:
		res, err = f.Forecast(req.Periods, req.Alpha)
	}
	if err != nil {
		s.writeError(w, statusForForecastError(err), fmt.Errorf("forecast failed: %w", err))
		return
	}
	writeJSON(w, http.StatusOK, toForecastResponse(res))
}

type backtestRequest struct {
	UserID      string   `json:"user_id"`
	TestPeriods int      `json:"test_periods"`
	NumSplits   int      `json:"num_splits"`
	Methods     []string `json:"methods,omitempty"`
}

type backtestMethodResponse struct {
	Method           string                          `json:"method"`
	OverallMAPE      nullableFloat                   `json:"overall_mape"`
	MeanMAPE         map[string]nullableFloat        `json:"mean_mape"`
	Stats            map[string]forecast.SeriesStats `json:"stats,omitempty"`
	SuccessfulSplits int                             `json:"successful_splits"`
}

type backtestResponse struct {
	RequestedSplits int                                 `json:"requested_splits"`
	CompletedSplits int                                 `json:"completed_splits"`
	TestPeriods     int                                 `json:"test_periods"`
	Ranking         []string                            `json:"ranking"`
	Results         []backtestMethodResponse            `json:"results"`
	Improvement     map[string]map[string]nullableFloat `json:"improvement,omitempty"`
}

func toBacktestResponse(rep *forecast.BacktestReport) backtestResponse {
	out := backtestResponse{
		RequestedSplits: rep.RequestedSplits,
		CompletedSplits: rep.CompletedSplits,
		TestPeriods:     rep.TestPeriods,
		Improvement:     make(map[string]map[string]nullableFloat, len(rep.Improvement)),
	}
	for _, m := range rep.Ranking {
		out.Ranking = append(out.Ranking, string(m))
	}
	for _, r := range rep.Results {
		mr := backtestMethodResponse{
			Method:           string(r.Method),
			OverallMAPE:      nullableFloat(r.OverallMAPE),
			MeanMAPE:         make(map[string]nullableFloat, len(r.MeanMAPE)),
			Stats:            make(map[string]forecast.SeriesStats, len(r.Stats)),
			SuccessfulSplits: r.SuccessfulSplits,
		}
		for cat, v := range r.MeanMAPE {
			mr.MeanMAPE[string(cat)] = nullableFloat(v)
		}
		for cat, v := range r.Stats {
			mr.Stats[string(cat)] = v
		}
		out.Results = append(out.Results, mr)
	}
	for a, row := range rep.Improvement {
		conv := make(map[string]nullableFloat, len(row))
		for b, v := range row {
			conv[string(b)] = nullableFloat(v)
		}
		out.Improvement[string(a)] = conv
	}
	return out
}

func (s *AnalyticsService) handleBacktest(w http.ResponseWriter, r *http.Request) {
	var req backtestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}
	if req.UserID == "" {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("user_id is required"))
		return
	}

	var methods []forecast.BacktestMethod
	for _, m := range req.Methods {
		switch method := forecast.BacktestMethod(m); method {
		case forecast.BacktestSARIMA, forecast.BacktestETS, forecast.BacktestEnsemble:
			methods = append(methods, method)
		default:
			s.writeError(w, http.StatusBadRequest, fmt.Errorf("unknown backtest method %q", m))
			return
		}
	}

	series, err := s.loadSeries(r, req.UserID)
	if err != nil {
		s.writeError(w, statusForForecastError(err), err)
		return
	}
	f := forecast.NewForecaster(series, s.log)
	rep, err := f.RunRollingBacktest(forecast.BacktestConfig{
		TestPeriods: req.TestPeriods,
		NumSplits:   req.NumSplits,
		Methods:     methods,
	})
	if err != nil {
		s.writeError(w, statusForForecastError(err), fmt.Errorf("backtest failed: %w", err))
		return
	}
	writeJSON(w, http.StatusOK, toBacktestResponse(rep))
}

type stressRequest struct {
	UserID       string  `json:"user_id"`
	Periods      int     `json:"periods"`
	Alpha        float64 `json:"alpha,omitempty"`
	IncomeShock  float64 `json:"income_shock"`
	ExpenseShock float64 `json:"expense_shock"`
	FromPeriod   int     `json:"from_period,omitempty"`
	// Format selects the response body: "json" (default) or "markdown" for
	// a digest-ready report.
	Format string `json:"format,omitempty"`
}

type stressResponse struct {
	Dates            []string        `json:"dates"`
	Income           []nullableFloat `json:"income"`
	Expenses         []nullableFloat `json:"expenses"`
	Investment       []nullableFloat `json:"investment"`
	NetCashFlow      []nullableFloat `json:"net_cash_flow"`
	LiquidityWarning []bool          `json:"liquidity_warning"`
	IncomeShock      float64         `json:"income_shock"`
	ExpenseShock     float64         `json:"expense_shock"`
	FromPeriod       int             `json:"from_period"`
}

func (s *AnalyticsService) handleStress(w http.ResponseWriter, r *http.Request) {
	var req stressRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}
	if req.UserID == "" {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("user_id is required"))
		return
	}
	if req.Periods < 1 {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("periods must be at least 1, got %d", req.Periods))
		return
	}
	if req.IncomeShock < -1 || req.ExpenseShock < -1 {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("shocks below -1.0 are not meaningful"))
		return
	}
	switch req.Format {
	case "", "json", "markdown":
	default:
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("unknown format %q", req.Format))
		return
	}

	f, err := s.buildForecaster(r, req.UserID)
	if err != nil {
		s.writeError(w, statusForForecastError(err), err)
		return
	}
	baseline, err := f.Forecast(req.Periods, req.Alpha)
	if err != nil {
		s.writeError(w, statusForForecastError(err), fmt.Errorf("baseline forecast failed: %w", err))
		return
	}
	res, err := forecast.ApplyStress(baseline, req.IncomeShock, req.ExpenseShock, req.FromPeriod)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, fmt.Errorf("stress scenario failed: %w", err))
		return
	}

	if req.Format == "markdown" {
		md := report.BuildStressReport(res, time.Now().UTC())
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(md))
		return
	}

	out := stressResponse{
		Dates:            make([]string, len(res.Dates)),
		Income:           toNullable(res.Income),
		Expenses:         toNullable(res.Expenses),
		Investment:       toNullable(res.Investment),
		NetCashFlow:      toNullable(res.NetCashFlow),
		LiquidityWarning: res.LiquidityWarning,
		IncomeShock:      res.IncomeShock,
		ExpenseShock:     res.ExpenseShock,
		FromPeriod:       res.FromPeriod,
	}
	for i, d := range res.Dates {
		out.Dates[i] = d.Format("2006-01")
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *AnalyticsService) handleReport(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("user_id is required"))
		return
	}
	periods := 12
	if raw := r.URL.Query().Get("periods"); raw != "" {
		if _, err := fmt.Sscanf(raw, "%d", &periods); err != nil || periods < 1 {
			s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid periods %q", raw))
			return
		}
	}

	f, err := s.buildForecaster(r, userID)
	if err != nil {
		s.writeError(w, statusForForecastError(err), err)
		return
	}
	res, err := f.Forecast(periods, forecast.DefaultAlpha)
	if err != nil {
		s.writeError(w, statusForForecastError(err), fmt.Errorf("forecast failed: %w", err))
		return
	}

	now := time.Now().UTC()
	md := report.BuildForecastReport(res, now)

	// Append the method comparison when the history can host a backtest;
	// short histories get the forecast section alone.
	rep, err := f.RunRollingBacktest(forecast.BacktestConfig{
		TestPeriods: reportBacktestTestPeriods,
		NumSplits:   reportBacktestNumSplits,
	})
	if err != nil {
		s.log.WithError(err).Debug("skipping backtest section of report")
	} else {
		md += "\n" + report.BuildBacktestReport(rep, now)
	}

	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(md))
}

// Backtest shape used for the report's method comparison section.
const (
	reportBacktestTestPeriods = 3
	reportBacktestNumSplits   = 3
)

// buildForecaster loads the user's series and fits models, ready to serve
// one forecast request.
func (s *AnalyticsService) buildForecaster(r *http.Request, userID string) (*forecast.Forecaster, error) {
	series, err := s.loadSeries(r, userID)
	if err != nil {
		return nil, err
	}
	f := forecast.NewForecaster(series, s.log)
	if err := f.Fit(); err != nil {
		return nil, err
	}
	return f, nil
}
