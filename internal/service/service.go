// Package service exposes the analytics engine over JSON HTTP.
package service

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/quantfolio/backend/internal/forecast"
	"github.com/quantfolio/backend/internal/store"
)

// AnalyticsService handles cash-flow analytics requests.
type AnalyticsService struct {
	store store.Store
	log   logrus.FieldLogger
}

// NewAnalyticsService creates a new analytics service backed by the given store.
func NewAnalyticsService(s store.Store, log logrus.FieldLogger) *AnalyticsService {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &AnalyticsService{store: s, log: log}
}

// Routes registers all service handlers on the router.
func (s *AnalyticsService) Routes(r *mux.Router) {
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	v1 := r.PathPrefix("/v1").Subrouter()
	v1.HandleFunc("/transactions", s.handleCreateTransaction).Methods(http.MethodPost)
	v1.HandleFunc("/transactions", s.handleListTransactions).Methods(http.MethodGet)
	v1.HandleFunc("/snapshots", s.handleCreateSnapshot).Methods(http.MethodPost)
	v1.HandleFunc("/cashflow/monthly", s.handleUpsertMonthly).Methods(http.MethodPost)
	v1.HandleFunc("/cashflow/forecast", s.handleForecast).Methods(http.MethodPost)
	v1.HandleFunc("/cashflow/backtest", s.handleBacktest).Methods(http.MethodPost)
	v1.HandleFunc("/cashflow/stress", s.handleStress).Methods(http.MethodPost)
	v1.HandleFunc("/cashflow/report", s.handleReport).Methods(http.MethodGet)
}

func (s *AnalyticsService) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// nullableFloat marshals NaN and infinities as JSON null instead of failing
// the whole encode.
type nullableFloat float64

func (f nullableFloat) MarshalJSON() ([]byte, error) {
	v := float64(f)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return []byte("null"), nil
	}
	return json.Marshal(v)
}

func toNullable(values []float64) []nullableFloat {
	if values == nil {
		return nil
	}
	out := make([]nullableFloat, len(values))
	for i, v := range values {
		out[i] = nullableFloat(v)
	}
	return out
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *AnalyticsService) writeError(w http.ResponseWriter, status int, err error) {
	if status >= http.StatusInternalServerError {
		s.log.WithError(err).Error("request failed")
	} else {
		s.log.WithError(err).Debug("request rejected")
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

// statusForForecastError maps domain errors to HTTP codes: missing or thin
// data is the client's problem, everything else is ours.
func statusForForecastError(err error) int {
	switch {
	case errors.Is(err, forecast.ErrNoData),
		errors.Is(err, forecast.ErrNoHistory),
		errors.Is(err, forecast.ErrInsufficientData):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// loadSeries pulls all three source tiers for the user and prepares the
// monthly series with graceful fallback between them.
func (s *AnalyticsService) loadSeries(r *http.Request, userID string) (*forecast.Series, error) {
	ctx := r.Context()
	monthly, err := s.store.ListMonthlyCashFlow(ctx, userID)
	if err != nil {
		return nil, err
	}
	txns, err := s.store.ListTransactions(ctx, userID, nil, nil)
	if err != nil {
		return nil, err
	}
	snaps, err := s.store.ListPortfolioSnapshots(ctx, userID, nil, nil)
	if err != nil {
		return nil, err
	}
	return forecast.Prepare(monthly, txns, snaps, forecast.PrepareOptions{Logger: s.log})
}
