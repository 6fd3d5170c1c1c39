package service

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/quantfolio/backend/internal/model"
)

const dateLayout = "2006-01-02"

type transactionRequest struct {
	UserID     string `json:"user_id"`
	Date       string `json:"date"`
	Kind       string `json:"kind"`
	Amount     string `json:"amount"`
	Memo       string `json:"memo,omitempty"`
	Account    string `json:"account,omitempty"`
	AssetName  string `json:"asset_name,omitempty"`
	AssetClass string `json:"asset_class,omitempty"`
}

type transactionResponse struct {
	ID         string `json:"id"`
	UserID     string `json:"user_id"`
	Date       string `json:"date"`
	Kind       string `json:"kind"`
	Amount     string `json:"amount"`
	Memo       string `json:"memo,omitempty"`
	Account    string `json:"account,omitempty"`
	AssetName  string `json:"asset_name,omitempty"`
	AssetClass string `json:"asset_class,omitempty"`
}

func toTransactionResponse(txn *model.Transaction) transactionResponse {
	return transactionResponse{
		ID:         txn.ID,
		UserID:     txn.UserID,
		Date:       txn.Date.Format(dateLayout),
		Kind:       string(txn.Kind),
		Amount:     txn.Amount.String(),
		Memo:       txn.Memo,
		Account:    txn.Account,
		AssetName:  txn.AssetName,
		AssetClass: txn.AssetClass,
	}
}

func (s *AnalyticsService) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}
	if req.UserID == "" {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("user_id is required"))
		return
	}
	date, err := time.Parse(dateLayout, req.Date)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid date %q: %w", req.Date, err))
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid amount %q: %w", req.Amount, err))
		return
	}

	kind := model.TransactionKind(req.Kind)
	switch kind {
	case model.TransactionIncome, model.TransactionExpense, model.TransactionInvestment,
		model.TransactionTransfer, model.TransactionOther:
	case "":
		kind = model.TransactionOther
	default:
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("unknown transaction kind %q", req.Kind))
		return
	}

	txn := &model.Transaction{
		UserID:     req.UserID,
		Date:       date,
		Kind:       kind,
		Amount:     amount,
		Memo:       req.Memo,
		Account:    req.Account,
		AssetName:  req.AssetName,
		AssetClass: req.AssetClass,
	}
	if err := s.store.CreateTransaction(r.Context(), txn); err != nil {
		s.writeError(w, http.StatusInternalServerError, fmt.Errorf("failed to create transaction: %w", err))
		return
	}
	writeJSON(w, http.StatusCreated, toTransactionResponse(txn))
}

func (s *AnalyticsService) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("user_id is required"))
		return
	}
	start, err := optionalDate(r.URL.Query().Get("start"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	end, err := optionalDate(r.URL.Query().Get("end"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	txns, err := s.store.ListTransactions(r.Context(), userID, start, end)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, fmt.Errorf("failed to list transactions: %w", err))
		return
	}
	out := make([]transactionResponse, 0, len(txns))
	for _, txn := range txns {
		out = append(out, toTransactionResponse(txn))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"transactions": out})
}

type snapshotRequest struct {
	UserID      string `json:"user_id"`
	Date        string `json:"date"`
	AssetID     string `json:"asset_id"`
	AssetName   string `json:"asset_name,omitempty"`
	MarketValue string `json:"market_value"`
}

func (s *AnalyticsService) handleCreateSnapshot(w http.ResponseWriter, r *http.Request) {
	var req snapshotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}
	if req.UserID == "" {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("user_id is required"))
		return
	}
	date, err := time.Parse(dateLayout, req.Date)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid date %q: %w", req.Date, err))
		return
	}
	value, err := decimal.NewFromString(req.MarketValue)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid market_value %q: %w", req.MarketValue, err))
		return
	}

	snap := &model.PortfolioSnapshot{
		UserID:      req.UserID,
		Date:        date,
		AssetID:     req.AssetID,
		AssetName:   req.AssetName,
		MarketValue: value,
	}
	if err := s.store.CreatePortfolioSnapshot(r.Context(), snap); err != nil {
		s.writeError(w, http.StatusInternalServerError, fmt.Errorf("failed to create snapshot: %w", err))
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": snap.ID})
}

type monthlyRequest struct {
	UserID      string             `json:"user_id"`
	Month       string             `json:"month"` // "2006-01"
	Columns     map[string]float64 `json:"columns"`
	ColumnOrder []string           `json:"column_order,omitempty"`
}

func (s *AnalyticsService) handleUpsertMonthly(w http.ResponseWriter, r *http.Request) {
	var req monthlyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}
	if req.UserID == "" {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("user_id is required"))
		return
	}
	month, err := time.Parse("2006-01", req.Month)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid month %q: %w", req.Month, err))
		return
	}
	if len(req.Columns) == 0 {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("columns must not be empty"))
		return
	}
	order := req.ColumnOrder
	if len(order) == 0 {
		for name := range req.Columns {
			order = append(order, name)
		}
	}

	row := &model.MonthlyCashFlowRow{
		UserID:      req.UserID,
		Month:       month,
		Columns:     req.Columns,
		ColumnOrder: order,
	}
	if err := s.store.UpsertMonthlyCashFlow(r.Context(), row); err != nil {
		s.writeError(w, http.StatusInternalServerError, fmt.Errorf("failed to upsert monthly cash flow: %w", err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": row.ID})
}

func optionalDate(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q: %w", raw, err)
	}
	return &t, nil
}
