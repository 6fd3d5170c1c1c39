package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionKind is the transaction-type code assigned at ingest.
type TransactionKind string

const (
	TransactionIncome     TransactionKind = "income"
	TransactionExpense    TransactionKind = "expense"
	TransactionInvestment TransactionKind = "investment"
	TransactionTransfer   TransactionKind = "transfer"
	TransactionOther      TransactionKind = "other"
)

// Transaction is a single dated cash movement. Amount is the signed net
// amount: positive for inflows, negative for outflows.
type Transaction struct {
	ID         string
	UserID     string
	Date       time.Time
	Kind       TransactionKind
	Amount     decimal.Decimal
	Memo       string
	Account    string
	AssetName  string
	AssetClass string // e.g. "rsu" for equity-compensation vesting lots
	CreatedAt  time.Time
}

// PortfolioSnapshot records the market value of one asset on one date.
type PortfolioSnapshot struct {
	ID          string
	UserID      string
	Date        time.Time
	AssetID     string
	AssetName   string
	MarketValue decimal.Decimal
}

// MonthlyCashFlowRow is a pre-aggregated monthly cash-flow record. Column
// names are source-defined and resolved downstream by keyword matching, so
// the row keeps both the values and the original column order.
type MonthlyCashFlowRow struct {
	ID          string
	UserID      string
	Month       time.Time // month-end date
	Columns     map[string]float64
	ColumnOrder []string
}
