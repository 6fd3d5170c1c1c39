package store

import (
	"context"
	"time"

	"github.com/quantfolio/backend/internal/model"
)

// Store defines the persistence operations used by the analytics service.
type Store interface {
	// Transaction operations
	CreateTransaction(ctx context.Context, txn *model.Transaction) error
	ListTransactions(ctx context.Context, userID string, startDate, endDate *time.Time) ([]*model.Transaction, error)

	// Portfolio snapshot operations
	CreatePortfolioSnapshot(ctx context.Context, snap *model.PortfolioSnapshot) error
	ListPortfolioSnapshots(ctx context.Context, userID string, startDate, endDate *time.Time) ([]*model.PortfolioSnapshot, error)

	// Monthly cash-flow operations
	UpsertMonthlyCashFlow(ctx context.Context, row *model.MonthlyCashFlowRow) error
	ListMonthlyCashFlow(ctx context.Context, userID string) ([]*model.MonthlyCashFlowRow, error)
}
